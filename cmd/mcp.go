package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/joescharf/bugboard/internal/board"
	"github.com/joescharf/bugboard/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start MCP stdio server",
	Long: `Start an MCP (Model Context Protocol) server on stdio so agents can
read and triage the tracker. Configure it in an MCP client with:

  {
    "mcpServers": {
      "bugboard": { "command": "bugboard", "args": ["mcp"] }
    }
  }

Available tools: bugboard_list_issues, bugboard_get_issue,
bugboard_create_issue, bugboard_update_issue, bugboard_add_comment,
bugboard_board, bugboard_move_issue, bugboard_stats`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		s, err := getStore()
		if err != nil {
			return err
		}
		srv := mcp.NewServer(s, board.New(s, nil), buildVersion)
		return srv.ServeStdio(ctx)
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
