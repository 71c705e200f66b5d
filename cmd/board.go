package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/joescharf/bugboard/internal/board"
	"github.com/joescharf/bugboard/internal/render"
)

var (
	boardPlain bool
	boardWidth int
)

var boardCmd = &cobra.Command{
	Use:   "board",
	Short: "Show the kanban board",
	Long: `Show issues grouped into one column per status, in the order
Open, In Progress, Testing, Resolved, Closed.

Use 'bugboard issue move <id> <status>' to move a card.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return boardRun()
	},
}

func init() {
	boardCmd.Flags().BoolVar(&boardPlain, "plain", false, "Print a plain stacked list instead of colored columns")
	boardCmd.Flags().IntVar(&boardWidth, "width", 0, "Board width in columns (default: terminal width)")
	rootCmd.AddCommand(boardCmd)
}

func boardRun() error {
	s, err := getStore()
	if err != nil {
		return err
	}

	b := board.New(s, nil)
	if err := b.Load(context.Background()); err != nil {
		return fmt.Errorf("load board: %w", err)
	}

	fmt.Fprint(ui.Out, render.Board(b.Columns(), render.Options{
		Width: boardWidth,
		Plain: boardPlain || !render.ColorsEnabled(),
	}))
	return nil
}
