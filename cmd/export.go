package cmd

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/joescharf/bugboard/internal/store"
	"github.com/joescharf/bugboard/internal/viewmodel"
)

var (
	exportFormat string
	exportType   string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export data as JSON, CSV, or Markdown",
	Long: `Export issues or users in various formats.

Issue exports honor the same --search, --status, --priority, --type-filter,
--sort and --dir options as 'bugboard issue list'.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return exportRun()
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportFormat, "format", "json", "Output format: json, csv, markdown")
	exportCmd.Flags().StringVar(&exportType, "type", "issues", "Data type: issues, users")
	exportCmd.Flags().StringVarP(&listSearch, "search", "q", "", "Search title and description")
	exportCmd.Flags().StringSliceVar(&listStatuses, "status", nil, "Filter by status")
	exportCmd.Flags().StringSliceVar(&listPriorities, "priority", nil, "Filter by priority")
	exportCmd.Flags().StringSliceVar(&listTypes, "type-filter", nil, "Filter by issue type")
	exportCmd.Flags().StringVar(&listSort, "sort", viewmodel.DefaultSort.Key, "Sort key")
	exportCmd.Flags().StringVar(&listDir, "dir", string(viewmodel.DefaultSort.Direction), "Sort direction: asc or desc")
	rootCmd.AddCommand(exportCmd)
}

func exportRun() error {
	switch exportFormat {
	case "json", "csv", "markdown":
	default:
		return fmt.Errorf("unknown format: %s (use: json, csv, markdown)", exportFormat)
	}

	s, err := getStore()
	if err != nil {
		return err
	}
	ctx := context.Background()

	switch exportType {
	case "issues":
		return exportIssues(ctx, s)
	case "users":
		return exportUsers(ctx, s)
	default:
		return fmt.Errorf("unknown export type: %s (use: issues, users)", exportType)
	}
}

func writeJSON(v any) error {
	enc := json.NewEncoder(ui.Out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// mdCell keeps a value from breaking a markdown table row.
func mdCell(s string) string {
	s = strings.ReplaceAll(s, "|", "\\|")
	return strings.Join(strings.Fields(s), " ")
}

func exportIssues(ctx context.Context, s store.Store) error {
	q, err := listQuery()
	if err != nil {
		return err
	}
	all, err := s.ListIssues(ctx)
	if err != nil {
		return err
	}
	issues := viewmodel.Derive(all, q)

	switch exportFormat {
	case "json":
		return writeJSON(issues)
	case "csv":
		w := csv.NewWriter(ui.Out)
		_ = w.Write([]string{"ID", "Title", "Status", "Priority", "Type", "Assignee", "Reporter", "Due", "Created", "Updated"})
		for _, i := range issues {
			due := ""
			if i.DueDate != nil {
				due = i.DueDate.Format(dateLayout)
			}
			_ = w.Write([]string{
				fmt.Sprintf("%d", i.ID), i.Title, string(i.Status), string(i.Priority), string(i.Type),
				i.Assignee, i.Reporter, due, i.CreatedAt.Format(dateLayout), i.UpdatedAt.Format(dateLayout),
			})
		}
		w.Flush()
		return w.Error()
	default:
		fmt.Fprintln(ui.Out, "# Issues")
		fmt.Fprintln(ui.Out)
		fmt.Fprintln(ui.Out, "| # | Title | Status | Priority | Type | Assignee |")
		fmt.Fprintln(ui.Out, "|---|-------|--------|----------|------|----------|")
		for _, i := range issues {
			fmt.Fprintf(ui.Out, "| %d | %s | %s | %s | %s | %s |\n",
				i.ID, mdCell(i.Title), i.Status.Label(), i.Priority.Label(), i.Type.Label(), mdCell(i.Assignee))
		}
		return nil
	}
}

func exportUsers(ctx context.Context, s store.Store) error {
	users, err := s.ListUsers(ctx)
	if err != nil {
		return err
	}

	switch exportFormat {
	case "json":
		return writeJSON(users)
	case "csv":
		w := csv.NewWriter(ui.Out)
		_ = w.Write([]string{"ID", "Name", "FirstName", "LastName", "Email", "Tags"})
		for _, u := range users {
			_ = w.Write([]string{fmt.Sprintf("%d", u.ID), u.Name, u.FirstName, u.LastName, u.Email, u.Tags})
		}
		w.Flush()
		return w.Error()
	default:
		fmt.Fprintln(ui.Out, "# Users")
		fmt.Fprintln(ui.Out)
		fmt.Fprintln(ui.Out, "| Name | Email | Tags |")
		fmt.Fprintln(ui.Out, "|------|-------|------|")
		for _, u := range users {
			fmt.Fprintf(ui.Out, "| %s | %s | %s |\n", mdCell(u.Name), u.Email, mdCell(strings.Join(u.TagList(), ", ")))
		}
		return nil
	}
}
