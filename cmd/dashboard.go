package cmd

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/joescharf/bugboard/internal/output"
	"github.com/joescharf/bugboard/internal/viewmodel"
)

var dashboardRecent int

var dashboardCmd = &cobra.Command{
	Use:     "dashboard",
	Aliases: []string{"stats"},
	Short:   "Show issue totals and distributions",
	RunE: func(cmd *cobra.Command, args []string) error {
		return dashboardRun()
	},
}

func init() {
	dashboardCmd.Flags().IntVarP(&dashboardRecent, "recent", "n", viewmodel.RecentIssues, "Number of recent issues to list")
	rootCmd.AddCommand(dashboardCmd)
}

func dashboardRun() error {
	s, err := getStore()
	if err != nil {
		return err
	}
	issues, err := s.ListIssues(context.Background())
	if err != nil {
		return fmt.Errorf("list issues: %w", err)
	}

	d := viewmodel.BuildDashboard(issues, dashboardRecent)

	fmt.Fprintf(ui.Out, "Total %d  |  Open %s  |  In Progress %s  |  Critical %s  |  Resolved %s\n\n",
		d.Stats.Total,
		output.Cyan(strconv.Itoa(d.Stats.Open)),
		output.Yellow(strconv.Itoa(d.Stats.InProgress)),
		output.Red(strconv.Itoa(d.Stats.Critical)),
		output.Green(strconv.Itoa(d.Resolved)),
	)

	table := ui.Table([]string{"Status", "", "Priority", "", "Type", ""})
	rows := max(len(d.Status), len(d.Priority), len(d.Type))
	cell := func(b []viewmodel.Bucket, i int) (string, string) {
		if i >= len(b) {
			return "", ""
		}
		return b[i].Label, strconv.Itoa(b[i].Count)
	}
	for i := range rows {
		sl, sc := cell(d.Status, i)
		pl, pc := cell(d.Priority, i)
		tl, tc := cell(d.Type, i)
		_ = table.Append([]string{sl, sc, pl, pc, tl, tc})
	}
	_ = table.Render()

	if len(d.Recent) == 0 {
		return nil
	}
	fmt.Fprintf(ui.Out, "\nRecent issues:\n")
	recent := ui.Table([]string{"ID", "Title", "Status", "Priority", "Created"})
	for _, issue := range d.Recent {
		_ = recent.Append([]string{
			issueRef(issue.ID),
			issue.Title,
			output.StatusColor(string(issue.Status)),
			output.PriorityColor(string(issue.Priority)),
			output.Ago(issue.CreatedAt),
		})
	}
	_ = recent.Render()
	return nil
}
