// Package render draws the kanban board and issue markdown for terminal output.
package render

import (
	"fmt"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/joescharf/bugboard/internal/board"
	"github.com/joescharf/bugboard/internal/models"
)

const (
	maxCardsPerColumn = 8
	minColumnWidth    = 18
	defaultTermWidth  = 120
	maxPlainTitle     = 60
)

// Options configures board rendering.
type Options struct {
	// Width overrides the detected terminal width when positive.
	Width int
	// Plain forces the uncolored layout.
	Plain bool
}

// ColorsEnabled reports whether styled output should be used.
func ColorsEnabled() bool {
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		return false
	}
	return os.Getenv("TERM") != "dumb"
}

func terminalWidth() int {
	w, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || w <= 0 {
		return defaultTermWidth
	}
	return w
}

var statusColors = map[models.IssueStatus]lipgloss.Color{
	models.IssueStatusOpen:       lipgloss.Color("12"),
	models.IssueStatusInProgress: lipgloss.Color("13"),
	models.IssueStatusTesting:    lipgloss.Color("11"),
	models.IssueStatusResolved:   lipgloss.Color("10"),
	models.IssueStatusClosed:     lipgloss.Color("8"),
}

var priorityColors = map[models.IssuePriority]lipgloss.Color{
	models.IssuePriorityCritical: lipgloss.Color("9"),
	models.IssuePriorityHigh:     lipgloss.Color("11"),
	models.IssuePriorityMedium:   lipgloss.Color("12"),
	models.IssuePriorityLow:      lipgloss.Color("8"),
}

// Board renders the columns side by side, or stacked when colors are off.
func Board(cols []board.Column, opts Options) string {
	total := 0
	for _, c := range cols {
		total += len(c.Issues)
	}
	if total == 0 {
		return "No issues on the board.\n"
	}
	if opts.Plain || !ColorsEnabled() {
		return plainBoard(cols)
	}

	width := opts.Width
	if width <= 0 {
		width = terminalWidth()
	}
	colWidth := max((width-(len(cols)-1))/len(cols), minColumnWidth)

	rendered := make([]string, 0, len(cols)*2)
	for i, c := range cols {
		if i > 0 {
			rendered = append(rendered, " ")
		}
		rendered = append(rendered, colorColumn(c, colWidth))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, rendered...) + "\n"
}

func visible(issues []*models.Issue) ([]*models.Issue, int) {
	if len(issues) > maxCardsPerColumn {
		return issues[:maxCardsPerColumn], len(issues) - maxCardsPerColumn
	}
	return issues, 0
}

func colorColumn(c board.Column, width int) string {
	header := lipgloss.NewStyle().
		Bold(true).
		Foreground(statusColors[c.Status]).
		Width(width).
		Align(lipgloss.Center).
		Render(fmt.Sprintf("%s (%d)", strings.ToUpper(c.Title), len(c.Issues)))

	shown, overflow := visible(c.Issues)
	parts := []string{header}
	for _, issue := range shown {
		parts = append(parts, colorCard(issue, width))
	}
	if overflow > 0 {
		parts = append(parts, lipgloss.NewStyle().
			Width(width).
			Align(lipgloss.Center).
			Foreground(lipgloss.Color("8")).
			Render(fmt.Sprintf("+%d more", overflow)))
	}
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func colorCard(issue *models.Issue, width int) string {
	content := max(width-4, 5)
	pri := lipgloss.NewStyle().Foreground(priorityColors[issue.Priority]).Render(string(issue.Priority))

	lines := []string{
		fmt.Sprintf("#%d %s %s", issue.ID, pri, issue.Type),
		truncate(issue.Title, content),
	}
	if issue.Assignee != "" {
		lines = append(lines, truncate("@"+issue.Assignee, content))
	}

	return lipgloss.NewStyle().
		Width(width-2).
		Padding(0, 1).
		Border(lipgloss.RoundedBorder()).
		BorderForeground(statusColors[issue.Status]).
		Render(strings.Join(lines, "\n"))
}

func plainBoard(cols []board.Column) string {
	var b strings.Builder
	for i, c := range cols {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "=== %s (%d) ===\n", strings.ToUpper(c.Title), len(c.Issues))

		shown, overflow := visible(c.Issues)
		for _, issue := range shown {
			fmt.Fprintf(&b, "  #%d [%s] (%s) %s\n", issue.ID, issue.Priority, issue.Type, truncate(issue.Title, maxPlainTitle))
		}
		if overflow > 0 {
			fmt.Fprintf(&b, "  +%d more\n", overflow)
		}
	}
	return b.String()
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	if n <= 3 {
		return string(runes[:n])
	}
	return string(runes[:n-3]) + "..."
}
