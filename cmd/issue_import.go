package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/joescharf/bugboard/internal/models"
	"github.com/joescharf/bugboard/internal/store"
)

var (
	importDryRun   bool
	importNoLLM    bool
	importReporter string
)

var issueImportCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import issues from a JSON, YAML or markdown file",
	Long: `Import issues from a seed file.

.json and .yaml/.yml files hold a list of issues (or an object with an
"issues" list) using the API field names: title, description, type,
priority, status, assignee, reporter, dueDate.

.md files are read as notes: numbered or bulleted items become issues.
With an Anthropic API key the LLM extracts titles, descriptions, types and
priorities; otherwise (or with --no-llm) keyword heuristics are used.

Issues whose title already exists are skipped.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return issueImportRun(args[0])
	},
}

func init() {
	issueImportCmd.Flags().BoolVar(&importDryRun, "dry-run", false, "Preview issues without creating them")
	issueImportCmd.Flags().BoolVar(&importNoLLM, "no-llm", false, "Parse markdown without the LLM")
	issueImportCmd.Flags().StringVar(&importReporter, "reporter", os.Getenv("USER"), "Reporter for imported issues that have none")
	issueCmd.AddCommand(issueImportCmd)
}

// seedIssue is the on-disk shape of an imported issue.
type seedIssue struct {
	Title       string `json:"title" yaml:"title"`
	Description string `json:"description" yaml:"description"`
	Type        string `json:"type" yaml:"type"`
	Priority    string `json:"priority" yaml:"priority"`
	Status      string `json:"status" yaml:"status"`
	Assignee    string `json:"assignee" yaml:"assignee"`
	Reporter    string `json:"reporter" yaml:"reporter"`
	DueDate     string `json:"dueDate" yaml:"dueDate"`
}

func (s seedIssue) issue(defaultReporter string) (*models.Issue, error) {
	issue := &models.Issue{
		Title:       strings.TrimSpace(s.Title),
		Description: strings.TrimSpace(s.Description),
		Type:        models.IssueType(s.Type),
		Priority:    models.IssuePriority(s.Priority),
		Status:      models.IssueStatus(s.Status),
		Assignee:    strings.TrimSpace(s.Assignee),
		Reporter:    strings.TrimSpace(s.Reporter),
	}
	if issue.Reporter == "" {
		issue.Reporter = defaultReporter
	}
	if issue.Description == "" {
		issue.Description = issue.Title
	}
	if s.DueDate != "" {
		d, err := time.Parse(dateLayout, s.DueDate)
		if err != nil {
			// Seed data may carry full timestamps.
			if d, err = time.Parse(time.RFC3339, s.DueDate); err != nil {
				return nil, fmt.Errorf("invalid dueDate %q", s.DueDate)
			}
		}
		issue.DueDate = &d
	}
	issue.ApplyDefaults()
	return issue, models.ValidateIssue(issue)
}

// decodeSeed accepts a bare list or {"issues": [...]}.
func decodeSeed(data []byte, unmarshal func([]byte, any) error) ([]seedIssue, error) {
	var list []seedIssue
	if err := unmarshal(data, &list); err == nil {
		return list, nil
	}
	var wrapped struct {
		Issues []seedIssue `json:"issues" yaml:"issues"`
	}
	if err := unmarshal(data, &wrapped); err != nil {
		return nil, err
	}
	return wrapped.Issues, nil
}

func issueImportRun(file string) error {
	data, err := os.ReadFile(file)
	if err != nil {
		return fmt.Errorf("read file: %w", err)
	}
	if strings.TrimSpace(string(data)) == "" {
		return fmt.Errorf("file is empty: %s", file)
	}

	ctx := context.Background()
	var seeds []seedIssue
	switch ext := strings.ToLower(filepath.Ext(file)); ext {
	case ".json":
		seeds, err = decodeSeed(data, json.Unmarshal)
	case ".yaml", ".yml":
		seeds, err = decodeSeed(data, yaml.Unmarshal)
	case ".md", ".markdown", ".txt":
		seeds, err = markdownSeeds(ctx, string(data))
	default:
		return fmt.Errorf("unsupported file type %q (use .json, .yaml, .yml or .md)", ext)
	}
	if err != nil {
		return fmt.Errorf("parse %s: %w", file, err)
	}
	if len(seeds) == 0 {
		ui.Info("No issues found in file.")
		return nil
	}

	table := ui.Table([]string{"#", "Title", "Type", "Priority", "Status"})
	for i, e := range seeds {
		_ = table.Append([]string{fmt.Sprintf("%d", i+1), e.Title, e.Type, e.Priority, e.Status})
	}
	_ = table.Render()

	if importDryRun || dryRun {
		ui.DryRunMsg("Would import up to %d issues", len(seeds))
		if importDryRun && !dryRun {
			ui.Info("Dry run: would import up to %d issues", len(seeds))
		}
		return nil
	}

	s, err := getStore()
	if err != nil {
		return err
	}
	return createSeedIssues(ctx, s, seeds, importReporter)
}

// markdownSeeds extracts issues with the LLM when configured, otherwise
// with the line parser.
func markdownSeeds(ctx context.Context, content string) ([]seedIssue, error) {
	client := newLLMClient()
	if client == nil || importNoLLM {
		return parseMarkdownIssues(content), nil
	}

	ui.Info("Extracting issues with LLM...")
	extracted, err := client.ExtractIssues(ctx, content)
	if err != nil {
		return nil, fmt.Errorf("extract issues: %w", err)
	}
	seeds := make([]seedIssue, len(extracted))
	for i, e := range extracted {
		seeds[i] = seedIssue{Title: e.Title, Description: e.Description, Type: e.Type, Priority: e.Priority}
	}
	return seeds, nil
}

// parseSubIssueNumber checks if a line starts with a sub-issue number like "1.1" or "2.3."
// Returns the title text and true if it's a sub-issue.
func parseSubIssueNumber(line string) (title string, ok bool) {
	i := 0
	for i < len(line) && line[i] >= '0' && line[i] <= '9' {
		i++
	}
	if i == 0 || i >= len(line) || line[i] != '.' {
		return "", false
	}
	i++
	start := i
	for i < len(line) && line[i] >= '0' && line[i] <= '9' {
		i++
	}
	if i == start {
		return "", false // "1. text" is a top-level item
	}
	if i < len(line) && line[i] == '.' {
		i++
	}
	if i >= len(line) || line[i] != ' ' {
		return "", false
	}
	title = strings.TrimSpace(line[i:])
	return title, title != ""
}

// listItemTitle returns the text of a "1. text", "- text" or "* text" line.
func listItemTitle(line string) (title string, numbered bool) {
	if len(line) <= 2 {
		return "", false
	}
	for i, c := range line {
		if c == '.' && i > 0 && i < 4 {
			return strings.TrimSpace(line[i+1:]), true
		}
		if c < '0' || c > '9' {
			break
		}
	}
	if strings.HasPrefix(line, "- ") || strings.HasPrefix(line, "* ") {
		return strings.TrimSpace(line[2:]), false
	}
	return "", false
}

// parseMarkdownIssues turns numbered and bulleted items into issues. A
// sub-item such as "1.2 text" carries its parent line in the description.
// A "## Heading" line resets the parent.
func parseMarkdownIssues(content string) []seedIssue {
	var issues []seedIssue
	lastParent := ""

	add := func(title, description string) {
		issues = append(issues, seedIssue{
			Title:       title,
			Description: description,
			Type:        string(classifyIssueType(title)),
			Priority:    string(classifyIssuePriority(title)),
			Status:      string(models.IssueStatusOpen),
		})
	}

	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)

		if strings.HasPrefix(line, "#") {
			lastParent = ""
			continue
		}

		if title, ok := parseSubIssueNumber(line); ok {
			desc := line
			if lastParent != "" {
				desc = lastParent + "\n" + line
			}
			add(title, desc)
			continue
		}

		title, numbered := listItemTitle(line)
		if title == "" {
			continue
		}
		if numbered {
			lastParent = line
		}
		add(title, line)
	}
	return issues
}

// createSeedIssues creates each valid seed whose title is not already taken.
func createSeedIssues(ctx context.Context, s store.Store, seeds []seedIssue, reporter string) error {
	existing, err := s.ListIssues(ctx)
	if err != nil {
		return fmt.Errorf("list issues: %w", err)
	}
	seen := make(map[string]bool, len(existing))
	for _, issue := range existing {
		seen[strings.ToLower(strings.TrimSpace(issue.Title))] = true
	}

	created, skipped := 0, 0
	for _, seed := range seeds {
		key := strings.ToLower(strings.TrimSpace(seed.Title))
		if seen[key] {
			ui.VerboseLog("Skipping existing issue %q", seed.Title)
			skipped++
			continue
		}

		issue, err := seed.issue(reporter)
		if err != nil {
			ui.Warning("Skipping issue %q: %v", seed.Title, err)
			skipped++
			continue
		}
		if _, err := s.CreateIssue(ctx, issue); err != nil {
			ui.Warning("Failed to create issue %q: %v", seed.Title, err)
			skipped++
			continue
		}
		seen[key] = true
		created++
	}

	ui.Success("Created %d issues", created)
	if skipped > 0 {
		ui.Warning("Skipped %d issues", skipped)
	}
	return nil
}
