package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/joescharf/bugboard/internal/board"
	"github.com/joescharf/bugboard/internal/models"
	"github.com/joescharf/bugboard/internal/notify"
	"github.com/joescharf/bugboard/internal/output"
	"github.com/joescharf/bugboard/internal/render"
	"github.com/joescharf/bugboard/internal/store"
	"github.com/joescharf/bugboard/internal/viewmodel"
)

const dateLayout = "2006-01-02"

var (
	issueTitle    string
	issueDesc     string
	issuePriority string
	issueType     string
	issueStatus   string
	issueAssignee string
	issueReporter string
	issueDue      string
	issueClearDue bool
	issueForce    bool
	issueApply    bool

	listSearch     string
	listStatuses   []string
	listPriorities []string
	listTypes      []string
	listSort       string
	listDir        string
	listLimit      int
)

var issueCmd = &cobra.Command{
	Use:   "issue",
	Short: "Manage issues",
	Long:  "Create, search, update and triage issues.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return issueListRun()
	},
}

var issueAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a new issue",
	RunE: func(cmd *cobra.Command, args []string) error {
		return issueAddRun()
	},
}

var issueListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "Search, filter and sort issues",
	Long: `List issues. --search matches title and description case-insensitively.
Filters accept several values: values of one filter are OR-ed, different
filters are AND-ed. Counts and stats always cover every issue.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return issueListRun()
	},
}

var issueShowCmd = &cobra.Command{
	Use:   "show <issue-id>",
	Short: "Show issue details and comments",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return issueShowRun(args[0])
	},
}

var issueUpdateCmd = &cobra.Command{
	Use:   "update <issue-id>...",
	Short: "Update one or more issues",
	Long:  "Update fields of an issue. With several IDs the same change is applied to each of them.",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return issueUpdateRun(cmd, args)
	},
}

var issueDeleteCmd = &cobra.Command{
	Use:     "delete <issue-id>",
	Aliases: []string{"rm"},
	Short:   "Delete an issue",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return issueDeleteRun(args[0])
	},
}

var issueMoveCmd = &cobra.Command{
	Use:   "move <issue-id> <column>",
	Short: "Move an issue to another board column",
	Long: `Move an issue to a board column (open, in-progress, testing, resolved, closed).
The new status is shown only after the store has confirmed it.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return issueMoveRun(args[0], args[1])
	},
}

var issueTriageCmd = &cobra.Command{
	Use:   "triage <issue-id>",
	Short: "Suggest type, priority and description for an issue",
	Long: `Ask the LLM to triage an issue. Without an API key, keyword heuristics
suggest a type and priority instead. Use --apply to save the suggestion.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return issueTriageRun(args[0])
	},
}

func init() {
	issueAddCmd.Flags().StringVar(&issueTitle, "title", "", "Issue title (required)")
	issueAddCmd.Flags().StringVar(&issueDesc, "desc", "", "Issue description (required)")
	issueAddCmd.Flags().StringVar(&issueReporter, "reporter", os.Getenv("USER"), "Who reported the issue")
	issueAddCmd.Flags().StringVar(&issueAssignee, "assignee", "", "Who the issue is assigned to")
	issueAddCmd.Flags().StringVar(&issuePriority, "priority", "medium", "Priority: low, medium, high, critical")
	issueAddCmd.Flags().StringVar(&issueType, "type", "task", "Type: bug, feature, task")
	issueAddCmd.Flags().StringVar(&issueDue, "due", "", "Due date (YYYY-MM-DD)")

	issueListCmd.Flags().StringVarP(&listSearch, "search", "q", "", "Search title and description")
	issueListCmd.Flags().StringSliceVar(&listStatuses, "status", nil, "Filter by status: open, in-progress, testing, resolved, closed")
	issueListCmd.Flags().StringSliceVar(&listPriorities, "priority", nil, "Filter by priority: low, medium, high, critical")
	issueListCmd.Flags().StringSliceVar(&listTypes, "type", nil, "Filter by type: bug, feature, task")
	issueListCmd.Flags().StringVar(&listSort, "sort", viewmodel.DefaultSort.Key, "Sort key: "+strings.Join(viewmodel.SortKeys, ", "))
	issueListCmd.Flags().StringVar(&listDir, "dir", string(viewmodel.DefaultSort.Direction), "Sort direction: asc or desc")
	issueListCmd.Flags().IntVar(&listLimit, "limit", 0, "Show at most this many issues (0 = all)")

	issueUpdateCmd.Flags().StringVar(&issueTitle, "title", "", "New title")
	issueUpdateCmd.Flags().StringVar(&issueDesc, "desc", "", "New description")
	issueUpdateCmd.Flags().StringVar(&issueStatus, "status", "", "New status")
	issueUpdateCmd.Flags().StringVar(&issuePriority, "priority", "", "New priority")
	issueUpdateCmd.Flags().StringVar(&issueType, "type", "", "New type")
	issueUpdateCmd.Flags().StringVar(&issueAssignee, "assignee", "", "New assignee (empty string unassigns)")
	issueUpdateCmd.Flags().StringVar(&issueReporter, "reporter", "", "New reporter")
	issueUpdateCmd.Flags().StringVar(&issueDue, "due", "", "New due date (YYYY-MM-DD)")
	issueUpdateCmd.Flags().BoolVar(&issueClearDue, "clear-due", false, "Remove the due date")

	issueDeleteCmd.Flags().BoolVarP(&issueForce, "force", "f", false, "Delete without showing the issue first")

	issueTriageCmd.Flags().BoolVar(&issueApply, "apply", false, "Save the suggested type, priority and description")

	issueCmd.AddCommand(issueAddCmd)
	issueCmd.AddCommand(issueListCmd)
	issueCmd.AddCommand(issueShowCmd)
	issueCmd.AddCommand(issueUpdateCmd)
	issueCmd.AddCommand(issueDeleteCmd)
	issueCmd.AddCommand(issueMoveCmd)
	issueCmd.AddCommand(issueTriageCmd)
	rootCmd.AddCommand(issueCmd)
}

// parseID accepts "12" or "#12".
func parseID(s string) (int, error) {
	id, err := strconv.Atoi(strings.TrimPrefix(strings.TrimSpace(s), "#"))
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return id, nil
}

func parseDue(s string) (*time.Time, error) {
	d, err := time.Parse(dateLayout, s)
	if err != nil {
		return nil, fmt.Errorf("invalid due date %q (want YYYY-MM-DD)", s)
	}
	return &d, nil
}

func issueRef(id int) string {
	return output.Cyan(fmt.Sprintf("#%d", id))
}

// reportInvalid prints each field message of a validation error.
func reportInvalid(err error) error {
	var ve *models.ValidationError
	if !errors.As(err, &ve) {
		return err
	}
	for field, msg := range ve.Fields {
		ui.Error("%s: %s", field, msg)
	}
	return fmt.Errorf("invalid input")
}

func issueAddRun() error {
	issue := &models.Issue{
		Title:       strings.TrimSpace(issueTitle),
		Description: strings.TrimSpace(issueDesc),
		Reporter:    strings.TrimSpace(issueReporter),
		Assignee:    strings.TrimSpace(issueAssignee),
		Priority:    models.IssuePriority(issuePriority),
		Type:        models.IssueType(issueType),
		Status:      models.IssueStatusOpen,
	}
	if issueDue != "" {
		d, err := parseDue(issueDue)
		if err != nil {
			return err
		}
		issue.DueDate = d
	}
	issue.ApplyDefaults()
	if err := models.ValidateIssue(issue); err != nil {
		return reportInvalid(err)
	}

	if dryRun {
		ui.DryRunMsg("Would add issue: %s [%s/%s]", issue.Title, issue.Priority, issue.Type)
		return nil
	}

	s, err := getStore()
	if err != nil {
		return err
	}
	created, err := s.CreateIssue(context.Background(), issue)
	if err != nil {
		return fmt.Errorf("create issue: %w", err)
	}

	ui.Success("Created issue %s: %s", issueRef(created.ID), created.Title)
	return nil
}

// listQuery builds the view-model query from the list flags.
func listQuery() (viewmodel.Query, error) {
	q := viewmodel.Query{
		Search: strings.TrimSpace(listSearch),
		Sort:   viewmodel.Sort{Key: listSort, Direction: viewmodel.Direction(listDir)},
	}
	if q.Sort.Direction != viewmodel.Asc && q.Sort.Direction != viewmodel.Desc {
		return q, fmt.Errorf("invalid --dir %q: must be asc or desc", listDir)
	}
	for _, v := range listStatuses {
		st, err := models.ParseIssueStatus(v)
		if err != nil {
			return q, err
		}
		q.Filters.Status = append(q.Filters.Status, st)
	}
	for _, v := range listPriorities {
		p, err := models.ParseIssuePriority(v)
		if err != nil {
			return q, err
		}
		q.Filters.Priority = append(q.Filters.Priority, p)
	}
	for _, v := range listTypes {
		t, err := models.ParseIssueType(v)
		if err != nil {
			return q, err
		}
		q.Filters.Type = append(q.Filters.Type, t)
	}
	return q, nil
}

func issueListRun() error {
	q, err := listQuery()
	if err != nil {
		return err
	}

	s, err := getStore()
	if err != nil {
		return err
	}
	issues, err := s.ListIssues(context.Background())
	if err != nil {
		return fmt.Errorf("list issues: %w", err)
	}

	view := viewmodel.Build(issues, q)
	if len(view.Issues) == 0 {
		if len(issues) == 0 {
			ui.Info("No issues yet. Create one with 'bugboard issue add'.")
		} else {
			ui.Info("No issues match the current search and filters.")
		}
		return nil
	}

	shown := view.Issues
	if listLimit > 0 && len(shown) > listLimit {
		shown = shown[:listLimit]
	}

	now := time.Now()
	table := ui.Table([]string{"ID", "Title", "Status", "Priority", "Type", "Assignee", "Due", "Updated"})
	for _, issue := range shown {
		_ = table.Append([]string{
			issueRef(issue.ID),
			issue.Title,
			output.StatusColor(string(issue.Status)),
			output.PriorityColor(string(issue.Priority)),
			output.TypeColor(string(issue.Type)),
			issue.Assignee,
			output.Due(issue.DueDate, now),
			output.Ago(issue.UpdatedAt),
		})
	}
	_ = table.Render()

	fmt.Fprintf(ui.Out, "\n%s\n", statsLine(view.Stats, len(view.Issues), len(shown)))
	return nil
}

func statsLine(st viewmodel.Stats, matched, shown int) string {
	line := fmt.Sprintf("Showing %d of %d issues", shown, st.Total)
	if matched != shown {
		line = fmt.Sprintf("Showing %d of %d matching (%d total)", shown, matched, st.Total)
	}
	return fmt.Sprintf("%s  |  open %d  in progress %d  critical %s",
		line, st.Open, st.InProgress, output.Red(strconv.Itoa(st.Critical)))
}

func issueShowRun(ref string) error {
	id, err := parseID(ref)
	if err != nil {
		return err
	}
	s, err := getStore()
	if err != nil {
		return err
	}
	ctx := context.Background()

	issue, err := s.GetIssue(ctx, id)
	if err != nil {
		return fmt.Errorf("get issue: %w", err)
	}

	now := time.Now()
	fmt.Fprintf(ui.Out, "%s  %s\n", issueRef(issue.ID), issue.Title)
	fmt.Fprintf(ui.Out, "  Status:     %s\n", output.StatusColor(string(issue.Status)))
	fmt.Fprintf(ui.Out, "  Priority:   %s\n", output.PriorityColor(string(issue.Priority)))
	fmt.Fprintf(ui.Out, "  Type:       %s\n", output.TypeColor(string(issue.Type)))
	fmt.Fprintf(ui.Out, "  Reporter:   %s\n", issue.Reporter)
	if issue.Assignee != "" {
		fmt.Fprintf(ui.Out, "  Assignee:   %s\n", issue.Assignee)
	}
	if issue.DueDate != nil {
		fmt.Fprintf(ui.Out, "  Due:        %s\n", output.Due(issue.DueDate, now))
	}
	fmt.Fprintf(ui.Out, "  Created:    %s (%s)\n", issue.CreatedAt.Format(time.RFC3339), output.Ago(issue.CreatedAt))
	fmt.Fprintf(ui.Out, "  Updated:    %s\n", output.Ago(issue.UpdatedAt))
	if issue.Description != "" {
		desc, err := render.Markdown(issue.Description)
		if err != nil {
			ui.VerboseLog("Markdown render failed: %v", err)
		}
		fmt.Fprintf(ui.Out, "\n%s\n", desc)
	}

	comments, err := s.ListComments(ctx, id)
	if err != nil {
		ui.Warning("Failed to load comments: %v", err)
		return nil
	}
	if len(comments) == 0 {
		return nil
	}
	fmt.Fprintf(ui.Out, "\nComments (%d):\n", len(comments))
	for _, c := range comments {
		fmt.Fprintf(ui.Out, "  %s %s\n", output.Faint(fmt.Sprintf("[%d] %s", c.ID, output.Ago(c.CreatedOn))), c.Content)
	}
	return nil
}

// updatePatch builds a patch from the flags the user actually set.
func updatePatch(cmd *cobra.Command) (models.IssuePatch, error) {
	var p models.IssuePatch
	changed := cmd.Flags().Changed

	if changed("title") {
		v := strings.TrimSpace(issueTitle)
		p.Title = &v
	}
	if changed("desc") {
		v := strings.TrimSpace(issueDesc)
		p.Description = &v
	}
	if changed("status") {
		v := models.IssueStatus(issueStatus)
		p.Status = &v
	}
	if changed("priority") {
		v := models.IssuePriority(issuePriority)
		p.Priority = &v
	}
	if changed("type") {
		v := models.IssueType(issueType)
		p.Type = &v
	}
	if changed("assignee") {
		v := strings.TrimSpace(issueAssignee)
		p.Assignee = &v
	}
	if changed("reporter") {
		v := strings.TrimSpace(issueReporter)
		p.Reporter = &v
	}
	if changed("due") && changed("clear-due") {
		return p, fmt.Errorf("--due and --clear-due are mutually exclusive")
	}
	if changed("due") {
		d, err := parseDue(issueDue)
		if err != nil {
			return p, err
		}
		p.DueDate = d
	}
	p.ClearDueDate = issueClearDue
	return p, nil
}

func issueUpdateRun(cmd *cobra.Command, refs []string) error {
	ids := make([]int, len(refs))
	for i, ref := range refs {
		id, err := parseID(ref)
		if err != nil {
			return err
		}
		ids[i] = id
	}

	patch, err := updatePatch(cmd)
	if err != nil {
		return err
	}
	if patch.Empty() {
		return fmt.Errorf("no updates specified (use --title, --desc, --status, --priority, --type, --assignee, --reporter, --due or --clear-due)")
	}
	if err := models.ValidateIssuePatch(patch); err != nil {
		return reportInvalid(err)
	}

	if dryRun {
		ui.DryRunMsg("Would update %d issue(s): %v", len(ids), ids)
		return nil
	}

	s, err := getStore()
	if err != nil {
		return err
	}
	ctx := context.Background()

	if len(ids) == 1 {
		updated, err := s.UpdateIssue(ctx, ids[0], patch)
		if err != nil {
			return fmt.Errorf("update issue: %w", err)
		}
		ui.Success("Updated issue %s: %s", issueRef(updated.ID), updated.Title)
		return nil
	}

	updated, err := s.BulkUpdateIssues(ctx, ids, patch)
	if err != nil {
		return fmt.Errorf("bulk update: %w", err)
	}
	ui.Success("Updated %d of %d issues", len(updated), len(ids))
	if missing := len(ids) - len(updated); missing > 0 {
		ui.Warning("%d issue(s) were not found", missing)
	}
	return nil
}

func issueDeleteRun(ref string) error {
	id, err := parseID(ref)
	if err != nil {
		return err
	}
	s, err := getStore()
	if err != nil {
		return err
	}
	ctx := context.Background()

	if !issueForce {
		issue, err := s.GetIssue(ctx, id)
		if err != nil {
			return fmt.Errorf("get issue: %w", err)
		}
		ui.Info("Deleting %s: %s", issueRef(issue.ID), issue.Title)
	}

	if dryRun {
		ui.DryRunMsg("Would delete issue #%d", id)
		return nil
	}

	ok, err := s.DeleteIssue(ctx, id)
	if err != nil {
		return fmt.Errorf("delete issue: %w", err)
	}
	if !ok {
		return fmt.Errorf("issue %d: %w", id, store.ErrNotFound)
	}
	ui.Success("Issue deleted successfully!")
	return nil
}

func issueMoveRun(ref, column string) error {
	id, err := parseID(ref)
	if err != nil {
		return err
	}
	if !models.IssueStatus(column).Valid() {
		return fmt.Errorf("unknown column %q: must be one of %v", column, models.IssueStatuses)
	}

	s, err := getStore()
	if err != nil {
		return err
	}
	ctx := context.Background()

	b := board.New(s, notify.Funcs{
		OnSuccess: func(msg string) { ui.Success("%s", msg) },
		OnError:   func(msg string) { ui.Error("%s", msg) },
	})
	if err := b.Load(ctx); err != nil {
		return err
	}

	if dryRun {
		ui.DryRunMsg("Would move issue #%d to %s", id, column)
		return nil
	}

	res, err := b.Move(ctx, id, column)
	if err != nil {
		return err
	}
	if res.NoOp {
		ui.Info("Issue %s is already in %s", issueRef(id), models.IssueStatus(column).Label())
	}
	return nil
}

func issueTriageRun(ref string) error {
	id, err := parseID(ref)
	if err != nil {
		return err
	}
	s, err := getStore()
	if err != nil {
		return err
	}
	ctx := context.Background()

	issue, err := s.GetIssue(ctx, id)
	if err != nil {
		return fmt.Errorf("get issue: %w", err)
	}

	suggestion := classifyIssue(issue.Title, issue.Description)
	if client := newLLMClient(); client != nil {
		ui.VerboseLog("Triaging with LLM...")
		suggestion, err = client.Triage(ctx, issue.Title, issue.Description)
		if err != nil {
			return fmt.Errorf("triage: %w", err)
		}
	}

	fmt.Fprintf(ui.Out, "%s  %s\n", issueRef(issue.ID), issue.Title)
	fmt.Fprintf(ui.Out, "  Type:       %s -> %s\n", issue.Type, output.TypeColor(string(suggestion.Type)))
	fmt.Fprintf(ui.Out, "  Priority:   %s -> %s\n", issue.Priority, output.PriorityColor(string(suggestion.Priority)))
	if suggestion.Description != "" {
		fmt.Fprintf(ui.Out, "  Description: %s\n", suggestion.Description)
	}
	if suggestion.Rationale != "" {
		fmt.Fprintf(ui.Out, "  Why:        %s\n", output.Faint(suggestion.Rationale))
	}

	if !issueApply {
		return nil
	}
	patch := suggestion.Patch()
	if patch.Empty() {
		ui.Info("Nothing to apply.")
		return nil
	}
	if dryRun {
		ui.DryRunMsg("Would apply triage to issue #%d", id)
		return nil
	}
	if _, err := s.UpdateIssue(ctx, id, patch); err != nil {
		return fmt.Errorf("apply triage: %w", err)
	}
	ui.Success("Applied triage to issue %s", issueRef(id))
	return nil
}
