package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joescharf/bugboard/internal/models"
)

func TestParseSubIssueNumber(t *testing.T) {
	tests := []struct {
		line  string
		title string
		ok    bool
	}{
		{"1.1 Fix the thing", "Fix the thing", true},
		{"2.3. Another item", "Another item", true},
		{"10.12 Deep item", "Deep item", true},
		{"1. Top level", "", false},
		{"1.1", "", false},
		{"- bullet", "", false},
		{"abc", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			title, ok := parseSubIssueNumber(tt.line)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.title, title)
		})
	}
}

func TestParseMarkdownIssues(t *testing.T) {
	content := `# Release notes

## Login
1. Login crashes on empty password
1.1 Add a test for the crash
- Add dark mode

## Docs
* Update the install guide
`
	issues := parseMarkdownIssues(content)
	require.Len(t, issues, 4)

	assert.Equal(t, "Login crashes on empty password", issues[0].Title)
	assert.Equal(t, "bug", issues[0].Type)
	assert.Equal(t, "high", issues[0].Priority)
	assert.Equal(t, "open", issues[0].Status)

	assert.Equal(t, "Add a test for the crash", issues[1].Title)
	assert.Contains(t, issues[1].Description, "1. Login crashes on empty password")

	assert.Equal(t, "Add dark mode", issues[2].Title)
	assert.Equal(t, "feature", issues[2].Type)

	assert.Equal(t, "Update the install guide", issues[3].Title)
	assert.Equal(t, "* Update the install guide", issues[3].Description)
}

func TestSeedIssue_Issue(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		issue, err := seedIssue{Title: "Only a title"}.issue("alice")
		require.NoError(t, err)
		assert.Equal(t, "alice", issue.Reporter)
		assert.Equal(t, "Only a title", issue.Description)
		assert.Equal(t, models.IssueStatusOpen, issue.Status)
		assert.Equal(t, models.IssuePriorityMedium, issue.Priority)
		assert.Equal(t, models.IssueTypeTask, issue.Type)
	})

	t.Run("due date", func(t *testing.T) {
		issue, err := seedIssue{Title: "t", Reporter: "bob", DueDate: "2026-03-01"}.issue("")
		require.NoError(t, err)
		require.NotNil(t, issue.DueDate)
		assert.Equal(t, "2026-03-01", issue.DueDate.Format(dateLayout))

		_, err = seedIssue{Title: "t", Reporter: "bob", DueDate: "soon"}.issue("")
		require.Error(t, err)
	})

	t.Run("invalid enum", func(t *testing.T) {
		_, err := seedIssue{Title: "t", Reporter: "bob", Status: "done"}.issue("")
		var verr *models.ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Contains(t, verr.Fields, "status")
	})
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestIssueImportRun_JSON(t *testing.T) {
	dir := testEnv(t)
	var out bytes.Buffer
	ui.Out = &out
	ui.ErrOut = &out

	path := writeFile(t, dir, "seed.json", `[
  {"title": "Crash on save", "description": "boom", "type": "bug", "priority": "high", "reporter": "alice"},
  {"title": "Write docs", "description": "docs", "reporter": "bob", "dueDate": "2026-01-15"},
  {"title": "Broken", "description": "x", "reporter": "bob", "priority": "urgent"}
]`)
	require.NoError(t, issueImportRun(path))
	assert.Contains(t, out.String(), "Created 2 issues")
	assert.Contains(t, out.String(), "Skipped 1 issues")

	s, err := getStore()
	require.NoError(t, err)
	issues, err := s.ListIssues(context.Background())
	require.NoError(t, err)
	require.Len(t, issues, 2)

	// Importing again creates nothing new.
	out.Reset()
	require.NoError(t, issueImportRun(path))
	assert.Contains(t, out.String(), "Created 0 issues")
	issues, err = s.ListIssues(context.Background())
	require.NoError(t, err)
	assert.Len(t, issues, 2)
}

func TestIssueImportRun_YAMLWrapped(t *testing.T) {
	dir := testEnv(t)
	var out bytes.Buffer
	ui.Out = &out

	path := writeFile(t, dir, "seed.yaml", `issues:
  - title: Slow search
    description: search takes seconds
    type: bug
    status: in-progress
    reporter: carol
`)
	require.NoError(t, issueImportRun(path))

	s, err := getStore()
	require.NoError(t, err)
	issues, err := s.ListIssues(context.Background())
	require.NoError(t, err)
	require.Len(t, issues, 1)
	assert.Equal(t, models.IssueStatusInProgress, issues[0].Status)
	assert.Equal(t, "carol", issues[0].Reporter)
}

func TestIssueImportRun_MarkdownWithoutLLM(t *testing.T) {
	dir := testEnv(t)
	t.Setenv("ANTHROPIC_API_KEY", "")
	var out bytes.Buffer
	ui.Out = &out

	importReporter = "dave"
	t.Cleanup(func() { importReporter = os.Getenv("USER") })

	path := writeFile(t, dir, "notes.md", "1. Fix login bug\n2. Add export feature\n")
	require.NoError(t, issueImportRun(path))

	s, err := getStore()
	require.NoError(t, err)
	issues, err := s.ListIssues(context.Background())
	require.NoError(t, err)
	require.Len(t, issues, 2)
	for _, issue := range issues {
		assert.Equal(t, "dave", issue.Reporter)
	}
}

func TestIssueImportRun_DryRun(t *testing.T) {
	dir := testEnv(t)
	var out bytes.Buffer
	ui.Out = &out

	importDryRun = true
	t.Cleanup(func() { importDryRun = false })

	path := writeFile(t, dir, "seed.json", `[{"title": "One", "reporter": "a"}]`)
	require.NoError(t, issueImportRun(path))
	assert.Contains(t, out.String(), "would import up to 1 issues")
	assert.Nil(t, dataStore, "dry run must not open the store")
}

func TestIssueImportRun_Errors(t *testing.T) {
	dir := testEnv(t)

	err := issueImportRun(filepath.Join(dir, "missing.json"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read file")

	err = issueImportRun(writeFile(t, dir, "empty.json", "  \n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty")

	err = issueImportRun(writeFile(t, dir, "seed.csv", "a,b"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported")

	err = issueImportRun(writeFile(t, dir, "bad.json", "{not json"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse")
}
