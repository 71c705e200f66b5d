package cmd

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joescharf/bugboard/internal/models"
)

func TestCommentCommands(t *testing.T) {
	testEnv(t)
	out := captureUI(t)
	seedIssues(t, &models.Issue{Title: "Has comments"})

	require.NoError(t, commentListRun("1"))
	assert.Contains(t, out.String(), "No comments on issue #1")

	commentUser = 3
	t.Cleanup(func() { commentUser = 0 })
	require.NoError(t, commentAddRun("1", "  looks like a race  "))
	assert.Contains(t, out.String(), "Added comment 1 to issue #1")

	out.Reset()
	require.NoError(t, commentListRun("#1"))
	assert.Contains(t, out.String(), "looks like a race")
	assert.Contains(t, out.String(), "user 3")

	require.NoError(t, commentEditRun("1", "confirmed race"))
	s, err := getStore()
	require.NoError(t, err)
	comments, err := s.ListComments(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, comments, 1)
	assert.Equal(t, "confirmed race", comments[0].Content)

	require.NoError(t, commentDeleteRun("1"))
	err = commentDeleteRun("1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestCommentAddRun_Errors(t *testing.T) {
	testEnv(t)
	captureUI(t)

	err := commentAddRun("1", "   ")
	require.Error(t, err)
	assert.Equal(t, "invalid input", err.Error())

	err = commentAddRun("1", strings.Repeat("x", models.MaxCommentLength+1))
	require.Error(t, err)
	assert.Equal(t, "invalid input", err.Error())

	err = commentAddRun("5", "on a missing issue")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")

	err = commentEditRun("1", "")
	require.Error(t, err)
}

func userFlagsCmd(t *testing.T) *cobra.Command {
	t.Helper()
	c := &cobra.Command{}
	c.Flags().StringVar(&userName, "name", "", "")
	c.Flags().StringVar(&userFirst, "first", "", "")
	c.Flags().StringVar(&userLast, "last", "", "")
	c.Flags().StringVar(&userEmail, "email", "", "")
	c.Flags().StringVar(&userTags, "tags", "", "")
	return c
}

func TestUserCommands(t *testing.T) {
	testEnv(t)
	out := captureUI(t)

	require.NoError(t, userListRun())
	assert.Contains(t, out.String(), "No users yet")

	userName, userFirst, userLast, userEmail, userTags = " ada ", "Ada", "Lovelace", "ada@example.com", "admin, dev"
	t.Cleanup(func() { userName, userFirst, userLast, userEmail, userTags = "", "", "", "", "" })
	require.NoError(t, userAddRun())
	assert.Contains(t, out.String(), "Created user 1: ada")

	out.Reset()
	require.NoError(t, userListRun())
	assert.Contains(t, out.String(), "Ada Lovelace")
	assert.Contains(t, out.String(), "admin, dev")

	t.Run("update", func(t *testing.T) {
		c := userFlagsCmd(t)
		require.NoError(t, c.Flags().Set("email", "ada@lovelace.dev"))
		require.NoError(t, userUpdateRun(c, "1"))

		s, err := getStore()
		require.NoError(t, err)
		u, err := s.GetUser(context.Background(), 1)
		require.NoError(t, err)
		assert.Equal(t, "ada@lovelace.dev", u.Email)
		assert.Equal(t, "Ada", u.FirstName)
	})

	t.Run("update nothing", func(t *testing.T) {
		err := userUpdateRun(userFlagsCmd(t), "1")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "nothing to update")
	})

	t.Run("update invalid email", func(t *testing.T) {
		c := userFlagsCmd(t)
		require.NoError(t, c.Flags().Set("email", "not-an-email"))
		err := userUpdateRun(c, "1")
		require.Error(t, err)
		assert.Equal(t, "invalid input", err.Error())
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, userDeleteRun("1"))
		err := userDeleteRun("1")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "not found")
	})
}

func TestUserAddRun_Invalid(t *testing.T) {
	testEnv(t)
	out := captureUI(t)

	userName, userEmail = "", "nope"
	t.Cleanup(func() { userName, userEmail = "", "" })

	err := userAddRun()
	require.Error(t, err)
	assert.Contains(t, out.String(), "Name is required")
	assert.Contains(t, out.String(), "Invalid email format")
}

func withExport(t *testing.T, typ, format string) {
	t.Helper()
	exportType, exportFormat = typ, format
	t.Cleanup(func() { exportType, exportFormat = "issues", "json" })
}

func TestExportIssues(t *testing.T) {
	testEnv(t)
	resetListFlags(t)
	out := captureUI(t)
	seedIssues(t,
		&models.Issue{Title: "Pipe | title", Type: models.IssueTypeBug},
		&models.Issue{Title: "Second", Status: models.IssueStatusResolved},
	)

	t.Run("json honors filters", func(t *testing.T) {
		out.Reset()
		withExport(t, "issues", "json")
		listStatuses = []string{"resolved"}
		t.Cleanup(func() { listStatuses = nil })

		require.NoError(t, exportRun())
		var got []models.Issue
		require.NoError(t, json.Unmarshal(out.Bytes(), &got))
		require.Len(t, got, 1)
		assert.Equal(t, "Second", got[0].Title)
	})

	t.Run("csv", func(t *testing.T) {
		out.Reset()
		withExport(t, "issues", "csv")
		require.NoError(t, exportRun())

		records, err := csv.NewReader(strings.NewReader(out.String())).ReadAll()
		require.NoError(t, err)
		require.Len(t, records, 3)
		assert.Equal(t, "ID", records[0][0])
		// Default sort is newest first.
		assert.Equal(t, "2", records[1][0])
	})

	t.Run("markdown escapes pipes", func(t *testing.T) {
		out.Reset()
		withExport(t, "issues", "markdown")
		require.NoError(t, exportRun())
		assert.Contains(t, out.String(), "# Issues")
		assert.Contains(t, out.String(), `Pipe \| title`)
		assert.Contains(t, out.String(), "| Resolved |")
	})
}

func TestExportUsersAndErrors(t *testing.T) {
	testEnv(t)
	out := captureUI(t)

	s, err := getStore()
	require.NoError(t, err)
	_, err = s.CreateUser(context.Background(), &models.User{Name: "grace", Email: "grace@example.com", Tags: "ops"})
	require.NoError(t, err)

	withExport(t, "users", "csv")
	require.NoError(t, exportRun())
	assert.Contains(t, out.String(), "grace@example.com")

	withExport(t, "users", "yaml")
	require.Error(t, exportRun())

	withExport(t, "sessions", "json")
	err = exportRun()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown export type")
}

func TestBoardRun(t *testing.T) {
	testEnv(t)
	out := captureUI(t)

	require.NoError(t, boardRun())
	assert.Contains(t, out.String(), "No issues on the board")

	seedIssues(t,
		&models.Issue{Title: "Todo card"},
		&models.Issue{Title: "Busy card", Status: models.IssueStatusInProgress},
	)
	boardPlain = true
	t.Cleanup(func() { boardPlain = false })

	out.Reset()
	require.NoError(t, boardRun())
	text := out.String()
	assert.Contains(t, text, "=== OPEN (1) ===")
	assert.Contains(t, text, "=== IN PROGRESS (1) ===")
	assert.Contains(t, text, "Todo card")
	assert.Contains(t, text, "Busy card")
	assert.Less(t, strings.Index(text, "Todo card"), strings.Index(text, "Busy card"))
}

func TestDashboardRun(t *testing.T) {
	testEnv(t)
	out := captureUI(t)
	seedIssues(t,
		&models.Issue{Title: "Fire", Priority: models.IssuePriorityCritical},
		&models.Issue{Title: "Done", Status: models.IssueStatusResolved},
	)

	require.NoError(t, dashboardRun())
	text := out.String()
	assert.Contains(t, text, "Total 2")
	assert.Contains(t, text, "Critical 1")
	assert.Contains(t, text, "Resolved 1")
	assert.Contains(t, text, "Recent issues")
	assert.Contains(t, text, "Fire")
}

func TestVersionCmd(t *testing.T) {
	testEnv(t)
	out := captureUI(t)

	buildVersion, buildCommit, buildDate = "1.2.3", "abc123", "2026-01-01"
	t.Cleanup(func() { buildVersion, buildCommit, buildDate = "dev", "none", "unknown" })

	versionCmd.Run(versionCmd, nil)
	assert.Equal(t, "bugboard 1.2.3 (commit abc123, built 2026-01-01)\n", out.String())
}
