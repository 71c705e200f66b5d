package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joescharf/bugboard/internal/models"
)

func TestValidate_BuiltinTables(t *testing.T) {
	require.NoError(t, Validate())
}

func TestTableValidate_Rejects(t *testing.T) {
	tests := []struct {
		name  string
		table Table
		want  string
	}{
		{"no name", Table{Fields: []Field{{Internal: "a", External: "b"}}}, "table name"},
		{"no fields", Table{Name: "t"}, "no fields"},
		{"empty field", Table{Name: "t", Fields: []Field{{Internal: "a"}}}, "empty name"},
		{"dup internal", Table{Name: "t", Fields: []Field{{Internal: "a", External: "x"}, {Internal: "a", External: "y"}}}, "duplicate internal"},
		{"dup external", Table{Name: "t", Fields: []Field{{Internal: "a", External: "x"}, {Internal: "b", External: "x"}}}, "duplicate external"},
		{"mapped fallback", Table{Name: "t", Fields: []Field{{Internal: "a", External: "x", Fallback: "y"}, {Internal: "b", External: "y"}}}, "already mapped"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.table.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestCheck_UnknownModelField(t *testing.T) {
	tbl := Table{Name: "t", Fields: []Field{{Internal: "nope", External: "nope_c"}}}
	err := tbl.Check(&models.Issue{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nope")

	assert.Error(t, tbl.Check(42))
}

func TestToExternal_DropsUnknownAndReadOnly(t *testing.T) {
	out, err := Issues.ToExternal(map[string]any{
		"Id":        float64(3),
		"title":     "Crash",
		"status":    "open",
		"createdAt": "2026-01-01T00:00:00Z",
		"bogus":     true,
		"dueDate":   nil,
	})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"title_c": "Crash", "status_c": "open"}, out)
}

func TestToInternal_ResolvesLookups(t *testing.T) {
	out, err := Comments.ToInternal(map[string]any{
		"Id":           float64(1),
		"issue_id_c":   map[string]any{"Id": float64(9), "Name": "Issue 9"},
		"content_c":    "hello",
		"created_by_c": nil,
		"extra":        "dropped",
	})
	require.NoError(t, err)
	assert.Equal(t, float64(9), out["issueId"])
	assert.Equal(t, "hello", out["content"])
	assert.Nil(t, out["createdBy"])
	assert.NotContains(t, out, "extra")
}

func TestToInternal_FallsBackToSystemColumns(t *testing.T) {
	out, err := Comments.ToInternal(map[string]any{
		"created_on_c": nil,
		"CreatedOn":    "2026-03-01T12:00:00Z",
		"ModifiedOn":   "2026-03-02T12:00:00Z",
	})
	require.NoError(t, err)
	assert.Equal(t, "2026-03-01T12:00:00Z", out["createdOn"])
	assert.Equal(t, "2026-03-02T12:00:00Z", out["modifiedOn"])

	out, err = Comments.ToInternal(map[string]any{
		"created_on_c": "2026-01-01T00:00:00Z",
		"CreatedOn":    "2026-03-01T12:00:00Z",
	})
	require.NoError(t, err)
	assert.Equal(t, "2026-01-01T00:00:00Z", out["createdOn"])

	assert.Contains(t, Comments.Columns(), "CreatedOn")
}

func TestRef(t *testing.T) {
	v, err := Ref("12")
	require.NoError(t, err)
	assert.Equal(t, float64(12), v)

	v, err = Ref(5)
	require.NoError(t, err)
	assert.Equal(t, float64(5), v)

	_, err = Ref("abc")
	assert.Error(t, err)

	_, err = Ref(map[string]any{"Name": "x"})
	assert.Error(t, err)

	_, err = Ref(true)
	assert.Error(t, err)
}

func TestColumnLookup(t *testing.T) {
	col, ok := Issues.Column("status")
	assert.True(t, ok)
	assert.Equal(t, "status_c", col)

	_, ok = Issues.Column("missing")
	assert.False(t, ok)

	assert.Contains(t, Users.Columns(), "email_c")
}
