package notify

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestQueue(max int) (*Queue, *bytes.Buffer) {
	var buf bytes.Buffer
	return NewQueue(max, slog.New(slog.NewTextHandler(&buf, nil))), &buf
}

func TestQueue_PushAndList(t *testing.T) {
	q, logs := newTestQueue(5)
	q.Success("Issue moved to resolved")
	q.Error("Failed to update issue")

	items := q.List()
	require.Len(t, items, 2)
	assert.Equal(t, LevelSuccess, items[0].Level)
	assert.Equal(t, "Issue moved to resolved", items[0].Message)
	assert.Equal(t, LevelError, items[1].Level)
	assert.NotEqual(t, items[0].ID, items[1].ID)
	assert.Len(t, items[0].ID, 26)

	assert.Contains(t, logs.String(), "Failed to update issue")
	assert.Contains(t, logs.String(), "level=WARN")
}

func TestQueue_EvictsOldest(t *testing.T) {
	q, _ := newTestQueue(2)
	q.Error("one")
	q.Error("two")
	q.Error("three")

	items := q.List()
	require.Len(t, items, 2)
	assert.Equal(t, "two", items[0].Message)
	assert.Equal(t, "three", items[1].Message)
}

func TestQueue_Dismiss(t *testing.T) {
	q, _ := newTestQueue(0)
	q.Error("boom")
	id := q.List()[0].ID

	assert.True(t, q.Dismiss(id))
	assert.False(t, q.Dismiss(id))
	assert.Empty(t, q.List())
}

func TestQueue_ListIsACopy(t *testing.T) {
	q, _ := newTestQueue(0)
	q.Success("ok")
	items := q.List()
	items[0].Message = "changed"
	assert.Equal(t, "ok", q.List()[0].Message)
}

func TestFuncs(t *testing.T) {
	var got []string
	n := Funcs{OnError: func(s string) { got = append(got, s) }}
	n.Success("ignored")
	n.Error("shown")
	assert.Equal(t, []string{"shown"}, got)
}
