// Package board holds the kanban view of the issue collection and turns a
// drag onto a column into a confirmed status update.
package board

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/joescharf/bugboard/internal/models"
	"github.com/joescharf/bugboard/internal/notify"
	"github.com/joescharf/bugboard/internal/store"
)

// Column is one status bucket of the board.
type Column struct {
	Status models.IssueStatus `json:"status"`
	Title  string             `json:"title"`
	Issues []*models.Issue    `json:"issues"`
}

// Columns partitions issues into the five status columns in board order.
// Issues whose status is not a known column are left out.
func Columns(issues []*models.Issue) []Column {
	cols := make([]Column, len(models.IssueStatuses))
	index := make(map[models.IssueStatus]int, len(cols))
	for i, s := range models.IssueStatuses {
		cols[i] = Column{Status: s, Title: s.Label(), Issues: []*models.Issue{}}
		index[s] = i
	}
	for _, issue := range issues {
		if i, ok := index[issue.Status]; ok {
			cols[i].Issues = append(cols[i].Issues, issue)
		}
	}
	return cols
}

// MoveResult describes the outcome of a successful Move.
type MoveResult struct {
	NoOp  bool          `json:"noop"`
	Issue *models.Issue `json:"issue,omitempty"`
}

// Board is the in-memory issue collection behind the kanban view. The
// collection slice is never modified in place: each change installs a new
// slice, so snapshots returned by Issues stay valid.
type Board struct {
	store    store.IssueStore
	notifier notify.Notifier

	mu      sync.RWMutex
	issues  []*models.Issue
	loadErr error
}

// New returns an empty Board backed by s.
func New(s store.IssueStore, n notify.Notifier) *Board {
	if n == nil {
		n = notify.Funcs{}
	}
	return &Board{store: s, notifier: n}
}

// Load replaces the collection with the store's list. On failure the
// previous collection is kept and the error is remembered for LoadErr.
func (b *Board) Load(ctx context.Context) error {
	issues, err := b.store.ListIssues(ctx)

	b.mu.Lock()
	defer b.mu.Unlock()
	if err != nil {
		b.loadErr = err
		return fmt.Errorf("load board: %w", err)
	}
	if issues == nil {
		issues = []*models.Issue{}
	}
	b.issues = issues
	b.loadErr = nil
	return nil
}

// LoadErr returns the error from the last Load, or nil if it succeeded.
func (b *Board) LoadErr() error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.loadErr
}

// Issues returns the current collection. Callers must not modify it.
func (b *Board) Issues() []*models.Issue {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.issues
}

// Columns partitions the current collection.
func (b *Board) Columns() []Column {
	return Columns(b.Issues())
}

func (b *Board) find(id int) *models.Issue {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, issue := range b.issues {
		if issue.ID == id {
			return issue
		}
	}
	return nil
}

// Contains reports whether issue id is in the current collection.
func (b *Board) Contains(id int) bool {
	return b.find(id) != nil
}

// Move sets the status of issue id to column. The store is only called when
// the status actually changes, and the collection is only updated after the
// store confirms.
func (b *Board) Move(ctx context.Context, id int, column string) (MoveResult, error) {
	target := models.IssueStatus(column)
	if !target.Valid() {
		return MoveResult{}, &models.ValidationError{Fields: map[string]string{
			"column": fmt.Sprintf("unknown column %q", column),
		}}
	}

	current := b.find(id)
	if current == nil {
		return MoveResult{}, fmt.Errorf("issue %d: %w", id, store.ErrNotFound)
	}
	if current.Status == target {
		return MoveResult{NoOp: true, Issue: current}, nil
	}

	confirmed, err := b.store.UpdateIssue(ctx, id, models.StatusPatch(target))
	if err == nil && confirmed == nil {
		err = fmt.Errorf("issue %d: %w", id, store.ErrNotFound)
	}
	if err != nil {
		b.notifier.Error("Failed to update issue status")
		return MoveResult{}, fmt.Errorf("move issue %d: %w", id, err)
	}

	moved := b.commit(id, confirmed)
	b.notifier.Success("Issue moved to " + strings.ReplaceAll(string(confirmed.Status), "-", " "))
	return MoveResult{Issue: moved}, nil
}

// commit copies the confirmed status and timestamp onto a fresh copy of the
// issue and installs a new collection slice.
func (b *Board) commit(id int, confirmed *models.Issue) *models.Issue {
	b.mu.Lock()
	defer b.mu.Unlock()

	i := slices.IndexFunc(b.issues, func(issue *models.Issue) bool { return issue.ID == id })
	if i < 0 {
		// Reloaded without this issue while the update was in flight.
		return confirmed
	}
	moved := b.issues[i].Clone()
	moved.Status = confirmed.Status
	moved.UpdatedAt = confirmed.UpdatedAt

	next := slices.Clone(b.issues)
	next[i] = moved
	b.issues = next
	return moved
}
