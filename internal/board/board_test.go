package board

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joescharf/bugboard/internal/models"
	"github.com/joescharf/bugboard/internal/store"
)

// fakeIssues is a scripted store.IssueStore.
type fakeIssues struct {
	mu        sync.Mutex
	issues    []*models.Issue
	listErr   error
	updateErr error
	nilUpdate bool
	updates   int
	now       time.Time
}

func (f *fakeIssues) ListIssues(ctx context.Context) ([]*models.Issue, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make([]*models.Issue, len(f.issues))
	for i, issue := range f.issues {
		out[i] = issue.Clone()
	}
	return out, nil
}

func (f *fakeIssues) GetIssue(ctx context.Context, id int) (*models.Issue, error) {
	return nil, store.ErrNotFound
}

func (f *fakeIssues) CreateIssue(ctx context.Context, issue *models.Issue) (*models.Issue, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeIssues) UpdateIssue(ctx context.Context, id int, patch models.IssuePatch) (*models.Issue, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates++
	if f.updateErr != nil {
		return nil, f.updateErr
	}
	if f.nilUpdate {
		return nil, nil
	}
	for _, issue := range f.issues {
		if issue.ID == id {
			patch.Apply(issue)
			issue.UpdatedAt = f.now
			return issue.Clone(), nil
		}
	}
	return nil, store.ErrNotFound
}

func (f *fakeIssues) DeleteIssue(ctx context.Context, id int) (bool, error) { return false, nil }

func (f *fakeIssues) BulkUpdateIssues(ctx context.Context, ids []int, patch models.IssuePatch) ([]*models.Issue, error) {
	return nil, nil
}

type recorder struct {
	success []string
	errors  []string
}

func (r *recorder) Success(msg string) { r.success = append(r.success, msg) }
func (r *recorder) Error(msg string)   { r.errors = append(r.errors, msg) }

var t0 = time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)

func setupBoard(t *testing.T) (*Board, *fakeIssues, *recorder) {
	t.Helper()
	fake := &fakeIssues{
		now: t0.Add(time.Hour),
		issues: []*models.Issue{
			{ID: 1, Title: "A", Status: models.IssueStatusOpen, CreatedAt: t0, UpdatedAt: t0},
			{ID: 2, Title: "B", Status: models.IssueStatusOpen, CreatedAt: t0, UpdatedAt: t0},
		},
	}
	rec := &recorder{}
	b := New(fake, rec)
	require.NoError(t, b.Load(context.Background()))
	return b, fake, rec
}

func TestColumns_FixedOrderAndUnknownDropped(t *testing.T) {
	cols := Columns([]*models.Issue{
		{ID: 1, Status: models.IssueStatusClosed},
		{ID: 2, Status: "archived"},
		{ID: 3, Status: models.IssueStatusOpen},
		{ID: 4, Status: models.IssueStatusOpen},
	})
	require.Len(t, cols, 5)

	var statuses []models.IssueStatus
	total := 0
	for _, c := range cols {
		statuses = append(statuses, c.Status)
		total += len(c.Issues)
	}
	assert.Equal(t, models.IssueStatuses, statuses)
	assert.Equal(t, 3, total)
	assert.Len(t, cols[0].Issues, 2)
	assert.Equal(t, "In Progress", cols[1].Title)
	assert.NotNil(t, cols[2].Issues)
	assert.Len(t, cols[4].Issues, 1)
}

func TestMove_Success(t *testing.T) {
	b, fake, rec := setupBoard(t)
	before := b.Issues()

	res, err := b.Move(context.Background(), 2, "resolved")
	require.NoError(t, err)
	assert.False(t, res.NoOp)
	require.NotNil(t, res.Issue)
	assert.Equal(t, models.IssueStatusResolved, res.Issue.Status)

	after := b.Issues()
	assert.Equal(t, models.IssueStatusResolved, after[1].Status)
	assert.Equal(t, fake.now, after[1].UpdatedAt)
	assert.Equal(t, "B", after[1].Title)

	// Issue 1 is untouched and shared; the old snapshot is unchanged.
	assert.Same(t, before[0], after[0])
	assert.Equal(t, models.IssueStatusOpen, before[1].Status)

	assert.Equal(t, []string{"Issue moved to resolved"}, rec.success)
	assert.Empty(t, rec.errors)
}

func TestMove_InProgressMessage(t *testing.T) {
	b, _, rec := setupBoard(t)
	_, err := b.Move(context.Background(), 1, "in-progress")
	require.NoError(t, err)
	assert.Equal(t, []string{"Issue moved to in progress"}, rec.success)
}

func TestMove_SameColumnIsNoOp(t *testing.T) {
	b, fake, rec := setupBoard(t)
	before := b.Issues()

	res, err := b.Move(context.Background(), 1, "open")
	require.NoError(t, err)
	assert.True(t, res.NoOp)
	assert.Zero(t, fake.updates)

	after := b.Issues()
	assert.Same(t, &before[0], &after[0])
	assert.Empty(t, rec.success)
}

func TestMove_StoreFailureLeavesCollection(t *testing.T) {
	b, fake, rec := setupBoard(t)
	fake.updateErr = &store.Error{Op: "update issue", Err: errors.New("connection refused")}
	before := b.Issues()
	snapshot := *before[1]

	_, err := b.Move(context.Background(), 2, "closed")
	require.Error(t, err)
	var se *store.Error
	assert.ErrorAs(t, err, &se)

	after := b.Issues()
	assert.Same(t, &before[0], &after[0])
	assert.Equal(t, snapshot, *after[1])
	assert.Equal(t, []string{"Failed to update issue status"}, rec.errors)
}

func TestMove_NilConfirmationIsFailure(t *testing.T) {
	b, fake, rec := setupBoard(t)
	fake.nilUpdate = true

	_, err := b.Move(context.Background(), 2, "testing")
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.Equal(t, models.IssueStatusOpen, b.Issues()[1].Status)
	assert.Len(t, rec.errors, 1)
}

func TestMove_UnknownIssue(t *testing.T) {
	b, fake, _ := setupBoard(t)
	_, err := b.Move(context.Background(), 99, "closed")
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.Zero(t, fake.updates)
	assert.False(t, b.Contains(99))
	assert.True(t, b.Contains(2))
}

func TestMove_InvalidColumn(t *testing.T) {
	b, fake, _ := setupBoard(t)
	_, err := b.Move(context.Background(), 1, "archived")

	var ve *models.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Contains(t, ve.Fields, "column")
	assert.Zero(t, fake.updates)
}

func TestMove_AnyStatusToAnyOther(t *testing.T) {
	b, _, _ := setupBoard(t)
	ctx := context.Background()
	for _, s := range []string{"closed", "open", "resolved", "in-progress", "testing", "open"} {
		_, err := b.Move(ctx, 1, s)
		require.NoError(t, err, s)
		assert.Equal(t, models.IssueStatus(s), b.Issues()[0].Status)
	}
}

func TestLoad_FailureKeepsLastKnownGood(t *testing.T) {
	b, fake, _ := setupBoard(t)
	before := b.Issues()
	fake.listErr = &store.Error{Op: "list issues", Err: errors.New("timeout")}

	err := b.Load(context.Background())
	require.Error(t, err)
	assert.Error(t, b.LoadErr())
	assert.Len(t, b.Issues(), len(before))
	assert.Same(t, &before[0], &b.Issues()[0])

	fake.listErr = nil
	require.NoError(t, b.Load(context.Background()))
	assert.NoError(t, b.LoadErr())
}

func TestLoad_EmptyStore(t *testing.T) {
	b := New(&fakeIssues{}, nil)
	require.NoError(t, b.Load(context.Background()))
	assert.NotNil(t, b.Issues())
	for _, c := range b.Columns() {
		assert.Empty(t, c.Issues)
	}
}
