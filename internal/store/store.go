package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/joescharf/bugboard/internal/models"
)

// ErrNotFound is returned when the referenced record does not exist, for
// example after a concurrent delete.
var ErrNotFound = errors.New("not found")

// Error wraps a transport or server failure reported by a backend.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string { return e.Op + ": " + e.Err.Error() }

func (e *Error) Unwrap() error { return e.Err }

// wrap builds an *Error for op, passing ErrNotFound through unchanged so callers
// can still match it with errors.Is.
func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) {
		return err
	}
	return &Error{Op: op, Err: err}
}

func notFound(kind string, id int) error {
	return fmt.Errorf("%s %d: %w", kind, id, ErrNotFound)
}

// IssueStore persists issues. The store owns identity and timestamps.
type IssueStore interface {
	ListIssues(ctx context.Context) ([]*models.Issue, error)
	GetIssue(ctx context.Context, id int) (*models.Issue, error)
	CreateIssue(ctx context.Context, issue *models.Issue) (*models.Issue, error)
	UpdateIssue(ctx context.Context, id int, patch models.IssuePatch) (*models.Issue, error)
	DeleteIssue(ctx context.Context, id int) (bool, error)
	BulkUpdateIssues(ctx context.Context, ids []int, patch models.IssuePatch) ([]*models.Issue, error)
}

// CommentStore persists comments. Comments are never moved between issues.
type CommentStore interface {
	ListComments(ctx context.Context, issueID int) ([]*models.Comment, error)
	CreateComment(ctx context.Context, c *models.Comment) (*models.Comment, error)
	UpdateComment(ctx context.Context, id int, content string) (*models.Comment, error)
	DeleteComment(ctx context.Context, id int) (bool, error)
}

// UserStore persists users.
type UserStore interface {
	ListUsers(ctx context.Context) ([]*models.User, error)
	GetUser(ctx context.Context, id int) (*models.User, error)
	CreateUser(ctx context.Context, u *models.User) (*models.User, error)
	UpdateUser(ctx context.Context, id int, u *models.User) (*models.User, error)
	DeleteUser(ctx context.Context, id int) (bool, error)
}

// Store is the full persistence interface for bugboard.
type Store interface {
	IssueStore
	CommentStore
	UserStore

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
