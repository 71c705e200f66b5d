package store

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/joescharf/bugboard/internal/models"

	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// SQLiteStore implements Store using modernc.org/sqlite (pure Go, no CGO).
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// NewSQLiteStore opens (or creates) a SQLite database at the given path.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	// Ensure parent directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// SQLite only supports one concurrent writer. Limiting to a single connection
	// serializes all DB access through Go's connection pool, preventing
	// "database is locked" errors from concurrent HTTP requests.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("set pragma %q: %w", p, err)
		}
	}

	return &SQLiteStore{db: db, now: func() time.Time { return time.Now().UTC() }}, nil
}

// Migrate runs all embedded SQL migration files in order.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		filename TEXT PRIMARY KEY,
		applied_at DATETIME NOT NULL DEFAULT (datetime('now'))
	)`)
	if err != nil {
		return fmt.Errorf("create migrations table: %w", err)
	}

	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("read migrations dir: %w", err)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()

		var count int
		err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM schema_migrations WHERE filename = ?", name).Scan(&count)
		if err != nil {
			return fmt.Errorf("check migration %s: %w", name, err)
		}
		if count > 0 {
			continue
		}

		data, err := migrationsFS.ReadFile("migrations/" + name)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", name, err)
		}
		if _, err := s.db.ExecContext(ctx, string(data)); err != nil {
			return fmt.Errorf("apply migration %s: %w", name, err)
		}
		if _, err := s.db.ExecContext(ctx, "INSERT INTO schema_migrations (filename) VALUES (?)", name); err != nil {
			return fmt.Errorf("record migration %s: %w", name, err)
		}
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// stamp returns the current time, never earlier than prev, so updated-at
// values stay non-decreasing even if the wall clock steps back.
func (s *SQLiteStore) stamp(prev time.Time) time.Time {
	now := s.now()
	if now.Before(prev) {
		return prev
	}
	return now
}

// --- Issues ---

const issueColumns = `id, title, description, type, priority, status, assignee, reporter, due_date, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanIssue(row rowScanner) (*models.Issue, error) {
	issue := &models.Issue{}
	var issueType, priority, status string
	var due sql.NullTime
	if err := row.Scan(&issue.ID, &issue.Title, &issue.Description, &issueType, &priority, &status,
		&issue.Assignee, &issue.Reporter, &due, &issue.CreatedAt, &issue.UpdatedAt); err != nil {
		return nil, err
	}
	issue.Type = models.IssueType(issueType)
	issue.Priority = models.IssuePriority(priority)
	issue.Status = models.IssueStatus(status)
	if due.Valid {
		issue.DueDate = &due.Time
	}
	return issue, nil
}

func getIssue(ctx context.Context, q querier, id int) (*models.Issue, error) {
	issue, err := scanIssue(q.QueryRowContext(ctx, `SELECT `+issueColumns+` FROM issues WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("issue", id)
	}
	return issue, err
}

func (s *SQLiteStore) ListIssues(ctx context.Context) ([]*models.Issue, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+issueColumns+` FROM issues ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, wrap("list issues", err)
	}
	defer func() { _ = rows.Close() }()

	var issues []*models.Issue
	for rows.Next() {
		issue, err := scanIssue(rows)
		if err != nil {
			return nil, wrap("scan issue", err)
		}
		issues = append(issues, issue)
	}
	return issues, wrap("list issues", rows.Err())
}

func (s *SQLiteStore) GetIssue(ctx context.Context, id int) (*models.Issue, error) {
	issue, err := getIssue(ctx, s.db, id)
	if err != nil {
		return nil, wrap("get issue", err)
	}
	return issue, nil
}

func (s *SQLiteStore) CreateIssue(ctx context.Context, in *models.Issue) (*models.Issue, error) {
	issue := in.Clone()
	issue.ApplyDefaults()
	now := s.now()
	issue.CreatedAt = now
	issue.UpdatedAt = now

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO issues (title, description, type, priority, status, assignee, reporter, due_date, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		issue.Title, issue.Description, string(issue.Type), string(issue.Priority), string(issue.Status),
		issue.Assignee, issue.Reporter, issue.DueDate, issue.CreatedAt, issue.UpdatedAt,
	)
	if err != nil {
		return nil, wrap("create issue", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, wrap("create issue", err)
	}
	issue.ID = int(id)
	return issue, nil
}

func (s *SQLiteStore) UpdateIssue(ctx context.Context, id int, patch models.IssuePatch) (*models.Issue, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, wrap("begin tx", err)
	}
	defer func() { _ = tx.Rollback() }()

	issue, err := s.updateIssueTx(ctx, tx, id, patch)
	if err != nil {
		return nil, wrap("update issue", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, wrap("commit tx", err)
	}
	return issue, nil
}

func (s *SQLiteStore) updateIssueTx(ctx context.Context, tx *sql.Tx, id int, patch models.IssuePatch) (*models.Issue, error) {
	issue, err := getIssue(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	patch.Apply(issue)
	issue.UpdatedAt = s.stamp(issue.UpdatedAt)

	_, err = tx.ExecContext(ctx,
		`UPDATE issues SET title=?, description=?, type=?, priority=?, status=?, assignee=?, reporter=?, due_date=?, updated_at=?
		WHERE id=?`,
		issue.Title, issue.Description, string(issue.Type), string(issue.Priority), string(issue.Status),
		issue.Assignee, issue.Reporter, issue.DueDate, issue.UpdatedAt, issue.ID,
	)
	if err != nil {
		return nil, err
	}
	return issue, nil
}

func (s *SQLiteStore) DeleteIssue(ctx context.Context, id int) (bool, error) {
	result, err := s.db.ExecContext(ctx, "DELETE FROM issues WHERE id = ?", id)
	if err != nil {
		return false, wrap("delete issue", err)
	}
	n, _ := result.RowsAffected()
	return n > 0, nil
}

// BulkUpdateIssues applies patch to every listed issue that exists. Missing IDs
// are skipped; the returned slice holds only the issues that were updated.
func (s *SQLiteStore) BulkUpdateIssues(ctx context.Context, ids []int, patch models.IssuePatch) ([]*models.Issue, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, wrap("begin tx", err)
	}
	defer func() { _ = tx.Rollback() }()

	var updated []*models.Issue
	for _, id := range ids {
		issue, err := s.updateIssueTx(ctx, tx, id, patch)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, wrap("bulk update issues", err)
		}
		updated = append(updated, issue)
	}
	if err := tx.Commit(); err != nil {
		return nil, wrap("commit tx", err)
	}
	return updated, nil
}

// --- Comments ---

const commentColumns = `id, issue_id, content, created_by, created_on, modified_on`

func scanComment(row rowScanner) (*models.Comment, error) {
	c := &models.Comment{}
	var createdBy sql.NullInt64
	if err := row.Scan(&c.ID, &c.IssueID, &c.Content, &createdBy, &c.CreatedOn, &c.ModifiedOn); err != nil {
		return nil, err
	}
	if createdBy.Valid {
		v := int(createdBy.Int64)
		c.CreatedBy = &v
	}
	return c, nil
}

func (s *SQLiteStore) ListComments(ctx context.Context, issueID int) ([]*models.Comment, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+commentColumns+` FROM comments WHERE issue_id = ? ORDER BY created_on DESC, id DESC`, issueID)
	if err != nil {
		return nil, wrap("list comments", err)
	}
	defer func() { _ = rows.Close() }()

	var comments []*models.Comment
	for rows.Next() {
		c, err := scanComment(rows)
		if err != nil {
			return nil, wrap("scan comment", err)
		}
		comments = append(comments, c)
	}
	return comments, wrap("list comments", rows.Err())
}

func (s *SQLiteStore) CreateComment(ctx context.Context, in *models.Comment) (*models.Comment, error) {
	c := *in
	c.Content = strings.TrimSpace(c.Content)
	now := s.now()
	c.CreatedOn = now
	c.ModifiedOn = now

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO comments (issue_id, content, created_by, created_on, modified_on) VALUES (?, ?, ?, ?, ?)`,
		c.IssueID, c.Content, c.CreatedBy, c.CreatedOn, c.ModifiedOn,
	)
	if err != nil {
		return nil, wrap("create comment", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, wrap("create comment", err)
	}
	c.ID = int(id)
	return &c, nil
}

func (s *SQLiteStore) UpdateComment(ctx context.Context, id int, content string) (*models.Comment, error) {
	c, err := scanComment(s.db.QueryRowContext(ctx, `SELECT `+commentColumns+` FROM comments WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("comment", id)
	}
	if err != nil {
		return nil, wrap("get comment", err)
	}

	c.Content = strings.TrimSpace(content)
	c.ModifiedOn = s.stamp(c.ModifiedOn)
	if _, err := s.db.ExecContext(ctx, `UPDATE comments SET content=?, modified_on=? WHERE id=?`,
		c.Content, c.ModifiedOn, c.ID); err != nil {
		return nil, wrap("update comment", err)
	}
	return c, nil
}

func (s *SQLiteStore) DeleteComment(ctx context.Context, id int) (bool, error) {
	result, err := s.db.ExecContext(ctx, "DELETE FROM comments WHERE id = ?", id)
	if err != nil {
		return false, wrap("delete comment", err)
	}
	n, _ := result.RowsAffected()
	return n > 0, nil
}

// --- Users ---

const userColumns = `id, name, first_name, last_name, email, tags, created_on, modified_on`

func scanUser(row rowScanner) (*models.User, error) {
	u := &models.User{}
	if err := row.Scan(&u.ID, &u.Name, &u.FirstName, &u.LastName, &u.Email, &u.Tags, &u.CreatedOn, &u.ModifiedOn); err != nil {
		return nil, err
	}
	return u, nil
}

func (s *SQLiteStore) ListUsers(ctx context.Context) ([]*models.User, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+userColumns+` FROM users ORDER BY created_on DESC, id DESC`)
	if err != nil {
		return nil, wrap("list users", err)
	}
	defer func() { _ = rows.Close() }()

	var users []*models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, wrap("scan user", err)
		}
		users = append(users, u)
	}
	return users, wrap("list users", rows.Err())
}

func (s *SQLiteStore) GetUser(ctx context.Context, id int) (*models.User, error) {
	u, err := scanUser(s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("user", id)
	}
	if err != nil {
		return nil, wrap("get user", err)
	}
	return u, nil
}

func (s *SQLiteStore) CreateUser(ctx context.Context, in *models.User) (*models.User, error) {
	u := *in
	u.Normalize()
	now := s.now()
	u.CreatedOn = now
	u.ModifiedOn = now

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO users (name, first_name, last_name, email, tags, created_on, modified_on) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		u.Name, u.FirstName, u.LastName, u.Email, u.Tags, u.CreatedOn, u.ModifiedOn,
	)
	if err != nil {
		return nil, wrap("create user", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, wrap("create user", err)
	}
	u.ID = int(id)
	return &u, nil
}

// UpdateUser replaces the editable fields of user id with those in u.
func (s *SQLiteStore) UpdateUser(ctx context.Context, id int, in *models.User) (*models.User, error) {
	existing, err := s.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}
	u := *in
	u.Normalize()
	u.ID = id
	u.CreatedOn = existing.CreatedOn
	u.ModifiedOn = s.stamp(existing.ModifiedOn)

	_, err = s.db.ExecContext(ctx,
		`UPDATE users SET name=?, first_name=?, last_name=?, email=?, tags=?, modified_on=? WHERE id=?`,
		u.Name, u.FirstName, u.LastName, u.Email, u.Tags, u.ModifiedOn, id,
	)
	if err != nil {
		return nil, wrap("update user", err)
	}
	return &u, nil
}

func (s *SQLiteStore) DeleteUser(ctx context.Context, id int) (bool, error) {
	result, err := s.db.ExecContext(ctx, "DELETE FROM users WHERE id = ?", id)
	if err != nil {
		return false, wrap("delete user", err)
	}
	n, _ := result.RowsAffected()
	return n > 0, nil
}
