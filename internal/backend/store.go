package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joescharf/bugboard/internal/models"
	"github.com/joescharf/bugboard/internal/schema"
	"github.com/joescharf/bugboard/internal/store"
)

// Store implements store.Store on top of the hosted records API.
type Store struct {
	client *Client
}

var _ store.Store = (*Store)(nil)

// NewStore validates the field schema and returns a Store using client.
func NewStore(client *Client) (*Store, error) {
	if err := schema.Validate(); err != nil {
		return nil, err
	}
	return &Store{client: client}, nil
}

// Migrate is a no-op; the backend owns its tables.
func (s *Store) Migrate(ctx context.Context) error { return nil }

// Close releases idle HTTP connections.
func (s *Store) Close() error {
	s.client.Close()
	return nil
}

func failed(op string, err error) error {
	if err == nil || errors.Is(err, store.ErrNotFound) {
		return err
	}
	return &store.Error{Op: op, Err: err}
}

// encode converts a model to a backend payload via its JSON form.
func encode(table schema.Table, v any) (map[string]any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var rec map[string]any
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, err
	}
	return table.ToExternal(rec)
}

// decode converts a backend record into a model.
func decode[T any](table schema.Table, rec map[string]any) (*T, error) {
	internal, err := table.ToInternal(rec)
	if err != nil {
		return nil, err
	}
	data, err := json.Marshal(internal)
	if err != nil {
		return nil, err
	}
	var out T
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("decode %s record: %w", table.Name, err)
	}
	return &out, nil
}

func decodeAll[T any](table schema.Table, recs []map[string]any) ([]*T, error) {
	out := make([]*T, 0, len(recs))
	for _, rec := range recs {
		v, err := decode[T](table, rec)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func byID(id int) []Condition {
	return []Condition{{FieldName: "Id", Operator: "EqualTo", Values: []any{id}}}
}

func (s *Store) fetchOne(ctx context.Context, table schema.Table, kind string, id int) (map[string]any, error) {
	recs, _, err := s.client.FetchRecords(ctx, table.Name, FetchParams{
		Fields: Fields(table.Columns()...),
		Where:  byID(id),
	})
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, fmt.Errorf("%s %d: %w", kind, id, store.ErrNotFound)
	}
	return recs[0], nil
}

// single returns the data of the first write result. A failed result
// becomes an error carrying the backend message; a successful result without
// data means the record no longer exists.
func single(results []RecordResult, kind string, id int) (map[string]any, error) {
	if len(results) == 0 {
		return nil, errors.New("backend returned no results")
	}
	r := results[0]
	if !r.Success {
		return nil, fmt.Errorf("%s rejected: %s", kind, r.Message)
	}
	if r.Data == nil {
		return nil, fmt.Errorf("%s %d: %w", kind, id, store.ErrNotFound)
	}
	return r.Data, nil
}

func (s *Store) write(ctx context.Context, create bool, table schema.Table, payload map[string]any) ([]RecordResult, error) {
	recs := []map[string]any{payload}
	if create {
		return s.client.CreateRecords(ctx, table.Name, recs)
	}
	return s.client.UpdateRecords(ctx, table.Name, recs)
}

func (s *Store) remove(ctx context.Context, table schema.Table, id int) (bool, error) {
	results, err := s.client.DeleteRecords(ctx, table.Name, []int{id})
	if err != nil {
		return false, err
	}
	return len(results) > 0 && results[0].Success, nil
}

// --- Issues ---

func (s *Store) ListIssues(ctx context.Context) ([]*models.Issue, error) {
	recs, _, err := s.client.FetchRecords(ctx, schema.Issues.Name, FetchParams{
		Fields:  Fields(schema.Issues.Columns()...),
		OrderBy: []OrderBy{{FieldName: "CreatedOn", SortType: "DESC"}},
	})
	if err != nil {
		return nil, failed("list issues", err)
	}
	issues, err := decodeAll[models.Issue](schema.Issues, recs)
	return issues, failed("list issues", err)
}

func (s *Store) GetIssue(ctx context.Context, id int) (*models.Issue, error) {
	rec, err := s.fetchOne(ctx, schema.Issues, "issue", id)
	if err != nil {
		return nil, failed("get issue", err)
	}
	issue, err := decode[models.Issue](schema.Issues, rec)
	return issue, failed("get issue", err)
}

func (s *Store) CreateIssue(ctx context.Context, in *models.Issue) (*models.Issue, error) {
	issue := in.Clone()
	issue.ApplyDefaults()
	payload, err := encode(schema.Issues, issue)
	if err != nil {
		return nil, failed("create issue", err)
	}
	results, err := s.write(ctx, true, schema.Issues, payload)
	if err != nil {
		return nil, failed("create issue", err)
	}
	rec, err := single(results, "issue", 0)
	if err != nil {
		return nil, failed("create issue", err)
	}
	created, err := decode[models.Issue](schema.Issues, rec)
	return created, failed("create issue", err)
}

// patchPayload maps only the fields set in patch.
func patchPayload(id int, patch models.IssuePatch) (map[string]any, error) {
	payload, err := encode(schema.Issues, patch)
	if err != nil {
		return nil, err
	}
	if patch.ClearDueDate {
		col, _ := schema.Issues.Column("dueDate")
		payload[col] = nil
	}
	payload["Id"] = id
	return payload, nil
}

func (s *Store) UpdateIssue(ctx context.Context, id int, patch models.IssuePatch) (*models.Issue, error) {
	payload, err := patchPayload(id, patch)
	if err != nil {
		return nil, failed("update issue", err)
	}
	results, err := s.write(ctx, false, schema.Issues, payload)
	if err != nil {
		return nil, failed("update issue", err)
	}
	rec, err := single(results, "issue", id)
	if err != nil {
		return nil, failed("update issue", err)
	}
	issue, err := decode[models.Issue](schema.Issues, rec)
	return issue, failed("update issue", err)
}

func (s *Store) DeleteIssue(ctx context.Context, id int) (bool, error) {
	ok, err := s.remove(ctx, schema.Issues, id)
	return ok, failed("delete issue", err)
}

func (s *Store) BulkUpdateIssues(ctx context.Context, ids []int, patch models.IssuePatch) ([]*models.Issue, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	payloads := make([]map[string]any, 0, len(ids))
	for _, id := range ids {
		p, err := patchPayload(id, patch)
		if err != nil {
			return nil, failed("bulk update issues", err)
		}
		payloads = append(payloads, p)
	}
	results, err := s.client.UpdateRecords(ctx, schema.Issues.Name, payloads)
	if err != nil {
		return nil, failed("bulk update issues", err)
	}
	var updated []*models.Issue
	for _, r := range results {
		if !r.Success || r.Data == nil {
			continue
		}
		issue, err := decode[models.Issue](schema.Issues, r.Data)
		if err != nil {
			return nil, failed("bulk update issues", err)
		}
		updated = append(updated, issue)
	}
	return updated, nil
}

// --- Comments ---

func (s *Store) ListComments(ctx context.Context, issueID int) ([]*models.Comment, error) {
	col, _ := schema.Comments.Column("issueId")
	created, _ := schema.Comments.Column("createdOn")
	recs, _, err := s.client.FetchRecords(ctx, schema.Comments.Name, FetchParams{
		Fields:  Fields(schema.Comments.Columns()...),
		Where:   []Condition{{FieldName: col, Operator: "EqualTo", Values: []any{issueID}}},
		OrderBy: []OrderBy{{FieldName: created, SortType: "DESC"}},
	})
	if err != nil {
		return nil, failed("list comments", err)
	}
	comments, err := decodeAll[models.Comment](schema.Comments, recs)
	return comments, failed("list comments", err)
}

// stamp is the timestamp format written to the comment date columns.
func stamp() string {
	return time.Now().UTC().Format(time.RFC3339)
}

func (s *Store) CreateComment(ctx context.Context, c *models.Comment) (*models.Comment, error) {
	now := stamp()
	payload, err := encode(schema.Comments, struct {
		IssueID    int    `json:"issueId"`
		Content    string `json:"content"`
		CreatedBy  *int   `json:"createdBy"`
		CreatedOn  string `json:"createdOn"`
		ModifiedOn string `json:"modifiedOn"`
	}{c.IssueID, strings.TrimSpace(c.Content), c.CreatedBy, now, now})
	if err != nil {
		return nil, failed("create comment", err)
	}
	results, err := s.write(ctx, true, schema.Comments, payload)
	if err != nil {
		return nil, failed("create comment", err)
	}
	rec, err := single(results, "comment", 0)
	if err != nil {
		return nil, failed("create comment", err)
	}
	created, err := decode[models.Comment](schema.Comments, rec)
	return created, failed("create comment", err)
}

func (s *Store) UpdateComment(ctx context.Context, id int, content string) (*models.Comment, error) {
	payload, err := encode(schema.Comments, map[string]any{
		"content":    strings.TrimSpace(content),
		"modifiedOn": stamp(),
	})
	if err != nil {
		return nil, failed("update comment", err)
	}
	payload["Id"] = id
	results, err := s.write(ctx, false, schema.Comments, payload)
	if err != nil {
		return nil, failed("update comment", err)
	}
	rec, err := single(results, "comment", id)
	if err != nil {
		return nil, failed("update comment", err)
	}
	c, err := decode[models.Comment](schema.Comments, rec)
	return c, failed("update comment", err)
}

func (s *Store) DeleteComment(ctx context.Context, id int) (bool, error) {
	ok, err := s.remove(ctx, schema.Comments, id)
	return ok, failed("delete comment", err)
}

// --- Users ---

func (s *Store) ListUsers(ctx context.Context) ([]*models.User, error) {
	recs, _, err := s.client.FetchRecords(ctx, schema.Users.Name, FetchParams{
		Fields:     Fields(schema.Users.Columns()...),
		OrderBy:    []OrderBy{{FieldName: "CreatedOn", SortType: "DESC"}},
		PagingInfo: &Paging{Limit: 100},
	})
	if err != nil {
		return nil, failed("list users", err)
	}
	users, err := decodeAll[models.User](schema.Users, recs)
	return users, failed("list users", err)
}

func (s *Store) GetUser(ctx context.Context, id int) (*models.User, error) {
	rec, err := s.fetchOne(ctx, schema.Users, "user", id)
	if err != nil {
		return nil, failed("get user", err)
	}
	u, err := decode[models.User](schema.Users, rec)
	return u, failed("get user", err)
}

func (s *Store) CreateUser(ctx context.Context, in *models.User) (*models.User, error) {
	u := *in
	u.Normalize()
	payload, err := encode(schema.Users, &u)
	if err != nil {
		return nil, failed("create user", err)
	}
	results, err := s.write(ctx, true, schema.Users, payload)
	if err != nil {
		return nil, failed("create user", err)
	}
	rec, err := single(results, "user", 0)
	if err != nil {
		return nil, failed("create user", err)
	}
	created, err := decode[models.User](schema.Users, rec)
	return created, failed("create user", err)
}

func (s *Store) UpdateUser(ctx context.Context, id int, in *models.User) (*models.User, error) {
	u := *in
	u.Normalize()
	payload, err := encode(schema.Users, &u)
	if err != nil {
		return nil, failed("update user", err)
	}
	payload["Id"] = id
	results, err := s.write(ctx, false, schema.Users, payload)
	if err != nil {
		return nil, failed("update user", err)
	}
	rec, err := single(results, "user", id)
	if err != nil {
		return nil, failed("update user", err)
	}
	updated, err := decode[models.User](schema.Users, rec)
	return updated, failed("update user", err)
}

func (s *Store) DeleteUser(ctx context.Context, id int) (bool, error) {
	ok, err := s.remove(ctx, schema.Users, id)
	return ok, failed("delete user", err)
}
