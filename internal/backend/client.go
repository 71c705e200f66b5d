// Package backend talks to the hosted records service that owns issues,
// comments and users when bugboard runs with the "remote" store driver.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Config holds the connection settings for the hosted backend.
type Config struct {
	BaseURL   string
	ProjectID string
	PublicKey string
	Timeout   time.Duration
}

// Client is a thin JSON client for the records API.
type Client struct {
	cfg  Config
	http *http.Client
}

// NewClient returns a Client. A zero Timeout means 30 seconds.
func NewClient(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &Client{cfg: cfg, http: &http.Client{Timeout: cfg.Timeout}}
}

// FieldRef names a column in a fetch request.
type FieldRef struct {
	Field struct {
		Name string `json:"Name"`
	} `json:"field"`
}

// Fields builds the field list for a fetch request.
func Fields(names ...string) []FieldRef {
	refs := make([]FieldRef, len(names))
	for i, n := range names {
		refs[i].Field.Name = n
	}
	return refs
}

// Condition is a single where clause.
type Condition struct {
	FieldName string `json:"FieldName"`
	Operator  string `json:"Operator"`
	Values    []any  `json:"Values"`
}

// OrderBy sorts fetched records.
type OrderBy struct {
	FieldName string `json:"fieldName"`
	SortType  string `json:"sorttype"`
}

// Paging limits fetched records.
type Paging struct {
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

// FetchParams is the body of a records query.
type FetchParams struct {
	Fields     []FieldRef  `json:"fields"`
	Where      []Condition `json:"where,omitempty"`
	OrderBy    []OrderBy   `json:"orderBy,omitempty"`
	PagingInfo *Paging     `json:"pagingInfo,omitempty"`
}

// RecordResult is the per-record outcome of a write.
type RecordResult struct {
	Success bool           `json:"success"`
	Message string         `json:"message"`
	Data    map[string]any `json:"data"`
}

// response is the envelope every endpoint returns.
type response struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Results []RecordResult  `json:"results"`
	Total   int             `json:"total"`
}

// APIError is a failure reported by the backend envelope or HTTP status.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("backend returned status %d", e.Status)
	}
	return fmt.Sprintf("backend: %s (status %d)", e.Message, e.Status)
}

func (c *Client) recordsURL(table string) string {
	return c.cfg.BaseURL + "/tables/" + url.PathEscape(table) + "/records"
}

func (c *Client) do(ctx context.Context, method, target string, body any) (*response, error) {
	var rdr io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		rdr = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, rdr)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.cfg.ProjectID != "" {
		req.Header.Set("X-Project-Id", c.cfg.ProjectID)
	}
	if c.cfg.PublicKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.PublicKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, target, err)
	}
	defer func() { _ = resp.Body.Close() }()

	var env response
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		if resp.StatusCode >= 300 {
			return nil, &APIError{Status: resp.StatusCode}
		}
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if resp.StatusCode >= 300 || !env.Success {
		return nil, &APIError{Status: resp.StatusCode, Message: env.Message}
	}
	return &env, nil
}

// FetchRecords queries table and returns the raw records and the total count.
func (c *Client) FetchRecords(ctx context.Context, table string, params FetchParams) ([]map[string]any, int, error) {
	env, err := c.do(ctx, http.MethodPost, c.recordsURL(table)+"/query", params)
	if err != nil {
		return nil, 0, err
	}
	var records []map[string]any
	if len(env.Data) > 0 && string(env.Data) != "null" {
		if err := json.Unmarshal(env.Data, &records); err != nil {
			return nil, 0, fmt.Errorf("decode records: %w", err)
		}
	}
	return records, env.Total, nil
}

// CreateRecords inserts records and returns the per-record results.
func (c *Client) CreateRecords(ctx context.Context, table string, records []map[string]any) ([]RecordResult, error) {
	env, err := c.do(ctx, http.MethodPost, c.recordsURL(table), map[string]any{"records": records})
	if err != nil {
		return nil, err
	}
	return env.Results, nil
}

// UpdateRecords updates records, each of which must carry its "Id".
func (c *Client) UpdateRecords(ctx context.Context, table string, records []map[string]any) ([]RecordResult, error) {
	env, err := c.do(ctx, http.MethodPut, c.recordsURL(table), map[string]any{"records": records})
	if err != nil {
		return nil, err
	}
	return env.Results, nil
}

// DeleteRecords deletes records by ID.
func (c *Client) DeleteRecords(ctx context.Context, table string, ids []int) ([]RecordResult, error) {
	env, err := c.do(ctx, http.MethodDelete, c.recordsURL(table), map[string]any{"RecordIds": ids})
	if err != nil {
		return nil, err
	}
	return env.Results, nil
}

// Close releases idle connections.
func (c *Client) Close() {
	c.http.CloseIdleConnections()
}
