// Package viewmodel derives the render-ready issue list, filter counts and
// summary statistics from the full issue collection. Every function here is
// pure: inputs are never mutated.
package viewmodel

import (
	"cmp"
	"slices"
	"strings"
	"time"

	"github.com/joescharf/bugboard/internal/models"
)

// Direction is a sort direction.
type Direction string

const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

// Sort selects the field to order by. Key uses the issue's JSON field names.
type Sort struct {
	Key       string    `json:"key"`
	Direction Direction `json:"direction"`
}

// DefaultSort is the order a fresh list view starts with.
var DefaultSort = Sort{Key: "Id", Direction: Desc}

// Filters holds the selected values per dimension. An empty slice passes
// everything through.
type Filters struct {
	Status   []models.IssueStatus   `json:"status"`
	Priority []models.IssuePriority `json:"priority"`
	Type     []models.IssueType     `json:"type"`
}

// Empty reports whether no filter is active.
func (f Filters) Empty() bool {
	return len(f.Status) == 0 && len(f.Priority) == 0 && len(f.Type) == 0
}

// Query is the list view's search, filter and sort state.
type Query struct {
	Search  string  `json:"search"`
	Filters Filters `json:"filters"`
	Sort    Sort    `json:"sort"`
}

// Derive returns the issues matching q in q.Sort order as a new slice.
func Derive(issues []*models.Issue, q Query) []*models.Issue {
	needle := strings.ToLower(q.Search)
	filtered := !q.Filters.Empty()
	out := make([]*models.Issue, 0, len(issues))
	for _, issue := range issues {
		if needle != "" && !matches(issue, needle) {
			continue
		}
		if filtered && !q.Filters.keep(issue) {
			continue
		}
		out = append(out, issue)
	}

	if cmpFn := comparator(q.Sort.Key); cmpFn != nil {
		desc := q.Sort.Direction == Desc
		slices.SortStableFunc(out, func(a, b *models.Issue) int {
			c := cmpFn(a, b)
			if desc {
				return -c
			}
			return c
		})
	}
	return out
}

func matches(issue *models.Issue, needle string) bool {
	return strings.Contains(strings.ToLower(issue.Title), needle) ||
		strings.Contains(strings.ToLower(issue.Description), needle)
}

func (f Filters) keep(issue *models.Issue) bool {
	if len(f.Status) > 0 && !slices.Contains(f.Status, issue.Status) {
		return false
	}
	if len(f.Priority) > 0 && !slices.Contains(f.Priority, issue.Priority) {
		return false
	}
	if len(f.Type) > 0 && !slices.Contains(f.Type, issue.Type) {
		return false
	}
	return true
}

type compareFunc func(a, b *models.Issue) int

// comparator returns nil for keys that do not name a sortable field.
func comparator(key string) compareFunc {
	switch key {
	case "Id":
		return func(a, b *models.Issue) int { return cmp.Compare(a.ID, b.ID) }
	case "title":
		return byString(func(i *models.Issue) string { return i.Title })
	case "description":
		return byString(func(i *models.Issue) string { return i.Description })
	case "type":
		return byString(func(i *models.Issue) string { return string(i.Type) })
	case "priority":
		return byString(func(i *models.Issue) string { return string(i.Priority) })
	case "status":
		return byString(func(i *models.Issue) string { return string(i.Status) })
	case "assignee":
		return byString(func(i *models.Issue) string { return i.Assignee })
	case "reporter":
		return byString(func(i *models.Issue) string { return i.Reporter })
	case "createdAt":
		return byTime(func(i *models.Issue) time.Time { return i.CreatedAt })
	case "updatedAt":
		return byTime(func(i *models.Issue) time.Time { return i.UpdatedAt })
	case "dueDate":
		// Issues without a due date sort before any dated issue.
		return byTime(func(i *models.Issue) time.Time {
			if i.DueDate == nil {
				return time.Time{}
			}
			return *i.DueDate
		})
	}
	return nil
}

// SortKeys lists the keys Derive can order by.
var SortKeys = []string{
	"Id", "title", "description", "type", "priority", "status",
	"assignee", "reporter", "createdAt", "updatedAt", "dueDate",
}

func byString(field func(*models.Issue) string) compareFunc {
	return func(a, b *models.Issue) int { return strings.Compare(field(a), field(b)) }
}

func byTime(field func(*models.Issue) time.Time) compareFunc {
	return func(a, b *models.Issue) int { return field(a).Compare(field(b)) }
}
