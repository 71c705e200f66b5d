package models

import (
	"fmt"
	"time"
)

// IssueStatus represents the workflow state of an issue.
type IssueStatus string

const (
	IssueStatusOpen       IssueStatus = "open"
	IssueStatusInProgress IssueStatus = "in-progress"
	IssueStatusTesting    IssueStatus = "testing"
	IssueStatusResolved   IssueStatus = "resolved"
	IssueStatusClosed     IssueStatus = "closed"
)

// IssueStatuses lists every valid status in board column order.
var IssueStatuses = []IssueStatus{
	IssueStatusOpen,
	IssueStatusInProgress,
	IssueStatusTesting,
	IssueStatusResolved,
	IssueStatusClosed,
}

// Valid reports whether s is one of the known statuses.
func (s IssueStatus) Valid() bool {
	for _, v := range IssueStatuses {
		if s == v {
			return true
		}
	}
	return false
}

// Label returns the human-readable form, e.g. "In Progress".
func (s IssueStatus) Label() string {
	switch s {
	case IssueStatusOpen:
		return "Open"
	case IssueStatusInProgress:
		return "In Progress"
	case IssueStatusTesting:
		return "Testing"
	case IssueStatusResolved:
		return "Resolved"
	case IssueStatusClosed:
		return "Closed"
	default:
		return string(s)
	}
}

// ParseIssueStatus returns an error if s is not a recognized status.
func ParseIssueStatus(s string) (IssueStatus, error) {
	st := IssueStatus(s)
	if !st.Valid() {
		return "", fmt.Errorf("invalid status %q: must be one of %v", s, IssueStatuses)
	}
	return st, nil
}

// IssuePriority represents the urgency of an issue.
type IssuePriority string

const (
	IssuePriorityLow      IssuePriority = "low"
	IssuePriorityMedium   IssuePriority = "medium"
	IssuePriorityHigh     IssuePriority = "high"
	IssuePriorityCritical IssuePriority = "critical"
)

// IssuePriorities lists every valid priority, lowest first.
var IssuePriorities = []IssuePriority{
	IssuePriorityLow,
	IssuePriorityMedium,
	IssuePriorityHigh,
	IssuePriorityCritical,
}

// Valid reports whether p is one of the known priorities.
func (p IssuePriority) Valid() bool {
	for _, v := range IssuePriorities {
		if p == v {
			return true
		}
	}
	return false
}

// Label returns the capitalized priority name.
func (p IssuePriority) Label() string {
	switch p {
	case IssuePriorityLow:
		return "Low"
	case IssuePriorityMedium:
		return "Medium"
	case IssuePriorityHigh:
		return "High"
	case IssuePriorityCritical:
		return "Critical"
	default:
		return string(p)
	}
}

// ParseIssuePriority returns an error if s is not a recognized priority.
func ParseIssuePriority(s string) (IssuePriority, error) {
	p := IssuePriority(s)
	if !p.Valid() {
		return "", fmt.Errorf("invalid priority %q: must be one of %v", s, IssuePriorities)
	}
	return p, nil
}

// IssueType represents the kind of work an issue tracks.
type IssueType string

const (
	IssueTypeBug     IssueType = "bug"
	IssueTypeFeature IssueType = "feature"
	IssueTypeTask    IssueType = "task"
)

// IssueTypes lists every valid type.
var IssueTypes = []IssueType{
	IssueTypeBug,
	IssueTypeFeature,
	IssueTypeTask,
}

// Valid reports whether t is one of the known types.
func (t IssueType) Valid() bool {
	for _, v := range IssueTypes {
		if t == v {
			return true
		}
	}
	return false
}

// Label returns the capitalized type name.
func (t IssueType) Label() string {
	switch t {
	case IssueTypeBug:
		return "Bug"
	case IssueTypeFeature:
		return "Feature"
	case IssueTypeTask:
		return "Task"
	default:
		return string(t)
	}
}

// ParseIssueType returns an error if s is not a recognized type.
func ParseIssueType(s string) (IssueType, error) {
	t := IssueType(s)
	if !t.Valid() {
		return "", fmt.Errorf("invalid type %q: must be one of %v", s, IssueTypes)
	}
	return t, nil
}

// Issue is a trackable unit of work.
type Issue struct {
	ID          int           `json:"Id"`
	Title       string        `json:"title"`
	Description string        `json:"description"`
	Type        IssueType     `json:"type"`
	Priority    IssuePriority `json:"priority"`
	Status      IssueStatus   `json:"status"`
	Assignee    string        `json:"assignee,omitempty"`
	Reporter    string        `json:"reporter"`
	DueDate     *time.Time    `json:"dueDate"`
	CreatedAt   time.Time     `json:"createdAt"`
	UpdatedAt   time.Time     `json:"updatedAt"`
}

// Clone returns a shallow copy with its own DueDate pointer.
func (i *Issue) Clone() *Issue {
	c := *i
	if i.DueDate != nil {
		d := *i.DueDate
		c.DueDate = &d
	}
	return &c
}

// ApplyDefaults fills in the status, priority and type a new issue starts with.
func (i *Issue) ApplyDefaults() {
	if i.Status == "" {
		i.Status = IssueStatusOpen
	}
	if i.Priority == "" {
		i.Priority = IssuePriorityMedium
	}
	if i.Type == "" {
		i.Type = IssueTypeTask
	}
}

// IssuePatch is a partial issue update. Nil fields are left untouched.
type IssuePatch struct {
	Title        *string        `json:"title,omitempty"`
	Description  *string        `json:"description,omitempty"`
	Type         *IssueType     `json:"type,omitempty"`
	Priority     *IssuePriority `json:"priority,omitempty"`
	Status       *IssueStatus   `json:"status,omitempty"`
	Assignee     *string        `json:"assignee,omitempty"`
	Reporter     *string        `json:"reporter,omitempty"`
	DueDate      *time.Time     `json:"dueDate,omitempty"`
	ClearDueDate bool           `json:"clearDueDate,omitempty"`
}

// Empty reports whether the patch changes nothing.
func (p IssuePatch) Empty() bool {
	return p.Title == nil && p.Description == nil && p.Type == nil && p.Priority == nil &&
		p.Status == nil && p.Assignee == nil && p.Reporter == nil && p.DueDate == nil && !p.ClearDueDate
}

// Apply writes the patch onto issue. Timestamps are the store's concern.
func (p IssuePatch) Apply(issue *Issue) {
	if p.Title != nil {
		issue.Title = *p.Title
	}
	if p.Description != nil {
		issue.Description = *p.Description
	}
	if p.Type != nil {
		issue.Type = *p.Type
	}
	if p.Priority != nil {
		issue.Priority = *p.Priority
	}
	if p.Status != nil {
		issue.Status = *p.Status
	}
	if p.Assignee != nil {
		issue.Assignee = *p.Assignee
	}
	if p.Reporter != nil {
		issue.Reporter = *p.Reporter
	}
	if p.ClearDueDate {
		issue.DueDate = nil
	} else if p.DueDate != nil {
		d := *p.DueDate
		issue.DueDate = &d
	}
}

// StatusPatch returns a patch that only changes the status.
func StatusPatch(s IssueStatus) IssuePatch {
	return IssuePatch{Status: &s}
}
