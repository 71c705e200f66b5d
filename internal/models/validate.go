package models

import (
	"fmt"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"
)

// ValidationError collects per-field messages for a rejected form.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s: %s", k, e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

type fieldErrors map[string]string

func (f fieldErrors) err() error {
	if len(f) == 0 {
		return nil
	}
	return &ValidationError{Fields: f}
}

// ValidateIssue checks the fields the issue form requires.
func ValidateIssue(i *Issue) error {
	errs := fieldErrors{}
	if strings.TrimSpace(i.Title) == "" {
		errs["title"] = "Title is required"
	}
	if strings.TrimSpace(i.Description) == "" {
		errs["description"] = "Description is required"
	}
	if strings.TrimSpace(i.Reporter) == "" {
		errs["reporter"] = "Reporter is required"
	}
	if i.Status != "" && !i.Status.Valid() {
		errs["status"] = fmt.Sprintf("Invalid status %q", i.Status)
	}
	if i.Priority != "" && !i.Priority.Valid() {
		errs["priority"] = fmt.Sprintf("Invalid priority %q", i.Priority)
	}
	if i.Type != "" && !i.Type.Valid() {
		errs["type"] = fmt.Sprintf("Invalid type %q", i.Type)
	}
	return errs.err()
}

// ValidateIssuePatch checks only the fields present in the patch.
func ValidateIssuePatch(p IssuePatch) error {
	errs := fieldErrors{}
	if p.Title != nil && strings.TrimSpace(*p.Title) == "" {
		errs["title"] = "Title is required"
	}
	if p.Description != nil && strings.TrimSpace(*p.Description) == "" {
		errs["description"] = "Description is required"
	}
	if p.Reporter != nil && strings.TrimSpace(*p.Reporter) == "" {
		errs["reporter"] = "Reporter is required"
	}
	if p.Status != nil && !p.Status.Valid() {
		errs["status"] = fmt.Sprintf("Invalid status %q", *p.Status)
	}
	if p.Priority != nil && !p.Priority.Valid() {
		errs["priority"] = fmt.Sprintf("Invalid priority %q", *p.Priority)
	}
	if p.Type != nil && !p.Type.Valid() {
		errs["type"] = fmt.Sprintf("Invalid type %q", *p.Type)
	}
	return errs.err()
}

func (f fieldErrors) commentContent(content string) {
	content = strings.TrimSpace(content)
	switch {
	case content == "":
		f["content"] = "Comment is required"
	case utf8.RuneCountInString(content) > MaxCommentLength:
		f["content"] = fmt.Sprintf("Comment must be at most %d characters", MaxCommentLength)
	}
}

// ValidateComment rejects empty or oversized comment content.
func ValidateComment(c *Comment) error {
	errs := fieldErrors{}
	errs.commentContent(c.Content)
	if c.IssueID <= 0 {
		errs["issueId"] = "Issue is required"
	}
	return errs.err()
}

// ValidateCommentContent checks edited comment text.
func ValidateCommentContent(content string) error {
	errs := fieldErrors{}
	errs.commentContent(content)
	return errs.err()
}

// ValidateUser checks the required user fields and the email shape.
func ValidateUser(u *User) error {
	errs := fieldErrors{}
	if strings.TrimSpace(u.Name) == "" {
		errs["Name"] = "Name is required"
	}
	email := strings.TrimSpace(u.Email)
	if email == "" {
		errs["email"] = "Email is required"
	} else if !ValidEmail(email) {
		errs["email"] = "Invalid email format"
	}
	return errs.err()
}

// ValidEmail reports whether s has the local@domain.tld shape: no whitespace,
// one '@' with text on both sides, and a dot with text on both sides of it
// somewhere in the domain part.
func ValidEmail(s string) bool {
	if strings.IndexFunc(s, unicode.IsSpace) >= 0 {
		return false
	}
	local, domain, ok := strings.Cut(s, "@")
	if !ok || local == "" || strings.Contains(domain, "@") {
		return false
	}
	if len(domain) < 3 {
		return false
	}
	return strings.Contains(domain[1:len(domain)-1], ".")
}
