package models

import (
	"strings"
	"time"
)

// User is a person who can report, be assigned, or comment on issues.
type User struct {
	ID         int       `json:"Id"`
	Name       string    `json:"Name"`
	FirstName  string    `json:"first_name,omitempty"`
	LastName   string    `json:"last_name,omitempty"`
	Email      string    `json:"email"`
	Tags       string    `json:"Tags,omitempty"`
	CreatedOn  time.Time `json:"CreatedOn"`
	ModifiedOn time.Time `json:"ModifiedOn"`
}

// TagList splits the comma-separated Tags field, dropping blanks.
func (u *User) TagList() []string {
	var tags []string
	for _, t := range strings.Split(u.Tags, ",") {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}

// Normalize trims every text field the way the user form submits them.
func (u *User) Normalize() {
	u.Name = strings.TrimSpace(u.Name)
	u.FirstName = strings.TrimSpace(u.FirstName)
	u.LastName = strings.TrimSpace(u.LastName)
	u.Email = strings.TrimSpace(u.Email)
	u.Tags = strings.TrimSpace(u.Tags)
}
