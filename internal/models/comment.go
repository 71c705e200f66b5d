package models

import "time"

// MaxCommentLength is the maximum number of characters in a comment.
const MaxCommentLength = 5000

// Comment is a note attached to exactly one issue.
type Comment struct {
	ID         int       `json:"Id"`
	IssueID    int       `json:"issueId"`
	Content    string    `json:"content"`
	CreatedBy  *int      `json:"createdBy"`
	CreatedOn  time.Time `json:"createdOn"`
	ModifiedOn time.Time `json:"modifiedOn"`
}
