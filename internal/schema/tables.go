package schema

import "github.com/joescharf/bugboard/internal/models"

// Issues maps models.Issue onto the issue_c table.
var Issues = Table{
	Name: "issue_c",
	Fields: []Field{
		{Internal: "Id", External: "Id", ReadOnly: true},
		{Internal: "title", External: "title_c"},
		{Internal: "description", External: "description_c"},
		{Internal: "type", External: "type_c"},
		{Internal: "priority", External: "priority_c"},
		{Internal: "status", External: "status_c"},
		{Internal: "assignee", External: "assignee_c"},
		{Internal: "reporter", External: "reporter_c"},
		{Internal: "dueDate", External: "due_date_c", ToInternal: Nullable, OmitEmpty: true},
		{Internal: "createdAt", External: "CreatedOn", ReadOnly: true},
		{Internal: "updatedAt", External: "ModifiedOn", ReadOnly: true},
	},
}

// Comments maps models.Comment onto the comment_c table.
var Comments = Table{
	Name: "comment_c",
	Fields: []Field{
		{Internal: "Id", External: "Id", ReadOnly: true},
		{Internal: "issueId", External: "issue_id_c", ToExternal: Ref, ToInternal: Ref},
		{Internal: "content", External: "content_c", OmitEmpty: true},
		{Internal: "createdBy", External: "created_by_c", ToExternal: Ref, ToInternal: Ref, OmitEmpty: true},
		{Internal: "createdOn", External: "created_on_c", Fallback: "CreatedOn", OmitEmpty: true},
		{Internal: "modifiedOn", External: "modified_on_c", Fallback: "ModifiedOn", OmitEmpty: true},
	},
}

// Users maps models.User onto the users_c table.
var Users = Table{
	Name: "users_c",
	Fields: []Field{
		{Internal: "Id", External: "Id", ReadOnly: true},
		{Internal: "Name", External: "Name"},
		{Internal: "first_name", External: "first_name_c", OmitEmpty: true},
		{Internal: "last_name", External: "last_name_c", OmitEmpty: true},
		{Internal: "email", External: "email_c"},
		{Internal: "Tags", External: "Tags", OmitEmpty: true},
		{Internal: "CreatedOn", External: "CreatedOn", ReadOnly: true},
		{Internal: "ModifiedOn", External: "ModifiedOn", ReadOnly: true},
	},
}

// Validate checks every table and its model binding.
func Validate() error {
	bindings := []struct {
		table Table
		model any
	}{
		{Issues, models.Issue{}},
		{Comments, models.Comment{}},
		{Users, models.User{}},
	}
	for _, b := range bindings {
		if err := b.table.Validate(); err != nil {
			return err
		}
		if err := b.table.Check(b.model); err != nil {
			return err
		}
	}
	return nil
}
