package viewmodel

import "github.com/joescharf/bugboard/internal/models"

// Counts maps every enum value to the number of issues carrying it.
type Counts struct {
	Status   map[models.IssueStatus]int   `json:"status"`
	Priority map[models.IssuePriority]int `json:"priority"`
	Type     map[models.IssueType]int     `json:"type"`
}

// CountAll tallies the full collection. Every known value is present, with
// zero when no issue has it.
func CountAll(issues []*models.Issue) Counts {
	c := Counts{
		Status:   make(map[models.IssueStatus]int, len(models.IssueStatuses)),
		Priority: make(map[models.IssuePriority]int, len(models.IssuePriorities)),
		Type:     make(map[models.IssueType]int, len(models.IssueTypes)),
	}
	for _, s := range models.IssueStatuses {
		c.Status[s] = 0
	}
	for _, p := range models.IssuePriorities {
		c.Priority[p] = 0
	}
	for _, t := range models.IssueTypes {
		c.Type[t] = 0
	}
	for _, issue := range issues {
		if _, ok := c.Status[issue.Status]; ok {
			c.Status[issue.Status]++
		}
		if _, ok := c.Priority[issue.Priority]; ok {
			c.Priority[issue.Priority]++
		}
		if _, ok := c.Type[issue.Type]; ok {
			c.Type[issue.Type]++
		}
	}
	return c
}

// Stats are the headline numbers shown above the list.
type Stats struct {
	Total      int `json:"total"`
	Open       int `json:"open"`
	InProgress int `json:"inProgress"`
	Critical   int `json:"critical"`
}

// Summarize computes Stats over the full collection.
func Summarize(issues []*models.Issue) Stats {
	s := Stats{Total: len(issues)}
	for _, issue := range issues {
		switch issue.Status {
		case models.IssueStatusOpen:
			s.Open++
		case models.IssueStatusInProgress:
			s.InProgress++
		}
		if issue.Priority == models.IssuePriorityCritical {
			s.Critical++
		}
	}
	return s
}

// View is everything one render of the list needs.
type View struct {
	Issues []*models.Issue `json:"issues"`
	Counts Counts          `json:"counts"`
	Stats  Stats           `json:"stats"`
}

// Build derives the visible list and computes counts and stats over the
// unfiltered collection.
func Build(issues []*models.Issue, q Query) View {
	return View{
		Issues: Derive(issues, q),
		Counts: CountAll(issues),
		Stats:  Summarize(issues),
	}
}
