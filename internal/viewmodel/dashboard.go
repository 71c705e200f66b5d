package viewmodel

import "github.com/joescharf/bugboard/internal/models"

// RecentIssues is how many issues the dashboard lists by default.
const RecentIssues = 5

// Bucket is one slice of a distribution chart.
type Bucket struct {
	Label string `json:"label"`
	Value string `json:"value"`
	Count int    `json:"count"`
}

// Dashboard is the overview page data.
type Dashboard struct {
	Stats    Stats           `json:"stats"`
	Resolved int             `json:"resolved"`
	Status   []Bucket        `json:"status"`
	Priority []Bucket        `json:"priority"`
	Type     []Bucket        `json:"type"`
	Recent   []*models.Issue `json:"recent"`
}

var dashboardPriorities = []models.IssuePriority{
	models.IssuePriorityCritical,
	models.IssuePriorityHigh,
	models.IssuePriorityMedium,
	models.IssuePriorityLow,
}

// BuildDashboard summarizes issues. Priorities are listed most severe first;
// recent is the first n issues in collection order.
func BuildDashboard(issues []*models.Issue, n int) Dashboard {
	counts := CountAll(issues)
	d := Dashboard{
		Stats:    Summarize(issues),
		Resolved: counts.Status[models.IssueStatusResolved],
	}
	for _, s := range models.IssueStatuses {
		d.Status = append(d.Status, Bucket{Label: s.Label(), Value: string(s), Count: counts.Status[s]})
	}
	for _, p := range dashboardPriorities {
		d.Priority = append(d.Priority, Bucket{Label: p.Label(), Value: string(p), Count: counts.Priority[p]})
	}
	for _, t := range models.IssueTypes {
		d.Type = append(d.Type, Bucket{Label: t.Label(), Value: string(t), Count: counts.Type[t]})
	}
	n = max(0, min(n, len(issues)))
	d.Recent = append([]*models.Issue{}, issues[:n]...)
	return d
}
