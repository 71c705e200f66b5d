package cmd

import (
	"strings"

	"github.com/joescharf/bugboard/internal/llm"
	"github.com/joescharf/bugboard/internal/models"
)

func containsAny(s string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}

// classifyIssueType infers the issue type from text using keyword heuristics.
// Bug keywords are checked before task keywords (e.g., "fix the migration" = bug).
// Defaults to feature if no keywords match.
func classifyIssueType(text string) models.IssueType {
	lower := strings.ToLower(text)

	bugKeywords := []string{
		"issue with", "not working", "doesn't work", "does not work",
		"fix ", "fix:", "fixed", "fixes", "fixing",
		"bug", "broken", "crash", "error", "exception",
		"regression", "fail", "fault", "defect", "wrong",
	}
	if containsAny(lower, bugKeywords) || strings.HasSuffix(lower, "fix") {
		return models.IssueTypeBug
	}

	taskKeywords := []string{
		"refactor", "cleanup", "clean up", "update dep", "migrate",
		"upgrade", "rename", "reorganize", "chore", "lint",
		"document", "docs", "write tests", "bump",
	}
	if containsAny(lower, taskKeywords) {
		return models.IssueTypeTask
	}

	return models.IssueTypeFeature
}

// classifyIssuePriority infers the priority from text using keyword heuristics.
// More severe keywords win. Defaults to medium.
func classifyIssuePriority(text string) models.IssuePriority {
	lower := strings.ToLower(text)

	switch {
	case containsAny(lower, []string{
		"critical", "data loss", "production down", "outage",
		"security", "vulnerability", "p0",
	}):
		return models.IssuePriorityCritical
	case containsAny(lower, []string{
		"urgent", "blocker", "blocking", "crash", "asap", "p1",
	}):
		return models.IssuePriorityHigh
	case containsAny(lower, []string{
		"minor", "nice to have", "cosmetic", "trivial",
		"low priority", "cleanup", "clean up", "typo",
	}):
		return models.IssuePriorityLow
	}
	return models.IssuePriorityMedium
}

// classifyIssue is the offline stand-in for LLM triage.
func classifyIssue(title, description string) *llm.Suggestion {
	text := title + "\n" + description
	return &llm.Suggestion{
		Type:      classifyIssueType(text),
		Priority:  classifyIssuePriority(text),
		Rationale: "keyword heuristics (no LLM configured)",
	}
}
