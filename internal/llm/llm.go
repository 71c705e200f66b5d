package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/joescharf/bugboard/internal/models"
)

// DefaultModel is used when no model is configured.
const DefaultModel = "claude-haiku-4-5"

// Client wraps the Anthropic API for issue triage and extraction.
type Client struct {
	api   *anthropic.Client
	model anthropic.Model
}

// NewClient creates an LLM client with the given API key and model.
func NewClient(apiKey, model string, opts ...option.RequestOption) *Client {
	if apiKey != "" {
		opts = append(opts, option.WithAPIKey(apiKey))
	}
	if model == "" {
		model = DefaultModel
	}
	client := anthropic.NewClient(opts...)
	return &Client{
		api:   &client,
		model: anthropic.Model(model),
	}
}

// Suggestion is the LLM's triage of a single issue.
type Suggestion struct {
	Type        models.IssueType     `json:"type"`
	Priority    models.IssuePriority `json:"priority"`
	Description string               `json:"description"`
	Rationale   string               `json:"rationale"`
}

// Patch converts the suggestion into an issue patch, skipping values that
// are not valid enum members or are empty.
func (s *Suggestion) Patch() models.IssuePatch {
	var p models.IssuePatch
	if s.Type.Valid() {
		t := s.Type
		p.Type = &t
	}
	if s.Priority.Valid() {
		pr := s.Priority
		p.Priority = &pr
	}
	if d := strings.TrimSpace(s.Description); d != "" {
		p.Description = &d
	}
	return p
}

func buildTriagePrompt(title, description string) (system string, user string) {
	system = `You triage bug tracker issues. Given an issue's title and description, return a JSON object with exactly these fields:

- "type": one of "bug", "feature", "task"
- "priority": one of "low", "medium", "high", "critical"
- "description": a clear 1-3 sentence description suitable for the tracker. Improve the existing description if there is one; otherwise write one from the title.
- "rationale": one sentence explaining the type and priority

Rules:
- Problems and regressions are "bug", new capabilities are "feature", everything else is "task"
- Use "critical" only for data loss, security issues or complete outages
- Default priority to "medium" unless the text suggests otherwise
- Return valid JSON only, no markdown fencing or explanation`

	var sb strings.Builder
	sb.WriteString("Issue title: ")
	sb.WriteString(title)
	sb.WriteString("\n")
	if description != "" {
		sb.WriteString("\nDescription:\n")
		sb.WriteString(description)
		sb.WriteString("\n")
	}
	user = sb.String()
	return
}

// Triage asks the LLM for a type, priority and description.
func (c *Client) Triage(ctx context.Context, title, description string) (*Suggestion, error) {
	system, user := buildTriagePrompt(title, description)
	var s Suggestion
	if err := c.complete(ctx, system, user, 1024, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// ExtractedIssue is one issue found in free-form text.
type ExtractedIssue struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Type        string `json:"type"`
	Priority    string `json:"priority"`
}

func buildExtractPrompt(content string) (system string, user string) {
	system = `You extract structured issues from markdown notes. Return ONLY a JSON array of objects with these fields:
- "title": concise issue title
- "description": what the problem or request is, including any details from the notes
- "type": one of "bug", "feature", "task"
- "priority": one of "low", "medium", "high", "critical"

Rules:
- Each numbered/bulleted item is one issue
- Default priority to "medium" unless context suggests otherwise
- Never create placeholder issues like "N/A"
- Return valid JSON only, no markdown fencing or explanation`

	user = "Extract issues from this markdown:\n\n" + content
	return
}

// ExtractIssues turns markdown notes into issues.
func (c *Client) ExtractIssues(ctx context.Context, content string) ([]ExtractedIssue, error) {
	system, user := buildExtractPrompt(content)
	var issues []ExtractedIssue
	if err := c.complete(ctx, system, user, 4096, &issues); err != nil {
		return nil, err
	}
	return issues, nil
}

func (c *Client) complete(ctx context.Context, system, user string, maxTokens int64, out any) error {
	msg, err := c.api.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     c.model,
		MaxTokens: maxTokens,
		System: []anthropic.TextBlockParam{
			{Text: system},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(user)),
		},
	})
	if err != nil {
		return fmt.Errorf("anthropic API call: %w", err)
	}

	var text string
	for _, block := range msg.Content {
		if block.Type == "text" {
			text = block.Text
			break
		}
	}
	if text == "" {
		return fmt.Errorf("no text content in API response")
	}

	text = stripFence(text)
	if err := json.Unmarshal([]byte(text), out); err != nil {
		return fmt.Errorf("parse LLM response as JSON: %w\nraw response: %s", err, text)
	}
	return nil
}

// stripFence removes a surrounding markdown code fence, if any.
func stripFence(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	lines := strings.SplitN(text, "\n", 2)
	if len(lines) > 1 {
		text = lines[1]
	}
	if idx := strings.LastIndex(text, "```"); idx >= 0 {
		text = text[:idx]
	}
	return strings.TrimSpace(text)
}
