package llm

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joescharf/bugboard/internal/models"
)

func TestBuildTriagePrompt(t *testing.T) {
	t.Run("with description", func(t *testing.T) {
		system, user := buildTriagePrompt("Login fails", "500 when submitting the form")

		assert.Contains(t, system, "JSON object")
		assert.Contains(t, system, `"bug", "feature", "task"`)
		assert.Contains(t, system, `"low", "medium", "high", "critical"`)
		assert.Contains(t, system, `"rationale"`)

		assert.Contains(t, user, "Issue title: Login fails")
		assert.Contains(t, user, "500 when submitting the form")
	})

	t.Run("title only", func(t *testing.T) {
		_, user := buildTriagePrompt("Add dark mode", "")
		assert.Contains(t, user, "Add dark mode")
		assert.NotContains(t, user, "Description:")
	})
}

func TestBuildExtractPrompt(t *testing.T) {
	system, user := buildExtractPrompt("1. Fix crash\n2. Add export")
	assert.Contains(t, system, "JSON array")
	assert.Contains(t, system, `"title"`)
	assert.Contains(t, user, "Fix crash")
}

func TestStripFence(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{`{"a":1}`, `{"a":1}`},
		{"```json\n{\"a\":1}\n```", `{"a":1}`},
		{"  ```\n[1]\n```  ", `[1]`},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, stripFence(tt.in))
	}
}

func TestSuggestionPatch(t *testing.T) {
	s := &Suggestion{Type: "bug", Priority: "urgent", Description: "  Crash on login.  "}
	p := s.Patch()

	require.NotNil(t, p.Type)
	assert.Equal(t, models.IssueTypeBug, *p.Type)
	assert.Nil(t, p.Priority)
	require.NotNil(t, p.Description)
	assert.Equal(t, "Crash on login.", *p.Description)
	assert.Nil(t, p.Status)

	assert.True(t, (&Suggestion{}).Patch().Empty())
}

func TestTriage_ParsesFencedResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "msg_1", "type": "message", "role": "assistant", "model": "test",
			"stop_reason": "end_turn",
			"content": [{"type": "text", "text": "` + "```json\\n{\\\"type\\\":\\\"bug\\\",\\\"priority\\\":\\\"high\\\",\\\"description\\\":\\\"Login returns 500.\\\",\\\"rationale\\\":\\\"Broken core flow.\\\"}\\n```" + `"}],
			"usage": {"input_tokens": 1, "output_tokens": 1}
		}`))
	}))
	defer srv.Close()

	c := NewClient("test-key", "", option.WithBaseURL(srv.URL), option.WithMaxRetries(0))
	s, err := c.Triage(context.Background(), "Login fails", "")
	require.NoError(t, err)
	assert.Equal(t, models.IssueTypeBug, s.Type)
	assert.Equal(t, models.IssuePriorityHigh, s.Priority)
	assert.Equal(t, "Login returns 500.", s.Description)
}

func TestTriage_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"type":"error","error":{"type":"authentication_error","message":"bad key"}}`))
	}))
	defer srv.Close()

	c := NewClient("bad", "", option.WithBaseURL(srv.URL), option.WithMaxRetries(0))
	_, err := c.Triage(context.Background(), "x", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "anthropic API call")
}
