package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/joescharf/bugboard/internal/board"
	"github.com/joescharf/bugboard/internal/models"
	"github.com/joescharf/bugboard/internal/store"
	"github.com/joescharf/bugboard/internal/viewmodel"
)

// Server exposes the issue tracker as MCP tools.
type Server struct {
	store   store.Store
	board   *board.Board
	version string
}

// NewServer creates the MCP server wrapper. The board is reloaded before
// every board tool call so moves always start from the store's state.
func NewServer(s store.Store, b *board.Board, version string) *Server {
	if version == "" {
		version = "dev"
	}
	return &Server{store: s, board: b, version: version}
}

// MCPServer returns a configured mcp-go server with all tools registered.
func (s *Server) MCPServer() *server.MCPServer {
	srv := server.NewMCPServer("bugboard", s.version, server.WithToolCapabilities(true))

	srv.AddTool(s.listIssuesTool())
	srv.AddTool(s.getIssueTool())
	srv.AddTool(s.createIssueTool())
	srv.AddTool(s.updateIssueTool())
	srv.AddTool(s.addCommentTool())
	srv.AddTool(s.boardTool())
	srv.AddTool(s.moveIssueTool())
	srv.AddTool(s.statsTool())

	return srv
}

// ServeStdio starts the stdio transport, blocking until ctx is cancelled.
func (s *Server) ServeStdio(ctx context.Context) error {
	stdioServer := server.NewStdioServer(s.MCPServer())
	return stdioServer.Listen(ctx, os.Stdin, os.Stdout)
}

func jsonResult(v any, what string) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal %s: %v", what, err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// splitList accepts "a,b" as well as a single value.
func splitList(s string) []string {
	var out []string
	for _, v := range strings.Split(s, ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func queryFromRequest(request mcp.CallToolRequest) (viewmodel.Query, error) {
	q := viewmodel.Query{
		Search: request.GetString("search", ""),
		Sort:   viewmodel.DefaultSort,
	}
	for _, v := range splitList(request.GetString("status", "")) {
		st, err := models.ParseIssueStatus(v)
		if err != nil {
			return q, err
		}
		q.Filters.Status = append(q.Filters.Status, st)
	}
	for _, v := range splitList(request.GetString("priority", "")) {
		p, err := models.ParseIssuePriority(v)
		if err != nil {
			return q, err
		}
		q.Filters.Priority = append(q.Filters.Priority, p)
	}
	for _, v := range splitList(request.GetString("type", "")) {
		t, err := models.ParseIssueType(v)
		if err != nil {
			return q, err
		}
		q.Filters.Type = append(q.Filters.Type, t)
	}
	if key := request.GetString("sort", ""); key != "" {
		q.Sort = viewmodel.Sort{Key: key, Direction: viewmodel.Desc}
	}
	switch dir := request.GetString("direction", ""); dir {
	case "":
	case string(viewmodel.Asc), string(viewmodel.Desc):
		q.Sort.Direction = viewmodel.Direction(dir)
	default:
		return q, fmt.Errorf("invalid direction %q: must be asc or desc", dir)
	}
	return q, nil
}

// bugboard_list_issues
func (s *Server) listIssuesTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("bugboard_list_issues",
		mcp.WithDescription("Search, filter and sort issues. Returns JSON with the matching issues plus counts per status, priority and type over the whole collection, and summary stats. Filters take comma-separated values; values within one filter are OR-ed, different filters are AND-ed."),
		mcp.WithString("search", mcp.Description("Case-insensitive substring matched against title and description")),
		mcp.WithString("status", mcp.Description("Status filter: open, in-progress, testing, resolved, closed")),
		mcp.WithString("priority", mcp.Description("Priority filter: low, medium, high, critical")),
		mcp.WithString("type", mcp.Description("Type filter: bug, feature, task")),
		mcp.WithString("sort", mcp.Description("Sort key, e.g. Id, title, priority, createdAt, dueDate (default: Id)")),
		mcp.WithString("direction", mcp.Description("Sort direction: asc or desc (default: desc)")),
	)
	return tool, s.handleListIssues
}

func (s *Server) handleListIssues(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	q, err := queryFromRequest(request)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	issues, err := s.store.ListIssues(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to list issues: %v", err)), nil
	}
	return jsonResult(viewmodel.Build(issues, q), "issues")
}

// bugboard_get_issue
func (s *Server) getIssueTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("bugboard_get_issue",
		mcp.WithDescription("Get one issue with its comments, newest comment first."),
		mcp.WithNumber("id", mcp.Required(), mcp.Description("Issue ID")),
	)
	return tool, s.handleGetIssue
}

func (s *Server) handleGetIssue(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireInt("id")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: id"), nil
	}
	issue, err := s.store.GetIssue(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("issue not found: %d", id)), nil
	}
	comments, err := s.store.ListComments(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to list comments: %v", err)), nil
	}
	if comments == nil {
		comments = []*models.Comment{}
	}
	return jsonResult(map[string]any{"issue": issue, "comments": comments}, "issue")
}

// bugboard_create_issue
func (s *Server) createIssueTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("bugboard_create_issue",
		mcp.WithDescription("Create a new issue. New issues start open. Returns the created issue as JSON."),
		mcp.WithString("title", mcp.Required(), mcp.Description("Issue title")),
		mcp.WithString("description", mcp.Required(), mcp.Description("Issue description")),
		mcp.WithString("reporter", mcp.Required(), mcp.Description("Who reported the issue")),
		mcp.WithString("assignee", mcp.Description("Who the issue is assigned to")),
		mcp.WithString("type", mcp.Description("Issue type: bug, feature, task (default: task)")),
		mcp.WithString("priority", mcp.Description("Issue priority: low, medium, high, critical (default: medium)")),
	)
	return tool, s.handleCreateIssue
}

func (s *Server) handleCreateIssue(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	title, err := request.RequireString("title")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: title"), nil
	}

	issue := &models.Issue{
		Title:       title,
		Description: request.GetString("description", ""),
		Reporter:    request.GetString("reporter", ""),
		Assignee:    request.GetString("assignee", ""),
		Type:        models.IssueType(request.GetString("type", "")),
		Priority:    models.IssuePriority(request.GetString("priority", "")),
	}
	issue.ApplyDefaults()
	issue.Status = models.IssueStatusOpen
	if err := models.ValidateIssue(issue); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	created, err := s.store.CreateIssue(ctx, issue)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to create issue: %v", err)), nil
	}
	return jsonResult(created, "issue")
}

// bugboard_update_issue
func (s *Server) updateIssueTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("bugboard_update_issue",
		mcp.WithDescription("Update fields of an existing issue. Only the provided fields change. Returns the updated issue as JSON."),
		mcp.WithNumber("id", mcp.Required(), mcp.Description("Issue ID")),
		mcp.WithString("title", mcp.Description("New title")),
		mcp.WithString("description", mcp.Description("New description")),
		mcp.WithString("assignee", mcp.Description("New assignee")),
		mcp.WithString("status", mcp.Description("New status: open, in-progress, testing, resolved, closed")),
		mcp.WithString("priority", mcp.Description("New priority: low, medium, high, critical")),
		mcp.WithString("type", mcp.Description("New type: bug, feature, task")),
	)
	return tool, s.handleUpdateIssue
}

func (s *Server) handleUpdateIssue(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireInt("id")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: id"), nil
	}

	args := request.GetArguments()
	var patch models.IssuePatch
	str := func(key string) *string {
		if _, ok := args[key]; !ok {
			return nil
		}
		v := request.GetString(key, "")
		return &v
	}
	patch.Title = str("title")
	patch.Description = str("description")
	patch.Assignee = str("assignee")
	if v := str("status"); v != nil {
		st := models.IssueStatus(*v)
		patch.Status = &st
	}
	if v := str("priority"); v != nil {
		p := models.IssuePriority(*v)
		patch.Priority = &p
	}
	if v := str("type"); v != nil {
		t := models.IssueType(*v)
		patch.Type = &t
	}

	if patch.Empty() {
		return mcp.NewToolResultError("no fields provided to update; specify at least one of: title, description, assignee, status, priority, type"), nil
	}
	if err := models.ValidateIssuePatch(patch); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	updated, err := s.store.UpdateIssue(ctx, id, patch)
	if errors.Is(err, store.ErrNotFound) {
		return mcp.NewToolResultError(fmt.Sprintf("issue not found: %d", id)), nil
	}
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to update issue: %v", err)), nil
	}
	return jsonResult(updated, "issue")
}

// bugboard_add_comment
func (s *Server) addCommentTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("bugboard_add_comment",
		mcp.WithDescription("Add a comment to an issue. Returns the created comment as JSON."),
		mcp.WithNumber("id", mcp.Required(), mcp.Description("Issue ID")),
		mcp.WithString("content", mcp.Required(), mcp.Description("Comment text, at most 5000 characters")),
	)
	return tool, s.handleAddComment
}

func (s *Server) handleAddComment(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireInt("id")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: id"), nil
	}
	content := strings.TrimSpace(request.GetString("content", ""))
	if err := models.ValidateCommentContent(content); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if _, err := s.store.GetIssue(ctx, id); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("issue not found: %d", id)), nil
	}
	c, err := s.store.CreateComment(ctx, &models.Comment{IssueID: id, Content: content})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to add comment: %v", err)), nil
	}
	return jsonResult(c, "comment")
}

// bugboard_board
func (s *Server) boardTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("bugboard_board",
		mcp.WithDescription("Show the kanban board: one column per status in workflow order (open, in-progress, testing, resolved, closed), each with its issues."),
	)
	return tool, s.handleBoard
}

type cardOut struct {
	ID       int    `json:"id"`
	Title    string `json:"title"`
	Priority string `json:"priority"`
	Type     string `json:"type"`
	Assignee string `json:"assignee,omitempty"`
}

type columnOut struct {
	Status string    `json:"status"`
	Title  string    `json:"title"`
	Count  int       `json:"count"`
	Issues []cardOut `json:"issues"`
}

func (s *Server) handleBoard(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if err := s.board.Load(ctx); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to load board: %v", err)), nil
	}

	cols := s.board.Columns()
	out := make([]columnOut, len(cols))
	for i, c := range cols {
		cards := make([]cardOut, len(c.Issues))
		for j, issue := range c.Issues {
			cards[j] = cardOut{
				ID:       issue.ID,
				Title:    issue.Title,
				Priority: string(issue.Priority),
				Type:     string(issue.Type),
				Assignee: issue.Assignee,
			}
		}
		out[i] = columnOut{Status: string(c.Status), Title: c.Title, Count: len(cards), Issues: cards}
	}
	return jsonResult(out, "board")
}

// bugboard_move_issue
func (s *Server) moveIssueTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("bugboard_move_issue",
		mcp.WithDescription("Move an issue to another board column. The status change is applied only after the store confirms it. Moving to the issue's current column is a no-op."),
		mcp.WithNumber("id", mcp.Required(), mcp.Description("Issue ID")),
		mcp.WithString("column", mcp.Required(), mcp.Description("Target column: open, in-progress, testing, resolved, closed")),
	)
	return tool, s.handleMoveIssue
}

func (s *Server) handleMoveIssue(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireInt("id")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: id"), nil
	}
	column, err := request.RequireString("column")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: column"), nil
	}

	if err := s.board.Load(ctx); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to load board: %v", err)), nil
	}
	res, err := s.board.Move(ctx, id, column)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(res, "move result")
}

// bugboard_stats
func (s *Server) statsTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("bugboard_stats",
		mcp.WithDescription("Dashboard summary: totals, open/in-progress/critical counts, distributions by status, priority and type, and the most recent issues."),
		mcp.WithNumber("recent", mcp.Description("How many recent issues to include (default: 5)")),
	)
	return tool, s.handleStats
}

func (s *Server) handleStats(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	issues, err := s.store.ListIssues(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to list issues: %v", err)), nil
	}
	n := request.GetInt("recent", viewmodel.RecentIssues)
	return jsonResult(viewmodel.BuildDashboard(issues, n), "stats")
}
