package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/joescharf/bugboard/internal/board"
	"github.com/joescharf/bugboard/internal/llm"
	"github.com/joescharf/bugboard/internal/models"
	"github.com/joescharf/bugboard/internal/notify"
	"github.com/joescharf/bugboard/internal/store"
	"github.com/joescharf/bugboard/internal/viewmodel"
)

// Triager suggests a type, priority and description for an issue.
type Triager interface {
	Triage(ctx context.Context, title, description string) (*llm.Suggestion, error)
}

// Server provides the REST API handlers.
type Server struct {
	store  store.Store
	board  *board.Board
	notes  *notify.Queue
	triage Triager
	log    *slog.Logger
}

// NewServer creates a new API server. The board and queue must share the
// store s. triage may be nil if no API key is configured.
func NewServer(s store.Store, b *board.Board, q *notify.Queue, triage Triager, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		store:  s,
		board:  b,
		notes:  q,
		triage: triage,
		log:    logger,
	}
}

// Router returns an http.Handler for the API routes.
func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/v1/issues", s.listIssues)
	mux.HandleFunc("POST /api/v1/issues", s.createIssue)
	mux.HandleFunc("POST /api/v1/issues/bulk-update", s.bulkUpdateIssues)
	mux.HandleFunc("GET /api/v1/issues/{id}", s.getIssue)
	mux.HandleFunc("PUT /api/v1/issues/{id}", s.updateIssue)
	mux.HandleFunc("DELETE /api/v1/issues/{id}", s.deleteIssue)
	mux.HandleFunc("POST /api/v1/issues/{id}/triage", s.triageIssue)

	mux.HandleFunc("GET /api/v1/issues/{id}/comments", s.listComments)
	mux.HandleFunc("POST /api/v1/issues/{id}/comments", s.createComment)
	mux.HandleFunc("PUT /api/v1/comments/{id}", s.updateComment)
	mux.HandleFunc("DELETE /api/v1/comments/{id}", s.deleteComment)

	mux.HandleFunc("GET /api/v1/board", s.getBoard)
	mux.HandleFunc("POST /api/v1/board/move", s.moveIssue)

	mux.HandleFunc("GET /api/v1/dashboard", s.dashboard)

	mux.HandleFunc("GET /api/v1/users", s.listUsers)
	mux.HandleFunc("POST /api/v1/users", s.createUser)
	mux.HandleFunc("GET /api/v1/users/{id}", s.getUser)
	mux.HandleFunc("PUT /api/v1/users/{id}", s.updateUser)
	mux.HandleFunc("DELETE /api/v1/users/{id}", s.deleteUser)

	mux.HandleFunc("GET /api/v1/notifications", s.listNotifications)
	mux.HandleFunc("DELETE /api/v1/notifications/{id}", s.dismissNotification)

	return corsMiddleware(mux)
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeInvalid(w http.ResponseWriter, ve *models.ValidationError) {
	writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
		"error":  ve.Error(),
		"fields": ve.Fields,
	})
}

// fail maps err onto a response. Store failures are logged and, when notice
// is non-empty, pushed to the notification queue.
func (s *Server) fail(w http.ResponseWriter, err error, notice string) {
	var ve *models.ValidationError
	switch {
	case errors.As(err, &ve):
		writeInvalid(w, ve)
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	default:
		s.log.Error("store request failed", "error", err)
		if notice != "" {
			s.notes.Error(notice)
		}
		writeError(w, http.StatusBadGateway, err.Error())
	}
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return false
	}
	return true
}

func pathID(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid id")
		return 0, false
	}
	return id, true
}

// queryValues splits repeated and comma-separated query values.
func queryValues(r *http.Request, key string) []string {
	var out []string
	for _, v := range r.URL.Query()[key] {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func parseAll[T any](vals []string, parse func(string) (T, error), field string, errs map[string]string) []T {
	out := make([]T, 0, len(vals))
	for _, v := range vals {
		parsed, err := parse(v)
		if err != nil {
			errs[field] = err.Error()
			continue
		}
		out = append(out, parsed)
	}
	return out
}

// parseQuery reads the list view state from the URL.
func parseQuery(r *http.Request) (viewmodel.Query, error) {
	errs := map[string]string{}
	q := viewmodel.Query{
		Search: strings.TrimSpace(r.URL.Query().Get("q")),
		Filters: viewmodel.Filters{
			Status:   parseAll(queryValues(r, "status"), models.ParseIssueStatus, "status", errs),
			Priority: parseAll(queryValues(r, "priority"), models.ParseIssuePriority, "priority", errs),
			Type:     parseAll(queryValues(r, "type"), models.ParseIssueType, "type", errs),
		},
		Sort: viewmodel.DefaultSort,
	}
	if len(errs) > 0 {
		return q, &models.ValidationError{Fields: errs}
	}
	if key := r.URL.Query().Get("sort"); key != "" {
		q.Sort = viewmodel.Sort{Key: key, Direction: viewmodel.Desc}
	}
	switch r.URL.Query().Get("dir") {
	case "asc":
		q.Sort.Direction = viewmodel.Asc
	case "desc":
		q.Sort.Direction = viewmodel.Desc
	}
	return q, nil
}

// --- Issues ---

func (s *Server) listIssues(w http.ResponseWriter, r *http.Request) {
	q, err := parseQuery(r)
	if err != nil {
		s.fail(w, err, "")
		return
	}
	issues, err := s.store.ListIssues(r.Context())
	if err != nil {
		s.log.Error("list issues", "error", err)
		s.notes.Error("Failed to load issues")
		writeJSON(w, http.StatusBadGateway, map[string]any{"error": err.Error(), "retry": true})
		return
	}
	writeJSON(w, http.StatusOK, viewmodel.Build(issues, q))
}

func (s *Server) createIssue(w http.ResponseWriter, r *http.Request) {
	var issue models.Issue
	if !decode(w, r, &issue) {
		return
	}
	if err := models.ValidateIssue(&issue); err != nil {
		s.fail(w, err, "")
		return
	}
	created, err := s.store.CreateIssue(r.Context(), &issue)
	if err != nil {
		s.fail(w, err, "Failed to save issue. Please try again.")
		return
	}
	s.notes.Success("Issue created successfully!")
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) getIssue(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	issue, err := s.store.GetIssue(r.Context(), id)
	if err != nil {
		s.fail(w, err, "")
		return
	}
	writeJSON(w, http.StatusOK, issue)
}

func (s *Server) updateIssue(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var patch models.IssuePatch
	if !decode(w, r, &patch) {
		return
	}
	if err := models.ValidateIssuePatch(patch); err != nil {
		s.fail(w, err, "")
		return
	}
	updated, err := s.store.UpdateIssue(r.Context(), id, patch)
	if err == nil && updated == nil {
		err = store.ErrNotFound
	}
	if err != nil {
		s.fail(w, err, "Failed to save issue. Please try again.")
		return
	}
	s.notes.Success("Issue updated successfully!")
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) deleteIssue(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	deleted, err := s.store.DeleteIssue(r.Context(), id)
	if err != nil {
		s.fail(w, err, "Failed to delete issue")
		return
	}
	if !deleted {
		s.notes.Error("Failed to delete issue")
		writeError(w, http.StatusNotFound, "issue not found")
		return
	}
	s.notes.Success("Issue deleted successfully!")
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) bulkUpdateIssues(w http.ResponseWriter, r *http.Request) {
	var req struct {
		IDs []int `json:"ids"`
		models.IssuePatch
	}
	if !decode(w, r, &req) {
		return
	}
	if len(req.IDs) == 0 {
		writeInvalid(w, &models.ValidationError{Fields: map[string]string{"ids": "ids is required"}})
		return
	}
	if req.IssuePatch.Empty() {
		writeInvalid(w, &models.ValidationError{Fields: map[string]string{"patch": "no fields to update"}})
		return
	}
	if err := models.ValidateIssuePatch(req.IssuePatch); err != nil {
		s.fail(w, err, "")
		return
	}
	updated, err := s.store.BulkUpdateIssues(r.Context(), req.IDs, req.IssuePatch)
	if err != nil {
		s.fail(w, err, "Failed to update issues")
		return
	}
	if updated == nil {
		updated = []*models.Issue{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"updated": len(updated), "issues": updated})
}

func (s *Server) triageIssue(w http.ResponseWriter, r *http.Request) {
	if s.triage == nil {
		writeError(w, http.StatusServiceUnavailable, "LLM not configured (set ANTHROPIC_API_KEY)")
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	issue, err := s.store.GetIssue(r.Context(), id)
	if err != nil {
		s.fail(w, err, "")
		return
	}

	suggestion, err := s.triage.Triage(r.Context(), issue.Title, issue.Description)
	if err != nil {
		s.log.Error("triage issue", "id", id, "error", err)
		writeError(w, http.StatusBadGateway, "LLM triage failed: "+err.Error())
		return
	}

	if r.URL.Query().Get("apply") == "true" {
		if patch := suggestion.Patch(); !patch.Empty() {
			if issue, err = s.store.UpdateIssue(r.Context(), id, patch); err != nil {
				s.fail(w, err, "Failed to save issue. Please try again.")
				return
			}
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"suggestion": suggestion, "issue": issue})
}

// --- Comments ---

func (s *Server) listComments(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	comments, err := s.store.ListComments(r.Context(), id)
	if err != nil {
		s.fail(w, err, "Failed to load comments")
		return
	}
	if comments == nil {
		comments = []*models.Comment{}
	}
	writeJSON(w, http.StatusOK, comments)
}

func (s *Server) createComment(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var c models.Comment
	if !decode(w, r, &c) {
		return
	}
	c.IssueID = id
	if err := models.ValidateComment(&c); err != nil {
		s.fail(w, err, "")
		return
	}
	if _, err := s.store.GetIssue(r.Context(), id); err != nil {
		s.fail(w, err, "Failed to add comment")
		return
	}
	created, err := s.store.CreateComment(r.Context(), &c)
	if err != nil {
		s.fail(w, err, "Failed to add comment")
		return
	}
	s.notes.Success("Comment added successfully")
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) updateComment(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req struct {
		Content string `json:"content"`
	}
	if !decode(w, r, &req) {
		return
	}
	if err := models.ValidateCommentContent(req.Content); err != nil {
		s.fail(w, err, "")
		return
	}
	updated, err := s.store.UpdateComment(r.Context(), id, req.Content)
	if err != nil {
		s.fail(w, err, "Failed to update comment")
		return
	}
	s.notes.Success("Comment updated successfully")
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) deleteComment(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	deleted, err := s.store.DeleteComment(r.Context(), id)
	if err != nil {
		s.fail(w, err, "Failed to delete comment")
		return
	}
	if !deleted {
		s.notes.Error("Failed to delete comment")
		writeError(w, http.StatusNotFound, "comment not found")
		return
	}
	s.notes.Success("Comment deleted successfully")
	w.WriteHeader(http.StatusNoContent)
}

// --- Board ---

func (s *Server) getBoard(w http.ResponseWriter, r *http.Request) {
	if err := s.board.Load(r.Context()); err != nil {
		s.log.Error("load board", "error", err)
		s.notes.Error("Failed to load issues")
		writeJSON(w, http.StatusBadGateway, map[string]any{
			"error":   err.Error(),
			"retry":   true,
			"columns": s.board.Columns(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"columns": s.board.Columns()})
}

func (s *Server) moveIssue(w http.ResponseWriter, r *http.Request) {
	var req struct {
		IssueID int    `json:"issueId"`
		Column  string `json:"column"`
	}
	if !decode(w, r, &req) {
		return
	}
	// Issues created since the last load are not on the board yet.
	if s.board.Issues() == nil || !s.board.Contains(req.IssueID) {
		if err := s.board.Load(r.Context()); err != nil {
			s.fail(w, err, "Failed to load issues")
			return
		}
	}
	res, err := s.board.Move(r.Context(), req.IssueID, req.Column)
	if err != nil {
		// The board reports its own failures to the queue.
		s.fail(w, err, "")
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// --- Dashboard ---

func (s *Server) dashboard(w http.ResponseWriter, r *http.Request) {
	recent := viewmodel.RecentIssues
	if v := r.URL.Query().Get("recent"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "invalid recent")
			return
		}
		recent = n
	}
	issues, err := s.store.ListIssues(r.Context())
	if err != nil {
		s.log.Error("dashboard", "error", err)
		s.notes.Error("Failed to load issues")
		writeJSON(w, http.StatusBadGateway, map[string]any{"error": err.Error(), "retry": true})
		return
	}
	writeJSON(w, http.StatusOK, viewmodel.BuildDashboard(issues, recent))
}

// --- Users ---

func (s *Server) listUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.store.ListUsers(r.Context())
	if err != nil {
		s.fail(w, err, "Failed to load users")
		return
	}
	if users == nil {
		users = []*models.User{}
	}
	writeJSON(w, http.StatusOK, users)
}

func (s *Server) getUser(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	u, err := s.store.GetUser(r.Context(), id)
	if err != nil {
		s.fail(w, err, "")
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (s *Server) createUser(w http.ResponseWriter, r *http.Request) {
	var u models.User
	if !decode(w, r, &u) {
		return
	}
	u.Normalize()
	if err := models.ValidateUser(&u); err != nil {
		s.fail(w, err, "")
		return
	}
	created, err := s.store.CreateUser(r.Context(), &u)
	if err != nil {
		s.fail(w, err, "Failed to create user")
		return
	}
	s.notes.Success("User created successfully")
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) updateUser(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var u models.User
	if !decode(w, r, &u) {
		return
	}
	u.Normalize()
	if err := models.ValidateUser(&u); err != nil {
		s.fail(w, err, "")
		return
	}
	updated, err := s.store.UpdateUser(r.Context(), id, &u)
	if err != nil {
		s.fail(w, err, "Failed to update user")
		return
	}
	s.notes.Success("User updated successfully")
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) deleteUser(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	deleted, err := s.store.DeleteUser(r.Context(), id)
	if err != nil {
		s.fail(w, err, "Failed to delete user")
		return
	}
	if !deleted {
		s.notes.Error("Failed to delete user")
		writeError(w, http.StatusNotFound, "user not found")
		return
	}
	s.notes.Success("User deleted successfully")
	w.WriteHeader(http.StatusNoContent)
}

// --- Notifications ---

func (s *Server) listNotifications(w http.ResponseWriter, r *http.Request) {
	items := s.notes.List()
	if items == nil {
		items = []notify.Notification{}
	}
	writeJSON(w, http.StatusOK, items)
}

func (s *Server) dismissNotification(w http.ResponseWriter, r *http.Request) {
	if !s.notes.Dismiss(r.PathValue("id")) {
		writeError(w, http.StatusNotFound, "notification not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
