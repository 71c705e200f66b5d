// Package notify is the transient, dismissable notification channel that
// store failures and completed actions are reported through.
package notify

import (
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// Level is the severity of a notification.
type Level string

const (
	LevelSuccess Level = "success"
	LevelError   Level = "error"
)

// DefaultMax is the queue length used when none is configured.
const DefaultMax = 20

// Notifier receives user-facing outcome messages.
type Notifier interface {
	Success(msg string)
	Error(msg string)
}

// Notification is a single queued message.
type Notification struct {
	ID        string    `json:"id"`
	Level     Level     `json:"level"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"createdAt"`
}

// Queue keeps the most recent notifications until they are dismissed. It is
// safe for concurrent use.
type Queue struct {
	mu    sync.Mutex
	items []Notification
	max   int
	log   *slog.Logger
	now   func() time.Time
}

var _ Notifier = (*Queue)(nil)

// NewQueue returns a Queue holding at most max entries; older entries are
// evicted first. A nil logger uses slog.Default.
func NewQueue(max int, logger *slog.Logger) *Queue {
	if max <= 0 {
		max = DefaultMax
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Queue{max: max, log: logger, now: time.Now}
}

func (q *Queue) Success(msg string) { q.push(LevelSuccess, msg) }

func (q *Queue) Error(msg string) { q.push(LevelError, msg) }

func (q *Queue) push(level Level, msg string) {
	n := Notification{
		ID:        ulid.Make().String(),
		Level:     level,
		Message:   msg,
		CreatedAt: q.now(),
	}
	if level == LevelError {
		q.log.Warn("notification", "level", level, "message", msg)
	} else {
		q.log.Info("notification", "level", level, "message", msg)
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = append(q.items, n)
	if over := len(q.items) - q.max; over > 0 {
		q.items = slices.Delete(q.items, 0, over)
	}
}

// List returns the queued notifications, oldest first.
func (q *Queue) List() []Notification {
	q.mu.Lock()
	defer q.mu.Unlock()
	return slices.Clone(q.items)
}

// Dismiss removes the notification with id and reports whether it existed.
func (q *Queue) Dismiss(id string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	i := slices.IndexFunc(q.items, func(n Notification) bool { return n.ID == id })
	if i < 0 {
		return false
	}
	q.items = slices.Delete(q.items, i, i+1)
	return true
}

// Funcs adapts two functions to a Notifier; nil functions are skipped.
type Funcs struct {
	OnSuccess func(string)
	OnError   func(string)
}

func (f Funcs) Success(msg string) {
	if f.OnSuccess != nil {
		f.OnSuccess(msg)
	}
}

func (f Funcs) Error(msg string) {
	if f.OnError != nil {
		f.OnError(msg)
	}
}
