// Package notify delivers transient, user-facing messages: the one-line
// banners shown after a request fails or a form succeeds.
package notify

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"
)

// Level is the notification severity.
type Level string

const (
	LevelError   Level = "error"
	LevelSuccess Level = "success"
	LevelInfo    Level = "info"
)

// Notification is one transient message.
type Notification struct {
	Level   Level     `json:"level"`
	Message string    `json:"message"`
	At      time.Time `json:"at"`
}

// Notifier shows a notification to the user.
type Notifier interface {
	Notify(ctx context.Context, n Notification)
}

// Error builds an error-level notification.
func Error(msg string) Notification {
	return Notification{Level: LevelError, Message: msg, At: time.Now()}
}

// Success builds a success-level notification.
func Success(msg string) Notification {
	return Notification{Level: LevelSuccess, Message: msg, At: time.Now()}
}

// Info builds an info-level notification.
func Info(msg string) Notification {
	return Notification{Level: LevelInfo, Message: msg, At: time.Now()}
}

// Func adapts a function to Notifier.
type Func func(ctx context.Context, n Notification)

func (f Func) Notify(ctx context.Context, n Notification) { f(ctx, n) }

// Discard drops every notification.
var Discard Notifier = Func(func(context.Context, Notification) {})

// Multi fans a notification out to every notifier in order.
func Multi(notifiers ...Notifier) Notifier {
	return Func(func(ctx context.Context, n Notification) {
		for _, nt := range notifiers {
			if nt != nil {
				nt.Notify(ctx, n)
			}
		}
	})
}

// Log records notifications through slog.
type Log struct {
	logger *slog.Logger
}

func NewLog(logger *slog.Logger) *Log {
	return &Log{logger: logger}
}

func (l *Log) Notify(ctx context.Context, n Notification) {
	level := slog.LevelInfo
	if n.Level == LevelError {
		level = slog.LevelWarn
	}
	l.logger.Log(ctx, level, "notification", "level", string(n.Level), "message", n.Message)
}

// Writer prints one line per notification, e.g. to a terminal's stderr.
type Writer struct {
	mu sync.Mutex
	w  io.Writer
}

func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

func (wr *Writer) Notify(_ context.Context, n Notification) {
	wr.mu.Lock()
	defer wr.mu.Unlock()

	prefix := "i"
	switch n.Level {
	case LevelError:
		prefix = "✗"
	case LevelSuccess:
		prefix = "✓"
	}
	_, _ = fmt.Fprintf(wr.w, "%s %s\n", prefix, n.Message)
}

// Queue holds the most recent notifications until a reader drains them. When
// full, the oldest entry is dropped.
type Queue struct {
	mu    sync.Mutex
	items []Notification
	limit int
}

func NewQueue(limit int) *Queue {
	if limit <= 0 {
		limit = 20
	}
	return &Queue{limit: limit}
}

func (q *Queue) Notify(_ context.Context, n Notification) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == q.limit {
		kept := copy(q.items, q.items[1:])
		q.items = q.items[:kept]
	}
	q.items = append(q.items, n)
}

// Drain returns the pending notifications oldest first and empties the queue.
func (q *Queue) Drain() []Notification {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := q.items
	q.items = nil
	if out == nil {
		return []Notification{}
	}
	return out
}

// Recorder keeps every notification; tests assert on it.
type Recorder struct {
	mu    sync.Mutex
	items []Notification
}

func (r *Recorder) Notify(_ context.Context, n Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = append(r.items, n)
}

// All returns a copy of everything recorded.
func (r *Recorder) All() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Notification(nil), r.items...)
}

// Messages returns the recorded messages at the given level.
func (r *Recorder) Messages(level Level) []string {
	var out []string
	for _, n := range r.All() {
		if n.Level == level {
			out = append(out, n.Message)
		}
	}
	return out
}
