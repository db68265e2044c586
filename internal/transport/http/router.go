package httptransport

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"evera/internal/guard"
	"evera/internal/notify"
	"evera/internal/session/models"
)

// SessionReader is the read side of the session store.
type SessionReader interface {
	guard.SessionReader
	Credential() models.Credential
}

// NotificationFeed hands out pending notifications once.
type NotificationFeed interface {
	Drain() []notify.Notification
}

// HealthCheck reports whether a dependency is usable.
type HealthCheck func(ctx context.Context) error

// NewRouter wires the shell. metricsHandler may be nil.
func NewRouter(h *Handler, metricsHandler http.Handler, logger *slog.Logger) chi.Router {
	r := chi.NewRouter()
	r.Use(RequestID)
	r.Use(RequestLogger(logger))
	r.Use(middleware.Recoverer)

	if metricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", metricsHandler)
	}

	h.RegisterPublic(r)
	r.Group(func(r chi.Router) {
		r.Use(guard.RequireSession(h.session, logger))
		h.RegisterProtected(r)
	})
	return r
}
