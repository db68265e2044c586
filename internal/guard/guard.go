// Package guard decides whether a view may be shown for the current session.
// Only credential presence gates access; the profile only selects landing
// routes and role-restricted views.
package guard

import (
	"log/slog"
	"net/http"

	"evera/internal/session/models"
	"evera/pkg/requestcontext"
)

// Routes the guard redirects to.
const (
	LoginPath     = "/auth/login"
	WorkbenchPath = "/dashboard/workbench"
	AnalysisPath  = "/dashboard/analysis"
)

// RoleSuperAdmin grants the analysis landing view.
const RoleSuperAdmin = "super-admin"

// SessionReader is the read side of the session store.
type SessionReader interface {
	IsAuthenticated() bool
	Profile() models.Profile
}

// Decision is the outcome of a guard check. Redirect is empty when access
// is allowed.
type Decision struct {
	Allowed  bool
	Redirect string
}

func allow() Decision { return Decision{Allowed: true} }

func redirect(to string) Decision { return Decision{Redirect: to} }

// CheckSession allows any session holding an access token.
func CheckSession(session SessionReader) Decision {
	if session.IsAuthenticated() {
		return allow()
	}
	return redirect(LoginPath)
}

// CheckRole allows a signed-in session whose profile has the role. A session
// without the role is sent to fallback, or to its landing path when fallback
// is empty.
func CheckRole(session SessionReader, code, fallback string) Decision {
	if d := CheckSession(session); !d.Allowed {
		return d
	}
	profile := session.Profile()
	if profile.HasRole(code) {
		return allow()
	}
	if fallback == "" {
		fallback = LandingPath(profile)
	}
	return redirect(fallback)
}

// LandingPath is where a freshly signed-in user is sent.
func LandingPath(profile models.Profile) string {
	if profile.HasRole(RoleSuperAdmin) {
		return AnalysisPath
	}
	return WorkbenchPath
}

// RequireSession redirects requests without a session to the login view.
func RequireSession(session SessionReader, logger *slog.Logger) func(http.Handler) http.Handler {
	return enforce(logger, func() Decision { return CheckSession(session) })
}

// RequireRole redirects requests whose session lacks the role.
func RequireRole(session SessionReader, code, fallback string, logger *slog.Logger) func(http.Handler) http.Handler {
	return enforce(logger, func() Decision { return CheckRole(session, code, fallback) })
}

func enforce(logger *slog.Logger, check func() Decision) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			d := check()
			if d.Allowed {
				next.ServeHTTP(w, r)
				return
			}
			if logger != nil {
				ctx := r.Context()
				logger.InfoContext(ctx, "guard redirect",
					"path", r.URL.Path,
					"redirect", d.Redirect,
					"request_id", requestcontext.RequestID(ctx),
				)
			}
			http.Redirect(w, r, d.Redirect, http.StatusFound)
		})
	}
}
