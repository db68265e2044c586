package httptransport

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	accountModels "evera/internal/account/models"
	"evera/internal/account/service"
	"evera/internal/gateway"
	"evera/internal/guard"
	"evera/internal/notify"
	"evera/internal/platform/logger"
	"evera/internal/session/models"
	dErrors "evera/pkg/domain-errors"
	"evera/pkg/platform/httputil"
	"evera/pkg/requestcontext"
)

// AccountService is the set of account operations the shell exposes.
type AccountService interface {
	SignIn(ctx context.Context, req accountModels.SignInRequest) (*accountModels.AuthResult, error)
	SignUp(ctx context.Context, req accountModels.SignUpRequest) (*accountModels.SignUpResult, error)
	Logout(ctx context.Context) error
	ForgotPassword(ctx context.Context, req accountModels.ForgotPasswordRequest) (*accountModels.MessageResult, error)
	ValidateResetToken(ctx context.Context, token string) (*accountModels.TokenValidation, error)
	ResetPassword(ctx context.Context, token string, req accountModels.ResetPasswordRequest) (*accountModels.MessageResult, error)
	RefreshProfile(ctx context.Context) (models.Profile, error)
}

// Handler is the thin HTTP layer of the dashboard shell. It delegates to the
// account service and reads the session store; it holds no state itself.
type Handler struct {
	accounts      AccountService
	session       SessionReader
	notifications NotificationFeed
	health        map[string]HealthCheck
	logger        *slog.Logger
}

type HandlerOption func(*Handler)

func WithLogger(logger *slog.Logger) HandlerOption {
	return func(h *Handler) {
		h.logger = logger
	}
}

// WithHealthCheck adds a named check to /healthz.
func WithHealthCheck(name string, check HealthCheck) HandlerOption {
	return func(h *Handler) {
		h.health[name] = check
	}
}

func NewHandler(accounts AccountService, session SessionReader, notifications NotificationFeed, opts ...HandlerOption) (*Handler, error) {
	if accounts == nil {
		return nil, errors.New("account service is required")
	}
	if session == nil {
		return nil, errors.New("session reader is required")
	}
	if notifications == nil {
		return nil, errors.New("notification feed is required")
	}

	h := &Handler{
		accounts:      accounts,
		session:       session,
		notifications: notifications,
		health:        map[string]HealthCheck{},
		logger:        logger.Discard(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h, nil
}

// RegisterPublic mounts the routes reachable without a session.
func (h *Handler) RegisterPublic(r chi.Router) {
	r.Get("/", h.handleLanding)
	r.Get("/plans", h.handlePlans)
	r.Get("/healthz", h.handleHealth)
	r.Get("/api/notifications", h.handleNotifications)

	r.Get("/auth/login", h.handleLoginView)
	r.Post("/auth/login", h.handleLogin)
	r.Get("/auth/register", h.handleRegisterView)
	r.Post("/auth/register", h.handleRegister)
	r.Get("/auth/forgot-password", h.handleForgotView)
	r.Post("/auth/forgot-password", h.handleForgot)
	r.Get("/auth/reset-password", h.handleResetView)
	r.Post("/auth/reset-password", h.handleReset)
}

// RegisterProtected mounts the routes that need a session. The caller wraps
// r in the session guard.
func (h *Handler) RegisterProtected(r chi.Router) {
	r.Post("/auth/logout", h.handleLogout)
	r.Get("/api/me", h.handleMe)
	r.Post("/api/me/refresh", h.handleRefresh)

	r.Get("/dashboard", h.handleDashboard)
	r.Get(guard.WorkbenchPath, h.handleWorkbench)
	r.With(guard.RequireRole(h.session, guard.RoleSuperAdmin, guard.WorkbenchPath, h.logger)).
		Get(guard.AnalysisPath, h.handleAnalysis)
}

func (h *Handler) handleLanding(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, View{
		Name:  "landing",
		Title: "Evera",
		Path:  "/",
		Data: landingData{
			Headline: "Celebrate a life well lived",
			Plans:    accountModels.Catalogue(),
		},
	})
}

func (h *Handler) handlePlans(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, View{
		Name:  "plans",
		Title: "Choose a plan",
		Path:  "/plans",
		Data:  accountModels.Catalogue(),
	})
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	checks := map[string]string{}
	for name, check := range h.health {
		if err := check(ctx); err != nil {
			status = http.StatusServiceUnavailable
			checks[name] = err.Error()
			continue
		}
		checks[name] = "ok"
	}
	state := "ok"
	if status != http.StatusOK {
		state = "degraded"
	}
	httputil.WriteJSON(w, status, map[string]any{"status": state, "checks": checks})
}

func (h *Handler) handleNotifications(w http.ResponseWriter, _ *http.Request) {
	pending := h.notifications.Drain()
	if pending == nil {
		pending = []notify.Notification{}
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"notifications": pending})
}

func (h *Handler) handleLoginView(w http.ResponseWriter, r *http.Request) {
	if h.session.IsAuthenticated() {
		http.Redirect(w, r, guard.LandingPath(h.session.Profile()), http.StatusFound)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, View{Name: "login", Title: "Sign in", Path: guard.LoginPath})
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req accountModels.SignInRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}

	result, err := h.accounts.SignIn(r.Context(), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, signedInResponse{
		Redirect: guard.LandingPath(result.Profile),
		Profile:  result.Profile,
	})
}

func (h *Handler) handleRegisterView(w http.ResponseWriter, r *http.Request) {
	data := registerData{Plans: accountModels.Catalogue()}
	if plan, ok := accountModels.ParsePlan(r.URL.Query().Get("plan")); ok {
		data.SelectedPlan = plan
	}
	httputil.WriteJSON(w, http.StatusOK, View{Name: "register", Title: "Create your account", Path: "/auth/register", Data: data})
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req accountModels.SignUpRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}

	result, err := h.accounts.SignUp(r.Context(), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if result.PendingVerification || result.Auth == nil {
		httputil.WriteJSON(w, http.StatusAccepted, signedInResponse{Redirect: guard.LoginPath, Pending: true})
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, signedInResponse{
		Redirect: guard.LandingPath(result.Auth.Profile),
		Profile:  result.Auth.Profile,
	})
}

func (h *Handler) handleForgotView(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, View{Name: "forgot-password", Title: "Reset your password", Path: "/auth/forgot-password"})
}

func (h *Handler) handleForgot(w http.ResponseWriter, r *http.Request) {
	var req accountModels.ForgotPasswordRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}

	result, err := h.accounts.ForgotPassword(r.Context(), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, messageResponse{Message: result.Message})
}

func (h *Handler) handleResetView(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	data := resetData{Token: token}

	v, err := h.accounts.ValidateResetToken(r.Context(), token)
	switch ge, rejected := gateway.AsError(err); {
	case err == nil:
		data.Valid = v.IsValid()
		data.Email = v.Email
		data.Note = v.Message
	case rejected:
		data.Note = ge.Message
	default:
		h.writeError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, View{Name: "reset-password", Title: "Choose a new password", Path: "/auth/reset-password", Data: data})
}

func (h *Handler) handleReset(w http.ResponseWriter, r *http.Request) {
	var req struct {
		accountModels.ResetPasswordRequest
		Token string `json:"token"`
	}
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	if req.Token == "" {
		req.Token = r.URL.Query().Get("token")
	}

	result, err := h.accounts.ResetPassword(r.Context(), req.Token, req.ResetPasswordRequest)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, messageResponse{Message: result.Message, Redirect: guard.LoginPath})
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := h.accounts.Logout(r.Context()); err != nil {
		h.logger.WarnContext(r.Context(), "logout finished with backend error",
			"error", err,
			"request_id", requestcontext.RequestID(r.Context()),
		)
	}
	httputil.WriteJSON(w, http.StatusOK, messageResponse{Message: service.MsgLoggedOut, Redirect: guard.LoginPath})
}

func (h *Handler) handleMe(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, h.sessionView())
}

func (h *Handler) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if _, err := h.accounts.RefreshProfile(r.Context()); err != nil {
		h.writeError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, h.sessionView())
}

func (h *Handler) handleDashboard(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, guard.LandingPath(h.session.Profile()), http.StatusFound)
}

func (h *Handler) handleWorkbench(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, View{Name: "workbench", Title: "Workbench", Path: guard.WorkbenchPath, Data: h.sessionView()})
}

func (h *Handler) handleAnalysis(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, View{Name: "analysis", Title: "Analysis", Path: guard.AnalysisPath, Data: h.sessionView()})
}

func (h *Handler) sessionView() SessionView {
	view := SessionView{Authenticated: h.session.IsAuthenticated()}
	if !view.Authenticated {
		return view
	}
	profile := h.session.Profile()
	view.Profile = &profile
	view.DisplayName = profile.DisplayName()
	view.Roles = profile.RoleKeys()
	view.Landing = guard.LandingPath(profile)
	if exp, ok := h.session.Credential().ExpiresAt(); ok {
		view.ExpiresAt = exp.UTC().Format(time.RFC3339)
	}
	return view
}

// writeError maps service failures onto responses. Field errors come back
// for inline display; gateway rejections keep the translated message the
// user has already been shown.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	if fields := service.FieldErrors(err); len(fields) > 0 {
		httputil.WriteJSON(w, http.StatusBadRequest, map[string]any{
			"error":             string(dErrors.CodeValidation),
			"error_description": "Please correct the highlighted fields",
			"fields":            fields,
		})
		return
	}

	if ge, ok := gateway.AsError(err); ok {
		status := ge.Status
		if status < 400 {
			status = http.StatusBadGateway
		}
		httputil.WriteJSON(w, status, map[string]string{
			"error":             string(ge.Kind),
			"error_description": ge.Message,
		})
		return
	}

	if !dErrors.Is(err) {
		h.logger.ErrorContext(r.Context(), "unexpected handler error",
			"path", r.URL.Path,
			"error", err,
			"request_id", requestcontext.RequestID(r.Context()),
		)
	}
	httputil.WriteError(w, err)
}
