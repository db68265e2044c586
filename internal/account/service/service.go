// Package service implements the account operations a signed-out or
// signed-in user can run: sign in, sign up, logout, the password reset
// flow, and user lookups. Every backend call goes through the gateway;
// every session change goes through the session store.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/url"
	"strings"

	"evera/internal/account/models"
	"evera/internal/gateway"
	"evera/internal/notify"
	"evera/internal/platform/logger"
	"evera/internal/platform/metrics"
	session "evera/internal/session/models"
	dErrors "evera/pkg/domain-errors"
	"evera/pkg/email"
)

// Backend paths, relative to the gateway base URL.
const (
	PathLogin          = "/api/v1/auth/login"
	PathRegister       = "/api/v1/auth/register"
	PathLogout         = "/api/v1/auth/logout"
	PathForgotPassword = "/api/v1/auth/forgot-password"
	PathResetPassword  = "/api/v1/auth/reset-password/"
	PathUser           = "/api/v1/user/"
)

// User-facing messages raised by the operations themselves.
const (
	MsgSignInFallback   = "Something went wrong. Please check your details and try again."
	MsgSignUpPending    = "Account created! Please check your email to verify your account before logging in."
	MsgSignUpWelcome    = "Account created successfully!"
	MsgResetLinkSent    = "Password reset link sent! Please check your email."
	MsgPasswordReset    = "Password reset successfully! You can now log in with your new password."
	MsgResetLinkInvalid = "Invalid or expired reset link"
	MsgLoggedOut        = "You have been logged out."
)

// ErrNoSession is returned by operations that need a signed-in user.
var ErrNoSession = dErrors.New(dErrors.CodeUnauthorized, "You need to sign in first")

// Gateway is the slice of the backend client the operations use.
type Gateway interface {
	Get(ctx context.Context, path string, opts ...gateway.RequestOption) (json.RawMessage, error)
	Post(ctx context.Context, path string, body any, opts ...gateway.RequestOption) (json.RawMessage, error)
}

// Session is the mutation surface of the session store.
type Session interface {
	Credential() session.Credential
	Profile() session.Profile
	SetCredential(session.Credential)
	SetProfile(session.Profile)
	Clear()
}

// Service runs account operations. It is safe for concurrent use; concurrent
// calls are not coalesced and the last to resolve wins.
type Service struct {
	gateway  Gateway
	session  Session
	notifier notify.Notifier
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithNotifier sets where operation-level notifications go. Use the same
// notifier as the gateway so the user sees one stream.
func WithNotifier(n notify.Notifier) Option {
	return func(s *Service) {
		s.notifier = n
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func New(gw Gateway, sess Session, opts ...Option) (*Service, error) {
	if gw == nil {
		return nil, errors.New("gateway is required")
	}
	if sess == nil {
		return nil, errors.New("session is required")
	}

	s := &Service{
		gateway:  gw,
		session:  sess,
		notifier: notify.Discard,
		logger:   logger.Discard(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// SignIn exchanges email and password for a session. On success the
// credential is committed before the profile, and both before SignIn
// returns. On failure the session is untouched.
func (s *Service) SignIn(ctx context.Context, req models.SignInRequest) (*models.AuthResult, error) {
	req.Email = email.Normalize(req.Email)
	if err := validateSignIn(req); err != nil {
		return nil, err
	}

	payload, err := s.gateway.Post(ctx, PathLogin, req)
	if err != nil {
		s.surfaceSignInError(ctx, err)
		return nil, err
	}

	fields, err := extractAuth(payload)
	if err != nil {
		s.surfaceSignInError(ctx, err)
		return nil, err
	}
	result := s.authResult(ctx, fields)

	s.commit(result)
	s.logger.InfoContext(ctx, "signed in", "user_id", result.Profile.ID)
	return result, nil
}

// surfaceSignInError shows what the gateway has not already shown. Gateway
// rejections were notified when they happened; only a placeholder message
// is replaced with the fallback.
func (s *Service) surfaceSignInError(ctx context.Context, err error) {
	msg := err.Error()
	if isPlaceholderMessage(msg) {
		s.notifier.Notify(ctx, notify.Error(MsgSignInFallback))
		return
	}
	if _, fromGateway := gateway.AsError(err); !fromGateway {
		s.notifier.Notify(ctx, notify.Error(msg))
	}
}

func isPlaceholderMessage(msg string) bool {
	msg = strings.TrimSpace(msg)
	return msg == "" ||
		strings.Contains(msg, "Cannot read") ||
		strings.Contains(msg, "undefined") ||
		strings.Contains(msg, "object Object")
}

// SignUp registers a new account. When the backend signs the user straight
// in, the session is committed as for SignIn; otherwise the account waits for
// email verification and the session is untouched.
func (s *Service) SignUp(ctx context.Context, req models.SignUpRequest) (*models.SignUpResult, error) {
	req.Email = email.Normalize(req.Email)
	req.FirstName = strings.TrimSpace(req.FirstName)
	req.LastName = strings.TrimSpace(req.LastName)
	if plan, ok := models.ParsePlan(string(req.Plan)); ok {
		req.Plan = plan
	}
	if err := validateSignUp(req); err != nil {
		return nil, err
	}

	payload, err := s.gateway.Post(ctx, PathRegister, req)
	if err != nil {
		return nil, err
	}

	fields, err := extractAuth(payload)
	if err != nil {
		s.notifier.Notify(ctx, notify.Success(MsgSignUpPending))
		s.logger.InfoContext(ctx, "account awaiting email verification", "plan", string(req.Plan))
		return &models.SignUpResult{PendingVerification: true}, nil
	}

	result := s.authResult(ctx, fields)
	s.commit(result)
	s.notifier.Notify(ctx, notify.Success(MsgSignUpWelcome))
	s.logger.InfoContext(ctx, "signed up", "user_id", result.Profile.ID, "plan", string(req.Plan))
	return &models.SignUpResult{Authenticated: true, Auth: result}, nil
}

func (s *Service) commit(result *models.AuthResult) {
	s.session.SetCredential(result.Credential)
	s.session.SetProfile(result.Profile)
}

// Logout tells the backend and clears the session whatever the backend
// answers. The backend error, if any, is returned after the clear. A 401 has
// already cleared the session inside the gateway.
func (s *Service) Logout(ctx context.Context) error {
	_, err := s.gateway.Post(ctx, PathLogout, nil)

	if !gateway.IsUnauthorized(err) {
		s.session.Clear()
		s.metrics.IncrementSessionInvalidations(metrics.ReasonLogout)
	}
	if err != nil {
		s.logger.WarnContext(ctx, "backend logout failed, session cleared locally", "error", err)
		return err
	}
	s.notifier.Notify(ctx, notify.Info(MsgLoggedOut))
	return nil
}

// ForgotPassword asks the backend to email a reset link. Calling it again is
// how the link is resent.
func (s *Service) ForgotPassword(ctx context.Context, req models.ForgotPasswordRequest) (*models.MessageResult, error) {
	req.Email = email.Normalize(req.Email)
	if err := validateEmail(req.Email); err != nil {
		return nil, err
	}

	payload, err := s.gateway.Post(ctx, PathForgotPassword, req)
	if err != nil {
		return nil, err
	}
	result, err := decodeMessage(payload, MsgResetLinkSent)
	if err != nil {
		return nil, err
	}
	s.notifier.Notify(ctx, notify.Success(MsgResetLinkSent))
	return result, nil
}

// ValidateResetToken checks a reset link before the new-password form is
// shown. An empty token fails without a request.
func (s *Service) ValidateResetToken(ctx context.Context, token string) (*models.TokenValidation, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, dErrors.Field("token", msgTokenMissing)
	}

	payload, err := s.gateway.Get(ctx, PathResetPassword+url.PathEscape(token))
	if err != nil {
		return nil, err
	}
	v, err := gateway.Decode[models.TokenValidation](payload)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInvalidResponse, MsgResetLinkInvalid)
	}
	if !v.IsValid() && v.Message == "" {
		v.Message = MsgResetLinkInvalid
	}
	return &v, nil
}

// ResetPassword sets a new password using the token from the reset link.
func (s *Service) ResetPassword(ctx context.Context, token string, req models.ResetPasswordRequest) (*models.MessageResult, error) {
	token = strings.TrimSpace(token)
	if err := validateResetPassword(token, req); err != nil {
		return nil, err
	}

	payload, err := s.gateway.Post(ctx, PathResetPassword+url.PathEscape(token), req)
	if err != nil {
		return nil, err
	}
	result, err := decodeMessage(payload, MsgPasswordReset)
	if err != nil {
		return nil, err
	}
	s.notifier.Notify(ctx, notify.Success(MsgPasswordReset))
	return result, nil
}

// FindByID fetches user records. The backend answers with either one record
// or a list; both come back as a list.
func (s *Service) FindByID(ctx context.Context, id string) ([]session.Profile, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, dErrors.Field("id", msgUserIDRequired)
	}

	payload, err := s.gateway.Get(ctx, PathUser+url.PathEscape(id))
	if err != nil {
		return nil, err
	}
	return s.decodeProfiles(ctx, payload)
}

// RefreshProfile reloads the signed-in user's profile and stores it. The
// credential is not touched.
func (s *Service) RefreshProfile(ctx context.Context) (session.Profile, error) {
	if !s.session.Credential().Present() {
		return session.Profile{}, ErrNoSession
	}
	current := s.session.Profile()
	if current.ID == "" {
		return session.Profile{}, dErrors.New(dErrors.CodeNotFound, "No user id in the current session")
	}

	profiles, err := s.FindByID(ctx, current.ID)
	if err != nil {
		return session.Profile{}, err
	}
	if len(profiles) == 0 {
		return session.Profile{}, dErrors.Newf(dErrors.CodeNotFound, "User %s not found", current.ID)
	}

	s.session.SetProfile(profiles[0])
	return profiles[0], nil
}

// decodeProfiles accepts a single user record or a list. List entries that
// are not user records are skipped.
func (s *Service) decodeProfiles(ctx context.Context, payload json.RawMessage) ([]session.Profile, error) {
	trimmed := strings.TrimSpace(string(payload))
	if trimmed == "" || trimmed == "null" {
		return nil, nil
	}
	if strings.HasPrefix(trimmed, "[") {
		items, err := gateway.Decode[[]json.RawMessage](payload)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInvalidResponse, "Unexpected user list in server response")
		}
		list := make([]session.Profile, 0, len(items))
		for i, item := range items {
			var p session.Profile
			if err := json.Unmarshal(item, &p); err != nil {
				s.logger.WarnContext(ctx, "skipping unreadable user record", "index", i, "error", err)
				continue
			}
			list = append(list, p)
		}
		return list, nil
	}
	one, err := gateway.Decode[session.Profile](payload)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInvalidResponse, "Unexpected user record in server response")
	}
	return []session.Profile{one}, nil
}

// decodeMessage reads {message}; a bare string or an empty payload is
// accepted and the fallback fills a missing message.
func decodeMessage(payload json.RawMessage, fallback string) (*models.MessageResult, error) {
	trimmed := strings.TrimSpace(string(payload))
	result := &models.MessageResult{}
	switch {
	case trimmed == "" || trimmed == "null":
	case strings.HasPrefix(trimmed, `"`):
		if err := json.Unmarshal(payload, &result.Message); err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInvalidResponse, "Unexpected server response")
		}
	case strings.HasPrefix(trimmed, "{"):
		if err := json.Unmarshal(payload, result); err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInvalidResponse, "Unexpected server response")
		}
	}
	if result.Message == "" {
		result.Message = fallback
	}
	return result, nil
}
