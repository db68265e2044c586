package httptransport

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	accountModels "evera/internal/account/models"
	"evera/internal/account/service"
	"evera/internal/gateway"
	"evera/internal/guard"
	"evera/internal/notify"
	"evera/internal/session/models"
	"evera/internal/session/store"
	"evera/internal/transport/http/mocks"
	dErrors "evera/pkg/domain-errors"
	"evera/pkg/testutil"
)

//go:generate mockgen -source=handlers_auth.go -destination=mocks/account-mocks.go -package=mocks AccountService
type AccountHandlerSuite struct {
	suite.Suite
	ctx context.Context
}

func TestAccountHandlerSuite(t *testing.T) {
	suite.Run(t, new(AccountHandlerSuite))
}

func (s *AccountHandlerSuite) SetupSuite() {
	s.ctx = context.Background()
}

type shell struct {
	accounts *mocks.MockAccountService
	session  *store.Store
	queue    *notify.Queue
	router   chi.Router
}

func (s *AccountHandlerSuite) newShell(t *testing.T) *shell {
	t.Helper()
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)

	session, err := store.New(s.ctx, store.NewInMemoryPersister())
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	accounts := mocks.NewMockAccountService(ctrl)
	queue := notify.NewQueue(10)
	handler, err := NewHandler(accounts, session, queue,
		WithLogger(logger),
		WithHealthCheck("session", func(context.Context) error { return nil }),
	)
	require.NoError(t, err)

	return &shell{
		accounts: accounts,
		session:  session,
		queue:    queue,
		router:   NewRouter(handler, nil, logger),
	}
}

func signIn(session *store.Store, roles ...string) {
	session.SetCredential(models.Credential{AccessToken: "T1"})
	profile := models.Profile{ID: "u-1", FirstName: "Ama", LastName: "Mensah"}
	for _, code := range roles {
		profile.Roles = append(profile.Roles, models.Role{Code: code})
	}
	session.SetProfile(profile)
}

// =============================================================================
// Sign-in and sign-up
// =============================================================================

func (s *AccountHandlerSuite) TestHandler_Login() {
	valid := accountModels.SignInRequest{Email: "a@b.com", Password: "x"}

	s.T().Run("success redirects to the landing view - 200", func(t *testing.T) {
		sh := s.newShell(t)
		profile := models.Profile{ID: "u-1", Roles: []models.Role{{Code: "super-admin"}}}
		sh.accounts.EXPECT().SignIn(gomock.Any(), valid).Return(&accountModels.AuthResult{
			Credential: models.Credential{AccessToken: "T1"},
			Profile:    profile,
		}, nil)

		rr := testutil.DoRequest(sh.router, testutil.NewJSONRequest(t, http.MethodPost, "/auth/login", valid))

		testutil.AssertStatusOK(t, rr)
		got := testutil.UnmarshalResponse[signedInResponse](t, rr)
		assert.Equal(t, guard.AnalysisPath, got.Redirect)
		assert.Equal(t, "u-1", got.Profile.ID)
		assert.NotEmpty(t, rr.Header().Get(gateway.RequestIDHeader))
	})

	s.T().Run("field errors - 400", func(t *testing.T) {
		sh := s.newShell(t)
		sh.accounts.EXPECT().SignIn(gomock.Any(), gomock.Any()).
			Return(nil, errors.Join(dErrors.Field("email", "Invalid email address")))

		rr := testutil.DoRequest(sh.router, testutil.NewJSONRequest(t, http.MethodPost, "/auth/login", valid))

		testutil.AssertStatus(t, rr, http.StatusBadRequest)
		got := testutil.UnmarshalResponse[map[string]any](t, rr)
		assert.Equal(t, "validation_error", (*got)["error"])
		assert.Equal(t, map[string]any{"email": "Invalid email address"}, (*got)["fields"])
	})

	s.T().Run("gateway rejection keeps status and message - 409", func(t *testing.T) {
		sh := s.newShell(t)
		sh.accounts.EXPECT().SignIn(gomock.Any(), gomock.Any()).Return(nil, &gateway.Error{
			Kind: gateway.KindBusiness, Status: http.StatusConflict, Message: gateway.MsgDuplicateEmail,
		})

		rr := testutil.DoRequest(sh.router, testutil.NewJSONRequest(t, http.MethodPost, "/auth/login", valid))

		testutil.AssertStatusAndError(t, rr, http.StatusConflict, string(gateway.KindBusiness))
	})

	s.T().Run("transport failure - 502", func(t *testing.T) {
		sh := s.newShell(t)
		sh.accounts.EXPECT().SignIn(gomock.Any(), gomock.Any()).Return(nil, &gateway.Error{
			Kind: gateway.KindTransport, Message: gateway.MsgGeneric,
		})

		rr := testutil.DoRequest(sh.router, testutil.NewJSONRequest(t, http.MethodPost, "/auth/login", valid))

		testutil.AssertStatus(t, rr, http.StatusBadGateway)
	})

	s.T().Run("missing token - 502", func(t *testing.T) {
		sh := s.newShell(t)
		sh.accounts.EXPECT().SignIn(gomock.Any(), gomock.Any()).Return(nil, service.ErrNoAccessToken)

		rr := testutil.DoRequest(sh.router, testutil.NewJSONRequest(t, http.MethodPost, "/auth/login", valid))

		testutil.AssertStatusAndError(t, rr, http.StatusBadGateway, string(dErrors.CodeInvalidResponse))
	})

	s.T().Run("invalid json never reaches the service - 400", func(t *testing.T) {
		sh := s.newShell(t)
		sh.accounts.EXPECT().SignIn(gomock.Any(), gomock.Any()).Times(0)

		rr := testutil.DoRequest(sh.router, testutil.NewRequestWithBody(t, http.MethodPost, "/auth/login", "{bad-json"))

		testutil.AssertStatusAndError(t, rr, http.StatusBadRequest, string(dErrors.CodeBadRequest))
	})

	s.T().Run("login view redirects a signed-in user", func(t *testing.T) {
		sh := s.newShell(t)
		signIn(sh.session)

		rr := testutil.DoRequest(sh.router, testutil.NewRequest(t, http.MethodGet, "/auth/login"))

		testutil.AssertStatus(t, rr, http.StatusFound)
		assert.Equal(t, guard.WorkbenchPath, rr.Header().Get("Location"))
	})
}

func (s *AccountHandlerSuite) TestHandler_Register() {
	req := accountModels.SignUpRequest{
		FirstName: "Ama", LastName: "Mensah", Email: "ama@example.com",
		Password: "Secret123", ConfirmPassword: "Secret123", Plan: accountModels.PlanPremium,
	}

	s.T().Run("pending verification - 202", func(t *testing.T) {
		sh := s.newShell(t)
		sh.accounts.EXPECT().SignUp(gomock.Any(), req).Return(&accountModels.SignUpResult{PendingVerification: true}, nil)

		rr := testutil.DoRequest(sh.router, testutil.NewJSONRequest(t, http.MethodPost, "/auth/register", req))

		testutil.AssertStatus(t, rr, http.StatusAccepted)
		got := testutil.UnmarshalResponse[signedInResponse](t, rr)
		assert.True(t, got.Pending)
		assert.Equal(t, guard.LoginPath, got.Redirect)
	})

	s.T().Run("signed straight in - 201", func(t *testing.T) {
		sh := s.newShell(t)
		sh.accounts.EXPECT().SignUp(gomock.Any(), req).Return(&accountModels.SignUpResult{
			Authenticated: true,
			Auth:          &accountModels.AuthResult{Profile: models.Profile{ID: "u-2"}},
		}, nil)

		rr := testutil.DoRequest(sh.router, testutil.NewJSONRequest(t, http.MethodPost, "/auth/register", req))

		testutil.AssertStatus(t, rr, http.StatusCreated)
		testutil.AssertJSONContains(t, rr, "redirect", guard.WorkbenchPath)
	})

	s.T().Run("view preselects the plan", func(t *testing.T) {
		sh := s.newShell(t)

		rr := testutil.DoRequest(sh.router, testutil.NewRequest(t, http.MethodGet, "/auth/register?plan=Standard"))

		testutil.AssertStatusOK(t, rr)
		got := testutil.UnmarshalResponse[View](t, rr)
		data, ok := got.Data.(map[string]any)
		require.True(t, ok)
		assert.Equal(t, "standard", data["selectedPlan"])
	})
}

// =============================================================================
// Password reset
// =============================================================================

func (s *AccountHandlerSuite) TestHandler_PasswordReset() {
	s.T().Run("forgot password returns the server message", func(t *testing.T) {
		sh := s.newShell(t)
		sh.accounts.EXPECT().ForgotPassword(gomock.Any(), accountModels.ForgotPasswordRequest{Email: "ama@example.com"}).
			Return(&accountModels.MessageResult{Message: "sent"}, nil)

		rr := testutil.DoRequest(sh.router, testutil.NewJSONRequest(t, http.MethodPost, "/auth/forgot-password",
			accountModels.ForgotPasswordRequest{Email: "ama@example.com"}))

		testutil.AssertStatusOK(t, rr)
		testutil.AssertJSONContains(t, rr, "message", "sent")
	})

	s.T().Run("reset view reports a valid token", func(t *testing.T) {
		sh := s.newShell(t)
		sh.accounts.EXPECT().ValidateResetToken(gomock.Any(), "abc").
			Return(&accountModels.TokenValidation{Valid: true, Email: "ama@example.com"}, nil)

		rr := testutil.DoRequest(sh.router, testutil.NewRequest(t, http.MethodGet, "/auth/reset-password?token=abc"))

		testutil.AssertStatusOK(t, rr)
		got := testutil.UnmarshalResponse[View](t, rr)
		data := got.Data.(map[string]any)
		assert.Equal(t, true, data["valid"])
		assert.Equal(t, "ama@example.com", data["email"])
	})

	s.T().Run("reset view shows a rejected token as invalid", func(t *testing.T) {
		sh := s.newShell(t)
		sh.accounts.EXPECT().ValidateResetToken(gomock.Any(), "old").Return(nil, &gateway.Error{
			Kind: gateway.KindBusiness, Status: http.StatusBadRequest, Message: gateway.MsgLinkExpired,
		})

		rr := testutil.DoRequest(sh.router, testutil.NewRequest(t, http.MethodGet, "/auth/reset-password?token=old"))

		testutil.AssertStatusOK(t, rr)
		got := testutil.UnmarshalResponse[View](t, rr)
		data := got.Data.(map[string]any)
		assert.Equal(t, false, data["valid"])
		assert.Equal(t, gateway.MsgLinkExpired, data["message"])
	})

	s.T().Run("reset takes the token from the query", func(t *testing.T) {
		sh := s.newShell(t)
		body := accountModels.ResetPasswordRequest{Password: "Newpass123", ConfirmPassword: "Newpass123"}
		sh.accounts.EXPECT().ResetPassword(gomock.Any(), "abc", body).
			Return(&accountModels.MessageResult{Message: "done"}, nil)

		rr := testutil.DoRequest(sh.router, testutil.NewJSONRequest(t, http.MethodPost, "/auth/reset-password?token=abc", body))

		testutil.AssertStatusOK(t, rr)
		testutil.AssertJSONContains(t, rr, "redirect", guard.LoginPath)
	})
}

// =============================================================================
// Protected routes
// =============================================================================

func (s *AccountHandlerSuite) TestHandler_Protected() {
	s.T().Run("dashboard without a session redirects to login", func(t *testing.T) {
		sh := s.newShell(t)

		rr := testutil.DoRequest(sh.router, testutil.NewRequest(t, http.MethodGet, "/dashboard/workbench"))

		testutil.AssertStatus(t, rr, http.StatusFound)
		assert.Equal(t, guard.LoginPath, rr.Header().Get("Location"))
	})

	s.T().Run("dashboard sends each user to their landing view", func(t *testing.T) {
		sh := s.newShell(t)
		signIn(sh.session, "super-admin")

		rr := testutil.DoRequest(sh.router, testutil.NewRequest(t, http.MethodGet, "/dashboard"))

		assert.Equal(t, guard.AnalysisPath, rr.Header().Get("Location"))
	})

	s.T().Run("analysis is limited to super-admins", func(t *testing.T) {
		sh := s.newShell(t)
		signIn(sh.session, "editor")

		rr := testutil.DoRequest(sh.router, testutil.NewRequest(t, http.MethodGet, guard.AnalysisPath))

		testutil.AssertStatus(t, rr, http.StatusFound)
		assert.Equal(t, guard.WorkbenchPath, rr.Header().Get("Location"))
	})

	s.T().Run("me describes the session without tokens", func(t *testing.T) {
		sh := s.newShell(t)
		signIn(sh.session)

		rr := testutil.DoRequest(sh.router, testutil.NewRequest(t, http.MethodGet, "/api/me"))

		testutil.AssertStatusOK(t, rr)
		got := testutil.UnmarshalResponse[SessionView](t, rr)
		assert.True(t, got.Authenticated)
		assert.Equal(t, "Ama Mensah", got.DisplayName)
		assert.NotContains(t, rr.Body.String(), "T1")
	})

	s.T().Run("logout succeeds even when the backend fails", func(t *testing.T) {
		sh := s.newShell(t)
		signIn(sh.session)
		sh.accounts.EXPECT().Logout(gomock.Any()).DoAndReturn(func(context.Context) error {
			sh.session.Clear()
			return errors.New("backend down")
		})

		rr := testutil.DoRequest(sh.router, testutil.NewRequest(t, http.MethodPost, "/auth/logout"))

		testutil.AssertStatusOK(t, rr)
		testutil.AssertJSONContains(t, rr, "redirect", guard.LoginPath)
		assert.False(t, sh.session.IsAuthenticated())
	})

	s.T().Run("refresh failure maps to its status", func(t *testing.T) {
		sh := s.newShell(t)
		signIn(sh.session)
		sh.accounts.EXPECT().RefreshProfile(gomock.Any()).Return(models.Profile{}, service.ErrNoSession)

		rr := testutil.DoRequest(sh.router, testutil.NewRequest(t, http.MethodPost, "/api/me/refresh"))

		testutil.AssertStatusAndError(t, rr, http.StatusUnauthorized, string(dErrors.CodeUnauthorized))
	})
}

// =============================================================================
// Public endpoints
// =============================================================================

func (s *AccountHandlerSuite) TestHandler_Public() {
	s.T().Run("notifications are drained once", func(t *testing.T) {
		sh := s.newShell(t)
		sh.queue.Notify(s.ctx, notify.Error(gateway.MsgDuplicateEmail))

		rr := testutil.DoRequest(sh.router, testutil.NewRequest(t, http.MethodGet, "/api/notifications"))
		testutil.AssertStatusOK(t, rr)
		assert.Contains(t, rr.Body.String(), gateway.MsgDuplicateEmail)

		rr = testutil.DoRequest(sh.router, testutil.NewRequest(t, http.MethodGet, "/api/notifications"))
		assert.JSONEq(t, `{"notifications":[]}`, rr.Body.String())
	})

	s.T().Run("plans lists the catalogue", func(t *testing.T) {
		sh := s.newShell(t)

		rr := testutil.DoRequest(sh.router, testutil.NewRequest(t, http.MethodGet, "/plans"))

		testutil.AssertStatusOK(t, rr)
		got := testutil.UnmarshalResponse[View](t, rr)
		assert.Len(t, got.Data, len(accountModels.Catalogue()))
	})

	s.T().Run("health reports checks", func(t *testing.T) {
		sh := s.newShell(t)

		rr := testutil.DoRequest(sh.router, testutil.NewRequest(t, http.MethodGet, "/healthz"))

		testutil.AssertStatusOK(t, rr)
		testutil.AssertJSONContains(t, rr, "status", "ok")
	})

	s.T().Run("inbound request id is echoed", func(t *testing.T) {
		sh := s.newShell(t)
		req := testutil.NewRequest(t, http.MethodGet, "/")
		req.Header.Set(gateway.RequestIDHeader, "req-42")

		rr := testutil.DoRequest(sh.router, req)

		assert.Equal(t, "req-42", rr.Header().Get(gateway.RequestIDHeader))
	})
}

func TestDeviceName(t *testing.T) {
	assert.Equal(t, "Unknown Device", DeviceName(""))

	chrome := DeviceName("Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")
	assert.Contains(t, chrome, "Chrome")
	assert.Contains(t, chrome, " on ")

	iphone := DeviceName("Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Mobile/15E148 Safari/604.1")
	assert.Contains(t, iphone, "iPhone")
}
