package app

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	accountModels "evera/internal/account/models"
	"evera/internal/notify"
	"evera/internal/platform/config"
)

type AppSuite struct {
	suite.Suite
	ctx     context.Context
	backend *httptest.Server
	cfg     config.Config
	logger  *slog.Logger
}

func TestAppSuite(t *testing.T) {
	suite.Run(t, new(AppSuite))
}

func (s *AppSuite) SetupTest() {
	s.ctx = context.Background()
	s.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	s.backend = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/api/v1/auth/login":
			_, _ = io.WriteString(w, `{"success":true,"data":{"token":"T1","refreshToken":"R1","user":{"id":"u-1","firstName":"A"}}}`)
		case "/api/v1/auth/logout":
			_, _ = io.WriteString(w, `{"success":true}`)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))

	s.cfg = config.Config{
		API: config.API{
			BaseURL:       s.backend.URL,
			Timeout:       2 * time.Second,
			SuccessStatus: "0",
		},
		Session: config.Session{
			Backend: config.BackendFile,
			Dir:     s.T().TempDir(),
			Key:     "userStore",
		},
		Log: config.Log{Level: "info", Format: "text"},
	}
}

func (s *AppSuite) TearDownTest() {
	s.backend.Close()
}

func (s *AppSuite) TestSessionSurvivesRestart() {
	first, err := New(s.ctx, s.cfg, WithLogger(s.logger))
	s.Require().NoError(err)
	defer first.Close()

	_, err = first.Accounts.SignIn(s.ctx, accountModels.SignInRequest{Email: "a@b.com", Password: "x"})
	s.Require().NoError(err)

	_, err = os.Stat(filepath.Join(s.cfg.Session.Dir, "userStore.json"))
	s.Require().NoError(err)

	second, err := New(s.ctx, s.cfg, WithLogger(s.logger))
	s.Require().NoError(err)
	defer second.Close()

	s.True(second.Session.IsAuthenticated())
	s.Equal(first.Session.Credential(), second.Session.Credential())
	s.Equal("u-1", second.Session.Profile().ID)
}

func (s *AppSuite) TestLogoutIsPersisted() {
	a, err := New(s.ctx, s.cfg, WithLogger(s.logger))
	s.Require().NoError(err)
	defer a.Close()

	_, err = a.Accounts.SignIn(s.ctx, accountModels.SignInRequest{Email: "a@b.com", Password: "x"})
	s.Require().NoError(err)
	s.Require().NoError(a.Accounts.Logout(s.ctx))

	reloaded, err := New(s.ctx, s.cfg, WithLogger(s.logger))
	s.Require().NoError(err)
	defer reloaded.Close()
	s.False(reloaded.Session.IsAuthenticated())
}

func (s *AppSuite) TestNotificationsAreShared() {
	s.cfg.Session.Backend = config.BackendMemory
	notes := &notify.Recorder{}
	a, err := New(s.ctx, s.cfg, WithLogger(s.logger), WithNotifier(notes))
	s.Require().NoError(err)
	defer a.Close()

	_, err = a.Gateway.Get(s.ctx, "/missing")
	s.Require().Error(err)
	s.Len(notes.Messages(notify.LevelError), 1)

	s.Require().NoError(a.Accounts.Logout(s.ctx))
	s.Len(notes.Messages(notify.LevelInfo), 1)
}

func (s *AppSuite) TestInvalidConfiguration() {
	s.cfg.Session.Backend = "floppy"
	_, err := New(s.ctx, s.cfg)
	s.Require().Error(err)
	s.Contains(err.Error(), "unknown session backend")
}

func (s *AppSuite) TestHealthWithoutRedis() {
	s.cfg.Session.Backend = config.BackendMemory
	a, err := New(s.ctx, s.cfg, WithLogger(s.logger))
	s.Require().NoError(err)
	s.NoError(a.Health(s.ctx))
}

func (s *AppSuite) TestSessionClearIsLogged() {
	var buf bytes.Buffer
	a, err := New(s.ctx, s.cfg, WithLogger(slog.New(slog.NewTextHandler(&buf, nil))))
	s.Require().NoError(err)
	defer a.Close()

	_, err = a.Accounts.SignIn(s.ctx, accountModels.SignInRequest{Email: "a@b.com", Password: "x"})
	s.Require().NoError(err)
	s.NotContains(buf.String(), "session cleared")

	s.Require().NoError(a.Accounts.Logout(s.ctx))
	s.Contains(buf.String(), "session cleared")
}
