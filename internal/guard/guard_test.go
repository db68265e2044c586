package guard

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/suite"

	"evera/internal/session/models"
	"evera/internal/session/store"
)

type GuardSuite struct {
	suite.Suite
	session *store.Store
}

func TestGuardSuite(t *testing.T) {
	suite.Run(t, new(GuardSuite))
}

func (s *GuardSuite) SetupSubTest() {
	var err error
	s.session, err = store.New(context.Background(), store.NewInMemoryPersister())
	s.Require().NoError(err)
}

func (s *GuardSuite) signIn(roles ...string) {
	s.session.SetCredential(models.Credential{AccessToken: "T1"})
	profile := models.Profile{ID: "u-1"}
	for _, code := range roles {
		profile.Roles = append(profile.Roles, models.Role{Code: code})
	}
	s.session.SetProfile(profile)
}

func (s *GuardSuite) serve(mw func(http.Handler) http.Handler) *httptest.ResponseRecorder {
	h := mw(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/dashboard", nil))
	return rec
}

func (s *GuardSuite) TestRequireSession() {
	s.Run("no session redirects to login", func() {
		rec := s.serve(RequireSession(s.session, nil))
		s.Equal(http.StatusFound, rec.Code)
		s.Equal(LoginPath, rec.Header().Get("Location"))
	})

	s.Run("credential alone is enough", func() {
		s.session.SetCredential(models.Credential{AccessToken: "T1"})
		rec := s.serve(RequireSession(s.session, nil))
		s.Equal(http.StatusNoContent, rec.Code)
	})

	s.Run("profile without credential is not a session", func() {
		s.session.SetProfile(models.Profile{ID: "u-1", Roles: []models.Role{{Code: RoleSuperAdmin}}})
		rec := s.serve(RequireSession(s.session, nil))
		s.Equal(http.StatusFound, rec.Code)
	})

	s.Run("cleared session is redirected", func() {
		s.signIn()
		s.session.Clear()
		rec := s.serve(RequireSession(s.session, nil))
		s.Equal(LoginPath, rec.Header().Get("Location"))
	})
}

func (s *GuardSuite) TestRequireRole() {
	s.Run("matching role passes regardless of case", func() {
		s.signIn("Super-Admin")
		rec := s.serve(RequireRole(s.session, RoleSuperAdmin, "", nil))
		s.Equal(http.StatusNoContent, rec.Code)
	})

	s.Run("missing role goes to the fallback", func() {
		s.signIn("editor")
		rec := s.serve(RequireRole(s.session, RoleSuperAdmin, "/dashboard", nil))
		s.Equal("/dashboard", rec.Header().Get("Location"))
	})

	s.Run("missing role without fallback goes to the landing path", func() {
		s.signIn()
		rec := s.serve(RequireRole(s.session, RoleSuperAdmin, "", nil))
		s.Equal(WorkbenchPath, rec.Header().Get("Location"))
	})

	s.Run("no session goes to login before role checks", func() {
		rec := s.serve(RequireRole(s.session, RoleSuperAdmin, "/dashboard", nil))
		s.Equal(LoginPath, rec.Header().Get("Location"))
	})
}

func TestLandingPath(t *testing.T) {
	admin := models.Profile{Roles: []models.Role{{Name: "SUPER-ADMIN"}}}
	if got := LandingPath(admin); got != AnalysisPath {
		t.Fatalf("LandingPath(admin) = %q", got)
	}
	if got := LandingPath(models.Profile{}); got != WorkbenchPath {
		t.Fatalf("LandingPath(empty) = %q", got)
	}
}
