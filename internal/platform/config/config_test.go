package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnv(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		t.Setenv("EVERA_API_BASE_URL", "")
		t.Setenv("EVERA_API_TIMEOUT", "")
		t.Setenv("EVERA_SESSION_BACKEND", "")
		t.Setenv("EVERA_SESSION_DIR", "/tmp/evera")

		cfg := FromEnv()
		assert.Equal(t, "http://localhost:5000", cfg.API.BaseURL)
		assert.Equal(t, 50*time.Second, cfg.API.Timeout)
		assert.Equal(t, "0", cfg.API.SuccessStatus)
		assert.Equal(t, BackendFile, cfg.Session.Backend)
		assert.Equal(t, "userStore", cfg.Session.Key)
		require.NoError(t, cfg.Validate())
	})

	t.Run("overrides", func(t *testing.T) {
		t.Setenv("EVERA_API_BASE_URL", "https://api.evera.test/")
		t.Setenv("EVERA_API_TIMEOUT", "5s")
		t.Setenv("EVERA_SESSION_BACKEND", "Redis")
		t.Setenv("REDIS_URL", "redis://localhost:6379/0")

		cfg := FromEnv()
		assert.Equal(t, "https://api.evera.test", cfg.API.BaseURL)
		assert.Equal(t, 5*time.Second, cfg.API.Timeout)
		assert.Equal(t, BackendRedis, cfg.Session.Backend)
		require.NoError(t, cfg.Validate())
	})

	t.Run("invalid timeout falls back to default", func(t *testing.T) {
		t.Setenv("EVERA_API_TIMEOUT", "soon")
		assert.Equal(t, 50*time.Second, FromEnv().API.Timeout)
	})
}

func TestValidate(t *testing.T) {
	t.Run("redis backend requires url", func(t *testing.T) {
		cfg := Config{
			API:     API{BaseURL: "http://x", Timeout: time.Second},
			Session: Session{Backend: BackendRedis, Key: "userStore"},
		}
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "REDIS_URL")
	})

	t.Run("unknown backend", func(t *testing.T) {
		cfg := Config{
			API:     API{BaseURL: "http://x", Timeout: time.Second},
			Session: Session{Backend: "s3", Key: "userStore"},
		}
		require.Error(t, cfg.Validate())
	})
}
