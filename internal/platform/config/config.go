package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Session persistence backends.
const (
	BackendFile   = "file"
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

const (
	defaultBaseURL     = "http://localhost:5000"
	defaultTimeout     = 50 * time.Second
	defaultSessionKey  = "userStore"
	defaultShellAddr   = "127.0.0.1:3001"
	defaultSuccessCode = "0"
)

// Config captures everything the client and the dashboard shell need.
type Config struct {
	API     API
	Session Session
	Redis   RedisConfig
	Shell   Shell
	Log     Log
}

// API describes the backend the gateway talks to.
type API struct {
	BaseURL string
	Timeout time.Duration
	// SuccessStatus is the raw JSON value of the status discriminator that
	// marks a successful envelope, e.g. `0` or `"success"`.
	SuccessStatus string
}

// Session selects where the session store persists its state.
type Session struct {
	Backend string
	Dir     string
	Key     string
}

// RedisConfig is used when Session.Backend is "redis".
type RedisConfig struct {
	URL          string
	KeyPrefix    string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Shell configures the local dashboard server.
type Shell struct {
	Addr string
}

// Log configures the slog handler.
type Log struct {
	Level  string
	Format string
}

// FromEnv builds a Config from environment variables so main stays lean.
func FromEnv() Config {
	return Config{
		API: API{
			BaseURL:       strings.TrimRight(envOr("EVERA_API_BASE_URL", defaultBaseURL), "/"),
			Timeout:       durationOr("EVERA_API_TIMEOUT", defaultTimeout),
			SuccessStatus: envOr("EVERA_SUCCESS_STATUS", defaultSuccessCode),
		},
		Session: Session{
			Backend: strings.ToLower(envOr("EVERA_SESSION_BACKEND", BackendFile)),
			Dir:     envOr("EVERA_SESSION_DIR", defaultSessionDir()),
			Key:     envOr("EVERA_SESSION_KEY", defaultSessionKey),
		},
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			KeyPrefix:    envOr("REDIS_KEY_PREFIX", "evera:"),
			PoolSize:     intOr("REDIS_POOL_SIZE", 4),
			MinIdleConns: intOr("REDIS_MIN_IDLE_CONNS", 1),
			DialTimeout:  durationOr("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  durationOr("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: durationOr("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Shell: Shell{
			Addr: envOr("EVERA_SHELL_ADDR", defaultShellAddr),
		},
		Log: Log{
			Level:  strings.ToLower(envOr("LOG_LEVEL", "info")),
			Format: strings.ToLower(envOr("LOG_FORMAT", "text")),
		},
	}
}

// Validate reports configuration that cannot be used as given.
func (c Config) Validate() error {
	var errs []error
	if c.API.BaseURL == "" {
		errs = append(errs, errors.New("EVERA_API_BASE_URL must not be empty"))
	}
	if c.API.Timeout <= 0 {
		errs = append(errs, errors.New("EVERA_API_TIMEOUT must be positive"))
	}
	switch c.Session.Backend {
	case BackendFile:
		if c.Session.Dir == "" {
			errs = append(errs, errors.New("EVERA_SESSION_DIR must be set for the file backend"))
		}
	case BackendRedis:
		if c.Redis.URL == "" {
			errs = append(errs, errors.New("REDIS_URL must be set for the redis backend"))
		}
	case BackendMemory:
	default:
		errs = append(errs, fmt.Errorf("unknown session backend %q", c.Session.Backend))
	}
	if c.Session.Key == "" {
		errs = append(errs, errors.New("EVERA_SESSION_KEY must not be empty"))
	}
	return errors.Join(errs...)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func durationOr(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

func intOr(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func defaultSessionDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "evera")
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".evera")
	}
	return ""
}
