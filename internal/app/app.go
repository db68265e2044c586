// Package app assembles the client from configuration: persistence, session
// store, gateway and account service, in dependency order.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"evera/internal/account/service"
	"evera/internal/gateway"
	"evera/internal/notify"
	"evera/internal/platform/config"
	"evera/internal/platform/metrics"
	platformredis "evera/internal/platform/redis"
	"evera/internal/session/store"
)

// App holds the wired components. Close releases what New opened.
type App struct {
	Config   config.Config
	Logger   *slog.Logger
	Registry *prometheus.Registry
	Metrics  *metrics.Metrics
	Redis    *platformredis.Client
	Session  *store.Store
	Gateway  *gateway.Client
	Accounts *service.Service
}

type options struct {
	logger   *slog.Logger
	notifier notify.Notifier
	registry *prometheus.Registry
}

type Option func(*options)

func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithNotifier sets where user-facing notifications go. The gateway and the
// account service share it.
func WithNotifier(n notify.Notifier) Option {
	return func(o *options) {
		o.notifier = n
	}
}

// WithRegistry registers metrics on reg instead of a fresh registry.
func WithRegistry(reg *prometheus.Registry) Option {
	return func(o *options) {
		o.registry = reg
	}
}

// New validates cfg and wires every component. The session store is
// rehydrated before New returns, so nothing can observe it signed out by
// mistake.
func New(ctx context.Context, cfg config.Config, opts ...Option) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	o := options{notifier: notify.Discard}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	if o.registry == nil {
		o.registry = prometheus.NewRegistry()
		o.registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}

	a := &App{
		Config:   cfg,
		Logger:   o.logger,
		Registry: o.registry,
		Metrics:  metrics.New(o.registry),
	}

	persister, err := a.newPersister(ctx)
	if err != nil {
		_ = a.Close()
		return nil, err
	}

	a.Session, err = store.New(ctx, persister,
		store.WithLogger(o.logger),
		store.WithClearHook(func() { o.logger.Info("session cleared") }),
	)
	if err != nil {
		_ = a.Close()
		return nil, fmt.Errorf("create session store: %w", err)
	}

	a.Gateway, err = gateway.New(cfg.API.BaseURL, a.Session,
		gateway.WithTimeout(cfg.API.Timeout),
		gateway.WithSuccessStatus(cfg.API.SuccessStatus),
		gateway.WithNotifier(o.notifier),
		gateway.WithLogger(o.logger),
		gateway.WithMetrics(a.Metrics),
	)
	if err != nil {
		_ = a.Close()
		return nil, fmt.Errorf("create gateway: %w", err)
	}

	a.Accounts, err = service.New(a.Gateway, a.Session,
		service.WithNotifier(o.notifier),
		service.WithLogger(o.logger),
		service.WithMetrics(a.Metrics),
	)
	if err != nil {
		_ = a.Close()
		return nil, fmt.Errorf("create account service: %w", err)
	}

	o.logger.DebugContext(ctx, "client ready",
		"api", cfg.API.BaseURL,
		"session_backend", cfg.Session.Backend,
		"authenticated", a.Session.IsAuthenticated(),
	)
	return a, nil
}

func (a *App) newPersister(ctx context.Context) (store.Persister, error) {
	cfg := a.Config
	switch cfg.Session.Backend {
	case config.BackendMemory:
		return store.NewInMemoryPersister(), nil
	case config.BackendRedis:
		client, err := platformredis.New(ctx, cfg.Redis)
		if err != nil {
			return nil, fmt.Errorf("connect session redis: %w", err)
		}
		if client == nil {
			return nil, errors.New("redis session backend needs REDIS_URL")
		}
		a.Redis = client
		return store.NewRedisPersister(client, cfg.Redis.KeyPrefix, cfg.Session.Key)
	default:
		return store.NewFilePersister(cfg.Session.Dir, cfg.Session.Key)
	}
}

// Health reports whether the session backend is reachable.
func (a *App) Health(ctx context.Context) error {
	if a.Redis == nil {
		return nil
	}
	return a.Redis.Health(ctx)
}

func (a *App) Close() error {
	if a.Redis != nil {
		return a.Redis.Close()
	}
	return nil
}
