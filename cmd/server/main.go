package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"evera/internal/app"
	"evera/internal/notify"
	"evera/internal/platform/config"
	"evera/internal/platform/httpserver"
	"evera/internal/platform/logger"
	httptransport "evera/internal/transport/http"
)

const shutdownTimeout = 10 * time.Second

// main wires the client and serves the dashboard shell until interrupted.
// Business logic lives in the account service; this only assembles it.
func main() {
	cfg := config.FromEnv()
	log := logger.New(cfg.Log)

	if err := run(cfg, log); err != nil {
		log.Error("shell stopped with error", "error", err)
		os.Exit(1)
	}
	log.Info("shell stopped")
}

func run(cfg config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	queue := notify.NewQueue(50)
	client, err := app.New(ctx, cfg,
		app.WithLogger(log),
		app.WithNotifier(notify.Multi(queue, notify.NewLog(log))),
	)
	if err != nil {
		return fmt.Errorf("start client: %w", err)
	}
	defer client.Close()

	handler, err := httptransport.NewHandler(client.Accounts, client.Session, queue,
		httptransport.WithLogger(log),
		httptransport.WithHealthCheck("session_store", client.Health),
	)
	if err != nil {
		return fmt.Errorf("build handler: %w", err)
	}
	metricsHandler := promhttp.HandlerFor(client.Registry, promhttp.HandlerOpts{})
	router := httptransport.NewRouter(handler, metricsHandler, log)

	srv := httpserver.New(cfg.Shell.Addr, router, cfg.API.Timeout)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting evera shell",
			"addr", cfg.Shell.Addr,
			"api", cfg.API.BaseURL,
			"session_backend", cfg.Session.Backend,
			"authenticated", client.Session.IsAuthenticated(),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
