package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aureuma/styleengine/internal/httpapi"
	"github.com/aureuma/styleengine/internal/setup"
	"github.com/aureuma/styleengine/internal/setup/telemetry"
	"go.uber.org/zap"
)

// APILogDir specifies where httpapi log files are stored.
const APILogDir = "logs/api_logs"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := setup.InitializeApp(ctx, telemetry.ServiceAPI, APILogDir)
	if err != nil {
		return fmt.Errorf("initialize application: %w", err)
	}
	defer app.Cleanup(ctx)

	server := httpapi.New(httpapi.Dependencies{
		DB:           app.DB,
		Ingest:       app.Ingest,
		Profile:      app.Profile,
		Orchestrator: app.Orchestrator,
		Bandit:       app.Bandit,
		RLHF:         app.RLHF,
		Feedback:     app.Feedback,
		RedisManager: app.RedisManager,
		Logger:       app.Logger,
	})

	cfg := app.Config.Common.HTTPAPI

	httpSrv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           server.Router(),
		ReadTimeout:       durationOrDefault(cfg.ReadTimeoutSec, 30) * time.Second,
		WriteTimeout:      durationOrDefault(cfg.WriteTimeoutSec, 30) * time.Second,
		IdleTimeout:       durationOrDefault(cfg.IdleTimeoutSec, 120) * time.Second,
		ReadHeaderTimeout: durationOrDefault(cfg.ReadHeaderTimeoutSec, 10) * time.Second,
	}

	errCh := make(chan error, 1)

	go func() {
		app.Logger.Info("starting httpapi server", zap.String("address", httpSrv.Addr))

		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("httpapi server failed: %w", err)
	case <-ctx.Done():
	}

	shutdownTimeout := durationOrDefault(cfg.ShutdownTimeoutSec, 15) * time.Second

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	app.Logger.Info("shutting down httpapi server")

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}

	return nil
}

func durationOrDefault(configured, fallback int) time.Duration {
	if configured <= 0 {
		return time.Duration(fallback)
	}

	return time.Duration(configured)
}
