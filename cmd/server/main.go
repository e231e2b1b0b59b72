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

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/Clark-Hu/cinema-online/internal/catalog"
	"github.com/Clark-Hu/cinema-online/internal/config"
	httpserver "github.com/Clark-Hu/cinema-online/internal/http"
	"github.com/Clark-Hu/cinema-online/internal/logging"
	"github.com/Clark-Hu/cinema-online/internal/metrics"
	"github.com/Clark-Hu/cinema-online/internal/repository"
	"github.com/Clark-Hu/cinema-online/internal/session"
	"github.com/Clark-Hu/cinema-online/internal/store"
	"github.com/Clark-Hu/cinema-online/internal/telemetry"
)

const serviceName = "cinema-online"

// Version is stamped at build time with -ldflags "-X main.Version=...".
var Version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("config error")
	}

	logger := logging.NewLogger(serviceName, cfg.LogLevel)
	logger.WithField("version", Version).Info("starting")

	sentryEnabled, err := telemetry.InitSentry(cfg.SentryDSN, serviceName, cfg.Environment, Version)
	if err != nil {
		logger.WithError(err).Warn("sentry disabled")
	}

	runErr := run(ctx, cfg, logger)
	if runErr != nil {
		logger.WithError(runErr).Error("server exited")
		telemetry.CaptureError(runErr, map[string]string{"phase": "run"})
	}
	if sentryEnabled {
		telemetry.Flush()
	}
	if runErr != nil {
		stop()
		os.Exit(1)
	}
	logger.Info("stopped")
}

func run(ctx context.Context, cfg config.Config, logger *logrus.Entry) error {
	dbCtx, cancel := context.WithTimeout(ctx, time.Duration(cfg.DBConnTimeoutSecs)*time.Second)
	defer cancel()

	st, err := store.New(dbCtx, cfg.DBURL, store.OptionsFromConfig(cfg, logger))
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer st.Close()

	if err := metrics.RegisterPoolStats(prometheus.DefaultRegisterer, st.Stats); err != nil {
		logger.WithError(err).Warn("pool metrics disabled")
	}

	cat := catalog.New(repository.New(st), logger)
	sessions := session.NewManager(cfg.SessionSecret, time.Duration(cfg.SessionTTLMins)*time.Minute, cfg.Environment == "production")

	server, err := httpserver.New(cfg, cat, st, sessions, logger)
	if err != nil {
		return fmt.Errorf("init http server: %w", err)
	}

	serverErrCh := make(chan error, 1)
	go func() {
		if err := server.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			serverErrCh <- err
			return
		}
		serverErrCh <- nil
	}()

	var serveErr error
	select {
	case err := <-serverErrCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr = fmt.Errorf("serve: %w", err)
		}
	case <-ctx.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.WithError(err).Error("graceful shutdown error")
	}
	return serveErr
}
