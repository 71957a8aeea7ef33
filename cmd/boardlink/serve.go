// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"github.com/ManuGH/boardlink/internal/api"
	"github.com/ManuGH/boardlink/internal/config"
	"github.com/ManuGH/boardlink/internal/fields"
	xglog "github.com/ManuGH/boardlink/internal/log"
	"github.com/ManuGH/boardlink/internal/methods"
	"github.com/ManuGH/boardlink/internal/metrics"
	"github.com/ManuGH/boardlink/internal/pollcache"
	"github.com/ManuGH/boardlink/internal/telemetry"
	"github.com/ManuGH/boardlink/internal/trello"
)

const shutdownTimeout = 15 * time.Second

func newServeCmd(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve connector methods to the host over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, opts)
		},
	}
}

func runServe(ctx context.Context, opts *cliOptions) error {
	cfg, loader, err := loadConfig(opts, nil)
	if err != nil {
		return err
	}
	logger := xglog.WithComponent("daemon")
	logger.Info().
		Str("event", "config.loaded").
		Str("config_path", opts.configPath).
		Str("config", cfg.String()).
		Msg("configuration loaded")

	mode, err := fields.ParseMode(cfg.FieldMode)
	if err != nil {
		return err
	}

	tp, err := telemetry.NewProvider(ctx, tracingConfig(cfg))
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer func() {
		if err := tp.Shutdown(context.Background()); err != nil {
			logger.Warn().Err(err).Msg("tracer shutdown failed")
		}
	}()
	metrics.SetBuildInfo(version)

	store, err := openPollStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Warn().Err(err).Msg("poll store close failed")
		}
	}()

	tracingService := ""
	if cfg.Tracing.Enabled {
		tracingService = serviceName
	}
	srv := api.NewServer(api.Config{
		Version:            version,
		TracingService:     tracingService,
		RateLimitPerMinute: cfg.HTTPRateLimit,
	}, api.Deps{
		Registry:  methods.Default(),
		Executor:  newExecutor(cfg),
		Poll:      pollcache.NewEngine(store),
		FieldMode: mode,
	})

	holder := config.NewHolder(cfg, loader, opts.configPath)
	updates := make(chan config.AppConfig, 1)
	holder.RegisterListener(updates)
	if err := holder.StartWatcher(ctx); err != nil {
		logger.Warn().Err(err).Msg("config watcher not started")
	}
	defer holder.Stop()
	go applyConfigUpdates(ctx, srv, updates, logger)

	httpSrv := &http.Server{
		Addr:              cfg.Listen,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      cfg.Trello.Timeout + 30*time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().
			Str("event", "server.start").
			Str("addr", cfg.Listen).
			Str("poll_backend", store.Backend()).
			Str("field_mode", mode.String()).
			Msg("listening")
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info().Str("event", "server.shutdown").Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}
	return nil
}

// applyConfigUpdates pushes reloadable settings into the running server.
func applyConfigUpdates(ctx context.Context, srv *api.Server, updates <-chan config.AppConfig, logger zerolog.Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		case cfg := <-updates:
			mode, err := fields.ParseMode(cfg.FieldMode)
			if err != nil {
				logger.Warn().Err(err).Msg("ignoring reloaded field mode")
				continue
			}
			srv.SetFieldMode(mode)
		}
	}
}

func tracingConfig(cfg config.AppConfig) telemetry.Config {
	return telemetry.Config{
		Enabled:        cfg.Tracing.Enabled,
		ServiceName:    serviceName,
		ServiceVersion: version,
		ExporterType:   cfg.Tracing.Exporter,
		Endpoint:       cfg.Tracing.Endpoint,
		Insecure:       cfg.Tracing.Insecure,
		SamplingRate:   cfg.Tracing.SampleRate,
	}
}

func openPollStore(ctx context.Context, cfg config.AppConfig, logger zerolog.Logger) (pollcache.Store, error) {
	store, err := pollcache.NewStore(ctx, pollcache.Config{
		Backend: cfg.Poll.Backend,
		DataDir: cfg.DataDir,
		Redis: pollcache.RedisConfig{
			Addr:     cfg.Poll.RedisAddr,
			Password: cfg.Poll.RedisPassword,
			DB:       cfg.Poll.RedisDB,
			Prefix:   cfg.Poll.RedisPrefix,
		},
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("open poll store: %w", err)
	}
	return store, nil
}

// newExecutor builds the upstream executor. Tests replace it.
var newExecutor = func(cfg config.AppConfig) trello.Executor {
	return newGateway(cfg)
}

func newGateway(cfg config.AppConfig) *trello.Gateway {
	return trello.NewGateway(trello.Options{
		BaseURL:        cfg.Trello.APIBase,
		Timeout:        cfg.Trello.Timeout,
		RateLimit:      rate.Limit(cfg.Trello.RateLimit),
		RateLimitBurst: cfg.Trello.RateBurst,
		UserAgent:      cfg.Trello.UserAgent,
	})
}
