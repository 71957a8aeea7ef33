// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package api exposes the connector methods to the host platform over HTTP.
package api

import (
	"context"
	"net/http"
	"sync/atomic"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/ManuGH/boardlink/internal/api/middleware"
	"github.com/ManuGH/boardlink/internal/fields"
	"github.com/ManuGH/boardlink/internal/health"
	xglog "github.com/ManuGH/boardlink/internal/log"
	"github.com/ManuGH/boardlink/internal/methods"
	"github.com/ManuGH/boardlink/internal/pollcache"
	"github.com/ManuGH/boardlink/internal/trello"
)

// maxBodyBytes bounds invocation payloads.
const maxBodyBytes = 1 << 20

// Config holds the HTTP surface settings.
type Config struct {
	Version string
	// TracingService names server spans. Empty disables HTTP tracing.
	TracingService string
	// RateLimitPerMinute caps requests per client IP. Zero disables it.
	RateLimitPerMinute int
}

// Deps are the collaborators the handlers call into.
type Deps struct {
	Registry  *methods.Registry
	Executor  trello.Executor
	Poll      *pollcache.Engine
	FieldMode fields.Mode
}

// Server routes host invocations to connector methods.
type Server struct {
	cfg      Config
	registry *methods.Registry
	exec     trello.Executor
	poll     *pollcache.Engine
	resolver atomic.Pointer[fields.Resolver]
	health   *health.Manager
	logger   zerolog.Logger
	router   chi.Router
}

// NewServer wires the router. It does not listen.
func NewServer(cfg Config, deps Deps) *Server {
	s := &Server{
		cfg:      cfg,
		registry: deps.Registry,
		exec:     deps.Executor,
		poll:     deps.Poll,
		logger:   xglog.WithComponent("api"),
	}
	if s.registry == nil {
		s.registry = methods.Default()
	}
	s.resolver.Store(fields.NewResolver(deps.FieldMode))
	s.health = health.NewManager(cfg.Version)
	if s.poll != nil {
		if hc, ok := s.poll.Store().(healthChecker); ok {
			s.health.RegisterChecker(health.NewFuncChecker("poll_store", hc.HealthCheck))
		}
	}
	s.router = s.routes()
	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// SetFieldMode swaps the resolver used by subsequent input calls.
func (s *Server) SetFieldMode(mode fields.Mode) {
	if s.resolver.Load().Mode() == mode {
		return
	}
	s.resolver.Store(fields.NewResolver(mode))
	s.logger.Info().
		Str(xglog.FieldEvent, "fields.mode_changed").
		Str("mode", mode.String()).
		Msg("field resolution mode changed")
}

func (s *Server) routes() chi.Router {
	r := middleware.NewRouter(middleware.StackConfig{
		EnableSecurityHeaders: true,
		EnableMetrics:         true,
		TracingService:        s.cfg.TracingService,
		EnableLogging:         true,
		RateLimitPerMinute:    s.cfg.RateLimitPerMinute,
	})

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.health.ServeReady)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	r.Get("/openapi.yaml", handleOpenAPI)

	r.Route("/v1/methods", func(r chi.Router) {
		r.Get("/", s.handleListMethods)
		r.Post("/{slug}/input", s.handleInput)
		r.Post("/{slug}/run", s.handleRun)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeProblem(w, http.StatusNotFound, codeNotFound, "no such route")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeProblem(w, http.StatusMethodNotAllowed, codeBadRequest, "method not allowed")
	})
	return r
}

type healthChecker interface {
	HealthCheck(ctx context.Context) error
}

func (s *Server) pollBackend() string {
	if s.poll == nil {
		return ""
	}
	return s.poll.Store().Backend()
}
