// SPDX-License-Identifier: MIT

// Package middleware provides the HTTP ingress stack for the host API.
package middleware

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	xglog "github.com/ManuGH/boardlink/internal/log"
)

// StackConfig selects the optional layers of the ingress stack.
type StackConfig struct {
	EnableSecurityHeaders bool
	EnableMetrics         bool
	EnableLogging         bool
	// TracingService names server spans. Empty disables tracing.
	TracingService string
	// RateLimitPerMinute caps requests per client IP. Zero disables it.
	RateLimitPerMinute int
}

// Chain returns the middlewares in the order they wrap a request.
// Recovery and request IDs are always on; recovery is outermost so a panic
// anywhere below still yields a JSON 500 with the request ID.
func Chain(cfg StackConfig) []func(http.Handler) http.Handler {
	chain := []func(http.Handler) http.Handler{Recoverer, RequestID}
	if cfg.EnableSecurityHeaders {
		chain = append(chain, SecurityHeaders)
	}
	if cfg.EnableMetrics {
		chain = append(chain, Metrics())
	}
	if cfg.TracingService != "" {
		chain = append(chain, OTelHTTP(cfg.TracingService))
	}
	if cfg.EnableLogging {
		chain = append(chain, xglog.Middleware())
	}
	// Throttled requests are still logged, measured and traced.
	if cfg.RateLimitPerMinute > 0 {
		chain = append(chain, APIRateLimit(cfg.RateLimitPerMinute))
	}
	return chain
}

// NewRouter returns a chi router with the stack applied.
func NewRouter(cfg StackConfig) *chi.Mux {
	r := chi.NewRouter()
	r.Use(Chain(cfg)...)
	return r
}
