// SPDX-License-Identifier: MIT

package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var httpRateLimited = promauto.NewCounter(prometheus.CounterOpts{
	Name: "boardlink_http_rate_limited_total",
	Help: "Host API requests rejected by the per-client rate limit",
})

// probePaths are never limited so orchestrator probes and scrapes keep
// working while a client is throttled.
var probePaths = []string{"/healthz", "/readyz", "/metrics"}

// RateLimitConfig configures the sliding-window limiter.
type RateLimitConfig struct {
	Limit  int
	Window time.Duration
	// PerEndpoint keys by client IP and path instead of client IP alone.
	PerEndpoint bool
	// Exempt paths bypass the limiter.
	Exempt []string
}

// RateLimit builds the limiter. Throttled requests get a 429 in the API's
// problem shape with Retry-After set to the window.
func RateLimit(cfg RateLimitConfig) func(http.Handler) http.Handler {
	keys := []httprate.KeyFunc{httprate.KeyByIP}
	if cfg.PerEndpoint {
		keys = append(keys, httprate.KeyByEndpoint)
	}
	retryAfter := strconv.Itoa(int(cfg.Window.Round(time.Second).Seconds()))

	limit := httprate.Limit(
		cfg.Limit,
		cfg.Window,
		httprate.WithKeyFuncs(keys...),
		httprate.WithLimitHandler(func(w http.ResponseWriter, _ *http.Request) {
			httpRateLimited.Inc()
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("Retry-After", retryAfter)
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"error":"rate_limited","message":"Too many requests, slow down."}`))
		}),
	)

	exempt := make(map[string]struct{}, len(cfg.Exempt))
	for _, p := range cfg.Exempt {
		exempt[p] = struct{}{}
	}
	return func(next http.Handler) http.Handler {
		limited := limit(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := exempt[r.URL.Path]; ok {
				next.ServeHTTP(w, r)
				return
			}
			limited.ServeHTTP(w, r)
		})
	}
}

// APIRateLimit limits each client IP to perMinute requests per minute
// across all method routes. Probe paths are exempt.
func APIRateLimit(perMinute int) func(http.Handler) http.Handler {
	return RateLimit(RateLimitConfig{
		Limit:  perMinute,
		Window: time.Minute,
		Exempt: probePaths,
	})
}
