// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package trello

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	requestTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "boardlink_trello_request_total",
			Help: "Total number of Trello API calls by outcome",
		},
		[]string{"method", "route", "outcome"},
	)
	requestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "boardlink_trello_request_duration_seconds",
			Help:    "Duration of Trello API calls",
			Buckets: prometheus.ExponentialBuckets(0.05, 2.0, 8),
		},
		[]string{"method", "route", "status_class"},
	)
	rateLimitWait = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "boardlink_trello_rate_limit_wait_seconds",
			Help:    "Time spent waiting on the client-side rate limiter",
			Buckets: prometheus.ExponentialBuckets(0.001, 4.0, 8),
		},
	)
)

func statusClass(err error, status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	case status >= 200:
		return "2xx"
	case status > 0:
		return "1xx"
	case err != nil:
		return "error"
	}
	return "unknown"
}

func outcomeLabel(err error) string {
	if err == nil {
		return "success"
	}
	return KindOf(err).String()
}

func recordRequestMetrics(method, route string, status int, duration time.Duration, err error) {
	requestTotal.WithLabelValues(method, route, outcomeLabel(err)).Inc()
	requestDuration.WithLabelValues(method, route, statusClass(err, status)).Observe(duration.Seconds())
}
