// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package metrics holds the Prometheus collectors of the connector domain.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Poll dedup
	pollBatchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "boardlink_poll_batches_total",
		Help: "Total number of poll batches diffed against the seen set",
	}, []string{"backend"})

	pollIncomingTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "boardlink_poll_incoming_items_total",
		Help: "Total number of item IDs received by the dedup engine",
	}, []string{"backend"})

	pollNewTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "boardlink_poll_new_items_total",
		Help: "Total number of item IDs reported as new",
	}, []string{"backend"})

	pollSeenSetSize = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "boardlink_poll_seen_set_size",
		Help:    "Size of a poller's seen set after commit",
		Buckets: prometheus.ExponentialBuckets(1, 4, 8),
	})

	pollStoreErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "boardlink_poll_store_errors_total",
		Help: "Total number of poll store failures by operation",
	}, []string{"backend", "op"}) // op=get|put

	// Field resolution
	fieldResolutionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "boardlink_field_resolutions_total",
		Help: "Field resolution passes by state and outcome",
	}, []string{"state", "outcome"}) // state=initial|dependent|flat

	// Fan-out
	fanoutBatchSize = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "boardlink_fanout_batch_size",
		Help:    "Number of items submitted to one fan-out",
		Buckets: prometheus.ExponentialBuckets(1, 2, 8),
	}, []string{"mode"}) // mode=bounded|unbounded

	fanoutFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "boardlink_fanout_failures_total",
		Help: "Fan-outs aborted by a failing branch",
	}, []string{"mode"})

	// Methods
	methodRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "boardlink_method_runs_total",
		Help: "Method invocations by script and outcome",
	}, []string{"method", "script", "outcome"}) // outcome=success|retryable|auth_expired|rejected

	methodRunDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "boardlink_method_run_duration_seconds",
		Help:    "Duration of method invocations",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "script"})

	// Operational
	configValidationErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "boardlink_config_validation_errors_total",
		Help: "Total number of configuration validation errors",
	})

	buildInfo = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "boardlink_build_info",
		Help: "Build information (always 1)",
	}, []string{"version"})
)

// RecordPollBatch records one DiffAndCommit pass.
func RecordPollBatch(backend string, incoming, fresh, seen int) {
	pollBatchesTotal.WithLabelValues(backend).Inc()
	pollIncomingTotal.WithLabelValues(backend).Add(float64(incoming))
	pollNewTotal.WithLabelValues(backend).Add(float64(fresh))
	pollSeenSetSize.Observe(float64(seen))
}

func IncPollStoreError(backend, op string) { pollStoreErrors.WithLabelValues(backend, op).Inc() }

func RecordFieldResolution(state, outcome string) {
	fieldResolutionsTotal.WithLabelValues(state, outcome).Inc()
}

// RecordFanout records a fan-out of n items. limit <= 0 is unbounded.
func RecordFanout(n, limit int, failed bool) {
	mode := "bounded"
	if limit <= 0 {
		mode = "unbounded"
	}
	fanoutBatchSize.WithLabelValues(mode).Observe(float64(n))
	if failed {
		fanoutFailuresTotal.WithLabelValues(mode).Inc()
	}
}

func RecordMethodRun(method, script, outcome string, seconds float64) {
	methodRunsTotal.WithLabelValues(method, script, outcome).Inc()
	methodRunDuration.WithLabelValues(method, script).Observe(seconds)
}

func IncConfigValidationError() { configValidationErrors.Inc() }

func SetBuildInfo(version string) { buildInfo.WithLabelValues(version).Set(1) }
