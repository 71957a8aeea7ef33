// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"github.com/ManuGH/boardlink/internal/metrics"
	"github.com/ManuGH/boardlink/internal/validate"
)

var (
	pollBackends    = []string{"sqlite", "memory", "redis", "badger", "file"}
	fieldModes      = []string{"advertise", "legacy"}
	tracingExporter = []string{"grpc", "http"}
)

// Validate validates an AppConfig using the centralized validation package
func Validate(cfg AppConfig) error {
	v := validate.New()

	v.ListenAddr("Listen", cfg.Listen)
	v.LogLevel("LogLevel", cfg.LogLevel)
	v.OneOf("FieldMode", cfg.FieldMode, fieldModes)
	v.NonNegative("HTTPRateLimit", cfg.HTTPRateLimit)

	v.URL("Trello.APIBase", cfg.Trello.APIBase, []string{"http", "https"})
	v.PositiveDuration("Trello.Timeout", cfg.Trello.Timeout)
	if cfg.Trello.RateLimit <= 0 {
		v.AddError("Trello.RateLimit", "must be positive", cfg.Trello.RateLimit)
	}
	v.Positive("Trello.RateBurst", cfg.Trello.RateBurst)
	v.NotEmpty("Trello.UserAgent", cfg.Trello.UserAgent)

	v.OneOf("Poll.Backend", cfg.Poll.Backend, pollBackends)
	switch cfg.Poll.Backend {
	case "redis":
		v.NotEmpty("Poll.RedisAddr", cfg.Poll.RedisAddr)
		v.Range("Poll.RedisDB", cfg.Poll.RedisDB, 0, 15)
	case "sqlite", "badger", "file":
		v.Directory("DataDir", cfg.DataDir, false)
	}

	if cfg.Tracing.Enabled {
		v.OneOf("Tracing.Exporter", cfg.Tracing.Exporter, tracingExporter)
		v.NotEmpty("Tracing.Endpoint", cfg.Tracing.Endpoint)
	}
	v.FloatRange("Tracing.SampleRate", cfg.Tracing.SampleRate, 0, 1)

	if !v.IsValid() {
		for range v.Errors() {
			metrics.IncConfigValidationError()
		}
	}
	return v.Err()
}
