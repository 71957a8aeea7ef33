// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package methods

import (
	"context"
	"fmt"
	"time"

	xglog "github.com/ManuGH/boardlink/internal/log"
	"github.com/ManuGH/boardlink/internal/metrics"
	"github.com/ManuGH/boardlink/internal/telemetry"
	"github.com/ManuGH/boardlink/internal/trello"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/ManuGH/boardlink/internal/fields"
)

// Registry holds the methods in registration order.
type Registry struct {
	methods map[string]Method
	order   []string
}

// NewRegistry registers ms. Duplicate slugs panic.
func NewRegistry(ms ...Method) *Registry {
	r := &Registry{methods: make(map[string]Method, len(ms))}
	for _, m := range ms {
		slug := m.Meta().Slug
		if _, dup := r.methods[slug]; dup {
			panic(fmt.Sprintf("methods: duplicate slug %q", slug))
		}
		r.methods[slug] = m
		r.order = append(r.order, slug)
	}
	return r
}

// Default returns the connector's methods.
func Default() *Registry {
	return NewRegistry(NewCard{}, AddCard{})
}

// Get looks up a method by slug.
func (r *Registry) Get(slug string) (Method, bool) {
	m, ok := r.methods[slug]
	return m, ok
}

// List returns the metadata of every method.
func (r *Registry) List() []Meta {
	out := make([]Meta, 0, len(r.order))
	for _, slug := range r.order {
		out = append(out, r.methods[slug].Meta())
	}
	return out
}

// Input runs the input script of slug.
func (r *Registry) Input(ctx context.Context, slug string, env Env, req InputRequest) ([]fields.InputField, error) {
	m, ok := r.Get(slug)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownMethod, slug)
	}
	var out []fields.InputField
	err := observe(ctx, slug, "input", env, func(ctx context.Context) error {
		var err error
		out, err = m.Input(ctx, env, req)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Run runs the run script of slug.
func (r *Registry) Run(ctx context.Context, slug string, env Env, values Values) (any, error) {
	m, ok := r.Get(slug)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownMethod, slug)
	}
	var out any
	err := observe(ctx, slug, "run", env, func(ctx context.Context) error {
		var err error
		out, err = m.Run(ctx, env, values)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func observe(ctx context.Context, slug, script string, env Env, fn func(context.Context) error) error {
	ctx = xglog.ContextWithConnectionID(ctx, env.ConnectionID)
	ctx, span := telemetry.Tracer("boardlink.methods").Start(ctx, "method."+script,
		trace.WithAttributes(telemetry.ScriptAttributes(slug, script)...))
	defer span.End()

	logger := xglog.WithComponentFromContext(ctx, "methods")
	start := time.Now()
	err := fn(ctx)
	elapsed := time.Since(start)

	outcome := "success"
	if err != nil {
		outcome = trello.KindOf(err).String()
		span.RecordError(err)
		span.SetStatus(codes.Error, outcome)
	}
	metrics.RecordMethodRun(slug, script, outcome, elapsed.Seconds())

	event := logger.Info()
	if err != nil && trello.KindOf(err) == trello.KindRetryable {
		event = logger.Warn()
	}
	event.
		Err(err).
		Str(xglog.FieldEvent, "method.invoked").
		Str(xglog.FieldMethod, slug).
		Str(xglog.FieldScript, script).
		Str(xglog.FieldErrorKind, outcomeKind(err)).
		Int64(xglog.FieldDurationMS, elapsed.Milliseconds()).
		Msg("method invoked")
	return err
}

func outcomeKind(err error) string {
	if err == nil {
		return ""
	}
	return trello.KindOf(err).String()
}
