// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package pollcache

import (
	"context"
	"fmt"
	"sync"

	xglog "github.com/ManuGH/boardlink/internal/log"
	"github.com/ManuGH/boardlink/internal/metrics"
	"github.com/ManuGH/boardlink/internal/telemetry"
	"go.opentelemetry.io/otel/codes"
)

// Engine diffs poll batches against a Store.
type Engine struct {
	store Store
	locks keyedMutex
}

// NewEngine wraps store. The engine does not own the store; callers close it.
func NewEngine(store Store) *Engine {
	return &Engine{store: store}
}

// Store returns the underlying store.
func (e *Engine) Store() Store { return e.store }

// DiffAndCommit returns the ids never seen before under pollerKey, in input
// order and without repeats, and records every incoming id as seen.
//
// An empty batch touches nothing. On a store failure nothing is reported as
// new. Calls for the same key are serialised; other keys run in parallel.
// When the store implements Adder the commit is atomic in the store itself,
// which also holds across processes sharing it.
func (e *Engine) DiffAndCommit(ctx context.Context, pollerKey string, ids []string) ([]string, error) {
	if len(ids) == 0 {
		return []string{}, nil
	}

	ctx, span := telemetry.Tracer("boardlink.pollcache").Start(ctx, "pollcache.diff_and_commit")
	defer span.End()

	unlock := e.locks.lock(pollerKey)
	defer unlock()

	backend := e.store.Backend()
	logger := xglog.WithComponentFromContext(ctx, "pollcache")

	var (
		fresh []string
		seen  int
		err   error
	)
	if adder, ok := e.store.(Adder); ok {
		fresh, seen, err = addNew(ctx, adder, backend, pollerKey, ids)
	} else {
		fresh, seen, err = e.diffAndPut(ctx, pollerKey, ids)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "store commit")
		return nil, err
	}

	metrics.RecordPollBatch(backend, len(ids), len(fresh), seen)
	span.SetAttributes(telemetry.PollAttributes(pollerKey, len(ids), len(fresh))...)
	logger.Debug().
		Str(xglog.FieldEvent, "poll.diff").
		Str(xglog.FieldPollerKey, pollerKey).
		Str(xglog.FieldBackend, backend).
		Int(xglog.FieldIncoming, len(ids)).
		Int(xglog.FieldNew, len(fresh)).
		Msg("poll batch committed")

	return fresh, nil
}

func addNew(ctx context.Context, adder Adder, backend, pollerKey string, ids []string) ([]string, int, error) {
	fresh, seen, err := adder.AddNew(ctx, pollerKey, dedupe(ids))
	if err != nil {
		metrics.IncPollStoreError(backend, "add")
		return nil, 0, fmt.Errorf("pollcache: commit %q: %w", pollerKey, err)
	}
	if fresh == nil {
		fresh = []string{}
	}
	return fresh, seen, nil
}

// diffAndPut is the read-modify-write path for stores owned by one process.
func (e *Engine) diffAndPut(ctx context.Context, pollerKey string, ids []string) ([]string, int, error) {
	backend := e.store.Backend()
	existing, _, err := e.store.Get(ctx, pollerKey)
	if err != nil {
		metrics.IncPollStoreError(backend, "get")
		return nil, 0, fmt.Errorf("pollcache: load %q: %w", pollerKey, err)
	}

	known := make(map[string]struct{}, len(existing)+len(ids))
	for _, id := range existing {
		known[id] = struct{}{}
	}

	fresh := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := known[id]; ok {
			continue
		}
		known[id] = struct{}{}
		fresh = append(fresh, id)
	}

	if len(fresh) > 0 {
		if err := e.store.Put(ctx, pollerKey, fresh); err != nil {
			metrics.IncPollStoreError(backend, "put")
			return nil, 0, fmt.Errorf("pollcache: commit %q: %w", pollerKey, err)
		}
	}
	return fresh, len(known), nil
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// keyedMutex hands out one mutex per key and drops it when unused.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*refMutex
}

type refMutex struct {
	sync.Mutex
	refs int
}

func (k *keyedMutex) lock(key string) (unlock func()) {
	k.mu.Lock()
	if k.locks == nil {
		k.locks = make(map[string]*refMutex)
	}
	m, ok := k.locks[key]
	if !ok {
		m = &refMutex{}
		k.locks[key] = m
	}
	m.refs++
	k.mu.Unlock()

	m.Lock()
	return func() {
		m.Unlock()
		k.mu.Lock()
		m.refs--
		if m.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
