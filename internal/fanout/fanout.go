// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package fanout runs independent upstream calls concurrently and merges
// their results deterministically.
package fanout

import (
	"context"

	"github.com/ManuGH/boardlink/internal/metrics"
	"golang.org/x/sync/errgroup"
)

const (
	// DetailLimit bounds per-item detail fetches.
	DetailLimit = 5
	// Unbounded starts one goroutine per item. Only for small, caller-sized
	// sets such as "all boards of a member".
	Unbounded = 0
)

// Map calls fn once per item with at most limit calls in flight and returns
// the results in item order. The first error cancels the remaining calls and
// is returned unchanged; no partial result is ever returned.
func Map[T, R any](ctx context.Context, items []T, limit int, fn func(context.Context, T) (R, error)) ([]R, error) {
	if len(items) == 0 {
		return []R{}, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}

	out := make([]R, len(items))
	for i, item := range items {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			r, err := fn(gctx, item)
			if err != nil {
				return err
			}
			out[i] = r
			return nil
		})
	}

	err := g.Wait()
	if err == nil {
		// A parent cancellation that raced the loop is still a failure.
		err = ctx.Err()
	}
	metrics.RecordFanout(len(items), limit, err != nil)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Concat flattens per-item slices in submission order.
func Concat[T any](parts [][]T) []T {
	n := 0
	for _, p := range parts {
		n += len(p)
	}
	out := make([]T, 0, n)
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

// UniqueBy keeps the first occurrence of every key and drops later
// duplicates, preserving order.
func UniqueBy[T any, K comparable](items []T, key func(T) K) []T {
	seen := make(map[K]struct{}, len(items))
	out := make([]T, 0, len(items))
	for _, it := range items {
		k := key(it)
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, it)
	}
	return out
}
