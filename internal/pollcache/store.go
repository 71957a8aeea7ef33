// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package pollcache turns a repeating feed of "latest item" IDs into the
// strictly new subset, remembering what each poller has already seen.
package pollcache

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/rs/zerolog"
)

// Backend names accepted by NewStore.
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
	BackendBadger = "badger"
	BackendFile   = "file"
)

var errClosed = errors.New("pollcache: store closed")

// Store persists one seen set per poller key.
//
// Put adds ids to the set stored under key; it never removes anything.
// Get reports whether an entry exists. A missing entry and an empty one are
// interchangeable for callers.
type Store interface {
	Get(ctx context.Context, key string) ([]string, bool, error)
	Put(ctx context.Context, key string, ids []string) error
	Backend() string
	Close() error
}

// Adder is implemented by stores that several processes can share. AddNew
// records ids under key and returns, in input order, the ids that were not
// already present, together with the size of the set afterwards. The check
// and the write happen in one store-side step, so two engines racing on the
// same key never both report an id.
type Adder interface {
	AddNew(ctx context.Context, key string, ids []string) (fresh []string, seen int, err error)
}

// Config selects and configures the store backend.
type Config struct {
	Backend string
	DataDir string
	Redis   RedisConfig
}

// NewStore creates a poll store based on the backend.
func NewStore(ctx context.Context, cfg Config, logger zerolog.Logger) (Store, error) {
	backend := cfg.Backend
	if backend == "" {
		backend = BackendSQLite
	}

	switch backend {
	case BackendSQLite:
		if cfg.DataDir == "" {
			logger.Warn().Msg("no data dir configured, poll state is kept in memory only")
			return NewMemoryStore(), nil
		}
		return open(NewSQLiteStore(ctx, filepath.Join(cfg.DataDir, "poll.sqlite")))
	case BackendMemory:
		return NewMemoryStore(), nil
	case BackendRedis:
		return open(NewRedisStore(ctx, cfg.Redis, logger))
	case BackendBadger:
		if cfg.DataDir == "" {
			return nil, fmt.Errorf("badger poll store requires a data dir")
		}
		return open(NewBadgerStore(filepath.Join(cfg.DataDir, "poll.badger")))
	case BackendFile:
		if cfg.DataDir == "" {
			return nil, fmt.Errorf("file poll store requires a data dir")
		}
		return open(NewFileStore(filepath.Join(cfg.DataDir, "poll.json")))
	default:
		return nil, fmt.Errorf("unknown poll store backend: %s (supported: sqlite, memory, redis, badger, file)", backend)
	}
}

// open keeps a failed constructor from leaking a typed nil into Store.
func open[S Store](s S, err error) (Store, error) {
	if err != nil {
		return nil, err
	}
	return s, nil
}

// union appends the ids not yet in existing, preserving order.
func union(existing, ids []string) []string {
	seen := make(map[string]struct{}, len(existing)+len(ids))
	out := make([]string, 0, len(existing)+len(ids))
	for _, list := range [][]string{existing, ids} {
		for _, id := range list {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			out = append(out, id)
		}
	}
	return out
}
