// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package pollcache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// DefaultRedisPrefix namespaces poll keys in a shared Redis.
const DefaultRedisPrefix = "boardlink:poll:"

// RedisConfig holds Redis connection configuration.
type RedisConfig struct {
	Addr     string // Redis server address (host:port)
	Password string // Redis password (optional)
	DB       int    // Redis database number
	Prefix   string // Key prefix, DefaultRedisPrefix when empty
}

// RedisStore keeps one Redis SET per poller key. SADD is a union by
// construction, so concurrent writers from several daemons never lose IDs.
type RedisStore struct {
	client *redis.Client
	prefix string
	logger zerolog.Logger
}

// NewRedisStore connects to Redis and verifies the connection.
func NewRedisStore(ctx context.Context, cfg RedisConfig, logger zerolog.Logger) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 2,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}

	logger.Info().
		Str("addr", cfg.Addr).
		Int("db", cfg.DB).
		Msg("connected to Redis poll store")

	return newRedisStoreWithClient(client, cfg.Prefix, logger), nil
}

func newRedisStoreWithClient(client *redis.Client, prefix string, logger zerolog.Logger) *RedisStore {
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}
	return &RedisStore{client: client, prefix: prefix, logger: logger}
}

func (s *RedisStore) key(k string) string { return s.prefix + k }

func (s *RedisStore) Get(ctx context.Context, key string) ([]string, bool, error) {
	ids, err := s.client.SMembers(ctx, s.key(key)).Result()
	if err != nil {
		return nil, false, fmt.Errorf("redis smembers: %w", err)
	}
	// Redis drops empty sets, so "missing" and "empty" are the same here.
	return ids, len(ids) > 0, nil
}

func (s *RedisStore) Put(ctx context.Context, key string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	members := make([]any, len(ids))
	for i, id := range ids {
		members[i] = id
	}
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.SAdd(ctx, s.key(key), members...)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis sadd: %w", err)
	}
	return nil
}

// AddNew issues one SADD per id inside MULTI/EXEC; an id is new when its
// SADD reply is 1.
func (s *RedisStore) AddNew(ctx context.Context, key string, ids []string) ([]string, int, error) {
	if len(ids) == 0 {
		return []string{}, 0, nil
	}
	k := s.key(key)
	adds := make([]*redis.IntCmd, len(ids))
	var card *redis.IntCmd
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for i, id := range ids {
			adds[i] = pipe.SAdd(ctx, k, id)
		}
		card = pipe.SCard(ctx, k)
		return nil
	})
	if err != nil {
		return nil, 0, fmt.Errorf("redis sadd: %w", err)
	}

	fresh := make([]string, 0, len(ids))
	for i, cmd := range adds {
		if cmd.Val() == 1 {
			fresh = append(fresh, ids[i])
		}
	}
	return fresh, int(card.Val()), nil
}

func (s *RedisStore) Backend() string { return BackendRedis }

// HealthCheck checks if Redis is available.
func (s *RedisStore) HealthCheck(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
