// Package cache is a thin JSON cache over Redis. A Store built with a nil
// client is valid and never hits: every read misses and every write is a
// no-op, so Redis stays optional.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/shashiranjanraj/mithai/pkg/logger"
	"github.com/shashiranjanraj/mithai/pkg/metrics"
)

// Connect opens a Redis client and verifies it with a ping.
func Connect(ctx context.Context, addr, password string) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("cache: redis ping: %w", err)
	}
	return rdb, nil
}

type Store struct {
	rdb  redis.UniversalClient
	name string
}

// New returns a store whose metrics are labelled name. rdb may be nil.
func New(rdb redis.UniversalClient, name string) *Store {
	return &Store{rdb: rdb, name: name}
}

func (s *Store) Enabled() bool { return s != nil && s.rdb != nil }

// Get unmarshals the value at key into dest and reports a hit.
func (s *Store) Get(ctx context.Context, key string, dest any) bool {
	if !s.Enabled() {
		return false
	}

	val, err := s.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			logger.WithCtx(ctx).Warn("cache get failed", "key", key, "error", err)
		}
		metrics.CacheMisses.WithLabelValues(s.name).Inc()
		return false
	}
	if err := json.Unmarshal(val, dest); err != nil {
		metrics.CacheMisses.WithLabelValues(s.name).Inc()
		return false
	}
	metrics.CacheHits.WithLabelValues(s.name).Inc()
	return true
}

func (s *Store) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	if !s.Enabled() {
		return nil
	}
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, key, data, ttl).Err()
}

func (s *Store) Del(ctx context.Context, keys ...string) error {
	if !s.Enabled() || len(keys) == 0 {
		return nil
	}
	return s.rdb.Del(ctx, keys...).Err()
}

// Remember returns the cached value at key, or calls fn, caches its result
// and copies it into dest. Cache errors never fail the call.
func Remember[T any](ctx context.Context, s *Store, key string, ttl time.Duration, fn func() (T, error)) (T, error) {
	var cached T
	if s.Get(ctx, key, &cached) {
		return cached, nil
	}

	fresh, err := fn()
	if err != nil {
		return fresh, err
	}
	if err := s.Set(ctx, key, fresh, ttl); err != nil {
		logger.WithCtx(ctx).Warn("cache set failed", "key", key, "error", err)
	}
	return fresh, nil
}

// Version returns the generation counter for a namespace. Keys built with it
// go stale together when Bump is called.
func (s *Store) Version(ctx context.Context, namespace string) int64 {
	if !s.Enabled() {
		return 0
	}
	n, err := s.rdb.Get(ctx, namespace+":version").Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		logger.WithCtx(ctx).Warn("cache version read failed", "namespace", namespace, "error", err)
	}
	return n
}

func (s *Store) Bump(ctx context.Context, namespace string) error {
	if !s.Enabled() {
		return nil
	}
	return s.rdb.Incr(ctx, namespace+":version").Err()
}
