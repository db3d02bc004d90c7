// Package orchestrator provides a distributed extraction-idempotency
// marker, complementing extract.Options.SkipExisting's filesystem check
// for deployments where AtomsRoot is not a shared filesystem (e.g.
// ephemeral per-run containers fronted by object storage).
package orchestrator

import (
	"context"
	"fmt"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// DedupeStore records that a conversation has already been extracted, so
// a rerun against the same input can skip it even without shared-disk
// access to AtomsRoot.
type DedupeStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
}

// RedisDedupeStore is a Redis-backed implementation of DedupeStore. A nil
// *RedisDedupeStore is safe to call (Get always misses, Set/Close no-op),
// so callers can wire it unconditionally and only pay for it when Redis is
// configured.
type RedisDedupeStore struct {
	client *redis.Client
}

// NewRedisDedupeStore creates a RedisDedupeStore for addr and pings the
// server to validate the connection. An empty addr returns a nil store
// (distributed dedupe disabled, falling back to the filesystem check).
func NewRedisDedupeStore(addr string) (*RedisDedupeStore, error) {
	if addr == "" {
		return nil, nil
	}
	c := redis.NewClient(&redis.Options{Addr: addr})
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := c.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return &RedisDedupeStore{client: c}, nil
}

// Get returns the value for the given key or "" when the key is missing
// or the store is disabled.
func (s *RedisDedupeStore) Get(ctx context.Context, key string) (string, error) {
	if s == nil {
		return "", nil
	}
	val, err := s.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return val, nil
}

// Set stores the given value under key with the provided TTL. A no-op on a
// disabled store.
func (s *RedisDedupeStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if s == nil {
		return nil
	}
	return s.client.Set(ctx, key, value, ttl).Err()
}

// Close closes the underlying Redis client. A no-op on a disabled store.
func (s *RedisDedupeStore) Close() error {
	if s == nil {
		return nil
	}
	return s.client.Close()
}
