package embedding

import (
	"context"
	"encoding/base64"
	"fmt"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// RedisCache is a write-through L1 in front of the file cache, useful when
// many short-lived worker processes share one embedding cache. Modeled on
// the teacher's RedisDedupeStore: a thin Get/Set wrapper with a TTL,
// generalized here to binary vector payloads instead of idempotency
// tokens.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisCache dials addr and verifies connectivity with a short-timeout
// ping, mirroring NewRedisDedupeStore.
func NewRedisCache(addr string, ttl time.Duration) (*RedisCache, error) {
	c := redis.NewClient(&redis.Options{Addr: addr})
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := c.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisCache{client: c, ttl: ttl}, nil
}

// Get returns a cached vector for key, ok=false on any miss or error (cache
// I/O errors are swallowed per spec §7).
func (r *RedisCache) Get(ctx context.Context, key string) ([]float32, bool) {
	if r == nil {
		return nil, false
	}
	val, err := r.client.Get(ctx, redisCacheKey(key)).Result()
	if err != nil {
		return nil, false
	}
	raw, err := base64.StdEncoding.DecodeString(val)
	if err != nil || len(raw)%4 != 0 {
		return nil, false
	}
	return decodeVector(raw), true
}

// Set writes v under key with the cache's TTL, swallowing any error.
func (r *RedisCache) Set(ctx context.Context, key string, v []float32) {
	if r == nil {
		return
	}
	encoded := base64.StdEncoding.EncodeToString(encodeVector(v))
	_ = r.client.Set(ctx, redisCacheKey(key), encoded, r.ttl).Err()
}

// Close releases the underlying client.
func (r *RedisCache) Close() error {
	if r == nil {
		return nil
	}
	return r.client.Close()
}

func redisCacheKey(key string) string {
	return "ckexporter:embed:" + key
}
