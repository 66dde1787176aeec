package rescache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/matzehuels/fpgapack/pkg/observability"
)

// RedisConfig configures a RedisCache backend.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// RedisCache is a shared, multi-instance result cache backed by Redis.
type RedisCache struct {
	client *redis.Client
}

// NewRedisCache dials cfg.Addr and returns a ready RedisCache.
func NewRedisCache(cfg RedisConfig) *RedisCache {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	return &RedisCache{client: client}
}

// Get retrieves the bytes stored under key.
func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, err := c.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		observability.Cache().OnCacheMiss(ctx, "pack-result")
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	observability.Cache().OnCacheHit(ctx, "pack-result")
	return data, true, nil
}

// Set stores data under key with the given TTL. ttl <= 0 means "no
// expiration", matching redis.Client.Set's own convention.
func (c *RedisCache) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = 0
	}
	if err := c.client.Set(ctx, key, data, ttl).Err(); err != nil {
		return err
	}
	observability.Cache().OnCacheSet(ctx, "pack-result", len(data))
	return nil
}

// Close closes the underlying Redis connection pool.
func (c *RedisCache) Close() error {
	return c.client.Close()
}

var _ Cache = (*RedisCache)(nil)
