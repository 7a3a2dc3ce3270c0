package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisCache implements Cache on top of Redis so multiple indexer
// processes can share one embedding cache.
type RedisCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

var _ Cache = (*RedisCache)(nil)

// RedisOptions configuration for the Redis connection
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
	Prefix   string        // Key prefix, default "ragpipe:embed:"
	TTL      time.Duration // Expiration for entries, default 0 (no expiration)
}

// NewRedisCache creates a Redis-backed embedding cache
func NewRedisCache(opts RedisOptions) *RedisCache {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	prefix := opts.Prefix
	if prefix == "" {
		prefix = "ragpipe:embed:"
	}

	return &RedisCache{
		client: client,
		prefix: prefix,
		ttl:    opts.TTL,
	}
}

// NewRedisCacheWithClient wraps an existing client, useful for tests
func NewRedisCacheWithClient(client *redis.Client, prefix string, ttl time.Duration) *RedisCache {
	if prefix == "" {
		prefix = "ragpipe:embed:"
	}
	return &RedisCache{client: client, prefix: prefix, ttl: ttl}
}

func (c *RedisCache) redisKey(key string) string {
	return c.prefix + key
}

// Get returns the cached vector for key
func (c *RedisCache) Get(ctx context.Context, key string) ([]float32, error) {
	data, err := c.client.Get(ctx, c.redisKey(key)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get embedding from redis: %w", err)
	}

	var embedding []float32
	if err := json.Unmarshal(data, &embedding); err != nil {
		return nil, fmt.Errorf("failed to unmarshal embedding: %w", err)
	}

	return embedding, nil
}

// Set stores the vector under key
func (c *RedisCache) Set(ctx context.Context, key string, embedding []float32) error {
	data, err := json.Marshal(embedding)
	if err != nil {
		return fmt.Errorf("failed to marshal embedding: %w", err)
	}

	if err := c.client.Set(ctx, c.redisKey(key), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set embedding in redis: %w", err)
	}

	return nil
}

// Delete removes the entry for key
func (c *RedisCache) Delete(ctx context.Context, key string) error {
	if err := c.client.Del(ctx, c.redisKey(key)).Err(); err != nil {
		return fmt.Errorf("failed to delete embedding from redis: %w", err)
	}
	return nil
}

// Close closes the underlying Redis client
func (c *RedisCache) Close() error {
	return c.client.Close()
}
