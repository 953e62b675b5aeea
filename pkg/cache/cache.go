// Package cache provides an optional Redis-backed cache-aside layer for the
// public menu payload. When no Redis address is configured every operation is
// a no-op, so callers never need to branch on availability.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"menew-api/pkg/config"

	"github.com/redis/go-redis/v9"
)

// Cache wraps a Redis client with a key prefix and default TTL.
type Cache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

var instance *Cache

// Initialize connects to Redis when an address is configured. Returns nil
// error with caching disabled when the address is empty.
func Initialize(redisConfig *config.RedisConfig) error {
	if redisConfig.Addr == "" {
		instance = nil
		return nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     redisConfig.Addr,
		Password: redisConfig.Password,
		DB:       redisConfig.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}

	instance = &Cache{
		client: client,
		prefix: "menew:",
		ttl:    redisConfig.TTL,
	}
	return nil
}

// GetCache returns the cache instance, or nil when caching is disabled.
func GetCache() *Cache {
	return instance
}

// Get retrieves a value. Returns false on a miss (or when caching is disabled).
func (c *Cache) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	if c == nil {
		return false, nil
	}

	data, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return false, nil
		}
		return false, fmt.Errorf("cache get error: %w", err)
	}

	if err := json.Unmarshal(data, dest); err != nil {
		return false, fmt.Errorf("cache unmarshal error: %w", err)
	}
	return true, nil
}

// Set stores a value with the default TTL.
func (c *Cache) Set(ctx context.Context, key string, value interface{}) error {
	if c == nil {
		return nil
	}

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache marshal error: %w", err)
	}

	if err := c.client.Set(ctx, c.prefix+key, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache set error: %w", err)
	}
	return nil
}

// Delete removes a single key.
func (c *Cache) Delete(ctx context.Context, key string) error {
	if c == nil {
		return nil
	}

	if err := c.client.Del(ctx, c.prefix+key).Err(); err != nil {
		return fmt.Errorf("cache delete error: %w", err)
	}
	return nil
}

// Close closes the Redis connection.
func (c *Cache) Close() error {
	if c == nil {
		return nil
	}
	return c.client.Close()
}
