package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// ConnectRedis initializes and returns a Redis client instance.
func ConnectRedis(addr, password string, db int, logger *zap.Logger) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := rdb.Ping(ctx).Result(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.Info("Connected to Redis", zap.String("addr", addr), zap.Int("db", db))
	return rdb, nil
}

// DisconnectRedis closes the Redis client connection.
func DisconnectRedis(client *redis.Client, logger *zap.Logger) error {
	if client == nil {
		return nil
	}
	if err := client.Close(); err != nil {
		return fmt.Errorf("failed to close Redis connection: %w", err)
	}
	logger.Info("Redis connection closed")
	return nil
}

// ErrMiss is returned by JSONCache.Get when the key is absent.
var ErrMiss = errors.New("cache miss")

// JSONCache stores JSON encoded values under a key prefix with a fixed TTL.
type JSONCache struct {
	client redis.Cmdable
	prefix string
	ttl    time.Duration
}

func NewJSONCache(client redis.Cmdable, prefix string, ttl time.Duration) *JSONCache {
	return &JSONCache{client: client, prefix: prefix, ttl: ttl}
}

func (c *JSONCache) key(k string) string {
	return c.prefix + ":" + k
}

// Get decodes the cached value for k into dest.
func (c *JSONCache) Get(ctx context.Context, k string, dest interface{}) error {
	raw, err := c.client.Get(ctx, c.key(k)).Bytes()
	if errors.Is(err, redis.Nil) {
		return ErrMiss
	}
	if err != nil {
		return fmt.Errorf("failed to read cache key %s: %w", c.key(k), err)
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return fmt.Errorf("failed to decode cache key %s: %w", c.key(k), err)
	}
	return nil
}

// Set encodes value and stores it for the cache TTL.
func (c *JSONCache) Set(ctx context.Context, k string, value interface{}) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode cache value: %w", err)
	}
	if err := c.client.Set(ctx, c.key(k), raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to write cache key %s: %w", c.key(k), err)
	}
	return nil
}
