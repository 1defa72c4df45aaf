package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/platinummonkey/unitgraph/pkg/storage"
)

const keyPrefix = "unitgraph:closure:"

// RedisCache shares closures between registry instances
type RedisCache struct {
	client   *redis.Client
	ttl      time.Duration
	counters counters
}

// NewRedisClient creates a Redis client from storage config and checks the connection
func NewRedisClient(config storage.Config) (*redis.Client, error) {
	opts, err := redis.ParseURL(config.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}

	if config.RedisPassword != "" {
		opts.Password = config.RedisPassword
	}
	if config.RedisDB > 0 {
		opts.DB = config.RedisDB
	}
	if config.RedisMaxRetries > 0 {
		opts.MaxRetries = config.RedisMaxRetries
	}
	if config.RedisPoolSize > 0 {
		opts.PoolSize = config.RedisPoolSize
	}

	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = 3 * time.Second
	opts.WriteTimeout = 3 * time.Second
	opts.PoolTimeout = 4 * time.Second

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return client, nil
}

// NewRedisCache wraps a connected client
func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, ttl: ttl}
}

// Generation returns the generation shared by every instance
func (c *RedisCache) Generation(ctx context.Context) (int64, error) {
	gen, err := c.client.Get(ctx, keyPrefix+"generation").Int64()
	if err == redis.Nil {
		return 0, nil
	} else if err != nil {
		return 0, fmt.Errorf("redis get failed: %w", err)
	}
	return gen, nil
}

func generationKey(gen int64, key Key) string {
	return fmt.Sprintf("%sg%d:%s", keyPrefix, gen, key)
}

// Get retrieves a cached closure
func (c *RedisCache) Get(ctx context.Context, key Key) ([]int64, error) {
	if !key.valid() {
		return nil, ErrInvalidCacheKey
	}
	gen, err := c.Generation(ctx)
	if err != nil {
		return nil, err
	}
	k := generationKey(gen, key)

	data, err := c.client.Get(ctx, k).Bytes()
	if err == redis.Nil {
		c.counters.recordMiss()
		return nil, ErrCacheMiss
	} else if err != nil {
		return nil, fmt.Errorf("redis get failed: %w", err)
	}

	var ids []int64
	if err := json.Unmarshal(data, &ids); err != nil {
		// Drop corrupt data
		c.client.Del(ctx, k)
		return nil, fmt.Errorf("failed to unmarshal closure: %w", err)
	}
	c.counters.recordHit()
	return ids, nil
}

// Set stores a closure under generation gen. Once Invalidate has moved past
// gen, readers never look at that key again and it expires through its TTL.
func (c *RedisCache) Set(ctx context.Context, key Key, gen int64, ids []int64) error {
	if !key.valid() {
		return ErrInvalidCacheKey
	}
	if ids == nil {
		ids = []int64{}
	}
	data, err := json.Marshal(ids)
	if err != nil {
		return fmt.Errorf("failed to marshal closure: %w", err)
	}
	return c.client.Set(ctx, generationKey(gen, key), data, c.ttl).Err()
}

// Invalidate moves every instance to a new key generation. Entries of older
// generations expire through their TTL.
func (c *RedisCache) Invalidate(ctx context.Context) error {
	if err := c.client.Incr(ctx, keyPrefix+"generation").Err(); err != nil {
		return fmt.Errorf("failed to bump cache generation: %w", err)
	}
	return nil
}

// Stats returns cache statistics for this instance; ItemCount is the size of
// the current generation.
func (c *RedisCache) Stats(ctx context.Context) (*Stats, error) {
	gen, err := c.Generation(ctx)
	if err != nil {
		return nil, err
	}
	var items int64
	iter := c.client.Scan(ctx, 0, fmt.Sprintf("%sg%d:*", keyPrefix, gen), 100).Iterator()
	for iter.Next(ctx) {
		items++
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("scan failed: %w", err)
	}
	return c.counters.stats(items), nil
}

// Ping checks Redis connectivity
func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close closes the Redis connection
func (c *RedisCache) Close() error {
	return c.client.Close()
}
