package cache

import (
	"context"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2/expirable"
)

// MemoryCache is an in-process LRU with per-entry TTL
type MemoryCache struct {
	cache    *lru.LRU[string, []int64]
	counters counters

	// mu orders Set against Invalidate
	mu  sync.Mutex
	gen int64
}

// NewMemoryCache creates a cache holding at most maxEntries closures
func NewMemoryCache(maxEntries int, ttl time.Duration) *MemoryCache {
	if maxEntries < 10 {
		maxEntries = 10
	}
	return &MemoryCache{
		cache: lru.NewLRU[string, []int64](maxEntries, nil, ttl),
	}
}

// Get retrieves a cached closure
func (c *MemoryCache) Get(ctx context.Context, key Key) ([]int64, error) {
	if !key.valid() {
		return nil, ErrInvalidCacheKey
	}
	ids, ok := c.cache.Get(key.String())
	if !ok {
		c.counters.recordMiss()
		return nil, ErrCacheMiss
	}
	c.counters.recordHit()
	return append([]int64(nil), ids...), nil
}

// Generation returns the current cache generation
func (c *MemoryCache) Generation(ctx context.Context) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gen, nil
}

// Set stores a closure computed at generation gen. It is a no-op when the
// cache has been invalidated since.
func (c *MemoryCache) Set(ctx context.Context, key Key, gen int64, ids []int64) error {
	if !key.valid() {
		return ErrInvalidCacheKey
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen {
		return nil
	}
	c.cache.Add(key.String(), append([]int64(nil), ids...))
	return nil
}

// Invalidate purges the cache and starts a new generation
func (c *MemoryCache) Invalidate(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++
	c.cache.Purge()
	return nil
}

// Stats returns cache statistics
func (c *MemoryCache) Stats(ctx context.Context) (*Stats, error) {
	return c.counters.stats(int64(c.cache.Len())), nil
}

// Close releases resources
func (c *MemoryCache) Close() error {
	c.cache.Purge()
	return nil
}
