package cache

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
)

var (
	// ErrCacheMiss is returned when a cache key is not found
	ErrCacheMiss = errors.New("cache miss")
	// ErrInvalidCacheKey is returned when a cache key is invalid
	ErrInvalidCacheKey = errors.New("invalid cache key")
)

// Kind names the closure a key refers to
type Kind string

const (
	KindDependencies Kind = "dependencies"
	KindTopological  Kind = "topological"
	KindDependents   Kind = "dependents"
)

// Key identifies one cached closure
type Key struct {
	Kind      Kind
	VersionID int64
}

func (k Key) String() string {
	return fmt.Sprintf("%s:%d", k.Kind, k.VersionID)
}

func (k Key) valid() bool {
	return k.Kind != "" && k.VersionID != 0
}

// Cache stores closures as ordered version id lists.
//
// Callers read Generation before loading the graph a closure is computed
// from and pass it to Set. A Set for a generation that Invalidate has since
// moved past is dropped, so a closure of an older graph is never served.
type Cache interface {
	Get(ctx context.Context, key Key) ([]int64, error)
	Generation(ctx context.Context) (int64, error)
	Set(ctx context.Context, key Key, gen int64, ids []int64) error
	// Invalidate drops every cached closure and advances the generation
	Invalidate(ctx context.Context) error
	Stats(ctx context.Context) (*Stats, error)
	Close() error
}

// Stats represents cache statistics
type Stats struct {
	Hits      int64   `json:"hits"`
	Misses    int64   `json:"misses"`
	HitRate   float64 `json:"hit_rate"`
	ItemCount int64   `json:"item_count"`
}

// counters tracks hits and misses
type counters struct {
	hits   atomic.Int64
	misses atomic.Int64
}

func (c *counters) recordHit() {
	c.hits.Add(1)
}

func (c *counters) recordMiss() {
	c.misses.Add(1)
}

func (c *counters) stats(items int64) *Stats {
	stats := &Stats{
		Hits:      c.hits.Load(),
		Misses:    c.misses.Load(),
		ItemCount: items,
	}
	if total := stats.Hits + stats.Misses; total > 0 {
		stats.HitRate = float64(stats.Hits) / float64(total)
	}
	return stats
}
