package remote

import (
	"context"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// PoolAnalytics is the aggregate view GetPool memoizes: a pool's
// current status and last start time, as computed by whatever lookup
// function the caller supplies (the demo derives it from FindPools;
// grounded in the per-pool aggregation
// original_source/src/metrics/metrics.py runs).
type PoolAnalytics struct {
	PoolID      string
	Status      string
	LastStarted time.Time
}

// PoolLookup performs the expensive aggregation PoolCache memoizes.
type PoolLookup func(ctx context.Context, poolID string) (*PoolAnalytics, error)

// PoolCache is the bounded, TTL-less memoized GetPool(id) lookup from
// SPEC_FULL.md's supplemental section; its capacity is set by
// NewPoolCache (the default config passes 128). It stores entries in
// a patrickmn/go-cache instance (configured with no default expiration,
// since pool analytics invalidate by capacity, not by age) and layers
// its own recency-ordered eviction on top, since go-cache has no
// notion of a maximum entry count on its own.
type PoolCache struct {
	mu       sync.Mutex
	cache    *gocache.Cache
	order    []string // least-recently-used first
	capacity int
	lookup   PoolLookup
}

// NewPoolCache builds a cache holding at most capacity entries,
// computing misses via lookup.
func NewPoolCache(capacity int, lookup PoolLookup) *PoolCache {
	return &PoolCache{
		cache:    gocache.New(gocache.NoExpiration, 10*time.Minute),
		capacity: capacity,
		lookup:   lookup,
	}
}

// GetPool returns the memoized analytics for poolID, computing and
// caching it via lookup on a miss.
func (c *PoolCache) GetPool(ctx context.Context, poolID string) (*PoolAnalytics, error) {
	c.mu.Lock()
	if v, ok := c.cache.Get(poolID); ok {
		c.touch(poolID)
		c.mu.Unlock()
		return v.(*PoolAnalytics), nil
	}
	c.mu.Unlock()

	pa, err := c.lookup(ctx, poolID)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.cache.SetDefault(poolID, pa)
	c.touch(poolID)
	for len(c.order) > c.capacity {
		evict := c.order[0]
		c.order = c.order[1:]
		c.cache.Delete(evict)
	}
	return pa, nil
}

// touch moves id to the most-recently-used end of c.order, called
// with c.mu held.
func (c *PoolCache) touch(id string) {
	for i, k := range c.order {
		if k == id {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	c.order = append(c.order, id)
}
