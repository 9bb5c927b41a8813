package search

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/kailas-cloud/chunkdex/internal/domain/search/level"
	"github.com/kailas-cloud/chunkdex/internal/metrics"
)

// DepthCache remembers the deepest stored hierarchy level per collection and
// tenant. Safe for concurrent use.
type DepthCache struct {
	lru *expirable.LRU[string, int]
}

// NewDepthCache creates a cache of size entries, each living for ttl.
func NewDepthCache(size int, ttl time.Duration) *DepthCache {
	return &DepthCache{lru: expirable.NewLRU[string, int](size, nil, ttl)}
}

// Probe returns a DepthProbe for one partition that consults the cache
// before asking exec. Failed probes are not cached.
func (c *DepthCache) Probe(exec Executor, collection, tenant string) level.DepthProbe {
	return level.DepthProbeFunc(func(ctx context.Context) (int, error) {
		if c == nil {
			return exec.MaxDepth(ctx, collection, tenant)
		}
		key := depthKey(collection, tenant)
		if d, ok := c.lru.Get(key); ok {
			metrics.DepthCacheTotal.WithLabelValues("hit").Inc()
			return d, nil
		}
		metrics.DepthCacheTotal.WithLabelValues("miss").Inc()

		d, err := exec.MaxDepth(ctx, collection, tenant)
		if err != nil {
			return 0, err
		}
		c.lru.Add(key, d)
		return d, nil
	})
}

// Invalidate drops the cached depth of a partition. Called after writes.
func (c *DepthCache) Invalidate(collection, tenant string) {
	if c == nil {
		return
	}
	c.lru.Remove(depthKey(collection, tenant))
}

func depthKey(collection, tenant string) string {
	return collection + "\x00" + tenant
}
