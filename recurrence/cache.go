package recurrence

import (
	"sync"
	"time"
)

// CacheConfig holds configuration for a rule's query cache.
type CacheConfig struct {
	MaxEntries int // Maximum number of distinct bounded queries retained
}

// DefaultCacheConfig provides sensible defaults for query caching.
var DefaultCacheConfig = CacheConfig{
	MaxEntries: 64,
}

// cacheKey identifies one bounded query by mode and normalized arguments.
type cacheKey struct {
	mode      string
	lo, hi    int64 // UnixMilli of the bounds; 0 when unused
	inclusive bool
}

// queryCache memoizes query results for one rule or set instance. Specs
// are immutable once built, so entries never invalidate; the cache dies
// with its owner. Population is idempotent, so the single mutex only
// prevents concurrent map access, not duplicate work.
type queryCache struct {
	mu      sync.Mutex
	entries map[cacheKey][]time.Time
	all     []time.Time
	allDone bool
	max     int
}

func newQueryCache(config CacheConfig) *queryCache {
	return &queryCache{
		entries: make(map[cacheKey][]time.Time),
		max:     config.MaxEntries,
	}
}

func (c *queryCache) get(key cacheKey) ([]time.Time, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	result, ok := c.entries[key]
	return result, ok
}

func (c *queryCache) set(key cacheKey, result []time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.entries) >= c.max {
		// Evict arbitrarily; recomputation is safe and cheap compared
		// to unbounded growth.
		for k := range c.entries {
			delete(c.entries, k)
			break
		}
	}
	c.entries[key] = result
}

// setAll records the completed full expansion. Once present, bounded
// queries are answered by filtering it instead of re-running iteration.
func (c *queryCache) setAll(result []time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.all = result
	c.allDone = true
}

func (c *queryCache) getAll() ([]time.Time, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.all, c.allDone
}

// Stats reports the cache's current occupancy.
func (c *queryCache) stats() (entries int, allDone bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries), c.allDone
}
