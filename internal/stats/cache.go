package stats

import (
	"fmt"
	"sync"
	"time"
)

// cacheKey identifies one memoized result. Start/end carry either the
// anchor period start or explicit range bounds, so different anchors in the
// same period share an entry.
type cacheKey struct {
	op          string
	kind        Kind
	granularity Granularity
	window      int
	start       int64
	end         int64
	generation  uint64
}

func (k cacheKey) String() string {
	return fmt.Sprintf("%s/%s/%s/%d/%d-%d@%d", k.op, k.kind, k.granularity, k.window, k.start, k.end, k.generation)
}

// DefaultCacheLimit caps the entries held per generation.
const DefaultCacheLimit = 1024

// Cache memoizes aggregation results against a generation counter. Any
// Invalidate bumps the generation and drops every entry. At most limit
// entries are held; a full cache evicts an arbitrary entry on put.
type Cache struct {
	mu         sync.RWMutex
	generation uint64
	entries    map[cacheKey]any
	limit      int
	hits       uint64
	misses     uint64
	evictions  uint64
}

// NewCache returns an empty cache at generation zero holding at most limit
// entries. A non-positive limit means DefaultCacheLimit.
func NewCache(limit int) *Cache {
	if limit <= 0 {
		limit = DefaultCacheLimit
	}
	return &Cache{entries: make(map[cacheKey]any), limit: limit}
}

// Generation returns the current generation.
func (c *Cache) Generation() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.generation
}

// Invalidate marks every cached entry stale.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	c.generation++
	c.entries = make(map[cacheKey]any)
	c.mu.Unlock()
}

// Len returns the number of live entries.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Evictions returns how many entries were dropped to stay under the limit.
func (c *Cache) Evictions() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.evictions
}

// Stats returns hit and miss counters.
func (c *Cache) Stats() (hits, misses uint64) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.hits, c.misses
}

func (c *Cache) get(k cacheKey) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if k.generation != c.generation {
		c.misses++
		return nil, false
	}
	v, ok := c.entries[k]
	if ok {
		c.hits++
	} else {
		c.misses++
	}
	return v, ok
}

// put stores v only if no invalidation happened since k was built.
func (c *Cache) put(k cacheKey, v any) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if k.generation != c.generation {
		return false
	}
	if _, ok := c.entries[k]; !ok && len(c.entries) >= c.limit {
		for old := range c.entries {
			delete(c.entries, old)
			c.evictions++
			break
		}
	}
	c.entries[k] = v
	return true
}

func unixOrZero(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixNano()
}

// memo returns the cached value for key or computes, stores and returns it.
func memo[T any](c *Cache, k cacheKey, compute func() T) (T, bool) {
	if v, ok := c.get(k); ok {
		if typed, ok := v.(T); ok {
			return typed, true
		}
	}
	v := compute()
	c.put(k, v)
	return v, false
}
