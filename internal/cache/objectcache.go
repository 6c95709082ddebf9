package cache

import (
	"container/list"
	"sync"
	"time"

	"github.com/gitcas/gitcas/internal/config"
	"github.com/gitcas/gitcas/pkg/types"
)

// ObjectCache is the two-level (hot/warm) object cache. L1 evicts in
// strict LRU order, L2 in strict insertion (FIFO) order.
type ObjectCache struct {
	mu sync.Mutex

	l1Capacity   int
	l1TTL        time.Duration
	l2Capacity   int
	l2TTL        time.Duration
	promoteAfter int64

	l1      map[types.Hash]*cacheItem
	l1Order *list.List // front = most recently used
	l2      map[types.Hash]*cacheItem
	l2Order *list.List // front = oldest insertion

	stats types.CacheStats

	// now is replaceable for TTL tests.
	now func() time.Time
}

type cacheItem struct {
	entry   types.CachedEntry
	element *list.Element
}

// NewObjectCache builds a cache from configuration.
func NewObjectCache(cfg *config.CacheConfig) *ObjectCache {
	return &ObjectCache{
		l1Capacity:   cfg.L1Capacity,
		l1TTL:        cfg.L1TTL,
		l2Capacity:   cfg.L2Capacity,
		l2TTL:        cfg.L2TTL,
		promoteAfter: cfg.PromoteAfter,
		l1:           make(map[types.Hash]*cacheItem),
		l1Order:      list.New(),
		l2:           make(map[types.Hash]*cacheItem),
		l2Order:      list.New(),
		now:          time.Now,
	}
}

// Get returns a copy of the cached bytes for hash, if present and
// unexpired in either level. An L2 hit past the promotion threshold
// moves the entry into L1.
func (c *ObjectCache) Get(hash types.Hash) ([]byte, bool) {
	data, _, ok := c.Lookup(hash)
	return data, ok
}

// Lookup is Get plus the level that served the hit, "l1" or "l2"
// (empty on a miss).
func (c *ObjectCache) Lookup(hash types.Hash) ([]byte, string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()

	if item, ok := c.l1[hash]; ok {
		if c.expired(item, c.l1TTL, now) {
			c.removeL1(item)
			c.stats.Expirations++
		} else {
			item.entry.LastAccessed = now
			item.entry.AccessCount++
			c.l1Order.MoveToFront(item.element)
			c.stats.Hits++
			return copyBytes(item.entry.Data), "l1", true
		}
	}

	if item, ok := c.l2[hash]; ok {
		if c.expired(item, c.l2TTL, now) {
			c.removeL2(item)
			c.stats.Expirations++
		} else {
			item.entry.LastAccessed = now
			item.entry.AccessCount++
			c.stats.Hits++
			data := copyBytes(item.entry.Data)
			if item.entry.AccessCount > c.promoteAfter {
				c.removeL2(item)
				c.insertL1(item.entry)
				c.stats.Promotions++
			}
			return data, "l2", true
		}
	}

	c.stats.Misses++
	return nil, "", false
}

// Put caches a copy of data under hash in L1, demoting the LRU entry
// into L2 when L1 is full. Re-putting an existing hash refreshes it.
func (c *ObjectCache) Put(hash types.Hash, kind types.ObjectKind, data []byte) {
	if len(data) == 0 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()

	if item, ok := c.l1[hash]; ok {
		item.entry.Data = copyBytes(data)
		item.entry.Size = int64(len(data))
		item.entry.Kind = kind
		item.entry.CachedAt = now
		item.entry.LastAccessed = now
		item.entry.AccessCount++
		c.l1Order.MoveToFront(item.element)
		return
	}
	if item, ok := c.l2[hash]; ok {
		// Fresh write supersedes the warm copy.
		c.removeL2(item)
	}

	c.insertL1(types.CachedEntry{
		Hash:         hash,
		Kind:         kind,
		Data:         copyBytes(data),
		Size:         int64(len(data)),
		CachedAt:     now,
		LastAccessed: now,
		AccessCount:  1,
	})
}

// Clear empties both levels and resets statistics.
func (c *ObjectCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.l1 = make(map[types.Hash]*cacheItem)
	c.l1Order.Init()
	c.l2 = make(map[types.Hash]*cacheItem)
	c.l2Order.Init()
	c.stats = types.CacheStats{}
}

// Stats returns a snapshot of cache statistics.
func (c *ObjectCache) Stats() types.CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()

	stats := c.stats
	stats.L1Entries = len(c.l1)
	stats.L2Entries = len(c.l2)
	if total := stats.Hits + stats.Misses; total > 0 {
		stats.HitRate = float64(stats.Hits) / float64(total)
	}
	return stats
}

// insertL1 places an entry at the front of L1, demoting the LRU
// entry into L2 if L1 is at capacity.
func (c *ObjectCache) insertL1(entry types.CachedEntry) {
	for len(c.l1) >= c.l1Capacity {
		oldest := c.l1Order.Back()
		if oldest == nil {
			break
		}
		victim := oldest.Value.(*cacheItem)
		c.removeL1(victim)
		c.demoteToL2(victim.entry)
		c.stats.Evictions++
	}

	item := &cacheItem{entry: entry}
	item.element = c.l1Order.PushFront(item)
	c.l1[entry.Hash] = item
}

// demoteToL2 appends an L1 evictee to L2's insertion order, evicting
// L2's oldest entry first if the level is full.
func (c *ObjectCache) demoteToL2(entry types.CachedEntry) {
	for len(c.l2) >= c.l2Capacity {
		oldest := c.l2Order.Front()
		if oldest == nil {
			break
		}
		c.removeL2(oldest.Value.(*cacheItem))
		c.stats.Evictions++
	}

	item := &cacheItem{entry: entry}
	item.element = c.l2Order.PushBack(item)
	c.l2[entry.Hash] = item
	c.stats.Demotions++
}

func (c *ObjectCache) removeL1(item *cacheItem) {
	c.l1Order.Remove(item.element)
	delete(c.l1, item.entry.Hash)
}

func (c *ObjectCache) removeL2(item *cacheItem) {
	c.l2Order.Remove(item.element)
	delete(c.l2, item.entry.Hash)
}

func (c *ObjectCache) expired(item *cacheItem, ttl time.Duration, now time.Time) bool {
	if ttl <= 0 {
		return false
	}
	return now.Sub(item.entry.CachedAt) > ttl
}

func copyBytes(b []byte) []byte {
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
