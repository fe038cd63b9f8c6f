package sampler

import (
	"container/list"
	"sync"

	"github.com/zenlda/zenlda/internal/dist"
)

// DocAliasCache is LightLDA's cached doc alias table: reused across
// tokens of the same doc, rebuilt with probability 1e-2 or if its
// weak/soft reference has been reclaimed. Go has no soft/weak
// references, so the reclaim-under-memory-pressure behavior is replaced
// with a bounded LRU:
// eviction under a fixed capacity plays the same role a garbage
// collector would under a SoftReference, and a cache miss triggers the
// same rebuild path either way.
type DocAliasCache struct {
	mu       sync.Mutex
	capacity int
	entries  map[uint64]*list.Element
	order    *list.List // front = most recently used
}

type docCacheEntry struct {
	docId uint64
	alias *dist.AliasTable
}

// NewDocAliasCache creates a cache holding at most capacity doc alias
// tables.
func NewDocAliasCache(capacity int) *DocAliasCache {
	return &DocAliasCache{
		capacity: capacity,
		entries:  make(map[uint64]*list.Element),
		order:    list.New(),
	}
}

// Get returns the cached alias table for docId, or nil on a miss.
func (c *DocAliasCache) Get(docId uint64) *dist.AliasTable {
	c.mu.Lock()
	defer c.mu.Unlock()
	el, ok := c.entries[docId]
	if !ok {
		return nil
	}
	c.order.MoveToFront(el)
	return el.Value.(*docCacheEntry).alias
}

// Put installs or refreshes the alias table for docId, evicting the
// least-recently-used entry if the cache is at capacity.
func (c *DocAliasCache) Put(docId uint64, a *dist.AliasTable) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.entries[docId]; ok {
		el.Value.(*docCacheEntry).alias = a
		c.order.MoveToFront(el)
		return
	}
	el := c.order.PushFront(&docCacheEntry{docId: docId, alias: a})
	c.entries[docId] = el
	if c.order.Len() > c.capacity {
		oldest := c.order.Back()
		c.order.Remove(oldest)
		delete(c.entries, oldest.Value.(*docCacheEntry).docId)
	}
}
