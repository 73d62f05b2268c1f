// Package pkgcache is the concurrent in-memory cache of collections keyed
// by collection identifier. It is an authoritative subset of the primary
// table: a key present here resolves to exactly the bytes the primary
// table would return.
//
// Grounded on the RWMutex+map shape of
// firefly-research-flydb/internal/cache/cache.go and
// other_examples/kk-code-lab-rdir__global_search_cache.go, minus the LRU
// eviction and TTL those carry — this cache calls for neither; it is
// only ever populated by successful writes and cleared explicitly.
package pkgcache

import (
	"sync"

	"github.com/zephyraoss/poppy-index/internal/collection"
)

// Cache maps a collection's database key to its decoded value.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]collection.Collection
}

// New returns an empty Cache.
func New() *Cache {
	return &Cache{entries: make(map[string]collection.Collection)}
}

// Get returns the cached collection for key, if present.
func (c *Cache) Get(key string) (collection.Collection, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.entries[key]
	return v, ok
}

// Put stores v under key. Callers must only call this after a successful
// write to the primary table.
func (c *Cache) Put(key string, v collection.Collection) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = v
}

// Delete evicts key. Callers must only call this after a successful
// removal from the primary table.
func (c *Cache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

// Clear empties the cache. Exposed for test seams and to restore cache
// consistency after bulk external changes to the primary table.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]collection.Collection)
}

// GetMany returns the cached collections for the given keys, in the same
// order, and reports whether every key was present.
func (c *Cache) GetMany(keys []string) ([]collection.Collection, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]collection.Collection, 0, len(keys))
	for _, k := range keys {
		v, ok := c.entries[k]
		if !ok {
			return nil, false
		}
		out = append(out, v)
	}
	return out, true
}
