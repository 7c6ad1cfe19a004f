// Package optimizer wraps a search function with result caching, input
// debouncing, prefetching, and performance telemetry.
package optimizer

import (
	"container/list"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/riptide-app/riptide/internal/filter"
	"github.com/riptide-app/riptide/internal/source"
)

// cacheEntry is one cached search result.
type cacheEntry struct {
	key        string
	sources    []source.Metadata
	insertedAt time.Time
}

// resultCache is a concurrency-safe TTL cache with insertion-order eviction:
// when full, the least-recently-INSERTED entry is evicted, regardless of how
// recently it was read. Overwriting a key re-inserts it at the back.
type resultCache struct {
	mu      sync.Mutex
	entries map[string]*list.Element
	order   *list.List // front = oldest insertion
	maxSize int
	ttl     time.Duration
	now     func() time.Time
}

func newResultCache(maxSize int, ttl time.Duration) *resultCache {
	return &resultCache{
		entries: make(map[string]*list.Element),
		order:   list.New(),
		maxSize: maxSize,
		ttl:     ttl,
		now:     time.Now,
	}
}

// Key builds the cache key from the normalized query and a hash of the
// filter snapshot.
func Key(query string, f *filter.Advanced) string {
	normalized := strings.ToLower(strings.TrimSpace(query))
	h := sha256.New()
	if f != nil {
		// Filters are plain data; JSON is a stable enough fingerprint.
		if data, err := json.Marshal(f); err == nil {
			h.Write(data)
		}
	}
	return normalized + "|" + hex.EncodeToString(h.Sum(nil)[:8])
}

// Get returns the cached sources for a key if present and not expired.
func (c *resultCache) Get(key string) ([]source.Metadata, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	entry := elem.Value.(*cacheEntry)
	if c.now().Sub(entry.insertedAt) > c.ttl {
		c.removeLocked(elem)
		return nil, false
	}
	return entry.sources, true
}

// Add inserts or overwrites an entry, evicting the oldest insertion first
// when the cache is full.
func (c *resultCache) Add(key string, sources []source.Metadata) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.addLocked(key, sources)
}

// AddIfAbsent inserts only when the key is not already cached. Used by
// prefetch, which must never overwrite a previously cached result.
func (c *resultCache) AddIfAbsent(key string, sources []source.Metadata) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.entries[key]; ok {
		if c.now().Sub(elem.Value.(*cacheEntry).insertedAt) <= c.ttl {
			return false
		}
		c.removeLocked(elem)
	}
	c.addLocked(key, sources)
	return true
}

func (c *resultCache) addLocked(key string, sources []source.Metadata) {
	if elem, ok := c.entries[key]; ok {
		c.removeLocked(elem)
	}
	for len(c.entries) >= c.maxSize {
		oldest := c.order.Front()
		if oldest == nil {
			break
		}
		c.removeLocked(oldest)
	}
	elem := c.order.PushBack(&cacheEntry{
		key:        key,
		sources:    sources,
		insertedAt: c.now(),
	})
	c.entries[key] = elem
}

func (c *resultCache) removeLocked(elem *list.Element) {
	entry := elem.Value.(*cacheEntry)
	c.order.Remove(elem)
	delete(c.entries, entry.key)
}

// SweepExpired removes every expired entry and returns how many were
// dropped. Called periodically, independent of eviction pressure.
func (c *resultCache) SweepExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for elem := c.order.Front(); elem != nil; {
		next := elem.Next()
		if c.now().Sub(elem.Value.(*cacheEntry).insertedAt) > c.ttl {
			c.removeLocked(elem)
			removed++
		}
		elem = next
	}
	return removed
}

// Len returns the current entry count.
func (c *resultCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Purge drops every entry.
func (c *resultCache) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*list.Element)
	c.order.Init()
}
