package catalog

import (
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// requestCache is a generic TTL cache for read queries. Concurrent misses
// for the same key are deduplicated through a single-flight group so a burst
// of identical requests produces one storage round trip.
type requestCache struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]cacheEntry
	group   singleflight.Group
	now     func() time.Time
}

type cacheEntry struct {
	value     any
	expiresAt time.Time
}

func newRequestCache(ttl time.Duration) *requestCache {
	return &requestCache{
		ttl:     ttl,
		entries: make(map[string]cacheEntry),
		now:     time.Now,
	}
}

func (c *requestCache) get(key string, fetch func() (any, error)) (any, error) {
	c.mu.Lock()
	if entry, ok := c.entries[key]; ok && c.now().Before(entry.expiresAt) {
		c.mu.Unlock()
		return entry.value, nil
	}
	c.mu.Unlock()

	v, err, _ := c.group.Do(key, func() (any, error) {
		value, err := fetch()
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.entries[key] = cacheEntry{value: value, expiresAt: c.now().Add(c.ttl)}
		c.mu.Unlock()
		return value, nil
	})
	return v, err
}

func (c *requestCache) invalidate(key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}

func (c *requestCache) invalidateAll() {
	c.mu.Lock()
	c.entries = make(map[string]cacheEntry)
	c.mu.Unlock()
}
