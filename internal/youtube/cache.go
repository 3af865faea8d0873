package youtube

import (
	"sync"
	"time"
)

type cacheEntry struct {
	payload  []byte
	storedAt time.Time
}

// responseCache is a TTL-based in-memory store for raw API response bodies,
// keyed by the request signature (endpoint plus sorted parameters). Stale
// entries are masked on read rather than evicted; the key space is bounded by
// the distinct requests issued during one process lifetime.
type responseCache struct {
	ttl time.Duration
	now func() time.Time

	mu      sync.RWMutex
	entries map[string]cacheEntry
}

func newResponseCache(ttl time.Duration, now func() time.Time) *responseCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	if now == nil {
		now = time.Now
	}
	return &responseCache{
		ttl:     ttl,
		now:     now,
		entries: make(map[string]cacheEntry),
	}
}

// get returns the stored payload only while it is younger than the TTL.
func (c *responseCache) get(key string) ([]byte, bool) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if c.now().Sub(entry.storedAt) >= c.ttl {
		return nil, false
	}
	return entry.payload, true
}

// set unconditionally overwrites the entry for the key.
func (c *responseCache) set(key string, payload []byte) {
	c.mu.Lock()
	c.entries[key] = cacheEntry{payload: payload, storedAt: c.now()}
	c.mu.Unlock()
}
