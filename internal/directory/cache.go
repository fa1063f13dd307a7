package directory

import (
	"sync"
	"time"
)

type snapshot struct {
	rows    []Row
	fetched time.Time
}

// Cache holds per-catalog row snapshots with a TTL. Expired snapshots stay
// around so callers can serve stale data when a refresh fails.
type Cache struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]snapshot
	now     func() time.Time
}

// NewCache creates a cache. A non-positive ttl disables fresh hits, which
// still leaves the stale-fallback path usable.
func NewCache(ttl time.Duration) *Cache {
	return &Cache{
		ttl:     ttl,
		entries: make(map[string]snapshot),
		now:     time.Now,
	}
}

// Fresh returns the snapshot for key if it is within the TTL.
func (c *Cache) Fresh(key string) ([]Row, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[key]
	if !ok || c.ttl <= 0 {
		return nil, false
	}
	if c.now().Sub(entry.fetched) > c.ttl {
		return nil, false
	}
	return entry.rows, true
}

// Stale returns the last stored snapshot for key regardless of age.
func (c *Cache) Stale(key string) ([]Row, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	return entry.rows, true
}

// Put stores a snapshot for key.
func (c *Cache) Put(key string, rows []Row) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = snapshot{rows: rows, fetched: c.now()}
}
