// Package cache provides a bounded TTL store for completed simulation
// results, keyed by a deterministic hash of the job's semantic inputs.
package cache

import (
	"time"

	"github.com/dronreef2/3dPot2-sub000/core/models"
)

// DefaultTTL is applied when SetDefault is used.
const DefaultTTL = 30 * time.Minute

// DefaultMaxEntries bounds the cache when no explicit limit is configured.
const DefaultMaxEntries = 64

// entry is one cached payload with its expiry metadata
type entry struct {
	key      string
	payload  *models.SimulationResults
	storedAt time.Time
	ttl      time.Duration
}

func (e *entry) expired(now time.Time) bool {
	return now.Sub(e.storedAt) > e.ttl
}

// Stats describes the cache contents
type Stats struct {
	Size int      `json:"size"`
	Keys []string `json:"keys"`
}

// ResultCache is a bounded key-value store with lazy TTL expiry. When full
// it evicts the entry with the oldest storedAt before inserting. All methods
// must be called from the owning goroutine; the store serializes access.
type ResultCache struct {
	maxEntries int
	entries    map[string]*entry
	now        func() time.Time
}

// New creates a cache bounded to maxEntries. A non-positive bound falls
// back to DefaultMaxEntries.
func New(maxEntries int) *ResultCache {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	return &ResultCache{
		maxEntries: maxEntries,
		entries:    make(map[string]*entry),
		now:        time.Now,
	}
}

// Get returns the payload for key, or nil on miss. Reading an expired entry
// deletes it and reports a miss.
func (c *ResultCache) Get(key string) *models.SimulationResults {
	e, ok := c.entries[key]
	if !ok {
		return nil
	}
	if e.expired(c.now()) {
		delete(c.entries, key)
		return nil
	}
	return e.payload
}

// Set stores payload under key with the given ttl, evicting the oldest
// entry first if the cache is full. Overwriting an existing key refreshes
// its storedAt and does not evict.
func (c *ResultCache) Set(key string, payload *models.SimulationResults, ttl time.Duration) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if _, exists := c.entries[key]; !exists && len(c.entries) >= c.maxEntries {
		c.evictOldest()
	}
	c.entries[key] = &entry{
		key:      key,
		payload:  payload,
		storedAt: c.now(),
		ttl:      ttl,
	}
}

// SetDefault stores payload with DefaultTTL.
func (c *ResultCache) SetDefault(key string, payload *models.SimulationResults) {
	c.Set(key, payload, DefaultTTL)
}

// Clear removes all entries.
func (c *ResultCache) Clear() {
	c.entries = make(map[string]*entry)
}

// Stats reports the live entries. Expired entries encountered during the
// scan are removed, so Stats never reports a key Get would miss.
func (c *ResultCache) Stats() Stats {
	now := c.now()
	keys := make([]string, 0, len(c.entries))
	for k, e := range c.entries {
		if e.expired(now) {
			delete(c.entries, k)
			continue
		}
		keys = append(keys, k)
	}
	return Stats{Size: len(keys), Keys: keys}
}

func (c *ResultCache) evictOldest() {
	var oldestKey string
	var oldestAt time.Time
	first := true
	for k, e := range c.entries {
		if first || e.storedAt.Before(oldestAt) {
			oldestKey = k
			oldestAt = e.storedAt
			first = false
		}
	}
	if !first {
		delete(c.entries, oldestKey)
	}
}
