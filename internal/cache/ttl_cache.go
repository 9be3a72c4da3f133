// Package cache provides a thread-safe TTL cache for query results. The
// store only changes when an ingest run commits, so short-lived caching of
// read results is safe; the API clears the cache when a run completes.
package cache

import (
	"sync"
	"time"
)

// entry pairs a value with its expiry instant.
type entry[V any] struct {
	value   V
	expires time.Time
}

// TTLCache is a thread-safe cache where each entry expires individually.
type TTLCache[K comparable, V any] struct {
	mu   sync.RWMutex
	data map[K]entry[V]
	ttl  time.Duration
}

// New creates an empty cache whose entries live for ttl after insertion.
func New[K comparable, V any](ttl time.Duration) *TTLCache[K, V] {
	return &TTLCache[K, V]{
		data: make(map[K]entry[V]),
		ttl:  ttl,
	}
}

// Get retrieves a live value. Expired entries read as absent and are
// removed lazily on the next Set or Purge.
func (c *TTLCache[K, V]) Get(key K) (V, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.data[key]
	if !ok || time.Now().After(e.expires) {
		var zero V
		return zero, false
	}
	return e.value, true
}

// Set stores a value with a fresh TTL.
func (c *TTLCache[K, V]) Set(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.data == nil {
		c.data = make(map[K]entry[V])
	}
	c.data[key] = entry[V]{value: value, expires: time.Now().Add(c.ttl)}
}

// Clear drops every entry. Called after an ingest run commits so readers
// never see pre-run results past the commit.
func (c *TTLCache[K, V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data = make(map[K]entry[V])
}

// Purge removes expired entries and reports how many remain.
func (c *TTLCache[K, V]) Purge() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	for k, e := range c.data {
		if now.After(e.expires) {
			delete(c.data, k)
		}
	}
	return len(c.data)
}

// Len returns the entry count, expired entries included.
func (c *TTLCache[K, V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.data)
}
