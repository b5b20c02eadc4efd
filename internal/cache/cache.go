// Package cache provides a time-bounded in-memory cache with a synchronous
// load-on-miss contract. A stale entry is never returned; on staleness it is
// treated as a miss and replaced by the loader's result.
package cache

import (
	"context"
	"sync"
	"time"
)

// Loader produces a value for a missing key.
type Loader[V any] func(ctx context.Context) (V, error)

type entry[V any] struct {
	value    V
	loadedAt time.Time
}

// Cache is a TTL-bounded key/value cache. There is no explicit eviction API;
// entries expire by TTL only. Safe for concurrent use. Redundant concurrent
// misses may reload the same key more than once, which is acceptable for the
// read-mostly workloads this serves.
type Cache[K comparable, V any] struct {
	ttl     time.Duration
	mu      sync.RWMutex
	entries map[K]entry[V]

	// now is replaceable in tests.
	now func() time.Time
}

// New creates a cache with the given TTL.
func New[K comparable, V any](ttl time.Duration) *Cache[K, V] {
	return &Cache[K, V]{
		ttl:     ttl,
		entries: make(map[K]entry[V]),
		now:     time.Now,
	}
}

// Get returns the cached value for key if present and fresh.
func (c *Cache[K, V]) Get(key K) (V, bool) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok || c.now().Sub(e.loadedAt) >= c.ttl {
		var zero V
		return zero, false
	}
	return e.value, true
}

// Set stores value under key with the current timestamp.
func (c *Cache[K, V]) Set(key K, value V) {
	c.mu.Lock()
	c.entries[key] = entry[V]{value: value, loadedAt: c.now()}
	c.mu.Unlock()
}

// GetOrLoad returns the cached value for key, invoking load synchronously on
// a miss and storing the result. A load failure stores nothing.
func (c *Cache[K, V]) GetOrLoad(ctx context.Context, key K, load Loader[V]) (V, error) {
	if v, ok := c.Get(key); ok {
		return v, nil
	}

	v, err := load(ctx)
	if err != nil {
		var zero V
		return zero, err
	}

	c.Set(key, v)
	return v, nil
}

// SetClock overrides the cache's time source. Tests only.
func (c *Cache[K, V]) SetClock(now func() time.Time) {
	c.mu.Lock()
	c.now = now
	c.mu.Unlock()
}
