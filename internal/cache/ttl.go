// Package cache provides a small keyed TTL cache. Callers own the cache and
// inject it wherever read-through behavior is wanted; there is no package
// singleton.
package cache

import (
	"sync"
	"time"
)

type entry[V any] struct {
	value   V
	expires time.Time
}

// TTL is a concurrency-safe expiring map.
type TTL[K comparable, V any] struct {
	mu         sync.RWMutex
	data       map[K]entry[V]
	defaultTTL time.Duration
	now        func() time.Time
}

// NewTTL creates a cache whose entries expire defaultTTL after being set.
func NewTTL[K comparable, V any](defaultTTL time.Duration) *TTL[K, V] {
	return &TTL[K, V]{
		data:       make(map[K]entry[V]),
		defaultTTL: defaultTTL,
		now:        time.Now,
	}
}

// Get returns the cached value when present and unexpired. Expired entries
// are removed on access.
func (c *TTL[K, V]) Get(key K) (V, bool) {
	c.mu.RLock()
	e, ok := c.data[key]
	c.mu.RUnlock()
	if !ok {
		var zero V
		return zero, false
	}
	if c.now().After(e.expires) {
		c.mu.Lock()
		if current, still := c.data[key]; still && c.now().After(current.expires) {
			delete(c.data, key)
		}
		c.mu.Unlock()
		var zero V
		return zero, false
	}
	return e.value, true
}

// Set stores a value with the default TTL.
func (c *TTL[K, V]) Set(key K, value V) {
	c.SetTTL(key, value, c.defaultTTL)
}

// SetTTL stores a value with an explicit TTL.
func (c *TTL[K, V]) SetTTL(key K, value V, ttl time.Duration) {
	c.mu.Lock()
	c.data[key] = entry[V]{value: value, expires: c.now().Add(ttl)}
	c.mu.Unlock()
}

// Invalidate removes a single key.
func (c *TTL[K, V]) Invalidate(key K) {
	c.mu.Lock()
	delete(c.data, key)
	c.mu.Unlock()
}

// Clear drops every entry.
func (c *TTL[K, V]) Clear() {
	c.mu.Lock()
	c.data = make(map[K]entry[V])
	c.mu.Unlock()
}

// Len reports the number of stored entries, expired or not.
func (c *TTL[K, V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.data)
}
