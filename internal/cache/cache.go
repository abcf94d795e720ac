// Package cache provides a mutex-guarded TTL cache with lazy expiration.
// Entries are immutable once written; updates replace the whole entry.
// Expiry is checked at read time, never by a background sweep — map sizes
// are bounded by the number of active sessions.
package cache

import (
	"sync"
	"time"
)

// Stats describes the cache contents at the moment of the call, judged
// against the injected clock.
type Stats struct {
	Total   int
	Valid   int
	Expired int
}

type entry[T any] struct {
	value    T
	storedAt time.Time
}

// TTL is a fixed-TTL cache keyed by string. The zero value is not usable;
// construct with New.
type TTL[T any] struct {
	mu      sync.RWMutex
	ttl     time.Duration
	now     func() time.Time
	entries map[string]entry[T]
}

// New creates a TTL cache. now may be nil, in which case time.Now is used;
// tests inject a fake clock.
func New[T any](ttl time.Duration, now func() time.Time) *TTL[T] {
	if now == nil {
		now = time.Now
	}
	return &TTL[T]{
		ttl:     ttl,
		now:     now,
		entries: make(map[string]entry[T]),
	}
}

// Get returns the cached value for key if present and not expired.
func (c *TTL[T]) Get(key string) (T, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.entries[key]
	if !ok || c.now().Sub(e.storedAt) >= c.ttl {
		var zero T
		return zero, false
	}
	return e.value, true
}

// Set stores value under key, overwriting any prior entry (expired or not).
func (c *TTL[T]) Set(key string, value T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = entry[T]{value: value, storedAt: c.now()}
}

// Invalidate drops all entries.
func (c *TTL[T]) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]entry[T])
}

// Stats counts total, valid and expired entries against the current time.
func (c *TTL[T]) Stats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	s := Stats{Total: len(c.entries)}
	now := c.now()
	for _, e := range c.entries {
		if now.Sub(e.storedAt) >= c.ttl {
			s.Expired++
		} else {
			s.Valid++
		}
	}
	return s
}
