// Package cache provides a generic in-process TTL cache.
//
// Entries are immutable once stored; a Set replaces the whole entry with an
// atomic swap so readers observe either the previous value or the new one.
package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

type entry[V any] struct {
	value     V
	expiresAt time.Time
}

type slot[V any] struct {
	ptr atomic.Pointer[entry[V]]
}

// Cache is a TTL cache safe for concurrent use.
type Cache[K comparable, V any] struct {
	items sync.Map // K -> *slot[V]
	now   func() time.Time

	stop     chan struct{}
	stopOnce sync.Once
}

// Option configures a Cache.
type Option func(*options)

type options struct {
	now func() time.Time
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// New creates a cache that evicts expired entries every cleanupInterval.
// A zero interval disables background eviction.
func New[K comparable, V any](cleanupInterval time.Duration, opts ...Option) *Cache[K, V] {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}

	c := &Cache[K, V]{now: o.now, stop: make(chan struct{})}
	if cleanupInterval > 0 {
		go c.janitor(cleanupInterval)
	}
	return c
}

// Get returns the value for key if present and not expired.
func (c *Cache[K, V]) Get(_ context.Context, key K) (V, bool) {
	var zero V
	raw, ok := c.items.Load(key)
	if !ok {
		return zero, false
	}
	e := raw.(*slot[V]).ptr.Load()
	if e == nil || !c.now().Before(e.expiresAt) {
		return zero, false
	}
	return e.value, true
}

// Set stores value for key with the given ttl.
func (c *Cache[K, V]) Set(_ context.Context, key K, value V, ttl time.Duration) {
	e := &entry[V]{value: value, expiresAt: c.now().Add(ttl)}
	raw, _ := c.items.LoadOrStore(key, &slot[V]{})
	raw.(*slot[V]).ptr.Store(e)
}

// Delete removes key.
func (c *Cache[K, V]) Delete(_ context.Context, key K) {
	c.items.Delete(key)
}

// Clear removes every entry.
func (c *Cache[K, V]) Clear(_ context.Context) {
	c.items.Clear()
}

// Len returns the number of live entries.
func (c *Cache[K, V]) Len() int {
	n := 0
	now := c.now()
	c.items.Range(func(_, raw any) bool {
		if e := raw.(*slot[V]).ptr.Load(); e != nil && now.Before(e.expiresAt) {
			n++
		}
		return true
	})
	return n
}

// Close stops background eviction.
func (c *Cache[K, V]) Close() {
	c.stopOnce.Do(func() { close(c.stop) })
}

func (c *Cache[K, V]) janitor(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			c.evictExpired()
		}
	}
}

func (c *Cache[K, V]) evictExpired() {
	now := c.now()
	c.items.Range(func(key, raw any) bool {
		s := raw.(*slot[V])
		if e := s.ptr.Load(); e == nil || !now.Before(e.expiresAt) {
			c.items.CompareAndDelete(key, s)
		}
		return true
	})
}
