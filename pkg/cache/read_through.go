// Package cache provides a read-through cache with explicit invalidation.
package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// Loader fetches the value for a key on a cache miss.
type Loader[K comparable, V any] func(ctx context.Context, key K) (V, error)

type entry[V any] struct {
	value    V
	loadedAt time.Time
}

// ReadThrough caches loader results by key. Concurrent misses for the same key share one load.
// A zero ttl keeps entries until they are invalidated.
type ReadThrough[K comparable, V any] struct {
	mu      sync.RWMutex
	entries map[K]entry[V]
	load    Loader[K, V]
	ttl     time.Duration
	group   singleflight.Group
	now     func() time.Time
}

// NewReadThrough returns an empty cache filled by load. Entries older than ttl are reloaded on
// the next Get; a zero ttl never expires them.
func NewReadThrough[K comparable, V any](load func(ctx context.Context, key K) (V, error), ttl time.Duration) *ReadThrough[K, V] {
	return &ReadThrough[K, V]{
		entries: make(map[K]entry[V]),
		load:    load,
		ttl:     ttl,
		now:     time.Now,
	}
}

// Get returns the cached value for key, loading it on a miss or after expiry.
func (c *ReadThrough[K, V]) Get(ctx context.Context, key K) (V, error) {
	if v, ok := c.Peek(key); ok {
		return v, nil
	}

	res, err, _ := c.group.Do(fmt.Sprint(key), func() (interface{}, error) {
		v, err := c.load(ctx, key)
		if err != nil {
			return v, err
		}
		c.mu.Lock()
		c.entries[key] = entry[V]{value: v, loadedAt: c.now()}
		c.mu.Unlock()
		return v, nil
	})
	if err != nil {
		var zero V
		return zero, err
	}
	return res.(V), nil
}

// Peek returns a live cached value without loading.
func (c *ReadThrough[K, V]) Peek(key K) (V, bool) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok || c.expired(e) {
		var zero V
		return zero, false
	}
	return e.value, true
}

func (c *ReadThrough[K, V]) expired(e entry[V]) bool {
	return c.ttl > 0 && c.now().Sub(e.loadedAt) > c.ttl
}

// Invalidate drops key so the next Get loads it again. A load already in flight still
// stores its result.
func (c *ReadThrough[K, V]) Invalidate(key K) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}
