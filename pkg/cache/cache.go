// Package cache provides a generic, thread-safe cache for derived-state
// memoization, notably the lifecycle manager's downloaded-model snapshot.
// Entries expire after a fixed lifetime and can also be invalidated
// explicitly, so the TTL acts as a staleness bound rather than the only
// invalidation path.
package cache

import (
	"context"
	"sync"
	"time"

	"github.com/c360/textann/errors"
)

// Cache is a generic key/value cache. All implementations are safe for
// concurrent use.
type Cache[T any] interface {
	// Get returns the cached value and whether it was present and live.
	Get(key string) (T, bool)
	// Set stores a value under key, replacing any existing entry.
	Set(key string, value T)
	// Delete removes an entry, reporting whether one existed.
	Delete(key string) bool
	// Clear removes all entries.
	Clear()
	// Len returns the number of stored entries, including any not yet
	// swept expired entries for TTL caches.
	Len() int
	// Close releases background resources. The cache is unusable after.
	Close()
}

type ttlEntry[T any] struct {
	value   T
	expires time.Time
}

// TTL is a cache whose entries expire after a fixed lifetime. A background
// janitor sweeps expired entries; reads also check expiry so a stale entry
// is never returned between sweeps.
type TTL[T any] struct {
	mu      sync.RWMutex
	entries map[string]ttlEntry[T]
	ttl     time.Duration
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewTTL creates a TTL cache. The janitor runs every cleanupInterval until
// ctx is cancelled or Close is called.
func NewTTL[T any](ctx context.Context, ttl, cleanupInterval time.Duration) (*TTL[T], error) {
	if ttl <= 0 {
		return nil, errors.WrapInvalid(errors.ErrInvalidConfig, "TTL", "NewTTL", "non-positive ttl")
	}
	if cleanupInterval <= 0 {
		cleanupInterval = ttl
	}

	ctx, cancel := context.WithCancel(ctx)
	c := &TTL[T]{
		entries: make(map[string]ttlEntry[T]),
		ttl:     ttl,
		cancel:  cancel,
		done:    make(chan struct{}),
	}
	go c.janitor(ctx, cleanupInterval)
	return c, nil
}

func (c *TTL[T]) janitor(ctx context.Context, interval time.Duration) {
	defer close(c.done)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			c.sweep(now)
		}
	}
}

func (c *TTL[T]) sweep(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k, e := range c.entries {
		if now.After(e.expires) {
			delete(c.entries, k)
		}
	}
}

// Get returns the value for key if present and not expired.
func (c *TTL[T]) Get(key string) (T, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[key]
	if !ok || time.Now().After(e.expires) {
		var zero T
		return zero, false
	}
	return e.value, true
}

// Set stores value under key with a fresh lifetime.
func (c *TTL[T]) Set(key string, value T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = ttlEntry[T]{value: value, expires: time.Now().Add(c.ttl)}
}

// Delete removes key, reporting whether it existed.
func (c *TTL[T]) Delete(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.entries[key]
	delete(c.entries, key)
	return ok
}

// Clear removes all entries.
func (c *TTL[T]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]ttlEntry[T])
}

// Len returns the number of stored entries including unswept expired ones.
func (c *TTL[T]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Close stops the janitor and waits for it to exit.
func (c *TTL[T]) Close() {
	c.cancel()
	<-c.done
}
