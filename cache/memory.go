package cache

import (
	"bytes"
	"context"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
)

// Option configures a Store.
type Option func(*options)

type options struct {
	clock clock.Clock
}

// WithClock sets the time source used for storedAt stamps and freshness
// checks. Default: the wall clock.
func WithClock(c clock.Clock) Option {
	return func(o *options) {
		if c != nil {
			o.clock = c
		}
	}
}

func applyOptions(opts []Option) options {
	o := options{clock: clock.New()}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// MemoryCache is an in-memory Store.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]cacheEntry
	policy  Policy
	clock   clock.Clock
}

type cacheEntry struct {
	value    []byte
	storedAt time.Time
}

// NewMemoryCache creates a new in-memory cache with the given policy.
func NewMemoryCache(policy Policy, opts ...Option) *MemoryCache {
	o := applyOptions(opts)
	return &MemoryCache{
		entries: make(map[string]cacheEntry),
		policy:  policy,
		clock:   o.clock,
	}
}

// Get retrieves a value from the cache. Returns (nil, false) on miss or expiry.
func (c *MemoryCache) Get(_ context.Context, key string) ([]byte, bool) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok {
		return nil, false
	}

	if expired(entry.storedAt, c.clock.Now(), c.policy.TTL) {
		// Expired - clean up lazily, unless a fresh Put raced us
		c.mu.Lock()
		if cur, ok := c.entries[key]; ok && cur.storedAt.Equal(entry.storedAt) {
			delete(c.entries, key)
		}
		c.mu.Unlock()
		return nil, false
	}

	return bytes.Clone(entry.value), true
}

// Put stores a value stamped with the current time. With a zero TTL policy
// Put is a no-op.
func (c *MemoryCache) Put(_ context.Context, key string, value []byte) error {
	if !c.policy.ShouldCache() {
		return nil
	}
	if err := ValidateKey(key); err != nil {
		return err
	}

	entry := cacheEntry{
		value:    bytes.Clone(value),
		storedAt: c.clock.Now(),
	}

	c.mu.Lock()
	c.entries[key] = entry
	c.mu.Unlock()

	return nil
}

// Delete removes a value from the cache. Idempotent - no error on miss.
func (c *MemoryCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
	return nil
}

// Sweep removes all entries expired at now.
func (c *MemoryCache) Sweep(now time.Time) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for key, entry := range c.entries {
		if expired(entry.storedAt, now, c.policy.TTL) {
			delete(c.entries, key)
			removed++
		}
	}
	return removed
}

// Len returns the number of stored entries.
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Policy returns the cache policy.
func (c *MemoryCache) Policy() Policy {
	return c.policy
}

// Ensure MemoryCache implements Store
var _ Store = (*MemoryCache)(nil)
