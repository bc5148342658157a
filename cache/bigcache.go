package cache

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	"github.com/allegro/bigcache/v3"
	"github.com/benbjohnson/clock"
)

// headerSize is the length of the storedAt stamp written ahead of each value.
const headerSize = 8

// BigCacheConfig tunes the bigcache backend.
type BigCacheConfig struct {
	// Shards is the number of bigcache shards (power of two).
	// Default: 64
	Shards int `yaml:"shards" env:"SHARDS"`

	// HardMaxCacheSizeMB caps the memory of the whole store. Once reached,
	// the oldest entries are evicted.
	// Default: 64
	HardMaxCacheSizeMB int `yaml:"hard_max_cache_size_mb" env:"HARD_MAX_CACHE_SIZE_MB"`

	// MaxEntrySize is the expected payload size in bytes, used for
	// preallocation.
	// Default: 16 KiB
	MaxEntrySize int `yaml:"max_entry_size" env:"MAX_ENTRY_SIZE"`

	// MaxEntriesInWindow is the expected number of live entries. Together
	// with MaxEntrySize it sizes the memory reserved up front.
	// Default: 1024
	MaxEntriesInWindow int `yaml:"max_entries_in_window" env:"MAX_ENTRIES_IN_WINDOW"`
}

func (cfg BigCacheConfig) withDefaults() BigCacheConfig {
	if cfg.Shards <= 0 {
		cfg.Shards = 64
	}
	if cfg.HardMaxCacheSizeMB <= 0 {
		cfg.HardMaxCacheSizeMB = 64
	}
	if cfg.MaxEntrySize <= 0 {
		cfg.MaxEntrySize = 16 * 1024
	}
	if cfg.MaxEntriesInWindow <= 0 {
		cfg.MaxEntriesInWindow = 1024
	}
	return cfg
}

// bigcacheConfig maps cfg onto bigcache's settings. bigcache reserves
// MaxEntriesInWindow/Shards entries of MaxEntrySize per shard, so its
// million-entry default is never kept.
func bigcacheConfig(policy Policy, cfg BigCacheConfig) bigcache.Config {
	cfg = cfg.withDefaults()

	life := policy.TTL
	if life <= 0 {
		life = time.Minute
	}

	bcfg := bigcache.DefaultConfig(life)
	bcfg.Shards = cfg.Shards
	bcfg.CleanWindow = 0
	bcfg.MaxEntriesInWindow = cfg.MaxEntriesInWindow
	bcfg.MaxEntrySize = cfg.MaxEntrySize
	bcfg.HardMaxCacheSize = cfg.HardMaxCacheSizeMB
	bcfg.Verbose = false
	return bcfg
}

// BigCache is a Store backed by allegro/bigcache. Freshness is tracked with a
// storedAt header read against our clock; bigcache's own cleaner is disabled
// so expiry only happens through Get and Sweep.
type BigCache struct {
	cache  *bigcache.BigCache
	policy Policy
	clock  clock.Clock
}

// NewBigCache creates a bigcache-backed store.
func NewBigCache(ctx context.Context, policy Policy, cfg BigCacheConfig, opts ...Option) (*BigCache, error) {
	o := applyOptions(opts)

	c, err := bigcache.New(ctx, bigcacheConfig(policy, cfg))
	if err != nil {
		return nil, fmt.Errorf("cache: create bigcache: %w", err)
	}

	return &BigCache{cache: c, policy: policy, clock: o.clock}, nil
}

// Get retrieves a fresh value. Expired entries are deleted on sight.
func (b *BigCache) Get(_ context.Context, key string) ([]byte, bool) {
	data, err := b.cache.Get(key)
	if err != nil {
		return nil, false
	}

	storedAt, value, ok := decodeEntry(data)
	if !ok {
		_ = b.cache.Delete(key)
		return nil, false
	}

	if expired(storedAt, b.clock.Now(), b.policy.TTL) {
		_ = b.cache.Delete(key)
		return nil, false
	}

	return value, true
}

// Put stores value stamped with the current time.
func (b *BigCache) Put(_ context.Context, key string, value []byte) error {
	if !b.policy.ShouldCache() {
		return nil
	}
	if err := ValidateKey(key); err != nil {
		return err
	}

	if err := b.cache.Set(key, encodeEntry(b.clock.Now(), value)); err != nil {
		return fmt.Errorf("cache: bigcache set: %w", err)
	}
	return nil
}

// Delete removes a value. Idempotent - no error on miss.
func (b *BigCache) Delete(_ context.Context, key string) error {
	err := b.cache.Delete(key)
	if err != nil && !errors.Is(err, bigcache.ErrEntryNotFound) {
		return fmt.Errorf("cache: bigcache delete: %w", err)
	}
	return nil
}

// Sweep walks every shard and removes entries expired at now.
func (b *BigCache) Sweep(now time.Time) int {
	var stale []string

	it := b.cache.Iterator()
	for it.SetNext() {
		info, err := it.Value()
		if err != nil {
			continue
		}
		storedAt, _, ok := decodeEntry(info.Value())
		if !ok || expired(storedAt, now, b.policy.TTL) {
			stale = append(stale, info.Key())
		}
	}

	removed := 0
	for _, key := range stale {
		if err := b.cache.Delete(key); err == nil {
			removed++
		}
	}
	return removed
}

// Len returns the number of stored entries.
func (b *BigCache) Len() int {
	return b.cache.Len()
}

// Close releases the underlying bigcache.
func (b *BigCache) Close() error {
	return b.cache.Close()
}

func encodeEntry(storedAt time.Time, value []byte) []byte {
	buf := make([]byte, headerSize+len(value))
	binary.BigEndian.PutUint64(buf, uint64(storedAt.UnixNano()))
	copy(buf[headerSize:], value)
	return buf
}

// decodeEntry splits a stored blob. The returned value is a fresh copy.
func decodeEntry(data []byte) (time.Time, []byte, bool) {
	if len(data) < headerSize {
		return time.Time{}, nil, false
	}
	storedAt := time.Unix(0, int64(binary.BigEndian.Uint64(data)))
	value := make([]byte, len(data)-headerSize)
	copy(value, data[headerSize:])
	return storedAt, value, true
}

// Ensure BigCache implements Store
var _ Store = (*BigCache)(nil)
