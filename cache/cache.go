package cache

import (
	"context"
	"errors"
	"strings"
	"time"
)

// MaxKeyLength is the maximum allowed length for a cache key.
const MaxKeyLength = 512

// Sentinel errors for cache operations.
var (
	ErrNilStore   = errors.New("cache: store is nil")
	ErrInvalidKey = errors.New("cache: key is invalid")
	ErrKeyTooLong = errors.New("cache: key exceeds max length")
)

// Store is a single TTL namespace. The fetch coordinator keeps one Store per
// resource kind.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Freshness: Get must never return an entry whose age is >= the TTL.
// - Ownership: Get returns a copy; Put stores a copy. Callers never share
//   memory with the store.
// - Errors: Get should never error; it returns (nil, false) on miss.
type Store interface {
	// Get retrieves a fresh value. Returns (nil, false) on miss or expiry.
	Get(ctx context.Context, key string) ([]byte, bool)

	// Put stores value stamped with the current time.
	Put(ctx context.Context, key string, value []byte) error

	// Delete removes a value. Idempotent - no error on miss.
	Delete(ctx context.Context, key string) error

	// Sweep removes every entry expired at now and returns how many it removed.
	Sweep(now time.Time) int

	// Len returns the number of stored entries, expired or not.
	Len() int
}

// ValidateKey checks if a key is valid for caching.
func ValidateKey(key string) error {
	if key == "" || strings.TrimSpace(key) == "" {
		return ErrInvalidKey
	}
	if len(key) > MaxKeyLength {
		return ErrKeyTooLong
	}
	if strings.ContainsAny(key, "\n\r") {
		return ErrInvalidKey
	}
	return nil
}

// expired reports whether an entry stored at storedAt is stale at now.
func expired(storedAt, now time.Time, ttl time.Duration) bool {
	return now.Sub(storedAt) >= ttl
}
