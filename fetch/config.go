package fetch

import (
	"fmt"
	"time"

	"github.com/clycites/geofetch/cache"
	"github.com/clycites/geofetch/fingerprint"
)

// Defaults applied by DefaultConfig.
const (
	DefaultTTL           = 5 * time.Minute
	DefaultMinInterval   = time.Second
	DefaultDebounceDelay = 300 * time.Millisecond
	DefaultPacingDelay   = 100 * time.Millisecond
	DefaultFetchTimeout  = 10 * time.Second
)

// KindConfig holds the per-kind cache and throttle settings.
type KindConfig struct {
	// TTL is how long a successful result is served from cache.
	// Zero disables caching for the kind.
	// Default: 5 minutes
	TTL time.Duration

	// MinInterval is the minimum spacing between two dispatches of the kind.
	// Zero disables throttling.
	// Default: 1 second
	MinInterval time.Duration

	// SweepInterval is the period of the expired-entry sweep.
	// Default: TTL
	SweepInterval time.Duration
}

// Policy returns the cache policy for the kind.
func (k KindConfig) Policy() cache.Policy {
	return cache.Policy{TTL: k.TTL, SweepInterval: k.SweepInterval}
}

// Config configures a Coordinator.
type Config struct {
	// Kinds holds per-kind settings. Kinds missing from the map use
	// DefaultKindConfig.
	Kinds map[fingerprint.Kind]KindConfig

	// DebounceDelay is the quiet period before a search is dispatched.
	// Zero disables debouncing.
	// Default: 300ms
	DebounceDelay time.Duration

	// PacingDelay is a short wait before coordinate-driven dispatches so that
	// rapid location changes supersede each other before reaching the
	// throttle. Zero disables pacing.
	// Default: 100ms
	PacingDelay time.Duration

	// FetchTimeout bounds every dispatch.
	// Default: 10 seconds
	FetchTimeout time.Duration

	// SharedThrottle makes all kinds share one throttle whose interval is the
	// largest configured MinInterval.
	// Default: false (one throttle per kind)
	SharedThrottle bool
}

// DefaultKindConfig returns the settings used for kinds missing from
// Config.Kinds.
func DefaultKindConfig() KindConfig {
	return KindConfig{
		TTL:           DefaultTTL,
		MinInterval:   DefaultMinInterval,
		SweepInterval: DefaultTTL,
	}
}

// DefaultConfig returns the reference configuration.
func DefaultConfig() Config {
	kinds := make(map[fingerprint.Kind]KindConfig, len(fingerprint.Kinds()))
	for _, k := range fingerprint.Kinds() {
		kinds[k] = DefaultKindConfig()
	}
	return Config{
		Kinds:         kinds,
		DebounceDelay: DefaultDebounceDelay,
		PacingDelay:   DefaultPacingDelay,
		FetchTimeout:  DefaultFetchTimeout,
	}
}

// Kind returns the settings for k.
func (c Config) Kind(k fingerprint.Kind) KindConfig {
	if kc, ok := c.Kinds[k]; ok {
		return kc
	}
	return DefaultKindConfig()
}

// Validate checks that every value is in range.
func (c Config) Validate() error {
	for k, kc := range c.Kinds {
		if !k.Valid() {
			return fmt.Errorf("%w: %w: %d", ErrInvalidConfig, fingerprint.ErrUnknownKind, int(k))
		}
		if kc.TTL < 0 || kc.MinInterval < 0 || kc.SweepInterval < 0 {
			return fmt.Errorf("%w: negative duration for %s", ErrInvalidConfig, k)
		}
	}
	if c.DebounceDelay < 0 {
		return fmt.Errorf("%w: negative debounce delay", ErrInvalidConfig)
	}
	if c.PacingDelay < 0 {
		return fmt.Errorf("%w: negative pacing delay", ErrInvalidConfig)
	}
	if c.FetchTimeout <= 0 {
		return fmt.Errorf("%w: fetch timeout must be positive", ErrInvalidConfig)
	}
	return nil
}

// sharedInterval returns the largest MinInterval over every kind.
func (c Config) sharedInterval() time.Duration {
	var longest time.Duration
	for _, k := range fingerprint.Kinds() {
		if d := c.Kind(k).MinInterval; d > longest {
			longest = d
		}
	}
	return longest
}
