package fetch

import (
	"github.com/benbjohnson/clock"

	"github.com/clycites/geofetch/cache"
	"github.com/clycites/geofetch/fingerprint"
	"github.com/clycites/geofetch/observe"
)

// Option configures a Coordinator.
type Option func(*options)

type options struct {
	clock      clock.Clock
	logger     observe.Logger
	observer   observe.Observer
	middleware *observe.Middleware
	builder    fingerprint.Builder
	stores     map[fingerprint.Kind]cache.Store
}

// WithClock sets the time source for caches, throttles, pacing and
// debouncing.
// Default: the wall clock
func WithClock(c clock.Clock) Option {
	return func(o *options) {
		if c != nil {
			o.clock = c
		}
	}
}

// WithLogger sets the coordinator's logger.
// Default: the observer's logger, or a no-op logger
func WithLogger(l observe.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithObserver instruments dispatches with the observer's tracer, meter and
// logger.
func WithObserver(obs observe.Observer) Option {
	return func(o *options) {
		o.observer = obs
	}
}

// WithMiddleware instruments dispatches with m. It takes precedence over
// WithObserver.
func WithMiddleware(m *observe.Middleware) Option {
	return func(o *options) {
		o.middleware = m
	}
}

// WithBuilder replaces the fingerprint builder.
// Default: fingerprint.NewBuilder()
func WithBuilder(b fingerprint.Builder) Option {
	return func(o *options) {
		if b != nil {
			o.builder = b
		}
	}
}

// WithStore sets the cache backend for kind. The store is responsible for its
// own TTL; the coordinator only sweeps it.
// Default: a cache.MemoryCache with the kind's policy
func WithStore(kind fingerprint.Kind, store cache.Store) Option {
	return func(o *options) {
		if store == nil {
			return
		}
		if o.stores == nil {
			o.stores = make(map[fingerprint.Kind]cache.Store)
		}
		o.stores[kind] = store
	}
}
