package inflight

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
)

// ErrFlightPanicked is returned to every waiter when the flight function
// panics.
var ErrFlightPanicked = errors.New("inflight: flight panicked")

// Func is the work performed by a flight. ctx is cancelled when every waiter
// has left.
type Func func(ctx context.Context) ([]byte, error)

// Entry describes an unsettled flight.
type Entry struct {
	Key       string
	CreatedAt time.Time
	Waiters   int
	Abandoned bool
}

// Option configures a Registry.
type Option func(*Registry)

// WithClock sets the time source for Entry.CreatedAt.
func WithClock(c clock.Clock) Option {
	return func(r *Registry) {
		if c != nil {
			r.clock = c
		}
	}
}

// Registry holds in-flight operations keyed by string.
type Registry struct {
	mu      sync.Mutex
	flights map[string]*flight
	clock   clock.Clock
}

type flight struct {
	key       string
	createdAt time.Time
	cancel    context.CancelFunc
	done      chan struct{}

	// guarded by Registry.mu
	waiters   int
	abandoned bool

	// written once before done is closed
	val []byte
	err error
}

// New creates an empty Registry.
func New(opts ...Option) *Registry {
	r := &Registry{
		flights: make(map[string]*flight),
		clock:   clock.New(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Do runs fn for key unless a flight for key is already unsettled, in which
// case the caller joins it. shared reports whether the caller joined a flight
// started by someone else.
//
// The flight runs on a context detached from ctx's cancellation but carrying
// its values. If ctx ends before the flight settles, Do returns ctx.Err() and
// the caller stops counting as a waiter.
func (r *Registry) Do(ctx context.Context, key string, fn Func) (val []byte, shared bool, err error) {
	for {
		if err := ctx.Err(); err != nil {
			return nil, false, err
		}

		r.mu.Lock()
		f, ok := r.flights[key]
		if ok && f.abandoned {
			r.mu.Unlock()
			// Let the cancelled flight settle, then start over.
			select {
			case <-f.done:
				continue
			case <-ctx.Done():
				return nil, false, ctx.Err()
			}
		}
		if ok {
			f.waiters++
			r.mu.Unlock()
			val, err := r.wait(ctx, f)
			return val, true, err
		}

		f = r.start(ctx, key, fn)
		r.mu.Unlock()
		val, err := r.wait(ctx, f)
		return val, false, err
	}
}

// start registers a new flight for key and launches fn. Caller holds r.mu.
func (r *Registry) start(parent context.Context, key string, fn Func) *flight {
	fctx, cancel := context.WithCancel(context.WithoutCancel(parent))
	f := &flight{
		key:       key,
		createdAt: r.clock.Now(),
		cancel:    cancel,
		done:      make(chan struct{}),
		waiters:   1,
	}
	r.flights[key] = f

	go r.run(fctx, f, fn)
	return f
}

func (r *Registry) run(ctx context.Context, f *flight, fn Func) {
	defer func() {
		if p := recover(); p != nil {
			f.val = nil
			f.err = fmt.Errorf("%w: %v", ErrFlightPanicked, p)
		}

		r.mu.Lock()
		if r.flights[f.key] == f {
			delete(r.flights, f.key)
		}
		r.mu.Unlock()

		f.cancel()
		close(f.done)
	}()

	f.val, f.err = fn(ctx)
}

func (r *Registry) wait(ctx context.Context, f *flight) ([]byte, error) {
	select {
	case <-f.done:
		return f.val, f.err
	case <-ctx.Done():
	}

	r.mu.Lock()
	f.waiters--
	last := f.waiters == 0
	select {
	case <-f.done:
		// Settled while we were leaving; the outcome is still ours.
		r.mu.Unlock()
		return f.val, f.err
	default:
	}
	if last {
		f.abandoned = true
	}
	r.mu.Unlock()

	if last {
		f.cancel()
	}
	return nil, ctx.Err()
}

// Len returns the number of unsettled flights.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.flights)
}

// Has reports whether a flight for key is unsettled.
func (r *Registry) Has(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.flights[key]
	return ok
}

// Snapshot returns the unsettled flights ordered by key.
func (r *Registry) Snapshot() []Entry {
	r.mu.Lock()
	out := make([]Entry, 0, len(r.flights))
	for _, f := range r.flights {
		out = append(out, Entry{
			Key:       f.key,
			CreatedAt: f.createdAt,
			Waiters:   f.waiters,
			Abandoned: f.abandoned,
		})
	}
	r.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}
