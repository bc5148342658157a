package resilience

import (
	"context"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
)

// ThrottleConfig configures a Throttle.
type ThrottleConfig struct {
	// MinInterval is the minimum spacing between two dispatches.
	// Zero or negative disables throttling.
	// Default: 1 second (see DefaultThrottleInterval)
	MinInterval time.Duration

	// Clock is the time source.
	// Default: the wall clock
	Clock clock.Clock
}

// DefaultThrottleInterval is the MinInterval used by DefaultThrottleConfig.
const DefaultThrottleInterval = time.Second

// DefaultThrottleConfig returns a config with a 1 second minimum interval.
func DefaultThrottleConfig() ThrottleConfig {
	return ThrottleConfig{MinInterval: DefaultThrottleInterval}
}

// Throttle enforces a minimum interval between consecutive dispatches.
//
// Callers queue in arrival order. Only the head of the queue waits on the
// clock; once MinInterval has elapsed since the last dispatch it records the
// dispatch time and hands the head position to the next caller. Requests are
// delayed, never dropped and never reordered.
type Throttle struct {
	config ThrottleConfig

	mu           sync.Mutex
	queue        []*throttleWaiter
	lastDispatch time.Time
	dispatched   bool
}

type throttleWaiter struct {
	// closed when this waiter reaches the head of the queue
	head chan struct{}
}

// NewThrottle creates a new throttle.
func NewThrottle(config ThrottleConfig) *Throttle {
	if config.Clock == nil {
		config.Clock = clock.New()
	}
	return &Throttle{config: config}
}

// Wait blocks until the caller may dispatch. It returns ctx.Err() if ctx ends
// first, in which case the caller gives up its place without consuming a
// dispatch.
func (t *Throttle) Wait(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if t.config.MinInterval <= 0 {
		t.mu.Lock()
		t.markLocked(t.config.Clock.Now())
		t.mu.Unlock()
		return nil
	}

	w := &throttleWaiter{head: make(chan struct{})}

	t.mu.Lock()
	t.queue = append(t.queue, w)
	if len(t.queue) == 1 {
		close(w.head)
	}
	t.mu.Unlock()

	select {
	case <-w.head:
	case <-ctx.Done():
		t.leave(w)
		return ctx.Err()
	}

	for {
		t.mu.Lock()
		now := t.config.Clock.Now()
		wait := t.remainingLocked(now)
		if wait <= 0 {
			t.markLocked(now)
			t.popLocked(w)
			t.mu.Unlock()
			return nil
		}
		t.mu.Unlock()

		timer := t.config.Clock.Timer(wait)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			t.leave(w)
			return ctx.Err()
		}
	}
}

// Do waits for the throttle and then runs op.
func (t *Throttle) Do(ctx context.Context, op func(context.Context) error) error {
	if err := t.Wait(ctx); err != nil {
		return err
	}
	return op(ctx)
}

// Execute is Do under the name the Executor uses.
func (t *Throttle) Execute(ctx context.Context, op func(context.Context) error) error {
	return t.Do(ctx, op)
}

// Pending returns the number of queued callers, including the head.
func (t *Throttle) Pending() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.queue)
}

// LastDispatch returns the time of the most recent dispatch and whether any
// dispatch has happened yet.
func (t *Throttle) LastDispatch() (time.Time, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.lastDispatch, t.dispatched
}

// Config returns the throttle configuration.
func (t *Throttle) Config() ThrottleConfig {
	return t.config
}

func (t *Throttle) remainingLocked(now time.Time) time.Duration {
	if !t.dispatched {
		return 0
	}
	return t.config.MinInterval - now.Sub(t.lastDispatch)
}

func (t *Throttle) markLocked(now time.Time) {
	t.lastDispatch = now
	t.dispatched = true
}

// popLocked removes w from the queue and promotes the next waiter if w was
// the head.
func (t *Throttle) popLocked(w *throttleWaiter) {
	for i, q := range t.queue {
		if q != w {
			continue
		}
		t.queue = append(t.queue[:i], t.queue[i+1:]...)
		if i == 0 && len(t.queue) > 0 {
			close(t.queue[0].head)
		}
		return
	}
}

func (t *Throttle) leave(w *throttleWaiter) {
	t.mu.Lock()
	t.popLocked(w)
	t.mu.Unlock()
}
