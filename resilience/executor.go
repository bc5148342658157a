package resilience

import (
	"context"
	"time"
)

// Operation is a unit of work guarded by the resilience patterns.
type Operation func(context.Context) error

// Executor runs operations through a fixed chain of patterns, outermost
// first: circuit breaker, retry, throttle, then a per-attempt timeout.
// A rejected circuit never spends an attempt; every retry is spaced by the
// throttle and bounded by its own timeout.
type Executor struct {
	circuitBreaker *CircuitBreaker
	retry          *Retry
	throttle       *Throttle
	timeout        *Timeout

	chain func(context.Context, Operation) error
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// NewExecutor builds an executor from the given patterns. With none it runs
// operations directly.
func NewExecutor(opts ...ExecutorOption) *Executor {
	e := &Executor{}
	for _, opt := range opts {
		opt(e)
	}

	chain := func(ctx context.Context, op Operation) error { return op(ctx) }
	for _, wrap := range e.stages() {
		chain = wrap(chain)
	}
	e.chain = chain
	return e
}

type stage func(next func(context.Context, Operation) error) func(context.Context, Operation) error

// stages lists the configured patterns innermost first.
func (e *Executor) stages() []stage {
	var s []stage
	if t := e.timeout; t != nil {
		s = append(s, func(next func(context.Context, Operation) error) func(context.Context, Operation) error {
			return func(ctx context.Context, op Operation) error {
				return t.Execute(ctx, func(ctx context.Context) error { return next(ctx, op) })
			}
		})
	}
	if th := e.throttle; th != nil {
		s = append(s, func(next func(context.Context, Operation) error) func(context.Context, Operation) error {
			return func(ctx context.Context, op Operation) error {
				return th.Do(ctx, func(ctx context.Context) error { return next(ctx, op) })
			}
		})
	}
	if r := e.retry; r != nil {
		s = append(s, func(next func(context.Context, Operation) error) func(context.Context, Operation) error {
			return func(ctx context.Context, op Operation) error {
				return r.Execute(ctx, func(ctx context.Context) error { return next(ctx, op) })
			}
		})
	}
	if cb := e.circuitBreaker; cb != nil {
		s = append(s, func(next func(context.Context, Operation) error) func(context.Context, Operation) error {
			return func(ctx context.Context, op Operation) error {
				return cb.Execute(ctx, func(ctx context.Context) error { return next(ctx, op) })
			}
		})
	}
	return s
}

// WithCircuitBreaker guards the whole call with cb.
func WithCircuitBreaker(cb *CircuitBreaker) ExecutorOption {
	return func(e *Executor) { e.circuitBreaker = cb }
}

// WithRetry retries failed attempts with r.
func WithRetry(r *Retry) ExecutorOption {
	return func(e *Executor) { e.retry = r }
}

// WithThrottle spaces every attempt through t.
func WithThrottle(t *Throttle) ExecutorOption {
	return func(e *Executor) { e.throttle = t }
}

// WithTimeout bounds each attempt by d.
func WithTimeout(d time.Duration) ExecutorOption {
	return func(e *Executor) { e.timeout = NewTimeout(TimeoutConfig{Timeout: d}) }
}

// WithTimeoutConfig bounds each attempt with t.
func WithTimeoutConfig(t *Timeout) ExecutorOption {
	return func(e *Executor) { e.timeout = t }
}

// CircuitBreaker returns the configured breaker, or nil.
func (e *Executor) CircuitBreaker() *CircuitBreaker {
	return e.circuitBreaker
}

// Execute runs op through the chain.
func (e *Executor) Execute(ctx context.Context, op func(context.Context) error) error {
	return e.chain(ctx, op)
}
