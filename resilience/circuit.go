package resilience

import (
	"context"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
)

// State is the position of a CircuitBreaker.
type State int

const (
	// StateClosed lets every call through.
	StateClosed State = iota
	// StateOpen rejects calls until the reset timeout elapses.
	StateOpen
	// StateHalfOpen admits a bounded number of probe calls.
	StateHalfOpen
)

var stateNames = [...]string{
	StateClosed:   "closed",
	StateOpen:     "open",
	StateHalfOpen: "half-open",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

// CircuitBreakerConfig configures a CircuitBreaker.
type CircuitBreakerConfig struct {
	// MaxFailures is the number of consecutive failures that opens the circuit.
	// Default: 5
	MaxFailures int

	// ResetTimeout is how long the circuit stays open before probing.
	// Default: 30 seconds
	ResetTimeout time.Duration

	// HalfOpenMaxRequests bounds concurrent probes while half-open.
	// Default: 1
	HalfOpenMaxRequests int

	// OnStateChange observes transitions. It runs after the breaker's lock
	// is released, in transition order.
	OnStateChange func(from, to State)

	// IsFailure decides which errors count against the upstream. Errors it
	// rejects are returned to the caller without touching the counters.
	// Default: every non-nil error
	IsFailure func(err error) bool

	// Clock drives the reset timeout.
	// Default: the wall clock
	Clock clock.Clock
}

// CircuitBreakerMetrics is a snapshot of a CircuitBreaker.
type CircuitBreakerMetrics struct {
	State State

	// Failures is the current run of consecutive failures.
	Failures int

	// Rejected counts calls refused with ErrCircuitOpen since the breaker
	// last closed.
	Rejected int

	// OpenedAt is when the circuit last opened. Zero while it never has.
	OpenedAt time.Time

	LastFailure time.Time
}

type transition struct{ from, to State }

// CircuitBreaker stops calling an upstream after repeated failures and lets
// probe calls through once ResetTimeout has passed.
type CircuitBreaker struct {
	config CircuitBreakerConfig

	mu          sync.Mutex
	state       State
	failures    int
	rejected    int
	probes      int
	openedAt    time.Time
	lastFailure time.Time
	pending     []transition
}

// NewCircuitBreaker creates a closed circuit breaker.
func NewCircuitBreaker(config CircuitBreakerConfig) *CircuitBreaker {
	if config.MaxFailures <= 0 {
		config.MaxFailures = 5
	}
	if config.ResetTimeout <= 0 {
		config.ResetTimeout = 30 * time.Second
	}
	if config.HalfOpenMaxRequests <= 0 {
		config.HalfOpenMaxRequests = 1
	}
	if config.IsFailure == nil {
		config.IsFailure = func(err error) bool { return err != nil }
	}
	if config.Clock == nil {
		config.Clock = clock.New()
	}
	return &CircuitBreaker{config: config}
}

// Execute runs op unless the circuit rejects it, and records the outcome.
func (cb *CircuitBreaker) Execute(ctx context.Context, op func(context.Context) error) error {
	probe, err := cb.admit()
	if err != nil {
		return err
	}

	err = op(ctx)
	cb.record(probe, err)
	return err
}

// State returns the current state, moving an expired open circuit to
// half-open.
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	s := cb.refreshLocked()
	cb.unlock()
	return s
}

// Reset closes the circuit and clears its counters.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	cb.moveLocked(StateClosed)
	cb.failures = 0
	cb.unlock()
}

// Metrics returns a snapshot of the breaker.
func (cb *CircuitBreaker) Metrics() CircuitBreakerMetrics {
	cb.mu.Lock()
	m := CircuitBreakerMetrics{
		State:       cb.refreshLocked(),
		Failures:    cb.failures,
		Rejected:    cb.rejected,
		OpenedAt:    cb.openedAt,
		LastFailure: cb.lastFailure,
	}
	cb.unlock()
	return m
}

func (cb *CircuitBreaker) admit() (probe bool, err error) {
	cb.mu.Lock()
	defer cb.unlock()

	switch cb.refreshLocked() {
	case StateOpen:
		cb.rejected++
		return false, ErrCircuitOpen
	case StateHalfOpen:
		if cb.probes >= cb.config.HalfOpenMaxRequests {
			cb.rejected++
			return false, ErrCircuitOpen
		}
		cb.probes++
		return true, nil
	}
	return false, nil
}

func (cb *CircuitBreaker) record(probe bool, err error) {
	cb.mu.Lock()
	defer cb.unlock()

	if probe {
		cb.probes--
	}

	if !cb.config.IsFailure(err) {
		if err == nil {
			cb.failures = 0
			if cb.state == StateHalfOpen {
				cb.moveLocked(StateClosed)
			}
		}
		return
	}

	now := cb.config.Clock.Now()
	cb.failures++
	cb.lastFailure = now

	if cb.state == StateHalfOpen || (cb.state == StateClosed && cb.failures >= cb.config.MaxFailures) {
		cb.openedAt = now
		cb.moveLocked(StateOpen)
	}
}

func (cb *CircuitBreaker) refreshLocked() State {
	if cb.state == StateOpen && cb.config.Clock.Since(cb.openedAt) >= cb.config.ResetTimeout {
		cb.moveLocked(StateHalfOpen)
	}
	return cb.state
}

func (cb *CircuitBreaker) moveLocked(to State) {
	from := cb.state
	if from == to {
		return
	}
	cb.state = to
	switch to {
	case StateHalfOpen:
		cb.probes = 0
	case StateClosed:
		cb.rejected = 0
	}
	if cb.config.OnStateChange != nil {
		cb.pending = append(cb.pending, transition{from, to})
	}
}

// unlock releases the lock and then reports any queued transitions.
func (cb *CircuitBreaker) unlock() {
	pending := cb.pending
	cb.pending = nil
	cb.mu.Unlock()

	for _, t := range pending {
		cb.config.OnStateChange(t.from, t.to)
	}
}
