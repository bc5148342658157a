package resilience

import "errors"

// Sentinel errors for resilience operations.
var (
	// ErrCircuitOpen is returned when the circuit breaker is open.
	ErrCircuitOpen = errors.New("resilience: circuit breaker is open")

	// ErrMaxRetriesExceeded is returned when max retry attempts are exhausted.
	ErrMaxRetriesExceeded = errors.New("resilience: max retries exceeded")

	// ErrTimeout is returned when an operation exceeds its own time limit.
	// A deadline inherited from the caller's context surfaces as
	// context.DeadlineExceeded instead.
	ErrTimeout = errors.New("resilience: operation timed out")
)
