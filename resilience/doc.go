// Package resilience provides the timing gates and failure guards used by
// the fetch coordinator and the upstream client.
//
// # Gates
//
//   - Throttle: enforces a minimum interval between consecutive dispatches.
//     Callers queue in arrival order; nothing is dropped or reordered, and a
//     caller that gives up while queued never consumes a dispatch.
//
//   - Debouncer: coalesces bursts of triggers per key. Only the last trigger
//     of a burst runs, once its delay elapses with no newer trigger.
//
//   - Timeout: bounds an operation and reports its own expiry as ErrTimeout.
//
// # Guards
//
//   - Circuit Breaker: stops calling an upstream that keeps failing.
//
//   - Retry: retries failed attempts with exponential, linear or constant
//     backoff. Only upstream clients use it.
//
// All time-dependent types accept a github.com/benbjohnson/clock Clock so
// tests can drive them with clock.NewMock.
//
// # Usage
//
//	throttle := resilience.NewThrottle(resilience.ThrottleConfig{
//	    MinInterval: time.Second,
//	})
//
//	executor := resilience.NewExecutor(
//	    resilience.WithCircuitBreaker(resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{})),
//	    resilience.WithThrottle(throttle),
//	    resilience.WithTimeout(10*time.Second),
//	)
//
//	err := executor.Execute(ctx, func(ctx context.Context) error {
//	    return callUpstream(ctx)
//	})
package resilience
