// Package inflight deduplicates concurrent work by key.
//
// A Registry tracks at most one in-flight operation (a "flight") per key.
// The first caller for a key starts the flight; every caller that arrives
// while it is unsettled joins as a waiter and receives the same outcome.
// Successful values and errors are both broadcast to every waiter. Nothing
// is retained after a flight settles: the entry is removed before waiters
// are released, so the next caller starts a new flight.
//
// # Cancellation
//
// A waiter whose context ends leaves the flight and returns its context
// error. The flight keeps running while at least one waiter remains. When
// the last waiter leaves, the flight's context is cancelled and the flight
// is marked abandoned. A caller that finds an abandoned flight waits for it
// to settle and then starts a fresh one, so it never inherits a cancellation
// it did not ask for.
//
// # Usage
//
//	r := inflight.New()
//	val, shared, err := r.Do(ctx, key, func(ctx context.Context) ([]byte, error) {
//	    return fetch(ctx)
//	})
package inflight
