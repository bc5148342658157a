package fetch

import (
	"context"
	"time"

	"github.com/clycites/geofetch/fingerprint"
)

// KindStats describes the state of one resource kind.
type KindStats struct {
	// Cached is the number of stored entries, fresh or not yet swept.
	Cached int

	// ThrottleQueue is the number of dispatches waiting on the throttle.
	ThrottleQueue int

	// LastDispatch is the time of the kind's most recent dispatch.
	LastDispatch time.Time
}

// Stats is a point-in-time view of the coordinator.
type Stats struct {
	InFlight    int
	ActiveSlots int
	Debouncing  int
	Kinds       map[fingerprint.Kind]KindStats
}

// Stats returns a snapshot of the coordinator's state.
func (c *Coordinator) Stats() Stats {
	s := Stats{
		InFlight:    c.flights.Len(),
		ActiveSlots: c.slots.Len(),
		Debouncing:  int(c.debouncing.Load()),
		Kinds:       make(map[fingerprint.Kind]KindStats, len(c.stores)),
	}
	for _, kind := range fingerprint.Kinds() {
		t := c.throttles[kind]
		last, _ := t.LastDispatch()
		s.Kinds[kind] = KindStats{
			Cached:        c.stores[kind].Len(),
			ThrottleQueue: t.Pending(),
			LastDispatch:  last,
		}
	}
	return s
}

// Peek returns the fresh cached result for a request without dispatching.
func (c *Coordinator) Peek(ctx context.Context, kind fingerprint.Kind, params fingerprint.Params) (Result, bool) {
	key, err := c.fingerprint(kind, params)
	if err != nil || !c.policies[kind].ShouldCache() {
		return Result{}, false
	}
	val, ok := c.stores[kind].Get(ctx, key)
	if !ok {
		return Result{}, false
	}
	return Result{Kind: kind, Key: key, Payload: val, Cached: true}, true
}

// Invalidate drops the cached result for a request.
func (c *Coordinator) Invalidate(ctx context.Context, kind fingerprint.Kind, params fingerprint.Params) error {
	key, err := c.fingerprint(kind, params)
	if err != nil {
		return err
	}
	return c.stores[kind].Delete(ctx, key)
}
