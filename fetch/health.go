package fetch

import (
	"context"

	"github.com/clycites/geofetch/health"
)

// HealthChecker reports the coordinator's state to a health.Aggregator.
// A stopped coordinator is unhealthy; one whose cache sweeps have not been
// started is degraded.
func (c *Coordinator) HealthChecker() health.Checker {
	return health.NewCheckerFunc("fetch", func(ctx context.Context) health.Result {
		if err := c.open(); err != nil {
			return health.Unhealthy("coordinator stopped", err)
		}

		s := c.Stats()
		details := map[string]any{
			"in_flight":    s.InFlight,
			"active_slots": s.ActiveSlots,
			"debouncing":   s.Debouncing,
		}
		for kind, ks := range s.Kinds {
			details[kind.String()] = map[string]any{
				"cached":         ks.Cached,
				"throttle_queue": ks.ThrottleQueue,
			}
		}

		c.mu.Lock()
		started := c.started
		c.mu.Unlock()
		if !started {
			return health.Degraded("cache sweeps not running").WithDetails(details)
		}
		return health.Healthy("coordinator running").WithDetails(details)
	})
}
