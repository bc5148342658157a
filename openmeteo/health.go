package openmeteo

import (
	"context"
	"time"

	"github.com/clycites/geofetch/health"
	"github.com/clycites/geofetch/resilience"
)

// HealthChecker reports the upstream circuit state: closed is healthy,
// half-open degraded and open unhealthy.
func (c *Client) HealthChecker() health.Checker {
	return health.NewCheckerFunc("openmeteo", func(ctx context.Context) health.Result {
		m := c.breaker.Metrics()
		details := map[string]any{
			"circuit":  m.State.String(),
			"failures": m.Failures,
			"rejected": m.Rejected,
		}
		if !m.OpenedAt.IsZero() {
			details["opened_at"] = m.OpenedAt.UTC().Format(time.RFC3339)
		}

		switch m.State {
		case resilience.StateClosed:
			return health.Healthy("upstream reachable").WithDetails(details)
		case resilience.StateHalfOpen:
			return health.Degraded("upstream recovering").WithDetails(details)
		default:
			return health.Unhealthy("upstream circuit open", resilience.ErrCircuitOpen).WithDetails(details)
		}
	})
}
