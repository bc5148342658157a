package health

import (
	"context"
	"fmt"
)

// ThresholdConfig configures a ThresholdChecker.
type ThresholdConfig struct {
	// Warning is the gauge value at or above which the check is degraded.
	// Zero disables the warning level.
	Warning float64

	// Critical is the gauge value at or above which the check is unhealthy.
	// Zero disables the critical level.
	Critical float64
}

// ThresholdChecker reports a numeric gauge, such as a queue length, against
// warning and critical levels.
type ThresholdChecker struct {
	name   string
	gauge  func() float64
	config ThresholdConfig
}

// NewThresholdChecker creates a checker that reads gauge on every check.
// A Critical level below Warning is raised to Warning.
func NewThresholdChecker(name string, gauge func() float64, config ThresholdConfig) *ThresholdChecker {
	if config.Critical > 0 && config.Critical < config.Warning {
		config.Critical = config.Warning
	}
	return &ThresholdChecker{name: name, gauge: gauge, config: config}
}

// Name returns the name of this checker.
func (c *ThresholdChecker) Name() string {
	return c.name
}

// Check reads the gauge and compares it with the configured levels.
func (c *ThresholdChecker) Check(ctx context.Context) Result {
	select {
	case <-ctx.Done():
		return Unhealthy("context cancelled", ctx.Err())
	default:
	}

	value := c.gauge()
	details := map[string]any{
		"value":    value,
		"warning":  c.config.Warning,
		"critical": c.config.Critical,
	}

	if c.config.Critical > 0 && value >= c.config.Critical {
		return Unhealthy(fmt.Sprintf("%s critical: %g", c.name, value), ErrCheckFailed).WithDetails(details)
	}
	if c.config.Warning > 0 && value >= c.config.Warning {
		return Degraded(fmt.Sprintf("%s high: %g", c.name, value)).WithDetails(details)
	}
	return Healthy(fmt.Sprintf("%s normal: %g", c.name, value)).WithDetails(details)
}

// Config returns the checker's thresholds.
func (c *ThresholdChecker) Config() ThresholdConfig {
	return c.config
}

var _ Checker = (*ThresholdChecker)(nil)
