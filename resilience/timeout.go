package resilience

import (
	"context"
	"errors"
	"time"
)

// TimeoutConfig configures a Timeout.
type TimeoutConfig struct {
	// Timeout bounds one operation.
	// Default: 10 seconds
	Timeout time.Duration
}

// Timeout bounds operations by a fixed duration and returns as soon as it
// expires, even when the operation ignores its context.
type Timeout struct {
	config TimeoutConfig
}

// NewTimeout creates a Timeout.
func NewTimeout(config TimeoutConfig) *Timeout {
	if config.Timeout <= 0 {
		config.Timeout = 10 * time.Second
	}
	return &Timeout{config: config}
}

// Execute runs op under the timeout. Its own expiry yields ErrTimeout, even
// when op reports it as context.DeadlineExceeded; the end of ctx yields
// ctx's error. An op still running after expiry is abandoned with its
// context cancelled.
func (t *Timeout) Execute(ctx context.Context, op func(context.Context) error) error {
	opCtx, cancel := context.WithTimeoutCause(ctx, t.config.Timeout, ErrTimeout)
	defer cancel()

	result := make(chan error, 1)
	go func() { result <- op(opCtx) }()

	var err error
	select {
	case err = <-result:
		if err == nil || !errors.Is(err, context.DeadlineExceeded) {
			return err
		}
	case <-opCtx.Done():
		err = opCtx.Err()
	}

	if ctx.Err() == nil && errors.Is(context.Cause(opCtx), ErrTimeout) {
		return ErrTimeout
	}
	return err
}

// Config returns the effective configuration.
func (t *Timeout) Config() TimeoutConfig {
	return t.config
}

// ExecuteWithTimeout runs op bounded by d.
func ExecuteWithTimeout(ctx context.Context, d time.Duration, op func(context.Context) error) error {
	return NewTimeout(TimeoutConfig{Timeout: d}).Execute(ctx, op)
}
