package resilience

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/benbjohnson/clock"
)

// BackoffStrategy shapes the delay between attempts.
type BackoffStrategy int

const (
	// BackoffExponential multiplies the delay by Multiplier per attempt.
	BackoffExponential BackoffStrategy = iota
	// BackoffLinear grows the delay by InitialDelay per attempt.
	BackoffLinear
	// BackoffConstant waits InitialDelay every time.
	BackoffConstant
)

// RetryConfig configures a Retry.
type RetryConfig struct {
	// MaxAttempts counts the first call.
	// Default: 3
	MaxAttempts int

	// InitialDelay is the wait before the second attempt.
	// Default: 100ms
	InitialDelay time.Duration

	// MaxDelay caps every wait, including hinted ones.
	// Default: 30s
	MaxDelay time.Duration

	// Multiplier applies to BackoffExponential.
	// Default: 2.0
	Multiplier float64

	// Strategy selects the backoff curve.
	// Default: BackoffExponential
	Strategy BackoffStrategy

	// Jitter adds up to 25% to each computed delay.
	Jitter bool

	// RetryIf selects retryable errors.
	// Default: every non-nil error
	RetryIf func(err error) bool

	// Hint extracts a server-requested delay from an error, such as a
	// Retry-After header. A hint longer than the computed backoff wins.
	Hint func(err error) (time.Duration, bool)

	// OnRetry runs before each wait.
	OnRetry func(attempt int, err error, delay time.Duration)

	// Clock times the waits.
	// Default: the wall clock
	Clock clock.Clock
}

// Retry re-runs failed operations with backoff. Only upstream clients use
// it; the fetch coordinator never retries on its own.
type Retry struct {
	config RetryConfig
}

// NewRetry creates a Retry.
func NewRetry(config RetryConfig) *Retry {
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = 3
	}
	if config.InitialDelay <= 0 {
		config.InitialDelay = 100 * time.Millisecond
	}
	if config.MaxDelay <= 0 {
		config.MaxDelay = 30 * time.Second
	}
	if config.Multiplier <= 0 {
		config.Multiplier = 2.0
	}
	if config.RetryIf == nil {
		config.RetryIf = func(err error) bool { return err != nil }
	}
	if config.Clock == nil {
		config.Clock = clock.New()
	}
	return &Retry{config: config}
}

// Execute calls op until it succeeds, returns a non-retryable error, ctx
// ends or the attempts run out. Exhaustion wraps both ErrMaxRetriesExceeded
// and the last error.
func (r *Retry) Execute(ctx context.Context, op func(context.Context) error) error {
	attempt := 1
	for {
		err := op(ctx)
		switch {
		case err == nil:
			return nil
		case ctx.Err() != nil || !r.config.RetryIf(err):
			return err
		case attempt >= r.config.MaxAttempts:
			return fmt.Errorf("%w: %w", ErrMaxRetriesExceeded, err)
		}

		delay := r.delay(attempt, err)
		if r.config.OnRetry != nil {
			r.config.OnRetry(attempt, err, delay)
		}
		if werr := r.sleep(ctx, delay); werr != nil {
			return werr
		}
		attempt++
	}
}

// Config returns the effective configuration.
func (r *Retry) Config() RetryConfig {
	return r.config
}

func (r *Retry) delay(attempt int, err error) time.Duration {
	d := r.backoff(attempt)
	if r.config.Hint != nil {
		if hint, ok := r.config.Hint(err); ok && hint > d {
			d = hint
		}
	}
	return min(d, r.config.MaxDelay)
}

// backoff is the strategy's delay after the given failed attempt, capped
// and jittered.
func (r *Retry) backoff(attempt int) time.Duration {
	d := r.config.InitialDelay
	switch r.config.Strategy {
	case BackoffLinear:
		d *= time.Duration(attempt)
	case BackoffExponential:
		for i := 1; i < attempt && d < r.config.MaxDelay; i++ {
			d = time.Duration(float64(d) * r.config.Multiplier)
		}
	}
	d = min(d, r.config.MaxDelay)

	if r.config.Jitter && d >= 4 {
		// #nosec G404 -- jitter is non-cryptographic timing variance.
		d += time.Duration(rand.Int64N(int64(d / 4)))
	}
	return d
}

func (r *Retry) sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := r.config.Clock.Timer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
