package resilience

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestNewExecutor_Empty(t *testing.T) {
	e := NewExecutor()

	if e.CircuitBreaker() != nil || e.retry != nil || e.throttle != nil || e.timeout != nil {
		t.Error("default executor should have no patterns")
	}

	ran := false
	err := e.Execute(context.Background(), func(context.Context) error {
		ran = true
		return nil
	})
	if err != nil || !ran {
		t.Errorf("Execute() = %v, ran = %v; want nil, true", err, ran)
	}
}

func TestExecutor_WithOptions(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{})
	retry := NewRetry(RetryConfig{})
	th := NewThrottle(DefaultThrottleConfig())
	timeout := NewTimeout(TimeoutConfig{Timeout: 5 * time.Second})

	e := NewExecutor(
		WithCircuitBreaker(cb),
		WithRetry(retry),
		WithThrottle(th),
		WithTimeoutConfig(timeout),
	)

	if e.CircuitBreaker() != cb {
		t.Error("CircuitBreaker not set")
	}
	if e.retry != retry {
		t.Error("Retry not set")
	}
	if e.throttle != th {
		t.Error("Throttle not set")
	}
	if e.timeout != timeout {
		t.Error("Timeout not set")
	}
}

func TestExecutor_TimeoutPerAttempt(t *testing.T) {
	e := NewExecutor(WithTimeout(10 * time.Millisecond))

	err := e.Execute(context.Background(), func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	if err != ErrTimeout {
		t.Errorf("Execute() error = %v, want ErrTimeout", err)
	}
}

func TestExecutor_CircuitOpensOnRetryExhaustion(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{MaxFailures: 1, ResetTimeout: time.Hour})
	e := NewExecutor(
		WithCircuitBreaker(cb),
		WithRetry(NewRetry(RetryConfig{MaxAttempts: 2, InitialDelay: time.Millisecond})),
	)

	attempts := 0
	err := e.Execute(context.Background(), func(context.Context) error {
		attempts++
		return errUpstream
	})
	if !errors.Is(err, errUpstream) {
		t.Errorf("Execute() error = %v, want errUpstream", err)
	}
	if attempts != 2 {
		t.Errorf("attempts = %d, want 2", attempts)
	}
	if cb.State() != StateOpen {
		t.Errorf("State = %v, want open", cb.State())
	}

	if err := e.Execute(context.Background(), succeed); err != ErrCircuitOpen {
		t.Errorf("Execute() while open = %v, want ErrCircuitOpen", err)
	}
}

func TestExecutor_ThrottleSpacesRetries(t *testing.T) {
	const interval = 30 * time.Millisecond
	e := NewExecutor(
		WithThrottle(NewThrottle(ThrottleConfig{MinInterval: interval})),
		WithRetry(NewRetry(RetryConfig{MaxAttempts: 3, InitialDelay: time.Millisecond, Strategy: BackoffConstant})),
	)

	var stamps []time.Time
	_ = e.Execute(context.Background(), func(context.Context) error {
		stamps = append(stamps, time.Now())
		return errUpstream
	})

	if len(stamps) != 3 {
		t.Fatalf("attempts = %d, want 3", len(stamps))
	}
	if total := stamps[2].Sub(stamps[0]); total < 2*interval-5*time.Millisecond {
		t.Errorf("three attempts spanned %v, want >= %v", total, 2*interval)
	}
}

func TestExecutor_ComposedPatterns(t *testing.T) {
	e := NewExecutor(
		WithCircuitBreaker(NewCircuitBreaker(CircuitBreakerConfig{MaxFailures: 10})),
		WithRetry(NewRetry(RetryConfig{MaxAttempts: 3, InitialDelay: time.Millisecond})),
		WithThrottle(NewThrottle(ThrottleConfig{MinInterval: time.Millisecond})),
		WithTimeout(time.Second),
	)

	attempts := 0
	err := e.Execute(context.Background(), func(context.Context) error {
		attempts++
		if attempts < 3 {
			return errUpstream
		}
		return nil
	})

	if err != nil {
		t.Errorf("Execute() error = %v", err)
	}
	if attempts != 3 {
		t.Errorf("attempts = %d, want 3", attempts)
	}
}
