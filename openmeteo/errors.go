package openmeteo

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"
)

var (
	// ErrUnsupportedKind is returned for a resource kind the client cannot serve.
	ErrUnsupportedKind = errors.New("openmeteo: unsupported resource kind")

	// ErrResponseTooLarge is returned when a body exceeds Config.MaxBodyBytes.
	ErrResponseTooLarge = errors.New("openmeteo: response too large")
)

// StatusError is returned for non-2xx responses. Reason carries the message
// of an Open-Meteo {"error": true, "reason": "..."} body when present.
type StatusError struct {
	StatusCode int
	Reason     string

	// RetryAfter is the delay requested by a Retry-After header, zero when
	// the response had none.
	RetryAfter time.Duration
}

func (e *StatusError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("openmeteo: status %d: %s", e.StatusCode, e.Reason)
	}
	return fmt.Sprintf("openmeteo: status %d %s", e.StatusCode, http.StatusText(e.StatusCode))
}

// Temporary reports whether the upstream may succeed on a later attempt.
func (e *StatusError) Temporary() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// IsRetryable reports whether err is worth another attempt: rate limiting,
// server errors and network failures. Cancellation never is.
func IsRetryable(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.Temporary()
	}
	var ne net.Error
	return errors.As(err, &ne)
}

// retryAfter is the resilience.RetryConfig hint for rate-limited responses.
func retryAfter(err error) (time.Duration, bool) {
	var se *StatusError
	if errors.As(err, &se) && se.RetryAfter > 0 {
		return se.RetryAfter, true
	}
	return 0, false
}

// parseRetryAfter reads a Retry-After value in either delta-seconds or
// HTTP-date form.
func parseRetryAfter(v string, now time.Time) time.Duration {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil {
		if secs <= 0 {
			return 0
		}
		return time.Duration(secs) * time.Second
	}
	if at, err := http.ParseTime(v); err == nil && at.After(now) {
		return at.Sub(now)
	}
	return 0
}

// isUpstreamFailure decides what the circuit breaker counts. Client errors
// other than 429 say nothing about upstream health.
func isUpstreamFailure(err error) bool {
	return IsRetryable(err)
}
