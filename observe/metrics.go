package observe

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Request outcomes recorded on geofetch.requests.
const (
	OutcomeHit        = "hit"
	OutcomeMiss       = "miss"
	OutcomeShared     = "shared"
	OutcomeSuperseded = "superseded"
	OutcomeCancelled  = "cancelled"
	OutcomeError      = "error"
	OutcomeInvalid    = "invalid"
)

// Metrics records coordinator and dispatch metrics.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Context: must return quickly.
// - Errors: implementations must not panic.
type Metrics interface {
	// RecordRequest counts one caller request by kind and outcome.
	RecordRequest(ctx context.Context, kind, outcome string)

	// RecordDispatch records one upstream dispatch with duration and error status.
	RecordDispatch(ctx context.Context, meta RequestMeta, duration time.Duration, err error)

	// RecordThrottleWait records how long a dispatch waited at the throttle.
	RecordThrottleWait(ctx context.Context, kind string, wait time.Duration)
}

// metricsImpl is the concrete implementation of Metrics.
type metricsImpl struct {
	requests     metric.Int64Counter
	totalCount   metric.Int64Counter
	errorCount   metric.Int64Counter
	durationHist metric.Float64Histogram
	throttleHist metric.Float64Histogram
}

// NewMetrics creates the geofetch instruments on meter.
func NewMetrics(meter metric.Meter) (Metrics, error) {
	requests, err := meter.Int64Counter(
		"geofetch.requests",
		metric.WithDescription("Caller requests by kind and outcome"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}

	totalCount, err := meter.Int64Counter(
		"geofetch.dispatch.total",
		metric.WithDescription("Total number of upstream dispatches"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return nil, err
	}

	errorCount, err := meter.Int64Counter(
		"geofetch.dispatch.errors",
		metric.WithDescription("Total number of failed upstream dispatches"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, err
	}

	durationHist, err := meter.Float64Histogram(
		"geofetch.dispatch.duration_ms",
		metric.WithDescription("Upstream dispatch duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	throttleHist, err := meter.Float64Histogram(
		"geofetch.throttle.wait_ms",
		metric.WithDescription("Time spent waiting at the throttle gate in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	return &metricsImpl{
		requests:     requests,
		totalCount:   totalCount,
		errorCount:   errorCount,
		durationHist: durationHist,
		throttleHist: throttleHist,
	}, nil
}

func (m *metricsImpl) RecordRequest(ctx context.Context, kind, outcome string) {
	m.requests.Add(ctx, 1, metric.WithAttributes(
		attribute.String("kind", kind),
		attribute.String("outcome", outcome),
	))
}

func (m *metricsImpl) RecordDispatch(ctx context.Context, meta RequestMeta, duration time.Duration, err error) {
	opt := metric.WithAttributes(attribute.String("kind", meta.Kind))

	m.totalCount.Add(ctx, 1, opt)
	if err != nil {
		m.errorCount.Add(ctx, 1, opt)
	}
	m.durationHist.Record(ctx, float64(duration.Milliseconds()), opt)
}

func (m *metricsImpl) RecordThrottleWait(ctx context.Context, kind string, wait time.Duration) {
	m.throttleHist.Record(ctx, float64(wait.Milliseconds()),
		metric.WithAttributes(attribute.String("kind", kind)))
}

// noopMetrics is a metrics implementation that does nothing.
type noopMetrics struct{}

// NopMetrics returns a Metrics that records nothing.
func NopMetrics() Metrics { return noopMetrics{} }

func (noopMetrics) RecordRequest(context.Context, string, string)                  {}
func (noopMetrics) RecordDispatch(context.Context, RequestMeta, time.Duration, error) {}
func (noopMetrics) RecordThrottleWait(context.Context, string, time.Duration)        {}
