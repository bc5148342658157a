package observe

import (
	"context"
	"errors"
	"time"
)

// ExecuteFunc is the signature of an upstream dispatch wrapped by Middleware.
type ExecuteFunc func(ctx context.Context, meta RequestMeta) ([]byte, error)

// Middleware wraps upstream dispatches with tracing, metrics and logging.
//
// Contract:
//   - Concurrency: Wrap() returns a thread-safe ExecuteFunc.
//   - Context: Propagates context through tracing spans.
//   - Errors: Errors from wrapped function are recorded and propagated unchanged.
//   - Ownership: payloads are passed through without modification.
type Middleware struct {
	tracer  Tracer
	metrics Metrics
	logger  Logger
}

// NewMiddleware creates a new Middleware with the given observability components.
func NewMiddleware(tracer Tracer, metrics Metrics, logger Logger) *Middleware {
	if tracer == nil {
		tracer = newNoopTracer()
	}
	if metrics == nil {
		metrics = NopMetrics()
	}
	if logger == nil {
		logger = NopLogger()
	}
	return &Middleware{
		tracer:  tracer,
		metrics: metrics,
		logger:  logger,
	}
}

// Wrap wraps an ExecuteFunc with tracing, metrics and logging.
func (m *Middleware) Wrap(fn ExecuteFunc) ExecuteFunc {
	return func(ctx context.Context, meta RequestMeta) ([]byte, error) {
		ctx, span := m.tracer.StartSpan(ctx, meta)

		start := time.Now()
		payload, err := fn(ctx, meta)
		duration := time.Since(start)

		m.tracer.EndSpan(span, err)
		m.metrics.RecordDispatch(ctx, meta, duration, err)

		fields := append(meta.Fields(), Field{Key: "duration_ms", Value: duration.Milliseconds()})
		switch {
		case err == nil:
			fields = append(fields, Field{Key: "bytes", Value: len(payload)})
			m.logger.Info(ctx, "dispatch completed", fields...)
		case errors.Is(err, context.Canceled):
			m.logger.Debug(ctx, "dispatch cancelled", fields...)
		default:
			fields = append(fields, Field{Key: "error", Value: err.Error()})
			m.logger.Warn(ctx, "dispatch failed", fields...)
		}

		return payload, err
	}
}

// Metrics returns the metrics recorder used by the middleware.
func (m *Middleware) Metrics() Metrics {
	return m.metrics
}

// MiddlewareFromObserver creates a Middleware from an Observer.
func MiddlewareFromObserver(obs Observer) (*Middleware, error) {
	if obs == nil {
		return nil, ErrNilObserver
	}

	metrics, err := NewMetrics(obs.Meter())
	if err != nil {
		return nil, err
	}

	return NewMiddleware(NewTracer(obs.Tracer()), metrics, obs.Logger()), nil
}
