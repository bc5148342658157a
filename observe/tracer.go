package observe

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

// RequestMeta describes one upstream dispatch for telemetry purposes.
type RequestMeta struct {
	Kind      string // resource kind, e.g. "forecast" (required)
	Key       string // request fingerprint
	Slot      string // caller slot (may be empty)
	RequestID string // handle id of the request that started the flight
}

// SpanName returns the deterministic span name for this dispatch.
// Format: geofetch.dispatch.<kind>
func (m RequestMeta) SpanName() string {
	return "geofetch.dispatch." + m.Kind
}

// Fields returns the metadata as log fields, skipping empty values.
func (m RequestMeta) Fields() []Field {
	fields := []Field{{Key: "kind", Value: m.Kind}}
	if m.Key != "" {
		fields = append(fields, Field{Key: "key", Value: m.Key})
	}
	if m.Slot != "" {
		fields = append(fields, Field{Key: "slot", Value: m.Slot})
	}
	if m.RequestID != "" {
		fields = append(fields, Field{Key: "request_id", Value: m.RequestID})
	}
	return fields
}

// Tracer wraps OpenTelemetry tracing with dispatch span management.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: EndSpan must be best-effort and must not panic.
type Tracer interface {
	// StartSpan starts a new span for an upstream dispatch.
	StartSpan(ctx context.Context, meta RequestMeta) (context.Context, trace.Span)

	// EndSpan ends the span, recording any error.
	EndSpan(span trace.Span, err error)
}

// tracerImpl is the concrete implementation of Tracer.
type tracerImpl struct {
	tracer trace.Tracer
}

// NewTracer creates a Tracer wrapping the given OpenTelemetry tracer.
func NewTracer(t trace.Tracer) Tracer {
	return &tracerImpl{tracer: t}
}

// StartSpan starts a client span with request metadata as attributes.
func (t *tracerImpl) StartSpan(ctx context.Context, meta RequestMeta) (context.Context, trace.Span) {
	attrs := []attribute.KeyValue{
		attribute.String("geofetch.kind", meta.Kind),
		attribute.Bool("geofetch.error", false),
	}
	if meta.Key != "" {
		attrs = append(attrs, attribute.String("geofetch.key", meta.Key))
	}
	if meta.Slot != "" {
		attrs = append(attrs, attribute.String("geofetch.slot", meta.Slot))
	}
	if meta.RequestID != "" {
		attrs = append(attrs, attribute.String("geofetch.request_id", meta.RequestID))
	}

	return t.tracer.Start(ctx, meta.SpanName(),
		trace.WithAttributes(attrs...),
		trace.WithSpanKind(trace.SpanKindClient),
	)
}

// EndSpan ends the span and records the error status if present.
func (t *tracerImpl) EndSpan(span trace.Span, err error) {
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		span.SetAttributes(attribute.Bool("geofetch.error", true))
		span.RecordError(err)
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

// noopTracer is a tracer that does nothing.
type noopTracer struct {
	noop trace.Tracer
}

// newNoopTracer creates a no-op tracer.
func newNoopTracer() Tracer {
	return &noopTracer{
		noop: tracenoop.NewTracerProvider().Tracer("noop"),
	}
}

func (t *noopTracer) StartSpan(ctx context.Context, meta RequestMeta) (context.Context, trace.Span) {
	return t.noop.Start(ctx, meta.SpanName())
}

func (t *noopTracer) EndSpan(span trace.Span, err error) {
	span.End()
}
