package observe

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
)

type middlewareFixture struct {
	mw     *Middleware
	spans  *tracetest.SpanRecorder
	reader *sdkmetric.ManualReader
	logs   *bytes.Buffer
}

func newMiddlewareFixture(t *testing.T) middlewareFixture {
	t.Helper()
	spans := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(spans))

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	metrics, err := NewMetrics(mp.Meter("test"))
	if err != nil {
		t.Fatalf("NewMetrics() error = %v", err)
	}

	var logs bytes.Buffer
	mw := NewMiddleware(NewTracer(tp.Tracer("test")), metrics, NewLoggerWithWriter("debug", &logs))
	return middlewareFixture{mw: mw, spans: spans, reader: reader, logs: &logs}
}

func TestMiddleware_SuccessPath(t *testing.T) {
	f := newMiddlewareFixture(t)
	meta := RequestMeta{Kind: "forecast", Key: "geofetch:forecast:abc"}

	var sawSpan bool
	wrapped := f.mw.Wrap(func(ctx context.Context, m RequestMeta) ([]byte, error) {
		sawSpan = trace.SpanContextFromContext(ctx).IsValid()
		if m != meta {
			t.Errorf("meta = %+v, want %+v", m, meta)
		}
		return []byte(`{"daily":{}}`), nil
	})

	payload, err := wrapped(context.Background(), meta)
	if err != nil {
		t.Fatalf("wrapped() error = %v", err)
	}
	if string(payload) != `{"daily":{}}` {
		t.Errorf("payload = %s", payload)
	}
	if !sawSpan {
		t.Error("dispatch did not run inside a span")
	}

	if n := len(f.spans.Ended()); n != 1 {
		t.Errorf("spans = %d, want 1", n)
	}
	if got := sumInt64(t, collect(t, f.reader), "geofetch.dispatch.total"); got != 1 {
		t.Errorf("geofetch.dispatch.total = %d, want 1", got)
	}

	entries := decodeLines(t, f.logs)
	if len(entries) != 1 || entries[0]["message"] != "dispatch completed" {
		t.Fatalf("log entries = %v", entries)
	}
	if entries[0]["bytes"] != float64(12) {
		t.Errorf("bytes = %v, want 12", entries[0]["bytes"])
	}
}

func TestMiddleware_ErrorPath(t *testing.T) {
	f := newMiddlewareFixture(t)
	upstreamErr := errors.New("upstream 503")

	wrapped := f.mw.Wrap(func(context.Context, RequestMeta) ([]byte, error) {
		return nil, upstreamErr
	})

	_, err := wrapped(context.Background(), RequestMeta{Kind: "current_conditions"})
	if err != upstreamErr {
		t.Errorf("error = %v, want the wrapped function's error unchanged", err)
	}

	if got := sumInt64(t, collect(t, f.reader), "geofetch.dispatch.errors"); got != 1 {
		t.Errorf("geofetch.dispatch.errors = %d, want 1", got)
	}
	entries := decodeLines(t, f.logs)
	if entries[0]["level"] != "warn" || entries[0]["error"] != "upstream 503" {
		t.Errorf("log entry = %v, want warn with error", entries[0])
	}
}

func TestMiddleware_CancelledIsDebug(t *testing.T) {
	f := newMiddlewareFixture(t)

	wrapped := f.mw.Wrap(func(ctx context.Context, _ RequestMeta) ([]byte, error) {
		return nil, context.Canceled
	})
	_, _ = wrapped(context.Background(), RequestMeta{Kind: "forecast"})

	entries := decodeLines(t, f.logs)
	if entries[0]["level"] != "debug" {
		t.Errorf("level = %v, want debug for a cancelled dispatch", entries[0]["level"])
	}
}

func TestMiddleware_NilComponents(t *testing.T) {
	mw := NewMiddleware(nil, nil, nil)
	wrapped := mw.Wrap(func(context.Context, RequestMeta) ([]byte, error) {
		time.Sleep(time.Millisecond)
		return []byte("ok"), nil
	})
	if _, err := wrapped(context.Background(), RequestMeta{Kind: "forecast"}); err != nil {
		t.Errorf("wrapped() error = %v", err)
	}
}

func TestMiddlewareFromObserver(t *testing.T) {
	if _, err := MiddlewareFromObserver(nil); !errors.Is(err, ErrNilObserver) {
		t.Errorf("MiddlewareFromObserver(nil) error = %v, want ErrNilObserver", err)
	}

	mw, err := MiddlewareFromObserver(Nop())
	if err != nil {
		t.Fatalf("MiddlewareFromObserver(Nop()) error = %v", err)
	}
	if mw.Metrics() == nil {
		t.Error("Metrics() = nil")
	}
}
