package observe

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var entry map[string]any
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			t.Fatalf("invalid JSON log line %q: %v", line, err)
		}
		out = append(out, entry)
	}
	return out
}

func TestLogger_JSONOutput(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter("info", &buf)

	logger.Info(context.Background(), "dispatch completed", F("kind", "forecast"), F("bytes", 512))

	entries := decodeLines(t, &buf)
	if len(entries) != 1 {
		t.Fatalf("entries = %d, want 1", len(entries))
	}
	e := entries[0]
	if e["message"] != "dispatch completed" {
		t.Errorf("message = %v", e["message"])
	}
	if e["level"] != "info" {
		t.Errorf("level = %v, want info", e["level"])
	}
	if e["kind"] != "forecast" {
		t.Errorf("kind = %v, want forecast", e["kind"])
	}
	if e["bytes"] != float64(512) {
		t.Errorf("bytes = %v, want 512", e["bytes"])
	}
	if _, ok := e["time"]; !ok {
		t.Error("entry has no timestamp")
	}
}

func TestLogger_LevelFiltering(t *testing.T) {
	tests := []struct {
		level string
		want  int
	}{
		{"debug", 4},
		{"info", 3},
		{"warn", 2},
		{"error", 1},
		{"bogus", 3},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			var buf bytes.Buffer
			logger := NewLoggerWithWriter(tt.level, &buf)
			ctx := context.Background()

			logger.Debug(ctx, "d")
			logger.Info(ctx, "i")
			logger.Warn(ctx, "w")
			logger.Error(ctx, "e")

			if got := len(decodeLines(t, &buf)); got != tt.want {
				t.Errorf("entries = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestLogger_Redaction(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter("info", &buf)

	logger.Info(context.Background(), "upstream configured",
		F("apikey", "sk-live-123"),
		F("token", "t"),
		F("url", "https://api.open-meteo.com"),
	)

	out := buf.String()
	if strings.Contains(out, "sk-live-123") {
		t.Errorf("api key leaked into log: %s", out)
	}
	e := decodeLines(t, &buf)[0]
	if e["apikey"] != redactedValue || e["token"] != redactedValue {
		t.Errorf("sensitive fields not redacted: %v", e)
	}
	if e["url"] != "https://api.open-meteo.com" {
		t.Errorf("url = %v", e["url"])
	}
}

func TestLogger_With(t *testing.T) {
	var buf bytes.Buffer
	base := NewLoggerWithWriter("info", &buf)
	scoped := base.With(F("kind", "location_search"), F("api_key", "secret"))

	scoped.Warn(context.Background(), "dispatch failed", F("error", errors.New("timeout")))
	base.Info(context.Background(), "unscoped")

	entries := decodeLines(t, &buf)
	if entries[0]["kind"] != "location_search" {
		t.Errorf("scoped entry kind = %v", entries[0]["kind"])
	}
	if entries[0]["api_key"] != redactedValue {
		t.Errorf("With() field not redacted: %v", entries[0]["api_key"])
	}
	if entries[0]["error"] != "timeout" {
		t.Errorf("error = %v, want timeout", entries[0]["error"])
	}
	if _, ok := entries[1]["kind"]; ok {
		t.Error("With() leaked fields into the parent logger")
	}
}

func TestLogger_TraceCorrelation(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter("info", &buf)

	tp := sdktrace.NewTracerProvider()
	ctx, span := tp.Tracer("test").Start(context.Background(), "op")
	defer span.End()

	logger.Info(ctx, "inside span")

	e := decodeLines(t, &buf)[0]
	if e["trace_id"] != span.SpanContext().TraceID().String() {
		t.Errorf("trace_id = %v, want %s", e["trace_id"], span.SpanContext().TraceID())
	}
}

func TestLogger_Concurrent(t *testing.T) {
	var buf safeBuffer
	logger := NewLoggerWithWriter("info", &buf)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			logger.Info(context.Background(), "concurrent", F("i", i))
		}()
	}
	wg.Wait()

	if got := strings.Count(buf.String(), "\n"); got != 20 {
		t.Errorf("lines = %d, want 20", got)
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		in   string
		want LogLevel
	}{
		{"debug", LevelDebug},
		{"info", LevelInfo},
		{"warn", LevelWarn},
		{"error", LevelError},
		{"", LevelInfo},
	}
	for _, tt := range tests {
		if got := ParseLogLevel(tt.in); got != tt.want {
			t.Errorf("ParseLogLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
		if tt.in != "" && ParseLogLevel(tt.in).String() != tt.in {
			t.Errorf("String() round trip failed for %q", tt.in)
		}
	}
}

type safeBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *safeBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *safeBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
