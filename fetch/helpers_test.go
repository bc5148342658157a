package fetch

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/clycites/geofetch/fingerprint"
	"github.com/clycites/geofetch/observe"
)

type dispatchCall struct {
	Kind   fingerprint.Kind
	Params fingerprint.Params
	At     time.Time
}

// stubDispatcher records every call and answers with fn, or with the kind
// name when fn is nil.
type stubDispatcher struct {
	clock clock.Clock
	fn    func(ctx context.Context, kind fingerprint.Kind, params fingerprint.Params) ([]byte, error)

	mu    sync.Mutex
	calls []dispatchCall
}

func (s *stubDispatcher) Dispatch(ctx context.Context, kind fingerprint.Kind, params fingerprint.Params) ([]byte, error) {
	at := time.Now()
	if s.clock != nil {
		at = s.clock.Now()
	}
	s.mu.Lock()
	s.calls = append(s.calls, dispatchCall{Kind: kind, Params: params, At: at})
	s.mu.Unlock()

	if s.fn == nil {
		return []byte(kind.String()), nil
	}
	return s.fn(ctx, kind, params)
}

func (s *stubDispatcher) Calls() []dispatchCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]dispatchCall, len(s.calls))
	copy(out, s.calls)
	return out
}

func (s *stubDispatcher) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

// outcomeRecorder is an observe.Metrics that keeps request outcomes.
type outcomeRecorder struct {
	mu       sync.Mutex
	outcomes []string
	waits    int
}

func (r *outcomeRecorder) RecordRequest(_ context.Context, kind, outcome string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcomes = append(r.outcomes, kind+":"+outcome)
}

func (r *outcomeRecorder) RecordDispatch(context.Context, observe.RequestMeta, time.Duration, error) {}

func (r *outcomeRecorder) RecordThrottleWait(context.Context, string, time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.waits++
}

func (r *outcomeRecorder) Outcomes() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.outcomes))
	copy(out, r.outcomes)
	return out
}

// testConfig disables throttling, pacing and debouncing so tests opt into
// exactly the gate they exercise.
func testConfig() Config {
	cfg := DefaultConfig()
	for k, kc := range cfg.Kinds {
		kc.MinInterval = 0
		cfg.Kinds[k] = kc
	}
	cfg.PacingDelay = 0
	cfg.DebounceDelay = 0
	return cfg
}

func newTestCoordinator(t *testing.T, d Dispatcher, cfg Config, opts ...Option) *Coordinator {
	t.Helper()
	c, err := New(d, cfg, opts...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(c.Stop)
	return c
}

func loc(lat, lon float64) *fingerprint.Coordinates {
	return &fingerprint.Coordinates{Latitude: lat, Longitude: lon}
}

func kampala() *fingerprint.Coordinates {
	return loc(0.3476, 32.5825)
}

type outcome struct {
	res Result
	err error
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

// advanceUntil moves the mock clock forward in steps until done yields.
func advanceUntil(t *testing.T, mock *clock.Mock, step time.Duration, done <-chan outcome) outcome {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		select {
		case o := <-done:
			return o
		default:
		}
		mock.Add(step)
		time.Sleep(time.Millisecond)
	}
	t.Fatal("request did not complete before deadline")
	return outcome{}
}

func receive(t *testing.T, ch <-chan outcome) outcome {
	t.Helper()
	select {
	case o := <-ch:
		return o
	case <-time.After(2 * time.Second):
		t.Fatal("request did not complete before deadline")
		return outcome{}
	}
}
