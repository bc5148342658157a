package health

import (
	"context"
	"errors"
	"testing"
)

func TestStatus_String(t *testing.T) {
	tests := []struct {
		status Status
		want   string
	}{
		{StatusHealthy, "healthy"},
		{StatusDegraded, "degraded"},
		{StatusUnhealthy, "unhealthy"},
		{Status(99), "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := tt.status.String(); got != tt.want {
				t.Errorf("Status.String() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestStatus_Worse(t *testing.T) {
	tests := []struct {
		a, b, want Status
	}{
		{StatusHealthy, StatusHealthy, StatusHealthy},
		{StatusHealthy, StatusDegraded, StatusDegraded},
		{StatusUnhealthy, StatusDegraded, StatusUnhealthy},
		{StatusDegraded, StatusHealthy, StatusDegraded},
	}

	for _, tt := range tests {
		if got := tt.a.worse(tt.b); got != tt.want {
			t.Errorf("%v.worse(%v) = %v, want %v", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestResultConstructors(t *testing.T) {
	upstreamErr := errors.New("upstream down")

	tests := []struct {
		name   string
		result Result
		status Status
		err    error
	}{
		{"healthy", Healthy("coordinator running"), StatusHealthy, nil},
		{"degraded", Degraded("cache sweeps not running"), StatusDegraded, nil},
		{"unhealthy", Unhealthy("circuit open", upstreamErr), StatusUnhealthy, upstreamErr},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.result.Status != tt.status {
				t.Errorf("Status = %v, want %v", tt.result.Status, tt.status)
			}
			if tt.result.Error != tt.err {
				t.Errorf("Error = %v, want %v", tt.result.Error, tt.err)
			}
			if !tt.result.Timestamp.IsZero() {
				t.Error("Timestamp should be left for the aggregator to stamp")
			}
		})
	}
}

func TestResult_WithDetails(t *testing.T) {
	result := Healthy("ok").WithDetails(map[string]any{"in_flight": 3})

	if result.Details["in_flight"] != 3 {
		t.Errorf("Details[in_flight] = %v, want 3", result.Details["in_flight"])
	}

	merged := result.WithDetails(map[string]any{"running": true})
	if merged.Details["in_flight"] != 3 || merged.Details["running"] != true {
		t.Errorf("merged Details = %v, want in_flight and running", merged.Details)
	}
	if _, ok := result.Details["running"]; ok {
		t.Error("WithDetails modified the original result")
	}
}

func TestCheckerFunc(t *testing.T) {
	checker := NewCheckerFunc("upstream", func(ctx context.Context) Result {
		select {
		case <-ctx.Done():
			return Unhealthy("cancelled", ctx.Err())
		default:
			return Healthy("reachable")
		}
	})

	if checker.Name() != "upstream" {
		t.Errorf("Name() = %v, want upstream", checker.Name())
	}
	if got := checker.Check(context.Background()); got.Status != StatusHealthy || got.Message != "reachable" {
		t.Errorf("Check() = %v %q, want healthy reachable", got.Status, got.Message)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if got := checker.Check(ctx); got.Status != StatusUnhealthy {
		t.Errorf("Check(cancelled) Status = %v, want unhealthy", got.Status)
	}
}
