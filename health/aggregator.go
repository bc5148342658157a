package health

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"golang.org/x/sync/errgroup"
)

// AggregatorConfig configures the health aggregator.
type AggregatorConfig struct {
	// Timeout bounds a whole CheckAll run.
	// Default: 10 seconds
	Timeout time.Duration

	// Concurrency limits how many checks run at once. Zero means no limit.
	Concurrency int

	// Sequential runs checks one after another in registration order.
	Sequential bool

	// Clock measures check durations and stamps reports.
	// Default: the wall clock
	Clock clock.Clock
}

// RegisterOption configures a registered checker.
type RegisterOption func(*registration)

// NonCritical caps the checker's effect on the overall status at Degraded.
func NonCritical() RegisterOption {
	return func(r *registration) { r.critical = false }
}

type registration struct {
	checker  Checker
	critical bool
}

// Report is the outcome of one CheckAll run.
type Report struct {
	Status    Status
	Checks    map[string]Result
	CheckedAt time.Time
}

// Aggregator combines multiple health checkers into a single composite check.
type Aggregator struct {
	config AggregatorConfig

	mu       sync.RWMutex
	checkers map[string]registration
	order    []string
}

// NewAggregator creates a new health aggregator.
func NewAggregator(config ...AggregatorConfig) *Aggregator {
	var cfg AggregatorConfig
	if len(config) > 0 {
		cfg = config[0]
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.New()
	}

	return &Aggregator{
		config:   cfg,
		checkers: make(map[string]registration),
	}
}

// Register adds or replaces a checker under name.
func (a *Aggregator) Register(name string, checker Checker, opts ...RegisterOption) {
	reg := registration{checker: checker, critical: true}
	for _, opt := range opts {
		opt(&reg)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if _, exists := a.checkers[name]; !exists {
		a.order = append(a.order, name)
	}
	a.checkers[name] = reg
}

// Unregister removes a checker.
func (a *Aggregator) Unregister(name string) {
	a.mu.Lock()
	defer a.mu.Unlock()

	delete(a.checkers, name)
	for i, n := range a.order {
		if n == name {
			a.order = append(a.order[:i], a.order[i+1:]...)
			break
		}
	}
}

// CheckerNames returns the registered names in registration order.
func (a *Aggregator) CheckerNames() []string {
	a.mu.RLock()
	defer a.mu.RUnlock()

	names := make([]string, len(a.order))
	copy(names, a.order)
	return names
}

// Check runs a single named health check.
func (a *Aggregator) Check(ctx context.Context, name string) (Result, error) {
	a.mu.RLock()
	reg, ok := a.checkers[name]
	a.mu.RUnlock()

	if !ok {
		return Result{}, fmt.Errorf("%w: %s", ErrCheckerNotFound, name)
	}

	ctx, cancel := context.WithTimeout(ctx, a.config.Timeout)
	defer cancel()
	return a.runCheck(ctx, reg.checker), nil
}

// CheckAll runs every registered check and returns the results by name.
func (a *Aggregator) CheckAll(ctx context.Context) map[string]Result {
	return a.Run(ctx).Checks
}

// Run runs every registered check and folds the results into a Report.
func (a *Aggregator) Run(ctx context.Context) Report {
	a.mu.RLock()
	names := make([]string, len(a.order))
	copy(names, a.order)
	regs := make([]registration, len(names))
	for i, name := range names {
		regs[i] = a.checkers[name]
	}
	a.mu.RUnlock()

	report := Report{
		Status:    StatusHealthy,
		Checks:    make(map[string]Result, len(names)),
		CheckedAt: a.config.Clock.Now(),
	}
	if len(names) == 0 {
		return report
	}

	ctx, cancel := context.WithTimeout(ctx, a.config.Timeout)
	defer cancel()

	results := make([]Result, len(names))
	if a.config.Sequential {
		for i, reg := range regs {
			results[i] = a.runCheck(ctx, reg.checker)
		}
	} else {
		var g errgroup.Group
		if a.config.Concurrency > 0 {
			g.SetLimit(a.config.Concurrency)
		}
		for i, reg := range regs {
			g.Go(func() error {
				results[i] = a.runCheck(ctx, reg.checker)
				return nil
			})
		}
		_ = g.Wait()
	}

	for i, name := range names {
		report.Checks[name] = results[i]
		report.Status = report.Status.worse(effective(results[i].Status, regs[i].critical))
	}
	return report
}

// OverallStatus folds results into one status. Results of non-critical
// checkers count as Degraded at worst.
func (a *Aggregator) OverallStatus(results map[string]Result) Status {
	a.mu.RLock()
	defer a.mu.RUnlock()

	status := StatusHealthy
	for name, result := range results {
		critical := true
		if reg, ok := a.checkers[name]; ok {
			critical = reg.critical
		}
		status = status.worse(effective(result.Status, critical))
	}
	return status
}

func effective(s Status, critical bool) Status {
	if !critical && s == StatusUnhealthy {
		return StatusDegraded
	}
	return s
}

func (a *Aggregator) runCheck(ctx context.Context, checker Checker) Result {
	start := a.config.Clock.Now()
	resultCh := make(chan Result, 1)

	go func() {
		defer func() {
			if p := recover(); p != nil {
				resultCh <- Unhealthy(fmt.Sprintf("check panicked: %v", p), ErrCheckPanicked)
			}
		}()
		resultCh <- checker.Check(ctx)
	}()

	var result Result
	select {
	case result = <-resultCh:
	case <-ctx.Done():
		result = Result{
			Status:  StatusUnhealthy,
			Message: "check timed out",
			Error:   ErrCheckTimeout,
		}
	}

	result.Duration = a.config.Clock.Since(start)
	if result.Timestamp.IsZero() {
		result.Timestamp = start
	}
	return result
}

// Checker returns the aggregator as a single Checker.
func (a *Aggregator) Checker() Checker {
	return NewCheckerFunc("aggregate", func(ctx context.Context) Result {
		report := a.Run(ctx)

		details := make(map[string]any, len(report.Checks))
		for name, result := range report.Checks {
			details[name] = result.Status.String()
		}

		var message string
		switch report.Status {
		case StatusHealthy:
			message = "all checks passed"
		case StatusDegraded:
			message = "some checks degraded"
		default:
			message = "some checks failed"
		}

		return Result{
			Status:    report.Status,
			Message:   message,
			Details:   details,
			Timestamp: report.CheckedAt,
		}
	})
}
