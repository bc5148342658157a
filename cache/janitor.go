package cache

import (
	"context"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
)

// Sweeper is anything that can drop its expired entries.
type Sweeper interface {
	Sweep(now time.Time) int
}

// JanitorConfig configures a Janitor.
type JanitorConfig struct {
	// Interval is the time between sweeps.
	// Default: 5 minutes
	Interval time.Duration

	// Clock drives the ticker and supplies now for each sweep.
	// Default: the wall clock
	Clock clock.Clock

	// OnSweep is called after each sweep with the number of removed entries.
	OnSweep func(removed int)
}

// Janitor periodically sweeps a Store in the background.
type Janitor struct {
	config  JanitorConfig
	target  Sweeper
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	mu      sync.Mutex
	running bool
}

// NewJanitor creates a janitor for target. It does nothing until Start.
func NewJanitor(target Sweeper, config JanitorConfig) *Janitor {
	if config.Interval <= 0 {
		config.Interval = 5 * time.Minute
	}
	if config.Clock == nil {
		config.Clock = clock.New()
	}
	return &Janitor{config: config, target: target}
}

// Start begins sweeping at the configured interval. Calling Start on a
// running janitor is a no-op.
func (j *Janitor) Start() {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.running {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	j.cancel = cancel
	j.running = true

	ticker := j.config.Clock.Ticker(j.config.Interval)

	j.wg.Add(1)
	go func() {
		defer j.wg.Done()
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				removed := j.target.Sweep(j.config.Clock.Now())
				if j.config.OnSweep != nil {
					j.config.OnSweep(removed)
				}
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop terminates the sweep loop and waits for it to exit.
func (j *Janitor) Stop() {
	j.mu.Lock()
	defer j.mu.Unlock()

	if !j.running {
		return
	}

	j.cancel()
	j.wg.Wait()
	j.running = false
}

// Running reports whether the sweep loop is active.
func (j *Janitor) Running() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.running
}
