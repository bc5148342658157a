package resilience

import (
	"sync"
	"time"

	"github.com/benbjohnson/clock"
)

// Debouncer coalesces bursts of triggers per key. Only a trigger that is not
// followed by another trigger for the same key within its delay runs.
type Debouncer struct {
	clock clock.Clock

	mu      sync.Mutex
	pending map[string]*debounceEntry
	seq     uint64
	stopped bool
}

type debounceEntry struct {
	timer *clock.Timer
	gen   uint64
}

// NewDebouncer creates a debouncer. A nil clock means the wall clock.
func NewDebouncer(c clock.Clock) *Debouncer {
	if c == nil {
		c = clock.New()
	}
	return &Debouncer{
		clock:   c,
		pending: make(map[string]*debounceEntry),
	}
}

// Trigger schedules fn to run after delay, replacing any pending call for
// key. A non-positive delay runs fn immediately on the caller's goroutine.
// After Stop, Trigger does nothing.
func (d *Debouncer) Trigger(key string, delay time.Duration, fn func()) {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return
	}
	if prev, ok := d.pending[key]; ok {
		prev.timer.Stop()
		delete(d.pending, key)
	}
	if delay <= 0 {
		d.mu.Unlock()
		fn()
		return
	}

	d.seq++
	entry := &debounceEntry{gen: d.seq}
	entry.timer = d.clock.AfterFunc(delay, func() { d.fire(key, entry.gen, fn) })
	d.pending[key] = entry
	d.mu.Unlock()
}

func (d *Debouncer) fire(key string, gen uint64, fn func()) {
	d.mu.Lock()
	cur, ok := d.pending[key]
	if !ok || cur.gen != gen {
		// superseded after the timer had already fired
		d.mu.Unlock()
		return
	}
	delete(d.pending, key)
	d.mu.Unlock()

	fn()
}

// Cancel drops the pending call for key. It reports whether one was pending.
func (d *Debouncer) Cancel(key string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	entry, ok := d.pending[key]
	if !ok {
		return false
	}
	entry.timer.Stop()
	delete(d.pending, key)
	return true
}

// Pending reports whether a call for key is scheduled.
func (d *Debouncer) Pending(key string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.pending[key]
	return ok
}

// Len returns the number of scheduled calls.
func (d *Debouncer) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.pending)
}

// Stop cancels every pending call. Later triggers are ignored.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	for key, entry := range d.pending {
		entry.timer.Stop()
		delete(d.pending, key)
	}
	d.stopped = true
}
