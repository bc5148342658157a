package slot

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// Anonymous is the slot name whose handles are never superseded.
const Anonymous = ""

// Sentinel errors for slot operations.
var (
	// ErrSuperseded is the cancellation cause of a handle replaced by a newer
	// request in the same slot.
	ErrSuperseded = errors.New("slot: superseded by a newer request")

	// ErrCancelled is the cancellation cause of a handle torn down with
	// Coordinator.Cancel.
	ErrCancelled = errors.New("slot: cancelled")
)

// State is the lifecycle state of a handle.
type State int

const (
	// StateActive means the handle owns its slot and may deliver.
	StateActive State = iota
	// StateSuperseded means a newer request or an explicit cancel replaced it.
	StateSuperseded
	// StateSettled means the handle delivered and released its slot.
	StateSettled
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateActive:
		return "active"
	case StateSuperseded:
		return "superseded"
	case StateSettled:
		return "settled"
	default:
		return "unknown"
	}
}

// Handle identifies one request in one slot.
type Handle struct {
	id     string
	slot   string
	ctx    context.Context
	cancel context.CancelCauseFunc

	// written under Coordinator.mu
	state atomic.Int32
}

// ID returns the handle's unique id.
func (h *Handle) ID() string { return h.id }

// Slot returns the slot the handle was registered in.
func (h *Handle) Slot() string { return h.slot }

// Context returns a context that is cancelled when the handle is superseded
// or settled, or when the parent context ends.
func (h *Handle) Context() context.Context { return h.ctx }

// Done is shorthand for Context().Done().
func (h *Handle) Done() <-chan struct{} { return h.ctx.Done() }

// State returns the handle's lifecycle state.
func (h *Handle) State() State { return State(h.state.Load()) }

func (h *Handle) setState(s State) { h.state.Store(int32(s)) }

// Coordinator maps slot names to their current handle.
//
// Contract:
// - Concurrency: safe for concurrent use.
// - At most one active handle per named slot.
// - Settle succeeds at most once per handle, and only while it is current.
type Coordinator struct {
	mu      sync.Mutex
	current map[string]*Handle
}

// New creates an empty coordinator.
func New() *Coordinator {
	return &Coordinator{current: make(map[string]*Handle)}
}

// Supersede registers a new handle in slot, cancelling the previous one with
// cause ErrSuperseded. The handle's context derives from ctx.
func (c *Coordinator) Supersede(ctx context.Context, slot string) *Handle {
	hctx, cancel := context.WithCancelCause(ctx)
	h := &Handle{
		id:     uuid.NewString(),
		slot:   slot,
		ctx:    hctx,
		cancel: cancel,
	}

	if slot == Anonymous {
		return h
	}

	c.mu.Lock()
	prev := c.current[slot]
	if prev != nil {
		prev.setState(StateSuperseded)
	}
	c.current[slot] = h
	c.mu.Unlock()

	if prev != nil {
		prev.cancel(ErrSuperseded)
	}
	return h
}

// IsActive reports whether h is still the current handle of slot.
func (c *Coordinator) IsActive(slot string, h *Handle) bool {
	if h == nil {
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if slot == Anonymous {
		return h.slot == Anonymous && h.State() == StateActive
	}
	return c.current[slot] == h && h.State() == StateActive
}

// Settle marks h as delivered and releases its slot. It reports false when h
// was superseded or already settled, in which case its result must be
// dropped.
func (c *Coordinator) Settle(h *Handle) bool {
	if h == nil {
		return false
	}

	c.mu.Lock()
	ok := h.State() == StateActive
	if ok && h.slot != Anonymous && c.current[h.slot] != h {
		ok = false
	}
	if ok {
		h.setState(StateSettled)
		if h.slot != Anonymous {
			delete(c.current, h.slot)
		}
	}
	c.mu.Unlock()

	if ok {
		h.cancel(nil)
	}
	return ok
}

// Release drops h without delivering. It is a no-op unless h is current.
// Use it on failure paths so the slot returns to idle.
func (c *Coordinator) Release(h *Handle) {
	if h == nil {
		return
	}

	c.mu.Lock()
	if h.State() == StateActive {
		h.setState(StateSettled)
		if h.slot != Anonymous && c.current[h.slot] == h {
			delete(c.current, h.slot)
		}
	}
	c.mu.Unlock()

	h.cancel(nil)
}

// Cancel supersedes the slot's current handle without registering a new one.
// It reports whether a handle was cancelled.
func (c *Coordinator) Cancel(slot string) bool {
	if slot == Anonymous {
		return false
	}

	c.mu.Lock()
	h, ok := c.current[slot]
	if ok {
		h.setState(StateSuperseded)
		delete(c.current, slot)
	}
	c.mu.Unlock()

	if ok {
		h.cancel(ErrCancelled)
	}
	return ok
}

// Current returns the active handle of slot, if any.
func (c *Coordinator) Current(slot string) (*Handle, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	h, ok := c.current[slot]
	return h, ok
}

// Len returns the number of named slots with an active handle.
func (c *Coordinator) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.current)
}
