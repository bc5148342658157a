package fetch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/benbjohnson/clock"

	"github.com/clycites/geofetch/cache"
	"github.com/clycites/geofetch/fingerprint"
	"github.com/clycites/geofetch/inflight"
	"github.com/clycites/geofetch/observe"
	"github.com/clycites/geofetch/resilience"
	"github.com/clycites/geofetch/slot"
)

// Coordinator deduplicates, caches, throttles and cancels upstream requests.
//
// Contract:
//   - Concurrency: safe for concurrent use.
//   - At most one dispatch per fingerprint is in flight at any time.
//   - Dispatches of one kind are spaced by at least the kind's MinInterval.
//   - Only successful, non-abandoned dispatches are cached.
//   - A result is delivered only while its request still holds its slot.
type Coordinator struct {
	dispatcher Dispatcher
	config     Config
	clock      clock.Clock
	logger     observe.Logger
	middleware *observe.Middleware
	metrics    observe.Metrics
	builder    fingerprint.Builder
	timeout    *resilience.Timeout

	stores    map[fingerprint.Kind]cache.Store
	policies  map[fingerprint.Kind]cache.Policy
	throttles map[fingerprint.Kind]*resilience.Throttle
	janitors  []*cache.Janitor

	flights    *inflight.Registry
	slots      *slot.Coordinator
	debouncer  *resilience.Debouncer
	debouncing atomic.Int64

	gateMu sync.Mutex
	gates  map[string]chan struct{} // anonymous searches waiting out a quiet period, by fingerprint

	mu       sync.Mutex
	started  bool
	stopped  chan struct{}
	stopOnce sync.Once
}

// New creates a coordinator that sends requests through dispatcher.
func New(dispatcher Dispatcher, cfg Config, opts ...Option) (*Coordinator, error) {
	if dispatcher == nil {
		return nil, ErrNilDispatcher
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	o := options{
		clock:   clock.New(),
		builder: fingerprint.NewBuilder(),
	}
	for _, opt := range opts {
		opt(&o)
	}

	logger := o.logger
	if logger == nil {
		if o.observer != nil {
			logger = o.observer.Logger()
		} else {
			logger = observe.NopLogger()
		}
	}

	mw := o.middleware
	if mw == nil && o.observer != nil {
		m, err := observe.MiddlewareFromObserver(o.observer)
		if err != nil {
			return nil, fmt.Errorf("fetch: observer: %w", err)
		}
		mw = m
	}
	if mw == nil {
		mw = observe.NewMiddleware(nil, nil, logger)
	}

	c := &Coordinator{
		dispatcher: dispatcher,
		config:     cfg,
		clock:      o.clock,
		logger:     logger,
		middleware: mw,
		metrics:    mw.Metrics(),
		builder:    o.builder,
		timeout:    resilience.NewTimeout(resilience.TimeoutConfig{Timeout: cfg.FetchTimeout}),
		stores:     make(map[fingerprint.Kind]cache.Store),
		policies:   make(map[fingerprint.Kind]cache.Policy),
		throttles:  make(map[fingerprint.Kind]*resilience.Throttle),
		flights:    inflight.New(inflight.WithClock(o.clock)),
		slots:      slot.New(),
		debouncer:  resilience.NewDebouncer(o.clock),
		gates:      make(map[string]chan struct{}),
		stopped:    make(chan struct{}),
	}

	var shared *resilience.Throttle
	if cfg.SharedThrottle {
		shared = resilience.NewThrottle(resilience.ThrottleConfig{
			MinInterval: cfg.sharedInterval(),
			Clock:       o.clock,
		})
	}

	for _, kind := range fingerprint.Kinds() {
		kc := cfg.Kind(kind)
		policy := kc.Policy()
		c.policies[kind] = policy

		store, ok := o.stores[kind]
		if !ok {
			store = cache.NewMemoryCache(policy, cache.WithClock(o.clock))
		}
		c.stores[kind] = store

		if policy.ShouldCache() {
			c.janitors = append(c.janitors, cache.NewJanitor(store, cache.JanitorConfig{
				Interval: policy.EffectiveSweepInterval(),
				Clock:    o.clock,
				OnSweep:  c.onSweep(kind),
			}))
		}

		if shared != nil {
			c.throttles[kind] = shared
		} else {
			c.throttles[kind] = resilience.NewThrottle(resilience.ThrottleConfig{
				MinInterval: kc.MinInterval,
				Clock:       o.clock,
			})
		}
	}

	return c, nil
}

func (c *Coordinator) onSweep(kind fingerprint.Kind) func(int) {
	return func(removed int) {
		if removed == 0 {
			return
		}
		c.logger.Debug(context.Background(), "cache swept",
			observe.F("kind", kind.String()),
			observe.F("removed", removed))
	}
}

// Start begins the periodic cache sweeps. The coordinator stops when ctx
// ends. Start is idempotent; after Stop it returns ErrStopped.
func (c *Coordinator) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.open(); err != nil {
		return err
	}
	if c.started {
		return nil
	}
	c.started = true

	for _, j := range c.janitors {
		j.Start()
	}
	context.AfterFunc(ctx, c.Stop)

	c.logger.Debug(ctx, "coordinator started", observe.F("janitors", len(c.janitors)))
	return nil
}

// Stop ends the cache sweeps and pending debounces. Later requests fail with
// ErrStopped; dispatches already in flight run to completion. Stop is
// idempotent.
func (c *Coordinator) Stop() {
	c.stopOnce.Do(func() {
		close(c.stopped)

		c.mu.Lock()
		for _, j := range c.janitors {
			j.Stop()
		}
		c.mu.Unlock()

		c.debouncer.Stop()
		c.logger.Debug(context.Background(), "coordinator stopped")
	})
}

func (c *Coordinator) open() error {
	select {
	case <-c.stopped:
		return ErrStopped
	default:
		return nil
	}
}

// SearchLocations looks up places matching query. Queries shorter than
// fingerprint.MinQueryLength after trimming return an empty result without
// dispatching and cancel the slot's pending search. In a named slot the
// search is dispatched only after the slot has been quiet for DebounceDelay.
// Anonymous searches have no slot to supersede, so they are debounced per
// normalized query instead: a burst of identical anonymous searches waits
// out one quiet period and then shares a single dispatch.
func (c *Coordinator) SearchLocations(ctx context.Context, slotName, query string) (Result, error) {
	kind := fingerprint.KindLocationSearch
	params := fingerprint.Params{Query: query}

	if errors.Is(params.Validate(kind), fingerprint.ErrQueryTooShort) {
		if err := c.open(); err != nil {
			return Result{}, err
		}
		c.slots.Cancel(slotName)
		c.debouncer.Cancel(slotName)
		c.metrics.RecordRequest(ctx, kind.String(), observe.OutcomeInvalid)
		return Result{Kind: kind}, nil
	}

	return c.execute(ctx, slotName, kind, params)
}

// CurrentConditions returns the current conditions for req.Location.
func (c *Coordinator) CurrentConditions(ctx context.Context, slotName string, req CurrentRequest) (Result, error) {
	return c.execute(ctx, slotName, fingerprint.KindCurrentConditions, req.params())
}

// Forecast returns the forecast for req.Location.
func (c *Coordinator) Forecast(ctx context.Context, slotName string, req ForecastRequest) (Result, error) {
	return c.execute(ctx, slotName, fingerprint.KindForecast, req.params())
}

func (c *Coordinator) execute(ctx context.Context, slotName string, kind fingerprint.Kind, params fingerprint.Params) (Result, error) {
	if err := c.open(); err != nil {
		return Result{}, err
	}

	key, err := c.fingerprint(kind, params)
	if err != nil {
		c.record(ctx, kind, Result{}, err)
		return Result{Kind: kind}, err
	}

	h := c.slots.Supersede(ctx, slotName)
	res, err := c.resolve(ctx, h, kind, key, params)
	c.record(ctx, kind, res, err)
	return res, err
}

func (c *Coordinator) fingerprint(kind fingerprint.Kind, params fingerprint.Params) (string, error) {
	if err := params.Validate(kind); err != nil {
		return "", fmt.Errorf("%w: %w", ErrValidation, err)
	}
	key, err := c.builder.Fingerprint(kind, params)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrValidation, err)
	}
	return key, nil
}

// resolve runs the cache, flight and delivery steps for a registered handle.
func (c *Coordinator) resolve(ctx context.Context, h *slot.Handle, kind fingerprint.Kind, key string, params fingerprint.Params) (Result, error) {
	hctx := h.Context()

	if kind == fingerprint.KindLocationSearch {
		if err := c.debounce(h, key); err != nil {
			c.slots.Release(h)
			if errors.Is(err, ErrStopped) {
				return Result{Kind: kind, Key: key}, err
			}
			return c.interrupted(ctx, kind, key)
		}
	}

	if c.policies[kind].ShouldCache() {
		if val, ok := c.stores[kind].Get(hctx, key); ok {
			if !c.slots.Settle(h) {
				return c.interrupted(ctx, kind, key)
			}
			c.logger.Debug(hctx, "cache hit", c.fields(kind, key, h)...)
			return Result{Kind: kind, Key: key, Payload: val, Cached: true}, nil
		}
	}

	meta := observe.RequestMeta{
		Kind:      kind.String(),
		Key:       key,
		Slot:      h.Slot(),
		RequestID: h.ID(),
	}
	val, shared, err := c.flights.Do(hctx, key, c.flight(kind, key, params, meta))
	if err != nil {
		superseded := h.State() == slot.StateSuperseded
		c.slots.Release(h)

		failed := errors.Is(err, ErrDispatch) || errors.Is(err, inflight.ErrFlightPanicked)
		if ctx.Err() != nil || superseded || !failed {
			return c.interrupted(ctx, kind, key)
		}
		if !errors.Is(err, ErrDispatch) {
			err = fmt.Errorf("%w: %w", ErrDispatch, err)
		}
		return Result{Kind: kind, Key: key}, err
	}

	if !c.slots.Settle(h) {
		return c.interrupted(ctx, kind, key)
	}
	if shared {
		c.logger.Debug(hctx, "joined in-flight request", c.fields(kind, key, h)...)
	}
	return Result{
		Kind:      kind,
		Key:       key,
		Payload:   bytes.Clone(val),
		Shared:    shared,
		FetchedAt: c.clock.Now(),
	}, nil
}

// interrupted reports the end of a request that never delivered: the
// caller's own cancellation is an error, anything else means a newer request
// took the slot.
func (c *Coordinator) interrupted(ctx context.Context, kind fingerprint.Kind, key string) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{Kind: kind, Key: key}, err
	}
	return Result{Kind: kind, Key: key, Superseded: true}, nil
}

// debounce blocks until the handle's slot has been quiet for DebounceDelay.
// Anonymous handles wait on their fingerprint instead of a slot.
func (c *Coordinator) debounce(h *slot.Handle, key string) error {
	if c.config.DebounceDelay <= 0 {
		return nil
	}

	debounceKey := h.Slot()
	var fired <-chan struct{}
	var fire func()
	if debounceKey == slot.Anonymous {
		debounceKey = "\x00" + key
		fired, fire = c.gate(debounceKey)
	} else {
		ch := make(chan struct{})
		fired, fire = ch, func() { close(ch) }
	}

	c.debouncer.Trigger(debounceKey, c.config.DebounceDelay, fire)
	c.debouncing.Add(1)
	defer c.debouncing.Add(-1)

	select {
	case <-fired:
		return nil
	case <-h.Done():
		return h.Context().Err()
	case <-c.stopped:
		return ErrStopped
	}
}

// gate returns the channel shared by every anonymous search waiting on key
// and the func that releases them. A retriggered timer replaces the previous
// release, so all waiters hang off one channel that closes exactly once.
func (c *Coordinator) gate(key string) (<-chan struct{}, func()) {
	c.gateMu.Lock()
	defer c.gateMu.Unlock()

	ch, ok := c.gates[key]
	if !ok {
		ch = make(chan struct{})
		c.gates[key] = ch
	}
	return ch, func() {
		c.gateMu.Lock()
		defer c.gateMu.Unlock()
		if c.gates[key] == ch {
			delete(c.gates, key)
			close(ch)
		}
	}
}

// flight returns the work shared by every caller of one fingerprint.
func (c *Coordinator) flight(kind fingerprint.Kind, key string, params fingerprint.Params, meta observe.RequestMeta) inflight.Func {
	return func(ctx context.Context) ([]byte, error) {
		policy := c.policies[kind]
		store := c.stores[kind]

		// A flight for the same key may have settled between our cache
		// miss and registration.
		if policy.ShouldCache() {
			if val, ok := store.Get(ctx, key); ok {
				return val, nil
			}
		}

		if kind != fingerprint.KindLocationSearch && c.config.PacingDelay > 0 {
			if err := c.pace(ctx); err != nil {
				return nil, err
			}
		}

		start := c.clock.Now()
		if err := c.throttles[kind].Wait(ctx); err != nil {
			return nil, err
		}
		c.metrics.RecordThrottleWait(ctx, meta.Kind, c.clock.Since(start))

		send := c.middleware.Wrap(func(ctx context.Context, _ observe.RequestMeta) ([]byte, error) {
			return c.dispatcher.Dispatch(ctx, kind, params)
		})

		var payload []byte
		err := c.timeout.Execute(ctx, func(tctx context.Context) error {
			var err error
			payload, err = send(tctx, meta)
			return err
		})

		switch {
		case err == nil:
		case errors.Is(err, resilience.ErrTimeout):
			return nil, fmt.Errorf("%w after %s", ErrTimeout, c.config.FetchTimeout)
		case ctx.Err() != nil:
			return nil, ctx.Err()
		default:
			return nil, fmt.Errorf("%w: %w", ErrDispatch, err)
		}

		// Every caller left while the dispatch was running.
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		if policy.ShouldCache() {
			if err := store.Put(ctx, key, payload); err != nil {
				c.logger.Warn(ctx, "cache put failed",
					observe.F("kind", meta.Kind),
					observe.F("key", key),
					observe.F("error", err.Error()))
			}
		}
		return payload, nil
	}
}

func (c *Coordinator) pace(ctx context.Context) error {
	t := c.clock.Timer(c.config.PacingDelay)
	defer t.Stop()

	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Coordinator) record(ctx context.Context, kind fingerprint.Kind, res Result, err error) {
	outcome := res.outcome()
	switch {
	case err == nil:
	case errors.Is(err, ErrValidation):
		outcome = observe.OutcomeInvalid
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		outcome = observe.OutcomeCancelled
	default:
		outcome = observe.OutcomeError
	}
	c.metrics.RecordRequest(context.WithoutCancel(ctx), kind.String(), outcome)
}

func (c *Coordinator) fields(kind fingerprint.Kind, key string, h *slot.Handle) []observe.Field {
	fields := []observe.Field{
		observe.F("kind", kind.String()),
		observe.F("key", key),
	}
	if h.Slot() != slot.Anonymous {
		fields = append(fields, observe.F("slot", h.Slot()))
	}
	return fields
}
