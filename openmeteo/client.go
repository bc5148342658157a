package openmeteo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/clycites/geofetch/fetch"
	"github.com/clycites/geofetch/fingerprint"
	"github.com/clycites/geofetch/observe"
	"github.com/clycites/geofetch/resilience"
)

// Public Open-Meteo endpoints.
const (
	DefaultGeocodingURL = "https://geocoding-api.open-meteo.com/v1/search"
	DefaultForecastURL  = "https://api.open-meteo.com/v1/forecast"
)

// Config configures a Client.
type Config struct {
	// GeocodingURL is the location search endpoint.
	// Default: DefaultGeocodingURL
	GeocodingURL string

	// ForecastURL serves current conditions and forecasts.
	// Default: DefaultForecastURL
	ForecastURL string

	// APIKey is sent as the apikey parameter when set.
	APIKey string

	// Language of location search results.
	// Default: en
	Language string

	// SearchCount is the number of search results requested.
	// Default: 10
	SearchCount int

	// MaxAttempts bounds attempts per dispatch. One disables retrying.
	// Default: 1
	MaxAttempts int

	// InitialDelay and MaxDelay shape the retry backoff.
	// Default: 200ms and 2s
	InitialDelay time.Duration
	MaxDelay     time.Duration

	// MaxFailures consecutive upstream failures open the circuit.
	// Default: 5
	MaxFailures int

	// ResetTimeout is how long the circuit stays open.
	// Default: 30 seconds
	ResetTimeout time.Duration

	// MaxBodyBytes caps the response size.
	// Default: 4 MiB
	MaxBodyBytes int64

	// UserAgent is sent with every request.
	// Default: geofetch
	UserAgent string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithClock sets the clock used by the retry backoff and circuit breaker.
func WithClock(clk clock.Clock) Option {
	return func(c *Client) { c.clock = clk }
}

// WithLogger sets the logger for retries and circuit transitions.
func WithLogger(l observe.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// Client dispatches fetches to Open-Meteo.
type Client struct {
	config  Config
	http    *http.Client
	clock   clock.Clock
	logger  observe.Logger
	breaker *resilience.CircuitBreaker
	exec    *resilience.Executor
}

// New creates a client.
func New(cfg Config, opts ...Option) *Client {
	if cfg.GeocodingURL == "" {
		cfg.GeocodingURL = DefaultGeocodingURL
	}
	if cfg.ForecastURL == "" {
		cfg.ForecastURL = DefaultForecastURL
	}
	if cfg.Language == "" {
		cfg.Language = "en"
	}
	if cfg.SearchCount <= 0 {
		cfg.SearchCount = 10
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1
	}
	if cfg.InitialDelay <= 0 {
		cfg.InitialDelay = 200 * time.Millisecond
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = 2 * time.Second
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = 4 << 20
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "geofetch"
	}

	c := &Client{
		config: cfg,
		http:   http.DefaultClient,
		clock:  clock.New(),
		logger: observe.NopLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}

	c.breaker = resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
		MaxFailures:  cfg.MaxFailures,
		ResetTimeout: cfg.ResetTimeout,
		IsFailure:    isUpstreamFailure,
		Clock:        c.clock,
		OnStateChange: func(from, to resilience.State) {
			c.logger.Warn(context.Background(), "upstream circuit changed",
				observe.F("from", from.String()), observe.F("to", to.String()))
		},
	})

	execOpts := []resilience.ExecutorOption{resilience.WithCircuitBreaker(c.breaker)}
	if cfg.MaxAttempts > 1 {
		execOpts = append(execOpts, resilience.WithRetry(resilience.NewRetry(resilience.RetryConfig{
			MaxAttempts:  cfg.MaxAttempts,
			InitialDelay: cfg.InitialDelay,
			MaxDelay:     cfg.MaxDelay,
			Jitter:       true,
			RetryIf:      IsRetryable,
			Hint:         retryAfter,
			Clock:        c.clock,
			OnRetry: func(attempt int, err error, delay time.Duration) {
				c.logger.Warn(context.Background(), "retrying upstream request",
					observe.F("attempt", attempt), observe.F("delay", delay.String()), observe.F("error", err.Error()))
			},
		})))
	}
	c.exec = resilience.NewExecutor(execOpts...)

	return c
}

// Dispatch fetches the resource described by kind and params and returns the
// raw JSON body.
func (c *Client) Dispatch(ctx context.Context, kind fingerprint.Kind, params fingerprint.Params) ([]byte, error) {
	u, err := c.requestURL(kind, params)
	if err != nil {
		return nil, err
	}

	var body []byte
	err = c.exec.Execute(ctx, func(ctx context.Context) error {
		b, err := c.get(ctx, u)
		if err != nil {
			return err
		}
		body = b
		return nil
	})
	if err != nil {
		return nil, err
	}
	return body, nil
}

// CircuitState reports the upstream circuit breaker state.
func (c *Client) CircuitState() resilience.State {
	return c.breaker.State()
}

func (c *Client) get(ctx context.Context, u string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("openmeteo: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.config.UserAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.config.MaxBodyBytes+1))
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("openmeteo: read body: %w", err)
	}
	if int64(len(body)) > c.config.MaxBodyBytes {
		return nil, ErrResponseTooLarge
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{
			StatusCode: resp.StatusCode,
			Reason:     reason(body),
			RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After"), c.clock.Now()),
		}
	}
	return body, nil
}

// reason extracts the message of an Open-Meteo error body.
func reason(body []byte) string {
	var e struct {
		Error  bool   `json:"error"`
		Reason string `json:"reason"`
	}
	if json.Unmarshal(body, &e) != nil || !e.Error {
		return ""
	}
	return e.Reason
}

var _ fetch.Dispatcher = (*Client)(nil)
