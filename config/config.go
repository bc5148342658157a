package config

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/clycites/geofetch/cache"
	"github.com/clycites/geofetch/fetch"
	"github.com/clycites/geofetch/fingerprint"
	"github.com/clycites/geofetch/observe"
	"github.com/clycites/geofetch/openmeteo"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "GEOFETCH_"

// Config is the complete geofetchd configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server" envPrefix:"SERVER_"`
	Fetch    FetchConfig    `yaml:"fetch" envPrefix:"FETCH_"`
	Cache    CacheConfig    `yaml:"cache" envPrefix:"CACHE_"`
	Upstream UpstreamConfig `yaml:"upstream" envPrefix:"UPSTREAM_"`
	Secrets  SecretsConfig  `yaml:"secrets" envPrefix:"SECRETS_"`
	Observe  observe.Config `yaml:"observe" envPrefix:"OBSERVE_"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	// Addr is the listen address.
	// Default: :8080
	Addr string `yaml:"addr" env:"ADDR" validate:"required"`

	// ReadTimeout bounds reading a request.
	// Default: 5s
	ReadTimeout time.Duration `yaml:"read_timeout" env:"READ_TIMEOUT" validate:"gte=0"`

	// WriteTimeout bounds writing a response. It must exceed the fetch
	// timeout plus the debounce delay.
	// Default: 30s
	WriteTimeout time.Duration `yaml:"write_timeout" env:"WRITE_TIMEOUT" validate:"gte=0"`

	// ShutdownTimeout bounds graceful shutdown.
	// Default: 15s
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SHUTDOWN_TIMEOUT" validate:"gt=0"`
}

// KindConfig holds the per-kind cache and throttle settings.
type KindConfig struct {
	TTL           time.Duration `yaml:"ttl" validate:"gte=0"`
	MinInterval   time.Duration `yaml:"min_interval" validate:"gte=0"`
	SweepInterval time.Duration `yaml:"sweep_interval" validate:"gte=0"`
}

// UnmarshalYAML starts from the fetch defaults so a kind listed in YAML only
// overrides the fields it names. An omitted sweep_interval follows ttl.
func (k *KindConfig) UnmarshalYAML(node *yaml.Node) error {
	type plain KindConfig
	d := fetch.DefaultKindConfig()
	p := plain{TTL: d.TTL, MinInterval: d.MinInterval}
	if err := node.Decode(&p); err != nil {
		return err
	}
	*k = KindConfig(p)
	return nil
}

// FetchConfig configures the fetch coordinator. Kinds is keyed by resource
// kind name (location_search, current_conditions, forecast) and is only
// settable from YAML.
type FetchConfig struct {
	Kinds          map[string]KindConfig `yaml:"kinds" validate:"dive,keys,oneof=location_search current_conditions forecast,endkeys"`
	DebounceDelay  time.Duration         `yaml:"debounce_delay" env:"DEBOUNCE_DELAY" validate:"gte=0"`
	PacingDelay    time.Duration         `yaml:"pacing_delay" env:"PACING_DELAY" validate:"gte=0"`
	FetchTimeout   time.Duration         `yaml:"fetch_timeout" env:"TIMEOUT" validate:"gt=0"`
	SharedThrottle bool                  `yaml:"shared_throttle" env:"SHARED_THROTTLE"`
}

// CacheConfig selects the cache backend.
type CacheConfig struct {
	// Backend is memory or bigcache.
	// Default: memory
	Backend  string               `yaml:"backend" env:"BACKEND" validate:"oneof=memory bigcache"`
	BigCache cache.BigCacheConfig `yaml:"bigcache" envPrefix:"BIGCACHE_"`
}

// UpstreamConfig configures the Open-Meteo client.
type UpstreamConfig struct {
	GeocodingURL string        `yaml:"geocoding_url" env:"GEOCODING_URL" validate:"required,url"`
	ForecastURL  string        `yaml:"forecast_url" env:"FORECAST_URL" validate:"required,url"`
	APIKey       string        `yaml:"api_key" env:"API_KEY"`
	Language     string        `yaml:"language" env:"LANGUAGE" validate:"required"`
	SearchCount  int           `yaml:"search_count" env:"SEARCH_COUNT" validate:"gte=1,lte=100"`
	Retry        RetryConfig   `yaml:"retry" envPrefix:"RETRY_"`
	Circuit      CircuitConfig `yaml:"circuit" envPrefix:"CIRCUIT_"`
}

// RetryConfig configures client-side retries of retryable upstream errors.
// MaxAttempts of 1 disables retrying.
type RetryConfig struct {
	MaxAttempts  int           `yaml:"max_attempts" env:"MAX_ATTEMPTS" validate:"gte=1,lte=10"`
	InitialDelay time.Duration `yaml:"initial_delay" env:"INITIAL_DELAY" validate:"gte=0"`
	MaxDelay     time.Duration `yaml:"max_delay" env:"MAX_DELAY" validate:"gte=0"`
}

// CircuitConfig configures the upstream circuit breaker.
type CircuitConfig struct {
	MaxFailures  int           `yaml:"max_failures" env:"MAX_FAILURES" validate:"gte=1"`
	ResetTimeout time.Duration `yaml:"reset_timeout" env:"RESET_TIMEOUT" validate:"gt=0"`
}

// SecretsConfig lists the secret providers to enable, keyed by provider name
// with the provider's settings as value.
type SecretsConfig struct {
	Strict    bool                      `yaml:"strict" env:"STRICT"`
	Providers map[string]map[string]any `yaml:"providers"`
}

// Default returns the configuration used when nothing is overridden.
func Default() Config {
	fc := fetch.DefaultConfig()
	kinds := make(map[string]KindConfig, len(fc.Kinds))
	for k, kc := range fc.Kinds {
		kinds[k.String()] = KindConfig{TTL: kc.TTL, MinInterval: kc.MinInterval, SweepInterval: kc.SweepInterval}
	}

	return Config{
		Server: ServerConfig{
			Addr:            ":8080",
			ReadTimeout:     5 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 15 * time.Second,
		},
		Fetch: FetchConfig{
			Kinds:         kinds,
			DebounceDelay: fc.DebounceDelay,
			PacingDelay:   fc.PacingDelay,
			FetchTimeout:  fc.FetchTimeout,
		},
		Cache: CacheConfig{Backend: "memory"},
		Upstream: UpstreamConfig{
			GeocodingURL: openmeteo.DefaultGeocodingURL,
			ForecastURL:  openmeteo.DefaultForecastURL,
			Language:     "en",
			SearchCount:  10,
			Retry: RetryConfig{
				MaxAttempts:  1,
				InitialDelay: 200 * time.Millisecond,
				MaxDelay:     2 * time.Second,
			},
			Circuit: CircuitConfig{
				MaxFailures:  5,
				ResetTimeout: 30 * time.Second,
			},
		},
		Secrets: SecretsConfig{
			Strict:    true,
			Providers: map[string]map[string]any{"env": {}},
		},
		Observe: observe.Config{
			ServiceName: "geofetch",
			Tracing:     observe.TracingConfig{Exporter: "none", SamplePct: 1},
			Metrics:     observe.MetricsConfig{Enabled: true, Exporter: "prometheus"},
			Logging:     observe.LoggingConfig{Enabled: true, Level: "info"},
		},
	}
}

// FetchConfig converts the fetch section into a fetch.Config.
func (c Config) FetchConfig() (fetch.Config, error) {
	fc := fetch.Config{
		Kinds:          make(map[fingerprint.Kind]fetch.KindConfig, len(c.Fetch.Kinds)),
		DebounceDelay:  c.Fetch.DebounceDelay,
		PacingDelay:    c.Fetch.PacingDelay,
		FetchTimeout:   c.Fetch.FetchTimeout,
		SharedThrottle: c.Fetch.SharedThrottle,
	}
	for name, kc := range c.Fetch.Kinds {
		kind, err := fingerprint.ParseKind(name)
		if err != nil {
			return fetch.Config{}, fmt.Errorf("%w: fetch.kinds: %w", ErrInvalid, err)
		}
		fc.Kinds[kind] = fetch.KindConfig{TTL: kc.TTL, MinInterval: kc.MinInterval, SweepInterval: kc.SweepInterval}
	}
	return fc, nil
}

// ClientConfig converts the upstream section into an openmeteo.Config.
func (c Config) ClientConfig() openmeteo.Config {
	u := c.Upstream
	return openmeteo.Config{
		GeocodingURL: u.GeocodingURL,
		ForecastURL:  u.ForecastURL,
		APIKey:       u.APIKey,
		Language:     u.Language,
		SearchCount:  u.SearchCount,
		MaxAttempts:  u.Retry.MaxAttempts,
		InitialDelay: u.Retry.InitialDelay,
		MaxDelay:     u.Retry.MaxDelay,
		MaxFailures:  u.Circuit.MaxFailures,
		ResetTimeout: u.Circuit.ResetTimeout,
	}
}
