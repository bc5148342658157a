package config

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/clycites/geofetch/secret"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Load builds the configuration from defaults, the YAML file at path (skipped
// when path is empty), GEOFETCH_ environment variables and secret references,
// then validates it.
func Load(ctx context.Context, path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("%w: %w", ErrRead, err)
		}
		if err := decodeYAML(data, &cfg); err != nil {
			return Config{}, err
		}
	}

	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return Config{}, fmt.Errorf("%w: %w", ErrEnv, err)
	}

	if err := cfg.resolveSecrets(ctx); err != nil {
		return Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// decodeYAML overlays data onto cfg. Unknown keys are rejected.
func decodeYAML(data []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: decode yaml: %w", ErrRead, err)
	}
	return nil
}

func (c *Config) resolveSecrets(ctx context.Context) error {
	resolver, err := secret.DefaultRegistry.Build(c.Secrets.Strict, c.Secrets.Providers)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrSecret, err)
	}
	defer func() { _ = resolver.Close() }()

	err = resolver.ResolveFields(ctx, map[string]*string{
		"upstream.api_key":       &c.Upstream.APIKey,
		"upstream.geocoding_url": &c.Upstream.GeocodingURL,
		"upstream.forecast_url":  &c.Upstream.ForecastURL,
	})
	if err != nil {
		return fmt.Errorf("%w: %w", ErrSecret, err)
	}
	return nil
}

// Validate checks struct tags and the invariants of every consuming package.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}

	fc, err := c.FetchConfig()
	if err != nil {
		return err
	}
	if err := fc.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}

	if err := c.Observe.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}

	if floor := c.Fetch.FetchTimeout + c.Fetch.DebounceDelay; c.Server.WriteTimeout > 0 && c.Server.WriteTimeout <= floor {
		return fmt.Errorf("%w: server.write_timeout %v must exceed fetch timeout plus debounce delay (%v)",
			ErrInvalid, c.Server.WriteTimeout, floor)
	}
	return nil
}
