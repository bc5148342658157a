package main

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"

	"github.com/clycites/geofetch/cache"
	"github.com/clycites/geofetch/config"
	"github.com/clycites/geofetch/fetch"
	"github.com/clycites/geofetch/fingerprint"
	"github.com/clycites/geofetch/health"
	"github.com/clycites/geofetch/observe"
	"github.com/clycites/geofetch/observe/exporters"
	"github.com/clycites/geofetch/openmeteo"
	"github.com/clycites/geofetch/server"
)

// Throttle backlog levels reported by the readiness check.
const (
	throttleQueueWarning  = 50
	throttleQueueCritical = 500
)

// root holds the wired service.
type root struct {
	logger      zerolog.Logger
	observer    observe.Observer
	coordinator *fetch.Coordinator
	handler     http.Handler
	closers     []func() error
}

func newRoot(ctx context.Context, cfg config.Config) (*root, error) {
	level, err := zerolog.ParseLevel(cfg.Observe.Logging.Level)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zl := zerolog.New(os.Stdout).Level(level).With().Timestamp().Str("service", cfg.Observe.ServiceName).Logger()
	r := &root{logger: zl}

	logger := observe.NewZerologLogger(zl)

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	obs, err := observe.NewObserver(ctx, cfg.Observe,
		observe.WithLogger(logger),
		observe.WithExporterOptions(exporters.WithRegisterer(reg)),
	)
	if err != nil {
		return nil, fmt.Errorf("observer: %w", err)
	}
	r.observer = obs

	client := openmeteo.New(cfg.ClientConfig(), openmeteo.WithLogger(logger))

	fc, err := cfg.FetchConfig()
	if err != nil {
		return nil, err
	}

	opts := []fetch.Option{fetch.WithObserver(obs)}
	if cfg.Cache.Backend == "bigcache" {
		for _, kind := range fingerprint.Kinds() {
			store, err := cache.NewBigCache(ctx, fc.Kind(kind).Policy(), cfg.Cache.BigCache)
			if err != nil {
				r.cleanup()
				return nil, err
			}
			r.closers = append(r.closers, store.Close)
			opts = append(opts, fetch.WithStore(kind, store))
		}
	}

	coord, err := fetch.New(client, fc, opts...)
	if err != nil {
		r.cleanup()
		return nil, err
	}
	if err := coord.Start(context.Background()); err != nil {
		r.cleanup()
		return nil, err
	}
	r.coordinator = coord

	agg := health.NewAggregator()
	agg.Register("fetch", coord.HealthChecker())
	agg.Register("openmeteo", client.HealthChecker(), health.NonCritical())
	agg.Register("throttle_queue", health.NewThresholdChecker("throttle_queue", func() float64 {
		var queued int
		for _, ks := range coord.Stats().Kinds {
			queued += ks.ThrottleQueue
		}
		return float64(queued)
	}, health.ThresholdConfig{Warning: throttleQueueWarning, Critical: throttleQueueCritical}), health.NonCritical())

	r.handler = server.New(coord,
		server.WithLogger(zl),
		server.WithHealth(agg),
		server.WithPrometheus(reg),
	)
	return r, nil
}

func (r *root) cleanup() {
	for _, closeFn := range r.closers {
		if err := closeFn(); err != nil {
			r.logger.Warn().Err(err).Msg("cleanup failed")
		}
	}
	r.closers = nil
}
