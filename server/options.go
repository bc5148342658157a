package server

import (
	"io"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/clycites/geofetch/health"
)

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the access and error logger.
// Default: discards everything
func WithLogger(l zerolog.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// WithHealth mounts the health endpoints of agg.
func WithHealth(agg *health.Aggregator) Option {
	return func(s *Server) { s.health = agg }
}

// WithPrometheus serves g on /metrics.
func WithPrometheus(g prometheus.Gatherer) Option {
	return func(s *Server) { s.gatherer = g }
}

func nopLogger() zerolog.Logger {
	return zerolog.New(io.Discard)
}
