package server

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"

	"github.com/clycites/geofetch/fetch"
	"github.com/clycites/geofetch/health"
)

// Header names.
const (
	HeaderSlot       = "X-Geofetch-Slot"
	HeaderCache      = "X-Geofetch-Cache"
	HeaderSuperseded = "X-Geofetch-Superseded"
	HeaderKey        = "X-Geofetch-Key"
)

// Fetcher is the part of fetch.Coordinator the server uses.
type Fetcher interface {
	SearchLocations(ctx context.Context, slot, query string) (fetch.Result, error)
	CurrentConditions(ctx context.Context, slot string, req fetch.CurrentRequest) (fetch.Result, error)
	Forecast(ctx context.Context, slot string, req fetch.ForecastRequest) (fetch.Result, error)
	Refresh(ctx context.Context, slot string, req fetch.RefreshRequest) (fetch.RefreshResult, error)
	Stats() fetch.Stats
}

var _ Fetcher = (*fetch.Coordinator)(nil)

// Server routes HTTP requests to a Fetcher.
type Server struct {
	fetcher  Fetcher
	logger   zerolog.Logger
	health   *health.Aggregator
	gatherer prometheus.Gatherer
	router   chi.Router
}

// New creates a server and builds its routes.
func New(f Fetcher, opts ...Option) *Server {
	s := &Server{fetcher: f, logger: nopLogger()}
	for _, opt := range opts {
		opt(s)
	}
	s.router = s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(hlog.NewHandler(s.logger))
	r.Use(hlog.AccessHandler(accessLog))
	r.Use(chimw.Recoverer)

	if s.health != nil {
		health.RegisterRoutes(r, s.health)
	}
	if s.gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/v1", func(r chi.Router) {
		r.Get("/locations", s.handleLocations)
		r.Get("/current", s.handleCurrent)
		r.Get("/forecast", s.handleForecast)
		r.Get("/refresh", s.handleRefresh)
		r.Get("/stats", s.handleStats)
	})
	return r
}

func accessLog(r *http.Request, status, size int, duration time.Duration) {
	ev := hlog.FromRequest(r).Info()
	if status >= 500 {
		ev = hlog.FromRequest(r).Warn()
	}
	ev.Str("method", r.Method).
		Str("path", r.URL.Path).
		Str("request_id", chimw.GetReqID(r.Context())).
		Int("status", status).
		Int("size", size).
		Dur("duration", duration).
		Msg("request")
}

// slotName scopes the client-supplied slot to the caller's address.
func slotName(r *http.Request) string {
	slot := r.Header.Get(HeaderSlot)
	if slot == "" {
		return ""
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return host + "|" + slot
}
