package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/hlog"

	"github.com/clycites/geofetch/fetch"
	"github.com/clycites/geofetch/fingerprint"
)

// statusClientClosed is logged when the caller disconnects first.
const statusClientClosed = 499

var errBadRequest = errors.New("bad request")

// unitOptions maps the unit query parameter to upstream options.
var unitOptions = map[string]map[string]any{
	"":       nil,
	"metric": nil,
	"imperial": {
		"temperature_unit":   "fahrenheit",
		"wind_speed_unit":    "mph",
		"precipitation_unit": "inch",
	},
}

var emptySearch = []byte(`{"results":[]}`)

func (s *Server) handleLocations(w http.ResponseWriter, r *http.Request) {
	res, err := s.fetcher.SearchLocations(r.Context(), slotName(r), r.URL.Query().Get("q"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if !res.Superseded && res.Empty() {
		res.Payload = emptySearch
	}
	writeResult(w, res)
}

func (s *Server) handleCurrent(w http.ResponseWriter, r *http.Request) {
	loc, opts, err := locationAndOptions(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	res, err := s.fetcher.CurrentConditions(r.Context(), slotName(r), fetch.CurrentRequest{
		Location:  loc,
		Variables: csv(r.URL.Query().Get("vars")),
		Options:   opts,
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeResult(w, res)
}

func (s *Server) handleForecast(w http.ResponseWriter, r *http.Request) {
	loc, opts, err := locationAndOptions(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	days, err := intParam(r, "days")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	q := r.URL.Query()
	res, err := s.fetcher.Forecast(r.Context(), slotName(r), fetch.ForecastRequest{
		Location: loc,
		Days:     days,
		Hourly:   csv(q.Get("hourly")),
		Daily:    csv(q.Get("daily")),
		Options:  opts,
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeResult(w, res)
}

type refreshResponse struct {
	Current  json.RawMessage `json:"current"`
	Forecast json.RawMessage `json:"forecast"`
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	loc, opts, err := locationAndOptions(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	days, err := intParam(r, "days")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	q := r.URL.Query()
	out, err := s.fetcher.Refresh(r.Context(), slotName(r), fetch.RefreshRequest{
		Location:  loc,
		Variables: csv(q.Get("vars")),
		Days:      days,
		Hourly:    csv(q.Get("hourly")),
		Daily:     csv(q.Get("daily")),
		Options:   opts,
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if out.Current.Superseded || out.Forecast.Superseded {
		writeSuperseded(w)
		return
	}
	writeJSON(w, http.StatusOK, refreshResponse{
		Current:  json.RawMessage(out.Current.Payload),
		Forecast: json.RawMessage(out.Forecast.Payload),
	})
}

type kindStatsResponse struct {
	Cached        int        `json:"cached"`
	ThrottleQueue int        `json:"throttle_queue"`
	LastDispatch  *time.Time `json:"last_dispatch,omitempty"`
}

type statsResponse struct {
	InFlight    int                          `json:"in_flight"`
	ActiveSlots int                          `json:"active_slots"`
	Debouncing  int                          `json:"debouncing"`
	Kinds       map[string]kindStatsResponse `json:"kinds"`
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	st := s.fetcher.Stats()
	resp := statsResponse{
		InFlight:    st.InFlight,
		ActiveSlots: st.ActiveSlots,
		Debouncing:  st.Debouncing,
		Kinds:       make(map[string]kindStatsResponse, len(st.Kinds)),
	}
	for kind, ks := range st.Kinds {
		kr := kindStatsResponse{Cached: ks.Cached, ThrottleQueue: ks.ThrottleQueue}
		if !ks.LastDispatch.IsZero() {
			last := ks.LastDispatch.UTC()
			kr.LastDispatch = &last
		}
		resp.Kinds[kind.String()] = kr
	}
	writeJSON(w, http.StatusOK, resp)
}

func locationAndOptions(r *http.Request) (*fingerprint.Coordinates, map[string]any, error) {
	q := r.URL.Query()
	lat, err := floatParam(q.Get("lat"), "lat")
	if err != nil {
		return nil, nil, err
	}
	lon, err := floatParam(q.Get("lon"), "lon")
	if err != nil {
		return nil, nil, err
	}

	unit := strings.ToLower(q.Get("unit"))
	opts, ok := unitOptions[unit]
	if !ok {
		return nil, nil, fmt.Errorf("%w: unknown unit %q", errBadRequest, unit)
	}
	return &fingerprint.Coordinates{Latitude: lat, Longitude: lon}, opts, nil
}

func floatParam(raw, name string) (float64, error) {
	if raw == "" {
		return 0, fmt.Errorf("%w: %s is required", errBadRequest, name)
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be a number", errBadRequest, name)
	}
	return v, nil
}

func intParam(r *http.Request, name string) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be an integer", errBadRequest, name)
	}
	return v, nil
}

func csv(raw string) []string {
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func writeResult(w http.ResponseWriter, res fetch.Result) {
	if res.Superseded {
		writeSuperseded(w)
		return
	}

	cache := "miss"
	switch {
	case res.Cached:
		cache = "hit"
	case res.Shared:
		cache = "shared"
	}
	w.Header().Set(HeaderCache, cache)
	if res.Key != "" {
		w.Header().Set(HeaderKey, res.Key)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(res.Payload)
}

func writeSuperseded(w http.ResponseWriter) {
	w.Header().Set(HeaderSuperseded, "true")
	w.WriteHeader(http.StatusNoContent)
}

// fail maps coordinator errors to status codes.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, errBadRequest), errors.Is(err, fetch.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, fetch.ErrTimeout):
		status = http.StatusGatewayTimeout
	case errors.Is(err, fetch.ErrDispatch):
		status = http.StatusBadGateway
	case errors.Is(err, fetch.ErrStopped):
		status = http.StatusServiceUnavailable
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		status = statusClientClosed
	}

	log := hlog.FromRequest(r)
	if status >= 500 {
		log.Warn().Err(err).Int("status", status).Msg("fetch failed")
	} else {
		log.Debug().Err(err).Int("status", status).Msg("fetch rejected")
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
