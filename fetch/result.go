package fetch

import (
	"time"

	"github.com/clycites/geofetch/fingerprint"
	"github.com/clycites/geofetch/observe"
)

// Result is the outcome of one coordinated request.
type Result struct {
	// Kind is the resource kind of the request.
	Kind fingerprint.Kind

	// Key is the request fingerprint. Empty when the request never reached
	// the cache, e.g. a search query that was too short.
	Key string

	// Payload is the upstream response. Callers own their copy.
	Payload []byte

	// Cached reports that Payload came from the TTL cache.
	Cached bool

	// Shared reports that the caller joined a dispatch started by another
	// caller.
	Shared bool

	// FetchedAt is when the caller received a freshly dispatched payload.
	// Zero for cached and empty results.
	FetchedAt time.Time

	// Superseded reports that a newer request in the same slot replaced this
	// one. Payload is nil and the result must be ignored.
	Superseded bool
}

// Empty reports whether the result carries no payload.
func (r Result) Empty() bool {
	return len(r.Payload) == 0
}

func (r Result) outcome() string {
	switch {
	case r.Superseded:
		return observe.OutcomeSuperseded
	case r.Cached:
		return observe.OutcomeHit
	case r.Shared:
		return observe.OutcomeShared
	default:
		return observe.OutcomeMiss
	}
}

// CurrentRequest asks for current conditions at a location.
type CurrentRequest struct {
	Location  *fingerprint.Coordinates
	Variables []string
	Options   map[string]any
}

func (r CurrentRequest) params() fingerprint.Params {
	return fingerprint.Params{
		Location:  r.Location,
		Variables: r.Variables,
		Options:   r.Options,
	}
}

// ForecastRequest asks for a multi-day forecast at a location.
type ForecastRequest struct {
	Location *fingerprint.Coordinates
	Days     int
	Hourly   []string
	Daily    []string
	Options  map[string]any
}

func (r ForecastRequest) params() fingerprint.Params {
	return fingerprint.Params{
		Location: r.Location,
		Days:     r.Days,
		Hourly:   r.Hourly,
		Daily:    r.Daily,
		Options:  r.Options,
	}
}

// RefreshRequest asks for current conditions and a forecast at one location.
type RefreshRequest struct {
	Location  *fingerprint.Coordinates
	Variables []string
	Days      int
	Hourly    []string
	Daily     []string
	Options   map[string]any
}

// RefreshResult pairs the two results of a Refresh.
type RefreshResult struct {
	Current  Result
	Forecast Result
}
