package fingerprint

import (
	"errors"
	"math"
	"strings"
	"unicode/utf8"
)

// MinQueryLength is the minimum number of runes a trimmed search query must
// have before it is worth sending upstream. Two-letter prefixes such as "ka"
// are still being typed and are answered with an empty result.
const MinQueryLength = 3

// MaxForecastDays is the longest forecast the upstream API serves.
const MaxForecastDays = 16

// Sentinel errors for parameter validation.
var (
	ErrUnknownKind        = errors.New("fingerprint: unknown resource kind")
	ErrQueryTooShort      = errors.New("fingerprint: query is too short")
	ErrMissingLocation    = errors.New("fingerprint: location is required")
	ErrInvalidCoordinates = errors.New("fingerprint: coordinates are out of range")
	ErrInvalidDays        = errors.New("fingerprint: forecast days out of range")
)

// Coordinates is a WGS84 position in decimal degrees.
type Coordinates struct {
	Latitude  float64
	Longitude float64
}

// Validate checks the coordinates are finite and within range.
func (c Coordinates) Validate() error {
	if !finite(c.Latitude) || !finite(c.Longitude) {
		return ErrInvalidCoordinates
	}
	if c.Latitude < -90 || c.Latitude > 90 || c.Longitude < -180 || c.Longitude > 180 {
		return ErrInvalidCoordinates
	}
	return nil
}

// Params is the parameter bag of a single request. Only the fields relevant
// to a kind take part in its fingerprint.
type Params struct {
	// Query is the free-text search (location search only).
	Query string

	// Location is required for current conditions and forecasts.
	Location *Coordinates

	// Variables lists current-condition variables, e.g. "temperature_2m".
	Variables []string

	// Hourly and Daily list forecast variables.
	Hourly []string
	Daily  []string

	// Days is the forecast length. Zero means the upstream default.
	Days int

	// Options carries unit and formatting options such as
	// {"temperature_unit": "celsius"}.
	Options map[string]any
}

// NormalizedQuery returns the trimmed, lower-cased query.
func (p Params) NormalizedQuery() string {
	return strings.ToLower(strings.TrimSpace(p.Query))
}

// Validate checks that p carries what kind needs.
func (p Params) Validate(kind Kind) error {
	switch kind {
	case KindLocationSearch:
		if utf8.RuneCountInString(strings.TrimSpace(p.Query)) < MinQueryLength {
			return ErrQueryTooShort
		}
		return nil

	case KindCurrentConditions, KindForecast:
		if p.Location == nil {
			return ErrMissingLocation
		}
		if err := p.Location.Validate(); err != nil {
			return err
		}
		if kind == KindForecast && (p.Days < 0 || p.Days > MaxForecastDays) {
			return ErrInvalidDays
		}
		return nil

	default:
		return ErrUnknownKind
	}
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
