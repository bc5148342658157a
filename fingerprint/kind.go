package fingerprint

import "fmt"

// Kind identifies a class of upstream request. Each kind has its own cache
// namespace, TTL and throttle state.
type Kind int

const (
	// KindLocationSearch is a free-text place search.
	KindLocationSearch Kind = iota
	// KindCurrentConditions is a current-weather lookup for a location.
	KindCurrentConditions
	// KindForecast is a multi-day forecast lookup for a location.
	KindForecast
)

// String returns the string representation of the kind.
func (k Kind) String() string {
	switch k {
	case KindLocationSearch:
		return "location_search"
	case KindCurrentConditions:
		return "current_conditions"
	case KindForecast:
		return "forecast"
	default:
		return "unknown"
	}
}

// Valid reports whether k is one of the known kinds.
func (k Kind) Valid() bool {
	return k >= KindLocationSearch && k <= KindForecast
}

// Kinds returns every known kind in declaration order.
func Kinds() []Kind {
	return []Kind{KindLocationSearch, KindCurrentConditions, KindForecast}
}

// ParseKind parses the string form produced by Kind.String.
func ParseKind(s string) (Kind, error) {
	for _, k := range Kinds() {
		if k.String() == s {
			return k, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownKind, s)
}
