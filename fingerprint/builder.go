package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// DefaultPrecision is the number of decimals coordinates are rounded to
// (about 11 m at the equator).
const DefaultPrecision = 4

// KeyPrefix starts every fingerprint.
const KeyPrefix = "geofetch"

// Builder derives fingerprints from requests.
//
// Contract:
// - Determinism: same kind and logically equal params must produce the same key,
//   regardless of list or map ordering.
// - Purity: no I/O and no side effects.
// - Concurrency: implementations must be safe for concurrent use.
type Builder interface {
	// Fingerprint validates params for kind and returns its key.
	Fingerprint(kind Kind, params Params) (string, error)
}

// DefaultBuilder generates SHA-256 based fingerprints.
type DefaultBuilder struct {
	// Precision is the number of decimals coordinates are rounded to.
	// Default: 4
	Precision int
}

// NewBuilder creates a builder with the default precision.
func NewBuilder() *DefaultBuilder {
	return &DefaultBuilder{Precision: DefaultPrecision}
}

var defaultBuilder = NewBuilder()

// Of computes the fingerprint of a request using the default builder.
func Of(kind Kind, params Params) (string, error) {
	return defaultBuilder.Fingerprint(kind, params)
}

// Fingerprint generates a deterministic key.
// Format: geofetch:<kind>:<hash>
// where hash is the first 32 hex characters of SHA-256(canonical JSON(params)).
func (b *DefaultBuilder) Fingerprint(kind Kind, params Params) (string, error) {
	if err := params.Validate(kind); err != nil {
		return "", err
	}

	canonical, err := canonicalize(b.document(kind, params))
	if err != nil {
		return "", fmt.Errorf("fingerprint: failed to canonicalize params: %w", err)
	}

	hash := sha256.Sum256(canonical)
	return KeyPrefix + ":" + kind.String() + ":" + hex.EncodeToString(hash[:16]), nil
}

// document reduces params to the fields kind cares about, normalized.
func (b *DefaultBuilder) document(kind Kind, p Params) map[string]any {
	doc := map[string]any{"kind": kind.String()}

	switch kind {
	case KindLocationSearch:
		doc["q"] = p.NormalizedQuery()
	case KindCurrentConditions:
		doc["lat"], doc["lon"] = b.coordinates(*p.Location)
		doc["vars"] = normalizeList(p.Variables)
	case KindForecast:
		doc["lat"], doc["lon"] = b.coordinates(*p.Location)
		doc["days"] = p.Days
		doc["hourly"] = normalizeList(p.Hourly)
		doc["daily"] = normalizeList(p.Daily)
	}

	if len(p.Options) > 0 {
		doc["opts"] = p.Options
	}
	return doc
}

func (b *DefaultBuilder) coordinates(c Coordinates) (string, string) {
	precision := b.Precision
	if precision <= 0 {
		precision = DefaultPrecision
	}
	return formatCoordinate(c.Latitude, precision), formatCoordinate(c.Longitude, precision)
}

// formatCoordinate rounds v and renders it with a fixed number of decimals,
// folding negative zero into zero.
func formatCoordinate(v float64, precision int) string {
	scale := math.Pow10(precision)
	r := math.Round(v*scale) / scale
	if r == 0 {
		r = 0
	}
	return strconv.FormatFloat(r, 'f', precision, 64)
}

// normalizeList trims, drops empties, de-duplicates and sorts.
func normalizeList(in []string) []any {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	sort.Strings(out)

	list := make([]any, len(out))
	for i, s := range out {
		list[i] = s
	}
	return list
}

// canonicalize produces a deterministic JSON representation of v.
// Maps are sorted by key to ensure consistent ordering.
func canonicalize(v any) ([]byte, error) {
	if v == nil {
		return []byte("null"), nil
	}

	switch val := v.(type) {
	case map[string]any:
		return canonicalizeMap(val)
	case map[string]string:
		m := make(map[string]any, len(val))
		for k, s := range val {
			m[k] = s
		}
		return canonicalizeMap(m)
	case []any:
		return canonicalizeSlice(val)
	default:
		return json.Marshal(v)
	}
}

func canonicalizeMap(m map[string]any) ([]byte, error) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	result := []byte("{")
	for i, k := range keys {
		if i > 0 {
			result = append(result, ',')
		}

		keyBytes, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		result = append(result, keyBytes...)
		result = append(result, ':')

		valBytes, err := canonicalize(m[k])
		if err != nil {
			return nil, err
		}
		result = append(result, valBytes...)
	}
	return append(result, '}'), nil
}

func canonicalizeSlice(s []any) ([]byte, error) {
	result := []byte("[")
	for i, v := range s {
		if i > 0 {
			result = append(result, ',')
		}

		valBytes, err := canonicalize(v)
		if err != nil {
			return nil, err
		}
		result = append(result, valBytes...)
	}
	return append(result, ']'), nil
}

var _ Builder = (*DefaultBuilder)(nil)
