package openmeteo

import (
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/clycites/geofetch/fingerprint"
)

// DefaultCurrentVariables are requested when a current-conditions request
// names no variables.
var DefaultCurrentVariables = []string{
	"temperature_2m",
	"relative_humidity_2m",
	"apparent_temperature",
	"weather_code",
	"wind_speed_10m",
	"wind_direction_10m",
}

// DefaultDailyVariables are requested when a forecast names neither hourly
// nor daily variables.
var DefaultDailyVariables = []string{
	"weather_code",
	"temperature_2m_max",
	"temperature_2m_min",
	"precipitation_sum",
}

func (c *Client) requestURL(kind fingerprint.Kind, p fingerprint.Params) (string, error) {
	switch kind {
	case fingerprint.KindLocationSearch:
		return c.searchURL(p), nil
	case fingerprint.KindCurrentConditions, fingerprint.KindForecast:
		if p.Location == nil {
			return "", fingerprint.ErrMissingLocation
		}
		return c.forecastURL(kind, p), nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedKind, kind)
	}
}

func (c *Client) searchURL(p fingerprint.Params) string {
	q := url.Values{}
	q.Set("name", strings.TrimSpace(p.Query))
	q.Set("count", strconv.Itoa(c.config.SearchCount))
	q.Set("language", c.config.Language)
	q.Set("format", "json")
	c.addOptions(q, p.Options)
	return c.config.GeocodingURL + "?" + q.Encode()
}

func (c *Client) forecastURL(kind fingerprint.Kind, p fingerprint.Params) string {
	q := url.Values{}
	q.Set("latitude", strconv.FormatFloat(p.Location.Latitude, 'f', -1, 64))
	q.Set("longitude", strconv.FormatFloat(p.Location.Longitude, 'f', -1, 64))
	q.Set("timezone", "auto")

	if kind == fingerprint.KindCurrentConditions {
		q.Set("current", list(p.Variables, DefaultCurrentVariables))
	} else {
		if len(p.Hourly) > 0 {
			q.Set("hourly", list(p.Hourly, nil))
		}
		if len(p.Daily) > 0 || len(p.Hourly) == 0 {
			q.Set("daily", list(p.Daily, DefaultDailyVariables))
		}
		if p.Days > 0 {
			q.Set("forecast_days", strconv.Itoa(p.Days))
		}
	}
	c.addOptions(q, p.Options)
	return c.config.ForecastURL + "?" + q.Encode()
}

// addOptions copies request options into q. Options cannot override the
// parameters set above, and the API key is always the configured one.
func (c *Client) addOptions(q url.Values, opts map[string]any) {
	keys := make([]string, 0, len(opts))
	for k := range opts {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		if q.Has(k) || k == "apikey" {
			continue
		}
		q.Set(k, optionValue(opts[k]))
	}
	if c.config.APIKey != "" {
		q.Set("apikey", c.config.APIKey)
	}
}

func optionValue(v any) string {
	switch t := v.(type) {
	case []string:
		return strings.Join(t, ",")
	case []any:
		parts := make([]string, len(t))
		for i, e := range t {
			parts[i] = fmt.Sprint(e)
		}
		return strings.Join(parts, ",")
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return fmt.Sprint(t)
	}
}

func list(values, fallback []string) string {
	if len(values) == 0 {
		values = fallback
	}
	return strings.Join(values, ",")
}
