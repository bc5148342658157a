// Package config loads geofetchd configuration.
//
// Values are layered in this order, later layers winning:
//   - Defaults (see Default)
//   - A YAML file
//   - Environment variables prefixed with GEOFETCH_
//
// After layering, string values that may carry credentials are passed through
// the secret package, so the upstream API key can be written as
// secretref:env:OPEN_METEO_API_KEY or secretref:file:openmeteo. The result is
// validated with go-playground/validator struct tags and the Validate methods
// of the packages that consume it.
package config
