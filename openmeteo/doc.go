// Package openmeteo implements fetch.Dispatcher against the Open-Meteo
// geocoding and forecast APIs.
//
// Location searches go to the geocoding endpoint; current conditions and
// forecasts go to the forecast endpoint with the matching "current" or
// "hourly"/"daily" parameters. Response bodies are returned unchanged so the
// fetch coordinator can cache and share them as opaque payloads.
//
// Every call runs through a resilience.Executor with a circuit breaker and,
// when Config.MaxAttempts is above one, a retry of retryable failures (429,
// 5xx and network errors). The fetch coordinator itself never retries.
package openmeteo
