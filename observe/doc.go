// Package observe provides the logging, metrics and tracing primitives used
// by the fetch coordinator and the HTTP surface.
//
// Logging goes through the Logger port. NewLogger returns a zerolog-backed
// JSON logger; NewZapLogger adapts an existing *zap.Logger. Both redact
// fields whose keys name credentials.
//
// Metrics and traces use OpenTelemetry. NewObserver builds tracer and meter
// providers from Config, with exporters chosen by name in the exporters
// subpackage. Middleware wraps each upstream dispatch in a span named
// geofetch.dispatch.<kind>, records dispatch metrics and logs the outcome.
package observe
