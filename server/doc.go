// Package server exposes the fetch coordinator over HTTP.
//
// Routes:
//
//	GET /v1/locations?q=kamp
//	GET /v1/current?lat=0.35&lon=32.58&vars=temperature_2m,rain&unit=metric
//	GET /v1/forecast?lat=0.35&lon=32.58&days=7&hourly=...&daily=...&unit=imperial
//	GET /v1/refresh?lat=0.35&lon=32.58&days=3
//	GET /v1/stats
//
// A request joins a cancellation slot through the X-Geofetch-Slot header.
// Slots are scoped to the caller's address, so two clients using the same
// slot name never supersede each other. Requests without the header are
// anonymous and are never superseded or debounced.
//
// Upstream payloads are passed through unchanged. X-Geofetch-Cache reports
// hit, miss or shared. A superseded request answers 204 with
// X-Geofetch-Superseded: true.
package server
