// Package fingerprint derives deterministic request keys for the fetch
// coordinator.
//
// A fingerprint identifies a request by its resource kind and its normalized
// parameters. Coordinates are rounded to a stable precision, free-text
// queries are trimmed and lower-cased, list parameters are sorted, and
// option objects are serialized in sorted key order, so that logically
// identical requests always map to the same key.
package fingerprint
