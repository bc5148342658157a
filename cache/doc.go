// Package cache provides the per-kind TTL cache used by the fetch
// coordinator.
//
// It provides a Store interface with an in-memory and a bigcache-backed
// implementation, a TTL Policy, and a Janitor that periodically sweeps
// expired entries. Entries are fresh while now - storedAt < TTL; an expired
// entry is never returned.
package cache
