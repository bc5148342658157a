package cache

import "time"

// Policy configures a TTL namespace.
type Policy struct {
	// TTL is how long an entry stays fresh after it is stored.
	// If zero, nothing is cached.
	TTL time.Duration

	// SweepInterval is how often the janitor removes expired entries.
	// Default: TTL
	SweepInterval time.Duration
}

// DefaultPolicy returns the default caching policy.
// TTL: 5 minutes, SweepInterval: 5 minutes
func DefaultPolicy() Policy {
	return Policy{
		TTL:           5 * time.Minute,
		SweepInterval: 5 * time.Minute,
	}
}

// NoCachePolicy returns a policy that disables caching entirely.
func NoCachePolicy() Policy {
	return Policy{}
}

// ShouldCache returns true if caching is enabled by this policy.
func (p Policy) ShouldCache() bool {
	return p.TTL > 0
}

// EffectiveSweepInterval returns the sweep period, falling back to the TTL.
func (p Policy) EffectiveSweepInterval() time.Duration {
	if p.SweepInterval > 0 {
		return p.SweepInterval
	}
	return p.TTL
}
