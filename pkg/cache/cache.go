// Package cache stores optimization results keyed by content hashes.
//
// A [Cache] is a byte store with optional expiry. Three backends are
// provided: [NullCache] for runs that must not be cached, [FileCache] for
// the CLI and [RedisCache] for the API server. Keys come from a [Keyer]:
//
//	keyer := cache.NewDefaultKeyer()
//	key := keyer.ResultKey(cache.Hash(netJSON), cache.Hash(libTOML), cfg)
//	data, ok, err := c.Get(ctx, key)
package cache

import (
	"context"
	"time"
)

// Cache is a byte store with per-entry expiry. A miss is reported as
// ok == false with a nil error.
type Cache interface {
	Get(ctx context.Context, key string) (data []byte, ok bool, err error)
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// Default expiries.
const (
	// TTLResult applies to optimized networks and their statistics.
	TTLResult = 7 * 24 * time.Hour

	// TTLArtifact applies to rendered diagrams.
	TTLArtifact = 24 * time.Hour
)
