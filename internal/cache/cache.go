// Package cache provides the short-TTL result cache used to avoid redundant
// upstream calls between views. Implementations are injectable so the memory
// cache can be swapped for Redis in multi-instance deployments.
package cache

import (
	"context"
	"time"
)

// DefaultTTL is how long computed ticket lists stay valid.
const DefaultTTL = 5 * time.Minute

// Cache is a key/value store with per-entry expiry. A missing, expired, or
// unreadable entry is a miss, never an error.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Invalidate(ctx context.Context, key string) error
	Clear(ctx context.Context) error
}
