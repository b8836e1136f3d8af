// Package cache provides the keyed, expiring byte store behind the page cache and token revocation.
package cache

import (
	"context"
	"time"
)

// Store is a keyed cache with per-entry expiry.
type Store interface {
	// Get returns the value for key and whether it was present and unexpired.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set stores value under key for ttl. A non-positive ttl means DefaultTTL.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	// Clear removes every key starting with prefix; an empty prefix clears everything the store owns.
	Clear(ctx context.Context, prefix string) error
}

// DefaultTTL applies when Set is called without a ttl.
const DefaultTTL = time.Hour
