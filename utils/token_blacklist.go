package utils

import (
	"context"
	"time"

	"github.com/freemirror/yatube/cache"
)

const blacklistPrefix = "jwt:revoked:"

// TokenBlacklist remembers logged-out tokens until they would have expired anyway.
type TokenBlacklist struct {
	store cache.Store
}

func NewTokenBlacklist(store cache.Store) *TokenBlacklist {
	return &TokenBlacklist{store: store}
}

// Revoke stores token until expiresAt. Already expired tokens are ignored.
func (b *TokenBlacklist) Revoke(ctx context.Context, token string, expiresAt time.Time) error {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return nil
	}
	return b.store.Set(ctx, blacklistPrefix+token, []byte("1"), ttl)
}

// IsRevoked checks if a token was revoked before natural expiration.
// Store errors fail open so a cache outage does not log everyone out.
func (b *TokenBlacklist) IsRevoked(ctx context.Context, token string) bool {
	_, ok, err := b.store.Get(ctx, blacklistPrefix+token)
	if err != nil {
		Sugar.Warnf("token blacklist lookup failed: %v", err)
		return false
	}
	return ok
}
