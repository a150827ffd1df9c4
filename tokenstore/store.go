// Package tokenstore owns the bearer credential. No other component caches a
// token beyond the lifetime of a single call: the session controller writes
// through a Store, the HTTP interceptor and route guards read through it, and
// every write is visible to the very next read.
package tokenstore

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultTTL is the fixed credential window. Tokens older than this are
// treated as absent even if the server would still accept them.
const DefaultTTL = 7 * 24 * time.Hour

// Store persists and retrieves the bearer credential.
//
// Store never fails observably to the caller, Get never errors (an absent or
// expired token reads back as the empty string), and Remove is idempotent.
// Implementations make no network calls.
type Store interface {
	Store(token string)
	Get() string
	Remove()
}

// expiryFor computes when a stored token stops being usable. The window is
// DefaultTTL (or the configured ttl), capped by the token's own exp claim when
// the opaque token happens to be a JWT. The claim is read unverified; it only
// ever shortens the window, so no trust is placed in it.
func expiryFor(token string, now time.Time, ttl time.Duration) time.Time {
	expiry := now.Add(ttl)

	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err == nil {
		if claims.ExpiresAt != nil && claims.ExpiresAt.Time.Before(expiry) {
			expiry = claims.ExpiresAt.Time
		}
	}
	return expiry
}
