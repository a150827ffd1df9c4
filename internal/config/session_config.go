package config

import "time"

type SessionConfig interface {
	GetTokenTTL() time.Duration
	GetSecureCookies() bool
}

type Session struct{}

var _ SessionConfig = Session{}

// GetTokenTTL is the lifetime of a stored credential. Matches the lifetime
// the platform issues tokens with.
func (Session) GetTokenTTL() time.Duration {
	return 7 * 24 * time.Hour
}

// GetSecureCookies reports whether session cookies carry the Secure flag.
// Disabled outside production so local HTTP development works.
func (Session) GetSecureCookies() bool {
	return EnvVars{}.IsProduction()
}
