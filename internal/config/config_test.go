package config_test

import (
	"testing"

	"github.com/jrsteele09/go-wellness-portal/internal/config"
	"github.com/stretchr/testify/assert"
)

func TestPortDefaultsAndPrefix(t *testing.T) {
	cfg := config.New()
	assert.Equal(t, ":8080", cfg.GetPort())

	t.Setenv("PORT", "9999")
	assert.Equal(t, ":9999", cfg.GetPort())

	t.Setenv("PORT", ":7777")
	assert.Equal(t, ":7777", cfg.GetPort())
}

func TestEnvironmentDetection(t *testing.T) {
	cfg := config.New()
	assert.Equal(t, "DEV", cfg.GetEnv())
	assert.False(t, cfg.IsProduction())
	assert.False(t, cfg.GetSecureCookies())

	t.Setenv("ENV", "PROD")
	assert.True(t, cfg.IsProduction())
	assert.True(t, cfg.GetSecureCookies())
}

func TestAPIBaseURLOverride(t *testing.T) {
	cfg := config.New()
	t.Setenv("API_BASE_URL", "http://localhost:3001")
	assert.Equal(t, "http://localhost:3001", cfg.GetAPIBaseURL())
}

func TestTokenFileOverride(t *testing.T) {
	cfg := config.New()
	t.Setenv("TOKEN_FILE", "/tmp/portal-token.json")
	assert.Equal(t, "/tmp/portal-token.json", cfg.GetTokenFile())
}

func TestGoogleConfig(t *testing.T) {
	cfg := config.New()
	assert.False(t, cfg.GoogleSignInEnabled())

	t.Setenv("GOOGLE_CLIENT_ID", "client-id")
	t.Setenv("BASE_URL", "https://portal.example.com")
	assert.True(t, cfg.GoogleSignInEnabled())
	assert.Equal(t, "https://portal.example.com/auth/google/callback", cfg.GetGoogleRedirectURL())

	t.Setenv("GOOGLE_REDIRECT_URL", "https://other.example.com/cb")
	assert.Equal(t, "https://other.example.com/cb", cfg.GetGoogleRedirectURL())
}
