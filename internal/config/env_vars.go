package config

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	portEnvVar       = "PORT"
	appNameVar       = "APP_NAME"
	baseURLVar       = "BASE_URL"
	apiBaseURLVar    = "API_BASE_URL"
	tokenFileVar     = "TOKEN_FILE"
	defaultAPIDomain = "https://api.wellness.example.com"
)

type EnvVars struct{}

var _ EnvConfig = EnvVars{}

func (EnvVars) GetPort() string {
	port := GetEnv(portEnvVar, "8080")
	if port[0] != ':' {
		port = fmt.Sprintf(":%s", port)
	}
	return port
}

func (EnvVars) GetAppName() string {
	return GetEnv(appNameVar, "Wellness Portal")
}

// GetBaseURL returns the public base URL of the portal gateway, used to build
// the Google sign-in redirect URI.
func (EnvVars) GetBaseURL() string {
	return GetEnv(baseURLVar, "http://localhost:8080")
}

// GetAPIBaseURL returns the base URL of the remote wellness platform API.
func (EnvVars) GetAPIBaseURL() string {
	return GetEnv(apiBaseURLVar, defaultAPIDomain)
}

// GetTokenFile returns the path the session credential is persisted to, so a
// signed-in session survives a portal restart.
func (EnvVars) GetTokenFile() string {
	if file := os.Getenv(tokenFileVar); file != "" {
		return file
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".wellness", "token.json")
	}
	return filepath.Join(home, ".wellness", "token.json")
}

func (EnvVars) GetEnv() string {
	env := os.Getenv("ENV")
	if env == "" {
		return "DEV"
	}
	return env
}

func (e EnvVars) IsProduction() bool {
	return e.GetEnv() == "PROD"
}

func GetEnv(envVar string, defaultValue string) string {
	value := os.Getenv(envVar)
	if value == "" {
		return defaultValue
	}
	return value
}
