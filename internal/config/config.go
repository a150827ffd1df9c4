package config

type Config interface {
	EnvConfig
	GoogleConfig
	SessionConfig
}

type EnvConfig interface {
	GetPort() string
	GetAppName() string
	GetBaseURL() string
	GetAPIBaseURL() string
	GetTokenFile() string
	GetEnv() string
	IsProduction() bool
}

type mainConfig struct {
	EnvVars
	Google
	Session
}

func New() Config {
	return mainConfig{}
}
