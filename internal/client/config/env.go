package config

import (
	"errors"

	"github.com/joeshaw/envdecode"
)

type envConfig struct {
	APIBaseURL string `env:"API_BASE_URL"`
	SessionDB  string `env:"SALENUS_SESSION_DB"`
	LogLevel   string `env:"LOG_LEVEL"`
}

// parseEnv overlays API_BASE_URL, SALENUS_SESSION_DB and LOG_LEVEL when set.
func parseEnv(cfg *Config) {
	var e envConfig
	if err := envdecode.Decode(&e); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		panic(err)
	}

	if e.APIBaseURL != "" {
		cfg.ServerURL = e.APIBaseURL
	}
	if e.SessionDB != "" {
		cfg.DatabaseDSN = e.SessionDB
	}
	if e.LogLevel != "" {
		cfg.LogLevel = e.LogLevel
	}
}
