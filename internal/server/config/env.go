package config

import (
	"errors"

	"github.com/joeshaw/envdecode"
)

// envConfig lists the environment variables the server honours.
type envConfig struct {
	Port        string `env:"PORT"`
	JWTSecret   string `env:"JWT_SECRET"`
	DatabaseURL string `env:"DATABASE_URL"`
	RedisAddr   string `env:"REDIS_ADDR"`
	LogLevel    string `env:"LOG_LEVEL"`
}

// parseEnv overlays values from the environment. Unset variables leave the
// current value untouched.
func parseEnv(config *Config) {
	var e envConfig
	if err := envdecode.Decode(&e); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		panic(err)
	}

	if e.Port != "" {
		config.EndpointAddr = ":" + e.Port
	}
	setString(&config.SecretKey, e.JWTSecret)
	setString(&config.DatabaseDSN, e.DatabaseURL)
	if e.RedisAddr != "" {
		config.RedisAddr = e.RedisAddr
		if config.RevocationStore == RevocationNone {
			config.RevocationStore = RevocationRedis
		}
	}
	setString(&config.LogLevel, e.LogLevel)
}
