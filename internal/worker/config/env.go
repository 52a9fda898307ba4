package config

import (
	"errors"
	"strconv"

	"github.com/joeshaw/envdecode"
)

type envConfig struct {
	APIBaseURL   string `env:"API_BASE_URL"`
	ListenAddr   string `env:"WORKER_LISTEN_ADDR"`
	CacheVersion string `env:"WORKER_CACHE_VERSION"`
	DatabaseDSN  string `env:"WORKER_DB"`
	WaitForSkip  string `env:"WORKER_WAIT_FOR_SKIP"`
	LogLevel     string `env:"LOG_LEVEL"`
}

// parseEnv overlays values from the environment. Unset variables leave the
// current value untouched; a malformed one panics.
func parseEnv(cfg *Config) {
	var e envConfig
	if err := envdecode.Decode(&e); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		panic(err)
	}

	setString(&cfg.OriginURL, e.APIBaseURL)
	setString(&cfg.ListenAddr, e.ListenAddr)
	setString(&cfg.CacheVersion, e.CacheVersion)
	setString(&cfg.DatabaseDSN, e.DatabaseDSN)
	if e.WaitForSkip != "" {
		v, err := strconv.ParseBool(e.WaitForSkip)
		if err != nil {
			panic(err)
		}
		cfg.WaitForSkip = v
	}
	setString(&cfg.LogLevel, e.LogLevel)
}
