package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/ReimagineTruth/salenus-ai-sub002/internal/flagx"
	"github.com/ReimagineTruth/salenus-ai-sub002/internal/timex"
)

// JsonConfig is the on-disk shape of Config. Durations accept both "168h"
// and integer nanoseconds.
type JsonConfig struct {
	EndpointAddr          string         `json:"endpoint_addr"`
	DatabaseDSN           string         `json:"database_dsn"`
	SecretKey             string         `json:"secret_key"`
	TokenValidityDuration timex.Duration `json:"token_validity_duration"`
	RevocationStore       string         `json:"revocation_store"`
	RedisAddr             string         `json:"redis_addr"`
	LogLevel              string         `json:"log_level"`
	LogFile               string         `json:"log_file"`
}

// parseJson overlays values from the file named by -c or -config. Fields
// missing from the file keep their current value. An unreadable or invalid
// file panics.
func parseJson(config *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	setString(&config.EndpointAddr, c.EndpointAddr)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.SecretKey, c.SecretKey)
	if c.TokenValidityDuration.Duration > 0 {
		config.TokenValidityDuration = time.Duration(c.TokenValidityDuration.Duration)
	}
	setString(&config.RevocationStore, c.RevocationStore)
	setString(&config.RedisAddr, c.RedisAddr)
	setString(&config.LogLevel, c.LogLevel)
	setString(&config.LogFile, c.LogFile)
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
