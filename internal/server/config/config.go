// Package config handles configuration for the auth server: defaults, an
// optional JSON file, environment variables and command-line flags, applied
// in that order.
package config

import "time"

const (
	RevocationNone   = ""
	RevocationMemory = "memory"
	RevocationRedis  = "redis"
)

// Config holds runtime settings for the auth server.
//
// Fields:
//   - EndpointAddr: bind address of the HTTP API.
//   - DatabaseDSN: PostgreSQL DSN (pgx). Empty keeps users in memory.
//   - SecretKey: HMAC secret for signing JWTs (HS256). Do not use the default in prod.
//   - TokenValidityDuration: lifetime of issued tokens.
//   - RevocationStore: "", "memory" or "redis"; empty makes logout stateless.
//   - RedisAddr: address of Redis when RevocationStore is "redis".
//   - LogLevel / LogFile: see logging.Options.
type Config struct {
	EndpointAddr          string
	DatabaseDSN           string
	SecretKey             string
	TokenValidityDuration time.Duration
	RevocationStore       string
	RedisAddr             string
	LogLevel              string
	LogFile               string
}

// LoadDefaults populates Config with development defaults.
// NOTE: SecretKey must be overridden in production.
func (c *Config) LoadDefaults() {
	c.EndpointAddr = ":3001"
	c.DatabaseDSN = ""
	c.SecretKey = "secretKey"
	c.TokenValidityDuration = 7 * 24 * time.Hour
	c.RevocationStore = RevocationNone
	c.RedisAddr = "localhost:6379"
	c.LogLevel = "info"
	c.LogFile = ""
}

// LoadConfig builds a Config by applying defaults, then overlaying values
// from an optional JSON file, the environment and finally command-line flags.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseEnv(cfg)
	parseFlags(cfg)
	return cfg
}
