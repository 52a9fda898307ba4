package config

import "time"

// Config holds runtime settings for the Salenus CLI.
//
// Fields:
//   - ServerURL: base URL of the auth API (or of a local worker proxy).
//   - OnlineCheckInterval: how often the client probes server reachability.
//   - RequestTimeout: upper bound for one API call.
//   - DatabaseDSN: SQLite file holding the session token.
//   - LogLevel: slog level name.
type Config struct {
	ServerURL           string
	OnlineCheckInterval time.Duration
	RequestTimeout      time.Duration
	DatabaseDSN         string
	LogLevel            string
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerURL = "http://localhost:3001"
	c.OnlineCheckInterval = 3 * time.Second
	c.RequestTimeout = 10 * time.Second
	c.DatabaseDSN = "session.db"
	c.LogLevel = "warn"
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if present), the environment and command-line flags. Later sources
// take precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseEnv(cfg)
	parseFlags(cfg)
	return cfg
}
