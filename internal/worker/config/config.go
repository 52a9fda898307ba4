// Package config holds the offline worker's settings: defaults, an optional
// JSON file, environment variables and command-line flags, applied in that
// order.
package config

import "time"

// Config holds runtime settings for the offline worker.
//
// Fields:
//   - OriginURL: upstream serving the app shell and the API.
//   - ListenAddr: where the worker proxy accepts requests.
//   - CachePrefix / CacheVersion: partition names are <prefix>-static-<version>.
//   - DatabaseDSN: SQLite file of the persistent store.
//   - Manifest: app-shell URLs seeded at install.
//   - ManifestFile: optional file with the manifest; it is watched for changes.
//   - OfflinePage: cache key of the offline fallback page.
//   - APIPrefix: path prefix routed with the API strategy.
//   - OnlineCheckInterval: how often the origin is probed.
//   - WaitForSkip: stay installed until a SKIP_WAITING message arrives.
type Config struct {
	OriginURL           string
	ListenAddr          string
	CachePrefix         string
	CacheVersion        string
	DatabaseDSN         string
	Manifest            []string
	ManifestFile        string
	OfflinePage         string
	APIPrefix           string
	OnlineCheckInterval time.Duration
	WaitForSkip         bool
	LogLevel            string
	LogFile             string
}

// DefaultManifest is the app shell cached at install.
var DefaultManifest = []string{
	"/",
	"/index.html",
	"/static/js/bundle.js",
	"/static/css/main.css",
	"/manifest.json",
	"/offline.html",
}

// LoadDefaults populates c with development defaults.
func (c *Config) LoadDefaults() {
	c.OriginURL = "http://localhost:3001"
	c.ListenAddr = ":8080"
	c.CachePrefix = "salenus"
	c.CacheVersion = "v1"
	c.DatabaseDSN = "worker.db"
	c.Manifest = append([]string(nil), DefaultManifest...)
	c.ManifestFile = ""
	c.OfflinePage = "/offline.html"
	c.APIPrefix = "/api/"
	c.OnlineCheckInterval = 30 * time.Second
	c.WaitForSkip = false
	c.LogLevel = "info"
	c.LogFile = ""
}

// LoadConfig builds a Config from defaults, JSON, environment and flags.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseEnv(cfg)
	parseFlags(cfg)
	return cfg
}
