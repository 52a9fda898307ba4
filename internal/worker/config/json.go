package config

import (
	"encoding/json"
	"os"

	"github.com/ReimagineTruth/salenus-ai-sub002/internal/flagx"
	"github.com/ReimagineTruth/salenus-ai-sub002/internal/timex"
)

// JsonConfig is the on-disk shape of Config.
type JsonConfig struct {
	OriginURL           string         `json:"origin_url"`
	ListenAddr          string         `json:"listen_addr"`
	CachePrefix         string         `json:"cache_prefix"`
	CacheVersion        string         `json:"cache_version"`
	DatabaseDSN         string         `json:"database_dsn"`
	Manifest            []string       `json:"manifest"`
	ManifestFile        string         `json:"manifest_file"`
	OfflinePage         string         `json:"offline_page"`
	APIPrefix           string         `json:"api_prefix"`
	OnlineCheckInterval timex.Duration `json:"online_check_interval"`
	WaitForSkip         *bool          `json:"wait_for_skip"`
	LogLevel            string         `json:"log_level"`
	LogFile             string         `json:"log_file"`
}

// parseJson overlays values from the file named by -c or -config. Absent
// fields keep their current value; a broken file panics.
func parseJson(cfg *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	var jc JsonConfig

	data, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	setString(&cfg.OriginURL, jc.OriginURL)
	setString(&cfg.ListenAddr, jc.ListenAddr)
	setString(&cfg.CachePrefix, jc.CachePrefix)
	setString(&cfg.CacheVersion, jc.CacheVersion)
	setString(&cfg.DatabaseDSN, jc.DatabaseDSN)
	if len(jc.Manifest) > 0 {
		cfg.Manifest = jc.Manifest
	}
	setString(&cfg.ManifestFile, jc.ManifestFile)
	setString(&cfg.OfflinePage, jc.OfflinePage)
	setString(&cfg.APIPrefix, jc.APIPrefix)
	if jc.OnlineCheckInterval.Duration > 0 {
		cfg.OnlineCheckInterval = jc.OnlineCheckInterval.Duration
	}
	if jc.WaitForSkip != nil {
		cfg.WaitForSkip = *jc.WaitForSkip
	}
	setString(&cfg.LogLevel, jc.LogLevel)
	setString(&cfg.LogFile, jc.LogFile)
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
