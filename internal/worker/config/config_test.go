package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	c := &Config{}
	c.LoadDefaults()

	assert.Equal(t, "http://localhost:3001", c.OriginURL)
	assert.Equal(t, ":8080", c.ListenAddr)
	assert.Equal(t, "salenus", c.CachePrefix)
	assert.Equal(t, "v1", c.CacheVersion)
	assert.Equal(t, DefaultManifest, c.Manifest)
	assert.Equal(t, "/offline.html", c.OfflinePage)
	assert.Equal(t, "/api/", c.APIPrefix)
	assert.Equal(t, 30*time.Second, c.OnlineCheckInterval)
	assert.False(t, c.WaitForSkip)

	c.Manifest[0] = "/changed"
	assert.Equal(t, "/", DefaultManifest[0], "defaults are copied")
}

func TestLoadConfig_Precedence(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	path := writeTempJSON(t, t.TempDir(), "", map[string]any{
		"origin_url":    "http://json:1",
		"cache_version": "json",
		"listen_addr":   ":1",
	})
	t.Setenv("API_BASE_URL", "http://env:2")
	t.Setenv("WORKER_CACHE_VERSION", "")
	os.Args = []string{"worker", "-c", path, "-v", "flag"}

	c := LoadConfig()

	assert.Equal(t, "http://env:2", c.OriginURL, "env beats json")
	assert.Equal(t, "flag", c.CacheVersion, "flags beat json")
	assert.Equal(t, ":1", c.ListenAddr)
}

func TestSplitManifest(t *testing.T) {
	got := SplitManifest("/, /a.js,\n# comment\n\n/b.css\r\n")
	assert.Equal(t, []string{"/", "/a.js", "/b.css"}, got)
	assert.Empty(t, SplitManifest(" , "))
}

func TestParseJson_MissingFilePanics(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })
	os.Args = []string{"worker", "-config", filepath.Join(t.TempDir(), "absent.json")}

	require.Panics(t, func() { parseJson(&Config{}) })
}
