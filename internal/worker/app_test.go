package worker

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"github.com/ReimagineTruth/salenus-ai-sub002/internal/worker/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T, originURL string) *config.Config {
	t.Helper()
	c := &config.Config{}
	c.LoadDefaults()
	c.OriginURL = originURL
	c.DatabaseDSN = filepath.Join(t.TempDir(), "worker.db")
	c.Manifest = []string{"/", "/offline.html"}
	c.LogLevel = "error"
	return c
}

func TestNewApp_InvalidOrigin(t *testing.T) {
	for _, o := range []string{"", "localhost", "://bad"} {
		_, err := NewApp(context.Background(), testConfig(t, o))
		assert.Error(t, err, o)
	}
}

func TestNewApp_MissingManifestFile(t *testing.T) {
	c := testConfig(t, "http://localhost:3001")
	c.ManifestFile = filepath.Join(t.TempDir(), "absent.txt")

	_, err := NewApp(context.Background(), c)
	assert.Error(t, err)
}

func TestApp_ServeActivatesAndStops(t *testing.T) {
	o := newOrigin(t)
	app, err := NewApp(context.Background(), testConfig(t, o.URL))
	require.NoError(t, err)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	base := "http://" + ln.Addr().String()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.Serve(ctx, ln) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get(base + ControlPrefix + "/status")
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		var s statusResponse
		if json.NewDecoder(resp.Body).Decode(&s) != nil {
			return false
		}
		return s.State == StateActivated
	}, 5*time.Second, 20*time.Millisecond)

	resp, err := http.Get(base + "/offline.html")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("app did not stop")
	}
	assert.Equal(t, StateRedundant, app.Worker().State())
}
