package worker

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ReimagineTruth/salenus-ai-sub002/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadManifest(t *testing.T) {
	dir := t.TempDir()

	jsonPath := filepath.Join(dir, "manifest.json")
	require.NoError(t, os.WriteFile(jsonPath, []byte(` ["/", "/app.js"] `), 0o600))
	urls, err := LoadManifest(jsonPath)
	require.NoError(t, err)
	assert.Equal(t, []string{"/", "/app.js"}, urls)

	txtPath := filepath.Join(dir, "manifest.txt")
	require.NoError(t, os.WriteFile(txtPath, []byte("# shell\n/\n/app.js\n\n/app.css\n"), 0o600))
	urls, err = LoadManifest(txtPath)
	require.NoError(t, err)
	assert.Equal(t, []string{"/", "/app.js", "/app.css"}, urls)

	badPath := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(badPath, []byte(`["/",`), 0o600))
	_, err = LoadManifest(badPath)
	assert.Error(t, err)

	_, err = LoadManifest(filepath.Join(dir, "absent"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestReloadManifest(t *testing.T) {
	path := filepath.Join(t.TempDir(), "manifest.txt")
	f := newFixture(t, Options{ManifestFile: path})
	ctx := context.Background()

	require.NoError(t, os.WriteFile(path, []byte(""), 0o600))
	assert.ErrorIs(t, f.worker.reloadManifest(ctx), common.ErrorValidation)

	require.NoError(t, os.WriteFile(path, []byte("/\n/new.js\n"), 0o600))
	require.NoError(t, f.worker.reloadManifest(ctx))

	assert.Equal(t, []string{"/", "/new.js"}, f.cache.Manifest())
	urls, err := f.cache.Static().URLs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"/", "/new.js"}, urls)
}

func TestWatchManifest_ReinstallsOnChange(t *testing.T) {
	path := filepath.Join(t.TempDir(), "manifest.txt")
	require.NoError(t, os.WriteFile(path, []byte("/\n"), 0o600))
	f := newFixture(t, Options{ManifestFile: path})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- f.worker.WatchManifest(ctx) }()

	hasWatched := func() bool {
		_, err := f.cache.Static().Match(context.Background(), "/watched.js")
		return err == nil
	}

	// Rewrite until the watcher has registered and picked a change up.
	require.Eventually(t, func() bool {
		_ = os.WriteFile(path, []byte("/\n/watched.js\n"), 0o600)
		return hasWatched()
	}, 5*time.Second, 50*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not stop")
	}
}

func TestWatchManifest_NoFile(t *testing.T) {
	f := newFixture(t, Options{})
	assert.NoError(t, f.worker.WatchManifest(context.Background()))
}
