package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ReimagineTruth/salenus-ai-sub002/internal/common"
	"github.com/ReimagineTruth/salenus-ai-sub002/internal/netx"
	"github.com/ReimagineTruth/salenus-ai-sub002/internal/worker/config"
	"github.com/fsnotify/fsnotify"
)

// Ping probes the origin health endpoint.
func (w *Worker) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, w.cache.OriginURL(common.HealthPath), nil)
	if err != nil {
		return err
	}
	resp, err := netx.Do(w.client, req)
	if err != nil {
		return err
	}
	if _, err := netx.ReadAndClose(resp); err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check: unexpected status %d", resp.StatusCode)
	}
	return nil
}

// checkOnline runs one probe. While the origin answers, any queued actions
// are replayed, including ones left by an earlier run or queued during an
// outage shorter than the probe interval.
func (w *Worker) checkOnline(ctx context.Context) {
	pctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	err := w.Ping(pctx)
	cancel()

	if err != nil {
		if w.online.CompareAndSwap(true, false) {
			w.logger.Warn(ctx, "origin unreachable, switched to offline mode", "error", err)
		}
		return
	}

	if w.online.CompareAndSwap(false, true) {
		w.logger.Info(ctx, "origin reachable again")
	}
	w.syncBacklog(ctx)
}

// syncBacklog drains the queue when it is not empty.
func (w *Worker) syncBacklog(ctx context.Context) {
	n, err := w.queue.Len(ctx)
	if err != nil {
		w.logger.Error(ctx, "queue length", "error", err)
		return
	}
	if n == 0 {
		return
	}
	w.logger.Info(ctx, "syncing queued actions", "queued", n)
	if _, err := w.Sync(ctx); err != nil {
		w.logger.Error(ctx, "sync failed", "error", err)
	}
}

// StartOnlineStatusWatcher probes the origin every OnlineCheckInterval
// until ctx ends.
func (w *Worker) StartOnlineStatusWatcher(ctx context.Context) {
	ticker := time.NewTicker(w.opts.OnlineCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.checkOnline(ctx)
		case <-ctx.Done():
			return
		}
	}
}

// LoadManifest reads an app-shell list from path. The file is either a JSON
// array of URLs or one URL per line.
func LoadManifest(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, "[") {
		var urls []string
		if err := json.Unmarshal([]byte(trimmed), &urls); err != nil {
			return nil, fmt.Errorf("manifest %s: %w", path, err)
		}
		return urls, nil
	}
	return config.SplitManifest(trimmed), nil
}

// reloadManifest swaps in the manifest from disk and installs it again.
func (w *Worker) reloadManifest(ctx context.Context) error {
	urls, err := LoadManifest(w.opts.ManifestFile)
	if err != nil {
		return err
	}
	if len(urls) == 0 {
		return fmt.Errorf("manifest %s is empty: %w", w.opts.ManifestFile, common.ErrorValidation)
	}
	w.cache.SetManifest(urls)
	w.logger.Info(ctx, "manifest reloaded", "assets", len(urls))
	return w.cache.Install(ctx)
}

// WatchManifest reinstalls whenever ManifestFile changes. The parent
// directory is watched so editors that replace the file are noticed.
func (w *Worker) WatchManifest(ctx context.Context) error {
	if w.opts.ManifestFile == "" {
		return nil
	}
	path, err := filepath.Abs(w.opts.ManifestFile)
	if err != nil {
		return err
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer func() { _ = fw.Close() }()

	if err := fw.Add(filepath.Dir(path)); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != path {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
				continue
			}
			if err := w.reloadManifest(ctx); err != nil {
				w.logger.Warn(ctx, "manifest reload failed", "file", path, "error", err)
			}
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn(ctx, "manifest watcher error", "error", err)
		}
	}
}
