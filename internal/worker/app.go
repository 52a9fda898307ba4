package worker

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ReimagineTruth/salenus-ai-sub002/internal/logging"
	"github.com/ReimagineTruth/salenus-ai-sub002/internal/worker/cache"
	"github.com/ReimagineTruth/salenus-ai-sub002/internal/worker/config"
	"github.com/ReimagineTruth/salenus-ai-sub002/internal/worker/queue"
	"github.com/ReimagineTruth/salenus-ai-sub002/internal/worker/router"
	"github.com/ReimagineTruth/salenus-ai-sub002/internal/worker/store"
	"golang.org/x/sync/errgroup"
)

type App struct {
	config *config.Config
	logger logging.Logger
	store  *store.Store
	worker *Worker
}

// NewApp opens the store and assembles the cache, queue, router and worker
// from c.
func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger := logging.New(logging.Options{Level: c.LogLevel, File: c.LogFile, MaxSizeMB: 20, MaxBackups: 3, MaxAgeDays: 14})

	origin, err := url.Parse(c.OriginURL)
	if err != nil || origin.Scheme == "" || origin.Host == "" {
		return nil, fmt.Errorf("invalid origin url %q", c.OriginURL)
	}

	manifest := c.Manifest
	if c.ManifestFile != "" {
		if manifest, err = LoadManifest(c.ManifestFile); err != nil {
			return nil, fmt.Errorf("manifest error: %w", err)
		}
	}

	st, err := store.Open(ctx, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("store init error: %w", err)
	}

	client := &http.Client{Timeout: 30 * time.Second}

	cm := cache.NewManager(cache.NewStorage(st), cache.Options{
		Prefix:   c.CachePrefix,
		Version:  c.CacheVersion,
		Origin:   origin,
		Manifest: manifest,
		Client:   client,
	}, logger)
	q := queue.New(st, client, origin, logger)
	rt := router.New(cm, q, router.Options{
		APIPrefix:   c.APIPrefix,
		OfflinePage: c.OfflinePage,
		Origin:      origin,
		Client:      client,
	}, logger)

	w := New(st, cm, q, rt, Options{
		WaitForSkip:         c.WaitForSkip,
		OnlineCheckInterval: c.OnlineCheckInterval,
		ManifestFile:        c.ManifestFile,
		Client:              client,
	}, logger)

	return &App{config: c, logger: logger, store: st, worker: w}, nil
}

func (app *App) Worker() *Worker { return app.worker }

func (app *App) Close() {
	if app.store != nil {
		_ = app.store.Close()
	}
}

// Run serves the proxy on the configured address until a termination
// signal arrives.
func (app *App) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", app.config.ListenAddr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", app.config.ListenAddr, err)
	}
	return app.Serve(ctx, ln)
}

// Serve runs the lifecycle, the watchers and the proxy on ln.
func (app *App) Serve(ctx context.Context, ln net.Listener) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()
	defer app.Close()

	app.logger.Info(ctx, "Starting worker...", "origin", app.config.OriginURL, "addr", ln.Addr().String(), "version", app.config.CacheVersion)

	srv := &http.Server{Handler: app.worker.Handler(), ReadHeaderTimeout: 10 * time.Second}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := app.worker.Start(gctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		app.worker.StartOnlineStatusWatcher(gctx)
		return nil
	})
	g.Go(func() error {
		return app.worker.WatchManifest(gctx)
	})
	g.Go(func() error {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		app.worker.Stop(context.Background())
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		app.logger.Error(ctx, "worker stopped", "error", err)
		return err
	}
	return nil
}
