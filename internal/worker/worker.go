// Package worker runs the offline layer in front of the Salenus origin: it
// installs the app shell into the cache, activates the current cache version,
// routes requests through the cache strategies and replays queued actions
// when connectivity returns.
package worker

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ReimagineTruth/salenus-ai-sub002/internal/logging"
	"github.com/ReimagineTruth/salenus-ai-sub002/internal/worker/cache"
	"github.com/ReimagineTruth/salenus-ai-sub002/internal/worker/queue"
	"github.com/ReimagineTruth/salenus-ai-sub002/internal/worker/router"
	"github.com/ReimagineTruth/salenus-ai-sub002/internal/worker/store"
)

// State is a lifecycle stage of the worker.
type State string

const (
	StateParsed     State = "parsed"
	StateInstalling State = "installing"
	StateInstalled  State = "installed"
	StateActivating State = "activating"
	StateActivated  State = "activated"
	StateRedundant  State = "redundant"
)

// Options tunes the lifecycle.
type Options struct {
	// WaitForSkip keeps an installed worker waiting for SKIP_WAITING
	// instead of activating on its own.
	WaitForSkip bool
	// InstallRetry is the first pause after a failed install; it doubles
	// up to MaxInstallRetry.
	InstallRetry    time.Duration
	MaxInstallRetry time.Duration
	// OnlineCheckInterval is the period of the connectivity probe.
	OnlineCheckInterval time.Duration
	// ManifestFile, when set, is watched and reloaded on change.
	ManifestFile string
	// Client is used for the connectivity probe.
	Client *http.Client
}

type Worker struct {
	store  *store.Store
	cache  *cache.Manager
	queue  *queue.Queue
	router *router.Router
	client *http.Client
	opts   Options
	logger logging.Logger

	mu    sync.Mutex
	state State

	skip     chan struct{}
	skipOnce sync.Once

	online atomic.Bool
}

func New(st *store.Store, m *cache.Manager, q *queue.Queue, rt *router.Router, opts Options, l logging.Logger) *Worker {
	if opts.InstallRetry <= 0 {
		opts.InstallRetry = time.Second
	}
	if opts.MaxInstallRetry < opts.InstallRetry {
		opts.MaxInstallRetry = time.Minute
	}
	if opts.OnlineCheckInterval <= 0 {
		opts.OnlineCheckInterval = 30 * time.Second
	}
	client := opts.Client
	if client == nil {
		client = http.DefaultClient
	}

	w := &Worker{
		store:  st,
		cache:  m,
		queue:  q,
		router: rt,
		client: client,
		opts:   opts,
		logger: l.With("module", "worker"),
		state:  StateParsed,
		skip:   make(chan struct{}),
	}
	w.online.Store(true)
	return w
}

func (w *Worker) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

func (w *Worker) setState(ctx context.Context, s State) {
	w.mu.Lock()
	prev := w.state
	w.state = s
	w.mu.Unlock()

	if prev != s {
		w.logger.Info(ctx, "state changed", "from", string(prev), "to", string(s), "version", w.cache.Version())
	}
}

// Start installs the current version, retrying with backoff until it
// succeeds or ctx ends, and then activates it. With WaitForSkip the worker
// stays installed until SkipWaiting is called. Actions left queued by an
// earlier run are replayed right after activation.
func (w *Worker) Start(ctx context.Context) error {
	if err := w.install(ctx); err != nil {
		w.setState(ctx, StateRedundant)
		return err
	}

	if w.opts.WaitForSkip {
		w.logger.Info(ctx, "waiting for SKIP_WAITING")
		select {
		case <-w.skip:
		case <-ctx.Done():
			w.setState(ctx, StateRedundant)
			return ctx.Err()
		}
	}

	if err := w.Activate(ctx); err != nil {
		return err
	}
	w.syncBacklog(ctx)
	return nil
}

func (w *Worker) install(ctx context.Context) error {
	delay := w.opts.InstallRetry
	for {
		w.setState(ctx, StateInstalling)
		err := w.cache.Install(ctx)
		if err == nil {
			w.setState(ctx, StateInstalled)
			return nil
		}

		if ctx.Err() != nil {
			return ctx.Err()
		}
		w.logger.Warn(ctx, "install failed, retrying", "error", err, "retry_in", delay.String())
		t := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}

		delay *= 2
		if delay > w.opts.MaxInstallRetry {
			delay = w.opts.MaxInstallRetry
		}
	}
}

// SkipWaiting releases a worker held in the installed state. Calling it
// more than once, or before install finishes, is harmless.
func (w *Worker) SkipWaiting() {
	w.skipOnce.Do(func() { close(w.skip) })
}

// Activate removes partitions of other versions and starts routing
// requests through the cache. Activating an active worker only repeats the
// eviction.
func (w *Worker) Activate(ctx context.Context) error {
	prev := w.State()
	w.setState(ctx, StateActivating)

	deleted, err := w.cache.Activate(ctx)
	if err != nil {
		w.setState(ctx, prev)
		return err
	}

	w.router.Claim()
	w.setState(ctx, StateActivated)
	if len(deleted) > 0 {
		w.logger.Info(ctx, "evicted stale partitions", "partitions", deleted)
	}
	return nil
}

// Stop hands requests back to the network and retires the worker.
func (w *Worker) Stop(ctx context.Context) {
	w.router.Release()
	w.setState(ctx, StateRedundant)
}

// Sync drains the offline action queue.
func (w *Worker) Sync(ctx context.Context) (queue.DrainReport, error) {
	return w.queue.Drain(ctx)
}

// Online reports the result of the last connectivity probe.
func (w *Worker) Online() bool {
	return w.online.Load()
}

func (w *Worker) SaveSnapshot(ctx context.Context, key string, value []byte) error {
	return w.store.SaveSnapshot(ctx, key, value)
}

func (w *Worker) LoadSnapshot(ctx context.Context, key string) ([]byte, bool, error) {
	return w.store.LoadSnapshot(ctx, key)
}
