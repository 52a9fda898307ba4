package cache

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/ReimagineTruth/salenus-ai-sub002/internal/common"
	"github.com/ReimagineTruth/salenus-ai-sub002/internal/logging"
	"github.com/ReimagineTruth/salenus-ai-sub002/internal/netx"
	"golang.org/x/sync/errgroup"
)

const defaultConcurrency = 8

// Options configures a Manager.
type Options struct {
	// Prefix and Version make up partition names: <prefix>-static-<version>.
	Prefix  string
	Version string
	// Origin is the upstream every cache key is resolved against.
	Origin *url.URL
	// Manifest lists the app-shell URLs seeded into the static partition.
	Manifest []string
	Client   *http.Client
	// Concurrency bounds parallel fetches during Install.
	Concurrency int
}

// Manager owns the current version's static and dynamic partitions.
type Manager struct {
	storage     *Storage
	client      *http.Client
	origin      *url.URL
	prefix      string
	version     string
	concurrency int
	logger      logging.Logger

	mu       sync.RWMutex
	manifest []string
}

func NewManager(storage *Storage, opts Options, l logging.Logger) *Manager {
	client := opts.Client
	if client == nil {
		client = http.DefaultClient
	}
	n := opts.Concurrency
	if n <= 0 {
		n = defaultConcurrency
	}
	return &Manager{
		storage:     storage,
		client:      client,
		origin:      opts.Origin,
		prefix:      opts.Prefix,
		version:     opts.Version,
		concurrency: n,
		logger:      l.With("module", "cache"),
		manifest:    append([]string(nil), opts.Manifest...),
	}
}

// Key normalises raw to the form used as a cache key: the request URI
// (path and query) relative to the origin.
func Key(raw string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", fmt.Errorf("%w: bad url %q", common.ErrorValidation, raw)
	}
	return KeyOf(u), nil
}

// KeyOf is Key for an already parsed URL.
func KeyOf(u *url.URL) string {
	k := u.RequestURI()
	if !strings.HasPrefix(k, "/") {
		k = "/" + k
	}
	return k
}

func (m *Manager) Version() string     { return m.version }
func (m *Manager) StaticName() string  { return m.prefix + "-static-" + m.version }
func (m *Manager) DynamicName() string { return m.prefix + "-dynamic-" + m.version }
func (m *Manager) Static() *Partition  { return m.storage.Open(m.StaticName()) }
func (m *Manager) Dynamic() *Partition { return m.storage.Open(m.DynamicName()) }
func (m *Manager) Storage() *Storage   { return m.storage }

func (m *Manager) Manifest() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string(nil), m.manifest...)
}

// SetManifest replaces the app-shell list used by the next Install.
func (m *Manager) SetManifest(urls []string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.manifest = append([]string(nil), urls...)
}

// OriginURL resolves key against the origin.
func (m *Manager) OriginURL(key string) string {
	ref, err := url.Parse(key)
	if err != nil || m.origin == nil {
		return key
	}
	return m.origin.ResolveReference(ref).String()
}

// Fetch GETs key from the origin. Transport failures wrap
// common.ErrNetworkUnavailable.
func (m *Manager) Fetch(ctx context.Context, key string) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.OriginURL(key), nil)
	if err != nil {
		return nil, err
	}
	resp, err := netx.Do(m.client, req)
	if err != nil {
		return nil, err
	}
	return FromHTTP(resp)
}

// Install fetches the whole manifest and writes it to the static partition
// as one batch. Any failed fetch or non-2xx answer fails the step and leaves
// the partition untouched. Running it again with the same manifest rewrites
// identical content.
func (m *Manager) Install(ctx context.Context) error {
	manifest := m.Manifest()

	keys := make([]string, 0, len(manifest))
	for _, raw := range manifest {
		k, err := Key(raw)
		if err != nil {
			return err
		}
		keys = append(keys, k)
	}

	results := make([]*Response, len(keys))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.concurrency)
	for i, k := range keys {
		i, k := i, k
		g.Go(func() error {
			resp, err := m.Fetch(gctx, k)
			if err != nil {
				return fmt.Errorf("install %s: %w", k, err)
			}
			if !resp.OK() {
				return fmt.Errorf("install %s: unexpected status %d", k, resp.Status)
			}
			results[i] = resp
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		m.logger.Warn(ctx, "install failed", "partition", m.StaticName(), "error", err)
		return err
	}

	batch := make(map[string]*Response, len(keys))
	for i, k := range keys {
		batch[k] = results[i]
	}
	if err := m.Static().PutAll(ctx, batch); err != nil {
		return err
	}

	m.logger.Info(ctx, "installed", "partition", m.StaticName(), "assets", len(batch))
	return nil
}

// Activate deletes every partition that does not belong to the current
// version and returns the names it removed.
func (m *Manager) Activate(ctx context.Context) ([]string, error) {
	names, err := m.storage.Keys(ctx)
	if err != nil {
		return nil, err
	}

	keep := map[string]bool{m.StaticName(): true, m.DynamicName(): true}
	var deleted []string
	for _, n := range names {
		if keep[n] {
			continue
		}
		if _, err := m.storage.Delete(ctx, n); err != nil {
			return deleted, err
		}
		m.logger.Info(ctx, "deleted stale partition", "partition", n)
		deleted = append(deleted, n)
	}
	return deleted, nil
}

// Lookup searches the current static then dynamic partition.
func (m *Manager) Lookup(ctx context.Context, key string) (*Response, error) {
	for _, p := range []*Partition{m.Static(), m.Dynamic()} {
		resp, err := p.Match(ctx, key)
		if err == nil {
			return resp, nil
		}
		if !errors.Is(err, common.ErrorNotFound) {
			return nil, err
		}
	}
	return nil, common.ErrorNotFound
}

// CacheURLs fetches each URL and stores successful answers in the dynamic
// partition. Failures are logged and skipped; the number stored is returned.
func (m *Manager) CacheURLs(ctx context.Context, urls []string) int {
	stored := 0
	for _, raw := range urls {
		k, err := Key(raw)
		if err != nil {
			m.logger.Warn(ctx, "skip url", "url", raw, "error", err)
			continue
		}
		resp, err := m.Fetch(ctx, k)
		if err != nil {
			m.logger.Warn(ctx, "cache url failed", "url", k, "error", err)
			continue
		}
		if !resp.OK() {
			m.logger.Warn(ctx, "cache url failed", "url", k, "status", resp.Status)
			continue
		}
		if err := m.Dynamic().Put(ctx, k, resp); err != nil {
			m.logger.Warn(ctx, "cache url failed", "url", k, "error", err)
			continue
		}
		stored++
	}
	return stored
}
