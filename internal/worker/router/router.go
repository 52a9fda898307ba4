package router

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"sync/atomic"

	"github.com/ReimagineTruth/salenus-ai-sub002/internal/common"
	"github.com/ReimagineTruth/salenus-ai-sub002/internal/logging"
	"github.com/ReimagineTruth/salenus-ai-sub002/internal/netx"
	"github.com/ReimagineTruth/salenus-ai-sub002/internal/worker/cache"
	"github.com/ReimagineTruth/salenus-ai-sub002/internal/worker/queue"
)

const builtinOfflinePage = `<!DOCTYPE html>
<html lang="en">
<head><meta charset="utf-8"><title>Offline</title></head>
<body>
<h1>You are offline</h1>
<p>Check your connection. Changes you make are saved and will sync when you are back online.</p>
</body>
</html>
`

// Options configures a Router.
type Options struct {
	// APIPrefix selects the API strategy, e.g. "/api/".
	APIPrefix string
	// OfflinePage is the cache key of the offline fallback page.
	OfflinePage string
	Origin      *url.URL
	Client      *http.Client
}

type Router struct {
	cache       *cache.Manager
	queue       *queue.Queue
	client      *http.Client
	origin      *url.URL
	apiPrefix   string
	offlinePage string
	logger      logging.Logger

	// active is false until the worker has activated; until then requests
	// go straight to the network.
	active atomic.Bool
}

func New(m *cache.Manager, q *queue.Queue, opts Options, l logging.Logger) *Router {
	client := opts.Client
	if client == nil {
		client = http.DefaultClient
	}
	return &Router{
		cache:       m,
		queue:       q,
		client:      client,
		origin:      opts.Origin,
		apiPrefix:   opts.APIPrefix,
		offlinePage: opts.OfflinePage,
		logger:      l.With("module", "router"),
	}
}

// Claim starts routing through the cache strategies.
func (rt *Router) Claim() { rt.active.Store(true) }

// Release returns to network passthrough.
func (rt *Router) Release() { rt.active.Store(false) }

func (rt *Router) Active() bool { return rt.active.Load() }

var hopHeaders = []string{"Connection", "Keep-Alive", "Proxy-Connection", "Te", "Trailer", "Transfer-Encoding", "Upgrade"}

// forward sends r to the origin and buffers the answer.
func (rt *Router) forward(r *http.Request, body []byte) (*cache.Response, error) {
	target := rt.origin.ResolveReference(&url.URL{Path: r.URL.Path, RawPath: r.URL.RawPath, RawQuery: r.URL.RawQuery})

	req, err := http.NewRequestWithContext(r.Context(), r.Method, target.String(), bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header = r.Header.Clone()
	for _, h := range hopHeaders {
		req.Header.Del(h)
	}

	resp, err := netx.Do(rt.client, req)
	if err != nil {
		return nil, err
	}
	return cache.FromHTTP(resp)
}

func (rt *Router) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, err := netx.BufferRequestBody(r)
	if errors.Is(err, netx.ErrBodyTooLarge) {
		writeJSON(w, http.StatusRequestEntityTooLarge, map[string]any{"error": "request body too large"})
		return
	}
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "unreadable request body"})
		return
	}

	if !rt.Active() {
		rt.passthrough(w, r, body)
		return
	}

	strategy := Classify(r, rt.apiPrefix)
	rt.logger.Debug(r.Context(), "route", "method", r.Method, "path", r.URL.Path, "strategy", strategy.String())

	switch strategy {
	case StrategyAPI:
		rt.serveAPI(w, r, body)
	case StrategyStatic:
		rt.serveStatic(w, r, body)
	case StrategyNavigation:
		rt.serveNavigation(w, r, body)
	default:
		rt.serveDefault(w, r, body)
	}
}

func (rt *Router) passthrough(w http.ResponseWriter, r *http.Request, body []byte) {
	resp, err := rt.forward(r, body)
	if err != nil {
		if upstreamTooLarge(w, err) {
			return
		}
		if IsNavigation(r) {
			rt.writeOfflinePage(w, r)
			return
		}
		writeOfflineText(w)
		return
	}
	resp.Write(w)
}

// upstreamTooLarge answers 502 when the origin's body exceeded the buffer
// limit. Such an answer is neither cached nor treated as offline.
func upstreamTooLarge(w http.ResponseWriter, err error) bool {
	if !errors.Is(err, netx.ErrBodyTooLarge) {
		return false
	}
	writeJSON(w, http.StatusBadGateway, map[string]any{"error": "upstream response too large"})
	return true
}

func (rt *Router) store(ctx context.Context, p *cache.Partition, key string, resp *cache.Response) {
	if err := p.Put(ctx, key, resp); err != nil {
		rt.logger.Warn(ctx, "cache put failed", "partition", p.Name(), "url", key, "error", err)
	}
}

// lookup is cache.Manager.Lookup with store errors treated as a miss.
func (rt *Router) lookup(ctx context.Context, key string) *cache.Response {
	resp, err := rt.cache.Lookup(ctx, key)
	if err != nil {
		if !errors.Is(err, common.ErrorNotFound) {
			rt.logger.Warn(ctx, "cache lookup failed", "url", key, "error", err)
		}
		return nil
	}
	return resp
}

func (rt *Router) serveAPI(w http.ResponseWriter, r *http.Request, body []byte) {
	ctx := r.Context()
	key := cache.KeyOf(r.URL)

	resp, err := rt.forward(r, body)
	if err == nil {
		if r.Method == http.MethodGet && resp.OK() {
			rt.store(ctx, rt.cache.Dynamic(), key, resp)
		}
		resp.Write(w)
		return
	}

	if upstreamTooLarge(w, err) {
		return
	}
	if ctx.Err() != nil {
		return
	}
	rt.logger.Info(ctx, "api request failed", "method", r.Method, "path", r.URL.Path, "error", err)

	if netx.IsMutating(r.Method) && rt.queue != nil && errors.Is(err, common.ErrNetworkUnavailable) {
		_, qerr := rt.queue.Enqueue(ctx, queue.Action{
			URL:    key,
			Method: r.Method,
			Header: r.Header,
			Body:   body,
		})
		if qerr == nil {
			writeJSON(w, http.StatusServiceUnavailable, offlineBody(true))
			return
		}
		rt.logger.Error(ctx, "enqueue failed", "path", r.URL.Path, "error", qerr)
	}

	if r.Method == http.MethodGet {
		if cached := rt.lookup(ctx, key); cached != nil {
			cached.Write(w)
			return
		}
	}

	writeJSON(w, http.StatusServiceUnavailable, offlineBody(false))
}

func (rt *Router) serveStatic(w http.ResponseWriter, r *http.Request, body []byte) {
	ctx := r.Context()
	key := cache.KeyOf(r.URL)

	if r.Method == http.MethodGet {
		if cached := rt.lookup(ctx, key); cached != nil {
			cached.Write(w)
			return
		}
	}

	resp, err := rt.forward(r, body)
	if err != nil {
		if !upstreamTooLarge(w, err) {
			writeOfflineText(w)
		}
		return
	}
	if r.Method == http.MethodGet && resp.OK() {
		rt.store(ctx, rt.cache.Static(), key, resp)
	}
	resp.Write(w)
}

func (rt *Router) serveNavigation(w http.ResponseWriter, r *http.Request, body []byte) {
	ctx := r.Context()
	key := cache.KeyOf(r.URL)

	resp, err := rt.forward(r, body)
	if err == nil {
		if r.Method == http.MethodGet && resp.OK() {
			rt.store(ctx, rt.cache.Dynamic(), key, resp)
		}
		resp.Write(w)
		return
	}
	if upstreamTooLarge(w, err) {
		return
	}

	if cached := rt.lookup(ctx, key); cached != nil {
		cached.Write(w)
		return
	}
	rt.writeOfflinePage(w, r)
}

func (rt *Router) serveDefault(w http.ResponseWriter, r *http.Request, body []byte) {
	ctx := r.Context()

	resp, err := rt.forward(r, body)
	if err == nil {
		if r.Method == http.MethodGet && resp.Status == http.StatusOK {
			rt.store(ctx, rt.cache.Dynamic(), cache.KeyOf(r.URL), resp)
		}
		resp.Write(w)
		return
	}
	if upstreamTooLarge(w, err) {
		return
	}

	if IsNavigation(r) {
		rt.writeOfflinePage(w, r)
		return
	}
	writeOfflineText(w)
}

// writeOfflinePage serves the cached offline page, or a built-in one when
// it was never cached.
func (rt *Router) writeOfflinePage(w http.ResponseWriter, r *http.Request) {
	if rt.offlinePage != "" && rt.cache != nil {
		if page := rt.lookup(r.Context(), rt.offlinePage); page != nil {
			page.Write(w)
			return
		}
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Content-Length", strconv.Itoa(len(builtinOfflinePage)))
	w.WriteHeader(http.StatusServiceUnavailable)
	_, _ = w.Write([]byte(builtinOfflinePage))
}

func offlineBody(queued bool) map[string]any {
	b := map[string]any{
		"error":   "offline",
		"offline": true,
		"message": "You are offline. Please check your connection.",
	}
	if queued {
		b["queued"] = true
	}
	return b
}

func writeOfflineText(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusServiceUnavailable)
	_, _ = w.Write([]byte("Offline"))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
