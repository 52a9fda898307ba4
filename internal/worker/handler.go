package worker

import (
	"encoding/json"
	"errors"
	"mime"
	"net/http"
	"time"

	"github.com/ReimagineTruth/salenus-ai-sub002/internal/common"
	"github.com/ReimagineTruth/salenus-ai-sub002/internal/netx"
	"github.com/ReimagineTruth/salenus-ai-sub002/internal/worker/cache"
	"github.com/gorilla/mux"
)

// ControlPrefix is the path prefix of the worker's own endpoints.
const ControlPrefix = "/__worker"

// Message types accepted on the message endpoint.
const (
	MessageSkipWaiting   = "SKIP_WAITING"
	MessageCacheURLs     = "CACHE_URLS"
	MessageGetCachedData = "GET_CACHED_DATA"
)

// Message is a page-to-worker message.
type Message struct {
	Type string   `json:"type"`
	URLs []string `json:"urls,omitempty"`
	URL  string   `json:"url,omitempty"`
}

// CachedData is the reply payload of GET_CACHED_DATA. JSON bodies are
// embedded as-is, anything else is returned as a string.
type CachedData struct {
	URL      string            `json:"url"`
	Status   int               `json:"status"`
	Headers  map[string]string `json:"headers"`
	Body     any               `json:"body"`
	StoredAt time.Time         `json:"storedAt"`
}

type statusResponse struct {
	State   State  `json:"state"`
	Version string `json:"version"`
	Queued  int    `json:"queued"`
	Online  bool   `json:"online"`
}

// Handler serves the control endpoints and hands everything else to the
// router.
func (w *Worker) Handler() http.Handler {
	r := mux.NewRouter().SkipClean(true)

	ctl := r.PathPrefix(ControlPrefix).Subrouter()
	ctl.HandleFunc("/message", w.handleMessage).Methods(http.MethodPost)
	ctl.HandleFunc("/sync", w.handleSync).Methods(http.MethodPost)
	ctl.HandleFunc("/status", w.handleStatus).Methods(http.MethodGet)
	ctl.HandleFunc("/data/{key}", w.handleGetData).Methods(http.MethodGet)
	ctl.HandleFunc("/data/{key}", w.handlePutData).Methods(http.MethodPut)
	ctl.HandleFunc("/data/{key}", w.handleDeleteData).Methods(http.MethodDelete)

	r.NotFoundHandler = w.router
	return r
}

func (w *Worker) handleMessage(rw http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var msg Message
	if err := json.NewDecoder(http.MaxBytesReader(rw, r.Body, netx.MaxBodySize)).Decode(&msg); err != nil {
		writeJSON(rw, http.StatusBadRequest, map[string]string{"error": "invalid message"})
		return
	}

	switch msg.Type {
	case MessageSkipWaiting:
		w.SkipWaiting()
		writeJSON(rw, http.StatusOK, map[string]any{"state": w.State()})

	case MessageCacheURLs:
		n := w.cache.CacheURLs(ctx, msg.URLs)
		writeJSON(rw, http.StatusOK, map[string]any{"requested": len(msg.URLs), "cached": n})

	case MessageGetCachedData:
		data, err := w.cachedData(r, msg.URL)
		if err != nil {
			if errors.Is(err, common.ErrorValidation) {
				writeJSON(rw, http.StatusBadRequest, map[string]string{"error": "invalid url"})
				return
			}
			w.logger.Error(ctx, "cache lookup failed", "url", msg.URL, "error", err)
			writeJSON(rw, http.StatusInternalServerError, map[string]string{"error": "cache lookup failed"})
			return
		}
		writeJSON(rw, http.StatusOK, map[string]any{"response": data})

	default:
		writeJSON(rw, http.StatusBadRequest, map[string]string{"error": "unknown message type"})
	}
}

// cachedData returns nil when raw is not cached in either partition.
func (w *Worker) cachedData(r *http.Request, raw string) (*CachedData, error) {
	key, err := cache.Key(raw)
	if err != nil {
		return nil, err
	}
	resp, err := w.cache.Lookup(r.Context(), key)
	if errors.Is(err, common.ErrorNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	data := &CachedData{
		URL:      key,
		Status:   resp.Status,
		Headers:  make(map[string]string, len(resp.Header)),
		Body:     string(resp.Body),
		StoredAt: resp.StoredAt,
	}
	for k := range resp.Header {
		data.Headers[k] = resp.Header.Get(k)
	}
	if mt, _, err := mime.ParseMediaType(resp.Header.Get("Content-Type")); err == nil && mt == "application/json" && json.Valid(resp.Body) {
		data.Body = json.RawMessage(resp.Body)
	}
	return data, nil
}

func (w *Worker) handleSync(rw http.ResponseWriter, r *http.Request) {
	report, err := w.Sync(r.Context())
	if err != nil {
		w.logger.Error(r.Context(), "sync failed", "error", err)
		writeJSON(rw, http.StatusInternalServerError, map[string]string{"error": "sync failed"})
		return
	}
	writeJSON(rw, http.StatusOK, report)
}

func (w *Worker) handleStatus(rw http.ResponseWriter, r *http.Request) {
	n, err := w.queue.Len(r.Context())
	if err != nil {
		w.logger.Error(r.Context(), "queue length", "error", err)
		writeJSON(rw, http.StatusInternalServerError, map[string]string{"error": "store unavailable"})
		return
	}
	writeJSON(rw, http.StatusOK, statusResponse{
		State:   w.State(),
		Version: w.cache.Version(),
		Queued:  n,
		Online:  w.Online(),
	})
}

func (w *Worker) handleGetData(rw http.ResponseWriter, r *http.Request) {
	key := mux.Vars(r)["key"]
	value, ok, err := w.LoadSnapshot(r.Context(), key)
	if err != nil {
		w.logger.Error(r.Context(), "load snapshot", "key", key, "error", err)
		writeJSON(rw, http.StatusInternalServerError, map[string]string{"error": "store unavailable"})
		return
	}
	if !ok {
		writeJSON(rw, http.StatusNotFound, map[string]string{"error": "not found"})
		return
	}
	rw.Header().Set("Content-Type", "application/octet-stream")
	_, _ = rw.Write(value)
}

func (w *Worker) handlePutData(rw http.ResponseWriter, r *http.Request) {
	key := mux.Vars(r)["key"]
	value, err := netx.BufferRequestBody(r)
	if errors.Is(err, netx.ErrBodyTooLarge) {
		writeJSON(rw, http.StatusRequestEntityTooLarge, map[string]string{"error": "body too large"})
		return
	}
	if err != nil {
		writeJSON(rw, http.StatusBadRequest, map[string]string{"error": "unreadable body"})
		return
	}
	if err := w.SaveSnapshot(r.Context(), key, value); err != nil {
		w.logger.Error(r.Context(), "save snapshot", "key", key, "error", err)
		writeJSON(rw, http.StatusInternalServerError, map[string]string{"error": "store unavailable"})
		return
	}
	rw.WriteHeader(http.StatusNoContent)
}

func (w *Worker) handleDeleteData(rw http.ResponseWriter, r *http.Request) {
	key := mux.Vars(r)["key"]
	if err := w.store.DeleteSnapshot(r.Context(), key); err != nil {
		w.logger.Error(r.Context(), "delete snapshot", "key", key, "error", err)
		writeJSON(rw, http.StatusInternalServerError, map[string]string{"error": "store unavailable"})
		return
	}
	rw.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
