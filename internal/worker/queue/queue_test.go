package queue

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/ReimagineTruth/salenus-ai-sub002/internal/logging"
	"github.com/ReimagineTruth/salenus-ai-sub002/internal/worker/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorded struct {
	Method string
	Path   string
	Body   string
	Header http.Header
}

type recorder struct {
	mu     sync.Mutex
	calls  []recorded
	status func(r *http.Request) int
}

func (rec *recorder) handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		rec.mu.Lock()
		rec.calls = append(rec.calls, recorded{Method: r.Method, Path: r.URL.Path, Body: string(b), Header: r.Header.Clone()})
		rec.mu.Unlock()
		code := http.StatusOK
		if rec.status != nil {
			code = rec.status(r)
		}
		w.WriteHeader(code)
	})
}

func (rec *recorder) snapshot() []recorded {
	rec.mu.Lock()
	defer rec.mu.Unlock()
	return append([]recorded(nil), rec.calls...)
}

func openStore(t *testing.T, dsn string) *store.Store {
	t.Helper()
	st, err := store.Open(context.Background(), dsn)
	require.NoError(t, err)
	return st
}

func newQueue(t *testing.T, st *store.Store, srv *httptest.Server) *Queue {
	t.Helper()
	u, err := url.Parse(srv.URL)
	require.NoError(t, err)
	return New(st, srv.Client(), u, logging.Nop())
}

func TestEnqueueAndList_FIFO(t *testing.T) {
	st := openStore(t, ":memory:")
	defer st.Close()
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()
	q := newQueue(t, st, srv)

	ts := time.UnixMilli(1_700_000_000_000)
	q.now = func() time.Time { return ts }

	ctx := context.Background()
	for _, p := range []string{"/api/a", "/api/b", "/api/c"} {
		_, err := q.Enqueue(ctx, Action{URL: p, Method: http.MethodPost, Header: http.Header{"Content-Type": {"application/json"}}})
		require.NoError(t, err)
	}

	list, err := q.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "/api/a", list[0].URL)
	assert.Equal(t, "/api/b", list[1].URL)
	assert.Equal(t, "/api/c", list[2].URL)
	assert.Equal(t, ts.UnixMilli(), list[0].Timestamp)
	assert.Less(t, list[0].ID, list[1].ID)
	assert.Equal(t, "application/json", list[0].Header.Get("Content-Type"))

	n, err := q.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestEnqueue_StripsHopByHopHeaders(t *testing.T) {
	st := openStore(t, ":memory:")
	defer st.Close()
	q := New(st, nil, nil, logging.Nop())
	ctx := context.Background()

	_, err := q.Enqueue(ctx, Action{URL: "/api/x", Method: http.MethodPut, Header: http.Header{
		"Connection":     {"close"},
		"Content-Length": {"12"},
		"Authorization":  {"Bearer t"},
	}})
	require.NoError(t, err)

	list, err := q.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, list[0].Header.Get("Connection"))
	assert.Empty(t, list[0].Header.Get("Content-Length"))
	assert.Equal(t, "Bearer t", list[0].Header.Get("Authorization"))
}

func TestDrain_DurableAcrossReopen(t *testing.T) {
	rec := &recorder{}
	srv := httptest.NewServer(rec.handler())
	defer srv.Close()

	path := filepath.Join(t.TempDir(), "worker.db")
	ctx := context.Background()

	st := openStore(t, path)
	q := newQueue(t, st, srv)
	for _, p := range []string{"/api/1", "/api/2", "/api/3", "/api/4"} {
		_, err := q.Enqueue(ctx, Action{URL: p, Method: http.MethodPost, Body: []byte(p)})
		require.NoError(t, err)
	}
	require.NoError(t, st.Close())

	st = openStore(t, path)
	defer st.Close()
	q = newQueue(t, st, srv)

	report, err := q.Drain(ctx)
	require.NoError(t, err)
	assert.Equal(t, DrainReport{Attempted: 4, Replayed: 4}, report)

	calls := rec.snapshot()
	require.Len(t, calls, 4)
	for i, p := range []string{"/api/1", "/api/2", "/api/3", "/api/4"} {
		assert.Equal(t, p, calls[i].Path)
		assert.Equal(t, p, calls[i].Body)
	}
}

func TestDrain_PartialFailureIsolation(t *testing.T) {
	rec := &recorder{status: func(r *http.Request) int {
		if r.URL.Path == "/api/2" {
			return http.StatusInternalServerError
		}
		return http.StatusCreated
	}}
	srv := httptest.NewServer(rec.handler())
	defer srv.Close()
	st := openStore(t, ":memory:")
	defer st.Close()
	q := newQueue(t, st, srv)
	ctx := context.Background()

	for _, p := range []string{"/api/1", "/api/2", "/api/3"} {
		_, err := q.Enqueue(ctx, Action{URL: p, Method: http.MethodPost})
		require.NoError(t, err)
	}

	report, err := q.Drain(ctx)
	require.NoError(t, err)
	assert.Equal(t, DrainReport{Attempted: 3, Replayed: 2, Failed: 1}, report)
	assert.Len(t, rec.snapshot(), 3)

	left, err := q.List(ctx)
	require.NoError(t, err)
	require.Len(t, left, 1)
	assert.Equal(t, "/api/2", left[0].URL)
}

func TestDrain_TransportFailureKeepsEverything(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	st := openStore(t, ":memory:")
	defer st.Close()
	q := newQueue(t, st, srv)
	srv.Close()
	ctx := context.Background()

	for _, p := range []string{"/api/1", "/api/2"} {
		_, err := q.Enqueue(ctx, Action{URL: p, Method: http.MethodDelete})
		require.NoError(t, err)
	}

	report, err := q.Drain(ctx)
	require.NoError(t, err)
	assert.Equal(t, DrainReport{Attempted: 2, Failed: 2}, report)

	n, err := q.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestDrain_HabitExample(t *testing.T) {
	rec := &recorder{}
	srv := httptest.NewServer(rec.handler())
	defer srv.Close()
	st := openStore(t, ":memory:")
	defer st.Close()
	q := newQueue(t, st, srv)
	ctx := context.Background()

	_, err := q.Enqueue(ctx, Action{
		URL:    "/api/habits",
		Method: http.MethodPost,
		Header: http.Header{"Content-Type": {"application/json"}},
		Body:   []byte(`{"name":"Run"}`),
	})
	require.NoError(t, err)

	_, err = q.Drain(ctx)
	require.NoError(t, err)
	_, err = q.Drain(ctx)
	require.NoError(t, err)

	calls := rec.snapshot()
	require.Len(t, calls, 1, "replayed exactly once")
	assert.Equal(t, http.MethodPost, calls[0].Method)
	assert.Equal(t, "/api/habits", calls[0].Path)
	assert.Equal(t, `{"name":"Run"}`, calls[0].Body)
	assert.Equal(t, "application/json", calls[0].Header.Get("Content-Type"))

	n, err := q.Len(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestDrain_ConcurrentDrainsReplayOnce(t *testing.T) {
	rec := &recorder{}
	srv := httptest.NewServer(rec.handler())
	defer srv.Close()
	st := openStore(t, ":memory:")
	defer st.Close()
	q := newQueue(t, st, srv)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := q.Enqueue(ctx, Action{URL: "/api/x", Method: http.MethodPost})
		require.NoError(t, err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = q.Drain(ctx)
		}()
	}
	wg.Wait()

	assert.Len(t, rec.snapshot(), 5)
}

func TestDrain_EmptyQueue(t *testing.T) {
	st := openStore(t, ":memory:")
	defer st.Close()
	q := New(st, nil, nil, logging.Nop())

	report, err := q.Drain(context.Background())
	require.NoError(t, err)
	assert.Equal(t, DrainReport{}, report)
}

func TestDrain_StopsOnCancel(t *testing.T) {
	rec := &recorder{}
	srv := httptest.NewServer(rec.handler())
	defer srv.Close()
	st := openStore(t, ":memory:")
	defer st.Close()
	q := newQueue(t, st, srv)

	_, err := q.Enqueue(context.Background(), Action{URL: "/api/x", Method: http.MethodPost})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = q.Drain(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
