package cache

import (
	"context"
	"net/http"
	"testing"

	"github.com/ReimagineTruth/salenus-ai-sub002/internal/common"
	"github.com/ReimagineTruth/salenus-ai-sub002/internal/worker/store"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStorage(t *testing.T) *Storage {
	t.Helper()
	st, err := store.Open(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	return NewStorage(st)
}

func TestPartition_PutMatchOverwrite(t *testing.T) {
	s := newStorage(t)
	ctx := context.Background()
	p := s.Open("app-static-v1")

	_, err := p.Match(ctx, "/app.js")
	assert.ErrorIs(t, err, common.ErrorNotFound)

	require.NoError(t, p.Put(ctx, "/app.js", &Response{
		Status: 200,
		Header: http.Header{"Content-Type": {"text/javascript"}},
		Body:   []byte("v1"),
	}))
	require.NoError(t, p.Put(ctx, "/app.js", &Response{Status: 200, Body: []byte("v2")}))

	got, err := p.Match(ctx, "/app.js")
	require.NoError(t, err)
	assert.Equal(t, 200, got.Status)
	assert.Equal(t, []byte("v2"), got.Body)
	assert.False(t, got.StoredAt.IsZero())

	urls, err := p.URLs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"/app.js"}, urls, "one entry per url")
}

func TestPartition_HeadersRoundTrip(t *testing.T) {
	s := newStorage(t)
	ctx := context.Background()
	p := s.Open("p")

	h := http.Header{"Content-Type": {"application/json"}, "X-Multi": {"a", "b"}}
	require.NoError(t, p.Put(ctx, "/api/x", &Response{Status: 201, Header: h, Body: []byte(`{}`)}))

	got, err := p.Match(ctx, "/api/x")
	require.NoError(t, err)
	assert.Empty(t, cmp.Diff(h, got.Header))
}

func TestPartitionsAreIsolated(t *testing.T) {
	s := newStorage(t)
	ctx := context.Background()

	require.NoError(t, s.Open("a").Put(ctx, "/x", &Response{Status: 200, Body: []byte("a")}))
	require.NoError(t, s.Open("b").Put(ctx, "/x", &Response{Status: 200, Body: []byte("b")}))

	got, err := s.Open("a").Match(ctx, "/x")
	require.NoError(t, err)
	assert.Equal(t, []byte("a"), got.Body)

	keys, err := s.Keys(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, keys)
}

func TestStorage_HasDelete(t *testing.T) {
	s := newStorage(t)
	ctx := context.Background()

	ok, err := s.Has(ctx, "a")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Open("a").Put(ctx, "/x", &Response{Status: 200}))
	ok, err = s.Has(ctx, "a")
	require.NoError(t, err)
	assert.True(t, ok)

	existed, err := s.Delete(ctx, "a")
	require.NoError(t, err)
	assert.True(t, existed)

	existed, err = s.Delete(ctx, "a")
	require.NoError(t, err)
	assert.False(t, existed, "deleting an absent partition is a no-op")
}

func TestPartition_PutAll(t *testing.T) {
	s := newStorage(t)
	ctx := context.Background()
	p := s.Open("p")

	require.NoError(t, p.PutAll(ctx, map[string]*Response{
		"/a": {Status: 200, Body: []byte("a")},
		"/b": {Status: 200, Body: []byte("b")},
	}))

	urls, err := p.URLs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"/a", "/b"}, urls)
}

func TestPartition_PutAllCancelledWritesNothing(t *testing.T) {
	s := newStorage(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := s.Open("p").PutAll(ctx, map[string]*Response{"/a": {Status: 200}})
	require.Error(t, err)

	ok, err := s.Has(context.Background(), "p")
	require.NoError(t, err)
	assert.False(t, ok)
}
