package api

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/ReimagineTruth/salenus-ai-sub002/internal/client/repositories/metadata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

func metadataStore(t *testing.T) (*MetadataTokenStore, *sql.DB) {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })
	_, err = db.Exec(`CREATE TABLE metadata (key TEXT PRIMARY KEY, value BLOB NOT NULL, updated_at INTEGER NOT NULL)`)
	require.NoError(t, err)
	return NewMetadataTokenStore(metadata.NewSQLiteRepository(db)), db
}

func TestTokenStores(t *testing.T) {
	mds, _ := metadataStore(t)
	stores := map[string]TokenStore{
		"memory":   NewMemoryTokenStore(),
		"metadata": mds,
	}

	for name, s := range stores {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			tok, err := s.Token(ctx)
			require.NoError(t, err)
			assert.Empty(t, tok)

			require.NoError(t, s.SetToken(ctx, "a"))
			require.NoError(t, s.SetToken(ctx, "b"))
			tok, err = s.Token(ctx)
			require.NoError(t, err)
			assert.Equal(t, "b", tok)

			require.NoError(t, s.ClearToken(ctx))
			require.NoError(t, s.ClearToken(ctx))
			tok, err = s.Token(ctx)
			require.NoError(t, err)
			assert.Empty(t, tok)
		})
	}
}

func TestMetadataTokenStore_StoreFailure(t *testing.T) {
	s, db := metadataStore(t)
	require.NoError(t, db.Close())

	_, err := s.Token(context.Background())
	require.Error(t, err)

	c := newClient(t, "http://127.0.0.1:1", s)
	_, err = c.CurrentUser(context.Background())
	require.Error(t, err)
	var apiErr *APIError
	assert.False(t, errors.As(err, &apiErr), "store failures are not API errors")
}
