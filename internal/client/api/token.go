package api

import (
	"context"
	"sync"

	"github.com/ReimagineTruth/salenus-ai-sub002/internal/client/repositories/metadata"
)

// TokenStore is the single place the session token lives. Token returns ""
// when no session exists.
type TokenStore interface {
	Token(ctx context.Context) (string, error)
	SetToken(ctx context.Context, token string) error
	ClearToken(ctx context.Context) error
}

type MemoryTokenStore struct {
	mu    sync.RWMutex
	token string
}

func NewMemoryTokenStore() *MemoryTokenStore {
	return &MemoryTokenStore{}
}

func (s *MemoryTokenStore) Token(context.Context) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token, nil
}

func (s *MemoryTokenStore) SetToken(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
	return nil
}

func (s *MemoryTokenStore) ClearToken(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = ""
	return nil
}

// TokenKey is the metadata key of the persisted token.
const TokenKey = "auth_token"

// MetadataTokenStore keeps the token in the local metadata table so a
// session survives restarts.
type MetadataTokenStore struct {
	repo metadata.Repository
}

func NewMetadataTokenStore(repo metadata.Repository) *MetadataTokenStore {
	return &MetadataTokenStore{repo: repo}
}

func (s *MetadataTokenStore) Token(ctx context.Context) (string, error) {
	v, err := s.repo.Get(ctx, TokenKey)
	if err != nil {
		return "", err
	}
	return string(v), nil
}

func (s *MetadataTokenStore) SetToken(ctx context.Context, token string) error {
	return s.repo.Set(ctx, TokenKey, []byte(token))
}

func (s *MetadataTokenStore) ClearToken(ctx context.Context) error {
	return s.repo.Delete(ctx, TokenKey)
}

var (
	_ TokenStore = (*MemoryTokenStore)(nil)
	_ TokenStore = (*MetadataTokenStore)(nil)
)
