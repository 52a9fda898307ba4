package repomanager

import (
	"context"
	"database/sql"

	"github.com/ReimagineTruth/salenus-ai-sub002/internal/dbx"
	"github.com/ReimagineTruth/salenus-ai-sub002/internal/server/repositories/users"
)

// MemoryRepositoryManager serves a single process-wide store. It ignores the
// DBTX it is handed, so transactions offer no isolation.
type MemoryRepositoryManager struct {
	users *users.MemoryRepository
}

func NewMemoryRepositoryManager() *MemoryRepositoryManager {
	return &MemoryRepositoryManager{users: users.NewMemoryRepository()}
}

func (m *MemoryRepositoryManager) RunMigrations(context.Context, *sql.DB) error { return nil }

func (m *MemoryRepositoryManager) Users(dbx.DBTX) users.Repository {
	return m.users
}

var (
	_ RepositoryManager = (*PostgresRepositoryManager)(nil)
	_ RepositoryManager = (*MemoryRepositoryManager)(nil)
)
