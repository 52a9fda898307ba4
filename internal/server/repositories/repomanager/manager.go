package repomanager

import (
	"context"
	"database/sql"

	"github.com/ReimagineTruth/salenus-ai-sub002/internal/dbx"
	"github.com/ReimagineTruth/salenus-ai-sub002/internal/server/repositories/users"
)

type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
}
