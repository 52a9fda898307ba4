// Package server wires the auth server together: configuration, storage
// backends, the token revocation list and the HTTP API.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ReimagineTruth/salenus-ai-sub002/internal/logging"
	"github.com/ReimagineTruth/salenus-ai-sub002/internal/server/config"
	"github.com/ReimagineTruth/salenus-ai-sub002/internal/server/repositories/repomanager"
	"github.com/ReimagineTruth/salenus-ai-sub002/internal/server/repositories/revocations"
	"github.com/ReimagineTruth/salenus-ai-sub002/internal/server/rest"
	"github.com/ReimagineTruth/salenus-ai-sub002/internal/server/services"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
)

type App struct {
	config      *config.Config
	logger      logging.Logger
	db          *sql.DB
	redis       *redis.Client
	userService *services.UserService
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger := logging.New(logging.Options{Level: c.LogLevel, File: c.LogFile, MaxSizeMB: 50, MaxBackups: 3, MaxAgeDays: 28})
	app := &App{config: c, logger: logger}

	var rm repomanager.RepositoryManager
	if c.DatabaseDSN == "" {
		logger.Warn(ctx, "no database configured, users are kept in memory")
		rm = repomanager.NewMemoryRepositoryManager()
	} else {
		db, err := sql.Open("pgx", c.DatabaseDSN)
		if err != nil {
			return nil, fmt.Errorf("db init error: %w", err)
		}
		if err := db.PingContext(ctx); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("db ping error: %w", err)
		}
		app.db = db
		rm = repomanager.NewPostgresRepositoryManager()
	}

	if err := rm.RunMigrations(ctx, app.db); err != nil {
		app.Close()
		return nil, fmt.Errorf("migrations error: %w", err)
	}

	revoked, err := app.revocationStore(ctx)
	if err != nil {
		app.Close()
		return nil, err
	}

	app.userService = services.NewUserService(app.db, rm, revoked, c)
	return app, nil
}

func (app *App) revocationStore(ctx context.Context) (revocations.Repository, error) {
	switch app.config.RevocationStore {
	case config.RevocationNone:
		return nil, nil
	case config.RevocationMemory:
		return revocations.NewMemoryRepository(), nil
	case config.RevocationRedis:
		app.redis = redis.NewClient(&redis.Options{Addr: app.config.RedisAddr})
		if err := app.redis.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("redis ping: %w", err)
		}
		return revocations.NewRedisRepository(app.redis, revocations.DefaultKeyPrefix)
	default:
		return nil, fmt.Errorf("unknown revocation store %q", app.config.RevocationStore)
	}
}

// Close releases the database and Redis connections.
func (app *App) Close() {
	if app.db != nil {
		_ = app.db.Close()
	}
	if app.redis != nil {
		_ = app.redis.Close()
	}
}

// Run serves the API until SIGINT, SIGTERM or SIGQUIT.
func (app *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()
	defer app.Close()

	app.logger.Info(ctx, "Starting app...", "revocation_store", app.config.RevocationStore)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return rest.NewServer(app.config.EndpointAddr, app.logger, app.userService).Run(ctx)
	})

	if err := g.Wait(); err != nil {
		app.logger.Error(ctx, "server stopped", "error", err)
		return err
	}
	return nil
}
