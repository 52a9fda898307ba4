package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ReimagineTruth/salenus-ai-sub002/internal/common"
	"github.com/ReimagineTruth/salenus-ai-sub002/internal/dbx"
	"github.com/ReimagineTruth/salenus-ai-sub002/internal/entitlement"
	"github.com/ReimagineTruth/salenus-ai-sub002/internal/server/models"
	"github.com/jackc/pgx/v5/pgconn"
)

const uniqueViolation = "23505"

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const selectUser = `SELECT id, email, name, password_hash, plan, plan_expiry, is_active, created_at FROM users`

func (r *PostgresRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	query :=
		`INSERT INTO users (id, email, name, password_hash, plan, is_active)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING created_at`

	err := r.db.QueryRowContext(ctx, query,
		user.ID, user.Email, user.Name, user.PasswordHash, string(user.Plan), user.IsActive).Scan(&user.CreatedAt)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, common.ErrorAlreadyExists
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return user, nil
}

func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.getOne(ctx, selectUser+` WHERE lower(email) = lower($1)`, email)
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	return r.getOne(ctx, selectUser+` WHERE id = $1`, id)
}

func (r *PostgresRepository) UpdatePlan(ctx context.Context, id string, plan entitlement.Plan, expiry time.Time) (*models.User, error) {
	query :=
		`UPDATE users SET plan = $2, plan_expiry = $3
		 WHERE id = $1
		 RETURNING id, email, name, password_hash, plan, plan_expiry, is_active, created_at`

	return r.getOne(ctx, query, id, string(plan), expiry)
}

func (r *PostgresRepository) getOne(ctx context.Context, query string, args ...any) (*models.User, error) {
	var (
		u      models.User
		plan   string
		expiry sql.NullTime
	)
	err := r.db.QueryRowContext(ctx, query, args...).
		Scan(&u.ID, &u.Email, &u.Name, &u.PasswordHash, &plan, &expiry, &u.IsActive, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	u.Plan = entitlement.Plan(plan)
	if expiry.Valid {
		t := expiry.Time
		u.PlanExpiry = &t
	}
	return &u, nil
}
