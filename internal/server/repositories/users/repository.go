// Package users stores auth-server accounts. Email uniqueness is enforced
// here, case-insensitively, by every implementation.
package users

import (
	"context"
	"time"

	"github.com/ReimagineTruth/salenus-ai-sub002/internal/entitlement"
	"github.com/ReimagineTruth/salenus-ai-sub002/internal/server/models"
)

type Repository interface {
	// Create stores user. A duplicate email yields common.ErrorAlreadyExists.
	Create(ctx context.Context, user *models.User) (*models.User, error)
	// GetByEmail and GetByID yield common.ErrorNotFound when absent.
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
	// UpdatePlan sets plan and expiry and returns the updated user.
	UpdatePlan(ctx context.Context, id string, plan entitlement.Plan, expiry time.Time) (*models.User, error)
}
