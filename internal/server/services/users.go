// Package services holds the auth server's business logic. Handlers call
// services; services call repositories obtained from a RepositoryManager.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ReimagineTruth/salenus-ai-sub002/internal/common"
	"github.com/ReimagineTruth/salenus-ai-sub002/internal/cryptox"
	"github.com/ReimagineTruth/salenus-ai-sub002/internal/entitlement"
	"github.com/ReimagineTruth/salenus-ai-sub002/internal/server/auth"
	"github.com/ReimagineTruth/salenus-ai-sub002/internal/server/config"
	"github.com/ReimagineTruth/salenus-ai-sub002/internal/server/models"
	"github.com/ReimagineTruth/salenus-ai-sub002/internal/server/repositories/repomanager"
	"github.com/ReimagineTruth/salenus-ai-sub002/internal/server/repositories/revocations"
	"github.com/google/uuid"
)

// PlanPeriod is how long an upgraded plan stays in force.
const PlanPeriod = 30 * 24 * time.Hour

// AuthResult is what register and login hand back to the caller.
type AuthResult struct {
	User  *models.User
	Token string
}

type UserService struct {
	db                    *sql.DB
	repomanager           repomanager.RepositoryManager
	revocations           revocations.Repository
	jwtSecret             []byte
	tokenValidityDuration time.Duration
	now                   func() time.Time
}

// NewUserService wires the service. revoked may be nil, in which case logout
// is stateless and tokens stay valid until they expire.
func NewUserService(db *sql.DB, m repomanager.RepositoryManager, revoked revocations.Repository, cfg *config.Config) *UserService {
	return &UserService{
		db:                    db,
		repomanager:           m,
		revocations:           revoked,
		jwtSecret:             []byte(cfg.SecretKey),
		tokenValidityDuration: cfg.TokenValidityDuration,
		now:                   time.Now,
	}
}

func (s *UserService) Register(ctx context.Context, email, password, name string) (*AuthResult, error) {
	email = strings.TrimSpace(email)
	name = strings.TrimSpace(name)
	if email == "" || password == "" || name == "" {
		return nil, fmt.Errorf("%w: email, password and name are required", common.ErrorValidation)
	}

	hash, err := cryptox.HashPassword([]byte(password))
	if err != nil {
		return nil, common.ErrorInternal
	}

	user := &models.User{
		ID:           uuid.NewString(),
		Email:        email,
		Name:         name,
		PasswordHash: hash,
		Plan:         entitlement.PlanFree,
		IsActive:     true,
	}

	repo := s.repomanager.Users(s.db)
	user, err = repo.Create(ctx, user)
	if err != nil {
		if errors.Is(err, common.ErrorAlreadyExists) {
			return nil, err
		}
		return nil, fmt.Errorf("error creating user: %w", err)
	}

	return s.issue(user)
}

func (s *UserService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, fmt.Errorf("%w: email and password are required", common.ErrorValidation)
	}

	repo := s.repomanager.Users(s.db)
	user, err := repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorUnauthorized
		}
		return nil, common.ErrorInternal
	}

	ok, err := cryptox.CheckPassword(user.PasswordHash, []byte(password))
	if err != nil || !ok || !user.IsActive {
		return nil, common.ErrorUnauthorized
	}

	return s.issue(user)
}

func (s *UserService) issue(user *models.User) (*AuthResult, error) {
	token, err := auth.GenerateToken(user.ID, user.Email, s.jwtSecret, s.tokenValidityDuration)
	if err != nil {
		return nil, common.ErrorInternal
	}
	return &AuthResult{User: user, Token: token}, nil
}

// Authenticate validates a bearer token and checks it against the
// revocation list when one is configured.
func (s *UserService) Authenticate(ctx context.Context, token string) (*auth.Claims, error) {
	claims, err := auth.ParseToken(token, s.jwtSecret)
	if err != nil {
		return nil, err
	}
	if s.revocations == nil || claims.ID == "" {
		return claims, nil
	}
	revoked, err := s.revocations.IsRevoked(ctx, claims.ID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrorInternal, err)
	}
	if revoked {
		return nil, common.ErrTokenRevoked
	}
	return claims, nil
}

func (s *UserService) CurrentUser(ctx context.Context, userID string) (*models.User, error) {
	return s.repomanager.Users(s.db).GetByID(ctx, userID)
}

// UpgradePlan switches the user to plan for PlanPeriod starting now.
func (s *UserService) UpgradePlan(ctx context.Context, userID string, plan entitlement.Plan) (*models.User, error) {
	if !plan.Valid() {
		return nil, fmt.Errorf("%w: unknown plan %q", common.ErrorValidation, plan)
	}
	return s.repomanager.Users(s.db).UpdatePlan(ctx, userID, plan, s.now().Add(PlanPeriod).UTC())
}

// Logout revokes the token described by claims. Without a revocation store
// it does nothing and the client is expected to drop the token.
func (s *UserService) Logout(ctx context.Context, claims *auth.Claims) error {
	if s.revocations == nil || claims == nil || claims.ID == "" {
		return nil
	}
	until := s.now().Add(s.tokenValidityDuration)
	if claims.ExpiresAt != nil {
		until = claims.ExpiresAt.Time
	}
	return s.revocations.Revoke(ctx, claims.ID, until)
}

// Entitlements returns the plan currently in force for userID and the
// features it grants.
func (s *UserService) Entitlements(ctx context.Context, userID string) (entitlement.Plan, []entitlement.Feature, error) {
	user, err := s.CurrentUser(ctx, userID)
	if err != nil {
		return "", nil, err
	}
	plan := user.EffectivePlan(s.now())
	return plan, entitlement.Features(plan), nil
}
