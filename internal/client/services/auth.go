// Package services contains application services for the Salenus CLI.
// This file defines the authentication service: register, login, logout,
// profile and plan calls through the session client, plus the local record
// of who is signed in.
package services

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/ReimagineTruth/salenus-ai-sub002/internal/client/api"
	"github.com/ReimagineTruth/salenus-ai-sub002/internal/client/models"
	"github.com/ReimagineTruth/salenus-ai-sub002/internal/client/repositories/metadata"
	"github.com/ReimagineTruth/salenus-ai-sub002/internal/entitlement"
)

// sessionEmailKey holds the email of the signed-in account next to the token.
const sessionEmailKey = "session_email"

// SessionClient is the part of *api.Client the service needs.
type SessionClient interface {
	Register(ctx context.Context, email, password, name string) (*api.AuthResult, error)
	Login(ctx context.Context, email, password string) (*api.AuthResult, error)
	CurrentUser(ctx context.Context) (*models.User, error)
	UpgradePlan(ctx context.Context, plan entitlement.Plan) (*models.User, error)
	Entitlements(ctx context.Context) (*models.Entitlements, error)
	Logout(ctx context.Context) error
	Ping(ctx context.Context) error
}

// Session describes the locally stored sign-in.
type Session struct {
	Email string
	Since time.Time
}

// AuthService defines authentication operations for the CLI.
//
// Contract:
//   - Register / Login: authenticate against the server; the token is kept
//     by the session client, the email is recorded locally.
//   - Logout: end the session; local state is cleared even when the server
//     call fails.
//   - Session: the local sign-in, or nil when there is none.
//   - Ping: check server liveness.
//   - Close: release the local database.
//
// All methods must honor context cancellation/timeouts.
type AuthService interface {
	Register(ctx context.Context, email string, password []byte, name string) (*models.User, error)
	Login(ctx context.Context, email string, password []byte) (*models.User, error)
	Logout(ctx context.Context) error
	CurrentUser(ctx context.Context) (*models.User, error)
	UpgradePlan(ctx context.Context, plan entitlement.Plan) (*models.User, error)
	Entitlements(ctx context.Context) (*models.Entitlements, error)
	Session(ctx context.Context) (*Session, error)
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}

type authService struct {
	client SessionClient
	db     *sql.DB
}

// NewAuthService constructs an AuthService bound to the given session
// client and local database.
func NewAuthService(client SessionClient, db *sql.DB) AuthService {
	return &authService{client: client, db: db}
}

func (a *authService) getMetadataRepo() metadata.Repository {
	return metadata.NewSQLiteRepository(a.db)
}

func (a *authService) Register(ctx context.Context, email string, password []byte, name string) (*models.User, error) {
	res, err := a.client.Register(ctx, strings.TrimSpace(email), string(password), strings.TrimSpace(name))
	if err != nil {
		return nil, err
	}
	if err := a.getMetadataRepo().Set(ctx, sessionEmailKey, []byte(res.User.Email)); err != nil {
		return nil, err
	}
	return &res.User, nil
}

func (a *authService) Login(ctx context.Context, email string, password []byte) (*models.User, error) {
	res, err := a.client.Login(ctx, strings.TrimSpace(email), string(password))
	if err != nil {
		return nil, err
	}
	if err := a.getMetadataRepo().Set(ctx, sessionEmailKey, []byte(res.User.Email)); err != nil {
		return nil, err
	}
	return &res.User, nil
}

// Logout ends the session. The local record is removed regardless of the
// server answer; a missing session is not an error.
func (a *authService) Logout(ctx context.Context) error {
	err := a.client.Logout(ctx)
	if errors.Is(err, api.ErrUnauthorized) {
		err = nil
	}
	if derr := a.getMetadataRepo().Delete(ctx, sessionEmailKey); derr != nil {
		return errors.Join(err, derr)
	}
	return err
}

func (a *authService) CurrentUser(ctx context.Context) (*models.User, error) {
	return a.client.CurrentUser(ctx)
}

func (a *authService) UpgradePlan(ctx context.Context, plan entitlement.Plan) (*models.User, error) {
	return a.client.UpgradePlan(ctx, plan)
}

func (a *authService) Entitlements(ctx context.Context) (*models.Entitlements, error) {
	return a.client.Entitlements(ctx)
}

// Session reads the local sign-in: the token entry and the recorded email.
func (a *authService) Session(ctx context.Context) (*Session, error) {
	repo := a.getMetadataRepo()

	tok, err := repo.Entry(ctx, api.TokenKey)
	if err != nil {
		return nil, err
	}
	if tok == nil || len(tok.Value) == 0 {
		return nil, nil
	}

	email, err := repo.Get(ctx, sessionEmailKey)
	if err != nil {
		return nil, err
	}
	return &Session{Email: string(email), Since: tok.UpdatedAt}, nil
}

// Ping proxies a liveness check to the session client.
func (a *authService) Ping(ctx context.Context) error {
	return a.client.Ping(ctx)
}

func (a *authService) Close(ctx context.Context) error {
	if a.db == nil {
		return nil
	}
	return a.db.Close()
}
