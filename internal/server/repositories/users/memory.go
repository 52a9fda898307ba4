package users

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/ReimagineTruth/salenus-ai-sub002/internal/common"
	"github.com/ReimagineTruth/salenus-ai-sub002/internal/entitlement"
	"github.com/ReimagineTruth/salenus-ai-sub002/internal/server/models"
)

// MemoryRepository keeps users for the lifetime of the process. It is safe
// for concurrent use and hands out copies, never its own records.
type MemoryRepository struct {
	mu      sync.RWMutex
	byID    map[string]*models.User
	byEmail map[string]string
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		byID:    make(map[string]*models.User),
		byEmail: make(map[string]string),
	}
}

func emailKey(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func clone(u *models.User) *models.User {
	c := *u
	if u.PlanExpiry != nil {
		t := *u.PlanExpiry
		c.PlanExpiry = &t
	}
	return &c
}

func (r *MemoryRepository) Create(_ context.Context, user *models.User) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := emailKey(user.Email)
	if _, ok := r.byEmail[key]; ok {
		return nil, common.ErrorAlreadyExists
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	r.byID[user.ID] = clone(user)
	r.byEmail[key] = user.ID
	return clone(user), nil
}

func (r *MemoryRepository) GetByEmail(_ context.Context, email string) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byEmail[emailKey(email)]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return clone(r.byID[id]), nil
}

func (r *MemoryRepository) GetByID(_ context.Context, id string) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.byID[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return clone(u), nil
}

func (r *MemoryRepository) UpdatePlan(_ context.Context, id string, plan entitlement.Plan, expiry time.Time) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.byID[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	u.Plan = plan
	u.PlanExpiry = &expiry
	return clone(u), nil
}

// Delete removes a user; used by tests that simulate a vanished account.
func (r *MemoryRepository) Delete(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if u, ok := r.byID[id]; ok {
		delete(r.byEmail, emailKey(u.Email))
		delete(r.byID, id)
	}
}

var (
	_ Repository = (*MemoryRepository)(nil)
	_ Repository = (*PostgresRepository)(nil)
)
