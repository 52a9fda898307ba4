package users

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/ReimagineTruth/salenus-ai-sub002/internal/common"
	"github.com/ReimagineTruth/salenus-ai-sub002/internal/entitlement"
	"github.com/ReimagineTruth/salenus-ai-sub002/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryRepository_CreateAndGet(t *testing.T) {
	r := NewMemoryRepository()
	ctx := context.Background()

	_, err := r.Create(ctx, &models.User{ID: "u1", Email: "Ann@Example.com", Name: "Ann", Plan: entitlement.PlanFree})
	require.NoError(t, err)

	byEmail, err := r.GetByEmail(ctx, "ann@example.com")
	require.NoError(t, err)
	assert.Equal(t, "u1", byEmail.ID)
	assert.False(t, byEmail.CreatedAt.IsZero())

	byID, err := r.GetByID(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "Ann", byID.Name)
}

func TestMemoryRepository_UniqueEmailCaseInsensitive(t *testing.T) {
	r := NewMemoryRepository()
	ctx := context.Background()

	_, err := r.Create(ctx, &models.User{ID: "u1", Email: "ann@example.com"})
	require.NoError(t, err)

	_, err = r.Create(ctx, &models.User{ID: "u2", Email: " ANN@example.com "})
	assert.ErrorIs(t, err, common.ErrorAlreadyExists)
}

func TestMemoryRepository_NotFound(t *testing.T) {
	r := NewMemoryRepository()
	ctx := context.Background()

	_, err := r.GetByID(ctx, "nope")
	assert.ErrorIs(t, err, common.ErrorNotFound)
	_, err = r.GetByEmail(ctx, "nope@example.com")
	assert.ErrorIs(t, err, common.ErrorNotFound)
	_, err = r.UpdatePlan(ctx, "nope", entitlement.PlanPro, time.Now())
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestMemoryRepository_UpdatePlanReturnsCopies(t *testing.T) {
	r := NewMemoryRepository()
	ctx := context.Background()
	_, err := r.Create(ctx, &models.User{ID: "u1", Email: "a@b.c", Plan: entitlement.PlanFree})
	require.NoError(t, err)

	exp := time.Now().Add(time.Hour)
	got, err := r.UpdatePlan(ctx, "u1", entitlement.PlanPro, exp)
	require.NoError(t, err)
	assert.Equal(t, entitlement.PlanPro, got.Plan)

	got.Plan = entitlement.PlanPremium
	again, err := r.GetByID(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, entitlement.PlanPro, again.Plan, "caller mutation must not leak into the store")
}

func TestMemoryRepository_ConcurrentCreateSameEmail(t *testing.T) {
	r := NewMemoryRepository()
	ctx := context.Background()

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		success int
	)
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := r.Create(ctx, &models.User{ID: fmt.Sprintf("u%d", i), Email: "race@example.com"})
			if err == nil {
				mu.Lock()
				success++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 1, success)
}

func TestMemoryRepository_Delete(t *testing.T) {
	r := NewMemoryRepository()
	ctx := context.Background()
	_, _ = r.Create(ctx, &models.User{ID: "u1", Email: "a@b.c"})

	r.Delete("u1")

	_, err := r.GetByID(ctx, "u1")
	assert.ErrorIs(t, err, common.ErrorNotFound)
	_, err = r.Create(ctx, &models.User{ID: "u2", Email: "a@b.c"})
	assert.NoError(t, err, "email is free again after delete")
}
