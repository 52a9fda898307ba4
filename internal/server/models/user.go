// Package models holds the server-side domain records.
package models

import (
	"time"

	"github.com/ReimagineTruth/salenus-ai-sub002/internal/entitlement"
)

// User is an account on the auth server. PasswordHash never leaves the
// server; use View for anything sent over the wire.
type User struct {
	ID           string
	Email        string
	Name         string
	PasswordHash string
	Plan         entitlement.Plan
	PlanExpiry   *time.Time
	IsActive     bool
	CreatedAt    time.Time
}

// UserView is the public JSON shape of a User.
type UserView struct {
	ID         string           `json:"id"`
	Email      string           `json:"email"`
	Name       string           `json:"name"`
	Plan       entitlement.Plan `json:"plan"`
	PlanExpiry *time.Time       `json:"planExpiry"`
	IsActive   bool             `json:"isActive"`
	CreatedAt  time.Time        `json:"createdAt"`
}

func (u *User) View() UserView {
	return UserView{
		ID:         u.ID,
		Email:      u.Email,
		Name:       u.Name,
		Plan:       u.Plan,
		PlanExpiry: u.PlanExpiry,
		IsActive:   u.IsActive,
		CreatedAt:  u.CreatedAt,
	}
}

// EffectivePlan is the plan currently in force: a paid plan whose expiry has
// passed falls back to free.
func (u *User) EffectivePlan(now time.Time) entitlement.Plan {
	if u.Plan == "" {
		return entitlement.PlanFree
	}
	if u.Plan != entitlement.PlanFree && u.PlanExpiry != nil && now.After(*u.PlanExpiry) {
		return entitlement.PlanFree
	}
	return u.Plan
}
