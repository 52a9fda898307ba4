// Package models holds the records the CLI receives from the API.
package models

import (
	"time"

	"github.com/ReimagineTruth/salenus-ai-sub002/internal/entitlement"
)

// User is the account as returned by the auth API.
type User struct {
	ID         string           `json:"id"`
	Email      string           `json:"email"`
	Name       string           `json:"name"`
	Plan       entitlement.Plan `json:"plan"`
	PlanExpiry *time.Time       `json:"planExpiry"`
	IsActive   bool             `json:"isActive"`
	CreatedAt  time.Time        `json:"createdAt"`
}

// Entitlements lists the features granted by the plan in force.
type Entitlements struct {
	Plan     entitlement.Plan      `json:"plan"`
	Features []entitlement.Feature `json:"features"`
}

// Health is the server liveness answer.
type Health struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

// PlanExpired reports whether a paid plan has lapsed at now.
func (u *User) PlanExpired(now time.Time) bool {
	return u.Plan != entitlement.PlanFree && u.PlanExpiry != nil && now.After(*u.PlanExpiry)
}
