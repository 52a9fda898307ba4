// Package revocations remembers logged-out token IDs until the tokens would
// have expired anyway.
package revocations

import (
	"context"
	"time"
)

type Repository interface {
	// Revoke marks tokenID as unusable until until. Revoking an already
	// expired token is a no-op.
	Revoke(ctx context.Context, tokenID string, until time.Time) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}
