package revocations

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const DefaultKeyPrefix = "salenus:revoked:"

// RedisRepository stores one key per revoked token, expiring together with
// the token itself.
type RedisRepository struct {
	client    redis.UniversalClient
	keyPrefix string
	now       func() time.Time
}

func NewRedisRepository(client redis.UniversalClient, keyPrefix string) (*RedisRepository, error) {
	if client == nil {
		return nil, errors.New("redis client is required")
	}
	if keyPrefix == "" {
		keyPrefix = DefaultKeyPrefix
	}
	return &RedisRepository{client: client, keyPrefix: keyPrefix, now: time.Now}, nil
}

func (r *RedisRepository) key(tokenID string) string {
	return r.keyPrefix + tokenID
}

func (r *RedisRepository) Revoke(ctx context.Context, tokenID string, until time.Time) error {
	ttl := until.Sub(r.now())
	if ttl <= 0 {
		return nil
	}
	if err := r.client.Set(ctx, r.key(tokenID), "1", ttl).Err(); err != nil {
		return fmt.Errorf("revoke %s: %w", tokenID, err)
	}
	return nil
}

func (r *RedisRepository) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	n, err := r.client.Exists(ctx, r.key(tokenID)).Result()
	if err != nil {
		return false, fmt.Errorf("check revocation %s: %w", tokenID, err)
	}
	return n > 0, nil
}

var (
	_ Repository = (*MemoryRepository)(nil)
	_ Repository = (*RedisRepository)(nil)
)
