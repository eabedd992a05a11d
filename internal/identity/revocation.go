package identity

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Revoker remembers signed-out sessions until their tokens expire.
type Revoker interface {
	Revoke(ctx context.Context, sessionID string, ttl time.Duration) error
	Revoked(ctx context.Context, sessionID string) (bool, error)
}

// RedisRevoker keeps the deny-list in Redis, one key per session.
type RedisRevoker struct {
	client redis.Cmdable
	prefix string
}

func NewRedisRevoker(client redis.Cmdable, prefix string) *RedisRevoker {
	return &RedisRevoker{client: client, prefix: prefix + "revoked:"}
}

// Revoke denies sessionID for ttl. Tokens already past expiry need no entry.
func (r *RedisRevoker) Revoke(ctx context.Context, sessionID string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	if err := r.client.Set(ctx, r.prefix+sessionID, 1, ttl).Err(); err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}
	return nil
}

func (r *RedisRevoker) Revoked(ctx context.Context, sessionID string) (bool, error) {
	n, err := r.client.Exists(ctx, r.prefix+sessionID).Result()
	if err != nil {
		return false, fmt.Errorf("check revoked session: %w", err)
	}
	return n > 0, nil
}
