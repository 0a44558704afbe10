package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// TokenDenylist хранит идентификаторы (jti) отозванных JWT до истечения их срока.
type TokenDenylist struct {
	rdb *redis.Client
}

func NewTokenDenylist(rdb *redis.Client) *TokenDenylist {
	return &TokenDenylist{rdb: rdb}
}

func (d *TokenDenylist) Revoke(ctx context.Context, tokenID string, ttl time.Duration) error {
	if ttl <= 0 {
		// токен уже истёк
		return nil
	}
	if err := d.rdb.Set(ctx, fmt.Sprintf(keyRevokedToken, tokenID), 1, ttl).Err(); err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}
	return nil
}

func (d *TokenDenylist) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	n, err := d.rdb.Exists(ctx, fmt.Sprintf(keyRevokedToken, tokenID)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check token: %w", err)
	}
	return n > 0, nil
}

// NoopTokenDenylist ничего не хранит: без redis выход из системы только на стороне клиента.
type NoopTokenDenylist struct{}

func (NoopTokenDenylist) Revoke(context.Context, string, time.Duration) error { return nil }
func (NoopTokenDenylist) IsRevoked(context.Context, string) (bool, error)     { return false, nil }
