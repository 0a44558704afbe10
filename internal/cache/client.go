package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// версия каталога, инкрементируется при каждом изменении остатков
	keyCatalogVersion = "catalog:version"
	// страница каталога: catalog:v{version}:page:{page}:{per_page}
	keyCatalogPage = "catalog:v%d:page:%d:%d"
	// отозванный токен: auth:revoked:{jti}
	keyRevokedToken = "auth:revoked:%s"
)

// NewClient создаёт клиент redis и проверяет соединение.
func NewClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  time.Second,
		WriteTimeout: time.Second,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	return rdb, nil
}
