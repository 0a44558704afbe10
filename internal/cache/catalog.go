package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/linemk/shop-backend/internal/domain/models"
	"github.com/redis/go-redis/v9"
)

// CatalogCache кэширует страницы каталога в redis.
type CatalogCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewCatalogCache(rdb *redis.Client, ttl time.Duration) *CatalogCache {
	return &CatalogCache{rdb: rdb, ttl: ttl}
}

func (c *CatalogCache) version(ctx context.Context) (int64, error) {
	v, err := c.rdb.Get(ctx, keyCatalogVersion).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return v, err
}

// Get возвращает страницу из кэша и версию каталога, по которой её искали;
// false, если страницы нет. Версию нужно передать в Set после чтения из БД.
func (c *CatalogCache) Get(ctx context.Context, page, perPage int) (*models.ProductPage, int64, bool, error) {
	v, err := c.version(ctx)
	if err != nil {
		return nil, 0, false, fmt.Errorf("failed to read catalog version: %w", err)
	}
	raw, err := c.rdb.Get(ctx, fmt.Sprintf(keyCatalogPage, v, page, perPage)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, v, false, nil
	}
	if err != nil {
		return nil, v, false, fmt.Errorf("failed to read catalog page: %w", err)
	}
	var p models.ProductPage
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, v, false, fmt.Errorf("failed to decode catalog page: %w", err)
	}
	return &p, v, true, nil
}

// Set сохраняет страницу под версией, прочитанной в Get до запроса в БД.
// Если каталог успели изменить, страница ляжет под старую версию и читаться не будет.
func (c *CatalogCache) Set(ctx context.Context, version int64, p *models.ProductPage) error {
	raw, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to encode catalog page: %w", err)
	}
	return c.rdb.Set(ctx, fmt.Sprintf(keyCatalogPage, version, p.Page, p.PerPage), raw, c.ttl).Err()
}

// Invalidate делает недействительными все закэшированные страницы.
// Старые ключи истекают сами по TTL.
func (c *CatalogCache) Invalidate(ctx context.Context) error {
	return c.rdb.Incr(ctx, keyCatalogVersion).Err()
}

// NoopCatalogCache используется, когда redis не настроен.
type NoopCatalogCache struct{}

func (NoopCatalogCache) Get(context.Context, int, int) (*models.ProductPage, int64, bool, error) {
	return nil, 0, false, nil
}
func (NoopCatalogCache) Set(context.Context, int64, *models.ProductPage) error { return nil }
func (NoopCatalogCache) Invalidate(context.Context) error                      { return nil }
