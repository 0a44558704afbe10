package cache_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/linemk/shop-backend/internal/cache"
	"github.com/linemk/shop-backend/internal/domain/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestClient подключается к redis из TEST_REDIS_ADDR, иначе тест пропускается.
func newTestClient(t *testing.T) *cache.CatalogCache {
	t.Helper()
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR is not set")
	}
	rdb, err := cache.NewClient(context.Background(), addr, "", 0)
	require.NoError(t, err)
	t.Cleanup(func() { rdb.Close() })
	return cache.NewCatalogCache(rdb, time.Minute)
}

func TestCatalogCache_SetGetInvalidate(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()

	// начинаем с чистой версии, чтобы не зацепить страницы других прогонов
	require.NoError(t, c.Invalidate(ctx))

	page := &models.ProductPage{
		Products: []*models.Product{{ID: 1, Name: "Cable", Price: decimal.RequireFromString("3.00"), Stock: 4, IsActive: true}},
		Page:     1,
		PerPage:  10,
		Total:    1,
	}
	_, version, ok, err := c.Get(ctx, 1, 10)
	require.NoError(t, err)
	assert.False(t, ok)
	require.NoError(t, c.Set(ctx, version, page))

	got, _, ok, err := c.Get(ctx, 1, 10)
	require.NoError(t, err)
	assert.True(t, ok, "Page should be cached")
	assert.Equal(t, "Cable", got.Products[0].Name)
	assert.True(t, page.Products[0].Price.Equal(got.Products[0].Price))

	require.NoError(t, c.Invalidate(ctx))
	_, _, ok, err = c.Get(ctx, 1, 10)
	require.NoError(t, err)
	assert.False(t, ok, "Invalidated page should not be served")
}

func TestCatalogCache_SetUnderVersionSeenBeforeRead(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()
	require.NoError(t, c.Invalidate(ctx))

	_, version, ok, err := c.Get(ctx, 2, 10)
	require.NoError(t, err)
	require.False(t, ok)

	// каталог изменился, пока страница читалась из БД
	require.NoError(t, c.Invalidate(ctx))
	require.NoError(t, c.Set(ctx, version, &models.ProductPage{Page: 2, PerPage: 10}))

	_, _, ok, err = c.Get(ctx, 2, 10)
	require.NoError(t, err)
	assert.False(t, ok, "Page written under an old version should not be served")
}

func TestNoopCaches(t *testing.T) {
	ctx := context.Background()

	var catalog cache.NoopCatalogCache
	assert.NoError(t, catalog.Set(ctx, 0, &models.ProductPage{Page: 1, PerPage: 10}))
	_, _, ok, err := catalog.Get(ctx, 1, 10)
	assert.NoError(t, err)
	assert.False(t, ok)

	var denylist cache.NoopTokenDenylist
	assert.NoError(t, denylist.Revoke(ctx, "jti", time.Minute))
	revoked, err := denylist.IsRevoked(ctx, "jti")
	assert.NoError(t, err)
	assert.False(t, revoked)
}
