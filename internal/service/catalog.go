package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/linemk/shop-backend/internal/domain/models"
	"github.com/linemk/shop-backend/internal/storage"
)

const (
	DefaultPerPage = 10
	MaxPerPage     = 100
	// MaxPage ограничивает номер страницы, чтобы смещение не переполнялось.
	MaxPage = 100_000
)

// CatalogCache хранит готовые страницы каталога.
// Get возвращает версию каталога, под которой искал страницу; Set пишет под неё же.
type CatalogCache interface {
	Get(ctx context.Context, page, perPage int) (*models.ProductPage, int64, bool, error)
	Set(ctx context.Context, version int64, p *models.ProductPage) error
	Invalidate(ctx context.Context) error
}

type CatalogService interface {
	ListProducts(ctx context.Context, page, perPage int) (*models.ProductPage, error)
}

type catalogService struct {
	log         *slog.Logger
	productRepo storage.ProductStorage
	cache       CatalogCache
}

func NewCatalogService(log *slog.Logger, productRepo storage.ProductStorage, cache CatalogCache) CatalogService {
	return &catalogService{log: log, productRepo: productRepo, cache: cache}
}

// normalizePage приводит номер страницы и размер к допустимым значениям.
func normalizePage(page, perPage, def int) (int, int) {
	if page < 1 {
		page = 1
	}
	if page > MaxPage {
		page = MaxPage
	}
	if perPage < 1 {
		perPage = def
	}
	if perPage > MaxPerPage {
		perPage = MaxPerPage
	}
	return page, perPage
}

// ListProducts возвращает активные товары по названию. Ошибки кэша не прерывают запрос.
func (s *catalogService) ListProducts(ctx context.Context, page, perPage int) (*models.ProductPage, error) {
	const op = "service.CatalogService.ListProducts"
	page, perPage = normalizePage(page, perPage, DefaultPerPage)
	logger := s.log.With(slog.String("op", op), slog.Int("page", page), slog.Int("perPage", perPage))

	cached, version, ok, err := s.cache.Get(ctx, page, perPage)
	cacheable := err == nil
	if err != nil {
		logger.Warn("failed to read catalog cache", slog.Any("error", err))
	} else if ok {
		logger.Debug("catalog cache hit")
		return cached, nil
	}

	products, total, err := s.productRepo.ListActive(ctx, perPage, (page-1)*perPage)
	if err != nil {
		logger.Error("failed to list products", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to list products: %w", op, err)
	}

	result := &models.ProductPage{Products: products, Page: page, PerPage: perPage, Total: total}
	if cacheable {
		if err := s.cache.Set(ctx, version, result); err != nil {
			logger.Warn("failed to write catalog cache", slog.Any("error", err))
		}
	}
	return result, nil
}
