package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/linemk/shop-backend/internal/domain/models"
	"github.com/linemk/shop-backend/internal/storage"
)

const FavoritesPerPage = 20

type FavoriteService interface {
	List(ctx context.Context, userID int64, page int) (*models.ProductPage, error)
	// Toggle добавляет товар в избранное или убирает его; возвращает новое состояние.
	Toggle(ctx context.Context, userID, productID int64) (bool, error)
}

type favoriteService struct {
	log          *slog.Logger
	productRepo  storage.ProductStorage
	favoriteRepo storage.FavoriteStorage
}

func NewFavoriteService(log *slog.Logger, productRepo storage.ProductStorage, favoriteRepo storage.FavoriteStorage) FavoriteService {
	return &favoriteService{log: log, productRepo: productRepo, favoriteRepo: favoriteRepo}
}

func (s *favoriteService) List(ctx context.Context, userID int64, page int) (*models.ProductPage, error) {
	const op = "service.FavoriteService.List"
	page, perPage := normalizePage(page, FavoritesPerPage, FavoritesPerPage)

	products, total, err := s.favoriteRepo.ListProducts(ctx, userID, perPage, (page-1)*perPage)
	if err != nil {
		s.log.Error("failed to list favorites", slog.String("op", op), slog.Int64("userID", userID), slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to list favorites: %w", op, err)
	}
	return &models.ProductPage{Products: products, Page: page, PerPage: perPage, Total: total}, nil
}

func (s *favoriteService) Toggle(ctx context.Context, userID, productID int64) (bool, error) {
	const op = "service.FavoriteService.Toggle"
	logger := s.log.With(slog.String("op", op), slog.Int64("userID", userID), slog.Int64("productID", productID))

	product, err := s.productRepo.GetProductByID(ctx, productID)
	if err != nil {
		logger.Warn("failed to get product", slog.Any("error", err))
		return false, fmt.Errorf("%s: failed to get product: %w", op, classify(err))
	}
	if !product.IsActive {
		return false, fmt.Errorf("%s: %w", op, ErrProductInactive)
	}

	removed, err := s.favoriteRepo.RemoveFavorite(ctx, userID, productID)
	if err != nil {
		logger.Error("failed to remove favorite", slog.Any("error", err))
		return false, fmt.Errorf("%s: %w", op, err)
	}
	if removed {
		logger.Info("favorite removed")
		return false, nil
	}

	if err := s.favoriteRepo.AddFavorite(ctx, userID, productID); err != nil {
		logger.Error("failed to add favorite", slog.Any("error", err))
		return false, fmt.Errorf("%s: %w", op, err)
	}
	logger.Info("favorite added")
	return true, nil
}
