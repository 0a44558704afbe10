package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/linemk/shop-backend/internal/domain/models"
	"github.com/linemk/shop-backend/internal/lib/metrics"
	"github.com/linemk/shop-backend/internal/storage"
)

// ReservationService держит остаток товара согласованным с количеством в корзинах.
// Каждая операция выполняется в одной транзакции, строка товара блокируется раньше строки корзины.
type ReservationService interface {
	// Reserve добавляет quantity единиц товара в корзину, списывая их с остатка.
	Reserve(ctx context.Context, userID, productID int64, quantity int) (*models.CartLine, error)
	// Release удаляет строку корзины и возвращает её количество на остаток.
	Release(ctx context.Context, userID, itemID int64) error
	// Adjust выставляет новое количество; при quantity < 1 строка удаляется.
	Adjust(ctx context.Context, userID, itemID int64, quantity int) (*AdjustResult, error)
}

type AdjustResult struct {
	Item    *models.CartItem
	Removed bool
}

type catalogInvalidator interface {
	Invalidate(ctx context.Context) error
}

type reservationService struct {
	log         *slog.Logger
	db          *sql.DB
	productRepo storage.ProductStorage
	cartRepo    storage.CartStorage
	catalog     catalogInvalidator
	metrics     *metrics.Metrics
}

func NewReservationService(
	log *slog.Logger,
	db *sql.DB,
	productRepo storage.ProductStorage,
	cartRepo storage.CartStorage,
	catalog catalogInvalidator,
	m *metrics.Metrics,
) ReservationService {
	return &reservationService{
		log:         log,
		db:          db,
		productRepo: productRepo,
		cartRepo:    cartRepo,
		catalog:     catalog,
		metrics:     m,
	}
}

func (s *reservationService) Reserve(ctx context.Context, userID, productID int64, quantity int) (line *models.CartLine, err error) {
	const op = "service.ReservationService.Reserve"
	logger := s.log.With(
		slog.String("op", op),
		slog.Int64("userID", userID),
		slog.Int64("productID", productID),
		slog.Int("quantity", quantity),
	)
	defer func() { s.metrics.ObserveReservation("reserve", outcome(err)) }()

	if quantity < 1 {
		return nil, fmt.Errorf("%s: %w: quantity must be at least 1", op, ErrValidation)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		logger.Error("failed to begin transaction", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to begin transaction: %w", op, err)
	}

	// Блокируем товар до конца транзакции, дальше остаток читается только под блокировкой
	product, err := s.productRepo.LockProductByIDTx(ctx, tx, productID)
	if err != nil {
		rollback(logger, tx)
		logger.Warn("failed to lock product", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to lock product: %w", op, classify(err))
	}
	if !product.IsActive {
		rollback(logger, tx)
		logger.Warn("product is inactive")
		return nil, fmt.Errorf("%s: %w", op, ErrProductInactive)
	}

	existing := 0
	item, err := s.cartRepo.LockItemByProductTx(ctx, tx, userID, productID)
	switch {
	case err == nil:
		existing = item.Quantity
	case errors.Is(err, storage.ErrCartItemNotFound):
	default:
		rollback(logger, tx)
		logger.Error("failed to lock cart item", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to lock cart item: %w", op, classify(err))
	}

	// Проверяем, хватает ли остатка на всё количество в корзине
	total := existing + quantity
	if product.Stock < total {
		rollback(logger, tx)
		logger.Warn("insufficient stock", slog.Int("stock", product.Stock), slog.Int("inCart", existing))
		return nil, fmt.Errorf("%s: %w", op, &InsufficientStockError{
			ProductID: productID,
			Requested: quantity,
			Available: product.Stock,
		})
	}

	if err := s.productRepo.AdjustStockTx(ctx, tx, productID, -quantity); err != nil {
		rollback(logger, tx)
		logger.Error("failed to decrement stock", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to decrement stock: %w", op, classify(err))
	}

	item, err = s.cartRepo.UpsertItemTx(ctx, tx, userID, productID, total)
	if err != nil {
		rollback(logger, tx)
		logger.Error("failed to upsert cart item", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to upsert cart item: %w", op, classify(err))
	}

	if err := tx.Commit(); err != nil {
		logger.Error("failed to commit transaction", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to commit transaction: %w", op, err)
	}

	product.Stock -= quantity
	s.invalidateCatalog(ctx, logger)

	logger.Info("stock reserved", slog.Int("stockLeft", product.Stock))
	return &models.CartLine{Item: item, Product: product}, nil
}

func (s *reservationService) Release(ctx context.Context, userID, itemID int64) (err error) {
	const op = "service.ReservationService.Release"
	logger := s.log.With(slog.String("op", op), slog.Int64("userID", userID), slog.Int64("itemID", itemID))
	defer func() { s.metrics.ObserveReservation("release", outcome(err)) }()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		logger.Error("failed to begin transaction", slog.Any("error", err))
		return fmt.Errorf("%s: failed to begin transaction: %w", op, err)
	}

	item, _, err := s.lockItem(ctx, tx, userID, itemID)
	if err != nil {
		rollback(logger, tx)
		logger.Warn("failed to lock cart item", slog.Any("error", err))
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := s.productRepo.AdjustStockTx(ctx, tx, item.ProductID, item.Quantity); err != nil {
		rollback(logger, tx)
		logger.Error("failed to restore stock", slog.Any("error", err))
		return fmt.Errorf("%s: failed to restore stock: %w", op, classify(err))
	}

	if err := s.cartRepo.DeleteItemTx(ctx, tx, item.ID); err != nil {
		rollback(logger, tx)
		logger.Error("failed to delete cart item", slog.Any("error", err))
		return fmt.Errorf("%s: failed to delete cart item: %w", op, classify(err))
	}

	if err := tx.Commit(); err != nil {
		logger.Error("failed to commit transaction", slog.Any("error", err))
		return fmt.Errorf("%s: failed to commit transaction: %w", op, err)
	}

	s.invalidateCatalog(ctx, logger)
	logger.Info("stock released", slog.Int("quantity", item.Quantity))
	return nil
}

func (s *reservationService) Adjust(ctx context.Context, userID, itemID int64, quantity int) (res *AdjustResult, err error) {
	const op = "service.ReservationService.Adjust"
	logger := s.log.With(
		slog.String("op", op),
		slog.Int64("userID", userID),
		slog.Int64("itemID", itemID),
		slog.Int("quantity", quantity),
	)

	if quantity < 1 {
		logger.Info("quantity below one, releasing item")
		if err := s.Release(ctx, userID, itemID); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		return &AdjustResult{Removed: true}, nil
	}

	defer func() { s.metrics.ObserveReservation("adjust", outcome(err)) }()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		logger.Error("failed to begin transaction", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to begin transaction: %w", op, err)
	}

	item, product, err := s.lockItem(ctx, tx, userID, itemID)
	if err != nil {
		rollback(logger, tx)
		logger.Warn("failed to lock cart item", slog.Any("error", err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	delta := quantity - item.Quantity
	if delta > 0 && product.Stock < delta {
		rollback(logger, tx)
		logger.Warn("insufficient stock", slog.Int("stock", product.Stock), slog.Int("delta", delta))
		return nil, fmt.Errorf("%s: %w", op, &InsufficientStockError{
			ProductID: product.ID,
			Requested: delta,
			Available: product.Stock,
		})
	}

	if delta != 0 {
		if err := s.productRepo.AdjustStockTx(ctx, tx, product.ID, -delta); err != nil {
			rollback(logger, tx)
			logger.Error("failed to adjust stock", slog.Any("error", err))
			return nil, fmt.Errorf("%s: failed to adjust stock: %w", op, classify(err))
		}
		if err := s.cartRepo.UpdateQuantityTx(ctx, tx, item.ID, quantity); err != nil {
			rollback(logger, tx)
			logger.Error("failed to update cart item", slog.Any("error", err))
			return nil, fmt.Errorf("%s: failed to update cart item: %w", op, classify(err))
		}
	}

	if err := tx.Commit(); err != nil {
		logger.Error("failed to commit transaction", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to commit transaction: %w", op, err)
	}

	if delta != 0 {
		s.invalidateCatalog(ctx, logger)
	}
	item.Quantity = quantity
	logger.Info("cart item adjusted", slog.Int("delta", delta))
	return &AdjustResult{Item: item}, nil
}

// lockItem блокирует сначала товар, потом строку корзины, и перечитывает строку под блокировкой.
func (s *reservationService) lockItem(ctx context.Context, tx *sql.Tx, userID, itemID int64) (*models.CartItem, *models.Product, error) {
	item, err := s.cartRepo.GetItemByIDTx(ctx, tx, userID, itemID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get cart item: %w", classify(err))
	}
	product, err := s.productRepo.LockProductByIDTx(ctx, tx, item.ProductID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to lock product: %w", classify(err))
	}
	// строку могли удалить или изменить, пока мы ждали блокировку товара
	item, err = s.cartRepo.LockItemByIDTx(ctx, tx, userID, itemID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to lock cart item: %w", classify(err))
	}
	return item, product, nil
}

func (s *reservationService) invalidateCatalog(ctx context.Context, logger *slog.Logger) {
	if s.catalog == nil {
		return
	}
	if err := s.catalog.Invalidate(ctx); err != nil {
		logger.Warn("failed to invalidate catalog cache", slog.Any("error", err))
	}
}
