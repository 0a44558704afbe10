package service

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/linemk/shop-backend/internal/domain/models"
	"github.com/linemk/shop-backend/internal/lib/metrics"
	"github.com/linemk/shop-backend/internal/storage"
	"github.com/shopspring/decimal"
)

// CheckoutService превращает корзину пользователя в заказ.
type CheckoutService interface {
	Checkout(ctx context.Context, userID int64) (*models.Order, error)
}

// OrderPublisher уведомляет внешние системы об оформленном заказе.
type OrderPublisher interface {
	PublishOrderPlaced(ctx context.Context, order *models.Order) error
}

type checkoutService struct {
	log       *slog.Logger
	db        *sql.DB
	cartRepo  storage.CartStorage
	orderRepo storage.OrderStorage
	publisher OrderPublisher
	metrics   *metrics.Metrics
}

func NewCheckoutService(
	log *slog.Logger,
	db *sql.DB,
	cartRepo storage.CartStorage,
	orderRepo storage.OrderStorage,
	publisher OrderPublisher,
	m *metrics.Metrics,
) CheckoutService {
	return &checkoutService{
		log:       log,
		db:        db,
		cartRepo:  cartRepo,
		orderRepo: orderRepo,
		publisher: publisher,
		metrics:   m,
	}
}

// Checkout оформляет заказ по текущим ценам товаров и очищает корзину.
// Остатки не меняются: они были списаны при добавлении в корзину.
func (s *checkoutService) Checkout(ctx context.Context, userID int64) (order *models.Order, err error) {
	const op = "service.CheckoutService.Checkout"
	logger := s.log.With(slog.String("op", op), slog.Int64("userID", userID))
	logger.Info("starting checkout transaction")

	started := time.Now()
	defer func() { s.metrics.ObserveCheckout(outcome(err), time.Since(started)) }()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		logger.Error("failed to begin transaction", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to begin transaction: %w", op, err)
	}

	// Блокируем строки корзины, чтобы параллельные изменения дождались оформления
	lines, err := s.cartRepo.LockLinesByUserTx(ctx, tx, userID)
	if err != nil {
		rollback(logger, tx)
		logger.Error("failed to lock cart", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to lock cart: %w", op, classify(err))
	}
	if len(lines) == 0 {
		rollback(logger, tx)
		logger.Warn("cart is empty")
		return nil, fmt.Errorf("%s: %w", op, ErrEmptyCart)
	}

	total := decimal.Zero
	for _, line := range lines {
		total = total.Add(line.LineTotal())
	}

	order = &models.Order{
		UserID: userID,
		Total:  total,
		Status: models.OrderStatusPaid,
	}
	if err := s.orderRepo.CreateOrderTx(ctx, tx, order); err != nil {
		rollback(logger, tx)
		logger.Error("failed to create order", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to create order: %w", op, err)
	}

	order.Items = make([]*models.OrderItem, 0, len(lines))
	for _, line := range lines {
		item := &models.OrderItem{
			OrderID:     order.ID,
			ProductID:   line.Product.ID,
			ProductName: line.Product.Name,
			UnitPrice:   line.Product.Price,
			Quantity:    line.Item.Quantity,
		}
		if err := s.orderRepo.CreateOrderItemTx(ctx, tx, item); err != nil {
			rollback(logger, tx)
			logger.Error("failed to create order item", slog.Any("error", err), slog.Int64("productID", item.ProductID))
			return nil, fmt.Errorf("%s: failed to create order item: %w", op, err)
		}
		order.Items = append(order.Items, item)
	}

	// удаляем только оформленные строки: резерв, закоммиченный после чтения корзины, остаётся в ней
	itemIDs := make([]int64, 0, len(lines))
	for _, line := range lines {
		itemIDs = append(itemIDs, line.Item.ID)
	}
	if err := s.cartRepo.DeleteItemsTx(ctx, tx, userID, itemIDs); err != nil {
		rollback(logger, tx)
		logger.Error("failed to clear cart", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to clear cart: %w", op, classify(err))
	}

	if err := tx.Commit(); err != nil {
		logger.Error("failed to commit transaction", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to commit transaction: %w", op, err)
	}

	// заказ уже сохранён, ошибка публикации только логируется
	if s.publisher != nil {
		if err := s.publisher.PublishOrderPlaced(ctx, order); err != nil {
			logger.Error("failed to publish order event", slog.Int64("orderID", order.ID), slog.Any("error", err))
		}
	}

	logger.Info("checkout completed successfully", slog.Int64("orderID", order.ID), slog.String("total", total.StringFixed(2)))
	return order, nil
}
