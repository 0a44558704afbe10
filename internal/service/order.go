package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/linemk/shop-backend/internal/domain/models"
	"github.com/linemk/shop-backend/internal/storage"
)

const OrdersPerPage = 10

type OrderPage struct {
	Orders  []*models.Order
	Page    int
	PerPage int
	Total   int
}

type OrderService interface {
	History(ctx context.Context, userID int64, page int) (*OrderPage, error)
}

type orderService struct {
	log       *slog.Logger
	orderRepo storage.OrderStorage
}

func NewOrderService(log *slog.Logger, orderRepo storage.OrderStorage) OrderService {
	return &orderService{log: log, orderRepo: orderRepo}
}

// History возвращает заказы пользователя, новые первыми.
func (s *orderService) History(ctx context.Context, userID int64, page int) (*OrderPage, error) {
	const op = "service.OrderService.History"
	page, perPage := normalizePage(page, OrdersPerPage, OrdersPerPage)

	orders, total, err := s.orderRepo.ListByUser(ctx, userID, perPage, (page-1)*perPage)
	if err != nil {
		s.log.Error("failed to list orders", slog.String("op", op), slog.Int64("userID", userID), slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to list orders: %w", op, err)
	}
	return &OrderPage{Orders: orders, Page: page, PerPage: perPage, Total: total}, nil
}
