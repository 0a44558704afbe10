package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/linemk/shop-backend/internal/domain/models"
	"github.com/linemk/shop-backend/internal/storage"
	"github.com/shopspring/decimal"
)

// CartView: содержимое корзины и сумма по текущим ценам.
type CartView struct {
	Lines    []*models.CartLine
	Subtotal decimal.Decimal
}

type CartService interface {
	View(ctx context.Context, userID int64) (*CartView, error)
}

type cartService struct {
	log      *slog.Logger
	cartRepo storage.CartStorage
}

func NewCartService(log *slog.Logger, cartRepo storage.CartStorage) CartService {
	return &cartService{log: log, cartRepo: cartRepo}
}

func (s *cartService) View(ctx context.Context, userID int64) (*CartView, error) {
	const op = "service.CartService.View"

	lines, err := s.cartRepo.ListLinesByUser(ctx, userID)
	if err != nil {
		s.log.Error("failed to list cart", slog.String("op", op), slog.Int64("userID", userID), slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to list cart: %w", op, err)
	}

	view := &CartView{Lines: lines, Subtotal: decimal.Zero}
	for _, line := range lines {
		view.Subtotal = view.Subtotal.Add(line.LineTotal())
	}
	return view, nil
}
