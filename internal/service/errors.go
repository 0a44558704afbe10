package service

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/linemk/shop-backend/internal/storage"
)

// Виды ошибок, которые слой HTTP переводит в коды ответа.
var (
	ErrNotFound          = errors.New("not found")
	ErrProductInactive   = errors.New("product not found")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrEmptyCart         = errors.New("cart empty")
	ErrValidation        = errors.New("validation failed")
	ErrLockTimeout       = errors.New("resource is busy, please try again")

	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrEmailTaken         = errors.New("email already taken")
)

// InsufficientStockError несёт доступный остаток товара.
type InsufficientStockError struct {
	ProductID int64
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %d: requested %d, available %d", e.ProductID, e.Requested, e.Available)
}

func (e *InsufficientStockError) Is(target error) bool {
	return target == ErrInsufficientStock
}

// classify дополняет ошибку хранилища видом ошибки сервиса.
func classify(err error) error {
	switch {
	case errors.Is(err, storage.ErrProductNotFound),
		errors.Is(err, storage.ErrCartItemNotFound),
		errors.Is(err, storage.ErrUserNotFound):
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	case errors.Is(err, storage.ErrLocked):
		return fmt.Errorf("%w: %w", ErrLockTimeout, err)
	case errors.Is(err, storage.ErrUserExists):
		return fmt.Errorf("%w: %w", ErrEmailTaken, err)
	}
	return err
}

// outcome возвращает метку результата операции для метрик.
func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrInsufficientStock):
		return "insufficient_stock"
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrProductInactive):
		return "not_found"
	case errors.Is(err, ErrEmptyCart):
		return "empty_cart"
	case errors.Is(err, ErrValidation):
		return "invalid"
	case errors.Is(err, ErrLockTimeout):
		return "lock_timeout"
	default:
		return "error"
	}
}

func rollback(logger *slog.Logger, tx *sql.Tx) {
	if rbErr := tx.Rollback(); rbErr != nil {
		logger.Error("transaction rollback failed", slog.Any("error", rbErr))
	}
}
