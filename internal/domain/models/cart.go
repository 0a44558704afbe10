package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// CartItem — строка корзины пользователя, одна на пару (пользователь, товар)
type CartItem struct {
	ID        int64
	UserID    int64
	ProductID int64
	Quantity  int
	CreatedAt time.Time
	UpdatedAt time.Time
}

// CartLine: строка корзины вместе с товаром, заполняется через JOIN с products
type CartLine struct {
	Item    *CartItem
	Product *Product
}

// LineTotal возвращает стоимость строки по текущей цене товара.
func (l *CartLine) LineTotal() decimal.Decimal {
	return l.Product.Price.Mul(decimal.NewFromInt(int64(l.Item.Quantity)))
}
