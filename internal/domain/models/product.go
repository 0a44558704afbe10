package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product представляет товар каталога.
// Остаток (Stock) меняется только через резервирование в корзине.
type Product struct {
	ID             int64           `json:"id"`
	Name           string          `json:"name"`
	Category       string          `json:"category"`
	Description    string          `json:"description"`
	Specifications string          `json:"specifications"`
	Price          decimal.Decimal `json:"price"`
	Stock          int             `json:"stock"`
	ImageURL       string          `json:"image_url"`
	IsActive       bool            `json:"is_active"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// ProductPage содержит страницу каталога и общее количество активных товаров
type ProductPage struct {
	Products []*Product `json:"products"`
	Page     int        `json:"page"`
	PerPage  int        `json:"per_page"`
	Total    int        `json:"total"`
}
