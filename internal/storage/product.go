package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/linemk/shop-backend/internal/domain/models"
)

var (
	ErrProductNotFound = errors.New("product not found")
	ErrStockUnderflow  = errors.New("stock cannot become negative")
)

// ProductStorage описывает методы для работы с каталогом и остатками.
type ProductStorage interface {
	// ListActive возвращает страницу активных товаров, отсортированных по названию, и их общее количество.
	ListActive(ctx context.Context, limit, offset int) ([]*models.Product, int, error)
	GetProductByID(ctx context.Context, id int64) (*models.Product, error)
	// LockProductByIDTx читает товар с блокировкой строки до конца транзакции.
	LockProductByIDTx(ctx context.Context, tx *sql.Tx, id int64) (*models.Product, error)
	// AdjustStockTx меняет остаток на delta (отрицательный delta означает списание).
	AdjustStockTx(ctx context.Context, tx *sql.Tx, id int64, delta int) error
}

type productRepository struct {
	db *sql.DB
}

func NewProductRepository(db *sql.DB) ProductStorage {
	return &productRepository{db: db}
}

const productColumns = "id, name, category, description, specifications, price, stock, image_url, is_active, created_at, updated_at"

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner) (*models.Product, error) {
	p := &models.Product{}
	err := row.Scan(&p.ID, &p.Name, &p.Category, &p.Description, &p.Specifications,
		&p.Price, &p.Stock, &p.ImageURL, &p.IsActive, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (r *productRepository) ListActive(ctx context.Context, limit, offset int) ([]*models.Product, int, error) {
	var total int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM products WHERE is_active").Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count products: %w", err)
	}

	query := "SELECT " + productColumns + " FROM products WHERE is_active ORDER BY name LIMIT $1 OFFSET $2"
	rows, err := r.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query products: %w", err)
	}
	defer rows.Close()

	products := make([]*models.Product, 0, limit)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return products, total, nil
}

func (r *productRepository) GetProductByID(ctx context.Context, id int64) (*models.Product, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+productColumns+" FROM products WHERE id = $1", id)
	p, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, err
	}
	return p, nil
}

// LockProductByIDTx ждёт блокировку не дольше lock_timeout сессии,
// после чего postgres возвращает 55P03.
func (r *productRepository) LockProductByIDTx(ctx context.Context, tx *sql.Tx, id int64) (*models.Product, error) {
	row := tx.QueryRowContext(ctx, "SELECT "+productColumns+" FROM products WHERE id = $1 FOR UPDATE", id)
	p, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, mapLockError(err)
	}
	return p, nil
}

func (r *productRepository) AdjustStockTx(ctx context.Context, tx *sql.Tx, id int64, delta int) error {
	res, err := tx.ExecContext(ctx,
		"UPDATE products SET stock = stock + $1, updated_at = NOW() WHERE id = $2 AND stock + $1 >= 0",
		delta, id,
	)
	if err != nil {
		if isCheckViolation(err) {
			return ErrStockUnderflow
		}
		return mapLockError(err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrStockUnderflow
	}
	return nil
}
