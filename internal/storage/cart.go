package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"github.com/linemk/shop-backend/internal/domain/models"
)

var ErrCartItemNotFound = errors.New("cart item not found")

// CartStorage описывает методы для работы с корзиной.
// Все методы с суффиксом Tx выполняются в транзакции вызывающего.
type CartStorage interface {
	// GetItemByIDTx читает строку корзины пользователя без блокировки.
	GetItemByIDTx(ctx context.Context, tx *sql.Tx, userID, itemID int64) (*models.CartItem, error)
	LockItemByIDTx(ctx context.Context, tx *sql.Tx, userID, itemID int64) (*models.CartItem, error)
	LockItemByProductTx(ctx context.Context, tx *sql.Tx, userID, productID int64) (*models.CartItem, error)
	// UpsertItemTx выставляет количество для пары (пользователь, товар), создавая строку при необходимости.
	UpsertItemTx(ctx context.Context, tx *sql.Tx, userID, productID int64, quantity int) (*models.CartItem, error)
	UpdateQuantityTx(ctx context.Context, tx *sql.Tx, itemID int64, quantity int) error
	DeleteItemTx(ctx context.Context, tx *sql.Tx, itemID int64) error
	// ListLinesByUser возвращает строки корзины вместе с товарами.
	ListLinesByUser(ctx context.Context, userID int64) ([]*models.CartLine, error)
	// LockLinesByUserTx то же самое, но строки корзины блокируются до конца транзакции.
	LockLinesByUserTx(ctx context.Context, tx *sql.Tx, userID int64) ([]*models.CartLine, error)
	// DeleteItemsTx удаляет перечисленные строки корзины пользователя.
	// Строки, добавленные после чтения корзины, остаются на месте.
	DeleteItemsTx(ctx context.Context, tx *sql.Tx, userID int64, itemIDs []int64) error
}

type cartRepository struct {
	db *sql.DB
}

func NewCartRepository(db *sql.DB) CartStorage {
	return &cartRepository{db: db}
}

const cartItemColumns = "id, user_id, product_id, quantity, created_at, updated_at"

func scanCartItem(row rowScanner) (*models.CartItem, error) {
	item := &models.CartItem{}
	if err := row.Scan(&item.ID, &item.UserID, &item.ProductID, &item.Quantity, &item.CreatedAt, &item.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCartItemNotFound
		}
		return nil, mapLockError(err)
	}
	return item, nil
}

func (r *cartRepository) GetItemByIDTx(ctx context.Context, tx *sql.Tx, userID, itemID int64) (*models.CartItem, error) {
	row := tx.QueryRowContext(ctx,
		"SELECT "+cartItemColumns+" FROM cart_items WHERE id = $1 AND user_id = $2",
		itemID, userID,
	)
	return scanCartItem(row)
}

func (r *cartRepository) LockItemByIDTx(ctx context.Context, tx *sql.Tx, userID, itemID int64) (*models.CartItem, error) {
	row := tx.QueryRowContext(ctx,
		"SELECT "+cartItemColumns+" FROM cart_items WHERE id = $1 AND user_id = $2 FOR UPDATE",
		itemID, userID,
	)
	return scanCartItem(row)
}

func (r *cartRepository) LockItemByProductTx(ctx context.Context, tx *sql.Tx, userID, productID int64) (*models.CartItem, error) {
	row := tx.QueryRowContext(ctx,
		"SELECT "+cartItemColumns+" FROM cart_items WHERE user_id = $1 AND product_id = $2 FOR UPDATE",
		userID, productID,
	)
	return scanCartItem(row)
}

func (r *cartRepository) UpsertItemTx(ctx context.Context, tx *sql.Tx, userID, productID int64, quantity int) (*models.CartItem, error) {
	query := `INSERT INTO cart_items (user_id, product_id, quantity)
	          VALUES ($1, $2, $3)
	          ON CONFLICT (user_id, product_id) DO UPDATE SET quantity = EXCLUDED.quantity, updated_at = NOW()
	          RETURNING ` + cartItemColumns
	row := tx.QueryRowContext(ctx, query, userID, productID, quantity)
	item, err := scanCartItem(row)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert cart item: %w", err)
	}
	return item, nil
}

func (r *cartRepository) UpdateQuantityTx(ctx context.Context, tx *sql.Tx, itemID int64, quantity int) error {
	res, err := tx.ExecContext(ctx,
		"UPDATE cart_items SET quantity = $1, updated_at = NOW() WHERE id = $2",
		quantity, itemID,
	)
	if err != nil {
		return mapLockError(err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrCartItemNotFound
	}
	return nil
}

func (r *cartRepository) DeleteItemTx(ctx context.Context, tx *sql.Tx, itemID int64) error {
	res, err := tx.ExecContext(ctx, "DELETE FROM cart_items WHERE id = $1", itemID)
	if err != nil {
		return mapLockError(err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrCartItemNotFound
	}
	return nil
}

const cartLinesQuery = `
	SELECT c.id, c.user_id, c.product_id, c.quantity, c.created_at, c.updated_at,
	       p.id, p.name, p.category, p.description, p.specifications, p.price, p.stock, p.image_url, p.is_active, p.created_at, p.updated_at
	FROM cart_items c
	JOIN products p ON p.id = c.product_id
	WHERE c.user_id = $1
	ORDER BY c.id`

func (r *cartRepository) ListLinesByUser(ctx context.Context, userID int64) ([]*models.CartLine, error) {
	rows, err := r.db.QueryContext(ctx, cartLinesQuery, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query cart: %w", err)
	}
	return collectCartLines(rows)
}

func (r *cartRepository) LockLinesByUserTx(ctx context.Context, tx *sql.Tx, userID int64) ([]*models.CartLine, error) {
	rows, err := tx.QueryContext(ctx, cartLinesQuery+" FOR UPDATE OF c", userID)
	if err != nil {
		return nil, fmt.Errorf("failed to lock cart: %w", mapLockError(err))
	}
	return collectCartLines(rows)
}

func collectCartLines(rows *sql.Rows) ([]*models.CartLine, error) {
	defer rows.Close()

	var lines []*models.CartLine
	for rows.Next() {
		item := &models.CartItem{}
		p := &models.Product{}
		if err := rows.Scan(
			&item.ID, &item.UserID, &item.ProductID, &item.Quantity, &item.CreatedAt, &item.UpdatedAt,
			&p.ID, &p.Name, &p.Category, &p.Description, &p.Specifications, &p.Price, &p.Stock, &p.ImageURL, &p.IsActive, &p.CreatedAt, &p.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan cart line: %w", err)
		}
		lines = append(lines, &models.CartLine{Item: item, Product: p})
	}
	if err := rows.Err(); err != nil {
		return nil, mapLockError(err)
	}
	return lines, nil
}

func (r *cartRepository) DeleteItemsTx(ctx context.Context, tx *sql.Tx, userID int64, itemIDs []int64) error {
	if len(itemIDs) == 0 {
		return nil
	}
	_, err := tx.ExecContext(ctx,
		"DELETE FROM cart_items WHERE user_id = $1 AND id = ANY($2)",
		userID, pq.Array(itemIDs),
	)
	if err != nil {
		return fmt.Errorf("failed to delete cart items: %w", mapLockError(err))
	}
	return nil
}
