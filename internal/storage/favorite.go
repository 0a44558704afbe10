package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/linemk/shop-backend/internal/domain/models"
)

// FavoriteStorage описывает методы для работы с избранным.
type FavoriteStorage interface {
	AddFavorite(ctx context.Context, userID, productID int64) error
	// RemoveFavorite возвращает true, если отметка существовала.
	RemoveFavorite(ctx context.Context, userID, productID int64) (bool, error)
	// ListProducts возвращает активные избранные товары, последние добавленные первыми.
	ListProducts(ctx context.Context, userID int64, limit, offset int) ([]*models.Product, int, error)
}

type favoriteRepository struct {
	db *sql.DB
}

func NewFavoriteRepository(db *sql.DB) FavoriteStorage {
	return &favoriteRepository{db: db}
}

func (r *favoriteRepository) AddFavorite(ctx context.Context, userID, productID int64) error {
	_, err := r.db.ExecContext(ctx,
		"INSERT INTO favorites (user_id, product_id) VALUES ($1, $2) ON CONFLICT DO NOTHING",
		userID, productID,
	)
	if err != nil {
		return fmt.Errorf("failed to add favorite: %w", err)
	}
	return nil
}

func (r *favoriteRepository) RemoveFavorite(ctx context.Context, userID, productID int64) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		"DELETE FROM favorites WHERE user_id = $1 AND product_id = $2",
		userID, productID,
	)
	if err != nil {
		return false, fmt.Errorf("failed to remove favorite: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

func (r *favoriteRepository) ListProducts(ctx context.Context, userID int64, limit, offset int) ([]*models.Product, int, error) {
	var total int
	err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM favorites f JOIN products p ON p.id = f.product_id WHERE f.user_id = $1 AND p.is_active",
		userID,
	).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count favorites: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT p.id, p.name, p.category, p.description, p.specifications, p.price, p.stock, p.image_url, p.is_active, p.created_at, p.updated_at
		FROM favorites f
		JOIN products p ON p.id = f.product_id
		WHERE f.user_id = $1 AND p.is_active
		ORDER BY f.created_at DESC
		LIMIT $2 OFFSET $3`, userID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query favorites: %w", err)
	}
	defer rows.Close()

	var products []*models.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan favorite product: %w", err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return products, total, nil
}
