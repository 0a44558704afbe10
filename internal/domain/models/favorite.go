package models

import "time"

// Favorite — отметка "избранное" пользователя для товара
type Favorite struct {
	UserID    int64
	ProductID int64
	CreatedAt time.Time
}
