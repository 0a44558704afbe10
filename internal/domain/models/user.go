package models

import "time"

// User представляет пользователя
type User struct {
	ID        int64
	Name      string
	Email     string
	PassHash  []byte
	Phone     string
	Address   string
	City      string
	Country   string
	Avatar    string
	CreatedAt time.Time
}
