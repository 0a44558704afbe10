package handlers

import (
	"time"

	"github.com/linemk/shop-backend/internal/domain/models"
)

// Денежные суммы отдаются строкой с двумя знаками после запятой.

type ProductResponse struct {
	ID             int64  `json:"id"`
	Name           string `json:"name"`
	Category       string `json:"category"`
	Description    string `json:"description"`
	Specifications string `json:"specifications"`
	Price          string `json:"price"`
	Stock          int    `json:"stock"`
	ImageURL       string `json:"image_url"`
}

func toProductResponse(p *models.Product) ProductResponse {
	return ProductResponse{
		ID:             p.ID,
		Name:           p.Name,
		Category:       p.Category,
		Description:    p.Description,
		Specifications: p.Specifications,
		Price:          p.Price.StringFixed(2),
		Stock:          p.Stock,
		ImageURL:       p.ImageURL,
	}
}

func toProductResponses(products []*models.Product) []ProductResponse {
	res := make([]ProductResponse, 0, len(products))
	for _, p := range products {
		res = append(res, toProductResponse(p))
	}
	return res
}

type CartItemResponse struct {
	ID        int64           `json:"id"`
	Product   ProductResponse `json:"product"`
	Quantity  int             `json:"quantity"`
	LineTotal string          `json:"line_total"`
}

func toCartItemResponse(line *models.CartLine) CartItemResponse {
	return CartItemResponse{
		ID:        line.Item.ID,
		Product:   toProductResponse(line.Product),
		Quantity:  line.Item.Quantity,
		LineTotal: line.LineTotal().StringFixed(2),
	}
}

type OrderItemResponse struct {
	ProductID   int64  `json:"product_id"`
	ProductName string `json:"product_name"`
	UnitPrice   string `json:"unit_price"`
	Quantity    int    `json:"quantity"`
	LineTotal   string `json:"line_total"`
}

type OrderResponse struct {
	ID        int64               `json:"id"`
	Total     string              `json:"total"`
	Status    string              `json:"status"`
	CreatedAt time.Time           `json:"created_at"`
	Items     []OrderItemResponse `json:"items"`
}

func toOrderResponse(o *models.Order) OrderResponse {
	items := make([]OrderItemResponse, 0, len(o.Items))
	for _, it := range o.Items {
		name := it.ProductName
		if name == "" {
			name = "N/A"
		}
		items = append(items, OrderItemResponse{
			ProductID:   it.ProductID,
			ProductName: name,
			UnitPrice:   it.UnitPrice.StringFixed(2),
			Quantity:    it.Quantity,
			LineTotal:   it.LineTotal().StringFixed(2),
		})
	}
	return OrderResponse{
		ID:        o.ID,
		Total:     o.Total.StringFixed(2),
		Status:    o.Status,
		CreatedAt: o.CreatedAt,
		Items:     items,
	}
}

type UserResponse struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	Address   string    `json:"address"`
	City      string    `json:"city"`
	Country   string    `json:"country"`
	Avatar    string    `json:"avatar"`
	CreatedAt time.Time `json:"created_at"`
}

func toUserResponse(u *models.User) UserResponse {
	return UserResponse{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		Phone:     u.Phone,
		Address:   u.Address,
		City:      u.City,
		Country:   u.Country,
		Avatar:    u.Avatar,
		CreatedAt: u.CreatedAt,
	}
}
