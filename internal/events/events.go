package events

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/linemk/shop-backend/internal/domain/models"
	"github.com/shopspring/decimal"
)

const (
	EventOrderPlaced = "OrderPlaced"

	eventVersion = 1
	producerName = "shop-backend"
)

// Envelope — общая обёртка для всех событий в топике.
type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	EventVersion  int             `json:"event_version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"`
	CorrelationID string          `json:"correlation_id,omitempty"` // id заказа
	Payload       json.RawMessage `json:"payload"`
}

type OrderItemPayload struct {
	ProductID int64           `json:"product_id"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

type OrderPlacedPayload struct {
	OrderID int64              `json:"order_id"`
	UserID  int64              `json:"user_id"`
	Total   decimal.Decimal    `json:"total"`
	Items   []OrderItemPayload `json:"items"`
}

// NewOrderPlaced собирает событие об оформленном заказе.
func NewOrderPlaced(order *models.Order) (*Envelope, error) {
	payload := OrderPlacedPayload{
		OrderID: order.ID,
		UserID:  order.UserID,
		Total:   order.Total,
		Items:   make([]OrderItemPayload, 0, len(order.Items)),
	}
	for _, it := range order.Items {
		payload.Items = append(payload.Items, OrderItemPayload{
			ProductID: it.ProductID,
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPrice,
		})
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode payload: %w", err)
	}
	return &Envelope{
		EventID:       uuid.NewString(),
		EventType:     EventOrderPlaced,
		EventVersion:  eventVersion,
		OccurredAt:    time.Now().UTC(),
		Producer:      producerName,
		CorrelationID: strconv.FormatInt(order.ID, 10),
		Payload:       raw,
	}, nil
}
