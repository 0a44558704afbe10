package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"sync"
	"testing"

	"github.com/linemk/shop-backend/internal/domain/models"
	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	mu     sync.Mutex
	msgs   []kafka.Message
	closed bool
}

func (f *fakeWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeWriter) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func testOrder() *models.Order {
	return &models.Order{
		ID:     42,
		UserID: 5,
		Total:  decimal.RequireFromString("11.00"),
		Status: models.OrderStatusPaid,
		Items: []*models.OrderItem{
			{ProductID: 10, ProductName: "Cable", UnitPrice: decimal.RequireFromString("3.00"), Quantity: 1},
			{ProductID: 11, ProductName: "Case", UnitPrice: decimal.RequireFromString("4.00"), Quantity: 2},
		},
	}
}

func TestProducer_PublishOrderPlaced(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	w := &fakeWriter{}
	p := newProducer(logger, w, 8)

	ctx, cancel := context.WithCancel(context.Background())
	p.Start(ctx)

	require.NoError(t, p.PublishOrderPlaced(context.Background(), testOrder()))

	// после отмены оставшиеся сообщения дописываются
	cancel()
	p.Wait()

	w.mu.Lock()
	defer w.mu.Unlock()
	require.Len(t, w.msgs, 1)
	assert.True(t, w.closed, "Writer should be closed on shutdown")
	assert.Equal(t, "42", string(w.msgs[0].Key), "Message key should be the order id")

	var env Envelope
	require.NoError(t, json.Unmarshal(w.msgs[0].Value, &env))
	assert.Equal(t, EventOrderPlaced, env.EventType)
	assert.Equal(t, 1, env.EventVersion)
	assert.Equal(t, "42", env.CorrelationID)
	assert.NotEmpty(t, env.EventID)

	var payload OrderPlacedPayload
	require.NoError(t, json.Unmarshal(env.Payload, &payload))
	assert.Equal(t, int64(42), payload.OrderID)
	assert.Len(t, payload.Items, 2)
	assert.True(t, decimal.RequireFromString("11").Equal(payload.Total))
}

func TestProducer_BufferFull(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	// горутина отправки не запущена, буфер на одно сообщение
	p := newProducer(logger, &fakeWriter{}, 1)

	assert.NoError(t, p.PublishOrderPlaced(context.Background(), testOrder()))
	assert.ErrorIs(t, p.PublishOrderPlaced(context.Background(), testOrder()), ErrBufferFull)
}

func TestProducer_RejectsAfterStop(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	w := &fakeWriter{}
	p := newProducer(logger, w, 8)

	ctx, cancel := context.WithCancel(context.Background())
	p.Start(ctx)
	cancel()
	p.Wait()

	// сообщение после остановки никто не прочитает, поэтому оно отклоняется
	err := p.PublishOrderPlaced(context.Background(), testOrder())
	assert.ErrorIs(t, err, ErrStopped)
	assert.Empty(t, w.msgs)
}
