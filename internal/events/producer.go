package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/linemk/shop-backend/internal/domain/models"
	"github.com/segmentio/kafka-go"
)

var (
	ErrBufferFull = errors.New("event buffer is full")
	ErrStopped    = errors.New("event producer is stopped")
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer отправляет события в kafka из отдельной горутины,
// чтобы запрос не ждал подтверждения брокера.
type Producer struct {
	log          *slog.Logger
	w            messageWriter
	inbox        chan kafka.Message
	done         chan struct{}
	writeTimeout time.Duration

	// mu защищает stopped: после остановки в inbox больше ничего не попадает,
	// поэтому drain забирает все принятые сообщения.
	mu      sync.RWMutex
	stopped bool
}

func NewProducer(log *slog.Logger, brokers []string, topic string, buf int) *Producer {
	return newProducer(log, &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		BatchTimeout: 10 * time.Millisecond,
	}, buf)
}

func newProducer(log *slog.Logger, w messageWriter, buf int) *Producer {
	return &Producer{
		log:          log,
		w:            w,
		inbox:        make(chan kafka.Message, buf),
		done:         make(chan struct{}),
		writeTimeout: 5 * time.Second,
	}
}

// Start запускает отправку. После отмены ctx оставшиеся сообщения дописываются, writer закрывается.
func (p *Producer) Start(ctx context.Context) {
	go func() {
		defer close(p.done)
		for {
			select {
			case <-ctx.Done():
				p.mu.Lock()
				p.stopped = true
				p.mu.Unlock()
				p.drain()
				if err := p.w.Close(); err != nil {
					p.log.Error("failed to close kafka writer", slog.Any("error", err))
				}
				return
			case m := <-p.inbox:
				p.write(m)
			}
		}
	}()
}

func (p *Producer) drain() {
	for {
		select {
		case m := <-p.inbox:
			p.write(m)
		default:
			return
		}
	}
}

func (p *Producer) write(m kafka.Message) {
	ctx, cancel := context.WithTimeout(context.Background(), p.writeTimeout)
	defer cancel()
	if err := p.w.WriteMessages(ctx, m); err != nil {
		p.log.Error("failed to write event", slog.String("key", string(m.Key)), slog.Any("error", err))
	}
}

// Wait блокируется, пока горутина отправки не завершится.
func (p *Producer) Wait() { <-p.done }

// PublishOrderPlaced ставит событие в очередь; ключом сообщения служит id заказа.
func (p *Producer) PublishOrderPlaced(ctx context.Context, order *models.Order) error {
	env, err := NewOrderPlaced(order)
	if err != nil {
		return err
	}
	value, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}
	msg := kafka.Message{
		Key:   []byte(strconv.FormatInt(order.ID, 10)),
		Value: value,
		Time:  env.OccurredAt,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(env.EventType)},
		},
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.stopped {
		return ErrStopped
	}
	select {
	case p.inbox <- msg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		return ErrBufferFull
	}
}

// NoopPublisher используется, когда брокеры не настроены.
type NoopPublisher struct{}

func (NoopPublisher) PublishOrderPlaced(context.Context, *models.Order) error { return nil }
