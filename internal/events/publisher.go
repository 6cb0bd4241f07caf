// Package events announces placed orders to downstream consumers.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
)

const EventOrderPlaced = "order.placed"

type OrderPlacedItem struct {
	ProductID int64           `json:"product_id"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
}

type OrderPlaced struct {
	OrderNumber   string            `json:"order_number"`
	CustomerEmail string            `json:"customer_email"`
	TotalAmount   decimal.Decimal   `json:"total_amount"`
	Status        string            `json:"status"`
	Items         []OrderPlacedItem `json:"items"`
	PlacedAt      time.Time         `json:"placed_at"`
	RequestID     string            `json:"request_id,omitempty"`
}

func NewOrderPlaced(order *domain.Order, requestID string) OrderPlaced {
	ev := OrderPlaced{
		OrderNumber:   order.OrderNumber,
		CustomerEmail: order.CustomerEmail,
		TotalAmount:   order.TotalAmount,
		Status:        order.Status.String(),
		Items:         make([]OrderPlacedItem, 0, len(order.Items)),
		PlacedAt:      order.CreatedAt,
		RequestID:     requestID,
	}
	for _, it := range order.Items {
		ev.Items = append(ev.Items, OrderPlacedItem{ProductID: it.ProductID, Quantity: it.Quantity, Price: it.Price})
	}
	return ev
}

type Publisher interface {
	PublishOrderPlaced(ctx context.Context, ev OrderPlaced) error
	Close() error
}

// messageWriter is the part of *kafka.Writer the publisher uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type KafkaPublisher struct {
	writer messageWriter
}

func NewKafkaPublisher(topic string, brokers ...string) *KafkaPublisher {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
	}
	return &KafkaPublisher{writer: w}
}

// PublishOrderPlaced keys the message by order number so every event for one
// order lands on the same partition.
func (p *KafkaPublisher) PublishOrderPlaced(ctx context.Context, ev OrderPlaced) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", EventOrderPlaced, err)
	}
	msg := kafka.Message{
		Key:   []byte(ev.OrderNumber),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(EventOrderPlaced)},
		},
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("write %s event for %s: %w", EventOrderPlaced, ev.OrderNumber, err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// NopPublisher drops events. It stands in when no brokers are configured.
type NopPublisher struct{}

func (NopPublisher) PublishOrderPlaced(context.Context, OrderPlaced) error { return nil }
func (NopPublisher) Close() error                                         { return nil }
