package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (w *recordingWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *recordingWriter) Close() error {
	w.closed = true
	return nil
}

func sampleOrder() *domain.Order {
	return &domain.Order{
		ID:            3,
		OrderNumber:   "ORD-20260101120000-ABCDEF12",
		CustomerEmail: "ada@example.com",
		TotalAmount:   decimal.RequireFromString("40.00"),
		Status:        domain.OrderStatusConfirmed,
		Items: []domain.OrderItem{
			{ProductID: 1, Quantity: 2, Price: decimal.RequireFromString("5.00")},
			{ProductID: 2, Quantity: 1, Price: decimal.RequireFromString("30.00")},
		},
		CreatedAt: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestPublishOrderPlaced_WritesKeyedMessage(t *testing.T) {
	w := &recordingWriter{}
	p := &KafkaPublisher{writer: w}

	err := p.PublishOrderPlaced(context.Background(), NewOrderPlaced(sampleOrder(), "req-1"))
	require.NoError(t, err)

	require.Len(t, w.msgs, 1)
	msg := w.msgs[0]
	assert.Equal(t, "ORD-20260101120000-ABCDEF12", string(msg.Key))
	require.Len(t, msg.Headers, 1)
	assert.Equal(t, "event_type", msg.Headers[0].Key)
	assert.Equal(t, EventOrderPlaced, string(msg.Headers[0].Value))

	var ev OrderPlaced
	require.NoError(t, json.Unmarshal(msg.Value, &ev))
	assert.Equal(t, "ada@example.com", ev.CustomerEmail)
	assert.Equal(t, "confirmed", ev.Status)
	assert.Equal(t, "req-1", ev.RequestID)
	assert.Len(t, ev.Items, 2)
	assert.True(t, ev.TotalAmount.Equal(decimal.NewFromInt(40)))
}

func TestPublishOrderPlaced_WriterError(t *testing.T) {
	cause := errors.New("broker unavailable")
	p := &KafkaPublisher{writer: &recordingWriter{err: cause}}

	err := p.PublishOrderPlaced(context.Background(), NewOrderPlaced(sampleOrder(), ""))
	assert.ErrorIs(t, err, cause)
	assert.ErrorContains(t, err, "ORD-20260101120000-ABCDEF12")
}

func TestKafkaPublisher_Close(t *testing.T) {
	w := &recordingWriter{}
	p := &KafkaPublisher{writer: w}
	require.NoError(t, p.Close())
	assert.True(t, w.closed)
}

func TestNewKafkaPublisher_ConfiguresWriter(t *testing.T) {
	p := NewKafkaPublisher("storefront-orders", "localhost:9092")
	w, ok := p.writer.(*kafka.Writer)
	require.True(t, ok)
	assert.Equal(t, "storefront-orders", w.Topic)
	assert.Equal(t, "localhost:9092", w.Addr.String())
	require.NoError(t, p.Close())
}

func TestNopPublisher(t *testing.T) {
	var p Publisher = NopPublisher{}
	assert.NoError(t, p.PublishOrderPlaced(context.Background(), OrderPlaced{}))
	assert.NoError(t, p.Close())
}
