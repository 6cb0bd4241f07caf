package domain

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestComputeTotals_BelowFreeShipping(t *testing.T) {
	totals := ComputeTotals(dec("40"))

	assert.True(t, totals.Shipping.Equal(dec("9.99")), "shipping = %s", totals.Shipping)
	assert.True(t, totals.Tax.Equal(dec("3.2")), "tax = %s", totals.Tax)
	assert.True(t, totals.Total.Equal(dec("53.19")), "total = %s", totals.Total)
	assert.False(t, totals.FreeShipping())
}

func TestComputeTotals_FreeShipping(t *testing.T) {
	totals := ComputeTotals(dec("60"))

	assert.True(t, totals.Shipping.IsZero())
	assert.True(t, totals.Tax.Equal(dec("4.8")), "tax = %s", totals.Tax)
	assert.True(t, totals.Total.Equal(dec("64.8")), "total = %s", totals.Total)
	assert.True(t, totals.FreeShipping())
}

func TestComputeTotals_ThresholdIsInclusive(t *testing.T) {
	totals := ComputeTotals(dec("50"))
	assert.True(t, totals.Shipping.IsZero())
}

func TestCartItem_LineTotal(t *testing.T) {
	item := CartItem{
		ID:       1,
		Product:  &ProductRef{ID: 7, Price: dec("12.50"), StockQuantity: 4},
		Quantity: 3,
	}
	assert.True(t, item.LineTotal().Equal(dec("37.5")))

	serverSubtotal := dec("30")
	item.Subtotal = &serverSubtotal
	assert.True(t, item.LineTotal().Equal(dec("30")), "server subtotal wins once present")

	assert.True(t, CartItem{Quantity: 2}.LineTotal().IsZero())
}

func TestCartSnapshot_Aggregates(t *testing.T) {
	snap := CartSnapshot{
		Items: []CartItem{
			{ID: 1, Product: &ProductRef{Price: dec("10")}, Quantity: 2},
			{ID: 2, Product: &ProductRef{Price: dec("5.25")}, Quantity: 1},
		},
	}
	assert.Equal(t, 3, snap.SumQuantity())
	assert.True(t, snap.SumLineTotals().Equal(dec("25.25")))

	item, ok := snap.Find(2)
	require.True(t, ok)
	assert.Equal(t, 1, item.Quantity)

	_, ok = snap.Find(99)
	assert.False(t, ok)
	assert.False(t, snap.Empty())
	assert.True(t, EmptySnapshot().Empty())
}

func TestCartSnapshot_CloneIsIndependent(t *testing.T) {
	snap := CartSnapshot{Items: []CartItem{{ID: 1, Quantity: 1}}}
	clone := snap.Clone()
	clone.Items[0].Quantity = 5
	assert.Equal(t, 1, snap.Items[0].Quantity)
}

func TestCartSnapshot_DecodesServerPayload(t *testing.T) {
	payload := `{
		"items": [{"id": 3, "product_id": 9, "quantity": 2, "subtotal": 39.98,
			"product": {"id": 9, "name": "Lamp", "price": 19.99, "stock_quantity": 5}}],
		"item_count": 2,
		"total": 39.98
	}`
	var snap CartSnapshot
	require.NoError(t, json.Unmarshal([]byte(payload), &snap))

	require.Len(t, snap.Items, 1)
	assert.Equal(t, "Lamp", snap.Items[0].Product.Name)
	assert.True(t, snap.Total.Equal(dec("39.98")))
	stock, ok := snap.Items[0].Stock()
	assert.True(t, ok)
	assert.Equal(t, 5, stock)
}

func TestOrderStatus_Progression(t *testing.T) {
	assert.True(t, OrderStatusPending.CanTransitionTo(OrderStatusConfirmed))
	assert.True(t, OrderStatusConfirmed.CanTransitionTo(OrderStatusShipped))
	assert.True(t, OrderStatusProcessing.CanTransitionTo(OrderStatusCancelled))
	assert.False(t, OrderStatusShipped.CanTransitionTo(OrderStatusConfirmed))
	assert.False(t, OrderStatusDelivered.CanTransitionTo(OrderStatusCancelled))
	assert.False(t, OrderStatusPending.CanTransitionTo(OrderStatus("lost")))

	assert.True(t, OrderStatusShipped.Reached(OrderStatusProcessing))
	assert.False(t, OrderStatusConfirmed.Reached(OrderStatusShipped))
	assert.False(t, OrderStatusCancelled.Reached(OrderStatusPending))
	assert.Equal(t, -1, OrderStatus("lost").Rank())
}
