package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusConfirmed  OrderStatus = "confirmed"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

var orderStatusRank = map[OrderStatus]int{
	OrderStatusPending:    0,
	OrderStatusConfirmed:  1,
	OrderStatusProcessing: 2,
	OrderStatusShipped:    3,
	OrderStatusDelivered:  4,
}

// OrderStatuses lists every status the order service accepts, in progression order.
var OrderStatuses = []OrderStatus{
	OrderStatusPending,
	OrderStatusConfirmed,
	OrderStatusProcessing,
	OrderStatusShipped,
	OrderStatusDelivered,
	OrderStatusCancelled,
}

func (s OrderStatus) Valid() bool {
	if s == OrderStatusCancelled {
		return true
	}
	_, ok := orderStatusRank[s]
	return ok
}

// Rank is the position of the status in the fulfilment progression, -1 for
// cancelled or unknown statuses.
func (s OrderStatus) Rank() int {
	if r, ok := orderStatusRank[s]; ok {
		return r
	}
	return -1
}

func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusDelivered || s == OrderStatusCancelled
}

// Reached reports whether an order in status s has passed milestone step.
func (s OrderStatus) Reached(step OrderStatus) bool {
	return s.Rank() >= 0 && s.Rank() >= step.Rank()
}

// CanTransitionTo allows forward moves along the progression and cancellation
// of any non-terminal order.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	if s.IsTerminal() || !next.Valid() {
		return false
	}
	if next == OrderStatusCancelled {
		return true
	}
	return next.Rank() > s.Rank()
}

func (s OrderStatus) String() string {
	return string(s)
}

type OrderItem struct {
	ID        int64           `json:"id,omitempty"`
	ProductID int64           `json:"product_id"`
	Product   *ProductRef     `json:"product,omitempty"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
}

func (i OrderItem) LineTotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

type Order struct {
	ID              int64           `json:"id"`
	OrderNumber     string          `json:"order_number"`
	CustomerName    string          `json:"customer_name"`
	CustomerEmail   string          `json:"customer_email"`
	ShippingAddress string          `json:"shipping_address"`
	TotalAmount     decimal.Decimal `json:"total_amount"`
	Status          OrderStatus     `json:"status"`
	Items           []OrderItem     `json:"items"`
	CreatedAt       time.Time       `json:"created_at"`
}

// OrderStats backs the admin dashboard summary cards.
type OrderStats struct {
	TotalOrders        int                 `json:"total_orders"`
	TotalRevenue       decimal.Decimal     `json:"total_revenue"`
	StatusBreakdown    map[OrderStatus]int `json:"status_breakdown,omitempty"`
	RecentOrders30Days int                 `json:"recent_orders_30_days"`
}
