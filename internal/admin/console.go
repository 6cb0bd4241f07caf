package admin

import (
	"context"
	"fmt"

	"github.com/fjod/go_cart/storefront/internal/client"
	"github.com/fjod/go_cart/storefront/internal/domain"
)

type ConsoleBackend interface {
	ListOrders(ctx context.Context, status domain.OrderStatus) ([]domain.Order, error)
	UpdateOrderStatus(ctx context.Context, orderID int64, status domain.OrderStatus) (*domain.Order, error)
	OrderStats(ctx context.Context) (*domain.OrderStats, error)
	AdminProducts(ctx context.Context, page, perPage int) (*domain.ProductPage, error)
	CreateProduct(ctx context.Context, in client.ProductInput) (*domain.Product, error)
	UpdateProduct(ctx context.Context, productID int64, in client.ProductInput) (*domain.Product, error)
	DeleteProduct(ctx context.Context, productID int64) error
}

var ErrInvalidStatus = fmt.Errorf("invalid order status, expected one of %v", domain.OrderStatuses)

// Console runs the admin dashboard calls, each one behind the session guard.
type Console struct {
	session *Session
	backend ConsoleBackend
}

func NewConsole(session *Session, backend ConsoleBackend) *Console {
	return &Console{session: session, backend: backend}
}

func (c *Console) Orders(ctx context.Context, status domain.OrderStatus) ([]domain.Order, error) {
	if err := c.session.Require(); err != nil {
		return nil, err
	}
	if status != "" && !status.Valid() {
		return nil, ErrInvalidStatus
	}
	return c.backend.ListOrders(ctx, status)
}

func (c *Console) SetOrderStatus(ctx context.Context, orderID int64, status domain.OrderStatus) (*domain.Order, error) {
	if err := c.session.Require(); err != nil {
		return nil, err
	}
	if !status.Valid() {
		return nil, ErrInvalidStatus
	}
	return c.backend.UpdateOrderStatus(ctx, orderID, status)
}

func (c *Console) Stats(ctx context.Context) (*domain.OrderStats, error) {
	if err := c.session.Require(); err != nil {
		return nil, err
	}
	return c.backend.OrderStats(ctx)
}

// Products lists the whole catalog, deactivated products included, so a
// deleted product can be found and switched back on.
func (c *Console) Products(ctx context.Context, page, perPage int) (*domain.ProductPage, error) {
	if err := c.session.Require(); err != nil {
		return nil, err
	}
	return c.backend.AdminProducts(ctx, page, perPage)
}

func (c *Console) CreateProduct(ctx context.Context, in client.ProductInput) (*domain.Product, error) {
	if err := c.session.Require(); err != nil {
		return nil, err
	}
	return c.backend.CreateProduct(ctx, in)
}

func (c *Console) UpdateProduct(ctx context.Context, productID int64, in client.ProductInput) (*domain.Product, error) {
	if err := c.session.Require(); err != nil {
		return nil, err
	}
	return c.backend.UpdateProduct(ctx, productID, in)
}

// DeleteProduct deactivates the product; the backend keeps the row for
// existing orders.
func (c *Console) DeleteProduct(ctx context.Context, productID int64) error {
	if err := c.session.Require(); err != nil {
		return err
	}
	return c.backend.DeleteProduct(ctx, productID)
}
