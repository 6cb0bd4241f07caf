package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/fjod/go_cart/storefront/internal/domain"
)

// CheckoutRequest is the order service's checkout body. ShippingAddress is a
// single line composed from the shipping form.
type CheckoutRequest struct {
	CustomerName    string `json:"customer_name"`
	CustomerEmail   string `json:"customer_email"`
	ShippingAddress string `json:"shipping_address"`
}

type checkoutResponse struct {
	Message string        `json:"message"`
	Order   *domain.Order `json:"order"`
}

// POST /orders/checkout
func (c *Client) Checkout(ctx context.Context, req CheckoutRequest) (*domain.Order, error) {
	var resp checkoutResponse
	if err := c.do(ctx, http.MethodPost, "/orders/checkout", req, &resp); err != nil {
		return nil, err
	}
	if resp.Order == nil || resp.Order.OrderNumber == "" {
		return nil, fmt.Errorf("checkout response carries no order number")
	}
	return resp.Order, nil
}

// GET /orders/{orderNumber}. A 404 matches ErrNotFound.
func (c *Client) GetOrder(ctx context.Context, orderNumber string) (*domain.Order, error) {
	var order domain.Order
	if err := c.do(ctx, http.MethodGet, "/orders/"+url.PathEscape(orderNumber), nil, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

// GET /orders/email/{email}?page=&per_page=
func (c *Client) OrdersByEmail(ctx context.Context, email string, page, perPage int) (*domain.OrderPage, error) {
	q := url.Values{}
	if page > 0 {
		q.Set("page", fmt.Sprint(page))
	}
	if perPage > 0 {
		q.Set("per_page", fmt.Sprint(perPage))
	}
	path := "/orders/email/" + url.PathEscape(email)
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var result domain.OrderPage
	if err := c.do(ctx, http.MethodGet, path, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}
