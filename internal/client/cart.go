package client

import (
	"context"
	"fmt"
	"net/http"

	"github.com/fjod/go_cart/storefront/internal/domain"
)

type AddItemRequest struct {
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
}

type UpdateQuantityRequest struct {
	Quantity int `json:"quantity"`
}

// GET /cart
func (c *Client) GetCart(ctx context.Context) (domain.CartSnapshot, error) {
	var snap domain.CartSnapshot
	if err := c.do(ctx, http.MethodGet, "/cart", nil, &snap); err != nil {
		return domain.CartSnapshot{}, err
	}
	if snap.Items == nil {
		snap.Items = []domain.CartItem{}
	}
	return snap, nil
}

// POST /cart/add
func (c *Client) AddCartItem(ctx context.Context, productID int64, quantity int) error {
	return c.do(ctx, http.MethodPost, "/cart/add", AddItemRequest{ProductID: productID, Quantity: quantity}, nil)
}

// PUT /cart/update/{itemID}
func (c *Client) UpdateCartItem(ctx context.Context, itemID int64, quantity int) error {
	return c.do(ctx, http.MethodPut, fmt.Sprintf("/cart/update/%d", itemID), UpdateQuantityRequest{Quantity: quantity}, nil)
}

// DELETE /cart/remove/{itemID}
func (c *Client) RemoveCartItem(ctx context.Context, itemID int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/cart/remove/%d", itemID), nil, nil)
}

// DELETE /cart/clear
func (c *Client) ClearCart(ctx context.Context) error {
	return c.do(ctx, http.MethodDelete, "/cart/clear", nil, nil)
}
