package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/shopspring/decimal"
)

type AuthStatus struct {
	Authenticated bool          `json:"authenticated"`
	Admin         *domain.Admin `json:"admin,omitempty"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type DefaultAdminCredentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// ProductInput carries the admin product form. Nil fields are left untouched
// on update.
type ProductInput struct {
	Name          *string          `json:"name,omitempty"`
	Description   *string          `json:"description,omitempty"`
	Price         *decimal.Decimal `json:"price,omitempty"`
	Category      *string          `json:"category,omitempty"`
	StockQuantity *int             `json:"stock_quantity,omitempty"`
	ImageURL      *string          `json:"image_url,omitempty"`
	IsActive      *bool            `json:"is_active,omitempty"`
}

type productEnvelope struct {
	Product *domain.Product `json:"product"`
}

type orderEnvelope struct {
	Order *domain.Order `json:"order"`
}

// GET /admin/check-auth
func (c *Client) CheckAuth(ctx context.Context) (AuthStatus, error) {
	var status AuthStatus
	err := c.do(ctx, http.MethodGet, "/admin/check-auth", nil, &status)
	return status, err
}

// POST /admin/login
func (c *Client) Login(ctx context.Context, username, password string) (*domain.Admin, error) {
	var resp struct {
		Admin *domain.Admin `json:"admin"`
	}
	if err := c.do(ctx, http.MethodPost, "/admin/login", LoginRequest{Username: username, Password: password}, &resp); err != nil {
		return nil, err
	}
	if resp.Admin == nil {
		return nil, fmt.Errorf("login response carries no admin")
	}
	return resp.Admin, nil
}

// POST /admin/logout
func (c *Client) Logout(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/admin/logout", nil, nil)
}

// POST /admin/create-default
func (c *Client) CreateDefaultAdmin(ctx context.Context) (*DefaultAdminCredentials, error) {
	var resp struct {
		Credentials *DefaultAdminCredentials `json:"credentials"`
	}
	if err := c.do(ctx, http.MethodPost, "/admin/create-default", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Credentials, nil
}

// GET /admin/orders[?status=]
func (c *Client) ListOrders(ctx context.Context, status domain.OrderStatus) ([]domain.Order, error) {
	path := "/admin/orders"
	if status != "" {
		path += "?" + url.Values{"status": {string(status)}}.Encode()
	}
	var resp struct {
		Orders []domain.Order `json:"orders"`
	}
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Orders, nil
}

// PUT /admin/orders/{orderID}
func (c *Client) UpdateOrderStatus(ctx context.Context, orderID int64, status domain.OrderStatus) (*domain.Order, error) {
	var resp orderEnvelope
	body := map[string]domain.OrderStatus{"status": status}
	if err := c.do(ctx, http.MethodPut, fmt.Sprintf("/admin/orders/%d", orderID), body, &resp); err != nil {
		return nil, err
	}
	return resp.Order, nil
}

// GET /admin/orders/stats
func (c *Client) OrderStats(ctx context.Context) (*domain.OrderStats, error) {
	var stats domain.OrderStats
	if err := c.do(ctx, http.MethodGet, "/admin/orders/stats", nil, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

// GET /admin/products?page=&per_page=
//
// Unlike ListProducts the result includes deactivated products.
func (c *Client) AdminProducts(ctx context.Context, page, perPage int) (*domain.ProductPage, error) {
	v := url.Values{}
	if page > 0 {
		v.Set("page", strconv.Itoa(page))
	}
	if perPage > 0 {
		v.Set("per_page", strconv.Itoa(perPage))
	}
	path := "/admin/products"
	if len(v) > 0 {
		path += "?" + v.Encode()
	}
	var resp domain.ProductPage
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// POST /admin/products
func (c *Client) CreateProduct(ctx context.Context, in ProductInput) (*domain.Product, error) {
	var resp productEnvelope
	if err := c.do(ctx, http.MethodPost, "/admin/products", in, &resp); err != nil {
		return nil, err
	}
	return resp.Product, nil
}

// PUT /admin/products/{productID}
func (c *Client) UpdateProduct(ctx context.Context, productID int64, in ProductInput) (*domain.Product, error) {
	var resp productEnvelope
	if err := c.do(ctx, http.MethodPut, fmt.Sprintf("/admin/products/%d", productID), in, &resp); err != nil {
		return nil, err
	}
	return resp.Product, nil
}

// DELETE /admin/products/{productID}
func (c *Client) DeleteProduct(ctx context.Context, productID int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/admin/products/%d", productID), nil, nil)
}
