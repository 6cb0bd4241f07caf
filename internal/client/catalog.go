package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/fjod/go_cart/storefront/internal/domain"
)

// ProductQuery mirrors the catalog listing filters. Zero values are omitted.
type ProductQuery struct {
	Page      int
	PerPage   int
	Category  string
	Search    string
	SortBy    string // created_at, price, name
	SortOrder string // asc, desc
}

func (q ProductQuery) Values() url.Values {
	v := url.Values{}
	if q.Page > 0 {
		v.Set("page", fmt.Sprint(q.Page))
	}
	if q.PerPage > 0 {
		v.Set("per_page", fmt.Sprint(q.PerPage))
	}
	if q.Category != "" {
		v.Set("category", q.Category)
	}
	if q.Search != "" {
		v.Set("search", q.Search)
	}
	if q.SortBy != "" {
		v.Set("sort_by", q.SortBy)
	}
	if q.SortOrder != "" {
		v.Set("sort_order", q.SortOrder)
	}
	return v
}

// GET /products
func (c *Client) ListProducts(ctx context.Context, q ProductQuery) (*domain.ProductPage, error) {
	path := "/products"
	if v := q.Values(); len(v) > 0 {
		path += "?" + v.Encode()
	}
	var page domain.ProductPage
	if err := c.do(ctx, http.MethodGet, path, nil, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// GET /products/{id}
func (c *Client) GetProduct(ctx context.Context, id int64) (*domain.Product, error) {
	var product domain.Product
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/products/%d", id), nil, &product); err != nil {
		return nil, err
	}
	return &product, nil
}

// GET /products/categories
func (c *Client) Categories(ctx context.Context) ([]string, error) {
	var resp struct {
		Categories []string `json:"categories"`
	}
	if err := c.do(ctx, http.MethodGet, "/products/categories", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Categories, nil
}
