package http

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/fjod/go_cart/storefront/internal/catalog"
	"github.com/fjod/go_cart/storefront/internal/client"
	"github.com/go-playground/validator/v10"
)

type ProductHandler struct {
	catalog  *catalog.Service
	validate *validator.Validate
	timeout  time.Duration
}

func NewProductHandler(catalog *catalog.Service, timeout time.Duration) *ProductHandler {
	return &ProductHandler{
		catalog:  catalog,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		timeout:  timeout,
	}
}

type productQueryDTO struct {
	Page      int    `validate:"gte=0"`
	PerPage   int    `validate:"gte=0,lte=100"`
	Category  string `validate:"max=100"`
	Search    string `validate:"max=200"`
	SortBy    string `validate:"omitempty,oneof=created_at price name"`
	SortOrder string `validate:"omitempty,oneof=asc desc"`
}

// GET /api/products
func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	dto := productQueryDTO{
		Category:  strings.TrimSpace(q.Get("category")),
		Search:    strings.TrimSpace(q.Get("search")),
		SortBy:    q.Get("sort_by"),
		SortOrder: strings.ToLower(q.Get("sort_order")),
	}
	var err error
	if dto.Page, err = queryInt(q.Get("page"), 0); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_page", "page must be a positive integer")
		return
	}
	if dto.PerPage, err = queryInt(q.Get("per_page"), 0); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_per_page", "per_page must be a positive integer")
		return
	}
	if err := h.validate.Struct(dto); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_query", err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()
	page, err := h.catalog.ListProducts(ctx, client.ProductQuery(dto))
	if err != nil {
		handleError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, page)
}

// GET /api/products/{product_id}
func (h *ProductHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "product_id")
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid_product_id", "product_id must be a positive integer")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()
	product, err := h.catalog.GetProduct(ctx, id)
	if err != nil {
		handleError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, product)
}

type CategoriesResponse struct {
	Categories []string `json:"categories"`
}

// GET /api/products/categories
func (h *ProductHandler) Categories(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()
	cats, err := h.catalog.Categories(ctx)
	if err != nil {
		handleError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, CategoriesResponse{Categories: cats})
}
