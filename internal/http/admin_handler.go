package http

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/fjod/go_cart/storefront/internal/catalog"
	"github.com/fjod/go_cart/storefront/internal/client"
	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

type AdminHandler struct {
	catalog  *catalog.Service
	validate *validator.Validate
	timeout  time.Duration
}

func NewAdminHandler(catalog *catalog.Service, timeout time.Duration) *AdminHandler {
	return &AdminHandler{
		catalog:  catalog,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		timeout:  timeout,
	}
}

type AdminSessionDTO struct {
	Authenticated bool          `json:"authenticated"`
	Admin         *domain.Admin `json:"admin"`
	Decision      string        `json:"decision"`
}

type LoginRequestDTO struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type UpdateStatusRequestDTO struct {
	Status domain.OrderStatus `json:"status"`
}

type OrdersResponseDTO struct {
	Orders []domain.Order `json:"orders"`
}

type ProductRequestDTO struct {
	Name          *string          `json:"name" validate:"omitempty,min=1,max=200"`
	Description   *string          `json:"description"`
	Price         *decimal.Decimal `json:"price"`
	Category      *string          `json:"category" validate:"omitempty,max=100"`
	StockQuantity *int             `json:"stock_quantity" validate:"omitempty,gte=0"`
	ImageURL      *string          `json:"image_url" validate:"omitempty,max=500"`
	IsActive      *bool            `json:"is_active"`
}

func (d ProductRequestDTO) input() client.ProductInput {
	return client.ProductInput(d)
}

func (h *AdminHandler) sessionView(r *http.Request) AdminSessionDTO {
	s := sessionFrom(r.Context()).Admin
	return AdminSessionDTO{
		Authenticated: s.IsAuthenticated(),
		Admin:         s.Admin(),
		Decision:      s.Guard().String(),
	}
}

// GET /api/admin/session
// The first call for a browser settles the auth check before answering.
func (h *AdminHandler) Session(w http.ResponseWriter, r *http.Request) {
	s := sessionFrom(r.Context()).Admin
	if s.IsLoading() {
		ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
		defer cancel()
		s.CheckAuthStatus(ctx)
	}
	respondJSON(w, http.StatusOK, h.sessionView(r))
}

// POST /api/admin/login
func (h *AdminHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()
	if _, err := sessionFrom(r.Context()).Admin.Login(ctx, strings.TrimSpace(req.Username), req.Password); err != nil {
		handleError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, h.sessionView(r))
}

// POST /api/admin/logout
func (h *AdminHandler) Logout(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()
	sessionFrom(r.Context()).Admin.Logout(ctx)
	respondJSON(w, http.StatusOK, h.sessionView(r))
}

// POST /api/admin/setup
func (h *AdminHandler) CreateDefaultAdmin(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()
	creds, err := sessionFrom(r.Context()).Admin.CreateDefaultAdmin(ctx)
	if err != nil {
		handleError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, creds)
}

// GET /api/admin/orders?status=
func (h *AdminHandler) Orders(w http.ResponseWriter, r *http.Request) {
	status := domain.OrderStatus(r.URL.Query().Get("status"))

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()
	orders, err := sessionFrom(r.Context()).Console.Orders(ctx, status)
	if err != nil {
		handleError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, OrdersResponseDTO{Orders: orders})
}

// GET /api/admin/orders/stats
func (h *AdminHandler) Stats(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()
	stats, err := sessionFrom(r.Context()).Console.Stats(ctx)
	if err != nil {
		handleError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, stats)
}

// PUT /api/admin/orders/{order_id}/status
func (h *AdminHandler) SetOrderStatus(w http.ResponseWriter, r *http.Request) {
	orderID, ok := pathID(r, "order_id")
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid_order_id", "order_id must be a positive integer")
		return
	}
	var req UpdateStatusRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()
	order, err := sessionFrom(r.Context()).Console.SetOrderStatus(ctx, orderID, req.Status)
	if err != nil {
		handleError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, order)
}

// GET /api/admin/products?page=&per_page=
func (h *AdminHandler) Products(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, err := queryInt(q.Get("page"), 1)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_page", "page must be a positive integer")
		return
	}
	perPage, err := queryInt(q.Get("per_page"), 20)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_per_page", "per_page must be a positive integer")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()
	products, err := sessionFrom(r.Context()).Console.Products(ctx, page, perPage)
	if err != nil {
		handleError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, products)
}

// POST /api/admin/products
func (h *AdminHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeProduct(w, r)
	if !ok {
		return
	}
	if req.Name == nil || req.Price == nil {
		respondError(w, http.StatusBadRequest, "invalid_product", "name and price are required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()
	product, err := sessionFrom(r.Context()).Console.CreateProduct(ctx, req.input())
	if err != nil {
		handleError(w, err)
		return
	}
	h.catalog.Invalidate(r.Context(), product.ID)
	respondJSON(w, http.StatusCreated, product)
}

// PUT /api/admin/products/{product_id}
func (h *AdminHandler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "product_id")
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid_product_id", "product_id must be a positive integer")
		return
	}
	req, ok := h.decodeProduct(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()
	product, err := sessionFrom(r.Context()).Console.UpdateProduct(ctx, id, req.input())
	if err != nil {
		handleError(w, err)
		return
	}
	h.catalog.Invalidate(r.Context(), id)
	respondJSON(w, http.StatusOK, product)
}

// DELETE /api/admin/products/{product_id}
func (h *AdminHandler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "product_id")
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid_product_id", "product_id must be a positive integer")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()
	if err := sessionFrom(r.Context()).Console.DeleteProduct(ctx, id); err != nil {
		handleError(w, err)
		return
	}
	h.catalog.Invalidate(r.Context(), id)
	w.WriteHeader(http.StatusNoContent)
}

func (h *AdminHandler) decodeProduct(w http.ResponseWriter, r *http.Request) (ProductRequestDTO, bool) {
	var req ProductRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return req, false
	}
	if err := h.validate.Struct(req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_product", err.Error())
		return req, false
	}
	if req.Price != nil && req.Price.IsNegative() {
		respondError(w, http.StatusBadRequest, "invalid_product", "price must not be negative")
		return req, false
	}
	return req, true
}
