package http

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/go-chi/chi/v5"
)

type CartHandler struct{}

func NewCartHandler() *CartHandler {
	return &CartHandler{}
}

type AddItemRequestDTO struct {
	ProductID int64 `json:"product_id"`
	Quantity  *int  `json:"quantity"`
}

type UpdateQuantityRequestDTO struct {
	Quantity int `json:"quantity"`
}

type TotalsDTO struct {
	domain.Totals
	FreeShipping bool `json:"free_shipping"`
}

func newTotalsDTO(t domain.Totals) TotalsDTO {
	return TotalsDTO{Totals: t, FreeShipping: t.FreeShipping()}
}

type CartResponseDTO struct {
	domain.CartSnapshot
	Totals    TotalsDTO `json:"totals"`
	IsLoading bool      `json:"is_loading"`
}

func cartResponse(snap domain.CartSnapshot, loading bool) CartResponseDTO {
	return CartResponseDTO{
		CartSnapshot: snap,
		Totals:       newTotalsDTO(domain.ComputeTotals(snap.Total)),
		IsLoading:    loading,
	}
}

// GET /api/cart
func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	b := sessionFrom(r.Context())
	snap := b.Cart.FetchCart(r.Context())
	respondJSON(w, http.StatusOK, cartResponse(snap, b.Cart.IsLoading()))
}

// POST /api/cart/items
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	b := sessionFrom(r.Context())

	var req AddItemRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.ProductID <= 0 {
		respondError(w, http.StatusBadRequest, "invalid_product_id", "product_id must be positive")
		return
	}
	quantity := 1
	if req.Quantity != nil {
		quantity = *req.Quantity
	}

	if err := b.Cart.AddToCart(r.Context(), req.ProductID, quantity); err != nil {
		handleError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, cartResponse(b.Cart.Snapshot(), b.Cart.IsLoading()))
}

// PUT /api/cart/items/{item_id}
// A quantity of zero or less removes the line.
func (h *CartHandler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	b := sessionFrom(r.Context())

	itemID, ok := pathID(r, "item_id")
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid_item_id", "item_id must be a positive integer")
		return
	}

	var req UpdateQuantityRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	var err error
	if req.Quantity <= 0 {
		err = b.Cart.RemoveFromCart(r.Context(), itemID)
	} else {
		err = b.Cart.UpdateCartItem(r.Context(), itemID, req.Quantity)
	}
	if err != nil {
		handleError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, cartResponse(b.Cart.Snapshot(), b.Cart.IsLoading()))
}

// DELETE /api/cart/items/{item_id}
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	b := sessionFrom(r.Context())

	itemID, ok := pathID(r, "item_id")
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid_item_id", "item_id must be a positive integer")
		return
	}

	if err := b.Cart.RemoveFromCart(r.Context(), itemID); err != nil {
		handleError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, cartResponse(b.Cart.Snapshot(), b.Cart.IsLoading()))
}

// DELETE /api/cart
func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	b := sessionFrom(r.Context())

	if err := b.Cart.ClearCart(r.Context()); err != nil {
		handleError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, cartResponse(b.Cart.Snapshot(), b.Cart.IsLoading()))
}

func pathID(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	return id, err == nil && id > 0
}
