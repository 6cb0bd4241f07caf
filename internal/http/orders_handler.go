package http

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/go-chi/chi/v5"
)

type OrdersHandler struct{}

func NewOrdersHandler() *OrdersHandler {
	return &OrdersHandler{}
}

type TimelineStepDTO struct {
	Status  domain.OrderStatus `json:"status"`
	Reached bool               `json:"reached"`
}

type OrderResponseDTO struct {
	*domain.Order
	Timeline  []TimelineStepDTO `json:"timeline"`
	Cancelled bool              `json:"cancelled"`
}

var timelineSteps = []domain.OrderStatus{
	domain.OrderStatusPending,
	domain.OrderStatusConfirmed,
	domain.OrderStatusProcessing,
	domain.OrderStatusShipped,
	domain.OrderStatusDelivered,
}

func orderResponse(o *domain.Order) OrderResponseDTO {
	timeline := make([]TimelineStepDTO, 0, len(timelineSteps))
	for _, step := range timelineSteps {
		timeline = append(timeline, TimelineStepDTO{Status: step, Reached: o.Status.Reached(step)})
	}
	return OrderResponseDTO{
		Order:     o,
		Timeline:  timeline,
		Cancelled: o.Status == domain.OrderStatusCancelled,
	}
}

// GET /api/orders/{order_number}
func (h *OrdersHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	b := sessionFrom(r.Context())
	orderNumber := chi.URLParam(r, "order_number")
	if orderNumber == "" {
		respondError(w, http.StatusBadRequest, "invalid_order_number", "order_number is required")
		return
	}

	order, err := b.Client.GetOrder(r.Context(), orderNumber)
	if err != nil {
		handleError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, orderResponse(order))
}

// GET /api/orders?email=&page=&per_page=
func (h *OrdersHandler) ByEmail(w http.ResponseWriter, r *http.Request) {
	b := sessionFrom(r.Context())
	q := r.URL.Query()

	email := strings.TrimSpace(q.Get("email"))
	if email == "" {
		respondError(w, http.StatusBadRequest, "missing_email", "email query parameter is required")
		return
	}

	page, err := queryInt(q.Get("page"), 1)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_page", "page must be a positive integer")
		return
	}
	perPage, err := queryInt(q.Get("per_page"), 10)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_per_page", "per_page must be a positive integer")
		return
	}

	orders, err := b.Client.OrdersByEmail(r.Context(), email, page, perPage)
	if err != nil {
		handleError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, orders)
}

// queryInt parses an optional positive integer query value.
func queryInt(raw string, def int) (int, error) {
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, err
	}
	if n < 1 {
		return 0, strconv.ErrRange
	}
	return n, nil
}
