package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/fjod/go_cart/storefront/internal/catalog"
	"github.com/fjod/go_cart/storefront/internal/checkout"
	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/events"
	"go.uber.org/zap"
)

type CheckoutHandler struct {
	catalog   *catalog.Service
	publisher events.Publisher
	logger    *zap.Logger
}

func NewCheckoutHandler(catalog *catalog.Service, publisher events.Publisher, logger *zap.Logger) *CheckoutHandler {
	return &CheckoutHandler{
		catalog:   catalog,
		publisher: publisher,
		logger:    logger,
	}
}

type CheckoutResponseDTO struct {
	checkout.State
	Items  []domain.CartItem `json:"items"`
	Totals TotalsDTO         `json:"totals"`
}

func checkoutResponse(f *checkout.Flow, snap domain.CartSnapshot) CheckoutResponseDTO {
	return CheckoutResponseDTO{
		State:  f.State(),
		Items:  snap.Items,
		Totals: newTotalsDTO(domain.ComputeTotals(snap.Total)),
	}
}

// POST /api/checkout
func (h *CheckoutHandler) Begin(w http.ResponseWriter, r *http.Request) {
	b := sessionFrom(r.Context())

	snap := b.Cart.FetchCart(r.Context())
	flow, err := checkout.Begin(b.Cart, b.Client, h.logger.With(zap.String("session", b.ID)))
	if errors.Is(err, checkout.ErrEmptyCart) {
		respondJSON(w, http.StatusConflict, ErrorResponse{Error: "Cart is empty", Code: "empty_cart", Details: "/cart"})
		return
	}
	if err != nil {
		handleError(w, err)
		return
	}
	b.StartCheckout(flow)
	respondJSON(w, http.StatusCreated, checkoutResponse(flow, snap))
}

// GET /api/checkout
func (h *CheckoutHandler) Get(w http.ResponseWriter, r *http.Request) {
	b := sessionFrom(r.Context())
	flow, ok := h.flow(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, checkoutResponse(flow, b.Cart.Snapshot()))
}

// PUT /api/checkout/fields
// Body is a map of form field name to value.
func (h *CheckoutHandler) SetFields(w http.ResponseWriter, r *http.Request) {
	b := sessionFrom(r.Context())
	flow, ok := h.flow(w, r)
	if !ok {
		return
	}

	var fields map[string]string
	if err := json.NewDecoder(r.Body).Decode(&fields); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	for name, value := range fields {
		if err := flow.SetField(name, value); err != nil {
			h.flowError(w, err)
			return
		}
	}
	respondJSON(w, http.StatusOK, checkoutResponse(flow, b.Cart.Snapshot()))
}

// POST /api/checkout/next
func (h *CheckoutHandler) Next(w http.ResponseWriter, r *http.Request) {
	b := sessionFrom(r.Context())
	flow, ok := h.flow(w, r)
	if !ok {
		return
	}

	status := http.StatusOK
	var verr *checkout.ValidationError
	if err := flow.Next(); errors.As(err, &verr) {
		status = http.StatusUnprocessableEntity
	} else if err != nil {
		h.flowError(w, err)
		return
	}
	respondJSON(w, status, checkoutResponse(flow, b.Cart.Snapshot()))
}

// POST /api/checkout/previous
func (h *CheckoutHandler) Previous(w http.ResponseWriter, r *http.Request) {
	b := sessionFrom(r.Context())
	flow, ok := h.flow(w, r)
	if !ok {
		return
	}
	if err := flow.Previous(); err != nil {
		h.flowError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, checkoutResponse(flow, b.Cart.Snapshot()))
}

// POST /api/checkout/submit
// On failure the body is still the checkout view, with the reason under
// errors.submit or per field.
func (h *CheckoutHandler) Submit(w http.ResponseWriter, r *http.Request) {
	b := sessionFrom(r.Context())
	flow, ok := h.flow(w, r)
	if !ok {
		return
	}

	order, err := flow.Submit(r.Context())
	var verr *checkout.ValidationError
	switch {
	case errors.As(err, &verr):
		respondJSON(w, http.StatusUnprocessableEntity, checkoutResponse(flow, b.Cart.Snapshot()))
		return
	case errors.Is(err, checkout.ErrNotOnPaymentStep),
		errors.Is(err, checkout.ErrSubmitInProgress),
		errors.Is(err, checkout.ErrCompleted),
		errors.Is(err, checkout.ErrDiscarded):
		h.flowError(w, err)
		return
	case err != nil:
		respondJSON(w, upstreamStatus(err), checkoutResponse(flow, b.Cart.Snapshot()))
		return
	}

	h.afterOrder(r, order)
	respondJSON(w, http.StatusCreated, checkoutResponse(flow, b.Cart.Snapshot()))
}

// afterOrder announces the order and drops cached stock for its products.
// Neither step can undo the order, so failures are only logged.
func (h *CheckoutHandler) afterOrder(r *http.Request, order *domain.Order) {
	ev := events.NewOrderPlaced(order, getRequestID(r.Context()))
	if err := h.publisher.PublishOrderPlaced(r.Context(), ev); err != nil {
		h.logger.Error("publish order placed failed", zap.String("order_number", order.OrderNumber), zap.Error(err))
	}

	ids := make([]int64, 0, len(order.Items))
	for _, it := range order.Items {
		ids = append(ids, it.ProductID)
	}
	h.catalog.Invalidate(r.Context(), ids...)
}

// DELETE /api/checkout
func (h *CheckoutHandler) Discard(w http.ResponseWriter, r *http.Request) {
	sessionFrom(r.Context()).DiscardCheckout()
	w.WriteHeader(http.StatusNoContent)
}

func (h *CheckoutHandler) flow(w http.ResponseWriter, r *http.Request) (*checkout.Flow, bool) {
	flow := sessionFrom(r.Context()).Checkout()
	if flow == nil {
		respondJSON(w, http.StatusNotFound, ErrorResponse{Error: "no checkout in progress", Code: "no_checkout", Details: "/cart"})
		return nil, false
	}
	return flow, true
}

func (h *CheckoutHandler) flowError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, checkout.ErrUnknownField):
		respondError(w, http.StatusBadRequest, "unknown_field", err.Error())
	case errors.Is(err, checkout.ErrNotOnPaymentStep):
		respondError(w, http.StatusConflict, "not_on_payment_step", err.Error())
	case errors.Is(err, checkout.ErrSubmitInProgress):
		respondError(w, http.StatusConflict, "submit_in_progress", err.Error())
	case errors.Is(err, checkout.ErrCompleted):
		respondError(w, http.StatusConflict, "checkout_completed", err.Error())
	case errors.Is(err, checkout.ErrDiscarded):
		respondError(w, http.StatusGone, "checkout_discarded", err.Error())
	default:
		handleError(w, err)
	}
}
