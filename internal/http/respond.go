package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/fjod/go_cart/storefront/internal/admin"
	"github.com/fjod/go_cart/storefront/internal/cart"
	"github.com/fjod/go_cart/storefront/internal/client"
	"go.uber.org/zap"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		zap.L().Warn("failed to encode response", zap.Error(err))
	}
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, ErrorResponse{
		Error: message,
		Code:  code,
	})
}

// handleError maps store, session and backend errors onto HTTP responses.
// Messages meant for the user pass through unchanged.
func handleError(w http.ResponseWriter, err error) {
	var (
		opErr    *cart.OpError
		adminErr *admin.Error
		apiErr   *client.APIError
	)

	switch {
	case errors.Is(err, cart.ErrInvalidQuantity):
		respondError(w, http.StatusBadRequest, "invalid_quantity", err.Error())
	case errors.Is(err, cart.ErrExceedsStock):
		respondError(w, http.StatusBadRequest, "insufficient_stock", err.Error())
	case errors.Is(err, admin.ErrNotAuthenticated), errors.Is(err, admin.ErrAuthPending):
		respondJSON(w, http.StatusUnauthorized, ErrorResponse{Error: "Authentication required", Code: "unauthenticated", Details: "/admin/login"})
	case errors.Is(err, admin.ErrInvalidStatus):
		respondError(w, http.StatusBadRequest, "invalid_status", "Invalid status")
	case errors.Is(err, context.DeadlineExceeded):
		respondError(w, http.StatusGatewayTimeout, "timeout", "backend did not answer in time")
	case errors.As(err, &opErr):
		respondError(w, upstreamStatus(err), "cart_"+string(opErr.Op)+"_failed", opErr.Message)
	case errors.As(err, &adminErr):
		respondError(w, upstreamStatus(err), "admin_request_failed", adminErr.Message)
	case errors.Is(err, client.ErrNotFound):
		respondError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.As(err, &apiErr):
		respondError(w, upstreamStatus(err), "upstream_error", apiErr.Error())
	default:
		respondError(w, http.StatusBadGateway, "service_unavailable", "backend unavailable")
	}
}

// upstreamStatus passes backend 4xx codes through and reports anything else
// as a bad gateway.
func upstreamStatus(err error) int {
	var apiErr *client.APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode >= 400 && apiErr.StatusCode < 500 {
		return apiErr.StatusCode
	}
	return http.StatusBadGateway
}
