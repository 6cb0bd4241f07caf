package cart

import (
	"errors"

	"github.com/fjod/go_cart/storefront/internal/client"
)

var (
	ErrInvalidQuantity = errors.New("quantity must be at least 1")
	ErrExceedsStock    = errors.New("quantity exceeds available stock")
)

type Op string

const (
	OpAdd    Op = "add"
	OpUpdate Op = "update"
	OpRemove Op = "remove"
	OpClear  Op = "clear"
)

var fallbackMessages = map[Op]string{
	OpAdd:    "Failed to add item to cart",
	OpUpdate: "Failed to update cart item",
	OpRemove: "Failed to remove item from cart",
	OpClear:  "Failed to clear cart",
}

// OpError is a failed cart mutation. Message is what the user sees next to the
// control that triggered it: the backend's error string when it sent one,
// otherwise a generic per-operation message.
type OpError struct {
	Op      Op
	Message string
	Err     error
}

func (e *OpError) Error() string {
	return e.Message
}

func (e *OpError) Unwrap() error {
	return e.Err
}

func newOpError(op Op, err error) *OpError {
	msg := fallbackMessages[op]
	var apiErr *client.APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		msg = apiErr.Message
	}
	return &OpError{Op: op, Message: msg, Err: err}
}
