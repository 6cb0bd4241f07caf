package checkout

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrEmptyCart means the flow cannot start; the caller should send the
	// user back to the cart.
	ErrEmptyCart        = errors.New("cart is empty, nothing to checkout")
	ErrUnknownField     = errors.New("unknown checkout field")
	ErrNotOnPaymentStep = errors.New("order can only be submitted from the payment step")
	ErrSubmitInProgress = errors.New("order submission already in progress")
	ErrCompleted        = errors.New("checkout already completed")
	ErrDiscarded        = errors.New("checkout was discarded")
)

// ValidationError lists the fields that kept a step from advancing, keyed by
// form field name.
type ValidationError struct {
	Step   Step
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, name+": "+e.Fields[name])
	}
	return fmt.Sprintf("step %d invalid: %s", e.Step, strings.Join(parts, "; "))
}
