// Package checkout drives the three-step checkout form: contact details,
// shipping address and payment. Each step is validated before the flow moves
// on, and the final submission turns the cart into an order.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/fjod/go_cart/storefront/internal/client"
	"github.com/fjod/go_cart/storefront/internal/domain"
	"go.uber.org/zap"
)

type Step int

const (
	StepContact  Step = 1
	StepShipping Step = 2
	StepPayment  Step = 3
)

func (s Step) String() string {
	switch s {
	case StepContact:
		return "contact"
	case StepShipping:
		return "shipping"
	case StepPayment:
		return "payment"
	}
	return fmt.Sprintf("step(%d)", int(s))
}

type Status string

const (
	StatusEditing    Status = "editing"
	StatusSubmitting Status = "submitting"
	StatusCompleted  Status = "completed"
)

// CartStore is what the flow reads and, after a placed order, clears.
type CartStore interface {
	Snapshot() domain.CartSnapshot
	ClearCart(ctx context.Context) error
}

type OrderService interface {
	Checkout(ctx context.Context, req client.CheckoutRequest) (*domain.Order, error)
}

// SubmitErrorKey is the error map key for a failed order placement.
const SubmitErrorKey = "submit"

// clearTimeout bounds the cart clear that follows a placed order.
const clearTimeout = 5 * time.Second

type Flow struct {
	cart   CartStore
	orders OrderService
	logger *zap.Logger

	mu        sync.Mutex
	form      Form
	step      Step
	errors    map[string]string
	status    Status
	order     *domain.Order
	discarded bool
}

// Begin starts a checkout over the cart's current snapshot. An empty cart is
// refused with ErrEmptyCart. The check is made here only, so a flow that
// clears the cart on success keeps its completed state.
func Begin(cart CartStore, orders OrderService, logger *zap.Logger) (*Flow, error) {
	if cart.Snapshot().Empty() {
		return nil, ErrEmptyCart
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Flow{
		cart:   cart,
		orders: orders,
		logger: logger,
		form:   newForm(),
		step:   StepContact,
		errors: make(map[string]string),
		status: StatusEditing,
	}, nil
}

// State is a point-in-time copy of the flow for rendering.
type State struct {
	Step        Step              `json:"current_step"`
	Status      Status            `json:"status"`
	Form        Form              `json:"form"`
	Errors      map[string]string `json:"errors"`
	OrderNumber string            `json:"order_number,omitempty"`
}

func (f *Flow) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	st := State{
		Step:   f.step,
		Status: f.status,
		Form:   f.form.Masked(),
		Errors: f.copyErrors(),
	}
	if f.order != nil {
		st.OrderNumber = f.order.OrderNumber
	}
	return st
}

func (f *Flow) Step() Step {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.step
}

func (f *Flow) Status() Status {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.status
}

func (f *Flow) Form() Form {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.form
}

func (f *Flow) Errors() map[string]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.copyErrors()
}

func (f *Flow) copyErrors() map[string]string {
	out := make(map[string]string, len(f.errors))
	for k, v := range f.errors {
		out[k] = v
	}
	return out
}

// OrderNumber is empty until a submission succeeds.
func (f *Flow) OrderNumber() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.order == nil {
		return ""
	}
	return f.order.OrderNumber
}

func (f *Flow) Order() *domain.Order {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.order
}

// Totals prices the cart as it is right now.
func (f *Flow) Totals() domain.Totals {
	return domain.ComputeTotals(f.cart.Snapshot().Total)
}

func (f *Flow) editable() error {
	switch {
	case f.discarded:
		return ErrDiscarded
	case f.status == StatusCompleted:
		return ErrCompleted
	case f.status == StatusSubmitting:
		return ErrSubmitInProgress
	}
	return nil
}

// SetField updates one form field and clears any error shown for it.
func (f *Flow) SetField(name, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.editable(); err != nil {
		return err
	}
	ptr, ok := f.form.field(name)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownField, name)
	}
	*ptr = value
	delete(f.errors, name)
	return nil
}

// Next validates the current step and advances when it passes. A failed
// validation returns *ValidationError and leaves the step unchanged.
func (f *Flow) Next() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.editable(); err != nil {
		return err
	}
	f.errors = validateStep(f.step, f.form)
	if len(f.errors) > 0 {
		return &ValidationError{Step: f.step, Fields: f.copyErrors()}
	}
	if f.step < StepPayment {
		f.step++
	}
	return nil
}

// Previous goes back one step without validating.
func (f *Flow) Previous() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.editable(); err != nil {
		return err
	}
	if f.step > StepContact {
		f.step--
	}
	return nil
}

// Discard abandons the flow. A submission still in flight is left to finish
// but its outcome no longer touches the flow.
func (f *Flow) Discard() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.discarded = true
}

// Submit places the order. It re-validates the payment step, sends the
// contact and composed shipping line to the order service and, on success,
// empties the cart. On failure the flow stays on the payment step with the
// reason under the "submit" error key and the cart untouched.
func (f *Flow) Submit(ctx context.Context) (*domain.Order, error) {
	f.mu.Lock()
	if err := f.editable(); err != nil {
		f.mu.Unlock()
		return nil, err
	}
	if f.step != StepPayment {
		f.mu.Unlock()
		return nil, ErrNotOnPaymentStep
	}
	f.errors = validateStep(StepPayment, f.form)
	if len(f.errors) > 0 {
		verr := &ValidationError{Step: StepPayment, Fields: f.copyErrors()}
		f.mu.Unlock()
		return nil, verr
	}
	req := client.CheckoutRequest{
		CustomerName:    f.form.CustomerName,
		CustomerEmail:   f.form.CustomerEmail,
		ShippingAddress: f.form.AddressLine(),
	}
	f.status = StatusSubmitting
	f.mu.Unlock()

	order, err := f.orders.Checkout(ctx, req)
	if err != nil {
		f.logger.Warn("place order failed", zap.Error(err))
		f.mu.Lock()
		defer f.mu.Unlock()
		if f.discarded {
			return nil, ErrDiscarded
		}
		f.status = StatusEditing
		f.errors = map[string]string{SubmitErrorKey: submitMessage(err)}
		return nil, fmt.Errorf("place order: %w", err)
	}

	// The order exists now, so the cart is cleared even if the user has
	// already navigated away or the request was cancelled.
	clearCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), clearTimeout)
	defer cancel()
	if err := f.cart.ClearCart(clearCtx); err != nil {
		f.logger.Warn("clear cart after order failed", zap.String("order_number", order.OrderNumber), zap.Error(err))
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.discarded {
		return nil, ErrDiscarded
	}
	f.status = StatusCompleted
	f.order = order
	f.errors = make(map[string]string)
	return order, nil
}

func submitMessage(err error) string {
	var apiErr *client.APIError
	if errors.As(err, &apiErr) {
		if apiErr.Message != "" {
			return apiErr.Message
		}
		return "Failed to place order"
	}
	return "Failed to place order. Please try again."
}
