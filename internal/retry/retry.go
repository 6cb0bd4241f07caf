// Package retry re-runs an operation with exponential backoff. The cart and
// checkout code never retries on its own; callers that want retries opt in
// here and pick the policy.
package retry

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/fjod/go_cart/storefront/internal/cart"
	"github.com/fjod/go_cart/storefront/internal/client"
)

type Policy struct {
	Attempts  int
	BaseDelay time.Duration
	MaxDelay  time.Duration
}

func DefaultPolicy() Policy {
	return Policy{Attempts: 3, BaseDelay: 200 * time.Millisecond, MaxDelay: 2 * time.Second}
}

// Do runs op until it succeeds, returns an error Retryable rejects, the
// attempts run out, or ctx is done. The last error is returned.
func Do(ctx context.Context, p Policy, op func(ctx context.Context) error) error {
	if p.Attempts < 1 {
		p.Attempts = 1
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.BaseDelay
	if p.MaxDelay > 0 {
		b.MaxInterval = p.MaxDelay
	}
	b.MaxElapsedTime = 0

	policy := backoff.WithContext(backoff.WithMaxRetries(b, uint64(p.Attempts-1)), ctx)
	return backoff.Retry(func() error {
		err := op(ctx)
		if err != nil && !Retryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}, policy)
}

// Retryable reports whether repeating the call could change the outcome. A
// backend rejection such as "Insufficient stock" or a quantity the cart store
// refused locally will not; a 5xx, a timeout or a dropped connection might.
func Retryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, cart.ErrInvalidQuantity) || errors.Is(err, cart.ErrExceedsStock) {
		return false
	}
	var apiErr *client.APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode >= http.StatusInternalServerError || apiErr.StatusCode == http.StatusTooManyRequests
	}
	return true
}
