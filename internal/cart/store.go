// Package cart mirrors the backend's per-session cart resource. Every
// successful mutation is followed by a full refetch so that the item count and
// total always come from the server.
package cart

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"go.uber.org/zap"
)

// Backend is the slice of the REST client the store needs.
type Backend interface {
	GetCart(ctx context.Context) (domain.CartSnapshot, error)
	AddCartItem(ctx context.Context, productID int64, quantity int) error
	UpdateCartItem(ctx context.Context, itemID int64, quantity int) error
	RemoveCartItem(ctx context.Context, itemID int64) error
	ClearCart(ctx context.Context) error
}

type Store struct {
	backend Backend
	logger  *zap.Logger
	timeout time.Duration

	mu       sync.RWMutex
	snapshot domain.CartSnapshot

	inflight atomic.Int32
}

type Option func(*Store)

// WithTimeout bounds every backend call made by the store.
func WithTimeout(d time.Duration) Option {
	return func(s *Store) {
		s.timeout = d
	}
}

func NewStore(backend Backend, logger *zap.Logger, opts ...Option) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Store{
		backend:  backend,
		logger:   logger,
		timeout:  10 * time.Second,
		snapshot: domain.EmptySnapshot(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Snapshot returns a copy of the last cart the server reported.
func (s *Store) Snapshot() domain.CartSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot.Clone()
}

// Totals applies the shared shipping and tax formula to the current snapshot.
func (s *Store) Totals() domain.Totals {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return domain.ComputeTotals(s.snapshot.Total)
}

// IsLoading reports whether any store call is still waiting on the backend.
func (s *Store) IsLoading() bool {
	return s.inflight.Load() > 0
}

func (s *Store) begin() func() {
	s.inflight.Add(1)
	return func() { s.inflight.Add(-1) }
}

// FetchCart refreshes the snapshot and returns it. Failures are logged and
// leave the previous snapshot in place.
func (s *Store) FetchCart(ctx context.Context) domain.CartSnapshot {
	if err := s.Refresh(ctx); err != nil {
		s.logger.Warn("fetch cart failed, keeping previous snapshot", zap.Error(err))
	}
	return s.Snapshot()
}

// Refresh is FetchCart for callers that need to know whether the read worked,
// such as a retry loop.
func (s *Store) Refresh(ctx context.Context) error {
	defer s.begin()()

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	snap, err := s.backend.GetCart(ctx)
	if err != nil {
		return fmt.Errorf("get cart: %w", err)
	}

	// Whichever response lands last is what the user sees.
	s.mu.Lock()
	s.snapshot = snap
	s.mu.Unlock()
	return nil
}

func (s *Store) AddToCart(ctx context.Context, productID int64, quantity int) error {
	if quantity < 1 {
		return &OpError{Op: OpAdd, Message: "Quantity must be at least 1", Err: ErrInvalidQuantity}
	}
	return s.mutate(ctx, OpAdd, func(ctx context.Context) error {
		return s.backend.AddCartItem(ctx, productID, quantity)
	})
}

// UpdateCartItem sets a line's quantity. A quantity below 1 is rejected; the
// caller is expected to call RemoveFromCart instead.
func (s *Store) UpdateCartItem(ctx context.Context, itemID int64, quantity int) error {
	if quantity < 1 {
		return &OpError{Op: OpUpdate, Message: "Quantity must be at least 1", Err: ErrInvalidQuantity}
	}
	if item, ok := s.Snapshot().Find(itemID); ok {
		if stock, known := item.Stock(); known && quantity > stock {
			return &OpError{Op: OpUpdate, Message: fmt.Sprintf("Only %d in stock", stock), Err: ErrExceedsStock}
		}
	}
	return s.mutate(ctx, OpUpdate, func(ctx context.Context) error {
		return s.backend.UpdateCartItem(ctx, itemID, quantity)
	})
}

func (s *Store) RemoveFromCart(ctx context.Context, itemID int64) error {
	return s.mutate(ctx, OpRemove, func(ctx context.Context) error {
		return s.backend.RemoveCartItem(ctx, itemID)
	})
}

// ClearCart empties the cart. On success the snapshot is reset locally since
// an empty cart needs no confirmation read.
func (s *Store) ClearCart(ctx context.Context) error {
	done := s.begin()
	defer done()

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if err := s.backend.ClearCart(callCtx); err != nil {
		s.logger.Warn("cart mutation failed", zap.String("op", string(OpClear)), zap.Error(err))
		return newOpError(OpClear, err)
	}

	s.mu.Lock()
	s.snapshot = domain.EmptySnapshot()
	s.mu.Unlock()
	return nil
}

func (s *Store) mutate(ctx context.Context, op Op, call func(context.Context) error) error {
	done := s.begin()
	defer done()

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if err := call(callCtx); err != nil {
		s.logger.Warn("cart mutation failed", zap.String("op", string(op)), zap.Error(err))
		return newOpError(op, err)
	}

	// The mutation itself went through; a failed refetch only leaves the view stale.
	if err := s.Refresh(ctx); err != nil {
		s.logger.Warn("refetch after cart mutation failed", zap.String("op", string(op)), zap.Error(err))
	}
	return nil
}
