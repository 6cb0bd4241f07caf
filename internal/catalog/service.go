// Package catalog serves product reads for the storefront. Product detail and
// the category list are cached; listings go straight to the backend because
// their stock figures drive add-to-cart limits.
package catalog

import (
	"context"
	"errors"
	"time"

	"github.com/fjod/go_cart/storefront/internal/client"
	"github.com/fjod/go_cart/storefront/internal/domain"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// fetchTimeout bounds a shared backend read.
const fetchTimeout = 10 * time.Second

type Backend interface {
	ListProducts(ctx context.Context, q client.ProductQuery) (*domain.ProductPage, error)
	GetProduct(ctx context.Context, id int64) (*domain.Product, error)
	Categories(ctx context.Context) ([]string, error)
}

type Service struct {
	backend Backend
	cache   Cache
	logger  *zap.Logger
	sfg     singleflight.Group // collapses concurrent misses for one key
}

func NewService(backend Backend, cache Cache, logger *zap.Logger) *Service {
	if cache == nil {
		cache = NopCache{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{backend: backend, cache: cache, logger: logger}
}

func (s *Service) ListProducts(ctx context.Context, q client.ProductQuery) (*domain.ProductPage, error) {
	return s.backend.ListProducts(ctx, q)
}

func (s *Service) GetProduct(ctx context.Context, id int64) (*domain.Product, error) {
	key := productKey(id)
	v, err := s.shared(ctx, key, func(ctx context.Context) (interface{}, error) {
		var cached domain.Product
		if err := s.cache.Get(ctx, key, &cached); err == nil {
			return &cached, nil
		} else if !errors.Is(err, ErrCacheMiss) {
			s.logger.Warn("catalog cache get failed", zap.String("key", key), zap.Error(err))
		}

		product, err := s.backend.GetProduct(ctx, id)
		if err != nil {
			return nil, err
		}
		s.store(key, product)
		return product, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*domain.Product), nil
}

func (s *Service) Categories(ctx context.Context) ([]string, error) {
	v, err := s.shared(ctx, categoriesKey, func(ctx context.Context) (interface{}, error) {
		var cached []string
		if err := s.cache.Get(ctx, categoriesKey, &cached); err == nil {
			return cached, nil
		} else if !errors.Is(err, ErrCacheMiss) {
			s.logger.Warn("catalog cache get failed", zap.String("key", categoriesKey), zap.Error(err))
		}

		cats, err := s.backend.Categories(ctx)
		if err != nil {
			return nil, err
		}
		s.store(categoriesKey, cats)
		return cats, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]string), nil
}

// shared runs fetch once per key for all concurrent callers. The fetch is
// detached from any single caller's cancellation; each caller still stops
// waiting when its own ctx is done.
func (s *Service) shared(ctx context.Context, key string, fetch func(context.Context) (interface{}, error)) (interface{}, error) {
	ch := s.sfg.DoChan(key, func() (interface{}, error) {
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), fetchTimeout)
		defer cancel()
		return fetch(fetchCtx)
	})
	select {
	case res := <-ch:
		return res.Val, res.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Invalidate drops cached entries for the given products and the category
// list. Call it after admin edits and after an order changes stock.
func (s *Service) Invalidate(ctx context.Context, productIDs ...int64) {
	keys := make([]string, 0, len(productIDs)+1)
	for _, id := range productIDs {
		keys = append(keys, productKey(id))
	}
	keys = append(keys, categoriesKey)

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Second)
	defer cancel()
	if err := s.cache.Delete(ctx, keys...); err != nil {
		s.logger.Warn("catalog cache invalidate failed", zap.Strings("keys", keys), zap.Error(err))
	}
}

func (s *Service) store(key string, v any) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.cache.Set(ctx, key, v); err != nil {
		s.logger.Warn("catalog cache set failed", zap.String("key", key), zap.Error(err))
	}
}
