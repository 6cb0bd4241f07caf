package catalog

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fjod/go_cart/storefront/internal/apitest"
	"github.com/fjod/go_cart/storefront/internal/client"
	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingBackend struct {
	Backend
	productCalls  atomic.Int32
	categoryCalls atomic.Int32
	release       chan struct{}
}

func (b *countingBackend) GetProduct(ctx context.Context, id int64) (*domain.Product, error) {
	b.productCalls.Add(1)
	if b.release != nil {
		<-b.release
	}
	return b.Backend.GetProduct(ctx, id)
}

func (b *countingBackend) Categories(ctx context.Context) ([]string, error) {
	b.categoryCalls.Add(1)
	return b.Backend.Categories(ctx)
}

func setupService(t *testing.T) (*Service, *countingBackend, *apitest.Server) {
	srv := apitest.NewServer()
	t.Cleanup(srv.Close)
	c, err := client.New(srv.URL)
	require.NoError(t, err)

	cache, _ := setupTestRedis(t)
	backend := &countingBackend{Backend: c}
	return NewService(backend, cache, nil), backend, srv
}

func TestGetProduct_CachesAfterFirstRead(t *testing.T) {
	svc, backend, srv := setupService(t)
	id := srv.SeedProduct("Lamp", "19.99", 3, "home")
	ctx := context.Background()

	first, err := svc.GetProduct(ctx, id)
	require.NoError(t, err)
	second, err := svc.GetProduct(ctx, id)
	require.NoError(t, err)

	assert.Equal(t, first.Name, second.Name)
	assert.Equal(t, int32(1), backend.productCalls.Load())
}

func TestGetProduct_NotFoundIsNotCached(t *testing.T) {
	svc, backend, _ := setupService(t)
	ctx := context.Background()

	_, err := svc.GetProduct(ctx, 404)
	assert.ErrorIs(t, err, client.ErrNotFound)
	_, err = svc.GetProduct(ctx, 404)
	assert.ErrorIs(t, err, client.ErrNotFound)
	assert.Equal(t, int32(2), backend.productCalls.Load())
}

func TestGetProduct_ConcurrentMissesCollapse(t *testing.T) {
	svc, backend, srv := setupService(t)
	id := srv.SeedProduct("Lamp", "19.99", 3, "home")
	backend.release = make(chan struct{})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p, err := svc.GetProduct(context.Background(), id)
			assert.NoError(t, err)
			assert.Equal(t, "Lamp", p.Name)
		}()
	}
	require.Eventually(t, func() bool { return backend.productCalls.Load() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	close(backend.release)
	wg.Wait()

	assert.Equal(t, int32(1), backend.productCalls.Load())
}

func TestGetProduct_CancelledCallerDoesNotFailWaiters(t *testing.T) {
	svc, backend, srv := setupService(t)
	id := srv.SeedProduct("Lamp", "19.99", 3, "home")
	backend.release = make(chan struct{})

	first, cancel := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := svc.GetProduct(first, id)
		firstErr <- err
	}()
	require.Eventually(t, func() bool { return backend.productCalls.Load() == 1 }, time.Second, 5*time.Millisecond)

	waiter := make(chan *domain.Product, 1)
	go func() {
		p, err := svc.GetProduct(context.Background(), id)
		assert.NoError(t, err)
		waiter <- p
	}()
	time.Sleep(20 * time.Millisecond)

	cancel()
	assert.ErrorIs(t, <-firstErr, context.Canceled)

	close(backend.release)
	p := <-waiter
	require.NotNil(t, p)
	assert.Equal(t, "Lamp", p.Name)
	assert.Equal(t, int32(1), backend.productCalls.Load())
}

func TestInvalidate_RefetchesProductAndCategories(t *testing.T) {
	svc, backend, srv := setupService(t)
	id := srv.SeedProduct("Lamp", "19.99", 3, "home")
	ctx := context.Background()

	_, err := svc.GetProduct(ctx, id)
	require.NoError(t, err)
	cats, err := svc.Categories(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"home"}, cats)

	srv.SetStock(id, 1)
	svc.Invalidate(ctx, id)

	p, err := svc.GetProduct(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 1, p.StockQuantity)
	_, err = svc.Categories(ctx)
	require.NoError(t, err)

	assert.Equal(t, int32(2), backend.productCalls.Load())
	assert.Equal(t, int32(2), backend.categoryCalls.Load())
}

func TestNewService_WithoutCacheAlwaysReadsBackend(t *testing.T) {
	srv := apitest.NewServer()
	t.Cleanup(srv.Close)
	c, err := client.New(srv.URL)
	require.NoError(t, err)
	backend := &countingBackend{Backend: c}
	svc := NewService(backend, nil, nil)
	id := srv.SeedProduct("Lamp", "19.99", 3, "home")

	for i := 0; i < 3; i++ {
		_, err := svc.GetProduct(context.Background(), id)
		require.NoError(t, err)
	}
	assert.Equal(t, int32(3), backend.productCalls.Load())
}

func TestListProducts_FiltersAndPaginates(t *testing.T) {
	svc, _, srv := setupService(t)
	srv.SeedProduct("Desk Lamp", "19.99", 3, "home")
	srv.SeedProduct("Floor Lamp", "59.00", 3, "home")
	srv.SeedProduct("Rake", "12.00", 3, "garden")

	page, err := svc.ListProducts(context.Background(), client.ProductQuery{
		Category: "home", Search: "lamp", SortBy: "price", SortOrder: "asc", PerPage: 1,
	})
	require.NoError(t, err)
	require.Len(t, page.Products, 1)
	assert.Equal(t, "Desk Lamp", page.Products[0].Name)
	assert.Equal(t, 2, page.Total)
	assert.Equal(t, 2, page.Pages)
}
