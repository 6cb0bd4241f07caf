package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/fjod/go_cart/storefront/internal/apitest"
	"github.com/fjod/go_cart/storefront/internal/catalog"
	"github.com/fjod/go_cart/storefront/internal/client"
	"github.com/fjod/go_cart/storefront/internal/events"
	"github.com/fjod/go_cart/storefront/internal/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.OrderPlaced
}

func (p *recordingPublisher) PublishOrderPlaced(_ context.Context, ev events.OrderPlaced) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) Events() []events.OrderPlaced {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]events.OrderPlaced(nil), p.events...)
}

type gateway struct {
	t         *testing.T
	url       string
	backend   *apitest.Server
	publisher *recordingPublisher
	browser   *http.Client
}

func newGateway(t *testing.T, sessCfg session.Config) *gateway {
	t.Helper()
	backend := apitest.NewServer()
	t.Cleanup(backend.Close)

	shared, err := client.New(backend.URL)
	require.NoError(t, err)

	reg := session.NewRegistry(sessCfg, func() (*client.Client, error) {
		return client.New(backend.URL)
	}, nil)
	t.Cleanup(func() { _ = reg.Close() })

	pub := &recordingPublisher{}
	router := NewRouter(RouterConfig{
		RequestTimeout:     5 * time.Second,
		MaxRequestBodySize: 1 << 20,
		CORSAllowOrigins:   []string{"http://localhost:3000"},
		SessionCookieName:  "sf_session",
	}, Deps{
		Sessions:  reg,
		Catalog:   catalog.NewService(shared, catalog.NopCache{}, nil),
		Publisher: pub,
	})
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &gateway{
		t:         t,
		url:       srv.URL,
		backend:   backend,
		publisher: pub,
		browser:   &http.Client{Jar: jar, Timeout: 5 * time.Second},
	}
}

func (g *gateway) do(method, path string, body any, out any) int {
	g.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(g.t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, g.url+path, &buf)
	require.NoError(g.t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.browser.Do(req)
	require.NoError(g.t, err)
	defer resp.Body.Close()
	if out != nil && resp.StatusCode != http.StatusNoContent {
		require.NoError(g.t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

type cartView struct {
	Items []struct {
		ID        int64 `json:"id"`
		ProductID int64 `json:"product_id"`
		Quantity  int   `json:"quantity"`
	} `json:"items"`
	ItemCount int `json:"item_count"`
	Totals    struct {
		Subtotal     string `json:"subtotal"`
		Shipping     string `json:"shipping"`
		FreeShipping bool   `json:"free_shipping"`
	} `json:"totals"`
}

type checkoutView struct {
	Step        int               `json:"current_step"`
	Status      string            `json:"status"`
	Errors      map[string]string `json:"errors"`
	OrderNumber string            `json:"order_number"`
	Form        struct {
		CardNumber string `json:"card_number"`
	} `json:"form"`
}

func TestHealth(t *testing.T) {
	g := newGateway(t, session.Config{})

	var body map[string]string
	assert.Equal(t, http.StatusOK, g.do(http.MethodGet, "/health", nil, &body))
	assert.Equal(t, "ok", body["status"])
}

func TestCart_AddUpdateRemove(t *testing.T) {
	g := newGateway(t, session.Config{})
	mug := g.backend.SeedProduct("Mug", "12.50", 10, "kitchen")

	var view cartView
	require.Equal(t, http.StatusCreated, g.do(http.MethodPost, "/api/cart/items", map[string]any{"product_id": mug, "quantity": 2}, &view))
	require.Len(t, view.Items, 1)
	assert.Equal(t, 2, view.ItemCount)
	assert.Equal(t, "25", view.Totals.Subtotal)
	assert.Equal(t, "9.99", view.Totals.Shipping)
	assert.False(t, view.Totals.FreeShipping)

	itemPath := "/api/cart/items/" + jsonInt(view.Items[0].ID)
	require.Equal(t, http.StatusOK, g.do(http.MethodPut, itemPath, map[string]int{"quantity": 4}, &view))
	assert.Equal(t, 4, view.ItemCount)
	assert.Equal(t, "0", view.Totals.Shipping)
	assert.True(t, view.Totals.FreeShipping)

	require.Equal(t, http.StatusOK, g.do(http.MethodPut, itemPath, map[string]int{"quantity": 0}, &view))
	assert.Empty(t, view.Items)
	assert.Equal(t, 1, g.backend.Calls("DELETE /cart/remove/{id}"))
}

func TestCart_SessionCookieKeepsCart(t *testing.T) {
	g := newGateway(t, session.Config{})
	mug := g.backend.SeedProduct("Mug", "12.50", 10, "kitchen")

	require.Equal(t, http.StatusCreated, g.do(http.MethodPost, "/api/cart/items", map[string]any{"product_id": mug}, nil))

	var view cartView
	require.Equal(t, http.StatusOK, g.do(http.MethodGet, "/api/cart", nil, &view))
	assert.Equal(t, 1, view.ItemCount)

	other := &http.Client{Timeout: 5 * time.Second}
	resp, err := other.Get(g.url + "/api/cart")
	require.NoError(t, err)
	defer resp.Body.Close()
	var fresh cartView
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&fresh))
	assert.Equal(t, 0, fresh.ItemCount)
}

func TestCart_BackendMessagePassesThrough(t *testing.T) {
	g := newGateway(t, session.Config{})
	mug := g.backend.SeedProduct("Mug", "12.50", 1, "kitchen")

	var body ErrorResponse
	status := g.do(http.MethodPost, "/api/cart/items", map[string]any{"product_id": mug, "quantity": 5}, &body)

	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "Insufficient stock", body.Error)
	assert.Equal(t, "cart_add_failed", body.Code)
}

func TestCart_UpdateAboveStockRejectedLocally(t *testing.T) {
	g := newGateway(t, session.Config{})
	mug := g.backend.SeedProduct("Mug", "12.50", 3, "kitchen")

	var view cartView
	require.Equal(t, http.StatusCreated, g.do(http.MethodPost, "/api/cart/items", map[string]any{"product_id": mug, "quantity": 1}, &view))

	var body ErrorResponse
	status := g.do(http.MethodPut, "/api/cart/items/"+jsonInt(view.Items[0].ID), map[string]int{"quantity": 9}, &body)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "insufficient_stock", body.Code)
	assert.Equal(t, 0, g.backend.Calls("PUT /cart/update/{id}"))
}

func TestCheckout_EmptyCartRedirects(t *testing.T) {
	g := newGateway(t, session.Config{})

	var body ErrorResponse
	assert.Equal(t, http.StatusConflict, g.do(http.MethodPost, "/api/checkout", nil, &body))
	assert.Equal(t, "empty_cart", body.Code)
	assert.Equal(t, "/cart", body.Details)

	assert.Equal(t, http.StatusNotFound, g.do(http.MethodGet, "/api/checkout", nil, &body))
}

func fillContactAndShipping(t *testing.T, g *gateway) {
	t.Helper()
	var view checkoutView
	require.Equal(t, http.StatusOK, g.do(http.MethodPut, "/api/checkout/fields", map[string]string{
		"customer_name":  "Ada Lovelace",
		"customer_email": "ada@example.com",
	}, &view))
	require.Equal(t, http.StatusOK, g.do(http.MethodPost, "/api/checkout/next", nil, &view))
	require.Equal(t, http.StatusOK, g.do(http.MethodPut, "/api/checkout/fields", map[string]string{
		"shipping_address": "1 Analytical Way",
		"city":             "London",
		"state":            "LDN",
		"zip_code":         "12345",
	}, &view))
	require.Equal(t, http.StatusOK, g.do(http.MethodPost, "/api/checkout/next", nil, &view))
	require.Equal(t, 3, view.Step)
	require.Equal(t, http.StatusOK, g.do(http.MethodPut, "/api/checkout/fields", map[string]string{
		"card_number":     "4111111111111111",
		"expiry_date":     "12/30",
		"cvv":             "123",
		"cardholder_name": "Ada Lovelace",
	}, &view))
	assert.Equal(t, "**** 1111", view.Form.CardNumber)
}

func TestCheckout_FullFlow(t *testing.T) {
	g := newGateway(t, session.Config{})
	mug := g.backend.SeedProduct("Mug", "12.50", 10, "kitchen")
	require.Equal(t, http.StatusCreated, g.do(http.MethodPost, "/api/cart/items", map[string]any{"product_id": mug, "quantity": 2}, nil))

	var view checkoutView
	require.Equal(t, http.StatusCreated, g.do(http.MethodPost, "/api/checkout", nil, &view))
	assert.Equal(t, 1, view.Step)
	assert.Equal(t, "editing", view.Status)

	fillContactAndShipping(t, g)

	require.Equal(t, http.StatusCreated, g.do(http.MethodPost, "/api/checkout/submit", nil, &view))
	assert.Equal(t, "completed", view.Status)
	assert.NotEmpty(t, view.OrderNumber)

	var cv cartView
	require.Equal(t, http.StatusOK, g.do(http.MethodGet, "/api/cart", nil, &cv))
	assert.Empty(t, cv.Items)
	assert.Equal(t, 8, g.backend.Stock(mug))

	evs := g.publisher.Events()
	require.Len(t, evs, 1)
	assert.Equal(t, view.OrderNumber, evs[0].OrderNumber)
	assert.Equal(t, "ada@example.com", evs[0].CustomerEmail)
	assert.NotEmpty(t, evs[0].RequestID)

	var order struct {
		OrderNumber string `json:"order_number"`
		Timeline    []struct {
			Status  string `json:"status"`
			Reached bool   `json:"reached"`
		} `json:"timeline"`
	}
	require.Equal(t, http.StatusOK, g.do(http.MethodGet, "/api/orders/"+view.OrderNumber, nil, &order))
	require.Len(t, order.Timeline, 5)
	assert.True(t, order.Timeline[1].Reached)
	assert.False(t, order.Timeline[2].Reached)
}

func TestCheckout_NextWithMissingFields(t *testing.T) {
	g := newGateway(t, session.Config{})
	mug := g.backend.SeedProduct("Mug", "12.50", 10, "kitchen")
	require.Equal(t, http.StatusCreated, g.do(http.MethodPost, "/api/cart/items", map[string]any{"product_id": mug}, nil))
	require.Equal(t, http.StatusCreated, g.do(http.MethodPost, "/api/checkout", nil, nil))

	var view checkoutView
	require.Equal(t, http.StatusOK, g.do(http.MethodPut, "/api/checkout/fields", map[string]string{"customer_email": "not-an-email"}, &view))
	assert.Equal(t, http.StatusUnprocessableEntity, g.do(http.MethodPost, "/api/checkout/next", nil, &view))
	assert.Equal(t, 1, view.Step)
	assert.Equal(t, "Name is required", view.Errors["customer_name"])
	assert.Contains(t, view.Errors, "customer_email")

	var body ErrorResponse
	assert.Equal(t, http.StatusBadRequest, g.do(http.MethodPut, "/api/checkout/fields", map[string]string{"favourite_colour": "red"}, &body))
	assert.Equal(t, "unknown_field", body.Code)
}

func TestCheckout_SubmitFailureKeepsCart(t *testing.T) {
	g := newGateway(t, session.Config{})
	mug := g.backend.SeedProduct("Mug", "12.50", 10, "kitchen")
	require.Equal(t, http.StatusCreated, g.do(http.MethodPost, "/api/cart/items", map[string]any{"product_id": mug}, nil))
	require.Equal(t, http.StatusCreated, g.do(http.MethodPost, "/api/checkout", nil, nil))
	fillContactAndShipping(t, g)

	g.backend.FailNext("POST /orders/checkout", http.StatusInternalServerError, "database unavailable")

	var view checkoutView
	assert.Equal(t, http.StatusBadGateway, g.do(http.MethodPost, "/api/checkout/submit", nil, &view))
	assert.Equal(t, 3, view.Step)
	assert.Equal(t, "editing", view.Status)
	assert.NotEmpty(t, view.Errors["submit"])

	var cv cartView
	require.Equal(t, http.StatusOK, g.do(http.MethodGet, "/api/cart", nil, &cv))
	assert.Equal(t, 1, cv.ItemCount)
	assert.Empty(t, g.publisher.Events())
}

func TestCheckout_Discard(t *testing.T) {
	g := newGateway(t, session.Config{})
	mug := g.backend.SeedProduct("Mug", "12.50", 10, "kitchen")
	require.Equal(t, http.StatusCreated, g.do(http.MethodPost, "/api/cart/items", map[string]any{"product_id": mug}, nil))
	require.Equal(t, http.StatusCreated, g.do(http.MethodPost, "/api/checkout", nil, nil))

	assert.Equal(t, http.StatusNoContent, g.do(http.MethodDelete, "/api/checkout", nil, nil))
	assert.Equal(t, http.StatusNotFound, g.do(http.MethodGet, "/api/checkout", nil, nil))
}

func TestOrders_NotFoundAndEmailLookup(t *testing.T) {
	g := newGateway(t, session.Config{})

	var body ErrorResponse
	assert.Equal(t, http.StatusNotFound, g.do(http.MethodGet, "/api/orders/ORD-MISSING", nil, &body))
	assert.Equal(t, "not_found", body.Code)

	assert.Equal(t, http.StatusBadRequest, g.do(http.MethodGet, "/api/orders", nil, &body))
	assert.Equal(t, "missing_email", body.Code)

	var page struct {
		Orders []any `json:"orders"`
	}
	assert.Equal(t, http.StatusOK, g.do(http.MethodGet, "/api/orders?email=nobody@example.com", nil, &page))
	assert.Empty(t, page.Orders)
}

func TestProducts_ListAndValidation(t *testing.T) {
	g := newGateway(t, session.Config{})
	g.backend.SeedProduct("Mug", "12.50", 10, "kitchen")
	g.backend.SeedProduct("Lamp", "40.00", 2, "living")

	var page struct {
		Products []struct {
			Name string `json:"name"`
		} `json:"products"`
	}
	require.Equal(t, http.StatusOK, g.do(http.MethodGet, "/api/products?category=kitchen", nil, &page))
	require.Len(t, page.Products, 1)
	assert.Equal(t, "Mug", page.Products[0].Name)

	var body ErrorResponse
	assert.Equal(t, http.StatusBadRequest, g.do(http.MethodGet, "/api/products?sort_by=colour", nil, &body))
	assert.Equal(t, "invalid_query", body.Code)

	var cats CategoriesResponse
	require.Equal(t, http.StatusOK, g.do(http.MethodGet, "/api/products/categories", nil, &cats))
	assert.ElementsMatch(t, []string{"kitchen", "living"}, cats.Categories)
}

func TestAdmin_GuardAndLogin(t *testing.T) {
	g := newGateway(t, session.Config{})
	g.backend.SeedAdmin("root", "s3cret")

	var body ErrorResponse
	assert.Equal(t, http.StatusUnauthorized, g.do(http.MethodGet, "/api/admin/orders", nil, &body))
	assert.Equal(t, "/admin/login", body.Details)

	var sess AdminSessionDTO
	require.Equal(t, http.StatusOK, g.do(http.MethodGet, "/api/admin/session", nil, &sess))
	assert.False(t, sess.Authenticated)
	assert.Equal(t, "redirect", sess.Decision)

	assert.Equal(t, http.StatusUnauthorized, g.do(http.MethodPost, "/api/admin/login", LoginRequestDTO{Username: "root", Password: "nope"}, &body))
	assert.Equal(t, "Invalid credentials", body.Error)

	require.Equal(t, http.StatusOK, g.do(http.MethodPost, "/api/admin/login", LoginRequestDTO{Username: "root", Password: "s3cret"}, &sess))
	assert.True(t, sess.Authenticated)
	assert.Equal(t, "allow", sess.Decision)
	require.NotNil(t, sess.Admin)
	assert.Equal(t, "root", sess.Admin.Username)

	var orders OrdersResponseDTO
	assert.Equal(t, http.StatusOK, g.do(http.MethodGet, "/api/admin/orders", nil, &orders))

	assert.Equal(t, http.StatusBadRequest, g.do(http.MethodGet, "/api/admin/orders?status=lost", nil, &body))
	assert.Equal(t, "invalid_status", body.Code)

	require.Equal(t, http.StatusOK, g.do(http.MethodPost, "/api/admin/logout", nil, &sess))
	assert.False(t, sess.Authenticated)
	assert.Equal(t, http.StatusUnauthorized, g.do(http.MethodGet, "/api/admin/orders/stats", nil, &body))
}

func TestAdmin_ProductEdits(t *testing.T) {
	g := newGateway(t, session.Config{})
	g.backend.SeedAdmin("root", "s3cret")
	require.Equal(t, http.StatusOK, g.do(http.MethodPost, "/api/admin/login", LoginRequestDTO{Username: "root", Password: "s3cret"}, nil))

	var body ErrorResponse
	assert.Equal(t, http.StatusBadRequest, g.do(http.MethodPost, "/api/admin/products", map[string]any{"name": "Kettle"}, &body))

	var created struct {
		ID    int64  `json:"id"`
		Name  string `json:"name"`
		Price string `json:"price"`
	}
	require.Equal(t, http.StatusCreated, g.do(http.MethodPost, "/api/admin/products", map[string]any{
		"name":           "Kettle",
		"price":          "30.00",
		"category":       "kitchen",
		"stock_quantity": 4,
	}, &created))
	assert.Equal(t, "Kettle", created.Name)

	require.Equal(t, http.StatusOK, g.do(http.MethodPut, "/api/admin/products/"+jsonInt(created.ID), map[string]any{"stock_quantity": 9}, nil))
	assert.Equal(t, 9, g.backend.Stock(created.ID))

	assert.Equal(t, http.StatusNoContent, g.do(http.MethodDelete, "/api/admin/products/"+jsonInt(created.ID), nil, nil))
}

func TestAdmin_ProductListingIncludesDeactivated(t *testing.T) {
	g := newGateway(t, session.Config{})
	g.backend.SeedAdmin("root", "s3cret")
	g.backend.SeedProduct("Mug", "12.50", 10, "kitchen")
	lamp := g.backend.SeedProduct("Lamp", "40.00", 2, "living")

	var body ErrorResponse
	assert.Equal(t, http.StatusUnauthorized, g.do(http.MethodGet, "/api/admin/products", nil, &body))

	require.Equal(t, http.StatusOK, g.do(http.MethodPost, "/api/admin/login", LoginRequestDTO{Username: "root", Password: "s3cret"}, nil))
	require.Equal(t, http.StatusNoContent, g.do(http.MethodDelete, "/api/admin/products/"+jsonInt(lamp), nil, nil))
	assert.Equal(t, http.StatusNotFound, g.do(http.MethodGet, "/api/products/"+jsonInt(lamp), nil, &body))

	type listing struct {
		Products []struct {
			ID       int64 `json:"id"`
			IsActive bool  `json:"is_active"`
		} `json:"products"`
		Total   int `json:"total"`
		PerPage int `json:"per_page"`
	}
	var all listing
	require.Equal(t, http.StatusOK, g.do(http.MethodGet, "/api/admin/products", nil, &all))
	require.Len(t, all.Products, 2)
	assert.Equal(t, 2, all.Total)
	assert.Equal(t, 20, all.PerPage)
	assert.Equal(t, lamp, all.Products[1].ID)
	assert.False(t, all.Products[1].IsActive)

	var paged listing
	require.Equal(t, http.StatusOK, g.do(http.MethodGet, "/api/admin/products?page=2&per_page=1", nil, &paged))
	require.Len(t, paged.Products, 1)
	assert.Equal(t, lamp, paged.Products[0].ID)
	assert.Equal(t, http.StatusBadRequest, g.do(http.MethodGet, "/api/admin/products?page=0", nil, &body))
	assert.Equal(t, "invalid_page", body.Code)

	require.Equal(t, http.StatusOK, g.do(http.MethodPut, "/api/admin/products/"+jsonInt(lamp), map[string]any{"is_active": true}, nil))
	assert.Equal(t, http.StatusOK, g.do(http.MethodGet, "/api/products/"+jsonInt(lamp), nil, nil))
}

func TestRateLimit_MutatingRequests(t *testing.T) {
	g := newGateway(t, session.Config{RatePerSecond: 0.001, RateBurst: 1})
	mug := g.backend.SeedProduct("Mug", "12.50", 10, "kitchen")

	assert.Equal(t, http.StatusCreated, g.do(http.MethodPost, "/api/cart/items", map[string]any{"product_id": mug}, nil))

	var body ErrorResponse
	assert.Equal(t, http.StatusTooManyRequests, g.do(http.MethodPost, "/api/cart/items", map[string]any{"product_id": mug}, &body))
	assert.Equal(t, "rate_limit_exceeded", body.Code)

	assert.Equal(t, http.StatusOK, g.do(http.MethodGet, "/api/cart", nil, nil))
}

func jsonInt(n int64) string {
	b, _ := json.Marshal(n)
	return string(b)
}
