// Package apitest is an in-memory stand-in for the shop backend. It speaks the
// same REST contract as the real service and is used by the store, flow and
// gateway tests.
package apitest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const sessionCookie = "session"

type failure struct {
	status  int
	message string
}

type cartLine struct {
	id        int64
	productID int64
	quantity  int
}

type adminAccount struct {
	admin    domain.Admin
	password string
}

// Server is a fake backend. All exported methods are safe for concurrent use.
type Server struct {
	*httptest.Server

	mu       sync.Mutex
	products map[int64]*domain.Product
	carts    map[string][]*cartLine
	orders   []*domain.Order
	admins   map[string]*adminAccount
	logins   map[string]int64 // session -> admin id
	failures map[string]failure
	calls    map[string]int
	nextID   int64

	// OnRequest, when set, runs before every request is handled.
	OnRequest func(r *http.Request)
}

func NewServer() *Server {
	s := &Server{
		products: make(map[int64]*domain.Product),
		carts:    make(map[string][]*cartLine),
		admins:   make(map[string]*adminAccount),
		logins:   make(map[string]int64),
		failures: make(map[string]failure),
		calls:    make(map[string]int),
		nextID:   1,
	}
	s.Server = httptest.NewServer(s.routes())
	return s
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(s.intercept)

	r.Get("/products", s.listProducts)
	r.Get("/products/categories", s.categories)
	r.Get("/products/{id}", s.getProduct)

	r.Get("/cart", s.getCart)
	r.Post("/cart/add", s.addToCart)
	r.Put("/cart/update/{id}", s.updateCartItem)
	r.Delete("/cart/remove/{id}", s.removeCartItem)
	r.Delete("/cart/clear", s.clearCart)

	r.Post("/orders/checkout", s.checkout)
	r.Get("/orders/email/{email}", s.ordersByEmail)
	r.Get("/orders/{number}", s.getOrder)

	r.Post("/admin/login", s.login)
	r.Post("/admin/logout", s.logout)
	r.Get("/admin/check-auth", s.checkAuth)
	r.Post("/admin/create-default", s.createDefaultAdmin)
	r.Group(func(r chi.Router) {
		r.Use(s.requireAdmin)
		r.Get("/admin/orders", s.adminOrders)
		r.Get("/admin/orders/stats", s.orderStats)
		r.Put("/admin/orders/{id}", s.updateOrderStatus)
		r.Get("/admin/products", s.adminProducts)
		r.Post("/admin/products", s.createProduct)
		r.Put("/admin/products/{id}", s.updateProduct)
		r.Delete("/admin/products/{id}", s.deleteProduct)
	})
	return r
}

// SeedProduct registers an active product and returns its id.
func (s *Server) SeedProduct(name, price string, stock int, category string) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.allocID()
	now := time.Now().UTC()
	s.products[id] = &domain.Product{
		ProductRef: domain.ProductRef{
			ID:            id,
			Name:          name,
			Price:         decimal.RequireFromString(price),
			Category:      category,
			StockQuantity: stock,
		},
		IsActive:  true,
		CreatedAt: &now,
	}
	return id
}

// SeedAdmin registers an active admin account.
func (s *Server) SeedAdmin(username, password string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.admins[username] = &adminAccount{
		admin:    domain.Admin{ID: s.allocID(), Username: username, Email: username + "@example.com", IsActive: true},
		password: password,
	}
}

// SetStock overwrites a product's stock level.
func (s *Server) SetStock(productID int64, stock int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.products[productID]; ok {
		p.StockQuantity = stock
	}
}

func (s *Server) Stock(productID int64) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.products[productID]; ok {
		return p.StockQuantity
	}
	return 0
}

// FailNext makes the next request matching "METHOD /path" answer status with
// an {"error": message} body. The path is the route pattern, e.g.
// "PUT /cart/update/{id}".
func (s *Server) FailNext(route string, status int, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[route] = failure{status: status, message: message}
}

// Calls returns how many requests hit the route pattern "METHOD /path".
func (s *Server) Calls(route string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[route]
}

func (s *Server) Orders() []domain.Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Order, 0, len(s.orders))
	for _, o := range s.orders {
		out = append(out, *o)
	}
	return out
}

func (s *Server) allocID() int64 {
	id := s.nextID
	s.nextID++
	return id
}

func (s *Server) intercept(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.OnRequest != nil {
			s.OnRequest(r)
		}

		// chi only knows the matched pattern after routing, so match on a
		// normalised path instead.
		route := r.Method + " " + routePattern(r.URL.Path)

		s.mu.Lock()
		s.calls[route]++
		f, fail := s.failures[route]
		delete(s.failures, route)
		s.mu.Unlock()

		if fail {
			writeError(w, f.status, f.message)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// routePattern maps concrete paths onto their route patterns.
func routePattern(path string) string {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	switch {
	case len(parts) == 3 && parts[0] == "cart":
		return "/cart/" + parts[1] + "/{id}"
	case len(parts) == 2 && parts[0] == "products" && parts[1] != "categories":
		return "/products/{id}"
	case len(parts) == 2 && parts[0] == "orders" && parts[1] != "checkout":
		return "/orders/{number}"
	case len(parts) == 3 && parts[0] == "orders" && parts[1] == "email":
		return "/orders/email/{email}"
	case len(parts) == 3 && parts[0] == "admin" && parts[2] != "stats":
		return "/admin/" + parts[1] + "/{id}"
	}
	return path
}

// sessionID returns the caller's session, issuing a cookie on first use.
func sessionID(w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(sessionCookie); err == nil && c.Value != "" {
		return c.Value
	}
	id := uuid.NewString()
	http.SetCookie(w, &http.Cookie{Name: sessionCookie, Value: id, Path: "/", HttpOnly: true})
	return id
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
