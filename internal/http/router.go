package http

import (
	"net/http"
	"time"

	"github.com/fjod/go_cart/storefront/internal/catalog"
	"github.com/fjod/go_cart/storefront/internal/events"
	"github.com/fjod/go_cart/storefront/internal/session"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

type RouterConfig struct {
	RequestTimeout     time.Duration
	MaxRequestBodySize int64
	CORSAllowOrigins   []string
	SessionCookieName  string
	SecureCookies      bool
}

type Deps struct {
	Sessions  *session.Registry
	Catalog   *catalog.Service
	Publisher events.Publisher
	Logger    *zap.Logger
}

func NewRouter(cfg RouterConfig, deps Deps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	publisher := deps.Publisher
	if publisher == nil {
		publisher = events.NopPublisher{}
	}

	cartHandler := NewCartHandler()
	checkoutHandler := NewCheckoutHandler(deps.Catalog, publisher, logger)
	ordersHandler := NewOrdersHandler()
	productHandler := NewProductHandler(deps.Catalog, cfg.RequestTimeout)
	adminHandler := NewAdminHandler(deps.Catalog, cfg.RequestTimeout)

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(cfg.RequestTimeout))
	r.Use(middleware.Compress(5))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSAllowOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(maxBodySize(cfg.MaxRequestBodySize))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Route("/products", func(r chi.Router) {
			r.Get("/", productHandler.List)
			r.Get("/categories", productHandler.Categories)
			r.Get("/{product_id}", productHandler.Get)
		})

		r.Group(func(r chi.Router) {
			r.Use(SessionMiddleware(deps.Sessions, cfg.SessionCookieName, cfg.SecureCookies))
			r.Use(RateLimitMiddleware)

			r.Route("/cart", func(r chi.Router) {
				r.Get("/", cartHandler.GetCart)
				r.Delete("/", cartHandler.ClearCart)
				r.Post("/items", cartHandler.AddItem)
				r.Put("/items/{item_id}", cartHandler.UpdateQuantity)
				r.Delete("/items/{item_id}", cartHandler.RemoveItem)
			})

			r.Route("/checkout", func(r chi.Router) {
				r.Post("/", checkoutHandler.Begin)
				r.Get("/", checkoutHandler.Get)
				r.Delete("/", checkoutHandler.Discard)
				r.Put("/fields", checkoutHandler.SetFields)
				r.Post("/next", checkoutHandler.Next)
				r.Post("/previous", checkoutHandler.Previous)
				r.Post("/submit", checkoutHandler.Submit)
			})

			r.Route("/orders", func(r chi.Router) {
				r.Get("/", ordersHandler.ByEmail)
				r.Get("/{order_number}", ordersHandler.GetOrder)
			})

			r.Route("/admin", func(r chi.Router) {
				r.Get("/session", adminHandler.Session)
				r.Post("/login", adminHandler.Login)
				r.Post("/logout", adminHandler.Logout)
				r.Post("/setup", adminHandler.CreateDefaultAdmin)

				r.Group(func(r chi.Router) {
					r.Use(RequireAdmin)
					r.Get("/orders", adminHandler.Orders)
					r.Get("/orders/stats", adminHandler.Stats)
					r.Put("/orders/{order_id}/status", adminHandler.SetOrderStatus)
					r.Get("/products", adminHandler.Products)
					r.Post("/products", adminHandler.CreateProduct)
					r.Put("/products/{product_id}", adminHandler.UpdateProduct)
					r.Delete("/products/{product_id}", adminHandler.DeleteProduct)
				})
			})
		})
	})

	return otelhttp.NewHandler(r, "storefront")
}

func maxBodySize(limit int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if limit > 0 && r.Body != nil {
				r.Body = http.MaxBytesReader(w, r.Body, limit)
			}
			next.ServeHTTP(w, r)
		})
	}
}
