package apitest

import (
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func idParam(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	return id, err == nil && id > 0
}

func intQuery(r *http.Request, key string, def int) int {
	if v, err := strconv.Atoi(r.URL.Query().Get(key)); err == nil && v > 0 {
		return v
	}
	return def
}

func paginate(total, page, perPage int) (start, end int, p domain.Page) {
	pages := int(math.Ceil(float64(total) / float64(perPage)))
	start = (page - 1) * perPage
	if start > total {
		start = total
	}
	end = start + perPage
	if end > total {
		end = total
	}
	return start, end, domain.Page{Total: total, Pages: pages, CurrentPage: page, PerPage: perPage}
}

func (s *Server) listProducts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	category, search := q.Get("category"), strings.ToLower(q.Get("search"))

	s.mu.Lock()
	var matched []domain.Product
	for _, p := range s.products {
		if !p.IsActive {
			continue
		}
		if category != "" && p.Category != category {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(p.Name+" "+p.Description), search) {
			continue
		}
		matched = append(matched, *p)
	}
	s.mu.Unlock()

	asc := q.Get("sort_order") == "asc"
	sort.Slice(matched, func(i, j int) bool {
		var less bool
		switch q.Get("sort_by") {
		case "price":
			less = matched[i].Price.LessThan(matched[j].Price)
		case "name":
			less = matched[i].Name < matched[j].Name
		default:
			less = matched[i].ID < matched[j].ID
		}
		if asc {
			return less
		}
		return !less
	})

	start, end, page := paginate(len(matched), intQuery(r, "page", 1), intQuery(r, "per_page", 12))
	writeJSON(w, http.StatusOK, domain.ProductPage{Products: matched[start:end], Page: page})
}

func (s *Server) categories(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	seen := make(map[string]struct{})
	for _, p := range s.products {
		if p.IsActive && p.Category != "" {
			seen[p.Category] = struct{}{}
		}
	}
	s.mu.Unlock()

	cats := make([]string, 0, len(seen))
	for c := range seen {
		cats = append(cats, c)
	}
	sort.Strings(cats)
	writeJSON(w, http.StatusOK, map[string][]string{"categories": cats})
}

func (s *Server) getProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	s.mu.Lock()
	p, exists := s.products[id]
	var out domain.Product
	if exists {
		out = *p
	}
	s.mu.Unlock()

	if !ok || !exists || !out.IsActive {
		writeError(w, http.StatusNotFound, "Product not found")
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) cartView(session string) domain.CartSnapshot {
	snap := domain.EmptySnapshot()
	for _, line := range s.carts[session] {
		p := s.products[line.productID]
		ref := p.ProductRef
		subtotal := ref.Price.Mul(decimal.NewFromInt(int64(line.quantity)))
		snap.Items = append(snap.Items, domain.CartItem{
			ID:        line.id,
			ProductID: line.productID,
			Product:   &ref,
			Quantity:  line.quantity,
			Subtotal:  &subtotal,
		})
		snap.ItemCount += line.quantity
		snap.Total = snap.Total.Add(subtotal)
	}
	return snap
}

func (s *Server) getCart(w http.ResponseWriter, r *http.Request) {
	session := sessionID(w, r)
	s.mu.Lock()
	snap := s.cartView(session)
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) addToCart(w http.ResponseWriter, r *http.Request) {
	session := sessionID(w, r)

	var req struct {
		ProductID int64 `json:"product_id"`
		Quantity  int   `json:"quantity"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ProductID == 0 || req.Quantity == 0 {
		writeError(w, http.StatusBadRequest, "Product ID and quantity are required")
		return
	}
	if req.Quantity < 0 {
		writeError(w, http.StatusBadRequest, "Quantity must be greater than 0")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.products[req.ProductID]
	if !ok || !p.IsActive {
		writeError(w, http.StatusNotFound, "Product not found")
		return
	}
	if p.StockQuantity < req.Quantity {
		writeError(w, http.StatusBadRequest, "Insufficient stock")
		return
	}

	for _, line := range s.carts[session] {
		if line.productID == req.ProductID {
			if p.StockQuantity < line.quantity+req.Quantity {
				writeError(w, http.StatusBadRequest, "Insufficient stock")
				return
			}
			line.quantity += req.Quantity
			writeJSON(w, http.StatusOK, map[string]string{"message": "Item added to cart successfully"})
			return
		}
	}
	s.carts[session] = append(s.carts[session], &cartLine{id: s.allocID(), productID: req.ProductID, quantity: req.Quantity})
	writeJSON(w, http.StatusOK, map[string]string{"message": "Item added to cart successfully"})
}

func (s *Server) updateCartItem(w http.ResponseWriter, r *http.Request) {
	session := sessionID(w, r)
	id, _ := idParam(r)

	var req struct {
		Quantity *int `json:"quantity"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Quantity == nil {
		writeError(w, http.StatusBadRequest, "Quantity is required")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	lines := s.carts[session]
	for i, line := range lines {
		if line.id != id {
			continue
		}
		if *req.Quantity <= 0 {
			s.carts[session] = append(lines[:i], lines[i+1:]...)
		} else {
			if s.products[line.productID].StockQuantity < *req.Quantity {
				writeError(w, http.StatusBadRequest, "Insufficient stock")
				return
			}
			line.quantity = *req.Quantity
		}
		writeJSON(w, http.StatusOK, map[string]string{"message": "Cart updated successfully"})
		return
	}
	writeError(w, http.StatusNotFound, "Cart item not found")
}

func (s *Server) removeCartItem(w http.ResponseWriter, r *http.Request) {
	session := sessionID(w, r)
	id, _ := idParam(r)

	s.mu.Lock()
	defer s.mu.Unlock()

	lines := s.carts[session]
	for i, line := range lines {
		if line.id == id {
			s.carts[session] = append(lines[:i], lines[i+1:]...)
			writeJSON(w, http.StatusOK, map[string]string{"message": "Item removed from cart successfully"})
			return
		}
	}
	writeError(w, http.StatusNotFound, "Cart item not found")
}

func (s *Server) clearCart(w http.ResponseWriter, r *http.Request) {
	session := sessionID(w, r)
	s.mu.Lock()
	delete(s.carts, session)
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]string{"message": "Cart cleared successfully"})
}

func orderNumber(now time.Time) string {
	return fmt.Sprintf("ORD-%s-%s", now.Format("20060102150405"), strings.ToUpper(uuid.NewString()[:8]))
}

func (s *Server) checkout(w http.ResponseWriter, r *http.Request) {
	session := sessionID(w, r)

	var req map[string]string
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Order data is required")
		return
	}
	for _, field := range []string{"customer_name", "customer_email", "shipping_address"} {
		if req[field] == "" {
			writeError(w, http.StatusBadRequest, field+" is required")
			return
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	lines := s.carts[session]
	if len(lines) == 0 {
		writeError(w, http.StatusBadRequest, "Cart is empty")
		return
	}

	total := decimal.Zero
	items := make([]domain.OrderItem, 0, len(lines))
	for _, line := range lines {
		p := s.products[line.productID]
		if !p.IsActive {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("Product %d is no longer available", p.ID))
			return
		}
		if p.StockQuantity < line.quantity {
			writeError(w, http.StatusBadRequest, "Insufficient stock for "+p.Name)
			return
		}
		ref := p.ProductRef
		item := domain.OrderItem{ID: s.allocID(), ProductID: p.ID, Product: &ref, Quantity: line.quantity, Price: p.Price}
		total = total.Add(item.LineTotal())
		items = append(items, item)
	}
	for _, line := range lines {
		s.products[line.productID].StockQuantity -= line.quantity
	}

	now := time.Now().UTC()
	order := &domain.Order{
		ID:              s.allocID(),
		OrderNumber:     orderNumber(now),
		CustomerName:    req["customer_name"],
		CustomerEmail:   req["customer_email"],
		ShippingAddress: req["shipping_address"],
		TotalAmount:     total,
		Status:          domain.OrderStatusConfirmed,
		Items:           items,
		CreatedAt:       now,
	}
	s.orders = append(s.orders, order)
	delete(s.carts, session)

	writeJSON(w, http.StatusCreated, map[string]any{"message": "Order placed successfully", "order": order})
}

func (s *Server) getOrder(w http.ResponseWriter, r *http.Request) {
	number := chi.URLParam(r, "number")
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, o := range s.orders {
		if o.OrderNumber == number {
			writeJSON(w, http.StatusOK, o)
			return
		}
	}
	writeError(w, http.StatusNotFound, "Order not found")
}

func (s *Server) ordersByEmail(w http.ResponseWriter, r *http.Request) {
	email := chi.URLParam(r, "email")
	s.mu.Lock()
	var matched []domain.Order
	for i := len(s.orders) - 1; i >= 0; i-- {
		if s.orders[i].CustomerEmail == email {
			matched = append(matched, *s.orders[i])
		}
	}
	s.mu.Unlock()

	start, end, page := paginate(len(matched), intQuery(r, "page", 1), intQuery(r, "per_page", 10))
	writeJSON(w, http.StatusOK, domain.OrderPage{Orders: matched[start:end], Page: page})
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	session := sessionID(w, r)
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Username == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "Username and password required")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	acct, ok := s.admins[req.Username]
	if !ok || acct.password != req.Password || !acct.admin.IsActive {
		writeError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}
	now := time.Now().UTC()
	acct.admin.LastLogin = &now
	s.logins[session] = acct.admin.ID
	writeJSON(w, http.StatusOK, map[string]any{"message": "Login successful", "admin": acct.admin})
}

func (s *Server) currentAdmin(r *http.Request) (domain.Admin, bool) {
	c, err := r.Cookie(sessionCookie)
	if err != nil {
		return domain.Admin{}, false
	}
	id, ok := s.logins[c.Value]
	if !ok {
		return domain.Admin{}, false
	}
	for _, acct := range s.admins {
		if acct.admin.ID == id && acct.admin.IsActive {
			return acct.admin, true
		}
	}
	return domain.Admin{}, false
}

func (s *Server) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		_, ok := s.currentAdmin(r)
		s.mu.Unlock()
		if !ok {
			writeError(w, http.StatusUnauthorized, "Authentication required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) logout(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.currentAdmin(r); !ok {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}
	c, _ := r.Cookie(sessionCookie)
	delete(s.logins, c.Value)
	writeJSON(w, http.StatusOK, map[string]string{"message": "Logout successful"})
}

func (s *Server) checkAuth(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	admin, ok := s.currentAdmin(r)
	s.mu.Unlock()
	if !ok {
		writeJSON(w, http.StatusOK, map[string]bool{"authenticated": false})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"authenticated": true, "admin": admin})
}

func (s *Server) createDefaultAdmin(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	exists := len(s.admins) > 0
	s.mu.Unlock()
	if exists {
		writeError(w, http.StatusBadRequest, "Admin already exists")
		return
	}
	s.SeedAdmin("admin", "admin123")
	writeJSON(w, http.StatusCreated, map[string]any{
		"message":     "Default admin created successfully",
		"credentials": map[string]string{"username": "admin", "password": "admin123"},
	})
}

func (s *Server) adminOrders(w http.ResponseWriter, r *http.Request) {
	status := domain.OrderStatus(r.URL.Query().Get("status"))
	s.mu.Lock()
	orders := make([]domain.Order, 0, len(s.orders))
	for i := len(s.orders) - 1; i >= 0; i-- {
		if status == "" || s.orders[i].Status == status {
			orders = append(orders, *s.orders[i])
		}
	}
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{"orders": orders})
}

// adminProducts lists every product, inactive ones included.
func (s *Server) adminProducts(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	all := make([]domain.Product, 0, len(s.products))
	for _, p := range s.products {
		all = append(all, *p)
	}
	s.mu.Unlock()
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })

	start, end, page := paginate(len(all), intQuery(r, "page", 1), intQuery(r, "per_page", 20))
	writeJSON(w, http.StatusOK, domain.ProductPage{Products: all[start:end], Page: page})
}

func (s *Server) orderStats(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stats := domain.OrderStats{TotalRevenue: decimal.Zero, StatusBreakdown: make(map[domain.OrderStatus]int)}
	cutoff := time.Now().Add(-30 * 24 * time.Hour)
	for _, o := range s.orders {
		stats.TotalOrders++
		stats.TotalRevenue = stats.TotalRevenue.Add(o.TotalAmount)
		stats.StatusBreakdown[o.Status]++
		if o.CreatedAt.After(cutoff) {
			stats.RecentOrders30Days++
		}
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) updateOrderStatus(w http.ResponseWriter, r *http.Request) {
	id, _ := idParam(r)
	var req struct {
		Status domain.OrderStatus `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Status == "" {
		writeError(w, http.StatusBadRequest, "Status is required")
		return
	}
	if !req.Status.Valid() {
		writeError(w, http.StatusBadRequest, "Invalid status")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, o := range s.orders {
		if o.ID == id {
			o.Status = req.Status
			writeJSON(w, http.StatusOK, map[string]any{"message": "Order status updated successfully", "order": o})
			return
		}
	}
	writeError(w, http.StatusNotFound, "Order not found")
}

type productForm struct {
	Name          *string          `json:"name"`
	Description   *string          `json:"description"`
	Price         *decimal.Decimal `json:"price"`
	Category      *string          `json:"category"`
	StockQuantity *int             `json:"stock_quantity"`
	ImageURL      *string          `json:"image_url"`
	IsActive      *bool            `json:"is_active"`
}

func (f productForm) apply(p *domain.Product) {
	if f.Name != nil {
		p.Name = *f.Name
	}
	if f.Description != nil {
		p.Description = *f.Description
	}
	if f.Price != nil {
		p.Price = *f.Price
	}
	if f.Category != nil {
		p.Category = *f.Category
	}
	if f.StockQuantity != nil {
		p.StockQuantity = *f.StockQuantity
	}
	if f.ImageURL != nil {
		p.ImageURL = *f.ImageURL
	}
	if f.IsActive != nil {
		p.IsActive = *f.IsActive
	}
}

func (s *Server) createProduct(w http.ResponseWriter, r *http.Request) {
	var form productForm
	if err := json.NewDecoder(r.Body).Decode(&form); err != nil || form.Name == nil || *form.Name == "" || form.Price == nil {
		writeError(w, http.StatusBadRequest, "Name and price are required")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	p := &domain.Product{ProductRef: domain.ProductRef{ID: s.allocID()}, IsActive: true, CreatedAt: &now}
	form.apply(p)
	s.products[p.ID] = p
	writeJSON(w, http.StatusCreated, map[string]any{"message": "Product created successfully", "product": p})
}

func (s *Server) updateProduct(w http.ResponseWriter, r *http.Request) {
	id, _ := idParam(r)
	var form productForm
	if err := json.NewDecoder(r.Body).Decode(&form); err != nil {
		writeError(w, http.StatusBadRequest, "No data provided")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[id]
	if !ok {
		writeError(w, http.StatusNotFound, "Product not found")
		return
	}
	form.apply(p)
	writeJSON(w, http.StatusOK, map[string]any{"message": "Product updated successfully", "product": p})
}

func (s *Server) deleteProduct(w http.ResponseWriter, r *http.Request) {
	id, _ := idParam(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[id]
	if !ok {
		writeError(w, http.StatusNotFound, "Product not found")
		return
	}
	p.IsActive = false
	writeJSON(w, http.StatusOK, map[string]string{"message": "Product deleted successfully"})
}
