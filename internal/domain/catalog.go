package domain

import "time"

type Product struct {
	ProductRef
	IsActive  bool       `json:"is_active"`
	CreatedAt *time.Time `json:"created_at,omitempty"`
}

// Page describes one page of a paginated listing.
type Page struct {
	Total       int `json:"total"`
	Pages       int `json:"pages"`
	CurrentPage int `json:"current_page"`
	PerPage     int `json:"per_page"`
}

type ProductPage struct {
	Products []Product `json:"products"`
	Page
}

type OrderPage struct {
	Orders []Order `json:"orders"`
	Page
}

type Admin struct {
	ID        int64      `json:"id"`
	Username  string     `json:"username"`
	Email     string     `json:"email,omitempty"`
	IsActive  bool       `json:"is_active"`
	LastLogin *time.Time `json:"last_login,omitempty"`
}
