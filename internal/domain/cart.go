package domain

import "github.com/shopspring/decimal"

// ProductRef is a point-in-time copy of a catalog product as the cart resource returned it.
type ProductRef struct {
	ID            int64           `json:"id"`
	Name          string          `json:"name"`
	Description   string          `json:"description,omitempty"`
	Price         decimal.Decimal `json:"price"`
	Category      string          `json:"category,omitempty"`
	StockQuantity int             `json:"stock_quantity"`
	ImageURL      string          `json:"image_url,omitempty"`
}

type CartItem struct {
	ID        int64            `json:"id"`
	ProductID int64            `json:"product_id"`
	Product   *ProductRef      `json:"product,omitempty"`
	Quantity  int              `json:"quantity"`
	Subtotal  *decimal.Decimal `json:"subtotal,omitempty"`
}

// LineTotal returns the server supplied subtotal when present, otherwise price * quantity.
func (i CartItem) LineTotal() decimal.Decimal {
	if i.Subtotal != nil {
		return *i.Subtotal
	}
	if i.Product == nil {
		return decimal.Zero
	}
	return i.Product.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Stock returns the stock quantity captured with the line, and false when the
// cart resource did not embed the product.
func (i CartItem) Stock() (int, bool) {
	if i.Product == nil {
		return 0, false
	}
	return i.Product.StockQuantity, true
}

// CartSnapshot is the cart exactly as the last successful GET /cart reported it.
type CartSnapshot struct {
	Items     []CartItem      `json:"items"`
	ItemCount int             `json:"item_count"`
	Total     decimal.Decimal `json:"total"`
}

func EmptySnapshot() CartSnapshot {
	return CartSnapshot{Items: []CartItem{}, Total: decimal.Zero}
}

func (s CartSnapshot) Empty() bool {
	return len(s.Items) == 0
}

func (s CartSnapshot) Find(itemID int64) (CartItem, bool) {
	for _, item := range s.Items {
		if item.ID == itemID {
			return item, true
		}
	}
	return CartItem{}, false
}

func (s CartSnapshot) SumQuantity() int {
	n := 0
	for _, item := range s.Items {
		n += item.Quantity
	}
	return n
}

func (s CartSnapshot) SumLineTotals() decimal.Decimal {
	total := decimal.Zero
	for _, item := range s.Items {
		total = total.Add(item.LineTotal())
	}
	return total
}

// Clone returns a copy whose Items slice can be handed to other goroutines.
func (s CartSnapshot) Clone() CartSnapshot {
	items := make([]CartItem, len(s.Items))
	copy(items, s.Items)
	s.Items = items
	return s
}
