package domain

import "time"

// CartItem represents a single line in the cart. UnitPrice and LineTotal are
// in cents. AvailableStock and MaxAllowedQuantity are server-owned facts
// echoed back on every reconciliation.
type CartItem struct {
	ID                 string `json:"id"`
	ProductID          string `json:"product_id"`
	VariantID          string `json:"variant_id"`
	Quantity           int    `json:"quantity"`
	UnitPrice          int64  `json:"unit_price"`
	LineTotal          int64  `json:"line_total"`
	AvailableStock     int    `json:"available_stock"`
	MaxAllowedQuantity int    `json:"max_allowed_quantity"`
}

// CartSummary holds the server-computed rollup for the cart.
type CartSummary struct {
	Subtotal  int64 `json:"subtotal"`
	ItemCount int   `json:"item_count"`
}

// Cart is the client's reflection of the server cart. Items keep insertion
// order. After any reconciliation Summary.Subtotal equals the sum of line
// totals; it may transiently diverge while an optimistic patch is pending.
type Cart struct {
	Items     []CartItem  `json:"items"`
	Summary   CartSummary `json:"summary"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// Subtotal computes the sum of line totals (in cents).
func (c *Cart) Subtotal() int64 {
	var subtotal int64
	for _, item := range c.Items {
		subtotal += item.LineTotal
	}
	return subtotal
}

// ItemCount returns the total quantity across all lines.
func (c *Cart) ItemCount() int {
	var count int
	for _, item := range c.Items {
		count += item.Quantity
	}
	return count
}

// FindItemIndex returns the index of the cart item with the given id, or -1.
func (c *Cart) FindItemIndex(itemID string) int {
	for i := range c.Items {
		if c.Items[i].ID == itemID {
			return i
		}
	}
	return -1
}

// Clone returns a deep copy of the cart. Optimistic mutations patch a clone
// so the pre-mutation snapshot survives for rollback.
func (c *Cart) Clone() *Cart {
	if c == nil {
		return nil
	}
	cp := *c
	cp.Items = make([]CartItem, len(c.Items))
	copy(cp.Items, c.Items)
	return &cp
}

// EmptyCart returns a cart with no items and a zeroed summary.
func EmptyCart() *Cart {
	return &Cart{Items: []CartItem{}}
}
