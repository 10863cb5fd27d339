package entity

import "time"

type CartItem struct {
	ID        ID        `json:"id"`
	CartID    ID        `json:"cart_id"`
	BookID    ID        `json:"book_id"`
	Book      *Book     `json:"book,omitempty"`
	Quantity  int       `json:"quantity"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Subtotal is price times quantity; an item without an embedded book counts as zero.
func (i CartItem) Subtotal() float64 {
	if i.Book == nil {
		return 0
	}
	return i.Book.Price.Float() * float64(i.Quantity)
}

type Cart struct {
	ID        ID         `json:"id"`
	UserID    ID         `json:"user_id"`
	CartItems []CartItem `json:"cart_items,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// Items returns the cart lines, never nil.
func (c *Cart) Items() []CartItem {
	if c == nil || c.CartItems == nil {
		return []CartItem{}
	}
	return c.CartItems
}

// ItemCount sums the quantities of every line.
func (c *Cart) ItemCount() int {
	total := 0
	for _, item := range c.Items() {
		total += item.Quantity
	}
	return total
}

func (c *Cart) IsEmpty() bool {
	return len(c.Items()) == 0
}

// CartTotal is the display total of the given lines. The API recomputes the
// authoritative amount when the order is created.
func CartTotal(items []CartItem) float64 {
	total := 0.0
	for _, item := range items {
		total += item.Subtotal()
	}
	return total
}
