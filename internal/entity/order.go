package entity

import "time"

type OrderStatus string

const (
	OrderPending    OrderStatus = "pending"
	OrderProcessing OrderStatus = "processing"
	OrderShipped    OrderStatus = "shipped"
	OrderDelivered  OrderStatus = "delivered"
	OrderCancelled  OrderStatus = "cancelled"
)

func (s OrderStatus) Valid() bool {
	switch s {
	case OrderPending, OrderProcessing, OrderShipped, OrderDelivered, OrderCancelled:
		return true
	}
	return false
}

type OrderItem struct {
	ID              ID        `json:"id"`
	OrderID         ID        `json:"order_id"`
	BookID          ID        `json:"book_id"`
	Book            *Book     `json:"book,omitempty"`
	Quantity        int       `json:"quantity"`
	PriceAtPurchase Money     `json:"price_at_purchase"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func (i OrderItem) Subtotal() float64 {
	return i.PriceAtPurchase.Float() * float64(i.Quantity)
}

type Order struct {
	ID              ID          `json:"id"`
	UserID          ID          `json:"user_id"`
	TotalAmount     Money       `json:"total_amount"`
	User            *User       `json:"user,omitempty"`
	Status          OrderStatus `json:"status"`
	ShippingAddress string      `json:"shipping_address,omitempty"`
	OrderItems      []OrderItem `json:"order_items,omitempty"`
	CreatedAt       time.Time   `json:"created_at"`
	UpdatedAt       time.Time   `json:"updated_at"`
}
