package bookstore

import (
	"context"
	"net/url"

	"bookworm/internal/entity"
)

type OrdersQuery struct {
	UserID entity.ID
	Status entity.OrderStatus
}

func (q OrdersQuery) values() url.Values {
	v := url.Values{}
	if q.UserID > 0 {
		v.Set("user_id", q.UserID.String())
	}
	if q.Status != "" {
		v.Set("status", string(q.Status))
	}
	return v
}

type OrderInput struct {
	UserID          entity.ID          `json:"user_id,omitempty"`
	TotalAmount     float64            `json:"total_amount,omitempty"`
	Status          entity.OrderStatus `json:"status,omitempty"`
	ShippingAddress string             `json:"shipping_address,omitempty"`
}

type OrderItemInput struct {
	BookID          entity.ID `json:"book_id,omitempty"`
	Quantity        int       `json:"quantity,omitempty"`
	PriceAtPurchase float64   `json:"price_at_purchase,omitempty"`
}

type orderEnvelope struct {
	Order OrderInput `json:"order"`
}

type orderItemEnvelope struct {
	OrderItem OrderItemInput `json:"order_item"`
}

func (c *Client) ListOrders(ctx context.Context, q OrdersQuery) ([]entity.Order, error) {
	var out []entity.Order
	err := c.get(ctx, "/orders", q.values(), &out)
	return out, err
}

func (c *Client) GetOrder(ctx context.Context, id entity.ID) (entity.Order, error) {
	var out entity.Order
	err := c.get(ctx, pathf("/orders/%d", id), nil, &out)
	return out, err
}

func (c *Client) CreateOrder(ctx context.Context, in OrderInput) (entity.Order, error) {
	var out entity.Order
	err := c.post(ctx, "/orders", orderEnvelope{Order: in}, &out)
	return out, err
}

func (c *Client) UpdateOrder(ctx context.Context, id entity.ID, in OrderInput) (entity.Order, error) {
	var out entity.Order
	err := c.put(ctx, pathf("/orders/%d", id), orderEnvelope{Order: in}, &out)
	return out, err
}

func (c *Client) DeleteOrder(ctx context.Context, id entity.ID) error {
	return c.delete(ctx, pathf("/orders/%d", id))
}

func (c *Client) UserOrders(ctx context.Context, userID entity.ID) ([]entity.Order, error) {
	return c.ListOrders(ctx, OrdersQuery{UserID: userID})
}

func (c *Client) OrdersByStatus(ctx context.Context, status entity.OrderStatus) ([]entity.Order, error) {
	return c.ListOrders(ctx, OrdersQuery{Status: status})
}

func (c *Client) ListOrderItems(ctx context.Context, orderID entity.ID) ([]entity.OrderItem, error) {
	var out []entity.OrderItem
	err := c.get(ctx, pathf("/orders/%d/order_items", orderID), nil, &out)
	return out, err
}

func (c *Client) CreateOrderItem(ctx context.Context, orderID entity.ID, in OrderItemInput) (entity.OrderItem, error) {
	var out entity.OrderItem
	err := c.post(ctx, pathf("/orders/%d/order_items", orderID), orderItemEnvelope{OrderItem: in}, &out)
	return out, err
}

func (c *Client) UpdateOrderItem(ctx context.Context, orderID, itemID entity.ID, in OrderItemInput) (entity.OrderItem, error) {
	var out entity.OrderItem
	err := c.put(ctx, pathf("/orders/%d/order_items/%d", orderID, itemID), orderItemEnvelope{OrderItem: in}, &out)
	return out, err
}

func (c *Client) DeleteOrderItem(ctx context.Context, orderID, itemID entity.ID) error {
	return c.delete(ctx, pathf("/orders/%d/order_items/%d", orderID, itemID))
}
