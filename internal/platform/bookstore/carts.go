package bookstore

import (
	"context"

	"bookworm/internal/entity"
)

type CartItemInput struct {
	BookID   entity.ID `json:"book_id,omitempty"`
	Quantity int       `json:"quantity"`
}

type cartItemEnvelope struct {
	CartItem CartItemInput `json:"cart_item"`
}

func (c *Client) GetUserCart(ctx context.Context, userID entity.ID) (entity.Cart, error) {
	var out entity.Cart
	err := c.get(ctx, pathf("/users/%d/cart", userID), nil, &out)
	return out, err
}

func (c *Client) CreateCart(ctx context.Context, userID entity.ID) (entity.Cart, error) {
	var out entity.Cart
	err := c.post(ctx, pathf("/users/%d/cart", userID), nil, &out)
	return out, err
}

// ClearCart removes every item but keeps the cart.
func (c *Client) ClearCart(ctx context.Context, cartID entity.ID) error {
	return c.delete(ctx, pathf("/carts/%d/clear", cartID))
}

func (c *Client) DeleteCart(ctx context.Context, cartID entity.ID) error {
	return c.delete(ctx, pathf("/carts/%d", cartID))
}

func (c *Client) AddToCart(ctx context.Context, cartID entity.ID, in CartItemInput) (entity.CartItem, error) {
	var out entity.CartItem
	err := c.post(ctx, pathf("/carts/%d/cart_items", cartID), cartItemEnvelope{CartItem: in}, &out)
	return out, err
}

func (c *Client) UpdateCartItem(ctx context.Context, cartID, itemID entity.ID, quantity int) (entity.CartItem, error) {
	var out entity.CartItem
	body := cartItemEnvelope{CartItem: CartItemInput{Quantity: quantity}}
	err := c.put(ctx, pathf("/carts/%d/cart_items/%d", cartID, itemID), body, &out)
	return out, err
}

func (c *Client) RemoveFromCart(ctx context.Context, cartID, itemID entity.ID) error {
	return c.delete(ctx, pathf("/carts/%d/cart_items/%d", cartID, itemID))
}

func (c *Client) ListCartItems(ctx context.Context, cartID entity.ID) ([]entity.CartItem, error) {
	var out []entity.CartItem
	err := c.get(ctx, pathf("/carts/%d/cart_items", cartID), nil, &out)
	return out, err
}
