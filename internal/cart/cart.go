// Package cart keeps the viewer's cart in step with the API: it finds or
// creates the cart and forwards every change to it.
package cart

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"bookworm/internal/entity"
	"bookworm/internal/platform/bookstore"

	"golang.org/x/sync/errgroup"
)

var (
	ErrNoCart          = errors.New("no cart")
	ErrInvalidQuantity = errors.New("quantity must be at least 1")
)

// maxBookLookups bounds concurrent book fetches for items the API returned
// without an embedded book.
const maxBookLookups = 4

type API interface {
	GetUserCart(ctx context.Context, userID entity.ID) (entity.Cart, error)
	CreateCart(ctx context.Context, userID entity.ID) (entity.Cart, error)
	AddToCart(ctx context.Context, cartID entity.ID, in bookstore.CartItemInput) (entity.CartItem, error)
	UpdateCartItem(ctx context.Context, cartID, itemID entity.ID, quantity int) (entity.CartItem, error)
	RemoveFromCart(ctx context.Context, cartID, itemID entity.ID) error
	ClearCart(ctx context.Context, cartID entity.ID) error
	GetBook(ctx context.Context, id entity.ID) (entity.Book, error)
}

type Service struct {
	api API
}

func NewService(api API) *Service {
	return &Service{api: api}
}

// Load returns the user's cart, creating one when it cannot be fetched.
func (s *Service) Load(ctx context.Context, userID entity.ID) (entity.Cart, error) {
	op := "cart.Load"
	if userID <= 0 {
		return entity.Cart{}, ErrNoCart
	}
	c, err := s.api.GetUserCart(ctx, userID)
	if err != nil {
		slog.Info("cart not found, creating one",
			slog.String("op", op),
			slog.String("user_id", userID.String()),
			slog.String("err", err.Error()),
		)
		created, createErr := s.api.CreateCart(ctx, userID)
		if createErr != nil {
			return entity.Cart{}, fmt.Errorf("%s: create cart: %w", op, createErr)
		}
		created.CartItems = created.Items()
		return created, nil
	}
	c.CartItems = s.withBooks(ctx, c.Items())
	return c, nil
}

// withBooks fills in the book of each line the API returned without one.
// Lookup failures leave the book empty; such lines count as zero in totals.
func (s *Service) withBooks(ctx context.Context, items []entity.CartItem) []entity.CartItem {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxBookLookups)
	for i := range items {
		if items[i].Book != nil || items[i].BookID <= 0 {
			continue
		}
		g.Go(func() error {
			book, err := s.api.GetBook(gctx, items[i].BookID)
			if err != nil {
				slog.Warn("failed to load cart book",
					slog.String("op", "cart.withBooks"),
					slog.String("book_id", items[i].BookID.String()),
					slog.String("err", err.Error()),
				)
				return nil
			}
			items[i].Book = &book
			return nil
		})
	}
	_ = g.Wait()
	return items
}

// AddItem puts quantity copies of a book in the user's cart and returns the
// cart with the new line merged in.
func (s *Service) AddItem(ctx context.Context, userID, bookID entity.ID, quantity int) (entity.Cart, error) {
	if quantity < 1 {
		return entity.Cart{}, ErrInvalidQuantity
	}
	c, err := s.Load(ctx, userID)
	if err != nil {
		return entity.Cart{}, err
	}
	item, err := s.api.AddToCart(ctx, c.ID, bookstore.CartItemInput{BookID: bookID, Quantity: quantity})
	if err != nil {
		return entity.Cart{}, fmt.Errorf("cart.AddItem: %w", err)
	}
	c.CartItems = MergeItem(c.CartItems, item)
	return c, nil
}

// MergeItem replaces the line for the same book, or appends a new one.
func MergeItem(items []entity.CartItem, item entity.CartItem) []entity.CartItem {
	for i := range items {
		if items[i].BookID == item.BookID {
			if item.Book == nil {
				item.Book = items[i].Book
			}
			out := make([]entity.CartItem, len(items))
			copy(out, items)
			out[i] = item
			return out
		}
	}
	return append(append(make([]entity.CartItem, 0, len(items)+1), items...), item)
}

// UpdateQuantity sets the quantity of a line; zero or less removes it.
func (s *Service) UpdateQuantity(ctx context.Context, cartID, itemID entity.ID, quantity int) error {
	if cartID <= 0 {
		return ErrNoCart
	}
	if quantity <= 0 {
		return s.Remove(ctx, cartID, itemID)
	}
	if _, err := s.api.UpdateCartItem(ctx, cartID, itemID, quantity); err != nil {
		return fmt.Errorf("cart.UpdateQuantity: %w", err)
	}
	return nil
}

func (s *Service) Remove(ctx context.Context, cartID, itemID entity.ID) error {
	if cartID <= 0 {
		return ErrNoCart
	}
	if err := s.api.RemoveFromCart(ctx, cartID, itemID); err != nil {
		return fmt.Errorf("cart.Remove: %w", err)
	}
	return nil
}

func (s *Service) Clear(ctx context.Context, cartID entity.ID) error {
	if cartID <= 0 {
		return ErrNoCart
	}
	if err := s.api.ClearCart(ctx, cartID); err != nil {
		return fmt.Errorf("cart.Clear: %w", err)
	}
	return nil
}

// Count is the number of copies in the cart, shown on the header badge.
func Count(c entity.Cart) int {
	return c.ItemCount()
}

// Total is the display total of the cart.
func Total(c entity.Cart) float64 {
	return entity.CartTotal(c.Items())
}
