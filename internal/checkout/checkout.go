// Package checkout turns the viewer's cart into an order.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"bookworm/internal/entity"
	"bookworm/internal/platform/bookstore"

	"golang.org/x/sync/errgroup"
)

const (
	PaymentCreditCard     = "credit_card"
	PaymentCashOnDelivery = "cash_on_delivery"
)

var (
	ErrEmptyCart       = errors.New("cart is empty")
	ErrMissingAddress  = errors.New("shipping address is required")
	ErrUnknownPayment  = errors.New("unknown payment method")
	ErrOrderIncomplete = errors.New("order created but some items could not be added")
	ErrCartNotCleared  = errors.New("order placed but the cart could not be emptied")
)

// Message is the text shown on the checkout page for err.
func Message(err error) string {
	switch {
	case errors.Is(err, ErrEmptyCart):
		return "Your cart is empty."
	case errors.Is(err, ErrMissingAddress):
		return "Please fill in all required fields."
	case errors.Is(err, ErrUnknownPayment):
		return "Please choose a payment method."
	case errors.Is(err, ErrOrderIncomplete):
		return "Your order was placed, but some items could not be added to it."
	case errors.Is(err, ErrCartNotCleared):
		return "Your order was placed, but your cart could not be emptied."
	}
	return bookstore.UserMessage(err, "Failed to place order. Please try again.")
}

// PaymentMethods lists the choices offered on the checkout page.
var PaymentMethods = []string{PaymentCreditCard, PaymentCashOnDelivery}

func ValidPaymentMethod(m string) bool {
	return m == PaymentCreditCard || m == PaymentCashOnDelivery
}

type OrdersAPI interface {
	CurrentUser(ctx context.Context) (entity.User, error)
	CreateOrder(ctx context.Context, in bookstore.OrderInput) (entity.Order, error)
	CreateOrderItem(ctx context.Context, orderID entity.ID, in bookstore.OrderItemInput) (entity.OrderItem, error)
	ClearCart(ctx context.Context, cartID entity.ID) error
}

// CartLoader is satisfied by *cart.Service.
type CartLoader interface {
	Load(ctx context.Context, userID entity.ID) (entity.Cart, error)
}

// Notifier sends the order confirmation. Failures never fail the checkout.
type Notifier interface {
	SendOrderConfirmation(ctx context.Context, user entity.User, order entity.Order) error
}

type Service struct {
	api    OrdersAPI
	carts  CartLoader
	notify Notifier
}

func NewService(api OrdersAPI, carts CartLoader, notify Notifier) *Service {
	return &Service{api: api, carts: carts, notify: notify}
}

// Summary is what the checkout page shows.
type Summary struct {
	Cart            entity.Cart
	User            entity.User
	ShippingAddress string
	Total           float64
}

func (s Summary) Empty() bool {
	return s.Cart.IsEmpty()
}

// Prepare loads the cart and the current user side by side and prefills the
// shipping address from the user's profile.
func (s *Service) Prepare(ctx context.Context, userID entity.ID) (Summary, error) {
	var sum Summary
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		c, err := s.carts.Load(gctx, userID)
		if err != nil {
			return fmt.Errorf("load cart: %w", err)
		}
		sum.Cart = c
		return nil
	})
	g.Go(func() error {
		u, err := s.api.CurrentUser(gctx)
		if err != nil {
			return fmt.Errorf("load current user: %w", err)
		}
		sum.User = u
		return nil
	})
	if err := g.Wait(); err != nil {
		return Summary{}, fmt.Errorf("checkout.Prepare: %w", err)
	}
	sum.ShippingAddress = sum.User.Address
	sum.Total = entity.CartTotal(sum.Cart.Items())
	return sum, nil
}

// Form is the submitted checkout form.
type Form struct {
	ShippingAddress string
	PaymentMethod   string
}

func (f Form) Validate() error {
	if strings.TrimSpace(f.ShippingAddress) == "" {
		return ErrMissingAddress
	}
	if !ValidPaymentMethod(f.PaymentMethod) {
		return ErrUnknownPayment
	}
	return nil
}

// PlaceOrder creates a pending order from the current cart, adds one order
// item per line, then empties the cart. Once the order exists it is returned
// even on error, wrapped as ErrOrderIncomplete or ErrCartNotCleared.
func (s *Service) PlaceOrder(ctx context.Context, userID entity.ID, form Form) (entity.Order, error) {
	op := "checkout.PlaceOrder"
	if err := form.Validate(); err != nil {
		return entity.Order{}, err
	}
	sum, err := s.Prepare(ctx, userID)
	if err != nil {
		return entity.Order{}, err
	}
	if sum.Empty() {
		return entity.Order{}, ErrEmptyCart
	}

	order, err := s.api.CreateOrder(ctx, bookstore.OrderInput{
		UserID:          sum.User.ID,
		TotalAmount:     sum.Total,
		Status:          entity.OrderPending,
		ShippingAddress: strings.TrimSpace(form.ShippingAddress),
	})
	if err != nil {
		return entity.Order{}, fmt.Errorf("%s: create order: %w", op, err)
	}

	for _, line := range sum.Cart.Items() {
		if line.Book == nil {
			continue
		}
		item, err := s.api.CreateOrderItem(ctx, order.ID, bookstore.OrderItemInput{
			BookID:          line.Book.ID,
			Quantity:        line.Quantity,
			PriceAtPurchase: line.Book.Price.Float(),
		})
		if err != nil {
			slog.Error("failed to add order item",
				slog.String("op", op),
				slog.String("order_id", order.ID.String()),
				slog.String("book_id", line.Book.ID.String()),
				slog.String("err", err.Error()),
			)
			return order, fmt.Errorf("%s: %w: %w", op, ErrOrderIncomplete, err)
		}
		if item.Book == nil {
			item.Book = line.Book
		}
		order.OrderItems = append(order.OrderItems, item)
	}

	var clearErr error
	if err := s.api.ClearCart(ctx, sum.Cart.ID); err != nil {
		clearErr = fmt.Errorf("%s: %w: %w", op, ErrCartNotCleared, err)
	}

	if s.notify != nil {
		if err := s.notify.SendOrderConfirmation(ctx, sum.User, order); err != nil {
			slog.Warn("failed to send order confirmation",
				slog.String("op", op),
				slog.String("order_id", order.ID.String()),
				slog.String("err", err.Error()),
			)
		}
	}
	return order, clearErr
}
