package web

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"bookworm/internal/auth"
	"bookworm/internal/checkout"
	"bookworm/internal/entity"
)

type CartData struct {
	Cart  entity.Cart
	Total float64
}

func (d CartData) heldCart() entity.Cart { return d.Cart }

func (h *Handler) cart(w http.ResponseWriter, r *http.Request) {
	v := auth.ViewerFrom(r.Context())
	c, err := h.carts.Load(v.APIContext(r.Context()), v.UserID())
	if err != nil {
		logError(r, "web.cart", err)
		h.renderError(w, r, upstreamStatus(err), "Failed to load cart. Please try again later.")
		return
	}
	h.render(w, r, http.StatusOK, "cart", "Shopping Cart", CartData{
		Cart:  c,
		Total: entity.CartTotal(c.Items()),
	})
}

// ownedCartItem loads the viewer's cart and checks that it holds item id.
func (h *Handler) ownedCartItem(r *http.Request, v auth.Viewer, id entity.ID) (entity.Cart, bool, error) {
	c, err := h.carts.Load(v.APIContext(r.Context()), v.UserID())
	if err != nil {
		return entity.Cart{}, false, err
	}
	for _, item := range c.Items() {
		if item.ID == id {
			return c, true, nil
		}
	}
	return c, false, nil
}

func (h *Handler) updateCartItem(w http.ResponseWriter, r *http.Request) {
	v := auth.ViewerFrom(r.Context())
	id, ok := pathID(r, "id")
	if !ok {
		h.notFound(w, r)
		return
	}
	qty, err := strconv.Atoi(strings.TrimSpace(r.PostFormValue("quantity")))
	if err != nil {
		h.flash(w, r, FlashError, "Failed to update item. Please try again.")
		redirect(w, r, "/cart")
		return
	}

	c, owned, err := h.ownedCartItem(r, v, id)
	if err != nil || !owned {
		if err != nil {
			logError(r, "web.updateCartItem", err)
		}
		h.flash(w, r, FlashError, "Failed to update item. Please try again.")
		redirect(w, r, "/cart")
		return
	}
	if err := h.carts.UpdateQuantity(v.APIContext(r.Context()), c.ID, id, qty); err != nil {
		logError(r, "web.updateCartItem", err)
		h.flash(w, r, FlashError, "Failed to update item. Please try again.")
	}
	redirect(w, r, "/cart")
}

func (h *Handler) removeCartItem(w http.ResponseWriter, r *http.Request) {
	v := auth.ViewerFrom(r.Context())
	id, ok := pathID(r, "id")
	if !ok {
		h.notFound(w, r)
		return
	}
	c, owned, err := h.ownedCartItem(r, v, id)
	if err != nil || !owned {
		if err != nil {
			logError(r, "web.removeCartItem", err)
		}
		h.flash(w, r, FlashError, "Failed to update item. Please try again.")
		redirect(w, r, "/cart")
		return
	}
	if err := h.carts.Remove(v.APIContext(r.Context()), c.ID, id); err != nil {
		logError(r, "web.removeCartItem", err)
		h.flash(w, r, FlashError, "Failed to update item. Please try again.")
	}
	redirect(w, r, "/cart")
}

func (h *Handler) clearCart(w http.ResponseWriter, r *http.Request) {
	v := auth.ViewerFrom(r.Context())
	ctx := v.APIContext(r.Context())
	c, err := h.carts.Load(ctx, v.UserID())
	if err == nil {
		err = h.carts.Clear(ctx, c.ID)
	}
	if err != nil {
		logError(r, "web.clearCart", err)
		h.flash(w, r, FlashError, "Failed to clear cart. Please try again.")
	}
	redirect(w, r, "/cart")
}

type CheckoutData struct {
	Summary        checkout.Summary
	Form           checkout.Form
	Error          string
	PaymentMethods []string
}

func (d CheckoutData) heldCart() entity.Cart { return d.Summary.Cart }

func (h *Handler) checkoutPage(w http.ResponseWriter, r *http.Request) {
	v := auth.ViewerFrom(r.Context())
	sum, err := h.checkout.Prepare(v.APIContext(r.Context()), v.UserID())
	if err != nil {
		logError(r, "web.checkoutPage", err)
		h.renderError(w, r, upstreamStatus(err), "Failed to load checkout data. Please try again.")
		return
	}
	h.render(w, r, http.StatusOK, "checkout", "Checkout", CheckoutData{
		Summary:        sum,
		Form:           checkout.Form{ShippingAddress: sum.ShippingAddress, PaymentMethod: checkout.PaymentCreditCard},
		PaymentMethods: checkout.PaymentMethods,
	})
}

func (h *Handler) placeOrder(w http.ResponseWriter, r *http.Request) {
	v := auth.ViewerFrom(r.Context())
	ctx := v.APIContext(r.Context())
	form := checkout.Form{
		ShippingAddress: strings.TrimSpace(r.PostFormValue("shipping_address")),
		PaymentMethod:   r.PostFormValue("payment_method"),
	}
	if form.PaymentMethod == "" {
		form.PaymentMethod = checkout.PaymentCreditCard
	}

	order, err := h.checkout.PlaceOrder(ctx, v.UserID(), form)
	if err == nil {
		redirect(w, r, "/orders/"+order.ID.String())
		return
	}

	// Once an order exists the checkout form is not shown again.
	if order.ID > 0 {
		logError(r, "web.placeOrder", err)
		h.flash(w, r, FlashError, checkout.Message(err))
		redirect(w, r, "/orders/"+order.ID.String())
		return
	}

	status := http.StatusUnprocessableEntity
	switch {
	case errors.Is(err, checkout.ErrMissingAddress), errors.Is(err, checkout.ErrUnknownPayment), errors.Is(err, checkout.ErrEmptyCart):
	default:
		logError(r, "web.placeOrder", err)
		status = upstreamStatus(err)
	}

	sum, perr := h.checkout.Prepare(ctx, v.UserID())
	if perr != nil {
		logError(r, "web.placeOrder", perr)
		h.renderError(w, r, upstreamStatus(perr), "Failed to load checkout data. Please try again.")
		return
	}
	h.render(w, r, status, "checkout", "Checkout", CheckoutData{
		Summary:        sum,
		Form:           form,
		Error:          checkout.Message(err),
		PaymentMethods: checkout.PaymentMethods,
	})
}
