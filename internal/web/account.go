package web

import (
	"errors"
	"net/http"

	"bookworm/internal/auth"
	"bookworm/internal/entity"
	"bookworm/internal/platform/bookstore"
	"bookworm/internal/session"

	"golang.org/x/sync/errgroup"
)

type LoginData struct {
	Form   LoginForm
	Errors FormErrors
	Next   string
}

func (h *Handler) loginPage(w http.ResponseWriter, r *http.Request) {
	if auth.ViewerFrom(r.Context()).LoggedIn {
		redirect(w, r, "/")
		return
	}
	h.render(w, r, http.StatusOK, "login", "Login", LoginData{
		Next: localPath(r.URL.Query().Get("next"), ""),
	})
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	v := auth.ViewerFrom(r.Context())
	form := parseLoginForm(r)
	data := LoginData{Form: form, Next: localPath(r.PostFormValue("next"), "")}
	if data.Errors = validateForm(form); data.Errors.Any() {
		h.render(w, r, http.StatusUnprocessableEntity, "login", "Login", data)
		return
	}

	nv, err := h.auth.Login(r.Context(), v, form.Email, form.Password)
	if err != nil {
		status := http.StatusUnauthorized
		if !errors.Is(err, auth.ErrInvalidCredentials) {
			logError(r, "web.login", err)
			status = upstreamStatus(err)
		}
		data.Errors = FormErrors{"general": bookstore.UserMessage(err, "Login failed. Please check your credentials and try again.")}
		data.Form.Password = ""
		h.render(w, r, status, "login", "Login", data)
		return
	}
	session.WriteCookie(w, r, nv.SessionID, h.policy)
	redirect(w, r, localPath(data.Next, "/"))
}

type RegisterData struct {
	Form   RegisterForm
	Errors FormErrors
}

func (h *Handler) registerPage(w http.ResponseWriter, r *http.Request) {
	if auth.ViewerFrom(r.Context()).LoggedIn {
		redirect(w, r, "/")
		return
	}
	h.render(w, r, http.StatusOK, "register", "Create Account", RegisterData{})
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	v := auth.ViewerFrom(r.Context())
	form := parseRegisterForm(r)
	data := RegisterData{Form: form}
	data.Form.Password, data.Form.PasswordConfirmation = "", ""
	if data.Errors = validateForm(form); data.Errors.Any() {
		h.render(w, r, http.StatusUnprocessableEntity, "register", "Create Account", data)
		return
	}

	nv, err := h.auth.Register(r.Context(), v, auth.RegisterInput{
		Name:                 form.Name,
		Email:                form.Email,
		Password:             form.Password,
		PasswordConfirmation: form.PasswordConfirmation,
		Address:              form.Address,
	})
	if err != nil {
		logError(r, "web.register", err)
		data.Errors = FormErrors{"general": bookstore.UserMessage(err, "Registration failed. Please try again.")}
		h.render(w, r, upstreamStatus(err), "register", "Create Account", data)
		return
	}
	session.WriteCookie(w, r, nv.SessionID, h.policy)
	redirect(w, r, "/")
}

func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	v := auth.ViewerFrom(r.Context())
	if err := h.auth.Logout(r.Context(), v); err != nil {
		logError(r, "web.logout", err)
	}
	session.ClearCookie(w, r, h.policy)
	redirect(w, r, "/")
}

const (
	tabProfile = "profile"
	tabOrders  = "orders"
)

type ProfileData struct {
	Tab    string
	User   entity.User
	Form   ProfileForm
	Errors FormErrors
	Orders []entity.Order
}

func (h *Handler) loadProfile(r *http.Request, v auth.Viewer) (entity.User, []entity.Order, error) {
	var (
		user   entity.User
		orders []entity.Order
	)
	g, ctx := errgroup.WithContext(v.APIContext(r.Context()))
	g.Go(func() error {
		var err error
		user, err = h.api.CurrentUser(ctx)
		return err
	})
	g.Go(func() error {
		var err error
		orders, err = h.api.UserOrders(ctx, v.UserID())
		return err
	})
	if err := g.Wait(); err != nil {
		return entity.User{}, nil, err
	}
	return user, orders, nil
}

func profileTab(tab string) string {
	if tab == tabOrders {
		return tabOrders
	}
	return tabProfile
}

func (h *Handler) profile(w http.ResponseWriter, r *http.Request) {
	v := auth.ViewerFrom(r.Context())
	user, orders, err := h.loadProfile(r, v)
	if err != nil {
		logError(r, "web.profile", err)
		h.renderError(w, r, upstreamStatus(err), "Failed to load profile. Please try again later.")
		return
	}
	h.render(w, r, http.StatusOK, "profile", "My Account", ProfileData{
		Tab:    profileTab(r.URL.Query().Get("tab")),
		User:   user,
		Form:   ProfileForm{Name: user.Name, Email: user.Email, Address: user.Address},
		Orders: orders,
	})
}

func (h *Handler) updateProfile(w http.ResponseWriter, r *http.Request) {
	v := auth.ViewerFrom(r.Context())
	form := parseProfileForm(r)
	errs := validateForm(form)

	var updated entity.User
	var err error
	if !errs.Any() {
		addr := form.Address
		updated, err = h.api.UpdateUser(v.APIContext(r.Context()), v.UserID(), bookstore.UserUpdate{
			Name:    form.Name,
			Email:   form.Email,
			Address: &addr,
		})
		if err == nil {
			if _, serr := h.auth.UpdateStoredUser(r.Context(), v, updated); serr != nil {
				logError(r, "web.updateProfile", serr)
			}
			h.flash(w, r, FlashSuccess, "Profile updated successfully!")
			redirect(w, r, "/profile")
			return
		}
		logError(r, "web.updateProfile", err)
		errs = FormErrors{"general": bookstore.UserMessage(err, "Failed to update profile. Please try again.")}
	}

	user, orders, lerr := h.loadProfile(r, v)
	if lerr != nil {
		logError(r, "web.updateProfile", lerr)
		h.renderError(w, r, upstreamStatus(lerr), "Failed to load profile. Please try again later.")
		return
	}
	status := http.StatusUnprocessableEntity
	if err != nil {
		status = upstreamStatus(err)
	}
	h.render(w, r, status, "profile", "My Account", ProfileData{
		Tab:    tabProfile,
		User:   user,
		Form:   form,
		Errors: errs,
		Orders: orders,
	})
}

func (h *Handler) orders(w http.ResponseWriter, r *http.Request) {
	v := auth.ViewerFrom(r.Context())
	orders, err := h.api.UserOrders(v.APIContext(r.Context()), v.UserID())
	if err != nil {
		logError(r, "web.orders", err)
		h.renderError(w, r, upstreamStatus(err), "Failed to load orders. Please try again later.")
		return
	}
	h.render(w, r, http.StatusOK, "orders", "My Orders", orders)
}

type OrderData struct {
	Order     entity.Order
	Items     []entity.OrderItem
	JustMade  bool
	ItemTotal float64
}

func (h *Handler) order(w http.ResponseWriter, r *http.Request) {
	v := auth.ViewerFrom(r.Context())
	id, ok := pathID(r, "id")
	if !ok {
		h.renderError(w, r, http.StatusNotFound, "Order not found or failed to load.")
		return
	}
	ctx := v.APIContext(r.Context())
	o, err := h.api.GetOrder(ctx, id)
	if err != nil {
		if !errors.Is(err, bookstore.ErrNotFound) {
			logError(r, "web.order", err)
		}
		h.renderError(w, r, upstreamStatus(err), "Order not found or failed to load.")
		return
	}
	// Other customers' orders look the same as missing ones.
	if o.UserID != v.UserID() && !v.IsAdmin() {
		h.renderError(w, r, http.StatusNotFound, "Order not found or failed to load.")
		return
	}

	items := o.OrderItems
	if len(items) == 0 {
		if items, err = h.api.ListOrderItems(ctx, o.ID); err != nil {
			logError(r, "web.order", err)
		}
	}
	data := OrderData{
		Order:    o,
		Items:    items,
		JustMade: o.Status == entity.OrderPending,
	}
	for _, it := range items {
		data.ItemTotal += it.Subtotal()
	}
	h.render(w, r, http.StatusOK, "order", "Order #"+o.ID.String(), data)
}
