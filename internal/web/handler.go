// Package web serves the Bookworm storefront pages. Each handler fetches what
// its page needs from the bookstore API, renders an HTML template and, for
// form posts, forwards the mutation and redirects.
package web

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"bookworm/internal/admin"
	"bookworm/internal/auth"
	"bookworm/internal/cart"
	"bookworm/internal/checkout"
	"bookworm/internal/entity"
	"bookworm/internal/httpx"
	"bookworm/internal/mail"
	"bookworm/internal/platform/bookstore"
	"bookworm/internal/session"
)

// API is the part of the bookstore client the pages call directly.
type API interface {
	ListBooks(ctx context.Context, q bookstore.BooksQuery) (entity.BooksPage, error)
	GetBookBySlug(ctx context.Context, slug string) (entity.Book, error)
	ListCategories(ctx context.Context) ([]entity.Category, error)
	CurrentUser(ctx context.Context) (entity.User, error)
	UpdateUser(ctx context.Context, id entity.ID, in bookstore.UserUpdate) (entity.User, error)
	UserOrders(ctx context.Context, userID entity.ID) ([]entity.Order, error)
	GetOrder(ctx context.Context, id entity.ID) (entity.Order, error)
	ListOrderItems(ctx context.Context, orderID entity.ID) ([]entity.OrderItem, error)
}

// Pinger reports whether a backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Deps struct {
	API      API
	Auth     *auth.Service
	Carts    *cart.Service
	Checkout *checkout.Service
	Admin    *admin.Service
	Mailer   mail.Mailer
	Sessions Pinger
	Cookies  session.CookiePolicy
}

type Handler struct {
	api      API
	auth     *auth.Service
	carts    *cart.Service
	checkout *checkout.Service
	admin    *admin.Service
	mailer   mail.Mailer
	sessions Pinger
	policy   session.CookiePolicy
	pages    *Renderer
}

func NewHandler(d Deps) (*Handler, error) {
	pages, err := NewRenderer()
	if err != nil {
		return nil, err
	}
	mailer := d.Mailer
	if mailer == nil {
		mailer = mail.Noop{}
	}
	return &Handler{
		api:      d.API,
		auth:     d.Auth,
		carts:    d.Carts,
		checkout: d.Checkout,
		admin:    d.Admin,
		mailer:   mailer,
		sessions: d.Sessions,
		policy:   d.Cookies,
		pages:    pages,
	}, nil
}

// Routes registers every page on a fresh ServeMux.
func (h *Handler) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	login := auth.RequireLogin
	adminOnly := auth.RequireAdmin(http.HandlerFunc(h.forbidden))

	mux.HandleFunc("GET /healthz", h.healthz)
	mux.HandleFunc("GET /readyz", h.readyz)

	mux.HandleFunc("GET /{$}", h.home)
	mux.HandleFunc("GET /books", h.books)
	mux.HandleFunc("GET /books/{slug}", h.book)
	mux.HandleFunc("POST /books/{slug}/cart", h.addToCart)
	mux.HandleFunc("GET /categories", h.categories)

	mux.Handle("GET /cart", login(http.HandlerFunc(h.cart)))
	mux.Handle("POST /cart/items/{id}", login(http.HandlerFunc(h.updateCartItem)))
	mux.Handle("POST /cart/items/{id}/delete", login(http.HandlerFunc(h.removeCartItem)))
	mux.Handle("POST /cart/clear", login(http.HandlerFunc(h.clearCart)))
	mux.Handle("/checkout", login(httpx.MethodMux(map[string]http.Handler{
		http.MethodGet:  http.HandlerFunc(h.checkoutPage),
		http.MethodPost: http.HandlerFunc(h.placeOrder),
	})))

	mux.Handle("/login", httpx.MethodMux(map[string]http.Handler{
		http.MethodGet:  http.HandlerFunc(h.loginPage),
		http.MethodPost: http.HandlerFunc(h.login),
	}))
	mux.Handle("/register", httpx.MethodMux(map[string]http.Handler{
		http.MethodGet:  http.HandlerFunc(h.registerPage),
		http.MethodPost: http.HandlerFunc(h.register),
	}))
	mux.HandleFunc("POST /logout", h.logout)

	mux.Handle("/profile", login(httpx.MethodMux(map[string]http.Handler{
		http.MethodGet:  http.HandlerFunc(h.profile),
		http.MethodPost: http.HandlerFunc(h.updateProfile),
	})))
	mux.Handle("GET /orders", login(http.HandlerFunc(h.orders)))
	mux.Handle("GET /orders/{id}", login(http.HandlerFunc(h.order)))

	mux.Handle("GET /admin", adminOnly(http.HandlerFunc(h.dashboard)))

	mux.HandleFunc("POST /newsletter", h.subscribe)
	mux.HandleFunc("POST /theme", h.setTheme)

	mux.HandleFunc("/", h.notFound)
	return mux
}

type RouterOptions struct {
	Logger       *slog.Logger
	EnableHSTS   bool
	MaxBodyBytes int64
	RateLimit    *httpx.RateLimitMiddleware
}

// NewRouter wraps the page routes in the middleware stack.
func NewRouter(h *Handler, opts RouterOptions) http.Handler {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	mws := []func(http.Handler) http.Handler{
		httpx.RequestIDMiddleware,
		httpx.AccessLogMiddleware(logger),
		httpx.RecoveryMiddleware(http.HandlerFunc(h.serverError)),
		httpx.SecurityHeadersMiddleware(opts.EnableHSTS),
		httpx.RequestSizeLimitMiddleware(opts.MaxBodyBytes),
	}
	if opts.RateLimit != nil {
		mws = append(mws, opts.RateLimit.Middleware)
	}
	mws = append(mws, h.auth.Middleware(h.policy))
	return httpx.Chain(h.Routes(), mws...)
}

func (h *Handler) healthz(w http.ResponseWriter, r *http.Request) {
	httpx.JSONSuccess(w, r, map[string]string{"status": "ok"})
}

func (h *Handler) readyz(w http.ResponseWriter, r *http.Request) {
	if h.sessions != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 500*time.Millisecond)
		defer cancel()
		if err := h.sessions.Ping(ctx); err != nil {
			logError(r, "web.readyz", err)
			httpx.JSONError(w, r, http.StatusServiceUnavailable, "session_store_down", "session store not ready")
			return
		}
	}
	httpx.JSONSuccess(w, r, map[string]string{"status": "ready"})
}

// redirect answers a form post with 303 so the browser follows up with GET.
func redirect(w http.ResponseWriter, r *http.Request, to string) {
	http.Redirect(w, r, to, http.StatusSeeOther)
}

func (h *Handler) flash(w http.ResponseWriter, r *http.Request, kind FlashKind, msg string) {
	writeFlash(w, r, h.policy, Flash{Kind: kind, Message: msg})
}

// localPath returns target when it is a path on this site, otherwise def.
func localPath(target, def string) string {
	target = strings.TrimSpace(target)
	if target == "" || !strings.HasPrefix(target, "/") || strings.HasPrefix(target, "//") || strings.HasPrefix(target, "/\\") {
		return def
	}
	u, err := url.Parse(target)
	if err != nil || u.IsAbs() || u.Host != "" {
		return def
	}
	return u.RequestURI()
}

// upstreamStatus picks the status for a page whose API call failed.
func upstreamStatus(err error) int {
	var apiErr *bookstore.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.StatusCode == http.StatusNotFound:
			return http.StatusNotFound
		case apiErr.StatusCode == http.StatusUnauthorized:
			return http.StatusUnauthorized
		case apiErr.StatusCode >= 400 && apiErr.StatusCode < 500:
			return http.StatusUnprocessableEntity
		}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return http.StatusGatewayTimeout
	}
	return http.StatusBadGateway
}

func pathID(r *http.Request, name string) (entity.ID, bool) {
	id, err := entity.ParseID(r.PathValue(name))
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
