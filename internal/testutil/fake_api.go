package testutil

import (
	"encoding/json"
	"maps"
	"net/http"
	"net/http/httptest"
	"slices"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"bookworm/internal/entity"
)

// FakeAPI is an in-memory stand-in for the bookstore REST API, served over
// httptest. It understands the routes the web frontend calls.
type FakeAPI struct {
	server *httptest.Server

	mu         sync.Mutex
	books      []entity.Book
	categories []entity.Category
	users      map[entity.ID]entity.User
	passwords  map[entity.ID]string
	tokens     map[string]entity.ID
	carts      map[entity.ID]*entity.Cart
	orders     []entity.Order
	nextID     entity.ID
	failures   map[string]int
	calls      []string
}

// NewFakeAPI starts a fake API seeded with the fixture users, books and
// categories. It is closed when the test ends.
func NewFakeAPI(t testing.TB) *FakeAPI {
	t.Helper()
	f := &FakeAPI{
		books:      slices.Clone(TestBooks),
		categories: slices.Clone(TestCategories),
		users:      map[entity.ID]entity.User{},
		passwords:  map[entity.ID]string{},
		tokens:     map[string]entity.ID{},
		carts:      map[entity.ID]*entity.Cart{},
		failures:   map[string]int{},
		nextID:     100,
	}
	f.AddUser(TestUser, TestPassword)
	f.AddUser(TestAdminUser, TestPassword)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/books", f.listBooks)
	mux.HandleFunc("GET /api/v1/books/{id}", f.getBook)
	mux.HandleFunc("GET /api/v1/books/slug/{slug}", f.getBookBySlug)
	mux.HandleFunc("GET /api/v1/categories", f.listCategories)
	mux.HandleFunc("POST /api/v1/auth/login", f.login)
	mux.HandleFunc("DELETE /api/v1/auth/logout", f.authed(f.logout))
	mux.HandleFunc("GET /api/v1/auth/me", f.authed(f.me))
	mux.HandleFunc("GET /api/v1/users", f.authed(f.listUsers))
	mux.HandleFunc("POST /api/v1/users", f.createUser)
	mux.HandleFunc("PUT /api/v1/users/{id}", f.authed(f.updateUser))
	mux.HandleFunc("GET /api/v1/users/{id}/cart", f.authed(f.getCart))
	mux.HandleFunc("POST /api/v1/users/{id}/cart", f.authed(f.createCart))
	mux.HandleFunc("POST /api/v1/carts/{id}/cart_items", f.authed(f.addCartItem))
	mux.HandleFunc("PUT /api/v1/carts/{id}/cart_items/{item}", f.authed(f.updateCartItem))
	mux.HandleFunc("DELETE /api/v1/carts/{id}/cart_items/{item}", f.authed(f.removeCartItem))
	mux.HandleFunc("DELETE /api/v1/carts/{id}/clear", f.authed(f.clearCart))
	mux.HandleFunc("GET /api/v1/orders", f.authed(f.listOrders))
	mux.HandleFunc("POST /api/v1/orders", f.authed(f.createOrder))
	mux.HandleFunc("GET /api/v1/orders/{id}", f.authed(f.getOrder))
	mux.HandleFunc("GET /api/v1/orders/{id}/order_items", f.authed(f.listOrderItems))
	mux.HandleFunc("POST /api/v1/orders/{id}/order_items", f.authed(f.createOrderItem))

	f.server = httptest.NewServer(f.intercept(mux))
	t.Cleanup(f.server.Close)
	return f
}

// URL is the API base URL, ending in /api/v1.
func (f *FakeAPI) URL() string {
	return f.server.URL + "/api/v1"
}

// AddUser registers an account that can log in with password.
func (f *FakeAPI) AddUser(u entity.User, password string) entity.User {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u.ID == 0 {
		u.ID = f.newID()
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Date(2024, time.March, 1, 10, 0, 0, 0, time.UTC)
	}
	f.users[u.ID] = u
	f.passwords[u.ID] = password
	return u
}

// RevokeTokens invalidates every token issued to userID.
func (f *FakeAPI) RevokeTokens(userID entity.ID) {
	f.mu.Lock()
	defer f.mu.Unlock()
	maps.DeleteFunc(f.tokens, func(_ string, id entity.ID) bool { return id == userID })
}

// FailOn makes every request to "METHOD /api/v1/path" answer with status.
// Path segments written as {name} match any value.
func (f *FakeAPI) FailOn(route string, status int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[route] = status
}

// Calls lists the requests served so far as "METHOD /path".
func (f *FakeAPI) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.calls)
}

// Cart returns a copy of the user's cart.
func (f *FakeAPI) Cart(userID entity.ID) (entity.Cart, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.carts[userID]
	if !ok {
		return entity.Cart{}, false
	}
	out := *c
	out.CartItems = slices.Clone(c.CartItems)
	return out, true
}

// PutCartItem places quantity copies of bookID in the user's cart.
func (f *FakeAPI) PutCartItem(userID, bookID entity.ID, quantity int) entity.CartItem {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := f.cartFor(userID)
	item := entity.CartItem{ID: f.newID(), CartID: c.ID, BookID: bookID, Quantity: quantity, Book: f.bookByID(bookID)}
	c.CartItems = append(c.CartItems, item)
	return item
}

// Orders returns a copy of every order created so far.
func (f *FakeAPI) Orders() []entity.Order {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.orders)
}

// PutOrder stores an order as if it had been placed earlier.
func (f *FakeAPI) PutOrder(o entity.Order) entity.Order {
	f.mu.Lock()
	defer f.mu.Unlock()
	if o.ID == 0 {
		o.ID = f.newID()
	}
	f.orders = append(f.orders, o)
	return o
}

func (f *FakeAPI) newID() entity.ID {
	f.nextID++
	return f.nextID
}

func (f *FakeAPI) intercept(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		route := r.Method + " " + r.URL.Path
		f.mu.Lock()
		f.calls = append(f.calls, route)
		status, fail := f.failureFor(route)
		f.mu.Unlock()
		if fail {
			writeJSON(w, status, map[string]string{})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (f *FakeAPI) failureFor(route string) (int, bool) {
	if status, ok := f.failures[route]; ok {
		return status, true
	}
	for pattern, status := range f.failures {
		if routeMatches(pattern, route) {
			return status, true
		}
	}
	return 0, false
}

func routeMatches(pattern, route string) bool {
	want, got := strings.Split(pattern, "/"), strings.Split(route, "/")
	if len(want) != len(got) {
		return false
	}
	for i, seg := range want {
		if strings.HasPrefix(seg, "{") && strings.HasSuffix(seg, "}") {
			continue
		}
		if seg != got[i] {
			return false
		}
	}
	return true
}

// authed resolves the bearer token; unknown tokens get 401.
func (f *FakeAPI) authed(next func(http.ResponseWriter, *http.Request, entity.User)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		f.mu.Lock()
		id, ok := f.tokens[token]
		u := f.users[id]
		f.mu.Unlock()
		if token == "" || !ok {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
			return
		}
		next(w, r, u)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func notFound(w http.ResponseWriter, what string) {
	writeJSON(w, http.StatusNotFound, map[string]string{"error": what + " not found"})
}

func pathID(r *http.Request, name string) entity.ID {
	id, _ := entity.ParseID(r.PathValue(name))
	return id
}

func (f *FakeAPI) bookByID(id entity.ID) *entity.Book {
	for i := range f.books {
		if f.books[i].ID == id {
			b := f.books[i]
			return &b
		}
	}
	return nil
}

func (f *FakeAPI) listBooks(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	categoryID, _ := entity.ParseID(q.Get("category_id"))
	search := strings.ToLower(q.Get("search"))
	page, _ := strconv.Atoi(q.Get("page"))
	perPage, _ := strconv.Atoi(q.Get("per_page"))
	page = max(page, 1)
	if perPage <= 0 {
		perPage = 25
	}

	f.mu.Lock()
	var matched []entity.Book
	for _, b := range f.books {
		if categoryID > 0 && b.CategoryID != categoryID {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(b.Title+" "+b.Author), search) {
			continue
		}
		matched = append(matched, b)
	}
	f.mu.Unlock()

	start := min((page-1)*perPage, len(matched))
	end := min(start+perPage, len(matched))
	writeJSON(w, http.StatusOK, entity.BooksPage{
		Books: append([]entity.Book{}, matched[start:end]...),
		Meta: entity.PaginationMeta{
			CurrentPage: page,
			TotalPages:  (len(matched) + perPage - 1) / perPage,
			TotalCount:  len(matched),
		},
	})
}

func (f *FakeAPI) getBook(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	b := f.bookByID(pathID(r, "id"))
	f.mu.Unlock()
	if b == nil {
		notFound(w, "Book")
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (f *FakeAPI) getBookBySlug(w http.ResponseWriter, r *http.Request) {
	slug := r.PathValue("slug")
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, b := range f.books {
		if b.Slug == slug {
			writeJSON(w, http.StatusOK, b)
			return
		}
	}
	notFound(w, "Book")
}

func (f *FakeAPI) listCategories(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	writeJSON(w, http.StatusOK, f.categories)
}

func (f *FakeAPI) login(w http.ResponseWriter, r *http.Request) {
	var creds struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "bad request"})
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, u := range f.users {
		if strings.EqualFold(u.Email, creds.Email) && f.passwords[id] == creds.Password {
			token := GenerateTestToken(id, time.Hour)
			f.tokens[token] = id
			writeJSON(w, http.StatusOK, map[string]any{"user": u, "token": token})
			return
		}
	}
	writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Invalid email or password"})
}

func (f *FakeAPI) logout(w http.ResponseWriter, r *http.Request, _ entity.User) {
	token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	f.mu.Lock()
	delete(f.tokens, token)
	f.mu.Unlock()
	w.WriteHeader(http.StatusNoContent)
}

func (f *FakeAPI) me(w http.ResponseWriter, r *http.Request, u entity.User) {
	writeJSON(w, http.StatusOK, u)
}

func (f *FakeAPI) listUsers(w http.ResponseWriter, r *http.Request, _ entity.User) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]entity.User, 0, len(f.users))
	for _, u := range f.users {
		out = append(out, u)
	}
	writeJSON(w, http.StatusOK, out)
}

func (f *FakeAPI) createUser(w http.ResponseWriter, r *http.Request) {
	var body struct {
		User struct {
			Email    string `json:"email"`
			Password string `json:"password"`
			Name     string `json:"name"`
			Address  string `json:"address"`
			Role     string `json:"role"`
		} `json:"user"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "bad request"})
		return
	}
	f.mu.Lock()
	for _, u := range f.users {
		if strings.EqualFold(u.Email, body.User.Email) {
			f.mu.Unlock()
			writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
				"error":   "Validation failed",
				"message": "Email has already been taken",
			})
			return
		}
	}
	f.mu.Unlock()
	u := f.AddUser(entity.User{
		Email:   body.User.Email,
		Name:    body.User.Name,
		Address: body.User.Address,
		Role:    body.User.Role,
	}, body.User.Password)
	writeJSON(w, http.StatusCreated, u)
}

func (f *FakeAPI) updateUser(w http.ResponseWriter, r *http.Request, caller entity.User) {
	id := pathID(r, "id")
	if id != caller.ID && !caller.IsAdmin() {
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "Forbidden"})
		return
	}
	var body struct {
		User struct {
			Email   string  `json:"email"`
			Name    string  `json:"name"`
			Address *string `json:"address"`
		} `json:"user"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "bad request"})
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		notFound(w, "User")
		return
	}
	if body.User.Email != "" {
		u.Email = body.User.Email
	}
	if body.User.Name != "" {
		u.Name = body.User.Name
	}
	if body.User.Address != nil {
		u.Address = *body.User.Address
	}
	f.users[id] = u
	writeJSON(w, http.StatusOK, u)
}

func (f *FakeAPI) cartFor(userID entity.ID) *entity.Cart {
	c, ok := f.carts[userID]
	if !ok {
		c = &entity.Cart{ID: f.newID(), UserID: userID}
		f.carts[userID] = c
	}
	return c
}

// cartByID finds a cart owned by the caller.
func (f *FakeAPI) cartByID(id entity.ID, caller entity.User) *entity.Cart {
	for _, c := range f.carts {
		if c.ID == id && (c.UserID == caller.ID || caller.IsAdmin()) {
			return c
		}
	}
	return nil
}

func (f *FakeAPI) getCart(w http.ResponseWriter, r *http.Request, _ entity.User) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.carts[pathID(r, "id")]
	if !ok {
		notFound(w, "Cart")
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (f *FakeAPI) createCart(w http.ResponseWriter, r *http.Request, _ entity.User) {
	f.mu.Lock()
	defer f.mu.Unlock()
	writeJSON(w, http.StatusCreated, f.cartFor(pathID(r, "id")))
}

func (f *FakeAPI) addCartItem(w http.ResponseWriter, r *http.Request, caller entity.User) {
	var body struct {
		CartItem struct {
			BookID   entity.ID `json:"book_id"`
			Quantity int       `json:"quantity"`
		} `json:"cart_item"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "bad request"})
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	c := f.cartByID(pathID(r, "id"), caller)
	if c == nil {
		notFound(w, "Cart")
		return
	}
	for i := range c.CartItems {
		if c.CartItems[i].BookID == body.CartItem.BookID {
			c.CartItems[i].Quantity += body.CartItem.Quantity
			writeJSON(w, http.StatusOK, c.CartItems[i])
			return
		}
	}
	item := entity.CartItem{
		ID:       f.newID(),
		CartID:   c.ID,
		BookID:   body.CartItem.BookID,
		Book:     f.bookByID(body.CartItem.BookID),
		Quantity: body.CartItem.Quantity,
	}
	c.CartItems = append(c.CartItems, item)
	writeJSON(w, http.StatusCreated, item)
}

func (f *FakeAPI) updateCartItem(w http.ResponseWriter, r *http.Request, caller entity.User) {
	var body struct {
		CartItem struct {
			Quantity int `json:"quantity"`
		} `json:"cart_item"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "bad request"})
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	c := f.cartByID(pathID(r, "id"), caller)
	if c == nil {
		notFound(w, "Cart")
		return
	}
	itemID := pathID(r, "item")
	for i := range c.CartItems {
		if c.CartItems[i].ID == itemID {
			c.CartItems[i].Quantity = body.CartItem.Quantity
			writeJSON(w, http.StatusOK, c.CartItems[i])
			return
		}
	}
	notFound(w, "Cart item")
}

func (f *FakeAPI) removeCartItem(w http.ResponseWriter, r *http.Request, caller entity.User) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := f.cartByID(pathID(r, "id"), caller)
	if c == nil {
		notFound(w, "Cart")
		return
	}
	itemID := pathID(r, "item")
	c.CartItems = slices.DeleteFunc(c.CartItems, func(it entity.CartItem) bool { return it.ID == itemID })
	w.WriteHeader(http.StatusNoContent)
}

func (f *FakeAPI) clearCart(w http.ResponseWriter, r *http.Request, caller entity.User) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := f.cartByID(pathID(r, "id"), caller)
	if c == nil {
		notFound(w, "Cart")
		return
	}
	c.CartItems = nil
	w.WriteHeader(http.StatusNoContent)
}

func (f *FakeAPI) listOrders(w http.ResponseWriter, r *http.Request, caller entity.User) {
	userID, _ := entity.ParseID(r.URL.Query().Get("user_id"))
	status := entity.OrderStatus(r.URL.Query().Get("status"))
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []entity.Order{}
	for _, o := range f.orders {
		if !caller.IsAdmin() && o.UserID != caller.ID {
			continue
		}
		if userID > 0 && o.UserID != userID {
			continue
		}
		if status != "" && o.Status != status {
			continue
		}
		out = append(out, o)
	}
	writeJSON(w, http.StatusOK, out)
}

func (f *FakeAPI) orderIndex(id entity.ID) int {
	return slices.IndexFunc(f.orders, func(o entity.Order) bool { return o.ID == id })
}

func (f *FakeAPI) getOrder(w http.ResponseWriter, r *http.Request, _ entity.User) {
	f.mu.Lock()
	defer f.mu.Unlock()
	i := f.orderIndex(pathID(r, "id"))
	if i < 0 {
		notFound(w, "Order")
		return
	}
	writeJSON(w, http.StatusOK, f.orders[i])
}

func (f *FakeAPI) createOrder(w http.ResponseWriter, r *http.Request, caller entity.User) {
	var body struct {
		Order struct {
			UserID          entity.ID          `json:"user_id"`
			TotalAmount     entity.Money       `json:"total_amount"`
			Status          entity.OrderStatus `json:"status"`
			ShippingAddress string             `json:"shipping_address"`
		} `json:"order"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "bad request"})
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	o := entity.Order{
		ID:              f.newID(),
		UserID:          body.Order.UserID,
		TotalAmount:     body.Order.TotalAmount,
		Status:          body.Order.Status,
		ShippingAddress: body.Order.ShippingAddress,
		CreatedAt:       time.Date(2024, time.May, 4, 15, 30, 0, 0, time.UTC),
	}
	if o.UserID == 0 {
		o.UserID = caller.ID
	}
	f.orders = append(f.orders, o)
	writeJSON(w, http.StatusCreated, o)
}

func (f *FakeAPI) listOrderItems(w http.ResponseWriter, r *http.Request, _ entity.User) {
	f.mu.Lock()
	defer f.mu.Unlock()
	i := f.orderIndex(pathID(r, "id"))
	if i < 0 {
		notFound(w, "Order")
		return
	}
	writeJSON(w, http.StatusOK, append([]entity.OrderItem{}, f.orders[i].OrderItems...))
}

func (f *FakeAPI) createOrderItem(w http.ResponseWriter, r *http.Request, _ entity.User) {
	var body struct {
		OrderItem struct {
			BookID          entity.ID    `json:"book_id"`
			Quantity        int          `json:"quantity"`
			PriceAtPurchase entity.Money `json:"price_at_purchase"`
		} `json:"order_item"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "bad request"})
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	i := f.orderIndex(pathID(r, "id"))
	if i < 0 {
		notFound(w, "Order")
		return
	}
	item := entity.OrderItem{
		ID:              f.newID(),
		OrderID:         f.orders[i].ID,
		BookID:          body.OrderItem.BookID,
		Book:            f.bookByID(body.OrderItem.BookID),
		Quantity:        body.OrderItem.Quantity,
		PriceAtPurchase: body.OrderItem.PriceAtPurchase,
	}
	f.orders[i].OrderItems = append(f.orders[i].OrderItems, item)
	writeJSON(w, http.StatusCreated, item)
}
