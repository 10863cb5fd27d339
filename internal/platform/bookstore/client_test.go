package bookstore

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"bookworm/internal/entity"
	"bookworm/internal/httpx"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc, opts Options) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	if opts.Backoff == 0 {
		opts.Backoff = time.Millisecond
	}
	return NewClient(srv.URL+"/api/v1/", opts)
}

func TestClient_ListBooks(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/v1/books", r.URL.Path)
		assert.Equal(t, "3", r.URL.Query().Get("category_id"))
		assert.Equal(t, "dune", r.URL.Query().Get("search"))
		assert.Equal(t, "2", r.URL.Query().Get("page"))
		assert.Equal(t, "12", r.URL.Query().Get("per_page"))
		assert.False(t, r.URL.Query().Has("min_price"))
		assert.Equal(t, "Bearer tok-1", r.Header.Get("Authorization"))
		assert.Equal(t, "req-7", r.Header.Get("X-Request-ID"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"books":[{"id":1,"title":"Dune","price":"9.99","stock_quantity":4,"slug":"dune"}],
			"meta":{"current_page":2,"total_pages":5,"total_count":50}}`)
	}, Options{})

	ctx := WithToken(httpx.ContextWithRequestID(context.Background(), "req-7"), "tok-1")
	page, err := client.ListBooks(ctx, BooksQuery{CategoryID: 3, Search: "dune", Page: 2, PerPage: 12})
	require.NoError(t, err)
	require.Len(t, page.Books, 1)
	assert.Equal(t, "Dune", page.Books[0].Title)
	assert.InDelta(t, 9.99, page.Books[0].Price.Float(), 1e-9)
	assert.Equal(t, 50, page.Meta.TotalCount)
}

func TestClient_WrapsMutationBodies(t *testing.T) {
	var got map[string]map[string]any
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v1/carts/9/cart_items", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = io.WriteString(w, `{"id":77,"cart_id":9,"book_id":5,"quantity":2}`)
	}, Options{})

	item, err := client.AddToCart(context.Background(), 9, CartItemInput{BookID: 5, Quantity: 2})
	require.NoError(t, err)
	assert.Equal(t, entity.ID(77), item.ID)
	assert.Equal(t, float64(5), got["cart_item"]["book_id"])
	assert.Equal(t, float64(2), got["cart_item"]["quantity"])
}

func TestClient_LoginIsNotWrapped(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/auth/login", r.URL.Path)
		var body map[string]string
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "ann@example.com", body["email"])
		_, _ = io.WriteString(w, `{"user":{"id":"12","email":"ann@example.com","name":"Ann","role":"customer"},"token":"jwt"}`)
	}, Options{})

	res, err := client.Login(context.Background(), Credentials{Email: "ann@example.com", Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, "jwt", res.Token)
	assert.Equal(t, entity.ID(12), res.User.ID)
}

func TestClient_APIError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v1/books/slug/missing":
			w.WriteHeader(http.StatusNotFound)
			_, _ = io.WriteString(w, `{"error":"Book not found"}`)
		case "/api/v1/auth/me":
			w.WriteHeader(http.StatusUnauthorized)
		default:
			w.WriteHeader(http.StatusUnprocessableEntity)
			_, _ = io.WriteString(w, `{"message":"Email has already been taken","details":["email taken"]}`)
		}
	}, Options{})

	_, err := client.GetBookBySlug(context.Background(), "missing")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, "Book not found", UserMessage(err, "fallback"))

	_, err = client.CurrentUser(context.Background())
	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.Equal(t, "fallback", UserMessage(err, "fallback"))

	_, err = client.CreateUser(context.Background(), UserInput{Email: "a@b.co"})
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusUnprocessableEntity, apiErr.StatusCode)
	assert.Equal(t, []string{"email taken"}, apiErr.Details)
	assert.Equal(t, "Email has already been taken", UserMessage(err, "fallback"))
	assert.Contains(t, err.Error(), "status 422")
}

func TestClient_RetriesReadsOnly(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		n := calls.Add(1)
		if r.Method == http.MethodGet && n < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		if r.Method == http.MethodPost {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = io.WriteString(w, `[{"id":1,"name":"Fiction"}]`)
	}, Options{MaxRetries: 2})

	cats, err := client.ListCategories(context.Background())
	require.NoError(t, err)
	assert.Len(t, cats, 1)
	assert.Equal(t, int32(3), calls.Load())

	calls.Store(0)
	_, err = client.CreateOrder(context.Background(), OrderInput{UserID: 1, TotalAmount: 10})
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestClient_GivesUpAfterRetries(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}, Options{MaxRetries: 1})

	_, err := client.ListUsers(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "after 1 retries")
	assert.Equal(t, int32(2), calls.Load())
}

func TestClient_DeleteNoContent(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "/api/v1/carts/4/clear", r.URL.Path)
		w.WriteHeader(http.StatusNoContent)
	}, Options{})

	assert.NoError(t, client.ClearCart(context.Background(), 4))
}

func TestClient_OrdersQuery(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "8", r.URL.Query().Get("user_id"))
		assert.Equal(t, "", r.URL.Query().Get("status"))
		_, _ = io.WriteString(w, `[{"id":3,"user_id":8,"total_amount":"20.00","status":"shipped"}]`)
	}, Options{})

	orders, err := client.UserOrders(context.Background(), 8)
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, entity.OrderShipped, orders[0].Status)
	assert.InDelta(t, 20.0, orders[0].TotalAmount.Float(), 1e-9)
}

func TestClient_UpdateUserSendsEmptyAddress(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		var body map[string]map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		addr, ok := body["user"]["address"]
		assert.True(t, ok)
		assert.Equal(t, "", addr)
		_, _ = io.WriteString(w, `{"id":2,"name":"Bo"}`)
	}, Options{})

	empty := ""
	_, err := client.UpdateUser(context.Background(), 2, UserUpdate{Name: "Bo", Address: &empty})
	require.NoError(t, err)
}
