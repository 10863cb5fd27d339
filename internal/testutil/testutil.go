// Package testutil provides fixtures and an in-memory bookstore API for tests.
package testutil

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"time"

	"bookworm/internal/entity"

	"github.com/golang-jwt/jwt/v5"
)

// TestSecret signs the tokens handed out by FakeAPI.
const TestSecret = "test-secret"

// TestUser is a customer account for testing
var TestUser = entity.User{
	ID:      12,
	Email:   "ann@example.com",
	Name:    "Ann Reader",
	Address: "1 Library Lane",
	Role:    entity.RoleCustomer,
}

// TestAdminUser is an administrator account for testing
var TestAdminUser = entity.User{
	ID:    1,
	Email: "admin@example.com",
	Name:  "Ada Admin",
	Role:  entity.RoleAdmin,
}

// TestPassword is the password of every fixture account.
const TestPassword = "secret1"

// TestCategories are the categories FakeAPI starts with.
var TestCategories = []entity.Category{
	{ID: 1, Name: "Fiction", Description: "Novels and stories"},
	{ID: 2, Name: "Science", Description: "Physics, biology and more"},
}

// TestBooks are the books FakeAPI starts with.
var TestBooks = []entity.Book{
	{ID: 10, Title: "Dune", Author: "Frank Herbert", Price: 9.99, StockQuantity: 4, Slug: "dune", CategoryID: 1, Language: "English"},
	{ID: 11, Title: "Cosmos", Author: "Carl Sagan", Price: 15.5, StockQuantity: 20, Slug: "cosmos", CategoryID: 2, Language: "English"},
	{ID: 12, Title: "Emma", Author: "Jane Austen", Price: 7, StockQuantity: 0, Slug: "emma", CategoryID: 1, Language: "English"},
}

// GenerateTestToken signs a JWT for userID that expires after ttl.
func GenerateTestToken(userID entity.ID, ttl time.Duration) string {
	now := time.Now()
	c := jwt.RegisteredClaims{
		Subject:   userID.String(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	token, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString([]byte(TestSecret))
	return token
}

// GenerateExpiredToken signs a JWT for userID that expired an hour ago.
func GenerateExpiredToken(userID entity.ID) string {
	return GenerateTestToken(userID, -time.Hour)
}

// NewFormRequest creates a form POST for testing
func NewFormRequest(path string, form url.Values) *http.Request {
	r := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return r
}

// AssertResponseCode checks if the response code matches expected
func AssertResponseCode(t interface {
	Errorf(format string, args ...any)
}, got, want int) {
	if got != want {
		t.Errorf("got status code %d, want %d", got, want)
	}
}
