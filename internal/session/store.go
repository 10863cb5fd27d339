// Package session persists browser sessions server-side. The cookie only
// carries an opaque id; the bearer token and the cached user record stay here.
package session

import (
	"context"
	"errors"

	"bookworm/internal/entity"

	"github.com/google/uuid"
)

// ErrNotFound is returned for unknown and expired sessions.
var ErrNotFound = errors.New("session not found")

//go:generate mockgen -destination=mocks/mock_store.go -package=mocks bookworm/internal/session Store

// Store defines the contract for session storage.
type Store interface {
	Get(ctx context.Context, id string) (entity.Session, error)
	Save(ctx context.Context, s *entity.Session) error
	Delete(ctx context.Context, id string) error
	DeleteExpired(ctx context.Context) error
	Ping(ctx context.Context) error
}

// NewID returns a fresh random session id.
func NewID() string {
	return uuid.NewString()
}
