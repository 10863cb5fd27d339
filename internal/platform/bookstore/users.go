package bookstore

import (
	"context"

	"bookworm/internal/entity"
)

// UserInput is the registration payload.
type UserInput struct {
	Email                string `json:"email"`
	Password             string `json:"password"`
	PasswordConfirmation string `json:"password_confirmation"`
	Name                 string `json:"name"`
	Address              string `json:"address,omitempty"`
	Role                 string `json:"role,omitempty"`
}

// UserUpdate is a partial update. A non-nil Address is always sent so it can be cleared.
type UserUpdate struct {
	Email    string  `json:"email,omitempty"`
	Password string  `json:"password,omitempty"`
	Name     string  `json:"name,omitempty"`
	Address  *string `json:"address,omitempty"`
	Role     string  `json:"role,omitempty"`
}

type userEnvelope struct {
	User any `json:"user"`
}

type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResult struct {
	User  entity.User `json:"user"`
	Token string      `json:"token"`
}

func (c *Client) ListUsers(ctx context.Context) ([]entity.User, error) {
	var out []entity.User
	err := c.get(ctx, "/users", nil, &out)
	return out, err
}

func (c *Client) GetUser(ctx context.Context, id entity.ID) (entity.User, error) {
	var out entity.User
	err := c.get(ctx, pathf("/users/%d", id), nil, &out)
	return out, err
}

func (c *Client) CreateUser(ctx context.Context, in UserInput) (entity.User, error) {
	var out entity.User
	err := c.post(ctx, "/users", userEnvelope{User: in}, &out)
	return out, err
}

func (c *Client) UpdateUser(ctx context.Context, id entity.ID, in UserUpdate) (entity.User, error) {
	var out entity.User
	err := c.put(ctx, pathf("/users/%d", id), userEnvelope{User: in}, &out)
	return out, err
}

func (c *Client) DeleteUser(ctx context.Context, id entity.ID) error {
	return c.delete(ctx, pathf("/users/%d", id))
}

// Login exchanges credentials for a bearer token.
func (c *Client) Login(ctx context.Context, creds Credentials) (LoginResult, error) {
	var out LoginResult
	err := c.post(ctx, "/auth/login", creds, &out)
	return out, err
}

// Logout revokes the token attached to ctx.
func (c *Client) Logout(ctx context.Context) error {
	return c.delete(ctx, "/auth/logout")
}

// CurrentUser returns the owner of the token attached to ctx.
func (c *Client) CurrentUser(ctx context.Context) (entity.User, error) {
	var out entity.User
	err := c.get(ctx, "/auth/me", nil, &out)
	return out, err
}
