package bookstore

import (
	"context"

	"bookworm/internal/entity"
)

type CategoryInput struct {
	Name        string `json:"name,omitempty"`
	Description string `json:"description,omitempty"`
}

type categoryEnvelope struct {
	Category CategoryInput `json:"category"`
}

func (c *Client) ListCategories(ctx context.Context) ([]entity.Category, error) {
	var out []entity.Category
	err := c.get(ctx, "/categories", nil, &out)
	return out, err
}

func (c *Client) GetCategory(ctx context.Context, id entity.ID) (entity.Category, error) {
	var out entity.Category
	err := c.get(ctx, pathf("/categories/%d", id), nil, &out)
	return out, err
}

func (c *Client) CreateCategory(ctx context.Context, in CategoryInput) (entity.Category, error) {
	var out entity.Category
	err := c.post(ctx, "/categories", categoryEnvelope{Category: in}, &out)
	return out, err
}

func (c *Client) UpdateCategory(ctx context.Context, id entity.ID, in CategoryInput) (entity.Category, error) {
	var out entity.Category
	err := c.put(ctx, pathf("/categories/%d", id), categoryEnvelope{Category: in}, &out)
	return out, err
}

func (c *Client) DeleteCategory(ctx context.Context, id entity.ID) error {
	return c.delete(ctx, pathf("/categories/%d", id))
}
