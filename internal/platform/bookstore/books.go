package bookstore

import (
	"context"
	"net/url"
	"strconv"

	"bookworm/internal/entity"
)

// BooksQuery filters and paginates the catalog. Zero values are not sent.
type BooksQuery struct {
	CategoryID entity.ID
	Search     string
	MinPrice   float64
	MaxPrice   float64
	Page       int
	PerPage    int
}

func (q BooksQuery) values() url.Values {
	v := url.Values{}
	if q.CategoryID > 0 {
		v.Set("category_id", q.CategoryID.String())
	}
	if q.Search != "" {
		v.Set("search", q.Search)
	}
	if q.MinPrice > 0 {
		v.Set("min_price", strconv.FormatFloat(q.MinPrice, 'f', -1, 64))
	}
	if q.MaxPrice > 0 {
		v.Set("max_price", strconv.FormatFloat(q.MaxPrice, 'f', -1, 64))
	}
	if q.Page > 0 {
		v.Set("page", strconv.Itoa(q.Page))
	}
	if q.PerPage > 0 {
		v.Set("per_page", strconv.Itoa(q.PerPage))
	}
	return v
}

// BookInput is used for creation and partial updates.
type BookInput struct {
	Title           string    `json:"title,omitempty"`
	Author          string    `json:"author,omitempty"`
	Description     string    `json:"description,omitempty"`
	Price           float64   `json:"price,omitempty"`
	StockQuantity   *int      `json:"stock_quantity,omitempty"`
	ISBN            string    `json:"isbn,omitempty"`
	Publisher       string    `json:"publisher,omitempty"`
	PublicationDate string    `json:"publication_date,omitempty"`
	PageCount       int       `json:"page_count,omitempty"`
	Language        string    `json:"language,omitempty"`
	CategoryID      entity.ID `json:"category_id,omitempty"`
}

type bookEnvelope struct {
	Book BookInput `json:"book"`
}

func (c *Client) ListBooks(ctx context.Context, q BooksQuery) (entity.BooksPage, error) {
	var page entity.BooksPage
	err := c.get(ctx, "/books", q.values(), &page)
	return page, err
}

func (c *Client) GetBook(ctx context.Context, id entity.ID) (entity.Book, error) {
	var b entity.Book
	err := c.get(ctx, pathf("/books/%d", id), nil, &b)
	return b, err
}

func (c *Client) GetBookBySlug(ctx context.Context, slug string) (entity.Book, error) {
	var b entity.Book
	err := c.get(ctx, pathf("/books/slug/%s", slug), nil, &b)
	return b, err
}

func (c *Client) CreateBook(ctx context.Context, in BookInput) (entity.Book, error) {
	var b entity.Book
	err := c.post(ctx, "/books", bookEnvelope{Book: in}, &b)
	return b, err
}

func (c *Client) UpdateBook(ctx context.Context, id entity.ID, in BookInput) (entity.Book, error) {
	var b entity.Book
	err := c.put(ctx, pathf("/books/%d", id), bookEnvelope{Book: in}, &b)
	return b, err
}

func (c *Client) DeleteBook(ctx context.Context, id entity.ID) error {
	return c.delete(ctx, pathf("/books/%d", id))
}

func (c *Client) BooksByCategory(ctx context.Context, categoryID entity.ID, q BooksQuery) (entity.BooksPage, error) {
	q.CategoryID = categoryID
	return c.ListBooks(ctx, q)
}

func (c *Client) SearchBooks(ctx context.Context, search string, q BooksQuery) (entity.BooksPage, error) {
	q.Search = search
	return c.ListBooks(ctx, q)
}
