// Package admin builds the store overview shown to administrators.
package admin

import (
	"context"
	"fmt"

	"bookworm/internal/entity"
	"bookworm/internal/platform/bookstore"

	"golang.org/x/sync/errgroup"
)

// RecentOrderCount is how many orders the dashboard lists.
const RecentOrderCount = 5

type API interface {
	ListBooks(ctx context.Context, q bookstore.BooksQuery) (entity.BooksPage, error)
	ListCategories(ctx context.Context) ([]entity.Category, error)
	ListOrders(ctx context.Context, q bookstore.OrdersQuery) ([]entity.Order, error)
	ListUsers(ctx context.Context) ([]entity.User, error)
}

type Stats struct {
	TotalBooks      int
	TotalCategories int
	TotalOrders     int
	TotalUsers      int
	RecentOrders    []entity.Order
}

type Service struct {
	api API
}

func NewService(api API) *Service {
	return &Service{api: api}
}

// Dashboard fetches the four collections concurrently. Any failure fails the
// whole dashboard.
func (s *Service) Dashboard(ctx context.Context) (Stats, error) {
	var (
		books      entity.BooksPage
		categories []entity.Category
		orders     []entity.Order
		users      []entity.User
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		books, err = s.api.ListBooks(gctx, bookstore.BooksQuery{PerPage: 1})
		return err
	})
	g.Go(func() (err error) {
		categories, err = s.api.ListCategories(gctx)
		return err
	})
	g.Go(func() (err error) {
		orders, err = s.api.ListOrders(gctx, bookstore.OrdersQuery{})
		return err
	})
	g.Go(func() (err error) {
		users, err = s.api.ListUsers(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return Stats{}, fmt.Errorf("admin.Dashboard: %w", err)
	}

	totalBooks := books.Meta.TotalCount
	if totalBooks == 0 {
		totalBooks = len(books.Books)
	}
	recent := orders
	if len(recent) > RecentOrderCount {
		recent = recent[:RecentOrderCount]
	}
	return Stats{
		TotalBooks:      totalBooks,
		TotalCategories: len(categories),
		TotalOrders:     len(orders),
		TotalUsers:      len(users),
		RecentOrders:    recent,
	}, nil
}
