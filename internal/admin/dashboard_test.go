package admin

import (
	"context"
	"errors"
	"testing"

	"bookworm/internal/entity"
	"bookworm/internal/platform/bookstore"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockAPI struct {
	mock.Mock
}

func (m *mockAPI) ListBooks(ctx context.Context, q bookstore.BooksQuery) (entity.BooksPage, error) {
	args := m.Called(ctx, q)
	return args.Get(0).(entity.BooksPage), args.Error(1)
}

func (m *mockAPI) ListCategories(ctx context.Context) ([]entity.Category, error) {
	args := m.Called(ctx)
	return args.Get(0).([]entity.Category), args.Error(1)
}

func (m *mockAPI) ListOrders(ctx context.Context, q bookstore.OrdersQuery) ([]entity.Order, error) {
	args := m.Called(ctx, q)
	return args.Get(0).([]entity.Order), args.Error(1)
}

func (m *mockAPI) ListUsers(ctx context.Context) ([]entity.User, error) {
	args := m.Called(ctx)
	return args.Get(0).([]entity.User), args.Error(1)
}

func orders(n int) []entity.Order {
	out := make([]entity.Order, n)
	for i := range out {
		out[i] = entity.Order{ID: entity.ID(i + 1), Status: entity.OrderPending}
	}
	return out
}

func TestService_Dashboard(t *testing.T) {
	api := new(mockAPI)
	api.On("ListBooks", mock.Anything, bookstore.BooksQuery{PerPage: 1}).
		Return(entity.BooksPage{Books: []entity.Book{{ID: 1}}, Meta: entity.PaginationMeta{TotalCount: 120}}, nil).Once()
	api.On("ListCategories", mock.Anything).Return([]entity.Category{{ID: 1}, {ID: 2}}, nil).Once()
	api.On("ListOrders", mock.Anything, bookstore.OrdersQuery{}).Return(orders(8), nil).Once()
	api.On("ListUsers", mock.Anything).Return([]entity.User{{ID: 1}}, nil).Once()

	stats, err := NewService(api).Dashboard(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 120, stats.TotalBooks)
	assert.Equal(t, 2, stats.TotalCategories)
	assert.Equal(t, 8, stats.TotalOrders)
	assert.Equal(t, 1, stats.TotalUsers)
	require.Len(t, stats.RecentOrders, RecentOrderCount)
	assert.Equal(t, entity.ID(1), stats.RecentOrders[0].ID)
	api.AssertExpectations(t)
}

func TestService_DashboardCountsBooksWithoutMeta(t *testing.T) {
	api := new(mockAPI)
	api.On("ListBooks", mock.Anything, mock.Anything).
		Return(entity.BooksPage{Books: []entity.Book{{ID: 1}}}, nil).Once()
	api.On("ListCategories", mock.Anything).Return([]entity.Category{}, nil).Once()
	api.On("ListOrders", mock.Anything, mock.Anything).Return(orders(2), nil).Once()
	api.On("ListUsers", mock.Anything).Return([]entity.User{}, nil).Once()

	stats, err := NewService(api).Dashboard(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.TotalBooks)
	assert.Len(t, stats.RecentOrders, 2)
}

func TestService_DashboardFailsOnAnyError(t *testing.T) {
	api := new(mockAPI)
	api.On("ListBooks", mock.Anything, mock.Anything).Return(entity.BooksPage{}, nil).Maybe()
	api.On("ListCategories", mock.Anything).Return([]entity.Category{}, nil).Maybe()
	api.On("ListOrders", mock.Anything, mock.Anything).Return([]entity.Order(nil), errors.New("down")).Once()
	api.On("ListUsers", mock.Anything).Return([]entity.User{}, nil).Maybe()

	_, err := NewService(api).Dashboard(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "down")
}
