package handlers_test

import (
	"context"

	"github.com/marcodena/storefront/internal/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

func mustDecimal(raw string) decimal.Decimal {
	return decimal.RequireFromString(raw)
}

// Handlers wrap concrete services, so the tests drive the real service
// layer over mocked repositories.

type mockCartRepo struct {
	mock.Mock
}

func (m *mockCartRepo) Get(ctx context.Context, sessionID string) (*models.Cart, error) {
	args := m.Called(ctx, sessionID)
	if cart, ok := args.Get(0).(*models.Cart); ok {
		return cart, args.Error(1)
	}

	return nil, args.Error(1)
}

func (m *mockCartRepo) Save(ctx context.Context, cart *models.Cart) error {
	return m.Called(ctx, cart).Error(0)
}

func (m *mockCartRepo) Delete(ctx context.Context, sessionID string) error {
	return m.Called(ctx, sessionID).Error(0)
}

type mockProductRepo struct {
	mock.Mock
}

func (m *mockProductRepo) CreateProduct(ctx context.Context, product *models.Product) error {
	return m.Called(ctx, product).Error(0)
}

func (m *mockProductRepo) GetProductByID(ctx context.Context, id int64) (*models.Product, error) {
	args := m.Called(ctx, id)
	if product, ok := args.Get(0).(*models.Product); ok {
		return product, args.Error(1)
	}

	return nil, args.Error(1)
}

func (m *mockProductRepo) UpdateProduct(ctx context.Context, product *models.Product) error {
	return m.Called(ctx, product).Error(0)
}

func (m *mockProductRepo) ListProducts(ctx context.Context, categoryID int64, page, size int) ([]*models.Product, int, error) {
	args := m.Called(ctx, categoryID, page, size)
	if products, ok := args.Get(0).([]*models.Product); ok {
		return products, args.Int(1), args.Error(2)
	}

	return nil, args.Int(1), args.Error(2)
}

func (m *mockProductRepo) ListCategories(ctx context.Context) ([]*models.Category, error) {
	args := m.Called(ctx)
	if categories, ok := args.Get(0).([]*models.Category); ok {
		return categories, args.Error(1)
	}

	return nil, args.Error(1)
}

type mockOrderRepo struct {
	mock.Mock
}

func (m *mockOrderRepo) CreateOrder(ctx context.Context, order *models.Order) error {
	return m.Called(ctx, order).Error(0)
}

func (m *mockOrderRepo) GetOrderByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	args := m.Called(ctx, id)
	if order, ok := args.Get(0).(*models.Order); ok {
		return order, args.Error(1)
	}

	return nil, args.Error(1)
}

func (m *mockOrderRepo) ListOrdersByUser(ctx context.Context, userID uuid.UUID, page, size int) ([]models.Order, int, error) {
	args := m.Called(ctx, userID, page, size)
	if orders, ok := args.Get(0).([]models.Order); ok {
		return orders, args.Int(1), args.Error(2)
	}

	return nil, args.Int(1), args.Error(2)
}

func (m *mockOrderRepo) UpdateOrderStatus(ctx context.Context, id uuid.UUID, status models.OrderStatus) error {
	return m.Called(ctx, id, status).Error(0)
}

func (m *mockOrderRepo) UpdatePaid(ctx context.Context, id uuid.UUID, paid bool) error {
	return m.Called(ctx, id, paid).Error(0)
}
