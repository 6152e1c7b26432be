package service

import (
	"context"

	"pharma-sync/internal/features/orders/domain"

	"github.com/stretchr/testify/mock"
)

// MockOrderProvider is a mock implementation of ports.OrderProvider.
type MockOrderProvider struct {
	mock.Mock
}

func (m *MockOrderProvider) ListOrders(ctx context.Context) ([]domain.Order, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Order), args.Error(1)
}

func (m *MockOrderProvider) ListCustomerOrders(ctx context.Context) ([]domain.Order, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Order), args.Error(1)
}

func (m *MockOrderProvider) GetOrder(ctx context.Context, orderID string) (*domain.Order, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Order), args.Error(1)
}

func (m *MockOrderProvider) UpdateStatus(ctx context.Context, orderID, rawStatus, failureReason string) (*domain.Order, error) {
	args := m.Called(ctx, orderID, rawStatus, failureReason)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Order), args.Error(1)
}

// MockOrderStore is a mock implementation of ports.OrderStore.
type MockOrderStore struct {
	mock.Mock
}

func (m *MockOrderStore) List(ctx context.Context) ([]domain.Order, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Order), args.Error(1)
}

func (m *MockOrderStore) Replace(ctx context.Context, orders []domain.Order) error {
	args := m.Called(ctx, orders)
	return args.Error(0)
}

func (m *MockOrderStore) Upsert(ctx context.Context, order domain.Order) error {
	args := m.Called(ctx, order)
	return args.Error(0)
}

func (m *MockOrderStore) UpdateStatus(ctx context.Context, orderID string, status domain.Status, failureReason string) (bool, error) {
	args := m.Called(ctx, orderID, status, failureReason)
	return args.Bool(0), args.Error(1)
}

func (m *MockOrderStore) Remove(ctx context.Context, orderID string) (bool, error) {
	args := m.Called(ctx, orderID)
	return args.Bool(0), args.Error(1)
}

// MockSyncService is a mock implementation of ports.OrderSyncService.
type MockSyncService struct {
	mock.Mock
}

func (m *MockSyncService) CustomerOrders(ctx context.Context) ([]domain.Order, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Order), args.Error(1)
}

func (m *MockSyncService) PharmacyOrders(ctx context.Context) ([]domain.Order, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Order), args.Error(1)
}

func (m *MockSyncService) CourierTasks(ctx context.Context) ([]domain.DeliveryTask, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.DeliveryTask), args.Error(1)
}
