package service

import (
	"context"
	"errors"
	"fmt"

	"pharma-sync/internal/core/logger"
	"pharma-sync/internal/features/orders/domain"
	"pharma-sync/internal/features/orders/ports"

	"go.uber.org/zap"
)

// ErrBackendUnavailable is returned when the backend cannot be reached;
// the cached view is left untouched so callers can fall back to it.
var ErrBackendUnavailable = errors.New("backend unavailable")

// SyncService refreshes the role views: fetch from the backend,
// reconcile each order against the cached copy, persist the merged
// result, return it newest first.
type SyncService struct {
	provider ports.OrderProvider
	customer ports.OrderStore
	pharmacy ports.OrderStore
	courier  ports.TaskStore
}

// NewSyncService creates a new SyncService.
func NewSyncService(provider ports.OrderProvider, customer, pharmacy ports.OrderStore, courier ports.TaskStore) *SyncService {
	return &SyncService{
		provider: provider,
		customer: customer,
		pharmacy: pharmacy,
		courier:  courier,
	}
}

// CustomerOrders refreshes and returns the customer view.
func (s *SyncService) CustomerOrders(ctx context.Context) ([]domain.Order, error) {
	return s.refresh(ctx, s.customer, s.provider.ListCustomerOrders)
}

// PharmacyOrders refreshes and returns the pharmacy view.
func (s *SyncService) PharmacyOrders(ctx context.Context) ([]domain.Order, error) {
	return s.refresh(ctx, s.pharmacy, s.provider.ListOrders)
}

// CourierTasks returns the courier's available delivery tasks. The
// courier list is fed by propagation, not by backend fetches, so no
// refresh happens here.
func (s *SyncService) CourierTasks(ctx context.Context) ([]domain.DeliveryTask, error) {
	tasks, err := s.courier.Available(ctx)
	if err != nil {
		return nil, fmt.Errorf("service: failed to list courier tasks: %w", err)
	}
	return tasks, nil
}

// refresh runs one fetch-normalize-merge-persist cycle for a role view.
// A fetch failure leaves the cache untouched, stale but consistent.
func (s *SyncService) refresh(ctx context.Context, store ports.OrderStore, fetch func(context.Context) ([]domain.Order, error)) ([]domain.Order, error) {
	fresh, err := fetch(ctx)
	if err != nil {
		logger.Get().Warn("Order fetch failed, cached view left untouched", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}

	cached, err := store.List(ctx)
	if err != nil {
		// The merge degrades gracefully against an empty cache.
		logger.Get().Warn("Failed to read cached orders before merge", zap.Error(err))
		cached = nil
	}

	merged := make([]domain.Order, 0, len(fresh))
	for _, order := range fresh {
		merged = append(merged, domain.Merge(order, cached))
	}
	domain.SortNewestFirst(merged)

	if err := store.Replace(ctx, merged); err != nil {
		return nil, fmt.Errorf("service: failed to persist merged orders: %w", err)
	}

	return merged, nil
}
