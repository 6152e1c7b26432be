package adapters

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"pharma-sync/internal/core/cache"
	"pharma-sync/internal/core/logger"
	"pharma-sync/internal/features/orders/domain"

	"go.uber.org/zap"
)

const (
	customerOrdersKey = "customer_orders"
	pharmacyOrdersKey = "pharmacy_orders"
	courierTasksKey   = "courier_tasks"
)

// RedisOrderStore implements ports.OrderStore on top of the cache port.
// The whole list is stored under one key; every mutation is a locked
// read-modify-write of the full list, so a lost update can only affect
// a single record, never corrupt the list.
type RedisOrderStore struct {
	cache cache.Cache
	key   string
	// legacyKey, when set, is an older unnamespaced key whose contents
	// are adopted on first read and then deleted.
	legacyKey string

	mu sync.Mutex
}

// NewPharmacyOrderStore creates the store backing the pharmacy view.
func NewPharmacyOrderStore(c cache.Cache) *RedisOrderStore {
	return &RedisOrderStore{cache: c, key: pharmacyOrdersKey}
}

// NewCustomerOrderStore creates the store backing the customer view.
// When customerID is set the store is namespaced per account; a
// pre-existing unnamespaced entry is migrated on first read.
func NewCustomerOrderStore(c cache.Cache, customerID string) *RedisOrderStore {
	if customerID == "" {
		return &RedisOrderStore{cache: c, key: customerOrdersKey}
	}
	return &RedisOrderStore{
		cache:     c,
		key:       fmt.Sprintf("%s:%s", customerOrdersKey, customerID),
		legacyKey: customerOrdersKey,
	}
}

// List returns the cached orders. A missing key reads as an empty
// list; a malformed entry is logged and also reads as empty, without
// wiping the stored value.
func (s *RedisOrderStore) List(ctx context.Context) ([]domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(ctx)
}

// Replace overwrites the whole cached list.
func (s *RedisOrderStore) Replace(ctx context.Context, orders []domain.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save(ctx, orders)
}

// Upsert inserts or updates one order, matched by ID.
func (s *RedisOrderStore) Upsert(ctx context.Context, order domain.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	orders, err := s.load(ctx)
	if err != nil {
		return err
	}

	replaced := false
	for i := range orders {
		if orders[i].ID == order.ID {
			orders[i] = order
			replaced = true
			break
		}
	}
	if !replaced {
		orders = append(orders, order)
	}

	return s.save(ctx, orders)
}

// UpdateStatus sets the status of the matching record. When the ID is
// absent nothing is written: customer and pharmacy records originate
// only from the order-creation flow, never from propagation.
func (s *RedisOrderStore) UpdateStatus(ctx context.Context, orderID string, status domain.Status, failureReason string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	orders, err := s.load(ctx)
	if err != nil {
		return false, err
	}

	for i := range orders {
		if orders[i].ID != orderID {
			continue
		}
		orders[i].Status = status
		if failureReason != "" {
			orders[i].FailureReason = failureReason
		}
		return true, s.save(ctx, orders)
	}

	return false, nil
}

// Remove deletes the matching record. Absent IDs are a no-op.
func (s *RedisOrderStore) Remove(ctx context.Context, orderID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	orders, err := s.load(ctx)
	if err != nil {
		return false, err
	}

	kept := orders[:0]
	for _, o := range orders {
		if o.ID != orderID {
			kept = append(kept, o)
		}
	}
	if len(kept) == len(orders) {
		return false, nil
	}

	return true, s.save(ctx, kept)
}

func (s *RedisOrderStore) load(ctx context.Context) ([]domain.Order, error) {
	data, err := s.cache.Get(ctx, s.key)
	if errors.Is(err, cache.ErrCacheMiss) {
		if s.legacyKey != "" {
			return s.adoptLegacy(ctx)
		}
		return []domain.Order{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read store %s: %w", s.key, err)
	}

	return decodeOrders(s.key, data), nil
}

// adoptLegacy migrates an unnamespaced entry left behind by an older
// revision into the per-account key.
func (s *RedisOrderStore) adoptLegacy(ctx context.Context) ([]domain.Order, error) {
	data, err := s.cache.Get(ctx, s.legacyKey)
	if errors.Is(err, cache.ErrCacheMiss) {
		return []domain.Order{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read legacy store %s: %w", s.legacyKey, err)
	}

	orders := decodeOrders(s.legacyKey, data)

	if err := s.save(ctx, orders); err != nil {
		logger.Get().Warn("Failed to migrate legacy order store",
			zap.String("from", s.legacyKey),
			zap.String("to", s.key),
			zap.Error(err),
		)
		return orders, nil
	}
	if err := s.cache.Delete(ctx, s.legacyKey); err != nil {
		logger.Get().Warn("Failed to delete legacy order store",
			zap.String("key", s.legacyKey),
			zap.Error(err),
		)
	}

	return orders, nil
}

func (s *RedisOrderStore) save(ctx context.Context, orders []domain.Order) error {
	data, err := json.Marshal(orders)
	if err != nil {
		return fmt.Errorf("failed to marshal store %s: %w", s.key, err)
	}
	if err := s.cache.Set(ctx, s.key, data, 0); err != nil {
		return fmt.Errorf("failed to write store %s: %w", s.key, err)
	}
	return nil
}

// decodeOrders parses a stored list, treating malformed JSON as empty.
// The stored value is left in place; the next successful write replaces it.
func decodeOrders(key string, data []byte) []domain.Order {
	var orders []domain.Order
	if err := json.Unmarshal(data, &orders); err != nil {
		logger.Get().Error("Malformed order store, treating as empty",
			zap.String("key", key),
			zap.Error(err),
		)
		return []domain.Order{}
	}
	if orders == nil {
		return []domain.Order{}
	}
	return orders
}

// RedisTaskStore implements ports.TaskStore for the courier's
// delivery-task list, with the same whole-list write discipline.
type RedisTaskStore struct {
	cache cache.Cache
	key   string

	mu sync.Mutex
}

// NewCourierTaskStore creates the store backing the courier view.
func NewCourierTaskStore(c cache.Cache) *RedisTaskStore {
	return &RedisTaskStore{cache: c, key: courierTasksKey}
}

// List returns every cached task, including terminal ones.
func (s *RedisTaskStore) List(ctx context.Context) ([]domain.DeliveryTask, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(ctx)
}

// Available returns the tasks open for pick-up, closest first.
// Terminal and already-assigned tasks are excluded but retained.
func (s *RedisTaskStore) Available(ctx context.Context) ([]domain.DeliveryTask, error) {
	tasks, err := s.List(ctx)
	if err != nil {
		return nil, err
	}

	available := make([]domain.DeliveryTask, 0, len(tasks))
	for _, task := range tasks {
		if task.Status == domain.TaskStatusConfirmed {
			available = append(available, task)
		}
	}
	domain.SortByDistance(available)
	return available, nil
}

// Get returns the task with the given ID, or nil when absent.
func (s *RedisTaskStore) Get(ctx context.Context, orderID string) (*domain.DeliveryTask, error) {
	tasks, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	for _, task := range tasks {
		if task.ID == orderID {
			return &task, nil
		}
	}
	return nil, nil
}

// Upsert inserts or updates one task, matched by ID.
func (s *RedisTaskStore) Upsert(ctx context.Context, task domain.DeliveryTask) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tasks, err := s.load(ctx)
	if err != nil {
		return err
	}

	replaced := false
	for i := range tasks {
		if tasks[i].ID == task.ID {
			tasks[i] = task
			replaced = true
			break
		}
	}
	if !replaced {
		tasks = append(tasks, task)
	}

	return s.save(ctx, tasks)
}

// UpdateStatus sets the status of the matching task without writing
// when the ID is absent.
func (s *RedisTaskStore) UpdateStatus(ctx context.Context, orderID string, status domain.TaskStatus) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tasks, err := s.load(ctx)
	if err != nil {
		return false, err
	}

	for i := range tasks {
		if tasks[i].ID != orderID {
			continue
		}
		tasks[i].Status = status
		return true, s.save(ctx, tasks)
	}

	return false, nil
}

// Remove deletes the matching task. Absent IDs are a no-op.
func (s *RedisTaskStore) Remove(ctx context.Context, orderID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tasks, err := s.load(ctx)
	if err != nil {
		return false, err
	}

	kept := tasks[:0]
	for _, task := range tasks {
		if task.ID != orderID {
			kept = append(kept, task)
		}
	}
	if len(kept) == len(tasks) {
		return false, nil
	}

	return true, s.save(ctx, kept)
}

func (s *RedisTaskStore) load(ctx context.Context) ([]domain.DeliveryTask, error) {
	data, err := s.cache.Get(ctx, s.key)
	if errors.Is(err, cache.ErrCacheMiss) {
		return []domain.DeliveryTask{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read store %s: %w", s.key, err)
	}

	var tasks []domain.DeliveryTask
	if err := json.Unmarshal(data, &tasks); err != nil {
		logger.Get().Error("Malformed task store, treating as empty",
			zap.String("key", s.key),
			zap.Error(err),
		)
		return []domain.DeliveryTask{}, nil
	}
	if tasks == nil {
		return []domain.DeliveryTask{}, nil
	}
	return tasks, nil
}

func (s *RedisTaskStore) save(ctx context.Context, tasks []domain.DeliveryTask) error {
	data, err := json.Marshal(tasks)
	if err != nil {
		return fmt.Errorf("failed to marshal store %s: %w", s.key, err)
	}
	if err := s.cache.Set(ctx, s.key, data, 0); err != nil {
		return fmt.Errorf("failed to write store %s: %w", s.key, err)
	}
	return nil
}
