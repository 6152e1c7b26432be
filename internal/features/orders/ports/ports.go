package ports

import (
	"context"
	"errors"

	"pharma-sync/internal/features/orders/domain"
)

// ErrNotFound is returned when the backend does not know the order.
var ErrNotFound = errors.New("order not found")

// OrderProvider defines the interface for the pharmacy backend API.
// This is a Secondary Port (Driven Port).
type OrderProvider interface {
	// ListOrders retrieves the orders visible to the pharmacy.
	ListOrders(ctx context.Context) ([]domain.Order, error)
	// ListCustomerOrders retrieves the authenticated customer's orders.
	ListCustomerOrders(ctx context.Context) ([]domain.Order, error)
	// GetOrder retrieves a single order by ID.
	GetOrder(ctx context.Context, orderID string) (*domain.Order, error)
	// UpdateStatus pushes a raw status token to the backend. The backend
	// may answer with the updated order or an empty body; a nil order
	// with nil error means the caller must re-fetch.
	UpdateStatus(ctx context.Context, orderID, rawStatus, failureReason string) (*domain.Order, error)
}

// OrderStore defines the secondary port for one role's order cache.
// Every mutation is a single whole-list read-modify-write so callers
// never hold a read/write sequence open across call sites.
type OrderStore interface {
	// List returns the cached orders. A missing or malformed entry reads
	// as an empty list.
	List(ctx context.Context) ([]domain.Order, error)
	// Replace overwrites the whole cached list.
	Replace(ctx context.Context, orders []domain.Order) error
	// Upsert inserts or updates one order, matched by ID.
	Upsert(ctx context.Context, order domain.Order) error
	// UpdateStatus sets the status (and failure reason, when non-empty)
	// of the matching record. Returns false without writing when the ID
	// is absent: records are never created through propagation.
	UpdateStatus(ctx context.Context, orderID string, status domain.Status, failureReason string) (bool, error)
	// Remove deletes the matching record. Returns false when absent.
	Remove(ctx context.Context, orderID string) (bool, error)
}

// TaskStore defines the secondary port for the courier's delivery-task cache.
type TaskStore interface {
	// List returns every cached task, including terminal ones.
	List(ctx context.Context) ([]domain.DeliveryTask, error)
	// Available returns the tasks open for pick-up, closest first.
	Available(ctx context.Context) ([]domain.DeliveryTask, error)
	// Get returns the task with the given ID, or nil when absent.
	Get(ctx context.Context, orderID string) (*domain.DeliveryTask, error)
	// Upsert inserts or updates one task, matched by ID.
	Upsert(ctx context.Context, task domain.DeliveryTask) error
	// UpdateStatus sets the status of the matching task. Returns false
	// without writing when the ID is absent.
	UpdateStatus(ctx context.Context, orderID string, status domain.TaskStatus) (bool, error)
	// Remove deletes the matching task. Returns false when absent.
	Remove(ctx context.Context, orderID string) (bool, error)
}

// OrderSyncService defines the primary port for refreshing role views.
type OrderSyncService interface {
	// CustomerOrders refreshes and returns the customer view.
	CustomerOrders(ctx context.Context) ([]domain.Order, error)
	// PharmacyOrders refreshes and returns the pharmacy view.
	PharmacyOrders(ctx context.Context) ([]domain.Order, error)
	// CourierTasks returns the courier's available delivery tasks.
	CourierTasks(ctx context.Context) ([]domain.DeliveryTask, error)
}

// OrderActionService defines the primary port for user-initiated
// status-changing actions.
type OrderActionService interface {
	// Accept confirms preparation of the order (pharmacy).
	Accept(ctx context.Context, orderID string) (*domain.Order, error)
	// Reject declines the order (pharmacy).
	Reject(ctx context.Context, orderID string) (*domain.Order, error)
	// Assign takes the delivery task (courier).
	Assign(ctx context.Context, orderID string) (*domain.Order, error)
	// Pickup marks the order as collected from the pharmacy (courier).
	Pickup(ctx context.Context, orderID string) (*domain.Order, error)
	// Deliver marks the order as handed to the customer (courier).
	Deliver(ctx context.Context, orderID string) (*domain.Order, error)
	// Fail marks the delivery as not completed, with a reason (courier).
	Fail(ctx context.Context, orderID, reason string) (*domain.Order, error)
	// DropTask removes an unwanted task from the courier's list only.
	DropTask(ctx context.Context, orderID string) error
}
