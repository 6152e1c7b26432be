package service

import (
	"context"
	"time"

	"pharma-sync/internal/core/logger"
	"pharma-sync/internal/features/orders/domain"
	"pharma-sync/internal/features/orders/ports"

	"go.uber.org/zap"
)

// Propagation carries the display data needed when the fan-out has to
// create a courier task. Zero values fall back to the existing record
// or to placeholders.
type Propagation struct {
	PharmacyName         string
	PharmacyAddress      string
	CustomerAddress      string
	ItemsSummary         string
	RequiresPrescription bool
	FailureReason        string
	CreatedAt            time.Time
}

// PropagationFromOrder builds the fan-out data from an order record.
func PropagationFromOrder(order domain.Order) Propagation {
	return Propagation{
		PharmacyName:         order.PharmacyName,
		PharmacyAddress:      order.PharmacyAddress,
		CustomerAddress:      order.DeliveryAddress,
		ItemsSummary:         order.ItemsSummary(),
		RequiresPrescription: order.RequiresPrescription(),
		FailureReason:        order.FailureReason,
		CreatedAt:            order.CreatedAt,
	}
}

// Propagator fans a status transition out to the three role stores so
// each view reflects the new state before its next full refresh.
// Propagation is best-effort: each store is updated independently and a
// failure on one never blocks the others.
type Propagator struct {
	customer ports.OrderStore
	pharmacy ports.OrderStore
	courier  ports.TaskStore
}

// NewPropagator creates a new Propagator over the three role stores.
func NewPropagator(customer, pharmacy ports.OrderStore, courier ports.TaskStore) *Propagator {
	return &Propagator{
		customer: customer,
		pharmacy: pharmacy,
		courier:  courier,
	}
}

// Propagate applies a raw status token, observed from one role's
// action, to every role store. The token is normalized before writing:
// each store historically used a slightly different vocabulary and the
// canonical value is the only one all readers understand.
//
// Customer and pharmacy records are updated only when present; absence
// is expected (a cache may not be hydrated yet) and never escalated.
func (p *Propagator) Propagate(ctx context.Context, orderID, rawStatus string, info Propagation) {
	canonical := domain.Normalize(rawStatus)

	p.updateOrders(ctx, "customer", p.customer, orderID, canonical, info.FailureReason)
	p.updateOrders(ctx, "pharmacy", p.pharmacy, orderID, canonical, info.FailureReason)
	p.updateCourier(ctx, orderID, rawStatus, canonical, info)
}

func (p *Propagator) updateOrders(ctx context.Context, role string, store ports.OrderStore, orderID string, status domain.Status, failureReason string) {
	found, err := store.UpdateStatus(ctx, orderID, status, failureReason)
	if err != nil {
		logger.Get().Error("Failed to propagate status to role store",
			zap.String("role", role),
			zap.String("order_id", orderID),
			zap.String("status", string(status)),
			zap.Error(err),
		)
		return
	}
	if !found {
		logger.Get().Debug("Order absent from role store, propagation skipped",
			zap.String("role", role),
			zap.String("order_id", orderID),
		)
	}
}

// updateCourier applies the eligibility gating for the courier list:
// a pharmacy acceptance opens the order for pick-up, a rejection takes
// it back off the list, courier-side transitions advance the task, and
// terminal outcomes mark the record while keeping it for history.
func (p *Propagator) updateCourier(ctx context.Context, orderID, rawStatus string, canonical domain.Status, info Propagation) {
	switch canonical {
	case domain.StatusAccepted:
		// A courier taking the task is also "accepted" for the other
		// views, but must not reopen the task as available.
		if rawStatus == rawAssigned {
			p.updateTask(ctx, orderID, domain.TaskStatusAssigned)
			return
		}
		p.upsertTask(ctx, orderID, info)
	case domain.StatusInTransit:
		p.updateTask(ctx, orderID, domain.TaskStatusInTransit)
	case domain.StatusDelivered:
		p.updateTask(ctx, orderID, domain.TaskStatusDelivered)
	case domain.StatusNotDelivered:
		p.updateTask(ctx, orderID, domain.TaskStatusNotDelivered)
	case domain.StatusRejected:
		p.removeTask(ctx, orderID)
	case domain.StatusCreated:
		// The order went back to pending (e.g. prescription re-review);
		// an open task must not linger in the browsable list.
		p.removeConfirmedTask(ctx, orderID)
	}
}

func (p *Propagator) upsertTask(ctx context.Context, orderID string, info Propagation) {
	existing, err := p.courier.Get(ctx, orderID)
	if err != nil {
		logger.Get().Error("Failed to read courier task before upsert",
			zap.String("order_id", orderID),
			zap.Error(err),
		)
		return
	}

	task := domain.DeliveryTask{
		ID:                   orderID,
		PharmacyName:         info.PharmacyName,
		PharmacyAddress:      info.PharmacyAddress,
		CustomerAddress:      info.CustomerAddress,
		ItemsSummary:         info.ItemsSummary,
		RequiresPrescription: info.RequiresPrescription,
		Status:               domain.TaskStatusConfirmed,
		Distance:             domain.DefaultTaskDistance,
		CreatedAt:            info.CreatedAt,
	}
	if existing != nil {
		// Real distance belongs to a geolocation collaborator; carry
		// over whatever the record already had.
		task.Distance = existing.Distance
		if task.PharmacyAddress == "" {
			task.PharmacyAddress = existing.PharmacyAddress
		}
		if task.CreatedAt.IsZero() {
			task.CreatedAt = existing.CreatedAt
		}
	}

	if err := p.courier.Upsert(ctx, task); err != nil {
		logger.Get().Error("Failed to upsert courier task",
			zap.String("order_id", orderID),
			zap.Error(err),
		)
	}
}

func (p *Propagator) updateTask(ctx context.Context, orderID string, status domain.TaskStatus) {
	if _, err := p.courier.UpdateStatus(ctx, orderID, status); err != nil {
		logger.Get().Error("Failed to update courier task status",
			zap.String("order_id", orderID),
			zap.String("status", string(status)),
			zap.Error(err),
		)
	}
}

func (p *Propagator) removeTask(ctx context.Context, orderID string) {
	if _, err := p.courier.Remove(ctx, orderID); err != nil {
		logger.Get().Error("Failed to remove courier task",
			zap.String("order_id", orderID),
			zap.Error(err),
		)
	}
}

func (p *Propagator) removeConfirmedTask(ctx context.Context, orderID string) {
	existing, err := p.courier.Get(ctx, orderID)
	if err != nil {
		logger.Get().Error("Failed to read courier task before removal",
			zap.String("order_id", orderID),
			zap.Error(err),
		)
		return
	}
	if existing == nil || existing.Status != domain.TaskStatusConfirmed {
		return
	}
	p.removeTask(ctx, orderID)
}
