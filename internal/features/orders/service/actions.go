package service

import (
	"context"
	"fmt"

	"pharma-sync/internal/core/logger"
	"pharma-sync/internal/features/orders/domain"
	"pharma-sync/internal/features/orders/ports"

	"go.uber.org/zap"
)

// Raw status tokens the backend expects on status transitions. They
// predate the canonical vocabulary and must be sent verbatim.
const (
	rawAccepted     = "aprobado"
	rawRejected     = "rechazado"
	rawAssigned     = "asignado"
	rawInTransit    = "en_camino"
	rawDelivered    = "entregado"
	rawNotDelivered = "no_entregado"
)

// ActionService executes user-initiated status transitions: push the
// raw token to the backend, then fan the confirmed state out to the
// role caches so every view agrees before its next refresh.
type ActionService struct {
	provider   ports.OrderProvider
	propagator *Propagator
	courier    ports.TaskStore
}

// NewActionService creates a new ActionService.
func NewActionService(provider ports.OrderProvider, propagator *Propagator, courier ports.TaskStore) *ActionService {
	return &ActionService{
		provider:   provider,
		propagator: propagator,
		courier:    courier,
	}
}

// Accept confirms preparation of the order (pharmacy).
func (s *ActionService) Accept(ctx context.Context, orderID string) (*domain.Order, error) {
	return s.transition(ctx, orderID, rawAccepted, "")
}

// Reject declines the order (pharmacy).
func (s *ActionService) Reject(ctx context.Context, orderID string) (*domain.Order, error) {
	return s.transition(ctx, orderID, rawRejected, "")
}

// Assign takes the delivery task (courier). Assignment is a local
// concern: the backend keeps the order as accepted, so only the caches
// change hands.
func (s *ActionService) Assign(ctx context.Context, orderID string) (*domain.Order, error) {
	order, err := s.provider.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	s.propagator.Propagate(ctx, orderID, rawAssigned, PropagationFromOrder(*order))
	logger.Get().Info("Delivery task assigned",
		zap.String("order_id", orderID),
	)
	return order, nil
}

// Pickup marks the order as collected from the pharmacy (courier).
func (s *ActionService) Pickup(ctx context.Context, orderID string) (*domain.Order, error) {
	return s.transition(ctx, orderID, rawInTransit, "")
}

// Deliver marks the order as handed to the customer (courier).
func (s *ActionService) Deliver(ctx context.Context, orderID string) (*domain.Order, error) {
	return s.transition(ctx, orderID, rawDelivered, "")
}

// Fail marks the delivery as not completed, with a reason (courier).
func (s *ActionService) Fail(ctx context.Context, orderID, reason string) (*domain.Order, error) {
	return s.transition(ctx, orderID, rawNotDelivered, reason)
}

// DropTask removes an unwanted task from the courier's list. The order
// itself is untouched; another courier can still pick it up after the
// next refresh.
func (s *ActionService) DropTask(ctx context.Context, orderID string) error {
	removed, err := s.courier.Remove(ctx, orderID)
	if err != nil {
		return fmt.Errorf("service: failed to drop task: %w", err)
	}
	if !removed {
		return ports.ErrNotFound
	}
	return nil
}

// transition pushes the raw token to the backend and propagates the
// result. Some backend revisions answer the PATCH with an empty body;
// the order is re-fetched so the caller always gets the settled record.
func (s *ActionService) transition(ctx context.Context, orderID, rawStatus, failureReason string) (*domain.Order, error) {
	order, err := s.provider.UpdateStatus(ctx, orderID, rawStatus, failureReason)
	if err != nil {
		return nil, err
	}
	if order == nil {
		order, err = s.provider.GetOrder(ctx, orderID)
		if err != nil {
			return nil, fmt.Errorf("service: failed to re-fetch order after update: %w", err)
		}
	}

	info := PropagationFromOrder(*order)
	if info.FailureReason == "" {
		info.FailureReason = failureReason
	}
	s.propagator.Propagate(ctx, orderID, rawStatus, info)
	logger.Get().Info("Order status transition applied",
		zap.String("order_id", orderID),
		zap.String("raw_status", rawStatus),
		zap.String("status", string(order.Status)),
	)
	return order, nil
}
