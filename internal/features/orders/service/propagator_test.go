package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"pharma-sync/internal/core/cache"
	"pharma-sync/internal/features/orders/adapters"
	"pharma-sync/internal/features/orders/domain"
	"pharma-sync/internal/features/orders/ports"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newPropagatorFixture(t *testing.T) (*Propagator, ports.OrderStore, ports.OrderStore, ports.TaskStore) {
	t.Helper()
	mr := miniredis.RunT(t)

	c, err := cache.NewRedisAdapter("redis://" + mr.Addr())
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })

	customer := adapters.NewCustomerOrderStore(c, "user-1")
	pharmacy := adapters.NewPharmacyOrderStore(c)
	courier := adapters.NewCourierTaskStore(c)

	return NewPropagator(customer, pharmacy, courier), customer, pharmacy, courier
}

func acceptedInfo() Propagation {
	return Propagation{
		PharmacyName:         "Farmacia Sur",
		PharmacyAddress:      "Calle 5",
		CustomerAddress:      "Av. Norte 12",
		ItemsSummary:         "Ibuprofeno + Paracetamol 500mg",
		RequiresPrescription: true,
		CreatedAt:            time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC),
	}
}

// TestPropagator_AcceptOpensCourierTask verifies that a pharmacy
// acceptance creates exactly one available task carrying the display
// data and the placeholder distance.
func TestPropagator_AcceptOpensCourierTask(t *testing.T) {
	p, _, _, courier := newPropagatorFixture(t)
	ctx := context.Background()

	p.Propagate(ctx, "7", "aprobado", acceptedInfo())

	available, err := courier.Available(ctx)
	require.NoError(t, err)
	require.Len(t, available, 1)

	task := available[0]
	assert.Equal(t, "7", task.ID)
	assert.Equal(t, "Farmacia Sur", task.PharmacyName)
	assert.Equal(t, "Calle 5", task.PharmacyAddress)
	assert.Equal(t, "Av. Norte 12", task.CustomerAddress)
	assert.Equal(t, "Ibuprofeno + Paracetamol 500mg", task.ItemsSummary)
	assert.True(t, task.RequiresPrescription)
	assert.Equal(t, domain.TaskStatusConfirmed, task.Status)
	assert.Equal(t, domain.DefaultTaskDistance, task.Distance)
}

// TestPropagator_AcceptTwiceIsIdempotent verifies re-acceptance neither
// duplicates the task nor resets its distance.
func TestPropagator_AcceptTwiceIsIdempotent(t *testing.T) {
	p, _, _, courier := newPropagatorFixture(t)
	ctx := context.Background()

	require.NoError(t, courier.Upsert(ctx, domain.DeliveryTask{
		ID: "7", Status: domain.TaskStatusConfirmed, Distance: 8.9,
	}))

	p.Propagate(ctx, "7", "aprobado", acceptedInfo())

	all, err := courier.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, 8.9, all[0].Distance, "existing distance should be carried over")
}

// TestPropagator_AssignDoesNotReopenTask verifies a courier taking the
// task moves it to assigned instead of re-listing it as available.
func TestPropagator_AssignDoesNotReopenTask(t *testing.T) {
	p, _, _, courier := newPropagatorFixture(t)
	ctx := context.Background()

	p.Propagate(ctx, "7", "aprobado", acceptedInfo())
	p.Propagate(ctx, "7", "asignado", acceptedInfo())

	available, err := courier.Available(ctx)
	require.NoError(t, err)
	assert.Empty(t, available)

	task, err := courier.Get(ctx, "7")
	require.NoError(t, err)
	require.NotNil(t, task)
	assert.Equal(t, domain.TaskStatusAssigned, task.Status)
}

// TestPropagator_RejectRemovesTask verifies a rejection takes the task
// off the courier's list entirely.
func TestPropagator_RejectRemovesTask(t *testing.T) {
	p, _, _, courier := newPropagatorFixture(t)
	ctx := context.Background()

	p.Propagate(ctx, "7", "aprobado", acceptedInfo())
	p.Propagate(ctx, "7", "rechazado", acceptedInfo())

	task, err := courier.Get(ctx, "7")
	require.NoError(t, err)
	assert.Nil(t, task)
}

// TestPropagator_BackToPending verifies an order returning to pending
// removes an unclaimed task but leaves a claimed one alone.
func TestPropagator_BackToPending(t *testing.T) {
	p, _, _, courier := newPropagatorFixture(t)
	ctx := context.Background()

	p.Propagate(ctx, "7", "aprobado", acceptedInfo())
	p.Propagate(ctx, "7", "pendiente", acceptedInfo())

	task, err := courier.Get(ctx, "7")
	require.NoError(t, err)
	assert.Nil(t, task, "unclaimed task should be withdrawn")

	p.Propagate(ctx, "8", "aprobado", acceptedInfo())
	p.Propagate(ctx, "8", "asignado", acceptedInfo())
	p.Propagate(ctx, "8", "pendiente", acceptedInfo())

	task, err = courier.Get(ctx, "8")
	require.NoError(t, err)
	require.NotNil(t, task, "claimed task stays with its courier")
	assert.Equal(t, domain.TaskStatusAssigned, task.Status)
}

// TestPropagator_DeliveredKeepsTaskForHistory verifies terminal outcomes
// mark the task instead of deleting it.
func TestPropagator_DeliveredKeepsTaskForHistory(t *testing.T) {
	p, _, _, courier := newPropagatorFixture(t)
	ctx := context.Background()

	p.Propagate(ctx, "7", "aprobado", acceptedInfo())
	p.Propagate(ctx, "7", "asignado", acceptedInfo())
	p.Propagate(ctx, "7", "en_camino", acceptedInfo())
	p.Propagate(ctx, "7", "entregado", acceptedInfo())

	available, err := courier.Available(ctx)
	require.NoError(t, err)
	assert.Empty(t, available)

	task, err := courier.Get(ctx, "7")
	require.NoError(t, err)
	require.NotNil(t, task)
	assert.Equal(t, domain.TaskStatusDelivered, task.Status)
}

// TestPropagator_UpdatesOrderViews verifies the customer and pharmacy
// records pick up the canonical status, and that a record absent from
// one view never gets created through propagation.
func TestPropagator_UpdatesOrderViews(t *testing.T) {
	p, customer, pharmacy, _ := newPropagatorFixture(t)
	ctx := context.Background()

	require.NoError(t, customer.Replace(ctx, []domain.Order{{ID: "7", Status: domain.StatusCreated}}))
	// Pharmacy view not hydrated yet.

	p.Propagate(ctx, "7", "aprobado", acceptedInfo())

	orders, err := customer.List(ctx)
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, domain.StatusAccepted, orders[0].Status)

	orders, err = pharmacy.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, orders, "propagation must not create records")
}

// TestPropagator_FailureReasonReachesOrderViews verifies the reason for
// a failed delivery lands in the order records.
func TestPropagator_FailureReasonReachesOrderViews(t *testing.T) {
	p, customer, _, _ := newPropagatorFixture(t)
	ctx := context.Background()

	require.NoError(t, customer.Replace(ctx, []domain.Order{{ID: "7", Status: domain.StatusInTransit}}))

	info := acceptedInfo()
	info.FailureReason = "nobody home"
	p.Propagate(ctx, "7", "no_entregado", info)

	orders, err := customer.List(ctx)
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, domain.StatusNotDelivered, orders[0].Status)
	assert.Equal(t, "nobody home", orders[0].FailureReason)
}

// TestPropagator_OneFailingStoreDoesNotBlockOthers verifies propagation
// is best-effort across stores.
func TestPropagator_OneFailingStoreDoesNotBlockOthers(t *testing.T) {
	mr := miniredis.RunT(t)
	c, err := cache.NewRedisAdapter("redis://" + mr.Addr())
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })

	failing := new(MockOrderStore)
	failing.On("UpdateStatus", mock.Anything, "7", domain.StatusAccepted, "").
		Return(false, errors.New("redis: connection pool exhausted"))

	pharmacy := adapters.NewPharmacyOrderStore(c)
	courier := adapters.NewCourierTaskStore(c)
	ctx := context.Background()

	require.NoError(t, pharmacy.Replace(ctx, []domain.Order{{ID: "7", Status: domain.StatusCreated}}))

	p := NewPropagator(failing, pharmacy, courier)
	p.Propagate(ctx, "7", "aprobado", acceptedInfo())

	orders, err := pharmacy.List(ctx)
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, domain.StatusAccepted, orders[0].Status)

	available, err := courier.Available(ctx)
	require.NoError(t, err)
	assert.Len(t, available, 1)
	failing.AssertExpectations(t)
}
