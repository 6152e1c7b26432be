package adapters

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"pharma-sync/internal/core/config"
	"pharma-sync/internal/features/orders/domain"
	"pharma-sync/internal/features/orders/ports"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestBackendAdapter_ListOrders_Success verifies fetching and mapping of
// a snake_case order list.
func TestBackendAdapter_ListOrders_Success(t *testing.T) {
	mockResponse := `[
		{
			"id": 7,
			"estado": "aceptado",
			"direccion_entrega": "Calle 50 #800",
			"usuario_nombre": "Ana Perez",
			"usuario_email": "ana@example.com",
			"farmacia_nombre": "Farmacia Central",
			"farmacia_direccion": "Av. Siempre Viva 742",
			"fecha": "2025-03-10T12:00:00",
			"detalles": [
				{
					"producto_nombre": "Ibuprofeno",
					"cantidad": 2,
					"precio_unitario": "4.50",
					"requiere_receta": false,
					"estado_receta": "no_requerida"
				},
				{
					"producto_nombre": "Amoxicilina",
					"cantidad": 1,
					"precio_unitario": 8.2,
					"requiere_receta": true,
					"estado_receta": "pendiente"
				}
			]
		}
	]`

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/pedidos/", r.URL.Path)
		assert.Equal(t, "Bearer token_test", r.Header.Get("Authorization"))

		w.WriteHeader(http.StatusOK)
		w.Write([]byte(mockResponse))
	}))
	defer server.Close()

	adapter := NewBackendAdapter(config.BackendConfig{URL: server.URL, Token: "token_test"})
	orders, err := adapter.ListOrders(context.Background())

	require.NoError(t, err)
	require.Len(t, orders, 1)

	order := orders[0]
	assert.Equal(t, "7", order.ID)
	assert.Equal(t, domain.StatusAccepted, order.Status)
	assert.Equal(t, "Calle 50 #800", order.DeliveryAddress)
	assert.Equal(t, "Ana Perez", order.CustomerName)
	assert.Equal(t, "ana@example.com", order.CustomerEmail)
	assert.Equal(t, "Farmacia Central", order.PharmacyName)
	assert.Equal(t, "Av. Siempre Viva 742", order.PharmacyAddress)

	expectedDate, _ := time.Parse("2006-01-02T15:04:05", "2025-03-10T12:00:00")
	assert.True(t, expectedDate.Equal(order.CreatedAt), "Date should match")

	require.Len(t, order.LineItems, 2)
	assert.Equal(t, "Ibuprofeno", order.LineItems[0].ProductName)
	assert.Equal(t, 4.5, order.LineItems[0].UnitPrice)
	assert.Equal(t, domain.PrescriptionNotRequired, order.LineItems[0].PrescriptionStatus)
	assert.True(t, order.LineItems[1].RequiresPrescription)
	assert.Equal(t, domain.PrescriptionPending, order.LineItems[1].PrescriptionStatus)
}

// TestBackendAdapter_ListOrders_CamelCaseRevision verifies the mixed-case
// vocabulary of older backend revisions is accepted.
func TestBackendAdapter_ListOrders_CamelCaseRevision(t *testing.T) {
	mockResponse := `[
		{
			"id": "12",
			"status": "EN CAMINO",
			"direccionEntrega": "Calle 5",
			"clienteNombre": "Luis",
			"farmaciaNombre": "Farmacia Sur",
			"farmaciaDireccion": "Calle 5 bis",
			"createdAt": "2025-03-11T09:30:00Z",
			"productoNombre": "Paracetamol 500mg",
			"requiereReceta": true
		}
	]`

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(mockResponse))
	}))
	defer server.Close()

	adapter := NewBackendAdapter(config.BackendConfig{URL: server.URL, Token: "t"})
	orders, err := adapter.ListOrders(context.Background())

	require.NoError(t, err)
	require.Len(t, orders, 1)

	order := orders[0]
	assert.Equal(t, "12", order.ID)
	assert.Equal(t, domain.StatusInTransit, order.Status)
	assert.Equal(t, "Calle 5", order.DeliveryAddress)
	assert.Equal(t, "Luis", order.CustomerName)
	assert.Equal(t, "Farmacia Sur", order.PharmacyName)

	require.Len(t, order.LineItems, 1)
	assert.Equal(t, "Paracetamol 500mg", order.LineItems[0].ProductName)
	assert.Equal(t, 1, order.LineItems[0].Quantity)
	assert.True(t, order.LineItems[0].RequiresPrescription)
}

// TestBackendAdapter_ListOrders_RetriesTransientFailures verifies that a
// 5xx answer is retried before succeeding.
func TestBackendAdapter_ListOrders_RetriesTransientFailures(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`[]`))
	}))
	defer server.Close()

	adapter := NewBackendAdapter(config.BackendConfig{URL: server.URL, Token: "t"})
	orders, err := adapter.ListOrders(context.Background())

	require.NoError(t, err)
	assert.Empty(t, orders)
	assert.Equal(t, int32(2), calls.Load())
}

// TestBackendAdapter_GetOrder_NotFound verifies 404 mapping.
func TestBackendAdapter_GetOrder_NotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	adapter := NewBackendAdapter(config.BackendConfig{URL: server.URL, Token: "t"})
	order, err := adapter.GetOrder(context.Background(), "999")

	require.Error(t, err)
	assert.ErrorIs(t, err, ports.ErrNotFound)
	assert.Nil(t, order)
}

// TestBackendAdapter_UpdateStatus_ReturnsOrder verifies the updated order
// is mapped when the backend answers with a body.
func TestBackendAdapter_UpdateStatus_ReturnsOrder(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		assert.Equal(t, "/pedidos/7/estado/", r.URL.Path)
		assert.NotEmpty(t, r.Header.Get("X-Idempotency-Key"))

		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"id": 7, "estado": "aprobado"}`))
	}))
	defer server.Close()

	adapter := NewBackendAdapter(config.BackendConfig{URL: server.URL, Token: "t"})
	order, err := adapter.UpdateStatus(context.Background(), "7", "aprobado", "")

	require.NoError(t, err)
	require.NotNil(t, order)
	assert.Equal(t, "7", order.ID)
	assert.Equal(t, domain.StatusAccepted, order.Status)
}

// TestBackendAdapter_UpdateStatus_EmptyBody verifies that an empty answer
// signals the caller to re-fetch.
func TestBackendAdapter_UpdateStatus_EmptyBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	adapter := NewBackendAdapter(config.BackendConfig{URL: server.URL, Token: "t"})
	order, err := adapter.UpdateStatus(context.Background(), "7", "aprobado", "")

	require.NoError(t, err)
	assert.Nil(t, order)
}

// TestBackendAdapter_UpdateStatus_FailureReason verifies the failure
// reason is sent with the status.
func TestBackendAdapter_UpdateStatus_FailureReason(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body := make([]byte, r.ContentLength)
		r.Body.Read(body)
		assert.Contains(t, string(body), `"estado":"no_entregado"`)
		assert.Contains(t, string(body), `"motivo_no_entrega":"nobody home"`)

		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"id": 7, "estado": "no_entregado", "motivo_no_entrega": "nobody home"}`))
	}))
	defer server.Close()

	adapter := NewBackendAdapter(config.BackendConfig{URL: server.URL, Token: "t"})
	order, err := adapter.UpdateStatus(context.Background(), "7", "no_entregado", "nobody home")

	require.NoError(t, err)
	require.NotNil(t, order)
	assert.Equal(t, domain.StatusNotDelivered, order.Status)
	assert.Equal(t, "nobody home", order.FailureReason)
}

// TestBackendAdapter_HealthCheck verifies reachability checking.
func TestBackendAdapter_HealthCheck(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte(`[]`))
		}))
		defer server.Close()

		adapter := NewBackendAdapter(config.BackendConfig{URL: server.URL, Token: "t"})
		assert.NoError(t, adapter.HealthCheck(context.Background()))
	})

	t.Run("Unauthorized", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		}))
		defer server.Close()

		adapter := NewBackendAdapter(config.BackendConfig{URL: server.URL, Token: "bad"})
		assert.Error(t, adapter.HealthCheck(context.Background()))
	})
}
