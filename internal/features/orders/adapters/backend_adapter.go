package adapters

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"pharma-sync/internal/core/config"
	"pharma-sync/internal/core/httpclient"
	"pharma-sync/internal/core/logger"
	"pharma-sync/internal/features/orders/domain"
	"pharma-sync/internal/features/orders/ports"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"
	"go.uber.org/zap"
)

// BackendAdapter implements the OrderProvider interface against the
// pharmacy backend REST API. Responses vary across backend revisions
// between snake_case and camelCase field names; the adapter accepts
// both and coalesces.
type BackendAdapter struct {
	// client is the HTTP client used for API requests.
	client *http.Client
	// config holds the backend connection details.
	config config.BackendConfig
}

// NewBackendAdapter creates a new instance of BackendAdapter.
func NewBackendAdapter(cfg config.BackendConfig) *BackendAdapter {
	return &BackendAdapter{
		client: httpclient.NewClient(10 * time.Second),
		config: cfg,
	}
}

// ListOrders fetches the orders visible to the pharmacy.
func (a *BackendAdapter) ListOrders(ctx context.Context) ([]domain.Order, error) {
	return a.fetchList(ctx, "/pedidos/")
}

// ListCustomerOrders fetches the authenticated customer's orders.
func (a *BackendAdapter) ListCustomerOrders(ctx context.Context) ([]domain.Order, error) {
	return a.fetchList(ctx, "/pedidos/mis/")
}

// GetOrder fetches a single order by ID.
func (a *BackendAdapter) GetOrder(ctx context.Context, orderID string) (*domain.Order, error) {
	req, err := a.newRequest(ctx, http.MethodGet, fmt.Sprintf("/pedidos/%s/", orderID), nil)
	if err != nil {
		return nil, err
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%w: %s", ports.ErrNotFound, orderID)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("backend returned status: %d", resp.StatusCode)
	}

	var raw apiOrder
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	order := raw.toDomain()
	return &order, nil
}

// UpdateStatus pushes a raw status token to the backend. Some backend
// revisions answer with the updated order, others with an empty body;
// a nil order with nil error tells the caller to re-fetch. The request
// carries an idempotency key so a retried PATCH is applied once.
func (a *BackendAdapter) UpdateStatus(ctx context.Context, orderID, rawStatus, failureReason string) (*domain.Order, error) {
	payload := map[string]string{"estado": rawStatus}
	if failureReason != "" {
		payload["motivo_no_entrega"] = failureReason
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal status update: %w", err)
	}

	req, err := a.newRequest(ctx, http.MethodPatch, fmt.Sprintf("/pedidos/%s/estado/", orderID), bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Idempotency-Key", uuid.NewString())

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%w: %s", ports.ErrNotFound, orderID)
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return nil, fmt.Errorf("backend returned status: %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 || string(bytes.TrimSpace(data)) == "{}" {
		return nil, nil
	}

	var raw apiOrder
	if err := json.Unmarshal(data, &raw); err != nil {
		logger.Get().Warn("Unparseable status update response, caller should re-fetch",
			zap.String("order_id", orderID),
			zap.Error(err),
		)
		return nil, nil
	}

	order := raw.toDomain()
	return &order, nil
}

// HealthCheck verifies that the backend API is reachable and the token is valid.
func (a *BackendAdapter) HealthCheck(ctx context.Context) error {
	req, err := a.newRequest(ctx, http.MethodGet, "/pedidos/", nil)
	if err != nil {
		return fmt.Errorf("health check failed to create request: %w", err)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return fmt.Errorf("health check request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check failed with status: %d", resp.StatusCode)
	}

	return nil
}

// fetchList retrieves and maps an order list, retrying transient
// failures with exponential backoff before giving up.
func (a *BackendAdapter) fetchList(ctx context.Context, path string) ([]domain.Order, error) {
	var rawOrders []apiOrder

	backoff := retry.WithMaxRetries(3, retry.NewExponential(500*time.Millisecond))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		req, err := a.newRequest(ctx, http.MethodGet, path, nil)
		if err != nil {
			return err
		}

		resp, err := a.client.Do(req)
		if err != nil {
			return retry.RetryableError(fmt.Errorf("failed to execute request: %w", err))
		}
		defer resp.Body.Close()

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError {
			return retry.RetryableError(fmt.Errorf("backend returned status: %d", resp.StatusCode))
		}
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("backend returned status: %d", resp.StatusCode)
		}

		rawOrders = rawOrders[:0]
		if err := json.NewDecoder(resp.Body).Decode(&rawOrders); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	orders := make([]domain.Order, 0, len(rawOrders))
	for _, raw := range rawOrders {
		orders = append(orders, raw.toDomain())
	}
	return orders, nil
}

func (a *BackendAdapter) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	url := strings.TrimSuffix(a.config.URL, "/") + path
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+a.config.Token)
	return req, nil
}

// internal structs for mapping

// apiOrder represents the JSON structure of an order from the backend.
// Field pairs cover the snake_case and camelCase revisions of the API.
type apiOrder struct {
	ID flexID `json:"id"`

	Estado string `json:"estado"`
	Status string `json:"status"`

	DireccionEntrega    string `json:"direccion_entrega"`
	DireccionEntregaAlt string `json:"direccionEntrega"`

	UsuarioNombre  string `json:"usuario_nombre"`
	ClienteNombre  string `json:"clienteNombre"`
	UsuarioEmail   string `json:"usuario_email"`
	ClienteEmail   string `json:"cliente_email"`
	ClienteEmail2  string `json:"clienteEmail"`
	FarmaciaNombre string `json:"farmacia_nombre"`
	FarmaciaAlt    string `json:"farmaciaNombre"`
	FarmaciaDir    string `json:"farmacia_direccion"`
	FarmaciaDirAlt string `json:"farmaciaDireccion"`

	Fecha           apiTime `json:"fecha"`
	CreatedAt       apiTime `json:"createdAt"`
	MotivoNoEntrega string  `json:"motivo_no_entrega"`

	Detalles []apiOrderDetail `json:"detalles"`

	// Flat single-product fields used by older revisions without detalles.
	ProductoNombre    string  `json:"producto_nombre"`
	ProductoNombreAlt string  `json:"productoNombre"`
	Cantidad          int     `json:"cantidad"`
	PrecioUnitario    flexNum `json:"precio_unitario"`
	RequiereReceta    bool    `json:"requiere_receta"`
	RequiereRecetaAlt bool    `json:"requiereReceta"`
}

// apiOrderDetail represents one line item of an order.
type apiOrderDetail struct {
	ProductoNombre string  `json:"producto_nombre"`
	Cantidad       int     `json:"cantidad"`
	PrecioUnitario flexNum `json:"precio_unitario"`
	RequiereReceta bool    `json:"requiere_receta"`
	EstadoReceta   string  `json:"estado_receta"`
}

// toDomain converts a raw backend order into the domain entity.
func (r apiOrder) toDomain() domain.Order {
	items := make([]domain.LineItem, 0, len(r.Detalles))
	for _, d := range r.Detalles {
		items = append(items, domain.LineItem{
			ProductName:          d.ProductoNombre,
			Quantity:             d.Cantidad,
			UnitPrice:            float64(d.PrecioUnitario),
			RequiresPrescription: d.RequiereReceta,
			PrescriptionStatus:   mapPrescriptionStatus(d.EstadoReceta),
		})
	}

	if len(items) == 0 {
		if name := firstNonEmpty(r.ProductoNombre, r.ProductoNombreAlt); name != "" {
			quantity := r.Cantidad
			if quantity == 0 {
				quantity = 1
			}
			prescriptionStatus := domain.PrescriptionNotRequired
			if r.RequiereReceta || r.RequiereRecetaAlt {
				prescriptionStatus = domain.PrescriptionPending
			}
			items = append(items, domain.LineItem{
				ProductName:          name,
				Quantity:             quantity,
				UnitPrice:            float64(r.PrecioUnitario),
				RequiresPrescription: r.RequiereReceta || r.RequiereRecetaAlt,
				PrescriptionStatus:   prescriptionStatus,
			})
		}
	}

	createdAt := time.Time(r.Fecha)
	if createdAt.IsZero() {
		createdAt = time.Time(r.CreatedAt)
	}

	return domain.Order{
		ID:              string(r.ID),
		Status:          domain.Normalize(firstNonEmpty(r.Estado, r.Status)),
		DeliveryAddress: firstNonEmpty(r.DireccionEntrega, r.DireccionEntregaAlt),
		LineItems:       items,
		CustomerName:    firstNonEmpty(r.UsuarioNombre, r.ClienteNombre),
		CustomerEmail:   firstNonEmpty(r.UsuarioEmail, r.ClienteEmail, r.ClienteEmail2),
		PharmacyName:    firstNonEmpty(r.FarmaciaNombre, r.FarmaciaAlt),
		PharmacyAddress: firstNonEmpty(r.FarmaciaDir, r.FarmaciaDirAlt),
		CreatedAt:       createdAt,
		FailureReason:   r.MotivoNoEntrega,
	}
}

// mapPrescriptionStatus converts the backend prescription vocabulary.
func mapPrescriptionStatus(raw string) domain.PrescriptionStatus {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "pendiente", "pending":
		return domain.PrescriptionPending
	case "aprobada", "aprobado", "approved":
		return domain.PrescriptionApproved
	case "rechazada", "rechazado", "rejected":
		return domain.PrescriptionRejected
	default:
		return domain.PrescriptionNotRequired
	}
}

// firstNonEmpty returns the first non-empty string.
func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// flexID accepts an identifier serialized as a JSON number or string.
type flexID string

// UnmarshalJSON parses either representation into the string form.
func (f *flexID) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), "\"")
	if s == "null" {
		*f = ""
		return nil
	}
	*f = flexID(s)
	return nil
}

// flexNum accepts a decimal serialized as a JSON number or string,
// which the backend does for money fields depending on revision.
type flexNum float64

// UnmarshalJSON parses either representation.
func (f *flexNum) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), "\"")
	if s == "null" || s == "" {
		*f = 0
		return nil
	}
	var v float64
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return err
	}
	*f = flexNum(v)
	return nil
}

// apiTime handles the timestamp formats used across backend revisions.
type apiTime time.Time

// UnmarshalJSON parses RFC3339 or the bare ISO8601 variant.
func (t *apiTime) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), "\"")
	if s == "null" || s == "" {
		*t = apiTime(time.Time{})
		return nil
	}
	parsed, err := time.Parse(time.RFC3339, s)
	if err != nil {
		parsed, err = time.Parse("2006-01-02T15:04:05", s)
	}
	if err != nil {
		logger.Get().Warn("Failed to parse date", zap.String("date", s), zap.Error(err))
		return nil
	}
	*t = apiTime(parsed)
	return nil
}
