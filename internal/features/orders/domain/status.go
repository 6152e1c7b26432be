package domain

import "strings"

// Status is the canonical order status used internally, independent of
// the vocabulary revision a backend response or cached record was
// written with.
type Status string

const (
	// StatusCreated indicates the order has been placed and not yet accepted.
	StatusCreated Status = "created"
	// StatusAccepted indicates the pharmacy confirmed preparation of the order.
	StatusAccepted Status = "accepted"
	// StatusInTransit indicates a courier picked up the order.
	StatusInTransit Status = "in_transit"
	// StatusDelivered indicates the order reached the customer.
	StatusDelivered Status = "delivered"
	// StatusNotDelivered indicates the courier could not complete the delivery.
	// Kept distinct from delivered for messaging, same progress step.
	StatusNotDelivered Status = "not_delivered"
	// StatusRejected indicates the pharmacy rejected or the customer cancelled the order.
	StatusRejected Status = "rejected"
)

// statusTable maps every known backend/cache vocabulary token to its
// canonical value. Tokens accumulated across backend revisions; the
// canonical values themselves are included because cached records are
// re-normalized on every merge.
var statusTable = map[string]Status{
	"pendiente": StatusCreated,
	"creado":    StatusCreated,
	"created":   StatusCreated,

	"aceptado":       StatusAccepted,
	"aprobado":       StatusAccepted,
	"confirmado":     StatusAccepted,
	"en_preparacion": StatusAccepted,
	"preparando":     StatusAccepted,
	"asignado":       StatusAccepted,
	"accepted":       StatusAccepted,

	"en camino":  StatusInTransit,
	"en_camino":  StatusInTransit,
	"recogido":   StatusInTransit,
	"retirado":   StatusInTransit,
	"enviado":    StatusInTransit,
	"in_transit": StatusInTransit,

	"entregado":  StatusDelivered,
	"recibido":   StatusDelivered,
	"completado": StatusDelivered,
	"delivered":  StatusDelivered,

	"no_entregado":  StatusNotDelivered,
	"no entregado":  StatusNotDelivered,
	"not_delivered": StatusNotDelivered,

	"cancelado": StatusRejected,
	"rechazado": StatusRejected,
	"rejected":  StatusRejected,
}

// Normalize maps an arbitrary raw status token to its canonical Status.
// It is total: unknown or empty input falls back to StatusCreated so an
// unrecognized token never blocks rendering a view.
func Normalize(raw string) Status {
	token := strings.ToLower(strings.TrimSpace(raw))
	if canonical, ok := statusTable[token]; ok {
		return canonical
	}
	return StatusCreated
}

// Rank returns the monotonic progress rank of the status, used to
// decide precedence when two sources disagree. Delivered and
// not_delivered share the final step. Rejected is an absorbing state
// decided before ranks are compared; its rank is only meaningful for
// progress display.
func (s Status) Rank() int {
	switch s {
	case StatusAccepted:
		return 1
	case StatusInTransit:
		return 2
	case StatusDelivered, StatusNotDelivered, StatusRejected:
		return 3
	default:
		return 0
	}
}

// IsAbsorbing reports whether the status, once observed, is
// authoritative over any rank comparison. A rejected order must never
// be un-rejected by a stale fetch.
func (s Status) IsAbsorbing() bool {
	return s == StatusRejected
}

// IsTerminal reports whether the order has finished its lifecycle.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusDelivered, StatusNotDelivered, StatusRejected:
		return true
	}
	return false
}
