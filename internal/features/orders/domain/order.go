package domain

import (
	"sort"
	"strings"
	"time"
)

// PrescriptionStatus represents the review state of a prescription
// attached to a line item.
type PrescriptionStatus string

const (
	PrescriptionNotRequired PrescriptionStatus = "not_required"
	PrescriptionPending     PrescriptionStatus = "pending"
	PrescriptionApproved    PrescriptionStatus = "approved"
	PrescriptionRejected    PrescriptionStatus = "rejected"
)

// Order represents one customer purchase request as seen by a role view.
type Order struct {
	// ID is the opaque stable identifier, compared as string.
	ID string `json:"id"`
	// Status is the canonical status, mutated only through merge/propagation.
	Status Status `json:"status"`
	// DeliveryAddress is where the courier hands the order over.
	DeliveryAddress string `json:"delivery_address"`
	// LineItems are the products in the order.
	LineItems []LineItem `json:"line_items"`
	// CustomerName, CustomerEmail, PharmacyName and PharmacyAddress are
	// display fields, propagated opportunistically between views.
	CustomerName    string `json:"customer_name"`
	CustomerEmail   string `json:"customer_email"`
	PharmacyName    string `json:"pharmacy_name"`
	PharmacyAddress string `json:"pharmacy_address"`
	// CreatedAt drives newest-first ordering of the views.
	CreatedAt time.Time `json:"created_at"`
	// FailureReason is set when the status is not_delivered.
	FailureReason string `json:"failure_reason,omitempty"`
}

// LineItem represents an individual product within an order.
type LineItem struct {
	// ProductName is the descriptive name of the product.
	ProductName string `json:"product_name"`
	// Quantity is the number of units purchased.
	Quantity int `json:"quantity"`
	// UnitPrice is the price per unit.
	UnitPrice float64 `json:"unit_price"`
	// RequiresPrescription marks products that need an approved prescription.
	RequiresPrescription bool `json:"requires_prescription"`
	// PrescriptionStatus is the review state of the attached prescription.
	PrescriptionStatus PrescriptionStatus `json:"prescription_status"`
}

// ItemsSummary renders the line items as a single display string for
// the courier task list.
func (o Order) ItemsSummary() string {
	if len(o.LineItems) == 0 {
		return ""
	}
	names := make([]string, 0, len(o.LineItems))
	for _, item := range o.LineItems {
		names = append(names, item.ProductName)
	}
	return strings.Join(names, " + ")
}

// RequiresPrescription reports whether any line item needs a prescription.
func (o Order) RequiresPrescription() bool {
	for _, item := range o.LineItems {
		if item.RequiresPrescription {
			return true
		}
	}
	return false
}

// SortNewestFirst orders the list by creation time, newest first.
func SortNewestFirst(orders []Order) {
	sort.SliceStable(orders, func(i, j int) bool {
		return orders[i].CreatedAt.After(orders[j].CreatedAt)
	})
}

// TaskStatus represents the courier-side state of a delivery task.
type TaskStatus string

const (
	// TaskStatusConfirmed means the pharmacy accepted the order and it is
	// available for pick-up by any courier.
	TaskStatusConfirmed TaskStatus = "confirmed"
	// TaskStatusAssigned means a courier took the task.
	TaskStatusAssigned TaskStatus = "assigned"
	// TaskStatusInTransit means the courier picked the order up from the pharmacy.
	TaskStatusInTransit TaskStatus = "in_transit"
	// TaskStatusDelivered and TaskStatusNotDelivered are terminal; the
	// record is retained for history but excluded from available queries.
	TaskStatusDelivered    TaskStatus = "delivered"
	TaskStatusNotDelivered TaskStatus = "not_delivered"
)

// IsTerminal reports whether the task finished its lifecycle.
func (s TaskStatus) IsTerminal() bool {
	return s == TaskStatusDelivered || s == TaskStatusNotDelivered
}

// DefaultTaskDistance is the placeholder distance (in km) used when no
// real distance is known. Distance computation belongs to an external
// geolocation collaborator.
const DefaultTaskDistance = 3.2

// DeliveryTask is the lightweight courier-visible record for an
// accepted order.
type DeliveryTask struct {
	// ID matches the order ID the task was created from.
	ID string `json:"id"`
	// PharmacyName and PharmacyAddress locate the pick-up point.
	PharmacyName    string `json:"pharmacy_name"`
	PharmacyAddress string `json:"pharmacy_address"`
	// CustomerAddress is the drop-off point.
	CustomerAddress string `json:"customer_address"`
	// ItemsSummary is a display string of the ordered products.
	ItemsSummary string `json:"items_summary"`
	// RequiresPrescription marks tasks where the courier must collect a prescription.
	RequiresPrescription bool `json:"requires_prescription"`
	// Status is the courier-side task state.
	Status TaskStatus `json:"status"`
	// Distance is the pick-up distance in km.
	Distance float64 `json:"distance"`
	// CreatedAt is when the underlying order was created.
	CreatedAt time.Time `json:"created_at"`
}

// SortByDistance orders tasks by pick-up distance, closest first.
func SortByDistance(tasks []DeliveryTask) {
	sort.SliceStable(tasks, func(i, j int) bool {
		return tasks[i].Distance < tasks[j].Distance
	})
}
