package handler

import (
	"errors"

	"pharma-sync/internal/features/orders/ports"
	"pharma-sync/internal/features/orders/service"

	"github.com/gofiber/fiber/v2"
)

// OrderHandler handles HTTP requests for the role views and the
// status-changing actions.
type OrderHandler struct {
	syncService   ports.OrderSyncService
	actionService ports.OrderActionService
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(syncService ports.OrderSyncService, actionService ports.OrderActionService) *OrderHandler {
	return &OrderHandler{
		syncService:   syncService,
		actionService: actionService,
	}
}

// ErrorResponse represents an error response with Ray ID.
type ErrorResponse struct {
	// Message is the error description.
	Message string `json:"message"`
	// RayID is the unique request identifier for tracing.
	RayID string `json:"ray_id,omitempty"`
}

// FailRequest carries the reason for a failed delivery.
type FailRequest struct {
	Reason string `json:"reason"`
}

// GetCustomerOrders godoc
// @Summary Get the customer's orders
// @Description Refreshes the customer view from the backend, reconciles it against the cached copy and returns it newest first. Falls back to an error when the backend is unreachable.
// @Tags orders
// @Produce json
// @Success 200 {array} domain.Order
// @Failure 502 {object} ErrorResponse
// @Router /orders/customer [get]
func (h *OrderHandler) GetCustomerOrders(c *fiber.Ctx) error {
	orders, err := h.syncService.CustomerOrders(c.Context())
	if err != nil {
		return h.errorJSON(c, err)
	}
	return c.JSON(orders)
}

// GetPharmacyOrders godoc
// @Summary Get the pharmacy's incoming orders
// @Description Refreshes the pharmacy view from the backend, reconciles it against the cached copy and returns it newest first.
// @Tags orders
// @Produce json
// @Success 200 {array} domain.Order
// @Failure 502 {object} ErrorResponse
// @Router /orders/pharmacy [get]
func (h *OrderHandler) GetPharmacyOrders(c *fiber.Ctx) error {
	orders, err := h.syncService.PharmacyOrders(c.Context())
	if err != nil {
		return h.errorJSON(c, err)
	}
	return c.JSON(orders)
}

// GetCourierTasks godoc
// @Summary Get the courier's available delivery tasks
// @Description Returns the tasks open for pick-up, closest first.
// @Tags orders
// @Produce json
// @Success 200 {array} domain.DeliveryTask
// @Failure 500 {object} ErrorResponse
// @Router /orders/courier [get]
func (h *OrderHandler) GetCourierTasks(c *fiber.Ctx) error {
	tasks, err := h.syncService.CourierTasks(c.Context())
	if err != nil {
		return h.errorJSON(c, err)
	}
	return c.JSON(tasks)
}

// AcceptOrder godoc
// @Summary Accept an order (pharmacy)
// @Description Confirms preparation of the order and opens it for courier pick-up.
// @Tags actions
// @Produce json
// @Param id path string true "Order ID"
// @Success 200 {object} domain.Order
// @Failure 404 {object} ErrorResponse
// @Failure 502 {object} ErrorResponse
// @Router /orders/{id}/accept [post]
func (h *OrderHandler) AcceptOrder(c *fiber.Ctx) error {
	order, err := h.actionService.Accept(c.Context(), c.Params("id"))
	if err != nil {
		return h.errorJSON(c, err)
	}
	return c.JSON(order)
}

// RejectOrder godoc
// @Summary Reject an order (pharmacy)
// @Description Declines the order and withdraws any open delivery task.
// @Tags actions
// @Produce json
// @Param id path string true "Order ID"
// @Success 200 {object} domain.Order
// @Failure 404 {object} ErrorResponse
// @Failure 502 {object} ErrorResponse
// @Router /orders/{id}/reject [post]
func (h *OrderHandler) RejectOrder(c *fiber.Ctx) error {
	order, err := h.actionService.Reject(c.Context(), c.Params("id"))
	if err != nil {
		return h.errorJSON(c, err)
	}
	return c.JSON(order)
}

// AssignTask godoc
// @Summary Take a delivery task (courier)
// @Description Claims the task for the courier. The backend order stays accepted; only the local views change.
// @Tags actions
// @Produce json
// @Param id path string true "Order ID"
// @Success 200 {object} domain.Order
// @Failure 404 {object} ErrorResponse
// @Failure 502 {object} ErrorResponse
// @Router /orders/{id}/assign [post]
func (h *OrderHandler) AssignTask(c *fiber.Ctx) error {
	order, err := h.actionService.Assign(c.Context(), c.Params("id"))
	if err != nil {
		return h.errorJSON(c, err)
	}
	return c.JSON(order)
}

// PickupOrder godoc
// @Summary Mark an order as picked up (courier)
// @Description Marks the order as collected from the pharmacy and in transit.
// @Tags actions
// @Produce json
// @Param id path string true "Order ID"
// @Success 200 {object} domain.Order
// @Failure 404 {object} ErrorResponse
// @Failure 502 {object} ErrorResponse
// @Router /orders/{id}/pickup [post]
func (h *OrderHandler) PickupOrder(c *fiber.Ctx) error {
	order, err := h.actionService.Pickup(c.Context(), c.Params("id"))
	if err != nil {
		return h.errorJSON(c, err)
	}
	return c.JSON(order)
}

// DeliverOrder godoc
// @Summary Mark an order as delivered (courier)
// @Description Marks the order as handed to the customer.
// @Tags actions
// @Produce json
// @Param id path string true "Order ID"
// @Success 200 {object} domain.Order
// @Failure 404 {object} ErrorResponse
// @Failure 502 {object} ErrorResponse
// @Router /orders/{id}/deliver [post]
func (h *OrderHandler) DeliverOrder(c *fiber.Ctx) error {
	order, err := h.actionService.Deliver(c.Context(), c.Params("id"))
	if err != nil {
		return h.errorJSON(c, err)
	}
	return c.JSON(order)
}

// FailOrder godoc
// @Summary Mark a delivery as failed (courier)
// @Description Marks the delivery as not completed, with a reason.
// @Tags actions
// @Accept json
// @Produce json
// @Param id path string true "Order ID"
// @Param request body FailRequest true "Failure reason"
// @Success 200 {object} domain.Order
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 502 {object} ErrorResponse
// @Router /orders/{id}/fail [post]
func (h *OrderHandler) FailOrder(c *fiber.Ctx) error {
	var req FailRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Message: "invalid request body",
			RayID:   c.Locals("requestid").(string),
		})
	}
	if req.Reason == "" {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Message: "reason is required",
			RayID:   c.Locals("requestid").(string),
		})
	}

	order, err := h.actionService.Fail(c.Context(), c.Params("id"), req.Reason)
	if err != nil {
		return h.errorJSON(c, err)
	}
	return c.JSON(order)
}

// DropTask godoc
// @Summary Drop a delivery task (courier)
// @Description Removes the task from the courier's list without touching the order.
// @Tags actions
// @Produce json
// @Param id path string true "Order ID"
// @Success 204
// @Failure 404 {object} ErrorResponse
// @Router /orders/{id}/task [delete]
func (h *OrderHandler) DropTask(c *fiber.Ctx) error {
	if err := h.actionService.DropTask(c.Context(), c.Params("id")); err != nil {
		return h.errorJSON(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// errorJSON maps service errors to HTTP status codes.
func (h *OrderHandler) errorJSON(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	switch {
	case errors.Is(err, ports.ErrNotFound):
		status = fiber.StatusNotFound
	case errors.Is(err, service.ErrBackendUnavailable):
		status = fiber.StatusBadGateway
	}

	return c.Status(status).JSON(ErrorResponse{
		Message: err.Error(),
		RayID:   c.Locals("requestid").(string),
	})
}
