package handlers

import (
	"fmt"

	"github.com/Murega14/agrilink/internal/middleware"
	"github.com/Murega14/agrilink/internal/models"
	"github.com/Murega14/agrilink/internal/services"
	"github.com/Murega14/agrilink/internal/validation"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// OrderHandler handles HTTP requests for orders.
type OrderHandler struct {
	service  *services.OrderService
	validate *validator.Validate
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(service *services.OrderService) *OrderHandler {
	return &OrderHandler{
		service:  service,
		validate: validation.New(),
	}
}

// RegisterRoutes registers the order routes for buyers and farmers.
func (h *OrderHandler) RegisterRoutes(router fiber.Router, auth fiber.Handler) {
	buyerOnly := middleware.RoleRequired(models.RoleBuyer)
	farmerOnly := middleware.RoleRequired(models.RoleFarmer)

	router.Post("/orders/create", auth, buyerOnly, h.HandleCreateOrder)
	router.Get("/orders", auth, buyerOnly, h.HandleGetOrders)
	router.Get("/orders/:id", auth, buyerOnly, h.HandleGetOrderByID)
	router.Post("/orders/:id/cancel", auth, buyerOnly, h.HandleCancelOrder)
	router.Get("/orders/:id/tracking", auth, h.HandleGetTracking)

	router.Get("/farmer/orders", auth, farmerOnly, h.HandleGetFarmerOrders)
	router.Patch("/farmer/orders/:id/status", auth, farmerOnly, h.HandleUpdateFarmerOrderStatus)
}

// CreateOrderRequest represents the request body for checkout.
type CreateOrderRequest struct {
	Items []models.CartLine `json:"items" validate:"required,min=1,dive"`
}

// HandleCreateOrder converts the buyer's cart into an order.
func (h *OrderHandler) HandleCreateOrder(c *fiber.Ctx) error {
	var req CreateOrderRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidBody(c, err)
	}
	if err := h.validate.Struct(req); err != nil {
		return validationFailed(c, err)
	}

	order, err := h.service.PlaceOrder(middleware.AccountID(c), req.Items)
	if err != nil {
		return fail(c, "Order creation failed", err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Order created successfully",
		"order":   newOrderView(*order),
	})
}

// HandleGetOrders lists the buyer's orders, newest first.
func (h *OrderHandler) HandleGetOrders(c *fiber.Ctx) error {
	page, perPage, err := pageQuery(c)
	if err != nil {
		return fail(c, "Invalid pagination", err)
	}

	result, err := h.service.ListBuyerOrders(middleware.AccountID(c), page, perPage)
	if err != nil {
		return fail(c, "Could not retrieve orders", err)
	}
	return c.JSON(fiber.Map{
		"orders":      newOrderViews(result.Orders),
		"page":        result.Page,
		"per_page":    result.PerPage,
		"total_pages": result.TotalPages,
		"total_items": result.TotalItems,
	})
}

// HandleGetOrderByID retrieves one of the buyer's orders.
func (h *OrderHandler) HandleGetOrderByID(c *fiber.Ctx) error {
	order, err := h.service.GetBuyerOrder(middleware.AccountID(c), c.Params("id"))
	if err != nil {
		return fail(c, "Could not retrieve order", err)
	}
	return c.JSON(newOrderView(*order))
}

// HandleCancelOrder cancels one of the buyer's pending orders.
func (h *OrderHandler) HandleCancelOrder(c *fiber.Ctx) error {
	order, err := h.service.CancelOrder(middleware.AccountID(c), c.Params("id"))
	if err != nil {
		return fail(c, "Could not cancel order", err)
	}
	return c.JSON(fiber.Map{
		"message": "Order cancelled",
		"order":   newOrderView(*order),
	})
}

// HandleGetTracking returns the tracking history of an order.
func (h *OrderHandler) HandleGetTracking(c *fiber.Ctx) error {
	entries, err := h.service.Tracking(middleware.Role(c), middleware.AccountID(c), c.Params("id"))
	if err != nil {
		return fail(c, "Could not retrieve tracking", err)
	}
	return c.JSON(fiber.Map{
		"tracking": entries,
	})
}

// HandleGetFarmerOrders lists the farmer's sub-orders, newest first.
func (h *OrderHandler) HandleGetFarmerOrders(c *fiber.Ctx) error {
	page, perPage, err := pageQuery(c)
	if err != nil {
		return fail(c, "Invalid pagination", err)
	}

	result, err := h.service.ListFarmerOrders(middleware.AccountID(c), page, perPage)
	if err != nil {
		return fail(c, "Could not retrieve orders", err)
	}
	return c.JSON(fiber.Map{
		"orders":      newFarmerOrderViews(result.FarmerOrders),
		"page":        result.Page,
		"per_page":    result.PerPage,
		"total_pages": result.TotalPages,
		"total_items": result.TotalItems,
	})
}

// StatusRequest represents the request body for a sub-order status change.
type StatusRequest struct {
	Status models.OrderStatus `json:"status" validate:"required,oneof=pending delivered cancelled refunded"`
}

// HandleUpdateFarmerOrderStatus moves one of the farmer's sub-orders along.
func (h *OrderHandler) HandleUpdateFarmerOrderStatus(c *fiber.Ctx) error {
	farmerOrderID := c.Params("id")
	var req StatusRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidBody(c, err)
	}
	if err := h.validate.Struct(req); err != nil {
		return validationFailed(c, err)
	}

	fo, err := h.service.UpdateFarmerOrderStatus(middleware.AccountID(c), farmerOrderID, req.Status)
	if err != nil {
		return fail(c, "Order update failed", err)
	}
	return c.JSON(fiber.Map{
		"message": fmt.Sprintf("Order %s status updated successfully to %s", farmerOrderID, req.Status),
		"order":   newFarmerOrderView(*fo),
	})
}
