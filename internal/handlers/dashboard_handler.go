package handlers

import (
	"github.com/Murega14/agrilink/internal/middleware"
	"github.com/Murega14/agrilink/internal/models"
	"github.com/Murega14/agrilink/internal/services"

	"github.com/gofiber/fiber/v2"
)

// DashboardHandler serves the farmer dashboard widgets.
type DashboardHandler struct {
	orders   *services.OrderService
	products *services.ProductService
}

// NewDashboardHandler creates a new DashboardHandler.
func NewDashboardHandler(orders *services.OrderService, products *services.ProductService) *DashboardHandler {
	return &DashboardHandler{
		orders:   orders,
		products: products,
	}
}

// RegisterRoutes registers the dashboard routes.
func (h *DashboardHandler) RegisterRoutes(router fiber.Router, auth fiber.Handler) {
	dashboard := router.Group("/dashboard")
	farmerOnly := middleware.RoleRequired(models.RoleFarmer)

	dashboard.Get("/stats", auth, farmerOnly, h.HandleStats)
	dashboard.Get("/recent-orders", auth, farmerOnly, h.HandleRecentOrders)
	dashboard.Get("/available-products", auth, farmerOnly, h.HandleAvailableProducts)
}

// HandleStats returns the farmer's figures for the current month.
func (h *DashboardHandler) HandleStats(c *fiber.Ctx) error {
	stats, err := h.orders.FarmerStats(middleware.AccountID(c))
	if err != nil {
		return fail(c, "Could not retrieve stats", err)
	}
	return c.JSON(stats)
}

// HandleRecentOrders returns the farmer's latest sub-orders.
func (h *DashboardHandler) HandleRecentOrders(c *fiber.Ctx) error {
	farmerOrders, err := h.orders.RecentFarmerOrders(middleware.AccountID(c))
	if err != nil {
		return fail(c, "Could not retrieve recent orders", err)
	}
	return c.JSON(fiber.Map{
		"orders": newFarmerOrderViews(farmerOrders),
	})
}

// HandleAvailableProducts returns the farmer's products that are in stock.
func (h *DashboardHandler) HandleAvailableProducts(c *fiber.Ctx) error {
	products, err := h.products.ListAvailable(middleware.AccountID(c))
	if err != nil {
		return fail(c, "Could not retrieve products", err)
	}
	return c.JSON(fiber.Map{
		"products": newProductViews(products),
	})
}
