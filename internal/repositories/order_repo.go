package repositories

import (
	"time"

	"github.com/Murega14/agrilink/internal/models"
)

// OrderRepository defines the interface for order data access.
type OrderRepository interface {
	Create(order *models.Order) error
	GetByID(id string) (*models.Order, error)
	ListByBuyer(buyerID string, page, perPage int) ([]models.Order, int64, error)
	ListFarmerOrders(farmerID string, page, perPage int) ([]models.FarmerOrder, int64, error)
	GetFarmerOrder(id string) (*models.FarmerOrder, error)
	UpdateStatus(id string, status models.OrderStatus, deliveredAt *time.Time) error
	UpdateFarmerOrderStatus(id string, status models.OrderStatus) error
	AddTracking(entry *models.OrderTracking) error
	ListTracking(orderID string) ([]models.OrderTracking, error)
	FarmerStats(farmerID string, since time.Time) (*models.FarmerStats, error)
}

// Store runs a unit of work against repositories that share one transaction.
// Returning an error from fn rolls every change back.
type Store interface {
	WithinTransaction(fn func(products ProductRepository, orders OrderRepository) error) error
}
