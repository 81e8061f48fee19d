package repositories

import (
	"errors"
	"fmt"
	"time"

	"github.com/Murega14/agrilink/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GORMOrderRepository is a GORM implementation of OrderRepository.
type GORMOrderRepository struct {
	db *gorm.DB
}

// NewGORMOrderRepository creates a new instance of GORMOrderRepository.
func NewGORMOrderRepository(db *gorm.DB) *GORMOrderRepository {
	return &GORMOrderRepository{
		db: db,
	}
}

func paginate(q *gorm.DB, page, perPage int) *gorm.DB {
	if perPage <= 0 {
		return q
	}
	if page < 1 {
		page = 1
	}
	return q.Offset((page - 1) * perPage).Limit(perPage)
}

func oldestFirst(db *gorm.DB) *gorm.DB {
	return db.Order("created_at ASC").Order("id")
}

// withDetail preloads everything the order views render.
func withDetail(q *gorm.DB) *gorm.DB {
	return q.
		Preload("Buyer").
		Preload("FarmerOrders", oldestFirst).
		Preload("FarmerOrders.Farmer").
		Preload("FarmerOrders.Items", oldestFirst).
		Preload("Items", oldestFirst).
		Preload("Tracking", oldestFirst)
}

// Create inserts an order graph: the order, its sub-orders, their items and
// any tracking rows. Children get their parent IDs filled in here.
func (r *GORMOrderRepository) Create(order *models.Order) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(order).Error; err != nil {
			return fmt.Errorf("failed to create order: %w", err)
		}
		for i := range order.FarmerOrders {
			fo := &order.FarmerOrders[i]
			fo.OrderID = order.ID
			if err := tx.Omit(clause.Associations).Create(fo).Error; err != nil {
				return fmt.Errorf("failed to create farmer order: %w", err)
			}
			for j := range fo.Items {
				fo.Items[j].OrderID = order.ID
				fo.Items[j].FarmerOrderID = fo.ID
			}
			if len(fo.Items) > 0 {
				if err := tx.Omit(clause.Associations).Create(&fo.Items).Error; err != nil {
					return fmt.Errorf("failed to create order items: %w", err)
				}
			}
		}
		for i := range order.Tracking {
			order.Tracking[i].OrderID = order.ID
		}
		if len(order.Tracking) > 0 {
			if err := tx.Create(&order.Tracking).Error; err != nil {
				return fmt.Errorf("failed to create order tracking: %w", err)
			}
		}
		return nil
	})
}

// GetByID retrieves an order with sub-orders, items and tracking.
func (r *GORMOrderRepository) GetByID(id string) (*models.Order, error) {
	var order models.Order
	if err := withDetail(r.db).First(&order, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("order %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get order by ID %s: %w", id, err)
	}
	return &order, nil
}

// ListByBuyer returns one page of a buyer's orders, newest first.
func (r *GORMOrderRepository) ListByBuyer(buyerID string, page, perPage int) ([]models.Order, int64, error) {
	var total int64
	if err := r.db.Model(&models.Order{}).Where("buyer_id = ?", buyerID).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count orders: %w", err)
	}

	var orders []models.Order
	q := withDetail(r.db).Where("buyer_id = ?", buyerID).Order("created_at DESC").Order("id")
	if err := paginate(q, page, perPage).Find(&orders).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list orders of buyer %s: %w", buyerID, err)
	}
	return orders, total, nil
}

// ListFarmerOrders returns one page of a farmer's sub-orders, newest first.
func (r *GORMOrderRepository) ListFarmerOrders(farmerID string, page, perPage int) ([]models.FarmerOrder, int64, error) {
	var total int64
	if err := r.db.Model(&models.FarmerOrder{}).Where("farmer_id = ?", farmerID).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count farmer orders: %w", err)
	}

	var farmerOrders []models.FarmerOrder
	q := r.db.
		Preload("Items", oldestFirst).
		Preload("Order").
		Preload("Order.Buyer").
		Where("farmer_id = ?", farmerID).
		Order("created_at DESC").Order("id")
	if err := paginate(q, page, perPage).Find(&farmerOrders).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list orders of farmer %s: %w", farmerID, err)
	}
	return farmerOrders, total, nil
}

// GetFarmerOrder retrieves one sub-order with its items and parent order.
func (r *GORMOrderRepository) GetFarmerOrder(id string) (*models.FarmerOrder, error) {
	var fo models.FarmerOrder
	if err := r.db.Preload("Items").Preload("Order").First(&fo, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("farmer order %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get farmer order %s: %w", id, err)
	}
	return &fo, nil
}

// UpdateStatus sets an order's status and, when given, its delivery date.
func (r *GORMOrderRepository) UpdateStatus(id string, status models.OrderStatus, deliveredAt *time.Time) error {
	values := map[string]interface{}{"status": status}
	if deliveredAt != nil {
		values["delivery_date"] = *deliveredAt
	}
	res := r.db.Model(&models.Order{}).Where("id = ?", id).Updates(values)
	if res.Error != nil {
		return fmt.Errorf("failed to update status of order %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("order %s: %w", id, ErrNotFound)
	}
	return nil
}

// UpdateFarmerOrderStatus sets a sub-order's status.
func (r *GORMOrderRepository) UpdateFarmerOrderStatus(id string, status models.OrderStatus) error {
	res := r.db.Model(&models.FarmerOrder{}).Where("id = ?", id).Update("status", status)
	if res.Error != nil {
		return fmt.Errorf("failed to update status of farmer order %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("farmer order %s: %w", id, ErrNotFound)
	}
	return nil
}

// AddTracking appends a history entry.
func (r *GORMOrderRepository) AddTracking(entry *models.OrderTracking) error {
	if err := r.db.Create(entry).Error; err != nil {
		return fmt.Errorf("failed to add tracking for order %s: %w", entry.OrderID, err)
	}
	return nil
}

// ListTracking returns an order's history, oldest first.
func (r *GORMOrderRepository) ListTracking(orderID string) ([]models.OrderTracking, error) {
	var entries []models.OrderTracking
	if err := oldestFirst(r.db).Where("order_id = ?", orderID).Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("failed to list tracking for order %s: %w", orderID, err)
	}
	return entries, nil
}

// FarmerStats aggregates dashboard figures for sub-orders created since the given time.
func (r *GORMOrderRepository) FarmerStats(farmerID string, since time.Time) (*models.FarmerStats, error) {
	var stats models.FarmerStats
	excluded := []models.OrderStatus{models.OrderCancelled, models.OrderRefunded}

	if err := r.db.Model(&models.OrderItem{}).
		Select("COALESCE(SUM(order_items.quantity), 0)").
		Joins("JOIN farmer_orders ON farmer_orders.id = order_items.farmer_order_id").
		Where("farmer_orders.farmer_id = ? AND farmer_orders.created_at >= ? AND farmer_orders.status NOT IN ?",
			farmerID, since, excluded).
		Row().Scan(&stats.ProductsSold); err != nil {
		return nil, fmt.Errorf("failed to sum products sold: %w", err)
	}

	if err := r.db.Model(&models.FarmerOrder{}).
		Select("COALESCE(SUM(subtotal_amount), 0)").
		Where("farmer_id = ? AND created_at >= ? AND status NOT IN ?", farmerID, since, excluded).
		Row().Scan(&stats.CurrentMonthRevenue); err != nil {
		return nil, fmt.Errorf("failed to sum revenue: %w", err)
	}

	if err := r.db.Model(&models.FarmerOrder{}).
		Where("farmer_id = ? AND status = ?", farmerID, models.OrderPending).
		Count(&stats.PendingOrders).Error; err != nil {
		return nil, fmt.Errorf("failed to count pending orders: %w", err)
	}

	if err := r.db.Model(&models.Product{}).
		Where("farmer_id = ? AND status = ?", farmerID, models.ProductAvailable).
		Count(&stats.ActiveListings).Error; err != nil {
		return nil, fmt.Errorf("failed to count active listings: %w", err)
	}
	return &stats, nil
}
