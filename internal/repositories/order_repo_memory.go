package repositories

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/Murega14/agrilink/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MemoryOrderRepository is an in-memory implementation of OrderRepository.
// Children are stored flat and reassembled on read.
type MemoryOrderRepository struct {
	orders       map[string]models.Order
	farmerOrders map[string]models.FarmerOrder
	items        []models.OrderItem
	tracking     []models.OrderTracking
	mu           sync.RWMutex
}

// NewMemoryOrderRepository creates a new instance of MemoryOrderRepository.
func NewMemoryOrderRepository() *MemoryOrderRepository {
	return &MemoryOrderRepository{
		orders:       make(map[string]models.Order),
		farmerOrders: make(map[string]models.FarmerOrder),
	}
}

func newID(id string) string {
	if id == "" {
		return uuid.New().String()
	}
	return id
}

// Create adds an order graph.
func (r *MemoryOrderRepository) Create(order *models.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	order.ID = newID(order.ID)
	order.CreatedAt, order.UpdatedAt = now, now
	for i := range order.FarmerOrders {
		fo := &order.FarmerOrders[i]
		fo.ID = newID(fo.ID)
		fo.OrderID = order.ID
		fo.CreatedAt, fo.UpdatedAt = now, now
		for j := range fo.Items {
			item := &fo.Items[j]
			item.ID = newID(item.ID)
			item.OrderID = order.ID
			item.FarmerOrderID = fo.ID
			item.CreatedAt = now
			r.items = append(r.items, *item)
		}
		stored := *fo
		stored.Items = nil
		r.farmerOrders[fo.ID] = stored
	}
	for i := range order.Tracking {
		entry := &order.Tracking[i]
		entry.ID = newID(entry.ID)
		entry.OrderID = order.ID
		entry.CreatedAt = now
		r.tracking = append(r.tracking, *entry)
	}

	stored := *order
	stored.FarmerOrders, stored.Items, stored.Tracking = nil, nil, nil
	r.orders[order.ID] = stored
	return nil
}

func (r *MemoryOrderRepository) itemsWhere(match func(models.OrderItem) bool) []models.OrderItem {
	var out []models.OrderItem
	for _, item := range r.items {
		if match(item) {
			out = append(out, item)
		}
	}
	return out
}

func (r *MemoryOrderRepository) farmerOrderDetail(fo models.FarmerOrder) models.FarmerOrder {
	fo.Items = r.itemsWhere(func(i models.OrderItem) bool { return i.FarmerOrderID == fo.ID })
	return fo
}

func (r *MemoryOrderRepository) orderDetail(order models.Order) models.Order {
	for _, fo := range r.farmerOrders {
		if fo.OrderID == order.ID {
			order.FarmerOrders = append(order.FarmerOrders, r.farmerOrderDetail(fo))
		}
	}
	sort.Slice(order.FarmerOrders, func(i, j int) bool {
		return order.FarmerOrders[i].ID < order.FarmerOrders[j].ID
	})
	order.Items = r.itemsWhere(func(i models.OrderItem) bool { return i.OrderID == order.ID })
	for _, entry := range r.tracking {
		if entry.OrderID == order.ID {
			order.Tracking = append(order.Tracking, entry)
		}
	}
	return order
}

// GetByID returns an order graph by its ID.
func (r *MemoryOrderRepository) GetByID(id string) (*models.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	order, ok := r.orders[id]
	if !ok {
		return nil, fmt.Errorf("order %s: %w", id, ErrNotFound)
	}
	detail := r.orderDetail(order)
	return &detail, nil
}

func pageBounds(n, page, perPage int) (int, int) {
	if perPage <= 0 {
		return 0, n
	}
	if page < 1 {
		page = 1
	}
	start := (page - 1) * perPage
	if start > n {
		start = n
	}
	end := start + perPage
	if end > n {
		end = n
	}
	return start, end
}

// ListByBuyer returns one page of a buyer's orders, newest first.
func (r *MemoryOrderRepository) ListByBuyer(buyerID string, page, perPage int) ([]models.Order, int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var matched []models.Order
	for _, order := range r.orders {
		if order.BuyerID == buyerID {
			matched = append(matched, r.orderDetail(order))
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].ID < matched[j].ID
	})
	start, end := pageBounds(len(matched), page, perPage)
	return matched[start:end], int64(len(matched)), nil
}

// ListFarmerOrders returns one page of a farmer's sub-orders, newest first.
func (r *MemoryOrderRepository) ListFarmerOrders(farmerID string, page, perPage int) ([]models.FarmerOrder, int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var matched []models.FarmerOrder
	for _, fo := range r.farmerOrders {
		if fo.FarmerID != farmerID {
			continue
		}
		detail := r.farmerOrderDetail(fo)
		order := r.orders[fo.OrderID]
		detail.Order = &order
		matched = append(matched, detail)
	}
	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].ID < matched[j].ID
	})
	start, end := pageBounds(len(matched), page, perPage)
	return matched[start:end], int64(len(matched)), nil
}

// GetFarmerOrder returns one sub-order with its items and parent order.
func (r *MemoryOrderRepository) GetFarmerOrder(id string) (*models.FarmerOrder, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	fo, ok := r.farmerOrders[id]
	if !ok {
		return nil, fmt.Errorf("farmer order %s: %w", id, ErrNotFound)
	}
	detail := r.farmerOrderDetail(fo)
	order := r.orders[fo.OrderID]
	detail.Order = &order
	return &detail, nil
}

// UpdateStatus sets an order's status and, when given, its delivery date.
func (r *MemoryOrderRepository) UpdateStatus(id string, status models.OrderStatus, deliveredAt *time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	order, ok := r.orders[id]
	if !ok {
		return fmt.Errorf("order %s: %w", id, ErrNotFound)
	}
	order.Status = status
	if deliveredAt != nil {
		t := *deliveredAt
		order.DeliveryDate = &t
	}
	order.UpdatedAt = time.Now()
	r.orders[id] = order
	return nil
}

// UpdateFarmerOrderStatus sets a sub-order's status.
func (r *MemoryOrderRepository) UpdateFarmerOrderStatus(id string, status models.OrderStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	fo, ok := r.farmerOrders[id]
	if !ok {
		return fmt.Errorf("farmer order %s: %w", id, ErrNotFound)
	}
	fo.Status = status
	fo.UpdatedAt = time.Now()
	r.farmerOrders[id] = fo
	return nil
}

// AddTracking appends a history entry.
func (r *MemoryOrderRepository) AddTracking(entry *models.OrderTracking) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.orders[entry.OrderID]; !ok {
		return fmt.Errorf("order %s: %w", entry.OrderID, ErrNotFound)
	}
	entry.ID = newID(entry.ID)
	entry.CreatedAt = time.Now()
	r.tracking = append(r.tracking, *entry)
	return nil
}

// ListTracking returns an order's history in insertion order.
func (r *MemoryOrderRepository) ListTracking(orderID string) ([]models.OrderTracking, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []models.OrderTracking
	for _, entry := range r.tracking {
		if entry.OrderID == orderID {
			out = append(out, entry)
		}
	}
	return out, nil
}

// FarmerStats aggregates dashboard figures. Active listings are not known to
// the order store and are left at zero.
func (r *MemoryOrderRepository) FarmerStats(farmerID string, since time.Time) (*models.FarmerStats, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stats := &models.FarmerStats{CurrentMonthRevenue: decimal.Zero}
	for _, fo := range r.farmerOrders {
		if fo.FarmerID != farmerID {
			continue
		}
		if fo.Status == models.OrderPending {
			stats.PendingOrders++
		}
		if fo.CreatedAt.Before(since) || fo.Status == models.OrderCancelled || fo.Status == models.OrderRefunded {
			continue
		}
		stats.CurrentMonthRevenue = stats.CurrentMonthRevenue.Add(fo.SubtotalAmount)
		for _, item := range r.items {
			if item.FarmerOrderID == fo.ID {
				stats.ProductsSold += int64(item.Quantity)
			}
		}
	}
	return stats, nil
}

type orderSnapshot struct {
	orders       map[string]models.Order
	farmerOrders map[string]models.FarmerOrder
	items        []models.OrderItem
	tracking     []models.OrderTracking
}

func (r *MemoryOrderRepository) snapshot() orderSnapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s := orderSnapshot{
		orders:       make(map[string]models.Order, len(r.orders)),
		farmerOrders: make(map[string]models.FarmerOrder, len(r.farmerOrders)),
		items:        append([]models.OrderItem(nil), r.items...),
		tracking:     append([]models.OrderTracking(nil), r.tracking...),
	}
	for k, v := range r.orders {
		s.orders[k] = v
	}
	for k, v := range r.farmerOrders {
		s.farmerOrders[k] = v
	}
	return s
}

func (r *MemoryOrderRepository) restore(s orderSnapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.orders = s.orders
	r.farmerOrders = s.farmerOrders
	r.items = s.items
	r.tracking = s.tracking
}
