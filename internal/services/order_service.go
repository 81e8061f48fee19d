package services

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/Murega14/agrilink/internal/cache"
	"github.com/Murega14/agrilink/internal/models"
	"github.com/Murega14/agrilink/internal/repositories"
	"github.com/Murega14/agrilink/pkg/rabbitmq"

	"github.com/shopspring/decimal"
)

const (
	defaultOrderPage   = 10
	recentOrdersLimit  = 5
	EventOrderCreated  = "order.created"
	EventOrderCanceled = "order.cancelled"
)

// OrderEvent is published to the order queue after an order changes.
type OrderEvent struct {
	Type         string                `json:"type"`
	OrderID      string                `json:"order_id"`
	BuyerID      string                `json:"buyer_id"`
	TotalAmount  decimal.Decimal       `json:"total_amount"`
	FarmerOrders []FarmerSubtotalEvent `json:"farmer_orders"`
	OccurredAt   time.Time             `json:"occurred_at"`
}

// FarmerSubtotalEvent is one farmer's share of an OrderEvent.
type FarmerSubtotalEvent struct {
	FarmerOrderID  string          `json:"farmer_order_id"`
	FarmerID       string          `json:"farmer_id"`
	SubtotalAmount decimal.Decimal `json:"subtotal_amount"`
}

// OrderPage is one page of a buyer's orders.
type OrderPage struct {
	Orders     []models.Order
	Page       int
	PerPage    int
	TotalPages int
	TotalItems int64
}

// FarmerOrderPage is one page of a farmer's sub-orders.
type FarmerOrderPage struct {
	FarmerOrders []models.FarmerOrder
	Page         int
	PerPage      int
	TotalPages   int
	TotalItems   int64
}

// OrderService handles business logic for orders.
type OrderService struct {
	store     repositories.Store
	orderRepo repositories.OrderRepository
	listings  *cache.TTLCache
	publisher EventPublisher
	now       func() time.Time
}

// NewOrderService creates a new OrderService. listings and publisher may be nil.
func NewOrderService(store repositories.Store, orderRepo repositories.OrderRepository, listings *cache.TTLCache, publisher EventPublisher) *OrderService {
	return &OrderService{
		store:     store,
		orderRepo: orderRepo,
		listings:  listings,
		publisher: publisher,
		now:       time.Now,
	}
}

// PlaceOrder turns a cart into an order split per farmer. Stock is taken and
// the order graph written in one transaction; nothing persists on failure.
func (s *OrderService) PlaceOrder(buyerID string, lines []models.CartLine) (*models.Order, error) {
	if len(lines) == 0 {
		return nil, fmt.Errorf("%w: order must contain at least one item", ErrValidation)
	}
	for i, line := range lines {
		if line.ProductID == "" {
			return nil, fmt.Errorf("%w: item %d is missing product_id", ErrValidation, i)
		}
		if line.Quantity <= 0 {
			return nil, fmt.Errorf("%w: item %d quantity must be greater than 0", ErrValidation, i)
		}
	}

	var order *models.Order
	err := s.store.WithinTransaction(func(products repositories.ProductRepository, orders repositories.OrderRepository) error {
		order = &models.Order{
			BuyerID:     buyerID,
			Status:      models.OrderPending,
			TotalAmount: decimal.Zero,
		}
		byFarmer := make(map[string]int)

		for _, line := range lines {
			product, err := products.GetByID(line.ProductID)
			if err != nil {
				return err
			}
			if product.Status == models.ProductDeleted {
				return fmt.Errorf("product %s: %w", line.ProductID, ErrNotFound)
			}
			if line.Quantity > product.AmountAvailable {
				return fmt.Errorf("%w: only %d of %s available", ErrInsufficientStock, product.AmountAvailable, product.Name)
			}
			if err := products.DecrementStock(product.ID, line.Quantity); err != nil {
				return err
			}

			item := models.OrderItem{
				ProductID:    product.ID,
				ProductName:  product.Name,
				Quantity:     line.Quantity,
				PricePerUnit: product.PricePerUnit,
			}
			idx, ok := byFarmer[product.FarmerID]
			if !ok {
				order.FarmerOrders = append(order.FarmerOrders, models.FarmerOrder{
					FarmerID:       product.FarmerID,
					Status:         models.OrderPending,
					SubtotalAmount: decimal.Zero,
				})
				idx = len(order.FarmerOrders) - 1
				byFarmer[product.FarmerID] = idx
			}
			fo := &order.FarmerOrders[idx]
			fo.Items = append(fo.Items, item)
			fo.SubtotalAmount = fo.SubtotalAmount.Add(item.Total())
			order.TotalAmount = order.TotalAmount.Add(item.Total())
		}

		order.Tracking = []models.OrderTracking{{
			Status: models.OrderPending,
			Notes:  "order placed",
		}}
		return orders.Create(order)
	})
	if err != nil {
		return nil, err
	}

	s.invalidateListings()
	placed, err := s.orderRepo.GetByID(order.ID)
	if err != nil {
		return nil, err
	}
	s.publish(EventOrderCreated, placed)
	return placed, nil
}

// CancelOrder cancels a buyer's pending order and returns its stock.
func (s *OrderService) CancelOrder(buyerID, orderID string) (*models.Order, error) {
	err := s.store.WithinTransaction(func(products repositories.ProductRepository, orders repositories.OrderRepository) error {
		order, err := orders.GetByID(orderID)
		if err != nil {
			return err
		}
		if order.BuyerID != buyerID {
			return fmt.Errorf("order %s belongs to another buyer: %w", orderID, ErrForbidden)
		}
		if order.Status != models.OrderPending {
			return fmt.Errorf("%w: order is %s", ErrInvalidTransition, order.Status)
		}
		for _, fo := range order.FarmerOrders {
			if fo.Status != models.OrderPending {
				return fmt.Errorf("%w: farmer order %s is %s", ErrInvalidTransition, fo.ID, fo.Status)
			}
		}

		if err := restoreStock(products, order.Items); err != nil {
			return err
		}
		for _, fo := range order.FarmerOrders {
			if err := orders.UpdateFarmerOrderStatus(fo.ID, models.OrderCancelled); err != nil {
				return err
			}
		}
		if err := orders.UpdateStatus(order.ID, models.OrderCancelled, nil); err != nil {
			return err
		}
		return orders.AddTracking(&models.OrderTracking{
			OrderID: order.ID,
			Status:  models.OrderCancelled,
			Notes:   "order cancelled by buyer",
		})
	})
	if err != nil {
		return nil, err
	}

	order, err := s.orderRepo.GetByID(orderID)
	if err != nil {
		return nil, err
	}
	s.invalidateListings()
	s.publish(EventOrderCanceled, order)
	return order, nil
}

// UpdateFarmerOrderStatus moves a farmer's sub-order to status and rolls the
// change up to the parent order when every sub-order agrees.
func (s *OrderService) UpdateFarmerOrderStatus(farmerID, farmerOrderID string, status models.OrderStatus) (*models.FarmerOrder, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrValidation, status)
	}

	err := s.store.WithinTransaction(func(products repositories.ProductRepository, orders repositories.OrderRepository) error {
		fo, err := orders.GetFarmerOrder(farmerOrderID)
		if err != nil {
			return err
		}
		if fo.FarmerID != farmerID {
			return fmt.Errorf("farmer order %s belongs to another farmer: %w", farmerOrderID, ErrForbidden)
		}
		if !fo.Status.CanTransitionTo(status) {
			return fmt.Errorf("%w: %s to %s", ErrInvalidTransition, fo.Status, status)
		}

		if status == models.OrderCancelled {
			if err := restoreStock(products, fo.Items); err != nil {
				return err
			}
		}
		if err := orders.UpdateFarmerOrderStatus(fo.ID, status); err != nil {
			return err
		}
		if err := orders.AddTracking(&models.OrderTracking{
			OrderID: fo.OrderID,
			Status:  status,
			Notes:   fmt.Sprintf("farmer order %s marked %s", fo.ID, status),
		}); err != nil {
			return err
		}

		order, err := orders.GetByID(fo.OrderID)
		if err != nil {
			return err
		}
		next, changed := rollUp(order)
		if !changed {
			return nil
		}
		var deliveredAt *time.Time
		if next == models.OrderDelivered {
			now := s.now()
			deliveredAt = &now
		}
		if err := orders.UpdateStatus(order.ID, next, deliveredAt); err != nil {
			return err
		}
		return orders.AddTracking(&models.OrderTracking{
			OrderID: order.ID,
			Status:  next,
			Notes:   fmt.Sprintf("order %s", next),
		})
	})
	if err != nil {
		return nil, err
	}
	if status == models.OrderCancelled {
		s.invalidateListings()
	}
	return s.orderRepo.GetFarmerOrder(farmerOrderID)
}

// rollUp derives the order status from its sub-orders. Once every sub-order
// is delivered or cancelled and at least one was delivered, the order counts
// as delivered.
func rollUp(order *models.Order) (models.OrderStatus, bool) {
	if len(order.FarmerOrders) == 0 {
		return order.Status, false
	}
	counts := make(map[models.OrderStatus]int)
	for _, fo := range order.FarmerOrders {
		counts[fo.Status]++
	}
	n := len(order.FarmerOrders)

	next := order.Status
	switch {
	case counts[models.OrderDelivered] > 0 && counts[models.OrderDelivered]+counts[models.OrderCancelled] == n:
		next = models.OrderDelivered
	case counts[models.OrderCancelled] == n:
		next = models.OrderCancelled
	case counts[models.OrderRefunded] > 0 && counts[models.OrderRefunded]+counts[models.OrderCancelled] == n:
		next = models.OrderRefunded
	}
	return next, next != order.Status
}

func restoreStock(products repositories.ProductRepository, items []models.OrderItem) error {
	for _, item := range items {
		if err := products.RestoreStock(item.ProductID, item.Quantity); err != nil {
			// The product may have been removed together with its farmer.
			if errors.Is(err, ErrNotFound) {
				continue
			}
			return err
		}
	}
	return nil
}

// ListBuyerOrders returns a page of the buyer's orders, newest first.
func (s *OrderService) ListBuyerOrders(buyerID string, page, perPage int) (*OrderPage, error) {
	page, perPage, err := pageParams(page, perPage)
	if err != nil {
		return nil, err
	}
	orders, total, err := s.orderRepo.ListByBuyer(buyerID, page, perPage)
	if err != nil {
		return nil, err
	}
	return &OrderPage{
		Orders:     orders,
		Page:       page,
		PerPage:    perPage,
		TotalPages: totalPages(total, perPage),
		TotalItems: total,
	}, nil
}

// GetBuyerOrder returns one of the buyer's orders.
func (s *OrderService) GetBuyerOrder(buyerID, orderID string) (*models.Order, error) {
	order, err := s.orderRepo.GetByID(orderID)
	if err != nil {
		return nil, err
	}
	if order.BuyerID != buyerID {
		return nil, fmt.Errorf("order %s belongs to another buyer: %w", orderID, ErrForbidden)
	}
	return order, nil
}

// ListFarmerOrders returns a page of the farmer's sub-orders, newest first.
func (s *OrderService) ListFarmerOrders(farmerID string, page, perPage int) (*FarmerOrderPage, error) {
	page, perPage, err := pageParams(page, perPage)
	if err != nil {
		return nil, err
	}
	farmerOrders, total, err := s.orderRepo.ListFarmerOrders(farmerID, page, perPage)
	if err != nil {
		return nil, err
	}
	return &FarmerOrderPage{
		FarmerOrders: farmerOrders,
		Page:         page,
		PerPage:      perPage,
		TotalPages:   totalPages(total, perPage),
		TotalItems:   total,
	}, nil
}

// RecentFarmerOrders returns the farmer's five newest sub-orders.
func (s *OrderService) RecentFarmerOrders(farmerID string) ([]models.FarmerOrder, error) {
	farmerOrders, _, err := s.orderRepo.ListFarmerOrders(farmerID, 1, recentOrdersLimit)
	return farmerOrders, err
}

// Tracking returns an order's history to its buyer or to a farmer selling in it.
func (s *OrderService) Tracking(role models.Role, accountID, orderID string) ([]models.OrderTracking, error) {
	order, err := s.orderRepo.GetByID(orderID)
	if err != nil {
		return nil, err
	}
	allowed := false
	switch role {
	case models.RoleBuyer:
		allowed = order.BuyerID == accountID
	case models.RoleFarmer:
		for _, fo := range order.FarmerOrders {
			if fo.FarmerID == accountID {
				allowed = true
				break
			}
		}
	}
	if !allowed {
		return nil, fmt.Errorf("order %s: %w", orderID, ErrForbidden)
	}
	return s.orderRepo.ListTracking(orderID)
}

// FarmerStats summarises the farmer's current calendar month.
func (s *OrderService) FarmerStats(farmerID string) (*models.FarmerStats, error) {
	now := s.now()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	return s.orderRepo.FarmerStats(farmerID, monthStart)
}

func pageParams(page, perPage int) (int, int, error) {
	if page == 0 {
		page = 1
	}
	if perPage == 0 {
		perPage = defaultOrderPage
	}
	if page < 1 || perPage < 1 {
		return 0, 0, fmt.Errorf("%w: page and per_page must be positive integers", ErrValidation)
	}
	return page, perPage, nil
}

func (s *OrderService) invalidateListings() {
	if s.listings != nil {
		s.listings.DeletePrefix(listingCachePrefix)
	}
}

func (s *OrderService) publish(eventType string, order *models.Order) {
	if s.publisher == nil {
		return
	}
	event := OrderEvent{
		Type:        eventType,
		OrderID:     order.ID,
		BuyerID:     order.BuyerID,
		TotalAmount: order.TotalAmount,
		OccurredAt:  s.now(),
	}
	for _, fo := range order.FarmerOrders {
		event.FarmerOrders = append(event.FarmerOrders, FarmerSubtotalEvent{
			FarmerOrderID:  fo.ID,
			FarmerID:       fo.FarmerID,
			SubtotalAmount: fo.SubtotalAmount,
		})
	}
	if err := s.publisher.Publish(rabbitmq.OrderQueue, event); err != nil {
		log.Printf("Failed to publish %s event for order %s: %v", eventType, order.ID, err)
	}
}
