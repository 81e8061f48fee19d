package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// OrderStatus is shared by orders and their per-farmer sub-orders.
type OrderStatus string

const (
	OrderPending   OrderStatus = "pending"
	OrderDelivered OrderStatus = "delivered"
	OrderCancelled OrderStatus = "cancelled"
	OrderRefunded  OrderStatus = "refunded"
)

// Valid reports whether s is a known status.
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderPending, OrderDelivered, OrderCancelled, OrderRefunded:
		return true
	}
	return false
}

// CanTransitionTo reports whether a sub-order may move from s to next.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	switch s {
	case OrderPending:
		return next == OrderDelivered || next == OrderCancelled
	case OrderDelivered:
		return next == OrderRefunded
	}
	return false
}

// CartLine is one product/quantity pair submitted by a buyer.
type CartLine struct {
	ProductID string `json:"product_id" validate:"required"`
	Quantity  int    `json:"quantity" validate:"required,gt=0"`
}

// Order is a buyer's purchase; it is split into one FarmerOrder per seller.
type Order struct {
	ID           string          `json:"id" gorm:"primaryKey;type:varchar(36)"`
	BuyerID      string          `json:"buyer_id" gorm:"type:varchar(36);not null;index"`
	Buyer        *Buyer          `json:"-" gorm:"foreignKey:BuyerID;constraint:OnDelete:CASCADE"`
	TotalAmount  decimal.Decimal `json:"total_amount" gorm:"type:numeric(10,2);not null"`
	Status       OrderStatus     `json:"status" gorm:"type:varchar(20);not null;default:pending;index"`
	DeliveryDate *time.Time      `json:"delivery_date"`
	FarmerOrders []FarmerOrder   `json:"farmer_orders,omitempty" gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	Items        []OrderItem     `json:"items,omitempty" gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	Tracking     []OrderTracking `json:"tracking,omitempty" gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// BeforeCreate assigns a UUID when the caller did not provide one.
func (o *Order) BeforeCreate(tx *gorm.DB) error {
	if o.ID == "" {
		o.ID = uuid.New().String()
	}
	return nil
}

// FarmerOrder scopes one farmer's portion of an Order.
type FarmerOrder struct {
	ID             string          `json:"id" gorm:"primaryKey;type:varchar(36)"`
	OrderID        string          `json:"order_id" gorm:"type:varchar(36);not null;index"`
	Order          *Order          `json:"-" gorm:"foreignKey:OrderID"`
	FarmerID       string          `json:"farmer_id" gorm:"type:varchar(36);not null;index"`
	Farmer         *Farmer         `json:"-" gorm:"foreignKey:FarmerID;constraint:OnDelete:CASCADE"`
	SubtotalAmount decimal.Decimal `json:"subtotal_amount" gorm:"type:numeric(10,2);not null"`
	Status         OrderStatus     `json:"status" gorm:"type:varchar(20);not null;default:pending;index"`
	Items          []OrderItem     `json:"items,omitempty" gorm:"foreignKey:FarmerOrderID;constraint:OnDelete:CASCADE"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// BeforeCreate assigns a UUID when the caller did not provide one.
func (f *FarmerOrder) BeforeCreate(tx *gorm.DB) error {
	if f.ID == "" {
		f.ID = uuid.New().String()
	}
	return nil
}

// OrderItem is a line record. Price and name are snapshots taken when the
// order was placed and do not follow later product edits.
type OrderItem struct {
	ID            string          `json:"id" gorm:"primaryKey;type:varchar(36)"`
	OrderID       string          `json:"order_id" gorm:"type:varchar(36);not null;index"`
	FarmerOrderID string          `json:"farmer_order_id" gorm:"type:varchar(36);not null;index"`
	ProductID     string          `json:"product_id" gorm:"type:varchar(36);index"`
	ProductName   string          `json:"product_name" gorm:"type:varchar(100)"`
	Quantity      int             `json:"quantity" gorm:"not null"`
	PricePerUnit  decimal.Decimal `json:"price_per_unit" gorm:"type:numeric(10,2);not null"`
	CreatedAt     time.Time       `json:"created_at"`
}

// BeforeCreate assigns a UUID when the caller did not provide one.
func (i *OrderItem) BeforeCreate(tx *gorm.DB) error {
	if i.ID == "" {
		i.ID = uuid.New().String()
	}
	return nil
}

// Total is quantity times the snapshotted unit price.
func (i OrderItem) Total() decimal.Decimal {
	return i.PricePerUnit.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// OrderTracking is an append-only history entry for an order.
type OrderTracking struct {
	ID        string      `json:"id" gorm:"primaryKey;type:varchar(36)"`
	OrderID   string      `json:"order_id" gorm:"type:varchar(36);not null;index"`
	Status    OrderStatus `json:"status" gorm:"type:varchar(50);not null"`
	Location  string      `json:"location" gorm:"type:varchar(200)"`
	Notes     string      `json:"notes" gorm:"type:text"`
	CreatedAt time.Time   `json:"created_at"`
}

// BeforeCreate assigns a UUID when the caller did not provide one.
func (t *OrderTracking) BeforeCreate(tx *gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	return nil
}

// FarmerStats is the dashboard summary for one farmer.
type FarmerStats struct {
	ProductsSold        int64           `json:"products_sold"`
	CurrentMonthRevenue decimal.Decimal `json:"current_month_revenue"`
	PendingOrders       int64           `json:"pending_orders"`
	ActiveListings      int64           `json:"active_listings"`
}

// All returns every model managed by auto-migration, parents first.
func All() []interface{} {
	return []interface{}{
		&Farmer{},
		&Buyer{},
		&Product{},
		&Order{},
		&FarmerOrder{},
		&OrderItem{},
		&OrderTracking{},
	}
}
