package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ProductStatus tracks whether a listing can be ordered.
type ProductStatus string

const (
	ProductAvailable  ProductStatus = "available"
	ProductOutOfStock ProductStatus = "out_of_stock"
	ProductDeleted    ProductStatus = "deleted"
)

func init() {
	// Prices and totals are rendered as JSON numbers, not strings.
	decimal.MarshalJSONWithoutQuotes = true
}

// Product represents a farmer's listing in the catalog.
type Product struct {
	ID              string          `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Name            string          `json:"name" gorm:"type:varchar(100);not null;index"`
	Description     string          `json:"description" gorm:"type:text;not null"`
	PricePerUnit    decimal.Decimal `json:"price_per_unit" gorm:"type:numeric(10,2);not null"`
	AmountAvailable int             `json:"amount_available" gorm:"not null"`
	Category        string          `json:"category" gorm:"type:varchar(50);not null;index"`
	FarmerID        string          `json:"farmer_id" gorm:"type:varchar(36);not null;index"`
	Farmer          *Farmer         `json:"-" gorm:"foreignKey:FarmerID"`
	Status          ProductStatus   `json:"status" gorm:"type:varchar(20);not null;default:available"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// BeforeCreate assigns a UUID when the caller did not provide one.
func (p *Product) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	return nil
}

// SyncStatus derives the listing status from the available amount.
// Deleted products stay deleted.
func (p *Product) SyncStatus() {
	if p.Status == ProductDeleted {
		return
	}
	if p.AmountAvailable <= 0 {
		p.Status = ProductOutOfStock
	} else {
		p.Status = ProductAvailable
	}
}

// SellerName returns the owning farmer's display name when it was loaded.
func (p Product) SellerName() string {
	if p.Farmer == nil {
		return ""
	}
	return p.Farmer.FullName()
}
