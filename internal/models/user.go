package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Role identifies which side of the marketplace an account belongs to.
type Role string

const (
	RoleFarmer Role = "farmer"
	RoleBuyer  Role = "buyer"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleFarmer || r == RoleBuyer
}

// Account holds the identity fields shared by farmers and buyers.
type Account struct {
	ID           string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	FirstName    string    `json:"first_name" gorm:"type:varchar(50);not null"`
	LastName     string    `json:"last_name" gorm:"type:varchar(50);not null"`
	PhoneNumber  string    `json:"phone_number" gorm:"uniqueIndex;type:varchar(15);not null"`
	Email        string    `json:"email" gorm:"uniqueIndex;type:varchar(100);not null"`
	PasswordHash string    `json:"-" gorm:"type:varchar(255);not null"`
	Role         Role      `json:"role" gorm:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// BeforeCreate assigns a UUID when the caller did not provide one.
func (a *Account) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	return nil
}

// FullName is the display name used in listings and order views.
func (a Account) FullName() string {
	return a.FirstName + " " + a.LastName
}

// Farmer is an account that sells products.
type Farmer struct {
	Account
	Products []Product `json:"products,omitempty" gorm:"foreignKey:FarmerID;constraint:OnDelete:CASCADE"`
}

// Buyer is an account that places orders.
type Buyer struct {
	Account
	Orders []Order `json:"orders,omitempty" gorm:"foreignKey:BuyerID"`
}

// TableFor returns the table holding accounts of the given role.
func TableFor(role Role) string {
	if role == RoleFarmer {
		return "farmers"
	}
	return "buyers"
}
