package repositories

import "github.com/Murega14/agrilink/internal/models"

// ProductFilter narrows a catalog listing. Zero values mean "no constraint".
type ProductFilter struct {
	Search   string
	Category string
	FarmerID string
	Page     int
	PerPage  int
}

// ProductRepository defines the interface for product data access.
type ProductRepository interface {
	List(filter ProductFilter) ([]models.Product, int64, error)
	GetByID(id string) (*models.Product, error)
	Create(product *models.Product) error
	Update(product *models.Product) error
	Delete(id string) error
	DecrementStock(id string, quantity int) error
	RestoreStock(id string, quantity int) error
}
