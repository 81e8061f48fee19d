package repositories

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Murega14/agrilink/internal/models"

	"gorm.io/gorm"
)

// GORMProductRepository is a GORM implementation of ProductRepository.
type GORMProductRepository struct {
	db *gorm.DB
}

// NewGORMProductRepository creates a new instance of GORMProductRepository.
func NewGORMProductRepository(db *gorm.DB) *GORMProductRepository {
	return &GORMProductRepository{
		db: db,
	}
}

// escapeLike neutralises LIKE wildcards in user input.
func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + strings.ToLower(r.Replace(s)) + "%"
}

// List returns one page of non-deleted products and the total match count.
func (r *GORMProductRepository) List(filter ProductFilter) ([]models.Product, int64, error) {
	q := r.db.Model(&models.Product{}).Where("status <> ?", models.ProductDeleted)
	if filter.Search != "" {
		q = q.Where(`LOWER(name) LIKE ? ESCAPE '\'`, escapeLike(filter.Search))
	}
	if filter.Category != "" {
		q = q.Where(`LOWER(category) LIKE ? ESCAPE '\'`, escapeLike(filter.Category))
	}
	if filter.FarmerID != "" {
		q = q.Where("farmer_id = ?", filter.FarmerID)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count products: %w", err)
	}

	q = q.Preload("Farmer").Order("created_at DESC").Order("id")
	if filter.PerPage > 0 {
		page := filter.Page
		if page < 1 {
			page = 1
		}
		q = q.Offset((page - 1) * filter.PerPage).Limit(filter.PerPage)
	}

	var products []models.Product
	if err := q.Find(&products).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list products: %w", err)
	}
	return products, total, nil
}

// GetByID retrieves a single product, with its farmer, by ID.
func (r *GORMProductRepository) GetByID(id string) (*models.Product, error) {
	var product models.Product
	if err := r.db.Preload("Farmer").First(&product, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("product %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get product by ID %s: %w", id, err)
	}
	return &product, nil
}

// Create creates a new product in the database.
func (r *GORMProductRepository) Create(product *models.Product) error {
	if err := r.db.Omit("Farmer").Create(product).Error; err != nil {
		return fmt.Errorf("failed to create product: %w", err)
	}
	return nil
}

// Update writes every editable column, including zero values.
func (r *GORMProductRepository) Update(product *models.Product) error {
	res := r.db.Model(&models.Product{}).Where("id = ?", product.ID).Updates(map[string]interface{}{
		"name":             product.Name,
		"description":      product.Description,
		"price_per_unit":   product.PricePerUnit,
		"amount_available": product.AmountAvailable,
		"category":         product.Category,
		"status":           product.Status,
	})
	if res.Error != nil {
		return fmt.Errorf("failed to update product: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("product %s: %w", product.ID, ErrNotFound)
	}
	return nil
}

// Delete marks a product as deleted so order history keeps its reference.
func (r *GORMProductRepository) Delete(id string) error {
	res := r.db.Model(&models.Product{}).
		Where("id = ? AND status <> ?", id, models.ProductDeleted).
		Update("status", models.ProductDeleted)
	if res.Error != nil {
		return fmt.Errorf("failed to delete product: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("product %s: %w", id, ErrNotFound)
	}
	return nil
}

// DecrementStock subtracts quantity only while enough stock remains, so two
// concurrent orders cannot both take the last units.
func (r *GORMProductRepository) DecrementStock(id string, quantity int) error {
	res := r.db.Model(&models.Product{}).
		Where("id = ? AND status <> ? AND amount_available >= ?", id, models.ProductDeleted, quantity).
		Updates(map[string]interface{}{
			"amount_available": gorm.Expr("amount_available - ?", quantity),
			"status": gorm.Expr("CASE WHEN amount_available - ? <= 0 THEN ? ELSE ? END",
				quantity, models.ProductOutOfStock, models.ProductAvailable),
		})
	if res.Error != nil {
		return fmt.Errorf("failed to decrement stock of product %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("product %s: %w", id, ErrInsufficientStock)
	}
	return nil
}

// RestoreStock gives quantity back to a product, e.g. when an order is cancelled.
func (r *GORMProductRepository) RestoreStock(id string, quantity int) error {
	res := r.db.Model(&models.Product{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"amount_available": gorm.Expr("amount_available + ?", quantity),
			"status": gorm.Expr("CASE WHEN status = ? THEN status ELSE ? END",
				models.ProductDeleted, models.ProductAvailable),
		})
	if res.Error != nil {
		return fmt.Errorf("failed to restore stock of product %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("product %s: %w", id, ErrNotFound)
	}
	return nil
}
