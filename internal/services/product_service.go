package services

import (
	"fmt"
	"strings"

	"github.com/Murega14/agrilink/internal/cache"
	"github.com/Murega14/agrilink/internal/models"
	"github.com/Murega14/agrilink/internal/repositories"

	"github.com/shopspring/decimal"
)

const (
	listingCachePrefix = "products:"
	defaultProductPage = 12
)

// ListQuery selects a page of the public catalog.
type ListQuery struct {
	Search   string
	Category string
	Page     int
	PerPage  int
}

// ProductPage is one page of catalog results.
type ProductPage struct {
	Products   []models.Product
	Page       int
	PerPage    int
	TotalPages int
	TotalItems int64
}

// ProductInput carries the fields of a new listing.
type ProductInput struct {
	Name            string
	Description     string
	PricePerUnit    decimal.Decimal
	AmountAvailable int
	Category        string
}

// ProductUpdate carries optional listing changes; nil fields are left alone.
type ProductUpdate struct {
	Name            *string
	Description     *string
	PricePerUnit    *decimal.Decimal
	AmountAvailable *int
	Category        *string
}

// ProductService handles business logic for the catalog.
type ProductService struct {
	productRepo repositories.ProductRepository
	listings    *cache.TTLCache
}

// NewProductService creates a new ProductService. A nil cache disables
// listing caching.
func NewProductService(productRepo repositories.ProductRepository, listings *cache.TTLCache) *ProductService {
	return &ProductService{
		productRepo: productRepo,
		listings:    listings,
	}
}

// ListProducts returns a page of available and out-of-stock products.
func (s *ProductService) ListProducts(q ListQuery) (*ProductPage, error) {
	if q.Page == 0 {
		q.Page = 1
	}
	if q.PerPage == 0 {
		q.PerPage = defaultProductPage
	}
	if q.Page < 1 || q.PerPage < 1 {
		return nil, fmt.Errorf("%w: page and per_page must be positive integers", ErrValidation)
	}
	q.Search = strings.TrimSpace(q.Search)
	q.Category = strings.TrimSpace(q.Category)

	key := fmt.Sprintf("%s%s|%s|%d|%d", listingCachePrefix,
		strings.ToLower(q.Search), strings.ToLower(q.Category), q.Page, q.PerPage)
	if s.listings != nil {
		if cached, ok := s.listings.Get(key); ok {
			return cached.(*ProductPage), nil
		}
	}

	products, total, err := s.productRepo.List(repositories.ProductFilter{
		Search:   q.Search,
		Category: q.Category,
		Page:     q.Page,
		PerPage:  q.PerPage,
	})
	if err != nil {
		return nil, err
	}
	page := &ProductPage{
		Products:   products,
		Page:       q.Page,
		PerPage:    q.PerPage,
		TotalPages: totalPages(total, q.PerPage),
		TotalItems: total,
	}
	if s.listings != nil {
		s.listings.Set(key, page)
	}
	return page, nil
}

// ListByCategory returns every product whose category contains category.
func (s *ProductService) ListByCategory(category string) ([]models.Product, error) {
	category = strings.TrimSpace(category)
	if category == "" {
		return nil, fmt.Errorf("%w: category is required", ErrValidation)
	}
	products, _, err := s.productRepo.List(repositories.ProductFilter{Category: category})
	if err != nil {
		return nil, err
	}
	if len(products) == 0 {
		return nil, fmt.Errorf("no products in category %q: %w", category, ErrNotFound)
	}
	return products, nil
}

// ListFarmerProducts returns every listed product of one farmer.
func (s *ProductService) ListFarmerProducts(farmerID string) ([]models.Product, error) {
	products, _, err := s.productRepo.List(repositories.ProductFilter{FarmerID: farmerID})
	return products, err
}

// ListAvailable returns the farmer's products that can currently be ordered.
func (s *ProductService) ListAvailable(farmerID string) ([]models.Product, error) {
	products, err := s.ListFarmerProducts(farmerID)
	if err != nil {
		return nil, err
	}
	available := make([]models.Product, 0, len(products))
	for _, p := range products {
		if p.Status == models.ProductAvailable {
			available = append(available, p)
		}
	}
	return available, nil
}

// GetProduct retrieves a listed product by its ID.
func (s *ProductService) GetProduct(id string) (*models.Product, error) {
	product, err := s.productRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if product.Status == models.ProductDeleted {
		return nil, fmt.Errorf("product %s: %w", id, ErrNotFound)
	}
	return product, nil
}

// CreateProduct lists a new product for farmerID.
func (s *ProductService) CreateProduct(farmerID string, in ProductInput) (*models.Product, error) {
	product := &models.Product{
		Name:            strings.TrimSpace(in.Name),
		Description:     strings.TrimSpace(in.Description),
		PricePerUnit:    in.PricePerUnit,
		AmountAvailable: in.AmountAvailable,
		Category:        strings.TrimSpace(in.Category),
		FarmerID:        farmerID,
	}
	if err := checkProduct(product); err != nil {
		return nil, err
	}
	product.SyncStatus()

	if err := s.productRepo.Create(product); err != nil {
		return nil, err
	}
	s.InvalidateListings()
	return product, nil
}

// UpdateProduct applies upd to a product owned by farmerID.
func (s *ProductService) UpdateProduct(farmerID, id string, upd ProductUpdate) (*models.Product, error) {
	product, err := s.owned(farmerID, id)
	if err != nil {
		return nil, err
	}

	if upd.Name != nil {
		product.Name = strings.TrimSpace(*upd.Name)
	}
	if upd.Description != nil {
		product.Description = strings.TrimSpace(*upd.Description)
	}
	if upd.PricePerUnit != nil {
		product.PricePerUnit = *upd.PricePerUnit
	}
	if upd.AmountAvailable != nil {
		product.AmountAvailable = *upd.AmountAvailable
	}
	if upd.Category != nil {
		product.Category = strings.TrimSpace(*upd.Category)
	}
	if err := checkProduct(product); err != nil {
		return nil, err
	}
	product.SyncStatus()

	if err := s.productRepo.Update(product); err != nil {
		return nil, err
	}
	s.InvalidateListings()
	return product, nil
}

// DeleteProduct removes a product owned by farmerID from the catalog.
func (s *ProductService) DeleteProduct(farmerID, id string) error {
	if _, err := s.owned(farmerID, id); err != nil {
		return err
	}
	if err := s.productRepo.Delete(id); err != nil {
		return err
	}
	s.InvalidateListings()
	return nil
}

// InvalidateListings drops every cached catalog page.
func (s *ProductService) InvalidateListings() {
	if s.listings != nil {
		s.listings.DeletePrefix(listingCachePrefix)
	}
}

func (s *ProductService) owned(farmerID, id string) (*models.Product, error) {
	product, err := s.GetProduct(id)
	if err != nil {
		return nil, err
	}
	if product.FarmerID != farmerID {
		return nil, fmt.Errorf("product %s belongs to another farmer: %w", id, ErrForbidden)
	}
	return product, nil
}

// maxPricePerUnit is the first value that no longer fits numeric(10,2).
var maxPricePerUnit = decimal.New(1, 8)

func checkProduct(p *models.Product) error {
	var problems []string
	if p.Name == "" {
		problems = append(problems, "name is required")
	}
	if p.Description == "" {
		problems = append(problems, "description is required")
	}
	if p.Category == "" {
		problems = append(problems, "category is required")
	}
	switch {
	case !p.PricePerUnit.IsPositive():
		problems = append(problems, "price_per_unit must be greater than 0")
	case !p.PricePerUnit.Equal(p.PricePerUnit.Round(2)):
		problems = append(problems, "price_per_unit cannot have more than 2 decimal places")
	case p.PricePerUnit.GreaterThanOrEqual(maxPricePerUnit):
		problems = append(problems, "price_per_unit must be less than "+maxPricePerUnit.String())
	}
	if p.AmountAvailable < 0 {
		problems = append(problems, "amount_available cannot be negative")
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrValidation, strings.Join(problems, "; "))
	}
	return nil
}
