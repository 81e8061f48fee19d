package handlers

import (
	"github.com/Murega14/agrilink/internal/middleware"
	"github.com/Murega14/agrilink/internal/models"
	"github.com/Murega14/agrilink/internal/services"
	"github.com/Murega14/agrilink/internal/validation"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

// ProductHandler handles HTTP requests for the catalog.
type ProductHandler struct {
	service  *services.ProductService
	validate *validator.Validate
}

// NewProductHandler creates a new ProductHandler.
func NewProductHandler(service *services.ProductService) *ProductHandler {
	return &ProductHandler{
		service:  service,
		validate: validation.New(),
	}
}

// RegisterRoutes registers the product routes. Browsing is public; listing
// management needs a farmer session.
func (h *ProductHandler) RegisterRoutes(router fiber.Router, auth fiber.Handler) {
	farmerOnly := middleware.RoleRequired(models.RoleFarmer)

	router.Get("/products", h.HandleListProducts)
	router.Get("/products/category/:category", h.HandleListByCategory)
	router.Get("/products/:id", h.HandleGetProduct)
	router.Post("/products/add", auth, farmerOnly, h.HandleCreateProduct)
	router.Put("/products/update/:id", auth, farmerOnly, h.HandleUpdateProduct)
	router.Delete("/products/delete/:id", auth, farmerOnly, h.HandleDeleteProduct)
	router.Get("/farmer/products", auth, farmerOnly, h.HandleFarmerProducts)
}

// HandleListProducts returns a page of the catalog, optionally filtered by name.
func (h *ProductHandler) HandleListProducts(c *fiber.Ctx) error {
	page, perPage, err := pageQuery(c)
	if err != nil {
		return fail(c, "Invalid pagination", err)
	}

	result, err := h.service.ListProducts(services.ListQuery{
		Search:  c.Query("search"),
		Page:    page,
		PerPage: perPage,
	})
	if err != nil {
		return fail(c, "Could not retrieve products", err)
	}
	return c.JSON(fiber.Map{
		"products":    newProductViews(result.Products),
		"page":        result.Page,
		"per_page":    result.PerPage,
		"total_pages": result.TotalPages,
		"total_items": result.TotalItems,
	})
}

// HandleListByCategory returns products whose category matches the path parameter.
func (h *ProductHandler) HandleListByCategory(c *fiber.Ctx) error {
	products, err := h.service.ListByCategory(c.Params("category"))
	if err != nil {
		return fail(c, "Could not retrieve products", err)
	}
	return c.JSON(fiber.Map{
		"products": newProductViews(products),
	})
}

// HandleGetProduct retrieves a single product by its ID.
func (h *ProductHandler) HandleGetProduct(c *fiber.Ctx) error {
	product, err := h.service.GetProduct(c.Params("id"))
	if err != nil {
		return fail(c, "Could not retrieve product", err)
	}
	return c.JSON(newProductView(*product))
}

// ProductRequest represents the request body for a new product.
type ProductRequest struct {
	Name            string          `json:"name" validate:"required,max=100"`
	Description     string          `json:"description" validate:"required"`
	PricePerUnit    decimal.Decimal `json:"price_per_unit"`
	AmountAvailable *int            `json:"amount_available" validate:"required,gte=0"`
	Category        string          `json:"category" validate:"required,max=50"`
}

// HandleCreateProduct lists a new product for the current farmer.
func (h *ProductHandler) HandleCreateProduct(c *fiber.Ctx) error {
	var req ProductRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidBody(c, err)
	}
	if err := h.validate.Struct(req); err != nil {
		return validationFailed(c, err)
	}

	product, err := h.service.CreateProduct(middleware.AccountID(c), services.ProductInput{
		Name:            req.Name,
		Description:     req.Description,
		PricePerUnit:    req.PricePerUnit,
		AmountAvailable: *req.AmountAvailable,
		Category:        req.Category,
	})
	if err != nil {
		return fail(c, "Could not create product", err)
	}
	return c.Status(fiber.StatusCreated).JSON(newProductView(*product))
}

// UpdateProductRequest represents the request body for a product update.
type UpdateProductRequest struct {
	Name            *string          `json:"name" validate:"omitempty,min=1,max=100"`
	Description     *string          `json:"description" validate:"omitempty,min=1"`
	PricePerUnit    *decimal.Decimal `json:"price_per_unit"`
	AmountAvailable *int             `json:"amount_available" validate:"omitempty,gte=0"`
	Category        *string          `json:"category" validate:"omitempty,min=1,max=50"`
}

// HandleUpdateProduct applies a partial update to one of the farmer's products.
func (h *ProductHandler) HandleUpdateProduct(c *fiber.Ctx) error {
	var req UpdateProductRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidBody(c, err)
	}
	if err := h.validate.Struct(req); err != nil {
		return validationFailed(c, err)
	}

	product, err := h.service.UpdateProduct(middleware.AccountID(c), c.Params("id"), services.ProductUpdate{
		Name:            req.Name,
		Description:     req.Description,
		PricePerUnit:    req.PricePerUnit,
		AmountAvailable: req.AmountAvailable,
		Category:        req.Category,
	})
	if err != nil {
		return fail(c, "Could not update product", err)
	}
	return c.JSON(newProductView(*product))
}

// HandleDeleteProduct removes one of the farmer's products from the catalog.
func (h *ProductHandler) HandleDeleteProduct(c *fiber.Ctx) error {
	productID := c.Params("id")
	if err := h.service.DeleteProduct(middleware.AccountID(c), productID); err != nil {
		return fail(c, "Could not delete product", err)
	}
	return c.JSON(fiber.Map{
		"message": "Product " + productID + " deleted successfully",
	})
}

// HandleFarmerProducts lists the current farmer's products.
func (h *ProductHandler) HandleFarmerProducts(c *fiber.Ctx) error {
	products, err := h.service.ListFarmerProducts(middleware.AccountID(c))
	if err != nil {
		return fail(c, "Could not retrieve products", err)
	}
	return c.JSON(fiber.Map{
		"products": newProductViews(products),
	})
}
