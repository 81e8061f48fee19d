package handlers

import (
	"github.com/Murega14/agrilink/internal/middleware"
	"github.com/Murega14/agrilink/internal/models"
	"github.com/Murega14/agrilink/internal/services"
	"github.com/Murega14/agrilink/internal/validation"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// ProfileHandler serves the current account's profile.
type ProfileHandler struct {
	authService *services.AuthService
	products    *services.ProductService
	validate    *validator.Validate
}

// NewProfileHandler creates a new ProfileHandler. products is used to drop
// cached listings when a farmer account goes away.
func NewProfileHandler(authService *services.AuthService, products *services.ProductService) *ProfileHandler {
	return &ProfileHandler{
		authService: authService,
		products:    products,
		validate:    validation.New(),
	}
}

// RegisterRoutes registers the profile routes for both roles.
func (h *ProfileHandler) RegisterRoutes(router fiber.Router, auth fiber.Handler) {
	farmerOnly := middleware.RoleRequired(models.RoleFarmer)
	buyerOnly := middleware.RoleRequired(models.RoleBuyer)

	router.Get("/farmerprofile", auth, farmerOnly, h.HandleGetProfile)
	router.Put("/farmer/update", auth, farmerOnly, h.HandleUpdateProfile)
	router.Delete("/farmer/delete", auth, farmerOnly, h.HandleDeleteAccount)

	router.Get("/userprofile", auth, buyerOnly, h.HandleGetProfile)
	router.Put("/buyer/update", auth, buyerOnly, h.HandleUpdateProfile)
	router.Delete("/buyer/delete", auth, buyerOnly, h.HandleDeleteAccount)
}

// HandleGetProfile returns the authenticated account.
func (h *ProfileHandler) HandleGetProfile(c *fiber.Ctx) error {
	account, err := h.authService.GetAccount(middleware.Role(c), middleware.AccountID(c))
	if err != nil {
		return fail(c, "Could not retrieve profile", err)
	}
	return c.JSON(account)
}

// UpdateProfileRequest represents the request body for a profile update.
// Omitted fields keep their current value.
type UpdateProfileRequest struct {
	FirstName   *string `json:"first_name" validate:"omitempty,min=1,max=50"`
	LastName    *string `json:"last_name" validate:"omitempty,min=1,max=50"`
	Email       *string `json:"email" validate:"omitempty,email,max=100"`
	PhoneNumber *string `json:"phone_number" validate:"omitempty,phone"`
}

// HandleUpdateProfile applies a partial profile update.
func (h *ProfileHandler) HandleUpdateProfile(c *fiber.Ctx) error {
	var req UpdateProfileRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidBody(c, err)
	}
	if err := h.validate.Struct(req); err != nil {
		return validationFailed(c, err)
	}

	account, err := h.authService.UpdateProfile(middleware.Role(c), middleware.AccountID(c), services.ProfileUpdate{
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		Email:       req.Email,
		PhoneNumber: req.PhoneNumber,
	})
	if err != nil {
		return fail(c, "Could not update profile", err)
	}
	return c.JSON(fiber.Map{
		"message": "Profile updated successfully",
		"account": account,
	})
}

// HandleDeleteAccount deletes the authenticated account and ends the session.
func (h *ProfileHandler) HandleDeleteAccount(c *fiber.Ctx) error {
	role := middleware.Role(c)
	if err := h.authService.DeleteAccount(role, middleware.AccountID(c)); err != nil {
		return fail(c, "Could not delete account", err)
	}
	if role == models.RoleFarmer && h.products != nil {
		h.products.InvalidateListings()
	}
	h.authService.Logout(middleware.Claims(c))
	c.ClearCookie(middleware.SessionCookie)
	return c.JSON(fiber.Map{
		"message": "Account deleted successfully",
	})
}
