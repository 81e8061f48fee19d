package handlers

import (
	"log"
	"time"

	"github.com/Murega14/agrilink/internal/middleware"
	"github.com/Murega14/agrilink/internal/models"
	"github.com/Murega14/agrilink/internal/services"
	"github.com/Murega14/agrilink/internal/validation"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// AuthHandler handles HTTP requests for authentication.
type AuthHandler struct {
	authService  *services.AuthService
	validate     *validator.Validate
	secureCookie bool
}

// NewAuthHandler creates a new AuthHandler. secureCookie marks the session
// cookie HTTPS-only.
func NewAuthHandler(authService *services.AuthService, secureCookie bool) *AuthHandler {
	return &AuthHandler{
		authService:  authService,
		validate:     validation.New(),
		secureCookie: secureCookie,
	}
}

// RegisterRoutes registers the authentication routes. auth guards the routes
// that act on the current session.
func (h *AuthHandler) RegisterRoutes(router fiber.Router, auth fiber.Handler) {
	router.Post("/signup/farmer", h.signup(models.RoleFarmer))
	router.Post("/signup/buyer", h.signup(models.RoleBuyer))
	router.Post("/login/farmer", h.login(models.RoleFarmer))
	router.Post("/login/buyer", h.login(models.RoleBuyer))
	router.Post("/refresh_token", h.HandleRefresh)
	router.Post("/forgot_password", h.HandleForgotPassword)
	router.Post("/reset_password/:token", h.HandleResetPassword)
	router.Post("/logout", auth, h.HandleLogout)
	router.Post("/change_password", auth, h.HandleChangePassword)
}

// SignupRequest represents the request body for signup.
type SignupRequest struct {
	FirstName   string `json:"first_name" validate:"required,max=50"`
	LastName    string `json:"last_name" validate:"required,max=50"`
	PhoneNumber string `json:"phone_number" validate:"required,phone"`
	Email       string `json:"email" validate:"required,email,max=100"`
	Password    string `json:"password" validate:"required,password"`
}

func (h *AuthHandler) signup(role models.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req SignupRequest
		if err := c.BodyParser(&req); err != nil {
			return invalidBody(c, err)
		}
		if err := h.validate.Struct(req); err != nil {
			return validationFailed(c, err)
		}

		account, err := h.authService.Register(role, services.SignupInput{
			FirstName:   req.FirstName,
			LastName:    req.LastName,
			PhoneNumber: req.PhoneNumber,
			Email:       req.Email,
			Password:    req.Password,
		})
		if err != nil {
			return fail(c, "Registration failed", err)
		}

		return c.Status(fiber.StatusCreated).JSON(fiber.Map{
			"message": string(role) + " account created successfully",
			"account": account,
		})
	}
}

// LoginRequest represents the request body for login.
type LoginRequest struct {
	Identifier string `json:"identifier" validate:"required"`
	Password   string `json:"password" validate:"required"`
}

func (h *AuthHandler) login(role models.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req LoginRequest
		if err := c.BodyParser(&req); err != nil {
			return invalidBody(c, err)
		}
		if err := h.validate.Struct(req); err != nil {
			return validationFailed(c, err)
		}

		pair, err := h.authService.Login(role, req.Identifier, req.Password)
		if err != nil {
			return fail(c, "Authentication failed", err)
		}

		h.setSession(c, pair.AccessToken, h.authService.AccessTTL())
		return c.JSON(fiber.Map{
			"message":       "Login successful",
			"token":         pair.AccessToken,
			"refresh_token": pair.RefreshToken,
			"expires_in":    pair.ExpiresIn,
		})
	}
}

// RefreshRequest represents the request body for a token refresh.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// HandleRefresh exchanges a refresh token for a new token pair.
func (h *AuthHandler) HandleRefresh(c *fiber.Ctx) error {
	var req RefreshRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidBody(c, err)
	}
	if err := h.validate.Struct(req); err != nil {
		return validationFailed(c, err)
	}

	pair, err := h.authService.Refresh(req.RefreshToken)
	if err != nil {
		return fail(c, "Token refresh failed", err)
	}

	h.setSession(c, pair.AccessToken, time.Duration(pair.ExpiresIn)*time.Second)
	return c.JSON(fiber.Map{
		"message":       "Token refreshed",
		"token":         pair.AccessToken,
		"refresh_token": pair.RefreshToken,
		"expires_in":    pair.ExpiresIn,
	})
}

// HandleLogout revokes the current access token and clears the session cookie.
func (h *AuthHandler) HandleLogout(c *fiber.Ctx) error {
	h.authService.Logout(middleware.Claims(c))
	c.ClearCookie(middleware.SessionCookie)
	return c.JSON(fiber.Map{
		"message": "Logged out successfully",
	})
}

// ChangePasswordRequest represents the request body for a password change.
type ChangePasswordRequest struct {
	OldPassword string `json:"old_password" validate:"required"`
	NewPassword string `json:"new_password" validate:"required,password"`
}

// HandleChangePassword replaces the current account's password.
func (h *AuthHandler) HandleChangePassword(c *fiber.Ctx) error {
	var req ChangePasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidBody(c, err)
	}
	if err := h.validate.Struct(req); err != nil {
		return validationFailed(c, err)
	}

	if err := h.authService.ChangePassword(middleware.Role(c), middleware.AccountID(c), req.OldPassword, req.NewPassword); err != nil {
		return fail(c, "Could not change password", err)
	}
	return c.JSON(fiber.Map{
		"message": "Password changed successfully",
	})
}

// ForgotPasswordRequest represents the request body for a reset link.
type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// HandleForgotPassword queues a reset e-mail. The response is the same
// whether or not the address is registered.
func (h *AuthHandler) HandleForgotPassword(c *fiber.Ctx) error {
	var req ForgotPasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidBody(c, err)
	}
	if err := h.validate.Struct(req); err != nil {
		return validationFailed(c, err)
	}

	if err := h.authService.ForgotPassword(req.Email); err != nil {
		log.Printf("Error sending password reset for %s: %v", req.Email, err)
	}
	return c.JSON(fiber.Map{
		"message": "If the email exists, a reset link has been sent",
	})
}

// ResetPasswordRequest represents the request body for a password reset.
type ResetPasswordRequest struct {
	Password string `json:"password" validate:"required,password"`
}

// HandleResetPassword sets a new password using the token from the reset link.
func (h *AuthHandler) HandleResetPassword(c *fiber.Ctx) error {
	var req ResetPasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidBody(c, err)
	}
	if err := h.validate.Struct(req); err != nil {
		return validationFailed(c, err)
	}

	if err := h.authService.ResetPassword(c.Params("token"), req.Password); err != nil {
		return fail(c, "Could not reset password", err)
	}
	return c.JSON(fiber.Map{
		"message": "Password has been reset",
	})
}

func (h *AuthHandler) setSession(c *fiber.Ctx, token string, ttl time.Duration) {
	c.Cookie(&fiber.Cookie{
		Name:     middleware.SessionCookie,
		Value:    token,
		MaxAge:   int(ttl.Seconds()),
		HTTPOnly: true,
		Secure:   h.secureCookie,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}
