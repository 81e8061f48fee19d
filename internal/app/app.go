// Package app assembles the HTTP application from its repositories,
// services and handlers.
package app

import (
	"time"

	"github.com/Murega14/agrilink/internal/cache"
	"github.com/Murega14/agrilink/internal/config"
	"github.com/Murega14/agrilink/internal/handlers"
	"github.com/Murega14/agrilink/internal/middleware"
	"github.com/Murega14/agrilink/internal/repositories"
	"github.com/Murega14/agrilink/internal/services"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"gorm.io/gorm"
)

// revokedTokensSize bounds the logout deny list.
const revokedTokensSize = 10000

// Services exposes the wired services, mainly for tests.
type Services struct {
	Auth     *services.AuthService
	Products *services.ProductService
	Orders   *services.OrderService
}

// New builds the Fiber app. publisher may be nil, in which case events are
// not published.
func New(db *gorm.DB, cfg *config.Config, publisher services.EventPublisher) (*fiber.App, *Services) {
	// --- Initialize Repositories ---
	accountRepo := repositories.NewGORMAccountRepository(db)
	productRepo := repositories.NewGORMProductRepository(db)
	orderRepo := repositories.NewGORMOrderRepository(db)
	store := repositories.NewGORMStore(db)

	// --- Initialize Services ---
	listings := cache.New(cfg.Cache.Size, cfg.Cache.TTL)
	authService := services.NewAuthService(accountRepo, services.AuthConfig{
		JWTSecret:          cfg.JWT.Secret,
		AccessTTL:          cfg.JWT.AccessTTL,
		RefreshTTL:         cfg.JWT.RefreshTTL,
		RefreshedAccessTTL: cfg.JWT.RefreshedAccessTTL,
		ResetTTL:           cfg.JWT.ResetTTL,
		ResetURL:           cfg.ResetURL(),
		Revoked:            cache.New(revokedTokensSize, cfg.JWT.RefreshTTL),
		Publisher:          publisher,
	})
	productService := services.NewProductService(productRepo, listings)
	orderService := services.NewOrderService(store, orderRepo, listings, publisher)

	// --- Initialize Handlers ---
	authHandler := handlers.NewAuthHandler(authService, cfg.App.SecureCookies)
	profileHandler := handlers.NewProfileHandler(authService, productService)
	productHandler := handlers.NewProductHandler(productService)
	orderHandler := handlers.NewOrderHandler(orderService)
	dashboardHandler := handlers.NewDashboardHandler(orderService, productService)

	// --- Initialize Fiber App ---
	app := fiber.New(fiber.Config{
		AppName: "agrilink",
	})

	// --- Middleware ---
	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.App.CORSOrigins,
		AllowCredentials: cfg.App.CORSOrigins != "*",
	}))

	// --- Health Check Endpoint ---
	app.Get("/health", func(c *fiber.Ctx) error {
		code, status, dbStatus := fiber.StatusOK, "healthy", "up"
		if sqlDB, err := db.DB(); err != nil || sqlDB.Ping() != nil {
			code, status, dbStatus = fiber.StatusServiceUnavailable, "unhealthy", "down"
		}
		return c.Status(code).JSON(fiber.Map{
			"status":    status,
			"time":      time.Now().Format(time.RFC3339),
			"database":  dbStatus,
			"messaging": publisher != nil,
		})
	})

	// --- API Routes ---
	apiV1 := app.Group("/api/v1")
	auth := middleware.AuthRequired(authService)

	authHandler.RegisterRoutes(apiV1, auth)
	profileHandler.RegisterRoutes(apiV1, auth)
	productHandler.RegisterRoutes(apiV1, auth)
	orderHandler.RegisterRoutes(apiV1, auth)
	dashboardHandler.RegisterRoutes(apiV1, auth)

	return app, &Services{
		Auth:     authService,
		Products: productService,
		Orders:   orderService,
	}
}
