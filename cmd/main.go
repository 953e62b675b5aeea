package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"menew-api/internal/handler"
	"menew-api/internal/middleware"
	"menew-api/internal/model"
	"menew-api/internal/realtime"
	"menew-api/pkg/cache"
	"menew-api/pkg/config"
	"menew-api/pkg/database"
	"menew-api/pkg/jwtutil"
	"menew-api/pkg/logger"
	"menew-api/pkg/upload"
	"menew-api/prometheus"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
)

func main() {
	// Load configuration from .env file and environment variables
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger with config
	logger.InitLogger(cfg)
	log := logger.GetLogger()
	log.Info("Starting menu service...", cfg.LogConfig()...)

	// Initialize database
	if _, err := database.InitDB(&cfg.DB); err != nil {
		log.Fatal("Failed to initialize database", zap.Error(err))
	}
	if err := database.MigrateModels(
		&model.Tenant{},
		&model.Subscription{},
		&model.User{},
		&model.Store{},
		&model.Category{},
		&model.Product{},
		&model.Table{},
		&model.Order{},
		&model.OrderItem{},
		&model.OrderCounter{},
	); err != nil {
		log.Fatal("Failed to migrate database", zap.Error(err))
	}
	log.Info("Database connection established")

	// Initialize JWT utility
	jwtutil.Initialize(&cfg.JWT)

	// Initialize upload directory
	if err := upload.Initialize(&cfg.Upload); err != nil {
		log.Fatal("Failed to initialize upload directory", zap.Error(err))
	}

	// Initialize the optional Redis menu cache
	if err := cache.Initialize(&cfg.Redis); err != nil {
		log.Warn("Menu cache unavailable, serving without it", zap.Error(err))
	}

	// Initialize Prometheus metrics
	prometheus.InitMetrics(cfg)

	// Start the realtime hub
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	hub := realtime.InitHub(log)
	go hub.Run(ctx)

	// Initialize Echo framework
	e := echo.New()
	e.HideBanner = true

	// Apply global middleware - order matters
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.CORS())
	e.Use(middleware.RequestIDMiddleware)
	e.Use(logger.Middleware())
	e.Use(prometheus.MetricsMiddleware())

	// Public routes - no authentication required
	e.GET("/api/health", handler.HealthCheck)
	e.GET("/metrics", handler.MetricsHandler)
	e.GET("/ws", handler.ServeWS)
	e.Static("/uploads", cfg.Upload.Dir)

	// Authentication routes, rate limited against credential stuffing
	auth := e.Group("/api/auth")
	auth.Use(echomiddleware.RateLimiter(echomiddleware.NewRateLimiterMemoryStore(10)))
	auth.POST("/login", handler.Login)
	auth.POST("/refresh", handler.Refresh)
	auth.POST("/setup", handler.Setup)
	auth.POST("/register", handler.Register, middleware.AuthMiddleware,
		middleware.RequireRoles(model.RoleSuperAdmin, model.RoleOwner))
	auth.GET("/me", handler.Me, middleware.AuthMiddleware)

	// Public guest surface: menu browsing and order placement
	e.GET("/api/menu/:storeSlug", handler.GetMenu)
	e.POST("/api/orders", handler.CreateOrder)

	// Staff API - everything below requires authentication
	api := e.Group("/api")
	api.Use(middleware.AuthMiddleware)

	// Platform administration
	tenants := api.Group("/tenants")
	tenants.Use(middleware.RequireRoles(model.RoleSuperAdmin))
	tenants.GET("", handler.ListTenants)
	tenants.POST("", handler.CreateTenant)
	tenants.GET("/:id", handler.GetTenant)
	tenants.PATCH("/:id", handler.UpdateTenant)
	tenants.DELETE("/:id", handler.DeleteTenant)

	// Store management
	stores := api.Group("/stores")
	stores.Use(middleware.RequireRoles(model.RoleSuperAdmin, model.RoleOwner))
	stores.GET("", handler.ListStores)
	stores.POST("", handler.CreateStore)
	stores.GET("/:id", handler.GetStore)
	stores.PATCH("/:id", handler.UpdateStore)

	// Store content management, open to managers as well
	staff := api.Group("", middleware.RequireRoles(model.RoleSuperAdmin, model.RoleOwner, model.RoleManager))

	staff.GET("/categories", handler.ListCategories)
	staff.POST("/categories", handler.CreateCategory)
	staff.PATCH("/categories/:id", handler.UpdateCategory)
	staff.DELETE("/categories/:id", handler.DeleteCategory)

	staff.GET("/products", handler.ListProducts)
	staff.POST("/products", handler.CreateProduct)
	staff.PATCH("/products/:id", handler.UpdateProduct)
	staff.PATCH("/products/:id/availability", handler.ToggleAvailability)
	staff.DELETE("/products/:id", handler.DeleteProduct)

	staff.GET("/tables", handler.ListTables)
	staff.POST("/tables", handler.CreateTable)
	staff.DELETE("/tables/:id", handler.DeleteTable)

	staff.GET("/orders", handler.ListOrders)
	staff.PATCH("/orders/:id/status", handler.UpdateOrderStatus)

	staff.GET("/reports/sales", handler.GetSalesReport)
	staff.GET("/reports/affinity", handler.GetAffinityReport)

	// Start server
	go func() {
		log.Info("Starting server", zap.String("port", cfg.Server.Port))
		if err := e.Start(":" + cfg.Server.Port); err != nil {
			log.Info("Server stopped", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error("Server shutdown failed", zap.Error(err))
	}
	hub.Wait()
	cache.GetCache().Close()
	log.Info("Shutdown complete")
}
