// internal/router/router.go
package router

import (
	"net/http"
	"os"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/elianhardyy/clothing-marketplace/internal/config"
	"github.com/elianhardyy/clothing-marketplace/internal/handlers"
	"github.com/elianhardyy/clothing-marketplace/internal/middleware"
	"github.com/elianhardyy/clothing-marketplace/internal/models"
	"github.com/elianhardyy/clothing-marketplace/internal/services"
	"github.com/elianhardyy/clothing-marketplace/internal/utils"
)

func Initialize(db *gorm.DB, cfg *config.Config) (*gin.Engine, error) {
	// Initialize services
	storageService, err := services.NewStorageService(cfg)
	if err != nil {
		return nil, err
	}
	gatewayService := services.NewGatewayService(cfg)

	userService := services.NewUserService(db, cfg)
	productService := services.NewProductService(db, storageService)
	transactionService := services.NewTransactionService(db, cfg, gatewayService)
	orderService, err := services.NewOrderService(db, cfg, transactionService, gatewayService)
	if err != nil {
		return nil, err
	}

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(userService)
	productHandler := handlers.NewProductHandler(productService)
	orderHandler := handlers.NewOrderHandler(orderService)
	transactionHandler := handlers.NewTransactionHandler(transactionService)

	// Set JWT secret
	utils.SetJWTSecret(cfg.JWT.SecretKey)

	// Initialize Gin router
	r := gin.New()

	// Global middleware
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger())
	r.Use(middleware.CORS(allowedOrigins()))
	r.Use(middleware.GeneralRateLimit())

	// Health check
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"version": "1.0.0",
		})
	})

	// API v1 routes
	v1 := r.Group("/v1")
	{
		// Authentication routes
		auth := v1.Group("/auth")
		auth.Use(middleware.AuthRateLimit())
		{
			auth.POST("/register", authHandler.Register)
			auth.POST("/register-merchant", authHandler.RegisterMerchant)
			auth.POST("/login", authHandler.Login)
			auth.POST("/refresh", authHandler.RefreshToken)
			auth.GET("/me", middleware.AuthRequired(), authHandler.GetProfile)
			auth.PUT("/me", middleware.AuthRequired(), authHandler.UpdateProfile)
		}

		// User routes
		users := v1.Group("/users")
		users.Use(middleware.AuthRequired())
		{
			users.GET("/customers", middleware.RolesRequired(models.RoleMerchant), authHandler.GetCustomers)
		}

		// Product routes
		products := v1.Group("/products")
		{
			products.GET("", middleware.OptionalAuth(), productHandler.GetProducts)
			products.GET("/featured", productHandler.GetFeaturedProducts)
			products.GET("/categories", productHandler.GetCategories)
			products.GET("/:id", middleware.OptionalAuth(), productHandler.GetProduct)

			// Merchant-only catalog management
			protected := products.Group("")
			protected.Use(middleware.AuthRequired(), middleware.RolesRequired(models.RoleMerchant))
			{
				protected.POST("", productHandler.CreateProduct)
				protected.PUT("/:id", productHandler.UpdateProduct)
				protected.DELETE("/:id", productHandler.DeleteProduct)
				protected.POST("/:id/images", middleware.UploadRateLimit(), productHandler.UploadProductImage)
			}
		}

		// Order routes
		orders := v1.Group("/orders")
		orders.Use(middleware.AuthRequired())
		{
			orders.POST("", middleware.RolesRequired(models.RoleCustomer), orderHandler.CreateOrder)
			orders.GET("/my-orders", orderHandler.GetMyOrders)
			orders.GET("", middleware.RolesRequired(models.RoleMerchant), orderHandler.GetAllOrders)
			orders.GET("/stats/overview", middleware.RolesRequired(models.RoleMerchant), orderHandler.GetOrderStats)
			orders.GET("/:id", orderHandler.GetOrder)
			orders.PUT("/:id/status", middleware.RolesRequired(models.RoleMerchant), orderHandler.UpdateOrderStatus)
			orders.POST("/:id/pay", middleware.RolesRequired(models.RoleCustomer), orderHandler.PayOrder)
		}

		// Transaction routes
		transactions := v1.Group("/api/transactions")
		transactions.Use(middleware.AuthRequired())
		{
			transactions.POST("/payment", transactionHandler.CreatePaymentTransaction)
			transactions.POST("/refund", middleware.RolesRequired(models.RoleMerchant), transactionHandler.CreateRefundTransaction)
			transactions.PATCH("/:id/status", middleware.RolesRequired(models.RoleMerchant), transactionHandler.UpdateTransactionStatus)
			transactions.PATCH("/:id/complete-refund", middleware.RolesRequired(models.RoleMerchant), transactionHandler.CompleteRefundTransaction)
			transactions.GET("/stats", middleware.RolesRequired(models.RoleMerchant), transactionHandler.GetTransactionStats)
			transactions.GET("/number/:number", transactionHandler.GetTransactionByNumber)
			transactions.GET("/order/:orderId", transactionHandler.GetOrderTransactions)
			transactions.GET("/user/:userId", transactionHandler.GetUserTransactions)
			transactions.GET("/:id", transactionHandler.GetTransaction)
		}
	}

	return r, nil
}

func allowedOrigins() []string {
	raw := os.Getenv("CORS_ALLOWED_ORIGINS")
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	origins := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	return origins
}
