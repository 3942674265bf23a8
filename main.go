package main

import (
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yourusername/shop-license/config"
	"github.com/yourusername/shop-license/gateway"
	"github.com/yourusername/shop-license/handlers"
	"github.com/yourusername/shop-license/middleware"
	"github.com/yourusername/shop-license/services"
	"github.com/yourusername/shop-license/storage"
	"github.com/yourusername/shop-license/store"
)

func buildGateway(cfg *config.Config) (gateway.PaymentGateway, error) {
	switch cfg.PaymentProvider {
	case "zarinpal":
		return gateway.NewZarinpal(cfg.ZarinpalMerchant, cfg.ZarinpalSandbox), nil
	case "paypal":
		return gateway.NewPayPal(cfg.PayPalClientID, cfg.PayPalSecret, cfg.PayPalSandbox, cfg.TomanEuroRate), nil
	default:
		return nil, fmt.Errorf("unknown payment provider %q", cfg.PaymentProvider)
	}
}

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize database
	db, err := config.InitDB(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	// Payment provider is chosen once here, never swapped at runtime
	paymentGateway, err := buildGateway(cfg)
	if err != nil {
		log.Fatalf("Failed to configure payment gateway: %v", err)
	}

	shops := store.NewShopStore(db)
	invoices := store.NewInvoiceStore(db)
	licenseService := services.NewLicenseService(shops)
	invoiceService := services.NewInvoiceService(shops, invoices)
	settlementService := services.NewSettlementService(
		invoices, invoiceService, paymentGateway,
		cfg.CallbackBaseURL+"/api/v1/payments/callback",
	)
	receiptStorage := storage.NewDiskStorage(cfg.ReceiptStorageDir, cfg.ReceiptBaseURL)

	shopHandler := handlers.NewShopHandler(shops)
	licenseHandler := handlers.NewLicenseHandler(licenseService)
	invoiceHandler := handlers.NewInvoiceHandler(invoiceService, receiptStorage)
	paymentHandler := handlers.NewPaymentHandler(settlementService, cfg.PaymentSuccessURL, cfg.PaymentFailureURL)

	// Setup router
	router := gin.Default()

	// CORS middleware
	router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-License-Key")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	})

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"service": "shop-license-api",
		})
	})

	router.Static("/uploads", cfg.ReceiptStorageDir)

	// API routes
	api := router.Group("/api/v1")
	{
		// License activation/validation (public; called by the in-app tool)
		api.POST("/licenses/activate", licenseHandler.Activate)
		api.POST("/licenses/validate", licenseHandler.Validate)

		// Gateway callback (provider-invoked, correlated by authority token)
		api.GET("/payments/callback", paymentHandler.Callback)

		// Admin endpoints
		admin := api.Group("/admin")
		admin.Use(middleware.JwtAuthMiddleware(cfg.JWTSecret), middleware.RequireRole("admin"))
		{
			admin.POST("/shops", shopHandler.CreateShop)
			admin.GET("/shops/:id", shopHandler.GetShop)
			admin.PUT("/shops/:id", shopHandler.UpdateShop)
			admin.POST("/shops/:id/regenerate", shopHandler.RegenerateLicense)

			admin.POST("/invoices", invoiceHandler.CreateInvoice)
			admin.GET("/invoices/:id", invoiceHandler.GetInvoice)
			admin.POST("/invoices/:id/approve", invoiceHandler.ApproveInvoice)
			admin.POST("/invoices/:id/reject", invoiceHandler.RejectInvoice)
		}

		// Licensed-shop endpoints, guarded on every call
		shop := api.Group("/shop")
		shop.Use(middleware.LicenseAuthMiddleware(shops))
		{
			shop.GET("/profile", licenseHandler.Profile)
			shop.POST("/generations", licenseHandler.ConsumeGeneration)
			shop.POST("/invoices/:id/receipt", invoiceHandler.UploadReceipt)
			shop.POST("/invoices/:id/pay", paymentHandler.InitiatePayment)
		}
	}

	// Start server
	port := cfg.Port
	if port == "" {
		port = "8080"
	}

	log.Printf("Starting shop-license API server on port %s", port)
	if err := router.Run(":" + port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
