package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/teztrade/pricesync/internal/api"
	"github.com/teztrade/pricesync/internal/db"
	"github.com/teztrade/pricesync/internal/kaspi"
	"github.com/teztrade/pricesync/internal/logging"
	"github.com/teztrade/pricesync/internal/models"
	"github.com/teztrade/pricesync/internal/scheduler"
	"github.com/teztrade/pricesync/internal/supplier"
	"github.com/teztrade/pricesync/internal/syncrun"
)

func main() {
	// Load environment variables from .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	log.SetOutput(os.Stdout)

	log.Printf("Price Sync Service starting (GIT_SHA=%s BUILD_TIME=%s)", os.Getenv("GIT_SHA"), os.Getenv("BUILD_TIME"))

	// Initialize database connection (non-fatal to allow liveness health checks)
	database, err := db.NewDatabase()
	if err != nil {
		log.Printf("[WARN] Database initialization failed at startup: %v", err)
	}
	if database != nil {
		defer database.Close()
	}

	// Sandbox quota: persisted when the database is up, session-scoped otherwise
	var guard syncrun.Guard
	var store api.Store
	var syncStore syncrun.Store
	if database != nil {
		guard = syncrun.NewStoreGuard(database)
		store = database
		syncStore = database
	} else {
		guard = syncrun.NewMemoryGuard(10)
	}

	// Marketplace rows carry either an API token or cabinet credentials;
	// the token wins when both are present.
	clientFor := func(mp models.Marketplace) *kaspi.Client {
		client := kaspi.NewClient(mp.APIEndpoint, mp.APIKey)
		if mp.APIKey == "" && mp.Login != "" {
			client.WithBasicAuth(mp.Login, mp.Password)
		}
		return client
	}
	uploaderFor := func(mp models.Marketplace) syncrun.Uploader {
		return clientFor(mp)
	}
	ordersFor := func(mp models.Marketplace) api.OrderClient {
		return clientFor(mp)
	}

	syncService := syncrun.NewService(syncStore, supplier.NewHTTPSource(), uploaderFor, guard, syncrun.NewManager())

	// Auto-mode scheduler runs only with a live database
	var sched api.Scheduler
	if database != nil {
		s := scheduler.New(database, syncService)
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := s.Start(ctx); err != nil {
			log.Printf("[WARN] Scheduler failed to start: %v", err)
		}
		cancel()
		defer s.Stop()
		sched = s
	}

	handler := api.NewHandler(store, syncService, guard, ordersFor, sched)

	router := setupRouter(handler)

	port := os.Getenv("SYNC_PORT")
	if port == "" {
		port = "8084"
	}

	// Set up graceful shutdown
	go func() {
		log.Printf("Starting price sync service on port %s", port)
		if err := router.Run(":" + port); err != nil {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down price sync service...")
}

func setupRouter(handler *api.Handler) *gin.Engine {
	// Set Gin mode based on environment
	if os.Getenv("GIN_MODE") == "" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Add middleware
	router.Use(logging.JSONLogger())
	router.Use(gin.Recovery())
	router.Use(corsMiddleware())

	// Health and readiness endpoints
	router.GET("/live", func(c *gin.Context) { c.Status(200) })
	router.GET("/ready", handler.Health)
	router.GET("/health", func(c *gin.Context) { c.Status(200) })

	// API routes with JWT protection
	apiGroup := router.Group("/api")
	apiGroup.Use(api.AuthMiddleware())
	{
		// Reconciled product list, price changes first
		apiGroup.GET("/products", handler.GetProducts)
		apiGroup.GET("/products/:product_id", handler.GetProduct)
		apiGroup.PUT("/products/:product_id", handler.UpdateProduct)
		apiGroup.DELETE("/products/:product_id", handler.DeleteProduct)

		// Price list export
		apiGroup.GET("/export/pricelist", handler.ExportPriceList)

		// Catalog of sync endpoints
		apiGroup.GET("/suppliers", handler.GetSuppliers)
		apiGroup.GET("/suppliers/:supplier_id", handler.GetSupplier)
		apiGroup.GET("/marketplaces", handler.GetMarketplaces)
		apiGroup.GET("/marketplaces/:marketplace_id", handler.GetMarketplace)

		// Sync runs
		apiGroup.POST("/sync/download", handler.StartDownload)
		apiGroup.POST("/sync/upload", handler.StartUpload)
		apiGroup.GET("/sync/runs", handler.ListRuns)
		apiGroup.GET("/sync/runs/:run_id", handler.GetRun)
		apiGroup.POST("/sync/runs/:run_id/cancel", handler.CancelRun)

		// Per-user sandbox settings and quota
		apiGroup.GET("/settings/sandbox", handler.GetSandboxSettings)
		apiGroup.PUT("/settings/sandbox", handler.UpdateSandboxSettings)
		apiGroup.POST("/settings/sandbox/reset", handler.ResetTestRequests)
		apiGroup.GET("/settings/automation", handler.GetAutomationSettings)

		// Marketplace order passthrough
		apiGroup.GET("/marketplaces/:marketplace_id/orders", handler.ListOrders)
		apiGroup.GET("/marketplaces/:marketplace_id/orders/:order_id/entries", handler.GetOrderEntries)
		apiGroup.POST("/marketplaces/:marketplace_id/orders/:order_id/accept", handler.AcceptOrder)
		apiGroup.PUT("/marketplaces/:marketplace_id/orders/:order_id/status", handler.UpdateOrderStatus)
		apiGroup.DELETE("/marketplaces/:marketplace_id/orders/:order_id", handler.CancelOrder)
		apiGroup.POST("/marketplaces/:marketplace_id/orders/:order_id/waybill", handler.CreateWaybill)
		apiGroup.PUT("/marketplaces/:marketplace_id/entries/:entry_id/imei", handler.SetEntryIMEI)
	}

	// Mutations restricted to admin and manager roles
	managerGroup := router.Group("/api")
	managerGroup.Use(api.AuthMiddleware())
	managerGroup.Use(api.ManagerMiddleware())
	{
		managerGroup.POST("/suppliers", handler.CreateSupplier)
		managerGroup.PUT("/suppliers/:supplier_id", handler.UpdateSupplier)
		managerGroup.DELETE("/suppliers/:supplier_id", handler.DeleteSupplier)

		managerGroup.POST("/marketplaces", handler.CreateMarketplace)
		managerGroup.PUT("/marketplaces/:marketplace_id", handler.UpdateMarketplace)
		managerGroup.DELETE("/marketplaces/:marketplace_id", handler.DeleteMarketplace)

		managerGroup.PUT("/settings/automation", handler.UpdateAutomationSettings)
	}

	// Root endpoint for basic info
	router.GET("/", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"service": "price-sync",
			"version": "1.0.0",
			"status":  "running",
		})
	})

	return router
}

// corsMiddleware adds CORS headers to allow cross-origin requests
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, X-Admin-Request")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}
