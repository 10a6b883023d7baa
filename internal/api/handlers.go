package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/teztrade/pricesync/internal/kaspi"
	"github.com/teztrade/pricesync/internal/models"
	"github.com/teztrade/pricesync/internal/pricing"
	"github.com/teztrade/pricesync/internal/syncrun"
)

// Store is the persistence surface the HTTP layer depends on.
// *db.Database satisfies it.
type Store interface {
	Health(ctx context.Context) error

	ListSuppliers(ctx context.Context) ([]models.Supplier, error)
	GetSupplier(ctx context.Context, id string) (models.Supplier, error)
	CreateSupplier(ctx context.Context, req models.SupplierRequest) (models.Supplier, error)
	UpdateSupplier(ctx context.Context, id string, req models.SupplierRequest) (models.Supplier, error)
	DeleteSupplier(ctx context.Context, id string) error

	ListMarketplaces(ctx context.Context) ([]models.Marketplace, error)
	GetMarketplace(ctx context.Context, id string) (models.Marketplace, error)
	CreateMarketplace(ctx context.Context, req models.MarketplaceRequest) (models.Marketplace, error)
	UpdateMarketplace(ctx context.Context, id string, req models.MarketplaceRequest) (models.Marketplace, error)
	DeleteMarketplace(ctx context.Context, id string) error

	ListProducts(ctx context.Context) ([]models.Product, error)
	GetProduct(ctx context.Context, id string) (models.Product, error)
	UpdateProduct(ctx context.Context, id string, req models.ProductUpdateRequest) (models.Product, error)
	DeleteProduct(ctx context.Context, id string) error

	GetAutomationSettings(ctx context.Context) (models.AutomationSettings, error)
	UpdateAutomationSettings(ctx context.Context, s models.AutomationSettings) (models.AutomationSettings, error)
	GetSandboxSettings(ctx context.Context, userID string) (models.SandboxSettings, error)
	UpdateSandboxSettings(ctx context.Context, s models.SandboxSettings) (models.SandboxSettings, error)
}

// OrderClient is the slice of the marketplace adapter the order
// passthrough endpoints need
type OrderClient interface {
	ListOrders(ctx context.Context, params kaspi.ListOrdersParams) ([]kaspi.Order, int, error)
	GetOrderEntries(ctx context.Context, orderID string) ([]kaspi.OrderEntry, error)
	AcceptOrder(ctx context.Context, orderID, code string) (kaspi.Order, error)
	UpdateOrderStatus(ctx context.Context, orderID string, status kaspi.OrderStatus) error
	CancelOrder(ctx context.Context, orderID string) error
	CreateWaybill(ctx context.Context, orderID string) (string, error)
	SetEntryIMEI(ctx context.Context, entryID, imei string) error
}

// OrderClientFactory builds an order client for a marketplace's
// endpoint and credentials
type OrderClientFactory func(mp models.Marketplace) OrderClient

// Scheduler is restarted when automation settings change
type Scheduler interface {
	Restart(ctx context.Context) error
}

// Handler holds the store and sync wiring and provides HTTP handlers
type Handler struct {
	store     Store
	sync      *syncrun.Service
	guard     syncrun.Guard
	ordersFor OrderClientFactory
	scheduler Scheduler
}

// NewHandler creates a new handler instance. Store may be nil when the
// database is unavailable at startup; data endpoints then return 503.
func NewHandler(store Store, sync *syncrun.Service, guard syncrun.Guard, ordersFor OrderClientFactory, scheduler Scheduler) *Handler {
	return &Handler{
		store:     store,
		sync:      sync,
		guard:     guard,
		ordersFor: ordersFor,
		scheduler: scheduler,
	}
}

// requireStore rejects the request when the database never came up
func (h *Handler) requireStore(c *gin.Context) bool {
	if h.store == nil {
		c.JSON(http.StatusServiceUnavailable, models.ErrorResponse{
			Error:   "Database unavailable",
			Message: "The service is running without a database connection",
		})
		return false
	}
	return true
}

// Health checks the health of the service
func (h *Handler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if h.store == nil {
		c.JSON(http.StatusServiceUnavailable, models.ErrorResponse{
			Error:   "Database connection failed",
			Message: "No database connection",
		})
		return
	}
	if err := h.store.Health(ctx); err != nil {
		c.JSON(http.StatusServiceUnavailable, models.ErrorResponse{
			Error:   "Database connection failed",
			Message: err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"service":   "price-sync",
		"timestamp": time.Now().UTC(),
	})
}

// enrichedProducts builds the reconciled product view used by the
// product list and the export endpoints
func (h *Handler) enrichedProducts(ctx context.Context) ([]models.EnrichedProduct, error) {
	products, err := h.store.ListProducts(ctx)
	if err != nil {
		return nil, err
	}

	var supplierRows, marketplaceRows []models.Product
	for _, p := range products {
		if p.SupplierID != nil {
			supplierRows = append(supplierRows, p)
		}
		if p.MarketplaceID != nil {
			marketplaceRows = append(marketplaceRows, p)
		}
	}

	enriched := pricing.Reconcile(supplierRows, marketplaceRows)
	pricing.SortForDisplay(enriched)
	return enriched, nil
}

// GetProducts returns the reconciled product list, price changes first
func (h *Handler) GetProducts(c *gin.Context) {
	if !h.requireStore(c) {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	enriched, err := h.enrichedProducts(ctx)
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error:   "Failed to get products",
			Message: err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, models.SuccessResponse{
		Message: "Products retrieved successfully",
		Data:    gin.H{"products": enriched, "total": len(enriched)},
	})
}

// GetProduct returns one product row by id
func (h *Handler) GetProduct(c *gin.Context) {
	if !h.requireStore(c) {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	product, err := h.store.GetProduct(ctx, c.Param("product_id"))
	if err != nil {
		respondStoreError(c, "Failed to get product", err)
		return
	}

	c.JSON(http.StatusOK, models.SuccessResponse{
		Message: "Product retrieved successfully",
		Data:    product,
	})
}

// UpdateProduct applies an admin edit to a product row
func (h *Handler) UpdateProduct(c *gin.Context) {
	if !h.requireStore(c) {
		return
	}

	var req models.ProductUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "Invalid request",
			Message: err.Error(),
		})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	product, err := h.store.UpdateProduct(ctx, c.Param("product_id"), req)
	if err != nil {
		respondStoreError(c, "Failed to update product", err)
		return
	}

	c.JSON(http.StatusOK, models.SuccessResponse{
		Message: "Product updated successfully",
		Data:    product,
	})
}

// DeleteProduct removes a product row
func (h *Handler) DeleteProduct(c *gin.Context) {
	if !h.requireStore(c) {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := h.store.DeleteProduct(ctx, c.Param("product_id")); err != nil {
		respondStoreError(c, "Failed to delete product", err)
		return
	}

	c.JSON(http.StatusOK, models.SuccessResponse{
		Message: "Product deleted successfully",
	})
}
