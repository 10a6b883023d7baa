package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/teztrade/pricesync/internal/db"
	"github.com/teztrade/pricesync/internal/models"
)

// respondStoreError maps a store failure onto the right status code
func respondStoreError(c *gin.Context, title string, err error) {
	status := http.StatusInternalServerError
	if errors.Is(err, db.ErrNotFound) {
		status = http.StatusNotFound
	}
	c.JSON(status, models.ErrorResponse{
		Error:   title,
		Message: err.Error(),
	})
}

// GetSuppliers returns all suppliers
func (h *Handler) GetSuppliers(c *gin.Context) {
	if !h.requireStore(c) {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	suppliers, err := h.store.ListSuppliers(ctx)
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error:   "Failed to get suppliers",
			Message: err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, models.SuccessResponse{
		Message: "Suppliers retrieved successfully",
		Data:    gin.H{"suppliers": suppliers, "total": len(suppliers)},
	})
}

// GetSupplier returns one supplier by id
func (h *Handler) GetSupplier(c *gin.Context) {
	if !h.requireStore(c) {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	supplier, err := h.store.GetSupplier(ctx, c.Param("supplier_id"))
	if err != nil {
		respondStoreError(c, "Failed to get supplier", err)
		return
	}

	c.JSON(http.StatusOK, models.SuccessResponse{
		Message: "Supplier retrieved successfully",
		Data:    supplier,
	})
}

// CreateSupplier creates a supplier
func (h *Handler) CreateSupplier(c *gin.Context) {
	if !h.requireStore(c) {
		return
	}

	var req models.SupplierRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "Invalid request",
			Message: err.Error(),
		})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	supplier, err := h.store.CreateSupplier(ctx, req)
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error:   "Failed to create supplier",
			Message: err.Error(),
		})
		return
	}

	c.JSON(http.StatusCreated, models.SuccessResponse{
		Message: "Supplier created successfully",
		Data:    supplier,
	})
}

// UpdateSupplier updates a supplier
func (h *Handler) UpdateSupplier(c *gin.Context) {
	if !h.requireStore(c) {
		return
	}

	var req models.SupplierRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "Invalid request",
			Message: err.Error(),
		})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	supplier, err := h.store.UpdateSupplier(ctx, c.Param("supplier_id"), req)
	if err != nil {
		respondStoreError(c, "Failed to update supplier", err)
		return
	}

	c.JSON(http.StatusOK, models.SuccessResponse{
		Message: "Supplier updated successfully",
		Data:    supplier,
	})
}

// DeleteSupplier deletes a supplier
func (h *Handler) DeleteSupplier(c *gin.Context) {
	if !h.requireStore(c) {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := h.store.DeleteSupplier(ctx, c.Param("supplier_id")); err != nil {
		respondStoreError(c, "Failed to delete supplier", err)
		return
	}

	c.JSON(http.StatusOK, models.SuccessResponse{
		Message: "Supplier deleted successfully",
	})
}

// GetMarketplaces returns all marketplaces
func (h *Handler) GetMarketplaces(c *gin.Context) {
	if !h.requireStore(c) {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	marketplaces, err := h.store.ListMarketplaces(ctx)
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error:   "Failed to get marketplaces",
			Message: err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, models.SuccessResponse{
		Message: "Marketplaces retrieved successfully",
		Data:    gin.H{"marketplaces": marketplaces, "total": len(marketplaces)},
	})
}

// GetMarketplace returns one marketplace by id
func (h *Handler) GetMarketplace(c *gin.Context) {
	if !h.requireStore(c) {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	marketplace, err := h.store.GetMarketplace(ctx, c.Param("marketplace_id"))
	if err != nil {
		respondStoreError(c, "Failed to get marketplace", err)
		return
	}

	c.JSON(http.StatusOK, models.SuccessResponse{
		Message: "Marketplace retrieved successfully",
		Data:    marketplace,
	})
}

// CreateMarketplace creates a marketplace
func (h *Handler) CreateMarketplace(c *gin.Context) {
	if !h.requireStore(c) {
		return
	}

	var req models.MarketplaceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "Invalid request",
			Message: err.Error(),
		})
		return
	}
	if !req.PricingAction.IsValid() {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "Invalid pricing action",
			Message: "Pricing action must be one of: multiply, add",
		})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	marketplace, err := h.store.CreateMarketplace(ctx, req)
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error:   "Failed to create marketplace",
			Message: err.Error(),
		})
		return
	}

	c.JSON(http.StatusCreated, models.SuccessResponse{
		Message: "Marketplace created successfully",
		Data:    marketplace,
	})
}

// UpdateMarketplace updates a marketplace
func (h *Handler) UpdateMarketplace(c *gin.Context) {
	if !h.requireStore(c) {
		return
	}

	var req models.MarketplaceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "Invalid request",
			Message: err.Error(),
		})
		return
	}
	if !req.PricingAction.IsValid() {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "Invalid pricing action",
			Message: "Pricing action must be one of: multiply, add",
		})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	marketplace, err := h.store.UpdateMarketplace(ctx, c.Param("marketplace_id"), req)
	if err != nil {
		respondStoreError(c, "Failed to update marketplace", err)
		return
	}

	c.JSON(http.StatusOK, models.SuccessResponse{
		Message: "Marketplace updated successfully",
		Data:    marketplace,
	})
}

// DeleteMarketplace deletes a marketplace
func (h *Handler) DeleteMarketplace(c *gin.Context) {
	if !h.requireStore(c) {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := h.store.DeleteMarketplace(ctx, c.Param("marketplace_id")); err != nil {
		respondStoreError(c, "Failed to delete marketplace", err)
		return
	}

	c.JSON(http.StatusOK, models.SuccessResponse{
		Message: "Marketplace deleted successfully",
	})
}
