package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/teztrade/pricesync/internal/kaspi"
	"github.com/teztrade/pricesync/internal/models"
)

// orderClient resolves the marketplace from the URL and builds an adapter
// client for it
func (h *Handler) orderClient(c *gin.Context) (OrderClient, bool) {
	if !h.requireStore(c) {
		return nil, false
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	mp, err := h.store.GetMarketplace(ctx, c.Param("marketplace_id"))
	if err != nil {
		respondStoreError(c, "Failed to get marketplace", err)
		return nil, false
	}

	return h.ordersFor(mp), true
}

// respondRemoteError surfaces the marketplace's own status and body text
func respondRemoteError(c *gin.Context, title string, err error) {
	var remote *kaspi.RemoteError
	if errors.As(err, &remote) {
		c.JSON(http.StatusBadGateway, models.ErrorResponse{
			Error:   title,
			Message: remote.Error(),
		})
		return
	}
	var invalid *kaspi.ValidationError
	if errors.As(err, &invalid) {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   title,
			Message: invalid.Error(),
		})
		return
	}
	c.JSON(http.StatusInternalServerError, models.ErrorResponse{
		Error:   title,
		Message: err.Error(),
	})
}

// ListOrders proxies a page of marketplace orders
func (h *Handler) ListOrders(c *gin.Context) {
	client, ok := h.orderClient(c)
	if !ok {
		return
	}

	params := kaspi.ListOrdersParams{Page: 0, Size: 20}
	if v := c.Query("page"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			params.Page = n
		}
	}
	if v := c.Query("size"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 100 {
			params.Size = n
		}
	}
	if v := c.Query("state"); v != "" {
		state := kaspi.OrderStatus(v)
		if !state.IsValid() {
			c.JSON(http.StatusBadRequest, models.ErrorResponse{
				Error:   "Invalid order state",
				Message: "Unknown order state filter: " + v,
			})
			return
		}
		params.State = state
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	orders, total, err := client.ListOrders(ctx, params)
	if err != nil {
		respondRemoteError(c, "Failed to list orders", err)
		return
	}

	c.JSON(http.StatusOK, models.SuccessResponse{
		Message: "Orders retrieved successfully",
		Data:    gin.H{"orders": orders, "total": total},
	})
}

// GetOrderEntries proxies the line items of one marketplace order
func (h *Handler) GetOrderEntries(c *gin.Context) {
	client, ok := h.orderClient(c)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	entries, err := client.GetOrderEntries(ctx, c.Param("order_id"))
	if err != nil {
		respondRemoteError(c, "Failed to get order entries", err)
		return
	}

	c.JSON(http.StatusOK, models.SuccessResponse{
		Message: "Order entries retrieved successfully",
		Data:    gin.H{"entries": entries, "total": len(entries)},
	})
}

// AcceptOrder confirms a new order on the marketplace
func (h *Handler) AcceptOrder(c *gin.Context) {
	client, ok := h.orderClient(c)
	if !ok {
		return
	}

	var req struct {
		Code string `json:"code" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "Invalid request",
			Message: err.Error(),
		})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	order, err := client.AcceptOrder(ctx, c.Param("order_id"), req.Code)
	if err != nil {
		respondRemoteError(c, "Failed to accept order", err)
		return
	}

	c.JSON(http.StatusOK, models.SuccessResponse{
		Message: "Order accepted successfully",
		Data:    order,
	})
}

// UpdateOrderStatus moves a marketplace order through its lifecycle
func (h *Handler) UpdateOrderStatus(c *gin.Context) {
	client, ok := h.orderClient(c)
	if !ok {
		return
	}

	var req struct {
		Status kaspi.OrderStatus `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "Invalid request",
			Message: err.Error(),
		})
		return
	}
	if !req.Status.IsValid() {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "Invalid order status",
			Message: "Unknown order status: " + string(req.Status),
		})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := client.UpdateOrderStatus(ctx, c.Param("order_id"), req.Status); err != nil {
		respondRemoteError(c, "Failed to update order status", err)
		return
	}

	c.JSON(http.StatusOK, models.SuccessResponse{
		Message: "Order status updated successfully",
	})
}

// CancelOrder cancels a marketplace order
func (h *Handler) CancelOrder(c *gin.Context) {
	client, ok := h.orderClient(c)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := client.CancelOrder(ctx, c.Param("order_id")); err != nil {
		respondRemoteError(c, "Failed to cancel order", err)
		return
	}

	c.JSON(http.StatusOK, models.SuccessResponse{
		Message: "Order cancelled successfully",
	})
}

// CreateWaybill requests a shipping waybill for a marketplace order
func (h *Handler) CreateWaybill(c *gin.Context) {
	client, ok := h.orderClient(c)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	url, err := client.CreateWaybill(ctx, c.Param("order_id"))
	if err != nil {
		respondRemoteError(c, "Failed to create waybill", err)
		return
	}

	c.JSON(http.StatusOK, models.SuccessResponse{
		Message: "Waybill created successfully",
		Data:    gin.H{"waybill_url": url},
	})
}

// SetEntryIMEI attaches an IMEI to an order entry that requires one
func (h *Handler) SetEntryIMEI(c *gin.Context) {
	client, ok := h.orderClient(c)
	if !ok {
		return
	}

	var req struct {
		IMEI string `json:"imei" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "Invalid request",
			Message: err.Error(),
		})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := client.SetEntryIMEI(ctx, c.Param("entry_id"), req.IMEI); err != nil {
		respondRemoteError(c, "Failed to set entry IMEI", err)
		return
	}

	c.JSON(http.StatusOK, models.SuccessResponse{
		Message: "Entry IMEI set successfully",
	})
}
