package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/teztrade/pricesync/internal/export"
	"github.com/teztrade/pricesync/internal/models"
)

// ExportPriceList streams the reconciled price list as a CSV or XLSX
// download. Format defaults to csv.
func (h *Handler) ExportPriceList(c *gin.Context) {
	if !h.requireStore(c) {
		return
	}

	format := c.DefaultQuery("format", "csv")
	if format != "csv" && format != "xlsx" {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "Invalid format",
			Message: "Format must be csv or xlsx",
		})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	enriched, err := h.enrichedProducts(ctx)
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error:   "Failed to build price list",
			Message: err.Error(),
		})
		return
	}

	rows := export.FromEnriched(enriched)

	if format == "xlsx" {
		data, err := export.PriceListXLSX(rows)
		if err != nil {
			c.JSON(http.StatusInternalServerError, models.ErrorResponse{
				Error:   "Failed to build price list",
				Message: err.Error(),
			})
			return
		}
		c.Header("Content-Disposition", `attachment; filename="pricelist.xlsx"`)
		c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", data)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="pricelist.csv"`)
	c.Data(http.StatusOK, "text/csv; charset=utf-8", export.PriceListCSV(rows))
}
