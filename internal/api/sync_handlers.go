package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/teztrade/pricesync/internal/logging"
	"github.com/teztrade/pricesync/internal/models"
	"github.com/teztrade/pricesync/internal/syncrun"
)

// StartDownload launches a download run over the selected suppliers
func (h *Handler) StartDownload(c *gin.Context) {
	h.startRun(c, syncrun.RunTypeDownload)
}

// StartUpload launches an upload run over the selected marketplaces
func (h *Handler) StartUpload(c *gin.Context) {
	h.startRun(c, syncrun.RunTypeUpload)
}

func (h *Handler) startRun(c *gin.Context, runType syncrun.RunType) {
	if !h.requireStore(c) {
		return
	}

	actor, ok := GetActor(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, models.ErrorResponse{
			Error:   "Invalid user",
			Message: "Could not extract user from token",
		})
		return
	}

	var req models.StartRunRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "Invalid request",
			Message: err.Error(),
		})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var run *syncrun.Run
	var err error
	if runType == syncrun.RunTypeDownload {
		run, err = h.sync.StartDownload(ctx, actor, req.EntityIDs, req.Sandbox)
	} else {
		run, err = h.sync.StartUpload(ctx, actor, req.EntityIDs, req.Sandbox)
	}
	if errors.Is(err, syncrun.ErrQuotaExceeded) {
		c.JSON(http.StatusTooManyRequests, models.ErrorResponse{
			Error:   "Test request quota exceeded",
			Message: "Reset the sandbox counter or disable sandbox mode to continue",
		})
		return
	}
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "Failed to start run",
			Message: err.Error(),
		})
		return
	}

	snap := run.Snapshot()
	logging.LogKV("info", "sync run started", map[string]interface{}{
		"run_id":   snap.ID,
		"run_type": string(runType),
		"sandbox":  snap.Sandbox,
		"steps":    len(snap.Steps),
		"user_id":  actor.UserID,
	})

	c.JSON(http.StatusAccepted, models.SuccessResponse{
		Message: "Run started successfully",
		Data:    snap,
	})
}

// GetRun returns the live progress snapshot of one run
func (h *Handler) GetRun(c *gin.Context) {
	run, err := h.sync.Manager().Get(c.Param("run_id"))
	if err != nil {
		c.JSON(http.StatusNotFound, models.ErrorResponse{
			Error:   "Run not found",
			Message: err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, models.SuccessResponse{
		Message: "Run retrieved successfully",
		Data:    run.Snapshot(),
	})
}

// ListRuns returns recent runs, newest first
func (h *Handler) ListRuns(c *gin.Context) {
	runs := h.sync.Manager().List()
	c.JSON(http.StatusOK, models.SuccessResponse{
		Message: "Runs retrieved successfully",
		Data:    gin.H{"runs": runs, "total": len(runs)},
	})
}

// CancelRun requests cooperative cancellation of a run. The current step
// finishes; unstarted steps stay pending.
func (h *Handler) CancelRun(c *gin.Context) {
	if err := h.sync.Manager().Cancel(c.Param("run_id")); err != nil {
		c.JSON(http.StatusNotFound, models.ErrorResponse{
			Error:   "Run not found",
			Message: err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, models.SuccessResponse{
		Message: "Run cancellation requested",
	})
}

// GetAutomationSettings returns the automation configuration
func (h *Handler) GetAutomationSettings(c *gin.Context) {
	if !h.requireStore(c) {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	settings, err := h.store.GetAutomationSettings(ctx)
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error:   "Failed to get automation settings",
			Message: err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, models.SuccessResponse{
		Message: "Automation settings retrieved successfully",
		Data:    settings,
	})
}

// UpdateAutomationSettings overwrites the automation configuration and
// restarts the scheduler on the new interval
func (h *Handler) UpdateAutomationSettings(c *gin.Context) {
	if !h.requireStore(c) {
		return
	}

	var req models.AutomationSettings
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "Invalid request",
			Message: err.Error(),
		})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	settings, err := h.store.UpdateAutomationSettings(ctx, req)
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "Failed to update automation settings",
			Message: err.Error(),
		})
		return
	}

	if h.scheduler != nil {
		if err := h.scheduler.Restart(ctx); err != nil {
			logging.LogKV("error", "scheduler restart failed", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}

	c.JSON(http.StatusOK, models.SuccessResponse{
		Message: "Automation settings updated successfully",
		Data:    settings,
	})
}

// GetSandboxSettings returns the caller's sandbox configuration and quota
func (h *Handler) GetSandboxSettings(c *gin.Context) {
	if !h.requireStore(c) {
		return
	}

	actor, ok := GetActor(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, models.ErrorResponse{
			Error:   "Invalid user",
			Message: "Could not extract user from token",
		})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	settings, err := h.store.GetSandboxSettings(ctx, actor.UserID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error:   "Failed to get sandbox settings",
			Message: err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, models.SuccessResponse{
		Message: "Sandbox settings retrieved successfully",
		Data:    settings,
	})
}

// UpdateSandboxSettings overwrites the caller's sandbox configuration
func (h *Handler) UpdateSandboxSettings(c *gin.Context) {
	if !h.requireStore(c) {
		return
	}

	actor, ok := GetActor(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, models.ErrorResponse{
			Error:   "Invalid user",
			Message: "Could not extract user from token",
		})
		return
	}

	var req models.SandboxSettings
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "Invalid request",
			Message: err.Error(),
		})
		return
	}
	// Settings are always scoped to the caller.
	req.UserID = actor.UserID

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	settings, err := h.store.UpdateSandboxSettings(ctx, req)
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "Failed to update sandbox settings",
			Message: err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, models.SuccessResponse{
		Message: "Sandbox settings updated successfully",
		Data:    settings,
	})
}

// ResetTestRequests zeroes the caller's sandbox quota counter. The
// counter never resets on its own.
func (h *Handler) ResetTestRequests(c *gin.Context) {
	actor, ok := GetActor(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, models.ErrorResponse{
			Error:   "Invalid user",
			Message: "Could not extract user from token",
		})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := h.guard.Reset(ctx, actor.UserID); err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error:   "Failed to reset test requests",
			Message: err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, models.SuccessResponse{
		Message: "Test request counter reset successfully",
	})
}
