package handlers

import (
	"log/slog"
	"net/http"

	portssvc "github.com/SscSPs/erp_ledger/internal/core/ports/services"
	"github.com/SscSPs/erp_ledger/internal/dto"
	"github.com/SscSPs/erp_ledger/internal/middleware"
	"github.com/gin-gonic/gin"
)

type batchHandler struct {
	batchService portssvc.BatchSvcFacade
}

func newBatchHandler(bs portssvc.BatchSvcFacade) *batchHandler {
	return &batchHandler{batchService: bs}
}

// RegisterBatchRoutes registers routes related to posting batches.
func RegisterBatchRoutes(rg *gin.RouterGroup, batchService portssvc.BatchSvcFacade) {
	h := newBatchHandler(batchService)

	batches := rg.Group("/batches")
	{
		batches.POST("", h.submitBatch)
		batches.GET("/:id", h.getBatchStatus)
		batches.DELETE("/:id", h.discardBatch)
	}
}

// submitBatch godoc
// @Summary Submit draft entries for batch posting
// @Description Returns immediately with the PENDING batch; poll its status for outcomes
// @Tags batches
// @Accept  json
// @Produce  json
// @Param   batch body dto.SubmitBatchRequest true "Draft entry ids"
// @Success 202 {object} dto.BatchResponse
// @Failure 400 {object} dto.ErrorResponse "Invalid request"
// @Security BearerAuth
// @Router /batches [post]
func (h *batchHandler) submitBatch(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	var req dto.SubmitBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	userID, companyID, ok := identity(c)
	if !ok {
		return
	}

	batch, err := h.batchService.SubmitBatch(c.Request.Context(), companyID, userID, req.EntryIDs)
	if err != nil {
		respondError(c, err, "Failed to submit batch")
		return
	}

	logger.Info("Batch submitted", slog.String("batch_id", batch.BatchID), slog.Int("entries", batch.TotalCount))
	c.JSON(http.StatusAccepted, dto.ToBatchResponse(batch))
}

// getBatchStatus godoc
// @Summary Get a batch with per-entry outcomes
// @Tags batches
// @Produce  json
// @Param   id path string true "Batch ID"
// @Success 200 {object} dto.BatchResponse
// @Failure 404 {object} dto.ErrorResponse "Batch not found"
// @Security BearerAuth
// @Router /batches/{id} [get]
func (h *batchHandler) getBatchStatus(c *gin.Context) {
	_, companyID, ok := identity(c)
	if !ok {
		return
	}
	batch, err := h.batchService.GetBatchStatus(c.Request.Context(), companyID, c.Param("id"))
	if err != nil {
		respondError(c, err, "Failed to retrieve batch")
		return
	}
	c.JSON(http.StatusOK, dto.ToBatchResponse(batch))
}

// discardBatch godoc
// @Summary Discard a batch that has not started
// @Tags batches
// @Param   id path string true "Batch ID"
// @Success 204 "No Content"
// @Failure 404 {object} dto.ErrorResponse "Batch not found"
// @Failure 409 {object} dto.ErrorResponse "Batch already started"
// @Security BearerAuth
// @Router /batches/{id} [delete]
func (h *batchHandler) discardBatch(c *gin.Context) {
	userID, companyID, ok := identity(c)
	if !ok {
		return
	}
	if err := h.batchService.DiscardBatch(c.Request.Context(), companyID, userID, c.Param("id")); err != nil {
		respondError(c, err, "Failed to discard batch")
		return
	}
	c.Status(http.StatusNoContent)
}
