package handlers

import (
	"log/slog"
	"net/http"

	"github.com/SscSPs/erp_ledger/internal/core/domain"
	portssvc "github.com/SscSPs/erp_ledger/internal/core/ports/services"
	"github.com/SscSPs/erp_ledger/internal/dto"
	"github.com/SscSPs/erp_ledger/internal/middleware"
	"github.com/gin-gonic/gin"
)

// reconciliationHandler handles HTTP requests related to bank reconciliations.
type reconciliationHandler struct {
	reconService portssvc.ReconciliationSvcFacade
	policy       domain.MatchPolicy
}

func newReconciliationHandler(rs portssvc.ReconciliationSvcFacade, policy domain.MatchPolicy) *reconciliationHandler {
	return &reconciliationHandler{reconService: rs, policy: policy}
}

// RegisterReconciliationRoutes registers routes related to reconciliations. policy seeds
// per-request auto-match overrides.
func RegisterReconciliationRoutes(rg *gin.RouterGroup, reconService portssvc.ReconciliationSvcFacade, policy domain.MatchPolicy) {
	h := newReconciliationHandler(reconService, policy)

	recons := rg.Group("/reconciliations")
	{
		recons.POST("", h.startReconciliation)
		recons.GET("/:id", h.getReconciliation)
		recons.GET("/:id/items", h.listItems)
		recons.POST("/:id/statement-lines", h.importStatementLines)
		recons.POST("/:id/adjustments", h.addAdjustment)
		recons.POST("/:id/auto-match", h.autoMatch)
		recons.POST("/:id/matches", h.manualMatch)
		recons.POST("/:id/unmatch", h.unmatch)
		recons.POST("/:id/complete", h.complete)
		recons.POST("/:id/approve", h.approve)
		recons.POST("/:id/reject", h.reject)
		recons.POST("/:id/cancel", h.cancel)
	}
}

// startReconciliation godoc
// @Summary Start a reconciliation
// @Description Snapshots the posted lines of the account within the inclusive date range
// @Tags reconciliations
// @Accept  json
// @Produce  json
// @Param   reconciliation body dto.StartReconciliationRequest true "Account and range"
// @Success 201 {object} dto.ReconciliationResponse
// @Failure 404 {object} dto.ErrorResponse "Unknown account"
// @Failure 409 {object} dto.ErrorResponse "Overlapping active reconciliation"
// @Security BearerAuth
// @Router /reconciliations [post]
func (h *reconciliationHandler) startReconciliation(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	var req dto.StartReconciliationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	userID, companyID, ok := identity(c)
	if !ok {
		return
	}

	recon, err := h.reconService.StartReconciliation(c.Request.Context(), companyID, userID, req.AccountID, req.FromDate, req.ToDate, req.BookBalance)
	if err != nil {
		respondError(c, err, "Failed to start reconciliation")
		return
	}

	logger.Info("Reconciliation started", slog.String("reconciliation_id", recon.ReconciliationID), slog.Int("book_items", recon.UnreconciledCount))
	c.JSON(http.StatusCreated, dto.ToReconciliationResponse(recon))
}

// getReconciliation godoc
// @Summary Get a reconciliation
// @Tags reconciliations
// @Produce  json
// @Param   id path string true "Reconciliation ID"
// @Success 200 {object} dto.ReconciliationResponse
// @Failure 404 {object} dto.ErrorResponse "Reconciliation not found"
// @Security BearerAuth
// @Router /reconciliations/{id} [get]
func (h *reconciliationHandler) getReconciliation(c *gin.Context) {
	_, companyID, ok := identity(c)
	if !ok {
		return
	}
	recon, err := h.reconService.GetReconciliation(c.Request.Context(), companyID, c.Param("id"))
	if err != nil {
		respondError(c, err, "Failed to retrieve reconciliation")
		return
	}
	c.JSON(http.StatusOK, dto.ToReconciliationResponse(recon))
}

// listItems godoc
// @Summary List the items of a reconciliation
// @Tags reconciliations
// @Produce  json
// @Param   id path string true "Reconciliation ID"
// @Success 200 {object} dto.ListItemsResponse
// @Security BearerAuth
// @Router /reconciliations/{id}/items [get]
func (h *reconciliationHandler) listItems(c *gin.Context) {
	_, companyID, ok := identity(c)
	if !ok {
		return
	}
	items, err := h.reconService.ListItems(c.Request.Context(), companyID, c.Param("id"))
	if err != nil {
		respondError(c, err, "Failed to list reconciliation items")
		return
	}
	c.JSON(http.StatusOK, dto.ListItemsResponse{Items: items})
}

// importStatementLines godoc
// @Summary Import bank statement lines
// @Description Lines whose external reference was already imported are skipped
// @Tags reconciliations
// @Accept  json
// @Produce  json
// @Param   id path string true "Reconciliation ID"
// @Param   statement body dto.ImportStatementRequest true "Statement lines"
// @Success 200 {object} dto.ReconciliationResponse
// @Failure 409 {object} dto.ErrorResponse "Reconciliation not in progress"
// @Security BearerAuth
// @Router /reconciliations/{id}/statement-lines [post]
func (h *reconciliationHandler) importStatementLines(c *gin.Context) {
	var req dto.ImportStatementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	userID, companyID, ok := identity(c)
	if !ok {
		return
	}
	recon, err := h.reconService.ImportStatementLines(c.Request.Context(), companyID, userID, c.Param("id"), req.ToStatementLines())
	if err != nil {
		respondError(c, err, "Failed to import statement lines")
		return
	}
	c.JSON(http.StatusOK, dto.ToReconciliationResponse(recon))
}

// addAdjustment godoc
// @Summary Record a bank-only adjustment
// @Tags reconciliations
// @Accept  json
// @Produce  json
// @Param   id path string true "Reconciliation ID"
// @Param   adjustment body dto.AddAdjustmentRequest true "Adjustment"
// @Success 201 {object} domain.ReconciliationItem
// @Security BearerAuth
// @Router /reconciliations/{id}/adjustments [post]
func (h *reconciliationHandler) addAdjustment(c *gin.Context) {
	var req dto.AddAdjustmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	userID, companyID, ok := identity(c)
	if !ok {
		return
	}
	item, err := h.reconService.AddAdjustment(c.Request.Context(), companyID, userID, c.Param("id"), req.Date, req.Description, req.Amount)
	if err != nil {
		respondError(c, err, "Failed to add adjustment")
		return
	}
	c.JSON(http.StatusCreated, item)
}

// autoMatch godoc
// @Summary Pair unreconciled items automatically
// @Description Equal amounts within the date window are paired; unmatched items are reported
// @Tags reconciliations
// @Accept  json
// @Produce  json
// @Param   id path string true "Reconciliation ID"
// @Param   policy body dto.AutoMatchRequest false "Policy overrides"
// @Success 200 {object} domain.MatchReport
// @Security BearerAuth
// @Router /reconciliations/{id}/auto-match [post]
func (h *reconciliationHandler) autoMatch(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	var req dto.AutoMatchRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respondBindError(c, err)
			return
		}
	}
	userID, companyID, ok := identity(c)
	if !ok {
		return
	}
	report, err := h.reconService.AutoMatch(c.Request.Context(), companyID, userID, c.Param("id"), req.ToPolicy(h.policy))
	if err != nil {
		respondError(c, err, "Failed to auto-match")
		return
	}
	logger.Info("Auto-match finished", slog.Int("matched", len(report.Matched)), slog.Int("unreconciled", report.UnreconciledCount))
	c.JSON(http.StatusOK, report)
}

// manualMatch godoc
// @Summary Pair two items by hand
// @Tags reconciliations
// @Accept  json
// @Produce  json
// @Param   id path string true "Reconciliation ID"
// @Param   match body dto.ManualMatchRequest true "Items to pair"
// @Success 200 {object} dto.MatchResultResponse
// @Failure 409 {object} dto.ErrorResponse "Item already matched"
// @Security BearerAuth
// @Router /reconciliations/{id}/matches [post]
func (h *reconciliationHandler) manualMatch(c *gin.Context) {
	var req dto.ManualMatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	userID, companyID, ok := identity(c)
	if !ok {
		return
	}
	res, err := h.reconService.ManualMatch(c.Request.Context(), companyID, userID, c.Param("id"), req.BookItemID, req.StatementItemID)
	if err != nil {
		respondError(c, err, "Failed to match items")
		return
	}
	c.JSON(http.StatusOK, dto.ToMatchResultResponse(res))
}

// unmatch godoc
// @Summary Clear the match of an item
// @Tags reconciliations
// @Accept  json
// @Produce  json
// @Param   id path string true "Reconciliation ID"
// @Param   item body dto.UnmatchRequest true "Item to unmatch"
// @Success 200 {object} dto.ReconciliationResponse
// @Security BearerAuth
// @Router /reconciliations/{id}/unmatch [post]
func (h *reconciliationHandler) unmatch(c *gin.Context) {
	var req dto.UnmatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	userID, companyID, ok := identity(c)
	if !ok {
		return
	}
	recon, err := h.reconService.Unmatch(c.Request.Context(), companyID, userID, c.Param("id"), req.ItemID)
	if err != nil {
		respondError(c, err, "Failed to unmatch item")
		return
	}
	c.JSON(http.StatusOK, dto.ToReconciliationResponse(recon))
}

// complete godoc
// @Summary Submit a reconciliation for approval
// @Tags reconciliations
// @Accept  json
// @Produce  json
// @Param   id path string true "Reconciliation ID"
// @Param   options body dto.CompleteReconciliationRequest false "Accept a non-zero difference"
// @Success 200 {object} dto.ReconciliationResponse
// @Failure 409 {object} dto.ErrorResponse "Unreconciled items or difference remain"
// @Security BearerAuth
// @Router /reconciliations/{id}/complete [post]
func (h *reconciliationHandler) complete(c *gin.Context) {
	var req dto.CompleteReconciliationRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respondBindError(c, err)
			return
		}
	}
	userID, companyID, ok := identity(c)
	if !ok {
		return
	}
	recon, err := h.reconService.Complete(c.Request.Context(), companyID, userID, c.Param("id"), req.AcceptDifference)
	if err != nil {
		respondError(c, err, "Failed to complete reconciliation")
		return
	}
	c.JSON(http.StatusOK, dto.ToReconciliationResponse(recon))
}

// approve godoc
// @Summary Approve a completed reconciliation
// @Tags reconciliations
// @Produce  json
// @Param   id path string true "Reconciliation ID"
// @Success 200 {object} dto.ReconciliationResponse
// @Failure 409 {object} dto.ErrorResponse "Reconciliation not completed"
// @Security BearerAuth
// @Router /reconciliations/{id}/approve [post]
func (h *reconciliationHandler) approve(c *gin.Context) {
	userID, companyID, ok := identity(c)
	if !ok {
		return
	}
	recon, err := h.reconService.Approve(c.Request.Context(), companyID, userID, c.Param("id"))
	if err != nil {
		respondError(c, err, "Failed to approve reconciliation")
		return
	}
	c.JSON(http.StatusOK, dto.ToReconciliationResponse(recon))
}

// reject godoc
// @Summary Send a completed reconciliation back to work
// @Tags reconciliations
// @Accept  json
// @Produce  json
// @Param   id path string true "Reconciliation ID"
// @Param   rejection body dto.RejectReconciliationRequest true "Reason"
// @Success 200 {object} dto.ReconciliationResponse
// @Security BearerAuth
// @Router /reconciliations/{id}/reject [post]
func (h *reconciliationHandler) reject(c *gin.Context) {
	var req dto.RejectReconciliationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	userID, companyID, ok := identity(c)
	if !ok {
		return
	}
	recon, err := h.reconService.Reject(c.Request.Context(), companyID, userID, c.Param("id"), req.Reason)
	if err != nil {
		respondError(c, err, "Failed to reject reconciliation")
		return
	}
	c.JSON(http.StatusOK, dto.ToReconciliationResponse(recon))
}

// cancel godoc
// @Summary Abandon a reconciliation
// @Tags reconciliations
// @Produce  json
// @Param   id path string true "Reconciliation ID"
// @Success 200 {object} dto.ReconciliationResponse
// @Security BearerAuth
// @Router /reconciliations/{id}/cancel [post]
func (h *reconciliationHandler) cancel(c *gin.Context) {
	userID, companyID, ok := identity(c)
	if !ok {
		return
	}
	recon, err := h.reconService.Cancel(c.Request.Context(), companyID, userID, c.Param("id"))
	if err != nil {
		respondError(c, err, "Failed to cancel reconciliation")
		return
	}
	c.JSON(http.StatusOK, dto.ToReconciliationResponse(recon))
}
