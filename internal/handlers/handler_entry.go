package handlers

import (
	"log/slog"
	"net/http"

	portssvc "github.com/SscSPs/erp_ledger/internal/core/ports/services"
	"github.com/SscSPs/erp_ledger/internal/dto"
	"github.com/SscSPs/erp_ledger/internal/middleware"
	"github.com/gin-gonic/gin"
)

// entryHandler handles HTTP requests related to journal entries.
type entryHandler struct {
	ledgerService portssvc.LedgerSvcFacade
}

func newEntryHandler(ls portssvc.LedgerSvcFacade) *entryHandler {
	return &entryHandler{ledgerService: ls}
}

// RegisterEntryRoutes registers routes related to journal entries.
func RegisterEntryRoutes(rg *gin.RouterGroup, ledgerService portssvc.LedgerSvcFacade) {
	h := newEntryHandler(ledgerService)

	entries := rg.Group("/entries")
	{
		entries.POST("", h.postEntry)
		entries.GET("", h.listEntries)
		entries.POST("/drafts", h.createDraft)
		entries.GET("/:id", h.getEntry)
		entries.PUT("/:id", h.updateDraft)
		entries.POST("/:id/post", h.postDraft)
		entries.POST("/:id/cancel", h.cancelDraft)
		entries.POST("/:id/reverse", h.reverseEntry)
	}
}

// postEntry godoc
// @Summary Post a journal entry
// @Description Validates and posts an entry atomically. Re-posting the same entryID returns the stored entry.
// @Tags entries
// @Accept  json
// @Produce  json
// @Param   entry body dto.JournalEntryRequest true "Entry with lines"
// @Success 201 {object} dto.JournalEntryResponse
// @Failure 400 {object} dto.ErrorResponse "Invalid request"
// @Failure 404 {object} dto.ErrorResponse "Unknown account or period"
// @Failure 409 {object} dto.ErrorResponse "Concurrent modification"
// @Failure 422 {object} dto.ErrorResponse "Ledger rule violation (unbalanced, closed period, restricted account)"
// @Failure 503 {object} dto.ErrorResponse "Storage unavailable"
// @Security BearerAuth
// @Router /entries [post]
func (h *entryHandler) postEntry(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	var req dto.JournalEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	userID, companyID, ok := identity(c)
	if !ok {
		return
	}

	logger.Info("Received request to post entry", slog.String("entry_id", req.EntryID), slog.Int("lines", len(req.Lines)))

	entry, err := h.ledgerService.PostEntry(c.Request.Context(), companyID, userID, req.ToDraft())
	if err != nil {
		respondError(c, err, "Failed to post entry")
		return
	}

	logger.Info("Entry posted", slog.String("entry_id", entry.EntryID))
	c.JSON(http.StatusCreated, dto.ToJournalEntryResponse(entry))
}

// createDraft godoc
// @Summary Save a draft entry
// @Description Drafts need not balance; they are validated when posted
// @Tags entries
// @Accept  json
// @Produce  json
// @Param   entry body dto.JournalEntryRequest true "Draft entry"
// @Success 201 {object} dto.JournalEntryResponse
// @Failure 422 {object} dto.ErrorResponse "Closed or unknown period"
// @Security BearerAuth
// @Router /entries/drafts [post]
func (h *entryHandler) createDraft(c *gin.Context) {
	var req dto.JournalEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	userID, companyID, ok := identity(c)
	if !ok {
		return
	}
	entry, err := h.ledgerService.CreateDraft(c.Request.Context(), companyID, userID, req.ToDraft())
	if err != nil {
		respondError(c, err, "Failed to save draft")
		return
	}
	c.JSON(http.StatusCreated, dto.ToJournalEntryResponse(entry))
}

// updateDraft godoc
// @Summary Replace a draft's contents
// @Tags entries
// @Accept  json
// @Produce  json
// @Param   id path string true "Entry ID"
// @Param   entry body dto.UpdateDraftRequest true "Draft contents and expected version"
// @Success 200 {object} dto.JournalEntryResponse
// @Failure 409 {object} dto.ErrorResponse "Stale version or entry not a draft"
// @Security BearerAuth
// @Router /entries/{id} [put]
func (h *entryHandler) updateDraft(c *gin.Context) {
	var req dto.UpdateDraftRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	userID, companyID, ok := identity(c)
	if !ok {
		return
	}
	entry, err := h.ledgerService.UpdateDraft(c.Request.Context(), companyID, userID, c.Param("id"), req.ToDraft(), req.ExpectedVersion)
	if err != nil {
		respondError(c, err, "Failed to update draft")
		return
	}
	c.JSON(http.StatusOK, dto.ToJournalEntryResponse(entry))
}

// postDraft godoc
// @Summary Post a stored draft
// @Tags entries
// @Produce  json
// @Param   id path string true "Entry ID"
// @Success 200 {object} dto.JournalEntryResponse
// @Failure 422 {object} dto.ErrorResponse "Ledger rule violation"
// @Security BearerAuth
// @Router /entries/{id}/post [post]
func (h *entryHandler) postDraft(c *gin.Context) {
	userID, companyID, ok := identity(c)
	if !ok {
		return
	}
	entry, err := h.ledgerService.PostDraft(c.Request.Context(), companyID, userID, c.Param("id"))
	if err != nil {
		respondError(c, err, "Failed to post draft")
		return
	}
	c.JSON(http.StatusOK, dto.ToJournalEntryResponse(entry))
}

// cancelDraft godoc
// @Summary Cancel a draft
// @Tags entries
// @Produce  json
// @Param   id path string true "Entry ID"
// @Success 200 {object} dto.JournalEntryResponse
// @Failure 409 {object} dto.ErrorResponse "Entry is not a draft"
// @Security BearerAuth
// @Router /entries/{id}/cancel [post]
func (h *entryHandler) cancelDraft(c *gin.Context) {
	userID, companyID, ok := identity(c)
	if !ok {
		return
	}
	entry, err := h.ledgerService.CancelDraft(c.Request.Context(), companyID, userID, c.Param("id"))
	if err != nil {
		respondError(c, err, "Failed to cancel draft")
		return
	}
	c.JSON(http.StatusOK, dto.ToJournalEntryResponse(entry))
}

// reverseEntry godoc
// @Summary Reverse a posted entry
// @Description Books the mirror entry and marks the original REVERSED
// @Tags entries
// @Accept  json
// @Produce  json
// @Param   id path string true "Entry ID"
// @Param   options body dto.ReverseEntryRequest false "Target period, date and description"
// @Success 201 {object} dto.JournalEntryResponse
// @Failure 409 {object} dto.ErrorResponse "Entry already reversed or not posted"
// @Failure 422 {object} dto.ErrorResponse "Target period closed"
// @Security BearerAuth
// @Router /entries/{id}/reverse [post]
func (h *entryHandler) reverseEntry(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	var req dto.ReverseEntryRequest
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
	entryID := c.Param("id")
	reversal, err := h.ledgerService.ReversePosted(c.Request.Context(), companyID, userID, entryID, req.ToOptions())
	if err != nil {
		respondError(c, err, "Failed to reverse entry")
		return
	}
	logger.Info("Entry reversed", slog.String("entry_id", entryID), slog.String("reversal_id", reversal.EntryID))
	c.JSON(http.StatusCreated, dto.ToJournalEntryResponse(reversal))
}

// getEntry godoc
// @Summary Get a journal entry
// @Tags entries
// @Produce  json
// @Param   id path string true "Entry ID"
// @Success 200 {object} dto.JournalEntryResponse
// @Failure 404 {object} dto.ErrorResponse "Entry not found"
// @Security BearerAuth
// @Router /entries/{id} [get]
func (h *entryHandler) getEntry(c *gin.Context) {
	_, companyID, ok := identity(c)
	if !ok {
		return
	}
	entry, err := h.ledgerService.GetEntry(c.Request.Context(), companyID, c.Param("id"))
	if err != nil {
		respondError(c, err, "Failed to retrieve entry")
		return
	}
	c.JSON(http.StatusOK, dto.ToJournalEntryResponse(entry))
}

// listEntries godoc
// @Summary List journal entries
// @Description Newest entry date first
// @Tags entries
// @Produce  json
// @Param   periodID query string false "Period filter"
// @Param   accountID query string false "Account filter"
// @Param   status query string false "Status filter"
// @Param   from query string false "From date (YYYY-MM-DD)"
// @Param   to query string false "To date (YYYY-MM-DD)"
// @Param   limit query int false "Limit" default(20)
// @Param   offset query int false "Offset" default(0)
// @Success 200 {object} dto.ListEntriesResponse
// @Security BearerAuth
// @Router /entries [get]
func (h *entryHandler) listEntries(c *gin.Context) {
	_, companyID, ok := identity(c)
	if !ok {
		return
	}
	var params dto.ListEntriesParams
	if err := c.ShouldBindQuery(&params); err != nil {
		respondBindError(c, err)
		return
	}
	entries, err := h.ledgerService.ListEntries(c.Request.Context(), companyID, params.ToFilter())
	if err != nil {
		respondError(c, err, "Failed to list entries")
		return
	}
	resp := dto.ListEntriesResponse{Entries: make([]dto.JournalEntryResponse, len(entries))}
	for i := range entries {
		resp.Entries[i] = dto.ToJournalEntryResponse(&entries[i])
	}
	c.JSON(http.StatusOK, resp)
}
