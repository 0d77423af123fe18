package handlers

import (
	"log/slog"
	"net/http"
	"time"

	portssvc "github.com/SscSPs/erp_ledger/internal/core/ports/services"
	"github.com/SscSPs/erp_ledger/internal/dto"
	"github.com/SscSPs/erp_ledger/internal/middleware"
	"github.com/gin-gonic/gin"
)

type periodHandler struct {
	periodService portssvc.PeriodSvcFacade
}

func newPeriodHandler(ps portssvc.PeriodSvcFacade) *periodHandler {
	return &periodHandler{periodService: ps}
}

// RegisterPeriodRoutes registers routes related to accounting periods.
func RegisterPeriodRoutes(rg *gin.RouterGroup, periodService portssvc.PeriodSvcFacade) {
	h := newPeriodHandler(periodService)

	periods := rg.Group("/periods")
	{
		periods.POST("", h.openPeriod)
		periods.GET("", h.listPeriods)
		periods.GET("/:id", h.getPeriod)
		periods.GET("/:id/is-open", h.isOpen)
		periods.POST("/:id/close", h.closePeriod)
	}
}

// openPeriod godoc
// @Summary Open an accounting period
// @Description Creates the half-open period [start, end); overlaps are rejected
// @Tags periods
// @Accept  json
// @Produce  json
// @Param   period body dto.OpenPeriodRequest true "Period range"
// @Success 201 {object} dto.PeriodResponse
// @Failure 400 {object} dto.ErrorResponse "Invalid range"
// @Failure 409 {object} dto.ErrorResponse "Overlaps an existing period"
// @Security BearerAuth
// @Router /periods [post]
func (h *periodHandler) openPeriod(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	var req dto.OpenPeriodRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	userID, companyID, ok := identity(c)
	if !ok {
		return
	}

	period, err := h.periodService.OpenPeriod(c.Request.Context(), companyID, userID, req.Name, req.Start, req.End)
	if err != nil {
		respondError(c, err, "Failed to open period")
		return
	}

	logger.Info("Period opened", slog.String("period_id", period.PeriodID))
	c.JSON(http.StatusCreated, dto.ToPeriodResponse(period))
}

// listPeriods godoc
// @Summary List the company's periods
// @Tags periods
// @Produce  json
// @Success 200 {object} dto.ListPeriodsResponse
// @Security BearerAuth
// @Router /periods [get]
func (h *periodHandler) listPeriods(c *gin.Context) {
	_, companyID, ok := identity(c)
	if !ok {
		return
	}
	periods, err := h.periodService.ListPeriods(c.Request.Context(), companyID)
	if err != nil {
		respondError(c, err, "Failed to list periods")
		return
	}
	c.JSON(http.StatusOK, dto.ToListPeriodsResponse(periods))
}

// getPeriod godoc
// @Summary Get a period by ID
// @Tags periods
// @Produce  json
// @Param   id path string true "Period ID"
// @Success 200 {object} dto.PeriodResponse
// @Failure 404 {object} dto.ErrorResponse "Period not found"
// @Security BearerAuth
// @Router /periods/{id} [get]
func (h *periodHandler) getPeriod(c *gin.Context) {
	_, companyID, ok := identity(c)
	if !ok {
		return
	}
	period, err := h.periodService.GetPeriod(c.Request.Context(), companyID, c.Param("id"))
	if err != nil {
		respondError(c, err, "Failed to retrieve period")
		return
	}
	c.JSON(http.StatusOK, dto.ToPeriodResponse(period))
}

// isOpen godoc
// @Summary Check whether a period accepts postings on a date
// @Tags periods
// @Produce  json
// @Param   id path string true "Period ID"
// @Param   at query string true "Date (YYYY-MM-DD)"
// @Success 200 {object} dto.IsOpenResponse
// @Security BearerAuth
// @Router /periods/{id}/is-open [get]
func (h *periodHandler) isOpen(c *gin.Context) {
	_, companyID, ok := identity(c)
	if !ok {
		return
	}
	var params dto.IsOpenParams
	if err := c.ShouldBindQuery(&params); err != nil {
		respondBindError(c, err)
		return
	}
	at, _ := time.Parse(time.DateOnly, params.At)

	// IsOpen is company-agnostic; the lookup scopes the id to the caller first.
	periodID := c.Param("id")
	if _, err := h.periodService.GetPeriod(c.Request.Context(), companyID, periodID); err != nil {
		respondError(c, err, "Failed to retrieve period")
		return
	}
	open, err := h.periodService.IsOpen(c.Request.Context(), periodID, at)
	if err != nil {
		respondError(c, err, "Failed to check period")
		return
	}
	c.JSON(http.StatusOK, dto.IsOpenResponse{PeriodID: periodID, At: params.At, IsOpen: open})
}

// closePeriod godoc
// @Summary Close a period for good
// @Description Fails while drafts remain in the period; closing twice is a no-op
// @Tags periods
// @Produce  json
// @Param   id path string true "Period ID"
// @Success 200 {object} dto.PeriodResponse
// @Failure 404 {object} dto.ErrorResponse "Period not found"
// @Failure 409 {object} dto.ErrorResponse "Period still has drafts"
// @Security BearerAuth
// @Router /periods/{id}/close [post]
func (h *periodHandler) closePeriod(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	userID, companyID, ok := identity(c)
	if !ok {
		return
	}
	period, err := h.periodService.ClosePeriod(c.Request.Context(), companyID, userID, c.Param("id"))
	if err != nil {
		respondError(c, err, "Failed to close period")
		return
	}
	logger.Info("Period closed", slog.String("period_id", period.PeriodID))
	c.JSON(http.StatusOK, dto.ToPeriodResponse(period))
}
