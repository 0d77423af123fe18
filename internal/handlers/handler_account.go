package handlers

import (
	"log/slog"
	"net/http"

	portssvc "github.com/SscSPs/erp_ledger/internal/core/ports/services"
	"github.com/SscSPs/erp_ledger/internal/dto"
	"github.com/SscSPs/erp_ledger/internal/middleware"
	"github.com/gin-gonic/gin"
)

// accountHandler handles HTTP requests related to the chart of accounts.
type accountHandler struct {
	chartService portssvc.ChartSvcFacade
}

// newAccountHandler creates a new accountHandler.
func newAccountHandler(cs portssvc.ChartSvcFacade) *accountHandler {
	return &accountHandler{
		chartService: cs,
	}
}

// RegisterAccountRoutes registers routes related to accounts.
func RegisterAccountRoutes(rg *gin.RouterGroup, chartService portssvc.ChartSvcFacade) {
	h := newAccountHandler(chartService)

	accounts := rg.Group("/accounts")
	{
		accounts.POST("", h.registerAccount)
		accounts.GET("", h.listAccounts)
		accounts.GET("/:id", h.getAccount)
		accounts.PATCH("/:id", h.updateAccount)
		accounts.PUT("/:id/parent", h.reparentAccount)
		accounts.PUT("/:id/restriction", h.setPostingRestriction)
	}
}

// registerAccount godoc
// @Summary Register a new account
// @Description Adds an account to the caller's chart of accounts
// @Tags accounts
// @Accept  json
// @Produce  json
// @Param   account body dto.RegisterAccountRequest true "Account details"
// @Success 201 {object} dto.AccountResponse
// @Failure 400 {object} dto.ErrorResponse "Invalid input format or validation error"
// @Failure 401 {object} dto.ErrorResponse "Unauthorized"
// @Failure 409 {object} dto.ErrorResponse "Duplicate account code"
// @Failure 500 {object} dto.ErrorResponse "Failed to register account"
// @Security BearerAuth
// @Router /accounts [post]
func (h *accountHandler) registerAccount(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	var req dto.RegisterAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	userID, companyID, ok := identity(c)
	if !ok {
		return
	}

	logger.Info("Received request to register account", slog.String("code", req.Code), slog.String("category", string(req.Category)))

	acc, err := h.chartService.RegisterAccount(c.Request.Context(), companyID, userID, req.ToInput())
	if err != nil {
		respondError(c, err, "Failed to register account")
		return
	}

	logger.Info("Account registered successfully", slog.String("account_id", acc.AccountID))
	c.JSON(http.StatusCreated, dto.ToAccountResponse(acc))
}

// getAccount godoc
// @Summary Get an account by ID
// @Tags accounts
// @Produce  json
// @Param   id path string true "Account ID"
// @Success 200 {object} dto.AccountResponse
// @Failure 401 {object} dto.ErrorResponse "Unauthorized"
// @Failure 404 {object} dto.ErrorResponse "Account not found"
// @Security BearerAuth
// @Router /accounts/{id} [get]
func (h *accountHandler) getAccount(c *gin.Context) {
	_, companyID, ok := identity(c)
	if !ok {
		return
	}
	acc, err := h.chartService.GetAccount(c.Request.Context(), companyID, c.Param("id"))
	if err != nil {
		respondError(c, err, "Failed to retrieve account")
		return
	}
	c.JSON(http.StatusOK, dto.ToAccountResponse(acc))
}

// listAccounts godoc
// @Summary List the company's accounts
// @Description Accounts are ordered by code
// @Tags accounts
// @Produce  json
// @Param   limit query int false "Limit number of results" default(20)
// @Param   offset query int false "Offset for pagination" default(0)
// @Success 200 {object} dto.ListAccountsResponse
// @Failure 401 {object} dto.ErrorResponse "Unauthorized"
// @Security BearerAuth
// @Router /accounts [get]
func (h *accountHandler) listAccounts(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	_, companyID, ok := identity(c)
	if !ok {
		return
	}
	var params dto.ListAccountsParams
	if err := c.ShouldBindQuery(&params); err != nil {
		respondBindError(c, err)
		return
	}

	accounts, err := h.chartService.ListAccounts(c.Request.Context(), companyID, params.Limit, params.Offset)
	if err != nil {
		respondError(c, err, "Failed to list accounts")
		return
	}

	logger.Info("Accounts listed successfully", slog.Int("count", len(accounts)))
	c.JSON(http.StatusOK, dto.ListAccountsResponse{Accounts: dto.ToListAccountResponse(accounts)})
}

// updateAccount godoc
// @Summary Update an account
// @Description Renames an account or changes code/category while it has no lines
// @Tags accounts
// @Accept  json
// @Produce  json
// @Param   id path string true "Account ID to update"
// @Param   account body dto.UpdateAccountRequest true "Account details to update"
// @Success 200 {object} dto.AccountResponse
// @Failure 400 {object} dto.ErrorResponse "Invalid input"
// @Failure 404 {object} dto.ErrorResponse "Account not found"
// @Failure 409 {object} dto.ErrorResponse "Stale version or account already used"
// @Security BearerAuth
// @Router /accounts/{id} [patch]
func (h *accountHandler) updateAccount(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	accountID := c.Param("id")
	var req dto.UpdateAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	userID, companyID, ok := identity(c)
	if !ok {
		return
	}

	logger = logger.With(slog.String("target_account_id", accountID))
	logger.Info("Received request to update account")

	acc, err := h.chartService.UpdateAccount(c.Request.Context(), companyID, userID, accountID, req.ToInput())
	if err != nil {
		respondError(c, err, "Failed to update account")
		return
	}

	logger.Info("Account updated successfully", slog.Int64("version", acc.Version))
	c.JSON(http.StatusOK, dto.ToAccountResponse(acc))
}

// reparentAccount godoc
// @Summary Move an account in the hierarchy
// @Tags accounts
// @Accept  json
// @Produce  json
// @Param   id path string true "Account ID"
// @Param   parent body dto.ReparentAccountRequest true "New parent, null to detach"
// @Success 200 {object} dto.AccountResponse
// @Failure 400 {object} dto.ErrorResponse "Cycle or foreign parent"
// @Failure 404 {object} dto.ErrorResponse "Account not found"
// @Security BearerAuth
// @Router /accounts/{id}/parent [put]
func (h *accountHandler) reparentAccount(c *gin.Context) {
	var req dto.ReparentAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	userID, companyID, ok := identity(c)
	if !ok {
		return
	}
	acc, err := h.chartService.Reparent(c.Request.Context(), companyID, userID, c.Param("id"), req.ParentAccountID)
	if err != nil {
		respondError(c, err, "Failed to move account")
		return
	}
	c.JSON(http.StatusOK, dto.ToAccountResponse(acc))
}

// setPostingRestriction godoc
// @Summary Restrict or allow postings to an account
// @Tags accounts
// @Accept  json
// @Produce  json
// @Param   id path string true "Account ID"
// @Param   restriction body dto.SetPostingRestrictionRequest true "Restriction flag"
// @Success 200 {object} dto.AccountResponse
// @Failure 404 {object} dto.ErrorResponse "Account not found"
// @Security BearerAuth
// @Router /accounts/{id}/restriction [put]
func (h *accountHandler) setPostingRestriction(c *gin.Context) {
	var req dto.SetPostingRestrictionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	userID, companyID, ok := identity(c)
	if !ok {
		return
	}
	acc, err := h.chartService.SetPostingRestriction(c.Request.Context(), companyID, userID, c.Param("id"), *req.Restricted)
	if err != nil {
		respondError(c, err, "Failed to change posting restriction")
		return
	}
	c.JSON(http.StatusOK, dto.ToAccountResponse(acc))
}
