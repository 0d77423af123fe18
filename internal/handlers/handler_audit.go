package handlers

import (
	"net/http"

	portssvc "github.com/SscSPs/erp_ledger/internal/core/ports/services"
	"github.com/SscSPs/erp_ledger/internal/dto"
	"github.com/gin-gonic/gin"
)

type auditHandler struct {
	auditService portssvc.AuditSvcFacade
}

// RegisterAuditRoutes registers the read-only audit trail route.
func RegisterAuditRoutes(rg *gin.RouterGroup, auditService portssvc.AuditSvcFacade) {
	h := &auditHandler{auditService: auditService}
	rg.GET("/audit", h.listAudit)
}

// listAudit godoc
// @Summary List audit records
// @Description Newest first, paged with an opaque token
// @Tags audit
// @Produce  json
// @Param   entityType query string false "Entity type filter"
// @Param   entityID query string false "Entity ID filter"
// @Param   action query string false "Action filter"
// @Param   limit query int false "Page size" default(50)
// @Param   nextToken query string false "Token from the previous page"
// @Success 200 {object} dto.ListAuditResponse
// @Failure 400 {object} dto.ErrorResponse "Invalid token"
// @Security BearerAuth
// @Router /audit [get]
func (h *auditHandler) listAudit(c *gin.Context) {
	_, companyID, ok := identity(c)
	if !ok {
		return
	}
	var params dto.ListAuditParams
	if err := c.ShouldBindQuery(&params); err != nil {
		respondBindError(c, err)
		return
	}
	records, next, err := h.auditService.List(c.Request.Context(), companyID, params.ToFilter(), params.Limit, params.NextToken)
	if err != nil {
		respondError(c, err, "Failed to list audit records")
		return
	}
	c.JSON(http.StatusOK, dto.ListAuditResponse{Records: records, NextToken: next})
}
