package dto

import (
	"github.com/SscSPs/erp_ledger/internal/core/domain"
)

// ListAuditParams defines query parameters for listing audit records.
type ListAuditParams struct {
	EntityType string  `form:"entityType"`
	EntityID   string  `form:"entityID"`
	Action     string  `form:"action"`
	Limit      int     `form:"limit,default=50" binding:"min=0,max=500"`
	NextToken  *string `form:"nextToken"`
}

// ToFilter converts the query to a domain filter.
func (p ListAuditParams) ToFilter() domain.AuditFilter {
	return domain.AuditFilter{
		EntityType: p.EntityType,
		EntityID:   p.EntityID,
		Action:     domain.AuditAction(p.Action),
	}
}

// ListAuditResponse wraps a page of audit records.
type ListAuditResponse struct {
	Records   []domain.AuditRecord `json:"records"`
	NextToken *string              `json:"nextToken,omitempty"`
}
