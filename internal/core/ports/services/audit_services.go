package services

import (
	"context"

	"github.com/SscSPs/erp_ledger/internal/core/domain"
)

// AuditSvcFacade defines the audit recorder
type AuditSvcFacade interface {
	// Record appends a record within the transaction carried by ctx, if any.
	Record(ctx context.Context, companyID, userID string, action domain.AuditAction, entityType, entityID string, details map[string]any) error

	// List pages records newest first. nextToken is opaque; an empty returned token means no more pages.
	List(ctx context.Context, companyID string, filter domain.AuditFilter, limit int, nextToken *string) ([]domain.AuditRecord, *string, error)
}
