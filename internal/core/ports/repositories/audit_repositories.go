package repositories

import (
	"context"

	"github.com/SscSPs/erp_ledger/internal/core/domain"
)

// AuditRepository appends and lists audit records.
type AuditRepository interface {
	// SaveAuditRecord appends a record.
	SaveAuditRecord(ctx context.Context, record domain.AuditRecord) error

	// ListAuditRecords returns up to limit records newest first, strictly after the cursor when one is given.
	ListAuditRecords(ctx context.Context, companyID string, filter domain.AuditFilter, limit int, after *domain.AuditCursor) ([]domain.AuditRecord, error)
}
