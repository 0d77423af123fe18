package memory

import (
	"context"
	"slices"
	"strings"

	"github.com/SscSPs/erp_ledger/internal/core/domain"
	portsrepo "github.com/SscSPs/erp_ledger/internal/core/ports/repositories"
)

type auditRepository struct {
	store *Store
}

var _ portsrepo.AuditRepository = (*auditRepository)(nil)

func (r *auditRepository) SaveAuditRecord(ctx context.Context, record domain.AuditRecord) error {
	return r.store.write(ctx, func(st *state) error {
		st.audits = append(st.audits, record)
		return nil
	})
}

// newerFirst orders by timestamp then id, both descending.
func newerFirst(a, b domain.AuditRecord) int {
	if c := b.Timestamp.Compare(a.Timestamp); c != 0 {
		return c
	}
	return strings.Compare(b.AuditID, a.AuditID)
}

func (r *auditRepository) ListAuditRecords(ctx context.Context, companyID string, filter domain.AuditFilter, limit int, after *domain.AuditCursor) ([]domain.AuditRecord, error) {
	out := []domain.AuditRecord{}
	err := r.store.read(ctx, func(st *state) error {
		for _, rec := range st.audits {
			if rec.CompanyID != companyID {
				continue
			}
			if filter.EntityType != "" && rec.EntityType != filter.EntityType {
				continue
			}
			if filter.EntityID != "" && rec.EntityID != filter.EntityID {
				continue
			}
			if filter.Action != "" && rec.Action != filter.Action {
				continue
			}
			if after != nil && newerFirst(rec, domain.AuditRecord{Timestamp: after.Timestamp, AuditID: after.AuditID}) <= 0 {
				continue
			}
			out = append(out, rec)
		}
		return nil
	})
	slices.SortFunc(out, newerFirst)
	return page(out, limit, 0), err
}
