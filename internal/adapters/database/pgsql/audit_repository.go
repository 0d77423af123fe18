package pgsql

import (
	"context"
	"fmt"
	"strings"

	"github.com/SscSPs/erp_ledger/internal/core/domain"
	portsrepo "github.com/SscSPs/erp_ledger/internal/core/ports/repositories"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PgxAuditRepository struct {
	BaseRepository
}

func newPgxAuditRepository(pool *pgxpool.Pool) *PgxAuditRepository {
	return &PgxAuditRepository{BaseRepository: BaseRepository{Pool: pool}}
}

var _ portsrepo.AuditRepository = (*PgxAuditRepository)(nil)

// SaveAuditRecord appends a record. Details are stored as jsonb.
func (r *PgxAuditRepository) SaveAuditRecord(ctx context.Context, rec domain.AuditRecord) error {
	details := rec.Details
	if details == nil {
		details = map[string]any{}
	}
	_, err := r.db(ctx).Exec(ctx, `
		INSERT INTO audit_records (audit_id, company_id, user_id, action, entity_type, entity_id, details, ts)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8);`,
		rec.AuditID,
		rec.CompanyID,
		rec.UserID,
		rec.Action,
		rec.EntityType,
		rec.EntityID,
		details,
		rec.Timestamp,
	)
	return mapError("save audit record "+rec.AuditID, err)
}

// ListAuditRecords pages newest first using the (ts, audit_id) keyset.
func (r *PgxAuditRepository) ListAuditRecords(ctx context.Context, companyID string, filter domain.AuditFilter, limit int, after *domain.AuditCursor) ([]domain.AuditRecord, error) {
	conds := []string{"company_id = $1"}
	args := []any{companyID}
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if filter.EntityType != "" {
		conds = append(conds, "entity_type = "+arg(filter.EntityType))
	}
	if filter.EntityID != "" {
		conds = append(conds, "entity_id = "+arg(filter.EntityID))
	}
	if filter.Action != "" {
		conds = append(conds, "action = "+arg(filter.Action))
	}
	if after != nil {
		conds = append(conds, fmt.Sprintf("(ts, audit_id) < (%s, %s)", arg(after.Timestamp), arg(after.AuditID)))
	}
	query := `
		SELECT audit_id, company_id, user_id, action, entity_type, entity_id, details, ts
		FROM audit_records
		WHERE ` + strings.Join(conds, " AND ") + `
		ORDER BY ts DESC, audit_id DESC`
	if limit > 0 {
		query += " LIMIT " + arg(limit)
	}

	rows, err := r.db(ctx).Query(ctx, query+";", args...)
	if err != nil {
		return nil, mapError("list audit records", err)
	}
	records, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.AuditRecord, error) {
		var rec domain.AuditRecord
		err := row.Scan(
			&rec.AuditID,
			&rec.CompanyID,
			&rec.UserID,
			&rec.Action,
			&rec.EntityType,
			&rec.EntityID,
			&rec.Details,
			&rec.Timestamp,
		)
		rec.Timestamp = rec.Timestamp.UTC()
		return rec, err
	})
	if err != nil {
		return nil, mapError("scan audit records", err)
	}
	if records == nil {
		records = []domain.AuditRecord{}
	}
	return records, nil
}
