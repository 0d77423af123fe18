package pgsql

import (
	"context"
	"time"

	"github.com/SscSPs/erp_ledger/internal/core/domain"
	portsrepo "github.com/SscSPs/erp_ledger/internal/core/ports/repositories"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PgxPeriodRepository struct {
	BaseRepository
}

func newPgxPeriodRepository(pool *pgxpool.Pool) *PgxPeriodRepository {
	return &PgxPeriodRepository{BaseRepository: BaseRepository{Pool: pool}}
}

var _ portsrepo.PeriodRepositoryFacade = (*PgxPeriodRepository)(nil)

const periodColumns = `
	period_id, company_id, name, start_date, end_date, is_closed, closed_at, closed_by,
	version, created_at, created_by, last_updated_at, last_updated_by`

func scanPeriod(row pgx.Row) (domain.AccountingPeriod, error) {
	var p domain.AccountingPeriod
	err := row.Scan(
		&p.PeriodID,
		&p.CompanyID,
		&p.Name,
		&p.Start,
		&p.End,
		&p.IsClosed,
		&p.ClosedAt,
		&p.ClosedBy,
		&p.Version,
		&p.CreatedAt,
		&p.CreatedBy,
		&p.LastUpdatedAt,
		&p.LastUpdatedBy,
	)
	p.Start = p.Start.UTC()
	p.End = p.End.UTC()
	return p, err
}

func collectPeriods(rows pgx.Rows) ([]domain.AccountingPeriod, error) {
	defer rows.Close()
	periods := []domain.AccountingPeriod{}
	for rows.Next() {
		p, err := scanPeriod(rows)
		if err != nil {
			return nil, err
		}
		periods = append(periods, p)
	}
	return periods, rows.Err()
}

func (r *PgxPeriodRepository) findOne(ctx context.Context, op, suffix string, args ...any) (*domain.AccountingPeriod, error) {
	query := `SELECT ` + periodColumns + ` FROM accounting_periods ` + suffix
	p, err := scanPeriod(r.db(ctx).QueryRow(ctx, query, args...))
	if err != nil {
		return nil, mapError(op, err)
	}
	return &p, nil
}

func (r *PgxPeriodRepository) FindPeriodByID(ctx context.Context, periodID string) (*domain.AccountingPeriod, error) {
	return r.findOne(ctx, "find period "+periodID, `WHERE period_id = $1;`, periodID)
}

// FindPeriodForShare takes FOR SHARE so a concurrent close waits for in-flight postings.
func (r *PgxPeriodRepository) FindPeriodForShare(ctx context.Context, periodID string) (*domain.AccountingPeriod, error) {
	suffix := `WHERE period_id = $1`
	if inTx(ctx) {
		suffix += ` FOR SHARE`
	}
	return r.findOne(ctx, "find period for share "+periodID, suffix+`;`, periodID)
}

// FindPeriodForUpdate takes FOR UPDATE so postings wait for a close to finish.
func (r *PgxPeriodRepository) FindPeriodForUpdate(ctx context.Context, periodID string) (*domain.AccountingPeriod, error) {
	suffix := `WHERE period_id = $1`
	if inTx(ctx) {
		suffix += ` FOR UPDATE`
	}
	return r.findOne(ctx, "find period for update "+periodID, suffix+`;`, periodID)
}

// LockCompanyPeriods takes a transaction-scoped advisory lock keyed on the company.
func (r *PgxPeriodRepository) LockCompanyPeriods(ctx context.Context, companyID string) error {
	if !inTx(ctx) {
		return nil
	}
	_, err := r.db(ctx).Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext('periods:' || $1));`, companyID)
	return mapError("lock periods of company "+companyID, err)
}

func (r *PgxPeriodRepository) FindPeriodForDate(ctx context.Context, companyID string, at time.Time) (*domain.AccountingPeriod, error) {
	return r.findOne(ctx, "find period for date",
		`WHERE company_id = $1 AND start_date <= $2 AND end_date > $2;`, companyID, domain.DateOnly(at))
}

func (r *PgxPeriodRepository) ListPeriods(ctx context.Context, companyID string) ([]domain.AccountingPeriod, error) {
	query := `SELECT ` + periodColumns + ` FROM accounting_periods WHERE company_id = $1 ORDER BY start_date;`
	rows, err := r.db(ctx).Query(ctx, query, companyID)
	if err != nil {
		return nil, mapError("list periods", err)
	}
	periods, err := collectPeriods(rows)
	return periods, mapError("scan periods", err)
}

func (r *PgxPeriodRepository) FindOverlappingPeriods(ctx context.Context, companyID string, start, end time.Time) ([]domain.AccountingPeriod, error) {
	query := `SELECT ` + periodColumns + `
		FROM accounting_periods
		WHERE company_id = $1 AND start_date < $3 AND end_date > $2
		ORDER BY start_date;`
	rows, err := r.db(ctx).Query(ctx, query, companyID, start, end)
	if err != nil {
		return nil, mapError("find overlapping periods", err)
	}
	periods, err := collectPeriods(rows)
	return periods, mapError("scan periods", err)
}

func (r *PgxPeriodRepository) SavePeriod(ctx context.Context, period domain.AccountingPeriod) error {
	query := `
		INSERT INTO accounting_periods (
			period_id, company_id, name, start_date, end_date, is_closed, closed_at, closed_by,
			version, created_at, created_by, last_updated_at, last_updated_by
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13);
	`
	_, err := r.db(ctx).Exec(ctx, query,
		period.PeriodID,
		period.CompanyID,
		period.Name,
		period.Start,
		period.End,
		period.IsClosed,
		period.ClosedAt,
		period.ClosedBy,
		period.Version,
		period.CreatedAt,
		period.CreatedBy,
		period.LastUpdatedAt,
		period.LastUpdatedBy,
	)
	return mapError("save period "+period.PeriodID, err)
}

func (r *PgxPeriodRepository) UpdatePeriod(ctx context.Context, period domain.AccountingPeriod, expectedVersion int64) error {
	query := `
		UPDATE accounting_periods
		SET name = $3, is_closed = $4, closed_at = $5, closed_by = $6, version = $7,
		    last_updated_at = $8, last_updated_by = $9
		WHERE period_id = $1 AND version = $2;
	`
	tag, err := r.db(ctx).Exec(ctx, query,
		period.PeriodID,
		expectedVersion,
		period.Name,
		period.IsClosed,
		period.ClosedAt,
		period.ClosedBy,
		period.Version,
		period.LastUpdatedAt,
		period.LastUpdatedBy,
	)
	if err != nil {
		return mapError("update period "+period.PeriodID, err)
	}
	if tag.RowsAffected() == 0 {
		return r.missingOrStale(ctx, "period", period.PeriodID,
			`SELECT 1 FROM accounting_periods WHERE period_id = $1;`)
	}
	return nil
}
