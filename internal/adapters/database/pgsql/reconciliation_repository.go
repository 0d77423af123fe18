package pgsql

import (
	"context"
	"time"

	"github.com/SscSPs/erp_ledger/internal/core/domain"
	portsrepo "github.com/SscSPs/erp_ledger/internal/core/ports/repositories"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PgxReconciliationRepository struct {
	BaseRepository
}

func newPgxReconciliationRepository(pool *pgxpool.Pool) *PgxReconciliationRepository {
	return &PgxReconciliationRepository{BaseRepository: BaseRepository{Pool: pool}}
}

var _ portsrepo.ReconciliationRepositoryFacade = (*PgxReconciliationRepository)(nil)

const reconColumns = `
	reconciliation_id, company_id, account_id, account_category, from_date, to_date, status,
	book_balance, statement_balance, difference, reconciled_count, unreconciled_count,
	completed_at, completed_by, approved_at, approved_by, rejection_reason, version,
	created_at, created_by, last_updated_at, last_updated_by`

const itemColumns = `
	item_id, reconciliation_id, seq, item_type, entry_id, line_id, external_reference,
	transaction_date, description, debit, credit, is_reconciled, reconciled_at, reconciled_by,
	matched_item_id, created_at`

func scanReconciliation(row pgx.Row) (domain.Reconciliation, error) {
	var rec domain.Reconciliation
	err := row.Scan(
		&rec.ReconciliationID,
		&rec.CompanyID,
		&rec.AccountID,
		&rec.AccountCategory,
		&rec.FromDate,
		&rec.ToDate,
		&rec.Status,
		&rec.BookBalance,
		&rec.StatementBalance,
		&rec.Difference,
		&rec.ReconciledCount,
		&rec.UnreconciledCount,
		&rec.CompletedAt,
		&rec.CompletedBy,
		&rec.ApprovedAt,
		&rec.ApprovedBy,
		&rec.RejectionReason,
		&rec.Version,
		&rec.CreatedAt,
		&rec.CreatedBy,
		&rec.LastUpdatedAt,
		&rec.LastUpdatedBy,
	)
	rec.FromDate = rec.FromDate.UTC()
	rec.ToDate = rec.ToDate.UTC()
	return rec, err
}

func scanItem(row pgx.CollectableRow) (domain.ReconciliationItem, error) {
	var it domain.ReconciliationItem
	err := row.Scan(
		&it.ItemID,
		&it.ReconciliationID,
		&it.Seq,
		&it.ItemType,
		&it.EntryID,
		&it.LineID,
		&it.ExternalReference,
		&it.TransactionDate,
		&it.Description,
		&it.Debit,
		&it.Credit,
		&it.IsReconciled,
		&it.ReconciledAt,
		&it.ReconciledBy,
		&it.MatchedItemID,
		&it.CreatedAt,
	)
	it.TransactionDate = it.TransactionDate.UTC()
	return it, err
}

func (r *PgxReconciliationRepository) findReconciliation(ctx context.Context, id string, lock bool) (*domain.Reconciliation, error) {
	query := `SELECT ` + reconColumns + ` FROM reconciliations WHERE reconciliation_id = $1`
	if lock && inTx(ctx) {
		query += ` FOR UPDATE`
	}
	rec, err := scanReconciliation(r.db(ctx).QueryRow(ctx, query+`;`, id))
	if err != nil {
		return nil, mapError("find reconciliation "+id, err)
	}
	return &rec, nil
}

func (r *PgxReconciliationRepository) FindReconciliationByID(ctx context.Context, reconciliationID string) (*domain.Reconciliation, error) {
	return r.findReconciliation(ctx, reconciliationID, false)
}

// FindReconciliationForUpdate serialises matching on one reconciliation.
func (r *PgxReconciliationRepository) FindReconciliationForUpdate(ctx context.Context, reconciliationID string) (*domain.Reconciliation, error) {
	return r.findReconciliation(ctx, reconciliationID, true)
}

func (r *PgxReconciliationRepository) FindActiveOverlapping(ctx context.Context, companyID, accountID string, from, to time.Time) ([]domain.Reconciliation, error) {
	query := `SELECT ` + reconColumns + `
		FROM reconciliations
		WHERE company_id = $1 AND account_id = $2
		  AND status IN ('IN_PROGRESS', 'COMPLETED')
		  AND from_date <= $4 AND to_date >= $3
		ORDER BY from_date;`
	rows, err := r.db(ctx).Query(ctx, query, companyID, accountID, from, to)
	if err != nil {
		return nil, mapError("find overlapping reconciliations", err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Reconciliation, error) {
		return scanReconciliation(row)
	})
	if err != nil {
		return nil, mapError("scan reconciliations", err)
	}
	return out, nil
}

// ListItems returns the items in Seq order; an unknown reconciliation is ErrNotFound.
func (r *PgxReconciliationRepository) ListItems(ctx context.Context, reconciliationID string) ([]domain.ReconciliationItem, error) {
	var one int
	err := r.db(ctx).QueryRow(ctx,
		`SELECT 1 FROM reconciliations WHERE reconciliation_id = $1;`, reconciliationID).Scan(&one)
	if err != nil {
		return nil, mapError("find reconciliation "+reconciliationID, err)
	}
	rows, err := r.db(ctx).Query(ctx,
		`SELECT `+itemColumns+` FROM reconciliation_items WHERE reconciliation_id = $1 ORDER BY seq;`, reconciliationID)
	if err != nil {
		return nil, mapError("list reconciliation items", err)
	}
	items, err := pgx.CollectRows(rows, scanItem)
	if err != nil {
		return nil, mapError("scan reconciliation items", err)
	}
	if items == nil {
		items = []domain.ReconciliationItem{}
	}
	return items, nil
}

func (r *PgxReconciliationRepository) SaveReconciliation(ctx context.Context, rec domain.Reconciliation) error {
	query := `
		INSERT INTO reconciliations (` + reconColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22);
	`
	_, err := r.db(ctx).Exec(ctx, query,
		rec.ReconciliationID,
		rec.CompanyID,
		rec.AccountID,
		rec.AccountCategory,
		rec.FromDate,
		rec.ToDate,
		rec.Status,
		rec.BookBalance,
		rec.StatementBalance,
		rec.Difference,
		rec.ReconciledCount,
		rec.UnreconciledCount,
		rec.CompletedAt,
		rec.CompletedBy,
		rec.ApprovedAt,
		rec.ApprovedBy,
		rec.RejectionReason,
		rec.Version,
		rec.CreatedAt,
		rec.CreatedBy,
		rec.LastUpdatedAt,
		rec.LastUpdatedBy,
	)
	return mapError("save reconciliation "+rec.ReconciliationID, err)
}

func (r *PgxReconciliationRepository) UpdateReconciliation(ctx context.Context, rec domain.Reconciliation, expectedVersion int64) error {
	query := `
		UPDATE reconciliations
		SET status = $3, book_balance = $4, statement_balance = $5, difference = $6,
		    reconciled_count = $7, unreconciled_count = $8, completed_at = $9, completed_by = $10,
		    approved_at = $11, approved_by = $12, rejection_reason = $13, version = $14,
		    last_updated_at = $15, last_updated_by = $16
		WHERE reconciliation_id = $1 AND version = $2;
	`
	tag, err := r.db(ctx).Exec(ctx, query,
		rec.ReconciliationID,
		expectedVersion,
		rec.Status,
		rec.BookBalance,
		rec.StatementBalance,
		rec.Difference,
		rec.ReconciledCount,
		rec.UnreconciledCount,
		rec.CompletedAt,
		rec.CompletedBy,
		rec.ApprovedAt,
		rec.ApprovedBy,
		rec.RejectionReason,
		rec.Version,
		rec.LastUpdatedAt,
		rec.LastUpdatedBy,
	)
	if err != nil {
		return mapError("update reconciliation "+rec.ReconciliationID, err)
	}
	if tag.RowsAffected() == 0 {
		return r.missingOrStale(ctx, "reconciliation", rec.ReconciliationID,
			`SELECT 1 FROM reconciliations WHERE reconciliation_id = $1;`)
	}
	return nil
}

// SaveItems appends items in one pgx batch. A repeated external reference is ErrDuplicate.
func (r *PgxReconciliationRepository) SaveItems(ctx context.Context, items []domain.ReconciliationItem) error {
	if len(items) == 0 {
		return nil
	}
	query := `
		INSERT INTO reconciliation_items (` + itemColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16);
	`
	batch := &pgx.Batch{}
	for _, it := range items {
		batch.Queue(query,
			it.ItemID,
			it.ReconciliationID,
			it.Seq,
			it.ItemType,
			it.EntryID,
			it.LineID,
			it.ExternalReference,
			it.TransactionDate,
			it.Description,
			it.Debit,
			it.Credit,
			it.IsReconciled,
			it.ReconciledAt,
			it.ReconciledBy,
			it.MatchedItemID,
			it.CreatedAt,
		)
	}
	br := r.db(ctx).SendBatch(ctx, batch)
	if err := br.Close(); err != nil {
		return mapError("save reconciliation items", err)
	}
	return nil
}

// UpdateItems stores the match state of existing items.
func (r *PgxReconciliationRepository) UpdateItems(ctx context.Context, items []domain.ReconciliationItem) error {
	if len(items) == 0 {
		return nil
	}
	query := `
		UPDATE reconciliation_items
		SET is_reconciled = $2, reconciled_at = $3, reconciled_by = $4, matched_item_id = $5
		WHERE item_id = $1;
	`
	batch := &pgx.Batch{}
	for _, it := range items {
		batch.Queue(query, it.ItemID, it.IsReconciled, it.ReconciledAt, it.ReconciledBy, it.MatchedItemID)
	}
	br := r.db(ctx).SendBatch(ctx, batch)
	defer br.Close()
	for _, it := range items {
		tag, err := br.Exec()
		if err != nil {
			return mapError("update reconciliation item "+it.ItemID, err)
		}
		if tag.RowsAffected() == 0 {
			return mapError("update reconciliation item "+it.ItemID, pgx.ErrNoRows)
		}
	}
	return mapError("update reconciliation items", br.Close())
}
