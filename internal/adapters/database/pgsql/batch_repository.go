package pgsql

import (
	"context"
	"fmt"
	"time"

	"github.com/SscSPs/erp_ledger/internal/apperrors"
	"github.com/SscSPs/erp_ledger/internal/core/domain"
	portsrepo "github.com/SscSPs/erp_ledger/internal/core/ports/repositories"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PgxBatchRepository struct {
	BaseRepository
}

func newPgxBatchRepository(pool *pgxpool.Pool) *PgxBatchRepository {
	return &PgxBatchRepository{BaseRepository: BaseRepository{Pool: pool}}
}

var _ portsrepo.BatchRepositoryFacade = (*PgxBatchRepository)(nil)

// FindBatchByID retrieves the batch header, its entries in position order and their errors.
func (r *PgxBatchRepository) FindBatchByID(ctx context.Context, batchID string) (*domain.Batch, error) {
	var b domain.Batch
	err := r.db(ctx).QueryRow(ctx, `
		SELECT batch_id, company_id, user_id, status, total_count, posted_count, failed_count,
		       created_at, started_at, completed_at, version
		FROM batches
		WHERE batch_id = $1;`, batchID).Scan(
		&b.BatchID,
		&b.CompanyID,
		&b.UserID,
		&b.Status,
		&b.TotalCount,
		&b.PostedCount,
		&b.FailedCount,
		&b.CreatedAt,
		&b.StartedAt,
		&b.CompletedAt,
		&b.Version,
	)
	if err != nil {
		return nil, mapError("find batch "+batchID, err)
	}

	rows, err := r.db(ctx).Query(ctx, `
		SELECT entry_id, position, outcome, error
		FROM batch_entries
		WHERE batch_id = $1
		ORDER BY position;`, batchID)
	if err != nil {
		return nil, mapError("list batch entries", err)
	}
	b.Entries, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.BatchEntry, error) {
		var e domain.BatchEntry
		err := row.Scan(&e.EntryID, &e.Position, &e.Outcome, &e.Error)
		return e, err
	})
	if err != nil {
		return nil, mapError("scan batch entries", err)
	}
	b.CollectErrors()
	return &b, nil
}

func (r *PgxBatchRepository) ListUnfinishedBatchIDs(ctx context.Context) ([]string, error) {
	rows, err := r.db(ctx).Query(ctx, `
		SELECT batch_id FROM batches
		WHERE status IN ('PENDING', 'PROCESSING')
		ORDER BY created_at, batch_id;`)
	if err != nil {
		return nil, mapError("list unfinished batches", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, mapError("scan unfinished batches", err)
	}
	return ids, nil
}

// SaveBatch inserts the header and its entries in one pgx batch.
func (r *PgxBatchRepository) SaveBatch(ctx context.Context, b domain.Batch) error {
	batch := &pgx.Batch{}
	batch.Queue(`
		INSERT INTO batches (
			batch_id, company_id, user_id, status, total_count, posted_count, failed_count,
			created_at, started_at, completed_at, version
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11);`,
		b.BatchID,
		b.CompanyID,
		b.UserID,
		b.Status,
		b.TotalCount,
		b.PostedCount,
		b.FailedCount,
		b.CreatedAt,
		b.StartedAt,
		b.CompletedAt,
		b.Version,
	)
	for _, e := range b.Entries {
		batch.Queue(`
			INSERT INTO batch_entries (batch_id, position, entry_id, outcome, error)
			VALUES ($1, $2, $3, $4, $5);`,
			b.BatchID, e.Position, e.EntryID, e.Outcome, e.Error)
	}
	br := r.db(ctx).SendBatch(ctx, batch)
	if err := br.Close(); err != nil {
		return mapError("save batch "+b.BatchID, err)
	}
	return nil
}

func (r *PgxBatchRepository) UpdateBatchStatus(ctx context.Context, b domain.Batch, expectedVersion int64) error {
	tag, err := r.db(ctx).Exec(ctx, `
		UPDATE batches
		SET status = $3, started_at = $4, completed_at = $5, version = $6
		WHERE batch_id = $1 AND version = $2;`,
		b.BatchID, expectedVersion, b.Status, b.StartedAt, b.CompletedAt, b.Version)
	if err != nil {
		return mapError("update batch "+b.BatchID, err)
	}
	if tag.RowsAffected() == 0 {
		return r.missingOrStale(ctx, "batch", b.BatchID, `SELECT 1 FROM batches WHERE batch_id = $1;`)
	}
	return nil
}

// RecordOutcome settles a pending entry and bumps the matching counter in one statement.
func (r *PgxBatchRepository) RecordOutcome(ctx context.Context, batchID string, position int, outcome domain.EntryOutcome, entryErr *domain.BatchEntryError) (bool, error) {
	query := `
		WITH settled AS (
			UPDATE batch_entries
			SET outcome = $3, error = $4
			WHERE batch_id = $1 AND position = $2 AND outcome = 'PENDING'
			RETURNING batch_id
		)
		UPDATE batches b
		SET posted_count = b.posted_count + CASE WHEN $3 = 'POSTED' THEN 1 ELSE 0 END,
		    failed_count = b.failed_count + CASE WHEN $3 = 'FAILED' THEN 1 ELSE 0 END,
		    version = b.version + 1
		FROM settled
		WHERE b.batch_id = settled.batch_id;
	`
	tag, err := r.db(ctx).Exec(ctx, query, batchID, position, string(outcome), entryErr)
	if err != nil {
		return false, mapError("record outcome of batch "+batchID, err)
	}
	if tag.RowsAffected() > 0 {
		return true, nil
	}

	var one int
	err = r.db(ctx).QueryRow(ctx,
		`SELECT 1 FROM batch_entries WHERE batch_id = $1 AND position = $2;`, batchID, position).Scan(&one)
	if err != nil {
		return false, mapError(fmt.Sprintf("find position %d of batch %s", position, batchID), err)
	}
	return false, nil
}

func (r *PgxBatchRepository) MarkCompleted(ctx context.Context, batchID string, status domain.BatchStatus, at time.Time) error {
	tag, err := r.db(ctx).Exec(ctx, `
		UPDATE batches
		SET status = $2, completed_at = $3, version = version + 1
		WHERE batch_id = $1 AND posted_count + failed_count = total_count;`,
		batchID, status, at)
	if err != nil {
		return mapError("complete batch "+batchID, err)
	}
	if tag.RowsAffected() == 0 {
		var one int
		if err := r.db(ctx).QueryRow(ctx, `SELECT 1 FROM batches WHERE batch_id = $1;`, batchID).Scan(&one); err != nil {
			return mapError("find batch "+batchID, err)
		}
		return fmt.Errorf("batch %s still has pending entries: %w", batchID, apperrors.ErrConflict)
	}
	return nil
}

// DeleteBatch removes the batch. Entries go with it through ON DELETE CASCADE.
func (r *PgxBatchRepository) DeleteBatch(ctx context.Context, batchID string) error {
	tag, err := r.db(ctx).Exec(ctx, `DELETE FROM batches WHERE batch_id = $1;`, batchID)
	if err != nil {
		return mapError("delete batch "+batchID, err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}
