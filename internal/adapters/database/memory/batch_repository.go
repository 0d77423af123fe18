package memory

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/SscSPs/erp_ledger/internal/apperrors"
	"github.com/SscSPs/erp_ledger/internal/core/domain"
	portsrepo "github.com/SscSPs/erp_ledger/internal/core/ports/repositories"
)

type batchRepository struct {
	store *Store
}

var _ portsrepo.BatchRepositoryFacade = (*batchRepository)(nil)

func copyBatch(b domain.Batch) *domain.Batch {
	b.Entries = slices.Clone(b.Entries)
	b.CollectErrors()
	return &b
}

func (r *batchRepository) FindBatchByID(ctx context.Context, batchID string) (*domain.Batch, error) {
	var out *domain.Batch
	err := r.store.read(ctx, func(st *state) error {
		b, ok := st.batches[batchID]
		if !ok {
			return apperrors.ErrNotFound
		}
		out = copyBatch(b)
		return nil
	})
	return out, err
}

func (r *batchRepository) ListUnfinishedBatchIDs(ctx context.Context) ([]string, error) {
	var unfinished []domain.Batch
	err := r.store.read(ctx, func(st *state) error {
		for _, b := range st.batches {
			if b.Status == domain.BatchPending || b.Status == domain.BatchProcessing {
				unfinished = append(unfinished, b)
			}
		}
		return nil
	})
	slices.SortFunc(unfinished, func(a, b domain.Batch) int { return a.CreatedAt.Compare(b.CreatedAt) })
	ids := make([]string, len(unfinished))
	for i, b := range unfinished {
		ids[i] = b.BatchID
	}
	return ids, err
}

func (r *batchRepository) SaveBatch(ctx context.Context, batch domain.Batch) error {
	return r.store.write(ctx, func(st *state) error {
		if _, ok := st.batches[batch.BatchID]; ok {
			return fmt.Errorf("batch %s: %w", batch.BatchID, apperrors.ErrDuplicate)
		}
		st.batches[batch.BatchID] = *copyBatch(batch)
		return nil
	})
}

func (r *batchRepository) UpdateBatchStatus(ctx context.Context, batch domain.Batch, expectedVersion int64) error {
	return r.store.write(ctx, func(st *state) error {
		stored, ok := st.batches[batch.BatchID]
		if !ok {
			return apperrors.ErrNotFound
		}
		if stored.Version != expectedVersion {
			return apperrors.Stale("batch", batch.BatchID)
		}
		stored.Status = batch.Status
		stored.StartedAt = batch.StartedAt
		stored.CompletedAt = batch.CompletedAt
		stored.Version = batch.Version
		st.batches[batch.BatchID] = stored
		return nil
	})
}

func (r *batchRepository) RecordOutcome(ctx context.Context, batchID string, position int, outcome domain.EntryOutcome, entryErr *domain.BatchEntryError) (bool, error) {
	applied := false
	err := r.store.write(ctx, func(st *state) error {
		stored, ok := st.batches[batchID]
		if !ok {
			return apperrors.ErrNotFound
		}
		idx := slices.IndexFunc(stored.Entries, func(e domain.BatchEntry) bool { return e.Position == position })
		if idx < 0 {
			return fmt.Errorf("batch %s has no position %d: %w", batchID, position, apperrors.ErrNotFound)
		}
		if stored.Entries[idx].Outcome != domain.OutcomePending {
			return nil
		}
		stored.Entries = slices.Clone(stored.Entries)
		stored.Entries[idx].Outcome = outcome
		stored.Entries[idx].Error = entryErr
		switch outcome {
		case domain.OutcomePosted:
			stored.PostedCount++
		case domain.OutcomeFailed:
			stored.FailedCount++
		}
		stored.Version++
		st.batches[batchID] = stored
		applied = true
		return nil
	})
	return applied, err
}

func (r *batchRepository) MarkCompleted(ctx context.Context, batchID string, status domain.BatchStatus, at time.Time) error {
	return r.store.write(ctx, func(st *state) error {
		stored, ok := st.batches[batchID]
		if !ok {
			return apperrors.ErrNotFound
		}
		if stored.PostedCount+stored.FailedCount != stored.TotalCount {
			return fmt.Errorf("batch %s still has pending entries: %w", batchID, apperrors.ErrConflict)
		}
		stored.Status = status
		stored.CompletedAt = &at
		stored.Version++
		st.batches[batchID] = stored
		return nil
	})
}

func (r *batchRepository) DeleteBatch(ctx context.Context, batchID string) error {
	return r.store.write(ctx, func(st *state) error {
		if _, ok := st.batches[batchID]; !ok {
			return apperrors.ErrNotFound
		}
		delete(st.batches, batchID)
		return nil
	})
}
