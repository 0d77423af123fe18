package repositories

import (
	"context"
	"time"

	"github.com/SscSPs/erp_ledger/internal/core/domain"
)

// BatchReader defines read operations for posting batches
type BatchReader interface {
	// FindBatchByID retrieves a batch with its entries (position order) and errors.
	FindBatchByID(ctx context.Context, batchID string) (*domain.Batch, error)

	// ListUnfinishedBatchIDs returns the ids of PENDING and PROCESSING batches, oldest first.
	ListUnfinishedBatchIDs(ctx context.Context) ([]string, error)
}

// BatchWriter defines write operations for posting batches
type BatchWriter interface {
	// SaveBatch persists a new batch and its entries.
	SaveBatch(ctx context.Context, batch domain.Batch) error

	// UpdateBatchStatus stores status and timestamps when the stored version equals expectedVersion.
	UpdateBatchStatus(ctx context.Context, batch domain.Batch, expectedVersion int64) error

	// RecordOutcome settles one pending entry and increments the matching counter.
	// It reports false when the entry already had an outcome.
	RecordOutcome(ctx context.Context, batchID string, position int, outcome domain.EntryOutcome, entryErr *domain.BatchEntryError) (bool, error)

	// MarkCompleted sets CompletedAt and the final status once every entry is settled.
	MarkCompleted(ctx context.Context, batchID string, status domain.BatchStatus, at time.Time) error

	// DeleteBatch removes a batch and its entries.
	DeleteBatch(ctx context.Context, batchID string) error
}

// BatchRepositoryFacade combines all batch-related repository interfaces
type BatchRepositoryFacade interface {
	BatchReader
	BatchWriter
}
