package services

import (
	"context"

	"github.com/SscSPs/erp_ledger/internal/core/domain"
)

// BatchSvcFacade defines batch posting operations
type BatchSvcFacade interface {
	// SubmitBatch persists a PENDING batch and dispatches it for processing.
	SubmitBatch(ctx context.Context, companyID, userID string, entryIDs []string) (*domain.Batch, error)

	// ProcessBatch posts every pending entry of the batch independently and settles its status.
	ProcessBatch(ctx context.Context, batchID string) (*domain.Batch, error)

	// GetBatchStatus is read-only and safe to call while the batch is processing.
	GetBatchStatus(ctx context.Context, companyID, batchID string) (*domain.Batch, error)

	// DiscardBatch deletes a batch that has not started.
	DiscardBatch(ctx context.Context, companyID, userID, batchID string) error

	// ResumeUnfinished dispatches every PENDING or PROCESSING batch again.
	ResumeUnfinished(ctx context.Context) (int, error)

	// Shutdown stops the workers after in-flight batches finish.
	Shutdown(ctx context.Context) error
}
