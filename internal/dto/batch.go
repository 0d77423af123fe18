package dto

import (
	"time"

	"github.com/SscSPs/erp_ledger/internal/core/domain"
)

// SubmitBatchRequest lists the draft entries to post together.
type SubmitBatchRequest struct {
	EntryIDs []string `json:"entryIDs" binding:"required,min=1,max=10000,dive,required"`
}

// BatchResponse defines the data returned for a posting batch.
type BatchResponse struct {
	BatchID     string                   `json:"batchID"`
	Status      domain.BatchStatus       `json:"status"`
	TotalCount  int                      `json:"totalCount"`
	PostedCount int                      `json:"postedCount"`
	FailedCount int                      `json:"failedCount"`
	Entries     []domain.BatchEntry      `json:"entries"`
	Errors      []domain.BatchEntryError `json:"errors"`
	CreatedAt   time.Time                `json:"createdAt"`
	StartedAt   *time.Time               `json:"startedAt,omitempty"`
	CompletedAt *time.Time               `json:"completedAt,omitempty"`
}

// ToBatchResponse converts a domain.Batch to its response DTO
func ToBatchResponse(b *domain.Batch) BatchResponse {
	errs := b.Errors
	if errs == nil {
		errs = []domain.BatchEntryError{}
	}
	return BatchResponse{
		BatchID:     b.BatchID,
		Status:      b.Status,
		TotalCount:  b.TotalCount,
		PostedCount: b.PostedCount,
		FailedCount: b.FailedCount,
		Entries:     b.Entries,
		Errors:      errs,
		CreatedAt:   b.CreatedAt,
		StartedAt:   b.StartedAt,
		CompletedAt: b.CompletedAt,
	}
}
