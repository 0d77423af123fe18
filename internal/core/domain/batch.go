package domain

import (
	"time"

	"github.com/SscSPs/erp_ledger/internal/apperrors"
)

// BatchStatus indicates the lifecycle state of a posting batch.
type BatchStatus string

const (
	BatchPending            BatchStatus = "PENDING"
	BatchProcessing         BatchStatus = "PROCESSING"
	BatchCompleted          BatchStatus = "COMPLETED"
	BatchFailed             BatchStatus = "FAILED"
	BatchPartiallyCompleted BatchStatus = "PARTIALLY_COMPLETED"
)

var batchTransitions = map[BatchStatus][]BatchStatus{
	BatchPending:    {BatchProcessing},
	BatchProcessing: {BatchCompleted, BatchFailed, BatchPartiallyCompleted},
}

// CanTransitionTo reports whether moving from s to next is allowed.
func (s BatchStatus) CanTransitionTo(next BatchStatus) bool {
	for _, allowed := range batchTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transition is possible.
func (s BatchStatus) IsTerminal() bool {
	return s == BatchCompleted || s == BatchFailed || s == BatchPartiallyCompleted
}

// EntryOutcome is the per-entry result inside a batch.
type EntryOutcome string

const (
	OutcomePending EntryOutcome = "PENDING"
	OutcomePosted  EntryOutcome = "POSTED"
	OutcomeFailed  EntryOutcome = "FAILED"
)

// BatchEntryError is the structured failure record for one entry of a batch.
type BatchEntryError struct {
	EntryID  string         `json:"entryID"`
	Position int            `json:"position"`
	Kind     string         `json:"kind"`
	Message  string         `json:"message"`
	Details  map[string]any `json:"details,omitempty"`
}

// BatchEntry references one journal entry submitted in a batch.
type BatchEntry struct {
	EntryID  string           `json:"entryID"`
	Position int              `json:"position"`
	Outcome  EntryOutcome     `json:"outcome"`
	Error    *BatchEntryError `json:"error,omitempty"`
}

// Batch groups many journal entries posted as one logical operation.
type Batch struct {
	BatchID     string            `json:"batchID"`
	CompanyID   string            `json:"companyID"`
	UserID      string            `json:"userID"`
	Status      BatchStatus       `json:"status"`
	TotalCount  int               `json:"totalCount"`
	PostedCount int               `json:"postedCount"`
	FailedCount int               `json:"failedCount"`
	Entries     []BatchEntry      `json:"entries"`
	Errors      []BatchEntryError `json:"errors"`
	CreatedAt   time.Time         `json:"createdAt"`
	StartedAt   *time.Time        `json:"startedAt,omitempty"`
	CompletedAt *time.Time        `json:"completedAt,omitempty"`
	Version     int64             `json:"version"`
}

// Transition moves the batch to next or returns an InvalidTransition error.
func (b *Batch) Transition(next BatchStatus) error {
	if !b.Status.CanTransitionTo(next) {
		return apperrors.NewLedgerError(apperrors.InvalidTransition,
			"batch %s cannot move from %s to %s", b.BatchID, b.Status, next)
	}
	b.Status = next
	return nil
}

// PendingEntries returns the entries that have no outcome yet, in position order.
func (b Batch) PendingEntries() []BatchEntry {
	pending := make([]BatchEntry, 0, len(b.Entries))
	for _, e := range b.Entries {
		if e.Outcome == OutcomePending {
			pending = append(pending, e)
		}
	}
	return pending
}

// IsSettled reports whether every entry has reached a terminal outcome.
func (b Batch) IsSettled() bool {
	return b.PostedCount+b.FailedCount == b.TotalCount
}

// FinalStatus computes the terminal status from the counters.
func (b Batch) FinalStatus() BatchStatus {
	switch {
	case b.FailedCount == 0:
		return BatchCompleted
	case b.PostedCount == 0 && b.FailedCount == b.TotalCount:
		return BatchFailed
	default:
		return BatchPartiallyCompleted
	}
}

// CollectErrors rebuilds the Errors list from the entries.
func (b *Batch) CollectErrors() {
	b.Errors = make([]BatchEntryError, 0)
	for _, e := range b.Entries {
		if e.Error != nil {
			b.Errors = append(b.Errors, *e.Error)
		}
	}
}
