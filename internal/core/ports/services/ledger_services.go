package services

import (
	"context"
	"time"

	"github.com/SscSPs/erp_ledger/internal/core/domain"
)

// ReverseOptions customises a reversal. Zero values fall back to the original entry.
type ReverseOptions struct {
	PeriodID    string
	EntryDate   *time.Time
	Description string
}

// LedgerReaderSvc defines read operations on journal entries
type LedgerReaderSvc interface {
	GetEntry(ctx context.Context, companyID, entryID string) (*domain.JournalEntry, error)
	ListEntries(ctx context.Context, companyID string, filter domain.EntryFilter) ([]domain.JournalEntry, error)
}

// LedgerDraftSvc defines the draft lifecycle
type LedgerDraftSvc interface {
	CreateDraft(ctx context.Context, companyID, userID string, draft domain.JournalEntryDraft) (*domain.JournalEntry, error)
	UpdateDraft(ctx context.Context, companyID, userID, entryID string, draft domain.JournalEntryDraft, expectedVersion int64) (*domain.JournalEntry, error)
	CancelDraft(ctx context.Context, companyID, userID, entryID string) (*domain.JournalEntry, error)
}

// LedgerPosterSvc defines the posting operations that enforce the ledger invariants
type LedgerPosterSvc interface {
	// PostEntry validates and posts an entry atomically. Posting an already posted id returns
	// the stored entry unchanged.
	PostEntry(ctx context.Context, companyID, userID string, draft domain.JournalEntryDraft) (*domain.JournalEntry, error)

	// PostDraft posts a stored draft as is.
	PostDraft(ctx context.Context, companyID, userID, entryID string) (*domain.JournalEntry, error)

	// ReversePosted books the mirror entry of a posted entry and marks the original REVERSED.
	ReversePosted(ctx context.Context, companyID, userID, entryID string, opts ReverseOptions) (*domain.JournalEntry, error)
}

// LedgerSvcFacade combines all ledger service interfaces
type LedgerSvcFacade interface {
	LedgerReaderSvc
	LedgerDraftSvc
	LedgerPosterSvc
}
