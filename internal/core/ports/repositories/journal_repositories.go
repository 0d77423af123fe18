package repositories

import (
	"context"
	"time"

	"github.com/SscSPs/erp_ledger/internal/core/domain"
)

// JournalReader defines read operations for journal data
type JournalReader interface {
	// FindEntryByID retrieves an entry with its lines ordered by line number.
	FindEntryByID(ctx context.Context, entryID string) (*domain.JournalEntry, error)

	// ListEntries retrieves entries of a company matching the filter, newest entry date first.
	ListEntries(ctx context.Context, companyID string, filter domain.EntryFilter) ([]domain.JournalEntry, error)

	// CountEntriesByStatus counts entries of a period in the given status.
	CountEntriesByStatus(ctx context.Context, periodID string, status domain.JournalStatus) (int, error)

	// AccountHasLines reports whether any journal line references the account.
	AccountHasLines(ctx context.Context, accountID string) (bool, error)
}

// LineReader defines the line-level reads used by reconciliation.
type LineReader interface {
	// ListPostedLines returns lines on the account whose entry is POSTED or REVERSED and
	// dated within [from, to] inclusive, ordered by entry date then line number.
	ListPostedLines(ctx context.Context, companyID, accountID string, from, to time.Time) ([]domain.PostedLine, error)
}

// JournalLocker defines the row locks taken inside a transaction.
type JournalLocker interface {
	// FindEntryForUpdate reads an entry holding an exclusive lock on its row.
	FindEntryForUpdate(ctx context.Context, entryID string) (*domain.JournalEntry, error)
}

// JournalWriter defines write operations for journal data
type JournalWriter interface {
	// SaveEntry persists a new entry and its lines.
	SaveEntry(ctx context.Context, entry domain.JournalEntry) error

	// UpdateEntry stores header changes (status, links, description, date, rate) when the
	// stored version equals expectedVersion.
	UpdateEntry(ctx context.Context, entry domain.JournalEntry, expectedVersion int64) error

	// ReplaceLines swaps every line of a draft entry.
	ReplaceLines(ctx context.Context, entryID string, lines []domain.JournalLine) error
}

// JournalRepositoryFacade combines all journal-related repository interfaces
type JournalRepositoryFacade interface {
	JournalReader
	LineReader
	JournalLocker
	JournalWriter
}
