package domain

import (
	"time"

	"github.com/SscSPs/erp_ledger/internal/apperrors"
	"github.com/shopspring/decimal"
)

// JournalStatus indicates the state of a journal entry.
type JournalStatus string

const (
	Draft     JournalStatus = "DRAFT"
	Posted    JournalStatus = "POSTED"
	Reversed  JournalStatus = "REVERSED"
	Cancelled JournalStatus = "CANCELLED"
)

var journalTransitions = map[JournalStatus][]JournalStatus{
	Draft:  {Posted, Cancelled},
	Posted: {Reversed},
}

// CanTransitionTo reports whether moving from s to next is allowed.
func (s JournalStatus) CanTransitionTo(next JournalStatus) bool {
	for _, allowed := range journalTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// JournalLine is a single debit or credit against one account.
// Exactly one of Debit/Credit is positive.
type JournalLine struct {
	LineID    string          `json:"lineID"`
	EntryID   string          `json:"entryID"`
	LineNo    int             `json:"lineNo"` // display order, 0-based
	AccountID string          `json:"accountID"`
	Debit     decimal.Decimal `json:"debit"`
	Credit    decimal.Decimal `json:"credit"`
	Narrative string          `json:"narrative"`
}

// IsDebit reports whether the line is on the debit side.
func (l JournalLine) IsDebit() bool {
	return l.Debit.IsPositive()
}

// Amount returns the non-zero side of the line.
func (l JournalLine) Amount() decimal.Decimal {
	if l.IsDebit() {
		return l.Debit
	}
	return l.Credit
}

// Swapped returns a copy of the line with Debit and Credit exchanged.
func (l JournalLine) Swapped() JournalLine {
	l.Debit, l.Credit = l.Credit, l.Debit
	return l
}

// JournalEntry represents a dated accounting transaction composed of lines.
type JournalEntry struct {
	EntryID      string          `json:"entryID"`
	CompanyID    string          `json:"companyID"`
	PeriodID     string          `json:"periodID"`
	Description  string          `json:"description"`
	EntryDate    time.Time       `json:"entryDate"`
	CurrencyCode string          `json:"currencyCode"`
	ExchangeRate decimal.Decimal `json:"exchangeRate"` // entry currency -> company base currency
	BaseAmount   decimal.Decimal `json:"baseAmount"`   // total debit at ExchangeRate, display only
	Status       JournalStatus   `json:"status"`
	Lines        []JournalLine   `json:"lines"`
	ReversalOfID *string         `json:"reversalOfID,omitempty"`
	ReversedByID *string         `json:"reversedByID,omitempty"`
	PostedAt     *time.Time      `json:"postedAt,omitempty"`
	PostedBy     *string         `json:"postedBy,omitempty"`
	Version      int64           `json:"version"`
	AuditFields
}

// Transition moves the entry to next or returns an InvalidTransition error.
func (e *JournalEntry) Transition(next JournalStatus) error {
	if !e.Status.CanTransitionTo(next) {
		return apperrors.NewLedgerError(apperrors.InvalidTransition,
			"journal entry cannot move from %s to %s", e.Status, next).WithEntry(e.EntryID)
	}
	e.Status = next
	return nil
}

// AccountIDs returns the distinct account ids referenced by the lines, in line order.
func (e JournalEntry) AccountIDs() []string {
	seen := make(map[string]struct{}, len(e.Lines))
	ids := make([]string, 0, len(e.Lines))
	for _, l := range e.Lines {
		if _, ok := seen[l.AccountID]; ok {
			continue
		}
		seen[l.AccountID] = struct{}{}
		ids = append(ids, l.AccountID)
	}
	return ids
}

// Totals sums both sides across all lines.
func (e JournalEntry) Totals() (debit, credit decimal.Decimal) {
	debit, credit = decimal.Zero, decimal.Zero
	for _, l := range e.Lines {
		debit = debit.Add(l.Debit)
		credit = credit.Add(l.Credit)
	}
	return debit, credit
}

// DraftLine is the caller-supplied form of a journal line.
type DraftLine struct {
	AccountID string          `json:"accountID"`
	Debit     decimal.Decimal `json:"debit"`
	Credit    decimal.Decimal `json:"credit"`
	Narrative string          `json:"narrative"`
}

// JournalEntryDraft is the caller-supplied form of a journal entry.
// EntryID is optional; when empty a new id is generated.
type JournalEntryDraft struct {
	EntryID      string          `json:"entryID,omitempty"`
	PeriodID     string          `json:"periodID"`
	Description  string          `json:"description"`
	EntryDate    time.Time       `json:"entryDate"`
	CurrencyCode string          `json:"currencyCode"`
	ExchangeRate decimal.Decimal `json:"exchangeRate"`
	Lines        []DraftLine     `json:"lines"`
}

// EntryFilter narrows entry listings.
type EntryFilter struct {
	PeriodID  string
	AccountID string
	Status    JournalStatus
	From      *time.Time
	To        *time.Time
	Limit     int
	Offset    int
}

// PostedLine is a journal line together with the header fields of its posted entry.
// It is the read model used to snapshot book items for reconciliation.
type PostedLine struct {
	JournalLine
	EntryDate   time.Time `json:"entryDate"`
	Description string    `json:"description"`
}
