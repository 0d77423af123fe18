package apperrors

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Kind classifies a ledger rule violation or infrastructure failure.
// A Kind is itself an error so callers can write errors.Is(err, apperrors.PeriodClosed).
type Kind string

const (
	PeriodClosed           Kind = "PERIOD_CLOSED"
	UnbalancedEntry        Kind = "UNBALANCED_ENTRY"
	InvalidLine            Kind = "INVALID_LINE"
	RestrictedAccount      Kind = "RESTRICTED_ACCOUNT"
	UnknownAccount         Kind = "UNKNOWN_ACCOUNT"
	UnknownPeriod          Kind = "UNKNOWN_PERIOD"
	UnknownEntry           Kind = "UNKNOWN_ENTRY"
	EntryDateOutsidePeriod Kind = "ENTRY_DATE_OUTSIDE_PERIOD"
	PeriodOverlap          Kind = "PERIOD_OVERLAP"
	PeriodHasOpenEntries   Kind = "PERIOD_HAS_OPEN_ENTRIES"
	ReconciliationNotReady Kind = "RECONCILIATION_NOT_READY"
	ConcurrentModification Kind = "CONCURRENT_MODIFICATION"
	InvalidTransition      Kind = "INVALID_TRANSITION"
	StorageUnavailable     Kind = "STORAGE_UNAVAILABLE"
)

func (k Kind) Error() string {
	return strings.ToLower(strings.ReplaceAll(string(k), "_", " "))
}

// category maps a kind onto the generic sentinels used by the transport layer.
func (k Kind) category() error {
	switch k {
	case UnknownAccount, UnknownPeriod, UnknownEntry:
		return ErrNotFound
	case ConcurrentModification, InvalidTransition, PeriodHasOpenEntries, PeriodOverlap, ReconciliationNotReady:
		return ErrConflict
	case StorageUnavailable:
		return ErrInternal
	default:
		return ErrValidation
	}
}

// LedgerError is the typed error returned by the ledger core. It carries enough context
// to render an actionable message without re-querying storage.
type LedgerError struct {
	Kind             Kind
	Message          string
	EntryID          string
	LineIndex        *int
	AccountID        string
	PeriodID         string
	ReconciliationID string
	Debit            *decimal.Decimal
	Credit           *decimal.Decimal
	Difference       *decimal.Decimal
	Count            *int
	Err              error
}

func (e *LedgerError) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.Error())
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.EntryID != "" {
		fmt.Fprintf(&b, " (entry %s", e.EntryID)
		if e.LineIndex != nil {
			fmt.Fprintf(&b, ", line %d", *e.LineIndex)
		}
		b.WriteString(")")
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

// Is reports whether target is this error's kind or its generic category.
func (e *LedgerError) Is(target error) bool {
	if k, ok := target.(Kind); ok {
		return k == e.Kind
	}
	return target == e.Kind.category()
}

func (e *LedgerError) Unwrap() error {
	return e.Err
}

// Details returns the structured context as a flat map, omitting empty fields.
func (e *LedgerError) Details() map[string]any {
	d := map[string]any{}
	if e.EntryID != "" {
		d["entryID"] = e.EntryID
	}
	if e.LineIndex != nil {
		d["lineIndex"] = *e.LineIndex
	}
	if e.AccountID != "" {
		d["accountID"] = e.AccountID
	}
	if e.PeriodID != "" {
		d["periodID"] = e.PeriodID
	}
	if e.ReconciliationID != "" {
		d["reconciliationID"] = e.ReconciliationID
	}
	if e.Debit != nil {
		d["debit"] = e.Debit.StringFixed(2)
	}
	if e.Credit != nil {
		d["credit"] = e.Credit.StringFixed(2)
	}
	if e.Difference != nil {
		d["difference"] = e.Difference.StringFixed(2)
	}
	if e.Count != nil {
		d["count"] = *e.Count
	}
	return d
}

// NewLedgerError creates a LedgerError of the given kind.
func NewLedgerError(kind Kind, format string, args ...any) *LedgerError {
	return &LedgerError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// WithEntry sets the entry id and returns the error for chaining.
func (e *LedgerError) WithEntry(entryID string) *LedgerError {
	e.EntryID = entryID
	return e
}

// WithLine sets the offending line index.
func (e *LedgerError) WithLine(index int) *LedgerError {
	e.LineIndex = &index
	return e
}

// WithAccount sets the offending account id.
func (e *LedgerError) WithAccount(accountID string) *LedgerError {
	e.AccountID = accountID
	return e
}

// WithPeriod sets the period id.
func (e *LedgerError) WithPeriod(periodID string) *LedgerError {
	e.PeriodID = periodID
	return e
}

// WithReconciliation sets the reconciliation id.
func (e *LedgerError) WithReconciliation(reconciliationID string) *LedgerError {
	e.ReconciliationID = reconciliationID
	return e
}

// WithAmounts records the debit and credit totals and their difference.
func (e *LedgerError) WithAmounts(debit, credit decimal.Decimal) *LedgerError {
	diff := debit.Sub(credit)
	e.Debit = &debit
	e.Credit = &credit
	e.Difference = &diff
	return e
}

// WithDifference records a difference without totals.
func (e *LedgerError) WithDifference(diff decimal.Decimal) *LedgerError {
	e.Difference = &diff
	return e
}

// WithCount records a count (e.g. open drafts, unreconciled items).
func (e *LedgerError) WithCount(n int) *LedgerError {
	e.Count = &n
	return e
}

// Wrap attaches an underlying cause.
func (e *LedgerError) Wrap(err error) *LedgerError {
	e.Err = err
	return e
}

// AsLedgerError extracts a *LedgerError from an error chain.
func AsLedgerError(err error) (*LedgerError, bool) {
	var le *LedgerError
	if errors.As(err, &le) {
		return le, true
	}
	return nil, false
}

// KindOf returns the ledger kind of err, or an empty Kind when err carries none.
func KindOf(err error) Kind {
	if le, ok := AsLedgerError(err); ok {
		return le.Kind
	}
	var k Kind
	if errors.As(err, &k) {
		return k
	}
	return ""
}

// Unavailable wraps a storage failure as a StorageUnavailable ledger error.
func Unavailable(op string, err error) *LedgerError {
	return (&LedgerError{Kind: StorageUnavailable, Message: op}).Wrap(err)
}

// Stale reports an optimistic-concurrency conflict on the named entity.
func Stale(entity, id string) *LedgerError {
	return NewLedgerError(ConcurrentModification, "%s %s was modified by another operation", entity, id)
}
