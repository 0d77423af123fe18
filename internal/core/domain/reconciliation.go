package domain

import (
	"time"

	"github.com/SscSPs/erp_ledger/internal/apperrors"
	"github.com/shopspring/decimal"
)

// ReconciliationStatus indicates the lifecycle state of a reconciliation session.
type ReconciliationStatus string

const (
	ReconInProgress ReconciliationStatus = "IN_PROGRESS"
	ReconCompleted  ReconciliationStatus = "COMPLETED"
	ReconApproved   ReconciliationStatus = "APPROVED"
	ReconRejected   ReconciliationStatus = "REJECTED"
	ReconCancelled  ReconciliationStatus = "CANCELLED"
)

// Rejected is transient: a rejected reconciliation goes straight back to work.
var reconTransitions = map[ReconciliationStatus][]ReconciliationStatus{
	ReconInProgress: {ReconCompleted, ReconCancelled},
	ReconCompleted:  {ReconApproved, ReconRejected, ReconCancelled},
	ReconRejected:   {ReconInProgress},
}

// CanTransitionTo reports whether moving from s to next is allowed.
func (s ReconciliationStatus) CanTransitionTo(next ReconciliationStatus) bool {
	for _, allowed := range reconTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// ItemType distinguishes book, statement and adjustment items.
type ItemType string

const (
	ItemBook       ItemType = "BOOK"
	ItemStatement  ItemType = "STATEMENT"
	ItemAdjustment ItemType = "ADJUSTMENT"
)

// ReconciliationItem is one side of a potential match.
type ReconciliationItem struct {
	ItemID            string          `json:"itemID"`
	ReconciliationID  string          `json:"reconciliationID"`
	Seq               int             `json:"seq"` // creation order within the reconciliation
	ItemType          ItemType        `json:"itemType"`
	EntryID           *string         `json:"entryID,omitempty"`
	LineID            *string         `json:"lineID,omitempty"`
	ExternalReference *string         `json:"externalReference,omitempty"`
	TransactionDate   time.Time       `json:"transactionDate"`
	Description       string          `json:"description"`
	Debit             decimal.Decimal `json:"debit"`
	Credit            decimal.Decimal `json:"credit"`
	IsReconciled      bool            `json:"isReconciled"`
	ReconciledAt      *time.Time      `json:"reconciledAt,omitempty"`
	ReconciledBy      *string         `json:"reconciledBy,omitempty"`
	MatchedItemID     *string         `json:"matchedItemID,omitempty"`
	CreatedAt         time.Time       `json:"createdAt"`
}

// CheckShape enforces which optional fields the item type carries.
func (it ReconciliationItem) CheckShape() error {
	ok := true
	switch it.ItemType {
	case ItemBook:
		ok = it.EntryID != nil && it.ExternalReference == nil
	case ItemStatement:
		ok = it.ExternalReference != nil && *it.ExternalReference != "" && it.EntryID == nil
	case ItemAdjustment:
		ok = it.EntryID == nil && it.ExternalReference == nil
	default:
		ok = false
	}
	if !ok {
		return apperrors.NewLedgerError(apperrors.InvalidLine,
			"reconciliation item %s has fields inconsistent with type %s", it.ItemID, it.ItemType)
	}
	return nil
}

// SignedAmount returns the item amount in the account's natural sign.
func (it ReconciliationItem) SignedAmount(category AccountCategory) decimal.Decimal {
	if category.IsDebitNormal() {
		return it.Debit.Sub(it.Credit)
	}
	return it.Credit.Sub(it.Debit)
}

// MarkMatched reconciles the item against counterpart.
func (it *ReconciliationItem) MarkMatched(counterpartID, userID string, at time.Time) {
	it.IsReconciled = true
	it.ReconciledAt = &at
	it.ReconciledBy = &userID
	it.MatchedItemID = &counterpartID
}

// ClearMatch returns the item to the unreconciled state.
func (it *ReconciliationItem) ClearMatch() {
	it.IsReconciled = false
	it.ReconciledAt = nil
	it.ReconciledBy = nil
	it.MatchedItemID = nil
}

// Reconciliation matches book lines of one account against an external statement.
type Reconciliation struct {
	ReconciliationID  string               `json:"reconciliationID"`
	CompanyID         string               `json:"companyID"`
	AccountID         string               `json:"accountID"`
	AccountCategory   AccountCategory      `json:"accountCategory"`
	FromDate          time.Time            `json:"fromDate"`
	ToDate            time.Time            `json:"toDate"`
	Status            ReconciliationStatus `json:"status"`
	BookBalance       decimal.Decimal      `json:"bookBalance"`
	StatementBalance  *decimal.Decimal     `json:"statementBalance,omitempty"`
	Difference        decimal.Decimal      `json:"difference"`
	ReconciledCount   int                  `json:"reconciledCount"`
	UnreconciledCount int                  `json:"unreconciledCount"`
	CompletedAt       *time.Time           `json:"completedAt,omitempty"`
	CompletedBy       *string              `json:"completedBy,omitempty"`
	ApprovedAt        *time.Time           `json:"approvedAt,omitempty"`
	ApprovedBy        *string              `json:"approvedBy,omitempty"`
	RejectionReason   *string              `json:"rejectionReason,omitempty"`
	Version           int64                `json:"version"`
	AuditFields
}

// Transition moves the reconciliation to next or returns an InvalidTransition error.
func (r *Reconciliation) Transition(next ReconciliationStatus) error {
	if !r.Status.CanTransitionTo(next) {
		return apperrors.NewLedgerError(apperrors.InvalidTransition,
			"reconciliation cannot move from %s to %s", r.Status, next).WithReconciliation(r.ReconciliationID)
	}
	r.Status = next
	return nil
}

// RequireStatus returns an InvalidTransition error unless the reconciliation is in want.
func (r Reconciliation) RequireStatus(want ReconciliationStatus) error {
	if r.Status != want {
		return apperrors.NewLedgerError(apperrors.InvalidTransition,
			"reconciliation is %s, expected %s", r.Status, want).WithReconciliation(r.ReconciliationID)
	}
	return nil
}

// ComputeDifference returns BookBalance - StatementBalance (a missing statement counts as zero).
func (r Reconciliation) ComputeDifference() decimal.Decimal {
	if r.StatementBalance == nil {
		return r.BookBalance
	}
	return r.BookBalance.Sub(*r.StatementBalance)
}

// Recount recomputes the counters and derived balances from the items.
// Adjustment items take part in matching but never in the balances.
func (r *Reconciliation) Recount(items []ReconciliationItem) {
	reconciled, unreconciled := 0, 0
	var statement *decimal.Decimal
	for _, it := range items {
		if it.IsReconciled {
			reconciled++
		} else {
			unreconciled++
		}
		if it.ItemType == ItemStatement {
			sum := it.SignedAmount(r.AccountCategory)
			if statement != nil {
				sum = sum.Add(*statement)
			}
			statement = &sum
		}
	}
	r.ReconciledCount = reconciled
	r.UnreconciledCount = unreconciled
	if statement != nil {
		r.StatementBalance = statement
	}
	r.Difference = r.ComputeDifference()
}

// StatementLine is an already-parsed bank statement line.
// Amount is signed in the reconciled account's natural convention.
type StatementLine struct {
	Date              time.Time       `json:"date"`
	Amount            decimal.Decimal `json:"amount"`
	ExternalReference string          `json:"externalReference"`
	Description       string          `json:"description"`
}

// MatchPair records one pairing made by the matcher.
type MatchPair struct {
	BookItemID      string          `json:"bookItemID"`
	StatementItemID string          `json:"statementItemID"`
	Amount          decimal.Decimal `json:"amount"`
	DateDeltaDays   int             `json:"dateDeltaDays"`
}

// MatchReport is the outcome of an auto-match run. Unmatched items are a normal outcome.
type MatchReport struct {
	ReconciliationID      string          `json:"reconciliationID"`
	Matched               []MatchPair     `json:"matched"`
	UnmatchedStatementIDs []string        `json:"unmatchedStatementIDs"`
	UnmatchedBookIDs      []string        `json:"unmatchedBookIDs"`
	ReconciledCount       int             `json:"reconciledCount"`
	UnreconciledCount     int             `json:"unreconciledCount"`
	Difference            decimal.Decimal `json:"difference"`
}

// MatchResult is the outcome of a manual match. Delta is the signed amount of the
// first item minus that of the second, surfaced even when non-zero.
type MatchResult struct {
	Reconciliation Reconciliation  `json:"reconciliation"`
	Pair           MatchPair       `json:"pair"`
	Delta          decimal.Decimal `json:"delta"`
}

// MatchPolicy configures auto-matching.
type MatchPolicy struct {
	WindowDays      int             `json:"windowDays"`
	AmountTolerance decimal.Decimal `json:"amountTolerance"`
}

// DefaultMatchPolicy is exact amount within three days.
func DefaultMatchPolicy() MatchPolicy {
	return MatchPolicy{WindowDays: 3, AmountTolerance: decimal.Zero}
}
