package dto

import (
	"time"

	"github.com/SscSPs/erp_ledger/internal/core/domain"
	"github.com/shopspring/decimal"
)

// StartReconciliationRequest opens a session over an account and an inclusive date range.
type StartReconciliationRequest struct {
	AccountID   string           `json:"accountID" binding:"required"`
	FromDate    time.Time        `json:"fromDate" binding:"required"`
	ToDate      time.Time        `json:"toDate" binding:"required"`
	BookBalance *decimal.Decimal `json:"bookBalance"` // Optional cross-check of the snapshot
}

// StatementLineRequest is one parsed bank statement line.
type StatementLineRequest struct {
	Date              time.Time       `json:"date" binding:"required"`
	Amount            decimal.Decimal `json:"amount"`
	ExternalReference string          `json:"externalReference" binding:"required,max=128"`
	Description       string          `json:"description" binding:"max=500"`
}

// ImportStatementRequest carries statement lines to append.
type ImportStatementRequest struct {
	Lines []StatementLineRequest `json:"lines" binding:"required,min=1,dive"`
}

// ToStatementLines converts the request to domain statement lines.
func (r ImportStatementRequest) ToStatementLines() []domain.StatementLine {
	out := make([]domain.StatementLine, len(r.Lines))
	for i, l := range r.Lines {
		out[i] = domain.StatementLine{
			Date:              l.Date,
			Amount:            l.Amount,
			ExternalReference: l.ExternalReference,
			Description:       l.Description,
		}
	}
	return out
}

// AddAdjustmentRequest records a bank-only item such as a fee.
type AddAdjustmentRequest struct {
	Date        time.Time       `json:"date" binding:"required"`
	Description string          `json:"description" binding:"required,max=500"`
	Amount      decimal.Decimal `json:"amount"`
}

// AutoMatchRequest overrides the configured match policy for one run.
type AutoMatchRequest struct {
	WindowDays      *int             `json:"windowDays" binding:"omitempty,min=0,max=365"`
	AmountTolerance *decimal.Decimal `json:"amountTolerance"`
}

// ToPolicy returns nil when neither field is set, meaning the configured policy applies.
func (r AutoMatchRequest) ToPolicy(defaults domain.MatchPolicy) *domain.MatchPolicy {
	if r.WindowDays == nil && r.AmountTolerance == nil {
		return nil
	}
	p := defaults
	if r.WindowDays != nil {
		p.WindowDays = *r.WindowDays
	}
	if r.AmountTolerance != nil {
		p.AmountTolerance = *r.AmountTolerance
	}
	return &p
}

// ManualMatchRequest pairs a book item with a statement or adjustment item.
type ManualMatchRequest struct {
	BookItemID      string `json:"bookItemID" binding:"required"`
	StatementItemID string `json:"statementItemID" binding:"required"`
}

// UnmatchRequest clears the match of an item and its counterpart.
type UnmatchRequest struct {
	ItemID string `json:"itemID" binding:"required"`
}

// CompleteReconciliationRequest submits a session for approval.
type CompleteReconciliationRequest struct {
	AcceptDifference bool `json:"acceptDifference"`
}

// RejectReconciliationRequest sends a session back to work.
type RejectReconciliationRequest struct {
	Reason string `json:"reason" binding:"required,max=1000"`
}

// ReconciliationResponse defines the data returned for a reconciliation.
type ReconciliationResponse struct {
	ReconciliationID  string                      `json:"reconciliationID"`
	AccountID         string                      `json:"accountID"`
	FromDate          string                      `json:"fromDate"`
	ToDate            string                      `json:"toDate"`
	Status            domain.ReconciliationStatus `json:"status"`
	BookBalance       decimal.Decimal             `json:"bookBalance"`
	StatementBalance  *decimal.Decimal            `json:"statementBalance,omitempty"`
	Difference        decimal.Decimal             `json:"difference"`
	ReconciledCount   int                         `json:"reconciledCount"`
	UnreconciledCount int                         `json:"unreconciledCount"`
	CompletedAt       *time.Time                  `json:"completedAt,omitempty"`
	CompletedBy       *string                     `json:"completedBy,omitempty"`
	ApprovedAt        *time.Time                  `json:"approvedAt,omitempty"`
	ApprovedBy        *string                     `json:"approvedBy,omitempty"`
	RejectionReason   *string                     `json:"rejectionReason,omitempty"`
	Version           int64                       `json:"version"`
}

// ToReconciliationResponse converts a domain.Reconciliation to its response DTO
func ToReconciliationResponse(r *domain.Reconciliation) ReconciliationResponse {
	return ReconciliationResponse{
		ReconciliationID:  r.ReconciliationID,
		AccountID:         r.AccountID,
		FromDate:          r.FromDate.Format(time.DateOnly),
		ToDate:            r.ToDate.Format(time.DateOnly),
		Status:            r.Status,
		BookBalance:       r.BookBalance,
		StatementBalance:  r.StatementBalance,
		Difference:        r.Difference,
		ReconciledCount:   r.ReconciledCount,
		UnreconciledCount: r.UnreconciledCount,
		CompletedAt:       r.CompletedAt,
		CompletedBy:       r.CompletedBy,
		ApprovedAt:        r.ApprovedAt,
		ApprovedBy:        r.ApprovedBy,
		RejectionReason:   r.RejectionReason,
		Version:           r.Version,
	}
}

// ListItemsResponse wraps the items of a reconciliation.
type ListItemsResponse struct {
	Items []domain.ReconciliationItem `json:"items"`
}

// MatchResultResponse is the outcome of a manual match.
type MatchResultResponse struct {
	Reconciliation ReconciliationResponse `json:"reconciliation"`
	Pair           domain.MatchPair       `json:"pair"`
	Delta          decimal.Decimal        `json:"delta"`
}

// ToMatchResultResponse converts a domain.MatchResult to its response DTO
func ToMatchResultResponse(m *domain.MatchResult) MatchResultResponse {
	return MatchResultResponse{
		Reconciliation: ToReconciliationResponse(&m.Reconciliation),
		Pair:           m.Pair,
		Delta:          m.Delta,
	}
}
