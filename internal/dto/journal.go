package dto

import (
	"time"

	"github.com/SscSPs/erp_ledger/internal/core/domain"
	portssvc "github.com/SscSPs/erp_ledger/internal/core/ports/services"
	"github.com/shopspring/decimal"
)

// JournalLineRequest is one caller-supplied line. Exactly one side must be positive;
// the engine reports the offending index otherwise.
type JournalLineRequest struct {
	AccountID string          `json:"accountID" binding:"required"`
	Debit     decimal.Decimal `json:"debit"`
	Credit    decimal.Decimal `json:"credit"`
	Narrative string          `json:"narrative" binding:"max=500"`
}

// JournalEntryRequest defines an entry to draft or post.
type JournalEntryRequest struct {
	EntryID      string               `json:"entryID" binding:"omitempty,max=64"` // Optional idempotency key
	PeriodID     string               `json:"periodID" binding:"required"`
	Description  string               `json:"description" binding:"max=500"`
	EntryDate    time.Time            `json:"entryDate" binding:"required"`
	CurrencyCode string               `json:"currencyCode" binding:"omitempty,len=3"`
	ExchangeRate decimal.Decimal      `json:"exchangeRate"`
	Lines        []JournalLineRequest `json:"lines" binding:"dive"`
}

// ToDraft converts the request to the domain draft.
func (r JournalEntryRequest) ToDraft() domain.JournalEntryDraft {
	lines := make([]domain.DraftLine, len(r.Lines))
	for i, l := range r.Lines {
		lines[i] = domain.DraftLine{
			AccountID: l.AccountID,
			Debit:     l.Debit,
			Credit:    l.Credit,
			Narrative: l.Narrative,
		}
	}
	return domain.JournalEntryDraft{
		EntryID:      r.EntryID,
		PeriodID:     r.PeriodID,
		Description:  r.Description,
		EntryDate:    r.EntryDate,
		CurrencyCode: r.CurrencyCode,
		ExchangeRate: r.ExchangeRate,
		Lines:        lines,
	}
}

// UpdateDraftRequest replaces the contents of a draft at a known version.
type UpdateDraftRequest struct {
	JournalEntryRequest
	ExpectedVersion int64 `json:"expectedVersion" binding:"required,min=1"`
}

// ReverseEntryRequest customises a reversal. Every field is optional.
type ReverseEntryRequest struct {
	PeriodID    string     `json:"periodID"`
	EntryDate   *time.Time `json:"entryDate"`
	Description string     `json:"description" binding:"max=500"`
}

// ToOptions converts the request to reversal options.
func (r ReverseEntryRequest) ToOptions() portssvc.ReverseOptions {
	return portssvc.ReverseOptions{
		PeriodID:    r.PeriodID,
		EntryDate:   r.EntryDate,
		Description: r.Description,
	}
}

// JournalLineResponse defines the data returned for a journal line.
type JournalLineResponse struct {
	LineID    string          `json:"lineID"`
	LineNo    int             `json:"lineNo"`
	AccountID string          `json:"accountID"`
	Debit     decimal.Decimal `json:"debit"`
	Credit    decimal.Decimal `json:"credit"`
	Narrative string          `json:"narrative"`
}

// JournalEntryResponse defines the data returned for a journal entry.
type JournalEntryResponse struct {
	EntryID      string                `json:"entryID"`
	CompanyID    string                `json:"companyID"`
	PeriodID     string                `json:"periodID"`
	Description  string                `json:"description"`
	EntryDate    string                `json:"entryDate"` // YYYY-MM-DD
	CurrencyCode string                `json:"currencyCode"`
	ExchangeRate decimal.Decimal       `json:"exchangeRate"`
	BaseAmount   decimal.Decimal       `json:"baseAmount"`
	Status       domain.JournalStatus  `json:"status"`
	Lines        []JournalLineResponse `json:"lines"`
	ReversalOfID *string               `json:"reversalOfID,omitempty"`
	ReversedByID *string               `json:"reversedByID,omitempty"`
	PostedAt     *time.Time            `json:"postedAt,omitempty"`
	PostedBy     *string               `json:"postedBy,omitempty"`
	Version      int64                 `json:"version"`
	CreatedAt    time.Time             `json:"createdAt"`
	CreatedBy    string                `json:"createdBy"`
}

// ToJournalEntryResponse converts a domain.JournalEntry to its response DTO
func ToJournalEntryResponse(e *domain.JournalEntry) JournalEntryResponse {
	lines := make([]JournalLineResponse, len(e.Lines))
	for i, l := range e.Lines {
		lines[i] = JournalLineResponse{
			LineID:    l.LineID,
			LineNo:    l.LineNo,
			AccountID: l.AccountID,
			Debit:     l.Debit,
			Credit:    l.Credit,
			Narrative: l.Narrative,
		}
	}
	return JournalEntryResponse{
		EntryID:      e.EntryID,
		CompanyID:    e.CompanyID,
		PeriodID:     e.PeriodID,
		Description:  e.Description,
		EntryDate:    e.EntryDate.Format(time.DateOnly),
		CurrencyCode: e.CurrencyCode,
		ExchangeRate: e.ExchangeRate,
		BaseAmount:   e.BaseAmount,
		Status:       e.Status,
		Lines:        lines,
		ReversalOfID: e.ReversalOfID,
		ReversedByID: e.ReversedByID,
		PostedAt:     e.PostedAt,
		PostedBy:     e.PostedBy,
		Version:      e.Version,
		CreatedAt:    e.CreatedAt,
		CreatedBy:    e.CreatedBy,
	}
}

// ListEntriesParams defines query parameters for listing entries.
type ListEntriesParams struct {
	PeriodID  string `form:"periodID"`
	AccountID string `form:"accountID"`
	Status    string `form:"status" binding:"omitempty,oneof=DRAFT POSTED REVERSED CANCELLED"`
	From      string `form:"from" binding:"omitempty,datetime=2006-01-02"`
	To        string `form:"to" binding:"omitempty,datetime=2006-01-02"`
	Limit     int    `form:"limit,default=20" binding:"min=0,max=500"`
	Offset    int    `form:"offset,default=0" binding:"min=0"`
}

// ToFilter converts the query to a domain filter. Dates were validated by binding.
func (p ListEntriesParams) ToFilter() domain.EntryFilter {
	f := domain.EntryFilter{
		PeriodID:  p.PeriodID,
		AccountID: p.AccountID,
		Status:    domain.JournalStatus(p.Status),
		Limit:     p.Limit,
		Offset:    p.Offset,
	}
	if t, err := time.Parse(time.DateOnly, p.From); err == nil {
		f.From = &t
	}
	if t, err := time.Parse(time.DateOnly, p.To); err == nil {
		f.To = &t
	}
	return f
}

// ListEntriesResponse wraps the list of entries.
type ListEntriesResponse struct {
	Entries []JournalEntryResponse `json:"entries"`
}
