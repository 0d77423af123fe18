package dto

import (
	"time"

	"github.com/SscSPs/erp_ledger/internal/core/domain"
)

// OpenPeriodRequest defines a new half-open period [start, end).
type OpenPeriodRequest struct {
	Name  string    `json:"name" binding:"required,max=100"`
	Start time.Time `json:"start" binding:"required"`
	End   time.Time `json:"end" binding:"required"`
}

// PeriodResponse defines the data returned for an accounting period.
type PeriodResponse struct {
	PeriodID  string     `json:"periodID"`
	CompanyID string     `json:"companyID"`
	Name      string     `json:"name"`
	Start     string     `json:"start"` // YYYY-MM-DD, inclusive
	End       string     `json:"end"`   // YYYY-MM-DD, exclusive
	IsClosed  bool       `json:"isClosed"`
	ClosedAt  *time.Time `json:"closedAt,omitempty"`
	ClosedBy  *string    `json:"closedBy,omitempty"`
	Version   int64      `json:"version"`
	CreatedAt time.Time  `json:"createdAt"`
	CreatedBy string     `json:"createdBy"`
}

// ToPeriodResponse converts a domain.AccountingPeriod to PeriodResponse DTO
func ToPeriodResponse(p *domain.AccountingPeriod) PeriodResponse {
	return PeriodResponse{
		PeriodID:  p.PeriodID,
		CompanyID: p.CompanyID,
		Name:      p.Name,
		Start:     p.Start.Format(time.DateOnly),
		End:       p.End.Format(time.DateOnly),
		IsClosed:  p.IsClosed,
		ClosedAt:  p.ClosedAt,
		ClosedBy:  p.ClosedBy,
		Version:   p.Version,
		CreatedAt: p.CreatedAt,
		CreatedBy: p.CreatedBy,
	}
}

// ListPeriodsResponse wraps the list of periods.
type ListPeriodsResponse struct {
	Periods []PeriodResponse `json:"periods"`
}

// ToListPeriodsResponse converts periods to their DTOs.
func ToListPeriodsResponse(periods []domain.AccountingPeriod) ListPeriodsResponse {
	res := ListPeriodsResponse{Periods: make([]PeriodResponse, len(periods))}
	for i := range periods {
		res.Periods[i] = ToPeriodResponse(&periods[i])
	}
	return res
}

// IsOpenParams defines the query of the is-open check.
type IsOpenParams struct {
	At string `form:"at" binding:"required,datetime=2006-01-02"`
}

// IsOpenResponse reports whether a period accepts postings on a date.
type IsOpenResponse struct {
	PeriodID string `json:"periodID"`
	At       string `json:"at"`
	IsOpen   bool   `json:"isOpen"`
}
