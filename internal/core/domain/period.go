package domain

import "time"

// AccountingPeriod is a half-open date range [Start, End) within which entries are recorded.
type AccountingPeriod struct {
	PeriodID  string     `json:"periodID"`
	CompanyID string     `json:"companyID"`
	Name      string     `json:"name"`
	Start     time.Time  `json:"start"`
	End       time.Time  `json:"end"`
	IsClosed  bool       `json:"isClosed"`
	ClosedAt  *time.Time `json:"closedAt,omitempty"`
	ClosedBy  *string    `json:"closedBy,omitempty"`
	Version   int64      `json:"version"`
	AuditFields
}

// Contains reports whether at falls inside [Start, End).
func (p AccountingPeriod) Contains(at time.Time) bool {
	return !at.Before(p.Start) && at.Before(p.End)
}

// Overlaps reports whether [start, end) intersects the period.
func (p AccountingPeriod) Overlaps(start, end time.Time) bool {
	return start.Before(p.End) && p.Start.Before(end)
}

// IsOpenAt reports whether the period accepts postings dated at.
func (p AccountingPeriod) IsOpenAt(at time.Time) bool {
	return !p.IsClosed && p.Contains(at)
}
