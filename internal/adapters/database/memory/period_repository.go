package memory

import (
	"context"
	"slices"
	"time"

	"github.com/SscSPs/erp_ledger/internal/apperrors"
	"github.com/SscSPs/erp_ledger/internal/core/domain"
	portsrepo "github.com/SscSPs/erp_ledger/internal/core/ports/repositories"
)

type periodRepository struct {
	store *Store
}

var _ portsrepo.PeriodRepositoryFacade = (*periodRepository)(nil)

func (r *periodRepository) FindPeriodByID(ctx context.Context, periodID string) (*domain.AccountingPeriod, error) {
	var out *domain.AccountingPeriod
	err := r.store.read(ctx, func(st *state) error {
		p, ok := st.periods[periodID]
		if !ok {
			return apperrors.ErrNotFound
		}
		out = &p
		return nil
	})
	return out, err
}

// The store mutex already serialises transactions, so the locking reads are plain reads.

func (r *periodRepository) FindPeriodForShare(ctx context.Context, periodID string) (*domain.AccountingPeriod, error) {
	return r.FindPeriodByID(ctx, periodID)
}

func (r *periodRepository) FindPeriodForUpdate(ctx context.Context, periodID string) (*domain.AccountingPeriod, error) {
	return r.FindPeriodByID(ctx, periodID)
}

func (r *periodRepository) LockCompanyPeriods(ctx context.Context, companyID string) error {
	return nil
}

func (r *periodRepository) FindPeriodForDate(ctx context.Context, companyID string, at time.Time) (*domain.AccountingPeriod, error) {
	var out *domain.AccountingPeriod
	err := r.store.read(ctx, func(st *state) error {
		for _, p := range st.periods {
			if p.CompanyID == companyID && p.Contains(at) {
				out = &p
				return nil
			}
		}
		return apperrors.ErrNotFound
	})
	return out, err
}

func (r *periodRepository) ListPeriods(ctx context.Context, companyID string) ([]domain.AccountingPeriod, error) {
	out := []domain.AccountingPeriod{}
	err := r.store.read(ctx, func(st *state) error {
		for _, p := range st.periods {
			if p.CompanyID == companyID {
				out = append(out, p)
			}
		}
		return nil
	})
	slices.SortFunc(out, func(a, b domain.AccountingPeriod) int { return a.Start.Compare(b.Start) })
	return out, err
}

func (r *periodRepository) FindOverlappingPeriods(ctx context.Context, companyID string, start, end time.Time) ([]domain.AccountingPeriod, error) {
	var out []domain.AccountingPeriod
	err := r.store.read(ctx, func(st *state) error {
		out = overlapping(st, companyID, start, end)
		return nil
	})
	return out, err
}

func overlapping(st *state, companyID string, start, end time.Time) []domain.AccountingPeriod {
	var out []domain.AccountingPeriod
	for _, p := range st.periods {
		if p.CompanyID == companyID && p.Overlaps(start, end) {
			out = append(out, p)
		}
	}
	return out
}

func (r *periodRepository) SavePeriod(ctx context.Context, period domain.AccountingPeriod) error {
	return r.store.write(ctx, func(st *state) error {
		if hits := overlapping(st, period.CompanyID, period.Start, period.End); len(hits) > 0 {
			return apperrors.NewLedgerError(apperrors.PeriodOverlap,
				"period overlaps %s", hits[0].Name).WithPeriod(hits[0].PeriodID)
		}
		st.periods[period.PeriodID] = period
		return nil
	})
}

func (r *periodRepository) UpdatePeriod(ctx context.Context, period domain.AccountingPeriod, expectedVersion int64) error {
	return r.store.write(ctx, func(st *state) error {
		stored, ok := st.periods[period.PeriodID]
		if !ok {
			return apperrors.ErrNotFound
		}
		if stored.Version != expectedVersion {
			return apperrors.Stale("period", period.PeriodID)
		}
		st.periods[period.PeriodID] = period
		return nil
	})
}
