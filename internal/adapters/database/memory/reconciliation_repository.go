package memory

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/SscSPs/erp_ledger/internal/apperrors"
	"github.com/SscSPs/erp_ledger/internal/core/domain"
	portsrepo "github.com/SscSPs/erp_ledger/internal/core/ports/repositories"
)

type reconciliationRepository struct {
	store *Store
}

var _ portsrepo.ReconciliationRepositoryFacade = (*reconciliationRepository)(nil)

func (r *reconciliationRepository) FindReconciliationByID(ctx context.Context, reconciliationID string) (*domain.Reconciliation, error) {
	var out *domain.Reconciliation
	err := r.store.read(ctx, func(st *state) error {
		rec, ok := st.recons[reconciliationID]
		if !ok {
			return apperrors.ErrNotFound
		}
		out = &rec
		return nil
	})
	return out, err
}

func (r *reconciliationRepository) FindReconciliationForUpdate(ctx context.Context, reconciliationID string) (*domain.Reconciliation, error) {
	return r.FindReconciliationByID(ctx, reconciliationID)
}

func (r *reconciliationRepository) FindActiveOverlapping(ctx context.Context, companyID, accountID string, from, to time.Time) ([]domain.Reconciliation, error) {
	var out []domain.Reconciliation
	err := r.store.read(ctx, func(st *state) error {
		for _, rec := range st.recons {
			if rec.CompanyID != companyID || rec.AccountID != accountID {
				continue
			}
			if rec.Status != domain.ReconInProgress && rec.Status != domain.ReconCompleted {
				continue
			}
			if !rec.FromDate.After(to) && !from.After(rec.ToDate) {
				out = append(out, rec)
			}
		}
		return nil
	})
	return out, err
}

func (r *reconciliationRepository) ListItems(ctx context.Context, reconciliationID string) ([]domain.ReconciliationItem, error) {
	var out []domain.ReconciliationItem
	err := r.store.read(ctx, func(st *state) error {
		if _, ok := st.recons[reconciliationID]; !ok {
			return apperrors.ErrNotFound
		}
		out = slices.Clone(st.items[reconciliationID])
		return nil
	})
	if out == nil && err == nil {
		out = []domain.ReconciliationItem{}
	}
	return out, err
}

func (r *reconciliationRepository) SaveReconciliation(ctx context.Context, recon domain.Reconciliation) error {
	return r.store.write(ctx, func(st *state) error {
		if _, ok := st.recons[recon.ReconciliationID]; ok {
			return fmt.Errorf("reconciliation %s: %w", recon.ReconciliationID, apperrors.ErrDuplicate)
		}
		st.recons[recon.ReconciliationID] = recon
		return nil
	})
}

func (r *reconciliationRepository) UpdateReconciliation(ctx context.Context, recon domain.Reconciliation, expectedVersion int64) error {
	return r.store.write(ctx, func(st *state) error {
		stored, ok := st.recons[recon.ReconciliationID]
		if !ok {
			return apperrors.ErrNotFound
		}
		if stored.Version != expectedVersion {
			return apperrors.Stale("reconciliation", recon.ReconciliationID)
		}
		st.recons[recon.ReconciliationID] = recon
		return nil
	})
}

func (r *reconciliationRepository) SaveItems(ctx context.Context, items []domain.ReconciliationItem) error {
	return r.store.write(ctx, func(st *state) error {
		for _, it := range items {
			if _, ok := st.recons[it.ReconciliationID]; !ok {
				return fmt.Errorf("reconciliation %s: %w", it.ReconciliationID, apperrors.ErrNotFound)
			}
			if it.EntryID != nil {
				if _, ok := st.entries[*it.EntryID]; !ok {
					return fmt.Errorf("item references unknown entry %s: %w", *it.EntryID, apperrors.ErrValidation)
				}
			}
			current := st.items[it.ReconciliationID]
			if it.ExternalReference != nil && slices.ContainsFunc(current, func(o domain.ReconciliationItem) bool {
				return o.ExternalReference != nil && *o.ExternalReference == *it.ExternalReference
			}) {
				return fmt.Errorf("external reference %s: %w", *it.ExternalReference, apperrors.ErrDuplicate)
			}
			st.items[it.ReconciliationID] = append(current[:len(current):len(current)], it)
		}
		return nil
	})
}

func (r *reconciliationRepository) UpdateItems(ctx context.Context, items []domain.ReconciliationItem) error {
	return r.store.write(ctx, func(st *state) error {
		for _, it := range items {
			current := st.items[it.ReconciliationID]
			idx := slices.IndexFunc(current, func(o domain.ReconciliationItem) bool { return o.ItemID == it.ItemID })
			if idx < 0 {
				return fmt.Errorf("reconciliation item %s: %w", it.ItemID, apperrors.ErrNotFound)
			}
			current = slices.Clone(current)
			current[idx] = it
			st.items[it.ReconciliationID] = current
		}
		return nil
	})
}
