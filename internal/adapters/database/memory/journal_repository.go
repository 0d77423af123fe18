package memory

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/SscSPs/erp_ledger/internal/apperrors"
	"github.com/SscSPs/erp_ledger/internal/core/domain"
	portsrepo "github.com/SscSPs/erp_ledger/internal/core/ports/repositories"
)

type journalRepository struct {
	store *Store
}

var _ portsrepo.JournalRepositoryFacade = (*journalRepository)(nil)

func copyEntry(e domain.JournalEntry) *domain.JournalEntry {
	e.Lines = slices.Clone(e.Lines)
	return &e
}

func (r *journalRepository) FindEntryByID(ctx context.Context, entryID string) (*domain.JournalEntry, error) {
	var out *domain.JournalEntry
	err := r.store.read(ctx, func(st *state) error {
		e, ok := st.entries[entryID]
		if !ok {
			return apperrors.ErrNotFound
		}
		out = copyEntry(e)
		return nil
	})
	return out, err
}

func (r *journalRepository) FindEntryForUpdate(ctx context.Context, entryID string) (*domain.JournalEntry, error) {
	return r.FindEntryByID(ctx, entryID)
}

func matchesFilter(e domain.JournalEntry, f domain.EntryFilter) bool {
	if f.PeriodID != "" && e.PeriodID != f.PeriodID {
		return false
	}
	if f.Status != "" && e.Status != f.Status {
		return false
	}
	if f.From != nil && e.EntryDate.Before(*f.From) {
		return false
	}
	if f.To != nil && e.EntryDate.After(*f.To) {
		return false
	}
	if f.AccountID != "" {
		return slices.ContainsFunc(e.Lines, func(l domain.JournalLine) bool { return l.AccountID == f.AccountID })
	}
	return true
}

func (r *journalRepository) ListEntries(ctx context.Context, companyID string, filter domain.EntryFilter) ([]domain.JournalEntry, error) {
	out := []domain.JournalEntry{}
	err := r.store.read(ctx, func(st *state) error {
		for _, e := range st.entries {
			if e.CompanyID == companyID && matchesFilter(e, filter) {
				out = append(out, *copyEntry(e))
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	slices.SortFunc(out, func(a, b domain.JournalEntry) int {
		if c := b.EntryDate.Compare(a.EntryDate); c != 0 {
			return c
		}
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(b.EntryID, a.EntryID)
	})
	return page(out, filter.Limit, filter.Offset), nil
}

func (r *journalRepository) CountEntriesByStatus(ctx context.Context, periodID string, status domain.JournalStatus) (int, error) {
	n := 0
	err := r.store.read(ctx, func(st *state) error {
		for _, e := range st.entries {
			if e.PeriodID == periodID && e.Status == status {
				n++
			}
		}
		return nil
	})
	return n, err
}

func (r *journalRepository) AccountHasLines(ctx context.Context, accountID string) (bool, error) {
	found := false
	err := r.store.read(ctx, func(st *state) error {
		for _, e := range st.entries {
			if slices.ContainsFunc(e.Lines, func(l domain.JournalLine) bool { return l.AccountID == accountID }) {
				found = true
				return nil
			}
		}
		return nil
	})
	return found, err
}

func (r *journalRepository) ListPostedLines(ctx context.Context, companyID, accountID string, from, to time.Time) ([]domain.PostedLine, error) {
	var out []domain.PostedLine
	err := r.store.read(ctx, func(st *state) error {
		for _, e := range st.entries {
			if e.CompanyID != companyID || (e.Status != domain.Posted && e.Status != domain.Reversed) {
				continue
			}
			if e.EntryDate.Before(from) || e.EntryDate.After(to) {
				continue
			}
			for _, l := range e.Lines {
				if l.AccountID == accountID {
					out = append(out, domain.PostedLine{JournalLine: l, EntryDate: e.EntryDate, Description: e.Description})
				}
			}
		}
		return nil
	})
	slices.SortFunc(out, func(a, b domain.PostedLine) int {
		if c := a.EntryDate.Compare(b.EntryDate); c != 0 {
			return c
		}
		if c := strings.Compare(a.EntryID, b.EntryID); c != 0 {
			return c
		}
		return a.LineNo - b.LineNo
	})
	return out, err
}

func (r *journalRepository) checkLineAccounts(st *state, lines []domain.JournalLine) error {
	for _, l := range lines {
		if _, ok := st.accounts[l.AccountID]; !ok {
			return fmt.Errorf("line references unknown account %s: %w", l.AccountID, apperrors.ErrValidation)
		}
	}
	return nil
}

func (r *journalRepository) SaveEntry(ctx context.Context, entry domain.JournalEntry) error {
	return r.store.write(ctx, func(st *state) error {
		if _, ok := st.entries[entry.EntryID]; ok {
			return fmt.Errorf("journal entry %s: %w", entry.EntryID, apperrors.ErrDuplicate)
		}
		if err := r.checkLineAccounts(st, entry.Lines); err != nil {
			return err
		}
		st.entries[entry.EntryID] = *copyEntry(entry)
		return nil
	})
}

func (r *journalRepository) UpdateEntry(ctx context.Context, entry domain.JournalEntry, expectedVersion int64) error {
	return r.store.write(ctx, func(st *state) error {
		stored, ok := st.entries[entry.EntryID]
		if !ok {
			return apperrors.ErrNotFound
		}
		if stored.Version != expectedVersion {
			return apperrors.Stale("journal entry", entry.EntryID)
		}
		entry.Lines = stored.Lines
		st.entries[entry.EntryID] = entry
		return nil
	})
}

func (r *journalRepository) ReplaceLines(ctx context.Context, entryID string, lines []domain.JournalLine) error {
	return r.store.write(ctx, func(st *state) error {
		stored, ok := st.entries[entryID]
		if !ok {
			return apperrors.ErrNotFound
		}
		if err := r.checkLineAccounts(st, lines); err != nil {
			return err
		}
		stored.Lines = slices.Clone(lines)
		st.entries[entryID] = stored
		return nil
	})
}
