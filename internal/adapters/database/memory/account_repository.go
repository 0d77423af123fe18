package memory

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/SscSPs/erp_ledger/internal/apperrors"
	"github.com/SscSPs/erp_ledger/internal/core/domain"
	portsrepo "github.com/SscSPs/erp_ledger/internal/core/ports/repositories"
)

type accountRepository struct {
	store *Store
}

var _ portsrepo.AccountRepositoryFacade = (*accountRepository)(nil)

func (r *accountRepository) FindAccountByID(ctx context.Context, accountID string) (*domain.Account, error) {
	var out *domain.Account
	err := r.store.read(ctx, func(st *state) error {
		acc, ok := st.accounts[accountID]
		if !ok {
			return apperrors.ErrNotFound
		}
		out = &acc
		return nil
	})
	return out, err
}

func (r *accountRepository) FindAccountByCode(ctx context.Context, companyID, code string) (*domain.Account, error) {
	var out *domain.Account
	err := r.store.read(ctx, func(st *state) error {
		for _, acc := range st.accounts {
			if acc.CompanyID == companyID && acc.Code == code {
				out = &acc
				return nil
			}
		}
		return apperrors.ErrNotFound
	})
	return out, err
}

func (r *accountRepository) FindAccountsByIDs(ctx context.Context, accountIDs []string) (map[string]domain.Account, error) {
	out := make(map[string]domain.Account, len(accountIDs))
	err := r.store.read(ctx, func(st *state) error {
		for _, id := range accountIDs {
			if acc, ok := st.accounts[id]; ok {
				out[id] = acc
			}
		}
		return nil
	})
	return out, err
}

func (r *accountRepository) ListAccounts(ctx context.Context, companyID string, limit int, offset int) ([]domain.Account, error) {
	var out []domain.Account
	err := r.store.read(ctx, func(st *state) error {
		for _, acc := range st.accounts {
			if acc.CompanyID == companyID {
				out = append(out, acc)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	slices.SortFunc(out, func(a, b domain.Account) int { return strings.Compare(a.Code, b.Code) })
	return page(out, limit, offset), nil
}

func (r *accountRepository) ListChildAccounts(ctx context.Context, parentAccountID string) ([]domain.Account, error) {
	var out []domain.Account
	err := r.store.read(ctx, func(st *state) error {
		for _, acc := range st.accounts {
			if acc.ParentAccountID != nil && *acc.ParentAccountID == parentAccountID {
				out = append(out, acc)
			}
		}
		return nil
	})
	return out, err
}

func (r *accountRepository) SaveAccount(ctx context.Context, account domain.Account) error {
	return r.store.write(ctx, func(st *state) error {
		if _, ok := st.accounts[account.AccountID]; ok {
			return fmt.Errorf("account %s: %w", account.AccountID, apperrors.ErrDuplicate)
		}
		for _, acc := range st.accounts {
			if acc.CompanyID == account.CompanyID && acc.Code == account.Code {
				return fmt.Errorf("account code %s: %w", account.Code, apperrors.ErrDuplicate)
			}
		}
		st.accounts[account.AccountID] = account
		return nil
	})
}

func (r *accountRepository) UpdateAccount(ctx context.Context, account domain.Account, expectedVersion int64) error {
	return r.store.write(ctx, func(st *state) error {
		stored, ok := st.accounts[account.AccountID]
		if !ok {
			return apperrors.ErrNotFound
		}
		if stored.Version != expectedVersion {
			return apperrors.Stale("account", account.AccountID)
		}
		for _, acc := range st.accounts {
			if acc.AccountID != account.AccountID && acc.CompanyID == account.CompanyID && acc.Code == account.Code {
				return fmt.Errorf("account code %s: %w", account.Code, apperrors.ErrDuplicate)
			}
		}
		st.accounts[account.AccountID] = account
		return nil
	})
}

// page applies limit/offset; a non-positive limit returns everything after offset.
func page[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return []T{}
	}
	if offset > 0 {
		items = items[offset:]
	}
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
