package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/SscSPs/erp_ledger/internal/apperrors"
	"github.com/SscSPs/erp_ledger/internal/core/domain"
	portsrepo "github.com/SscSPs/erp_ledger/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/erp_ledger/internal/core/ports/services"
	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"
)

// chartService implements the ChartSvcFacade interface
type chartService struct {
	BaseService
	txManager   portsrepo.TransactionManager
	accountRepo portsrepo.AccountRepositoryFacade
	journalRepo portsrepo.JournalReader
	cache       *expirable.LRU[string, domain.Account]

	// cacheGen advances on every invalidation; reads that started before one are not cached.
	cacheMu  sync.Mutex
	cacheGen uint64
}

// ChartServiceOption is a functional option for configuring the chart service
type ChartServiceOption func(*chartService)

// WithAccountCache keeps up to size accounts for ttl.
func WithAccountCache(size int, ttl time.Duration) ChartServiceOption {
	return func(s *chartService) {
		if size > 0 {
			s.cache = expirable.NewLRU[string, domain.Account](size, nil, ttl)
		}
	}
}

// WithChartAuditor adds the audit recorder dependency
func WithChartAuditor(auditor portssvc.AuditSvcFacade) ChartServiceOption {
	return func(s *chartService) {
		s.Auditor = auditor
	}
}

// WithChartClock overrides the clock
func WithChartClock(clock func() time.Time) ChartServiceOption {
	return func(s *chartService) {
		s.Clock = clock
	}
}

// NewChartService creates a new chart-of-accounts registry with the provided options
func NewChartService(txManager portsrepo.TransactionManager, accountRepo portsrepo.AccountRepositoryFacade, journalRepo portsrepo.JournalReader, options ...ChartServiceOption) portssvc.ChartSvcFacade {
	svc := &chartService{
		txManager:   txManager,
		accountRepo: accountRepo,
		journalRepo: journalRepo,
	}
	for _, option := range options {
		option(svc)
	}
	return svc
}

var _ portssvc.ChartSvcFacade = (*chartService)(nil)

func unknownAccount(accountID string) *apperrors.LedgerError {
	return apperrors.NewLedgerError(apperrors.UnknownAccount, "account %s does not exist", accountID).WithAccount(accountID)
}

// loadAccount reads through the cache and hides accounts of other companies.
func (s *chartService) loadAccount(ctx context.Context, companyID, accountID string) (*domain.Account, error) {
	if s.cache != nil {
		if acc, ok := s.cache.Get(accountID); ok {
			if acc.CompanyID != companyID {
				return nil, unknownAccount(accountID)
			}
			return &acc, nil
		}
	}
	gen := s.generation()
	acc, err := s.accountRepo.FindAccountByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, unknownAccount(accountID)
		}
		s.LogError(ctx, err, "Failed to find account by ID", slog.String("account_id", accountID))
		return nil, err
	}
	s.remember(gen, *acc)
	if acc.CompanyID != companyID {
		s.LogDebug(ctx, "Account found but belongs to different company",
			slog.String("account_id", accountID),
			slog.String("requested_company", companyID))
		return nil, unknownAccount(accountID)
	}
	return acc, nil
}

func (s *chartService) generation() uint64 {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	return s.cacheGen
}

// remember caches acc unless an invalidation happened since gen was taken.
func (s *chartService) remember(gen uint64, acc domain.Account) {
	if s.cache == nil {
		return
	}
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	if gen == s.cacheGen {
		s.cache.Add(acc.AccountID, acc)
	}
}

func (s *chartService) invalidate(accountID string) {
	if s.cache == nil {
		return
	}
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	s.cacheGen++
	s.cache.Remove(accountID)
}

func (s *chartService) GetAccount(ctx context.Context, companyID, accountID string) (*domain.Account, error) {
	return s.loadAccount(ctx, companyID, accountID)
}

func (s *chartService) ListAccounts(ctx context.Context, companyID string, limit, offset int) ([]domain.Account, error) {
	accounts, err := s.accountRepo.ListAccounts(ctx, companyID, limit, offset)
	if err != nil {
		s.LogError(ctx, err, "Failed to list accounts",
			slog.String("company_id", companyID),
			slog.Int("limit", limit),
			slog.Int("offset", offset))
		return nil, fmt.Errorf("failed to list accounts for company %s: %w", companyID, err)
	}
	if accounts == nil {
		return []domain.Account{}, nil
	}
	return accounts, nil
}

func (s *chartService) ResolvePostable(ctx context.Context, companyID string, accountIDs []string) (map[string]domain.Account, error) {
	resolved := make(map[string]domain.Account, len(accountIDs))
	queued := make(map[string]struct{}, len(accountIDs))
	var missing []string
	for _, id := range accountIDs {
		if _, done := resolved[id]; done {
			continue
		}
		if _, ok := queued[id]; ok {
			continue
		}
		if s.cache != nil {
			if acc, ok := s.cache.Get(id); ok {
				resolved[id] = acc
				continue
			}
		}
		queued[id] = struct{}{}
		missing = append(missing, id)
	}

	if len(missing) > 0 {
		gen := s.generation()
		found, err := s.accountRepo.FindAccountsByIDs(ctx, missing)
		if err != nil {
			s.LogError(ctx, err, "Failed to find accounts by IDs", slog.Int("count", len(missing)))
			return nil, err
		}
		for id, acc := range found {
			resolved[id] = acc
			s.remember(gen, acc)
		}
	}

	for i, id := range accountIDs {
		acc, ok := resolved[id]
		if !ok || acc.CompanyID != companyID {
			return nil, unknownAccount(id).WithLine(i)
		}
		if acc.IsPostedRestricted {
			return nil, apperrors.NewLedgerError(apperrors.RestrictedAccount,
				"account %s (%s) does not accept postings", acc.Code, acc.Name).WithAccount(id).WithLine(i)
		}
	}
	return resolved, nil
}

func validateAccountFields(code, name string, category domain.AccountCategory, currency string) error {
	if strings.TrimSpace(code) == "" {
		return fmt.Errorf("account code is required: %w", apperrors.ErrValidation)
	}
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("account name is required: %w", apperrors.ErrValidation)
	}
	if !category.IsValid() {
		return fmt.Errorf("unknown account category %q: %w", category, apperrors.ErrValidation)
	}
	if len(currency) != 3 {
		return fmt.Errorf("currency code %q must have 3 letters: %w", currency, apperrors.ErrValidation)
	}
	return nil
}

func (s *chartService) RegisterAccount(ctx context.Context, companyID, userID string, in portssvc.RegisterAccountInput) (*domain.Account, error) {
	currency := strings.ToUpper(in.CurrencyCode)
	if err := validateAccountFields(in.Code, in.Name, in.Category, currency); err != nil {
		return nil, err
	}

	now := s.Now()
	account := domain.Account{
		AccountID:          uuid.NewString(),
		CompanyID:          companyID,
		Code:               strings.TrimSpace(in.Code),
		Name:               strings.TrimSpace(in.Name),
		Category:           in.Category,
		CurrencyCode:       currency,
		ParentAccountID:    in.ParentAccountID,
		IsPostedRestricted: in.IsPostedRestricted,
		Version:            1,
		AuditFields:        domain.NewAuditFields(userID, now),
	}

	err := s.txManager.WithinTx(ctx, func(ctx context.Context) error {
		if in.ParentAccountID != nil {
			if _, err := s.loadAccount(ctx, companyID, *in.ParentAccountID); err != nil {
				return fmt.Errorf("invalid parent account: %w", err)
			}
		}
		if err := s.accountRepo.SaveAccount(ctx, account); err != nil {
			return err
		}
		return s.RecordAudit(ctx, companyID, userID, domain.ActionAccountRegistered, domain.EntityAccount, account.AccountID,
			map[string]any{"code": account.Code, "category": account.Category})
	})
	if err != nil {
		s.LogError(ctx, err, "Failed to register account",
			slog.String("code", account.Code),
			slog.String("company_id", companyID))
		return nil, err
	}

	s.LogInfo(ctx, "Account registered successfully",
		slog.String("account_id", account.AccountID),
		slog.String("company_id", companyID))
	return &account, nil
}

// mutate loads an account for update, applies change and stores it with one audit record.
func (s *chartService) mutate(ctx context.Context, companyID, userID, accountID string, expectedVersion int64, action domain.AuditAction,
	change func(ctx context.Context, acc *domain.Account) (map[string]any, error)) (*domain.Account, error) {
	var updated domain.Account
	err := s.txManager.WithinTx(ctx, func(ctx context.Context) error {
		stored, err := s.accountRepo.FindAccountByID(ctx, accountID)
		if err != nil {
			if errors.Is(err, apperrors.ErrNotFound) {
				return unknownAccount(accountID)
			}
			return err
		}
		if stored.CompanyID != companyID {
			return unknownAccount(accountID)
		}
		if expectedVersion != 0 && stored.Version != expectedVersion {
			return apperrors.Stale("account", accountID)
		}

		acc := *stored
		details, err := change(ctx, &acc)
		if err != nil {
			return err
		}
		expected := acc.Version
		acc.Version++
		acc.Touch(userID, s.Now())
		if err := s.accountRepo.UpdateAccount(ctx, acc, expected); err != nil {
			return err
		}
		updated = acc
		return s.RecordAudit(ctx, companyID, userID, action, domain.EntityAccount, accountID, details)
	})
	s.invalidate(accountID)
	if err != nil {
		s.LogError(ctx, err, "Failed to update account", slog.String("account_id", accountID))
		return nil, err
	}
	return &updated, nil
}

func (s *chartService) UpdateAccount(ctx context.Context, companyID, userID, accountID string, in portssvc.UpdateAccountInput) (*domain.Account, error) {
	return s.mutate(ctx, companyID, userID, accountID, in.ExpectedVersion, domain.ActionAccountUpdated,
		func(ctx context.Context, acc *domain.Account) (map[string]any, error) {
			details := map[string]any{}
			if in.Name != nil {
				details["name"] = map[string]any{"from": acc.Name, "to": *in.Name}
				acc.Name = strings.TrimSpace(*in.Name)
			}

			structural := (in.Code != nil && strings.TrimSpace(*in.Code) != acc.Code) ||
				(in.Category != nil && *in.Category != acc.Category)
			if structural {
				used, err := s.journalRepo.AccountHasLines(ctx, acc.AccountID)
				if err != nil {
					return nil, err
				}
				if used {
					return nil, fmt.Errorf("code and category of account %s are fixed once journal lines reference it: %w",
						acc.AccountID, apperrors.ErrConflict)
				}
			}
			if in.Code != nil {
				details["code"] = map[string]any{"from": acc.Code, "to": *in.Code}
				acc.Code = strings.TrimSpace(*in.Code)
			}
			if in.Category != nil {
				details["category"] = map[string]any{"from": acc.Category, "to": *in.Category}
				acc.Category = *in.Category
			}
			return details, validateAccountFields(acc.Code, acc.Name, acc.Category, acc.CurrencyCode)
		})
}

func (s *chartService) Reparent(ctx context.Context, companyID, userID, accountID string, parentAccountID *string) (*domain.Account, error) {
	return s.mutate(ctx, companyID, userID, accountID, 0, domain.ActionAccountReparented,
		func(ctx context.Context, acc *domain.Account) (map[string]any, error) {
			if parentAccountID != nil {
				if err := s.checkNoCycle(ctx, companyID, accountID, *parentAccountID); err != nil {
					return nil, err
				}
			}
			details := map[string]any{"from": acc.ParentAccountID, "to": parentAccountID}
			acc.ParentAccountID = parentAccountID
			return details, nil
		})
}

// checkNoCycle walks up from the proposed parent and fails if it reaches accountID.
func (s *chartService) checkNoCycle(ctx context.Context, companyID, accountID, parentID string) error {
	seen := map[string]struct{}{}
	for current := &parentID; current != nil; {
		if *current == accountID {
			return fmt.Errorf("reparenting account %s under %s would create a cycle: %w", accountID, parentID, apperrors.ErrValidation)
		}
		if _, loop := seen[*current]; loop {
			return fmt.Errorf("account tree above %s already contains a cycle: %w", parentID, apperrors.ErrConflict)
		}
		seen[*current] = struct{}{}
		parent, err := s.accountRepo.FindAccountByID(ctx, *current)
		if err != nil {
			if errors.Is(err, apperrors.ErrNotFound) {
				return fmt.Errorf("invalid parent account: %w", unknownAccount(*current))
			}
			return err
		}
		if parent.CompanyID != companyID {
			return fmt.Errorf("invalid parent account: %w", unknownAccount(*current))
		}
		current = parent.ParentAccountID
	}
	return nil
}

func (s *chartService) SetPostingRestriction(ctx context.Context, companyID, userID, accountID string, restricted bool) (*domain.Account, error) {
	return s.mutate(ctx, companyID, userID, accountID, 0, domain.ActionAccountRestricted,
		func(_ context.Context, acc *domain.Account) (map[string]any, error) {
			details := map[string]any{"from": acc.IsPostedRestricted, "to": restricted}
			acc.IsPostedRestricted = restricted
			return details, nil
		})
}
