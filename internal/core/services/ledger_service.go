package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/SscSPs/erp_ledger/internal/apperrors"
	"github.com/SscSPs/erp_ledger/internal/core/domain"
	portsrepo "github.com/SscSPs/erp_ledger/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/erp_ledger/internal/core/ports/services"
	"github.com/SscSPs/erp_ledger/internal/utils/accounting"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ledgerService implements the LedgerSvcFacade interface
type ledgerService struct {
	BaseService
	txManager    portsrepo.TransactionManager
	journalRepo  portsrepo.JournalRepositoryFacade
	chart        portssvc.ChartReaderSvc
	periods      portssvc.PeriodReaderSvc
	rates        portsrepo.RateProvider
	baseCurrency string
}

// LedgerServiceOption is a functional option for configuring the ledger service
type LedgerServiceOption func(*ledgerService)

// WithRateProvider sets the exchange rate source used when a draft carries no rate
func WithRateProvider(rates portsrepo.RateProvider) LedgerServiceOption {
	return func(s *ledgerService) {
		s.rates = rates
	}
}

// WithBaseCurrency sets the company base currency
func WithBaseCurrency(code string) LedgerServiceOption {
	return func(s *ledgerService) {
		s.baseCurrency = strings.ToUpper(code)
	}
}

// WithLedgerAuditor adds the audit recorder dependency
func WithLedgerAuditor(auditor portssvc.AuditSvcFacade) LedgerServiceOption {
	return func(s *ledgerService) {
		s.Auditor = auditor
	}
}

// WithLedgerClock overrides the clock
func WithLedgerClock(clock func() time.Time) LedgerServiceOption {
	return func(s *ledgerService) {
		s.Clock = clock
	}
}

// NewLedgerService creates the ledger invariant engine.
func NewLedgerService(
	txManager portsrepo.TransactionManager,
	journalRepo portsrepo.JournalRepositoryFacade,
	chart portssvc.ChartReaderSvc,
	periods portssvc.PeriodReaderSvc,
	options ...LedgerServiceOption,
) portssvc.LedgerSvcFacade {
	svc := &ledgerService{
		txManager:    txManager,
		journalRepo:  journalRepo,
		chart:        chart,
		periods:      periods,
		baseCurrency: "USD",
	}
	for _, option := range options {
		option(svc)
	}
	return svc
}

var _ portssvc.LedgerSvcFacade = (*ledgerService)(nil)

func unknownEntry(entryID string) *apperrors.LedgerError {
	return apperrors.NewLedgerError(apperrors.UnknownEntry, "journal entry %s does not exist", entryID).WithEntry(entryID)
}

// loadForUpdate locks the entry row and hides entries of other companies.
func (s *ledgerService) loadForUpdate(ctx context.Context, companyID, entryID string) (*domain.JournalEntry, error) {
	entry, err := s.journalRepo.FindEntryForUpdate(ctx, entryID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, unknownEntry(entryID)
		}
		return nil, err
	}
	if entry.CompanyID != companyID {
		return nil, unknownEntry(entryID)
	}
	return entry, nil
}

func toJournalLines(entryID string, lines []domain.DraftLine) []domain.JournalLine {
	out := make([]domain.JournalLine, len(lines))
	for i, l := range lines {
		out[i] = domain.JournalLine{
			LineID:    uuid.NewString(),
			EntryID:   entryID,
			LineNo:    i,
			AccountID: l.AccountID,
			Debit:     l.Debit,
			Credit:    l.Credit,
			Narrative: l.Narrative,
		}
	}
	return out
}

func lineAccountIDs(lines []domain.JournalLine) []string {
	ids := make([]string, len(lines))
	for i, l := range lines {
		ids[i] = l.AccountID
	}
	return ids
}

// applyDraft overwrites the header fields the draft sets and, when it carries lines, the lines.
func applyDraft(entry *domain.JournalEntry, draft domain.JournalEntryDraft) {
	if draft.PeriodID != "" {
		entry.PeriodID = draft.PeriodID
	}
	if draft.Description != "" {
		entry.Description = draft.Description
	}
	if !draft.EntryDate.IsZero() {
		entry.EntryDate = domain.DateOnly(draft.EntryDate)
	}
	if draft.CurrencyCode != "" {
		entry.CurrencyCode = strings.ToUpper(draft.CurrencyCode)
	}
	if !draft.ExchangeRate.IsZero() {
		entry.ExchangeRate = draft.ExchangeRate
	}
	if len(draft.Lines) > 0 {
		entry.Lines = toJournalLines(entry.EntryID, draft.Lines)
	}
}

func (s *ledgerService) newEntry(companyID, userID string, draft domain.JournalEntryDraft) domain.JournalEntry {
	entryID := draft.EntryID
	if entryID == "" {
		entryID = uuid.NewString()
	}
	entry := domain.JournalEntry{
		EntryID:      entryID,
		CompanyID:    companyID,
		CurrencyCode: s.baseCurrency,
		Status:       domain.Draft,
		Version:      1,
		AuditFields:  domain.NewAuditFields(userID, s.Now()),
	}
	applyDraft(&entry, draft)
	return entry
}

// resolveRate fills in the exchange rate into the base currency when the entry has none.
func (s *ledgerService) resolveRate(ctx context.Context, entry *domain.JournalEntry) error {
	if entry.ExchangeRate.IsPositive() {
		return nil
	}
	if entry.ExchangeRate.IsNegative() {
		return fmt.Errorf("exchange rate %s must be positive: %w", entry.ExchangeRate, apperrors.ErrValidation)
	}
	if entry.CurrencyCode == s.baseCurrency {
		entry.ExchangeRate = decimal.NewFromInt(1)
		return nil
	}
	if s.rates == nil {
		return fmt.Errorf("no rate source configured for %s -> %s: %w", entry.CurrencyCode, s.baseCurrency, apperrors.ErrValidation)
	}
	rate, err := s.rates.FindRate(ctx, entry.CurrencyCode, s.baseCurrency, entry.EntryDate)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return fmt.Errorf("no exchange rate %s -> %s on %s: %w",
				entry.CurrencyCode, s.baseCurrency, entry.EntryDate.Format(time.DateOnly), apperrors.ErrValidation)
		}
		return err
	}
	entry.ExchangeRate = rate
	return nil
}

// validateForPosting checks line shape, the period, the accounts and the balance, in that order.
func (s *ledgerService) validateForPosting(ctx context.Context, entry *domain.JournalEntry) error {
	if err := accounting.ValidateLines(entry.EntryID, entry.Lines); err != nil {
		return err
	}
	if _, err := s.periods.RequireOpen(ctx, entry.CompanyID, entry.PeriodID, entry.EntryDate); err != nil {
		return withEntry(err, entry.EntryID)
	}
	if _, err := s.chart.ResolvePostable(ctx, entry.CompanyID, lineAccountIDs(entry.Lines)); err != nil {
		return withEntry(err, entry.EntryID)
	}
	return accounting.ValidateBalance(entry.EntryID, entry.Lines)
}

// withEntry stamps the entry id on ledger errors raised by the other registries.
func withEntry(err error, entryID string) error {
	if le, ok := apperrors.AsLedgerError(err); ok && le.EntryID == "" {
		le.EntryID = entryID
	}
	return err
}

func (s *ledgerService) PostEntry(ctx context.Context, companyID, userID string, draft domain.JournalEntryDraft) (*domain.JournalEntry, error) {
	return s.post(ctx, companyID, userID, draft, false)
}

func (s *ledgerService) PostDraft(ctx context.Context, companyID, userID, entryID string) (*domain.JournalEntry, error) {
	if entryID == "" {
		return nil, fmt.Errorf("entry id is required: %w", apperrors.ErrValidation)
	}
	return s.post(ctx, companyID, userID, domain.JournalEntryDraft{EntryID: entryID}, true)
}

func (s *ledgerService) post(ctx context.Context, companyID, userID string, draft domain.JournalEntryDraft, storedOnly bool) (*domain.JournalEntry, error) {
	var (
		result *domain.JournalEntry
		err    error
	)
	for attempt := 0; attempt < 2; attempt++ {
		result, err = s.postOnce(ctx, companyID, userID, draft, storedOnly)
		// A concurrent insert of the same caller-supplied id; the retry sees the stored row.
		if err == nil || draft.EntryID == "" || !errors.Is(err, apperrors.ErrDuplicate) {
			break
		}
		s.LogDebug(ctx, "Concurrent insert of journal entry, retrying", slog.String("entry_id", draft.EntryID))
	}
	if err != nil {
		s.LogError(ctx, err, "Failed to post journal entry",
			slog.String("company_id", companyID),
			slog.String("entry_id", draft.EntryID),
			slog.String("kind", string(apperrors.KindOf(err))))
		return nil, err
	}
	return result, nil
}

func (s *ledgerService) postOnce(ctx context.Context, companyID, userID string, draft domain.JournalEntryDraft, storedOnly bool) (*domain.JournalEntry, error) {
	var result domain.JournalEntry
	err := s.txManager.WithinTx(ctx, func(ctx context.Context) error {
		var (
			entry  *domain.JournalEntry
			exists bool
		)
		if draft.EntryID != "" {
			stored, err := s.loadForUpdate(ctx, companyID, draft.EntryID)
			switch {
			case err == nil:
				entry, exists = stored, true
			case errors.Is(err, apperrors.UnknownEntry) && !storedOnly:
			default:
				return err
			}
		}

		if exists {
			switch entry.Status {
			case domain.Posted:
				result = *entry
				return nil
			case domain.Draft:
				applyDraft(entry, draft)
			default:
				return apperrors.NewLedgerError(apperrors.InvalidTransition,
					"journal entry in status %s cannot be posted", entry.Status).WithEntry(entry.EntryID)
			}
		} else {
			created := s.newEntry(companyID, userID, draft)
			entry = &created
		}

		if err := s.validateForPosting(ctx, entry); err != nil {
			return err
		}
		if err := s.resolveRate(ctx, entry); err != nil {
			return err
		}

		now := s.Now()
		expected := entry.Version
		if err := entry.Transition(domain.Posted); err != nil {
			return err
		}
		entry.BaseAmount = accounting.BaseAmount(entry.Lines, entry.ExchangeRate)
		entry.PostedAt = &now
		entry.PostedBy = &userID
		entry.Touch(userID, now)

		if exists {
			entry.Version++
			if err := s.journalRepo.ReplaceLines(ctx, entry.EntryID, entry.Lines); err != nil {
				return err
			}
			if err := s.journalRepo.UpdateEntry(ctx, *entry, expected); err != nil {
				return err
			}
		} else if err := s.journalRepo.SaveEntry(ctx, *entry); err != nil {
			return err
		}

		debit, _ := accounting.SumSides(entry.Lines)
		result = *entry
		return s.RecordAudit(ctx, companyID, userID, domain.ActionEntryPosted, domain.EntityJournalEntry, entry.EntryID,
			map[string]any{
				"periodID":   entry.PeriodID,
				"lines":      len(entry.Lines),
				"total":      debit.StringFixed(accounting.MoneyPlaces),
				"baseAmount": entry.BaseAmount.StringFixed(accounting.MoneyPlaces),
			})
	})
	if err != nil {
		return nil, err
	}
	s.LogInfo(ctx, "Journal entry posted",
		slog.String("entry_id", result.EntryID),
		slog.String("period_id", result.PeriodID))
	return &result, nil
}

func (s *ledgerService) ReversePosted(ctx context.Context, companyID, userID, entryID string, opts portssvc.ReverseOptions) (*domain.JournalEntry, error) {
	var reversal domain.JournalEntry
	err := s.txManager.WithinTx(ctx, func(ctx context.Context) error {
		original, err := s.loadForUpdate(ctx, companyID, entryID)
		if err != nil {
			return err
		}
		if original.ReversalOfID != nil {
			return apperrors.NewLedgerError(apperrors.InvalidTransition,
				"entry reverses %s and cannot itself be reversed", *original.ReversalOfID).WithEntry(entryID)
		}
		expected := original.Version
		if err := original.Transition(domain.Reversed); err != nil {
			return err
		}
		if _, err := s.periods.RequireOpen(ctx, companyID, original.PeriodID, original.EntryDate); err != nil {
			return withEntry(err, entryID)
		}

		targetPeriodID := original.PeriodID
		if opts.PeriodID != "" {
			targetPeriodID = opts.PeriodID
		}
		var entryDate time.Time
		switch {
		case opts.EntryDate != nil:
			entryDate = domain.DateOnly(*opts.EntryDate)
		case targetPeriodID == original.PeriodID:
			entryDate = original.EntryDate
		default:
			target, err := s.periods.GetPeriod(ctx, companyID, targetPeriodID)
			if err != nil {
				return withEntry(err, entryID)
			}
			entryDate = target.Start
		}
		if _, err := s.periods.RequireOpen(ctx, companyID, targetPeriodID, entryDate); err != nil {
			return withEntry(err, entryID)
		}
		if _, err := s.chart.ResolvePostable(ctx, companyID, lineAccountIDs(original.Lines)); err != nil {
			return withEntry(err, entryID)
		}

		now := s.Now()
		reversalID := uuid.NewString()
		description := opts.Description
		if description == "" {
			description = "Reversal of " + original.Description
		}
		lines := make([]domain.JournalLine, len(original.Lines))
		for i, l := range original.Lines {
			swapped := l.Swapped()
			swapped.LineID = uuid.NewString()
			swapped.EntryID = reversalID
			lines[i] = swapped
		}
		reversal = domain.JournalEntry{
			EntryID:      reversalID,
			CompanyID:    companyID,
			PeriodID:     targetPeriodID,
			Description:  description,
			EntryDate:    entryDate,
			CurrencyCode: original.CurrencyCode,
			ExchangeRate: original.ExchangeRate,
			BaseAmount:   accounting.BaseAmount(lines, original.ExchangeRate),
			Status:       domain.Posted,
			Lines:        lines,
			ReversalOfID: &original.EntryID,
			PostedAt:     &now,
			PostedBy:     &userID,
			Version:      1,
			AuditFields:  domain.NewAuditFields(userID, now),
		}
		if err := accounting.ValidateBalance(reversalID, lines); err != nil {
			return err
		}
		if err := s.journalRepo.SaveEntry(ctx, reversal); err != nil {
			return err
		}

		original.ReversedByID = &reversalID
		original.Version++
		original.Touch(userID, now)
		if err := s.journalRepo.UpdateEntry(ctx, *original, expected); err != nil {
			return err
		}
		return s.RecordAudit(ctx, companyID, userID, domain.ActionEntryReversed, domain.EntityJournalEntry, entryID,
			map[string]any{"reversalID": reversalID, "periodID": targetPeriodID})
	})
	if err != nil {
		s.LogError(ctx, err, "Failed to reverse journal entry", slog.String("entry_id", entryID))
		return nil, err
	}
	s.LogInfo(ctx, "Journal entry reversed",
		slog.String("entry_id", entryID),
		slog.String("reversal_id", reversal.EntryID))
	return &reversal, nil
}

func (s *ledgerService) CreateDraft(ctx context.Context, companyID, userID string, draft domain.JournalEntryDraft) (*domain.JournalEntry, error) {
	entry := s.newEntry(companyID, userID, draft)
	if len(entry.Lines) > 0 {
		if err := accounting.ValidateLines(entry.EntryID, entry.Lines); err != nil {
			return nil, err
		}
	}

	err := s.txManager.WithinTx(ctx, func(ctx context.Context) error {
		if _, err := s.periods.RequireOpen(ctx, companyID, entry.PeriodID, entry.EntryDate); err != nil {
			return withEntry(err, entry.EntryID)
		}
		if err := s.journalRepo.SaveEntry(ctx, entry); err != nil {
			return err
		}
		return s.RecordAudit(ctx, companyID, userID, domain.ActionEntryDrafted, domain.EntityJournalEntry, entry.EntryID,
			map[string]any{"periodID": entry.PeriodID, "lines": len(entry.Lines)})
	})
	if err != nil {
		s.LogError(ctx, err, "Failed to create draft entry", slog.String("company_id", companyID))
		return nil, err
	}
	s.LogInfo(ctx, "Draft entry created", slog.String("entry_id", entry.EntryID))
	return &entry, nil
}

func (s *ledgerService) UpdateDraft(ctx context.Context, companyID, userID, entryID string, draft domain.JournalEntryDraft, expectedVersion int64) (*domain.JournalEntry, error) {
	var result domain.JournalEntry
	err := s.txManager.WithinTx(ctx, func(ctx context.Context) error {
		entry, err := s.loadForUpdate(ctx, companyID, entryID)
		if err != nil {
			return err
		}
		if entry.Status != domain.Draft {
			return apperrors.NewLedgerError(apperrors.InvalidTransition,
				"only draft entries can be edited, entry is %s", entry.Status).WithEntry(entryID)
		}
		if entry.Version != expectedVersion {
			return apperrors.Stale("journal entry", entryID).WithEntry(entryID)
		}

		draft.EntryID = entryID
		applyDraft(entry, draft)
		if len(draft.Lines) > 0 {
			if err := accounting.ValidateLines(entryID, entry.Lines); err != nil {
				return err
			}
		}
		if _, err := s.periods.RequireOpen(ctx, companyID, entry.PeriodID, entry.EntryDate); err != nil {
			return withEntry(err, entryID)
		}

		entry.Version++
		entry.Touch(userID, s.Now())
		if len(draft.Lines) > 0 {
			if err := s.journalRepo.ReplaceLines(ctx, entryID, entry.Lines); err != nil {
				return err
			}
		}
		if err := s.journalRepo.UpdateEntry(ctx, *entry, expectedVersion); err != nil {
			return err
		}
		result = *entry
		return s.RecordAudit(ctx, companyID, userID, domain.ActionEntryUpdated, domain.EntityJournalEntry, entryID,
			map[string]any{"lines": len(entry.Lines), "version": entry.Version})
	})
	if err != nil {
		s.LogError(ctx, err, "Failed to update draft entry", slog.String("entry_id", entryID))
		return nil, err
	}
	return &result, nil
}

func (s *ledgerService) CancelDraft(ctx context.Context, companyID, userID, entryID string) (*domain.JournalEntry, error) {
	var result domain.JournalEntry
	err := s.txManager.WithinTx(ctx, func(ctx context.Context) error {
		entry, err := s.loadForUpdate(ctx, companyID, entryID)
		if err != nil {
			return err
		}
		expected := entry.Version
		if err := entry.Transition(domain.Cancelled); err != nil {
			return err
		}
		entry.Version++
		entry.Touch(userID, s.Now())
		if err := s.journalRepo.UpdateEntry(ctx, *entry, expected); err != nil {
			return err
		}
		result = *entry
		return s.RecordAudit(ctx, companyID, userID, domain.ActionEntryCancelled, domain.EntityJournalEntry, entryID, nil)
	})
	if err != nil {
		s.LogError(ctx, err, "Failed to cancel draft entry", slog.String("entry_id", entryID))
		return nil, err
	}
	return &result, nil
}

func (s *ledgerService) GetEntry(ctx context.Context, companyID, entryID string) (*domain.JournalEntry, error) {
	entry, err := s.journalRepo.FindEntryByID(ctx, entryID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, unknownEntry(entryID)
		}
		s.LogError(ctx, err, "Failed to get journal entry", slog.String("entry_id", entryID))
		return nil, err
	}
	if entry.CompanyID != companyID {
		return nil, unknownEntry(entryID)
	}
	return entry, nil
}

func (s *ledgerService) ListEntries(ctx context.Context, companyID string, filter domain.EntryFilter) ([]domain.JournalEntry, error) {
	entries, err := s.journalRepo.ListEntries(ctx, companyID, filter)
	if err != nil {
		s.LogError(ctx, err, "Failed to list journal entries", slog.String("company_id", companyID))
		return nil, err
	}
	if entries == nil {
		return []domain.JournalEntry{}, nil
	}
	return entries, nil
}
