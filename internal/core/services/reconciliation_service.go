package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
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

// reconciliationService implements the ReconciliationSvcFacade interface
type reconciliationService struct {
	BaseService
	txManager portsrepo.TransactionManager
	reconRepo portsrepo.ReconciliationRepositoryFacade
	lines     portsrepo.LineReader
	chart     portssvc.ChartReaderSvc
	policy    domain.MatchPolicy
	locks     *keyedMutex
}

// ReconciliationServiceOption is a functional option for configuring the reconciliation service
type ReconciliationServiceOption func(*reconciliationService)

// WithMatchPolicy sets the auto-match defaults used when a call carries no policy
func WithMatchPolicy(policy domain.MatchPolicy) ReconciliationServiceOption {
	return func(s *reconciliationService) {
		s.policy = policy
	}
}

// WithReconciliationAuditor adds the audit recorder dependency
func WithReconciliationAuditor(auditor portssvc.AuditSvcFacade) ReconciliationServiceOption {
	return func(s *reconciliationService) {
		s.Auditor = auditor
	}
}

// WithReconciliationClock overrides the clock
func WithReconciliationClock(clock func() time.Time) ReconciliationServiceOption {
	return func(s *reconciliationService) {
		s.Clock = clock
	}
}

// NewReconciliationService creates the reconciliation matcher.
func NewReconciliationService(
	txManager portsrepo.TransactionManager,
	reconRepo portsrepo.ReconciliationRepositoryFacade,
	lines portsrepo.LineReader,
	chart portssvc.ChartReaderSvc,
	options ...ReconciliationServiceOption,
) portssvc.ReconciliationSvcFacade {
	svc := &reconciliationService{
		txManager: txManager,
		reconRepo: reconRepo,
		lines:     lines,
		chart:     chart,
		policy:    domain.DefaultMatchPolicy(),
		locks:     newKeyedMutex(),
	}
	for _, option := range options {
		option(svc)
	}
	return svc
}

var _ portssvc.ReconciliationSvcFacade = (*reconciliationService)(nil)

func reconciliationNotFound(reconciliationID string) error {
	return fmt.Errorf("reconciliation %s: %w", reconciliationID, apperrors.ErrNotFound)
}

func itemNotFound(itemID string) error {
	return fmt.Errorf("reconciliation item %s: %w", itemID, apperrors.ErrNotFound)
}

func nextSeq(items []domain.ReconciliationItem) int {
	seq := 0
	for _, it := range items {
		seq = max(seq, it.Seq)
	}
	return seq + 1
}

func (s *reconciliationService) GetReconciliation(ctx context.Context, companyID, reconciliationID string) (*domain.Reconciliation, error) {
	rec, err := s.reconRepo.FindReconciliationByID(ctx, reconciliationID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, reconciliationNotFound(reconciliationID)
		}
		s.LogError(ctx, err, "Failed to get reconciliation", slog.String("reconciliation_id", reconciliationID))
		return nil, err
	}
	if rec.CompanyID != companyID {
		return nil, reconciliationNotFound(reconciliationID)
	}
	return rec, nil
}

func (s *reconciliationService) ListItems(ctx context.Context, companyID, reconciliationID string) ([]domain.ReconciliationItem, error) {
	if _, err := s.GetReconciliation(ctx, companyID, reconciliationID); err != nil {
		return nil, err
	}
	return s.reconRepo.ListItems(ctx, reconciliationID)
}

func (s *reconciliationService) StartReconciliation(ctx context.Context, companyID, userID, accountID string, from, to time.Time, bookBalance *decimal.Decimal) (*domain.Reconciliation, error) {
	from, to = domain.DateOnly(from), domain.DateOnly(to)
	if to.Before(from) {
		return nil, fmt.Errorf("reconciliation range ends %s before it starts %s: %w",
			to.Format(time.DateOnly), from.Format(time.DateOnly), apperrors.ErrValidation)
	}

	unlock := s.locks.Lock("account:" + accountID)
	defer unlock()

	var rec domain.Reconciliation
	err := s.txManager.WithinTx(ctx, func(ctx context.Context) error {
		account, err := s.chart.GetAccount(ctx, companyID, accountID)
		if err != nil {
			return err
		}
		overlapping, err := s.reconRepo.FindActiveOverlapping(ctx, companyID, accountID, from, to)
		if err != nil {
			return err
		}
		if len(overlapping) > 0 {
			return fmt.Errorf("account %s already has reconciliation %s over an overlapping range: %w",
				accountID, overlapping[0].ReconciliationID, apperrors.ErrConflict)
		}

		posted, err := s.lines.ListPostedLines(ctx, companyID, accountID, from, to)
		if err != nil {
			return err
		}

		now := s.Now()
		rec = domain.Reconciliation{
			ReconciliationID: uuid.NewString(),
			CompanyID:        companyID,
			AccountID:        accountID,
			AccountCategory:  account.Category,
			FromDate:         from,
			ToDate:           to,
			Status:           domain.ReconInProgress,
			Version:          1,
			AuditFields:      domain.NewAuditFields(userID, now),
		}
		items := make([]domain.ReconciliationItem, len(posted))
		balance := decimal.Zero
		for i, l := range posted {
			entryID, lineID := l.EntryID, l.LineID
			items[i] = domain.ReconciliationItem{
				ItemID:           uuid.NewString(),
				ReconciliationID: rec.ReconciliationID,
				Seq:              i + 1,
				ItemType:         domain.ItemBook,
				EntryID:          &entryID,
				LineID:           &lineID,
				TransactionDate:  domain.DateOnly(l.EntryDate),
				Description:      l.Description,
				Debit:            l.Debit,
				Credit:           l.Credit,
				CreatedAt:        now,
			}
			signed, err := accounting.CalculateSignedAmount(l.JournalLine, account.Category)
			if err != nil {
				return err
			}
			balance = balance.Add(signed)
		}
		if bookBalance != nil && !bookBalance.Equal(balance) {
			return fmt.Errorf("book balance %s does not match the ledger balance %s for the range: %w",
				bookBalance.StringFixed(2), balance.StringFixed(2), apperrors.ErrValidation)
		}
		rec.BookBalance = balance
		rec.Recount(items)

		if err := s.reconRepo.SaveReconciliation(ctx, rec); err != nil {
			return err
		}
		if len(items) > 0 {
			if err := s.reconRepo.SaveItems(ctx, items); err != nil {
				return err
			}
		}
		return s.RecordAudit(ctx, companyID, userID, domain.ActionReconStarted, domain.EntityReconciliation, rec.ReconciliationID,
			map[string]any{
				"accountID":   accountID,
				"from":        from.Format(time.DateOnly),
				"to":          to.Format(time.DateOnly),
				"bookItems":   len(items),
				"bookBalance": balance.StringFixed(2),
			})
	})
	if err != nil {
		s.LogError(ctx, err, "Failed to start reconciliation", slog.String("account_id", accountID))
		return nil, err
	}
	s.LogInfo(ctx, "Reconciliation started",
		slog.String("reconciliation_id", rec.ReconciliationID),
		slog.Int("book_items", rec.UnreconciledCount))
	return &rec, nil
}

// mutate serialises a change to one reconciliation: keyed lock, row lock, version
// compare-and-swap and one audit record in a single transaction.
func (s *reconciliationService) mutate(ctx context.Context, companyID, userID, reconciliationID string, action domain.AuditAction,
	change func(ctx context.Context, rec *domain.Reconciliation) (map[string]any, error)) (*domain.Reconciliation, error) {
	unlock := s.locks.Lock(reconciliationID)
	defer unlock()

	var updated domain.Reconciliation
	err := s.txManager.WithinTx(ctx, func(ctx context.Context) error {
		rec, err := s.reconRepo.FindReconciliationForUpdate(ctx, reconciliationID)
		if err != nil {
			if errors.Is(err, apperrors.ErrNotFound) {
				return reconciliationNotFound(reconciliationID)
			}
			return err
		}
		if rec.CompanyID != companyID {
			return reconciliationNotFound(reconciliationID)
		}

		expected := rec.Version
		details, err := change(ctx, rec)
		if err != nil {
			return err
		}
		rec.Version++
		rec.Touch(userID, s.Now())
		if err := s.reconRepo.UpdateReconciliation(ctx, *rec, expected); err != nil {
			return err
		}
		updated = *rec
		return s.RecordAudit(ctx, companyID, userID, action, domain.EntityReconciliation, reconciliationID, details)
	})
	if err != nil {
		s.LogError(ctx, err, "Reconciliation update failed",
			slog.String("reconciliation_id", reconciliationID),
			slog.String("action", string(action)))
		return nil, err
	}
	s.LogDebug(ctx, "Reconciliation updated",
		slog.String("reconciliation_id", reconciliationID),
		slog.String("action", string(action)))
	return &updated, nil
}

func (s *reconciliationService) ImportStatementLines(ctx context.Context, companyID, userID, reconciliationID string, lines []domain.StatementLine) (*domain.Reconciliation, error) {
	return s.mutate(ctx, companyID, userID, reconciliationID, domain.ActionReconStatementImported,
		func(ctx context.Context, rec *domain.Reconciliation) (map[string]any, error) {
			if err := rec.RequireStatus(domain.ReconInProgress); err != nil {
				return nil, err
			}
			if len(lines) == 0 {
				return nil, fmt.Errorf("no statement lines given: %w", apperrors.ErrValidation)
			}
			items, err := s.reconRepo.ListItems(ctx, reconciliationID)
			if err != nil {
				return nil, err
			}

			refs := map[string]struct{}{}
			for _, it := range items {
				if it.ExternalReference != nil {
					refs[*it.ExternalReference] = struct{}{}
				}
			}
			now := s.Now()
			seq := nextSeq(items)
			added := make([]domain.ReconciliationItem, 0, len(lines))
			for i, line := range lines {
				ref := strings.TrimSpace(line.ExternalReference)
				if ref == "" {
					return nil, fmt.Errorf("statement line %d has no external reference: %w", i, apperrors.ErrValidation)
				}
				if line.Amount.IsZero() {
					return nil, fmt.Errorf("statement line %s has a zero amount: %w", ref, apperrors.ErrValidation)
				}
				if _, dup := refs[ref]; dup {
					return nil, fmt.Errorf("statement line %s was already imported: %w", ref, apperrors.ErrDuplicate)
				}
				refs[ref] = struct{}{}

				debit, credit := itemSides(line.Amount, rec.AccountCategory)
				item := domain.ReconciliationItem{
					ItemID:            uuid.NewString(),
					ReconciliationID:  reconciliationID,
					Seq:               seq + i,
					ItemType:          domain.ItemStatement,
					ExternalReference: &ref,
					TransactionDate:   domain.DateOnly(line.Date),
					Description:       line.Description,
					Debit:             debit,
					Credit:            credit,
					CreatedAt:         now,
				}
				if err := item.CheckShape(); err != nil {
					return nil, err
				}
				added = append(added, item)
			}
			if err := s.reconRepo.SaveItems(ctx, added); err != nil {
				return nil, err
			}
			rec.Recount(append(items, added...))
			return map[string]any{
				"lines":            len(added),
				"statementBalance": rec.StatementBalance.StringFixed(2),
			}, nil
		})
}

func (s *reconciliationService) AddAdjustment(ctx context.Context, companyID, userID, reconciliationID string, date time.Time, description string, amount decimal.Decimal) (*domain.ReconciliationItem, error) {
	if amount.IsZero() {
		return nil, fmt.Errorf("adjustment amount must not be zero: %w", apperrors.ErrValidation)
	}
	if strings.TrimSpace(description) == "" {
		return nil, fmt.Errorf("adjustment description is required: %w", apperrors.ErrValidation)
	}

	var item domain.ReconciliationItem
	_, err := s.mutate(ctx, companyID, userID, reconciliationID, domain.ActionReconAdjustmentAdded,
		func(ctx context.Context, rec *domain.Reconciliation) (map[string]any, error) {
			if err := rec.RequireStatus(domain.ReconInProgress); err != nil {
				return nil, err
			}
			items, err := s.reconRepo.ListItems(ctx, reconciliationID)
			if err != nil {
				return nil, err
			}
			debit, credit := itemSides(amount, rec.AccountCategory)
			item = domain.ReconciliationItem{
				ItemID:           uuid.NewString(),
				ReconciliationID: reconciliationID,
				Seq:              nextSeq(items),
				ItemType:         domain.ItemAdjustment,
				TransactionDate:  domain.DateOnly(date),
				Description:      strings.TrimSpace(description),
				Debit:            debit,
				Credit:           credit,
				CreatedAt:        s.Now(),
			}
			if err := s.reconRepo.SaveItems(ctx, []domain.ReconciliationItem{item}); err != nil {
				return nil, err
			}
			rec.Recount(append(items, item))
			return map[string]any{"itemID": item.ItemID, "amount": amount.StringFixed(2)}, nil
		})
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *reconciliationService) AutoMatch(ctx context.Context, companyID, userID, reconciliationID string, policy *domain.MatchPolicy) (*domain.MatchReport, error) {
	effective := s.policy
	if policy != nil {
		effective = *policy
	}
	if effective.WindowDays < 0 || effective.AmountTolerance.IsNegative() {
		return nil, fmt.Errorf("match window and tolerance must not be negative: %w", apperrors.ErrValidation)
	}

	var report domain.MatchReport
	_, err := s.mutate(ctx, companyID, userID, reconciliationID, domain.ActionReconAutoMatched,
		func(ctx context.Context, rec *domain.Reconciliation) (map[string]any, error) {
			if err := rec.RequireStatus(domain.ReconInProgress); err != nil {
				return nil, err
			}
			items, err := s.reconRepo.ListItems(ctx, reconciliationID)
			if err != nil {
				return nil, err
			}

			pairs, changed := autoMatch(items, rec.AccountCategory, effective, userID, s.Now())
			if len(changed) > 0 {
				updates := make([]domain.ReconciliationItem, len(changed))
				for i, idx := range changed {
					updates[i] = items[idx]
				}
				if err := s.reconRepo.UpdateItems(ctx, updates); err != nil {
					return nil, err
				}
			}
			rec.Recount(items)

			report = domain.MatchReport{
				ReconciliationID:      reconciliationID,
				Matched:               pairs,
				UnmatchedStatementIDs: []string{},
				UnmatchedBookIDs:      []string{},
				ReconciledCount:       rec.ReconciledCount,
				UnreconciledCount:     rec.UnreconciledCount,
				Difference:            rec.Difference,
			}
			if report.Matched == nil {
				report.Matched = []domain.MatchPair{}
			}
			for _, it := range items {
				if it.IsReconciled {
					continue
				}
				switch it.ItemType {
				case domain.ItemStatement:
					report.UnmatchedStatementIDs = append(report.UnmatchedStatementIDs, it.ItemID)
				case domain.ItemBook:
					report.UnmatchedBookIDs = append(report.UnmatchedBookIDs, it.ItemID)
				}
			}
			return map[string]any{
				"matched":         len(pairs),
				"windowDays":      effective.WindowDays,
				"amountTolerance": effective.AmountTolerance.String(),
			}, nil
		})
	if err != nil {
		return nil, err
	}
	s.LogInfo(ctx, "Auto-match finished",
		slog.String("reconciliation_id", reconciliationID),
		slog.Int("matched", len(report.Matched)),
		slog.Int("unreconciled", report.UnreconciledCount))
	return &report, nil
}

func (s *reconciliationService) ManualMatch(ctx context.Context, companyID, userID, reconciliationID, bookItemID, statementItemID string) (*domain.MatchResult, error) {
	if bookItemID == statementItemID {
		return nil, fmt.Errorf("an item cannot be matched with itself: %w", apperrors.ErrValidation)
	}

	var result domain.MatchResult
	rec, err := s.mutate(ctx, companyID, userID, reconciliationID, domain.ActionReconManualMatched,
		func(ctx context.Context, rec *domain.Reconciliation) (map[string]any, error) {
			if err := rec.RequireStatus(domain.ReconInProgress); err != nil {
				return nil, err
			}
			items, err := s.reconRepo.ListItems(ctx, reconciliationID)
			if err != nil {
				return nil, err
			}
			bi := slices.IndexFunc(items, func(it domain.ReconciliationItem) bool { return it.ItemID == bookItemID })
			if bi < 0 {
				return nil, itemNotFound(bookItemID)
			}
			si := slices.IndexFunc(items, func(it domain.ReconciliationItem) bool { return it.ItemID == statementItemID })
			if si < 0 {
				return nil, itemNotFound(statementItemID)
			}
			book, stmt := &items[bi], &items[si]
			if book.ItemType == domain.ItemStatement {
				return nil, fmt.Errorf("item %s is a statement item, expected a book or adjustment item: %w", bookItemID, apperrors.ErrValidation)
			}
			if stmt.ItemType == domain.ItemBook {
				return nil, fmt.Errorf("item %s is a book item, expected a statement or adjustment item: %w", statementItemID, apperrors.ErrValidation)
			}
			for _, it := range []*domain.ReconciliationItem{book, stmt} {
				if it.IsReconciled {
					return nil, fmt.Errorf("item %s is already matched: %w", it.ItemID, apperrors.ErrConflict)
				}
			}

			now := s.Now()
			book.MarkMatched(stmt.ItemID, userID, now)
			stmt.MarkMatched(book.ItemID, userID, now)
			if err := s.reconRepo.UpdateItems(ctx, []domain.ReconciliationItem{*book, *stmt}); err != nil {
				return nil, err
			}
			rec.Recount(items)

			stmtAmount := stmt.SignedAmount(rec.AccountCategory)
			result.Delta = book.SignedAmount(rec.AccountCategory).Sub(stmtAmount)
			result.Pair = domain.MatchPair{
				BookItemID:      book.ItemID,
				StatementItemID: stmt.ItemID,
				Amount:          stmtAmount,
				DateDeltaDays:   domain.DaysBetween(book.TransactionDate, stmt.TransactionDate),
			}
			return map[string]any{
				"bookItemID":      book.ItemID,
				"statementItemID": stmt.ItemID,
				"delta":           result.Delta.StringFixed(2),
			}, nil
		})
	if err != nil {
		return nil, err
	}
	result.Reconciliation = *rec
	return &result, nil
}

func (s *reconciliationService) Unmatch(ctx context.Context, companyID, userID, reconciliationID, itemID string) (*domain.Reconciliation, error) {
	return s.mutate(ctx, companyID, userID, reconciliationID, domain.ActionReconUnmatched,
		func(ctx context.Context, rec *domain.Reconciliation) (map[string]any, error) {
			if err := rec.RequireStatus(domain.ReconInProgress); err != nil {
				return nil, err
			}
			items, err := s.reconRepo.ListItems(ctx, reconciliationID)
			if err != nil {
				return nil, err
			}
			idx := slices.IndexFunc(items, func(it domain.ReconciliationItem) bool { return it.ItemID == itemID })
			if idx < 0 {
				return nil, itemNotFound(itemID)
			}
			item := &items[idx]
			if !item.IsReconciled || item.MatchedItemID == nil {
				return nil, fmt.Errorf("item %s is not matched: %w", itemID, apperrors.ErrConflict)
			}
			counterpartID := *item.MatchedItemID
			updates := []domain.ReconciliationItem{}
			if ci := slices.IndexFunc(items, func(it domain.ReconciliationItem) bool { return it.ItemID == counterpartID }); ci >= 0 {
				items[ci].ClearMatch()
				updates = append(updates, items[ci])
			}
			item.ClearMatch()
			updates = append(updates, *item)
			if err := s.reconRepo.UpdateItems(ctx, updates); err != nil {
				return nil, err
			}
			rec.Recount(items)
			return map[string]any{"itemID": itemID, "counterpartID": counterpartID}, nil
		})
}

func (s *reconciliationService) Complete(ctx context.Context, companyID, userID, reconciliationID string, acceptDifference bool) (*domain.Reconciliation, error) {
	return s.mutate(ctx, companyID, userID, reconciliationID, domain.ActionReconCompleted,
		func(ctx context.Context, rec *domain.Reconciliation) (map[string]any, error) {
			if err := rec.RequireStatus(domain.ReconInProgress); err != nil {
				return nil, err
			}
			items, err := s.reconRepo.ListItems(ctx, reconciliationID)
			if err != nil {
				return nil, err
			}
			rec.Recount(items)
			if rec.StatementBalance == nil {
				return nil, apperrors.NewLedgerError(apperrors.ReconciliationNotReady,
					"no statement has been imported").WithReconciliation(reconciliationID)
			}
			if rec.UnreconciledCount > 0 && !acceptDifference {
				return nil, apperrors.NewLedgerError(apperrors.ReconciliationNotReady,
					"%d items are still unreconciled", rec.UnreconciledCount).
					WithReconciliation(reconciliationID).
					WithCount(rec.UnreconciledCount).
					WithDifference(rec.Difference)
			}
			if err := rec.Transition(domain.ReconCompleted); err != nil {
				return nil, err
			}
			now := s.Now()
			rec.CompletedAt = &now
			rec.CompletedBy = &userID
			return map[string]any{
				"difference":       rec.Difference.StringFixed(2),
				"unreconciled":     rec.UnreconciledCount,
				"acceptDifference": acceptDifference,
			}, nil
		})
}

func (s *reconciliationService) Approve(ctx context.Context, companyID, userID, reconciliationID string) (*domain.Reconciliation, error) {
	return s.mutate(ctx, companyID, userID, reconciliationID, domain.ActionReconApproved,
		func(_ context.Context, rec *domain.Reconciliation) (map[string]any, error) {
			if err := rec.Transition(domain.ReconApproved); err != nil {
				return nil, err
			}
			now := s.Now()
			rec.ApprovedAt = &now
			rec.ApprovedBy = &userID
			return map[string]any{"difference": rec.Difference.StringFixed(2)}, nil
		})
}

func (s *reconciliationService) Reject(ctx context.Context, companyID, userID, reconciliationID, reason string) (*domain.Reconciliation, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, fmt.Errorf("a rejection reason is required: %w", apperrors.ErrValidation)
	}
	return s.mutate(ctx, companyID, userID, reconciliationID, domain.ActionReconRejected,
		func(_ context.Context, rec *domain.Reconciliation) (map[string]any, error) {
			if err := rec.Transition(domain.ReconRejected); err != nil {
				return nil, err
			}
			if err := rec.Transition(domain.ReconInProgress); err != nil {
				return nil, err
			}
			rec.RejectionReason = &reason
			rec.CompletedAt = nil
			rec.CompletedBy = nil
			return map[string]any{"reason": reason}, nil
		})
}

func (s *reconciliationService) Cancel(ctx context.Context, companyID, userID, reconciliationID string) (*domain.Reconciliation, error) {
	return s.mutate(ctx, companyID, userID, reconciliationID, domain.ActionReconCancelled,
		func(ctx context.Context, rec *domain.Reconciliation) (map[string]any, error) {
			if err := rec.Transition(domain.ReconCancelled); err != nil {
				return nil, err
			}
			items, err := s.reconRepo.ListItems(ctx, reconciliationID)
			if err != nil {
				return nil, err
			}
			var cleared []domain.ReconciliationItem
			for i := range items {
				if items[i].IsReconciled {
					items[i].ClearMatch()
					cleared = append(cleared, items[i])
				}
			}
			if len(cleared) > 0 {
				if err := s.reconRepo.UpdateItems(ctx, cleared); err != nil {
					return nil, err
				}
			}
			rec.Recount(items)
			return map[string]any{"clearedItems": len(cleared)}, nil
		})
}
