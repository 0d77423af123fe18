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
	"github.com/google/uuid"
)

type periodService struct {
	BaseService
	txManager   portsrepo.TransactionManager
	periodRepo  portsrepo.PeriodRepositoryFacade
	journalRepo portsrepo.JournalReader
}

// PeriodServiceOption is a functional option for configuring the period service
type PeriodServiceOption func(*periodService)

// WithPeriodAuditor adds the audit recorder dependency
func WithPeriodAuditor(auditor portssvc.AuditSvcFacade) PeriodServiceOption {
	return func(s *periodService) {
		s.Auditor = auditor
	}
}

// WithPeriodClock overrides the clock
func WithPeriodClock(clock func() time.Time) PeriodServiceOption {
	return func(s *periodService) {
		s.Clock = clock
	}
}

// NewPeriodService creates the period registry.
func NewPeriodService(txManager portsrepo.TransactionManager, periodRepo portsrepo.PeriodRepositoryFacade, journalRepo portsrepo.JournalReader, options ...PeriodServiceOption) portssvc.PeriodSvcFacade {
	svc := &periodService{
		txManager:   txManager,
		periodRepo:  periodRepo,
		journalRepo: journalRepo,
	}
	for _, option := range options {
		option(svc)
	}
	return svc
}

var _ portssvc.PeriodSvcFacade = (*periodService)(nil)

func unknownPeriod(periodID string) *apperrors.LedgerError {
	return apperrors.NewLedgerError(apperrors.UnknownPeriod, "period %s does not exist", periodID).WithPeriod(periodID)
}

func (s *periodService) OpenPeriod(ctx context.Context, companyID, userID, name string, start, end time.Time) (*domain.AccountingPeriod, error) {
	name = strings.TrimSpace(name)
	start, end = domain.DateOnly(start), domain.DateOnly(end)
	if name == "" {
		return nil, fmt.Errorf("period name is required: %w", apperrors.ErrValidation)
	}
	if !start.Before(end) {
		return nil, fmt.Errorf("period start %s must be before end %s: %w",
			start.Format(time.DateOnly), end.Format(time.DateOnly), apperrors.ErrValidation)
	}

	now := s.Now()
	period := domain.AccountingPeriod{
		PeriodID:    uuid.NewString(),
		CompanyID:   companyID,
		Name:        name,
		Start:       start,
		End:         end,
		Version:     1,
		AuditFields: domain.NewAuditFields(userID, now),
	}

	err := s.txManager.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.periodRepo.LockCompanyPeriods(ctx, companyID); err != nil {
			return err
		}
		overlaps, err := s.periodRepo.FindOverlappingPeriods(ctx, companyID, start, end)
		if err != nil {
			return err
		}
		if len(overlaps) > 0 {
			return apperrors.NewLedgerError(apperrors.PeriodOverlap,
				"[%s, %s) overlaps period %s", start.Format(time.DateOnly), end.Format(time.DateOnly), overlaps[0].Name).
				WithPeriod(overlaps[0].PeriodID)
		}
		if err := s.periodRepo.SavePeriod(ctx, period); err != nil {
			return err
		}
		return s.RecordAudit(ctx, companyID, userID, domain.ActionPeriodOpened, domain.EntityPeriod, period.PeriodID,
			map[string]any{"name": name, "start": start.Format(time.DateOnly), "end": end.Format(time.DateOnly)})
	})
	if err != nil {
		s.LogError(ctx, err, "Failed to open period", slog.String("company_id", companyID), slog.String("name", name))
		return nil, err
	}

	s.LogInfo(ctx, "Period opened", slog.String("period_id", period.PeriodID), slog.String("company_id", companyID))
	return &period, nil
}

func (s *periodService) ClosePeriod(ctx context.Context, companyID, userID, periodID string) (*domain.AccountingPeriod, error) {
	var result domain.AccountingPeriod
	err := s.txManager.WithinTx(ctx, func(ctx context.Context) error {
		period, err := s.periodRepo.FindPeriodForUpdate(ctx, periodID)
		if err != nil {
			if errors.Is(err, apperrors.ErrNotFound) {
				return unknownPeriod(periodID)
			}
			return err
		}
		if period.CompanyID != companyID {
			return unknownPeriod(periodID)
		}
		if period.IsClosed {
			result = *period
			return nil
		}

		drafts, err := s.journalRepo.CountEntriesByStatus(ctx, periodID, domain.Draft)
		if err != nil {
			return err
		}
		if drafts > 0 {
			return apperrors.NewLedgerError(apperrors.PeriodHasOpenEntries,
				"period %s still has %d draft entries", period.Name, drafts).WithPeriod(periodID).WithCount(drafts)
		}

		now := s.Now()
		expected := period.Version
		period.IsClosed = true
		period.ClosedAt = &now
		period.ClosedBy = &userID
		period.Version++
		period.Touch(userID, now)
		if err := s.periodRepo.UpdatePeriod(ctx, *period, expected); err != nil {
			return err
		}
		result = *period
		return s.RecordAudit(ctx, companyID, userID, domain.ActionPeriodClosed, domain.EntityPeriod, periodID,
			map[string]any{"name": period.Name})
	})
	if err != nil {
		s.LogError(ctx, err, "Failed to close period", slog.String("period_id", periodID))
		return nil, err
	}

	s.LogInfo(ctx, "Period closed", slog.String("period_id", periodID))
	return &result, nil
}

func (s *periodService) GetPeriod(ctx context.Context, companyID, periodID string) (*domain.AccountingPeriod, error) {
	period, err := s.periodRepo.FindPeriodByID(ctx, periodID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, unknownPeriod(periodID)
		}
		return nil, err
	}
	if period.CompanyID != companyID {
		return nil, unknownPeriod(periodID)
	}
	return period, nil
}

func (s *periodService) ListPeriods(ctx context.Context, companyID string) ([]domain.AccountingPeriod, error) {
	periods, err := s.periodRepo.ListPeriods(ctx, companyID)
	if err != nil {
		s.LogError(ctx, err, "Failed to list periods", slog.String("company_id", companyID))
		return nil, err
	}
	return periods, nil
}

func (s *periodService) FindPeriodForDate(ctx context.Context, companyID string, at time.Time) (*domain.AccountingPeriod, error) {
	period, err := s.periodRepo.FindPeriodForDate(ctx, companyID, domain.DateOnly(at))
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.NewLedgerError(apperrors.UnknownPeriod, "no period contains %s", at.Format(time.DateOnly))
		}
		return nil, err
	}
	return period, nil
}

func (s *periodService) IsOpen(ctx context.Context, periodID string, at time.Time) (bool, error) {
	period, err := s.periodRepo.FindPeriodByID(ctx, periodID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return period.IsOpenAt(domain.DateOnly(at)), nil
}

func (s *periodService) RequireOpen(ctx context.Context, companyID, periodID string, at time.Time) (*domain.AccountingPeriod, error) {
	if periodID == "" {
		return nil, apperrors.NewLedgerError(apperrors.UnknownPeriod, "entry has no period")
	}
	period, err := s.periodRepo.FindPeriodForShare(ctx, periodID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, unknownPeriod(periodID)
		}
		return nil, err
	}
	if period.CompanyID != companyID {
		return nil, unknownPeriod(periodID)
	}
	if period.IsClosed {
		return nil, apperrors.NewLedgerError(apperrors.PeriodClosed, "period %s is closed", period.Name).WithPeriod(periodID)
	}
	day := domain.DateOnly(at)
	if !period.Contains(day) {
		return nil, apperrors.NewLedgerError(apperrors.EntryDateOutsidePeriod,
			"entry date %s is outside period %s [%s, %s)", day.Format(time.DateOnly), period.Name,
			period.Start.Format(time.DateOnly), period.End.Format(time.DateOnly)).WithPeriod(periodID)
	}
	return period, nil
}
