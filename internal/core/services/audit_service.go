package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/SscSPs/erp_ledger/internal/apperrors"
	"github.com/SscSPs/erp_ledger/internal/core/domain"
	portsrepo "github.com/SscSPs/erp_ledger/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/erp_ledger/internal/core/ports/services"
	"github.com/SscSPs/erp_ledger/internal/utils/pagination"
	"github.com/google/uuid"
)

const (
	defaultAuditPageSize = 50
	maxAuditPageSize     = 200
)

type auditService struct {
	BaseService
	auditRepo portsrepo.AuditRepository
}

// NewAuditService creates the audit recorder.
func NewAuditService(repo portsrepo.AuditRepository, clock func() time.Time) portssvc.AuditSvcFacade {
	return &auditService{
		BaseService: BaseService{Clock: clock},
		auditRepo:   repo,
	}
}

var _ portssvc.AuditSvcFacade = (*auditService)(nil)

func (s *auditService) Record(ctx context.Context, companyID, userID string, action domain.AuditAction, entityType, entityID string, details map[string]any) error {
	if details == nil {
		details = map[string]any{}
	}
	record := domain.AuditRecord{
		AuditID:    uuid.NewString(),
		CompanyID:  companyID,
		UserID:     userID,
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		Details:    details,
		Timestamp:  s.Now(),
	}
	if err := s.auditRepo.SaveAuditRecord(ctx, record); err != nil {
		s.LogError(ctx, err, "Failed to append audit record",
			slog.String("action", string(action)),
			slog.String("entity_id", entityID))
		return fmt.Errorf("failed to append audit record: %w", err)
	}
	return nil
}

func (s *auditService) List(ctx context.Context, companyID string, filter domain.AuditFilter, limit int, nextToken *string) ([]domain.AuditRecord, *string, error) {
	if limit <= 0 {
		limit = defaultAuditPageSize
	}
	if limit > maxAuditPageSize {
		limit = maxAuditPageSize
	}

	var after *domain.AuditCursor
	if nextToken != nil && *nextToken != "" {
		cursor, err := decodeAuditCursor(*nextToken)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %v", apperrors.ErrValidation, err)
		}
		after = cursor
	}

	records, err := s.auditRepo.ListAuditRecords(ctx, companyID, filter, limit+1, after)
	if err != nil {
		s.LogError(ctx, err, "Failed to list audit records", slog.String("company_id", companyID))
		return nil, nil, err
	}

	var token *string
	if len(records) > limit {
		records = records[:limit]
		last := records[len(records)-1]
		encoded := pagination.EncodeTimeIDToken(last.Timestamp, last.AuditID)
		token = &encoded
	}
	return records, token, nil
}

func decodeAuditCursor(token string) (*domain.AuditCursor, error) {
	ts, id, err := pagination.DecodeTimeIDToken(token)
	if err != nil {
		return nil, err
	}
	return &domain.AuditCursor{Timestamp: ts, AuditID: id}, nil
}
