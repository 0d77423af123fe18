package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/SscSPs/erp_ledger/internal/core/domain"
	portssvc "github.com/SscSPs/erp_ledger/internal/core/ports/services"
	"github.com/SscSPs/erp_ledger/internal/middleware"
)

// BaseService provides common functionality for all services
type BaseService struct {
	Auditor portssvc.AuditSvcFacade
	Clock   func() time.Time
}

// GetLogger gets the logger from context or returns a default one
func (s *BaseService) GetLogger(ctx context.Context) *slog.Logger {
	return middleware.GetLoggerFromCtx(ctx)
}

// LogError logs an error with consistent formatting
func (s *BaseService) LogError(ctx context.Context, err error, msg string, keyvals ...any) {
	logger := s.GetLogger(ctx)
	args := make([]any, 0, len(keyvals)+1)
	args = append(args, slog.String("error", err.Error()))
	args = append(args, keyvals...)
	logger.Error(msg, args...)
}

// LogInfo logs an info message with consistent formatting
func (s *BaseService) LogInfo(ctx context.Context, msg string, keyvals ...any) {
	s.GetLogger(ctx).Info(msg, keyvals...)
}

// LogDebug logs a debug message with consistent formatting
func (s *BaseService) LogDebug(ctx context.Context, msg string, keyvals ...any) {
	s.GetLogger(ctx).Debug(msg, keyvals...)
}

// Now returns the current time in UTC, at the microsecond precision storage keeps.
func (s *BaseService) Now() time.Time {
	if s.Clock != nil {
		return s.Clock().UTC().Truncate(time.Microsecond)
	}
	return time.Now().UTC().Truncate(time.Microsecond)
}

// RecordAudit appends an audit record within the transaction carried by ctx.
func (s *BaseService) RecordAudit(ctx context.Context, companyID, userID string, action domain.AuditAction, entityType, entityID string, details map[string]any) error {
	if s.Auditor == nil {
		s.LogDebug(ctx, "No audit recorder configured, skipping audit record",
			slog.String("action", string(action)),
			slog.String("entity_id", entityID))
		return nil
	}
	return s.Auditor.Record(ctx, companyID, userID, action, entityType, entityID, details)
}
