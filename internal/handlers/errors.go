package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/SscSPs/erp_ledger/internal/apperrors"
	"github.com/SscSPs/erp_ledger/internal/dto"
	"github.com/SscSPs/erp_ledger/internal/middleware"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

// statusForKind maps a ledger kind to its HTTP status.
func statusForKind(kind apperrors.Kind) int {
	switch kind {
	case apperrors.UnknownAccount, apperrors.UnknownPeriod, apperrors.UnknownEntry:
		return http.StatusNotFound
	case apperrors.ConcurrentModification, apperrors.InvalidTransition, apperrors.PeriodHasOpenEntries,
		apperrors.PeriodOverlap, apperrors.ReconciliationNotReady:
		return http.StatusConflict
	case apperrors.StorageUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusUnprocessableEntity
	}
}

// respondError renders err with the status its kind or sentinel implies.
// fallback is the message shown for unexpected failures.
func respondError(c *gin.Context, err error, fallback string) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())

	if le, ok := apperrors.AsLedgerError(err); ok {
		status := statusForKind(le.Kind)
		if status >= http.StatusInternalServerError {
			logger.Error(fallback, slog.String("kind", string(le.Kind)), slog.String("error", err.Error()))
		} else {
			logger.Warn("Ledger rule rejected request", slog.String("kind", string(le.Kind)), slog.String("error", err.Error()))
		}
		c.JSON(status, dto.ErrorResponse{Error: le.Message, Kind: string(le.Kind), Details: le.Details()})
		return
	}
	if kind := apperrors.KindOf(err); kind != "" {
		c.JSON(statusForKind(kind), dto.ErrorResponse{Error: err.Error(), Kind: string(kind)})
		return
	}

	switch {
	case errors.Is(err, apperrors.ErrValidation):
		logger.Warn("Validation error", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: err.Error()})
	case errors.Is(err, apperrors.ErrNotFound):
		logger.Warn("Resource not found", slog.String("error", err.Error()))
		c.JSON(http.StatusNotFound, dto.ErrorResponse{Error: err.Error()})
	case errors.Is(err, apperrors.ErrDuplicate), errors.Is(err, apperrors.ErrConflict):
		logger.Warn("Conflict", slog.String("error", err.Error()))
		c.JSON(http.StatusConflict, dto.ErrorResponse{Error: err.Error()})
	case errors.Is(err, apperrors.ErrForbidden):
		logger.Warn("Forbidden", slog.String("error", err.Error()))
		c.JSON(http.StatusForbidden, dto.ErrorResponse{Error: "Forbidden"})
	default:
		logger.Error(fallback, slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: fallback})
	}
}

// respondBindError renders request binding failures, listing failed fields when the
// validator produced them.
func respondBindError(c *gin.Context, err error) {
	middleware.GetLoggerFromCtx(c.Request.Context()).Warn("Failed to bind request", slog.String("error", err.Error()))

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		fields := make(map[string]string, len(verrs))
		for _, fe := range verrs {
			fields[fe.Field()] = fe.Tag()
		}
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid request", Fields: fields})
		return
	}
	c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid request format: " + err.Error()})
}

// identity pulls the acting user and company from the request, answering 401 when absent.
func identity(c *gin.Context) (userID, companyID string, ok bool) {
	userID, okUser := middleware.GetUserIDFromContext(c)
	companyID, okCompany := middleware.GetCompanyIDFromContext(c)
	if !okUser || !okCompany {
		middleware.GetLoggerFromCtx(c.Request.Context()).Error("Identity not found in context")
		c.JSON(http.StatusUnauthorized, dto.ErrorResponse{Error: "Unauthorized"})
		return "", "", false
	}
	return userID, companyID, true
}
