package pgsql

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/SscSPs/erp_ledger/internal/apperrors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Postgres SQLSTATE codes the adapter translates.
const (
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
	pgLockNotAvailable     = "55P03"
	pgUniqueViolation      = "23505"
	pgForeignKeyViolation  = "23503"
	pgCheckViolation       = "23514"
	pgExclusionViolation   = "23P01"
	pgAdminShutdown        = "57P01"
	pgCannotConnectNow     = "57P03"
)

const (
	// periodOverlapConstraint is the exclusion constraint on accounting_periods.
	periodOverlapConstraint = "accounting_periods_no_overlap"
	// balancedEntryConstraint is raised by the deferred balance trigger on journal entries.
	balancedEntryConstraint = "journal_entry_balanced"
)

// mapError translates driver errors into the error vocabulary of the core.
func mapError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return apperrors.ErrNotFound
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgSerializationFailure, pgDeadlockDetected, pgLockNotAvailable:
			return apperrors.NewLedgerError(apperrors.ConcurrentModification, "%s: %s", op, pgErr.Message).Wrap(err)
		case pgUniqueViolation:
			return fmt.Errorf("%s: %s: %w", op, pgErr.ConstraintName, apperrors.ErrDuplicate)
		case pgCheckViolation:
			if pgErr.ConstraintName == balancedEntryConstraint {
				return apperrors.NewLedgerError(apperrors.UnbalancedEntry, "%s: %s", op, pgErr.Message).Wrap(err)
			}
			return fmt.Errorf("%s: %s: %w", op, pgErr.ConstraintName, apperrors.ErrValidation)
		case pgForeignKeyViolation:
			return fmt.Errorf("%s: %s: %w", op, pgErr.ConstraintName, apperrors.ErrValidation)
		case pgExclusionViolation:
			if pgErr.ConstraintName == periodOverlapConstraint {
				return apperrors.NewLedgerError(apperrors.PeriodOverlap, "%s: period overlaps an existing one", op).Wrap(err)
			}
			return fmt.Errorf("%s: %s: %w", op, pgErr.ConstraintName, apperrors.ErrConflict)
		case pgAdminShutdown, pgCannotConnectNow:
			return apperrors.Unavailable(op, err)
		}
		return apperrors.NewAppError(500, op, err)
	}

	var connErr *pgconn.ConnectError
	var netErr net.Error
	switch {
	case errors.As(err, &connErr),
		errors.As(err, &netErr),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded),
		pgconn.Timeout(err),
		pgconn.SafeToRetry(err):
		return apperrors.Unavailable(op, err)
	}
	return apperrors.NewAppError(500, op, err)
}
