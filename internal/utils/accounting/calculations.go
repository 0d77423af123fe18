package accounting

import (
	"fmt"

	"github.com/SscSPs/erp_ledger/internal/apperrors"
	"github.com/SscSPs/erp_ledger/internal/core/domain"
	"github.com/shopspring/decimal"
)

// MoneyPlaces is the number of decimal places a line amount may carry.
const MoneyPlaces = 2

// CalculateSignedAmount applies the natural sign of the account category to a line.
func CalculateSignedAmount(line domain.JournalLine, category domain.AccountCategory) (decimal.Decimal, error) {
	// DEBIT to ASSET/EXPENSE -> Positive (+)
	// CREDIT to LIABILITY/EQUITY/REVENUE -> Positive (+)
	switch category {
	case domain.Asset, domain.Expense:
		return line.Debit.Sub(line.Credit), nil
	case domain.Liability, domain.Equity, domain.Revenue:
		return line.Credit.Sub(line.Debit), nil
	default:
		return decimal.Zero, fmt.Errorf("unknown account category '%s' encountered for account ID %s: %w", category, line.AccountID, apperrors.ErrValidation)
	}
}

// ValidateLines checks that an entry has lines and that each line is non-degenerate:
// no negative side, no fraction of a cent, and exactly one of debit or credit positive.
func ValidateLines(entryID string, lines []domain.JournalLine) error {
	if len(lines) == 0 {
		return apperrors.NewLedgerError(apperrors.InvalidLine, "journal entry must have at least one line").WithEntry(entryID)
	}
	for i, l := range lines {
		if l.AccountID == "" {
			return apperrors.NewLedgerError(apperrors.InvalidLine, "line has no account").WithEntry(entryID).WithLine(i)
		}
		if l.Debit.IsNegative() || l.Credit.IsNegative() {
			return apperrors.NewLedgerError(apperrors.InvalidLine, "line amounts must not be negative").
				WithEntry(entryID).WithLine(i).WithAmounts(l.Debit, l.Credit)
		}
		if !l.Debit.Equal(l.Debit.Round(MoneyPlaces)) || !l.Credit.Equal(l.Credit.Round(MoneyPlaces)) {
			return apperrors.NewLedgerError(apperrors.InvalidLine, "line amounts must not carry more than %d decimal places", MoneyPlaces).
				WithEntry(entryID).WithLine(i).WithAmounts(l.Debit, l.Credit)
		}
		if l.Debit.IsPositive() == l.Credit.IsPositive() {
			return apperrors.NewLedgerError(apperrors.InvalidLine, "exactly one of debit or credit must be positive").
				WithEntry(entryID).WithLine(i).WithAmounts(l.Debit, l.Credit)
		}
	}
	return nil
}

// ValidateBalance checks that total debits equal total credits exactly. There is no tolerance.
func ValidateBalance(entryID string, lines []domain.JournalLine) error {
	debit, credit := SumSides(lines)
	if !debit.Equal(credit) {
		return apperrors.NewLedgerError(apperrors.UnbalancedEntry,
			"debits %s do not equal credits %s", debit.StringFixed(MoneyPlaces), credit.StringFixed(MoneyPlaces)).
			WithEntry(entryID).WithAmounts(debit, credit)
	}
	return nil
}

// SumSides totals both sides of the given lines.
func SumSides(lines []domain.JournalLine) (debit, credit decimal.Decimal) {
	debit, credit = decimal.Zero, decimal.Zero
	for _, l := range lines {
		debit = debit.Add(l.Debit)
		credit = credit.Add(l.Credit)
	}
	return debit, credit
}

// BaseAmount converts the entry's total debit into the company base currency.
func BaseAmount(lines []domain.JournalLine, rate decimal.Decimal) decimal.Decimal {
	debit, _ := SumSides(lines)
	return debit.Mul(rate).Round(MoneyPlaces)
}
