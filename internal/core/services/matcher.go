package services

import (
	"time"

	"github.com/SscSPs/erp_ledger/internal/core/domain"
	"github.com/shopspring/decimal"
)

// itemSides splits an amount signed in the account's natural convention into debit and credit.
func itemSides(amount decimal.Decimal, category domain.AccountCategory) (debit, credit decimal.Decimal) {
	debit, credit = decimal.Zero, decimal.Zero
	positive := amount.IsPositive()
	if category.IsDebitNormal() == positive {
		debit = amount.Abs()
	} else {
		credit = amount.Abs()
	}
	return debit, credit
}

// autoMatch pairs every unreconciled statement item, in Seq order, with the unreconciled
// book item of equal signed amount (within tolerance) closest in date. Ties go to the
// smaller Seq. Items are updated in place; the indices of changed items are returned.
func autoMatch(items []domain.ReconciliationItem, category domain.AccountCategory, policy domain.MatchPolicy, userID string, at time.Time) ([]domain.MatchPair, []int) {
	var books []int
	for i, it := range items {
		if it.ItemType == domain.ItemBook && !it.IsReconciled {
			books = append(books, i)
		}
	}

	var (
		pairs   []domain.MatchPair
		changed []int
	)
	for si := range items {
		stmt := &items[si]
		if stmt.ItemType != domain.ItemStatement || stmt.IsReconciled {
			continue
		}
		amount := stmt.SignedAmount(category)

		best, bestDelta := -1, 0
		for _, bi := range books {
			book := items[bi]
			if book.IsReconciled {
				continue
			}
			if book.SignedAmount(category).Sub(amount).Abs().GreaterThan(policy.AmountTolerance) {
				continue
			}
			delta := domain.DaysBetween(book.TransactionDate, stmt.TransactionDate)
			if delta > policy.WindowDays {
				continue
			}
			if best < 0 || delta < bestDelta || (delta == bestDelta && book.Seq < items[best].Seq) {
				best, bestDelta = bi, delta
			}
		}
		if best < 0 {
			continue
		}

		book := &items[best]
		book.MarkMatched(stmt.ItemID, userID, at)
		stmt.MarkMatched(book.ItemID, userID, at)
		changed = append(changed, best, si)
		pairs = append(pairs, domain.MatchPair{
			BookItemID:      book.ItemID,
			StatementItemID: stmt.ItemID,
			Amount:          amount,
			DateDeltaDays:   bestDelta,
		})
	}
	return pairs, changed
}
