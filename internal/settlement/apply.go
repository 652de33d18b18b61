package settlement

import (
	"time"

	"github.com/google/uuid"

	"github.com/fkhayef/mixi/internal/expense"
)

// SettlePair marks every open split between a and b paid, in both
// directions, and returns the splits it changed
func SettlePair(expenses []*expense.Expense, a, b uuid.UUID, at time.Time) []expense.SplitRef {
	var refs []expense.SplitRef
	for _, e := range expenses {
		if !e.IsShared() || e.Settled {
			continue
		}
		var borrower uuid.UUID
		switch e.CreatorID {
		case a:
			borrower = b
		case b:
			borrower = a
		default:
			continue
		}
		if e.MarkPaid(borrower, at) {
			refs = append(refs, expense.SplitRef{ExpenseID: e.ID, UserID: borrower})
		}
	}
	return refs
}

// SettleAll marks every open split paid and returns the splits it changed
func SettleAll(expenses []*expense.Expense, at time.Time) []expense.SplitRef {
	var refs []expense.SplitRef
	for _, e := range expenses {
		if !e.IsShared() || e.Settled {
			continue
		}
		for _, s := range e.UnpaidBorrowerSplits() {
			if e.MarkPaid(s.UserID, at) {
				refs = append(refs, expense.SplitRef{ExpenseID: e.ID, UserID: s.UserID})
			}
		}
	}
	return refs
}

// touchedExpenses lists the distinct expenses the refs point at
func touchedExpenses(refs []expense.SplitRef) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(refs))
	var ids []uuid.UUID
	for _, ref := range refs {
		if _, ok := seen[ref.ExpenseID]; ok {
			continue
		}
		seen[ref.ExpenseID] = struct{}{}
		ids = append(ids, ref.ExpenseID)
	}
	return ids
}
