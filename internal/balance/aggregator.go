// Package balance derives spending figures and open balances from a group's
// expense history. Nothing here is stored; every figure is recomputed from
// the expenses on each call.
package balance

import (
	"github.com/google/uuid"

	"github.com/fkhayef/mixi/internal/expense"
	"github.com/fkhayef/mixi/internal/group"
	"github.com/fkhayef/mixi/pkg/money"
)

// Member is a group member as the aggregator sees it
type Member struct {
	UserID   uuid.UUID `json:"user_id"`
	UserName string    `json:"user_name"`
}

// MembersFromGroup converts group members, keeping their order
func MembersFromGroup(members []*group.GroupMember) []Member {
	out := make([]Member, len(members))
	for i, m := range members {
		out[i] = Member{UserID: m.UserID, UserName: m.Username}
	}
	return out
}

// MemberBalance is a member's open position. Positive means the member is
// owed money.
type MemberBalance struct {
	Member
	Balance float64 `json:"balance"`
}

// ExpenseBreakdown is one expense seen from one user, paid state ignored
type ExpenseBreakdown struct {
	UserPaid   float64   `json:"user_paid"`
	UserOwes   float64   `json:"user_owes"`
	UserIsOwed float64   `json:"user_is_owed"`
	PaidBy     uuid.UUID `json:"paid_by"`
	PaidByName string    `json:"paid_by_name,omitempty"`
}

// TotalSharedSpend sums the amount of every shared expense
func TotalSharedSpend(expenses []*expense.Expense) float64 {
	var cents int64
	for _, e := range expenses {
		if e.IsShared() {
			cents += money.ToCents(e.Amount)
		}
	}
	return money.FromCents(cents)
}

// UserTotalSpending is the user's lifetime spending: their own personal
// expenses plus their share of every shared expense, paid or not
func UserTotalSpending(expenses []*expense.Expense, userID uuid.UUID) float64 {
	var cents int64
	for _, e := range expenses {
		if !e.IsShared() {
			if e.CreatorID == userID {
				cents += money.ToCents(e.Amount)
			}
			continue
		}
		if s := e.SplitFor(userID); s != nil {
			cents += money.ToCents(s.ExactAmount)
		}
	}
	return money.FromCents(cents)
}

// UserRemainingBalance nets the user's unpaid splits. As payer the user
// gains what others still owe; as borrower the user loses their own unpaid
// share.
func UserRemainingBalance(expenses []*expense.Expense, userID uuid.UUID) float64 {
	var cents int64
	for _, e := range expenses {
		cents += remainingCents(e, userID)
	}
	return money.FromCents(cents)
}

func remainingCents(e *expense.Expense, userID uuid.UUID) int64 {
	if !e.IsShared() || e.Settled {
		return 0
	}

	var cents int64
	for _, s := range e.Splits {
		if s.Paid || s.UserID == e.CreatorID {
			continue
		}
		switch userID {
		case e.CreatorID:
			cents += money.ToCents(s.ExactAmount)
		case s.UserID:
			cents -= money.ToCents(s.ExactAmount)
		}
	}
	return cents
}

// Breakdown describes a single expense from the user's point of view
func Breakdown(e *expense.Expense, userID uuid.UUID) ExpenseBreakdown {
	b := ExpenseBreakdown{PaidBy: e.CreatorID, PaidByName: e.CreatorUsername}

	if e.CreatorID == userID {
		b.UserPaid = e.Amount
	}
	if !e.IsShared() {
		return b
	}

	var owes, owed int64
	for _, s := range e.Splits {
		if s.UserID == e.CreatorID {
			continue
		}
		if userID == e.CreatorID {
			owed += money.ToCents(s.ExactAmount)
		} else if s.UserID == userID {
			owes += money.ToCents(s.ExactAmount)
		}
	}
	b.UserOwes = money.FromCents(owes)
	b.UserIsOwed = money.FromCents(owed)
	return b
}

// NetBalances returns every member's remaining balance in member order.
// The balances of a consistent ledger add up to zero.
func NetBalances(expenses []*expense.Expense, members []Member) []MemberBalance {
	cents := make(map[uuid.UUID]int64, len(members))
	for _, e := range expenses {
		if !e.IsShared() || e.Settled {
			continue
		}
		for _, s := range e.Splits {
			if s.Paid || s.UserID == e.CreatorID {
				continue
			}
			amount := money.ToCents(s.ExactAmount)
			cents[s.UserID] -= amount
			cents[e.CreatorID] += amount
		}
	}

	out := make([]MemberBalance, len(members))
	for i, m := range members {
		out[i] = MemberBalance{Member: m, Balance: money.FromCents(cents[m.UserID])}
	}
	return out
}
