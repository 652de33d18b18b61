package settlement

import (
	"sort"

	"github.com/google/uuid"

	"github.com/fkhayef/mixi/internal/balance"
	"github.com/fkhayef/mixi/internal/expense"
	"github.com/fkhayef/mixi/pkg/money"
)

// SimplifiedDebt is a suggested payment: From pays To the Amount
type SimplifiedDebt struct {
	From     uuid.UUID `json:"from"`
	FromName string    `json:"from_name"`
	To       uuid.UUID `json:"to"`
	ToName   string    `json:"to_name"`
	Amount   float64   `json:"amount"`
}

type position struct {
	member balance.Member
	cents  int64
}

// SimplifyDebts reduces the group's open balances to a short list of
// payments. Members within tolerance of zero are left out, the rest are
// split into debtors and creditors sorted by size, and the largest debtor
// repeatedly pays the largest creditor. Ties keep member order.
//
// The greedy match is deterministic but not always minimal.
func SimplifyDebts(expenses []*expense.Expense, members []balance.Member) []SimplifiedDebt {
	var debtors, creditors []*position
	for _, b := range balance.NetBalances(expenses, members) {
		cents := money.ToCents(b.Balance)
		if money.IsZeroCents(cents) {
			continue
		}
		if cents < 0 {
			debtors = append(debtors, &position{member: b.Member, cents: -cents})
		} else {
			creditors = append(creditors, &position{member: b.Member, cents: cents})
		}
	}

	sort.SliceStable(debtors, func(i, j int) bool { return debtors[i].cents > debtors[j].cents })
	sort.SliceStable(creditors, func(i, j int) bool { return creditors[i].cents > creditors[j].cents })

	var debts []SimplifiedDebt
	i, j := 0, 0
	for i < len(debtors) && j < len(creditors) {
		d, c := debtors[i], creditors[j]

		amount := min(d.cents, c.cents)
		if amount > 0 {
			debts = append(debts, SimplifiedDebt{
				From:     d.member.UserID,
				FromName: d.member.UserName,
				To:       c.member.UserID,
				ToName:   c.member.UserName,
				Amount:   money.FromCents(amount),
			})
		}

		d.cents -= amount
		c.cents -= amount
		if d.cents == 0 {
			i++
		}
		if c.cents == 0 {
			j++
		}
	}

	return debts
}

// directedDebts sums what each borrower still owes each payer
func directedDebts(expenses []*expense.Expense) map[uuid.UUID]map[uuid.UUID]int64 {
	owes := make(map[uuid.UUID]map[uuid.UUID]int64)
	for _, e := range expenses {
		if !e.IsShared() || e.Settled {
			continue
		}
		for _, s := range e.UnpaidBorrowerSplits() {
			if owes[s.UserID] == nil {
				owes[s.UserID] = make(map[uuid.UUID]int64)
			}
			owes[s.UserID][e.CreatorID] += money.ToCents(s.ExactAmount)
		}
	}
	return owes
}

// NetDebts nets the open debt of every pair of members directly, without
// routing money through third parties. Pairs are visited in member order and
// pairs within tolerance of even are left out.
func NetDebts(expenses []*expense.Expense, members []balance.Member) []SimplifiedDebt {
	owes := directedDebts(expenses)

	var debts []SimplifiedDebt
	for i := 0; i < len(members); i++ {
		for j := i + 1; j < len(members); j++ {
			a, b := members[i], members[j]
			net := owes[a.UserID][b.UserID] - owes[b.UserID][a.UserID]
			switch {
			case money.IsZeroCents(net):
			case net > 0:
				debts = append(debts, SimplifiedDebt{From: a.UserID, FromName: a.UserName, To: b.UserID, ToName: b.UserName, Amount: money.FromCents(net)})
			case net < 0:
				debts = append(debts, SimplifiedDebt{From: b.UserID, FromName: b.UserName, To: a.UserID, ToName: a.UserName, Amount: money.FromCents(-net)})
			}
		}
	}
	return debts
}

// NetBetween returns what a owes b after netting both directions. A
// negative result means b owes a.
func NetBetween(expenses []*expense.Expense, a, b uuid.UUID) float64 {
	owes := directedDebts(expenses)
	return money.FromCents(owes[a][b] - owes[b][a])
}
