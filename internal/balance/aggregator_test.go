package balance

import (
	"context"
	"math/rand"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fkhayef/mixi/internal/expense"
	"github.com/fkhayef/mixi/internal/expense/split"
	"github.com/fkhayef/mixi/internal/group"
	"github.com/fkhayef/mixi/pkg/money"
)

var (
	alice = uuid.MustParse("00000000-0000-0000-0000-000000000001")
	bob   = uuid.MustParse("00000000-0000-0000-0000-000000000002")
	carol = uuid.MustParse("00000000-0000-0000-0000-000000000003")

	members = []Member{{UserID: alice, UserName: "alice"}, {UserID: bob, UserName: "bob"}, {UserID: carol, UserName: "carol"}}
)

// shared builds a shared expense from calculator output with the payer's
// split already paid
func shared(t *testing.T, payer uuid.UUID, outputs []split.SplitOutput) *expense.Expense {
	t.Helper()
	e := &expense.Expense{
		ID:        uuid.New(),
		CreatorID: payer,
		Amount:    split.Total(outputs),
		Type:      expense.ExpenseTypeShared,
	}
	for _, out := range outputs {
		e.Splits = append(e.Splits, &expense.Split{ExpenseID: e.ID, UserID: out.UserID, ExactAmount: out.ExactAmount})
	}
	e.MarkPaid(payer, e.CreatedAt)
	e.RecomputeSettled()
	return e
}

func exact90(t *testing.T) *expense.Expense {
	outputs, err := split.Exact([]split.Weighted{{UserID: alice, Value: 30}, {UserID: bob, Value: 30}, {UserID: carol, Value: 30}})
	require.NoError(t, err)
	return shared(t, alice, outputs)
}

func sumBalances(bs []MemberBalance) float64 {
	var total float64
	for _, b := range bs {
		total += b.Balance
	}
	return total
}

func TestExactSplitScenario(t *testing.T) {
	e := exact90(t)
	expenses := []*expense.Expense{e}

	assert.Equal(t, 60.0, UserRemainingBalance(expenses, alice))
	assert.Equal(t, -30.0, UserRemainingBalance(expenses, bob))
	assert.Equal(t, -30.0, UserRemainingBalance(expenses, carol))

	e.MarkPaid(bob, e.CreatedAt)
	assert.True(t, money.IsZero(UserRemainingBalance(expenses, bob)))
	assert.Equal(t, 30.0, UserRemainingBalance(expenses, alice))
	assert.False(t, e.Settled)

	e.MarkPaid(carol, e.CreatedAt)
	assert.True(t, e.Settled)
	for _, b := range NetBalances(expenses, members) {
		assert.Zero(t, b.Balance, b.UserName)
	}
}

func TestSpendingFigures(t *testing.T) {
	equal, err := split.Equal(100, []uuid.UUID{alice, bob, carol})
	require.NoError(t, err)

	personal := &expense.Expense{
		ID:        uuid.New(),
		CreatorID: bob,
		Amount:    45,
		Type:      expense.ExpenseTypePersonal,
		Splits:    []*expense.Split{{UserID: bob, ExactAmount: 45, Paid: true}},
		Settled:   true,
	}
	expenses := []*expense.Expense{exact90(t), shared(t, bob, equal), personal}

	assert.Equal(t, 190.0, TotalSharedSpend(expenses))
	assert.Equal(t, 30+33.34, UserTotalSpending(expenses, alice))
	assert.Equal(t, 30+33.33+45, UserTotalSpending(expenses, bob))

	// Personal expenses never move balances
	assert.Equal(t, 60-33.34, UserRemainingBalance(expenses, alice))

	b := Breakdown(expenses[0], alice)
	assert.Equal(t, ExpenseBreakdown{UserPaid: 90, UserIsOwed: 60, PaidBy: alice}, b)

	b = Breakdown(expenses[0], carol)
	assert.Equal(t, ExpenseBreakdown{UserOwes: 30, PaidBy: alice}, b)

	b = Breakdown(personal, bob)
	assert.Equal(t, ExpenseBreakdown{UserPaid: 45, PaidBy: bob}, b)
}

func TestBreakdownIgnoresPaidState(t *testing.T) {
	e := exact90(t)
	before := Breakdown(e, bob)
	e.MarkPaid(bob, e.CreatedAt)
	assert.Equal(t, before, Breakdown(e, bob))
}

func TestConservationAndIdempotence(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	ids := []uuid.UUID{alice, bob, carol}

	var expenses []*expense.Expense
	for i := 0; i < 200; i++ {
		amount := float64(rng.Intn(100000)) / 100
		payer := ids[rng.Intn(len(ids))]

		var outputs []split.SplitOutput
		var err error
		switch i % 3 {
		case 0:
			outputs, err = split.Equal(amount, ids)
		case 1:
			outputs, err = split.Shares(amount, []split.Weighted{{UserID: alice, Value: 1}, {UserID: bob, Value: 2}, {UserID: carol, Value: float64(rng.Intn(4))}})
		default:
			outputs, err = split.Percent(amount, []split.Weighted{{UserID: alice, Value: 50}, {UserID: bob, Value: 25}, {UserID: carol, Value: 25}})
		}
		require.NoError(t, err)

		e := shared(t, payer, outputs)
		if rng.Intn(4) == 0 {
			e.MarkPaid(ids[rng.Intn(len(ids))], e.CreatedAt)
		}
		expenses = append(expenses, e)
	}

	first := NetBalances(expenses, members)
	assert.InDelta(t, 0, sumBalances(first), money.Tolerance)
	assert.Equal(t, first, NetBalances(expenses, members))

	for _, b := range first {
		assert.Equal(t, b.Balance, UserRemainingBalance(expenses, b.UserID))
	}
}

type stubExpenses struct {
	expenses []*expense.Expense
}

func (s stubExpenses) ListAllByGroupID(ctx context.Context, groupID uuid.UUID) ([]*expense.Expense, error) {
	return s.expenses, nil
}

func (s stubExpenses) GetExpenseByID(ctx context.Context, id, callerID uuid.UUID) (*expense.Expense, error) {
	for _, e := range s.expenses {
		if e.ID == id {
			return e, nil
		}
	}
	return nil, expense.ErrExpenseNotFound
}

type stubGroups struct {
	group *group.Group
}

func (s stubGroups) GetByID(ctx context.Context, id uuid.UUID) (*group.Group, error) {
	return s.group, nil
}

func (s stubGroups) GetMembers(ctx context.Context, groupID uuid.UUID) ([]*group.GroupMember, error) {
	out := make([]*group.GroupMember, len(members))
	for i, m := range members {
		out[i] = &group.GroupMember{GroupID: groupID, UserID: m.UserID, Username: m.UserName}
	}
	return out, nil
}

func (s stubGroups) RequireMember(ctx context.Context, groupID, userID uuid.UUID) (*group.GroupMember, error) {
	for _, m := range members {
		if m.UserID == userID {
			return &group.GroupMember{GroupID: groupID, UserID: userID}, nil
		}
	}
	return nil, group.ErrNotMember
}

func TestServiceSummaries(t *testing.T) {
	ctx := context.Background()
	g := &group.Group{ID: uuid.New(), CurrencyCode: "SAR"}
	e := exact90(t)
	svc := NewService(stubExpenses{expenses: []*expense.Expense{e}}, stubGroups{group: g})

	summary, err := svc.GroupSummary(ctx, g.ID, bob)
	require.NoError(t, err)
	assert.Equal(t, "SAR", summary.CurrencyCode)
	assert.Equal(t, 90.0, summary.TotalSharedSpend)
	require.Len(t, summary.Members, 3)
	assert.Equal(t, 60.0, summary.Members[0].Balance)
	assert.Equal(t, 30.0, summary.Members[1].TotalSpending)

	user, err := svc.UserSummary(ctx, g.ID, carol, alice)
	require.NoError(t, err)
	assert.Equal(t, -30.0, user.RemainingBalance)

	_, err = svc.UserSummary(ctx, g.ID, uuid.New(), alice)
	assert.ErrorIs(t, err, group.ErrMemberNotFound)

	_, err = svc.GroupSummary(ctx, g.ID, uuid.New())
	assert.ErrorIs(t, err, group.ErrNotMember)

	b, err := svc.ExpenseBreakdown(ctx, e.ID, carol)
	require.NoError(t, err)
	assert.Equal(t, 30.0, b.UserOwes)
}
