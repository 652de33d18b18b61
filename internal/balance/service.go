package balance

import (
	"context"

	"github.com/google/uuid"

	"github.com/fkhayef/mixi/internal/expense"
	"github.com/fkhayef/mixi/internal/group"
)

// ExpenseSource loads the expenses balances are computed from
type ExpenseSource interface {
	ListAllByGroupID(ctx context.Context, groupID uuid.UUID) ([]*expense.Expense, error)
	GetExpenseByID(ctx context.Context, id, callerID uuid.UUID) (*expense.Expense, error)
}

// GroupDirectory answers membership questions about groups
type GroupDirectory interface {
	GetByID(ctx context.Context, id uuid.UUID) (*group.Group, error)
	GetMembers(ctx context.Context, groupID uuid.UUID) ([]*group.GroupMember, error)
	RequireMember(ctx context.Context, groupID, userID uuid.UUID) (*group.GroupMember, error)
}

// MemberSummary is one row of a group summary
type MemberSummary struct {
	Member
	Balance       float64 `json:"balance"`
	TotalSpending float64 `json:"total_spending"`
}

// GroupSummary is the balance sheet of a whole group
type GroupSummary struct {
	GroupID          uuid.UUID        `json:"group_id"`
	CurrencyCode     string           `json:"currency_code"`
	TotalSharedSpend float64          `json:"total_shared_spend"`
	Members          []*MemberSummary `json:"members"`
}

// UserSummary is a single member's figures in a group
type UserSummary struct {
	GroupID          uuid.UUID `json:"group_id"`
	UserID           uuid.UUID `json:"user_id"`
	CurrencyCode     string    `json:"currency_code"`
	TotalSpending    float64   `json:"total_spending"`
	RemainingBalance float64   `json:"remaining_balance"`
}

// Service serves balance figures to group members
type Service struct {
	expenses ExpenseSource
	groups   GroupDirectory
}

// NewService creates a new balance service
func NewService(expenses ExpenseSource, groups GroupDirectory) *Service {
	return &Service{expenses: expenses, groups: groups}
}

// GroupSummary computes the balance and spending of every member
func (s *Service) GroupSummary(ctx context.Context, groupID, callerID uuid.UUID) (*GroupSummary, error) {
	g, members, expenses, err := s.load(ctx, groupID, callerID)
	if err != nil {
		return nil, err
	}

	balances := NetBalances(expenses, members)
	summary := &GroupSummary{
		GroupID:          g.ID,
		CurrencyCode:     g.CurrencyCode,
		TotalSharedSpend: TotalSharedSpend(expenses),
		Members:          make([]*MemberSummary, len(balances)),
	}
	for i, b := range balances {
		summary.Members[i] = &MemberSummary{
			Member:        b.Member,
			Balance:       b.Balance,
			TotalSpending: UserTotalSpending(expenses, b.UserID),
		}
	}
	return summary, nil
}

// UserSummary computes one member's spending and remaining balance
func (s *Service) UserSummary(ctx context.Context, groupID, userID, callerID uuid.UUID) (*UserSummary, error) {
	g, members, expenses, err := s.load(ctx, groupID, callerID)
	if err != nil {
		return nil, err
	}

	found := false
	for _, m := range members {
		if m.UserID == userID {
			found = true
			break
		}
	}
	if !found {
		return nil, group.ErrMemberNotFound
	}

	return &UserSummary{
		GroupID:          g.ID,
		UserID:           userID,
		CurrencyCode:     g.CurrencyCode,
		TotalSpending:    UserTotalSpending(expenses, userID),
		RemainingBalance: UserRemainingBalance(expenses, userID),
	}, nil
}

// ExpenseBreakdown describes one expense from the caller's point of view
func (s *Service) ExpenseBreakdown(ctx context.Context, expenseID, callerID uuid.UUID) (*ExpenseBreakdown, error) {
	e, err := s.expenses.GetExpenseByID(ctx, expenseID, callerID)
	if err != nil {
		return nil, err
	}
	b := Breakdown(e, callerID)
	return &b, nil
}

func (s *Service) load(ctx context.Context, groupID, callerID uuid.UUID) (*group.Group, []Member, []*expense.Expense, error) {
	if _, err := s.groups.RequireMember(ctx, groupID, callerID); err != nil {
		return nil, nil, nil, err
	}

	g, err := s.groups.GetByID(ctx, groupID)
	if err != nil {
		return nil, nil, nil, err
	}

	groupMembers, err := s.groups.GetMembers(ctx, groupID)
	if err != nil {
		return nil, nil, nil, err
	}

	expenses, err := s.expenses.ListAllByGroupID(ctx, groupID)
	if err != nil {
		return nil, nil, nil, err
	}

	return g, MembersFromGroup(groupMembers), expenses, nil
}
