package settlement

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/fkhayef/mixi/internal/balance"
	"github.com/fkhayef/mixi/internal/expense"
	"github.com/fkhayef/mixi/internal/group"
	"github.com/fkhayef/mixi/internal/metrics"
	"github.com/fkhayef/mixi/pkg/money"
)

// Common errors
var (
	ErrCannotSettleSelf = errors.New("cannot create settlement with yourself")
	ErrNothingToSettle  = errors.New("already settled up - no pending debts")
	ErrOtherNotMember   = errors.New("the other user is not a member of this group")
	ErrKeyReused        = errors.New("idempotency key was already used for a different settlement")
)

// Store is the persistence the settlement service needs
type Store interface {
	ApplyBatch(ctx context.Context, groupID uuid.UUID, key string, plan Plan) (*Batch, bool, error)
	ListBatches(ctx context.Context, groupID uuid.UUID, limit, offset int) ([]*Batch, int, error)
}

// ExpenseSource loads a group's expense history
type ExpenseSource interface {
	ListAllByGroupID(ctx context.Context, groupID uuid.UUID) ([]*expense.Expense, error)
}

// GroupDirectory answers membership questions about groups
type GroupDirectory interface {
	GetByID(ctx context.Context, id uuid.UUID) (*group.Group, error)
	GetMembers(ctx context.Context, groupID uuid.UUID) ([]*group.GroupMember, error)
	RequireMember(ctx context.Context, groupID, userID uuid.UUID) (*group.GroupMember, error)
}

// Notifier tells members about payments recorded on their behalf
type Notifier interface {
	NotifySettlement(ctx context.Context, recipientID uuid.UUID, actorName string, amount float64, currency string, batchID uuid.UUID)
}

// Service handles settlement business logic
type Service struct {
	repo     Store
	expenses ExpenseSource
	groups   GroupDirectory
	notifier Notifier
	metrics  *metrics.Metrics
	now      func() time.Time
}

// NewService creates a new settlement service
func NewService(repo Store, expenses ExpenseSource, groups GroupDirectory, notifier Notifier, m *metrics.Metrics) *Service {
	return &Service{
		repo:     repo,
		expenses: expenses,
		groups:   groups,
		notifier: notifier,
		metrics:  m,
		now:      time.Now,
	}
}

// groupView is what every read needs: the group, its members and its history
type groupView struct {
	group    *group.Group
	caller   *group.GroupMember
	members  []balance.Member
	expenses []*expense.Expense
}

func (s *Service) view(ctx context.Context, groupID, callerID uuid.UUID, withExpenses bool) (*groupView, error) {
	caller, err := s.groups.RequireMember(ctx, groupID, callerID)
	if err != nil {
		return nil, err
	}

	g, err := s.groups.GetByID(ctx, groupID)
	if err != nil {
		return nil, err
	}

	members, err := s.groups.GetMembers(ctx, groupID)
	if err != nil {
		return nil, err
	}

	v := &groupView{group: g, caller: caller, members: balance.MembersFromGroup(members)}
	if withExpenses {
		if v.expenses, err = s.expenses.ListAllByGroupID(ctx, groupID); err != nil {
			return nil, err
		}
	}
	return v, nil
}

// SimplifiedDebts suggests the payments that clear the group
func (s *Service) SimplifiedDebts(ctx context.Context, groupID, callerID uuid.UUID) ([]SimplifiedDebt, error) {
	v, err := s.view(ctx, groupID, callerID, true)
	if err != nil {
		return nil, err
	}
	return SimplifyDebts(v.expenses, v.members), nil
}

// NetDebts lists the net open debt of every pair of members
func (s *Service) NetDebts(ctx context.Context, groupID, callerID uuid.UUID) ([]SimplifiedDebt, error) {
	v, err := s.view(ctx, groupID, callerID, true)
	if err != nil {
		return nil, err
	}
	return NetDebts(v.expenses, v.members), nil
}

// MyNetBalances returns the caller's non-zero position with every other member
func (s *Service) MyNetBalances(ctx context.Context, groupID, callerID uuid.UUID) ([]*NetBalance, string, error) {
	v, err := s.view(ctx, groupID, callerID, true)
	if err != nil {
		return nil, "", err
	}

	balances := []*NetBalance{}
	for _, m := range v.members {
		if m.UserID == callerID {
			continue
		}
		net := NetBetween(v.expenses, callerID, m.UserID)
		if money.IsZero(net) {
			continue
		}
		balances = append(balances, &NetBalance{UserID: m.UserID, Username: m.UserName, Amount: net})
	}
	return balances, v.group.CurrencyCode, nil
}

// SettleWith marks every open split between the caller and another member
// paid and records the net payment, if any
func (s *Service) SettleWith(ctx context.Context, groupID, callerID uuid.UUID, req *SettlePairRequest) (*Batch, bool, error) {
	if err := req.Validate(); err != nil {
		return nil, false, err
	}
	if req.OtherUserID == callerID {
		return nil, false, ErrCannotSettleSelf
	}

	v, err := s.view(ctx, groupID, callerID, false)
	if err != nil {
		return nil, false, err
	}

	var other *balance.Member
	for i := range v.members {
		if v.members[i].UserID == req.OtherUserID {
			other = &v.members[i]
		}
	}
	if other == nil {
		return nil, false, ErrOtherNotMember
	}
	self := balance.Member{UserID: callerID, UserName: v.caller.Username}

	plan := func(expenses []*expense.Expense) (*Batch, []expense.SplitRef, error) {
		net := NetBetween(expenses, callerID, other.UserID)
		at := s.now()

		refs := SettlePair(expenses, callerID, other.UserID, at)
		if len(refs) == 0 {
			return nil, nil, ErrNothingToSettle
		}

		batch := newBatch(groupID, callerID, &other.UserID, BatchKindPair, req.IdempotencyKey, at)
		switch {
		case money.IsZero(net):
			// Debts cancel out to within a cent; only the splits change.
		case net > 0:
			batch.addPayment(SimplifiedDebt{From: self.UserID, FromName: self.UserName, To: other.UserID, ToName: other.UserName, Amount: net}, v.group.CurrencyCode)
		default:
			batch.addPayment(SimplifiedDebt{From: other.UserID, FromName: other.UserName, To: self.UserID, ToName: self.UserName, Amount: -net}, v.group.CurrencyCode)
		}
		return batch, refs, nil
	}

	return s.apply(ctx, v, req.IdempotencyKey, BatchKindPair, &other.UserID, plan)
}

// SettleAll records every simplified payment of the group and marks every
// open split paid
func (s *Service) SettleAll(ctx context.Context, groupID, callerID uuid.UUID, req *SettleAllRequest) (*Batch, bool, error) {
	if err := req.Validate(); err != nil {
		return nil, false, err
	}

	v, err := s.view(ctx, groupID, callerID, false)
	if err != nil {
		return nil, false, err
	}

	plan := func(expenses []*expense.Expense) (*Batch, []expense.SplitRef, error) {
		debts := SimplifyDebts(expenses, v.members)
		at := s.now()

		refs := SettleAll(expenses, at)
		if len(refs) == 0 {
			return nil, nil, ErrNothingToSettle
		}

		batch := newBatch(groupID, callerID, nil, BatchKindAll, req.IdempotencyKey, at)
		for _, d := range debts {
			batch.addPayment(d, v.group.CurrencyCode)
		}
		return batch, refs, nil
	}

	return s.apply(ctx, v, req.IdempotencyKey, BatchKindAll, nil, plan)
}

// apply runs plan under key. A replayed key only counts when it was stored
// for the same request; otherwise the caller gets ErrKeyReused.
func (s *Service) apply(ctx context.Context, v *groupView, key string, kind BatchKind, counterparty *uuid.UUID, plan Plan) (*Batch, bool, error) {
	batch, replayed, err := s.repo.ApplyBatch(ctx, v.group.ID, key, plan)
	if err != nil {
		return nil, false, err
	}

	if replayed {
		if !batch.sameRequest(kind, v.caller.UserID, counterparty) {
			return nil, false, ErrKeyReused
		}
		s.metrics.SettlementReplayed()
		return batch, true, nil
	}

	s.metrics.SettlementApplied(string(batch.Kind), len(batch.Settlements))

	if s.notifier != nil {
		for _, st := range batch.Settlements {
			for _, recipient := range []uuid.UUID{st.PayerID, st.ReceiverID} {
				if recipient != v.caller.UserID {
					s.notifier.NotifySettlement(ctx, recipient, v.caller.Username, st.Amount, st.CurrencyCode, batch.ID)
				}
			}
		}
	}

	return batch, false, nil
}

// History lists the group's settlement batches, newest first
func (s *Service) History(ctx context.Context, groupID, callerID uuid.UUID, page, perPage int) ([]*Batch, int, error) {
	if _, err := s.groups.RequireMember(ctx, groupID, callerID); err != nil {
		return nil, 0, err
	}

	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 100 {
		perPage = 20
	}

	offset := (page - 1) * perPage
	return s.repo.ListBatches(ctx, groupID, perPage, offset)
}
