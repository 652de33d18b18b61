package expense

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/fkhayef/mixi/internal/expense/split"
	"github.com/fkhayef/mixi/internal/group"
	"github.com/fkhayef/mixi/internal/metrics"
)

// Common errors
var (
	ErrExpenseNotFound      = errors.New("expense not found")
	ErrSplitNotFound        = errors.New("split not found")
	ErrAlreadyPaid          = errors.New("split is already paid")
	ErrNotCreator           = errors.New("only the creator can delete an expense")
	ErrNotAuthorized        = errors.New("only the borrower or the payer can mark a split paid")
	ErrCannotDeleteExpense  = errors.New("cannot delete expense with paid splits")
	ErrParticipantNotMember = errors.New("every participant must be a member of the group")
	ErrCurrencyMismatch     = errors.New("expense currency must match the group currency")
)

// Store is the persistence the expense service needs
type Store interface {
	Create(ctx context.Context, e *Expense) error
	GetByID(ctx context.Context, id uuid.UUID) (*Expense, error)
	ListByGroup(ctx context.Context, groupID uuid.UUID, limit, offset int) ([]*Expense, int, error)
	ListAllByGroup(ctx context.Context, groupID uuid.UUID) ([]*Expense, error)
	MarkSplitPaid(ctx context.Context, expenseID, userID uuid.UUID, at time.Time) (*Expense, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// GroupDirectory answers membership questions about groups
type GroupDirectory interface {
	GetByID(ctx context.Context, id uuid.UUID) (*group.Group, error)
	GetMembers(ctx context.Context, groupID uuid.UUID) ([]*group.GroupMember, error)
	RequireMember(ctx context.Context, groupID, userID uuid.UUID) (*group.GroupMember, error)
}

// Notifier tells members about expenses that concern them
type Notifier interface {
	NotifyExpenseAdded(ctx context.Context, recipientID uuid.UUID, payerName, description string, owed float64, currency string, expenseID uuid.UUID)
	NotifySplitPaid(ctx context.Context, recipientID uuid.UUID, borrowerName, description string, amount float64, currency string, expenseID uuid.UUID)
}

// Service handles expense business logic
type Service struct {
	repo         Store
	groups       GroupDirectory
	notifier     Notifier
	metrics      *metrics.Metrics
	splitFactory *split.Factory
	now          func() time.Time
}

// NewService creates a new expense service with dependencies injected
func NewService(repo Store, groups GroupDirectory, notifier Notifier, m *metrics.Metrics, splitFactory *split.Factory) *Service {
	return &Service{
		repo:         repo,
		groups:       groups,
		notifier:     notifier,
		metrics:      m,
		splitFactory: splitFactory,
		now:          time.Now,
	}
}

// CreateExpense creates a new expense paid by creatorID and calculates its
// splits with the requested strategy. The payer's own split starts paid.
func (s *Service) CreateExpense(ctx context.Context, creatorID uuid.UUID, req *CreateExpenseRequest) (*Expense, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	g, err := s.groups.GetByID(ctx, req.GroupID)
	if err != nil {
		return nil, err
	}
	if req.CurrencyCode == "" {
		req.CurrencyCode = g.CurrencyCode
	} else if req.CurrencyCode != g.CurrencyCode {
		return nil, ErrCurrencyMismatch
	}

	members, err := s.groups.GetMembers(ctx, req.GroupID)
	if err != nil {
		return nil, err
	}
	names := make(map[uuid.UUID]string, len(members))
	for _, m := range members {
		names[m.UserID] = m.Username
	}
	if _, ok := names[creatorID]; !ok {
		return nil, group.ErrNotMember
	}

	outputs, total, err := s.calculate(creatorID, req)
	if err != nil {
		return nil, err
	}
	if total <= 0 {
		return nil, ErrInvalidAmount
	}
	for _, out := range outputs {
		if _, ok := names[out.UserID]; !ok {
			return nil, ErrParticipantNotMember
		}
	}

	now := s.now()
	e := &Expense{
		ID:              uuid.New(),
		GroupID:         req.GroupID,
		CreatorID:       creatorID,
		Description:     req.Description,
		Amount:          total,
		CurrencyCode:    req.CurrencyCode,
		Type:            req.Type,
		SplitType:       req.SplitType,
		CreatedAt:       now,
		CreatorUsername: names[creatorID],
	}
	e.Splits = make([]*Split, len(outputs))
	for i, out := range outputs {
		e.Splits[i] = newSplit(e.ID, out)
		e.Splits[i].Username = names[out.UserID]
	}
	e.MarkPaid(creatorID, now)
	e.RecomputeSettled()

	if err := s.repo.Create(ctx, e); err != nil {
		return nil, err
	}

	s.metrics.ExpenseCreated(string(e.Type), string(e.SplitType))

	if s.notifier != nil {
		for _, sp := range e.UnpaidBorrowerSplits() {
			s.notifier.NotifyExpenseAdded(ctx, sp.UserID, e.CreatorUsername, e.Description, sp.ExactAmount, e.CurrencyCode, e.ID)
		}
	}

	return e, nil
}

// calculate runs the split strategy and returns the outputs with the
// expense total. A personal expense is a single split owned by its creator.
func (s *Service) calculate(creatorID uuid.UUID, req *CreateExpenseRequest) ([]split.SplitOutput, float64, error) {
	if req.Type == ExpenseTypePersonal {
		req.SplitType = split.SplitTypeEqual
		outputs, err := split.Equal(req.Amount, []uuid.UUID{creatorID})
		if err != nil {
			return nil, 0, err
		}
		return outputs, split.Total(outputs), nil
	}

	strategy, err := s.splitFactory.Create(req.SplitType)
	if err != nil {
		return nil, 0, err
	}

	outputs, err := strategy.Calculate(req.Amount, req.Participants)
	if err != nil {
		return nil, 0, err
	}
	return outputs, split.Total(outputs), nil
}

// GetExpenseByID retrieves an expense with its splits for a group member
func (s *Service) GetExpenseByID(ctx context.Context, id, callerID uuid.UUID) (*Expense, error) {
	e, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := s.groups.RequireMember(ctx, e.GroupID, callerID); err != nil {
		return nil, err
	}
	return e, nil
}

func (s *Service) get(ctx context.Context, id uuid.UUID) (*Expense, error) {
	e, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if e == nil {
		return nil, ErrExpenseNotFound
	}
	return e, nil
}

// ListExpensesByGroupID retrieves a page of a group's expenses
func (s *Service) ListExpensesByGroupID(ctx context.Context, groupID, callerID uuid.UUID, page, perPage int) ([]*Expense, int, error) {
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
	return s.repo.ListByGroup(ctx, groupID, perPage, offset)
}

// ListAllByGroupID returns the whole expense history of a group
func (s *Service) ListAllByGroupID(ctx context.Context, groupID uuid.UUID) ([]*Expense, error) {
	return s.repo.ListAllByGroup(ctx, groupID)
}

// MarkSplitAsPaid records that userID paid their share of an expense. The
// borrower or the payer may do this.
func (s *Service) MarkSplitAsPaid(ctx context.Context, expenseID, userID, callerID uuid.UUID) (*Expense, error) {
	e, err := s.get(ctx, expenseID)
	if err != nil {
		return nil, err
	}

	sp := e.SplitFor(userID)
	if sp == nil {
		return nil, ErrSplitNotFound
	}
	if callerID != userID && callerID != e.CreatorID {
		return nil, ErrNotAuthorized
	}
	if sp.Paid {
		return nil, ErrAlreadyPaid
	}

	updated, err := s.repo.MarkSplitPaid(ctx, expenseID, userID, s.now())
	if err != nil {
		return nil, err
	}

	if s.notifier != nil && callerID != e.CreatorID {
		s.notifier.NotifySplitPaid(ctx, e.CreatorID, sp.Username, e.Description, sp.ExactAmount, e.CurrencyCode, e.ID)
	}

	return updated, nil
}

// DeleteExpense deletes an expense unless a borrower already paid into it
func (s *Service) DeleteExpense(ctx context.Context, id, callerID uuid.UUID) error {
	e, err := s.get(ctx, id)
	if err != nil {
		return err
	}

	if e.CreatorID != callerID {
		return ErrNotCreator
	}

	for _, sp := range e.Splits {
		if sp.UserID != e.CreatorID && sp.Paid {
			return ErrCannotDeleteExpense
		}
	}

	return s.repo.Delete(ctx, id)
}
