package expense

import (
	"time"

	"github.com/google/uuid"

	"github.com/fkhayef/mixi/internal/expense/split"
)

// ExpenseType tells shared costs apart from a member's own spending
type ExpenseType string

const (
	ExpenseTypeShared   ExpenseType = "SHARED"
	ExpenseTypePersonal ExpenseType = "PERSONAL"
)

// Expense represents an expense in the system. The creator is the payer.
type Expense struct {
	ID           uuid.UUID       `json:"id"`
	GroupID      uuid.UUID       `json:"group_id"`
	CreatorID    uuid.UUID       `json:"creator_id"`
	Description  string          `json:"description"`
	Amount       float64         `json:"amount"`
	CurrencyCode string          `json:"currency_code"`
	Type         ExpenseType     `json:"type"`
	SplitType    split.SplitType `json:"split_type"`
	Settled      bool            `json:"settled"`
	CreatedAt    time.Time       `json:"created_at"`

	// Ordered as entered
	Splits []*Split `json:"splits"`

	// Populated via JOIN
	CreatorUsername string `json:"creator_username,omitempty"`
}

// Split is one participant's stake in an expense
type Split struct {
	ExpenseID   uuid.UUID  `json:"expense_id"`
	UserID      uuid.UUID  `json:"user_id"`
	Share       float64    `json:"share"`
	Percent     float64    `json:"percent"`
	ExactAmount float64    `json:"exact_amount"`
	Paid        bool       `json:"paid"`
	PaidAt      *time.Time `json:"paid_at,omitempty"`

	// Populated via JOIN
	Username string `json:"username,omitempty"`
}

// SplitRef identifies a single split row
type SplitRef struct {
	ExpenseID uuid.UUID
	UserID    uuid.UUID
}

// IsShared reports whether the expense takes part in balances
func (e *Expense) IsShared() bool {
	return e.Type == ExpenseTypeShared
}

// SplitFor returns the user's split or nil
func (e *Expense) SplitFor(userID uuid.UUID) *Split {
	for _, s := range e.Splits {
		if s.UserID == userID {
			return s
		}
	}
	return nil
}

// MarkPaid flags the user's split as paid and recomputes Settled. It
// reports whether anything changed.
func (e *Expense) MarkPaid(userID uuid.UUID, at time.Time) bool {
	s := e.SplitFor(userID)
	if s == nil || s.Paid {
		return false
	}
	s.Paid = true
	s.PaidAt = &at
	e.RecomputeSettled()
	return true
}

// RecomputeSettled sets Settled to whether every split is paid
func (e *Expense) RecomputeSettled() {
	settled := true
	for _, s := range e.Splits {
		if !s.Paid {
			settled = false
			break
		}
	}
	e.Settled = settled
}

// UnpaidBorrowerSplits returns the splits other than the payer's that are
// still open
func (e *Expense) UnpaidBorrowerSplits() []*Split {
	var open []*Split
	for _, s := range e.Splits {
		if s.UserID != e.CreatorID && !s.Paid {
			open = append(open, s)
		}
	}
	return open
}

// newSplit turns a calculator output into a split row
func newSplit(expenseID uuid.UUID, out split.SplitOutput) *Split {
	return &Split{
		ExpenseID:   expenseID,
		UserID:      out.UserID,
		Share:       out.Share,
		Percent:     out.Percent,
		ExactAmount: out.ExactAmount,
	}
}
