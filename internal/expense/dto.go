package expense

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/fkhayef/mixi/internal/expense/split"
)

var (
	ErrMissingGroupID     = errors.New("group_id is required")
	ErrInvalidDescription = errors.New("description must be between 1 and 255 characters")
	ErrInvalidAmount      = errors.New("amount must be greater than zero")
	ErrInvalidType        = errors.New("type must be SHARED or PERSONAL")
	ErrInvalidCurrency    = errors.New("currency code must be 3 letters")
)

// CreateExpenseRequest represents the request to create an expense.
// An EXACT split may leave amount at zero to use the sum of the parts.
type CreateExpenseRequest struct {
	GroupID      uuid.UUID          `json:"group_id"`
	Description  string             `json:"description" example:"Dinner at Najd Village"`
	Amount       float64            `json:"amount" example:"90"`
	CurrencyCode string             `json:"currency_code,omitempty" example:"SAR"`
	Type         ExpenseType        `json:"type,omitempty" example:"SHARED"`
	SplitType    split.SplitType    `json:"split_type,omitempty" example:"EQUAL"`
	Participants []split.SplitInput `json:"participants,omitempty"`
}

// Validate normalizes the request and checks the fields that do not depend
// on the split policy
func (r *CreateExpenseRequest) Validate() error {
	if r.GroupID == uuid.Nil {
		return ErrMissingGroupID
	}

	r.Description = strings.TrimSpace(r.Description)
	if n := len([]rune(r.Description)); n < 1 || n > 255 {
		return ErrInvalidDescription
	}

	if r.Type == "" {
		r.Type = ExpenseTypeShared
	}
	if r.Type != ExpenseTypeShared && r.Type != ExpenseTypePersonal {
		return ErrInvalidType
	}

	if r.SplitType == "" {
		r.SplitType = split.SplitTypeEqual
	}

	r.CurrencyCode = strings.ToUpper(strings.TrimSpace(r.CurrencyCode))
	if r.CurrencyCode != "" && len(r.CurrencyCode) != 3 {
		return ErrInvalidCurrency
	}

	if r.Amount < 0 {
		return ErrInvalidAmount
	}
	if r.Amount == 0 && (r.Type == ExpenseTypePersonal || r.SplitType != split.SplitTypeExact) {
		return ErrInvalidAmount
	}
	return nil
}

// ExpenseResponse represents the response for an expense
type ExpenseResponse struct {
	ID              uuid.UUID        `json:"id"`
	GroupID         uuid.UUID        `json:"group_id"`
	CreatorID       uuid.UUID        `json:"creator_id"`
	CreatorUsername string           `json:"creator_username,omitempty"`
	Description     string           `json:"description"`
	Amount          float64          `json:"amount"`
	CurrencyCode    string           `json:"currency_code"`
	Type            ExpenseType      `json:"type"`
	SplitType       split.SplitType  `json:"split_type"`
	Settled         bool             `json:"settled"`
	CreatedAt       string           `json:"created_at"`
	Splits          []*SplitResponse `json:"splits,omitempty"`
}

// SplitResponse represents the response for a split
type SplitResponse struct {
	UserID      uuid.UUID `json:"user_id"`
	Username    string    `json:"username,omitempty"`
	Share       float64   `json:"share"`
	Percent     float64   `json:"percent"`
	ExactAmount float64   `json:"exact_amount"`
	Paid        bool      `json:"paid"`
	PaidAt      *string   `json:"paid_at,omitempty"`
}

// ToResponse converts an Expense model to an ExpenseResponse DTO
func (e *Expense) ToResponse() *ExpenseResponse {
	resp := &ExpenseResponse{
		ID:              e.ID,
		GroupID:         e.GroupID,
		CreatorID:       e.CreatorID,
		CreatorUsername: e.CreatorUsername,
		Description:     e.Description,
		Amount:          e.Amount,
		CurrencyCode:    e.CurrencyCode,
		Type:            e.Type,
		SplitType:       e.SplitType,
		Settled:         e.Settled,
		CreatedAt:       e.CreatedAt.UTC().Format(time.RFC3339),
	}
	if len(e.Splits) > 0 {
		resp.Splits = make([]*SplitResponse, len(e.Splits))
		for i, s := range e.Splits {
			resp.Splits[i] = s.ToResponse()
		}
	}
	return resp
}

// ToResponse converts a Split model to a SplitResponse DTO
func (s *Split) ToResponse() *SplitResponse {
	resp := &SplitResponse{
		UserID:      s.UserID,
		Username:    s.Username,
		Share:       s.Share,
		Percent:     s.Percent,
		ExactAmount: s.ExactAmount,
		Paid:        s.Paid,
	}
	if s.PaidAt != nil {
		paidAt := s.PaidAt.UTC().Format(time.RFC3339)
		resp.PaidAt = &paidAt
	}
	return resp
}
