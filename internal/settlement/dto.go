package settlement

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrMissingIdempotencyKey = errors.New("idempotency_key is required")
	ErrInvalidIdempotencyKey = errors.New("idempotency_key must be at most 100 characters")
	ErrMissingOtherUser      = errors.New("other_user_id is required")
)

// SettlePairRequest settles the caller with one other member. Direction
// and amount come from the open splits between them.
type SettlePairRequest struct {
	OtherUserID    uuid.UUID `json:"other_user_id"`
	IdempotencyKey string    `json:"idempotency_key" example:"3f1c2a9e-settle-omar"`
}

// Validate checks the request
func (r *SettlePairRequest) Validate() error {
	if r.OtherUserID == uuid.Nil {
		return ErrMissingOtherUser
	}
	return validateKey(&r.IdempotencyKey)
}

// SettleAllRequest settles every open debt in the group
type SettleAllRequest struct {
	IdempotencyKey string `json:"idempotency_key" example:"3f1c2a9e-settle-all"`
}

// Validate checks the request
func (r *SettleAllRequest) Validate() error {
	return validateKey(&r.IdempotencyKey)
}

func validateKey(key *string) error {
	*key = strings.TrimSpace(*key)
	if *key == "" {
		return ErrMissingIdempotencyKey
	}
	if len(*key) > 100 {
		return ErrInvalidIdempotencyKey
	}
	return nil
}

// BatchResponse represents the response for a settlement batch
type BatchResponse struct {
	ID             uuid.UUID             `json:"id"`
	GroupID        uuid.UUID             `json:"group_id"`
	Kind           BatchKind             `json:"kind"`
	IdempotencyKey string                `json:"idempotency_key"`
	CreatedBy      uuid.UUID             `json:"created_by"`
	CounterpartyID *uuid.UUID            `json:"counterparty_id,omitempty"`
	CreatedAt      string                `json:"created_at"`
	Replayed       bool                  `json:"replayed"`
	Settlements    []*SettlementResponse `json:"settlements"`
}

// SettlementResponse represents the response for a settlement
type SettlementResponse struct {
	ID               uuid.UUID `json:"id"`
	PayerID          uuid.UUID `json:"payer_id"`
	PayerUsername    string    `json:"payer_username,omitempty"`
	ReceiverID       uuid.UUID `json:"receiver_id"`
	ReceiverUsername string    `json:"receiver_username,omitempty"`
	Amount           float64   `json:"amount"`
	CurrencyCode     string    `json:"currency_code"`
	CreatedAt        string    `json:"created_at"`
}

// NetBalanceResponse represents the net balance with another user
type NetBalanceResponse struct {
	UserID   uuid.UUID `json:"user_id"`
	Username string    `json:"username"`
	Amount   float64   `json:"amount"`
	Message  string    `json:"message"` // e.g., "You owe Omar 50.00 SAR" or "Omar owes you 30.00 SAR"
}

// ToResponse converts a Batch model to a BatchResponse DTO
func (b *Batch) ToResponse(replayed bool) *BatchResponse {
	resp := &BatchResponse{
		ID:             b.ID,
		GroupID:        b.GroupID,
		Kind:           b.Kind,
		IdempotencyKey: b.IdempotencyKey,
		CreatedBy:      b.CreatedBy,
		CounterpartyID: b.CounterpartyID,
		CreatedAt:      b.CreatedAt.UTC().Format(time.RFC3339),
		Replayed:       replayed,
		Settlements:    make([]*SettlementResponse, len(b.Settlements)),
	}
	for i, s := range b.Settlements {
		resp.Settlements[i] = s.ToResponse()
	}
	return resp
}

// ToResponse converts a Settlement model to a SettlementResponse DTO
func (s *Settlement) ToResponse() *SettlementResponse {
	return &SettlementResponse{
		ID:               s.ID,
		PayerID:          s.PayerID,
		PayerUsername:    s.PayerUsername,
		ReceiverID:       s.ReceiverID,
		ReceiverUsername: s.ReceiverUsername,
		Amount:           s.Amount,
		CurrencyCode:     s.CurrencyCode,
		CreatedAt:        s.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// ToResponse converts a NetBalance to a NetBalanceResponse with a readable message
func (n *NetBalance) ToResponse(currency string) *NetBalanceResponse {
	var message string
	if n.Amount > 0 {
		message = fmt.Sprintf("You owe %s %.2f %s", n.Username, n.Amount, currency)
	} else {
		message = fmt.Sprintf("%s owes you %.2f %s", n.Username, -n.Amount, currency)
	}
	return &NetBalanceResponse{
		UserID:   n.UserID,
		Username: n.Username,
		Amount:   n.Amount,
		Message:  message,
	}
}
