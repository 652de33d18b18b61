package settlement

import (
	"time"

	"github.com/google/uuid"
)

// BatchKind tells pairwise settle-ups apart from whole-group ones
type BatchKind string

const (
	BatchKindPair BatchKind = "PAIR"
	BatchKindAll  BatchKind = "ALL"
)

// Batch is one applied settle-up request. Its key makes retries safe:
// a request carrying a known key gets the stored batch back.
type Batch struct {
	ID             uuid.UUID     `json:"id"`
	GroupID        uuid.UUID     `json:"group_id"`
	Kind           BatchKind     `json:"kind"`
	IdempotencyKey string        `json:"idempotency_key"`
	CreatedBy      uuid.UUID     `json:"created_by"`
	CounterpartyID *uuid.UUID    `json:"counterparty_id,omitempty"` // PAIR only
	CreatedAt      time.Time     `json:"created_at"`
	Settlements    []*Settlement `json:"settlements"`
}

// Settlement is a recorded payment between two members
type Settlement struct {
	ID           uuid.UUID `json:"id"`
	BatchID      uuid.UUID `json:"batch_id"`
	GroupID      uuid.UUID `json:"group_id"`
	PayerID      uuid.UUID `json:"payer_id"`
	ReceiverID   uuid.UUID `json:"receiver_id"`
	Amount       float64   `json:"amount"`
	CurrencyCode string    `json:"currency_code"`
	CreatedAt    time.Time `json:"created_at"`

	// Populated via JOIN
	PayerUsername    string `json:"payer_username,omitempty"`
	ReceiverUsername string `json:"receiver_username,omitempty"`
}

// NetBalance is the caller's position with one other member
type NetBalance struct {
	UserID   uuid.UUID `json:"user_id"`
	Username string    `json:"username"`
	Amount   float64   `json:"amount"` // Positive = you owe them, Negative = they owe you
}

func newBatch(groupID, createdBy uuid.UUID, counterparty *uuid.UUID, kind BatchKind, key string, at time.Time) *Batch {
	return &Batch{
		ID:             uuid.New(),
		GroupID:        groupID,
		Kind:           kind,
		IdempotencyKey: key,
		CreatedBy:      createdBy,
		CounterpartyID: counterparty,
		CreatedAt:      at,
	}
}

// sameRequest reports whether the batch was created by the same kind of
// request from the same member with the same counterparty
func (b *Batch) sameRequest(kind BatchKind, createdBy uuid.UUID, counterparty *uuid.UUID) bool {
	if b.Kind != kind || b.CreatedBy != createdBy {
		return false
	}
	if b.CounterpartyID == nil || counterparty == nil {
		return b.CounterpartyID == nil && counterparty == nil
	}
	return *b.CounterpartyID == *counterparty
}

// addPayment records a payment in the batch
func (b *Batch) addPayment(debt SimplifiedDebt, currency string) {
	b.Settlements = append(b.Settlements, &Settlement{
		ID:               uuid.New(),
		BatchID:          b.ID,
		GroupID:          b.GroupID,
		PayerID:          debt.From,
		ReceiverID:       debt.To,
		Amount:           debt.Amount,
		CurrencyCode:     currency,
		CreatedAt:        b.CreatedAt,
		PayerUsername:    debt.FromName,
		ReceiverUsername: debt.ToName,
	})
}
