package split

import (
	"sort"

	"github.com/google/uuid"

	"github.com/fkhayef/mixi/pkg/money"
)

// =============================================================================
// EQUAL SPLIT STRATEGY
// Divides the expense equally among all participants, payer included
// =============================================================================

// EqualStrategy implements the Strategy interface for equal splits
type EqualStrategy struct{}

// Type returns the split type identifier
func (s *EqualStrategy) Type() SplitType {
	return SplitTypeEqual
}

// Validate checks if the inputs are valid for an equal split
func (s *EqualStrategy) Validate(totalAmount float64, participants []SplitInput) error {
	if totalAmount < 0 {
		return ErrNegativeAmount
	}
	return checkParticipants(inputIDs(participants))
}

// Calculate divides the total amount evenly among all participants
func (s *EqualStrategy) Calculate(totalAmount float64, participants []SplitInput) ([]SplitOutput, error) {
	if err := s.Validate(totalAmount, participants); err != nil {
		return nil, err
	}
	return Equal(totalAmount, inputIDs(participants))
}

// Equal gives every participant amount/n with share 1 and percent 100/n.
// Leftover cents go one each to the lowest user ids, so the parts always sum
// to the amount rounded to cents.
func Equal(amount float64, userIDs []uuid.UUID) ([]SplitOutput, error) {
	if amount < 0 {
		return nil, ErrNegativeAmount
	}
	if err := checkParticipants(userIDs); err != nil {
		return nil, err
	}

	n := int64(len(userIDs))
	totalCents := money.ToCents(amount)
	base := totalCents / n
	leftover := totalCents % n

	byID := make([]int, len(userIDs))
	for i := range byID {
		byID[i] = i
	}
	sort.Slice(byID, func(a, b int) bool {
		return userIDs[byID[a]].String() < userIDs[byID[b]].String()
	})

	cents := make([]int64, len(userIDs))
	for i := range cents {
		cents[i] = base
	}
	for i := int64(0); i < leftover; i++ {
		cents[byID[i]]++
	}

	percent := 100 / float64(n)
	outputs := make([]SplitOutput, len(userIDs))
	for i, id := range userIDs {
		outputs[i] = SplitOutput{
			UserID:      id,
			Share:       1,
			Percent:     percent,
			ExactAmount: money.FromCents(cents[i]),
		}
	}
	return outputs, nil
}
