package split

import "github.com/fkhayef/mixi/pkg/money"

// =============================================================================
// EXACT SPLIT STRATEGY
// Each participant owes a specific exact amount; the total is their sum
// =============================================================================

// ExactStrategy implements the Strategy interface for exact amount splits
type ExactStrategy struct{}

// Type returns the split type identifier
func (s *ExactStrategy) Type() SplitType {
	return SplitTypeExact
}

// Validate checks if the inputs are valid for an exact split. A zero
// totalAmount means the total is inferred from the amounts.
func (s *ExactStrategy) Validate(totalAmount float64, participants []SplitInput) error {
	if totalAmount < 0 {
		return ErrNegativeAmount
	}
	if err := checkParticipants(inputIDs(participants)); err != nil {
		return err
	}

	amounts := make([]float64, len(participants))
	for i, p := range participants {
		if p.Amount == nil {
			return ErrMissingExactAmount
		}
		if *p.Amount < 0 {
			return ErrNegativeAmount
		}
		amounts[i] = *p.Amount
	}

	if totalAmount > 0 && !money.Equal(money.Sum(amounts...), totalAmount) {
		return ErrInvalidExactAmounts
	}

	return nil
}

// Calculate returns the exact amounts specified for each participant
func (s *ExactStrategy) Calculate(totalAmount float64, participants []SplitInput) ([]SplitOutput, error) {
	if err := s.Validate(totalAmount, participants); err != nil {
		return nil, err
	}

	amounts := make([]Weighted, len(participants))
	for i, p := range participants {
		amounts[i] = Weighted{UserID: p.UserID, Value: *p.Amount}
	}
	return Exact(amounts)
}

// Exact takes every amount literally, rounded to cents.
func Exact(amounts []Weighted) ([]SplitOutput, error) {
	if err := checkParticipants(weightedIDs(amounts)); err != nil {
		return nil, err
	}

	outputs := make([]SplitOutput, len(amounts))
	for i, a := range amounts {
		if a.Value < 0 {
			return nil, ErrNegativeAmount
		}
		outputs[i] = SplitOutput{
			UserID:      a.UserID,
			ExactAmount: money.Round2(a.Value),
		}
	}
	return outputs, nil
}

// Total returns the sum of the exact amounts in outputs.
func Total(outputs []SplitOutput) float64 {
	values := make([]float64, len(outputs))
	for i, o := range outputs {
		values[i] = o.ExactAmount
	}
	return money.Sum(values...)
}
