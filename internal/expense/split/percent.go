package split

import "github.com/fkhayef/mixi/pkg/money"

// =============================================================================
// PERCENT SPLIT STRATEGY
// Divides the expense based on specified percentages for each participant
// =============================================================================

// PercentStrategy implements the Strategy interface for percentage-based splits
type PercentStrategy struct{}

// Type returns the split type identifier
func (s *PercentStrategy) Type() SplitType {
	return SplitTypePercent
}

// Validate checks if the inputs are valid for a percentage split
func (s *PercentStrategy) Validate(totalAmount float64, participants []SplitInput) error {
	if totalAmount < 0 {
		return ErrNegativeAmount
	}
	if err := checkParticipants(inputIDs(participants)); err != nil {
		return err
	}

	// Check that all participants have percentages and they sum to 100
	percents := make([]float64, len(participants))
	for i, p := range participants {
		if p.Percent == nil {
			return ErrMissingPercentage
		}
		if *p.Percent < 0 || *p.Percent > 100 {
			return ErrPercentageOutOfRange
		}
		percents[i] = *p.Percent
	}

	// 99.99 to 100.01 inclusive
	if !money.Equal(money.Sum(percents...), 100) {
		return ErrInvalidPercentages
	}

	return nil
}

// Calculate divides the total amount based on each participant's percentage
func (s *PercentStrategy) Calculate(totalAmount float64, participants []SplitInput) ([]SplitOutput, error) {
	if err := s.Validate(totalAmount, participants); err != nil {
		return nil, err
	}

	weighted := make([]Weighted, len(participants))
	for i, p := range participants {
		weighted[i] = Weighted{UserID: p.UserID, Value: *p.Percent}
	}
	return Percent(totalAmount, weighted)
}

// Percent computes amount*percent/100 for every participant. It does not
// require the percentages to add up to 100; PercentStrategy.Validate does.
func Percent(amount float64, percents []Weighted) ([]SplitOutput, error) {
	if amount < 0 {
		return nil, ErrNegativeAmount
	}
	if err := checkParticipants(weightedIDs(percents)); err != nil {
		return nil, err
	}

	weights := make([]float64, len(percents))
	var total float64
	for i, p := range percents {
		if p.Value < 0 || p.Value > 100 {
			return nil, ErrPercentageOutOfRange
		}
		weights[i] = p.Value
		total += p.Value
	}
	if total <= 0 {
		return nil, ErrZeroPercentages
	}

	cents := allocateCents(money.ToCents(amount), weights, 100)
	outputs := make([]SplitOutput, len(percents))
	for i, p := range percents {
		outputs[i] = SplitOutput{
			UserID:      p.UserID,
			Percent:     p.Value,
			ExactAmount: money.FromCents(cents[i]),
		}
	}
	return outputs, nil
}
