package split

import "github.com/fkhayef/mixi/pkg/money"

// =============================================================================
// SHARES SPLIT STRATEGY
// Divides the expense proportionally to each participant's share weight
// =============================================================================

// SharesStrategy implements the Strategy interface for share-weighted splits
type SharesStrategy struct{}

// Type returns the split type identifier
func (s *SharesStrategy) Type() SplitType {
	return SplitTypeShares
}

// Validate checks if the inputs are valid for a share-weighted split
func (s *SharesStrategy) Validate(totalAmount float64, participants []SplitInput) error {
	if totalAmount < 0 {
		return ErrNegativeAmount
	}
	if err := checkParticipants(inputIDs(participants)); err != nil {
		return err
	}

	var totalShares float64
	for _, p := range participants {
		if p.Share == nil {
			return ErrMissingShare
		}
		if *p.Share < 0 {
			return ErrNegativeShare
		}
		totalShares += *p.Share
	}
	if totalShares <= 0 {
		return ErrZeroShares
	}
	return nil
}

// Calculate divides the total amount by share weight
func (s *SharesStrategy) Calculate(totalAmount float64, participants []SplitInput) ([]SplitOutput, error) {
	if err := s.Validate(totalAmount, participants); err != nil {
		return nil, err
	}

	weighted := make([]Weighted, len(participants))
	for i, p := range participants {
		weighted[i] = Weighted{UserID: p.UserID, Value: *p.Share}
	}
	return Shares(totalAmount, weighted)
}

// Shares computes amount*share/sum(shares) for every participant.
func Shares(amount float64, shares []Weighted) ([]SplitOutput, error) {
	if amount < 0 {
		return nil, ErrNegativeAmount
	}
	if err := checkParticipants(weightedIDs(shares)); err != nil {
		return nil, err
	}

	weights := make([]float64, len(shares))
	var total float64
	for i, s := range shares {
		if s.Value < 0 {
			return nil, ErrNegativeShare
		}
		weights[i] = s.Value
		total += s.Value
	}
	if total <= 0 {
		return nil, ErrZeroShares
	}

	cents := allocateCents(money.ToCents(amount), weights, total)
	outputs := make([]SplitOutput, len(shares))
	for i, s := range shares {
		outputs[i] = SplitOutput{
			UserID:      s.UserID,
			Share:       s.Value,
			ExactAmount: money.FromCents(cents[i]),
		}
	}
	return outputs, nil
}
