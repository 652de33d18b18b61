package split

import (
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SplitType defines the type of split strategy
type SplitType string

const (
	SplitTypeEqual   SplitType = "EQUAL"
	SplitTypeShares  SplitType = "SHARES"
	SplitTypePercent SplitType = "PERCENT"
	SplitTypeExact   SplitType = "EXACT"
)

// SplitInput represents a participant in a split with optional values
type SplitInput struct {
	UserID  uuid.UUID `json:"user_id"`
	Share   *float64  `json:"share,omitempty"`   // For SHARES split
	Percent *float64  `json:"percent,omitempty"` // For PERCENT split
	Amount  *float64  `json:"amount,omitempty"`  // For EXACT split
}

// SplitOutput represents the calculated split for a single participant
type SplitOutput struct {
	UserID      uuid.UUID `json:"user_id"`
	Share       float64   `json:"share"`
	Percent     float64   `json:"percent"`
	ExactAmount float64   `json:"exact_amount"`
}

// Weighted pairs a participant with the number a policy needs: a share
// weight, a percentage or an exact amount.
type Weighted struct {
	UserID uuid.UUID
	Value  float64
}

// Strategy is the interface that all split strategies must implement
type Strategy interface {
	// Calculate computes the split amounts for all participants
	Calculate(totalAmount float64, participants []SplitInput) ([]SplitOutput, error)

	// Type returns the type identifier for this strategy
	Type() SplitType

	// Validate checks if the inputs are valid for this strategy
	Validate(totalAmount float64, participants []SplitInput) error
}

// Factory creates split strategies based on the requested type
type Factory struct{}

// NewSplitStrategyFactory creates a new factory instance
func NewSplitStrategyFactory() *Factory {
	return &Factory{}
}

// Create returns the appropriate strategy implementation based on the type
func (f *Factory) Create(splitType SplitType) (Strategy, error) {
	switch splitType {
	case SplitTypeEqual:
		return &EqualStrategy{}, nil
	case SplitTypeShares:
		return &SharesStrategy{}, nil
	case SplitTypePercent:
		return &PercentStrategy{}, nil
	case SplitTypeExact:
		return &ExactStrategy{}, nil
	default:
		return nil, fmt.Errorf("%w: unknown split type %q", ErrInvalidSplitInput, splitType)
	}
}

// CreateFromString creates a strategy from a string type (useful for API requests)
func (f *Factory) CreateFromString(splitType string) (Strategy, error) {
	return f.Create(SplitType(splitType))
}

// ErrInvalidSplitInput is wrapped by every validation failure in this package.
var ErrInvalidSplitInput = errors.New("invalid split input")

var (
	ErrNoParticipants       = fmt.Errorf("%w: at least one participant is required", ErrInvalidSplitInput)
	ErrDuplicateParticipant = fmt.Errorf("%w: participant listed more than once", ErrInvalidSplitInput)
	ErrNegativeAmount       = fmt.Errorf("%w: amounts cannot be negative", ErrInvalidSplitInput)
	ErrMissingShare         = fmt.Errorf("%w: share value required for all participants", ErrInvalidSplitInput)
	ErrNegativeShare        = fmt.Errorf("%w: shares cannot be negative", ErrInvalidSplitInput)
	ErrZeroShares           = fmt.Errorf("%w: shares must sum to more than zero", ErrInvalidSplitInput)
	ErrMissingPercentage    = fmt.Errorf("%w: percentage value required for all participants", ErrInvalidSplitInput)
	ErrPercentageOutOfRange = fmt.Errorf("%w: percentage must be between 0 and 100", ErrInvalidSplitInput)
	ErrZeroPercentages      = fmt.Errorf("%w: percentages must sum to more than zero", ErrInvalidSplitInput)
	ErrInvalidPercentages   = fmt.Errorf("%w: percentages must sum to 100", ErrInvalidSplitInput)
	ErrMissingExactAmount   = fmt.Errorf("%w: exact amount required for all participants", ErrInvalidSplitInput)
	ErrInvalidExactAmounts  = fmt.Errorf("%w: exact amounts must sum to total amount", ErrInvalidSplitInput)
)

// checkParticipants rejects empty and duplicated participant lists.
func checkParticipants(ids []uuid.UUID) error {
	if len(ids) == 0 {
		return ErrNoParticipants
	}
	seen := make(map[uuid.UUID]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			return ErrDuplicateParticipant
		}
		seen[id] = struct{}{}
	}
	return nil
}

func weightedIDs(ws []Weighted) []uuid.UUID {
	ids := make([]uuid.UUID, len(ws))
	for i, w := range ws {
		ids[i] = w.UserID
	}
	return ids
}

func inputIDs(inputs []SplitInput) []uuid.UUID {
	ids := make([]uuid.UUID, len(inputs))
	for i, p := range inputs {
		ids[i] = p.UserID
	}
	return ids
}

// allocateCents distributes totalCents*weight/base across the weights using
// the largest remainder method, so the parts always add up to the rounded
// proportional total. Ties go to the earlier participant.
func allocateCents(totalCents int64, weights []float64, base float64) []int64 {
	total := decimal.NewFromInt(totalCents)
	denominator := decimal.NewFromFloat(base)

	parts := make([]int64, len(weights))
	fractions := make([]decimal.Decimal, len(weights))
	exactSum := decimal.Zero
	var floorSum int64

	for i, w := range weights {
		exact := total.Mul(decimal.NewFromFloat(w)).DivRound(denominator, 12)
		floor := exact.Floor()
		parts[i] = floor.IntPart()
		fractions[i] = exact.Sub(floor)
		exactSum = exactSum.Add(exact)
		floorSum += parts[i]
	}

	leftover := exactSum.Round(0).IntPart() - floorSum
	if leftover <= 0 {
		return parts
	}

	order := make([]int, len(weights))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return fractions[order[a]].GreaterThan(fractions[order[b]])
	})
	for i := 0; i < int(leftover) && i < len(order); i++ {
		parts[order[i]]++
	}
	return parts
}
