package split

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	alice = uuid.MustParse("00000000-0000-0000-0000-000000000001")
	bob   = uuid.MustParse("00000000-0000-0000-0000-000000000002")
	carol = uuid.MustParse("00000000-0000-0000-0000-000000000003")
)

func ptr(v float64) *float64 { return &v }

func amountsByUser(outputs []SplitOutput) map[uuid.UUID]float64 {
	m := make(map[uuid.UUID]float64, len(outputs))
	for _, o := range outputs {
		m[o.UserID] = o.ExactAmount
	}
	return m
}

func TestEqual(t *testing.T) {
	t.Run("hundred across three", func(t *testing.T) {
		out, err := Equal(100, []uuid.UUID{carol, alice, bob})
		require.NoError(t, err)
		require.Len(t, out, 3)

		got := amountsByUser(out)
		assert.Equal(t, 33.34, got[alice])
		assert.Equal(t, 33.33, got[bob])
		assert.Equal(t, 33.33, got[carol])
		assert.Equal(t, 100.0, Total(out))

		// output keeps input order
		assert.Equal(t, carol, out[0].UserID)
		for _, o := range out {
			assert.Equal(t, 1.0, o.Share)
			assert.InDelta(t, 33.333, o.Percent, 0.001)
		}
	})

	t.Run("leftover cents go to lowest ids", func(t *testing.T) {
		out, err := Equal(0.05, []uuid.UUID{carol, bob, alice})
		require.NoError(t, err)

		got := amountsByUser(out)
		assert.Equal(t, 0.02, got[alice])
		assert.Equal(t, 0.02, got[bob])
		assert.Equal(t, 0.01, got[carol])
	})

	t.Run("zero amount", func(t *testing.T) {
		out, err := Equal(0, []uuid.UUID{alice, bob})
		require.NoError(t, err)
		assert.Equal(t, 0.0, Total(out))
	})

	t.Run("empty list", func(t *testing.T) {
		_, err := Equal(10, nil)
		assert.ErrorIs(t, err, ErrInvalidSplitInput)
		assert.ErrorIs(t, err, ErrNoParticipants)
	})

	t.Run("duplicate participant", func(t *testing.T) {
		_, err := Equal(10, []uuid.UUID{alice, alice})
		assert.ErrorIs(t, err, ErrDuplicateParticipant)
	})

	t.Run("negative amount", func(t *testing.T) {
		_, err := Equal(-1, []uuid.UUID{alice})
		assert.ErrorIs(t, err, ErrInvalidSplitInput)
	})
}

func TestShares(t *testing.T) {
	out, err := Shares(10, []Weighted{{UserID: alice, Value: 1}, {UserID: bob, Value: 2}})
	require.NoError(t, err)

	got := amountsByUser(out)
	assert.Equal(t, 3.33, got[alice])
	assert.Equal(t, 6.67, got[bob])
	assert.Equal(t, 10.0, Total(out))
	assert.Equal(t, 2.0, out[1].Share)

	t.Run("zero weight participant owes nothing", func(t *testing.T) {
		out, err := Shares(50, []Weighted{{UserID: alice, Value: 0}, {UserID: bob, Value: 3}})
		require.NoError(t, err)
		got := amountsByUser(out)
		assert.Equal(t, 0.0, got[alice])
		assert.Equal(t, 50.0, got[bob])
	})

	t.Run("all zero", func(t *testing.T) {
		_, err := Shares(10, []Weighted{{UserID: alice, Value: 0}, {UserID: bob, Value: 0}})
		assert.ErrorIs(t, err, ErrInvalidSplitInput)
		assert.ErrorIs(t, err, ErrZeroShares)
	})

	t.Run("negative weight", func(t *testing.T) {
		_, err := Shares(10, []Weighted{{UserID: alice, Value: -1}, {UserID: bob, Value: 2}})
		assert.ErrorIs(t, err, ErrNegativeShare)
	})
}

func TestPercent(t *testing.T) {
	out, err := Percent(99.99, []Weighted{
		{UserID: alice, Value: 50},
		{UserID: bob, Value: 30},
		{UserID: carol, Value: 20},
	})
	require.NoError(t, err)

	got := amountsByUser(out)
	assert.Equal(t, 49.99, got[alice])
	assert.Equal(t, 30.0, got[bob])
	assert.Equal(t, 20.0, got[carol])
	assert.Equal(t, 99.99, Total(out))

	t.Run("percentages below one hundred", func(t *testing.T) {
		out, err := Percent(200, []Weighted{{UserID: alice, Value: 25}, {UserID: bob, Value: 25}})
		require.NoError(t, err)
		assert.Equal(t, 100.0, Total(out))
	})

	t.Run("all zero", func(t *testing.T) {
		_, err := Percent(10, []Weighted{{UserID: alice, Value: 0}})
		assert.ErrorIs(t, err, ErrZeroPercentages)
	})

	t.Run("out of range", func(t *testing.T) {
		_, err := Percent(10, []Weighted{{UserID: alice, Value: 120}})
		assert.ErrorIs(t, err, ErrPercentageOutOfRange)
	})
}

func TestExact(t *testing.T) {
	out, err := Exact([]Weighted{
		{UserID: alice, Value: 20},
		{UserID: bob, Value: 30},
		{UserID: carol, Value: 40},
	})
	require.NoError(t, err)
	assert.Equal(t, 90.0, Total(out))
	assert.Equal(t, 30.0, amountsByUser(out)[bob])

	_, err = Exact([]Weighted{{UserID: alice, Value: -5}})
	assert.ErrorIs(t, err, ErrNegativeAmount)
}

func TestFactory(t *testing.T) {
	factory := NewSplitStrategyFactory()

	for _, splitType := range []SplitType{SplitTypeEqual, SplitTypeShares, SplitTypePercent, SplitTypeExact} {
		strategy, err := factory.Create(splitType)
		require.NoError(t, err)
		assert.Equal(t, splitType, strategy.Type())
	}

	_, err := factory.CreateFromString("BY_MOOD")
	assert.ErrorIs(t, err, ErrInvalidSplitInput)
}

func TestStrategyValidate(t *testing.T) {
	tests := []struct {
		name         string
		strategy     Strategy
		total        float64
		participants []SplitInput
		wantErr      error
	}{
		{
			name:         "equal ok",
			strategy:     &EqualStrategy{},
			total:        30,
			participants: []SplitInput{{UserID: alice}, {UserID: bob}},
		},
		{
			name:         "equal without participants",
			strategy:     &EqualStrategy{},
			total:        30,
			participants: nil,
			wantErr:      ErrNoParticipants,
		},
		{
			name:         "shares missing value",
			strategy:     &SharesStrategy{},
			total:        30,
			participants: []SplitInput{{UserID: alice, Share: ptr(1)}, {UserID: bob}},
			wantErr:      ErrMissingShare,
		},
		{
			name:         "percent must total one hundred",
			strategy:     &PercentStrategy{},
			total:        30,
			participants: []SplitInput{{UserID: alice, Percent: ptr(50)}, {UserID: bob, Percent: ptr(40)}},
			wantErr:      ErrInvalidPercentages,
		},
		{
			name:         "percent within tolerance",
			strategy:     &PercentStrategy{},
			total:        30,
			participants: []SplitInput{{UserID: alice, Percent: ptr(33.33)}, {UserID: bob, Percent: ptr(66.67)}},
		},
		{
			name:         "percent thirds one cent short",
			strategy:     &PercentStrategy{},
			total:        100,
			participants: []SplitInput{{UserID: alice, Percent: ptr(33.33)}, {UserID: bob, Percent: ptr(33.33)}, {UserID: carol, Percent: ptr(33.33)}},
		},
		{
			name:         "percent two cents short",
			strategy:     &PercentStrategy{},
			total:        100,
			participants: []SplitInput{{UserID: alice, Percent: ptr(33.33)}, {UserID: bob, Percent: ptr(33.33)}, {UserID: carol, Percent: ptr(33.32)}},
			wantErr:      ErrInvalidPercentages,
		},
		{
			name:         "exact thirds one cent short",
			strategy:     &ExactStrategy{},
			total:        100,
			participants: []SplitInput{{UserID: alice, Amount: ptr(33.33)}, {UserID: bob, Amount: ptr(33.33)}, {UserID: carol, Amount: ptr(33.33)}},
		},
		{
			name:         "exact one cent over",
			strategy:     &ExactStrategy{},
			total:        100,
			participants: []SplitInput{{UserID: alice, Amount: ptr(50.01)}, {UserID: bob, Amount: ptr(50)}},
		},
		{
			name:         "exact mismatch",
			strategy:     &ExactStrategy{},
			total:        100,
			participants: []SplitInput{{UserID: alice, Amount: ptr(20)}, {UserID: bob, Amount: ptr(30)}},
			wantErr:      ErrInvalidExactAmounts,
		},
		{
			name:         "exact total inferred",
			strategy:     &ExactStrategy{},
			total:        0,
			participants: []SplitInput{{UserID: alice, Amount: ptr(20)}, {UserID: bob, Amount: ptr(30)}},
		},
		{
			name:         "exact missing amount",
			strategy:     &ExactStrategy{},
			total:        20,
			participants: []SplitInput{{UserID: alice, Amount: ptr(20)}, {UserID: bob}},
			wantErr:      ErrMissingExactAmount,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.strategy.Validate(tt.total, tt.participants)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
			assert.ErrorIs(t, err, ErrInvalidSplitInput)
		})
	}
}

func TestCalculateSumsToTotal(t *testing.T) {
	participants := []SplitInput{
		{UserID: alice, Share: ptr(1), Percent: ptr(33.33), Amount: ptr(11.11)},
		{UserID: bob, Share: ptr(1), Percent: ptr(33.33), Amount: ptr(11.11)},
		{UserID: carol, Share: ptr(1), Percent: ptr(33.34), Amount: ptr(11.11)},
	}

	for _, strategy := range []Strategy{&EqualStrategy{}, &SharesStrategy{}, &PercentStrategy{}, &ExactStrategy{}} {
		t.Run(string(strategy.Type()), func(t *testing.T) {
			out, err := strategy.Calculate(33.33, participants)
			require.NoError(t, err)
			assert.Equal(t, 33.33, Total(out))
		})
	}
}
