package money

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRound2(t *testing.T) {
	assert.Equal(t, 33.33, Round2(100.0/3))
	assert.Equal(t, 66.67, Round2(200.0/3))
	assert.Equal(t, 0.01, Round2(0.005))
	assert.Equal(t, -0.01, Round2(-0.005))
}

func TestCentsRoundTrip(t *testing.T) {
	assert.Equal(t, int64(10000), ToCents(100))
	assert.Equal(t, int64(1999), ToCents(19.99))
	assert.Equal(t, int64(3333), ToCents(33.333))
	assert.Equal(t, 19.99, FromCents(1999))
	assert.Equal(t, 0.0, FromCents(0))
}

func TestToleranceHelpers(t *testing.T) {
	assert.True(t, IsZero(0.009))
	assert.True(t, IsZero(-0.009))
	assert.True(t, IsZero(0.01))
	assert.True(t, IsZero(-0.01))
	assert.False(t, IsZero(0.02))
	assert.True(t, IsZeroCents(1))
	assert.True(t, IsZeroCents(-1))
	assert.False(t, IsZeroCents(2))

	assert.True(t, Equal(100, 100.01))
	assert.True(t, Equal(100, 99.99))
	assert.False(t, Equal(100, 100.02))
}

func TestSum(t *testing.T) {
	values := make([]float64, 10)
	for i := range values {
		values[i] = 0.1
	}
	assert.Equal(t, 1.0, Sum(values...))
	assert.Equal(t, 0.0, Sum())
}
