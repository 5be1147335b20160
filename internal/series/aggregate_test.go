package series

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMean(t *testing.T) {
	assert.Equal(t, 0.0, Mean(nil))
	assert.Equal(t, 0.0, Mean([]float64{}))
	assert.Equal(t, 15.0, MeanPoints([]Point{{"2010", 10}, {"2011", 20}}))
	assert.Equal(t, 2.0, Mean([]float64{1, math.NaN(), 3, math.Inf(1)}))
	assert.Equal(t, 0.0, Mean([]float64{math.NaN()}))
}

func TestAggregatesStayFiniteAtExtremes(t *testing.T) {
	big := math.MaxFloat64

	assert.Equal(t, big, Mean([]float64{big, big}))
	assert.Equal(t, -big, Mean([]float64{-big, -big}))
	assert.Equal(t, 0.0, Mean([]float64{big, -big}))

	lo, hi := Bounds([]float64{big}, big)
	assert.False(t, math.IsInf(lo, 0))
	assert.Equal(t, big, hi)

	lo, hi = Bounds([]float64{-big, 1}, big)
	assert.Equal(t, -big, lo)
	assert.False(t, math.IsInf(hi, 0))
}

func TestRound(t *testing.T) {
	tests := []struct {
		in     float64
		places int32
		want   float64
	}{
		{11234.5678, 2, 11234.57},
		{2.5, 0, 3},
		{-2.5, 0, -3},
		{1234567.4, 0, 1234567},
		{0.005, 2, 0.01},
		{math.NaN(), 2, 0},
		{math.Inf(-1), 0, 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Round(tt.in, tt.places), "Round(%v, %d)", tt.in, tt.places)
	}
}

func TestBounds(t *testing.T) {
	lo, hi := Bounds([]float64{3, -2, 7}, 1)
	assert.Equal(t, -3.0, lo)
	assert.Equal(t, 8.0, hi)

	lo, hi = Bounds(nil, 1)
	assert.Equal(t, 0.0, lo)
	assert.Equal(t, 0.0, hi)

	lo, hi = Bounds([]float64{math.NaN(), math.Inf(1), 4}, 0)
	assert.Equal(t, 4.0, lo)
	assert.Equal(t, 4.0, hi)

	lo, hi = BoundsNullable([]*float64{nil, ptr(2), nil, ptr(-1)}, 1)
	assert.Equal(t, -2.0, lo)
	assert.Equal(t, 3.0, hi)

	lo, hi = BoundsNullable([]*float64{nil}, 1)
	assert.Equal(t, 0.0, lo)
	assert.Equal(t, 0.0, hi)
}
