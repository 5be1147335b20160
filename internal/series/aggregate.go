package series

import (
	"math"

	"github.com/shopspring/decimal"
)

// Mean is the arithmetic mean of the finite values, or 0 when there are none.
// It is kept as a running weighted average so large inputs cannot overflow.
func Mean(values []float64) float64 {
	var mean float64
	var n int
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		n++
		k := float64(n)
		mean = mean*((k-1)/k) + v/k
	}
	return mean
}

// MeanPoints is Mean over the values of points.
func MeanPoints(points []Point) float64 {
	return Mean(Values(points))
}

// Round rounds half away from zero to the given decimal places. Non-finite
// input rounds to 0.
func Round(v float64, places int32) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return decimal.NewFromFloat(v).Round(places).InexactFloat64()
}

// Bounds returns an axis range covering the finite values, widened by pad on
// both sides. With no finite values it returns 0, 0.
func Bounds(values []float64, pad float64) (lo, hi float64) {
	first := true
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		if first {
			lo, hi = v, v
			first = false
			continue
		}
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	if first {
		return 0, 0
	}
	return clampFinite(lo - pad), clampFinite(hi + pad)
}

func clampFinite(v float64) float64 {
	switch {
	case math.IsInf(v, 1):
		return math.MaxFloat64
	case math.IsInf(v, -1):
		return -math.MaxFloat64
	}
	return v
}

// BoundsNullable is Bounds over the non-nil entries.
func BoundsNullable(values []*float64, pad float64) (lo, hi float64) {
	present := make([]float64, 0, len(values))
	for _, v := range values {
		if v != nil {
			present = append(present, *v)
		}
	}
	return Bounds(present, pad)
}
