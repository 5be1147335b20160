package series

import "math"

// Growth is the period-over-period change for one year. Percent is nil
// when the predecessor is zero.
type Growth struct {
	Year    string   `json:"year"`
	Percent *float64 `json:"percent"`
}

// GrowthRates computes (curr-prev)/prev*100 for each consecutive pair of an
// ascending series. The result has max(0, len(points)-1) entries; callers
// sort with SortByYear first.
func GrowthRates(points []Point) []Growth {
	if len(points) < 2 {
		return []Growth{}
	}

	out := make([]Growth, 0, len(points)-1)
	for i := 1; i < len(points); i++ {
		g := Growth{Year: points[i].Key}
		prev, curr := points[i-1].Value, points[i].Value
		if prev != 0 {
			pct := (curr - prev) / prev * 100
			if !math.IsNaN(pct) && !math.IsInf(pct, 0) {
				g.Percent = &pct
			}
		}
		out = append(out, g)
	}
	return out
}

// GrowthInRange keeps growth entries whose year lies in yr.
func GrowthInRange(growth []Growth, yr *YearRange) []Growth {
	out := make([]Growth, 0, len(growth))
	for _, g := range growth {
		if yr == nil || yr.Contains(g.Year) {
			out = append(out, g)
		}
	}
	return out
}

// DefinedPercents returns the non-nil growth percentages in order.
func DefinedPercents(growth []Growth) []float64 {
	out := make([]float64, 0, len(growth))
	for _, g := range growth {
		if g.Percent != nil {
			out = append(out, *g.Percent)
		}
	}
	return out
}
