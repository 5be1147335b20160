package series

import (
	"math"
	"sort"
	"strconv"
	"strings"
)

// Point is a normalized (key, value) pair.
type Point struct {
	Key   string  `json:"key"`
	Value float64 `json:"value"`
}

// Labels relabels raw codes. Codes without a label pass through unchanged.
type Labels map[string]string

// AgeLabels names the AGE codes used by Findex breakdowns.
var AgeLabels = Labels{
	"_T":     "All Ages",
	"Y_GE15": "15 years old and over",
	"Y15T24": "15 to 24 years",
	"Y_GE25": "25 years old and over",
}

// Label returns the label for code, or code itself.
func (l Labels) Label(code string) string {
	if label, ok := l[code]; ok {
		return label
	}
	return code
}

// NormalizeOptions configures NormalizeWith.
type NormalizeOptions struct {
	// KeyField names the record field used as key. Defaults to TIME_PERIOD.
	KeyField string
	Labels   Labels
	// Default replaces missing or non-numeric values.
	Default float64
	// Factor multiplies every value. Zero means 1.
	Factor float64
	// ApplyUnitMultiplier scales values by 10^UNIT_MULT.
	ApplyUnitMultiplier bool
}

// Normalize maps each record to a point keyed by keyField, relabelled
// through labels, with the value coerced to DefaultValue. The output has
// exactly one point per record, in input order.
func Normalize(records []Record, keyField string, labels Labels) []Point {
	return NormalizeWith(records, NormalizeOptions{KeyField: keyField, Labels: labels})
}

// NormalizeWith is Normalize with value scaling options.
func NormalizeWith(records []Record, opts NormalizeOptions) []Point {
	keyField := opts.KeyField
	if keyField == "" {
		keyField = FieldTimePeriod
	}
	factor := opts.Factor
	if factor == 0 {
		factor = 1
	}

	points := make([]Point, len(records))
	for i, r := range records {
		value := Coerce(r.ObsValue, opts.Default) * factor
		if opts.ApplyUnitMultiplier && r.UnitMult != nil {
			value *= math.Pow10(*r.UnitMult)
		}
		if math.IsNaN(value) || math.IsInf(value, 0) {
			value = opts.Default
		}
		points[i] = Point{
			Key:   opts.Labels.Label(r.Field(keyField)),
			Value: value,
		}
	}
	return points
}

// SortByYear returns a copy of points ordered by ascending numeric year.
// Equal years keep their relative order.
func SortByYear(points []Point) []Point {
	out := make([]Point, len(points))
	copy(out, points)
	sort.SliceStable(out, func(i, j int) bool {
		return CompareYears(out[i].Key, out[j].Key) < 0
	})
	return out
}

// SortYears sorts year strings in place by ascending numeric year.
func SortYears(years []string) {
	sort.SliceStable(years, func(i, j int) bool {
		return CompareYears(years[i], years[j]) < 0
	})
}

// CompareYears orders periods by their leading integer year, then by the
// remaining text ("2020-Q1" < "2020-Q2"). Periods without a readable year
// sort after all others, lexically.
func CompareYears(a, b string) int {
	ya, okA := yearOf(a)
	yb, okB := yearOf(b)
	switch {
	case okA && okB:
		if ya != yb {
			if ya < yb {
				return -1
			}
			return 1
		}
		return strings.Compare(a, b)
	case okA:
		return -1
	case okB:
		return 1
	}
	return strings.Compare(a, b)
}

// Keys returns the keys of points in order.
func Keys(points []Point) []string {
	keys := make([]string, len(points))
	for i, p := range points {
		keys[i] = p.Key
	}
	return keys
}

// Values returns the values of points in order.
func Values(points []Point) []float64 {
	values := make([]float64, len(points))
	for i, p := range points {
		values[i] = p.Value
	}
	return values
}

// InRange keeps points whose key lies in yr. A nil range keeps everything.
func InRange(points []Point, yr *YearRange) []Point {
	if yr == nil {
		out := make([]Point, len(points))
		copy(out, points)
		return out
	}
	out := make([]Point, 0, len(points))
	for _, p := range points {
		if yr.Contains(p.Key) {
			out = append(out, p)
		}
	}
	return out
}

// yearOf reads the leading integer of a period ("2019", "2019-Q3", "2019M04").
func yearOf(period string) (int, bool) {
	period = strings.TrimSpace(period)
	end := 0
	if end < len(period) && (period[end] == '-' || period[end] == '+') {
		end++
	}
	digits := end
	for end < len(period) && period[end] >= '0' && period[end] <= '9' {
		end++
	}
	if end == digits {
		return 0, false
	}
	n, err := strconv.Atoi(period[:end])
	if err != nil {
		return 0, false
	}
	return n, true
}

// yearKey canonicalizes a period for lookups, so "2020" and "02020" match.
func yearKey(period string) string {
	period = strings.TrimSpace(period)
	if n, err := strconv.Atoi(period); err == nil {
		return strconv.Itoa(n)
	}
	return period
}
