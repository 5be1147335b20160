package series

import (
	"fmt"
	"strconv"
	"strings"
)

// Predicates selects records. Zero-valued fields are skipped and all
// supplied predicates are ANDed.
type Predicates struct {
	// TimePeriod requires an exact TIME_PERIOD match.
	TimePeriod string
	// DimensionEquals maps field name to required code.
	DimensionEquals map[string]string
	// Years keeps records whose TIME_PERIOD falls in the range.
	Years *YearRange
	// RequireValue drops records with an empty TIME_PERIOD, or an OBS_VALUE
	// that is null, empty or numerically zero.
	RequireValue bool
	Custom       func(Record) bool
}

// Match reports whether r satisfies every supplied predicate.
func (p Predicates) Match(r Record) bool {
	if p.TimePeriod != "" && r.TimePeriod != p.TimePeriod {
		return false
	}
	for field, code := range p.DimensionEquals {
		if r.Field(field) != code {
			return false
		}
	}
	if p.Years != nil && !p.Years.Contains(r.TimePeriod) {
		return false
	}
	if p.RequireValue && (r.TimePeriod == "" || !hasObsValue(r)) {
		return false
	}
	if p.Custom != nil && !p.Custom(r) {
		return false
	}
	return true
}

// hasObsValue treats nil, "" and a numeric zero as absent.
func hasObsValue(r Record) bool {
	switch v := r.ObsValue.(type) {
	case nil:
		return false
	case string:
		return v != ""
	case float64:
		return v != 0
	}
	return true
}

// Filter returns the records matching p in their original order. The input
// slice is never modified.
func Filter(records []Record, p Predicates) []Record {
	out := make([]Record, 0, len(records))
	for _, r := range records {
		if p.Match(r) {
			out = append(out, r)
		}
	}
	return out
}

// UnitIs selects records with the given UNIT_MEASURE.
func UnitIs(unit string) Predicates {
	return Predicates{DimensionEquals: map[string]string{FieldUnitMeasure: unit}}
}

// TotalsOnly selects records aggregated across every breakdown and sex.
func TotalsOnly() map[string]string {
	return map[string]string{
		FieldCompBreakdown1: TotalCode,
		FieldCompBreakdown2: TotalCode,
		FieldCompBreakdown3: TotalCode,
		FieldSex:            TotalCode,
	}
}

// YearRange is an inclusive span of years.
type YearRange struct {
	From int
	To   int
}

// Presets offered by the year-range selector.
var YearRangePresets = []string{
	"1960-1970", "1971-1980", "1981-1990", "1991-2000", "2001-2010", "2011-2023",
}

// ParseYearRange reads "YYYY-YYYY". "" and "all" mean no range.
func ParseYearRange(s string) (*YearRange, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "all") {
		return nil, nil
	}

	from, to, ok := strings.Cut(s, "-")
	if !ok {
		return nil, fmt.Errorf("invalid year range %q: want YYYY-YYYY", s)
	}
	var yr YearRange
	var errFrom, errTo error
	yr.From, errFrom = strconv.Atoi(from)
	yr.To, errTo = strconv.Atoi(to)
	if errFrom != nil || errTo != nil {
		return nil, fmt.Errorf("invalid year range %q: want YYYY-YYYY", s)
	}
	if yr.From > yr.To {
		return nil, fmt.Errorf("invalid year range %q: start after end", s)
	}
	return &yr, nil
}

// Contains reports whether the year of period lies in the range. Periods
// without a readable year are outside every range.
func (y YearRange) Contains(period string) bool {
	year, ok := yearOf(period)
	return ok && year >= y.From && year <= y.To
}

func (y YearRange) String() string {
	return fmt.Sprintf("%d-%d", y.From, y.To)
}
