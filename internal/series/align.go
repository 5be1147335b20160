package series

import "fmt"

// Mode selects how secondary series are aligned to the primary.
type Mode int

const (
	// Intersect keeps years present in every input.
	Intersect Mode = iota
	// Union keeps every primary year; secondaries absent there get nil.
	Union
)

func (m Mode) String() string {
	switch m {
	case Intersect:
		return "intersect"
	case Union:
		return "union"
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

// ParseMode reads "intersect" or "union".
func ParseMode(s string) (Mode, error) {
	switch s {
	case "intersect":
		return Intersect, nil
	case "union":
		return Union, nil
	}
	return 0, fmt.Errorf("unknown alignment mode %q", s)
}

// Aligned holds index-parallel arrays in ascending year order. A nil entry
// in Secondary means the secondary series has no data for that year.
type Aligned struct {
	Years     []string   `json:"years"`
	Primary   []float64  `json:"primary"`
	Secondary []*float64 `json:"secondary"`
}

// Len returns the number of aligned years.
func (a Aligned) Len() int { return len(a.Years) }

// SecondaryOr returns Secondary with nil replaced by def, the form used by
// csv exports and summaries.
func (a Aligned) SecondaryOr(def float64) []float64 {
	return valuesOr(a.Secondary, def)
}

// AlignedMany is Aligned for any number of secondary series.
type AlignedMany struct {
	Years     []string     `json:"years"`
	Primary   []float64    `json:"primary"`
	Secondary [][]*float64 `json:"secondary"`
}

// Align aligns secondary to primary by year. Intersect yields the years
// found in both inputs; Union yields every primary year. Output is always
// in ascending numeric year order. No overlap gives empty arrays.
func Align(primary, secondary []Point, mode Mode) Aligned {
	many := AlignMany(primary, mode, secondary)
	return Aligned{
		Years:     many.Years,
		Primary:   many.Primary,
		Secondary: many.Secondary[0],
	}
}

// AlignMany aligns every secondary series to primary. When a series holds
// the same year twice, the first occurrence wins.
func AlignMany(primary []Point, mode Mode, secondaries ...[]Point) AlignedMany {
	primaryIdx, primaryOrder := indexByYear(primary)

	lookups := make([]map[string]float64, len(secondaries))
	for i, s := range secondaries {
		lookups[i], _ = indexByYear(s)
	}

	years := make([]string, 0, len(primaryOrder))
	for _, y := range primaryOrder {
		if mode == Intersect && !presentInAll(yearKey(y), lookups) {
			continue
		}
		years = append(years, y)
	}
	SortYears(years)

	out := AlignedMany{
		Years:     years,
		Primary:   make([]float64, len(years)),
		Secondary: make([][]*float64, len(secondaries)),
	}
	for i := range secondaries {
		out.Secondary[i] = make([]*float64, len(years))
	}

	for i, y := range years {
		key := yearKey(y)
		out.Primary[i] = primaryIdx[key]
		for j, lookup := range lookups {
			if v, ok := lookup[key]; ok {
				v := v
				out.Secondary[j][i] = &v
			}
		}
	}
	return out
}

// indexByYear maps canonical year to first value, and lists the original
// keys of first occurrences in input order.
func indexByYear(points []Point) (map[string]float64, []string) {
	idx := make(map[string]float64, len(points))
	order := make([]string, 0, len(points))
	for _, p := range points {
		key := yearKey(p.Key)
		if _, seen := idx[key]; seen {
			continue
		}
		idx[key] = p.Value
		order = append(order, p.Key)
	}
	return idx, order
}

func presentInAll(key string, lookups []map[string]float64) bool {
	for _, l := range lookups {
		if _, ok := l[key]; !ok {
			return false
		}
	}
	return true
}

func valuesOr(values []*float64, def float64) []float64 {
	out := make([]float64, len(values))
	for i, v := range values {
		if v == nil {
			out[i] = def
			continue
		}
		out[i] = *v
	}
	return out
}
