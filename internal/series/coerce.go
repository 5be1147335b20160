package series

import (
	"encoding/json"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// DefaultValue is substituted for missing or non-numeric observations.
const DefaultValue = 0.0

// leading decimal literal, as accepted by a parseFloat-style reader
var numberPrefix = regexp.MustCompile(`^[+-]?(\d+\.?\d*|\.\d+)([eE][+-]?\d+)?`)

// ToNumber reads v as a finite float. Strings are read up to the first
// character that cannot continue a decimal literal, so "12.5%" is 12.5.
// Empty, nil, non-numeric and non-finite inputs report false.
func ToNumber(v any) (float64, bool) {
	var f float64
	switch x := v.(type) {
	case nil:
		return 0, false
	case float64:
		f = x
	case float32:
		f = float64(x)
	case int:
		f = float64(x)
	case int64:
		f = float64(x)
	case json.Number:
		return ToNumber(string(x))
	case string:
		m := numberPrefix.FindString(strings.TrimSpace(x))
		if m == "" {
			return 0, false
		}
		n, err := strconv.ParseFloat(m, 64)
		if err != nil {
			return 0, false
		}
		f = n
	default:
		return 0, false
	}

	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// Coerce returns ToNumber(v), or def when v is not a finite number.
func Coerce(v any, def float64) float64 {
	if f, ok := ToNumber(v); ok {
		return f
	}
	return def
}
