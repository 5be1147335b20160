package series

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Upstream field names used by the pipeline.
const (
	FieldTimePeriod     = "TIME_PERIOD"
	FieldObsValue       = "OBS_VALUE"
	FieldUnitMeasure    = "UNIT_MEASURE"
	FieldUnitMult       = "UNIT_MULT"
	FieldDecimals       = "DECIMALS"
	FieldSex            = "SEX"
	FieldAge            = "AGE"
	FieldCompBreakdown1 = "COMP_BREAKDOWN_1"
	FieldCompBreakdown2 = "COMP_BREAKDOWN_2"
	FieldCompBreakdown3 = "COMP_BREAKDOWN_3"
)

// TotalCode is the dimension code for "all members".
const TotalCode = "_T"

// Record is one observation from a Data360 series.
type Record struct {
	TimePeriod  string
	ObsValue    any // string, float64 or nil
	UnitMeasure string
	UnitMult    *int
	// Decimals is display precision only.
	Decimals   *int
	Dimensions map[string]string
}

// Dataset is the Data360 response envelope. Error is set when the relay
// reports an upstream failure.
type Dataset struct {
	Count int      `json:"count,omitempty"`
	Value []Record `json:"value"`
	Error string   `json:"error,omitempty"`
}

// Field returns the named field as a string, or "" when absent.
func (r Record) Field(name string) string {
	switch name {
	case FieldTimePeriod:
		return r.TimePeriod
	case FieldUnitMeasure:
		return r.UnitMeasure
	case FieldObsValue:
		if r.ObsValue == nil {
			return ""
		}
		return fmt.Sprint(r.ObsValue)
	case FieldUnitMult:
		if r.UnitMult == nil {
			return ""
		}
		return strconv.Itoa(*r.UnitMult)
	case FieldDecimals:
		if r.Decimals == nil {
			return ""
		}
		return strconv.Itoa(*r.Decimals)
	}
	return r.Dimensions[name]
}

// Value coerces ObsValue with the package default.
func (r Record) Value() float64 {
	return Coerce(r.ObsValue, DefaultValue)
}

// UnmarshalJSON accepts the loosely typed upstream shape: OBS_VALUE may be a
// string, number or null, UNIT_MULT and DECIMALS may be strings or numbers,
// and every other scalar field lands in Dimensions.
func (r *Record) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*r = Record{Dimensions: make(map[string]string, len(raw))}

	for key, value := range raw {
		switch key {
		case FieldTimePeriod:
			r.TimePeriod = scalarString(value)
		case FieldUnitMeasure:
			r.UnitMeasure = scalarString(value)
		case FieldObsValue:
			v, err := decodeObsValue(value)
			if err != nil {
				return fmt.Errorf("OBS_VALUE: %w", err)
			}
			r.ObsValue = v
		case FieldUnitMult:
			r.UnitMult = scalarInt(value)
		case FieldDecimals:
			r.Decimals = scalarInt(value)
		default:
			if s, ok := dimensionString(value); ok {
				r.Dimensions[key] = s
			}
		}
	}
	return nil
}

// MarshalJSON writes the record back in the upstream shape.
func (r Record) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(r.Dimensions)+5)
	for k, v := range r.Dimensions {
		out[k] = v
	}
	out[FieldTimePeriod] = r.TimePeriod
	out[FieldObsValue] = r.ObsValue
	if r.UnitMeasure != "" {
		out[FieldUnitMeasure] = r.UnitMeasure
	}
	if r.UnitMult != nil {
		out[FieldUnitMult] = *r.UnitMult
	}
	if r.Decimals != nil {
		out[FieldDecimals] = *r.Decimals
	}
	return json.Marshal(out)
}

// ParseDataset decodes a relay or upstream body.
func ParseDataset(body []byte) (*Dataset, error) {
	var ds Dataset
	if err := json.Unmarshal(body, &ds); err != nil {
		return nil, err
	}
	return &ds, nil
}

func decodeObsValue(raw json.RawMessage) (any, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}
	switch raw[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, err
		}
		return s, nil
	case '{', '[':
		// non-scalar values coerce to the default later
		return nil, nil
	case 't', 'f':
		return nil, nil
	}
	f, err := strconv.ParseFloat(string(raw), 64)
	if err != nil {
		// out of float64 range; kept as text so coercion yields the default
		return string(raw), nil
	}
	return f, nil
}

func scalarString(raw json.RawMessage) string {
	s, _ := dimensionString(raw)
	return s
}

// dimensionString renders JSON strings and numbers; null, booleans and
// composites are not dimension codes.
func dimensionString(raw json.RawMessage) (string, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return "", false
	}
	switch raw[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", false
		}
		return s, true
	case 'n', 't', 'f', '{', '[':
		return "", false
	}
	return string(raw), true
}

func scalarInt(raw json.RawMessage) *int {
	s, ok := dimensionString(raw)
	if !ok {
		return nil
	}
	s = strings.TrimSpace(s)
	if n, err := strconv.Atoi(s); err == nil {
		return &n
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		n := int(f)
		return &n
	}
	return nil
}
