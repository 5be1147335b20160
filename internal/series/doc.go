// Package series turns Data360 observation records into chartable series.
//
// The pipeline runs strictly forward:
//
//	records -> Filter -> Normalize -> Align | Mean | GrowthRates
//
// Every function here is pure. Inputs are never mutated and no function
// returns NaN or Inf: missing or malformed observation values coerce to a
// default, growth over a zero predecessor yields a nil percent, and empty
// reductions return 0.
//
// Years are compared numerically, so "9" sorts before "10" and
// "2009" < "2010" < "2011" regardless of upstream insertion order.
package series
