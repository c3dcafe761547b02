package budget

import (
	"strings"

	"github.com/spf13/cast"
)

// Upstream producers write numeric fields as numbers, numeric strings, null
// or not at all. Everything crossing into the engine goes through these
// helpers so the allocation logic only ever sees clean float64/bool values.

// toAmount coerces a loosely typed numeric field to float64, treating
// anything unparsable as 0.
func toAmount(v any) float64 {
	if v == nil {
		return 0
	}
	f, err := cast.ToFloat64E(v)
	if err != nil {
		return 0
	}
	return f
}

// isTruthy reports whether v is boolean true or the case-insensitive string
// "true". Absent and malformed values count as false. Estimates qualify on
// this strict reading.
func isTruthy(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case string:
		return strings.EqualFold(t, "true")
	default:
		return false
	}
}

// isActiveUnlessFalse reports false only when v is explicitly boolean false
// or the string "false". Commitment documents and invoices count as active
// when the flag is absent.
func isActiveUnlessFalse(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case string:
		return !strings.EqualFold(t, "false")
	default:
		return true
	}
}
