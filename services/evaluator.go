package services

import (
	"buffettbackend/types"
	"math"
)

// Evaluate reports whether a computed ratio passes its rule. Anything it does
// not understand fails.
func Evaluate(ratio types.RatioResult) bool {
	switch ratio.Mode {
	case types.CategoricalAbsence:
		return ratio.Value.Label == types.LabelNone
	case types.CategoricalPresence:
		return ratio.Value.Label == types.LabelExists
	case types.CategoricalDirectional:
		return ratio.Value.Label == types.LabelGrowing
	}

	if ratio.Threshold == nil || ratio.Value.IsLabel() || math.IsNaN(ratio.Value.Number) {
		return false
	}
	value, limit := ratio.Value.Number, *ratio.Threshold

	switch ratio.Mode {
	case types.AtLeast:
		return value >= limit
	case types.AtMost:
		return value <= limit
	case types.Near:
		return math.Abs(value-limit) <= nearTolerance
	default:
		return false
	}
}
