package services

import (
	"buffettbackend/types"
)

const (
	strongBandFloor   = 80.0
	moderateBandFloor = 60.0
)

// Score reduces a ratio set to pass counts and a recommendation band. The
// percentage is relative to the ratios that were computed, not to the whole
// catalog.
func Score(ratios map[string]types.RatioResult) types.ScoreSummary {
	summary := types.ScoreSummary{Total: len(ratios)}
	for _, ratio := range ratios {
		if Evaluate(ratio) {
			summary.Passed++
		}
	}
	if summary.Total > 0 {
		summary.Percentage = float64(summary.Passed) / float64(summary.Total) * 100
	}
	summary.Band = BandFor(summary.Percentage)
	return summary
}

func BandFor(percentage float64) types.RecommendationBand {
	switch {
	case percentage >= strongBandFloor:
		return types.BandStrong
	case percentage >= moderateBandFloor:
		return types.BandModerate
	default:
		return types.BandCaution
	}
}

// BandMessage is the headline shown next to a band.
func BandMessage(band types.RecommendationBand) string {
	switch band {
	case types.BandStrong:
		return "Strong Buy: This stock meets most of Buffett's investment criteria!"
	case types.BandModerate:
		return "Moderate: This stock shows potential but has some concerns."
	default:
		return "Caution: This stock fails several key Buffett criteria."
	}
}

// FailedRatios lists the names of ratios that did not pass, in catalog order.
func FailedRatios(ratios map[string]types.RatioResult) []string {
	failed := []string{}
	for _, name := range RatioNames() {
		ratio, ok := ratios[name]
		if ok && !Evaluate(ratio) {
			failed = append(failed, name)
		}
	}
	return failed
}
