package services

import (
	"buffettbackend/types"
)

var reportCategories = []types.RatioCategory{
	types.IncomeStatementCategory,
	types.BalanceSheetCategory,
	types.CashFlowCategory,
}

// BuildReport groups computed ratios by category in catalog order and attaches
// the score. Categories with no computed ratio are left out.
func BuildReport(result *types.AnalysisResult) types.AnalysisReport {
	summary := Score(result.Ratios)
	report := types.AnalysisReport{
		Symbol:     result.Symbol,
		Company:    result.Meta,
		Score:      summary,
		Message:    BandMessage(summary.Band),
		Sections:   []types.ReportSection{},
		Statements: result.Statements,
	}

	for _, category := range reportCategories {
		section := types.ReportSection{Category: category}
		for _, def := range RatioCatalog {
			if def.Category != category {
				continue
			}
			ratio, ok := result.Ratios[def.Name]
			if !ok {
				continue
			}
			section.Ratios = append(section.Ratios, types.ReportRatio{RatioResult: ratio, Passed: Evaluate(ratio)})
		}
		if len(section.Ratios) > 0 {
			report.Sections = append(report.Sections, section)
		}
	}
	return report
}
