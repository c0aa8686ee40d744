package services

import (
	"buffettbackend/types"
	"math"
)

// Canonical line-item names read by the catalog.
const (
	RowTotalRevenue         = "Total Revenue"
	RowGrossProfit          = "Gross Profit"
	RowSGA                  = "Selling General And Administration"
	RowResearch             = "Research And Development"
	RowDepreciation         = "Reconciled Depreciation"
	RowInterestExpense      = "Interest Expense"
	RowInterestNonOperating = "Interest Expense Non Operating"
	RowNetInterestIncome    = "Net Non Operating Interest Income Expense"
	RowOperatingIncome      = "Operating Income"
	RowTaxProvision         = "Tax Provision"
	RowPretaxIncome         = "Pretax Income"
	RowNetIncome            = "Net Income"
	RowBasicEPS             = "Basic EPS"
	RowCash                 = "Cash And Cash Equivalents"
	RowCurrentDebt          = "Current Debt"
	RowTotalDebt            = "Total Debt"
	RowTotalAssets          = "Total Assets"
	RowPreferredStock       = "Preferred Stock"
	RowRetainedEarnings     = "Retained Earnings"
	RowTreasuryStock        = "Treasury Stock"
	RowTreasuryShares       = "Treasury Shares Number"
	RowOrdinaryShares       = "Ordinary Shares Number"
	RowCapitalExpenditure   = "Capital Expenditure"
)

// nearTolerance is the fixed band around the threshold for near-mode rules.
const nearTolerance = 5.0

// interestExpenseRows are tried in order; the first usable value wins.
var interestExpenseRows = []string{RowInterestExpense, RowInterestNonOperating, RowNetInterestIncome}

// RatioDefinition is one rule of the catalog. Compute reports false when the
// statements do not carry what the rule needs. A required row listed in
// Fallbacks is satisfied by any of its fallback rows as well.
type RatioDefinition struct {
	Name         string
	Category     types.RatioCategory
	RequiredRows []string
	Fallbacks    map[string][]string
	Reference    string
	Threshold    *float64
	Mode         types.ComparisonMode
	Rationale    string
	Compute      func(st types.Statements) (types.RatioValue, bool)
}

func threshold(v float64) *float64 { return &v }

// RatioCatalog lists the 14 rules in display order.
var RatioCatalog = []RatioDefinition{
	{
		Name:         "Gross Margin",
		Category:     types.IncomeStatementCategory,
		RequiredRows: []string{RowGrossProfit, RowTotalRevenue},
		Reference:    "≥ 40%",
		Threshold:    threshold(40),
		Mode:         types.AtLeast,
		Rationale:    "Signals the company isn't competing on price. High gross margins indicate pricing power and competitive advantage.",
		Compute: func(st types.Statements) (types.RatioValue, bool) {
			return percentOf(st.Income, RowGrossProfit, RowTotalRevenue)
		},
	},
	{
		Name:         "SG&A Expense Margin",
		Category:     types.IncomeStatementCategory,
		RequiredRows: []string{RowSGA, RowGrossProfit},
		Reference:    "≤ 30%",
		Threshold:    threshold(30),
		Mode:         types.AtMost,
		Rationale:    "Wide-moat companies don't need to spend a lot on overhead to operate. Low SG&A indicates operational efficiency.",
		Compute: func(st types.Statements) (types.RatioValue, bool) {
			return percentOf(st.Income, RowSGA, RowGrossProfit)
		},
	},
	{
		Name:         "R&D Expense Margin",
		Category:     types.IncomeStatementCategory,
		RequiredRows: []string{RowResearch, RowGrossProfit},
		Reference:    "≤ 30%",
		Threshold:    threshold(30),
		Mode:         types.AtMost,
		Rationale:    "R&D expenses don't always create value for shareholders. Buffett prefers businesses with sustainable advantages.",
		Compute: func(st types.Statements) (types.RatioValue, bool) {
			return percentOf(st.Income, RowResearch, RowGrossProfit)
		},
	},
	{
		Name:         "Depreciation Margin",
		Category:     types.IncomeStatementCategory,
		RequiredRows: []string{RowDepreciation, RowGrossProfit},
		Reference:    "≤ 10%",
		Threshold:    threshold(10),
		Mode:         types.AtMost,
		Rationale:    "Buffett doesn't like businesses that need to invest in depreciating assets to maintain their competitive advantage.",
		Compute: func(st types.Statements) (types.RatioValue, bool) {
			return percentOf(st.Income, RowDepreciation, RowGrossProfit)
		},
	},
	{
		Name:         "Interest Expense Margin",
		Category:     types.IncomeStatementCategory,
		RequiredRows: []string{RowInterestExpense, RowOperatingIncome},
		Fallbacks:    map[string][]string{RowInterestExpense: interestExpenseRows[1:]},
		Reference:    "≤ 15%",
		Threshold:    threshold(15),
		Mode:         types.AtMost,
		Rationale:    "Great businesses don't need debt to finance themselves. Low interest expense indicates financial strength.",
		Compute:      interestExpenseMargin,
	},
	{
		Name:         "Income Tax Rate",
		Category:     types.IncomeStatementCategory,
		RequiredRows: []string{RowTaxProvision, RowPretaxIncome},
		Reference:    "At corporate rate (~21%)",
		Threshold:    threshold(21),
		Mode:         types.Near,
		Rationale:    "Great businesses are so profitable that they are forced to pay their full tax load.",
		Compute: func(st types.Statements) (types.RatioValue, bool) {
			return percentOf(st.Income, RowTaxProvision, RowPretaxIncome)
		},
	},
	{
		Name:         "Net Margin",
		Category:     types.IncomeStatementCategory,
		RequiredRows: []string{RowNetIncome, RowTotalRevenue},
		Reference:    "≥ 20%",
		Threshold:    threshold(20),
		Mode:         types.AtLeast,
		Rationale:    "Great companies convert 20% or more of their revenue into net income, indicating strong profitability.",
		Compute: func(st types.Statements) (types.RatioValue, bool) {
			return percentOf(st.Income, RowNetIncome, RowTotalRevenue)
		},
	},
	{
		Name:         "EPS Growth",
		Category:     types.IncomeStatementCategory,
		RequiredRows: []string{RowBasicEPS},
		Reference:    "Positive & Growing",
		Threshold:    threshold(0),
		Mode:         types.AtLeast,
		Rationale:    "Great companies increase profits every year. Consistent EPS growth shows business quality.",
		Compute:      epsGrowth,
	},
	{
		Name:         "Cash > Debt",
		Category:     types.BalanceSheetCategory,
		RequiredRows: []string{RowCash, RowCurrentDebt},
		Reference:    "> 1.0 (More cash than debt)",
		Threshold:    threshold(1.0),
		Mode:         types.AtLeast,
		Rationale:    "Great companies generate lots of cash without needing much debt. Cash exceeding debt provides financial flexibility.",
		Compute:      cashToDebt,
	},
	{
		Name:         "Adjusted Debt to Equity",
		Category:     types.BalanceSheetCategory,
		RequiredRows: []string{RowTotalDebt, RowTotalAssets},
		Reference:    "< 0.80",
		Threshold:    threshold(0.80),
		Mode:         types.AtMost,
		Rationale:    "Great companies finance themselves with equity rather than debt. Low leverage indicates financial stability.",
		Compute:      adjustedDebtToEquity,
	},
	{
		Name:      "Preferred Stock",
		Category:  types.BalanceSheetCategory,
		Reference: "None",
		Mode:      types.CategoricalAbsence,
		Rationale: "Great companies don't need to fund themselves with preferred stock. Absence of preferred stock indicates strong equity position.",
		Compute:   preferredStock,
	},
	{
		Name:         "Retained Earnings Growth",
		Category:     types.BalanceSheetCategory,
		RequiredRows: []string{RowRetainedEarnings},
		Reference:    "Consistent Growth",
		Mode:         types.CategoricalDirectional,
		Rationale:    "Great companies grow retained earnings each year, showing they reinvest profits successfully.",
		Compute:      retainedEarningsGrowth,
	},
	{
		Name:      "Treasury Stock",
		Category:  types.BalanceSheetCategory,
		Reference: "Exists (Share buybacks)",
		Mode:      types.CategoricalPresence,
		Rationale: "Great companies repurchase their stock, showing confidence in their business and commitment to shareholder returns.",
		Compute:   treasuryStock,
	},
	{
		Name:         "CapEx Margin",
		Category:     types.CashFlowCategory,
		RequiredRows: []string{RowCapitalExpenditure, RowNetIncome},
		Reference:    "< 25%",
		Threshold:    threshold(25),
		Mode:         types.AtMost,
		Rationale:    "Great companies don't need much equipment to generate profits. Low CapEx means capital-light business model.",
		Compute:      capExMargin,
	},
}

// RatioNames returns the catalog names in display order.
func RatioNames() []string {
	names := make([]string, 0, len(RatioCatalog))
	for _, def := range RatioCatalog {
		names = append(names, def.Name)
	}
	return names
}

// LookupRatio finds a definition by name.
func LookupRatio(name string) (RatioDefinition, bool) {
	for _, def := range RatioCatalog {
		if def.Name == name {
			return def, true
		}
	}
	return RatioDefinition{}, false
}

// percentOf computes numerator/denominator*100 on the latest period. The
// denominator has to be positive.
func percentOf(table *types.StatementTable, numerator, denominator string) (types.RatioValue, bool) {
	num, ok := table.Value(numerator, 0)
	if !ok {
		return types.RatioValue{}, false
	}
	den, ok := table.Value(denominator, 0)
	if !ok || den <= 0 {
		return types.RatioValue{}, false
	}
	return types.NumberValue(num / den * 100), true
}

func interestExpenseMargin(st types.Statements) (types.RatioValue, bool) {
	var interest float64
	found := false
	for _, row := range interestExpenseRows {
		v, ok := st.Income.Value(row, 0)
		if ok && v != 0 {
			interest = math.Abs(v)
			found = true
			break
		}
	}
	if !found {
		return types.RatioValue{}, false
	}
	operatingIncome, ok := st.Income.Value(RowOperatingIncome, 0)
	if !ok || operatingIncome <= 0 {
		return types.RatioValue{}, false
	}
	return types.NumberValue(interest / operatingIncome * 100), true
}

func epsGrowth(st types.Statements) (types.RatioValue, bool) {
	current, ok := st.Income.Value(RowBasicEPS, 0)
	if !ok {
		return types.RatioValue{}, false
	}
	prior, ok := st.Income.Value(RowBasicEPS, 1)
	if !ok || prior == 0 {
		return types.RatioValue{}, false
	}
	return types.NumberValue((current/prior - 1) * 100), true
}

func cashToDebt(st types.Statements) (types.RatioValue, bool) {
	cash, ok := st.Balance.Value(RowCash, 0)
	if !ok {
		return types.RatioValue{}, false
	}
	debt, ok := st.Balance.Value(RowCurrentDebt, 0)
	if !ok || debt <= 0 {
		return types.RatioValue{}, false
	}
	return types.NumberValue(cash / debt), true
}

func adjustedDebtToEquity(st types.Statements) (types.RatioValue, bool) {
	debt, ok := st.Balance.Value(RowTotalDebt, 0)
	if !ok {
		return types.RatioValue{}, false
	}
	assets, ok := st.Balance.Value(RowTotalAssets, 0)
	if !ok {
		return types.RatioValue{}, false
	}
	equity := assets - debt
	if equity <= 0 {
		return types.RatioValue{}, false
	}
	return types.NumberValue(debt / equity), true
}

func preferredStock(st types.Statements) (types.RatioValue, bool) {
	if st.Balance.IsEmpty() {
		return types.RatioValue{}, false
	}
	if v, ok := st.Balance.Value(RowPreferredStock, 0); ok && v != 0 {
		return types.LabelValue(types.LabelExists), true
	}
	return types.LabelValue(types.LabelNone), true
}

func retainedEarningsGrowth(st types.Statements) (types.RatioValue, bool) {
	current, ok := st.Balance.Value(RowRetainedEarnings, 0)
	if !ok {
		return types.RatioValue{}, false
	}
	prior, ok := st.Balance.Value(RowRetainedEarnings, 1)
	if !ok {
		return types.RatioValue{}, false
	}
	if current > prior {
		return types.LabelValue(types.LabelGrowing), true
	}
	return types.LabelValue(types.LabelDeclining), true
}

func treasuryStock(st types.Statements) (types.RatioValue, bool) {
	if st.Balance.IsEmpty() {
		return types.RatioValue{}, false
	}
	if hasBuybackEvidence(st.Balance) {
		return types.LabelValue(types.LabelExists), true
	}
	return types.LabelValue(types.LabelNone), true
}

func hasBuybackEvidence(balance *types.StatementTable) bool {
	if v, ok := balance.Value(RowTreasuryStock, 0); ok && v < 0 {
		return true
	}
	if v, ok := balance.Value(RowTreasuryShares, 0); ok && v > 0 {
		return true
	}
	current, ok := balance.Value(RowOrdinaryShares, 0)
	if !ok {
		return false
	}
	prior, ok := balance.Value(RowOrdinaryShares, 1)
	return ok && current < prior
}

func capExMargin(st types.Statements) (types.RatioValue, bool) {
	capex, ok := st.CashFlow.Value(RowCapitalExpenditure, 0)
	if !ok {
		return types.RatioValue{}, false
	}
	netIncome, ok := st.Income.Value(RowNetIncome, 0)
	if !ok || netIncome <= 0 {
		return types.RatioValue{}, false
	}
	return types.NumberValue(math.Abs(capex) / netIncome * 100), true
}
