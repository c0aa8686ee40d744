package services

import (
	"buffettbackend/types"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func computeNamed(t *testing.T, name string, st types.Statements) (types.RatioValue, bool) {
	t.Helper()
	def, ok := LookupRatio(name)
	require.True(t, ok, "unknown ratio %s", name)
	return def.Compute(st)
}

func TestRatioCatalog_Order(t *testing.T) {
	assert.Equal(t, []string{
		"Gross Margin",
		"SG&A Expense Margin",
		"R&D Expense Margin",
		"Depreciation Margin",
		"Interest Expense Margin",
		"Income Tax Rate",
		"Net Margin",
		"EPS Growth",
		"Cash > Debt",
		"Adjusted Debt to Equity",
		"Preferred Stock",
		"Retained Earnings Growth",
		"Treasury Stock",
		"CapEx Margin",
	}, RatioNames())
}

func TestRatioCatalog_NumericFormulas(t *testing.T) {
	st := fixtureStatements()
	tests := []struct {
		name     string
		expected float64
	}{
		{"Gross Margin", 60},
		{"SG&A Expense Margin", 20},
		{"R&D Expense Margin", 50.0 / 600 * 100},
		{"Depreciation Margin", 5},
		{"Interest Expense Margin", 20.0 / 300 * 100},
		{"Income Tax Rate", 21},
		{"Net Margin", 25},
		{"EPS Growth", 10},
		{"Cash > Debt", 2},
		{"Adjusted Debt to Equity", 0.25},
		{"CapEx Margin", 20},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			value, ok := computeNamed(t, tt.name, st)
			require.True(t, ok)
			assert.False(t, value.IsLabel())
			assert.InDelta(t, tt.expected, value.Number, 1e-6)
		})
	}
}

func TestRatioCatalog_CategoricalFormulas(t *testing.T) {
	st := fixtureStatements()

	value, ok := computeNamed(t, "Preferred Stock", st)
	require.True(t, ok)
	assert.Equal(t, types.LabelNone, value.Label)

	value, ok = computeNamed(t, "Retained Earnings Growth", st)
	require.True(t, ok)
	assert.Equal(t, types.LabelGrowing, value.Label)

	value, ok = computeNamed(t, "Treasury Stock", st)
	require.True(t, ok)
	assert.Equal(t, types.LabelExists, value.Label)
}

func TestRatioCatalog_OmitsWhenRequiredRowMissing(t *testing.T) {
	for _, def := range RatioCatalog {
		for _, row := range def.RequiredRows {
			t.Run(def.Name+"/"+row, func(t *testing.T) {
				st := fixtureStatements(append([]string{row}, def.Fallbacks[row]...)...)
				_, ok := def.Compute(st)
				assert.False(t, ok)
			})
		}
	}
}

func TestRatioCatalog_FallbackRowsStandIn(t *testing.T) {
	for _, def := range RatioCatalog {
		for row, fallbacks := range def.Fallbacks {
			for _, fallback := range fallbacks {
				t.Run(def.Name+"/"+fallback, func(t *testing.T) {
					st := fixtureStatements(row)
					st.Income.SetRow(fallback, -20, -18)
					_, ok := def.Compute(st)
					assert.True(t, ok)
				})
			}
		}
	}
}

func TestRatioCatalog_EmptyStatements(t *testing.T) {
	for _, def := range RatioCatalog {
		_, ok := def.Compute(types.Statements{})
		assert.False(t, ok, def.Name)
	}
}

func TestRatioCatalog_NonPositiveDenominator(t *testing.T) {
	st := fixtureStatements()
	st.Income.SetRow(RowTotalRevenue, 0, 900)
	_, ok := computeNamed(t, "Gross Margin", st)
	assert.False(t, ok)

	st.Income.SetRow(RowTotalRevenue, -10, 900)
	_, ok = computeNamed(t, "Net Margin", st)
	assert.False(t, ok)

	st.Balance.SetRow(RowTotalAssets, 300, 1400)
	_, ok = computeNamed(t, "Adjusted Debt to Equity", st)
	assert.False(t, ok, "equity of zero")

	st.Income.SetRow(RowBasicEPS, 3, 0)
	_, ok = computeNamed(t, "EPS Growth", st)
	assert.False(t, ok, "prior EPS of zero")
}

func TestRatioCatalog_SinglePeriodGrowth(t *testing.T) {
	st := fixtureStatements()
	st.Income.SetRow(RowBasicEPS, 5.5)
	st.Balance.SetRow(RowRetainedEarnings, 800)

	_, ok := computeNamed(t, "EPS Growth", st)
	assert.False(t, ok)
	_, ok = computeNamed(t, "Retained Earnings Growth", st)
	assert.False(t, ok)
}

func TestRatioCatalog_InterestFallsBackToNonOperatingRow(t *testing.T) {
	st := fixtureStatements(RowInterestExpense)
	st.Income.SetRow(RowInterestNonOperating, -30, -25)

	value, ok := computeNamed(t, "Interest Expense Margin", st)
	require.True(t, ok)
	assert.InDelta(t, 10, value.Number, 1e-6)
}

func TestRatioCatalog_CapExUsesMagnitude(t *testing.T) {
	st := fixtureStatements()
	st.CashFlow.SetRow(RowCapitalExpenditure, 75, 60)

	value, ok := computeNamed(t, "CapEx Margin", st)
	require.True(t, ok)
	assert.InDelta(t, 30, value.Number, 1e-6)
}

func TestRatioCatalog_PreferredStockExists(t *testing.T) {
	st := fixtureStatements()
	st.Balance.SetRow(RowPreferredStock, 10, 10)

	value, ok := computeNamed(t, "Preferred Stock", st)
	require.True(t, ok)
	assert.Equal(t, types.LabelExists, value.Label)
}

func TestRatioCatalog_RetainedEarningsDeclining(t *testing.T) {
	st := fixtureStatements()
	st.Balance.SetRow(RowRetainedEarnings, 700, 700)

	value, ok := computeNamed(t, "Retained Earnings Growth", st)
	require.True(t, ok)
	assert.Equal(t, types.LabelDeclining, value.Label)
}

func TestRatioCatalog_TreasuryEvidence(t *testing.T) {
	st := fixtureStatements(RowTreasuryStock)
	value, ok := computeNamed(t, "Treasury Stock", st)
	require.True(t, ok)
	assert.Equal(t, types.LabelNone, value.Label)

	st.Balance.SetRow(RowOrdinaryShares, 95, 100)
	value, ok = computeNamed(t, "Treasury Stock", st)
	require.True(t, ok)
	assert.Equal(t, types.LabelExists, value.Label, "share count went down")

	st = fixtureStatements(RowTreasuryStock)
	st.Balance.SetRow(RowTreasuryShares, 12)
	value, ok = computeNamed(t, "Treasury Stock", st)
	require.True(t, ok)
	assert.Equal(t, types.LabelExists, value.Label)
}
