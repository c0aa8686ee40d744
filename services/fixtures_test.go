package services

import (
	"buffettbackend/types"
	"context"
	"sync"
)

type fixtureRow struct {
	label  string
	values []float64
}

var fixturePeriods = []string{"Mar 2024", "Mar 2023"}

var fixtureIncome = []fixtureRow{
	{RowTotalRevenue, []float64{1000, 900}},
	{RowGrossProfit, []float64{600, 520}},
	{RowSGA, []float64{120, 110}},
	{RowResearch, []float64{50, 45}},
	{RowDepreciation, []float64{30, 28}},
	{RowInterestExpense, []float64{20, 22}},
	{RowOperatingIncome, []float64{300, 260}},
	{RowTaxProvision, []float64{42, 40}},
	{RowPretaxIncome, []float64{200, 190}},
	{RowNetIncome, []float64{250, 220}},
	{RowBasicEPS, []float64{5.5, 5}},
}

var fixtureBalance = []fixtureRow{
	{RowCash, []float64{500, 450}},
	{RowCurrentDebt, []float64{250, 260}},
	{RowTotalDebt, []float64{300, 320}},
	{RowTotalAssets, []float64{1500, 1400}},
	{RowRetainedEarnings, []float64{800, 700}},
	{RowTreasuryStock, []float64{-50, -40}},
}

var fixtureCashFlow = []fixtureRow{
	{RowCapitalExpenditure, []float64{-50, -45}},
}

func buildTable(rows []fixtureRow, omit map[string]bool) *types.StatementTable {
	table := types.NewStatementTable(fixturePeriods...)
	for _, r := range rows {
		if omit[r.label] {
			continue
		}
		table.SetRow(r.label, r.values...)
	}
	return table
}

// fixtureStatements returns a company on which every rule computes and passes,
// minus the omitted rows.
func fixtureStatements(omit ...string) types.Statements {
	skip := make(map[string]bool, len(omit))
	for _, label := range omit {
		skip[label] = true
	}
	return types.Statements{
		Income:   buildTable(fixtureIncome, skip),
		Balance:  buildTable(fixtureBalance, skip),
		CashFlow: buildTable(fixtureCashFlow, skip),
	}
}

type stubFetcher struct {
	bundles map[string]*types.StatementBundle
	err     error
	calls   int
}

func (s *stubFetcher) FetchStatements(_ context.Context, symbol string) (*types.StatementBundle, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	bundle, ok := s.bundles[symbol]
	if !ok {
		return nil, ErrStatementsNotFound
	}
	return bundle, nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []types.AnalysisCompletedEvent
	err    error
}

func (r *recordingPublisher) Publish(_ context.Context, event types.AnalysisCompletedEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.events = append(r.events, event)
	return nil
}
