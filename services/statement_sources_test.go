package services

import (
	"buffettbackend/types"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestCompanyDocument_ToBundle(t *testing.T) {
	doc := companyDocument{
		Symbol:       "TCS",
		Name:         "Tata Consultancy Services",
		Sector:       "IT",
		Industry:     "IT - Software",
		CurrentPrice: "3,950.5",
		ProfitLoss: bson.D{
			{Key: "Sales+", Value: primitive.A{"900", "1,000", "1,100"}},
			{Key: "Profit before tax", Value: primitive.A{"180", "200", "210"}},
			{Key: "Tax %", Value: primitive.A{"25%", "21%", "22%"}},
			{Key: "Net Profit+", Value: primitive.A{"135", "158", "164"}},
			{Key: "EPS in Rs", Value: primitive.A{4.5, 5.0, "5.1"}},
		},
		ProfitLossHeaders: []string{"Mar 2022", "Mar 2023", "TTM"},
		BalanceSheet: bson.D{
			{Key: "Reserves", Value: primitive.A{"700", "800"}},
			{Key: "Borrowings+", Value: primitive.A{"", "300"}},
		},
		BalanceSheetHeaders: []string{"Mar 2022", "Mar 2023"},
	}

	bundle := doc.toBundle()
	require.NotNil(t, bundle)
	assert.Equal(t, types.CompanyMeta{Name: "Tata Consultancy Services", Sector: "IT", Industry: "IT - Software", CurrentPrice: 3950.5}, bundle.Meta)

	income := bundle.Statements.Income
	require.NotNil(t, income)
	assert.Equal(t, []string{"Mar 2023", "Mar 2022"}, income.Periods)

	revenue, ok := income.Value(RowTotalRevenue, 0)
	require.True(t, ok)
	assert.Equal(t, 1000.0, revenue)

	tax, ok := income.Value(RowTaxProvision, 0)
	require.True(t, ok)
	assert.InDelta(t, 42, tax, 1e-9)

	eps, ok := income.Value(RowBasicEPS, 1)
	require.True(t, ok)
	assert.Equal(t, 4.5, eps)

	debt, ok := bundle.Statements.Balance.Value(RowTotalDebt, 0)
	require.True(t, ok)
	assert.Equal(t, 300.0, debt)
	_, ok = bundle.Statements.Balance.Value(RowTotalDebt, 1)
	assert.False(t, ok, "blank cell is missing")

	assert.Nil(t, bundle.Statements.CashFlow)
	assert.True(t, hasAnyStatement(bundle.Statements))
}

func TestCompanyDocument_EmptyHasNoStatements(t *testing.T) {
	bundle := companyDocument{Name: "Shell Co"}.toBundle()
	assert.False(t, hasAnyStatement(bundle.Statements))
}

func TestToPrice(t *testing.T) {
	assert.Equal(t, 12.5, toPrice(12.5))
	assert.Equal(t, 42.0, toPrice(int32(42)))
	assert.Equal(t, 42.0, toPrice(int64(42)))
	assert.Equal(t, 1234.0, toPrice(" 1,234 "))
	assert.Equal(t, 0.0, toPrice("n/a"))
	assert.Equal(t, 0.0, toPrice(nil))
}

const screenerPage = `
<html><body>
<h1>Coca-Cola Beverages</h1>
<section id="profit-loss">
  <table class="data-table">
    <thead><tr><th></th><th>Mar 2023</th><th>Mar 2024</th></tr></thead>
    <tbody>
      <tr><td class="text">Sales&nbsp;+</td><td>900</td><td>1,000</td></tr>
      <tr><td class="text">Net Profit&nbsp;+</td><td>180</td><td>220</td></tr>
    </tbody>
  </table>
</section>
</body></html>`

func newScreenerServer(t *testing.T, searchBody string) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/company/search/", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "KO", r.URL.Query().Get("q"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(searchBody))
	})
	mux.HandleFunc("/company/KO/", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(screenerPage))
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func TestScreenerStatementSource_FetchStatements(t *testing.T) {
	server := newScreenerServer(t, `[{"id": 1, "name": "Coca-Cola Beverages", "url": "/company/KO/"}]`)
	source := NewScreenerStatementSource(server.URL + "/")
	source.metaLookup = func(symbol string) (types.CompanyMeta, error) {
		return types.CompanyMeta{Name: "ignored", CurrentPrice: 61.2}, nil
	}

	bundle, err := source.FetchStatements(context.Background(), "KO")
	require.NoError(t, err)
	assert.Equal(t, "Coca-Cola Beverages", bundle.Meta.Name)
	assert.Equal(t, 61.2, bundle.Meta.CurrentPrice)

	value, ok := bundle.Statements.Income.Value(RowNetIncome, 0)
	require.True(t, ok)
	assert.Equal(t, 220.0, value)
	assert.Nil(t, bundle.Statements.Balance)
}

func TestScreenerStatementSource_NoSearchResults(t *testing.T) {
	server := newScreenerServer(t, `[]`)
	source := NewScreenerStatementSource(server.URL)
	source.metaLookup = nil

	_, err := source.FetchStatements(context.Background(), "KO")
	assert.ErrorIs(t, err, ErrStatementsNotFound)
}

func TestScreenerStatementSource_QuoteFailureIsIgnored(t *testing.T) {
	server := newScreenerServer(t, `[{"id": 1, "name": "Coca-Cola Beverages", "url": "/company/KO/"}]`)
	source := NewScreenerStatementSource(server.URL)
	source.metaLookup = func(symbol string) (types.CompanyMeta, error) {
		return types.CompanyMeta{}, errors.New("quote service down")
	}

	bundle, err := source.FetchStatements(context.Background(), "KO")
	require.NoError(t, err)
	assert.Zero(t, bundle.Meta.CurrentPrice)
}
