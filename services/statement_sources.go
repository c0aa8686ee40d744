package services

import (
	"buffettbackend/clients/http_client"
	"buffettbackend/clients/quote_client"
	"buffettbackend/types"
	"buffettbackend/utils/helpers"
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// ScreenerStatementSource scrapes the three statements from the company page
// found through the company search API.
type ScreenerStatementSource struct {
	baseURL    string
	metaLookup func(symbol string) (types.CompanyMeta, error)
}

func NewScreenerStatementSource(baseURL string) *ScreenerStatementSource {
	return &ScreenerStatementSource{
		baseURL:    strings.TrimRight(baseURL, "/"),
		metaLookup: quote_client.GetCompanyMeta,
	}
}

func (s *ScreenerStatementSource) FetchStatements(ctx context.Context, symbol string) (*types.StatementBundle, error) {
	companies, err := http_client.SearchCompany(ctx, s.baseURL, symbol)
	if err != nil {
		return nil, fmt.Errorf("search company %s: %w", symbol, err)
	}
	if len(companies) == 0 || companies[0].URL == "" {
		return nil, ErrStatementsNotFound
	}

	pageURL := companies[0].URL
	if strings.HasPrefix(pageURL, "/") {
		pageURL = s.baseURL + pageURL
	}

	body, err := http_client.GetCompanyPage(ctx, pageURL)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch the company page: %w", err)
	}
	defer body.Close()

	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse the HTML content: %w", err)
	}

	bundle := helpers.ParseCompanyStatements(doc)
	if !hasAnyStatement(bundle.Statements) {
		return nil, ErrStatementsNotFound
	}
	if bundle.Meta.Name == "" {
		bundle.Meta.Name = companies[0].Name
	}

	if s.metaLookup != nil && (bundle.Meta.CurrentPrice == 0 || bundle.Meta.Name == "") {
		quoted, err := s.metaLookup(symbol)
		if err != nil {
			zap.L().Debug("Quote lookup failed", zap.String("symbol", symbol), zap.Error(err))
		} else {
			bundle.Meta = quote_client.MergeMeta(bundle.Meta, quoted)
		}
	}
	return bundle, nil
}

// MongoStatementSource reads statements from company documents kept up to
// date by the company data updater. It never writes.
type MongoStatementSource struct {
	collection *mongo.Collection
}

func NewMongoStatementSource(collection *mongo.Collection) *MongoStatementSource {
	return &MongoStatementSource{collection: collection}
}

// companyDocument is the stored company shape: statement rows keyed by label
// with values oldest first, plus optional column headers.
type companyDocument struct {
	Symbol              string      `bson:"symbol"`
	Name                string      `bson:"name"`
	Sector              string      `bson:"sector"`
	Industry            string      `bson:"industry"`
	CurrentPrice        interface{} `bson:"currentPrice"`
	ProfitLoss          bson.D      `bson:"profitLoss"`
	ProfitLossHeaders   []string    `bson:"profitLossHeaders"`
	BalanceSheet        bson.D      `bson:"balanceSheet"`
	BalanceSheetHeaders []string    `bson:"balanceSheetHeaders"`
	CashFlows           bson.D      `bson:"cashFlows"`
	CashFlowsHeaders    []string    `bson:"cashFlowsHeaders"`
}

func (m *MongoStatementSource) FetchStatements(ctx context.Context, symbol string) (*types.StatementBundle, error) {
	var doc companyDocument
	err := m.collection.FindOne(ctx, bson.M{"symbol": symbol}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrStatementsNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find company %s: %w", symbol, err)
	}

	bundle := doc.toBundle()
	if !hasAnyStatement(bundle.Statements) {
		return nil, ErrStatementsNotFound
	}
	return bundle, nil
}

func (d companyDocument) toBundle() *types.StatementBundle {
	return &types.StatementBundle{
		Meta: types.CompanyMeta{
			Name:         d.Name,
			Sector:       d.Sector,
			Industry:     d.Industry,
			CurrentPrice: toPrice(d.CurrentPrice),
		},
		Statements: types.Statements{
			Income:   statementFromRows(d.ProfitLossHeaders, d.ProfitLoss),
			Balance:  statementFromRows(d.BalanceSheetHeaders, d.BalanceSheet),
			CashFlow: statementFromRows(d.CashFlowsHeaders, d.CashFlows),
		},
	}
}

func statementFromRows(headers []string, rows bson.D) *types.StatementTable {
	if len(rows) == 0 {
		return nil
	}
	order := make([]string, 0, len(rows))
	values := make(map[string][]string, len(rows))
	for _, row := range rows {
		order = append(order, row.Key)
		values[row.Key] = helpers.ToStringArray(row.Value)
	}
	return helpers.BuildStatementTable(headers, order, values)
}

func toPrice(v interface{}) float64 {
	switch p := v.(type) {
	case float64:
		return p
	case int32:
		return float64(p)
	case int64:
		return float64(p)
	case string:
		f, err := strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(p), ",", ""), 64)
		if err != nil {
			return 0
		}
		return f
	default:
		return 0
	}
}

func hasAnyStatement(st types.Statements) bool {
	return !st.Income.IsEmpty() || !st.Balance.IsEmpty() || !st.CashFlow.IsEmpty()
}
