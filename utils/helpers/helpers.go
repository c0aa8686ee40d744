package helpers

import (
	"buffettbackend/types"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

var whitespace = regexp.MustCompile(`\s+`)

// Screener row labels mapped to the line-item names the ratio catalog reads.
var canonicalLineItems = map[string]string{
	"sales":                  "Total Revenue",
	"revenue":                "Total Revenue",
	"operating profit":       "Operating Profit",
	"financing profit":       "Operating Profit",
	"interest":               "Interest Expense",
	"depreciation":           "Reconciled Depreciation",
	"profit before tax":      "Pretax Income",
	"net profit":             "Net Income",
	"eps in rs":              "Basic EPS",
	"reserves":               "Retained Earnings",
	"borrowings":             "Total Debt",
	"total assets":           "Total Assets",
	"preference capital":     "Preferred Stock",
	"cash equivalents":       "Cash And Cash Equivalents",
	"fixed assets purchased": "Capital Expenditure",
}

// Helper function to match header titles
func MatchHeader(cellValue string, patterns []string) bool {
	normalizedValue := NormalizeString(cellValue)
	for _, pattern := range patterns {
		matched, _ := regexp.MatchString(pattern, normalizedValue)
		if matched {
			return true
		}
	}
	return false
}

// Helper function to normalize strings
func NormalizeString(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// NormalizeLineItem strips the expand marker and non-breaking spaces that the
// statement tables put around row labels.
func NormalizeLineItem(label string) string {
	label = strings.ReplaceAll(label, "\u00a0", " ")
	label = strings.TrimSpace(label)
	label = strings.TrimSuffix(label, "+")
	return whitespace.ReplaceAllString(strings.TrimSpace(label), " ")
}

// CanonicalLineItem maps a source row label to the catalog name, returning the
// cleaned label unchanged when there is no mapping.
func CanonicalLineItem(label string) string {
	cleaned := NormalizeLineItem(label)
	if canonical, ok := canonicalLineItems[strings.ToLower(cleaned)]; ok {
		return canonical
	}
	return cleaned
}

// ParseNumber converts a statement cell such as "1,234", "-56.7" or "21%"
// into a float. Percent cells keep their percentage value. Blank or dashed
// cells are reported as missing.
func ParseNumber(value string) (float64, bool) {
	clean := strings.ReplaceAll(value, ",", "")
	clean = strings.ReplaceAll(clean, "₹", "")
	clean = strings.ReplaceAll(clean, "%", "")
	clean = strings.TrimSpace(clean)
	if clean == "" || clean == "-" || clean == "--" {
		return 0, false
	}
	f, err := strconv.ParseFloat(clean, 64)
	if err != nil {
		zap.L().Debug("Error converting to float64", zap.String("value", value), zap.Error(err))
		return 0, false
	}
	return f, true
}

// BuildStatementTable turns source rows (values oldest first, as the statement
// pages print them) into a table ordered most recent first. A trailing TTM
// column is dropped so that period 0 is the last closed period.
func BuildStatementTable(headers []string, rowOrder []string, rows map[string][]string) *types.StatementTable {
	periods := append([]string(nil), headers...)
	dropLast := len(periods) > 0 && strings.EqualFold(strings.TrimSpace(periods[len(periods)-1]), "TTM")
	if dropLast {
		periods = periods[:len(periods)-1]
	}
	reverseStrings(periods)

	table := types.NewStatementTable(periods...)
	for _, rawLabel := range rowOrder {
		cells := rows[rawLabel]
		if dropLast && len(cells) == len(headers) {
			cells = cells[:len(cells)-1]
		}
		values := make([]float64, len(cells))
		for i, cell := range cells {
			v, ok := ParseNumber(cell)
			if !ok {
				v = math.NaN()
			}
			values[len(cells)-1-i] = v
		}
		label := CanonicalLineItem(rawLabel)
		if label == "" || table.HasRow(label) {
			continue
		}
		table.SetRow(label, values...)
	}

	deriveTaxProvision(table)
	deriveOperatingIncome(table)
	return table
}

// deriveOperatingIncome fills "Operating Income" from Screener's "Operating
// Profit", which is reported before depreciation. A period with a missing
// depreciation cell stays missing. Without a depreciation row the operating
// profit is used as is.
func deriveOperatingIncome(table *types.StatementTable) {
	if table.HasRow("Operating Income") || !table.HasRow("Operating Profit") {
		return
	}
	operating := table.Row("Operating Profit")
	if !table.HasRow("Reconciled Depreciation") {
		table.SetRow("Operating Income", operating...)
		return
	}
	depreciation := table.Row("Reconciled Depreciation")
	income := make([]float64, len(operating))
	for i := range operating {
		if i >= len(depreciation) {
			income[i] = math.NaN()
			continue
		}
		income[i] = operating[i] - depreciation[i]
	}
	table.SetRow("Operating Income", income...)
}

// deriveTaxProvision fills "Tax Provision" from the "Tax %" row when the
// source only reports the effective rate.
func deriveTaxProvision(table *types.StatementTable) {
	if table.HasRow("Tax Provision") || !table.HasRow("Tax %") || !table.HasRow("Pretax Income") {
		return
	}
	rates := table.Row("Tax %")
	pretax := table.Row("Pretax Income")
	n := len(rates)
	if len(pretax) < n {
		n = len(pretax)
	}
	provision := make([]float64, n)
	for i := 0; i < n; i++ {
		provision[i] = pretax[i] * rates[i] / 100
	}
	table.SetRow("Tax Provision", provision...)
}

// ParseStatementSection reads the result table inside one statement section.
func ParseStatementSection(section *goquery.Selection) *types.StatementTable {
	table := section.Find("div[data-result-table] table")
	if table.Length() == 0 {
		table = section.Find("table.data-table")
	}
	if table.Length() == 0 {
		return nil
	}

	// Extract months/years from table headers, skipping the label column
	headers := []string{}
	table.Find("thead th").Each(func(i int, th *goquery.Selection) {
		if i > 0 {
			headers = append(headers, strings.TrimSpace(th.Text()))
		}
	})

	rowOrder := []string{}
	rows := make(map[string][]string)
	table.Find("tbody tr").Each(func(i int, tr *goquery.Selection) {
		rowKey := strings.TrimSpace(tr.Find("td.text").Text())
		if rowKey == "" {
			rowKey = strings.TrimSpace(tr.Find("td").First().Text())
		}
		if rowKey == "" {
			return
		}
		rowValues := []string{}
		tr.Find("td").Each(func(i int, td *goquery.Selection) {
			if i > 0 { // Skip the first column which is the row key
				rowValues = append(rowValues, strings.TrimSpace(td.Text()))
			}
		})
		if _, seen := rows[rowKey]; !seen {
			rowOrder = append(rowOrder, rowKey)
		}
		rows[rowKey] = rowValues
	})

	return BuildStatementTable(headers, rowOrder, rows)
}

// ParseCompanyMeta extracts the name, classification and price from a company page.
func ParseCompanyMeta(doc *goquery.Document) types.CompanyMeta {
	meta := types.CompanyMeta{
		Name:     strings.TrimSpace(doc.Find("h1").First().Text()),
		Sector:   strings.TrimSpace(doc.Find("a[title='Sector']").First().Text()),
		Industry: strings.TrimSpace(doc.Find("a[title='Industry']").First().Text()),
	}

	doc.Find("li.flex.flex-space-between[data-source='default']").Each(func(index int, item *goquery.Selection) {
		key := strings.TrimSpace(item.Find("span.name").Text())
		if !MatchHeader(key, []string{`^current\s*price$`}) {
			return
		}
		if price, ok := ParseNumber(item.Find("span.number").First().Text()); ok {
			meta.CurrentPrice = price
		}
	})
	return meta
}

// ParseCompanyStatements reads all three statements from a company page.
func ParseCompanyStatements(doc *goquery.Document) *types.StatementBundle {
	bundle := &types.StatementBundle{Meta: ParseCompanyMeta(doc)}

	if section := doc.Find("section#profit-loss"); section.Length() > 0 {
		bundle.Statements.Income = ParseStatementSection(section)
	}
	if section := doc.Find("section#balance-sheet"); section.Length() > 0 {
		bundle.Statements.Balance = ParseStatementSection(section)
	}
	if section := doc.Find("section#cash-flow"); section.Length() > 0 {
		bundle.Statements.CashFlow = ParseStatementSection(section)
	}
	return bundle
}

// ToStringArray converts a decoded BSON/JSON array into strings, keeping
// positions of non-string entries as blanks.
func ToStringArray(value interface{}) []string {
	var items []interface{}
	switch arr := value.(type) {
	case []interface{}:
		items = arr
	case primitive.A:
		items = arr
	case []string:
		return append([]string(nil), arr...)
	default:
		return []string{}
	}
	strArr := make([]string, 0, len(items))
	for _, v := range items {
		switch s := v.(type) {
		case string:
			strArr = append(strArr, s)
		case float64:
			strArr = append(strArr, strconv.FormatFloat(s, 'f', -1, 64))
		case int32:
			strArr = append(strArr, strconv.FormatInt(int64(s), 10))
		case int64:
			strArr = append(strArr, strconv.FormatInt(s, 10))
		default:
			strArr = append(strArr, "")
		}
	}
	return strArr
}

func reverseStrings(s []string) {
	for i, j := 0, len(s)-1; i < j; i, j = i+1, j-1 {
		s[i], s[j] = s[j], s[i]
	}
}
