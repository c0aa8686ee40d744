package types

import (
	"encoding/json"
	"math"
	"time"
)

// Company is a single hit from the company search API
type Company struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
	URL  string `json:"url"`
}

// StatementTable holds one financial statement: line-item label -> values per
// reporting period, most recent period first. A missing cell is NaN.
type StatementTable struct {
	Periods []string
	labels  []string
	rows    map[string][]float64
}

func NewStatementTable(periods ...string) *StatementTable {
	return &StatementTable{
		Periods: periods,
		rows:    make(map[string][]float64),
	}
}

// SetRow adds or replaces a row. Values must be ordered most recent first.
func (t *StatementTable) SetRow(label string, values ...float64) *StatementTable {
	if _, exists := t.rows[label]; !exists {
		t.labels = append(t.labels, label)
	}
	t.rows[label] = append([]float64(nil), values...)
	return t
}

func (t *StatementTable) HasRow(label string) bool {
	if t == nil {
		return false
	}
	_, ok := t.rows[label]
	return ok
}

// Value returns the cell for label at period, reporting false when the row or
// period is missing or the cell is null.
func (t *StatementTable) Value(label string, period int) (float64, bool) {
	if t == nil || period < 0 {
		return 0, false
	}
	values, ok := t.rows[label]
	if !ok || period >= len(values) {
		return 0, false
	}
	v := values[period]
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// Row returns a copy of a row's values.
func (t *StatementTable) Row(label string) []float64 {
	if t == nil {
		return nil
	}
	return append([]float64(nil), t.rows[label]...)
}

// Labels returns the row labels in insertion order.
func (t *StatementTable) Labels() []string {
	if t == nil {
		return nil
	}
	return append([]string(nil), t.labels...)
}

func (t *StatementTable) Len() int {
	if t == nil {
		return 0
	}
	return len(t.labels)
}

func (t *StatementTable) IsEmpty() bool {
	return t.Len() == 0
}

type statementRowJSON struct {
	Label  string     `json:"label"`
	Values []*float64 `json:"values"`
}

type statementTableJSON struct {
	Periods []string           `json:"periods"`
	Rows    []statementRowJSON `json:"rows"`
}

// MarshalJSON writes null for missing cells so NaN never reaches the encoder.
func (t *StatementTable) MarshalJSON() ([]byte, error) {
	out := statementTableJSON{Periods: t.Periods, Rows: make([]statementRowJSON, 0, len(t.labels))}
	for _, label := range t.labels {
		row := statementRowJSON{Label: label}
		for _, v := range t.rows[label] {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				row.Values = append(row.Values, nil)
				continue
			}
			cell := v
			row.Values = append(row.Values, &cell)
		}
		out.Rows = append(out.Rows, row)
	}
	return json.Marshal(out)
}

func (t *StatementTable) UnmarshalJSON(data []byte) error {
	var in statementTableJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	*t = *NewStatementTable(in.Periods...)
	for _, row := range in.Rows {
		values := make([]float64, len(row.Values))
		for i, v := range row.Values {
			if v == nil {
				values[i] = math.NaN()
				continue
			}
			values[i] = *v
		}
		t.SetRow(row.Label, values...)
	}
	return nil
}

// Statements groups the three statements of one company. Any of them may be nil.
type Statements struct {
	Income   *StatementTable `json:"incomeStatement"`
	Balance  *StatementTable `json:"balanceSheet"`
	CashFlow *StatementTable `json:"cashFlow"`
}

// CompanyMeta is best-effort descriptive data; zero values mean unknown.
type CompanyMeta struct {
	Name         string  `json:"name"`
	Sector       string  `json:"sector"`
	Industry     string  `json:"industry"`
	CurrentPrice float64 `json:"currentPrice"`
}

// StatementBundle is what a statement source hands to the ratio engine.
type StatementBundle struct {
	Meta       CompanyMeta
	Statements Statements
}

type ComparisonMode string

const (
	AtLeast                ComparisonMode = "at-least"
	AtMost                 ComparisonMode = "at-most"
	Near                   ComparisonMode = "near"
	CategoricalAbsence     ComparisonMode = "categorical-absence"
	CategoricalPresence    ComparisonMode = "categorical-presence"
	CategoricalDirectional ComparisonMode = "categorical-directional"
)

type RatioLabel string

const (
	LabelExists    RatioLabel = "Exists"
	LabelNone      RatioLabel = "None"
	LabelGrowing   RatioLabel = "Growing"
	LabelDeclining RatioLabel = "Declining"
)

type RatioCategory string

const (
	IncomeStatementCategory RatioCategory = "Income Statement"
	BalanceSheetCategory    RatioCategory = "Balance Sheet"
	CashFlowCategory        RatioCategory = "Cash Flow"
)

// RatioValue is either a number or one of the categorical labels.
type RatioValue struct {
	Number float64
	Label  RatioLabel
}

func NumberValue(v float64) RatioValue { return RatioValue{Number: v} }

func LabelValue(l RatioLabel) RatioValue { return RatioValue{Label: l} }

func (v RatioValue) IsLabel() bool { return v.Label != "" }

func (v RatioValue) MarshalJSON() ([]byte, error) {
	if v.IsLabel() {
		return json.Marshal(string(v.Label))
	}
	return json.Marshal(v.Number)
}

func (v *RatioValue) UnmarshalJSON(data []byte) error {
	var label string
	if err := json.Unmarshal(data, &label); err == nil {
		*v = LabelValue(RatioLabel(label))
		return nil
	}
	var n float64
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*v = NumberValue(n)
	return nil
}

type RatioResult struct {
	Name      string         `json:"name"`
	Category  RatioCategory  `json:"category"`
	Value     RatioValue     `json:"value"`
	Reference string         `json:"reference"`
	Threshold *float64       `json:"threshold"`
	Rationale string         `json:"rationale"`
	Mode      ComparisonMode `json:"mode"`
	Computed  bool           `json:"computed"`
}

type AnalysisResult struct {
	Symbol     string                 `json:"symbol"`
	Meta       CompanyMeta            `json:"company"`
	Statements Statements             `json:"statements"`
	Ratios     map[string]RatioResult `json:"ratios"`
}

type RecommendationBand string

const (
	BandStrong   RecommendationBand = "Strong"
	BandModerate RecommendationBand = "Moderate"
	BandCaution  RecommendationBand = "Caution"
)

type ScoreSummary struct {
	Passed     int                `json:"passed"`
	Total      int                `json:"total"`
	Percentage float64            `json:"percentage"`
	Band       RecommendationBand `json:"band"`
}

// AnalysisCompletedEvent is published on the message bus after an analysis.
type AnalysisCompletedEvent struct {
	ID         string             `json:"id"`
	Symbol     string             `json:"symbol"`
	Company    string             `json:"company"`
	Passed     int                `json:"passed"`
	Total      int                `json:"total"`
	Percentage float64            `json:"percentage"`
	Band       RecommendationBand `json:"band"`
	Failed     []string           `json:"failed"`
	Source     string             `json:"source"`
	AnalyzedAt time.Time          `json:"analyzedAt"`
}

// ReportRatio is a computed ratio with its pass/fail verdict.
type ReportRatio struct {
	RatioResult
	Passed bool `json:"passed"`
}

// ReportSection groups the ratios of one statement category.
type ReportSection struct {
	Category RatioCategory `json:"category"`
	Ratios   []ReportRatio `json:"ratios"`
}

// AnalysisReport is the API view of an analysis.
type AnalysisReport struct {
	Symbol     string          `json:"symbol"`
	Company    CompanyMeta     `json:"company"`
	Score      ScoreSummary    `json:"score"`
	Message    string          `json:"message"`
	Sections   []ReportSection `json:"sections"`
	Statements Statements      `json:"statements"`
}
