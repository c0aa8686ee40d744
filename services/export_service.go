package services

import (
	"buffettbackend/types"
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/getsentry/sentry-go"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

const (
	StatementIncome   = "income"
	StatementBalance  = "balance"
	StatementCashFlow = "cashflow"

	ratiosSheet    = "Ratios"
	exportFolder   = "buffett_exports"
	lineItemHeader = "Line Item"
)

var ErrUnknownStatement = errors.New("unknown statement")

type statementSheet struct {
	key   string
	title string
}

var statementSheets = []statementSheet{
	{StatementIncome, "Income Statement"},
	{StatementBalance, "Balance Sheet"},
	{StatementCashFlow, "Cash Flow"},
}

// StatementByKey picks one statement out of a result by its URL key.
func StatementByKey(statements types.Statements, key string) (*types.StatementTable, error) {
	switch strings.ToLower(key) {
	case StatementIncome:
		return statements.Income, nil
	case StatementBalance:
		return statements.Balance, nil
	case StatementCashFlow:
		return statements.CashFlow, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownStatement, key)
	}
}

// StatementTitle is the display name for a statement key, or the key itself.
func StatementTitle(key string) string {
	for _, sheet := range statementSheets {
		if sheet.key == strings.ToLower(key) {
			return sheet.title
		}
	}
	return key
}

// statementRecords lays a table out as header + one record per line item.
// Missing cells are blank.
func statementRecords(table *types.StatementTable) [][]string {
	var periods []string
	if table != nil {
		periods = table.Periods
	}
	records := [][]string{append([]string{lineItemHeader}, periods...)}
	for _, label := range table.Labels() {
		record := []string{label}
		for i := range periods {
			cell := ""
			if v, ok := table.Value(label, i); ok {
				cell = strconv.FormatFloat(v, 'f', -1, 64)
			}
			record = append(record, cell)
		}
		records = append(records, record)
	}
	return records
}

func WriteStatementCSV(w io.Writer, table *types.StatementTable) error {
	writer := csv.NewWriter(w)
	if err := writer.WriteAll(statementRecords(table)); err != nil {
		return fmt.Errorf("write statement csv: %w", err)
	}
	return nil
}

// WriteStatementXLSX writes a single statement as a one-sheet workbook.
func WriteStatementXLSX(w io.Writer, title string, table *types.StatementTable) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", title); err != nil {
		return err
	}
	if err := writeRecords(f, title, statementRecords(table)); err != nil {
		return err
	}
	_, err := f.WriteTo(w)
	return err
}

// BuildWorkbook renders the scored ratios and all three statements into one
// workbook, ratios first.
func BuildWorkbook(result *types.AnalysisResult) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", ratiosSheet); err != nil {
		f.Close()
		return nil, err
	}

	summary := Score(result.Ratios)
	records := [][]string{
		{"Symbol", result.Symbol},
		{"Company", result.Meta.Name},
		{"Score", fmt.Sprintf("%d/%d (%s%%)", summary.Passed, summary.Total, decimal.NewFromFloat(summary.Percentage).StringFixed(1))},
		{"Recommendation", BandMessage(summary.Band)},
		{},
		{"Category", "Ratio", "Value", "Reference", "Result"},
	}
	for _, def := range RatioCatalog {
		ratio, ok := result.Ratios[def.Name]
		if !ok {
			continue
		}
		verdict := "Fail"
		if Evaluate(ratio) {
			verdict = "Pass"
		}
		records = append(records, []string{string(ratio.Category), ratio.Name, formatRatioValue(ratio.Value), ratio.Reference, verdict})
	}
	if err := writeRecords(f, ratiosSheet, records); err != nil {
		f.Close()
		return nil, err
	}

	tables := map[string]*types.StatementTable{
		StatementIncome:   result.Statements.Income,
		StatementBalance:  result.Statements.Balance,
		StatementCashFlow: result.Statements.CashFlow,
	}
	for _, sheet := range statementSheets {
		table := tables[sheet.key]
		if table.IsEmpty() {
			continue
		}
		if _, err := f.NewSheet(sheet.title); err != nil {
			f.Close()
			return nil, err
		}
		if err := writeRecords(f, sheet.title, statementRecords(table)); err != nil {
			f.Close()
			return nil, err
		}
	}
	return f, nil
}

func writeRecords(f *excelize.File, sheet string, records [][]string) error {
	for i, record := range records {
		if len(record) == 0 {
			continue
		}
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		row := make([]interface{}, len(record))
		for j, v := range record {
			if n, err := strconv.ParseFloat(v, 64); err == nil && j > 0 && !math.IsNaN(n) && !math.IsInf(n, 0) {
				row[j] = n
				continue
			}
			row[j] = v
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("write row %d of %s: %w", i+1, sheet, err)
		}
	}
	return nil
}

func formatRatioValue(v types.RatioValue) string {
	if v.IsLabel() {
		return string(v.Label)
	}
	return decimal.NewFromFloat(v.Number).StringFixed(2)
}

// UploadWorkbook builds the workbook for result and stores it on Cloudinary,
// returning the secure URL.
func UploadWorkbook(ctx context.Context, cloudinaryURL string, result *types.AnalysisResult) (string, error) {
	span := sentry.StartSpan(ctx, "[DAO] UploadWorkbook")
	defer span.Finish()

	cld, err := cloudinary.NewFromURL(cloudinaryURL)
	if err != nil {
		span.Status = sentry.SpanStatusInternalError
		return "", fmt.Errorf("error initializing Cloudinary: %w", err)
	}

	f, err := BuildWorkbook(result)
	if err != nil {
		return "", fmt.Errorf("build workbook: %w", err)
	}
	defer f.Close()

	buf, err := f.WriteToBuffer()
	if err != nil {
		return "", fmt.Errorf("write workbook: %w", err)
	}

	publicID := result.Symbol + "-" + uuid.New().String() + ".xlsx"
	uploadSpan := sentry.StartSpan(span.Context(), "[DB] Upload XLSX File")
	uploadResult, err := cld.Upload.Upload(span.Context(), bytes.NewReader(buf.Bytes()), uploader.UploadParams{
		PublicID: publicID,
		Folder:   exportFolder,
	})
	uploadSpan.Finish()
	if err != nil {
		span.Status = sentry.SpanStatusInternalError
		return "", fmt.Errorf("error uploading workbook to Cloudinary: %w", err)
	}

	zap.L().Info("Workbook uploaded to Cloudinary", zap.String("symbol", result.Symbol), zap.String("url", uploadResult.SecureURL))
	return uploadResult.SecureURL, nil
}
