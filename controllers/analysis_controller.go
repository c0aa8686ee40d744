package controllers

import (
	"buffettbackend/services"
	"buffettbackend/types"
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/getsentry/sentry-go"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type AnalysisControllerI interface {
	Analyze(ctx *gin.Context)
	ExportStatement(ctx *gin.Context)
	UploadWorkbook(ctx *gin.Context)
}

type analysisController struct {
	engine        services.Analyzer
	publisher     services.EventPublisher
	cloudinaryURL string
}

// AnalysisController is wired in main once the statement source is known.
var AnalysisController AnalysisControllerI = &analysisController{}

func NewAnalysisController(engine services.Analyzer, publisher services.EventPublisher, cloudinaryURL string) AnalysisControllerI {
	return &analysisController{engine: engine, publisher: publisher, cloudinaryURL: cloudinaryURL}
}

type exportFormat struct {
	contentType string
	write       func(w io.Writer, key string, table *types.StatementTable) error
}

var exportFormats = map[string]exportFormat{
	"csv": {
		contentType: "text/csv",
		write: func(w io.Writer, _ string, table *types.StatementTable) error {
			return services.WriteStatementCSV(w, table)
		},
	},
	"xlsx": {
		contentType: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		write: func(w io.Writer, key string, table *types.StatementTable) error {
			return services.WriteStatementXLSX(w, services.StatementTitle(key), table)
		},
	},
}

func notFound(ctx *gin.Context, symbol string) {
	ctx.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("Could not fetch data for %s", strings.ToUpper(strings.TrimSpace(symbol)))})
}

// analyze runs the engine for the :symbol path param, answering 404 itself
// when there is nothing to show.
func (a *analysisController) analyze(ctx *gin.Context, span *sentry.Span) (*types.AnalysisResult, bool) {
	symbol := ctx.Param("symbol")
	if a.engine == nil {
		ctx.JSON(http.StatusServiceUnavailable, gin.H{"error": "Analysis engine is not configured"})
		return nil, false
	}
	result, ok := a.engine.Analyze(span.Context(), symbol)
	if !ok {
		span.Status = sentry.SpanStatusNotFound
		notFound(ctx, symbol)
		return nil, false
	}
	return result, true
}

func (a *analysisController) Analyze(ctx *gin.Context) {
	span := sentry.StartSpan(ctx.Request.Context(), "[GIN] Analyze", sentry.WithTransactionName("Analyze"))
	defer span.Finish()

	result, ok := a.analyze(ctx, span)
	if !ok {
		return
	}

	report := services.BuildReport(result)
	services.PublishAnalysis(span.Context(), a.publisher, result, report.Score, services.EventSourceAPI)
	ctx.JSON(http.StatusOK, report)
}

func (a *analysisController) ExportStatement(ctx *gin.Context) {
	span := sentry.StartSpan(ctx.Request.Context(), "[GIN] ExportStatement", sentry.WithTransactionName("ExportStatement"))
	defer span.Finish()

	format := strings.ToLower(ctx.DefaultQuery("format", "csv"))
	exporter, known := exportFormats[format]
	if !known {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "format must be csv or xlsx"})
		return
	}

	result, ok := a.analyze(ctx, span)
	if !ok {
		return
	}

	key := ctx.Param("statement")
	table, err := services.StatementByKey(result.Statements, key)
	if errors.Is(err, services.ErrUnknownStatement) {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("Unknown statement %q", key)})
		return
	}
	if table.IsEmpty() {
		ctx.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("No %s statement for %s", key, result.Symbol)})
		return
	}

	var buf bytes.Buffer
	if err := exporter.write(&buf, key, table); err != nil {
		span.Status = sentry.SpanStatusInternalError
		sentry.CaptureException(err)
		zap.L().Error("Error writing statement export", zap.String("symbol", result.Symbol), zap.String("format", format), zap.Error(err))
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Could not build the export"})
		return
	}

	filename := fmt.Sprintf("%s_%s.%s", result.Symbol, strings.ToLower(key), format)
	ctx.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	ctx.Data(http.StatusOK, exporter.contentType, buf.Bytes())
}

func (a *analysisController) UploadWorkbook(ctx *gin.Context) {
	span := sentry.StartSpan(ctx.Request.Context(), "[GIN] UploadWorkbook", sentry.WithTransactionName("UploadWorkbook"))
	defer span.Finish()

	if a.cloudinaryURL == "" {
		ctx.JSON(http.StatusServiceUnavailable, gin.H{"error": "Workbook uploads are not configured"})
		return
	}

	result, ok := a.analyze(ctx, span)
	if !ok {
		return
	}

	url, err := services.UploadWorkbook(span.Context(), a.cloudinaryURL, result)
	if err != nil {
		sentry.CaptureException(err)
		zap.L().Error("Error uploading workbook", zap.String("symbol", result.Symbol), zap.Error(err))
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Error uploading workbook"})
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"symbol": result.Symbol, "url": url})
}
