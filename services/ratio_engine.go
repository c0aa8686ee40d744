package services

import (
	"buffettbackend/types"
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"strings"
	"sync"

	"github.com/getsentry/sentry-go"
	"go.uber.org/zap"
)

// ErrStatementsNotFound is returned by statement sources for unknown symbols.
var ErrStatementsNotFound = errors.New("statements not found")

// StatementFetcher supplies the three statements for a symbol.
type StatementFetcher interface {
	FetchStatements(ctx context.Context, symbol string) (*types.StatementBundle, error)
}

type RatioEngine struct {
	fetcher  StatementFetcher
	parallel bool
	catalog  []RatioDefinition
}

func NewRatioEngine(fetcher StatementFetcher, parallel bool) *RatioEngine {
	return &RatioEngine{
		fetcher:  fetcher,
		parallel: parallel,
		catalog:  RatioCatalog,
	}
}

// Analyze fetches the statements for symbol once and computes every rule the
// statements support. It returns false when the statements could not be
// fetched; that is a "no data" answer for the caller, never a crash.
func (e *RatioEngine) Analyze(ctx context.Context, symbol string) (*types.AnalysisResult, bool) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return nil, false
	}

	span := sentry.StartSpan(ctx, "[SERVICE] Analyze")
	defer span.Finish()

	bundle, err := e.fetchStatements(span.Context(), symbol)
	if err != nil {
		if !errors.Is(err, ErrStatementsNotFound) {
			sentry.CaptureException(fmt.Errorf("fetch statements for %s: %w", symbol, err))
		}
		zap.L().Warn("Could not fetch statements", zap.String("symbol", symbol), zap.Error(err))
		span.Status = sentry.SpanStatusNotFound
		return nil, false
	}
	if bundle == nil {
		zap.L().Warn("Statement source returned no data", zap.String("symbol", symbol))
		span.Status = sentry.SpanStatusNotFound
		return nil, false
	}

	result := &types.AnalysisResult{
		Symbol:     symbol,
		Meta:       bundle.Meta,
		Statements: bundle.Statements,
		Ratios:     e.computeRatios(symbol, bundle.Statements),
	}

	zap.L().Info("Analysis completed",
		zap.String("symbol", symbol),
		zap.Int("computed", len(result.Ratios)),
		zap.Int("catalog", len(e.catalog)))
	return result, true
}

// fetchStatements calls the statement source, turning a panic inside it into a
// not-found error.
func (e *RatioEngine) fetchStatements(ctx context.Context, symbol string) (bundle *types.StatementBundle, err error) {
	defer func() {
		if r := recover(); r != nil {
			zap.L().Error("Statement source panicked",
				zap.String("symbol", symbol),
				zap.Any("panic", r),
				zap.String("stack", string(debug.Stack())))
			sentry.CurrentHub().Recover(r)
			bundle, err = nil, fmt.Errorf("%w: statement source panicked: %v", ErrStatementsNotFound, r)
		}
	}()
	return e.fetcher.FetchStatements(ctx, symbol)
}

func (e *RatioEngine) computeRatios(symbol string, statements types.Statements) map[string]types.RatioResult {
	ratios := make(map[string]types.RatioResult, len(e.catalog))

	if !e.parallel {
		for _, def := range e.catalog {
			if ratio, ok := computeRatio(symbol, def, statements); ok {
				ratios[def.Name] = ratio
			}
		}
		return ratios
	}

	var mu sync.Mutex
	var wg sync.WaitGroup
	for _, def := range e.catalog {
		wg.Add(1)
		go func(def RatioDefinition) {
			defer wg.Done()
			ratio, ok := computeRatio(symbol, def, statements)
			if !ok {
				return
			}
			mu.Lock()
			ratios[def.Name] = ratio
			mu.Unlock()
		}(def)
	}
	wg.Wait()
	return ratios
}

// computeRatio runs one rule in isolation; a panicking rule is treated as not
// computable.
func computeRatio(symbol string, def RatioDefinition, statements types.Statements) (ratio types.RatioResult, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			zap.L().Error("Ratio computation panicked",
				zap.String("symbol", symbol),
				zap.String("ratio", def.Name),
				zap.Any("panic", r),
				zap.String("stack", string(debug.Stack())))
			ratio, ok = types.RatioResult{}, false
		}
	}()

	value, computed := def.Compute(statements)
	if !computed {
		zap.L().Debug("Could not calculate ratio", zap.String("symbol", symbol), zap.String("ratio", def.Name))
		return types.RatioResult{}, false
	}

	return types.RatioResult{
		Name:      def.Name,
		Category:  def.Category,
		Value:     value,
		Reference: def.Reference,
		Threshold: copyThreshold(def.Threshold),
		Rationale: def.Rationale,
		Mode:      def.Mode,
		Computed:  true,
	}, true
}

func copyThreshold(t *float64) *float64 {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
