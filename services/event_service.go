package services

import (
	"buffettbackend/types"
	"context"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// EventPublisher sends analysis events to a message bus.
type EventPublisher interface {
	Publish(ctx context.Context, event types.AnalysisCompletedEvent) error
}

const (
	EventSourceAPI       = "api"
	EventSourceWatchlist = "watchlist"
)

func NewAnalysisCompletedEvent(result *types.AnalysisResult, summary types.ScoreSummary, source string) types.AnalysisCompletedEvent {
	return types.AnalysisCompletedEvent{
		ID:         uuid.New().String(),
		Symbol:     result.Symbol,
		Company:    result.Meta.Name,
		Passed:     summary.Passed,
		Total:      summary.Total,
		Percentage: summary.Percentage,
		Band:       summary.Band,
		Failed:     FailedRatios(result.Ratios),
		Source:     source,
		AnalyzedAt: time.Now().UTC(),
	}
}

// PublishAnalysis is fire-and-report: a failed publish is logged and sent to
// Sentry but never fails the analysis itself.
func PublishAnalysis(ctx context.Context, publisher EventPublisher, result *types.AnalysisResult, summary types.ScoreSummary, source string) {
	if publisher == nil || result == nil {
		return
	}
	event := NewAnalysisCompletedEvent(result, summary, source)
	if err := publisher.Publish(ctx, event); err != nil {
		sentry.CaptureException(err)
		zap.L().Error("Failed to publish analysis event",
			zap.String("symbol", event.Symbol),
			zap.String("source", source),
			zap.Error(err))
		return
	}
	zap.L().Debug("Published analysis event", zap.String("symbol", event.Symbol), zap.String("id", event.ID))
}
