package services

import (
	"buffettbackend/types"
	"context"
	"time"

	"go.uber.org/zap"
)

// Analyzer is the part of RatioEngine the watchlist needs.
type Analyzer interface {
	Analyze(ctx context.Context, symbol string) (*types.AnalysisResult, bool)
}

type SweepStats struct {
	Analyzed int
	Missing  int
}

// SweepWatchlist analyzes every symbol in turn, pausing between symbols so the
// statement source is not hammered, and publishes one event per analysis.
func SweepWatchlist(ctx context.Context, analyzer Analyzer, publisher EventPublisher, symbols []string, pause time.Duration) SweepStats {
	var stats SweepStats
	for i, symbol := range symbols {
		if ctx.Err() != nil {
			break
		}
		if i > 0 && pause > 0 {
			select {
			case <-ctx.Done():
				return stats
			case <-time.After(pause):
			}
		}

		result, ok := analyzer.Analyze(ctx, symbol)
		if !ok {
			stats.Missing++
			zap.L().Warn("Watchlist symbol has no data", zap.String("symbol", symbol))
			continue
		}
		stats.Analyzed++

		summary := Score(result.Ratios)
		zap.L().Info("Watchlist analysis",
			zap.String("symbol", result.Symbol),
			zap.Int("passed", summary.Passed),
			zap.Int("total", summary.Total),
			zap.Float64("percentage", summary.Percentage),
			zap.String("band", string(summary.Band)))
		PublishAnalysis(ctx, publisher, result, summary, EventSourceWatchlist)
	}
	return stats
}

// Watchlist is a running periodic sweep.
type Watchlist struct {
	ticker *time.Ticker
	cancel context.CancelFunc
	done   chan struct{}
}

// StartWatchlist sweeps the watchlist on every tick until Stop is called.
func StartWatchlist(analyzer Analyzer, publisher EventPublisher, symbols []string, interval time.Duration) *Watchlist {
	return startWatchlist(analyzer, publisher, symbols, interval, time.Second)
}

func startWatchlist(analyzer Analyzer, publisher EventPublisher, symbols []string, interval, pause time.Duration) *Watchlist {
	ctx, cancel := context.WithCancel(context.Background())
	w := &Watchlist{
		ticker: time.NewTicker(interval),
		cancel: cancel,
		done:   make(chan struct{}),
	}

	go func() {
		defer close(w.done)
		for {
			select {
			case <-ctx.Done():
				return
			case t := <-w.ticker.C:
				zap.L().Info("Watchlist tick at: ", zap.String("time", t.String()))
				stats := SweepWatchlist(ctx, analyzer, publisher, symbols, pause)
				zap.L().Info("Watchlist sweep finished", zap.Int("analyzed", stats.Analyzed), zap.Int("missing", stats.Missing))
			}
		}
	}()
	return w
}

// Stop halts the ticker, cancels a sweep in progress between symbols and
// waits for the sweep goroutine to exit.
func (w *Watchlist) Stop() {
	w.ticker.Stop()
	w.cancel()
	<-w.done
}
