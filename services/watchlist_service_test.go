package services

import (
	"buffettbackend/types"
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAnalysisCompletedEvent(t *testing.T) {
	engine, _ := engineFor(fixtureStatements(RowCurrentDebt), false)
	result, ok := engine.Analyze(context.Background(), "KO")
	require.True(t, ok)
	result.Ratios["Gross Margin"] = numericRatio(types.AtLeast, 10, 40)

	summary := Score(result.Ratios)
	event := NewAnalysisCompletedEvent(result, summary, EventSourceAPI)

	assert.NotEmpty(t, event.ID)
	assert.Equal(t, "KO", event.Symbol)
	assert.Equal(t, "Coca-Cola", event.Company)
	assert.Equal(t, 12, event.Passed)
	assert.Equal(t, 13, event.Total)
	assert.Equal(t, []string{"Gross Margin"}, event.Failed)
	assert.Equal(t, EventSourceAPI, event.Source)
	assert.False(t, event.AnalyzedAt.IsZero())
}

func TestPublishAnalysis_NilPublisher(t *testing.T) {
	assert.NotPanics(t, func() {
		PublishAnalysis(context.Background(), nil, &types.AnalysisResult{Symbol: "KO"}, types.ScoreSummary{}, EventSourceAPI)
	})
}

func TestPublishAnalysis_ErrorIsSwallowed(t *testing.T) {
	publisher := &recordingPublisher{err: errors.New("broker down")}
	assert.NotPanics(t, func() {
		PublishAnalysis(context.Background(), publisher, &types.AnalysisResult{Symbol: "KO"}, types.ScoreSummary{}, EventSourceAPI)
	})
	assert.Empty(t, publisher.events)
}

func TestSweepWatchlist(t *testing.T) {
	engine, fetcher := engineFor(fixtureStatements(), true)
	publisher := &recordingPublisher{}

	stats := SweepWatchlist(context.Background(), engine, publisher, []string{"KO", "NOPE", "ko"}, 0)

	assert.Equal(t, SweepStats{Analyzed: 2, Missing: 1}, stats)
	assert.Equal(t, 3, fetcher.calls)
	require.Len(t, publisher.events, 2)
	for _, event := range publisher.events {
		assert.Equal(t, "KO", event.Symbol)
		assert.Equal(t, EventSourceWatchlist, event.Source)
		assert.Equal(t, types.BandStrong, event.Band)
	}
	assert.NotEqual(t, publisher.events[0].ID, publisher.events[1].ID)
}

func TestSweepWatchlist_CancelledContext(t *testing.T) {
	engine, fetcher := engineFor(fixtureStatements(), false)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	stats := SweepWatchlist(ctx, engine, nil, []string{"KO", "KO"}, 0)
	assert.Equal(t, SweepStats{}, stats)
	assert.Zero(t, fetcher.calls)
}

type countingAnalyzer struct {
	calls atomic.Int32
}

func (c *countingAnalyzer) Analyze(_ context.Context, symbol string) (*types.AnalysisResult, bool) {
	c.calls.Add(1)
	return nil, false
}

func TestStartWatchlist_StopEndsSweeps(t *testing.T) {
	analyzer := &countingAnalyzer{}
	watchlist := startWatchlist(analyzer, nil, []string{"KO"}, 5*time.Millisecond, 0)

	require.Eventually(t, func() bool { return analyzer.calls.Load() > 0 }, time.Second, time.Millisecond)

	stopped := make(chan struct{})
	go func() {
		watchlist.Stop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("watchlist goroutine did not exit")
	}

	calls := analyzer.calls.Load()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, calls, analyzer.calls.Load())
}

func TestStartWatchlist_StopCancelsSweepInProgress(t *testing.T) {
	analyzer := &countingAnalyzer{}
	watchlist := startWatchlist(analyzer, nil, []string{"KO", "PEP", "MCD"}, time.Millisecond, time.Hour)

	require.Eventually(t, func() bool { return analyzer.calls.Load() == 1 }, time.Second, time.Millisecond)
	watchlist.Stop()
	assert.Equal(t, int32(1), analyzer.calls.Load())
}
