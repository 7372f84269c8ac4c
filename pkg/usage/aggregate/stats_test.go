package aggregate

import (
	"context"
	"testing"
	"time"

	"arbiter-ai/arbiter/pkg/usage"
)

func saveSummary(t *testing.T, store usage.Store, accountID, provider, model string, date time.Time, requests int64, cost float64) {
	t.Helper()
	err := store.SaveSummary(context.Background(), &usage.DailySummary{
		AccountID:    accountID,
		Provider:     provider,
		Model:        model,
		Date:         date,
		RequestCount: requests,
		InputTokens:  requests * 1000,
		OutputTokens: requests * 500,
		TotalCost:    cost,
	})
	if err != nil {
		t.Fatalf("SaveSummary failed: %v", err)
	}
}

func TestStatsForAccount(t *testing.T) {
	aggregator, store := newTestAggregator(t, false)
	ctx := context.Background()

	saveSummary(t, store, "acct-1", "openai", "gpt-4o", baseDay, 10, 2.50)
	saveSummary(t, store, "acct-1", "openai", "gpt-4o", baseDay.AddDate(0, 0, 1), 5, 1.25)
	saveSummary(t, store, "acct-1", "anthropic", "claude-sonnet-4", baseDay, 4, 3.00)
	saveSummary(t, store, "acct-2", "openai", "gpt-4o", baseDay, 100, 50.00)

	stats, err := aggregator.StatsForAccount(ctx, "acct-1", baseDay, baseDay.AddDate(0, 0, 1))
	if err != nil {
		t.Fatalf("StatsForAccount failed: %v", err)
	}

	if stats.RequestCount != 19 {
		t.Errorf("Expected 19 requests, got %d", stats.RequestCount)
	}
	if stats.TotalCost != 6.75 {
		t.Errorf("Expected total cost 6.75, got %v", stats.TotalCost)
	}
	if len(stats.ByModel) != 2 {
		t.Fatalf("Expected 2 models, got %d", len(stats.ByModel))
	}
	if stats.ByModel["gpt-4o"].RequestCount != 15 {
		t.Errorf("Expected 15 gpt-4o requests, got %d", stats.ByModel["gpt-4o"].RequestCount)
	}
	if stats.ByProvider["anthropic"] != 3.00 {
		t.Errorf("Expected anthropic cost 3.00, got %v", stats.ByProvider["anthropic"])
	}
}

func TestTopModels(t *testing.T) {
	aggregator, store := newTestAggregator(t, false)
	ctx := context.Background()

	saveSummary(t, store, "acct-1", "openai", "gpt-4o", baseDay, 10, 2.50)
	saveSummary(t, store, "acct-1", "anthropic", "claude-sonnet-4", baseDay, 4, 3.00)
	saveSummary(t, store, "acct-2", "openai", "gpt-4o-mini", baseDay, 200, 0.90)

	ranked, err := aggregator.TopModels(ctx, "", baseDay, baseDay, 2)
	if err != nil {
		t.Fatalf("TopModels failed: %v", err)
	}
	if len(ranked) != 2 {
		t.Fatalf("Expected 2 models, got %d", len(ranked))
	}
	if ranked[0].Model != "claude-sonnet-4" {
		t.Errorf("Expected claude-sonnet-4 first, got %s", ranked[0].Model)
	}
	if ranked[1].Model != "gpt-4o" {
		t.Errorf("Expected gpt-4o second, got %s", ranked[1].Model)
	}

	scoped, err := aggregator.TopModels(ctx, "acct-2", baseDay, baseDay, 0)
	if err != nil {
		t.Fatalf("TopModels failed: %v", err)
	}
	if len(scoped) != 1 || scoped[0].Model != "gpt-4o-mini" {
		t.Errorf("Expected only acct-2's model, got %+v", scoped)
	}
}

func TestUsageTrend_ZeroFillsGaps(t *testing.T) {
	aggregator, store := newTestAggregator(t, false)
	ctx := context.Background()

	saveSummary(t, store, "acct-1", "openai", "gpt-4o", baseDay, 10, 2.50)
	saveSummary(t, store, "acct-1", "openai", "gpt-4o", baseDay.AddDate(0, 0, 2), 5, 1.25)

	trend, err := aggregator.UsageTrend(ctx, "acct-1", baseDay, baseDay.AddDate(0, 0, 2))
	if err != nil {
		t.Fatalf("UsageTrend failed: %v", err)
	}
	if len(trend) != 3 {
		t.Fatalf("Expected 3 trend points, got %d", len(trend))
	}
	if trend[0].RequestCount != 10 {
		t.Errorf("Expected 10 requests on day 0, got %d", trend[0].RequestCount)
	}
	if trend[1].RequestCount != 0 || trend[1].TotalCost != 0 {
		t.Errorf("Expected zero-filled gap day, got %+v", trend[1])
	}
	if !trend[1].Date.Equal(baseDay.AddDate(0, 0, 1)) {
		t.Errorf("Expected gap day %v, got %v", baseDay.AddDate(0, 0, 1), trend[1].Date)
	}
	if trend[2].RequestCount != 5 {
		t.Errorf("Expected 5 requests on day 2, got %d", trend[2].RequestCount)
	}
}
