package aggregate

import (
	"context"
	"sort"
	"time"

	"arbiter-ai/arbiter/pkg/usage"
)

// ModelStats is the aggregated usage of one model within a stats query.
type ModelStats struct {
	Model        string  `json:"model"`
	RequestCount int64   `json:"request_count"`
	InputTokens  int64   `json:"input_tokens"`
	OutputTokens int64   `json:"output_tokens"`
	TotalCost    float64 `json:"total_cost"`
}

// AccountStats is the aggregated usage of one account over a date range,
// computed from daily summaries.
type AccountStats struct {
	AccountID string    `json:"account_id"`
	From      time.Time `json:"from"`
	To        time.Time `json:"to"`

	RequestCount int64   `json:"request_count"`
	InputTokens  int64   `json:"input_tokens"`
	OutputTokens int64   `json:"output_tokens"`
	TotalCost    float64 `json:"total_cost"`

	// ByModel breaks the totals down per model.
	ByModel map[string]*ModelStats `json:"by_model"`

	// ByProvider breaks the total cost down per provider.
	ByProvider map[string]float64 `json:"by_provider"`
}

// TrendPoint is one day in a usage trend.
type TrendPoint struct {
	Date         time.Time `json:"date"`
	RequestCount int64     `json:"request_count"`
	TotalCost    float64   `json:"total_cost"`
}

// StatsForAccount computes an account's aggregated usage between two dates,
// inclusive, from its daily summaries.
func (a *Aggregator) StatsForAccount(ctx context.Context, accountID string, from, to time.Time) (*AccountStats, error) {
	summaries, err := a.store.SummariesInRange(ctx, accountID, from, to)
	if err != nil {
		return nil, err
	}

	stats := &AccountStats{
		AccountID:  accountID,
		From:       usage.DateOf(from),
		To:         usage.DateOf(to),
		ByModel:    make(map[string]*ModelStats),
		ByProvider: make(map[string]float64),
	}

	for _, summary := range summaries {
		stats.RequestCount += summary.RequestCount
		stats.InputTokens += summary.InputTokens
		stats.OutputTokens += summary.OutputTokens
		stats.TotalCost += summary.TotalCost

		model, ok := stats.ByModel[summary.Model]
		if !ok {
			model = &ModelStats{Model: summary.Model}
			stats.ByModel[summary.Model] = model
		}
		model.RequestCount += summary.RequestCount
		model.InputTokens += summary.InputTokens
		model.OutputTokens += summary.OutputTokens
		model.TotalCost += summary.TotalCost

		stats.ByProvider[summary.Provider] += summary.TotalCost
	}

	return stats, nil
}

// TopModels returns the n most expensive models between two dates, ordered
// by total cost descending. An empty accountID ranks across all accounts.
func (a *Aggregator) TopModels(ctx context.Context, accountID string, from, to time.Time, n int) ([]*ModelStats, error) {
	summaries, err := a.store.SummariesInRange(ctx, accountID, from, to)
	if err != nil {
		return nil, err
	}

	byModel := make(map[string]*ModelStats)
	for _, summary := range summaries {
		model, ok := byModel[summary.Model]
		if !ok {
			model = &ModelStats{Model: summary.Model}
			byModel[summary.Model] = model
		}
		model.RequestCount += summary.RequestCount
		model.InputTokens += summary.InputTokens
		model.OutputTokens += summary.OutputTokens
		model.TotalCost += summary.TotalCost
	}

	ranked := make([]*ModelStats, 0, len(byModel))
	for _, model := range byModel {
		ranked = append(ranked, model)
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].TotalCost != ranked[j].TotalCost {
			return ranked[i].TotalCost > ranked[j].TotalCost
		}
		return ranked[i].Model < ranked[j].Model
	})

	if n > 0 && len(ranked) > n {
		ranked = ranked[:n]
	}
	return ranked, nil
}

// UsageTrend returns one point per day between two dates, inclusive. Days
// with no summaries appear as zero points so the series has no gaps.
func (a *Aggregator) UsageTrend(ctx context.Context, accountID string, from, to time.Time) ([]TrendPoint, error) {
	summaries, err := a.store.SummariesInRange(ctx, accountID, from, to)
	if err != nil {
		return nil, err
	}

	byDate := make(map[time.Time]*TrendPoint)
	for _, summary := range summaries {
		point, ok := byDate[summary.Date]
		if !ok {
			point = &TrendPoint{Date: summary.Date}
			byDate[summary.Date] = point
		}
		point.RequestCount += summary.RequestCount
		point.TotalCost += summary.TotalCost
	}

	var trend []TrendPoint
	for day := usage.DateOf(from); !day.After(usage.DateOf(to)); day = day.AddDate(0, 0, 1) {
		if point, ok := byDate[day]; ok {
			trend = append(trend, *point)
		} else {
			trend = append(trend, TrendPoint{Date: day})
		}
	}
	return trend, nil
}
