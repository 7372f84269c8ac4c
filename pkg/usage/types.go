package usage

import (
	"time"

	"github.com/google/uuid"
)

// Record is the usage captured for a single completed inference request.
type Record struct {
	// ID uniquely identifies the record.
	ID string `json:"id"`

	// AccountID is the account the request was billed to.
	AccountID string `json:"account_id"`

	// Provider is the upstream provider that served the request.
	Provider string `json:"provider"`

	// Model is the model that served the request.
	Model string `json:"model"`

	// InputTokens and OutputTokens are the actual token counts reported by
	// the provider.
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`

	// Cost is the request cost in USD.
	Cost float64 `json:"cost"`

	// Status records how the request finished.
	Status string `json:"status"`

	// Timestamp is when the request completed.
	Timestamp time.Time `json:"timestamp"`
}

// Request statuses stored on usage records.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// NewRecord creates a usage record with a generated ID and the current time.
// An empty status defaults to StatusSuccess.
func NewRecord(accountID, provider, model string, inputTokens, outputTokens int, cost float64, status string) *Record {
	if status == "" {
		status = StatusSuccess
	}
	return &Record{
		ID:           uuid.New().String(),
		AccountID:    accountID,
		Provider:     provider,
		Model:        model,
		InputTokens:  inputTokens,
		OutputTokens: outputTokens,
		Cost:         cost,
		Status:       status,
		Timestamp:    time.Now().UTC(),
	}
}

// SummaryKey identifies one daily summary row: the unique combination of
// account, provider, model, and calendar date.
type SummaryKey struct {
	AccountID string
	Provider  string
	Model     string
	Date      time.Time
}

// DailySummary is the aggregated usage for one account, provider, and model
// on one calendar date.
type DailySummary struct {
	// AccountID, Provider, Model, Date identify the summary.
	AccountID string    `json:"account_id"`
	Provider  string    `json:"provider"`
	Model     string    `json:"model"`
	Date      time.Time `json:"date"`

	// RequestCount is the number of requests rolled into the summary.
	RequestCount int64 `json:"request_count"`

	// InputTokens and OutputTokens are the summed token counts.
	InputTokens  int64 `json:"input_tokens"`
	OutputTokens int64 `json:"output_tokens"`

	// TotalTokens is the summed token count, input plus output.
	TotalTokens int64 `json:"total_tokens"`

	// TotalCost is the summed cost in USD.
	TotalCost float64 `json:"total_cost"`

	// UpdatedAt is when the summary was last written.
	UpdatedAt time.Time `json:"updated_at"`
}

// Key returns the summary's identifying key.
func (s *DailySummary) Key() SummaryKey {
	return SummaryKey{
		AccountID: s.AccountID,
		Provider:  s.Provider,
		Model:     s.Model,
		Date:      s.Date,
	}
}

// DateOf truncates an instant to its UTC calendar date, the canonical form
// for summary dates and watermarks.
func DateOf(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
