package storage

import (
	"context"
	"time"

	"arbiter-ai/arbiter/pkg/limits/spend"
)

// TrackerState is the persisted counter state for one account's tracker.
type TrackerState struct {
	// AccountID is the owning account.
	AccountID string `json:"account_id"`

	// Counters holds the spend totals, request counters, and window
	// timestamps.
	Counters spend.State `json:"counters"`

	// LastUpdated is when this state was last saved.
	LastUpdated time.Time `json:"last_updated"`

	// CreatedAt is when this state was first saved.
	CreatedAt time.Time `json:"created_at"`
}

// Backend persists tracker state across restarts.
//
// Persistence is best-effort and asynchronous with respect to request
// handling: the in-memory tracker is the source of truth, and the backend
// only needs to be close enough that counters survive a restart.
type Backend interface {
	// Save persists the state for an account, replacing any previous state.
	Save(ctx context.Context, state *TrackerState) error

	// Load retrieves the state for an account. Returns (nil, nil) when no
	// state is stored.
	Load(ctx context.Context, accountID string) (*TrackerState, error)

	// Delete removes the state for an account.
	Delete(ctx context.Context, accountID string) error

	// List returns all stored states.
	List(ctx context.Context) ([]*TrackerState, error)

	// Close releases any resources held by the backend.
	Close() error
}
