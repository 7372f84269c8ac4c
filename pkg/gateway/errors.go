package gateway

import (
	"errors"
	"fmt"
)

// ErrNoPolicy is returned when a request names an account with no routing
// policy registered.
var ErrNoPolicy = errors.New("no routing policy for account")

// ErrAttemptsExhausted is returned when every eligible attempt failed.
var ErrAttemptsExhausted = errors.New("all attempts exhausted")

// BlockedError is returned when a request is rejected before execution,
// either by a cost threshold or by an account limit.
type BlockedError struct {
	// AccountID is the account the request was made for.
	AccountID string

	// Reason explains the rejection.
	Reason string

	// EstimatedCost is the cost estimate that triggered the block, when the
	// block came from a cost threshold.
	EstimatedCost float64
}

// Error implements the error interface.
func (e *BlockedError) Error() string {
	if e.EstimatedCost > 0 {
		return fmt.Sprintf("request blocked for account %s: %s (estimated cost $%.4f)",
			e.AccountID, e.Reason, e.EstimatedCost)
	}
	return fmt.Sprintf("request blocked for account %s: %s", e.AccountID, e.Reason)
}
