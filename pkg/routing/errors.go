package routing

import "errors"

var (
	// ErrInvalidPolicy is returned when a policy configuration is invalid.
	ErrInvalidPolicy = errors.New("invalid routing policy")

	// ErrInvalidThresholds is returned when the block threshold is not
	// strictly greater than the warning threshold.
	ErrInvalidThresholds = errors.New("block threshold must exceed warning threshold")
)
