// Package routing implements per-account routing policies for inference
// requests: ordered fallback model resolution, pre-flight cost estimation
// and threshold classification, and error-classification-driven retry
// eligibility.
//
// # Attempt resolution
//
// Attempt 1 maps to the primary model, attempt k>1 to the (k-2)th fallback,
// and attempts past the end of the chain to the cheapest priced model, so
// ModelForAttempt never returns "no model".
//
// # Thread safety
//
// A Policy is immutable after creation and safe for concurrent use. All
// request-time methods are pure functions over the policy configuration and
// caller-supplied numbers.
package routing
