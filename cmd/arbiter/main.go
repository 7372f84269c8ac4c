// Arbiter is a cost governance runtime for LLM API usage.
//
// It tracks model pricing, routes requests across fallback model chains,
// enforces per-account spending and rate limits, and aggregates usage
// records into daily summaries:
//   - Model pricing table with live reload
//   - Policy-based model routing with retry and fallback
//   - Multi-window spending and rate limits with threshold notifications
//   - Usage recording and daily aggregation
//   - Prometheus metrics
//
// Usage:
//
//	# Start the accounting daemon with default configuration
//	arbiter run
//
//	# Start with a custom configuration file
//	arbiter run --config /path/to/arbiter.yaml
//
//	# Validate the configuration without starting
//	arbiter validate
//
//	# Run pending daily aggregation
//	arbiter aggregate
//
//	# Show usage statistics for an account
//	arbiter stats --account team-research --days 30
package main

func main() {
	Execute()
}
