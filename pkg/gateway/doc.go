// Package gateway coordinates inference requests end to end: model
// selection across the policy's fallback chain, pre-flight cost and limit
// checks, failure classification and retry, and post-hoc usage and spending
// accounting.
package gateway
