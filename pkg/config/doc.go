// Package config defines Arbiter's YAML configuration: logging, metrics,
// the pricing table, usage and limit storage, the aggregation job, named
// routing policies, and per-account assignments.
//
// Configuration is loaded with LoadConfig or LoadConfigWithEnvOverrides,
// which apply defaults and validate the result. Validation collects every
// problem into a single ValidationError instead of stopping at the first.
package config
