// Package metrics provides Prometheus instrumentation for the gateway:
// request outcomes, cost accounting, limit rejections, retries, fallbacks,
// and threshold crossings.
package metrics
