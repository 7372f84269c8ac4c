package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"arbiter-ai/arbiter/pkg/config"
)

// Collector manages all Prometheus metrics for the gateway: request
// outcomes, cost accounting, limit rejections, retries, and threshold
// crossings.
//
// Example:
//
//	cfg := &config.MetricsConfig{Enabled: true}
//	collector := metrics.NewCollector(cfg, nil)
//	collector.RecordRequest("team-research", "gpt-4o", "success", 1200*time.Millisecond)
type Collector struct {
	config   *config.MetricsConfig
	registry *prometheus.Registry

	// Request outcomes by account and model
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec

	// Cost accounting by provider and model
	costTotal      *prometheus.CounterVec
	costPerRequest *prometheus.HistogramVec

	// Limit enforcement
	limitRejections    *prometheus.CounterVec
	thresholdCrossings *prometheus.CounterVec

	// Retry and fallback behavior
	retries   *prometheus.CounterVec
	fallbacks *prometheus.CounterVec
}

// NewCollector creates a metrics collector with the specified configuration
// and Prometheus registry. If registry is nil, a fresh registry is created.
func NewCollector(cfg *config.MetricsConfig, registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	if cfg.Namespace == "" {
		cfg.Namespace = "arbiter"
	}
	if cfg.Subsystem == "" {
		cfg.Subsystem = "gateway"
	}
	if len(cfg.CostBuckets) == 0 {
		// Optimized for LLM pricing ($0.001 to $10 per request)
		cfg.CostBuckets = []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0, 5.0, 10.0}
	}

	c := &Collector{
		config:   cfg,
		registry: registry,

		requestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "requests_total",
				Help:      "Total requests by account, model, and status",
			},
			[]string{"account", "model", "status"},
		),

		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "request_duration_seconds",
				Help:      "Request duration distribution by model",
				// Optimized for LLM request latencies (100ms - 30s)
				Buckets: []float64{0.1, 0.25, 0.5, 1.0, 2.0, 5.0, 10.0, 30.0},
			},
			[]string{"model"},
		),

		costTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "cost_total",
				Help:      "Total cost in USD by provider and model",
			},
			[]string{"provider", "model"},
		),

		costPerRequest: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "cost_per_request",
				Help:      "Cost distribution per request in USD",
				Buckets:   cfg.CostBuckets,
			},
			[]string{"provider", "model"},
		),

		limitRejections: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "limit_rejections_total",
				Help:      "Requests rejected by limit checks, by account and reason",
			},
			[]string{"account", "reason"},
		),

		thresholdCrossings: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "threshold_crossings_total",
				Help:      "Spending limit crossings by account and period",
			},
			[]string{"account", "period"},
		),

		retries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "retries_total",
				Help:      "Retry attempts by model and failure kind",
			},
			[]string{"model", "failure_kind"},
		),

		fallbacks: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "fallbacks_total",
				Help:      "Fallback transitions from one model to another",
			},
			[]string{"from_model", "to_model"},
		),
	}

	registry.MustRegister(
		c.requestsTotal,
		c.requestDuration,
		c.costTotal,
		c.costPerRequest,
		c.limitRejections,
		c.thresholdCrossings,
		c.retries,
		c.fallbacks,
	)

	return c
}

// RecordRequest records a completed request.
//
// Status is one of "success", "error", or "blocked".
func (c *Collector) RecordRequest(account, model, status string, duration time.Duration) {
	if !c.config.Enabled {
		return
	}

	c.requestsTotal.WithLabelValues(account, model, status).Inc()
	c.requestDuration.WithLabelValues(model).Observe(duration.Seconds())
}

// RecordCost records the actual cost of a completed request.
func (c *Collector) RecordCost(provider, model string, costUSD float64) {
	if !c.config.Enabled || costUSD <= 0 {
		return
	}

	c.costTotal.WithLabelValues(provider, model).Add(costUSD)
	c.costPerRequest.WithLabelValues(provider, model).Observe(costUSD)
}

// RecordLimitRejection records a request rejected by a budget or rate check.
func (c *Collector) RecordLimitRejection(account, reason string) {
	if !c.config.Enabled {
		return
	}

	c.limitRejections.WithLabelValues(account, reason).Inc()
}

// RecordThresholdCrossing records a spending limit crossing.
func (c *Collector) RecordThresholdCrossing(account, period string) {
	if !c.config.Enabled {
		return
	}

	c.thresholdCrossings.WithLabelValues(account, period).Inc()
}

// RecordRetry records a retry attempt and the failure kind that caused it.
func (c *Collector) RecordRetry(model, failureKind string) {
	if !c.config.Enabled {
		return
	}

	c.retries.WithLabelValues(model, failureKind).Inc()
}

// RecordFallback records a transition from a failed model to the next model
// in the chain.
func (c *Collector) RecordFallback(fromModel, toModel string) {
	if !c.config.Enabled {
		return
	}

	c.fallbacks.WithLabelValues(fromModel, toModel).Inc()
}

// Registry returns the Prometheus registry used by this collector.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}
