// Package telemetry exposes Prometheus metrics for the triage pipeline.
package telemetry

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/client_golang/prometheus/push"
)

const (
	// MetricsNamespace is the namespace for all triage metrics.
	MetricsNamespace = "placement_triage"
)

// Metrics holds all Prometheus metrics. A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	// LLM metrics
	LLMCallsTotal      *prometheus.CounterVec
	LLMCallDuration    *prometheus.HistogramVec
	LLMFallbacksTotal  prometheus.Counter
	VerdictCacheLookup *prometheus.CounterVec

	// Classification metrics
	MessagesClassified *prometheus.CounterVec
	Reconciliations    *prometheus.CounterVec
	BatchMessages      *prometheus.CounterVec

	// Circuit breaker metrics
	CircuitBreakerState *prometheus.GaugeVec
}

// NewMetrics creates the metrics on a private registry
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	m := &Metrics{registry: reg}

	m.LLMCallsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: MetricsNamespace,
			Subsystem: "llm",
			Name:      "calls_total",
			Help:      "Total number of LLM calls by attempt and outcome",
		},
		[]string{"attempt", "outcome"},
	)

	m.LLMCallDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: MetricsNamespace,
			Subsystem: "llm",
			Name:      "call_duration_seconds",
			Help:      "Duration of LLM calls in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 10),
		},
		[]string{"attempt"},
	)

	m.LLMFallbacksTotal = factory.NewCounter(
		prometheus.CounterOpts{
			Namespace: MetricsNamespace,
			Subsystem: "llm",
			Name:      "fallbacks_total",
			Help:      "Number of synthesized fallback verdicts",
		},
	)

	m.VerdictCacheLookup = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: MetricsNamespace,
			Subsystem: "llm",
			Name:      "cache_lookups_total",
			Help:      "Verdict cache lookups by result",
		},
		[]string{"result"},
	)

	m.MessagesClassified = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: MetricsNamespace,
			Name:      "messages_classified_total",
			Help:      "Classified messages by final label",
		},
		[]string{"label"},
	)

	m.Reconciliations = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: MetricsNamespace,
			Name:      "reconciliations_total",
			Help:      "Reconciliation decisions between rule and LLM verdicts",
		},
		[]string{"decision"},
	)

	m.BatchMessages = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: MetricsNamespace,
			Subsystem: "runner",
			Name:      "messages_total",
			Help:      "Messages seen by the batch runner by status",
		},
		[]string{"status"},
	)

	m.CircuitBreakerState = factory.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: MetricsNamespace,
			Name:      "circuit_breaker_state",
			Help:      "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	return m
}

// Registry returns the registry the metrics are registered on
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the metrics in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Push sends the current values to a Prometheus Pushgateway, replacing the
// metrics previously pushed for job.
func (m *Metrics) Push(ctx context.Context, url, job string) error {
	if m == nil {
		return nil
	}
	return push.New(url, job).Gatherer(m.registry).PushContext(ctx)
}

// ObserveLLMCall records one model call
func (m *Metrics) ObserveLLMCall(attempt, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.LLMCallsTotal.WithLabelValues(attempt, outcome).Inc()
	m.LLMCallDuration.WithLabelValues(attempt).Observe(d.Seconds())
}

// IncFallback counts a synthesized fallback verdict
func (m *Metrics) IncFallback() {
	if m == nil {
		return
	}
	m.LLMFallbacksTotal.Inc()
}

// IncCacheLookup counts a verdict cache lookup (hit, miss or error)
func (m *Metrics) IncCacheLookup(result string) {
	if m == nil {
		return
	}
	m.VerdictCacheLookup.WithLabelValues(result).Inc()
}

// IncClassified counts a classified message by its final label
func (m *Metrics) IncClassified(label string) {
	if m == nil {
		return
	}
	m.MessagesClassified.WithLabelValues(label).Inc()
}

// IncReconciliation counts a reconciliation decision
func (m *Metrics) IncReconciliation(decision string) {
	if m == nil {
		return
	}
	m.Reconciliations.WithLabelValues(decision).Inc()
}

// IncBatchMessage counts a message handled by the batch runner
func (m *Metrics) IncBatchMessage(status string) {
	if m == nil {
		return
	}
	m.BatchMessages.WithLabelValues(status).Inc()
}

// SetBreakerState records the state of a named circuit breaker
func (m *Metrics) SetBreakerState(name string, state float64) {
	if m == nil {
		return
	}
	m.CircuitBreakerState.WithLabelValues(name).Set(state)
}
