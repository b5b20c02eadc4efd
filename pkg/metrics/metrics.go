// Package metrics provides Prometheus metrics instrumentation.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestDuration tracks HTTP request duration.
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path", "status"},
	)

	// RequestsTotal tracks total HTTP requests.
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// TurnsTotal tracks widget turns by mode and outcome.
	TurnsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "widget_turns_total",
			Help: "Total widget turns processed",
		},
		[]string{"tenant_id", "mode", "status"},
	)

	// TurnDuration tracks end-to-end turn duration.
	TurnDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "widget_turn_duration_seconds",
			Help:    "Widget turn duration in seconds",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 20, 30, 60},
		},
		[]string{"mode"},
	)

	// LLMStreamDuration tracks LLM streaming response duration.
	LLMStreamDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "llm_stream_duration_seconds",
			Help:    "LLM streaming response duration",
			Buckets: []float64{1, 2, 5, 10, 20, 30, 45, 60, 90, 120},
		},
		[]string{"model", "status"},
	)

	// LLMTokensTotal tracks total LLM tokens processed.
	LLMTokensTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "llm_tokens_total",
			Help: "Total LLM tokens processed",
		},
		[]string{"model", "direction"},
	)

	// SSEConnectionsActive tracks active SSE connections.
	SSEConnectionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "sse_connections_active",
			Help: "Number of active SSE connections",
		},
	)

	// CacheLookupsTotal tracks cache hits and misses by cache name.
	CacheLookupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_lookups_total",
			Help: "Cache lookups by outcome",
		},
		[]string{"cache", "outcome"},
	)

	// CtaDecisionsTotal tracks CTA engine decisions by outcome.
	CtaDecisionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cta_decisions_total",
			Help: "CTA engine decisions by outcome",
		},
		[]string{"outcome"},
	)

	// FulfillmentChannelTotal tracks delivery channel outcomes.
	FulfillmentChannelTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fulfillment_channel_total",
			Help: "Fulfillment channel attempts by outcome",
		},
		[]string{"channel", "status"},
	)

	// SubmissionsTotal tracks form submissions by priority.
	SubmissionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "submissions_total",
			Help: "Total form submissions",
		},
		[]string{"tenant_id", "priority"},
	)

	// SMSMonthlyUsage tracks the current month's SMS usage per tenant.
	SMSMonthlyUsage = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "sms_monthly_usage",
			Help: "SMS messages sent this calendar month",
		},
		[]string{"tenant_id"},
	)
)

// RecordRequest records metrics for an HTTP request.
func RecordRequest(method, path, status string, duration float64) {
	RequestDuration.WithLabelValues(method, path, status).Observe(duration)
	RequestsTotal.WithLabelValues(method, path, status).Inc()
}

// RecordTurn records metrics for one widget turn.
func RecordTurn(tenantID, mode, status string, duration float64) {
	TurnsTotal.WithLabelValues(tenantID, mode, status).Inc()
	TurnDuration.WithLabelValues(mode).Observe(duration)
}

// RecordLLMStream records metrics for an LLM streaming response.
func RecordLLMStream(model, status string, duration float64, tokensIn, tokensOut int) {
	LLMStreamDuration.WithLabelValues(model, status).Observe(duration)
	LLMTokensTotal.WithLabelValues(model, "in").Add(float64(tokensIn))
	LLMTokensTotal.WithLabelValues(model, "out").Add(float64(tokensOut))
}

// RecordChannel records one fulfillment channel outcome.
func RecordChannel(channel, status string) {
	FulfillmentChannelTotal.WithLabelValues(channel, status).Inc()
}

// IncrementSSEConnections increments the active SSE connection count.
func IncrementSSEConnections() {
	SSEConnectionsActive.Inc()
}

// DecrementSSEConnections decrements the active SSE connection count.
func DecrementSSEConnections() {
	SSEConnectionsActive.Dec()
}
