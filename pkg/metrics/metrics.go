// Package metrics 定义服务的 Prometheus 指标。
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "ratingkit"

var (
	// 预测请求
	PredictionRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "prediction_requests_total",
			Help:      "Total number of rating prediction requests by outcome",
		},
		[]string{"variant", "outcome"}, // outcome: success, not_found, invalid_input, prediction_failed
	)

	PredictionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "prediction_duration_seconds",
			Help:      "End-to-end prediction latency including upstream fetches",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"variant"},
	)

	// 上游存储
	UpstreamRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upstream_requests_total",
			Help:      "Total number of backing-store requests by resource and outcome",
		},
		[]string{"variant", "resource", "outcome"}, // outcome: ok, not_found, error, rejected
	)

	UpstreamDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "upstream_request_duration_seconds",
			Help:      "Latency of backing-store requests",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"variant", "resource"},
	)

	HistoryDegraded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "history_degraded_total",
			Help:      "History fetches that failed and were replaced by an empty history",
		},
		[]string{"variant", "kind"}, // kind: product, customer
	)

	// 熔断器
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "circuit_breaker_state",
			Help:      "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "circuit_breaker_transitions_total",
			Help:      "Circuit breaker state transitions",
		},
		[]string{"name", "from", "to"},
	)

	// 模型
	ModelPredictions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "model_predictions_total",
			Help:      "Regression model invocations by backend and outcome",
		},
		[]string{"backend", "outcome"},
	)

	ModelLoaded = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "model_loaded",
			Help:      "Whether the model artifact is loaded (1) with its version label",
		},
		[]string{"backend", "version"},
	)

	// 审计规则
	AuditRuleHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "audit_rule_hits_total",
			Help:      "Predictions matched by an audit rule",
		},
		[]string{"rule"},
	)

	// HTTP
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Inbound HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	HTTPDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Inbound HTTP request latency",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
)

// RecordUpstream 记录一次上游请求
func RecordUpstream(variant, resource, outcome string, duration time.Duration) {
	UpstreamRequests.WithLabelValues(variant, resource, outcome).Inc()
	UpstreamDuration.WithLabelValues(variant, resource).Observe(duration.Seconds())
}

// RecordPrediction 记录一次预测请求
func RecordPrediction(variant, outcome string, duration time.Duration) {
	PredictionRequests.WithLabelValues(variant, outcome).Inc()
	PredictionDuration.WithLabelValues(variant).Observe(duration.Seconds())
}

// RecordHTTP 记录一次入站 HTTP 请求
func RecordHTTP(method, route string, status int, duration time.Duration) {
	HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	HTTPDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}
