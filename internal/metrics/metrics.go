package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP 请求指标
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scholarhub_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "scholarhub_http_requests_in_flight",
			Help: "Number of HTTP requests currently being handled",
		},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "scholarhub_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// 任务指标
	RunsCreatedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scholarhub_runs_created_total",
			Help: "Total number of runs created",
		},
		[]string{"kind"},
	)

	RunsCompletedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scholarhub_runs_completed_total",
			Help: "Total number of runs finished, by terminal status",
		},
		[]string{"kind", "status"},
	)

	RunDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "scholarhub_run_duration_seconds",
			Help:    "Run execution duration in seconds",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800},
		},
		[]string{"kind"},
	)

	// LLM 调用指标
	LLMCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scholarhub_llm_calls_total",
			Help: "Total number of language model calls",
		},
		[]string{"outcome"},
	)

	// 搜索提供方指标
	ProviderErrorsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "scholarhub_provider_errors_total",
			Help: "Total number of arXiv provider call failures",
		},
	)
)

// RecordHTTPRequest 记录 HTTP 请求
func RecordHTTPRequest(method, path string, status int, duration float64) {
	HTTPRequestsTotal.WithLabelValues(method, path, statusClass(status)).Inc()
	HTTPRequestDuration.WithLabelValues(method, path).Observe(duration)
}

// RecordRunCreated 记录任务创建
func RecordRunCreated(kind string) {
	RunsCreatedTotal.WithLabelValues(kind).Inc()
}

// RecordRunCompleted 记录任务结束
func RecordRunCompleted(kind, status string, duration float64) {
	RunsCompletedTotal.WithLabelValues(kind, status).Inc()
	if duration > 0 {
		RunDuration.WithLabelValues(kind).Observe(duration)
	}
}

// RecordLLMCall 记录 LLM 调用结果
func RecordLLMCall(outcome string) {
	LLMCallsTotal.WithLabelValues(outcome).Inc()
}

// RecordProviderError 记录搜索提供方失败
func RecordProviderError() {
	ProviderErrorsTotal.Inc()
}

// statusClass 将 HTTP 状态码转为类别
func statusClass(status int) string {
	switch {
	case status >= 200 && status < 300:
		return "2xx"
	case status >= 300 && status < 400:
		return "3xx"
	case status >= 400 && status < 500:
		return "4xx"
	case status >= 500:
		return "5xx"
	default:
		return "unknown"
	}
}
