package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce          sync.Once
	sessionsStartedTotal  prometheus.Counter
	sessionsFinishedTotal *prometheus.CounterVec
	itemRequestsTotal     *prometheus.CounterVec
	itemRequestSeconds    prometheus.Histogram
	persistenceFailures   *prometheus.CounterVec
	sessionsActive        prometheus.Gauge
	llmRequestsTotal      *prometheus.CounterVec
	llmTokensTotal        *prometheus.CounterVec
	httpRequestsTotal     *prometheus.CounterVec
	httpRequestSeconds    *prometheus.HistogramVec
)

// RegisterMetrics initialises the Prometheus collectors for the assessment engine.
func RegisterMetrics() {
	registerOnce.Do(func() {
		sessionsStartedTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "assessment_sessions_started_total",
			Help: "Total number of assessment sessions started.",
		})

		sessionsFinishedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "assessment_sessions_finished_total",
			Help: "Total number of assessment sessions that reached a terminal state.",
		}, []string{"state"})

		itemRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "assessment_item_requests_total",
			Help: "Item provider attempts by outcome.",
		}, []string{"outcome"})

		itemRequestSeconds = prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "assessment_item_request_seconds",
			Help:    "Latency of individual item provider attempts.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1.0, 2.0, 5.0, 10.0},
		})

		persistenceFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "assessment_persistence_failures_total",
			Help: "Recorder writes that failed or were dropped.",
		}, []string{"op"})

		sessionsActive = prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "assessment_sessions_active",
			Help: "Sessions currently accepting answers.",
		})

		llmRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "llm_requests_total",
			Help: "LLM calls by purpose and result.",
		}, []string{"purpose", "result"})

		llmTokensTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "llm_tokens_total",
			Help: "LLM tokens consumed, labelled by direction (input or output).",
		}, []string{"purpose", "direction"})

		httpRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "API requests by method, route and status.",
		}, []string{"method", "route", "status"})

		httpRequestSeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "API request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"})

		prometheus.MustRegister(
			sessionsStartedTotal,
			sessionsFinishedTotal,
			itemRequestsTotal,
			itemRequestSeconds,
			persistenceFailures,
			sessionsActive,
			llmRequestsTotal,
			llmTokensTotal,
			httpRequestsTotal,
			httpRequestSeconds,
		)
	})
}

// SessionsStarted exposes the counter of started sessions.
func SessionsStarted() prometheus.Counter {
	RegisterMetrics()
	return sessionsStartedTotal
}

// SessionsFinished exposes the counter of terminal sessions, labelled by state.
func SessionsFinished() *prometheus.CounterVec {
	RegisterMetrics()
	return sessionsFinishedTotal
}

// ItemRequests exposes the counter of provider attempts, labelled by outcome.
func ItemRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return itemRequestsTotal
}

// ItemRequestLatency exposes the provider attempt latency histogram.
func ItemRequestLatency() prometheus.Histogram {
	RegisterMetrics()
	return itemRequestSeconds
}

// PersistenceFailures exposes the counter of failed recorder writes.
func PersistenceFailures() *prometheus.CounterVec {
	RegisterMetrics()
	return persistenceFailures
}

// SessionsActive exposes the gauge of non-terminal sessions.
func SessionsActive() prometheus.Gauge {
	RegisterMetrics()
	return sessionsActive
}

// LLMRequests exposes the counter of LLM calls.
func LLMRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return llmRequestsTotal
}

// LLMTokens exposes the counter of LLM tokens.
func LLMTokens() *prometheus.CounterVec {
	RegisterMetrics()
	return llmTokensTotal
}

// HTTPRequests exposes the counter of API requests.
func HTTPRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return httpRequestsTotal
}

// HTTPLatency exposes the API latency histogram.
func HTTPLatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return httpRequestSeconds
}
