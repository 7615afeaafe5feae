package utils

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Tracks performance metrics across the system
type MetricsCollector struct {
	registry     *prometheus.Registry
	requestCount prometheus.Counter
	errorCount   prometheus.Counter

	// Operation latencies in seconds, labelled by operation name
	operationTimes *prometheus.HistogramVec

	systemStartTime time.Time
}

func NewMetricsCollector() *MetricsCollector {
	mc := &MetricsCollector{
		registry: prometheus.NewRegistry(),
		requestCount: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "gator_overflow",
			Name:      "http_requests_total",
			Help:      "Number of HTTP requests served.",
		}),
		errorCount: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "gator_overflow",
			Name:      "http_errors_total",
			Help:      "Number of HTTP requests answered with a 5xx status.",
		}),
		operationTimes: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "gator_overflow",
			Name:      "operation_duration_seconds",
			Help:      "Latency of data access operations.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		systemStartTime: time.Now(),
	}

	mc.registry.MustRegister(mc.requestCount, mc.errorCount, mc.operationTimes)
	return mc
}

func (mc *MetricsCollector) IncrementRequests() {
	mc.requestCount.Inc()
}

func (mc *MetricsCollector) IncrementErrors() {
	mc.errorCount.Inc()
}

func (mc *MetricsCollector) AddOperationLatency(operationName string, duration time.Duration) {
	mc.operationTimes.WithLabelValues(operationName).Observe(duration.Seconds())
}

// Uptime returns how long the collector has been running.
func (mc *MetricsCollector) Uptime() time.Duration {
	return time.Since(mc.systemStartTime)
}

// Handler exposes the collected metrics in the Prometheus text format.
func (mc *MetricsCollector) Handler() http.Handler {
	return promhttp.HandlerFor(mc.registry, promhttp.HandlerOpts{})
}
