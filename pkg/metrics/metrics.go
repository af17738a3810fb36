// Package metrics defines and registers Orbit's Prometheus metrics and
// exposes them over HTTP for scraping.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Fleet metrics
	NodesTotal = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "orbit_nodes_total",
			Help: "Total number of registered nodes by status",
		},
		[]string{"status"},
	)

	BusinessesTotal = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "orbit_businesses_total",
			Help: "Total number of businesses by status",
		},
		[]string{"status"},
	)

	ComponentsTotal = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "orbit_components_total",
			Help: "Total number of components by status",
		},
		[]string{"status"},
	)

	// API metrics
	APIRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orbit_api_requests_total",
			Help: "Total number of API requests by route and status",
		},
		[]string{"route", "status"},
	)

	APIRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "orbit_api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)

	// Scheduler metrics
	SchedulingLatency = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "orbit_scheduling_latency_seconds",
			Help:    "Time taken to place components in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	ComponentsScheduled = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "orbit_components_scheduled_total",
			Help: "Total number of components successfully placed",
		},
	)

	ComponentsUnschedulable = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "orbit_components_unschedulable_total",
			Help: "Total number of components that failed placement",
		},
	)

	// Business Manager operation metrics
	BusinessDeployDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "orbit_business_deploy_duration_seconds",
			Help:    "Time taken to deploy a business in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	BusinessStopDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "orbit_business_stop_duration_seconds",
			Help:    "Time taken to stop a business in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	ComponentDeployFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "orbit_component_deploy_failures_total",
			Help: "Total number of component deploy calls that failed",
		},
	)

	// Liveness Monitor metrics
	LivenessTransitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orbit_liveness_transitions_total",
			Help: "Total number of node liveness transitions by direction",
		},
		[]string{"direction"},
	)

	LivenessScanDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "orbit_liveness_scan_duration_seconds",
			Help:    "Time taken for a liveness scan cycle in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	// Telemetry ingestion metrics
	ReportsIngestedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "orbit_reports_ingested_total",
			Help: "Total number of agent telemetry reports ingested",
		},
	)

	ReportIngestDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "orbit_report_ingest_duration_seconds",
			Help:    "Time taken to ingest one telemetry report in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	// Agent executor metrics
	ExecutorStartDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "orbit_executor_start_duration_seconds",
			Help:    "Time taken to start a component in seconds by executor kind",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"kind"},
	)

	ExecutorStopDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "orbit_executor_stop_duration_seconds",
			Help:    "Time taken to stop a component in seconds by executor kind",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"kind"},
	)
)

func init() {
	prometheus.MustRegister(NodesTotal)
	prometheus.MustRegister(BusinessesTotal)
	prometheus.MustRegister(ComponentsTotal)
	prometheus.MustRegister(APIRequestsTotal)
	prometheus.MustRegister(APIRequestDuration)
	prometheus.MustRegister(SchedulingLatency)
	prometheus.MustRegister(ComponentsScheduled)
	prometheus.MustRegister(ComponentsUnschedulable)
	prometheus.MustRegister(BusinessDeployDuration)
	prometheus.MustRegister(BusinessStopDuration)
	prometheus.MustRegister(ComponentDeployFailuresTotal)
	prometheus.MustRegister(LivenessTransitionsTotal)
	prometheus.MustRegister(LivenessScanDuration)
	prometheus.MustRegister(ReportsIngestedTotal)
	prometheus.MustRegister(ReportIngestDuration)
	prometheus.MustRegister(ExecutorStartDuration)
	prometheus.MustRegister(ExecutorStopDuration)
}

// Handler returns the Prometheus HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer is a helper for timing operations.
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// ObserveDuration records the duration to a histogram.
func (t *Timer) ObserveDuration(histogram prometheus.Histogram) {
	duration := time.Since(t.start).Seconds()
	histogram.Observe(duration)
}

// ObserveDurationVec records the duration to a histogram vec with labels.
func (t *Timer) ObserveDurationVec(histogram prometheus.ObserverVec, labels ...string) {
	duration := time.Since(t.start).Seconds()
	histogram.WithLabelValues(labels...).Observe(duration)
}

// Duration returns the elapsed time since the timer started.
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}
