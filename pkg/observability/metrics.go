package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Storage metrics
	StorageOperationsTotal   *prometheus.CounterVec
	StorageOperationDuration *prometheus.HistogramVec

	// Graph validation metrics
	ValidationsTotal   *prometheus.CounterVec
	ValidationDuration *prometheus.HistogramVec
	GraphVersions      prometheus.Gauge
	GraphIncludes      prometheus.Gauge

	// Cache metrics
	CacheHitsTotal   *prometheus.CounterVec
	CacheMissesTotal *prometheus.CounterVec

	// Audit metrics
	AuditRunsTotal  *prometheus.CounterVec
	AuditViolations prometheus.Gauge
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics(registry prometheus.Registerer) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "unitgraph_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "unitgraph_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),

		StorageOperationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "unitgraph_storage_operations_total",
				Help: "Total number of storage operations",
			},
			[]string{"operation", "status"},
		),
		StorageOperationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "unitgraph_storage_operation_duration_seconds",
				Help:    "Storage operation duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),

		ValidationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "unitgraph_validations_total",
				Help: "Total number of includes mutations validated, by result",
			},
			[]string{"result"},
		),
		ValidationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "unitgraph_validation_duration_seconds",
				Help:    "Time spent validating includes mutations",
				Buckets: []float64{.0001, .0005, .001, .005, .01, .05, .1, .5, 1},
			},
			[]string{"result"},
		),
		GraphVersions: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "unitgraph_graph_versions",
				Help: "Number of versions in the includes graph",
			},
		),
		GraphIncludes: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "unitgraph_graph_includes",
				Help: "Number of includes edges in the graph",
			},
		),

		CacheHitsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "unitgraph_cache_hits_total",
				Help: "Total number of closure cache hits",
			},
			[]string{"kind"},
		),
		CacheMissesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "unitgraph_cache_misses_total",
				Help: "Total number of closure cache misses",
			},
			[]string{"kind"},
		),

		AuditRunsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "unitgraph_audit_runs_total",
				Help: "Total number of graph audits, by result",
			},
			[]string{"result"},
		),
		AuditViolations: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "unitgraph_audit_violations",
				Help: "Violations found by the last graph audit",
			},
		),
	}

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.StorageOperationsTotal,
		m.StorageOperationDuration,
		m.ValidationsTotal,
		m.ValidationDuration,
		m.GraphVersions,
		m.GraphIncludes,
		m.CacheHitsTotal,
		m.CacheMissesTotal,
		m.AuditRunsTotal,
		m.AuditViolations,
	)

	return m
}

// ObserveValidation records one validated mutation
func (m *Metrics) ObserveValidation(result string, d time.Duration) {
	m.ValidationsTotal.WithLabelValues(result).Inc()
	m.ValidationDuration.WithLabelValues(result).Observe(d.Seconds())
}

// ObserveStorage records one storage operation
func (m *Metrics) ObserveStorage(operation string, err error, d time.Duration) {
	status := "success"
	if err != nil {
		status = "error"
	}
	m.StorageOperationsTotal.WithLabelValues(operation, status).Inc()
	m.StorageOperationDuration.WithLabelValues(operation).Observe(d.Seconds())
}

// SetGraphSize records the size of the includes graph
func (m *Metrics) SetGraphSize(versions, includes int) {
	m.GraphVersions.Set(float64(versions))
	m.GraphIncludes.Set(float64(includes))
}

// responseWriter wraps http.ResponseWriter to capture the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// HTTPMetricsMiddleware instruments HTTP requests with Prometheus metrics.
// Paths are labelled by route template so ids do not explode cardinality.
func HTTPMetricsMiddleware(metrics *Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rw := &responseWriter{
				ResponseWriter: w,
				statusCode:     http.StatusOK,
			}

			next.ServeHTTP(rw, r)

			path := r.URL.Path
			if route := mux.CurrentRoute(r); route != nil {
				if tmpl, err := route.GetPathTemplate(); err == nil {
					path = tmpl
				}
			}
			status := strconv.Itoa(rw.statusCode)
			metrics.HTTPRequestsTotal.WithLabelValues(r.Method, path, status).Inc()
			metrics.HTTPRequestDuration.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
		})
	}
}

// MetricsHandler serves the registry in the Prometheus exposition format
func MetricsHandler(registry *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}
