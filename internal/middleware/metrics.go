package middleware

import (
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PrometheusMetrics holds all Prometheus metrics
type PrometheusMetrics struct {
	// HTTP request metrics
	HttpRequestsTotal   *prometheus.CounterVec
	HttpRequestDuration *prometheus.HistogramVec
	HttpResponseSize    *prometheus.HistogramVec

	// Statement metrics
	StatementTotal    *prometheus.CounterVec
	StatementDuration *prometheus.HistogramVec
	StatementRows     *prometheus.CounterVec
	GuardRejections   prometheus.Counter

	// Connection pool metrics
	ConnectionPoolInUse *prometheus.GaugeVec
	ConnectionPoolIdle  *prometheus.GaugeVec

	// Report pipeline metrics
	ReportsTotal    *prometheus.CounterVec
	ReportStage     *prometheus.HistogramVec
	QuotaRejections prometheus.Counter
	PanelRedirects  *prometheus.CounterVec
}

var (
	metrics     *PrometheusMetrics
	metricsOnce sync.Once
)

// InitMetrics registers the metrics with the default registry once.
func InitMetrics() {
	metricsOnce.Do(func() {
		metrics = newMetrics(promauto.With(prometheus.DefaultRegisterer))
	})
}

func newMetrics(f promauto.Factory) *PrometheusMetrics {
	return &PrometheusMetrics{
		HttpRequestsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sqlpanel_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "endpoint", "status"},
		),
		HttpRequestDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "sqlpanel_http_request_duration_seconds",
				Help:    "HTTP request latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "endpoint"},
		),
		HttpResponseSize: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "sqlpanel_http_response_size_bytes",
				Help:    "HTTP response size in bytes",
				Buckets: []float64{100, 1000, 10000, 100000, 1000000},
			},
			[]string{"method", "endpoint"},
		),

		StatementTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sqlpanel_statements_total",
				Help: "Total number of statements executed against target databases",
			},
			[]string{"engine", "status"},
		),
		StatementDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "sqlpanel_statement_duration_seconds",
				Help:    "Statement execution time in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"engine"},
		),
		StatementRows: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sqlpanel_statement_rows_total",
				Help: "Total number of rows returned by statements",
			},
			[]string{"engine"},
		),
		GuardRejections: f.NewCounter(
			prometheus.CounterOpts{
				Name: "sqlpanel_guard_rejections_total",
				Help: "Statements rejected by the read-only guard",
			},
		),

		ConnectionPoolInUse: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "sqlpanel_connection_pool_in_use",
				Help: "Connections currently borrowed from connector pools",
			},
			[]string{"engine"},
		),
		ConnectionPoolIdle: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "sqlpanel_connection_pool_idle",
				Help: "Idle connections held by connector pools",
			},
			[]string{"engine"},
		),

		ReportsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sqlpanel_reports_total",
				Help: "Report pipeline outcomes",
			},
			[]string{"chart_type", "status"},
		),
		ReportStage: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "sqlpanel_report_stage_duration_seconds",
				Help:    "Duration of each report pipeline stage",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"stage"},
		),
		QuotaRejections: f.NewCounter(
			prometheus.CounterOpts{
				Name: "sqlpanel_quota_rejections_total",
				Help: "Report requests refused by the quota check",
			},
		),
		PanelRedirects: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sqlpanel_panel_redirects_total",
				Help: "Panel handle lookups by outcome",
			},
			[]string{"status"},
		),
	}
}

// GetMetrics returns the initialized metrics
func GetMetrics() *PrometheusMetrics {
	return metrics
}

// PrometheusMiddleware is a Gin middleware that records HTTP metrics
func PrometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if metrics == nil {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())
		method := c.Request.Method
		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = "unmatched"
		}

		metrics.HttpRequestsTotal.WithLabelValues(method, endpoint, status).Inc()
		metrics.HttpRequestDuration.WithLabelValues(method, endpoint).Observe(duration)
		if c.Writer.Size() > 0 {
			metrics.HttpResponseSize.WithLabelValues(method, endpoint).Observe(float64(c.Writer.Size()))
		}
	}
}

// RecordStatement records one statement execution
func RecordStatement(engine, status string, duration time.Duration, rows int) {
	if metrics == nil {
		return
	}

	metrics.StatementTotal.WithLabelValues(engine, status).Inc()
	metrics.StatementDuration.WithLabelValues(engine).Observe(duration.Seconds())
	if status == "success" && rows > 0 {
		metrics.StatementRows.WithLabelValues(engine).Add(float64(rows))
	}
}

// RecordGuardRejection counts a statement refused by the guard
func RecordGuardRejection() {
	if metrics == nil {
		return
	}
	metrics.GuardRejections.Inc()
}

// PoolSample is one connector's pool usage.
type PoolSample struct {
	Engine string
	InUse  int
	Idle   int
}

// UpdateConnectionPoolMetrics replaces the pool gauges with the per-engine
// sums of samples, which should cover every live connector.
func UpdateConnectionPoolMetrics(samples []PoolSample) {
	if metrics == nil {
		return
	}

	inUse := make(map[string]int)
	idle := make(map[string]int)
	for _, s := range samples {
		inUse[s.Engine] += s.InUse
		idle[s.Engine] += s.Idle
	}

	metrics.ConnectionPoolInUse.Reset()
	metrics.ConnectionPoolIdle.Reset()
	for engine, n := range inUse {
		metrics.ConnectionPoolInUse.WithLabelValues(engine).Set(float64(n))
		metrics.ConnectionPoolIdle.WithLabelValues(engine).Set(float64(idle[engine]))
	}
}

// RecordReport records the outcome of one report pipeline run
func RecordReport(chartType, status string) {
	if metrics == nil {
		return
	}
	metrics.ReportsTotal.WithLabelValues(chartType, status).Inc()
}

// ObserveStage records how long a pipeline stage took
func ObserveStage(stage string, started time.Time) {
	if metrics == nil {
		return
	}
	metrics.ReportStage.WithLabelValues(stage).Observe(time.Since(started).Seconds())
}

// RecordQuotaRejection counts a report refused for quota
func RecordQuotaRejection() {
	if metrics == nil {
		return
	}
	metrics.QuotaRejections.Inc()
}

// RecordPanelRedirect counts a panel lookup
func RecordPanelRedirect(status string) {
	if metrics == nil {
		return
	}
	metrics.PanelRedirects.WithLabelValues(status).Inc()
}
