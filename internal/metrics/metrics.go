package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

const (
	namespace = "status_service"
)

// Metrics holds all application metrics
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Database metrics
	DBConnectionsOpen        prometheus.Gauge
	DBConnectionsInUse       prometheus.Gauge
	DBConnectionsIdle        prometheus.Gauge
	DBConnectionsMax         prometheus.Gauge
	DBConnectionWaitTotal    prometheus.Counter
	DBConnectionWaitDuration prometheus.Counter
	DBQueryDuration          *prometheus.HistogramVec
	DBQueryErrors            *prometheus.CounterVec

	// External API metrics
	ExternalAPIRequestDuration *prometheus.HistogramVec
	ExternalAPIRequestsTotal   *prometheus.CounterVec
	ExternalAPIErrors          *prometheus.CounterVec

	// Presence metrics
	StatusWritesTotal      *prometheus.CounterVec
	StatusWriteConflicts   prometheus.Counter
	StatusWriteAttempts    prometheus.Histogram
	SignOutSweepsTotal     *prometheus.CounterVec
	SignOutPatchFailures   prometheus.Counter
	StatusReadsTotal       *prometheus.CounterVec
	MembershipCacheLookups *prometheus.CounterVec
	PresenceEventsTotal    *prometheus.CounterVec
	FeedConnections        prometheus.Gauge
	OnlineFreshTotal       prometheus.Gauge
	OnlineStaleTotal       prometheus.Gauge

	logger *zap.Logger
}

// New creates and registers all metrics with the default registry
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer, nil)
}

// NewWithLogger creates and registers all metrics with the default registry and a logger
func NewWithLogger(logger *zap.Logger) *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer, logger)
}

// NewWithRegistry creates and registers all metrics with a custom registry
func NewWithRegistry(registerer prometheus.Registerer, logger *zap.Logger) *Metrics {
	factory := promauto.With(registerer)

	if logger == nil {
		logger = zap.NewNop()
	}

	return &Metrics{
		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "endpoint", "status"},
		),
		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "endpoint"},
		),

		DBConnectionsOpen: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "db_connections_open",
				Help:      "Current number of open database connections",
			},
		),
		DBConnectionsInUse: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "db_connections_in_use",
				Help:      "Current number of in-use database connections",
			},
		),
		DBConnectionsIdle: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "db_connections_idle",
				Help:      "Current number of idle database connections",
			},
		),
		DBConnectionsMax: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "db_connections_max",
				Help:      "Maximum number of open database connections configured",
			},
		),
		DBConnectionWaitTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "db_connection_wait_total",
				Help:      "Total number of times waited for a database connection",
			},
		),
		DBConnectionWaitDuration: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "db_connection_wait_duration_seconds_total",
				Help:      "Total duration waited for database connections in seconds",
			},
		),
		DBQueryDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "db_query_duration_seconds",
				Help:      "Database query duration in seconds",
				Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
			},
			[]string{"operation", "table"},
		),
		DBQueryErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "db_query_errors_total",
				Help:      "Total number of database query errors",
			},
			[]string{"operation", "table"},
		),

		ExternalAPIRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "external_api_request_duration_seconds",
				Help:      "External API request duration in seconds",
				Buckets:   []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"endpoint", "status"},
		),
		ExternalAPIRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "external_api_requests_total",
				Help:      "Total number of external API requests",
			},
			[]string{"endpoint", "method", "status"},
		),
		ExternalAPIErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "external_api_errors_total",
				Help:      "Total number of external API errors",
			},
			[]string{"endpoint", "error_type"},
		),

		StatusWritesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "status_writes_total",
				Help:      "Total number of status write requests by result",
			},
			[]string{"result"},
		),
		StatusWriteConflicts: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "status_write_conflicts_total",
				Help:      "Total number of optimistic concurrency conflicts seen by status writes",
			},
		),
		StatusWriteAttempts: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "status_write_attempts",
				Help:      "Number of attempts used per status write",
				Buckets:   []float64{1, 2, 3, 4, 5},
			},
		),
		SignOutSweepsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "signout_sweeps_total",
				Help:      "Total number of global sign-out sweeps by result",
			},
			[]string{"result"},
		),
		SignOutPatchFailures: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "signout_patch_failures_total",
				Help:      "Total number of records a sign-out sweep failed to mark offline",
			},
		),
		StatusReadsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "status_reads_total",
				Help:      "Total number of status reads by outcome",
			},
			[]string{"outcome"},
		),
		MembershipCacheLookups: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "membership_cache_lookups_total",
				Help:      "Total number of membership cache lookups by result",
			},
			[]string{"result"},
		),
		PresenceEventsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "presence_events_total",
				Help:      "Total number of presence events published by result",
			},
			[]string{"result"},
		),
		FeedConnections: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "presence_feed_connections",
				Help:      "Current number of open presence feed websocket connections",
			},
		),
		OnlineFreshTotal: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "online_records_fresh",
				Help:      "Stored online records seen within the stale window",
			},
		),
		OnlineStaleTotal: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "online_records_stale",
				Help:      "Stored online records older than the stale window, reported as offline",
			},
		),

		logger: logger,
	}
}

// safeExecute wraps metric operations with panic recovery. A nil *Metrics records nothing.
func (m *Metrics) safeExecute(operation string, fn func()) {
	if m == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			if m.logger != nil {
				m.logger.Error("Panic in metrics operation",
					zap.String("operation", operation),
					zap.Any("panic", r),
				)
			}
		}
	}()
	fn()
}
