package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "streamhub_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "streamhub_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "streamhub_http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)
)

// Database metrics
var (
	DBQueryTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "streamhub_db_queries_total",
			Help: "Total number of database queries",
		},
		[]string{"operation", "status"},
	)

	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "streamhub_db_query_duration_seconds",
			Help:    "Database query duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"operation"},
	)

	DBConnectionsOpen = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "streamhub_db_connections_open",
			Help: "Number of open database connections",
		},
	)
)

// Queue metrics
var (
	QueueJobsEnqueued = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "streamhub_queue_jobs_enqueued_total",
			Help: "Total number of jobs enqueued",
		},
		[]string{"type"},
	)

	QueueJobsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "streamhub_queue_jobs_processed_total",
			Help: "Total number of job executions by outcome",
		},
		[]string{"type", "outcome"}, // outcome: completed, retried, failed
	)

	QueueJobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "streamhub_queue_job_duration_seconds",
			Help:    "Job handler duration in seconds",
			Buckets: []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120, 300, 600},
		},
		[]string{"type"},
	)

	QueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "streamhub_queue_depth",
			Help: "Number of jobs currently pending or running",
		},
	)
)

// Pipeline metrics
var (
	EncodesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "streamhub_encodes_total",
			Help: "Total number of rendition encode attempts",
		},
		[]string{"resolution", "status"}, // status: success, error
	)

	EncodeDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "streamhub_encode_duration_seconds",
			Help:    "Duration of a single rendition encode in seconds",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1200},
		},
		[]string{"resolution"},
	)

	ThumbnailsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "streamhub_thumbnails_total",
			Help: "Total number of thumbnail extraction attempts",
		},
		[]string{"status"}, // status: success, error
	)

	CleanupFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "streamhub_cleanup_failures_total",
			Help: "Total number of failed cleanup steps on video deletion",
		},
		[]string{"step"}, // step: source, thumbnail, renditions
	)

	SegmentsServed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "streamhub_segments_served_total",
			Help: "Total number of media segments served",
		},
	)
)
