package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Thumbnail cache metrics
var (
	CacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "videomanager_thumb_cache_hits_total",
			Help: "Total number of thumbnail cache hits",
		},
	)

	CacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "videomanager_thumb_cache_misses_total",
			Help: "Total number of thumbnail cache misses (including reclaimed handles)",
		},
	)

	CacheEvictions = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "videomanager_thumb_cache_evictions_total",
			Help: "Total number of entries evicted from the thumbnail cache by capacity",
		},
	)

	CacheReclaims = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "videomanager_thumb_cache_reclaims_total",
			Help: "Total number of cached values reclaimed under memory pressure",
		},
	)

	CacheEntries = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "videomanager_thumb_cache_entries",
			Help: "Current number of entries in the thumbnail cache",
		},
	)

	CachePinned = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "videomanager_thumb_cache_pinned",
			Help: "Current number of pinned (visible) thumbnail paths",
		},
	)
)

// Verification queue metrics
var (
	QueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "videomanager_verify_queue_depth",
			Help: "Current number of queued verification requests",
		},
	)

	QueueEnqueued = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "videomanager_verify_queue_enqueued_total",
			Help: "Total number of verification requests enqueued",
		},
	)

	QueueDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "videomanager_verify_queue_dropped_total",
			Help: "Total number of requests dropped by the drop-oldest overflow policy",
		},
	)

	QueueCancelled = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "videomanager_verify_queue_cancelled_total",
			Help: "Total number of requests cancelled before processing (supersede or visibility change)",
		},
	)

	QueueProcessed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "videomanager_verify_queue_processed_total",
			Help: "Total number of verification requests processed to resolution",
		},
	)

	QueueBatchSize = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "videomanager_verify_queue_batch_size",
			Help:    "Number of requests drained per consumer batch",
			Buckets: []float64{1, 2, 5, 10, 25, 50, 100, 250, 500},
		},
	)

	QueueProcessDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "videomanager_verify_queue_process_duration_seconds",
			Help:    "Duration of a single verification request",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		},
	)
)

// Filesystem probe metrics
var (
	ProbeCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "videomanager_probe_calls_total",
			Help: "Total number of filesystem existence probes",
		},
		[]string{"result"}, // "found", "missing", "error"
	)

	ProbeDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "videomanager_probe_duration_seconds",
			Help:    "Duration of filesystem existence probes",
			Buckets: []float64{0.0001, 0.001, 0.01, 0.05, 0.1, 0.5, 1, 2.5},
		},
	)

	ProbeRetryAttempts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "videomanager_probe_retry_attempts_total",
			Help: "Total number of probe retries after NFS stale file handle errors",
		},
	)

	ProbeStaleErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "videomanager_probe_stale_errors_total",
			Help: "Total number of NFS stale file handle errors seen by the probe",
		},
	)
)

// Library index metrics
var (
	LibraryFiles = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "videomanager_library_files",
			Help: "Number of media files in the library index",
		},
	)

	LibraryScanDuration = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "videomanager_library_scan_duration_seconds",
			Help: "Duration of the last library scan",
		},
	)

	LibraryScanErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "videomanager_library_scan_errors_total",
			Help: "Total number of errors during library scans",
		},
	)
)

// Memory metrics
var (
	MemoryUsageRatio = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "videomanager_memory_usage_ratio",
			Help: "Current memory usage as a ratio of the configured limit",
		},
	)

	MemoryPaused = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "videomanager_memory_paused",
			Help: "Whether processing is paused due to memory pressure (1 = paused)",
		},
	)

	MemoryReclaimTriggers = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "videomanager_memory_reclaim_triggers_total",
			Help: "Total number of aggressive cache reclamations triggered by memory pressure",
		},
	)
)

// HTTP metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "videomanager_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "videomanager_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)
)
