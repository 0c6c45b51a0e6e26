// Package metrics declares the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// PermissionChecks counts resolver outcomes by resolved level ("none", "read", "edit", "owner")
	PermissionChecks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "foldershare_permission_checks_total",
			Help: "Permission resolutions by resulting level",
		},
		[]string{"result"},
	)

	// AccessDenials counts gate denials by operation
	AccessDenials = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "foldershare_access_denials_total",
			Help: "Requests denied by the access gate",
		},
		[]string{"operation"},
	)

	// CascadeDeletes counts committed folder deletions and the rows they removed
	CascadeDeletes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "foldershare_cascade_deleted_rows_total",
			Help: "Rows removed by committed folder deletions",
		},
		[]string{"kind"},
	)

	// CascadeRollbacks counts folder deletions that rolled back
	CascadeRollbacks = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "foldershare_cascade_rollbacks_total",
			Help: "Folder deletions aborted and rolled back",
		},
	)

	// BlobDeleteFailures counts blob deletes that failed after metadata was removed
	BlobDeleteFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "foldershare_blob_delete_failures_total",
			Help: "Blob deletions that failed and left an orphan",
		},
	)

	// OrphansReclaimed counts orphaned blobs removed by the sweeper
	OrphansReclaimed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "foldershare_orphans_reclaimed_total",
			Help: "Orphaned blobs deleted by the reconciliation sweeper",
		},
	)

	// PublicLinkCache counts token cache lookups by result ("hit", "miss")
	PublicLinkCache = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "foldershare_public_link_cache_total",
			Help: "Public link token cache lookups",
		},
		[]string{"result"},
	)

	// HTTPRequests counts requests by method, route pattern and status
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "foldershare_http_requests_total",
			Help: "HTTP requests handled",
		},
		[]string{"method", "path", "status"},
	)

	// HTTPRequestDuration observes request latency by method and route pattern
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "foldershare_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)
)
