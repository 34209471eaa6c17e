package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collectors are registered on the default registry by promauto.
var (
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cinema_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"route", "code", "method"},
	)

	BatchRows = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cinema_batch_rows_total",
			Help: "Rows committed by the batch loader",
		},
		[]string{"table"},
	)

	BatchCommits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cinema_batch_commits_total",
			Help: "Batches committed by the batch loader",
		},
		[]string{"table"},
	)

	DBTxDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "cinema_db_tx_seconds",
			Help:    "Duration of batch write transactions",
			Buckets: prometheus.DefBuckets,
		},
	)

	ObjectsUploaded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cinema_objects_uploaded_total",
			Help: "Objects written to object storage",
		},
		[]string{"format"},
	)

	DynamoItemsWritten = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cinema_dynamo_items_written_total",
			Help: "Items written to DynamoDB",
		},
		[]string{"table"},
	)

	JobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cinema_job_seconds",
			Help:    "Duration of ingestion jobs",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
		},
		[]string{"job", "mode", "status"},
	)

	RateLimitExceeded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cinema_rate_limit_exceeded_total",
			Help: "Total rate limit exceeded",
		},
	)
)
