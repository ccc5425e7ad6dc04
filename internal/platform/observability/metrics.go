package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RecordsIngested = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "trends_records_ingested_total",
		Help: "The total number of weekly issue records folded into the table",
	}, []string{"category"})

	RecordsRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "trends_records_rejected_total",
		Help: "The total number of records rejected at the ingestion boundary by reason",
	}, []string{"reason"})

	BatchDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "trends_batch_duration_seconds",
		Help:    "Duration in seconds of one full aggregation batch",
		Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60},
	})

	TableBuckets = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "trends_table_buckets",
		Help: "Number of (category, month) buckets in the current aggregation table",
	})

	QueriesServed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "trends_queries_served_total",
		Help: "The total number of read queries served by endpoint and status",
	}, []string{"endpoint", "status"})

	ExportRowsWritten = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "trends_export_rows_written_total",
		Help: "The total number of rows written to analysis export files",
	}, []string{"table"})
)
