package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ReportRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cohortx_report_runs_total",
		Help: "Total number of report runs by source and status",
	}, []string{"source", "status"})

	ReportRunDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "cohortx_report_run_duration_seconds",
		Help:    "End to end duration of report runs",
		Buckets: prometheus.DefBuckets,
	})

	PipelineStageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "cohortx_pipeline_stage_duration_seconds",
		Help:    "Duration of individual report pipeline stages",
		Buckets: prometheus.DefBuckets,
	}, []string{"stage"})

	RowsStagedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cohortx_rows_staged_total",
		Help: "Total number of rows staged into the warehouse by table",
	}, []string{"table"})

	CacheHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cohortx_cache_hits_total",
		Help: "Total number of report cache hits",
	})

	CacheMissesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cohortx_cache_misses_total",
		Help: "Total number of report cache misses",
	})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "cohortx_http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cohortx_http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})
)
