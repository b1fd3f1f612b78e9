package scheduler

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// JobRunsTotal counts started job runs.
	JobRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "kalshi_edge_scheduler_job_runs_total",
		Help: "Total number of scheduled job runs started",
	}, []string{"job"})

	// JobFailuresTotal counts job runs that returned an error or panicked.
	JobFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "kalshi_edge_scheduler_job_failures_total",
		Help: "Total number of scheduled job runs that failed",
	}, []string{"job"})

	// JobSkipsTotal counts fires skipped because the previous run of the
	// same job was still going.
	JobSkipsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "kalshi_edge_scheduler_job_skips_total",
		Help: "Total number of job fires skipped due to an overlapping run",
	}, []string{"job"})

	// JobDurationSeconds tracks job run wall time.
	JobDurationSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "kalshi_edge_scheduler_job_duration_seconds",
		Help:    "Duration of scheduled job runs",
		Buckets: prometheus.ExponentialBuckets(0.1, 2, 14),
	}, []string{"job"})

	// ReschedulesTotal counts runtime scan schedule changes.
	ReschedulesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "kalshi_edge_scheduler_reschedules_total",
		Help: "Total number of runtime scan schedule updates",
	})
)
