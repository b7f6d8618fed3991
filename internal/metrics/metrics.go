package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// JobsScheduled is a counter for triggers scheduled.
	JobsScheduled = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tokenvault_jobs_scheduled_total",
			Help: "The total number of triggers scheduled.",
		},
		[]string{"job"},
	)

	// JobsCompleted is a counter for jobs completed successfully.
	JobsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tokenvault_jobs_completed_total",
			Help: "The total number of jobs completed successfully.",
		},
		[]string{"job"},
	)

	// JobsFailed is a counter for jobs that failed.
	JobsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tokenvault_jobs_failed_total",
			Help: "The total number of jobs that failed.",
		},
		[]string{"job"},
	)

	// JobRefires is a counter for immediate job re-executions.
	JobRefires = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tokenvault_job_refires_total",
			Help: "The total number of times a job was refired immediately.",
		},
		[]string{"job"},
	)

	// JobsSkipped counts firings dropped because the job was still running
	// or the worker queue was full.
	JobsSkipped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tokenvault_jobs_skipped_total",
			Help: "The total number of firings that did not run.",
		},
		[]string{"job", "reason"},
	)

	// JobDuration is a histogram of the time it takes to execute a job.
	JobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tokenvault_job_duration_seconds",
			Help:    "A histogram of the job execution duration.",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
		},
		[]string{"job"},
	)

	// JobsInFlight is a gauge that shows the number of currently running jobs.
	JobsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "tokenvault_jobs_in_flight",
			Help: "The number of jobs currently being executed.",
		},
	)

	// TokensPruned counts tokens removed by the maintenance job.
	TokensPruned = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tokenvault_tokens_pruned_total",
			Help: "The total number of tokens pruned.",
		},
	)

	// AuthorizationsPruned counts authorizations removed by the maintenance job.
	AuthorizationsPruned = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tokenvault_authorizations_pruned_total",
			Help: "The total number of authorizations pruned.",
		},
	)
)
