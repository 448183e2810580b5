// Copyright 2025 James Ross
package obs

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	JobsEnqueued = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pipeline_jobs_enqueued_total",
		Help: "Total number of jobs enqueued, by queue",
	}, []string{"queue"})
	JobsConsumed = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pipeline_jobs_consumed_total",
		Help: "Total number of jobs consumed by workers, by queue",
	}, []string{"queue"})
	JobsCompleted = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pipeline_jobs_completed_total",
		Help: "Total number of successfully completed jobs, by queue",
	}, []string{"queue"})
	JobsFailed = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pipeline_jobs_failed_total",
		Help: "Total number of terminally failed jobs, by queue",
	}, []string{"queue"})
	JobsRetried = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pipeline_jobs_retried_total",
		Help: "Total number of job retries, by queue",
	}, []string{"queue"})
	JobsDeadLetter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pipeline_jobs_dead_letter_total",
		Help: "Total number of jobs moved to the dead letter list, by queue",
	}, []string{"queue"})
	JobProcessingDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "pipeline_job_processing_duration_seconds",
		Help:    "Histogram of per-job action pipeline durations",
		Buckets: prometheus.DefBuckets,
	}, []string{"queue"})
	QueueLength = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "pipeline_queue_length",
		Help: "Current length of each stage queue",
	}, []string{"queue"})
	CircuitBreakerState = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "pipeline_circuit_breaker_state",
		Help: "0 Closed, 1 HalfOpen, 2 Open",
	})
	CircuitBreakerTrips = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "pipeline_circuit_breaker_trips_total",
		Help: "Count of times the circuit breaker transitioned to Open",
	})
	PatternOccurrences = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "pipeline_pattern_occurrences_total",
		Help: "Total number of pattern upserts recorded",
	})
	WorkerActive = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "pipeline_worker_active",
		Help: "Number of active worker goroutines",
	})
)

func init() {
	prometheus.MustRegister(
		JobsEnqueued, JobsConsumed, JobsCompleted, JobsFailed, JobsRetried,
		JobsDeadLetter, JobProcessingDuration, QueueLength,
		CircuitBreakerState, CircuitBreakerTrips, PatternOccurrences, WorkerActive,
	)
}
