// Copyright 2025 James Ross
// Package worker implements the C4 queue & worker runtime: the generic
// processing loop that dequeues a job, validates it, consults system
// health, runs the job's action pipeline, and acks/retries/dead-letters
// it — generalized from the teacher's BRPOPLPUSH worker loop into an
// action-pipeline-driven runtime (§4.4).
package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/awehrman/peas-sub008/internal/actions"
	"github.com/awehrman/peas-sub008/internal/broker"
	"github.com/awehrman/peas-sub008/internal/errclass"
	"github.com/awehrman/peas-sub008/internal/health"
	"github.com/awehrman/peas-sub008/internal/obs"
	"github.com/awehrman/peas-sub008/internal/queue"
	"github.com/awehrman/peas-sub008/internal/status"
)

// PayloadValidator validates a stage's required fields before any
// action runs (§4.4 step 2) and extracts the noteId for FAILED events.
type PayloadValidator interface {
	Validate(payload []byte) (noteID string, err error)
}

// FollowOn is scheduled after the pipeline's last action succeeds
// (§4.4 step 5) — e.g. fanning out ingredient/instruction jobs, or
// scheduling categorization.
type FollowOn func(ctx context.Context, result any) error

// Worker binds a queueName to a dependencies bundle, an ordered action
// pipeline, a concurrency limit, and a retry policy (§4.4).
type Worker struct {
	QueueName      string
	ProcessingList string
	Concurrency    int
	RetryPolicy    errclass.RetryPolicy

	Broker    broker.Broker
	Health    *health.Monitor
	Monitor   *health.Monitor // metrics sink; same instance as Health in practice
	Logger    *zap.Logger
	Deps      actions.Deps
	Pipeline  []*actions.BaseAction
	Validator PayloadValidator
	WorkerKind string
	FollowOn  FollowOn

	DequeueTimeout time.Duration
}

const defaultConcurrency = 3

// Run launches Concurrency goroutines, each looping until ctx is done.
func (w *Worker) Run(ctx context.Context) {
	concurrency := w.Concurrency
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}
	var wg sync.WaitGroup
	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func(slot int) {
			defer wg.Done()
			w.loop(ctx, fmt.Sprintf("%s-%d", w.QueueName, slot))
		}(i)
	}
	wg.Wait()
}

func (w *Worker) loop(ctx context.Context, workerName string) {
	timeout := w.DequeueTimeout
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	for ctx.Err() == nil {
		job, ok, err := w.Broker.Dequeue(ctx, w.QueueName, w.ProcessingList, timeout)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			w.Logger.Warn("dequeue error", zap.String("queue", w.QueueName), zap.Error(err))
			time.Sleep(50 * time.Millisecond)
			continue
		}
		if !ok {
			continue
		}
		obs.JobsConsumed.WithLabelValues(w.QueueName).Inc()
		start := time.Now()
		success := w.processJob(ctx, workerName, job)
		duration := time.Since(start)
		obs.JobProcessingDuration.WithLabelValues(w.QueueName).Observe(duration.Seconds())
		if w.Monitor != nil {
			errMsg := ""
			w.Monitor.TrackJobMetrics(job.ID, duration, success, w.QueueName, workerName, errMsg)
		}
	}
}

// processJob runs §4.4's five-step processing loop for one job.
func (w *Worker) processJob(ctx context.Context, workerName string, job queue.Job) bool {
	actx := actions.Context{
		JobID:         job.ID,
		AttemptNumber: job.AttemptNumber,
		RetryCount:    job.RetryCount(),
		QueueName:     w.QueueName,
		WorkerName:    workerName,
		StartTime:     time.Now(),
	}

	// Step 2: validate payload; non-retryable on failure.
	var noteID string
	if w.Validator != nil {
		var err error
		noteID, err = w.Validator.Validate(job.Payload)
		if err != nil {
			w.failTerminal(ctx, job, actx, noteID, errclass.ClassifyValidation(err.Error()))
			return false
		}
	}
	actx.Operation = noteID

	// Step 3: consult health monitor; unhealthy blocks with a retryable error.
	if w.Health != nil && !w.Health.IsHealthy(ctx) {
		je := &errclass.JobError{
			Type:       errclass.ExternalServiceError,
			Severity:   errclass.SeverityHigh,
			Message:    "system unhealthy",
			RetryCount: job.RetryCount(),
		}
		return w.handleRetryableFailure(ctx, job, actx, noteID, je)
	}

	// Step 4: execute the action pipeline sequentially.
	var payload any = job.Payload
	for _, action := range w.Pipeline {
		result, err := action.Execute(ctx, payload, w.Deps, actx)
		if err != nil {
			qe, isQueueErr := asQueueError(err)
			if !isQueueErr {
				qe = &errclass.QueueError{JobError: errclass.Classify(err)}
			}
			qe.JobID = job.ID
			qe.QueueName = w.QueueName
			qe.RetryCount = job.RetryCount()
			return w.handleRetryableFailure(ctx, job, actx, noteID, qe.JobError)
		}
		payload = result
	}

	// Step 5: success — metric, ack, follow-on.
	obs.JobsCompleted.WithLabelValues(w.QueueName).Inc()
	if err := w.Broker.Ack(ctx, w.ProcessingList, job); err != nil {
		w.Logger.Error("ack failed", zap.String("jobId", job.ID), zap.Error(err))
	}
	if w.FollowOn != nil {
		if err := w.FollowOn(ctx, payload); err != nil {
			w.Logger.Error("follow-on scheduling failed", zap.String("jobId", job.ID), zap.Error(err))
		}
	}
	return true
}

func asQueueError(err error) (*errclass.QueueError, bool) {
	qe, ok := err.(*errclass.QueueError)
	return qe, ok
}

// handleRetryableFailure applies shouldRetry and either requeues with
// backoff or terminates the job (§4.1, §4.4 step 4).
func (w *Worker) handleRetryableFailure(ctx context.Context, job queue.Job, actx actions.Context, noteID string, je *errclass.JobError) bool {
	if errclass.ShouldRetry(je, w.RetryPolicy) {
		backoff := errclass.CalculateBackoff(job.RetryCount(), w.RetryPolicy)
		obs.JobsRetried.WithLabelValues(w.QueueName).Inc()
		nextJob, err := job.NextAttempt(job.Payload, time.Now().Add(backoff))
		if err != nil {
			w.Logger.Error("failed to build next attempt", zap.Error(err))
		} else {
			select {
			case <-ctx.Done():
			case <-time.After(backoff):
			}
			if err := w.Broker.Requeue(ctx, w.QueueName, nextJob); err != nil {
				w.Logger.Error("requeue failed", zap.Error(err))
			}
		}
		_ = w.Broker.Ack(ctx, w.ProcessingList, job)
		return false
	}
	w.failTerminal(ctx, job, actx, noteID, je)
	return false
}

func (w *Worker) failTerminal(ctx context.Context, job queue.Job, actx actions.Context, noteID string, je *errclass.JobError) {
	obs.JobsFailed.WithLabelValues(w.QueueName).Inc()
	w.Logger.Error("job failed terminally",
		zap.String("jobId", job.ID),
		zap.String("type", string(je.Type)),
		zap.String("severity", string(je.Severity)),
		zap.String("message", je.Message),
	)
	if noteID != "" && w.Deps.StatusBroadcaster != nil {
		_, err := w.Deps.StatusBroadcaster.AddStatusEventAndBroadcast(ctx, status.Event{
			NoteID:  noteID,
			Status:  status.Failed,
			Message: je.Message,
			Context: string(w.WorkerKind),
		})
		if err != nil {
			w.Logger.Warn("failed to broadcast terminal failure", zap.Error(err))
		}
	}
	if err := w.Broker.DeadLetter(ctx, deadLetterListFor(w.QueueName), job); err != nil {
		w.Logger.Error("dead-letter failed", zap.Error(err))
	}
	_ = w.Broker.Ack(ctx, w.ProcessingList, job)
}

func deadLetterListFor(queueName string) string {
	return queueName + ":dead-letter"
}
