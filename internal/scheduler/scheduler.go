// Copyright 2025 James Ross
// Package scheduler implements the C6 cross-stage scheduler: a one-shot
// function holding no graph state that, on ingredient completion,
// enqueues a single categorization job for a note (§4.6, §9's cyclic
// scheduling design note).
package scheduler

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"go.uber.org/zap"

	"github.com/awehrman/peas-sub008/internal/broker"
	"github.com/awehrman/peas-sub008/internal/queue"
	"github.com/awehrman/peas-sub008/internal/status"
)

const CategorizationQueue = "categorization"

// CategorizationMetadata mirrors the metadata block attached to a
// scheduled categorization job (§4.6).
type CategorizationMetadata struct {
	OriginalJobID string    `json:"originalJobId,omitempty"`
	TriggeredBy   string    `json:"triggeredBy"`
	ScheduledAt   time.Time `json:"scheduledAt"`
}

// CategorizationJobData is the payload enqueued onto the categorization
// queue by ScheduleCategorizationJob (§4.6).
type CategorizationJobData struct {
	NoteID   string                 `json:"noteId"`
	ImportID string                 `json:"importId"`
	JobID    string                 `json:"jobId"`
	Metadata CategorizationMetadata `json:"metadata"`
}

var defaultEnqueueOptions = broker.EnqueueOptions{
	RemoveOnComplete: 100,
	RemoveOnFail:     50,
	Attempts:         3,
	Backoff:          broker.BackoffSpec{Type: "exponential", Delay: 2 * time.Second},
}

// ScheduleCategorizationJob performs the four-step scheduling sequence
// from §4.6. It holds no state of its own between calls — deduplication
// per note/import is the caller's responsibility (§4.6's open
// "Deduplication" note; see completion.Tracker.MarkScheduled/WasScheduled
// for the supporting, non-enforcing flag §9 asks for).
func ScheduleCategorizationJob(ctx context.Context, b broker.Broker, noteID, importID string, logger *zap.Logger, broadcaster status.Broadcaster, originalJobID string) (queue.Job, error) {
	if broadcaster != nil {
		_, err := broadcaster.AddStatusEventAndBroadcast(ctx, status.Event{
			ImportID: importID,
			NoteID:   noteID,
			Status:   status.Processing,
			Message:  "Scheduling categorization...",
			Context:  "categorization_scheduling",
		})
		if err != nil && logger != nil {
			logger.Warn("status broadcast failed during categorization scheduling", zap.Error(err))
		}
	}

	jobID := fmt.Sprintf("categorization-%s-%d", noteID, timestampWithJitter())
	data := CategorizationJobData{
		NoteID:   noteID,
		ImportID: importID,
		JobID:    jobID,
		Metadata: CategorizationMetadata{
			OriginalJobID: originalJobID,
			TriggeredBy:   "ingredient_completion",
			ScheduledAt:   time.Now().UTC(),
		},
	}

	job, err := b.Enqueue(ctx, CategorizationQueue, data, defaultEnqueueOptions)
	if err != nil {
		if logger != nil {
			logger.Error("failed to schedule categorization job", zap.String("noteId", noteID), zap.Error(err))
		}
		return queue.Job{}, fmt.Errorf("schedule categorization job for note %s: %w", noteID, err)
	}
	return job, nil
}

// timestampWithJitter returns now()+random(0,1000)ms in milliseconds, as
// required to guarantee unique categorization jobIds under rapid
// successive scheduling for the same note (§4.6, §8 invariant 9).
func timestampWithJitter() int64 {
	return time.Now().UnixMilli() + int64(rand.Intn(1000))
}
