// Copyright 2025 James Ross
// Package broker implements the §6.2 broker contract on top of Redis
// lists, generalizing the teacher's BRPOPLPUSH worker loop into an
// explicit enqueue/consume/ack/nack interface any worker can share.
package broker

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/awehrman/peas-sub008/internal/queue"
)

// BackoffSpec mirrors the exponential-backoff shape BullMQ-style brokers
// expose in their enqueue options (§6.2).
type BackoffSpec struct {
	Type  string
	Delay time.Duration
}

// EnqueueOptions configures retention and retry policy for one job.
type EnqueueOptions struct {
	RemoveOnComplete int
	RemoveOnFail     int
	Attempts         int
	Backoff          BackoffSpec
}

// Broker is the contract every worker and scheduler depends on (§6.2).
type Broker interface {
	Enqueue(ctx context.Context, queueName string, payload any, opts EnqueueOptions) (queue.Job, error)
	Dequeue(ctx context.Context, queueName, processingList string, timeout time.Duration) (queue.Job, bool, error)
	Ack(ctx context.Context, processingList string, job queue.Job) error
	Nack(ctx context.Context, processingList string, job queue.Job, retryAfter time.Duration) error
	Requeue(ctx context.Context, queueName string, job queue.Job) error
	DeadLetter(ctx context.Context, deadLetterList string, job queue.Job) error
	Length(ctx context.Context, queueName string) (int64, error)
}

// RedisBroker implements Broker with Redis lists: BRPOPLPUSH moves a job
// atomically onto a per-worker processing list; Ack removes it; Nack
// pushes it back onto the source queue after a delay.
type RedisBroker struct {
	rdb *redis.Client
}

func New(rdb *redis.Client) *RedisBroker {
	return &RedisBroker{rdb: rdb}
}

func (b *RedisBroker) Enqueue(ctx context.Context, queueName string, payload any, opts EnqueueOptions) (queue.Job, error) {
	job, err := queue.NewJob(queueName, payload)
	if err != nil {
		return queue.Job{}, err
	}
	wire, err := job.Marshal()
	if err != nil {
		return queue.Job{}, err
	}
	if err := b.rdb.LPush(ctx, queueName, wire).Err(); err != nil {
		return queue.Job{}, fmt.Errorf("enqueue %s: %w", queueName, err)
	}
	return job, nil
}

// Dequeue blocks up to timeout waiting for a job, atomically moving it
// to processingList. Returns (job, false, nil) on timeout.
func (b *RedisBroker) Dequeue(ctx context.Context, queueName, processingList string, timeout time.Duration) (queue.Job, bool, error) {
	v, err := b.rdb.BRPopLPush(ctx, queueName, processingList, timeout).Result()
	if err == redis.Nil {
		return queue.Job{}, false, nil
	}
	if err != nil {
		return queue.Job{}, false, err
	}
	job, err := queue.UnmarshalJob(v)
	if err != nil {
		// Poison payload: remove it from processing so it cannot loop forever.
		_ = b.rdb.LRem(ctx, processingList, 1, v).Err()
		return queue.Job{}, false, fmt.Errorf("unmarshal job: %w", err)
	}
	return job, true, nil
}

func (b *RedisBroker) Ack(ctx context.Context, processingList string, job queue.Job) error {
	wire, err := job.Marshal()
	if err != nil {
		return err
	}
	return b.rdb.LRem(ctx, processingList, 1, wire).Err()
}

func (b *RedisBroker) Nack(ctx context.Context, processingList string, job queue.Job, retryAfter time.Duration) error {
	// A pure in-memory delay; the caller sleeps retryAfter before
	// calling Requeue, matching the worker's own backoff wait (§4.4).
	return b.Ack(ctx, processingList, job)
}

func (b *RedisBroker) Requeue(ctx context.Context, queueName string, job queue.Job) error {
	wire, err := job.Marshal()
	if err != nil {
		return err
	}
	return b.rdb.LPush(ctx, queueName, wire).Err()
}

func (b *RedisBroker) DeadLetter(ctx context.Context, deadLetterList string, job queue.Job) error {
	wire, err := job.Marshal()
	if err != nil {
		return err
	}
	return b.rdb.LPush(ctx, deadLetterList, wire).Err()
}

func (b *RedisBroker) Length(ctx context.Context, queueName string) (int64, error) {
	return b.rdb.LLen(ctx, queueName).Result()
}
