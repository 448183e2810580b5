// Copyright 2025 James Ross
// Package queue defines the Job entity shared by every stage queue and
// the broker contract jobs travel over (§3, §6.2).
package queue

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Job is immutable after creation except for its control fields
// (AttemptNumber, VisibleAt), per §3.
type Job struct {
	ID            string          `json:"id"`
	QueueName     string          `json:"queueName"`
	Payload       json.RawMessage `json:"payload"`
	AttemptNumber int             `json:"attemptNumber"`
	EnqueuedAt    time.Time       `json:"enqueuedAt"`
	VisibleAt     time.Time       `json:"visibleAt"`
}

// RetryCount derives from AttemptNumber per §3 ("retryCount = attemptNumber - 1").
func (j Job) RetryCount() int {
	if j.AttemptNumber < 1 {
		return 0
	}
	return j.AttemptNumber - 1
}

// NewJob constructs a queued job with attemptNumber=1 and the payload
// marshaled to JSON.
func NewJob(queueName string, payload any) (Job, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return Job{}, err
	}
	now := time.Now().UTC()
	return Job{
		ID:            uuid.NewString(),
		QueueName:     queueName,
		Payload:       b,
		AttemptNumber: 1,
		EnqueuedAt:    now,
		VisibleAt:     now,
	}, nil
}

// Marshal serializes the job envelope for transport over the broker.
func (j Job) Marshal() (string, error) {
	b, err := json.Marshal(j)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// UnmarshalJob parses a job envelope from its wire representation.
func UnmarshalJob(s string) (Job, error) {
	var j Job
	err := json.Unmarshal([]byte(s), &j)
	return j, err
}

// DecodePayload unmarshals the job's payload into dst.
func (j Job) DecodePayload(dst any) error {
	return json.Unmarshal(j.Payload, dst)
}

// NextAttempt returns a copy of the job with AttemptNumber incremented
// and an updated payload, ready to be requeued.
func (j Job) NextAttempt(payload any, visibleAt time.Time) (Job, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return Job{}, err
	}
	next := j
	next.Payload = b
	next.AttemptNumber++
	next.VisibleAt = visibleAt
	return next, nil
}
