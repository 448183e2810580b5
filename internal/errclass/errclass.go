// Copyright 2025 James Ross
// Package errclass classifies raw job failures into a closed set of
// error kinds with severities, and computes retry eligibility and
// exponential backoff for the queue/worker runtime.
package errclass

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Kind is the closed set of error classifications (§4.1, §7).
type Kind string

const (
	DatabaseError         Kind = "DATABASE_ERROR"
	RedisError            Kind = "REDIS_ERROR"
	NetworkError          Kind = "NETWORK_ERROR"
	TimeoutError          Kind = "TIMEOUT_ERROR"
	ExternalServiceError  Kind = "EXTERNAL_SERVICE_ERROR"
	WorkerError           Kind = "WORKER_ERROR"
	ValidationError       Kind = "VALIDATION_ERROR"
	UnknownError          Kind = "UNKNOWN_ERROR"
)

// Severity ranks how urgently an error should be surfaced/alerted.
type Severity string

const (
	SeverityLow      Severity = "LOW"
	SeverityMedium   Severity = "MEDIUM"
	SeverityHigh     Severity = "HIGH"
	SeverityCritical Severity = "CRITICAL"
)

// JobError is the classified, structured representation of a raw failure.
type JobError struct {
	Type          Kind
	Severity      Severity
	Message       string
	Code          string
	Context       map[string]any
	OriginalError error
	Timestamp     time.Time
	JobID         string
	QueueName     string
	RetryCount    int
}

func (e *JobError) Error() string {
	return fmt.Sprintf("[%s/%s] %s", e.Type, e.Severity, e.Message)
}

func (e *JobError) Unwrap() error { return e.OriginalError }

// QueueError wraps a JobError as the canonical error type thrown by the
// worker runtime and by withErrorHandling.
type QueueError struct {
	*JobError
}

func (e *QueueError) Error() string { return e.JobError.Error() }

// classificationRule is one ordered entry in the classifier's rule table.
type classificationRule struct {
	substrings []string
	kind       Kind
	severity   Severity
}

// rules is evaluated in order; the first match wins (§4.1).
var rules = []classificationRule{
	{[]string{"database", "prisma", "sql"}, DatabaseError, SeverityHigh},
	{[]string{"redis", "connection refused", "econnrefused"}, RedisError, SeverityHigh},
	{[]string{"network", "timeout", "timed out", "econnreset"}, NetworkError, SeverityMedium},
	{[]string{"api", "service", "http", "external"}, ExternalServiceError, SeverityMedium},
}

// errLike is satisfied by anything carrying a human-readable message,
// mirroring the loosely-typed "value with a .message field" input the
// spec describes for non-Go callers.
type errLike interface {
	Error() string
}

// Classify maps a raw error (an error, or any value whose message can be
// derived) into a JobError. The first matching rule in §4.1 wins; if
// nothing matches, the result is UNKNOWN_ERROR/MEDIUM.
func Classify(raw any) *JobError {
	msg := messageOf(raw)
	lower := strings.ToLower(msg)

	var orig error
	if e, ok := raw.(error); ok {
		orig = e
	}

	for _, r := range rules {
		for _, s := range r.substrings {
			if strings.Contains(lower, s) {
				return &JobError{
					Type:          r.kind,
					Severity:      r.severity,
					Message:       msg,
					OriginalError: orig,
					Timestamp:     time.Now().UTC(),
				}
			}
		}
	}

	return &JobError{
		Type:          UnknownError,
		Severity:      SeverityMedium,
		Message:       msg,
		OriginalError: orig,
		Timestamp:     time.Now().UTC(),
	}
}

// ClassifyValidation builds a JobError for a local validation failure.
// It is surfaced as UNKNOWN_ERROR with an explicit message prefix per
// §4.1's note that VALIDATION_ERROR is embedded in the legacy classifier
// rather than given its own distinct kind here.
func ClassifyValidation(msg string) *JobError {
	return &JobError{
		Type:      ValidationError,
		Severity:  SeverityMedium,
		Message:   "validation error: " + msg,
		Timestamp: time.Now().UTC(),
	}
}

func messageOf(raw any) string {
	switch v := raw.(type) {
	case nil:
		return "unknown error"
	case string:
		return v
	case errLike:
		return v.Error()
	default:
		return fmt.Sprintf("%v", v)
	}
}

// RetryPolicy carries the tunables for backoff/retry decisions (§4.1).
type RetryPolicy struct {
	MaxRetries        int
	BackoffMs         int64
	BackoffMultiplier float64
	MaxBackoffMs      int64
}

// DefaultRetryPolicy matches the spec's stated defaults.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries:        3,
		BackoffMs:         1000,
		BackoffMultiplier: 2,
		MaxBackoffMs:      30000,
	}
}

// CalculateBackoff computes min(maxBackoffMs, backoffMs * multiplier^retryCount).
// It is a pure math function: negative/zero retryCount is not clamped, and
// zero/negative multipliers are applied as-is. Callers choose legal ranges.
func CalculateBackoff(retryCount int, policy RetryPolicy) time.Duration {
	backoff := float64(policy.BackoffMs)
	for i := 0; i < retryCount; i++ {
		backoff *= policy.BackoffMultiplier
	}
	if retryCount < 0 {
		// Pure exponent semantics: negative exponent divides instead of
		// multiplying, matching math.Pow's behavior for negative n.
		backoff = float64(policy.BackoffMs)
		for i := 0; i > retryCount; i-- {
			if policy.BackoffMultiplier == 0 {
				break
			}
			backoff /= policy.BackoffMultiplier
		}
	}
	if backoff < 0 {
		backoff = -backoff
	}
	ms := int64(backoff)
	if ms > policy.MaxBackoffMs {
		ms = policy.MaxBackoffMs
	}
	return time.Duration(ms) * time.Millisecond
}

// ShouldRetry reports whether a classified error is retryable under policy.
func ShouldRetry(je *JobError, policy RetryPolicy) bool {
	if je == nil {
		return false
	}
	if je.Severity == SeverityCritical {
		return false
	}
	if je.Type == ValidationError {
		return false
	}
	return je.RetryCount < policy.MaxRetries
}

// Channel reports which log channel a severity should be routed to,
// per §4.1's "severity-keyed prefixes" logging format.
func (s Severity) Channel() string {
	switch s {
	case SeverityCritical, SeverityHigh:
		return "error"
	case SeverityMedium:
		return "warn"
	default:
		return "info"
	}
}

// LogRecord is the structured, one-record-per-error shape from §4.1.
type LogRecord struct {
	Timestamp  string         `json:"timestamp"`
	Type       Kind           `json:"type"`
	Severity   Severity       `json:"severity"`
	Message    string         `json:"message"`
	Code       string         `json:"code,omitempty"`
	JobID      string         `json:"jobId,omitempty"`
	QueueName  string         `json:"queueName,omitempty"`
	RetryCount int            `json:"retryCount,omitempty"`
	Context    map[string]any `json:"context,omitempty"`
}

// ToLogRecord renders a JobError into its structured logging shape.
func (e *JobError) ToLogRecord() LogRecord {
	return LogRecord{
		Timestamp:  e.Timestamp.Format(time.RFC3339Nano),
		Type:       e.Type,
		Severity:   e.Severity,
		Message:    e.Message,
		Code:       e.Code,
		JobID:      e.JobID,
		QueueName:  e.QueueName,
		RetryCount: e.RetryCount,
		Context:    e.Context,
	}
}

// WithErrorHandling awaits op(), returning its result on success. On
// failure it classifies the error and returns a QueueError wrapping the
// JobError merged with the supplied context fields.
func WithErrorHandling[T any](ctx context.Context, op func(context.Context) (T, error), fields map[string]any) (T, error) {
	result, err := op(ctx)
	if err == nil {
		return result, nil
	}
	je := Classify(err)
	if je.Context == nil {
		je.Context = map[string]any{}
	}
	for k, v := range fields {
		je.Context[k] = v
	}
	if jobID, ok := fields["jobId"].(string); ok {
		je.JobID = jobID
	}
	if queueName, ok := fields["queueName"].(string); ok {
		je.QueueName = queueName
	}
	var zero T
	return zero, &QueueError{JobError: je}
}
