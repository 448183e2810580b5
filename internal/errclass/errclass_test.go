package errclass

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestClassificationPriority(t *testing.T) {
	cases := []struct {
		msg  string
		kind Kind
		sev  Severity
	}{
		{"Database network timeout", DatabaseError, SeverityHigh},
		{"Redis connection timeout", RedisError, SeverityHigh},
		{"Network timeout error", NetworkError, SeverityMedium},
		{"connection refused", RedisError, SeverityHigh},
		{"external API failure", ExternalServiceError, SeverityMedium},
		{"something weird happened", UnknownError, SeverityMedium},
	}
	for _, c := range cases {
		je := Classify(errors.New(c.msg))
		require.Equal(t, c.kind, je.Type, "Classify(%q) type", c.msg)
		require.Equal(t, c.sev, je.Severity, "Classify(%q) severity", c.msg)
	}
}

func TestClassificationStable(t *testing.T) {
	a := Classify(errors.New("Database error"))
	b := Classify(errors.New("database error"))
	require.Equal(t, a.Type, b.Type, "classification must be case-insensitive-stable")
	require.Equal(t, a.Severity, b.Severity, "classification must be case-insensitive-stable")
}

func TestBackoffMath(t *testing.T) {
	policy := RetryPolicy{BackoffMs: 100, BackoffMultiplier: 2, MaxBackoffMs: 30000}
	require.Equal(t, 400*time.Millisecond, CalculateBackoff(2, policy))

	policy2 := DefaultRetryPolicy()
	require.Equal(t, 30000*time.Millisecond, CalculateBackoff(10, policy2), "backoff must saturate at max")
}

func TestBackoffMonotoneUntilSaturation(t *testing.T) {
	policy := DefaultRetryPolicy()
	prev := time.Duration(0)
	for i := 0; i < 20; i++ {
		cur := CalculateBackoff(i, policy)
		require.GreaterOrEqual(t, cur, prev, "backoff must not decrease at retry %d", i)
		prev = cur
	}
}

func TestShouldRetry(t *testing.T) {
	policy := DefaultRetryPolicy()

	ok := &JobError{Type: NetworkError, Severity: SeverityMedium, RetryCount: 2}
	require.True(t, ShouldRetry(ok, policy), "expected retryable")

	exhausted := &JobError{Type: NetworkError, Severity: SeverityMedium, RetryCount: 3}
	require.False(t, ShouldRetry(exhausted, policy), "expected exhausted retries to be non-retryable")

	critical := &JobError{Type: NetworkError, Severity: SeverityCritical, RetryCount: 0}
	require.False(t, ShouldRetry(critical, policy), "expected critical severity to be non-retryable")

	validation := &JobError{Type: ValidationError, Severity: SeverityMedium, RetryCount: 0}
	require.False(t, ShouldRetry(validation, policy), "expected validation errors to be non-retryable")
}
