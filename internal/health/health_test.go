// Copyright 2025 James Ross
package health

import (
	"context"
	"testing"
	"time"
)

func TestQueueHealthThresholds(t *testing.T) {
	m := New(Options{})
	m.TrackQueueMetrics("queue-1", 100, 0, 0, 85, 15)
	report := m.GenerateHealthReport()
	c := report.Queues["queue-1"]
	if c.Status != Degraded {
		t.Fatalf("expected degraded, got %s", c.Status)
	}
	if c.Message != "Elevated failure rate: 15.0%" {
		t.Fatalf("unexpected message: %q", c.Message)
	}

	m.TrackQueueMetrics("queue-1", 100, 0, 0, 75, 25)
	report = m.GenerateHealthReport()
	c = report.Queues["queue-1"]
	if c.Status != Unhealthy {
		t.Fatalf("expected unhealthy, got %s", c.Status)
	}
	if c.Message != "High failure rate: 25.0%" {
		t.Fatalf("unexpected message: %q", c.Message)
	}
}

func TestOverallStatusAggregation(t *testing.T) {
	m := New(Options{})
	m.TrackQueueMetrics("ok-queue", 10, 0, 0, 10, 0)
	report := m.GenerateHealthReport()
	if report.OverallStatus != Healthy {
		t.Fatalf("expected healthy, got %s", report.OverallStatus)
	}

	m.TrackQueueMetrics("bad-queue", 10, 0, 0, 0, 5)
	report = m.GenerateHealthReport()
	if report.OverallStatus != Unhealthy {
		t.Fatalf("expected unhealthy once any queue is unhealthy, got %s", report.OverallStatus)
	}
}

func TestAverageJobDurationExcludesZero(t *testing.T) {
	m := New(Options{})
	m.TrackJobMetrics("j1", 0, true, "q", "w", "")
	m.TrackJobMetrics("j2", 100*time.Millisecond, true, "q", "w", "")
	m.TrackJobMetrics("j3", 300*time.Millisecond, true, "q", "w", "")
	sm := m.GetSystemMetrics()
	if sm.TotalJobsProcessed != 3 {
		t.Fatalf("expected 3 processed, got %d", sm.TotalJobsProcessed)
	}
	if sm.AverageJobDuration != 200*time.Millisecond {
		t.Fatalf("expected 200ms average excluding zero duration, got %s", sm.AverageJobDuration)
	}
}

func TestTrackJobMetricsOverwritesByJobID(t *testing.T) {
	m := New(Options{})
	m.TrackJobMetrics("j1", 100*time.Millisecond, true, "q", "w", "")
	m.TrackJobMetrics("j1", 200*time.Millisecond, false, "q", "w", "boom")
	sm := m.GetSystemMetrics()
	if sm.TotalJobsProcessed != 1 {
		t.Fatalf("expected overwrite to keep a single metric, got %d", sm.TotalJobsProcessed)
	}
	if sm.TotalJobsFailed != 1 {
		t.Fatalf("expected the overwritten metric to count as failed")
	}
}

func TestRedisCheckMissingHost(t *testing.T) {
	m := New(Options{})
	report := m.GetHealth(context.Background())
	if report.Redis.Status != Unhealthy || report.Redis.Message != "Redis host not configured" {
		t.Fatalf("expected unhealthy missing-host redis check, got %+v", report.Redis)
	}
	if report.OverallStatus != Unhealthy {
		t.Fatalf("missing redis host must make overall status unhealthy")
	}
}

func TestRedisCheckSlowResponseDegraded(t *testing.T) {
	m := New(Options{
		RedisHost: "localhost:6379",
		RedisProbe: func(ctx context.Context) (time.Duration, error) {
			return 600 * time.Millisecond, nil
		},
	})
	report := m.GetHealth(context.Background())
	if report.Redis.Status != Degraded {
		t.Fatalf("expected degraded for slow redis, got %s", report.Redis.Status)
	}
}

func TestGetHealthCaches(t *testing.T) {
	calls := 0
	m := New(Options{
		RedisHost: "localhost:6379",
		RedisProbe: func(ctx context.Context) (time.Duration, error) {
			calls++
			return 0, nil
		},
	})
	ctx := context.Background()
	m.GetHealth(ctx)
	m.GetHealth(ctx)
	if calls != 1 {
		t.Fatalf("expected cached second call to skip the redis probe, got %d calls", calls)
	}
}

func TestIsHealthyFalseWhenUnhealthy(t *testing.T) {
	m := New(Options{}) // no redis host configured -> unhealthy
	if m.IsHealthy(context.Background()) {
		t.Fatal("expected unhealthy with no redis host configured")
	}
}

func TestCleanupOldMetricsDropsStaleAndEnforcesCap(t *testing.T) {
	m := New(Options{})
	for i := 0; i < 5; i++ {
		m.TrackJobMetrics(string(rune('a'+i)), 10*time.Millisecond, true, "q", "w", "")
	}
	m.mu.Lock()
	m.jobMetrics[0].Timestamp = time.Now().Add(-25 * time.Hour)
	m.mu.Unlock()
	m.CleanupOldMetrics()
	sm := m.GetSystemMetrics()
	if sm.TotalJobsProcessed != 4 {
		t.Fatalf("expected stale metric dropped, got %d remaining", sm.TotalJobsProcessed)
	}
}
