// Copyright 2025 James Ross
// Package health implements the C9 system monitor: a process-scope
// singleton aggregating job/queue metrics and deriving a health report,
// consulted by the worker runtime (§4.4 step 3) before executing a
// job's action pipeline.
package health

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// Status is the closed set of health states (§3, §4.9).
type Status string

const (
	Healthy   Status = "healthy"
	Degraded  Status = "degraded"
	Unhealthy Status = "unhealthy"
)

// JobMetric is one recorded job outcome (§3).
type JobMetric struct {
	JobID      string
	Duration   time.Duration
	Success    bool
	QueueName  string
	WorkerName string
	Error      string
	Timestamp  time.Time
}

// QueueMetric is the latest known snapshot for one queue (§3).
type QueueMetric struct {
	QueueName      string
	JobCount       int64
	WaitingCount   int64
	ActiveCount    int64
	CompletedCount int64
	FailedCount    int64
	Timestamp      time.Time
}

// Check is a single component's health (§3).
type Check struct {
	Status       Status
	Message      string
	ResponseTime time.Duration
	LastChecked  time.Time
}

// Report is the composite snapshot returned by GenerateHealthReport/GetHealth.
type Report struct {
	OverallStatus   Status
	Database        Check
	Redis           Check
	Queues          map[string]Check
	Recommendations []string
	GeneratedAt     time.Time
}

// SystemMetrics is the aggregate produced by GetSystemMetrics (§4.9).
type SystemMetrics struct {
	TotalJobsProcessed int
	TotalJobsFailed    int
	AverageJobDuration time.Duration
	TotalErrors        int
	UptimeSeconds      float64
	CPUPercent         float64
	MemoryBytes        uint64
}

// RedisProbe reports connectivity/latency for the configured Redis host.
// Implementations are free to be as simple as a PING.
type RedisProbe func(ctx context.Context) (responseTime time.Duration, err error)

// DatabaseProbe reports connectivity/latency for the repository backend.
type DatabaseProbe func(ctx context.Context) (responseTime time.Duration, err error)

const cacheDuration = 30 * time.Second
const metricRetention = 24 * time.Hour
const metricCap = 1000

// Monitor is the C9 singleton. It is safe to construct a fresh Monitor
// in tests (the test-only reset hook §4.9 calls for); production code
// should share one instance across all workers.
type Monitor struct {
	mu sync.Mutex

	jobMetrics   []JobMetric
	jobIndex     map[string]int // jobId -> index into jobMetrics
	queueMetrics map[string]QueueMetric

	redisHost string
	redis     RedisProbe
	database  DatabaseProbe

	lastCheck time.Time
	cached    Report

	queueDegradedPct  float64
	queueUnhealthyPct float64
	jobDegradedPct    float64
	jobUnhealthyPct   float64
}

var (
	instance *Monitor
	once     sync.Once
)

// Instance returns the process-wide singleton, constructing it with
// conservative defaults on first use.
func Instance() *Monitor {
	once.Do(func() {
		instance = New(Options{})
	})
	return instance
}

// ResetForTest replaces the singleton; test-only per §4.9.
func ResetForTest(opts Options) *Monitor {
	instance = New(opts)
	return instance
}

// Options configures a Monitor.
type Options struct {
	RedisHost         string
	RedisProbe        RedisProbe
	DatabaseProbe     DatabaseProbe
	QueueDegradedPct  float64
	QueueUnhealthyPct float64
	JobDegradedPct    float64
	JobUnhealthyPct   float64
}

func New(opts Options) *Monitor {
	m := &Monitor{
		jobIndex:          make(map[string]int),
		queueMetrics:      make(map[string]QueueMetric),
		redisHost:         opts.RedisHost,
		redis:             opts.RedisProbe,
		database:          opts.DatabaseProbe,
		queueDegradedPct:  orDefault(opts.QueueDegradedPct, 0.10),
		queueUnhealthyPct: orDefault(opts.QueueUnhealthyPct, 0.25),
		jobDegradedPct:    orDefault(opts.JobDegradedPct, 0.05),
		jobUnhealthyPct:   orDefault(opts.JobUnhealthyPct, 0.15),
	}
	return m
}

func orDefault(v, def float64) float64 {
	if v == 0 {
		return def
	}
	return v
}

// TrackJobMetrics upserts a JobMetric; the same jobId overwrites (§4.9).
func (m *Monitor) TrackJobMetrics(jobID string, duration time.Duration, success bool, queueName, workerName, errMsg string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	metric := JobMetric{
		JobID:      jobID,
		Duration:   duration,
		Success:    success,
		QueueName:  queueName,
		WorkerName: workerName,
		Error:      errMsg,
		Timestamp:  time.Now().UTC(),
	}
	if idx, ok := m.jobIndex[jobID]; ok {
		m.jobMetrics[idx] = metric
		return
	}
	m.jobMetrics = append(m.jobMetrics, metric)
	m.jobIndex[jobID] = len(m.jobMetrics) - 1
	m.enforceCapLocked()
}

// enforceCapLocked drops the oldest entries beyond metricCap (FIFO, §4.9).
// Must be called with m.mu held.
func (m *Monitor) enforceCapLocked() {
	if len(m.jobMetrics) <= metricCap {
		return
	}
	drop := len(m.jobMetrics) - metricCap
	m.jobMetrics = m.jobMetrics[drop:]
	m.reindexLocked()
}

func (m *Monitor) reindexLocked() {
	m.jobIndex = make(map[string]int, len(m.jobMetrics))
	for i, jm := range m.jobMetrics {
		m.jobIndex[jm.JobID] = i
	}
}

// CleanupOldMetrics drops JobMetrics older than 24h and enforces the cap;
// intended to be invoked hourly (§4.9).
func (m *Monitor) CleanupOldMetrics() {
	m.mu.Lock()
	defer m.mu.Unlock()
	cutoff := time.Now().Add(-metricRetention)
	kept := m.jobMetrics[:0]
	for _, jm := range m.jobMetrics {
		if jm.Timestamp.After(cutoff) {
			kept = append(kept, jm)
		}
	}
	m.jobMetrics = kept
	m.reindexLocked()
	m.enforceCapLocked()
}

// TrackQueueMetrics upserts a QueueMetric snapshot for queueName (§4.9).
func (m *Monitor) TrackQueueMetrics(queueName string, jobCount, waitingCount, activeCount, completedCount, failedCount int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queueMetrics[queueName] = QueueMetric{
		QueueName:      queueName,
		JobCount:       jobCount,
		WaitingCount:   waitingCount,
		ActiveCount:    activeCount,
		CompletedCount: completedCount,
		FailedCount:    failedCount,
		Timestamp:      time.Now().UTC(),
	}
}

// GetSystemMetrics returns the aggregate view (§4.9).
func (m *Monitor) GetSystemMetrics() SystemMetrics {
	m.mu.Lock()
	defer m.mu.Unlock()

	var (
		failed       int
		totalErrors  int
		durationSum  time.Duration
		durationN    int
	)
	for _, jm := range m.jobMetrics {
		if !jm.Success {
			failed++
		}
		if jm.Error != "" {
			totalErrors++
		}
		if jm.Duration > 0 {
			durationSum += jm.Duration
			durationN++
		}
	}
	var avg time.Duration
	if durationN > 0 {
		avg = durationSum / time.Duration(durationN)
	}
	return SystemMetrics{
		TotalJobsProcessed: len(m.jobMetrics),
		TotalJobsFailed:    failed,
		AverageJobDuration: avg,
		TotalErrors:        totalErrors,
	}
}

// queueHealth classifies a queue's failure rate (§4.9, §8 scenario 1).
func (m *Monitor) queueHealth(qm QueueMetric) Check {
	if qm.JobCount == 0 {
		return Check{Status: Healthy, Message: "no jobs", LastChecked: time.Now().UTC()}
	}
	rate := float64(qm.FailedCount) / float64(qm.JobCount)
	switch {
	case rate >= m.queueUnhealthyPct:
		return Check{Status: Unhealthy, Message: fmt.Sprintf("High failure rate: %.1f%%", rate*100), LastChecked: time.Now().UTC()}
	case rate >= m.queueDegradedPct:
		return Check{Status: Degraded, Message: fmt.Sprintf("Elevated failure rate: %.1f%%", rate*100), LastChecked: time.Now().UTC()}
	default:
		return Check{Status: Healthy, Message: "nominal", LastChecked: time.Now().UTC()}
	}
}

// jobHealth classifies overall job failure rate (§4.9).
func (m *Monitor) jobHealth() Check {
	sm := m.GetSystemMetrics()
	if sm.TotalJobsProcessed == 0 {
		return Check{Status: Healthy, Message: "no jobs", LastChecked: time.Now().UTC()}
	}
	rate := float64(sm.TotalJobsFailed) / float64(sm.TotalJobsProcessed)
	switch {
	case rate >= m.jobUnhealthyPct:
		return Check{Status: Unhealthy, Message: fmt.Sprintf("High job failure rate: %.1f%%", rate*100), LastChecked: time.Now().UTC()}
	case rate >= m.jobDegradedPct:
		return Check{Status: Degraded, Message: fmt.Sprintf("Elevated job failure rate: %.1f%%", rate*100), LastChecked: time.Now().UTC()}
	default:
		return Check{Status: Healthy, Message: "nominal", LastChecked: time.Now().UTC()}
	}
}

// GenerateHealthReport composes per-queue and per-job health into an
// overall status with deterministic recommendations (§4.9, §8 invariant 4).
func (m *Monitor) GenerateHealthReport() Report {
	m.mu.Lock()
	queueSnapshot := make(map[string]QueueMetric, len(m.queueMetrics))
	for k, v := range m.queueMetrics {
		queueSnapshot[k] = v
	}
	m.mu.Unlock()

	queues := make(map[string]Check, len(queueSnapshot))
	names := make([]string, 0, len(queueSnapshot))
	for name := range queueSnapshot {
		names = append(names, name)
	}
	sort.Strings(names)

	overall := Healthy
	var recs []string
	for _, name := range names {
		c := m.queueHealth(queueSnapshot[name])
		queues[name] = c
		switch c.Status {
		case Unhealthy:
			overall = Unhealthy
			recs = append(recs, fmt.Sprintf("Investigate %s queue failures", name))
		case Degraded:
			if overall != Unhealthy {
				overall = Degraded
			}
			recs = append(recs, fmt.Sprintf("Monitor %s queue closely", name))
		}
	}

	jobCheck := m.jobHealth()
	switch jobCheck.Status {
	case Unhealthy:
		overall = Unhealthy
	case Degraded:
		if overall != Unhealthy {
			overall = Degraded
		}
	}

	return Report{
		OverallStatus:   overall,
		Queues:          queues,
		Recommendations: recs,
		GeneratedAt:     time.Now().UTC(),
	}
}

// GetHealth returns a cached report, refreshing after CACHE_DURATION_MS
// (§4.9). Database and Redis checks run concurrently.
func (m *Monitor) GetHealth(ctx context.Context) Report {
	m.mu.Lock()
	if !m.lastCheck.IsZero() && time.Since(m.lastCheck) < cacheDuration {
		cached := m.cached
		m.mu.Unlock()
		return cached
	}
	m.mu.Unlock()

	var wg sync.WaitGroup
	var dbCheck, redisCheck Check
	wg.Add(2)
	go func() {
		defer wg.Done()
		dbCheck = m.runDatabaseCheck(ctx)
	}()
	go func() {
		defer wg.Done()
		redisCheck = m.runRedisCheck(ctx)
	}()
	wg.Wait()

	report := m.GenerateHealthReport()
	report.Database = dbCheck
	report.Redis = redisCheck

	switch dbCheck.Status {
	case Unhealthy:
		report.OverallStatus = Unhealthy
		report.Recommendations = append(report.Recommendations, "Check database and Redis connectivity")
	case Degraded:
		if report.OverallStatus != Unhealthy {
			report.OverallStatus = Degraded
		}
	}
	switch redisCheck.Status {
	case Unhealthy:
		report.OverallStatus = Unhealthy
		report.Recommendations = append(report.Recommendations, "Check database and Redis connectivity")
	case Degraded:
		if report.OverallStatus != Unhealthy {
			report.OverallStatus = Degraded
		}
	}

	m.mu.Lock()
	m.lastCheck = time.Now()
	m.cached = report
	m.mu.Unlock()
	return report
}

func (m *Monitor) runDatabaseCheck(ctx context.Context) Check {
	if m.database == nil {
		return Check{Status: Healthy, Message: "no database probe configured", LastChecked: time.Now().UTC()}
	}
	rt, err := m.database(ctx)
	if err != nil {
		return Check{Status: Unhealthy, Message: err.Error(), LastChecked: time.Now().UTC()}
	}
	if rt >= 500*time.Millisecond {
		return Check{Status: Degraded, Message: "slow response", ResponseTime: rt, LastChecked: time.Now().UTC()}
	}
	return Check{Status: Healthy, Message: "ok", ResponseTime: rt, LastChecked: time.Now().UTC()}
}

func (m *Monitor) runRedisCheck(ctx context.Context) Check {
	if m.redisHost == "" {
		return Check{Status: Unhealthy, Message: "Redis host not configured", LastChecked: time.Now().UTC()}
	}
	if m.redis == nil {
		return Check{Status: Healthy, Message: "ok", LastChecked: time.Now().UTC()}
	}
	rt, err := m.redis(ctx)
	if err != nil {
		return Check{Status: Unhealthy, Message: err.Error(), LastChecked: time.Now().UTC()}
	}
	if rt >= 500*time.Millisecond {
		return Check{Status: Degraded, Message: "slow response", ResponseTime: rt, LastChecked: time.Now().UTC()}
	}
	return Check{Status: Healthy, Message: "ok", ResponseTime: rt, LastChecked: time.Now().UTC()}
}

// IsHealthy is the fast boolean check the worker loop consults before
// running a job's action pipeline (§4.4 step 3): only "unhealthy"
// blocks progress; "degraded" still allows jobs through.
func (m *Monitor) IsHealthy(ctx context.Context) bool {
	return m.GetHealth(ctx).OverallStatus != Unhealthy
}
