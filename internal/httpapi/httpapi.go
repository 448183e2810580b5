// Copyright 2025 James Ross
// Package httpapi implements §6.1's metrics/health HTTP surface: thin
// gorilla/mux wrappers delegating to internal/health for computation,
// mirroring the teacher's internal/obs/http.go "thin handler" style.
package httpapi

import (
	"encoding/json"
	"net/http"
	"runtime"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"

	"github.com/awehrman/peas-sub008/internal/health"
)

// errorEnvelope is §6.1's error response shape for every metrics route.
type errorEnvelope struct {
	Success   bool   `json:"success"`
	Error     string `json:"error"`
	Operation string `json:"operation"`
}

// dataEnvelope is §6.1's success response shape for the non-prometheus
// metrics routes.
type dataEnvelope struct {
	Success   bool      `json:"success"`
	Data      any       `json:"data"`
	Timestamp time.Time `json:"timestamp"`
}

// healthResponse is §6.1's /metrics/health response shape.
type healthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Error     string    `json:"error,omitempty"`
}

// PerformanceMetrics is the derived shape /metrics/performance reports
// and /metrics/health classifies. Pointer fields let a provider signal
// a property is missing (as opposed to zero) so health derivation can
// treat it as falsy per §6.1.
type PerformanceMetrics struct {
	ErrorCount        *int     `json:"errorCount,omitempty"`
	RequestDurationMs *float64 `json:"requestDurationMs,omitempty"`
	MemoryUsageBytes  *uint64  `json:"memoryUsageBytes,omitempty"`
}

const (
	healthyErrorCountMax  = 10
	healthyDurationMaxMs  = 5000
	healthyMemoryMaxBytes = 500 * 1024 * 1024
)

// isHealthy implements §6.1's strict-less-than thresholds; equality and
// missing properties both classify as degraded.
func isHealthy(pm PerformanceMetrics) bool {
	return pm.ErrorCount != nil && *pm.ErrorCount < healthyErrorCountMax &&
		pm.RequestDurationMs != nil && *pm.RequestDurationMs < healthyDurationMaxMs &&
		pm.MemoryUsageBytes != nil && *pm.MemoryUsageBytes < healthyMemoryMaxBytes
}

// API wires §6.1's four routes against a health.Monitor.
type API struct {
	Monitor *health.Monitor
}

func New(monitor *health.Monitor) *API {
	return &API{Monitor: monitor}
}

// Register mounts every §6.1 route onto r.
func (a *API) Register(r *mux.Router) {
	r.HandleFunc("/metrics/prometheus", a.handlePrometheus).Methods(http.MethodGet)
	r.HandleFunc("/metrics/snapshot", a.handleSnapshot).Methods(http.MethodGet)
	r.HandleFunc("/metrics/performance", a.handlePerformance).Methods(http.MethodGet)
	r.HandleFunc("/metrics/health", a.handleHealth).Methods(http.MethodGet)
}

func (a *API) handlePrometheus(w http.ResponseWriter, r *http.Request) {
	families, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		writeError(w, "get_prometheus_metrics", err)
		return
	}
	w.Header().Set("Content-Type", string(expfmt.NewFormat(expfmt.TypeTextPlain)))
	enc := expfmt.NewEncoder(w, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, mf := range families {
		if err := enc.Encode(mf); err != nil {
			// Headers are already flushed at this point; nothing more to do
			// but stop writing.
			return
		}
	}
}

func (a *API) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	if a.Monitor == nil {
		writeError(w, "get_metrics_snapshot", errNoMonitor)
		return
	}
	snapshot := a.Monitor.GetSystemMetrics()
	writeData(w, snapshot)
}

func (a *API) handlePerformance(w http.ResponseWriter, r *http.Request) {
	pm, err := a.performanceMetrics()
	if err != nil {
		writeError(w, "get_performance_metrics", err)
		return
	}
	writeData(w, pm)
}

func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	pm, err := a.performanceMetrics()
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, healthResponse{
			Status:    "unhealthy",
			Timestamp: time.Now().UTC(),
			Error:     errMessage(err),
		})
		return
	}
	status := "degraded"
	if isHealthy(pm) {
		status = "healthy"
	}
	writeJSON(w, http.StatusOK, healthResponse{Status: status, Timestamp: time.Now().UTC()})
}

var errNoMonitor = errNoMonitorErr{}

type errNoMonitorErr struct{}

func (errNoMonitorErr) Error() string { return "system monitor not configured" }

// performanceMetrics derives §6.1's performance shape from the system
// monitor's aggregate counters plus this process's live memory stats
// (the monitor's own SystemMetrics.MemoryBytes is a §4.9 placeholder).
func (a *API) performanceMetrics() (PerformanceMetrics, error) {
	if a.Monitor == nil {
		return PerformanceMetrics{}, errNoMonitor
	}
	sm := a.Monitor.GetSystemMetrics()

	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)

	errorCount := sm.TotalErrors
	durationMs := float64(sm.AverageJobDuration) / float64(time.Millisecond)
	memBytes := ms.Alloc

	return PerformanceMetrics{
		ErrorCount:        &errorCount,
		RequestDurationMs: &durationMs,
		MemoryUsageBytes:  &memBytes,
	}, nil
}

func errMessage(err error) string {
	if err == nil {
		return "Unknown error"
	}
	return err.Error()
}

func writeData(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusOK, dataEnvelope{Success: true, Data: data, Timestamp: time.Now().UTC()})
}

func writeError(w http.ResponseWriter, operation string, err error) {
	writeJSON(w, http.StatusInternalServerError, errorEnvelope{Success: false, Error: errMessage(err), Operation: operation})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
