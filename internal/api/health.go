package api

import (
	"context"
	"fmt"
	"net/http"
	"runtime"
	"sync"
	"time"

	"github.com/go-chi/chi/v5/middleware"
)

// HealthStatus represents the overall health status
type HealthStatus string

const (
	HealthStatusHealthy   HealthStatus = "healthy"
	HealthStatusDegraded  HealthStatus = "degraded"
	HealthStatusUnhealthy HealthStatus = "unhealthy"
)

// HealthCheckResponse represents a comprehensive health check response
type HealthCheckResponse struct {
	Status        HealthStatus           `json:"status"`
	Timestamp     string                 `json:"timestamp"`
	EngineVersion string                 `json:"engine_version"`
	GitCommit     string                 `json:"git_commit,omitempty"`
	BuildTime     string                 `json:"build_time,omitempty"`
	Uptime        string                 `json:"uptime"`
	Checks        map[string]HealthCheck `json:"checks"`
	System        SystemInfo             `json:"system"`
	RequestID     string                 `json:"request_id,omitempty"`
}

// HealthCheck represents an individual health check
type HealthCheck struct {
	Status      HealthStatus `json:"status"`
	Message     string       `json:"message,omitempty"`
	LastChecked string       `json:"last_checked"`
	Duration    string       `json:"duration,omitempty"`
}

// SystemInfo contains system information
type SystemInfo struct {
	GoVersion     string `json:"go_version"`
	NumGoroutines int    `json:"num_goroutines"`
	NumCPU        int    `json:"num_cpu"`
	GOMAXPROCS    int    `json:"gomaxprocs"`
	MemoryAlloc   uint64 `json:"memory_alloc_bytes"`
	MemoryTotal   uint64 `json:"memory_total_bytes"`
	MemorySys     uint64 `json:"memory_sys_bytes"`
	GCCycles      uint32 `json:"gc_cycles"`
}

// MetricsResponse represents basic performance metrics
type MetricsResponse struct {
	Timestamp     string               `json:"timestamp"`
	EngineVersion string               `json:"engine_version"`
	Uptime        string               `json:"uptime"`
	System        SystemInfo           `json:"system"`
	Operations    map[string]OpMetrics `json:"operations"`
	RequestID     string               `json:"request_id,omitempty"`
}

// OpMetrics represents route-level request metrics
type OpMetrics struct {
	TotalRequests   uint64  `json:"total_requests"`
	SuccessRequests uint64  `json:"success_requests"`
	ErrorRequests   uint64  `json:"error_requests"`
	AvgDurationMs   float64 `json:"avg_duration_ms"`
	LastRequest     string  `json:"last_request,omitempty"`

	totalDuration time.Duration
}

// HealthMonitor tracks uptime and per-route request metrics.
type HealthMonitor struct {
	startTime time.Time
	mu        sync.Mutex
	metrics   map[string]*OpMetrics
}

// NewHealthMonitor creates a new health monitor
func NewHealthMonitor() *HealthMonitor {
	return &HealthMonitor{
		startTime: time.Now(),
		metrics:   make(map[string]*OpMetrics),
	}
}

// Record adds one finished request to the metrics of op.
func (hm *HealthMonitor) Record(op string, status int, d time.Duration) {
	hm.mu.Lock()
	defer hm.mu.Unlock()

	m, ok := hm.metrics[op]
	if !ok {
		m = &OpMetrics{}
		hm.metrics[op] = m
	}
	m.TotalRequests++
	if status >= 400 {
		m.ErrorRequests++
	} else {
		m.SuccessRequests++
	}
	m.totalDuration += d
	m.AvgDurationMs = float64(m.totalDuration.Microseconds()) / 1000 / float64(m.TotalRequests)
	m.LastRequest = time.Now().UTC().Format(time.RFC3339)
}

// Snapshot copies the current metrics.
func (hm *HealthMonitor) Snapshot() map[string]OpMetrics {
	hm.mu.Lock()
	defer hm.mu.Unlock()

	out := make(map[string]OpMetrics, len(hm.metrics))
	for k, m := range hm.metrics {
		out[k] = *m
	}
	return out
}

// Uptime returns the time since the monitor was created.
func (hm *HealthMonitor) Uptime() time.Duration {
	return time.Since(hm.startTime)
}

// handleHealthCheck provides comprehensive health check endpoint
func (s *Server) handleHealthCheck(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetReqID(r.Context())
	start := time.Now()

	checks := map[string]HealthCheck{
		"dataset":  s.checkDatasetHealth(),
		"database": s.checkDatabaseHealth(r.Context()),
	}
	overallStatus := HealthStatusHealthy
	for _, check := range checks {
		switch check.Status {
		case HealthStatusUnhealthy:
			overallStatus = HealthStatusUnhealthy
		case HealthStatusDegraded:
			if overallStatus == HealthStatusHealthy {
				overallStatus = HealthStatusDegraded
			}
		}
	}

	response := HealthCheckResponse{
		Status:        overallStatus,
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
		EngineVersion: EngineVersion,
		GitCommit:     GitCommit,
		BuildTime:     BuildTime,
		Uptime:        s.health.Uptime().String(),
		Checks:        checks,
		System:        getSystemInfo(),
		RequestID:     requestID,
	}

	statusCode := http.StatusOK
	if overallStatus == HealthStatusUnhealthy {
		statusCode = http.StatusServiceUnavailable
	}

	s.securityLogger.LogAuditEvent(
		requestID,
		"health_check",
		"system",
		string(overallStatus),
		map[string]interface{}{
			"duration":    time.Since(start),
			"checks":      len(checks),
			"status_code": statusCode,
		},
	)

	s.writeJSON(w, statusCode, response)
}

// handleMetrics reports per-route request metrics
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	response := MetricsResponse{
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
		EngineVersion: EngineVersion,
		Uptime:        s.health.Uptime().String(),
		System:        getSystemInfo(),
		Operations:    s.health.Snapshot(),
		RequestID:     middleware.GetReqID(r.Context()),
	}
	s.writeJSON(w, http.StatusOK, response)
}

// checkDatasetHealth checks that the dataset declares at least one game
func (s *Server) checkDatasetHealth() HealthCheck {
	start := time.Now()

	games := s.svc.Games()
	status := HealthStatusHealthy
	message := fmt.Sprintf("%d games available", len(games))
	if len(games) == 0 {
		status = HealthStatusUnhealthy
		message = "No games available"
	}

	return HealthCheck{
		Status:      status,
		Message:     message,
		LastChecked: time.Now().UTC().Format(time.RFC3339),
		Duration:    time.Since(start).String(),
	}
}

// checkDatabaseHealth runs a cheap history query
func (s *Server) checkDatabaseHealth(ctx context.Context) HealthCheck {
	start := time.Now()

	status := HealthStatusHealthy
	message := "Database connection healthy"
	if _, total, err := s.svc.History(ctx, -1, 1, 1); err != nil {
		status = HealthStatusUnhealthy
		message = fmt.Sprintf("Database query failed: %v", err)
	} else {
		message = fmt.Sprintf("%d parties stored", total)
	}

	return HealthCheck{
		Status:      status,
		Message:     message,
		LastChecked: time.Now().UTC().Format(time.RFC3339),
		Duration:    time.Since(start).String(),
	}
}

// getSystemInfo collects system information
func getSystemInfo() SystemInfo {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	return SystemInfo{
		GoVersion:     runtime.Version(),
		NumGoroutines: runtime.NumGoroutine(),
		NumCPU:        runtime.NumCPU(),
		GOMAXPROCS:    runtime.GOMAXPROCS(0),
		MemoryAlloc:   m.Alloc,
		MemoryTotal:   m.TotalAlloc,
		MemorySys:     m.Sys,
		GCCycles:      m.NumGC,
	}
}
