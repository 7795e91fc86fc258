package monitoring

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"
)

var startTime = time.Now()

// HealthChecker tracks liveness of the strategy schedules for the /health
// endpoint.
type HealthChecker struct {
	mu          sync.RWMutex
	lastTick    map[string]time.Time
	isConnected bool
	errors      []string
}

// HealthStatus is the /health response payload
type HealthStatus struct {
	Status      string               `json:"status"`
	Timestamp   time.Time            `json:"timestamp"`
	LastTick    map[string]time.Time `json:"last_tick"`
	IsConnected bool                 `json:"is_connected"`
	Uptime      string               `json:"uptime"`
	Errors      []string             `json:"errors,omitempty"`
}

func NewHealthChecker() *HealthChecker {
	return &HealthChecker{
		lastTick: make(map[string]time.Time),
		errors:   make([]string, 0),
	}
}

// SetConnected records gateway connectivity
func (h *HealthChecker) SetConnected(connected bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.isConnected = connected
}

// RecordTick marks a completed tick for a strategy
func (h *HealthChecker) RecordTick(strategy string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.lastTick[strategy] = time.Now()
}

// AddError appends a recent error, keeping the last ten
func (h *HealthChecker) AddError(msg string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.errors = append(h.errors, msg)
	if len(h.errors) > 10 {
		h.errors = h.errors[len(h.errors)-10:]
	}
}

func (h *HealthChecker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	status := "healthy"
	if !h.isConnected {
		status = "degraded"
	}
	for _, last := range h.lastTick {
		if time.Since(last) > 5*time.Minute {
			status = "degraded"
			break
		}
	}
	w.Header().Set("Content-Type", "application/json")
	if status != "healthy" {
		w.WriteHeader(http.StatusServiceUnavailable)
	}

	ticks := make(map[string]time.Time, len(h.lastTick))
	for k, v := range h.lastTick {
		ticks[k] = v
	}

	health := HealthStatus{
		Status:      status,
		Timestamp:   time.Now(),
		LastTick:    ticks,
		IsConnected: h.isConnected,
		Uptime:      time.Since(startTime).String(),
		Errors:      h.errors,
	}

	json.NewEncoder(w).Encode(health)
}
