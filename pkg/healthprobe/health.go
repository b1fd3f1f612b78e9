// Package healthprobe serves liveness and readiness checks enriched
// with database connectivity and scan recency.
package healthprobe

import (
	"context"
	"encoding/json"
	"net/http"
	"sync/atomic"
	"time"
)

// Pinger reports backing-store connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthChecker provides health and readiness checks.
type HealthChecker struct {
	startTime time.Time
	ready     atomic.Bool

	db       Pinger
	lastScan func() time.Time
	nextScan func() time.Time
}

// Config holds optional health probe inputs. Nil fields simply leave
// their section out of the response.
type Config struct {
	DB       Pinger
	LastScan func() time.Time
	NextScan func() time.Time
}

// New creates a new HealthChecker.
func New(cfg *Config) *HealthChecker {
	h := &HealthChecker{startTime: time.Now()}
	if cfg != nil {
		h.db = cfg.DB
		h.lastScan = cfg.LastScan
		h.nextScan = cfg.NextScan
	}

	return h
}

// SetReady marks the application as ready to serve traffic.
func (h *HealthChecker) SetReady(ready bool) {
	h.ready.Store(ready)
}

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status      string     `json:"status"`
	Uptime      string     `json:"uptime"`
	DBConnected *bool      `json:"db_connected,omitempty"`
	LastScanAt  *time.Time `json:"last_scan_at,omitempty"`
	NextScanAt  *time.Time `json:"next_scan_at,omitempty"`
	Message     string     `json:"message,omitempty"`
}

// Health returns an HTTP handler for liveness checks. It answers 200
// even when the database is unreachable; the status field flips to
// "degraded" so the caller can tell the difference.
func (h *HealthChecker) Health() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := HealthResponse{
			Status: "ok",
			Uptime: time.Since(h.startTime).String(),
		}

		if h.db != nil {
			connected := h.db.Ping(r.Context()) == nil
			resp.DBConnected = &connected
			if !connected {
				resp.Status = "degraded"
			}
		}
		if h.lastScan != nil {
			if t := h.lastScan(); !t.IsZero() {
				resp.LastScanAt = &t
			}
		}
		if h.nextScan != nil {
			if t := h.nextScan(); !t.IsZero() {
				resp.NextScanAt = &t
			}
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(resp)
	}
}

// Ready returns an HTTP handler for readiness checks.
// Returns 200 OK if ready, 503 Service Unavailable if not.
func (h *HealthChecker) Ready() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !h.ready.Load() {
			resp := HealthResponse{
				Status:  "not_ready",
				Message: "application is starting",
			}
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			_ = json.NewEncoder(w).Encode(resp)
			return
		}

		resp := HealthResponse{
			Status: "ready",
			Uptime: time.Since(h.startTime).String(),
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(resp)
	}
}
