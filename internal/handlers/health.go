package handlers

import (
	"net/http"
	"runtime"
	"time"

	"videomanager/internal/startup"
)

// HealthResponse contains the health check response
type HealthResponse struct {
	Status       string `json:"status"`
	Version      string `json:"version"`
	Uptime       string `json:"uptime"`
	GoVersion    string `json:"goVersion"`
	NumGoroutine int    `json:"numGoroutine"`
	LibraryFiles int    `json:"libraryFiles"`
}

// HealthCheck returns the health status of the service
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	count, err := h.lib.Count(r.Context())
	status := "healthy"
	if err != nil {
		status = "degraded"
	}

	writeJSON(w, http.StatusOK, HealthResponse{
		Status:       status,
		Version:      startup.Version,
		Uptime:       time.Since(h.startTime).Round(time.Second).String(),
		GoVersion:    runtime.Version(),
		NumGoroutine: runtime.NumGoroutine(),
		LibraryFiles: count,
	})
}

// LivenessCheck always returns 200 while the process is running
func (h *Handlers) LivenessCheck(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "alive"})
}
