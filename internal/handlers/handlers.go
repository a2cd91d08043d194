package handlers

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"videomanager/internal/dispatch"
	"videomanager/internal/library"
	"videomanager/internal/logging"
	"videomanager/internal/memory"
	"videomanager/internal/thumbcache"
)

// recentLimit bounds the buffer of recently resolved verifications kept for
// the /api/resolutions endpoint.
const recentLimit = 100

// Handlers serves the video manager API.
type Handlers struct {
	lib      *library.Library
	verifier *thumbcache.Verifier
	monitor  *memory.Monitor
	queue    *dispatch.Queue

	startTime time.Time

	mu     sync.Mutex
	recent []dispatch.Resolution
}

// New creates the API handlers. The dispatch queue is attached afterwards
// via SetQueue, since the queue's resolution callback is OnResolved.
func New(lib *library.Library, verifier *thumbcache.Verifier, monitor *memory.Monitor) *Handlers {
	return &Handlers{
		lib:       lib,
		verifier:  verifier,
		monitor:   monitor,
		startTime: time.Now(),
	}
}

// SetQueue attaches the dispatch queue. Must be called before serving.
func (h *Handlers) SetQueue(q *dispatch.Queue) {
	h.queue = q
}

// OnResolved records a resolved verification. It is the dispatch queue's
// resolution callback.
func (h *Handlers) OnResolved(r dispatch.Resolution) {
	h.mu.Lock()
	h.recent = append(h.recent, r)
	if len(h.recent) > recentLimit {
		h.recent = h.recent[len(h.recent)-recentLimit:]
	}
	h.mu.Unlock()
	logging.Debug("Resolved id=%d path=%s ok=%v", r.ID, r.Path, r.OK)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Error("Failed to encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
