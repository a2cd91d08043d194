package handlers

import (
	"encoding/json"
	"net/http"

	"videomanager/internal/logging"
)

// StatsResponse summarizes cache and queue state
type StatsResponse struct {
	CacheEntries int    `json:"cacheEntries"`
	CacheHits    uint64 `json:"cacheHits"`
	CacheMisses  uint64 `json:"cacheMisses"`
	PinnedPaths  int    `json:"pinnedPaths"`
	QueuePending int    `json:"queuePending"`

	MemoryCurrent int64   `json:"memoryCurrent"`
	MemoryLimit   int64   `json:"memoryLimit"`
	MemoryUsage   float64 `json:"memoryUsage"`
}

// GetStats returns thumbnail cache and verification queue statistics
func (h *Handlers) GetStats(w http.ResponseWriter, _ *http.Request) {
	current, limit, usage := h.monitor.GetStats()
	writeJSON(w, http.StatusOK, StatsResponse{
		CacheEntries:  h.verifier.Len(),
		CacheHits:     h.verifier.Hits(),
		CacheMisses:   h.verifier.Misses(),
		PinnedPaths:   h.verifier.PinCount(),
		QueuePending:  h.queue.Pending(),
		MemoryCurrent: current,
		MemoryLimit:   limit,
		MemoryUsage:   usage,
	})
}

// VerifyRequest asks for background verification of one item
type VerifyRequest struct {
	ID      int64  `json:"id"`
	Path    string `json:"path,omitempty"`
	Visible bool   `json:"visible"`
}

// Verify enqueues a thumbnail verification request. When the path is
// omitted it is looked up from the library index by id.
func (h *Handlers) Verify(w http.ResponseWriter, r *http.Request) {
	var req VerifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	path := req.Path
	if path == "" {
		var err error
		path, err = h.lib.PathByID(r.Context(), req.ID)
		if err != nil {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
	}

	if err := h.queue.Enqueue(req.ID, path, req.Visible); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "queued"})
}

// VisibleRequest carries the ids currently visible in the client viewport
type VisibleRequest struct {
	IDs []int64 `json:"ids"`
}

// UpdateVisible replaces the visible set: pending verifications for items
// no longer visible are cancelled, and the pin set follows the viewport.
func (h *Handlers) UpdateVisible(w http.ResponseWriter, r *http.Request) {
	var req VisibleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	ids := make(map[int64]struct{}, len(req.IDs))
	paths := make([]string, 0, len(req.IDs))
	for _, id := range req.IDs {
		ids[id] = struct{}{}
		path, err := h.lib.PathByID(r.Context(), id)
		if err != nil {
			logging.Debug("Visible id %d not in library: %v", id, err)
			continue
		}
		paths = append(paths, path)
	}

	h.queue.UpdateVisibleSet(ids)
	if err := h.verifier.UpdateVisible(paths); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"visible": len(paths)})
}

// GetResolutions returns recently resolved verifications, oldest first
func (h *Handlers) GetResolutions(w http.ResponseWriter, _ *http.Request) {
	h.mu.Lock()
	out := make([]ResolutionView, len(h.recent))
	for i, res := range h.recent {
		out[i] = ResolutionView{ID: res.ID, Path: res.Path, Found: res.OK}
	}
	h.mu.Unlock()
	writeJSON(w, http.StatusOK, out)
}

// ResolutionView is the JSON shape of a resolved verification
type ResolutionView struct {
	ID    int64  `json:"id"`
	Path  string `json:"path,omitempty"`
	Found bool   `json:"found"`
}

// ClearCache empties the thumbnail cache, pin set, and counters
func (h *Handlers) ClearCache(w http.ResponseWriter, _ *http.Request) {
	h.verifier.Clear()
	writeJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}
