package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"videomanager/internal/dispatch"
	"videomanager/internal/library"
	"videomanager/internal/memory"
	"videomanager/internal/thumbcache"
)

type testEnv struct {
	h        *Handlers
	lib      *library.Library
	queue    *dispatch.Queue
	mediaDir string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	lib, err := library.Open(context.Background(), filepath.Join(t.TempDir(), "library.db"))
	if err != nil {
		t.Fatalf("library.Open() error: %v", err)
	}
	t.Cleanup(func() { lib.Close() })

	mediaDir := t.TempDir()
	probe := func(path string) bool {
		info, err := os.Stat(path)
		return err == nil && info.Mode().IsRegular()
	}
	verifier, err := thumbcache.New(probe, thumbcache.Config{Capacity: 100, ReclaimInterval: -1})
	if err != nil {
		t.Fatalf("thumbcache.New() error: %v", err)
	}
	t.Cleanup(verifier.Close)

	monitor := memory.NewMonitor(memory.DefaultConfig(), verifier)
	t.Cleanup(monitor.Stop)

	h := New(lib, verifier, monitor)
	queue, err := dispatch.New(verifier, dispatch.DefaultConfig(), h.OnResolved)
	if err != nil {
		t.Fatalf("dispatch.New() error: %v", err)
	}
	h.SetQueue(queue)
	queue.Start()
	t.Cleanup(queue.Shutdown)

	return &testEnv{h: h, lib: lib, queue: queue, mediaDir: mediaDir}
}

func (e *testEnv) addMediaFile(t *testing.T, name string) (int64, string) {
	t.Helper()
	path := filepath.Join(e.mediaDir, name)
	if err := os.WriteFile(path, []byte("media"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	err := e.lib.Upsert(context.Background(), []library.MediaFile{
		{Path: path, Name: name, Type: library.MediaType(name), ModTime: time.Now()},
	})
	if err != nil {
		t.Fatalf("Upsert() error: %v", err)
	}
	files, err := e.lib.List(context.Background(), 100, 0)
	if err != nil {
		t.Fatalf("List() error: %v", err)
	}
	for _, f := range files {
		if f.Path == path {
			return f.ID, path
		}
	}
	t.Fatalf("file %s not found after upsert", name)
	return 0, ""
}

func postJSON(t *testing.T, handler http.HandlerFunc, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	req := httptest.NewRequest("POST", "/", bytes.NewReader(data))
	w := httptest.NewRecorder()
	handler(w, req)
	return w
}

func TestHealthCheck(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest("GET", "/healthz", nil)
	w := httptest.NewRecorder()
	env.h.HealthCheck(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("HealthCheck status = %d, want 200", w.Code)
	}
	var resp HealthResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Status != "healthy" {
		t.Errorf("Status = %q, want healthy", resp.Status)
	}
}

func TestVerify_ByID(t *testing.T) {
	env := newTestEnv(t)
	id, _ := env.addMediaFile(t, "clip.mp4")

	w := postJSON(t, env.h.Verify, VerifyRequest{ID: id, Visible: true})
	if w.Code != http.StatusAccepted {
		t.Fatalf("Verify status = %d, want 202", w.Code)
	}

	// The queue resolves in the background; poll the recent buffer
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		env.h.mu.Lock()
		n := len(env.h.recent)
		env.h.mu.Unlock()
		if n > 0 {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}

	env.h.mu.Lock()
	defer env.h.mu.Unlock()
	if len(env.h.recent) != 1 {
		t.Fatalf("recent resolutions = %d, want 1", len(env.h.recent))
	}
	if env.h.recent[0].ID != id || !env.h.recent[0].OK {
		t.Errorf("resolution = %+v, want id=%d found", env.h.recent[0], id)
	}
}

func TestVerify_UnknownID(t *testing.T) {
	env := newTestEnv(t)

	w := postJSON(t, env.h.Verify, VerifyRequest{ID: 12345, Visible: true})
	if w.Code != http.StatusNotFound {
		t.Errorf("Verify status = %d for unknown id, want 404", w.Code)
	}
}

func TestVerify_BadBody(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest("POST", "/", bytes.NewReader([]byte("not json")))
	w := httptest.NewRecorder()
	env.h.Verify(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("Verify status = %d for bad body, want 400", w.Code)
	}
}

func TestUpdateVisible_PinsAndCancels(t *testing.T) {
	env := newTestEnv(t)
	id1, path1 := env.addMediaFile(t, "a.mp4")
	_, _ = env.addMediaFile(t, "b.mp4")

	w := postJSON(t, env.h.UpdateVisible, VisibleRequest{IDs: []int64{id1}})
	if w.Code != http.StatusOK {
		t.Fatalf("UpdateVisible status = %d, want 200", w.Code)
	}

	if !env.h.verifier.IsPinned(path1) {
		t.Errorf("path %s not pinned after UpdateVisible", path1)
	}
	if env.h.verifier.PinCount() != 1 {
		t.Errorf("PinCount() = %d, want 1", env.h.verifier.PinCount())
	}
}

func TestGetStatsAndClear(t *testing.T) {
	env := newTestEnv(t)
	_, path := env.addMediaFile(t, "c.mp4")

	// Prime the cache directly
	if _, ok, err := env.h.verifier.LoadOrVerify(path); err != nil || !ok {
		t.Fatalf("LoadOrVerify() = (ok=%v, err=%v)", ok, err)
	}

	req := httptest.NewRequest("GET", "/api/stats", nil)
	w := httptest.NewRecorder()
	env.h.GetStats(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("GetStats status = %d, want 200", w.Code)
	}
	var stats StatsResponse
	if err := json.NewDecoder(w.Body).Decode(&stats); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if stats.CacheEntries != 1 || stats.CacheMisses != 1 {
		t.Errorf("stats = %+v, want 1 entry and 1 miss", stats)
	}

	w = postJSON(t, env.h.ClearCache, struct{}{})
	if w.Code != http.StatusOK {
		t.Fatalf("ClearCache status = %d, want 200", w.Code)
	}
	if env.h.verifier.Len() != 0 {
		t.Errorf("cache not empty after clear")
	}
}
