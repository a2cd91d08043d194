package thumbcache

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
)

// countingProbe reports existence from a fixed set and counts invocations
// per path.
type countingProbe struct {
	mu     sync.Mutex
	exists map[string]bool
	calls  map[string]int
}

func newCountingProbe(exists map[string]bool) *countingProbe {
	return &countingProbe{exists: exists, calls: make(map[string]int)}
}

func (p *countingProbe) probe(path string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls[path]++
	return p.exists[path]
}

func (p *countingProbe) callsFor(path string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls[path]
}

// testConfig disables the janitor so sweeps only happen when a test asks.
func testConfig() Config {
	return Config{Capacity: 100, ReclaimInterval: -1}
}

func TestNew_NilProbe(t *testing.T) {
	if _, err := New(nil, testConfig()); err == nil {
		t.Error("New(nil probe) expected error, got nil")
	}
}

func TestNew_CapacityFallback(t *testing.T) {
	probe := newCountingProbe(nil)
	v, err := New(probe.probe, Config{Capacity: -5, ReclaimInterval: -1})
	if err != nil {
		t.Fatalf("New() with non-positive capacity should fall back, got error: %v", err)
	}
	defer v.Close()
}

func TestLoadOrVerify_EmptyPath(t *testing.T) {
	probe := newCountingProbe(nil)
	v, err := New(probe.probe, testConfig())
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	defer v.Close()

	if _, _, err := v.LoadOrVerify(""); err == nil {
		t.Error("LoadOrVerify(\"\") expected error, got nil")
	}
}

func TestLoadOrVerify_HitAndMiss(t *testing.T) {
	probe := newCountingProbe(map[string]bool{"/media/a.mp4": true})
	v, err := New(probe.probe, testConfig())
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	defer v.Close()

	path, ok, err := v.LoadOrVerify("/media/a.mp4")
	if err != nil {
		t.Fatalf("LoadOrVerify() error: %v", err)
	}
	if !ok || path != "/media/a.mp4" {
		t.Errorf("LoadOrVerify() = (%q, %v), want (/media/a.mp4, true)", path, ok)
	}
	if v.Misses() != 1 || v.Hits() != 0 {
		t.Errorf("counters = (hits=%d, misses=%d), want (0, 1)", v.Hits(), v.Misses())
	}

	// Second lookup is a hit and does not re-probe
	if _, ok, _ := v.LoadOrVerify("/media/a.mp4"); !ok {
		t.Error("second LoadOrVerify() missed")
	}
	if v.Hits() != 1 {
		t.Errorf("Hits() = %d, want 1", v.Hits())
	}
	if probe.callsFor("/media/a.mp4") != 1 {
		t.Errorf("probe called %d times, want 1", probe.callsFor("/media/a.mp4"))
	}
}

func TestNegativeCaching(t *testing.T) {
	probe := newCountingProbe(nil) // nothing exists
	v, err := New(probe.probe, testConfig())
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	defer v.Close()

	for i := 0; i < 5; i++ {
		path, ok, err := v.LoadOrVerify("/media/gone.mp4")
		if err != nil {
			t.Fatalf("LoadOrVerify() error: %v", err)
		}
		if ok || path != "" {
			t.Errorf("LoadOrVerify() = (%q, %v), want (\"\", false)", path, ok)
		}
	}

	if n := probe.callsFor("/media/gone.mp4"); n != 1 {
		t.Errorf("probe called %d times for missing file, want 1 (negative caching)", n)
	}
	if v.Hits() != 4 || v.Misses() != 1 {
		t.Errorf("counters = (hits=%d, misses=%d), want (4, 1)", v.Hits(), v.Misses())
	}
}

func TestNegativeResultsSurviveReclamation(t *testing.T) {
	probe := newCountingProbe(nil)
	v, err := New(probe.probe, testConfig())
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	defer v.Close()

	v.LoadOrVerify("/media/gone.mp4")
	v.ReclaimAggressive()
	v.LoadOrVerify("/media/gone.mp4")

	if n := probe.callsFor("/media/gone.mp4"); n != 1 {
		t.Errorf("probe called %d times, want 1 (negative results are never reclaimed)", n)
	}
}

func TestClear_ResetsEverything(t *testing.T) {
	probe := newCountingProbe(map[string]bool{"/media/a.mp4": true})
	v, err := New(probe.probe, testConfig())
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	defer v.Close()

	v.LoadOrVerify("/media/a.mp4")
	v.LoadOrVerify("/media/a.mp4")
	if err := v.Pin("/media/a.mp4"); err != nil {
		t.Fatalf("Pin() error: %v", err)
	}

	v.Clear()

	if v.Len() != 0 || v.Hits() != 0 || v.Misses() != 0 {
		t.Errorf("after Clear: len=%d hits=%d misses=%d, want all 0", v.Len(), v.Hits(), v.Misses())
	}
	if v.IsPinned("/media/a.mp4") {
		t.Error("pin survived Clear()")
	}

	// Previously-pinned path is immediately re-probable
	v.LoadOrVerify("/media/a.mp4")
	if n := probe.callsFor("/media/a.mp4"); n != 2 {
		t.Errorf("probe called %d times after clear, want 2", n)
	}
}

func TestHitsPlusMissesEqualsLookups(t *testing.T) {
	probe := newCountingProbe(map[string]bool{"/a": true, "/b": true})
	v, err := New(probe.probe, testConfig())
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	defer v.Close()

	lookups := 0
	for i := 0; i < 3; i++ {
		for _, p := range []string{"/a", "/b", "/c"} {
			v.LoadOrVerify(p)
			lookups++
		}
	}

	if got := v.Hits() + v.Misses(); got != uint64(lookups) {
		t.Errorf("hits+misses = %d, want %d", got, lookups)
	}
}

func TestReclaimedHandleTreatedAsMiss(t *testing.T) {
	probe := newCountingProbe(map[string]bool{"/media/a.mp4": true})
	v, err := New(probe.probe, testConfig())
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	defer v.Close()

	v.LoadOrVerify("/media/a.mp4")
	v.ReclaimAggressive()

	path, ok, err := v.LoadOrVerify("/media/a.mp4")
	if err != nil {
		t.Fatalf("LoadOrVerify() after reclaim error: %v", err)
	}
	if !ok || path != "/media/a.mp4" {
		t.Errorf("LoadOrVerify() after reclaim = (%q, %v), want hit", path, ok)
	}
	if n := probe.callsFor("/media/a.mp4"); n != 2 {
		t.Errorf("probe called %d times, want 2 (reclaimed handle re-verified)", n)
	}
	// Both lookups counted: one miss, then another miss after reclamation
	if v.Misses() != 2 {
		t.Errorf("Misses() = %d, want 2", v.Misses())
	}
}

func TestPin_ProtectsFromAggressiveReclaim(t *testing.T) {
	probe := newCountingProbe(map[string]bool{"/pinned": true, "/unpinned": true})
	v, err := New(probe.probe, testConfig())
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	defer v.Close()

	v.LoadOrVerify("/pinned")
	v.LoadOrVerify("/unpinned")
	if err := v.Pin("/pinned"); err != nil {
		t.Fatalf("Pin() error: %v", err)
	}

	v.ReclaimAggressive()

	v.LoadOrVerify("/pinned")
	v.LoadOrVerify("/unpinned")

	pinnedCalls := probe.callsFor("/pinned")
	unpinnedCalls := probe.callsFor("/unpinned")
	if pinnedCalls > unpinnedCalls {
		t.Errorf("pinned path probed %d times, unpinned %d; pin must not increase probes",
			pinnedCalls, unpinnedCalls)
	}
	if pinnedCalls != 1 {
		t.Errorf("pinned path probed %d times, want 1", pinnedCalls)
	}
	if unpinnedCalls != 2 {
		t.Errorf("unpinned path probed %d times, want 2", unpinnedCalls)
	}
}

func TestPinUnpin_Idempotent(t *testing.T) {
	probe := newCountingProbe(nil)
	v, err := New(probe.probe, testConfig())
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	defer v.Close()

	if err := v.Pin("/a"); err != nil {
		t.Errorf("Pin() error: %v", err)
	}
	if err := v.Pin("/a"); err != nil {
		t.Errorf("duplicate Pin() error: %v", err)
	}
	if err := v.Unpin("/a"); err != nil {
		t.Errorf("Unpin() error: %v", err)
	}
	if err := v.Unpin("/a"); err != nil {
		t.Errorf("Unpin() of absent path error: %v", err)
	}
	if err := v.Pin(""); err == nil {
		t.Error("Pin(\"\") expected error")
	}
}

func TestUpdateVisible_ReplacesPinSet(t *testing.T) {
	probe := newCountingProbe(nil)
	v, err := New(probe.probe, testConfig())
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	defer v.Close()

	v.Pin("/old")
	if err := v.UpdateVisible([]string{"/new1", "/new2"}); err != nil {
		t.Fatalf("UpdateVisible() error: %v", err)
	}

	if v.IsPinned("/old") {
		t.Error("/old still pinned after UpdateVisible")
	}
	if !v.IsPinned("/new1") || !v.IsPinned("/new2") {
		t.Error("new visible paths not pinned")
	}

	if err := v.UpdateVisible([]string{"/ok", ""}); err == nil {
		t.Error("UpdateVisible with empty path expected error")
	}
}

func TestReclaim_StrongTierHoldsRecent(t *testing.T) {
	probe := newCountingProbe(map[string]bool{"/a": true, "/b": true, "/c": true})
	v, err := New(probe.probe, Config{Capacity: 100, StrongTierSize: 2, ReclaimInterval: -1})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	defer v.Close()

	// /a falls out of the 2-entry strong tier once /b and /c arrive
	v.LoadOrVerify("/a")
	v.LoadOrVerify("/b")
	v.LoadOrVerify("/c")

	reclaimed := v.Reclaim()
	if reclaimed != 1 {
		t.Errorf("Reclaim() = %d, want 1 (/a only)", reclaimed)
	}

	// /b and /c answer without probing; /a needs a fresh probe
	v.LoadOrVerify("/b")
	v.LoadOrVerify("/c")
	v.LoadOrVerify("/a")
	if n := probe.callsFor("/b"); n != 1 {
		t.Errorf("probe(/b) called %d times, want 1", n)
	}
	if n := probe.callsFor("/a"); n != 2 {
		t.Errorf("probe(/a) called %d times, want 2", n)
	}
}

func TestConcurrentLoadOrVerify(t *testing.T) {
	probe := newCountingProbe(nil)
	// Everything exists
	probeFn := func(path string) bool {
		probe.probe(path)
		return true
	}
	v, err := New(probeFn, testConfig())
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	defer v.Close()

	var lookups atomic.Uint64
	var wg sync.WaitGroup
	for p := 0; p < 10; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				path := fmt.Sprintf("/media/p%d/f%d.mp4", p, i%20)
				if _, ok, err := v.LoadOrVerify(path); err != nil || !ok {
					t.Errorf("LoadOrVerify(%s) = (ok=%v, err=%v)", path, ok, err)
				}
				lookups.Add(1)
			}
		}(p)
	}
	wg.Wait()

	if got := v.Hits() + v.Misses(); got != lookups.Load() {
		t.Errorf("hits+misses = %d, want %d", got, lookups.Load())
	}
	if n := v.Len(); n < 0 || n > 100 {
		t.Errorf("Len() = %d, want within [0, 100]", n)
	}
}
