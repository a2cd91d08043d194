package thumbcache

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"videomanager/internal/filesystem"
	"videomanager/internal/logging"
	"videomanager/internal/lru"
	"videomanager/internal/metrics"

	hlru "github.com/hashicorp/golang-lru/v2"
)

const (
	// DefaultCapacity is used when the configured capacity is not positive.
	DefaultCapacity = 1000

	// DefaultReclaimInterval is how often the janitor sweeps unprotected
	// positive results.
	DefaultReclaimInterval = 30 * time.Second
)

// Config holds thumbnail cache configuration
type Config struct {
	// Capacity bounds the number of cached paths. Values <= 0 fall back to
	// DefaultCapacity.
	Capacity int

	// StrongTierSize bounds the secondary cache that keeps recently touched
	// positive results alive across janitor sweeps. 0 = Capacity/4 (min 8).
	StrongTierSize int

	// ReclaimInterval is the janitor sweep period. 0 = DefaultReclaimInterval;
	// negative disables the janitor (sweeps must be triggered via Reclaim).
	ReclaimInterval time.Duration
}

// DefaultConfig returns sensible defaults for the thumbnail cache
func DefaultConfig() Config {
	return Config{
		Capacity:        DefaultCapacity,
		ReclaimInterval: DefaultReclaimInterval,
	}
}

// outcome is a verification result: the file either existed or it did not.
// A pointer to an outcome is the target of a reclaimable handle.
type outcome struct {
	found bool
}

// handle is a reclaimable reference to a verification result. Its target may
// be cleared asynchronously by a janitor sweep or by aggressive reclamation
// under memory pressure; a cleared handle stays in the cache and reads as a
// miss. Negative results are never reclaimed, so a confirmed "not found"
// keeps suppressing probes until the entry is evicted or cleared.
type handle struct {
	target atomic.Pointer[outcome]
}

// Verifier answers "does a thumbnail source still exist at this path" from a
// bounded cache, falling back to the injected filesystem probe on miss.
type Verifier struct {
	cache  *lru.Cache[string, *handle]
	strong *hlru.Cache[string, *outcome]
	probe  filesystem.ExistsFunc

	// mu guards the pin set and the counters. It is never held across
	// calls into the primary cache or the strong tier.
	mu     sync.Mutex
	pins   map[string]struct{}
	hits   uint64
	misses uint64

	reclaimInterval time.Duration
	stop            chan struct{}
	closeOnce       sync.Once
}

// New creates a Verifier around the given existence probe.
// The probe is required; a nil probe is a configuration error.
func New(probe filesystem.ExistsFunc, cfg Config) (*Verifier, error) {
	if probe == nil {
		return nil, fmt.Errorf("thumbcache: existence probe is required")
	}

	capacity := cfg.Capacity
	if capacity <= 0 {
		logging.Info("Thumbnail cache capacity %d invalid, using default %d", cfg.Capacity, DefaultCapacity)
		capacity = DefaultCapacity
	}

	strongSize := cfg.StrongTierSize
	if strongSize <= 0 {
		strongSize = capacity / 4
		if strongSize < 8 {
			strongSize = 8
		}
	}

	cache, err := lru.New[string, *handle](capacity)
	if err != nil {
		return nil, err
	}

	strong, err := hlru.New[string, *outcome](strongSize)
	if err != nil {
		return nil, fmt.Errorf("thumbcache: strong tier: %w", err)
	}

	v := &Verifier{
		cache:           cache,
		strong:          strong,
		probe:           probe,
		pins:            make(map[string]struct{}),
		reclaimInterval: cfg.ReclaimInterval,
		stop:            make(chan struct{}),
	}

	cache.SetEvictionCallback(func(path string, _ *handle) {
		strong.Remove(path)
		metrics.CacheEvictions.Inc()
	})

	if v.reclaimInterval == 0 {
		v.reclaimInterval = DefaultReclaimInterval
	}
	if v.reclaimInterval > 0 {
		go v.janitorLoop()
	}

	logging.Debug("Thumbnail cache ready: capacity=%d strongTier=%d reclaimInterval=%v",
		capacity, strongSize, v.reclaimInterval)
	return v, nil
}

// LoadOrVerify returns (path, true) if a file exists at path, consulting the
// cache first. A cached handle whose target was reclaimed reads as a miss and
// is re-verified. Negative results are cached so repeated lookups of a
// missing file probe the filesystem at most once between clears.
func (v *Verifier) LoadOrVerify(path string) (string, bool, error) {
	if path == "" {
		return "", false, fmt.Errorf("thumbcache: empty path")
	}

	if h, ok := v.cache.TryGet(path); ok {
		if out := h.target.Load(); out != nil {
			if out.found {
				// Refresh the strong tier so the value survives the next sweep.
				v.strong.Add(path, out)
			}
			v.mu.Lock()
			v.hits++
			v.mu.Unlock()
			metrics.CacheHits.Inc()
			logging.Debug("Thumbnail cache hit: %s (found=%v)", path, out.found)
			if out.found {
				return path, true, nil
			}
			return "", false, nil
		}
		logging.Debug("Thumbnail cache handle reclaimed, re-verifying: %s", path)
	}

	v.mu.Lock()
	v.misses++
	v.mu.Unlock()
	metrics.CacheMisses.Inc()

	found := v.probe(path)
	out := &outcome{found: found}
	h := &handle{}
	h.target.Store(out)

	if found {
		v.strong.Add(path, out)
	}
	v.cache.Put(path, h)
	metrics.CacheEntries.Set(float64(v.cache.Len()))

	logging.Debug("Thumbnail verified: %s (found=%v)", path, found)
	if found {
		return path, true, nil
	}
	return "", false, nil
}

// Pin marks path as strongly held: its cached value survives reclamation
// until unpinned. Idempotent. Pinning does not protect against capacity
// eviction from the bounded cache.
func (v *Verifier) Pin(path string) error {
	if path == "" {
		return fmt.Errorf("thumbcache: empty path")
	}
	v.mu.Lock()
	v.pins[path] = struct{}{}
	n := len(v.pins)
	v.mu.Unlock()
	metrics.CachePinned.Set(float64(n))
	return nil
}

// Unpin removes path from the pin set. Idempotent.
func (v *Verifier) Unpin(path string) error {
	if path == "" {
		return fmt.Errorf("thumbcache: empty path")
	}
	v.mu.Lock()
	delete(v.pins, path)
	n := len(v.pins)
	v.mu.Unlock()
	metrics.CachePinned.Set(float64(n))
	return nil
}

// UpdateVisible replaces the entire pin set with the given paths, typically
// when the visible viewport changes. Paths dropped from the set become
// eligible for reclamation but stay in the cache until swept or evicted.
func (v *Verifier) UpdateVisible(paths []string) error {
	pins := make(map[string]struct{}, len(paths))
	for _, p := range paths {
		if p == "" {
			return fmt.Errorf("thumbcache: empty path in visible set")
		}
		pins[p] = struct{}{}
	}
	v.mu.Lock()
	v.pins = pins
	v.mu.Unlock()
	metrics.CachePinned.Set(float64(len(pins)))
	return nil
}

// Clear empties the cache, the pin set, and both counters. Counter readers
// never observe one counter reset without the other.
func (v *Verifier) Clear() {
	v.mu.Lock()
	v.pins = make(map[string]struct{})
	v.hits = 0
	v.misses = 0
	v.mu.Unlock()

	v.cache.Clear()
	v.strong.Purge()
	metrics.CacheEntries.Set(0)
	metrics.CachePinned.Set(0)
	logging.Info("Thumbnail cache cleared")
}

// Len returns the number of cached paths.
func (v *Verifier) Len() int {
	return v.cache.Len()
}

// Hits returns the hit count since the last clear.
func (v *Verifier) Hits() uint64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.hits
}

// Misses returns the miss count since the last clear.
func (v *Verifier) Misses() uint64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.misses
}

// PinCount returns the number of pinned paths.
func (v *Verifier) PinCount() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.pins)
}

// IsPinned reports whether path is currently in the pin set.
func (v *Verifier) IsPinned(path string) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	_, ok := v.pins[path]
	return ok
}

// Reclaim runs one janitor pass: it clears the target of every positive
// result that is neither pinned nor held by the strong tier. Negative
// results are never reclaimed. Returns the number of handles cleared.
func (v *Verifier) Reclaim() int {
	v.mu.Lock()
	pinned := make(map[string]struct{}, len(v.pins))
	for p := range v.pins {
		pinned[p] = struct{}{}
	}
	v.mu.Unlock()

	reclaimed := 0
	for _, path := range v.cache.Keys() {
		if _, ok := pinned[path]; ok {
			continue
		}
		if v.strong.Contains(path) {
			continue
		}
		h, ok := v.cache.Peek(path)
		if !ok {
			continue
		}
		out := h.target.Load()
		if out == nil || !out.found {
			continue
		}
		h.target.Store(nil)
		reclaimed++
		metrics.CacheReclaims.Inc()
	}

	if reclaimed > 0 {
		logging.Debug("Thumbnail cache reclaimed %d values", reclaimed)
	}
	return reclaimed
}

// ReclaimAggressive purges the strong tier and sweeps, clearing every cached
// positive result except pinned ones. Called under memory pressure.
func (v *Verifier) ReclaimAggressive() int {
	v.strong.Purge()
	n := v.Reclaim()
	logging.Info("Thumbnail cache aggressive reclaim: %d values released", n)
	return n
}

// Close stops the janitor. Safe to call multiple times.
func (v *Verifier) Close() {
	v.closeOnce.Do(func() {
		close(v.stop)
	})
}

func (v *Verifier) janitorLoop() {
	ticker := time.NewTicker(v.reclaimInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			v.Reclaim()
		case <-v.stop:
			return
		}
	}
}
