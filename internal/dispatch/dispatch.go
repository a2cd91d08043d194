package dispatch

import (
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"videomanager/internal/logging"
	"videomanager/internal/metrics"
	"videomanager/internal/thumbcache"
)

// DefaultMaxQueue bounds the backlog when Config.MaxQueue is not positive.
const DefaultMaxQueue = 256

// Config holds dispatch queue configuration
type Config struct {
	// MaxQueue bounds the number of queued requests. When the backlog is
	// full the oldest queued request is dropped to admit a new one.
	// Values <= 0 fall back to DefaultMaxQueue.
	MaxQueue int
}

// DefaultConfig returns sensible defaults for the dispatch queue
func DefaultConfig() Config {
	return Config{MaxQueue: DefaultMaxQueue}
}

// Resolution is the outcome of a verification request. Path is empty and OK
// false when the file does not exist or verification failed.
type Resolution struct {
	ID   int64
	Path string
	OK   bool
}

// request moves through Queued -> (Cancelled | Processing -> Resolved).
// Cancellation is cooperative: the flag is checked once, immediately before
// processing starts. A request already being processed runs to completion.
type request struct {
	id        int64
	path      string
	visible   bool
	cancelled atomic.Bool
}

// Queue is a bounded multi-producer queue with a single background consumer
// that verifies thumbnail paths, visible items first.
type Queue struct {
	verifier   *thumbcache.Verifier
	onResolved func(Resolution)
	maxQueue   int

	mu      sync.Mutex
	cond    *sync.Cond
	backlog []*request
	pending map[int64]*request
	closed  bool

	started   atomic.Bool
	startOnce sync.Once
	stopOnce  sync.Once
	done      chan struct{}
}

// New creates a dispatch queue. The verifier and the resolution callback are
// required. The consumer does not run until Start is called.
func New(verifier *thumbcache.Verifier, cfg Config, onResolved func(Resolution)) (*Queue, error) {
	if verifier == nil {
		return nil, fmt.Errorf("dispatch: verifier is required")
	}
	if onResolved == nil {
		return nil, fmt.Errorf("dispatch: resolution callback is required")
	}

	maxQueue := cfg.MaxQueue
	if maxQueue <= 0 {
		maxQueue = DefaultMaxQueue
	}

	q := &Queue{
		verifier:   verifier,
		onResolved: onResolved,
		maxQueue:   maxQueue,
		pending:    make(map[int64]*request),
		done:       make(chan struct{}),
	}
	q.cond = sync.NewCond(&q.mu)
	return q, nil
}

// Start launches the background consumer. Safe to call once; repeat calls
// are no-ops.
func (q *Queue) Start() {
	q.startOnce.Do(func() {
		q.started.Store(true)
		go q.consumeLoop()
	})
}

// Enqueue registers a verification request for item id. An existing pending
// request for the same id is superseded: cancelled and replaced. When the
// backlog is full the oldest queued request is dropped with a warning; the
// new request is always admitted.
func (q *Queue) Enqueue(id int64, path string, visible bool) error {
	if path == "" {
		return fmt.Errorf("dispatch: empty path for id %d", id)
	}

	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return fmt.Errorf("dispatch: queue is shut down")
	}

	if old, ok := q.pending[id]; ok {
		old.cancelled.Store(true)
		delete(q.pending, id)
		metrics.QueueCancelled.Inc()
		logging.Debug("Superseding pending verification for id=%d with %s", id, path)
	}

	if len(q.backlog) >= q.maxQueue {
		oldest := q.backlog[0]
		q.backlog = q.backlog[1:]
		oldest.cancelled.Store(true)
		if q.pending[oldest.id] == oldest {
			delete(q.pending, oldest.id)
		}
		metrics.QueueDropped.Inc()
		logging.Warn("Verification queue full (%d), dropped oldest request id=%d path=%s",
			q.maxQueue, oldest.id, oldest.path)
	}

	req := &request{id: id, path: path, visible: visible}
	q.pending[id] = req
	q.backlog = append(q.backlog, req)
	depth := len(q.backlog)
	q.cond.Signal()
	q.mu.Unlock()

	metrics.QueueEnqueued.Inc()
	metrics.QueueDepth.Set(float64(depth))
	return nil
}

// UpdateVisibleSet cancels every pending request whose id is not in ids,
// typically when the visible viewport changes. Requests already past the
// cancellation checkpoint run to completion.
func (q *Queue) UpdateVisibleSet(ids map[int64]struct{}) {
	q.mu.Lock()
	cancelled := 0
	for id, req := range q.pending {
		if _, ok := ids[id]; ok {
			continue
		}
		req.cancelled.Store(true)
		delete(q.pending, id)
		cancelled++
		metrics.QueueCancelled.Inc()
	}
	q.mu.Unlock()

	if cancelled > 0 {
		logging.Debug("Visible set update cancelled %d pending verifications", cancelled)
	}
}

// Pending returns the number of not-yet-resolved requests.
func (q *Queue) Pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// Shutdown signals no more input, cancels every still-pending request, and
// waits for the consumer to exit. Idempotent.
func (q *Queue) Shutdown() {
	q.stopOnce.Do(func() {
		q.mu.Lock()
		q.closed = true
		for id, req := range q.pending {
			req.cancelled.Store(true)
			delete(q.pending, id)
		}
		q.cond.Broadcast()
		q.mu.Unlock()
		logging.Info("Verification queue shutting down")

		if !q.started.Load() {
			close(q.done)
		}
	})
	<-q.done
}

// consumeLoop waits for queued requests, drains the whole backlog in one
// pass, and processes the batch visible-first. Relative order within each
// visibility class follows enqueue order.
func (q *Queue) consumeLoop() {
	defer close(q.done)

	for {
		q.mu.Lock()
		for len(q.backlog) == 0 && !q.closed {
			q.cond.Wait()
		}
		if len(q.backlog) == 0 && q.closed {
			q.mu.Unlock()
			return
		}
		batch := q.backlog
		q.backlog = nil
		q.mu.Unlock()

		metrics.QueueDepth.Set(0)
		metrics.QueueBatchSize.Observe(float64(len(batch)))

		sort.SliceStable(batch, func(i, j int) bool {
			return batch[i].visible && !batch[j].visible
		})

		for _, req := range batch {
			if req.cancelled.Load() {
				continue
			}
			q.process(req)
		}
	}
}

// process verifies one request and reports its resolution. Failures are
// contained here: a panic or error in a single request is logged and
// resolved as not-found, never taking down the consumer.
func (q *Queue) process(req *request) {
	start := time.Now()

	var resolvedPath string
	var ok bool
	func() {
		defer func() {
			if r := recover(); r != nil {
				logging.Error("Verification panic for id=%d path=%s: %v", req.id, req.path, r)
				resolvedPath, ok = "", false
			}
		}()
		path, found, err := q.verifier.LoadOrVerify(req.path)
		if err != nil {
			logging.Error("Verification failed for id=%d path=%s: %v", req.id, req.path, err)
			return
		}
		resolvedPath, ok = path, found
	}()

	q.mu.Lock()
	if q.pending[req.id] == req {
		delete(q.pending, req.id)
	}
	q.mu.Unlock()

	metrics.QueueProcessed.Inc()
	metrics.QueueProcessDuration.Observe(time.Since(start).Seconds())
	q.onResolved(Resolution{ID: req.id, Path: resolvedPath, OK: ok})
}
