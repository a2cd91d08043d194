package lru

import (
	"container/list"
	"fmt"
	"sync"
)

// Cache is a fixed-capacity key/value store with least-recently-used
// eviction. All operations are safe for concurrent use; a single mutex
// serializes access, which is plenty for the access rates seen here.
type Cache[K comparable, V any] struct {
	mu       sync.Mutex
	capacity int
	order    *list.List // front = most recently used
	items    map[K]*list.Element

	// onEvict, if set, is called after an entry is evicted by capacity.
	// It runs outside the cache mutex.
	onEvict func(K, V)
}

type entry[K comparable, V any] struct {
	key   K
	value V
}

// New creates an LRU cache holding at most capacity entries.
// Capacity must be positive.
func New[K comparable, V any](capacity int) (*Cache[K, V], error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("lru: capacity must be positive, got %d", capacity)
	}
	return &Cache[K, V]{
		capacity: capacity,
		order:    list.New(),
		items:    make(map[K]*list.Element, capacity),
	}, nil
}

// SetEvictionCallback registers a callback invoked for each entry evicted
// by capacity. Call before the cache is shared between goroutines.
func (c *Cache[K, V]) SetEvictionCallback(fn func(K, V)) {
	c.onEvict = fn
}

// Put inserts or updates the value for key and marks it most recently used.
// If the cache is at capacity, the least-recently-used entry is evicted first.
func (c *Cache[K, V]) Put(key K, value V) {
	c.mu.Lock()

	if el, ok := c.items[key]; ok {
		el.Value.(*entry[K, V]).value = value
		c.order.MoveToFront(el)
		c.mu.Unlock()
		return
	}

	var evictedKey K
	var evictedValue V
	evicted := false
	if c.order.Len() >= c.capacity {
		oldest := c.order.Back()
		if oldest != nil {
			e := oldest.Value.(*entry[K, V])
			evictedKey, evictedValue = e.key, e.value
			evicted = true
			delete(c.items, e.key)
			c.order.Remove(oldest)
		}
	}

	c.items[key] = c.order.PushFront(&entry[K, V]{key: key, value: value})
	c.mu.Unlock()

	if evicted && c.onEvict != nil {
		c.onEvict(evictedKey, evictedValue)
	}
}

// TryGet returns the value for key if present and promotes the entry to
// most recently used.
func (c *Cache[K, V]) TryGet(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.items[key]
	if !ok {
		var zero V
		return zero, false
	}
	c.order.MoveToFront(el)
	return el.Value.(*entry[K, V]).value, true
}

// Peek returns the value for key without changing its recency position.
func (c *Cache[K, V]) Peek(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.items[key]
	if !ok {
		var zero V
		return zero, false
	}
	return el.Value.(*entry[K, V]).value, true
}

// Remove deletes key from the cache. It reports whether the key was present.
func (c *Cache[K, V]) Remove(key K) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.items[key]
	if !ok {
		return false
	}
	delete(c.items, key)
	c.order.Remove(el)
	return true
}

// Clear removes all entries. Eviction callbacks are not invoked.
func (c *Cache[K, V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.order.Init()
	c.items = make(map[K]*list.Element, c.capacity)
}

// Len returns the current number of entries.
func (c *Cache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// Cap returns the configured capacity.
func (c *Cache[K, V]) Cap() int {
	return c.capacity
}

// Keys returns all keys ordered least to most recently used.
func (c *Cache[K, V]) Keys() []K {
	c.mu.Lock()
	defer c.mu.Unlock()

	keys := make([]K, 0, c.order.Len())
	for el := c.order.Back(); el != nil; el = el.Prev() {
		keys = append(keys, el.Value.(*entry[K, V]).key)
	}
	return keys
}
