// Package thumbcache caches thumbnail source existence checks behind a
// bounded LRU with reclaimable values.
//
// Each cached result is held through a handle whose target may be cleared
// asynchronously under memory pressure, unless the path is pinned (currently
// visible in the UI) or recently touched. A cleared handle is transparently
// treated as a miss and re-verified against the filesystem. Negative results
// are cached and never reclaimed, so confirmed-missing files are probed at
// most once between clears.
//
// Pinning and LRU eviction are deliberately independent: a pinned path
// survives reclamation sweeps but can still be evicted when the bounded
// cache exceeds capacity.
package thumbcache
