// Package lru implements the bounded recency cache backing the thumbnail
// verification pipeline.
//
// The cache holds a fixed number of entries and evicts the least recently
// used entry when a new key is inserted at capacity. Both Put and TryGet
// promote the touched entry to most recently used. Operations are O(1)
// amortized, backed by a doubly-linked list and a map.
package lru
