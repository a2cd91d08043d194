// Package dispatch runs background thumbnail verification with visibility
// prioritization.
//
// Producers enqueue (id, path, visible) requests; a single consumer drains
// the backlog in batches and processes visible requests before non-visible
// ones, reporting each outcome through a callback. At most one pending
// request exists per item id: a new request for the same id supersedes the
// old one. When the bounded backlog overflows, the oldest queued request is
// dropped rather than rejecting the new one, which suits scrolling UIs where
// the newest requests are the ones worth serving.
package dispatch
