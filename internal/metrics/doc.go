// Package metrics declares the Prometheus metrics exported by the video
// manager.
//
// All metrics are registered with the default registry via promauto and are
// served from the /metrics endpoint. Metric names are prefixed with
// "videomanager_" and grouped by subsystem: thumbnail cache, verification
// queue, filesystem probe, library index, memory, and HTTP.
package metrics
