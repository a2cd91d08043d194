// Package handlers implements the HTTP API: health checks, thumbnail
// verification requests, viewport updates, and cache statistics.
package handlers
