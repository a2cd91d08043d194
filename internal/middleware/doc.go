// Package middleware provides HTTP middleware for the video manager's API
// surface.
package middleware
