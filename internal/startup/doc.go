// Package startup handles environment-driven configuration and build
// information for the video manager daemon.
package startup
