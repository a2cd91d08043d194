// Package memory configures Go's soft memory limit and monitors heap usage
// against high and critical watermarks.
//
// Crossing the critical watermark triggers aggressive reclamation of the
// thumbnail cache (through the Reclaimer interface) and an immediate GC;
// background work can additionally block on WaitIfPaused until usage falls
// back below the high watermark.
//
// GOMEMLIMIT can be set directly, or derived from a MEMORY_LIMIT environment
// variable (bytes) scaled by MEMORY_RATIO via ConfigureFromEnv.
package memory
