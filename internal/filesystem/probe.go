package filesystem

import (
	"errors"
	"os"
	"syscall"
	"time"

	"videomanager/internal/logging"
	"videomanager/internal/metrics"
)

// ExistsFunc reports whether a file exists at path. It is the probe injected
// into the thumbnail cache; implementations may be slow (network mounts).
type ExistsFunc func(path string) bool

// RetryConfig configures retry behavior for existence probes on NFS mounts,
// where a stale file handle (ESTALE) is transient and worth retrying.
type RetryConfig struct {
	MaxRetries     int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// DefaultRetryConfig returns sensible defaults for NFS retry behavior
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:     3,
		InitialBackoff: 50 * time.Millisecond,
		MaxBackoff:     500 * time.Millisecond,
	}
}

// isNFSStaleError checks if an error is an NFS stale file handle error
func isNFSStaleError(err error) bool {
	if err == nil {
		return false
	}

	var errno syscall.Errno
	if errors.As(err, &errno) {
		return errno == syscall.ESTALE
	}
	return false
}

// Exists performs a single os.Stat and reports whether the path refers to a
// regular file. Directories are treated as absent: the cache stores thumbnail
// source paths, never directories.
func Exists(path string) bool {
	start := time.Now()
	info, err := os.Stat(path)
	metrics.ProbeDuration.Observe(time.Since(start).Seconds())

	switch {
	case err == nil && info.Mode().IsRegular():
		metrics.ProbeCalls.WithLabelValues("found").Inc()
		return true
	case err == nil:
		metrics.ProbeCalls.WithLabelValues("missing").Inc()
		return false
	case os.IsNotExist(err):
		metrics.ProbeCalls.WithLabelValues("missing").Inc()
		return false
	default:
		logging.Debug("Probe stat failed for %s: %v", path, err)
		metrics.ProbeCalls.WithLabelValues("error").Inc()
		return false
	}
}

// ExistsWithRetry returns an ExistsFunc that retries ESTALE errors with
// exponential backoff before giving up. Non-stale errors are not retried.
func ExistsWithRetry(config RetryConfig) ExistsFunc {
	return func(path string) bool {
		start := time.Now()
		backoff := config.InitialBackoff

		for attempt := 0; attempt <= config.MaxRetries; attempt++ {
			info, err := os.Stat(path)
			if err == nil {
				if attempt > 0 {
					logging.Info("Probe succeeded on retry %d for %s", attempt, path)
				}
				metrics.ProbeDuration.Observe(time.Since(start).Seconds())
				if info.Mode().IsRegular() {
					metrics.ProbeCalls.WithLabelValues("found").Inc()
					return true
				}
				metrics.ProbeCalls.WithLabelValues("missing").Inc()
				return false
			}

			if !isNFSStaleError(err) {
				metrics.ProbeDuration.Observe(time.Since(start).Seconds())
				if os.IsNotExist(err) {
					metrics.ProbeCalls.WithLabelValues("missing").Inc()
				} else {
					logging.Debug("Probe stat failed for %s: %v", path, err)
					metrics.ProbeCalls.WithLabelValues("error").Inc()
				}
				return false
			}

			metrics.ProbeStaleErrors.Inc()

			if attempt < config.MaxRetries {
				metrics.ProbeRetryAttempts.Inc()
				logging.Debug("Probe stale file handle for %s, retrying in %v (attempt %d/%d)",
					path, backoff, attempt+1, config.MaxRetries)
				time.Sleep(backoff)

				backoff *= 2
				if backoff > config.MaxBackoff {
					backoff = config.MaxBackoff
				}
			}
		}

		logging.Warn("Probe failed after %d retries for %s", config.MaxRetries, path)
		metrics.ProbeDuration.Observe(time.Since(start).Seconds())
		metrics.ProbeCalls.WithLabelValues("error").Inc()
		return false
	}
}
