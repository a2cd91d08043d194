package startup

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"time"

	"videomanager/internal/logging"
)

// Build-time variables (injected via -ldflags)
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
	GoVersion = runtime.Version()
)

// Config holds all application configuration
type Config struct {
	MediaDir           string
	DatabaseDir        string
	Port               string
	ThumbCacheCapacity int
	ReclaimInterval    time.Duration
	VerifyQueueSize    int
	ScanOnStart        bool
}

// LoadConfig reads configuration from environment variables, applying
// defaults and validating directories. The database directory is created if
// missing; the media directory must already exist.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		MediaDir:           envOr("MEDIA_DIR", "./media"),
		DatabaseDir:        envOr("DATABASE_DIR", "./data"),
		Port:               envOr("PORT", "8080"),
		ThumbCacheCapacity: envInt("THUMB_CACHE_CAPACITY", 1000),
		VerifyQueueSize:    envInt("VERIFY_QUEUE_SIZE", 256),
		ReclaimInterval:    envDuration("THUMB_RECLAIM_INTERVAL", 30*time.Second),
		ScanOnStart:        envBool("SCAN_ON_START", true),
	}

	info, err := os.Stat(cfg.MediaDir)
	if err != nil {
		return nil, fmt.Errorf("media directory %s not accessible: %w", cfg.MediaDir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("media directory %s is not a directory", cfg.MediaDir)
	}

	if err := os.MkdirAll(cfg.DatabaseDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create database directory %s: %w", cfg.DatabaseDir, err)
	}

	logging.Info("Config: media=%s database=%s port=%s cacheCapacity=%d queueSize=%d reclaimInterval=%v",
		cfg.MediaDir, cfg.DatabaseDir, cfg.Port, cfg.ThumbCacheCapacity, cfg.VerifyQueueSize, cfg.ReclaimInterval)
	return cfg, nil
}

// DatabasePath returns the full path of the library index file.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.DatabaseDir, "library.db")
}

// LogFatal logs a fatal startup error and exits.
func LogFatal(format string, args ...interface{}) {
	logging.Fatal(format, args...)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		logging.Warn("Invalid %s=%q, using default %d", key, v, fallback)
		return fallback
	}
	return n
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		logging.Warn("Invalid %s=%q, using default %v", key, v, fallback)
		return fallback
	}
	return d
}

func envBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		logging.Warn("Invalid %s=%q, using default %v", key, v, fallback)
		return fallback
	}
	return b
}
