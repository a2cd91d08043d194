package library

import (
	"context"
	"io/fs"
	"path/filepath"
	"strings"
	"time"

	"videomanager/internal/logging"
	"videomanager/internal/metrics"
)

var imageExts = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".gif": true,
	".bmp": true, ".webp": true, ".tiff": true, ".tif": true,
	".heic": true, ".heif": true, ".avif": true,
}

var videoExts = map[string]bool{
	".mp4": true, ".mkv": true, ".avi": true, ".mov": true,
	".wmv": true, ".flv": true, ".webm": true, ".m4v": true,
	".mpeg": true, ".mpg": true, ".3gp": true, ".ts": true,
}

// MediaType classifies a path by extension as "image", "video", or "other".
func MediaType(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	switch {
	case imageExts[ext]:
		return "image"
	case videoExts[ext]:
		return "video"
	default:
		return "other"
	}
}

// Scan walks root, indexes every media file found, and returns the number of
// files indexed. Hidden files and directories are skipped. Walk errors on
// individual entries are counted and logged, not fatal.
func (l *Library) Scan(ctx context.Context, root string) (int, error) {
	start := time.Now()
	var batch []MediaFile
	indexed := 0

	const batchSize = 500

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			logging.Warn("Scan error at %s: %v", path, err)
			metrics.LibraryScanErrors.Inc()
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		name := d.Name()
		if strings.HasPrefix(name, ".") && path != root {
			if d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}

		mediaType := MediaType(path)
		if mediaType == "other" {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			logging.Warn("Scan stat error at %s: %v", path, err)
			metrics.LibraryScanErrors.Inc()
			return nil
		}

		batch = append(batch, MediaFile{
			Path:    path,
			Name:    name,
			Type:    mediaType,
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
		indexed++

		if len(batch) >= batchSize {
			if err := l.Upsert(ctx, batch); err != nil {
				return err
			}
			batch = batch[:0]
		}
		return nil
	})
	if err != nil {
		return indexed, err
	}

	if err := l.Upsert(ctx, batch); err != nil {
		return indexed, err
	}

	elapsed := time.Since(start)
	metrics.LibraryScanDuration.Set(elapsed.Seconds())
	logging.Info("Library scan of %s indexed %d files in %v", root, indexed, elapsed)

	if _, err := l.Count(ctx); err != nil {
		logging.Warn("Failed to refresh library count: %v", err)
	}
	return indexed, nil
}
