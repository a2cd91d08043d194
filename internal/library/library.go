package library

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite3 driver

	"videomanager/internal/logging"
	"videomanager/internal/metrics"
)

// Default timeout for database operations
const defaultTimeout = 5 * time.Second

// MediaFile is one entry in the library index.
type MediaFile struct {
	ID      int64
	Path    string
	Name    string
	Type    string // "image", "video", "other"
	Size    int64
	ModTime time.Time
}

// Library is the sqlite-backed media index. It is the collaborator that
// supplies (id, path) pairs to the verification queue.
type Library struct {
	db     *sql.DB
	dbPath string
}

// Open opens (or creates) the library index at dbPath. The parent directory
// must already exist and be writable.
func Open(ctx context.Context, dbPath string) (*Library, error) {
	// WAL mode and a busy timeout keep concurrent readers from tripping
	// over "database is locked" errors.
	connStr := fmt.Sprintf("%s?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000", dbPath)

	db, err := sql.Open("sqlite3", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open library index: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			logging.Error("failed to close library index after ping failure: %v", closeErr)
		}
		return nil, fmt.Errorf("failed to connect to library index: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	l := &Library{db: db, dbPath: dbPath}
	if err := l.initialize(ctx); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			logging.Error("failed to close library index after schema failure: %v", closeErr)
		}
		return nil, fmt.Errorf("failed to initialize library schema: %w", err)
	}

	logging.Info("Library index ready at %s", dbPath)
	return l, nil
}

func (l *Library) initialize(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS media_files (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		path TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL,
		type TEXT NOT NULL,
		size INTEGER NOT NULL DEFAULT 0,
		mod_time TIMESTAMP NOT NULL,
		indexed_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_media_files_type ON media_files(type);
	CREATE INDEX IF NOT EXISTS idx_media_files_name ON media_files(name);
	`
	_, err := l.db.ExecContext(ctx, schema)
	return err
}

// Close closes the underlying database.
func (l *Library) Close() error {
	return l.db.Close()
}

// Upsert inserts or refreshes a batch of media files in one transaction.
func (l *Library) Upsert(ctx context.Context, files []MediaFile) error {
	if len(files) == 0 {
		return nil
	}

	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO media_files (path, name, type, size, mod_time)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			name = excluded.name,
			type = excluded.type,
			size = excluded.size,
			mod_time = excluded.mod_time,
			indexed_at = CURRENT_TIMESTAMP`)
	if err != nil {
		return fmt.Errorf("failed to prepare upsert: %w", err)
	}
	defer stmt.Close()

	for _, f := range files {
		if _, err := stmt.ExecContext(ctx, f.Path, f.Name, f.Type, f.Size, f.ModTime); err != nil {
			return fmt.Errorf("failed to upsert %s: %w", f.Path, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit upsert: %w", err)
	}
	return nil
}

// List returns media files ordered by path.
func (l *Library) List(ctx context.Context, limit, offset int) ([]MediaFile, error) {
	rows, err := l.db.QueryContext(ctx, `
		SELECT id, path, name, type, size, mod_time
		FROM media_files ORDER BY path LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list media files: %w", err)
	}
	defer rows.Close()

	var files []MediaFile
	for rows.Next() {
		var f MediaFile
		if err := rows.Scan(&f.ID, &f.Path, &f.Name, &f.Type, &f.Size, &f.ModTime); err != nil {
			return nil, fmt.Errorf("failed to scan media file: %w", err)
		}
		files = append(files, f)
	}
	return files, rows.Err()
}

// PathByID returns the stored path for a media file id.
func (l *Library) PathByID(ctx context.Context, id int64) (string, error) {
	var path string
	err := l.db.QueryRowContext(ctx, `SELECT path FROM media_files WHERE id = ?`, id).Scan(&path)
	if err == sql.ErrNoRows {
		return "", fmt.Errorf("media file %d not found", id)
	}
	if err != nil {
		return "", fmt.Errorf("failed to look up media file %d: %w", id, err)
	}
	return path, nil
}

// Count returns the number of indexed media files.
func (l *Library) Count(ctx context.Context) (int, error) {
	var n int
	if err := l.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM media_files`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count media files: %w", err)
	}
	metrics.LibraryFiles.Set(float64(n))
	return n, nil
}
