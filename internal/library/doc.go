// Package library maintains the sqlite-backed index of media files.
//
// The index stores one row per media file (path, name, type, size, mtime)
// and is populated by scanning the media directory. It exists to supply
// (id, path) pairs to the thumbnail verification queue; all richer catalog
// features live elsewhere.
package library
