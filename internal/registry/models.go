// Package registry provides a SQLite-backed file-state store that backs the
// directory watcher's incremental indexer: for each scanned
// path it tracks size, modification time, and content hash so a rescan can
// classify files as new, updated, or removed without re-reading unchanged
// content.
package registry

import "time"

// FileState tracks the last-known state of a single file for incremental
// indexing.
type FileState struct {
	Path       string    `json:"path"`
	Size       int64     `json:"size"`
	ModTime    time.Time `json:"mod_time"`
	Hash       string    `json:"hash"`
	Extension  string    `json:"extension"`
	MimeType   string    `json:"mime_type"`
	LastSeenAt time.Time `json:"last_seen_at"`
}

// Changed reports whether other represents a different file state than f,
// based on size and modification time (the cheap comparison the indexer
// performs before hashing).
func (f FileState) Changed(other FileState) bool {
	return f.Size != other.Size || !f.ModTime.Equal(other.ModTime)
}
