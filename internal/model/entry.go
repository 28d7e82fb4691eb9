// Package model defines the canonical data types shared by the scanner, diff
// engine, executor, and trash subsystem: file entries and trees, sync
// actions, plans, delete modes, and the run configuration.
package model

import "time"

// FileEntry is one record per file-like leaf encountered by the scanner.
//
// Path is always relative to its tree's root, never absolute and never empty.
// IsSymlink implies SymlinkTarget is non-empty. Size reflects the link itself,
// not its target, when IsSymlink is true.
type FileEntry struct {
	Path          string
	Size          int64
	ModTime       time.Time
	Mode          uint32 // Unix permission triplet; 0o644 on platforms lacking the concept.
	Hash          *[32]byte
	IsSymlink     bool
	SymlinkTarget string
}

// NewFileEntry builds a FileEntry for a regular file.
func NewFileEntry(path string, size int64, mtime time.Time, mode uint32) FileEntry {
	return FileEntry{
		Path:    path,
		Size:    size,
		ModTime: mtime,
		Mode:    mode,
	}
}

// NewSymlinkEntry builds a FileEntry for a symlink whose size is the size of
// the link itself and whose target is the string read from the link.
func NewSymlinkEntry(path string, size int64, mtime time.Time, mode uint32, target string) FileEntry {
	return FileEntry{
		Path:          path,
		Size:          size,
		ModTime:       mtime,
		Mode:          mode,
		IsSymlink:     true,
		SymlinkTarget: target,
	}
}

// WithHash returns a copy of e with the cached content digest set.
func (e FileEntry) WithHash(h [32]byte) FileEntry {
	e.Hash = &h
	return e
}

// HasHash reports whether the entry carries a cached content digest.
func (e FileEntry) HasHash() bool {
	return e.Hash != nil
}
