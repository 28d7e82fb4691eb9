package model

import "time"

// FileTree is a mapping from relative path to FileEntry, with aggregates
// maintained as entries are inserted. Directories are counted but not stored
// as entries; TotalDirs is incremented externally by the scanner as it
// traverses. A FileTree is constructed empty, populated once by the scanner,
// and read-only for the remainder of the run.
type FileTree struct {
	entries map[string]FileEntry

	TotalSize    int64
	TotalFiles   int
	TotalDirs    int
	ScanDuration time.Duration
	RootPath     string
}

// NewFileTree returns an empty tree rooted at rootPath.
func NewFileTree(rootPath string) *FileTree {
	return &FileTree{
		entries:  make(map[string]FileEntry),
		RootPath: rootPath,
	}
}

// Insert adds or replaces the entry at path, adjusting aggregate statistics.
// If path already exists, the previous entry's size is first subtracted so
// TotalSize reflects only the latest version.
func (t *FileTree) Insert(path string, entry FileEntry) {
	if old, ok := t.entries[path]; ok {
		t.TotalSize -= old.Size
		t.TotalFiles--
	}
	t.TotalSize += entry.Size
	t.TotalFiles++
	t.entries[path] = entry
}

// Get returns the entry at path, if present.
func (t *FileTree) Get(path string) (FileEntry, bool) {
	e, ok := t.entries[path]
	return e, ok
}

// Contains reports whether path has an entry in the tree.
func (t *FileTree) Contains(path string) bool {
	_, ok := t.entries[path]
	return ok
}

// Len returns the number of file entries in the tree.
func (t *FileTree) Len() int {
	return len(t.entries)
}

// IsEmpty reports whether the tree has no entries.
func (t *FileTree) IsEmpty() bool {
	return len(t.entries) == 0
}

// Entries returns the underlying path→FileEntry map. Callers must not mutate
// it; it is exposed for iteration only.
func (t *FileTree) Entries() map[string]FileEntry {
	return t.entries
}

// Paths returns every relative path held in the tree, in no particular order.
func (t *FileTree) Paths() []string {
	paths := make([]string, 0, len(t.entries))
	for p := range t.entries {
		paths = append(paths, p)
	}
	return paths
}

// SetScanDuration records the wall-clock elapsed time of the producing scan.
func (t *FileTree) SetScanDuration(d time.Duration) {
	t.ScanDuration = d
}

// IncrementDirs bumps the directory counter. Called by the scanner once per
// directory traversed; directories are never stored as entries.
func (t *FileTree) IncrementDirs() {
	t.TotalDirs++
}
