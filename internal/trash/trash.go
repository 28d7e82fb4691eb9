// Package trash implements kopy's recoverable-delete subsystem: deleted
// files are relocated into a timestamped snapshot directory under the
// destination root instead of being unlinked outright, with a JSON manifest
// recording what was moved and when.
package trash

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"syscall"
	"time"

	"github.com/nimblefs/kopy/internal/kopyerr"
	"github.com/nimblefs/kopy/internal/logger"
)

// DirName is the trash root's directory name under a destination.
const DirName = ".kopy_trash"

// ManifestName is the per-snapshot manifest file name.
const ManifestName = "MANIFEST.json"

const snapshotTimeFormat = "2006-01-02_150405"

// DeletedFile is one record in a snapshot's manifest.
type DeletedFile struct {
	OriginalPath string `json:"original_path"`
	TrashPath    string `json:"trash_path"`
	DeletedAt    string `json:"deleted_at"`
	Size         uint64 `json:"size"`
}

// Manifest is a snapshot's MANIFEST.json contents.
type Manifest struct {
	Files []DeletedFile `json:"files"`
}

// CopyFunc performs the atomic same-filesystem copy used as the
// cross-device fallback; the executor package supplies its own atomic-copy
// implementation here to avoid an import cycle.
type CopyFunc func(srcAbs, dstAbs string) error

// MoveToTrash relocates targetAbs (an absolute path at relPath under
// destRoot) into destRoot's current trash snapshot, appending a manifest
// record. copyFile is used only for the cross-device-rename fallback.
func MoveToTrash(targetAbs, destRoot, relPath string, copyFile CopyFunc) error {
	snapshot := filepath.Join(destRoot, DirName, time.Now().Format(snapshotTimeFormat))
	trashPath := filepath.Join(snapshot, filepath.FromSlash(relPath))
	trashPath, trashRel, err := resolveFreeName(trashPath, snapshot)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(trashPath), 0o755); err != nil {
		return kopyerr.ClassifyIOError(filepath.Dir(trashPath), err)
	}

	info, err := os.Lstat(targetAbs)
	if err != nil {
		return kopyerr.ClassifyIOError(targetAbs, err)
	}
	size := uint64(info.Size())

	if err := moveOrFallback(targetAbs, trashPath, info, copyFile); err != nil {
		return err
	}

	return appendManifest(snapshot, DeletedFile{
		OriginalPath: filepath.ToSlash(relPath),
		TrashPath:    filepath.ToSlash(trashRel),
		DeletedAt:    time.Now().Format(time.RFC3339),
		Size:         size,
	})
}

// resolveFreeName returns a trash path guaranteed not to already exist,
// generating "<basename>.~kopyN" collision candidates when the preferred
// path is taken, along with that path's location relative to snapshot.
func resolveFreeName(preferred, snapshot string) (string, string, error) {
	candidate := preferred
	for n := 1; ; n++ {
		if _, err := os.Lstat(candidate); err != nil {
			if os.IsNotExist(err) {
				rel, rerr := filepath.Rel(snapshot, candidate)
				if rerr != nil {
					return "", "", rerr
				}
				return candidate, rel, nil
			}
			return "", "", kopyerr.ClassifyIOError(candidate, err)
		}
		dir := filepath.Dir(preferred)
		base := filepath.Base(preferred)
		candidate = filepath.Join(dir, fmt.Sprintf("%s.~kopy%d", base, n))
	}
}

// moveOrFallback renames target onto trashPath, falling back to a
// copy-then-unlink when the rename crosses a filesystem boundary.
func moveOrFallback(target, trashPath string, info os.FileInfo, copyFile CopyFunc) error {
	err := os.Rename(target, trashPath)
	if err == nil {
		return nil
	}
	if !isCrossDevice(err) {
		return kopyerr.ClassifyIOError(target, err)
	}

	if info.Mode()&os.ModeSymlink != 0 {
		linkTarget, lerr := os.Readlink(target)
		if lerr != nil {
			return kopyerr.ClassifyIOError(target, lerr)
		}
		if rerr := os.Symlink(linkTarget, trashPath); rerr != nil {
			return kopyerr.ClassifyIOError(trashPath, rerr)
		}
	} else {
		if cerr := copyFile(target, trashPath); cerr != nil {
			return cerr
		}
	}

	if rerr := os.Remove(target); rerr != nil {
		return kopyerr.ClassifyIOError(target, rerr)
	}
	return nil
}

func isCrossDevice(err error) bool {
	return errors.Is(err, syscall.EXDEV)
}

// appendManifest reads snapshot's MANIFEST.json (if present), appends
// record, and writes it back pretty-printed. This is a read-modify-write,
// not a transaction: concurrent deletions into the same snapshot can race
// here, and callers must serialize deletions per-snapshot themselves.
func appendManifest(snapshot string, record DeletedFile) error {
	manifestPath := filepath.Join(snapshot, ManifestName)

	manifest := Manifest{}
	if data, err := os.ReadFile(manifestPath); err == nil {
		if jerr := json.Unmarshal(data, &manifest); jerr != nil {
			return kopyerr.Validation(fmt.Sprintf("failed to parse %s: %v", ManifestName, jerr))
		}
	} else if !os.IsNotExist(err) {
		return kopyerr.ClassifyIOError(manifestPath, err)
	}

	manifest.Files = append(manifest.Files, record)

	data, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return kopyerr.Validation(fmt.Sprintf("failed to serialize %s: %v", ManifestName, err))
	}
	if err := os.WriteFile(manifestPath, data, 0o644); err != nil {
		return kopyerr.ClassifyIOError(manifestPath, err)
	}

	logger.Debug("trash manifest updated", "snapshot", snapshot, "path", record.OriginalPath)
	return nil
}
