package executor

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/nimblefs/kopy/internal/kopyerr"
)

// copyBufferSize is the streaming buffer used for atomic file transfer,
// distinct from (larger than) the hashing chunk size.
const copyBufferSize = 128 * 1024

// tempCounter is a process-wide monotonic counter that, combined with the
// process id, guarantees unique temp-file names across concurrent writers
// without any locking. It is initialized once at process start and never
// reset.
var tempCounter uint64

// copyFileAtomic copies src onto dest via a temp sibling file: stream the
// bytes, fsync, copy permissions and mtime from the source, then rename
// into place. On any failure the temp file is best-effort removed and the
// original error is returned. Returns the number of bytes copied.
func copyFileAtomic(src, dest string) (int64, error) {
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return 0, kopyerr.ClassifyIOError(filepath.Dir(dest), err)
	}

	srcFile, err := os.Open(src)
	if err != nil {
		return 0, kopyerr.ClassifyIOError(src, err)
	}
	defer srcFile.Close()

	srcInfo, err := srcFile.Stat()
	if err != nil {
		return 0, kopyerr.ClassifyIOError(src, err)
	}

	tempPath := tempSiblingName(dest)
	tempFile, err := os.OpenFile(tempPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return 0, kopyerr.ClassifyIOError(tempPath, err)
	}

	written, copyErr := streamCopy(tempFile, srcFile)
	if copyErr == nil {
		copyErr = tempFile.Sync()
	}
	closeErr := tempFile.Close()
	if copyErr == nil {
		copyErr = closeErr
	}
	if copyErr != nil {
		os.Remove(tempPath)
		return 0, kopyerr.ClassifyIOError(dest, copyErr)
	}

	if err := os.Chmod(tempPath, srcInfo.Mode().Perm()); err != nil {
		os.Remove(tempPath)
		return 0, kopyerr.ClassifyIOError(tempPath, err)
	}
	if err := os.Chtimes(tempPath, srcInfo.ModTime(), srcInfo.ModTime()); err != nil {
		os.Remove(tempPath)
		return 0, kopyerr.ClassifyIOError(tempPath, err)
	}

	if err := os.Rename(tempPath, dest); err != nil {
		os.Remove(tempPath)
		return 0, kopyerr.ClassifyIOError(dest, err)
	}

	return written, nil
}

func streamCopy(dst io.Writer, src io.Reader) (int64, error) {
	buf := make([]byte, copyBufferSize)
	return io.CopyBuffer(dst, src, buf)
}

// tempSiblingName builds ".{basename}.kopy.part.{pid}.{counter}" next to
// dest, so the rename that follows is intra-directory and atomic.
func tempSiblingName(dest string) string {
	n := atomic.AddUint64(&tempCounter, 1)
	name := fmt.Sprintf(".%s.kopy.part.%d.%d", filepath.Base(dest), os.Getpid(), n)
	return filepath.Join(filepath.Dir(dest), name)
}

// copySymlink reproduces a symlink at dest pointing at target, removing
// whatever currently occupies dest first. Symlink copies always report 0
// bytes transferred.
func copySymlink(dest, target string) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return kopyerr.ClassifyIOError(filepath.Dir(dest), err)
	}

	if info, err := os.Lstat(dest); err == nil {
		var rerr error
		if info.IsDir() {
			rerr = os.RemoveAll(dest)
		} else {
			rerr = os.Remove(dest)
		}
		if rerr != nil {
			return kopyerr.ClassifyIOError(dest, rerr)
		}
	} else if !os.IsNotExist(err) {
		return kopyerr.ClassifyIOError(dest, err)
	}

	if err := os.Symlink(target, dest); err != nil {
		return kopyerr.ClassifyIOError(dest, err)
	}
	return nil
}
