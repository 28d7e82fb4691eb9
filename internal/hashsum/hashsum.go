// Package hashsum computes the streaming content digest used throughout
// kopy: a 32-byte blake3 hash of a file's bytes, read in fixed-size chunks.
package hashsum

import (
	"fmt"
	"io"
	"os"

	"github.com/zeebo/blake3"
)

// ChunkSize is the read buffer size used while streaming a file into the
// hasher, matching spec.md §4.2.
const ChunkSize = 64 * 1024

// Size is the digest length in bytes.
const Size = 32

// Hash streams path in ChunkSize chunks and returns its blake3 digest. An
// empty file produces blake3's defined empty-input digest. Open or read
// failures are wrapped with %w around the original error, so the caller can
// still classify them via internal/kopyerr.
func Hash(path string) ([Size]byte, error) {
	var out [Size]byte

	f, err := os.Open(path)
	if err != nil {
		return out, fmt.Errorf("failed to open %q: %w", path, err)
	}
	defer f.Close()

	h := blake3.New()
	buf := make([]byte, ChunkSize)

	for {
		n, err := f.Read(buf)
		if n > 0 {
			if _, werr := h.Write(buf[:n]); werr != nil {
				return out, fmt.Errorf("failed to hash %q: %w", path, werr)
			}
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return out, fmt.Errorf("failed to read %q: %w", path, err)
		}
	}

	copy(out[:], h.Sum(nil))
	return out, nil
}
