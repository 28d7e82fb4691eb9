// Package treehash computes a single whole-tree digest from a model.FileTree:
// every entry's relative path and content hash are combined, in sorted-path
// order, into one blake3 digest. This supplements the core sync semantics
// for the verification-oriented cmd/hash and cmd/calc commands.
package treehash

import (
	"path/filepath"
	"sort"

	"github.com/nimblefs/kopy/internal/hashsum"
	"github.com/nimblefs/kopy/internal/model"
	"github.com/zeebo/blake3"
)

// Size is the digest length in bytes.
const Size = 32

// Tree combines every file in tree into one digest: for each path in sorted
// order, it writes the path, a separator, and that file's content digest
// (computed fresh from disk unless already cached on the entry; a symlink
// without a cached digest contributes the digest of its target string) into a
// running blake3 hasher. Two trees with identical (path, content) pairs
// always produce the same digest, regardless of traversal order.
func Tree(tree *model.FileTree, rootAbs string) ([Size]byte, error) {
	var out [Size]byte

	paths := tree.Paths()
	sort.Strings(paths)

	h := blake3.New()
	for _, path := range paths {
		entry, _ := tree.Get(path)

		digest, err := entryDigest(entry, rootAbs, path)
		if err != nil {
			return out, err
		}

		h.Write([]byte(path))
		h.Write([]byte{0})
		h.Write(digest[:])
	}

	copy(out[:], h.Sum(nil))
	return out, nil
}

func entryDigest(entry model.FileEntry, rootAbs, path string) ([hashsum.Size]byte, error) {
	if entry.Hash != nil {
		return *entry.Hash, nil
	}
	if entry.IsSymlink {
		var out [hashsum.Size]byte
		h := blake3.New()
		h.Write([]byte(entry.SymlinkTarget))
		copy(out[:], h.Sum(nil))
		return out, nil
	}
	return hashsum.Hash(filepath.Join(rootAbs, filepath.FromSlash(path)))
}
