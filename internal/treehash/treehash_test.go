package treehash

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/nimblefs/kopy/internal/model"
)

func writeFile(t *testing.T, path, contents string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatal(err)
	}
}

func buildTree(t *testing.T, root string) *model.FileTree {
	t.Helper()
	writeFile(t, filepath.Join(root, "a.txt"), "aaa")
	writeFile(t, filepath.Join(root, "b.txt"), "bbb")

	tree := model.NewFileTree(root)
	tree.Insert("a.txt", model.NewFileEntry("a.txt", 3, time.Now(), 0o644))
	tree.Insert("b.txt", model.NewFileEntry("b.txt", 3, time.Now(), 0o644))
	return tree
}

func TestTreeIsDeterministic(t *testing.T) {
	root := t.TempDir()
	tree := buildTree(t, root)

	first, err := Tree(tree, root)
	if err != nil {
		t.Fatalf("Tree() error = %v", err)
	}
	second, err := Tree(tree, root)
	if err != nil {
		t.Fatalf("Tree() error = %v", err)
	}
	if first != second {
		t.Error("expected identical trees to produce identical digests")
	}
}

func TestTreeChangesWithContent(t *testing.T) {
	root := t.TempDir()
	tree := buildTree(t, root)

	before, err := Tree(tree, root)
	if err != nil {
		t.Fatalf("Tree() error = %v", err)
	}

	writeFile(t, filepath.Join(root, "a.txt"), "changed")
	tree.Insert("a.txt", model.NewFileEntry("a.txt", 7, time.Now(), 0o644))

	after, err := Tree(tree, root)
	if err != nil {
		t.Fatalf("Tree() error = %v", err)
	}
	if before == after {
		t.Error("expected digest to change after file content changed")
	}
}

func TestTreeOrderIndependent(t *testing.T) {
	rootA := t.TempDir()
	rootB := t.TempDir()

	treeA := model.NewFileTree(rootA)
	writeFile(t, filepath.Join(rootA, "z.txt"), "zzz")
	writeFile(t, filepath.Join(rootA, "a.txt"), "aaa")
	treeA.Insert("z.txt", model.NewFileEntry("z.txt", 3, time.Now(), 0o644))
	treeA.Insert("a.txt", model.NewFileEntry("a.txt", 3, time.Now(), 0o644))

	treeB := model.NewFileTree(rootB)
	writeFile(t, filepath.Join(rootB, "a.txt"), "aaa")
	writeFile(t, filepath.Join(rootB, "z.txt"), "zzz")
	treeB.Insert("a.txt", model.NewFileEntry("a.txt", 3, time.Now(), 0o644))
	treeB.Insert("z.txt", model.NewFileEntry("z.txt", 3, time.Now(), 0o644))

	digestA, err := Tree(treeA, rootA)
	if err != nil {
		t.Fatal(err)
	}
	digestB, err := Tree(treeB, rootB)
	if err != nil {
		t.Fatal(err)
	}
	if digestA != digestB {
		t.Error("expected insertion order to not affect the digest")
	}
}
