// Package diff provides the "diff" command for comparing two directory
// trees (or files) by computing their whole-tree digests and reporting
// whether they match.
package diff

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"github.com/nimblefs/kopy/internal/hashsum"
	"github.com/nimblefs/kopy/internal/ignore"
	"github.com/nimblefs/kopy/internal/logger"
	"github.com/nimblefs/kopy/internal/model"
	"github.com/nimblefs/kopy/internal/scanner"
	"github.com/nimblefs/kopy/internal/treehash"

	"github.com/nimblefs/kopy/cmd"
	"github.com/spf13/cobra"
)

// noDifferencesMsg is the message returned when two paths have identical digests.
const noDifferencesMsg = "No differences detected"

// diffCmd represents the diff command for directory comparison.
var diffCmd = &cobra.Command{
	Use:   "diff [pathA] [pathB]",
	Short: "Compare two directory trees (or files) by digest",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		pathA := args[0]
		pathB := args[1]
		log := logger.With("pathA", pathA, "pathB", pathB, "command", "diff")

		// Read flags directly from command to ensure they're parsed correctly
		patterns, err := cmd.Flags().GetStringArray("exclude")
		if err != nil {
			log.Warn("Failed to read exclude patterns", "error", err)
			patterns = []string{}
		}
		customIgnoreFile, err := cmd.Flags().GetString("ignore-file")
		if err != nil {
			log.Warn("Failed to read ignore-file flag", "error", err)
			customIgnoreFile = ""
		}

		log.Info("Starting directory comparison")
		start := time.Now()

		lines, err := compare(pathA, pathB, patterns, customIgnoreFile)
		if err != nil {
			log.Error("Comparison failed", "error", err, "duration", time.Since(start))
			return err
		}

		duration := time.Since(start)
		log.Info("Comparison completed",
			"duration", duration,
			"differences", len(lines),
		)

		for _, line := range lines {
			if _, err := fmt.Fprintln(cmd.OutOrStdout(), line); err != nil {
				log.Error("Failed to write output to stdout", "error", err, "line", line)
				return fmt.Errorf("failed to write output: %w", err)
			}
		}

		return nil
	},
}

// digestOf computes the whole-tree (or single-file) digest and total size
// of path, applying the given exclude patterns and optional custom ignore
// file when path is a directory.
func digestOf(path string, patterns []string, customIgnoreFile string) ([treehash.Size]byte, int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return [treehash.Size]byte{}, 0, fmt.Errorf("failed to stat path %q: %w", path, err)
	}

	if !info.IsDir() {
		digest, err := hashsum.Hash(path)
		return digest, info.Size(), err
	}

	if customIgnoreFile != "" {
		customPatterns, err := ignore.LoadCustomIgnoreFile(customIgnoreFile)
		if err != nil {
			return [treehash.Size]byte{}, 0, fmt.Errorf("failed to load ignore file %q: %w", customIgnoreFile, err)
		}
		patterns = append(patterns, customPatterns...)
	}

	cfg := model.DefaultConfig(path, "")
	cfg.ExcludePatterns = patterns

	tree, err := scanner.Scan(path, cfg, false, nil)
	if err != nil {
		return [treehash.Size]byte{}, 0, fmt.Errorf("failed to scan %q: %w", path, err)
	}

	digest, err := treehash.Tree(tree, path)
	return digest, tree.TotalSize, err
}

// compare computes the digests of a and b, applying the same exclusion
// patterns to both, and reports whether they match. If they are identical,
// it returns a single "No differences detected" message; otherwise it
// returns a root-mismatch message showing both digests and sizes.
func compare(a, b string, patterns []string, customIgnoreFile string) ([]string, error) {
	log := logger.With("pathA", a, "pathB", b, "operation", "compare")

	log.Info("Starting hash computation for path A")
	startA := time.Now()
	digestA, sizeA, err := digestOf(a, patterns, customIgnoreFile)
	if err != nil {
		log.Error("Failed to hash path A", "error", err, "duration", time.Since(startA))
		return nil, fmt.Errorf("failed to hash path %q: %w", a, err)
	}
	log.Info("Hash computation for path A completed",
		"duration", time.Since(startA),
		"hash", fmt.Sprintf("%x", digestA),
		"size", sizeA,
	)

	log.Info("Starting hash computation for path B")
	startB := time.Now()
	digestB, sizeB, err := digestOf(b, patterns, customIgnoreFile)
	if err != nil {
		log.Error("Failed to hash path B", "error", err, "duration", time.Since(startB))
		return nil, fmt.Errorf("failed to hash path %q: %w", b, err)
	}
	log.Info("Hash computation for path B completed",
		"duration", time.Since(startB),
		"hash", fmt.Sprintf("%x", digestB),
		"size", sizeB,
	)

	if bytes.Equal(digestA[:], digestB[:]) {
		log.Info("Paths are identical")
		return []string{noDifferencesMsg}, nil
	}

	log.Warn("Paths differ",
		"hashA", fmt.Sprintf("%x", digestA),
		"hashB", fmt.Sprintf("%x", digestB),
		"sizeA", sizeA,
		"sizeB", sizeB,
	)
	return []string{
		fmt.Sprintf("Root mismatch:\nA: %x (size: %d)\nB: %x (size: %d)",
			digestA, sizeA, digestB, sizeB),
	}, nil
}

func init() {
	diffCmd.Flags().StringArrayP("exclude", "e", []string{}, "Exclude patterns (e.g., 'node_modules', '.git'). Can be specified multiple times.")
	diffCmd.Flags().StringP("ignore-file", "i", "", "Path to a custom ignore file (takes highest priority). Ignore files (.gitignore etc.) inside the scanned directories are always applied.")

	cmd.Register(diffCmd)
}
