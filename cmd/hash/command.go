// Package hash provides the "hash" command for computing whole-tree digests
// of files and directories. This is the primary command for generating
// checksums outside of a sync run.
package hash

import (
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

// hashCmd represents the hash command for computing whole-tree digests.
var hashCmd = &cobra.Command{
	Use:   "hash [path]",
	Short: "Compute the digest of a file or directory",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]
		log := logger.With("path", path, "command", "hash")

		// Read flags directly from command to ensure they're parsed correctly
		excludePatterns, err := cmd.Flags().GetStringArray("exclude")
		if err != nil {
			log.Warn("Failed to read exclude patterns", "error", err)
			excludePatterns = []string{}
		}
		customIgnoreFile, err := cmd.Flags().GetString("ignore-file")
		if err != nil {
			log.Warn("Failed to read ignore-file flag", "error", err)
			customIgnoreFile = ""
		}

		log.Info("Starting hash computation")
		start := time.Now()

		pathInfo, err := os.Stat(path)
		if err != nil {
			log.Error("Failed to get path info", "error", err)
			return fmt.Errorf("failed to stat path %q: %w", path, err)
		}

		digest, size, err := hashPath(path, pathInfo.IsDir(), excludePatterns, customIgnoreFile)
		if err != nil {
			log.Error("Hash computation failed", "error", err, "duration", time.Since(start))
			return err
		}

		duration := time.Since(start)
		log.Info("Hash computation completed",
			"duration", duration,
			"hash", fmt.Sprintf("%x", digest),
			"size", formatSize(size),
		)

		pathType := "f"
		if pathInfo.IsDir() {
			pathType = "d"
		}
		if _, err := fmt.Fprintf(cmd.OutOrStdout(), "%s (%s): %x (size: %s)\n",
			path, pathType, digest, formatSize(size)); err != nil {
			log.Error("Failed to write output to stdout", "error", err)
			return fmt.Errorf("failed to write output: %w", err)
		}
		return nil
	},
}

// hashPath computes a digest for path: a plain content hash for a regular
// file, or a whole-tree digest (over every file beneath it, after exclusions)
// for a directory. It also returns the total number of bytes hashed.
func hashPath(path string, isDir bool, excludePatterns []string, customIgnoreFile string) ([treehash.Size]byte, int64, error) {
	if !isDir {
		digest, err := hashsum.Hash(path)
		if err != nil {
			return digest, 0, err
		}
		info, err := os.Stat(path)
		if err != nil {
			return digest, 0, err
		}
		return digest, info.Size(), nil
	}

	if customIgnoreFile != "" {
		customPatterns, err := ignore.LoadCustomIgnoreFile(customIgnoreFile)
		if err != nil {
			return [treehash.Size]byte{}, 0, fmt.Errorf("failed to load ignore file %q: %w", customIgnoreFile, err)
		}
		excludePatterns = append(excludePatterns, customPatterns...)
	}

	cfg := model.DefaultConfig(path, "")
	cfg.ExcludePatterns = excludePatterns

	tree, err := scanner.Scan(path, cfg, false, nil)
	if err != nil {
		return [treehash.Size]byte{}, 0, fmt.Errorf("failed to scan %q: %w", path, err)
	}

	digest, err := treehash.Tree(tree, path)
	if err != nil {
		return digest, 0, err
	}
	return digest, tree.TotalSize, nil
}

// formatSize formats a size in bytes to a human-readable string.
// It automatically selects the most appropriate unit (B, KB, MB, GB, TB, PB, EB)
// based on the size value. Uses binary (1024-based) units.
//
// The function uses 1 decimal place for MB and above, and shows integers for KB
// when the decimal part is zero.
//
// Parameters:
//   - bytes: The size in bytes to format
//
// Returns a formatted string like "1.5 MB" or "512 B".
func formatSize(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}

	units := []string{"B", "KB", "MB", "GB", "TB", "PB", "EB"}
	size := float64(bytes)
	exp := 0

	for size >= unit && exp < len(units)-1 {
		size /= unit
		exp++
	}

	// Use 1 decimal place for MB and above, but for KB show as integer if decimal is zero
	if exp == 1 { // KB
		if size == float64(int64(size)) {
			return fmt.Sprintf("%.0f %s", size, units[exp])
		}
		return fmt.Sprintf("%.1f %s", size, units[exp])
	}
	// For MB and above, always show 1 decimal place
	return fmt.Sprintf("%.1f %s", size, units[exp])
}

func init() {
	hashCmd.Flags().StringArrayP("exclude", "e", []string{}, "Exclude patterns (e.g., 'node_modules', '.git'). Can be specified multiple times.")
	hashCmd.Flags().StringP("ignore-file", "i", "", "Path to a custom ignore file (takes highest priority). Ignore files (.gitignore etc.) inside the scanned directory are always applied.")

	cmd.Register(hashCmd)
}
