// Package calc provides the "calc" command for verifying that a file or
// directory matches a given digest. This is useful for integrity verification.
package calc

import (
	"encoding/hex"
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

// calcCmd represents the calc command for hash verification.
var calcCmd = &cobra.Command{
	Use:   "calc [path] [hash]",
	Short: "Verify that a file or directory matches the given hash",
	Long: `Verify that a file or directory matches the given hash.
Computes the digest of the specified path and compares it with the provided hash.
Exits with code 0 if the hashes match, non-zero otherwise.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]
		expectedHashStr := args[1]
		log := logger.With("path", path, "command", "calc", "expected_hash", expectedHashStr)

		expectedHash, err := hex.DecodeString(expectedHashStr)
		if err != nil {
			log.Error("Failed to parse expected hash", "error", err)
			if _, writeErr := fmt.Fprintf(cmd.ErrOrStderr(), "Error: invalid hash format: %q (expected hexadecimal string)\n", expectedHashStr); writeErr != nil {
				log.Error("Failed to write error to stderr", "error", writeErr)
			}
			return fmt.Errorf("invalid hash format: %q (expected hexadecimal string): %w", expectedHashStr, err)
		}

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

		log.Info("Starting hash computation for verification")
		start := time.Now()

		pathInfo, err := os.Stat(path)
		if err != nil {
			log.Error("Failed to stat path", "error", err)
			return fmt.Errorf("failed to stat path %q: %w", path, err)
		}

		computedHash, size, err := hashPath(path, pathInfo.IsDir(), excludePatterns, customIgnoreFile)
		if err != nil {
			log.Error("Hash computation failed", "error", err, "duration", time.Since(start))
			return err
		}

		duration := time.Since(start)
		computedHashStr := fmt.Sprintf("%x", computedHash)
		log.Info("Hash computation completed",
			"duration", duration,
			"computed_hash", computedHashStr,
			"size", size,
		)

		if len(computedHash) != len(expectedHash) {
			log.Error("Hash length mismatch",
				"computed_length", len(computedHash),
				"expected_length", len(expectedHash),
			)
			writeErr := writeHashLengthMismatchOutput(cmd, len(computedHash), len(expectedHash), computedHashStr, expectedHashStr)
			if writeErr != nil {
				log.Error("Failed to write hash length mismatch output", "error", writeErr)
			}
			return fmt.Errorf("hash length mismatch")
		}

		match := true
		for i := range computedHash {
			if computedHash[i] != expectedHash[i] {
				match = false
				break
			}
		}

		if match {
			log.Info("Hash verification successful", "hash", computedHashStr)
			if _, err := fmt.Fprintf(cmd.OutOrStdout(), "Hash matches: %s\n", computedHashStr); err != nil {
				log.Error("Failed to write output to stdout", "error", err)
				return fmt.Errorf("failed to write output: %w", err)
			}
			return nil
		}

		log.Error("Hash verification failed",
			"computed_hash", computedHashStr,
			"expected_hash", expectedHashStr,
		)
		if _, err := fmt.Fprintf(cmd.OutOrStderr(), "Hash mismatch!\n"); err != nil {
			log.Error("Failed to write output to stderr", "error", err)
			return fmt.Errorf("failed to write output: %w", err)
		}
		if _, err := fmt.Fprintf(cmd.OutOrStderr(), "Computed: %s\n", computedHashStr); err != nil {
			log.Error("Failed to write output to stderr", "error", err)
			return fmt.Errorf("failed to write output: %w", err)
		}
		if _, err := fmt.Fprintf(cmd.OutOrStderr(), "Expected: %s\n", expectedHashStr); err != nil {
			log.Error("Failed to write output to stderr", "error", err)
			return fmt.Errorf("failed to write output: %w", err)
		}
		return fmt.Errorf("hash mismatch")
	},
}

// hashPath computes a digest for path: a plain content hash for a regular
// file, or a whole-tree digest for a directory, after exclusions.
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

// writeHashLengthMismatchOutput writes hash length mismatch information to stderr.
// It outputs the computed and expected hash lengths and values to help diagnose
// verification failures. This is a helper function to improve error handling consistency.
//
// Parameters:
//   - cmd: The Cobra command instance for accessing output streams
//   - computedLen: The length in bytes of the computed hash
//   - expectedLen: The length in bytes of the expected hash
//   - computedHash: The hexadecimal representation of the computed hash
//   - expectedHash: The hexadecimal representation of the expected hash
//
// Returns an error if writing to stderr fails.
func writeHashLengthMismatchOutput(cmd *cobra.Command, computedLen, expectedLen int, computedHash, expectedHash string) error {
	if _, err := fmt.Fprintf(cmd.OutOrStderr(), "Hash mismatch: computed hash length (%d) differs from expected hash length (%d)\n",
		computedLen, expectedLen); err != nil {
		return fmt.Errorf("failed to write length mismatch: %w", err)
	}
	if _, err := fmt.Fprintf(cmd.OutOrStderr(), "Computed: %s\n", computedHash); err != nil {
		return fmt.Errorf("failed to write computed hash: %w", err)
	}
	if _, err := fmt.Fprintf(cmd.OutOrStderr(), "Expected: %s\n", expectedHash); err != nil {
		return fmt.Errorf("failed to write expected hash: %w", err)
	}
	return nil
}

func init() {
	calcCmd.Flags().StringArrayP("exclude", "e", []string{}, "Exclude patterns (e.g., 'node_modules', '.git'). Can be specified multiple times.")
	calcCmd.Flags().StringP("ignore-file", "i", "", "Path to a custom ignore file (takes highest priority). Ignore files (.gitignore etc.) inside the scanned directory are always applied.")

	cmd.Register(calcCmd)
}
