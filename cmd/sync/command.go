// Package sync provides the "sync" command, kopy's primary operation: mirror
// a source file or directory onto a destination.
package sync

import (
	"fmt"
	"time"

	"github.com/nimblefs/kopy/internal/executor"
	"github.com/nimblefs/kopy/internal/logger"
	"github.com/nimblefs/kopy/internal/model"
	"github.com/nimblefs/kopy/internal/orchestrator"

	"github.com/nimblefs/kopy/cmd"
	"github.com/spf13/cobra"
)

// syncCmd represents the sync command: kopy's primary, default operation.
var syncCmd = &cobra.Command{
	Use:   "sync [source] [destination]",
	Short: "Mirror a source file or directory onto a destination",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := buildConfig(cmd, args[0], args[1])
		if err != nil {
			return err
		}

		log := logger.With("source", cfg.Source, "destination", cfg.Destination, "command", "sync")
		log.Info("starting sync")
		start := time.Now()

		hooks := orchestrator.Hooks{
			PlanReady: func(plan *model.Plan) {
				fmt.Fprintln(cmd.OutOrStdout(), orchestrator.FormatPlanPreview(plan))
				if cfg.DryRun {
					fmt.Fprintln(cmd.OutOrStdout(), orchestrator.FormatDryRunActions(plan))
				}
			},
			ExecutionEvent: func(evt executor.Event) {
				if evt.Kind == executor.EventActionError {
					log.Warn("action failed", "action", evt.ActionName, "path", evt.Path, "error", evt.Err)
				}
			},
		}

		result, err := orchestrator.Run(cfg, hooks)
		duration := time.Since(start)

		if err != nil && !result.Executed {
			log.Error("sync failed", "error", err, "duration", duration)
			return err
		}

		if result.DryRun {
			fmt.Fprintln(cmd.OutOrStdout(), "Dry-run mode: no changes were made.")
			return nil
		}
		if !result.Executed {
			fmt.Fprintln(cmd.OutOrStdout(), "Nothing to sync.")
			return nil
		}

		log.Info("sync complete",
			"duration", duration,
			"completed", result.Stats.CompletedActions,
			"failed", result.Stats.FailedActions,
			"bytes_copied", result.Stats.BytesCopied,
		)

		if len(result.Errors) > 0 {
			errorsByKind := map[string][]string{"Execution error": result.Errors}
			fmt.Fprintln(cmd.OutOrStdout(), orchestrator.FormatErrorSummary(errorsByKind))
		}

		return err
	},
}

func buildConfig(cmd *cobra.Command, source, destination string) (model.Config, error) {
	cfg := model.DefaultConfig(source, destination)

	var err error
	cfg.DryRun, err = cmd.Flags().GetBool("dry-run")
	if err != nil {
		return cfg, err
	}
	cfg.ChecksumMode, err = cmd.Flags().GetBool("checksum")
	if err != nil {
		return cfg, err
	}
	deleteModeStr, err := cmd.Flags().GetString("delete")
	if err != nil {
		return cfg, err
	}
	cfg.DeleteMode, err = parseDeleteMode(deleteModeStr)
	if err != nil {
		return cfg, err
	}
	cfg.ExcludePatterns, err = cmd.Flags().GetStringArray("exclude")
	if err != nil {
		return cfg, err
	}
	cfg.IncludePatterns, err = cmd.Flags().GetStringArray("include")
	if err != nil {
		return cfg, err
	}
	cfg.Threads, err = cmd.Flags().GetInt("threads")
	if err != nil {
		return cfg, err
	}
	scanModeStr, err := cmd.Flags().GetString("scan-mode")
	if err != nil {
		return cfg, err
	}
	cfg.ScanMode, err = model.ParseScanMode(scanModeStr)
	if err != nil {
		return cfg, err
	}

	return cfg, nil
}

func parseDeleteMode(s string) (model.DeleteMode, error) {
	switch s {
	case "", "none":
		return model.DeleteNone, nil
	case "trash":
		return model.DeleteTrash, nil
	case "permanent":
		return model.DeletePermanent, nil
	default:
		return model.DeleteNone, fmt.Errorf("unknown delete mode: %q (want none, trash, or permanent)", s)
	}
}

func init() {
	syncCmd.Flags().Bool("dry-run", false, "Preview planned actions without modifying the destination")
	syncCmd.Flags().Bool("checksum", false, "Compare file contents by checksum instead of size and modification time")
	syncCmd.Flags().String("delete", "none", "Orphan handling for files removed from the source: none, trash, or permanent")
	syncCmd.Flags().StringArrayP("exclude", "e", []string{}, "Exclude glob patterns (e.g., 'node_modules', '*.log'). Can be specified multiple times.")
	syncCmd.Flags().StringArrayP("include", "n", []string{}, "Include glob patterns that override excludes. Can be specified multiple times.")
	syncCmd.Flags().Int("threads", 4, "Number of worker goroutines for scanning and transferring")
	syncCmd.Flags().String("scan-mode", "auto", "Directory scan strategy: auto, sequential, or parallel")

	cmd.Register(syncCmd)
}
