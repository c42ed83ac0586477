package main

import (
	"time"

	"github.com/franz/media-ranker/internal/util"
	"github.com/spf13/cobra"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Align the score document with the files on disk",
	Long: `Scan the root folder and reconcile the score document with it.

Reconciliation:
- Moves bare-filename keys from older documents to their relative path
- Adds a default record for every new file
- Carries the score of a renamed or re-prefixed file over to its new name
- Merges duplicate records of the same file, keeping the most compared one
- Removes records whose file is gone

The document is written only when something changed.`,
	RunE: runSync,
}

func init() {
	rootCmd.AddCommand(syncCmd)
}

func runSync(cmd *cobra.Command, args []string) error {
	s, err := openSession(sessionOptions{})
	if err != nil {
		return err
	}
	defer s.Close()

	util.InfoLog("=== Sync ===")
	util.InfoLog("Root: %s", s.cfg.Root)

	startTime := time.Now()

	rep, err := s.lib.SyncFolder()
	if err != nil {
		return err
	}

	util.SuccessLog("Sync complete in %v", time.Since(startTime).Round(time.Millisecond))
	util.InfoLog("  Files: %d", s.lib.Len())
	util.InfoLog("  Added: %d", rep.Added)
	util.InfoLog("  Migrated: %d", rep.Migrated)
	util.InfoLog("  Merged: %d", rep.Merged)
	util.InfoLog("  Removed: %d", rep.Removed)
	if len(rep.Ambiguous) > 0 {
		util.WarnLog("  Ambiguous legacy keys: %d", len(rep.Ambiguous))
		for _, key := range rep.Ambiguous {
			util.DebugLog("    %s", key)
		}
	}
	if !rep.Changed() {
		util.InfoLog("Nothing changed; document left untouched")
	}

	return nil
}
