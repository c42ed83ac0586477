package main

import (
	"github.com/franz/media-ranker/internal/catalog"
	"github.com/franz/media-ranker/internal/rename"
	"github.com/franz/media-ranker/internal/util"
	"github.com/spf13/cobra"
)

var prefixCmd = &cobra.Command{
	Use:   "prefix",
	Short: "Add or remove Qnnn_ quantile prefixes on file names",
	Long: `Rename files so a file browser sorts them by quantile.

A file at quantile 73.1 becomes Q731_name.jpg. Existing prefixes are
replaced, so running 'prefix add' again refreshes them after more
comparisons. Scores follow the files.`,
}

var prefixAddCmd = &cobra.Command{
	Use:   "add [id...]",
	Short: "Prefix files with their current quantile (all files when no id is given)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runPrefix(cmd, args, rename.ActionApply)
	},
}

var prefixRemoveCmd = &cobra.Command{
	Use:   "remove [id...]",
	Short: "Strip quantile prefixes (all files when no id is given)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runPrefix(cmd, args, rename.ActionStrip)
	},
}

func init() {
	rootCmd.AddCommand(prefixCmd)
	prefixCmd.AddCommand(prefixAddCmd)
	prefixCmd.AddCommand(prefixRemoveCmd)

	prefixCmd.PersistentFlags().Bool("dry-run", false, "Show what would be renamed without touching files")
}

func runPrefix(cmd *cobra.Command, args []string, action string) error {
	dryRun, _ := cmd.Flags().GetBool("dry-run")

	s, err := openSession(sessionOptions{dryRun: dryRun})
	if err != nil {
		return err
	}
	defer s.Close()

	if err := s.sync(); err != nil {
		return err
	}

	ids := make([]string, 0, len(args))
	for _, a := range args {
		ids = append(ids, catalog.Normalize(a))
	}

	if action == rename.ActionApply {
		util.InfoLog("=== Applying Prefixes ===")
	} else {
		util.InfoLog("=== Removing Prefixes ===")
	}
	if dryRun {
		util.InfoLog("Dry run: no files will be renamed")
	}

	var res *rename.BatchResult
	if action == rename.ActionApply {
		res, err = s.lib.AddPrefixAll(ids)
	} else {
		res, err = s.lib.RemovePrefixAll(ids)
	}
	if err != nil {
		return err
	}

	for _, m := range res.Renamed {
		util.DebugLog("  %s -> %s", m.From, m.To)
	}
	for _, f := range res.Failed {
		util.WarnLog("  %s -> %s: %v", f.ID, f.Target, f.Err)
	}

	verb := "Renamed"
	if dryRun {
		verb = "Would rename"
	}
	util.SuccessLog("%s %d files", verb, len(res.Renamed))
	util.InfoLog("  Unchanged: %d", len(res.Unchanged))
	if len(res.Failed) > 0 {
		util.WarnLog("  Failed: %d", len(res.Failed))
	}

	return nil
}
