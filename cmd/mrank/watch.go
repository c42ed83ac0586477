package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/franz/media-ranker/internal/util"
	"github.com/franz/media-ranker/internal/watch"
	"github.com/spf13/cobra"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Keep the score document in sync while files change",
	Long: `Watch the root folder and re-run sync after each burst of file changes.

Folders within max_depth are watched, skip_dirs are ignored and new folders
are picked up as they appear. Changes are grouped until the folder has been
quiet for the debounce period. Stop with Ctrl-C.`,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	s, err := openSession(sessionOptions{})
	if err != nil {
		return err
	}
	defer s.Close()

	if err := s.sync(); err != nil {
		return err
	}

	w, err := watch.New(s.cfg.Root, watch.Options{
		MaxDepth:   s.cfg.MaxDepth,
		SkipDirs:   s.cfg.SkipDirs,
		Extensions: s.cfg.Extensions,
		Debounce:   s.cfg.Debounce,
	})
	if err != nil {
		return err
	}
	defer w.Stop()

	if err := w.Start(ctx); err != nil {
		return err
	}

	util.InfoLog("=== Watching %s ===", s.cfg.Root)
	util.InfoLog("Directories: %d, debounce: %v", w.Watched(), s.cfg.Debounce)

	for {
		select {
		case <-ctx.Done():
			util.InfoLog("Stopping watcher")
			return nil
		case batch, ok := <-w.Batches():
			if !ok {
				return nil
			}
			util.DebugLog("%d changes settled", len(batch))
			if util.IsVerbose() {
				for _, c := range batch {
					util.DebugLog("  %s %s", c.Op, c.Path)
				}
			}
			if err := s.sync(); err != nil {
				// Keep watching; the next batch retries
				util.ErrorLog("Sync failed: %v", err)
			}
		}
	}
}
