package main

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/franz/media-ranker/internal/library"
	"github.com/franz/media-ranker/internal/report"
	"github.com/franz/media-ranker/internal/store"
	"github.com/franz/media-ranker/internal/util"
	"github.com/spf13/cobra"
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Generate a Markdown ranking report",
	Long: `Generate a ranking report in Markdown format.

The report includes:
- File, image and video counts
- Comparison totals and files never compared
- Quantile distribution
- Top and bottom files by skill
- Recent journal activity

The report is saved to artifacts/reports/<timestamp>/ranking.md`,
	RunE: runReport,
}

func init() {
	rootCmd.AddCommand(reportCmd)

	// Report-specific flags
	reportCmd.Flags().String("out", "", "Output directory for report (default: <events_dir>/reports/<timestamp>)")
	reportCmd.Flags().Int("top", 10, "Number of files in the top and bottom lists")
	reportCmd.Flags().Int("recent", 10, "Number of recent comparisons to include")
}

func runReport(cmd *cobra.Command, args []string) error {
	topN, _ := cmd.Flags().GetInt("top")
	recent, _ := cmd.Flags().GetInt("recent")

	s, err := openSession(sessionOptions{})
	if err != nil {
		return err
	}
	defer s.Close()

	util.InfoLog("=== Generating Ranking Report ===")

	if err := s.sync(); err != nil {
		return err
	}

	entries := s.lib.Ranked(library.Ascending, 0, 0)
	items := make([]report.RankedItem, 0, len(entries))
	for _, e := range entries {
		items = append(items, report.RankedItem{
			ID:          e.ID,
			Skill:       e.Skill,
			Quantile:    e.Quantile,
			Comparisons: e.Comparisons,
			Kind:        string(e.Kind),
		})
	}

	summary := report.BuildSummary(items, topN, s.cfg.MaskThreshold)
	summary.RootPath = s.cfg.Root
	summary.DocumentPath = filepath.Join(s.cfg.Root, store.DocumentName)
	summary.EventLogPath = s.logger.Path()

	if s.journal != nil {
		summary.JournalPath = s.journal.Path()
		if stats, err := s.journal.Stats(); err != nil {
			util.WarnLog("Failed to read journal stats: %v", err)
		} else {
			summary.JournalComparisons = stats.Comparisons
			summary.JournalSessions = stats.Sessions
			summary.LastComparison = stats.Last
		}

		if recent > 0 {
			history, err := s.journal.Comparisons("", recent)
			if err != nil {
				util.WarnLog("Failed to read journal: %v", err)
			}
			for _, c := range history {
				summary.Recent = append(summary.Recent, report.Activity{
					At:          c.At,
					Description: fmt.Sprintf("`%s` vs `%s`: %s", c.IDA, c.IDB, c.Outcome),
				})
			}
		}
	}

	// Determine output path
	outputDir, _ := cmd.Flags().GetString("out")
	if outputDir == "" {
		timestamp := time.Now().Format("20060102-150405")
		outputDir = filepath.Join(s.cfg.EventsDir, "reports", timestamp)
	}

	outputPath := filepath.Join(outputDir, "ranking.md")

	// Write markdown report
	util.InfoLog("Writing report to: %s", outputPath)
	if err := report.WriteMarkdownReport(summary, outputPath); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}

	// Summary
	util.SuccessLog("Report generated successfully!")
	util.InfoLog("")
	util.InfoLog("Summary:")
	util.InfoLog("  Files: %d (%d images, %d videos)", summary.Files, summary.Images, summary.Videos)
	util.InfoLog("  Comparisons: %d (%.2f per file)", summary.TotalComparisons, summary.MeanComparisons)
	if summary.Unranked > 0 {
		util.InfoLog("  Never compared: %d", summary.Unranked)
	}

	return nil
}
