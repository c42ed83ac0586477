package main

import (
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/franz/media-ranker/internal/catalog"
	"github.com/franz/media-ranker/internal/util"
	"github.com/spf13/cobra"
)

var historyCmd = &cobra.Command{
	Use:   "history [id]",
	Short: "List journaled comparisons or renames",
	Long: `List the comparison history kept in the journal, newest first. With an id,
only comparisons involving that file are shown. --renames lists prefix
renames and reconciliation key moves instead.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runHistory,
}

func init() {
	rootCmd.AddCommand(historyCmd)

	historyCmd.Flags().IntP("limit", "n", 20, "Number of entries (0 = all)")
	historyCmd.Flags().Bool("renames", false, "Show renames instead of comparisons")
}

func runHistory(cmd *cobra.Command, args []string) error {
	limit, _ := cmd.Flags().GetInt("limit")
	renames, _ := cmd.Flags().GetBool("renames")

	id := ""
	if len(args) == 1 {
		id = catalog.Normalize(args[0])
	}

	s, err := openSession(sessionOptions{})
	if err != nil {
		return err
	}
	defer s.Close()

	if s.journal == nil {
		return fmt.Errorf("journal is not available")
	}

	if renames {
		entries, err := s.journal.Renames(id, limit)
		if err != nil {
			return fmt.Errorf("failed to read renames: %w", err)
		}
		if len(entries) == 0 {
			util.InfoLog("No renames journaled")
			return nil
		}

		rows := make([][]string, 0, len(entries))
		for _, r := range entries {
			rows = append(rows, []string{
				r.At.Format("2006-01-02 15:04:05"),
				r.Action,
				r.FromID,
				r.ToID,
			})
		}
		fmt.Fprintln(os.Stdout, renderTable(
			[]string{"When", "Action", "From", "To"},
			rows,
			nil,
		))
		return nil
	}

	entries, err := s.journal.Comparisons(id, limit)
	if err != nil {
		return fmt.Errorf("failed to read comparisons: %w", err)
	}
	if len(entries) == 0 {
		util.InfoLog("No comparisons journaled")
		return nil
	}

	rows := make([][]string, 0, len(entries))
	for _, c := range entries {
		rows = append(rows, []string{
			humanize.Time(c.At),
			c.IDA,
			c.IDB,
			c.Outcome,
			fmt.Sprintf("%+.3f", c.SkillAAfter-c.SkillABefore),
			fmt.Sprintf("%+.3f", c.SkillBAfter-c.SkillBBefore),
		})
	}
	fmt.Fprintln(os.Stdout, renderTable(
		[]string{"When", "A", "B", "Outcome", "ΔA", "ΔB"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignRight},
	))

	if stats, err := s.journal.Stats(); err == nil && stats.Comparisons > 0 {
		util.InfoLog("%s comparisons over %d sessions since %s",
			humanize.Comma(int64(stats.Comparisons)), stats.Sessions, stats.First.Format("2006-01-02"))
	}

	return nil
}
