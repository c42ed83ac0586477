package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/franz/media-ranker/internal/library"
	"github.com/franz/media-ranker/internal/rank"
	"github.com/franz/media-ranker/internal/util"
	"github.com/spf13/cobra"
)

var compareCmd = &cobra.Command{
	Use:   "compare",
	Short: "Rank files interactively, one pair at a time",
	Long: `Show pairs of files and record which one is better.

Answers:
  a / 1     left file wins
  b / 2     right file wins
  t / =     tie
  w         both are good
  l         both are bad
  s         skip this pair
  q         quit

Pairs are drawn from files at or above the comparison threshold, favoring
files near the 30th percentile. Every answer is saved immediately.`,
	RunE: runCompare,
}

var outcomeCmd = &cobra.Command{
	Use:   "outcome <id-a> <id-b> <a|b|tie|both|neither>",
	Short: "Record the result of a single comparison",
	Args:  cobra.ExactArgs(3),
	RunE:  runOutcome,
}

var nextCmd = &cobra.Command{
	Use:   "next",
	Short: "Print the next pair to compare",
	RunE:  runNext,
}

func init() {
	rootCmd.AddCommand(compareCmd)
	rootCmd.AddCommand(outcomeCmd)
	rootCmd.AddCommand(nextCmd)

	compareCmd.Flags().Int("rounds", 0, "Stop after this many answers (0 = until quit)")
	compareCmd.Flags().Bool("no-sync", false, "Skip the folder sync before comparing")
}

// nextPair syncs the folder and draws a pair, so files removed since the
// last run are never offered
func (s *session) nextPair() (string, string, error) {
	if err := s.sync(); err != nil {
		return "", "", err
	}
	return s.lib.NextPair()
}

// recordOutcome syncs the folder and scores a single comparison
func (s *session) recordOutcome(idA, idB string, outcome rank.Outcome) (rank.Result, error) {
	if err := s.sync(); err != nil {
		return rank.Result{}, err
	}
	return s.lib.ReportOutcome(idA, idB, outcome)
}

func runCompare(cmd *cobra.Command, args []string) error {
	rounds, _ := cmd.Flags().GetInt("rounds")
	noSync, _ := cmd.Flags().GetBool("no-sync")

	s, err := openSession(sessionOptions{})
	if err != nil {
		return err
	}
	defer s.Close()

	if !noSync {
		if err := s.sync(); err != nil {
			return err
		}
	}

	answered, err := compareLoop(s.lib, os.Stdin, os.Stdout, rounds)
	util.InfoLog("")
	util.SuccessLog("Recorded %d comparisons", answered)
	if errors.Is(err, rank.ErrInsufficient) {
		util.WarnLog("Fewer than two files are eligible for comparison")
		printRanked(os.Stdout, s.lib.Ranked(library.Ascending, 20, s.cfg.MaskThreshold))
		return nil
	}
	return err
}

// compareLoop prompts for pairs until quit, EOF or the round limit. It
// returns the number of recorded outcomes.
func compareLoop(lib *library.Library, in io.Reader, out io.Writer, rounds int) (int, error) {
	scanner := bufio.NewScanner(in)
	answered := 0

	for rounds <= 0 || answered < rounds {
		a, b, err := lib.NextPair()
		if err != nil {
			return answered, err
		}

		fmt.Fprintln(out)
		fmt.Fprintf(out, "  [a] %s  (q=%.1f, n=%d)\n", a, lib.Quantile(a), lib.Comparisons(a))
		fmt.Fprintf(out, "  [b] %s  (q=%.1f, n=%d)\n", b, lib.Quantile(b), lib.Comparisons(b))

	prompt:
		for {
			fmt.Fprint(out, "Which is better? [a/b/t/w/l/s/q] ")
			if !scanner.Scan() {
				return answered, scanner.Err()
			}

			answer := strings.TrimSpace(scanner.Text())
			switch strings.ToLower(answer) {
			case "q", "quit":
				return answered, nil
			case "s", "skip", "":
				break prompt
			}

			outcome, err := rank.ParseOutcome(answer)
			if err != nil {
				fmt.Fprintf(out, "  %v\n", err)
				continue
			}

			res, err := lib.ReportOutcome(a, b, outcome)
			if err != nil {
				return answered, err
			}
			answered++
			fmt.Fprintf(out, "  %s: %.1f -> %.1f, %s: %.1f -> %.1f\n",
				a, rank.Quantile(res.A.SkillBefore), rank.Quantile(res.A.SkillAfter),
				b, rank.Quantile(res.B.SkillBefore), rank.Quantile(res.B.SkillAfter))
			break prompt
		}
	}

	return answered, nil
}

func runOutcome(cmd *cobra.Command, args []string) error {
	outcome, err := rank.ParseOutcome(args[2])
	if err != nil {
		return err
	}

	s, err := openSession(sessionOptions{})
	if err != nil {
		return err
	}
	defer s.Close()

	res, err := s.recordOutcome(args[0], args[1], outcome)
	if err != nil {
		return err
	}

	util.SuccessLog("%s: %s", outcome, args[0]+" vs "+args[1])
	util.InfoLog("  %s  skill %.3f -> %.3f  (q=%.1f, n=%d)",
		res.A.ID, res.A.SkillBefore, res.A.SkillAfter, rank.Quantile(res.A.SkillAfter), res.A.Comparisons)
	util.InfoLog("  %s  skill %.3f -> %.3f  (q=%.1f, n=%d)",
		res.B.ID, res.B.SkillBefore, res.B.SkillAfter, rank.Quantile(res.B.SkillAfter), res.B.Comparisons)
	return nil
}

func runNext(cmd *cobra.Command, args []string) error {
	s, err := openSession(sessionOptions{skipJournal: true})
	if err != nil {
		return err
	}
	defer s.Close()

	a, b, err := s.nextPair()
	if err != nil {
		return err
	}

	// Plain stdout so scripts can consume the pair
	fmt.Println(a)
	fmt.Println(b)
	return nil
}
