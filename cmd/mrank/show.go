package main

import (
	"fmt"
	"sort"

	"github.com/dustin/go-humanize"
	"github.com/franz/media-ranker/internal/catalog"
	"github.com/franz/media-ranker/internal/media"
	"github.com/franz/media-ranker/internal/rank"
	"github.com/franz/media-ranker/internal/util"
	"github.com/spf13/cobra"
)

var showCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show the score and file details of one file",
	Long: `Display everything known about one file: its stored record, quantile and
canonical prefixed name, size and modification time on disk, and embedded
tags or video properties where the container carries them.

The id is the path relative to the root, with forward slashes.`,
	Args: cobra.ExactArgs(1),
	RunE: runShow,
}

func init() {
	rootCmd.AddCommand(showCmd)

	showCmd.Flags().Int("history", 5, "Number of journaled comparisons to show")
}

func runShow(cmd *cobra.Command, args []string) error {
	historyLimit, _ := cmd.Flags().GetInt("history")
	id := catalog.Normalize(args[0])

	s, err := openSession(sessionOptions{})
	if err != nil {
		return err
	}
	defer s.Close()

	util.InfoLog("=== %s ===", id)

	rec, ok := s.lib.Record(id)
	if !ok {
		util.WarnLog("No record for %s (run 'mrank sync' if the file is new)", id)
	} else {
		util.InfoLog("Skill:        %.4f", rec.Skill)
		util.InfoLog("Quantile:     %.1f", rank.Quantile(rec.Skill))
		util.InfoLog("Comparisons:  %d", rec.Comparisons)
		util.InfoLog("Created:      %s", rec.CreatedDate)
		util.InfoLog("Canonical:    %s", s.lib.CanonicalName(id))

		printTag("Keep", string(rec.Keep))
		printTag("Rating", string(rec.Rating))
		printTag("Tags", string(rec.Tags))
		printTag("Last compared", string(rec.LastCompared))

		extra := make([]string, 0, len(rec.Extra))
		for name := range rec.Extra {
			extra = append(extra, name)
		}
		sort.Strings(extra)
		for _, name := range extra {
			printTag(name, string(rec.Extra[name]))
		}
	}

	info, err := media.Probe(catalog.AbsPath(s.cfg.Root, id))
	if err != nil {
		util.WarnLog("File: %v", err)
	} else {
		util.InfoLog("")
		util.InfoLog("Kind:         %s", info.Kind)
		util.InfoLog("Size:         %s", humanize.Bytes(uint64(info.Size)))
		util.InfoLog("Modified:     %s (%s)", info.ModTime.Format("2006-01-02 15:04"), humanize.Time(info.ModTime))

		if t := info.Tags; t != nil {
			util.InfoLog("Container:    %s %s", t.FileType, t.Format)
			printTag("Title", t.Title)
			printTag("Artist", t.Artist)
			printTag("Album", t.Album)
			printTag("Genre", t.Genre)
			printTag("Comment", t.Comment)
			if t.Year > 0 {
				printTag("Year", fmt.Sprintf("%d", t.Year))
			}
		}

		if v := info.Video; v != nil {
			util.InfoLog("Video:        %s %dx%d, %v", v.Codec, v.Width, v.Height, v.Duration)
		}
	}

	if s.journal != nil && historyLimit > 0 {
		history, err := s.journal.Comparisons(id, historyLimit)
		if err != nil {
			util.WarnLog("Failed to read journal: %v", err)
		} else if len(history) > 0 {
			util.InfoLog("")
			util.InfoLog("Recent comparisons:")
			for _, c := range history {
				util.InfoLog("  %s  %s vs %s: %s", humanize.Time(c.At), c.IDA, c.IDB, c.Outcome)
			}
		}
	}

	return nil
}

func printTag(name, value string) {
	if value != "" {
		util.InfoLog("%-14s %s", name+":", value)
	}
}
