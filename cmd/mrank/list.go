package main

import (
	"fmt"
	"io"
	"os"

	"github.com/franz/media-ranker/internal/library"
	"github.com/franz/media-ranker/internal/util"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List files by skill",
	Long: `List files ordered by skill with their quantile, comparison count and
media kind. Files below the mask threshold are hidden unless --all is given.`,
	RunE: runList,
}

func init() {
	rootCmd.AddCommand(listCmd)

	listCmd.Flags().String("order", "asc", "Sort order: asc (worst first) or desc (best first)")
	listCmd.Flags().IntP("limit", "n", 20, "Number of rows (0 = all)")
	listCmd.Flags().Bool("all", false, "Include files below the mask threshold")
}

func runList(cmd *cobra.Command, args []string) error {
	orderFlag, _ := cmd.Flags().GetString("order")
	limit, _ := cmd.Flags().GetInt("limit")
	all, _ := cmd.Flags().GetBool("all")

	order, err := library.ParseOrder(orderFlag)
	if err != nil {
		return err
	}

	s, err := openSession(sessionOptions{skipJournal: true})
	if err != nil {
		return err
	}
	defer s.Close()

	mask := s.cfg.MaskThreshold
	if all {
		mask = 0
	}

	printRanked(os.Stdout, s.lib.Ranked(order, limit, mask))
	return nil
}

func printRanked(w io.Writer, entries []library.Entry) {
	rows := make([][]string, 0, len(entries))
	for i, e := range entries {
		rows = append(rows, []string{
			fmt.Sprintf("%d", i+1),
			e.ID,
			fmt.Sprintf("%.3f", e.Skill),
			fmt.Sprintf("%.1f", e.Quantile),
			fmt.Sprintf("%d", e.Comparisons),
			string(e.Kind),
		})
	}

	fmt.Fprintln(w, renderTable(
		[]string{"#", "File", "Skill", "Quantile", "Comparisons", "Kind"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignRight, alignRight, alignRight, alignLeft},
	))
}

type columnAlignment int

const (
	alignLeft columnAlignment = iota
	alignRight
)

func renderTable(headers []string, rows [][]string, aligns []columnAlignment) string {
	columns := len(headers)
	if columns == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	if util.IsTerminal(os.Stdout.Fd()) {
		tw.SetAllowedRowLength(util.GetTerminalWidth())
	}

	header := make(table.Row, columns)
	for i := 0; i < columns; i++ {
		header[i] = headers[i]
	}
	tw.AppendHeader(header)

	for _, row := range rows {
		r := make(table.Row, columns)
		for i := 0; i < columns; i++ {
			if i < len(row) {
				r[i] = row[i]
			} else {
				r[i] = ""
			}
		}
		tw.AppendRow(r)
	}

	columnConfigs := make([]table.ColumnConfig, 0, columns)
	for i := 0; i < columns; i++ {
		align := text.AlignLeft
		if i < len(aligns) && aligns[i] == alignRight {
			align = text.AlignRight
		}
		columnConfigs = append(columnConfigs, table.ColumnConfig{
			Number:      i + 1,
			Align:       align,
			AlignHeader: text.AlignLeft,
		})
	}
	tw.SetColumnConfigs(columnConfigs)

	return tw.Render()
}
