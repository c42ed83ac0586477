package report

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

// HistogramBuckets is the number of quantile buckets in the report
const HistogramBuckets = 10

// RankedItem is one file as it appears in the report
type RankedItem struct {
	ID          string
	Skill       float64
	Quantile    float64
	Comparisons int
	Kind        string
}

// Activity is one line of recent journal activity
type Activity struct {
	At          time.Time
	Description string
}

// SummaryReport represents a complete ranking report
type SummaryReport struct {
	GeneratedAt time.Time

	// Overview
	Files            int
	Images           int
	Videos           int
	Unranked         int // files never compared
	TotalComparisons int // resolved comparisons, each counted once
	MeanComparisons  float64
	Masked           int // files below the mask threshold
	MaskThreshold    float64

	Histogram [HistogramBuckets]int

	Top    []RankedItem // highest skill first
	Bottom []RankedItem // lowest skill first

	// Journal
	JournalComparisons int
	JournalSessions    int
	LastComparison     time.Time
	Recent             []Activity

	// Metadata
	RootPath     string
	DocumentPath string
	JournalPath  string
	EventLogPath string
}

// BuildSummary computes the overview, histogram and top/bottom lists from
// items. topN bounds both lists.
func BuildSummary(items []RankedItem, topN int, maskThreshold float64) *SummaryReport {
	r := &SummaryReport{
		GeneratedAt:   time.Now(),
		Files:         len(items),
		MaskThreshold: maskThreshold,
	}

	sorted := make([]RankedItem, len(items))
	copy(sorted, items)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Skill != sorted[j].Skill {
			return sorted[i].Skill < sorted[j].Skill
		}
		return sorted[i].ID < sorted[j].ID
	})

	participations := 0
	for _, it := range sorted {
		switch it.Kind {
		case "IMAGE":
			r.Images++
		case "VIDEO":
			r.Videos++
		}
		if it.Comparisons == 0 {
			r.Unranked++
		}
		if maskThreshold > 0 && it.Quantile < maskThreshold {
			r.Masked++
		}
		participations += it.Comparisons
		r.Histogram[bucketOf(it.Quantile)]++
	}

	// Every comparison adds one to both participants
	r.TotalComparisons = participations / 2
	if len(sorted) > 0 {
		r.MeanComparisons = float64(participations) / float64(len(sorted))
	}

	n := topN
	if n <= 0 || n > len(sorted) {
		n = len(sorted)
	}
	r.Bottom = append([]RankedItem(nil), sorted[:n]...)
	for i := len(sorted) - 1; i >= len(sorted)-n; i-- {
		r.Top = append(r.Top, sorted[i])
	}

	return r
}

func bucketOf(quantile float64) int {
	b := int(quantile / (100 / HistogramBuckets))
	if b < 0 {
		return 0
	}
	if b >= HistogramBuckets {
		return HistogramBuckets - 1
	}
	return b
}

// WriteMarkdownReport writes the summary report as Markdown
func WriteMarkdownReport(report *SummaryReport, outputPath string) error {
	dir := filepath.Dir(outputPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	var md strings.Builder

	md.WriteString("# Media Ranking Report\n\n")
	md.WriteString(fmt.Sprintf("**Generated:** %s\n\n", report.GeneratedAt.Format("2006-01-02 15:04:05")))

	if report.RootPath != "" {
		md.WriteString(fmt.Sprintf("**Root:** `%s`\n\n", report.RootPath))
	}
	if report.DocumentPath != "" {
		md.WriteString(fmt.Sprintf("**Metadata:** `%s`\n\n", report.DocumentPath))
	}
	if report.JournalPath != "" {
		md.WriteString(fmt.Sprintf("**Journal:** `%s`\n\n", report.JournalPath))
	}
	if report.EventLogPath != "" {
		md.WriteString(fmt.Sprintf("**Event Log:** `%s`\n\n", report.EventLogPath))
	}

	md.WriteString("---\n\n")

	md.WriteString("## 📊 Overview\n\n")
	md.WriteString("| Metric | Value |\n")
	md.WriteString("|--------|-------|\n")
	md.WriteString(fmt.Sprintf("| Files | %s |\n", humanize.Comma(int64(report.Files))))
	md.WriteString(fmt.Sprintf("| Images | %s |\n", humanize.Comma(int64(report.Images))))
	md.WriteString(fmt.Sprintf("| Videos | %s |\n", humanize.Comma(int64(report.Videos))))
	md.WriteString(fmt.Sprintf("| Comparisons | %s |\n", humanize.Comma(int64(report.TotalComparisons))))
	md.WriteString(fmt.Sprintf("| Mean Comparisons per File | %.2f |\n", report.MeanComparisons))
	md.WriteString(fmt.Sprintf("| Never Compared | %s |\n", humanize.Comma(int64(report.Unranked))))
	if report.MaskThreshold > 0 {
		md.WriteString(fmt.Sprintf("| Below Quantile %.0f | %s |\n", report.MaskThreshold, humanize.Comma(int64(report.Masked))))
	}
	md.WriteString("\n")

	if report.Files > 0 {
		md.WriteString("## 📈 Quantile Distribution\n\n")
		md.WriteString("| Quantile | Files | |\n")
		md.WriteString("|----------|-------|---|\n")
		width := 100 / HistogramBuckets
		for i, count := range report.Histogram {
			bar := strings.Repeat("█", scaleBar(count, report.Files, 30))
			md.WriteString(fmt.Sprintf("| %d–%d | %d | %s |\n", i*width, (i+1)*width, count, bar))
		}
		md.WriteString("\n")
	}

	if len(report.Top) > 0 {
		md.WriteString(fmt.Sprintf("## 🏆 Top %d\n\n", len(report.Top)))
		writeItems(&md, report.Top)
	}

	if len(report.Bottom) > 0 {
		md.WriteString(fmt.Sprintf("## 🔻 Bottom %d\n\n", len(report.Bottom)))
		writeItems(&md, report.Bottom)
	}

	if report.JournalComparisons > 0 || len(report.Recent) > 0 {
		md.WriteString("## 🕑 Recent Activity\n\n")
		md.WriteString(fmt.Sprintf("%s comparisons journaled over %d sessions",
			humanize.Comma(int64(report.JournalComparisons)), report.JournalSessions))
		if !report.LastComparison.IsZero() {
			md.WriteString(fmt.Sprintf(", last %s", humanize.Time(report.LastComparison)))
		}
		md.WriteString(".\n\n")

		for _, a := range report.Recent {
			md.WriteString(fmt.Sprintf("- %s: %s\n", a.At.Format("2006-01-02 15:04"), a.Description))
		}
		md.WriteString("\n")
	}

	md.WriteString("---\n\n")
	md.WriteString("*Generated by mrank*\n")

	if err := os.WriteFile(outputPath, []byte(md.String()), 0644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}

	return nil
}

func writeItems(md *strings.Builder, items []RankedItem) {
	md.WriteString("| # | File | Kind | Skill | Quantile | Comparisons |\n")
	md.WriteString("|---|------|------|-------|----------|-------------|\n")
	for i, it := range items {
		md.WriteString(fmt.Sprintf("| %d | `%s` | %s | %.3f | %.1f | %d |\n",
			i+1, truncatePath(it.ID, 60), it.Kind, it.Skill, it.Quantile, it.Comparisons))
	}
	md.WriteString("\n")
}

// scaleBar maps count out of total onto at most width characters
func scaleBar(count, total, width int) int {
	if total == 0 || count == 0 {
		return 0
	}
	n := count * width / total
	if n == 0 {
		n = 1
	}
	return n
}

// truncatePath truncates a file path to a maximum length
func truncatePath(path string, maxLen int) string {
	if len(path) <= maxLen {
		return path
	}
	// Truncate from the middle, keeping start and end
	start := maxLen/2 - 2
	end := len(path) - (maxLen/2 - 2)
	return path[:start] + "..." + path[end:]
}
