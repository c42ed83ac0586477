package main

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/franz/media-ranker/internal/catalog"
	"github.com/franz/media-ranker/internal/config"
	"github.com/franz/media-ranker/internal/journal"
	"github.com/franz/media-ranker/internal/store"
	"github.com/franz/media-ranker/internal/util"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Run diagnostic checks on the root folder and its score document",
	Long: `Run diagnostic checks to ensure mrank can operate correctly.

This command checks:
- Root folder exists and is writable
- Score document parses
- Journal opens and passes an integrity check
- Records without files and files without records
- Temp documents left behind by an interrupted save
- Optional tools (ffprobe for video details)
- Disk space availability

Nothing is modified.`,
	RunE: runDoctor,
}

func init() {
	rootCmd.AddCommand(doctorCmd)
}

type checkResult struct {
	name    string
	message string
	error   bool
	warning bool
}

func runDoctor(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return err
	}
	util.SetVerbose(cfg.Verbose)
	util.SetQuiet(cfg.Quiet)

	util.InfoLog("=== mrank Doctor - Diagnostics ===")
	util.InfoLog("")

	results := []checkResult{}

	results = append(results, checkFFprobe())
	results = append(results, checkSQLite())

	rootCheck := checkRootDirectory(cfg.Root)
	results = append(results, rootCheck)

	if !rootCheck.error {
		results = append(results, checkDocument(cfg.Root))
		results = append(results, checkJournal(journal.PathFor(cfg.Root)))
		results = append(results, checkAgreement(cfg.Root, cfg.ScanOptions()))
		results = append(results, checkTempFiles(cfg.Root))
		results = append(results, checkDiskSpace(cfg.Root))
	}

	// Print results
	util.InfoLog("")
	util.InfoLog("=== Diagnostic Results ===")
	util.InfoLog("")

	hasErrors := false
	hasWarnings := false

	for _, r := range results {
		symbol := "✓"
		if r.error {
			symbol = "✗"
			hasErrors = true
		} else if r.warning {
			symbol = "⚠"
			hasWarnings = true
		}

		line := fmt.Sprintf("[%s] %s", symbol, r.name)
		if r.message != "" {
			line += fmt.Sprintf(": %s", r.message)
		}

		if r.error {
			util.ErrorLog("%s", line)
		} else if r.warning {
			util.WarnLog("%s", line)
		} else {
			util.SuccessLog("%s", line)
		}
	}

	// Summary
	util.InfoLog("")
	if hasErrors {
		util.ErrorLog("❌ Some critical checks failed. Please resolve errors before running mrank.")
		return fmt.Errorf("diagnostics failed")
	} else if hasWarnings {
		util.WarnLog("⚠️  Some checks produced warnings. Review them before proceeding.")
	} else {
		util.SuccessLog("✅ All checks passed!")
	}

	return nil
}

// checkFFprobe reports the ffprobe version; it is optional
func checkFFprobe() checkResult {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	cmd := exec.CommandContext(ctx, "ffprobe", "-version")
	output, err := cmd.CombinedOutput()

	if err != nil {
		return checkResult{
			name:    "ffprobe (optional)",
			warning: true,
			message: "not found (needed only for video details in 'show')",
		}
	}

	// Parse version from first line
	lines := strings.Split(string(output), "\n")
	version := "unknown"
	if len(lines) > 0 {
		parts := strings.Fields(lines[0])
		if len(parts) >= 3 {
			version = parts[2]
		}
	}

	return checkResult{
		name:    "ffprobe (optional)",
		message: fmt.Sprintf("version %s", version),
	}
}

// checkSQLite verifies the embedded SQLite used by the journal
func checkSQLite() checkResult {
	version := journal.SQLiteVersion()
	if version == "" {
		return checkResult{
			name:    "SQLite",
			error:   true,
			message: "unable to determine version",
		}
	}

	return checkResult{
		name:    "SQLite",
		message: fmt.Sprintf("version %s (built-in)", version),
	}
}

// checkRootDirectory verifies the root is a readable, writable directory
func checkRootDirectory(path string) checkResult {
	if path == "" {
		return checkResult{
			name:    "Root directory",
			error:   true,
			message: "no root specified (use --root/-r, MRANK_ROOT or config)",
		}
	}

	info, err := os.Stat(path)
	if err != nil {
		return checkResult{
			name:    "Root directory",
			error:   true,
			message: fmt.Sprintf("cannot access %s: %v", path, err),
		}
	}

	if !info.IsDir() {
		return checkResult{
			name:    "Root directory",
			error:   true,
			message: fmt.Sprintf("%s is not a directory", path),
		}
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return checkResult{
			name:    "Root directory",
			error:   true,
			message: fmt.Sprintf("cannot read %s: %v", path, err),
		}
	}

	// The document is replaced through a temp file in the root
	testFile := filepath.Join(path, ".mrank_write_test")
	f, err := os.Create(testFile)
	if err != nil {
		return checkResult{
			name:    "Root directory",
			error:   true,
			message: fmt.Sprintf("cannot write to %s: %v", path, err),
		}
	}
	f.Close()
	os.Remove(testFile)

	return checkResult{
		name:    "Root directory",
		message: fmt.Sprintf("%s (%d entries, writable)", path, len(entries)),
	}
}

// checkDocument verifies the score document parses
func checkDocument(root string) checkResult {
	path := filepath.Join(root, store.DocumentName)

	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return checkResult{
				name:    "Score document",
				message: fmt.Sprintf("%s (will be created on first sync)", path),
			}
		}
		return checkResult{
			name:    "Score document",
			error:   true,
			message: fmt.Sprintf("cannot access %s: %v", path, err),
		}
	}

	st, err := store.Load(root)
	if err != nil {
		return checkResult{
			name:    "Score document",
			error:   true,
			message: err.Error(),
		}
	}

	return checkResult{
		name:    "Score document",
		message: fmt.Sprintf("%s (%s, %d records)", path, humanize.Bytes(uint64(info.Size())), st.Len()),
	}
}

// checkJournal opens an existing journal and runs an integrity check
func checkJournal(path string) checkResult {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return checkResult{
				name:    "Journal",
				message: fmt.Sprintf("%s (will be created on first comparison)", path),
			}
		}
		return checkResult{
			name:    "Journal",
			error:   true,
			message: fmt.Sprintf("cannot access %s: %v", path, err),
		}
	}

	j, err := journal.Open(path)
	if err != nil {
		return checkResult{
			name:    "Journal",
			error:   true,
			message: fmt.Sprintf("cannot open %s: %v", path, err),
		}
	}
	defer j.Close()

	if err := j.CheckIntegrity(); err != nil {
		return checkResult{
			name:    "Journal",
			error:   true,
			message: err.Error(),
		}
	}

	stats, err := j.Stats()
	if err != nil {
		return checkResult{
			name:    "Journal",
			warning: true,
			message: fmt.Sprintf("cannot read stats: %v", err),
		}
	}

	return checkResult{
		name:    "Journal",
		message: fmt.Sprintf("%s (%d comparisons, %d sessions)", path, stats.Comparisons, stats.Sessions),
	}
}

// checkAgreement compares the document keys with the files on disk
func checkAgreement(root string, opts catalog.Options) checkResult {
	st, err := store.Load(root)
	if err != nil {
		return checkResult{
			name:    "Store/disk agreement",
			warning: true,
			message: "skipped (document unreadable)",
		}
	}

	snap, err := catalog.Scan(root, opts)
	if err != nil {
		return checkResult{
			name:    "Store/disk agreement",
			error:   true,
			message: fmt.Sprintf("scan failed: %v", err),
		}
	}

	missing := 0
	for _, id := range st.Keys() {
		if !snap.Has(id) {
			missing++
		}
	}
	untracked := 0
	for _, id := range snap.Sorted() {
		if !st.Has(id) {
			untracked++
		}
	}

	if missing > 0 || untracked > 0 {
		return checkResult{
			name:    "Store/disk agreement",
			warning: true,
			message: fmt.Sprintf("%d records without files, %d files without records (run 'mrank sync')", missing, untracked),
		}
	}

	return checkResult{
		name:    "Store/disk agreement",
		message: fmt.Sprintf("%d files, all tracked", snap.Len()),
	}
}

// checkTempFiles looks for documents left behind by an interrupted save
func checkTempFiles(root string) checkResult {
	leftovers, err := store.LeftoverTempFiles(root)
	if err != nil {
		return checkResult{
			name:    "Temp documents",
			warning: true,
			message: fmt.Sprintf("cannot list temp files: %v", err),
		}
	}

	if len(leftovers) > 0 {
		return checkResult{
			name:    "Temp documents",
			warning: true,
			message: fmt.Sprintf("%d left behind by an interrupted save (safe to delete)", len(leftovers)),
		}
	}

	return checkResult{
		name:    "Temp documents",
		message: "none",
	}
}

// checkDiskSpace verifies available disk space
func checkDiskSpace(path string) checkResult {
	var stat syscall.Statfs_t
	if err := syscall.Statfs(path, &stat); err != nil {
		return checkResult{
			name:    "Disk space",
			warning: true,
			message: fmt.Sprintf("cannot determine disk space: %v", err),
		}
	}

	// Available bytes = available blocks * block size
	availBytes := stat.Bavail * uint64(stat.Bsize)

	// The document needs room for one full copy during a save
	if availBytes < 100*humanize.MByte {
		return checkResult{
			name:    "Disk space",
			warning: true,
			message: fmt.Sprintf("%s available (low space!)", humanize.Bytes(availBytes)),
		}
	}

	return checkResult{
		name:    "Disk space",
		message: fmt.Sprintf("%s available", humanize.Bytes(availBytes)),
	}
}
