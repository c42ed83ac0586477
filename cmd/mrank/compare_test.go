package main

import (
	"bytes"
	"errors"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/franz/media-ranker/internal/library"
	"github.com/franz/media-ranker/internal/rank"
)

func newTestLibrary(t *testing.T, names ...string) *library.Library {
	t.Helper()
	root := t.TempDir()
	for _, name := range names {
		if err := os.WriteFile(filepath.Join(root, name), []byte(name), 0644); err != nil {
			t.Fatalf("failed to write %s: %v", name, err)
		}
	}

	lib, err := library.Open(root, library.Options{
		Scan:             testScanOptions(),
		CompareThreshold: 5,
		K0:               rank.DefaultK0,
		Rand:             rand.NewPCG(7, 8),
	})
	if err != nil {
		t.Fatalf("failed to open library: %v", err)
	}
	if _, err := lib.SyncFolder(); err != nil {
		t.Fatalf("failed to sync: %v", err)
	}
	return lib
}

func TestCompareLoop_RecordsAnswersUntilQuit(t *testing.T) {
	lib := newTestLibrary(t, "a.jpg", "b.jpg")
	var out bytes.Buffer

	answered, err := compareLoop(lib, strings.NewReader("a\nnonsense\ntie\ns\nq\n"), &out, 0)
	if err != nil {
		t.Fatalf("compareLoop failed: %v", err)
	}
	if answered != 2 {
		t.Errorf("expected 2 answers, got %d", answered)
	}
	if lib.Comparisons("a.jpg") != 2 || lib.Comparisons("b.jpg") != 2 {
		t.Errorf("expected both files compared twice, got %d and %d",
			lib.Comparisons("a.jpg"), lib.Comparisons("b.jpg"))
	}
	if !strings.Contains(out.String(), "unknown outcome") {
		t.Error("expected the invalid answer to be reported")
	}
}

func TestCompareLoop_StopsAtRoundLimit(t *testing.T) {
	lib := newTestLibrary(t, "a.jpg", "b.jpg", "c.jpg")
	var out bytes.Buffer

	answered, err := compareLoop(lib, strings.NewReader("t\nt\nt\nt\n"), &out, 2)
	if err != nil {
		t.Fatalf("compareLoop failed: %v", err)
	}
	if answered != 2 {
		t.Errorf("expected 2 answers, got %d", answered)
	}
}

func TestCompareLoop_EOF(t *testing.T) {
	lib := newTestLibrary(t, "a.jpg", "b.jpg")

	answered, err := compareLoop(lib, strings.NewReader("b\n"), &bytes.Buffer{}, 0)
	if err != nil {
		t.Fatalf("EOF should end the loop cleanly: %v", err)
	}
	if answered != 1 {
		t.Errorf("expected 1 answer, got %d", answered)
	}
}

func TestCompareLoop_Insufficient(t *testing.T) {
	lib := newTestLibrary(t, "only.jpg")

	_, err := compareLoop(lib, strings.NewReader("a\n"), &bytes.Buffer{}, 0)
	if !errors.Is(err, rank.ErrInsufficient) {
		t.Errorf("expected ErrInsufficient, got %v", err)
	}
}

func TestPrintRanked(t *testing.T) {
	lib := newTestLibrary(t, "a.jpg", "b.mp4")
	if _, err := lib.ReportOutcome("a.jpg", "b.mp4", rank.AWins); err != nil {
		t.Fatalf("ReportOutcome failed: %v", err)
	}

	var out bytes.Buffer
	printRanked(&out, lib.Ranked(library.Descending, 0, 0))

	text := out.String()
	if !strings.Contains(text, "a.jpg") || !strings.Contains(text, "VIDEO") {
		t.Errorf("unexpected table:\n%s", text)
	}
	if strings.Index(text, "a.jpg") > strings.Index(text, "b.mp4") {
		t.Error("descending order should list the winner first")
	}
}

func TestSessionNextPair_SyncsFirst(t *testing.T) {
	lib := newTestLibrary(t, "a.jpg", "b.jpg")
	root := lib.Root()

	// b.jpg disappears and c.jpg arrives after the last sync
	if err := os.Remove(filepath.Join(root, "b.jpg")); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, "c.jpg"), []byte("c"), 0644); err != nil {
		t.Fatal(err)
	}

	s := &session{lib: lib}
	for i := 0; i < 10; i++ {
		a, b, err := s.nextPair()
		if err != nil {
			t.Fatalf("nextPair failed: %v", err)
		}
		if a == "b.jpg" || b == "b.jpg" {
			t.Fatalf("removed file offered: %s vs %s", a, b)
		}
	}
	if _, ok := lib.Record("c.jpg"); !ok {
		t.Error("new file should have a record after nextPair")
	}
}

func TestSessionRecordOutcome_SyncsFirst(t *testing.T) {
	lib := newTestLibrary(t, "a.jpg")
	if err := os.WriteFile(filepath.Join(lib.Root(), "new.jpg"), []byte("n"), 0644); err != nil {
		t.Fatal(err)
	}

	s := &session{lib: lib}
	res, err := s.recordOutcome("a.jpg", "new.jpg", rank.BWins)
	if err != nil {
		t.Fatalf("recordOutcome failed: %v", err)
	}
	if res.B.Comparisons != 1 || lib.Comparisons("new.jpg") != 1 {
		t.Errorf("expected new.jpg to be scored once, got %d", lib.Comparisons("new.jpg"))
	}
}
