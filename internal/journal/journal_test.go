package journal

import (
	"path/filepath"
	"testing"
	"time"
)

func openTemp(t *testing.T) *Journal {
	t.Helper()
	j, err := Open(filepath.Join(t.TempDir(), FileName))
	if err != nil {
		t.Fatalf("failed to open journal: %v", err)
	}
	t.Cleanup(func() { j.Close() })
	return j
}

func TestOpenAndMigrate(t *testing.T) {
	j := openTemp(t)

	version, err := j.schemaVersion()
	if err != nil {
		t.Fatalf("failed to get schema version: %v", err)
	}
	if version != currentSchemaVersion {
		t.Errorf("expected schema version %d, got %d", currentSchemaVersion, version)
	}

	for _, table := range []string{"comparisons", "renames", "schema_version"} {
		var count int
		err := j.db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&count)
		if err != nil {
			t.Fatalf("failed to query table %s: %v", table, err)
		}
		if count != 1 {
			t.Errorf("expected table %s to exist", table)
		}
	}

	if err := j.CheckIntegrity(); err != nil {
		t.Errorf("integrity check failed: %v", err)
	}
	if j.SessionID() == "" {
		t.Error("expected a session id")
	}
}

func TestReopenKeepsHistory(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)

	j, err := Open(path)
	if err != nil {
		t.Fatalf("failed to open journal: %v", err)
	}
	first := j.SessionID()
	if err := j.RecordComparison(&Comparison{IDA: "a.jpg", IDB: "b.jpg", Outcome: "a_wins"}); err != nil {
		t.Fatalf("RecordComparison failed: %v", err)
	}
	j.Close()

	j, err = Open(path)
	if err != nil {
		t.Fatalf("failed to reopen journal: %v", err)
	}
	defer j.Close()

	if j.SessionID() == first {
		t.Error("expected a new session id after reopening")
	}

	stats, err := j.Stats()
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats.Comparisons != 1 || stats.Sessions != 1 {
		t.Errorf("unexpected stats: %+v", stats)
	}
}

func TestComparisons(t *testing.T) {
	j := openTemp(t)
	base := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	entries := []*Comparison{
		{At: base, IDA: "a.jpg", IDB: "b.jpg", Outcome: "a_wins", SkillAAfter: 1, SkillBAfter: -1},
		{At: base.Add(time.Minute), IDA: "b.jpg", IDB: "c.jpg", Outcome: "tie"},
		{At: base.Add(2 * time.Minute), IDA: "c.jpg", IDB: "a.jpg", Outcome: "both_lose"},
	}
	for _, c := range entries {
		if err := j.RecordComparison(c); err != nil {
			t.Fatalf("RecordComparison failed: %v", err)
		}
		if c.ID == 0 {
			t.Error("expected an assigned id")
		}
	}

	all, err := j.Comparisons("", 0)
	if err != nil {
		t.Fatalf("Comparisons failed: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 comparisons, got %d", len(all))
	}
	if all[0].Outcome != "both_lose" {
		t.Errorf("expected newest first, got %s", all[0].Outcome)
	}
	if !all[2].At.Equal(base) {
		t.Errorf("expected timestamp %v, got %v", base, all[2].At)
	}
	if all[2].SkillAAfter != 1 || all[2].SkillBAfter != -1 {
		t.Errorf("skills not preserved: %+v", all[2])
	}

	forA, err := j.Comparisons("a.jpg", 0)
	if err != nil {
		t.Fatalf("Comparisons failed: %v", err)
	}
	if len(forA) != 2 {
		t.Errorf("expected 2 comparisons for a.jpg, got %d", len(forA))
	}

	limited, err := j.Comparisons("", 1)
	if err != nil {
		t.Fatalf("Comparisons failed: %v", err)
	}
	if len(limited) != 1 {
		t.Errorf("expected 1 comparison, got %d", len(limited))
	}

	stats, err := j.Stats()
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats.Comparisons != 3 || !stats.First.Equal(base) || !stats.Last.Equal(base.Add(2*time.Minute)) {
		t.Errorf("unexpected stats: %+v", stats)
	}
}

func TestStats_Empty(t *testing.T) {
	j := openTemp(t)

	stats, err := j.Stats()
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats.Comparisons != 0 || !stats.First.IsZero() {
		t.Errorf("unexpected stats: %+v", stats)
	}
}

func TestRenames(t *testing.T) {
	j := openTemp(t)

	if err := j.RecordRename("img.jpg", "Q506_img.jpg", "apply_prefix"); err != nil {
		t.Fatalf("RecordRename failed: %v", err)
	}
	if err := j.RecordRename("photo.jpg", "2024/photo.jpg", "legacy_key"); err != nil {
		t.Fatalf("RecordRename failed: %v", err)
	}

	all, err := j.Renames("", 0)
	if err != nil {
		t.Fatalf("Renames failed: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 renames, got %d", len(all))
	}

	forImg, err := j.Renames("Q506_img.jpg", 10)
	if err != nil {
		t.Fatalf("Renames failed: %v", err)
	}
	if len(forImg) != 1 || forImg[0].Action != "apply_prefix" || forImg[0].SessionID != j.SessionID() {
		t.Errorf("unexpected renames: %+v", forImg)
	}
}

func TestSQLiteVersion(t *testing.T) {
	if SQLiteVersion() == "" {
		t.Error("expected a SQLite version")
	}
}
