package journal

// Schema v1 - comparison and rename history
const schemaV1 = `
-- Schema version tracking
CREATE TABLE IF NOT EXISTS schema_version (
  version INTEGER PRIMARY KEY,
  applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

-- One row per resolved comparison
CREATE TABLE IF NOT EXISTS comparisons (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  session_id TEXT NOT NULL,
  at_unix_ms INTEGER NOT NULL,
  id_a TEXT NOT NULL,
  id_b TEXT NOT NULL,
  outcome TEXT NOT NULL,
  skill_a_before REAL NOT NULL,
  skill_a_after REAL NOT NULL,
  skill_b_before REAL NOT NULL,
  skill_b_after REAL NOT NULL
);

-- Prefix renames and reconciliation key moves
CREATE TABLE IF NOT EXISTS renames (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  session_id TEXT NOT NULL,
  at_unix_ms INTEGER NOT NULL,
  from_id TEXT NOT NULL,
  to_id TEXT NOT NULL,
  action TEXT NOT NULL
);
`

// Schema v2 - lookup indexes for per-item history
const schemaV2 = `
CREATE INDEX IF NOT EXISTS idx_comparisons_id_a ON comparisons(id_a);
CREATE INDEX IF NOT EXISTS idx_comparisons_id_b ON comparisons(id_b);
CREATE INDEX IF NOT EXISTS idx_comparisons_at ON comparisons(at_unix_ms);
CREATE INDEX IF NOT EXISTS idx_renames_to_id ON renames(to_id);
CREATE INDEX IF NOT EXISTS idx_renames_from_id ON renames(from_id);
`
