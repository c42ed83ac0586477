package journal

import (
	"fmt"
	"time"
)

// Rename is one journaled key move
type Rename struct {
	ID        int64
	SessionID string
	At        time.Time
	FromID    string
	ToID      string
	Action    string
}

// RecordRename appends a key move to the current session
func (j *Journal) RecordRename(from, to, action string) error {
	_, err := j.db.Exec(`
		INSERT INTO renames (session_id, at_unix_ms, from_id, to_id, action)
		VALUES (?, ?, ?, ?, ?)
	`, j.session, toMillis(j.now()), from, to, action)
	if err != nil {
		return fmt.Errorf("failed to record rename: %w", err)
	}
	return nil
}

// Renames returns the most recent key moves, newest first. A non-empty id
// restricts the result to moves from or to that identifier.
func (j *Journal) Renames(id string, limit int) ([]*Rename, error) {
	query := `SELECT id, session_id, at_unix_ms, from_id, to_id, action FROM renames`
	var args []interface{}
	if id != "" {
		query += ` WHERE from_id = ? OR to_id = ?`
		args = append(args, id, id)
	}
	query += ` ORDER BY at_unix_ms DESC, id DESC`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := j.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Rename
	for rows.Next() {
		var r Rename
		var at int64
		if err := rows.Scan(&r.ID, &r.SessionID, &at, &r.FromID, &r.ToID, &r.Action); err != nil {
			return nil, err
		}
		r.At = fromMillis(at)
		out = append(out, &r)
	}

	return out, rows.Err()
}
