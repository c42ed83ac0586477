package journal

import (
	"fmt"
	"time"
)

// Comparison is one journaled comparison
type Comparison struct {
	ID           int64
	SessionID    string
	At           time.Time
	IDA          string
	IDB          string
	Outcome      string
	SkillABefore float64
	SkillAAfter  float64
	SkillBBefore float64
	SkillBAfter  float64
}

// RecordComparison appends a comparison to the current session
func (j *Journal) RecordComparison(c *Comparison) error {
	if c.At.IsZero() {
		c.At = j.now()
	}
	c.SessionID = j.session

	res, err := j.db.Exec(`
		INSERT INTO comparisons
		(session_id, at_unix_ms, id_a, id_b, outcome, skill_a_before, skill_a_after, skill_b_before, skill_b_after)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, c.SessionID, toMillis(c.At), c.IDA, c.IDB, c.Outcome,
		c.SkillABefore, c.SkillAAfter, c.SkillBBefore, c.SkillBAfter)
	if err != nil {
		return fmt.Errorf("failed to record comparison: %w", err)
	}

	c.ID, _ = res.LastInsertId()
	return nil
}

// Comparisons returns the most recent comparisons, newest first. A non-empty
// id restricts the result to comparisons involving that identifier; limit <= 0
// returns everything.
func (j *Journal) Comparisons(id string, limit int) ([]*Comparison, error) {
	query := `
		SELECT id, session_id, at_unix_ms, id_a, id_b, outcome,
		       skill_a_before, skill_a_after, skill_b_before, skill_b_after
		FROM comparisons`
	var args []interface{}
	if id != "" {
		query += ` WHERE id_a = ? OR id_b = ?`
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

	var out []*Comparison
	for rows.Next() {
		var c Comparison
		var at int64
		if err := rows.Scan(&c.ID, &c.SessionID, &at, &c.IDA, &c.IDB, &c.Outcome,
			&c.SkillABefore, &c.SkillAAfter, &c.SkillBBefore, &c.SkillBAfter); err != nil {
			return nil, err
		}
		c.At = fromMillis(at)
		out = append(out, &c)
	}

	return out, rows.Err()
}

// Stats summarizes the comparison history
type Stats struct {
	Comparisons int
	Sessions    int
	First       time.Time
	Last        time.Time
}

// Stats returns totals over the whole comparison history
func (j *Journal) Stats() (*Stats, error) {
	var s Stats
	var first, last int64
	err := j.db.QueryRow(`
		SELECT COUNT(*), COUNT(DISTINCT session_id),
		       COALESCE(MIN(at_unix_ms), 0), COALESCE(MAX(at_unix_ms), 0)
		FROM comparisons
	`).Scan(&s.Comparisons, &s.Sessions, &first, &last)
	if err != nil {
		return nil, err
	}
	if s.Comparisons > 0 {
		s.First = fromMillis(first)
		s.Last = fromMillis(last)
	}
	return &s, nil
}
