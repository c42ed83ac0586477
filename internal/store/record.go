package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"time"
)

// CreatedDateLayout matches the timestamps written by earlier versions of
// the document (ISO-8601, microseconds, no zone)
const CreatedDateLayout = "2006-01-02T15:04:05.000000"

// Record is the persisted metadata for one identifier.
//
// Keep, Rating, Tags and LastCompared are auxiliary fields owned by the
// display layer. They are carried as raw JSON and never interpreted here; a
// nil value means the field was absent from the document. Extra holds any
// other fields found in the document so they survive a load/save cycle.
type Record struct {
	Skill       float64
	Comparisons int
	CreatedDate string

	Keep         json.RawMessage
	Rating       json.RawMessage
	Tags         json.RawMessage
	LastCompared json.RawMessage

	Extra map[string]json.RawMessage
}

// NewRecord returns the default record for a newly discovered file
func NewRecord(now time.Time) Record {
	return Record{
		CreatedDate:  now.Format(CreatedDateLayout),
		Keep:         json.RawMessage("null"),
		Rating:       json.RawMessage("null"),
		Tags:         json.RawMessage("[]"),
		LastCompared: json.RawMessage("null"),
	}
}

var knownFields = map[string]bool{
	"skill":         true,
	"comparisons":   true,
	"created_date":  true,
	"keep":          true,
	"rating":        true,
	"tags":          true,
	"last_compared": true,
}

// MarshalJSON writes the record with the legacy field order followed by any
// extra fields in key order
func (r Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')

	first := true
	field := func(name string, value []byte) {
		if !first {
			buf.WriteByte(',')
		}
		first = false
		key, _ := json.Marshal(name)
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(value)
	}

	for _, aux := range []struct {
		name  string
		value json.RawMessage
	}{
		{"keep", r.Keep},
		{"rating", r.Rating},
		{"tags", r.Tags},
		{"last_compared", r.LastCompared},
	} {
		if aux.value != nil {
			field(aux.name, aux.value)
		}
	}

	if r.CreatedDate != "" {
		v, err := json.Marshal(r.CreatedDate)
		if err != nil {
			return nil, err
		}
		field("created_date", v)
	}

	if math.IsNaN(r.Skill) || math.IsInf(r.Skill, 0) {
		return nil, fmt.Errorf("skill is not a finite number: %v", r.Skill)
	}
	skill, err := json.Marshal(r.Skill)
	if err != nil {
		return nil, err
	}
	field("skill", skill)
	field("comparisons", []byte(fmt.Sprintf("%d", r.Comparisons)))

	extraKeys := make([]string, 0, len(r.Extra))
	for k := range r.Extra {
		extraKeys = append(extraKeys, k)
	}
	sort.Strings(extraKeys)
	for _, k := range extraKeys {
		field(k, r.Extra[k])
	}

	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads a record, keeping auxiliary and unknown fields verbatim
func (r *Record) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw == nil {
		return fmt.Errorf("record is null")
	}

	var out Record

	if v, ok := raw["skill"]; ok && !isNull(v) {
		if err := json.Unmarshal(v, &out.Skill); err != nil {
			return fmt.Errorf("skill: %w", err)
		}
	}

	if v, ok := raw["comparisons"]; ok && !isNull(v) {
		var n float64
		if err := json.Unmarshal(v, &n); err != nil {
			return fmt.Errorf("comparisons: %w", err)
		}
		if n < 0 || n != math.Trunc(n) {
			return fmt.Errorf("comparisons must be a non-negative integer, got %v", n)
		}
		out.Comparisons = int(n)
	}

	if v, ok := raw["created_date"]; ok && !isNull(v) {
		if err := json.Unmarshal(v, &out.CreatedDate); err != nil {
			return fmt.Errorf("created_date: %w", err)
		}
	}

	var err error
	if out.Keep, err = compactField(raw, "keep"); err != nil {
		return err
	}
	if out.Rating, err = compactField(raw, "rating"); err != nil {
		return err
	}
	if out.Tags, err = compactField(raw, "tags"); err != nil {
		return err
	}
	if out.LastCompared, err = compactField(raw, "last_compared"); err != nil {
		return err
	}

	for k := range raw {
		if knownFields[k] {
			continue
		}
		v, err := compactField(raw, k)
		if err != nil {
			return err
		}
		if out.Extra == nil {
			out.Extra = make(map[string]json.RawMessage)
		}
		out.Extra[k] = v
	}

	*r = out
	return nil
}

// Equal reports whether two records carry the same payload
func (r Record) Equal(other Record) bool {
	if r.Skill != other.Skill || r.Comparisons != other.Comparisons || r.CreatedDate != other.CreatedDate {
		return false
	}
	if !rawEqual(r.Keep, other.Keep) || !rawEqual(r.Rating, other.Rating) ||
		!rawEqual(r.Tags, other.Tags) || !rawEqual(r.LastCompared, other.LastCompared) {
		return false
	}
	if len(r.Extra) != len(other.Extra) {
		return false
	}
	for k, v := range r.Extra {
		ov, ok := other.Extra[k]
		if !ok || !rawEqual(v, ov) {
			return false
		}
	}
	return true
}

func compactField(raw map[string]json.RawMessage, name string) (json.RawMessage, error) {
	v, ok := raw[name]
	if !ok {
		return nil, nil
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, v); err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return json.RawMessage(buf.Bytes()), nil
}

func rawEqual(a, b json.RawMessage) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return bytes.Equal(a, b)
}

func isNull(v json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(v), []byte("null"))
}
