// Package rename computes quantile-prefixed display names and performs the
// on-disk renames that keep store keys and files in step.
package rename

import (
	"fmt"
	"strconv"

	"github.com/franz/media-ranker/internal/catalog"
	"github.com/franz/media-ranker/internal/rank"
	"github.com/franz/media-ranker/internal/store"
)

// prefixLen is len("Q###_")
const prefixLen = 5

// MaxCode is the largest prefix code; quantiles stay below 100
const MaxCode = 999

// ParsePrefix splits a ranking prefix of the form Q###_ off name.
// ok is false when name carries no such prefix, in which case base == name.
func ParsePrefix(name string) (code int, base string, ok bool) {
	if len(name) < prefixLen || name[0] != 'Q' || name[4] != '_' {
		return 0, name, false
	}
	for i := 1; i <= 3; i++ {
		if name[i] < '0' || name[i] > '9' {
			return 0, name, false
		}
	}
	code, err := strconv.Atoi(name[1:4])
	if err != nil {
		return 0, name, false
	}
	return code, name[prefixLen:], true
}

// FormatPrefix prepends the Q###_ prefix for code to base.
// Codes are clamped to [0, MaxCode].
func FormatPrefix(code int, base string) string {
	if code < 0 {
		code = 0
	}
	if code > MaxCode {
		code = MaxCode
	}
	return fmt.Sprintf("Q%03d_%s", code, base)
}

// StripPrefix returns name without its ranking prefix
func StripPrefix(name string) string {
	_, base, _ := ParsePrefix(name)
	return base
}

// QuantileCode scales a quantile by ten and truncates: 50.6 -> 506
func QuantileCode(quantile float64) int {
	return int(quantile * 10)
}

// CanonicalName returns the basename of id carrying the prefix for its
// current quantile. Identifiers without a record use quantile 50.
func CanonicalName(id string, st *store.Store) string {
	q := 50.0
	if rec, ok := st.Get(id); ok {
		q = rank.Quantile(rec.Skill)
	}
	return FormatPrefix(QuantileCode(q), StripPrefix(catalog.Base(id)))
}

// CanonicalID returns id with its basename replaced by CanonicalName
func CanonicalID(id string, st *store.Store) string {
	return catalog.Join(catalog.Dir(id), CanonicalName(id, st))
}

// StrippedID returns id with any ranking prefix removed from its basename
func StrippedID(id string) string {
	return catalog.Join(catalog.Dir(id), StripPrefix(catalog.Base(id)))
}
