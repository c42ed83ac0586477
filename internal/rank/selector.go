package rank

import (
	"errors"
	"math"
	"math/rand/v2"
	"time"

	"github.com/franz/media-ranker/internal/store"
)

// PivotQuantile is the quantile that pair selection concentrates on
const PivotQuantile = 30.0

// ErrInsufficient is returned when fewer items than requested are eligible
var ErrInsufficient = errors.New("not enough eligible items")

// Weight returns the sampling weight for an item with the given quantile.
// It is always strictly positive.
func Weight(quantile float64) float64 {
	return 1 / (math.Abs(quantile-PivotQuantile) + 1)
}

// Selector draws comparison pairs
type Selector struct {
	rng *rand.Rand
}

// NewSelector creates a Selector; a nil source is seeded from the clock
func NewSelector(src rand.Source) *Selector {
	if src == nil {
		seed := uint64(time.Now().UnixNano())
		src = rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)
	}
	return &Selector{rng: rand.New(src)}
}

// Select draws k distinct identifiers from eligible, weighted by Weight and
// without replacement. Duplicates and identifiers without a record are
// ignored. When fewer than k remain, all of them are returned together with
// ErrInsufficient.
func (s *Selector) Select(eligible []string, st *store.Store, k int) ([]string, error) {
	seen := make(map[string]bool, len(eligible))
	pool := make([]string, 0, len(eligible))
	weights := make([]float64, 0, len(eligible))
	for _, id := range eligible {
		if seen[id] {
			continue
		}
		seen[id] = true
		rec, ok := st.Get(id)
		if !ok {
			continue
		}
		pool = append(pool, id)
		weights = append(weights, Weight(Quantile(rec.Skill)))
	}

	if len(pool) < k {
		return pool, ErrInsufficient
	}

	picked := make([]string, 0, k)
	for len(picked) < k {
		total := 0.0
		for _, w := range weights {
			total += w
		}

		i := len(pool) - 1
		r := s.rng.Float64() * total
		for j, w := range weights {
			if r < w {
				i = j
				break
			}
			r -= w
		}

		picked = append(picked, pool[i])
		pool = append(pool[:i], pool[i+1:]...)
		weights = append(weights[:i], weights[i+1:]...)
	}

	return picked, nil
}

// FilterEligible keeps the identifiers whose quantile is at least threshold.
// Identifiers without a record are treated as quantile 50.
func FilterEligible(ids []string, st *store.Store, threshold float64) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		q := 50.0
		if rec, ok := st.Get(id); ok {
			q = Quantile(rec.Skill)
		}
		if q >= threshold {
			out = append(out, id)
		}
	}
	return out
}
