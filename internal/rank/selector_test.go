package rank

import (
	"errors"
	"math/rand/v2"
	"testing"

	"github.com/franz/media-ranker/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWeight(t *testing.T) {
	assert.Equal(t, 1.0, Weight(30))
	assert.InDelta(t, 1.0/21, Weight(50), 1e-12)
	assert.InDelta(t, 1.0/21, Weight(10), 1e-12)
	assert.Greater(t, Weight(99.9), 0.0)
}

func TestSelect_DistinctPairs(t *testing.T) {
	st := newStore(t, map[string]store.Record{
		"a.jpg": {Skill: -0.8},
		"b.jpg": {Skill: 0},
		"c.jpg": {Skill: 1.5},
		"d.jpg": {Skill: -3},
	})
	sel := NewSelector(rand.NewPCG(1, 2))
	ids := []string{"a.jpg", "b.jpg", "c.jpg", "d.jpg", "a.jpg"}

	for i := 0; i < 500; i++ {
		pair, err := sel.Select(ids, st, 2)
		require.NoError(t, err)
		require.Len(t, pair, 2)
		assert.NotEqual(t, pair[0], pair[1])
	}
}

func TestSelect_FavorsItemsNearPivot(t *testing.T) {
	// quantile(-0.85) ~ 30, quantile(4) ~ 98
	st := newStore(t, map[string]store.Record{
		"near.jpg": {Skill: -0.85},
		"far1.jpg": {Skill: 4},
		"far2.jpg": {Skill: 4},
		"far3.jpg": {Skill: 4},
	})
	sel := NewSelector(rand.NewPCG(7, 7))
	ids := st.Keys()

	hits := 0
	const rounds = 2000
	for i := 0; i < rounds; i++ {
		pick, err := sel.Select(ids, st, 1)
		require.NoError(t, err)
		if pick[0] == "near.jpg" {
			hits++
		}
	}
	// Uniform sampling would give ~25%; weighting gives ~96%.
	assert.Greater(t, hits, rounds*3/4)
}

func TestSelect_Insufficient(t *testing.T) {
	st := newStore(t, map[string]store.Record{"a.jpg": {}})
	sel := NewSelector(rand.NewPCG(1, 1))

	got, err := sel.Select([]string{"a.jpg", "a.jpg", "ghost.jpg"}, st, 2)
	assert.True(t, errors.Is(err, ErrInsufficient))
	assert.Equal(t, []string{"a.jpg"}, got)

	got, err = sel.Select(nil, st, 2)
	assert.True(t, errors.Is(err, ErrInsufficient))
	assert.Empty(t, got)
}

func TestFilterEligible(t *testing.T) {
	st := newStore(t, map[string]store.Record{
		"low.jpg":  {Skill: -4}, // ~1.8
		"mid.jpg":  {Skill: 0},
		"edge.jpg": {Skill: -2.19}, // just above 10
	})
	got := FilterEligible([]string{"low.jpg", "mid.jpg", "edge.jpg", "unknown.jpg"}, st, 10)
	assert.Equal(t, []string{"mid.jpg", "edge.jpg", "unknown.jpg"}, got)
}
