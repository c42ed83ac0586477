package rank

import (
	"errors"
	"math"
	"testing"

	"github.com/franz/media-ranker/internal/store"
	"github.com/franz/media-ranker/internal/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T, records map[string]store.Record) *store.Store {
	t.Helper()
	st := store.New(t.TempDir())
	for id, r := range records {
		st.Put(id, r)
	}
	return st
}

func TestQuantile(t *testing.T) {
	assert.Equal(t, 50.0, Quantile(0))

	prev := Quantile(-30)
	assert.Greater(t, prev, 0.0)
	for s := -29.5; s <= 30; s += 0.5 {
		q := Quantile(s)
		assert.Greater(t, q, prev, "quantile must increase at skill %v", s)
		assert.Greater(t, q, 0.0)
		assert.Less(t, q, 100.0)
		prev = q
	}
}

func TestUpdate_ScenarioAWinsFromZero(t *testing.T) {
	st := newStore(t, map[string]store.Record{
		"a.jpg": {},
		"b.jpg": {},
	})

	res, err := NewEngine(2).Update(st, "a.jpg", "b.jpg", AWins)
	require.NoError(t, err)

	a, _ := st.Get("a.jpg")
	b, _ := st.Get("b.jpg")
	assert.InDelta(t, 1.0, a.Skill, 1e-12)
	assert.InDelta(t, -1.0, b.Skill, 1e-12)
	assert.Equal(t, 1, a.Comparisons)
	assert.Equal(t, 1, b.Comparisons)
	assert.Equal(t, 0.0, res.A.SkillBefore)
	assert.InDelta(t, 1.0, res.A.SkillAfter, 1e-12)

	// Persisted after the update
	loaded, err := store.Load(st.Root())
	require.NoError(t, err)
	la, _ := loaded.Get("a.jpg")
	assert.InDelta(t, 1.0, la.Skill, 1e-12)
}

func TestUpdate_CountsAndIsolation(t *testing.T) {
	for _, outcome := range Outcomes {
		t.Run(outcome.String(), func(t *testing.T) {
			st := newStore(t, map[string]store.Record{
				"a.jpg": {Skill: 0.3, Comparisons: 4},
				"b.jpg": {Skill: -1.2, Comparisons: 0},
				"c.jpg": {Skill: 2.0, Comparisons: 9},
			})
			before, _ := st.Get("c.jpg")

			_, err := NewEngine(DefaultK0).Update(st, "a.jpg", "b.jpg", outcome)
			require.NoError(t, err)

			a, _ := st.Get("a.jpg")
			b, _ := st.Get("b.jpg")
			c, _ := st.Get("c.jpg")
			assert.Equal(t, 5, a.Comparisons)
			assert.Equal(t, 1, b.Comparisons)
			assert.True(t, before.Equal(c), "bystander record changed")
		})
	}
}

func TestUpdate_MirrorSymmetryAroundTie(t *testing.T) {
	start := map[string]store.Record{
		"a.jpg": {Skill: 0.8, Comparisons: 3},
		"b.jpg": {Skill: -0.4, Comparisons: 1},
	}
	delta := func(outcome Outcome) (float64, float64) {
		st := newStore(t, start)
		res, err := NewEngine(2).Update(st, "a.jpg", "b.jpg", outcome)
		require.NoError(t, err)
		return res.A.SkillAfter - res.A.SkillBefore, res.B.SkillAfter - res.B.SkillBefore
	}

	tieA, tieB := delta(Tie)
	winA, winB := delta(AWins)
	loseA, loseB := delta(BWins)

	assert.InDelta(t, winA-tieA, -(loseA - tieA), 1e-12)
	assert.InDelta(t, winB-tieB, -(loseB - tieB), 1e-12)
	assert.Greater(t, winA, loseA)
	assert.Less(t, winB, loseB)
}

func TestUpdate_BothWinBothLoseAsymmetry(t *testing.T) {
	st := newStore(t, map[string]store.Record{"a.jpg": {}, "b.jpg": {}})
	_, err := NewEngine(2).Update(st, "a.jpg", "b.jpg", BothWin)
	require.NoError(t, err)

	a, _ := st.Get("a.jpg")
	b, _ := st.Get("b.jpg")
	assert.InDelta(t, 1.0, a.Skill, 1e-12)
	assert.InDelta(t, 1.0, b.Skill, 1e-12)

	_, err = NewEngine(2).Update(st, "a.jpg", "b.jpg", BothLose)
	require.NoError(t, err)
	a, _ = st.Get("a.jpg")
	k := 2 / math.Sqrt(2)
	assert.InDelta(t, 1.0-k*0.5, a.Skill, 1e-12)
}

func TestUpdate_LearningRateDecays(t *testing.T) {
	assert.Equal(t, 2.0, LearningRate(2, 0))
	assert.InDelta(t, 1.0, LearningRate(2, 3), 1e-12)
	assert.Less(t, LearningRate(2, 100), LearningRate(2, 99))
}

func TestUpdate_Errors(t *testing.T) {
	st := newStore(t, map[string]store.Record{"a.jpg": {Skill: 0.5}})

	_, err := NewEngine(2).Update(st, "a.jpg", "missing.jpg", AWins)
	assert.True(t, errors.Is(err, util.ErrNotFound))

	_, err = NewEngine(2).Update(st, "a.jpg", "a.jpg", AWins)
	assert.True(t, errors.Is(err, ErrSamePair))

	_, err = NewEngine(2).Update(st, "a.jpg", "a.jpg", Outcome(42))
	assert.True(t, errors.Is(err, ErrUnknownOutcome))

	a, _ := st.Get("a.jpg")
	assert.Equal(t, 0.5, a.Skill)
	assert.Equal(t, 0, a.Comparisons)
}

func TestParseOutcome(t *testing.T) {
	tests := map[string]Outcome{
		"a":         AWins,
		"LEFT":      AWins,
		"right":     BWins,
		" tie ":     Tie,
		"both":      BothWin,
		"both-win":  BothWin,
		"neither":   BothLose,
		"both_lose": BothLose,
	}
	for in, want := range tests {
		got, err := ParseOutcome(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseOutcome("maybe")
	assert.True(t, errors.Is(err, ErrUnknownOutcome))

	for _, o := range Outcomes {
		parsed, err := ParseOutcome(o.String())
		require.NoError(t, err)
		assert.Equal(t, o, parsed)
	}
}
