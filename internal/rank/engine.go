// Package rank implements the pairwise skill model: a logistic expected
// score, a per-item learning rate that decays with evidence, and weighted
// pair selection around the decision boundary.
package rank

import (
	"errors"
	"fmt"
	"math"

	"github.com/franz/media-ranker/internal/store"
	"github.com/franz/media-ranker/internal/util"
)

// DefaultK0 is the base learning rate
const DefaultK0 = 2.0

// ErrSamePair is returned when both sides of a comparison are the same item
var ErrSamePair = errors.New("cannot compare an item with itself")

// Quantile maps a skill onto (0, 100); Quantile(0) == 50
func Quantile(skill float64) float64 {
	return 100 / (1 + math.Exp(-skill))
}

// Expected returns the expected score of A against B
func Expected(skillA, skillB float64) float64 {
	return 1 / (1 + math.Exp(-(skillA - skillB)))
}

// LearningRate returns k0 / sqrt(comparisons + 1)
func LearningRate(k0 float64, comparisons int) float64 {
	return k0 / math.Sqrt(float64(comparisons)+1)
}

// Engine applies comparison outcomes to records in a store
type Engine struct {
	K0 float64
}

// NewEngine creates an Engine; a non-positive k0 selects DefaultK0
func NewEngine(k0 float64) *Engine {
	if k0 <= 0 {
		k0 = DefaultK0
	}
	return &Engine{K0: k0}
}

// Side describes one participant of an applied update
type Side struct {
	ID          string
	SkillBefore float64
	SkillAfter  float64
	Comparisons int
}

// Result describes an applied update
type Result struct {
	Outcome Outcome
	A       Side
	B       Side
}

// Update applies outcome to the pair (idA, idB) and persists the store.
// Both identifiers must already have records; a missing one is a caller
// bug and leaves the store untouched.
func (e *Engine) Update(st *store.Store, idA, idB string, outcome Outcome) (Result, error) {
	if !outcome.Valid() {
		return Result{}, fmt.Errorf("%w: %d", ErrUnknownOutcome, int(outcome))
	}
	if idA == idB {
		return Result{}, fmt.Errorf("%w: %s", ErrSamePair, idA)
	}

	recA, ok := st.Get(idA)
	if !ok {
		return Result{}, fmt.Errorf("no record for %s: %w", idA, util.ErrNotFound)
	}
	recB, ok := st.Get(idB)
	if !ok {
		return Result{}, fmt.Errorf("no record for %s: %w", idB, util.ErrNotFound)
	}

	k0 := e.K0
	if k0 <= 0 {
		k0 = DefaultK0
	}

	kA := LearningRate(k0, recA.Comparisons)
	kB := LearningRate(k0, recB.Comparisons)

	eA := Expected(recA.Skill, recB.Skill)
	eB := 1 - eA

	targetA, targetB := outcome.Targets()

	newA := recA
	newA.Skill = recA.Skill + kA*(targetA-eA)
	newA.Comparisons = recA.Comparisons + 1

	newB := recB
	newB.Skill = recB.Skill + kB*(targetB-eB)
	newB.Comparisons = recB.Comparisons + 1

	st.Put(idA, newA)
	st.Put(idB, newB)

	if err := st.Save(); err != nil {
		st.Put(idA, recA)
		st.Put(idB, recB)
		return Result{}, fmt.Errorf("failed to persist comparison: %w", err)
	}

	util.DebugLog("Updated %s: skill %.2f -> %.2f", idA, recA.Skill, newA.Skill)
	util.DebugLog("Updated %s: skill %.2f -> %.2f", idB, recB.Skill, newB.Skill)

	return Result{
		Outcome: outcome,
		A:       Side{ID: idA, SkillBefore: recA.Skill, SkillAfter: newA.Skill, Comparisons: newA.Comparisons},
		B:       Side{ID: idB, SkillBefore: recB.Skill, SkillAfter: newB.Skill, Comparisons: newB.Comparisons},
	}, nil
}
