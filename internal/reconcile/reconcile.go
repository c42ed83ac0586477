// Package reconcile aligns a metadata store with the files currently on disk.
//
// A pass runs four steps in order: legacy bare-filename keys are migrated to
// their relative path, new files get default records, orphaned records that
// still describe a live file under another prefix are folded onto it, and
// whatever remains orphaned is pruned. The store is saved once at the end.
package reconcile

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/franz/media-ranker/internal/catalog"
	"github.com/franz/media-ranker/internal/rename"
	"github.com/franz/media-ranker/internal/report"
	"github.com/franz/media-ranker/internal/store"
	"github.com/franz/media-ranker/internal/util"
)

// Options configures a reconciliation pass
type Options struct {
	Logger *report.EventLogger
	Now    func() time.Time // clock for created_date (nil = time.Now)
}

// Move describes a record key that changed during a pass
type Move struct {
	From   string
	To     string
	Reason string
}

// Move reasons
const (
	ReasonLegacy     = "legacy_key"
	ReasonTransplant = "transplant"
)

// Report summarizes a reconciliation pass
type Report struct {
	Migrated  int
	Added     int
	Merged    int
	Removed   int
	Ambiguous []string // legacy keys matching several files, left in place
	Discarded []string // records dropped in favour of another record
	Moves     []Move
}

// Changed reports whether the pass modified the store
func (r *Report) Changed() bool {
	return r.Migrated+r.Added+r.Merged+r.Removed > 0
}

// String renders the counts on one line
func (r *Report) String() string {
	return fmt.Sprintf("migrated %d, added %d, merged %d, removed %d, ambiguous %d",
		r.Migrated, r.Added, r.Merged, r.Removed, len(r.Ambiguous))
}

type syncer struct {
	st        *store.Store
	snap      catalog.Snapshot
	logger    *report.EventLogger
	now       time.Time
	rep       *Report
	ambiguous map[string]bool
	fresh     map[string]bool
}

// Sync reconciles st against snap and saves it. Mismatches are resolved
// and reported; only a failed save returns an error, in which case the
// in-memory store is restored to its state before the pass.
func Sync(st *store.Store, snap catalog.Snapshot, opts Options) (*Report, error) {
	now := time.Now
	if opts.Now != nil {
		now = opts.Now
	}

	s := &syncer{
		st:        st,
		snap:      snap,
		logger:    opts.Logger,
		now:       now(),
		rep:       &Report{},
		ambiguous: make(map[string]bool),
		fresh:     make(map[string]bool),
	}

	before := st.Snapshot()

	s.migrateLegacy()
	s.discover()
	s.collapse()
	s.prune()

	if !s.rep.Changed() {
		util.DebugLog("Reconcile: store already matches %d files", snap.Len())
		return s.rep, nil
	}

	if err := st.Save(); err != nil {
		st.Restore(before)
		return nil, fmt.Errorf("failed to save reconciled store: %w", err)
	}

	util.InfoLog("Reconciled %s: %s", st.Root(), s.rep)
	return s.rep, nil
}

// migrateLegacy moves bare-filename keys onto the single file with that
// basename, ignoring ranking prefixes on either side. Keys with a
// counterpart in the root are left to collapse; keys matching several
// files are recorded as ambiguous.
func (s *syncer) migrateLegacy() {
	byBase := make(map[string][]string)
	inRoot := make(map[string]bool)
	for _, id := range s.snap.Sorted() {
		base := legacyName(catalog.Base(id))
		byBase[base] = append(byBase[base], id)
		if !strings.Contains(id, "/") {
			inRoot[base] = true
		}
	}

	for _, key := range s.st.Keys() {
		if strings.Contains(key, "/") || s.snap.Has(key) {
			continue
		}

		base := legacyName(key)
		if inRoot[base] {
			continue
		}

		matches := byBase[base]
		switch len(matches) {
		case 0:
			continue
		case 1:
			s.migrateOne(key, matches[0])
		default:
			s.ambiguous[key] = true
			s.rep.Ambiguous = append(s.rep.Ambiguous, key)
			util.WarnLog("Legacy key %s matches %d files, leaving it for a later pass", key, len(matches))
			s.logger.LogAmbiguous(key, matches)
		}
	}
}

func legacyName(name string) string {
	return catalog.FoldName(rename.StripPrefix(name))
}

func (s *syncer) migrateOne(key, target string) {
	legacy, _ := s.st.Get(key)

	existing, ok := s.st.Get(target)
	if !ok {
		if err := s.st.Rename(key, target); err != nil {
			util.WarnLog("Failed to migrate %s: %v", key, err)
			return
		}
		s.rep.Migrated++
		s.rep.Moves = append(s.rep.Moves, Move{From: key, To: target, Reason: ReasonLegacy})
		util.DebugLog("Migrated legacy key %s -> %s", key, target)
		s.logger.LogMigrate(key, target, ReasonLegacy)
		return
	}

	// Both the legacy key and the target have a record; the one with more
	// evidence survives under the target key, the target wins ties.
	kept, dropped := existing, legacy
	droppedID := key
	if legacy.Comparisons > existing.Comparisons {
		kept, dropped = legacy, existing
		droppedID = target
		s.st.Put(target, legacy)
	}
	s.st.Delete(key)

	s.rep.Merged++
	s.rep.Discarded = append(s.rep.Discarded, droppedID)
	util.WarnLog("Merged legacy key %s into %s, discarding record with %d comparisons",
		key, target, dropped.Comparisons)
	s.logger.LogMerge(target, droppedID, kept.Comparisons, dropped.Comparisons)
}

// discover creates default records for files without one
func (s *syncer) discover() {
	for _, id := range s.snap.Sorted() {
		if s.st.Has(id) {
			continue
		}
		s.st.Put(id, store.NewRecord(s.now))
		s.fresh[id] = true
		s.rep.Added++
		s.logger.LogSyncAdd(id)
	}
}

type groupKey struct {
	dir  string
	base string
}

func keyOf(id string) groupKey {
	return groupKey{
		dir:  catalog.FoldName(catalog.Dir(id)),
		base: catalog.FoldName(rename.StripPrefix(catalog.Base(id))),
	}
}

// collapse folds orphaned records onto the live file they describe when
// the only difference is the ranking prefix
func (s *syncer) collapse() {
	groups := make(map[groupKey][]string)
	for _, key := range s.st.Keys() {
		if s.snap.Has(key) || s.ambiguous[key] {
			continue
		}
		gk := keyOf(key)
		groups[gk] = append(groups[gk], key)
	}
	if len(groups) == 0 {
		return
	}

	live := make(map[groupKey][]string)
	for _, id := range s.snap.Sorted() {
		gk := keyOf(id)
		if _, ok := groups[gk]; ok {
			live[gk] = append(live[gk], id)
		}
	}

	order := make([]groupKey, 0, len(groups))
	for gk := range groups {
		order = append(order, gk)
	}
	sort.Slice(order, func(i, j int) bool {
		if order[i].dir != order[j].dir {
			return order[i].dir < order[j].dir
		}
		return order[i].base < order[j].base
	})

	for _, gk := range order {
		orphans := groups[gk]
		counterparts := live[gk]
		if len(counterparts) == 0 {
			continue
		}

		var fresh []string
		for _, id := range counterparts {
			if s.fresh[id] {
				fresh = append(fresh, id)
			}
		}

		switch len(fresh) {
		case 0:
			for _, orphan := range orphans {
				s.discard(orphan, "live file already has a record")
			}
		case 1:
			s.transplant(orphans, fresh[0])
		default:
			util.WarnLog("Orphans of %s match %d new files, leaving them to pruning",
				catalog.Join(gk.dir, gk.base), len(fresh))
		}
	}
}

// transplant moves the best orphan onto target and discards the rest.
// orphans are sorted, so the first record with the most comparisons wins.
func (s *syncer) transplant(orphans []string, target string) {
	best := orphans[0]
	bestRec, _ := s.st.Get(best)
	for _, id := range orphans[1:] {
		rec, _ := s.st.Get(id)
		if rec.Comparisons > bestRec.Comparisons {
			best, bestRec = id, rec
		}
	}

	for _, id := range orphans {
		if id != best {
			s.discard(id, "superseded by "+best)
		}
	}

	s.st.Put(target, bestRec)
	s.st.Delete(best)
	s.fresh[target] = false
	s.rep.Added--
	s.rep.Migrated++
	s.rep.Moves = append(s.rep.Moves, Move{From: best, To: target, Reason: ReasonTransplant})
	util.DebugLog("Transplanted %s -> %s (%d comparisons)", best, target, bestRec.Comparisons)
	s.logger.LogMigrate(best, target, ReasonTransplant)
}

func (s *syncer) discard(id, reason string) {
	rec, _ := s.st.Get(id)
	s.st.Delete(id)
	s.rep.Merged++
	s.rep.Discarded = append(s.rep.Discarded, id)
	util.DebugLog("Discarded orphan %s (%d comparisons): %s", id, rec.Comparisons, reason)
	s.logger.LogDiscard(id, rec.Skill, rec.Comparisons, reason)
}

// prune removes records whose file is gone
func (s *syncer) prune() {
	for _, key := range s.st.Keys() {
		if s.snap.Has(key) || s.ambiguous[key] {
			continue
		}
		rec, _ := s.st.Get(key)
		s.st.Delete(key)
		s.rep.Removed++
		util.DebugLog("Pruned %s", key)
		s.logger.LogSyncRemove(key, rec.Skill, rec.Comparisons)
	}
}
