// Package library is the collaborator-facing facade over one managed root.
// Front ends read scores and request pairs through it, and every mutation
// of the metadata store goes through its write methods.
package library

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"sort"
	"strings"
	"time"

	"github.com/franz/media-ranker/internal/catalog"
	"github.com/franz/media-ranker/internal/journal"
	"github.com/franz/media-ranker/internal/media"
	"github.com/franz/media-ranker/internal/rank"
	"github.com/franz/media-ranker/internal/reconcile"
	"github.com/franz/media-ranker/internal/rename"
	"github.com/franz/media-ranker/internal/report"
	"github.com/franz/media-ranker/internal/store"
	"github.com/franz/media-ranker/internal/util"
)

// Options configures a Library
type Options struct {
	Scan             catalog.Options
	CompareThreshold float64 // minimum quantile for comparison eligibility
	K0               float64
	Logger           *report.EventLogger
	Journal          *journal.Journal // optional history
	Rand             rand.Source      // nil = seeded from the clock
	Now              func() time.Time // nil = time.Now
	ShowProgress     bool
	DryRun           bool // renames are computed but not performed
}

// Library serves one managed root
type Library struct {
	root     string
	opts     Options
	store    *store.Store
	engine   *rank.Engine
	selector *rank.Selector
	renamer  *rename.Renamer
}

// Open loads the metadata document under root. It does not scan; call
// SyncFolder to align the store with the disk.
func Open(root string, opts Options) (*Library, error) {
	st, err := store.Load(root)
	if err != nil {
		return nil, err
	}

	l := &Library{
		root:     root,
		opts:     opts,
		store:    st,
		engine:   rank.NewEngine(opts.K0),
		selector: rank.NewSelector(opts.Rand),
	}

	rcfg := &rename.Config{
		Store:        st,
		Logger:       opts.Logger,
		DryRun:       opts.DryRun,
		ShowProgress: opts.ShowProgress,
	}
	if opts.Journal != nil {
		rcfg.Recorder = opts.Journal
	}
	l.renamer = rename.New(rcfg)

	return l, nil
}

// Root returns the managed root
func (l *Library) Root() string {
	return l.root
}

// Len returns the number of records
func (l *Library) Len() int {
	return l.store.Len()
}

// IDs returns every identifier in lexical order
func (l *Library) IDs() []string {
	return l.store.Keys()
}

// Record returns the stored record for id
func (l *Library) Record(id string) (store.Record, bool) {
	return l.store.Get(id)
}

// Skill returns the skill of id, or 0 when id has no record
func (l *Library) Skill(id string) float64 {
	rec, ok := l.store.Get(id)
	if !ok {
		return 0
	}
	return rec.Skill
}

// Quantile returns the quantile of id, or 50 when id has no record
func (l *Library) Quantile(id string) float64 {
	return rank.Quantile(l.Skill(id))
}

// Comparisons returns the comparison count of id, or 0 when id has no record
func (l *Library) Comparisons(id string) int {
	rec, ok := l.store.Get(id)
	if !ok {
		return 0
	}
	return rec.Comparisons
}

// CanonicalName returns the prefixed basename id would get from
// RenameWithPrefix
func (l *Library) CanonicalName(id string) string {
	return rename.CanonicalName(id, l.store)
}

// ReportOutcome applies a comparison outcome and persists it
func (l *Library) ReportOutcome(idA, idB string, outcome rank.Outcome) (rank.Result, error) {
	res, err := l.engine.Update(l.store, idA, idB, outcome)
	if err != nil {
		if !errors.Is(err, util.ErrNotFound) && !errors.Is(err, rank.ErrUnknownOutcome) {
			l.opts.Logger.LogError(report.EventCompare, idA+" vs "+idB, err)
		}
		return res, err
	}

	l.opts.Logger.LogCompare(idA, idB, outcome.String(), res.A.SkillAfter, res.B.SkillAfter)

	if l.opts.Journal != nil {
		entry := &journal.Comparison{
			IDA:          idA,
			IDB:          idB,
			Outcome:      outcome.String(),
			SkillABefore: res.A.SkillBefore,
			SkillAAfter:  res.A.SkillAfter,
			SkillBBefore: res.B.SkillBefore,
			SkillBAfter:  res.B.SkillAfter,
		}
		if err := l.opts.Journal.RecordComparison(entry); err != nil {
			util.WarnLog("Failed to journal comparison: %v", err)
		}
	}

	return res, nil
}

// SyncFolder scans the root and reconciles the store with it
func (l *Library) SyncFolder() (*reconcile.Report, error) {
	snap, err := catalog.Scan(l.root, l.opts.Scan)
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", l.root, err)
	}

	rep, err := reconcile.Sync(l.store, snap, reconcile.Options{
		Logger: l.opts.Logger,
		Now:    l.opts.Now,
	})
	if err != nil {
		l.opts.Logger.LogError(report.EventError, l.store.Path(), err)
		return nil, err
	}

	if l.opts.Journal != nil {
		for _, m := range rep.Moves {
			if err := l.opts.Journal.RecordRename(m.From, m.To, m.Reason); err != nil {
				util.WarnLog("Failed to journal key move %s: %v", m.From, err)
			}
		}
	}

	return rep, nil
}

// RenameWithPrefix renames id on disk to its canonical prefixed name
func (l *Library) RenameWithPrefix(id string) (string, error) {
	return l.renamer.ApplyPrefix(id)
}

// RemovePrefix renames id on disk to drop its ranking prefix
func (l *Library) RemovePrefix(id string) (string, error) {
	return l.renamer.StripPrefix(id)
}

// AddPrefixAll prefixes ids, or every record when ids is empty
func (l *Library) AddPrefixAll(ids []string) (*rename.BatchResult, error) {
	if len(ids) == 0 {
		ids = l.store.Keys()
	}
	return l.renamer.ApplyPrefixAll(ids)
}

// RemovePrefixAll strips prefixes from ids, or from every record when ids
// is empty
func (l *Library) RemovePrefixAll(ids []string) (*rename.BatchResult, error) {
	if len(ids) == 0 {
		ids = l.store.Keys()
	}
	return l.renamer.StripPrefixAll(ids)
}

// Eligible returns the identifiers whose quantile reaches the comparison
// threshold
func (l *Library) Eligible() []string {
	return rank.FilterEligible(l.store.Keys(), l.store, l.opts.CompareThreshold)
}

// NextPair draws the next comparison pair. With fewer than two eligible
// items it returns rank.ErrInsufficient.
func (l *Library) NextPair() (string, string, error) {
	pair, err := l.selector.Select(l.Eligible(), l.store, 2)
	if err != nil {
		return "", "", err
	}
	return pair[0], pair[1], nil
}

// Order is the sort direction of a ranked listing
type Order int

const (
	Ascending Order = iota
	Descending
)

// ParseOrder accepts asc/ascending and desc/descending
func ParseOrder(s string) (Order, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "asc", "ascending":
		return Ascending, nil
	case "desc", "descending":
		return Descending, nil
	}
	return Ascending, fmt.Errorf("%w: unknown order %q (use asc or desc)", util.ErrInvalidConfig, s)
}

// Entry is one row of a ranked listing
type Entry struct {
	ID          string
	Skill       float64
	Quantile    float64
	Comparisons int
	Kind        media.Kind
}

// Ranked lists records sorted by skill (ties by identifier). Records below
// maskThreshold are left out; a non-positive threshold keeps everything.
// limit <= 0 returns all rows.
func (l *Library) Ranked(order Order, limit int, maskThreshold float64) []Entry {
	entries := make([]Entry, 0, l.store.Len())
	for _, id := range l.store.Keys() {
		rec, _ := l.store.Get(id)
		q := rank.Quantile(rec.Skill)
		if maskThreshold > 0 && q < maskThreshold {
			continue
		}
		entries = append(entries, Entry{
			ID:          id,
			Skill:       rec.Skill,
			Quantile:    q,
			Comparisons: rec.Comparisons,
			Kind:        media.KindOf(id),
		})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Skill != entries[j].Skill {
			if order == Descending {
				return entries[i].Skill > entries[j].Skill
			}
			return entries[i].Skill < entries[j].Skill
		}
		return entries[i].ID < entries[j].ID
	})

	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries
}
