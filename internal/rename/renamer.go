package rename

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/franz/media-ranker/internal/catalog"
	"github.com/franz/media-ranker/internal/report"
	"github.com/franz/media-ranker/internal/store"
	"github.com/franz/media-ranker/internal/util"
	"github.com/schollz/progressbar/v3"
)

// Actions recorded for renames
const (
	ActionApply = "apply_prefix"
	ActionStrip = "strip_prefix"
)

// Recorder receives every rename that reached disk and the store
type Recorder interface {
	RecordRename(from, to, action string) error
}

// Renamer renames files on disk and moves their store keys with them
type Renamer struct {
	store    *store.Store
	logger   *report.EventLogger
	recorder Recorder
	retry    util.RetryPolicy
	dryRun   bool
	progress bool
}

// Config holds renamer configuration
type Config struct {
	Store        *store.Store
	Logger       *report.EventLogger
	Recorder     Recorder         // optional rename history sink
	Retry        util.RetryPolicy // zero = util.DefaultRetryPolicy()
	DryRun       bool             // compute targets without renaming
	ShowProgress bool             // draw a progress bar for batches
}

// New creates a new Renamer
func New(cfg *Config) *Renamer {
	return &Renamer{
		store:    cfg.Store,
		logger:   cfg.Logger,
		recorder: cfg.Recorder,
		retry:    cfg.Retry,
		dryRun:   cfg.DryRun,
		progress: cfg.ShowProgress,
	}
}

// Move is a completed rename
type Move struct {
	From string
	To   string
}

// Failure is an identifier that could not be renamed
type Failure struct {
	ID     string
	Target string
	Err    error
}

// BatchResult reports the outcome of a batch rename
type BatchResult struct {
	Renamed   []Move
	Unchanged []string
	Failed    []Failure
}

// ApplyPrefix renames id to carry the prefix for its current quantile
func (r *Renamer) ApplyPrefix(id string) (string, error) {
	return r.single(id, ActionApply)
}

// StripPrefix renames id to drop its ranking prefix
func (r *Renamer) StripPrefix(id string) (string, error) {
	return r.single(id, ActionStrip)
}

// ApplyPrefixAll applies canonical prefixes to every id. Conflicting or
// failing items are skipped and reported; the error is non-nil only when
// the store could not be saved, in which case every rename was reverted.
func (r *Renamer) ApplyPrefixAll(ids []string) (*BatchResult, error) {
	return r.batch(ids, ActionApply)
}

// StripPrefixAll removes ranking prefixes from every id
func (r *Renamer) StripPrefixAll(ids []string) (*BatchResult, error) {
	return r.batch(ids, ActionStrip)
}

func (r *Renamer) single(id, action string) (string, error) {
	res, err := r.batch([]string{id}, action)
	if err != nil {
		return id, err
	}
	if len(res.Failed) > 0 {
		return id, res.Failed[0].Err
	}
	if len(res.Renamed) > 0 {
		return res.Renamed[0].To, nil
	}
	return id, nil
}

func (r *Renamer) target(id, action string) string {
	if action == ActionStrip {
		return StrippedID(id)
	}
	return CanonicalID(id, r.store)
}

func (r *Renamer) batch(ids []string, action string) (*BatchResult, error) {
	result := &BatchResult{}
	root := r.store.Root()

	var bar *progressbar.ProgressBar
	if r.progress && len(ids) > 1 {
		bar = progressbar.NewOptions(len(ids),
			progressbar.OptionSetDescription("Renaming"),
			progressbar.OptionSetWidth(40),
			progressbar.OptionShowCount(),
			progressbar.OptionThrottle(200*time.Millisecond),
			progressbar.OptionClearOnFinish(),
		)
	}

	seen := make(map[string]bool, len(ids))
	claimed := make(map[string]bool)
	for _, id := range ids {
		if bar != nil {
			bar.Add(1)
		}
		if seen[id] {
			continue
		}
		seen[id] = true

		if !r.store.Has(id) {
			result.Failed = append(result.Failed, Failure{ID: id, Err: fmt.Errorf("no record for %s: %w", id, util.ErrNotFound)})
			continue
		}

		newID := r.target(id, action)
		if newID == id {
			result.Unchanged = append(result.Unchanged, id)
			continue
		}

		if err := r.checkFree(newID, claimed); err != nil {
			util.WarnLog("Skipping %s: %v", id, err)
			r.logger.LogConflict(id, newID, err.Error())
			result.Failed = append(result.Failed, Failure{ID: id, Target: newID, Err: err})
			continue
		}

		if r.dryRun {
			claimed[newID] = true
			result.Renamed = append(result.Renamed, Move{From: id, To: newID})
			continue
		}

		if err := util.RenameFile(catalog.AbsPath(root, id), catalog.AbsPath(root, newID), r.retry); err != nil {
			util.ErrorLog("Failed to rename %s: %v", id, err)
			r.logger.LogRename(id, newID, action, err)
			result.Failed = append(result.Failed, Failure{ID: id, Target: newID, Err: err})
			continue
		}
		if err := r.store.Rename(id, newID); err != nil {
			// Checked above; put the file back so disk and store agree
			r.undo(Move{From: id, To: newID})
			result.Failed = append(result.Failed, Failure{ID: id, Target: newID, Err: err})
			continue
		}

		result.Renamed = append(result.Renamed, Move{From: id, To: newID})
	}

	if bar != nil {
		bar.Finish()
	}

	if r.dryRun || len(result.Renamed) == 0 {
		return result, nil
	}

	if err := r.store.Save(); err != nil {
		util.ErrorLog("Failed to save store after renames, reverting %d files", len(result.Renamed))
		r.logger.LogError(report.EventRename, r.store.Path(), err)
		for i := len(result.Renamed) - 1; i >= 0; i-- {
			m := result.Renamed[i]
			if rerr := r.store.Rename(m.To, m.From); rerr != nil {
				util.ErrorLog("Failed to restore key %s: %v", m.From, rerr)
			}
			r.undo(m)
		}
		return nil, fmt.Errorf("failed to save store after renames: %w", err)
	}

	for _, m := range result.Renamed {
		util.DebugLog("Renamed %s -> %s", m.From, m.To)
		r.logger.LogRename(m.From, m.To, action, nil)
		if r.recorder != nil {
			if err := r.recorder.RecordRename(m.From, m.To, action); err != nil {
				util.WarnLog("Failed to journal rename of %s: %v", m.From, err)
			}
		}
	}

	return result, nil
}

// checkFree fails with util.ErrConflict when newID is taken in the store,
// on disk, or by an earlier item of the same batch
func (r *Renamer) checkFree(newID string, claimed map[string]bool) error {
	if r.store.Has(newID) || claimed[newID] {
		return fmt.Errorf("%s already has a record: %w", newID, util.ErrConflict)
	}
	_, err := os.Lstat(catalog.AbsPath(r.store.Root(), newID))
	if err == nil {
		return fmt.Errorf("%s already exists: %w", newID, util.ErrConflict)
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to check %s: %w", newID, err)
	}
	return nil
}

func (r *Renamer) undo(m Move) {
	root := r.store.Root()
	if err := util.RenameFile(catalog.AbsPath(root, m.To), catalog.AbsPath(root, m.From), r.retry); err != nil {
		util.ErrorLog("Failed to revert rename %s -> %s: %v", m.To, m.From, err)
	}
}
