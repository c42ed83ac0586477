// Package watch reports settled changes under a managed root so the caller
// can re-run reconciliation.
package watch

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/franz/media-ranker/internal/journal"
	"github.com/franz/media-ranker/internal/store"
	"github.com/franz/media-ranker/internal/util"
	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is the quiet period after the last event before a batch
// is delivered
const DefaultDebounce = 2 * time.Second

// Change is one relevant file-system event
type Change struct {
	Path string
	Op   fsnotify.Op
	Time time.Time
}

// Options configures a Watcher
type Options struct {
	MaxDepth   int
	SkipDirs   []string
	Extensions []string
	Debounce   time.Duration
	BufferSize int
}

// Watcher watches the directories of a managed root within MaxDepth
type Watcher struct {
	root       string
	watcher    *fsnotify.Watcher
	maxDepth   int
	skipDirs   map[string]bool
	extensions map[string]bool
	debounce   time.Duration

	changes  chan Change
	batches  chan []Change
	done     chan struct{}
	stopOnce sync.Once

	mu   sync.Mutex
	dirs map[string]bool
}

// New creates a Watcher; call Start to begin delivering batches
func New(root string, opts Options) (*Watcher, error) {
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	if opts.BufferSize <= 0 {
		opts.BufferSize = 1000
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		root:       root,
		watcher:    fw,
		maxDepth:   opts.MaxDepth,
		skipDirs:   make(map[string]bool, len(opts.SkipDirs)),
		extensions: make(map[string]bool, len(opts.Extensions)),
		debounce:   opts.Debounce,
		changes:    make(chan Change, opts.BufferSize),
		batches:    make(chan []Change, 1),
		done:       make(chan struct{}),
		dirs:       make(map[string]bool),
	}
	for _, d := range opts.SkipDirs {
		w.skipDirs[strings.ToLower(d)] = true
	}
	for _, e := range opts.Extensions {
		w.extensions[strings.ToLower(e)] = true
	}
	return w, nil
}

// Batches delivers debounced groups of changes. It is closed when the
// watcher stops.
func (w *Watcher) Batches() <-chan []Change {
	return w.batches
}

// Start adds the directory tree and begins processing events
func (w *Watcher) Start(ctx context.Context) error {
	if err := w.addTree(w.root); err != nil {
		return err
	}
	util.DebugLog("Watching %d directories under %s", w.Watched(), w.root)

	go w.processEvents(ctx)
	go w.debounceLoop(ctx)
	return nil
}

// Stop releases the underlying watcher
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.done)
		w.watcher.Close()
	})
}

// Watched returns the number of watched directories
func (w *Watcher) Watched() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.dirs)
}

func (w *Watcher) isWatched(path string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.dirs[path]
}

// forget drops path and everything below it from the watch list
func (w *Watcher) forget(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	prefix := path + string(filepath.Separator)
	for dir := range w.dirs {
		if dir == path || strings.HasPrefix(dir, prefix) {
			delete(w.dirs, dir)
			w.watcher.Remove(dir)
		}
	}
}

// wantsDir reports whether a directory at path is inside the scanned tree
func (w *Watcher) wantsDir(path string) bool {
	return !w.skipDirs[strings.ToLower(filepath.Base(path))] && w.depth(path) < w.maxDepth
}

// depth of a directory relative to root; root is 0
func (w *Watcher) depth(path string) int {
	rel, err := filepath.Rel(w.root, path)
	if err != nil || rel == "." {
		return 0
	}
	return strings.Count(filepath.ToSlash(rel), "/") + 1
}

func (w *Watcher) addTree(start string) error {
	return filepath.WalkDir(start, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == start {
				return err
			}
			util.WarnLog("Cannot watch %s: %v", path, err)
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != w.root && !w.wantsDir(path) {
			return filepath.SkipDir
		}
		if err := w.watcher.Add(path); err != nil {
			util.WarnLog("Cannot watch %s: %v", path, err)
			return nil
		}
		w.mu.Lock()
		w.dirs[path] = true
		w.mu.Unlock()
		return nil
	})
}

// ownFile reports whether name is one of the files mrank keeps under the
// root: the metadata document, its temp files and the journal.
func ownFile(name string) bool {
	if name == store.DocumentName || strings.HasPrefix(name, journal.FileName) {
		return true
	}
	return strings.HasPrefix(name, store.DocumentName+".") && strings.HasSuffix(name, ".tmp")
}

// relevant keeps media files by extension and directories that are part
// of the scanned tree, whatever their name.
func (w *Watcher) relevant(event fsnotify.Event) bool {
	base := filepath.Base(event.Name)
	if ownFile(base) || event.Op == fsnotify.Chmod {
		return false
	}
	if w.isWatched(event.Name) {
		return true
	}
	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			return w.wantsDir(event.Name)
		}
	}
	return w.extensions[strings.ToLower(filepath.Ext(base))]
}

func (w *Watcher) processEvents(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.done:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}

			keep := w.relevant(event)

			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() && w.wantsDir(event.Name) {
					w.addTree(event.Name)
				}
			}
			if event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
				w.forget(event.Name)
			}

			if !keep {
				continue
			}

			select {
			case w.changes <- Change{Path: event.Name, Op: event.Op, Time: time.Now()}:
			default:
				// Buffer full; the pending batch already forces a sync
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			util.WarnLog("Watcher error: %v", err)
		}
	}
}

func (w *Watcher) debounceLoop(ctx context.Context) {
	defer close(w.batches)

	var batch []Change
	var timer *time.Timer
	var timerC <-chan time.Time

	flush := func() {
		if len(batch) > 0 {
			out := make([]Change, len(batch))
			copy(out, batch)
			select {
			case w.batches <- out:
			case <-ctx.Done():
			case <-w.done:
			}
			batch = batch[:0]
		}
		if timer != nil {
			timer.Stop()
			timer = nil
			timerC = nil
		}
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.done:
			return
		case change := <-w.changes:
			batch = append(batch, change)
			if timer == nil {
				timer = time.NewTimer(w.debounce)
				timerC = timer.C
			} else {
				timer.Reset(w.debounce)
			}
		case <-timerC:
			timer = nil
			timerC = nil
			flush()
		}
	}
}
