// Package catalog discovers the media files under a managed root and turns
// them into normalized, slash-separated identifiers relative to that root.
package catalog

import (
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/franz/media-ranker/internal/util"
	"golang.org/x/text/unicode/norm"
)

// ImageExtensions are the default recognized still-image extensions
var ImageExtensions = []string{".jpg", ".jpeg", ".png", ".bmp", ".gif", ".tiff"}

// VideoExtensions are the default recognized video extensions
var VideoExtensions = []string{".mp4", ".mov", ".mkv", ".wmv", ".flv"}

// DefaultExtensions returns images followed by videos
func DefaultExtensions() []string {
	exts := make([]string, 0, len(ImageExtensions)+len(VideoExtensions))
	exts = append(exts, ImageExtensions...)
	return append(exts, VideoExtensions...)
}

// Options controls a scan
type Options struct {
	MaxDepth   int      // Directories at this depth (root = 0) are not descended
	SkipDirs   []string // Directory names excluded from descent, case-insensitive
	Extensions []string // Allowed extensions, case-insensitive, with leading dot
}

// Snapshot is the set of identifiers present on disk at scan time
type Snapshot struct {
	ids map[string]struct{}
}

// NewSnapshot builds a snapshot from already-normalized identifiers
func NewSnapshot(ids ...string) Snapshot {
	s := Snapshot{ids: make(map[string]struct{}, len(ids))}
	for _, id := range ids {
		s.ids[Normalize(id)] = struct{}{}
	}
	return s
}

// Has reports whether id is present
func (s Snapshot) Has(id string) bool {
	_, ok := s.ids[id]
	return ok
}

// Len returns the number of identifiers
func (s Snapshot) Len() int {
	return len(s.ids)
}

// Sorted returns the identifiers in lexical order
func (s Snapshot) Sorted() []string {
	out := make([]string, 0, len(s.ids))
	for id := range s.ids {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Scan walks root and returns the identifiers of all eligible files.
// It has no side effects and may be called any number of times.
func Scan(root string, opts Options) (Snapshot, error) {
	info, err := os.Stat(root)
	if err != nil {
		if os.IsNotExist(err) {
			return Snapshot{}, fmt.Errorf("root %s: %w", root, util.ErrNotFound)
		}
		return Snapshot{}, fmt.Errorf("failed to stat root: %w", err)
	}
	if !info.IsDir() {
		return Snapshot{}, fmt.Errorf("root %s is not a directory: %w", root, util.ErrNotFound)
	}

	extensions := opts.Extensions
	if len(extensions) == 0 {
		extensions = DefaultExtensions()
	}
	extMap := make(map[string]bool, len(extensions))
	for _, ext := range extensions {
		extMap[strings.ToLower(ext)] = true
	}

	skip := make(map[string]bool, len(opts.SkipDirs))
	for _, name := range opts.SkipDirs {
		skip[strings.ToLower(name)] = true
	}

	snap := Snapshot{ids: make(map[string]struct{})}

	walkErr := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if p == root {
				return err
			}
			util.WarnLog("Error accessing path %s: %v", p, err)
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		rel, err := filepath.Rel(root, p)
		if err != nil {
			return fmt.Errorf("failed to compute relative path for %s: %w", p, err)
		}

		if d.IsDir() {
			if p == root {
				return nil
			}
			if skip[strings.ToLower(d.Name())] {
				util.DebugLog("Skipping folder: %s", rel)
				return filepath.SkipDir
			}
			if depthOf(rel) >= opts.MaxDepth {
				util.DebugLog("Max depth reached, not descending: %s", rel)
				return filepath.SkipDir
			}
			return nil
		}

		if !d.Type().IsRegular() {
			return nil
		}
		if !extMap[strings.ToLower(filepath.Ext(p))] {
			return nil
		}

		snap.ids[Normalize(rel)] = struct{}{}
		return nil
	})
	if walkErr != nil {
		return Snapshot{}, fmt.Errorf("walk error: %w", walkErr)
	}

	util.DebugLog("Catalog: %d eligible files under %s", len(snap.ids), root)
	return snap, nil
}

// Normalize converts a relative path into identifier form
func Normalize(rel string) string {
	id := filepath.ToSlash(rel)
	id = path.Clean(id)
	return strings.TrimPrefix(id, "./")
}

// Dir returns the directory part of an identifier ("" for root-level files)
func Dir(id string) string {
	dir := path.Dir(id)
	if dir == "." {
		return ""
	}
	return dir
}

// Base returns the file name part of an identifier
func Base(id string) string {
	return path.Base(id)
}

// FoldName returns the NFC form of a file name, so names written by
// file systems that store decomposed Unicode compare equal to composed ones
func FoldName(name string) string {
	return norm.NFC.String(name)
}

// Join builds an identifier from a directory ("" for root) and a file name
func Join(dir, name string) string {
	if dir == "" {
		return name
	}
	return dir + "/" + name
}

// AbsPath resolves an identifier against root
func AbsPath(root, id string) string {
	return filepath.Join(root, filepath.FromSlash(id))
}

// depthOf returns the depth of a directory given its path relative to root
func depthOf(rel string) int {
	return strings.Count(filepath.ToSlash(rel), "/") + 1
}
