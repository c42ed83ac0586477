// Package store owns the per-root metadata document: a JSON object mapping
// identifiers to Records, loaded once and replaced atomically on every save.
package store

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/franz/media-ranker/internal/util"
)

// DocumentName is the hidden file holding the metadata document under a root
const DocumentName = ".photo_metadata.json"

// Store is the in-memory view of one metadata document.
// It is not safe for concurrent use; a session has a single writer.
type Store struct {
	root    string
	path    string
	records map[string]Record
	retry   util.RetryPolicy
}

// New returns an empty store for root without touching the disk
func New(root string) *Store {
	return &Store{
		root:    root,
		path:    filepath.Join(root, DocumentName),
		records: make(map[string]Record),
		retry:   util.DefaultRetryPolicy(),
	}
}

// Load reads the document under root. A missing or empty document yields an
// empty store; a document that exists but does not parse is an error
// wrapping util.ErrCorrupt.
func Load(root string) (*Store, error) {
	s := New(root)

	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			util.DebugLog("No metadata document at %s, starting empty", s.path)
			return s, nil
		}
		return nil, fmt.Errorf("failed to read metadata document: %w", err)
	}

	if len(bytes.TrimSpace(data)) == 0 {
		return s, nil
	}

	var records map[string]Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", util.ErrCorrupt, s.path, err)
	}
	if records == nil {
		return nil, fmt.Errorf("%w: %s: document is null", util.ErrCorrupt, s.path)
	}

	s.records = records
	util.DebugLog("Loaded %d records from %s", len(records), s.path)
	return s, nil
}

// Root returns the managed root directory
func (s *Store) Root() string {
	return s.root
}

// Path returns the document path
func (s *Store) Path() string {
	return s.path
}

// Len returns the number of records
func (s *Store) Len() int {
	return len(s.records)
}

// Has reports whether id has a record
func (s *Store) Has(id string) bool {
	_, ok := s.records[id]
	return ok
}

// Get returns the record for id
func (s *Store) Get(id string) (Record, bool) {
	r, ok := s.records[id]
	return r, ok
}

// Put creates or replaces the record for id
func (s *Store) Put(id string, r Record) {
	s.records[id] = r
}

// Delete removes the record for id, if any
func (s *Store) Delete(id string) {
	delete(s.records, id)
}

// Rename moves the record stored under oldID to newID without touching its
// payload
func (s *Store) Rename(oldID, newID string) error {
	r, ok := s.records[oldID]
	if !ok {
		return fmt.Errorf("rename %s: %w", oldID, util.ErrNotFound)
	}
	if oldID == newID {
		return nil
	}
	if _, exists := s.records[newID]; exists {
		return fmt.Errorf("rename %s -> %s: %w", oldID, newID, util.ErrConflict)
	}
	delete(s.records, oldID)
	s.records[newID] = r
	return nil
}

// Keys returns all identifiers in lexical order
func (s *Store) Keys() []string {
	keys := make([]string, 0, len(s.records))
	for k := range s.records {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Snapshot returns a copy of the record map, for callers that need to
// restore state after a failed save
func (s *Store) Snapshot() map[string]Record {
	out := make(map[string]Record, len(s.records))
	for k, v := range s.records {
		out[k] = v
	}
	return out
}

// Restore replaces the in-memory records with a copy taken by Snapshot
func (s *Store) Restore(records map[string]Record) {
	s.records = make(map[string]Record, len(records))
	for k, v := range records {
		s.records[k] = v
	}
}

// Save writes the document atomically: the JSON is written and synced to a
// temp file in the same directory, which then replaces the document.
func (s *Store) Save() error {
	data, err := json.MarshalIndent(s.records, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode metadata: %w", err)
	}
	data = append(data, '\n')

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, DocumentName+".*.tmp")
	if err != nil {
		if errors.Is(err, fs.ErrPermission) {
			return fmt.Errorf("%w: cannot write to %s", util.ErrPermission, dir)
		}
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	cleanup := func() {
		if rmErr := util.RemoveFile(tmpPath, s.retry); rmErr != nil && !errors.Is(rmErr, fs.ErrNotExist) {
			util.WarnLog("Failed to remove temp file %s: %v", tmpPath, rmErr)
		}
	}

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		cleanup()
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		cleanup()
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Chmod(tmpPath, s.documentMode()); err != nil {
		cleanup()
		return fmt.Errorf("failed to set permissions: %w", err)
	}

	if err := util.RenameFile(tmpPath, s.path, s.retry); err != nil {
		cleanup()
		return fmt.Errorf("failed to replace metadata document: %w", err)
	}

	util.DebugLog("Saved %d records to %s", len(s.records), s.path)
	return nil
}

// documentMode is the permission of the existing document, or 0644 for a
// new one
func (s *Store) documentMode() fs.FileMode {
	if info, err := os.Stat(s.path); err == nil {
		return info.Mode().Perm()
	}
	return 0o644
}

// LeftoverTempFiles lists temp documents left behind by an interrupted save
func LeftoverTempFiles(root string) ([]string, error) {
	return filepath.Glob(filepath.Join(root, DocumentName+".*.tmp"))
}
