package watch

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startWatcher(t *testing.T, root string, opts Options) *Watcher {
	t.Helper()
	if opts.Debounce == 0 {
		opts.Debounce = 50 * time.Millisecond
	}
	w, err := New(root, opts)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(func() {
		cancel()
		w.Stop()
	})
	require.NoError(t, w.Start(ctx))
	return w
}

func waitBatch(t *testing.T, w *Watcher) []Change {
	t.Helper()
	select {
	case batch := <-w.Batches():
		return batch
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for a batch")
		return nil
	}
}

func TestWatcher_DeliversDebouncedBatch(t *testing.T) {
	root := t.TempDir()
	w := startWatcher(t, root, Options{MaxDepth: 4, Extensions: []string{".jpg"}})

	for _, name := range []string{"a.jpg", "b.jpg", "c.jpg"} {
		require.NoError(t, os.WriteFile(filepath.Join(root, name), []byte("x"), 0644))
	}

	batch := waitBatch(t, w)
	assert.NotEmpty(t, batch)
	for _, c := range batch {
		assert.Equal(t, ".jpg", filepath.Ext(c.Path))
	}
}

func TestWatcher_IgnoresOwnAndForeignFiles(t *testing.T) {
	root := t.TempDir()
	w := startWatcher(t, root, Options{MaxDepth: 4, Extensions: []string{".jpg", ".tmp", ".db"}})

	for _, name := range []string{".photo_metadata.json", ".photo_metadata.json.123.tmp", ".photo_journal.db", "notes.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(root, name), []byte("{}"), 0644))
	}

	select {
	case batch := <-w.Batches():
		t.Fatalf("unexpected batch: %+v", batch)
	case <-time.After(300 * time.Millisecond):
	}
}

func TestWatcher_ReportsHiddenMediaFiles(t *testing.T) {
	root := t.TempDir()
	w := startWatcher(t, root, Options{MaxDepth: 4, Extensions: []string{".jpg"}})

	require.NoError(t, os.WriteFile(filepath.Join(root, ".x.jpg"), []byte("x"), 0644))

	batch := waitBatch(t, w)
	assert.Equal(t, ".x.jpg", filepath.Base(batch[0].Path))
}

func TestWatcher_DirectoryWithDotMovedIn(t *testing.T) {
	outside := t.TempDir()
	src := filepath.Join(outside, "trip.2024")
	require.NoError(t, os.Mkdir(src, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(src, "a.jpg"), []byte("x"), 0644))

	root := t.TempDir()
	w := startWatcher(t, root, Options{MaxDepth: 4, Extensions: []string{".jpg"}})

	dst := filepath.Join(root, "trip.2024")
	require.NoError(t, os.Rename(src, dst))

	batch := waitBatch(t, w)
	assert.Equal(t, dst, batch[0].Path)
	assert.Eventually(t, func() bool { return w.Watched() == 2 }, 2*time.Second, 10*time.Millisecond)

	// Moving it out again is reported too
	require.NoError(t, os.Rename(dst, filepath.Join(outside, "back")))
	batch = waitBatch(t, w)
	assert.Equal(t, dst, batch[0].Path)
	assert.Eventually(t, func() bool { return w.Watched() == 1 }, 2*time.Second, 10*time.Millisecond)
}

func TestWatcher_IgnoresSkippedDirectories(t *testing.T) {
	root := t.TempDir()
	w := startWatcher(t, root, Options{MaxDepth: 4, SkipDirs: []string{"delete"}, Extensions: []string{".jpg"}})

	require.NoError(t, os.Mkdir(filepath.Join(root, "Delete"), 0755))

	select {
	case batch := <-w.Batches():
		t.Fatalf("unexpected batch: %+v", batch)
	case <-time.After(300 * time.Millisecond):
	}
	assert.Equal(t, 1, w.Watched())
}

func TestWatcher_WatchesNewDirectories(t *testing.T) {
	root := t.TempDir()
	w := startWatcher(t, root, Options{MaxDepth: 4, Extensions: []string{".jpg"}})
	assert.Equal(t, 1, w.Watched())

	sub := filepath.Join(root, "2024")
	require.NoError(t, os.Mkdir(sub, 0755))
	waitBatch(t, w)
	assert.Eventually(t, func() bool { return w.Watched() == 2 }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, os.WriteFile(filepath.Join(sub, "photo.jpg"), []byte("x"), 0644))
	batch := waitBatch(t, w)
	assert.Equal(t, "photo.jpg", filepath.Base(batch[len(batch)-1].Path))
}

func TestWatcher_RespectsDepthAndSkipDirs(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "a", "b"), 0755))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "Delete"), 0755))

	w := startWatcher(t, root, Options{MaxDepth: 2, SkipDirs: []string{"delete"}, Extensions: []string{".jpg"}})

	// root and a; a/b is at depth 2 and Delete is skip-listed
	assert.Equal(t, 2, w.Watched())
}
