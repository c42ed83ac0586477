package util

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"syscall"
	"testing"
	"time"
)

func noSleep(t *testing.T) *[]time.Duration {
	t.Helper()
	var waits []time.Duration
	sleep = func(d time.Duration) { waits = append(waits, d) }
	t.Cleanup(func() { sleep = time.Sleep })
	return &waits
}

func TestIsTransientFileError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"busy share", syscall.EBUSY, true},
		{"stale nfs handle", &os.LinkError{Op: "rename", Old: "a", New: "b", Err: syscall.ESTALE}, true},
		{"wrapped io error", fmt.Errorf("save: %w", &os.PathError{Op: "remove", Path: "x", Err: syscall.EIO}), true},
		{"missing file", &os.PathError{Op: "remove", Path: "x", Err: syscall.ENOENT}, false},
		{"cross device", &os.LinkError{Op: "rename", Old: "a", New: "b", Err: syscall.EXDEV}, false},
		{"permission", syscall.EACCES, false},
		{"plain message", errors.New("timed out"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsTransientFileError(tt.err); got != tt.want {
				t.Errorf("IsTransientFileError(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestRetryFileOp_RecoversFromTransientErrors(t *testing.T) {
	waits := noSleep(t)
	attempts := 0

	err := retryFileOp(RetryPolicy{Attempts: 4, Backoff: 10 * time.Millisecond, MaxBackoff: 25 * time.Millisecond}, "rename", func() error {
		attempts++
		if attempts < 4 {
			return syscall.EBUSY
		}
		return nil
	})

	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if attempts != 4 {
		t.Errorf("attempts = %d, want 4", attempts)
	}
	want := []time.Duration{10 * time.Millisecond, 20 * time.Millisecond, 25 * time.Millisecond}
	if fmt.Sprint(*waits) != fmt.Sprint(want) {
		t.Errorf("waits = %v, want %v", *waits, want)
	}
}

func TestRetryFileOp_GivesUp(t *testing.T) {
	noSleep(t)
	attempts := 0

	err := retryFileOp(RetryPolicy{Attempts: 3, Backoff: time.Millisecond}, "rename", func() error {
		attempts++
		return syscall.ESTALE
	})

	if !errors.Is(err, syscall.ESTALE) {
		t.Fatalf("expected wrapped ESTALE, got %v", err)
	}
	if attempts != 3 {
		t.Errorf("attempts = %d, want 3", attempts)
	}
}

func TestRetryFileOp_FinalErrorNotRetried(t *testing.T) {
	waits := noSleep(t)
	attempts := 0

	err := retryFileOp(RetryPolicy{}, "remove", func() error {
		attempts++
		return syscall.ENOENT
	})

	if !errors.Is(err, syscall.ENOENT) {
		t.Fatalf("expected ENOENT, got %v", err)
	}
	if attempts != 1 || len(*waits) != 0 {
		t.Errorf("attempts = %d, waits = %v; want a single attempt", attempts, *waits)
	}
}

func TestRetryPolicy_ZeroValueUsesDefault(t *testing.T) {
	got := RetryPolicy{}.orDefault()
	if got != DefaultRetryPolicy() {
		t.Errorf("orDefault() = %+v, want %+v", got, DefaultRetryPolicy())
	}
}

func TestRenameFile(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "img.jpg")
	dst := filepath.Join(dir, "Q506_img.jpg")
	if err := os.WriteFile(src, []byte("x"), 0644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	if err := RenameFile(src, dst, RetryPolicy{}); err != nil {
		t.Fatalf("RenameFile failed: %v", err)
	}
	if _, err := os.Stat(dst); err != nil {
		t.Errorf("expected %s to exist: %v", dst, err)
	}
	if _, err := os.Stat(src); !os.IsNotExist(err) {
		t.Errorf("expected %s to be gone, stat err = %v", src, err)
	}
}

func TestRemoveFile_MissingIsNotExist(t *testing.T) {
	waits := noSleep(t)

	err := RemoveFile(filepath.Join(t.TempDir(), "missing.tmp"), RetryPolicy{})
	if !os.IsNotExist(err) {
		t.Fatalf("expected not-exist error, got %v", err)
	}
	if len(*waits) != 0 {
		t.Errorf("missing file should not be retried, waited %v", *waits)
	}
}
