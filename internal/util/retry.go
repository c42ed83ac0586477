package util

import (
	"errors"
	"fmt"
	"os"
	"syscall"
	"time"
)

// RetryPolicy bounds how often a rename or remove under the managed root is
// retried. Local folders succeed on the first attempt; SMB and NFS shares
// occasionally report a busy or stale handle while the document is being
// replaced. The zero value means DefaultRetryPolicy.
type RetryPolicy struct {
	Attempts   int           // total attempts, including the first
	Backoff    time.Duration // wait after the first failure, doubled after each retry
	MaxBackoff time.Duration
}

// DefaultRetryPolicy retries for a little under a second in total
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		Attempts:   4,
		Backoff:    50 * time.Millisecond,
		MaxBackoff: 400 * time.Millisecond,
	}
}

func (p RetryPolicy) orDefault() RetryPolicy {
	if p.Attempts <= 0 {
		return DefaultRetryPolicy()
	}
	return p
}

// transientErrnos are the failures a rename or unlink on a shared folder
// can recover from. Anything else (ENOENT, EEXIST, EACCES, EXDEV) is final.
var transientErrnos = []syscall.Errno{
	syscall.EAGAIN,
	syscall.EBUSY,
	syscall.EINTR,
	syscall.EIO,
	syscall.ESTALE,
	syscall.ETIMEDOUT,
	syscall.ECONNRESET,
	syscall.EHOSTDOWN,
}

// IsTransientFileError reports whether a failed rename or remove is worth
// another attempt
func IsTransientFileError(err error) bool {
	if err == nil {
		return false
	}
	for _, errno := range transientErrnos {
		if errors.Is(err, errno) {
			return true
		}
	}
	return false
}

// sleep is replaced in tests
var sleep = time.Sleep

func retryFileOp(p RetryPolicy, desc string, op func() error) error {
	p = p.orDefault()
	wait := p.Backoff

	var err error
	for attempt := 1; ; attempt++ {
		if err = op(); err == nil {
			if attempt > 1 {
				DebugLog("%s succeeded on attempt %d", desc, attempt)
			}
			return nil
		}
		if !IsTransientFileError(err) {
			return err
		}
		if attempt == p.Attempts {
			break
		}

		DebugLog("%s failed (attempt %d/%d), retrying in %v: %v", desc, attempt, p.Attempts, wait, err)
		sleep(wait)
		wait *= 2
		if p.MaxBackoff > 0 && wait > p.MaxBackoff {
			wait = p.MaxBackoff
		}
	}

	WarnLog("%s failed after %d attempts: %v", desc, p.Attempts, err)
	return fmt.Errorf("%s: gave up after %d attempts: %w", desc, p.Attempts, err)
}

// RenameFile renames a media file or the metadata document, retrying
// transient failures
func RenameFile(oldpath, newpath string, p RetryPolicy) error {
	return retryFileOp(p, fmt.Sprintf("rename %s -> %s", oldpath, newpath), func() error {
		return os.Rename(oldpath, newpath)
	})
}

// RemoveFile removes path, retrying transient failures
func RemoveFile(path string, p RetryPolicy) error {
	return retryFileOp(p, "remove "+path, func() error {
		return os.Remove(path)
	})
}
