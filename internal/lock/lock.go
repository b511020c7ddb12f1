// Package lock serializes operations on the same document across processes
// using advisory file locks.
package lock

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"
)

// DefaultRetryDelay is how often a waiting Acquire polls the lock.
const DefaultRetryDelay = 100 * time.Millisecond

// DocumentLock is an exclusive lock on one document id.
// It works on all platforms gofrs/flock supports.
type DocumentLock struct {
	path   string
	flock  *flock.Flock
	locked bool
}

// New returns the lock for documentID under dir. The lock file is
// <dir>/<sanitized id>.lock.
func New(dir, documentID string) *DocumentLock {
	path := filepath.Join(dir, FileName(documentID))
	return &DocumentLock{path: path, flock: flock.New(path)}
}

// FileName maps a document id to a safe lock file name.
func FileName(documentID string) string {
	var sb strings.Builder
	for _, r := range documentID {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
			sb.WriteRune(r)
		default:
			sb.WriteByte('_')
		}
	}
	name := strings.Trim(sb.String(), ".")
	if name == "" {
		name = "_"
	}
	return name + ".lock"
}

// Acquire blocks until the lock is held or ctx is done.
func (l *DocumentLock) Acquire(ctx context.Context) error {
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return fmt.Errorf("failed to create lock directory: %w", err)
	}

	ok, err := l.flock.TryLockContext(ctx, DefaultRetryDelay)
	if err != nil {
		return fmt.Errorf("failed to acquire lock %s: %w", l.path, err)
	}
	if !ok {
		return fmt.Errorf("failed to acquire lock %s", l.path)
	}
	l.locked = true
	return nil
}

// TryAcquire attempts to take the lock without blocking.
func (l *DocumentLock) TryAcquire() (bool, error) {
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return false, fmt.Errorf("failed to create lock directory: %w", err)
	}
	ok, err := l.flock.TryLock()
	if err != nil {
		return false, fmt.Errorf("failed to acquire lock %s: %w", l.path, err)
	}
	l.locked = ok
	return ok, nil
}

// Release drops the lock. Safe to call when not held.
func (l *DocumentLock) Release() error {
	if !l.locked {
		return nil
	}
	l.locked = false
	if err := l.flock.Unlock(); err != nil {
		return fmt.Errorf("failed to release lock: %w", err)
	}
	return nil
}

// Path returns the lock file path.
func (l *DocumentLock) Path() string {
	return l.path
}

// Held reports whether this DocumentLock holds the lock.
func (l *DocumentLock) Held() bool {
	return l.locked
}
