// Package runlock keeps a single `waypoint run` alive per state directory.
package runlock

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

const (
	lockDirPerm  = 0o750
	lockFilePerm = 0o600

	// FileName is the lock file created in the state directory.
	FileName = "run.lock"
)

// ErrHeld is returned when another process owns the lock.
var ErrHeld = errors.New("run lock already held")

// Lock is an exclusive advisory lock on a file.
type Lock struct {
	f    *os.File
	path string
}

// Acquire creates dir if needed and takes the lock without blocking.
func Acquire(dir string) (*Lock, error) {
	if dir == "" {
		return nil, errors.New("lock dir is empty")
	}
	if err := os.MkdirAll(dir, lockDirPerm); err != nil {
		return nil, fmt.Errorf("create lock dir: %w", err)
	}

	path := filepath.Join(dir, FileName)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, lockFilePerm)
	if err != nil {
		return nil, fmt.Errorf("open lock file: %w", err)
	}

	locked, err := tryLockExclusive(f)
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("lock %s: %w", path, err)
	}
	if !locked {
		_ = f.Close()
		return nil, ErrHeld
	}

	_ = f.Truncate(0)
	_, _ = fmt.Fprintf(f, "%d\n", os.Getpid())
	return &Lock{f: f, path: path}, nil
}

// Path returns the lock file path.
func (l *Lock) Path() string {
	return l.path
}

// Release unlocks and closes the file. The file itself is left in place.
func (l *Lock) Release() error {
	if l == nil || l.f == nil {
		return nil
	}
	unlock(l.f)
	err := l.f.Close()
	l.f = nil
	return err
}
