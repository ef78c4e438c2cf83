//go:build unix

// Package state implements the durable install-state store (spec §4.8):
// installed.json/installed_casks.json keyed tables, written with a
// single-writer advisory file lock held across the whole read-modify-write
// cycle. The FileLock type here has no direct teacher source file (it was
// filtered out of the retrieval pack) and is implemented fresh, grounded
// strictly in the usage pattern observed in the teacher's install/state.go:
// a shared lock guards reads, an exclusive lock is held across an entire
// read-modify-write cycle for writes.
package state

import (
	"os"

	"golang.org/x/sys/unix"

	"github.com/plyght/wax/internal/errs"
)

// FileLock is an advisory lock on a sidecar lock file, used to serialize
// concurrent access to the install-state file within one process (and,
// best-effort, across processes via flock).
type FileLock struct {
	path string
	file *os.File
}

// NewFileLock creates a FileLock bound to the given lock-file path. The
// lock file is created on first Lock* call if it does not already exist.
func NewFileLock(path string) *FileLock {
	return &FileLock{path: path}
}

// LockShared acquires a shared (read) lock, blocking until available.
func (l *FileLock) LockShared() error {
	return l.lock(unix.LOCK_SH)
}

// LockExclusive acquires an exclusive (write) lock, blocking until available.
func (l *FileLock) LockExclusive() error {
	return l.lock(unix.LOCK_EX)
}

func (l *FileLock) lock(how int) error {
	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return errs.Wrap(errs.Io, "failed to open lock file", err)
	}

	if err := unix.Flock(int(f.Fd()), how); err != nil {
		f.Close()
		return errs.Wrap(errs.Io, "failed to acquire lock", err)
	}

	l.file = f
	return nil
}

// Unlock releases the lock and closes the underlying file descriptor.
func (l *FileLock) Unlock() error {
	if l.file == nil {
		return nil
	}
	defer func() {
		l.file.Close()
		l.file = nil
	}()
	if err := unix.Flock(int(l.file.Fd()), unix.LOCK_UN); err != nil {
		return errs.Wrap(errs.Io, "failed to release lock", err)
	}
	return nil
}
