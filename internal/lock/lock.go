// Package lock serializes operations that mutate the materialized output
// tree. Each operation name maps to an advisory flock file under
// .strata/locks, so a rollback cannot interleave with a materialize pass
// already running against the same workspace.
package lock

import (
	"fmt"
	"os"
	"path/filepath"
	"syscall"
)

// Lock guards one named operation within a workspace.
type Lock struct {
	operation string
	path      string
	file      *os.File
}

// New returns the lock for an operation in the given workspace root. The
// lock is not held until Acquire succeeds.
func New(root, operation string) *Lock {
	return &Lock{
		operation: operation,
		path:      filepath.Join(root, ".strata", "locks", operation+".lock"),
	}
}

// Acquire takes the lock without blocking. It fails when another process
// already holds the same operation's lock.
func (l *Lock) Acquire() error {
	if err := os.MkdirAll(filepath.Dir(l.path), 0755); err != nil {
		return fmt.Errorf("create lock directory: %w", err)
	}

	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return fmt.Errorf("open lock file: %w", err)
	}

	if err := syscall.Flock(int(f.Fd()), syscall.LOCK_EX|syscall.LOCK_NB); err != nil {
		f.Close()
		l.file = nil
		if err == syscall.EWOULDBLOCK {
			return fmt.Errorf("another %s operation is already running", l.operation)
		}
		return fmt.Errorf("acquire lock: %w", err)
	}

	// Record the holder's PID so a stuck lock can be traced by hand.
	f.Truncate(0)
	f.Seek(0, 0)
	fmt.Fprintf(f, "%d\n", os.Getpid())

	l.file = f
	return nil
}

// Release drops the lock and removes its file. Releasing a lock that was
// never acquired is a no-op.
func (l *Lock) Release() error {
	if l.file == nil {
		return nil
	}

	if err := syscall.Flock(int(l.file.Fd()), syscall.LOCK_UN); err != nil {
		l.file.Close()
		return fmt.Errorf("release lock: %w", err)
	}

	l.file.Close()
	os.Remove(l.path)
	l.file = nil

	return nil
}

// WithLock runs fn while holding the named operation's lock, releasing it
// when fn returns.
func WithLock(root, operation string, fn func() error) error {
	lock := New(root, operation)
	if err := lock.Acquire(); err != nil {
		return err
	}
	defer lock.Release()

	return fn()
}
