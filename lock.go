package mirror

import (
	"fmt"
	"os"
	"time"
)

// Locker provides mutual exclusion between processes syncing the same mirror.
type Locker interface {
	// Lock acquires an exclusive lock, waiting up to the configured timeout.
	Lock() error

	// Unlock releases the lock. Safe to call multiple times.
	Unlock() error
}

var _ Locker = (*fileLock)(nil)

// fileLock holds an OS lock on a file in the mirror root. The platform
// primitives live in lock_unix.go and lock_windows.go.
type fileLock struct {
	file    *os.File
	timeout time.Duration
	locked  bool
}

// newFileLock opens (creating if needed) the lock file at path.
func newFileLock(path string, timeout time.Duration) (*fileLock, error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return nil, fmt.Errorf("open lock file: %w", err)
	}
	return &fileLock{file: file, timeout: timeout}, nil
}

// Lock polls tryLockFile until it succeeds, fails for a reason other than
// contention, or the timeout expires.
func (l *fileLock) Lock() error {
	if l.locked {
		return nil
	}
	if l.file == nil {
		return fmt.Errorf("lock file already closed")
	}

	deadline := time.Now().Add(l.timeout)
	wait := 10 * time.Millisecond
	for {
		held, err := tryLockFile(l.file)
		if err != nil {
			return err
		}
		if held {
			l.locked = true
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("another sync holds %s (waited %v)", l.file.Name(), l.timeout)
		}

		time.Sleep(wait)
		if wait < 200*time.Millisecond {
			wait *= 2
		}
	}
}

// Unlock releases the lock and closes the file handle.
func (l *fileLock) Unlock() error {
	if l.file == nil {
		return nil
	}

	var err error
	if l.locked {
		err = unlockFile(l.file)
	}
	l.file.Close()
	l.file = nil
	l.locked = false
	return err
}
