//go:build windows

package mirror

import (
	"errors"
	"fmt"
	"os"

	"golang.org/x/sys/windows"
)

// The first byte of the lock file is the locked region.
const lockRegion = 1

// tryLockFile takes an exclusive LockFileEx without waiting. It reports false
// without an error when another handle holds the region.
func tryLockFile(f *os.File) (bool, error) {
	err := windows.LockFileEx(
		windows.Handle(f.Fd()),
		windows.LOCKFILE_EXCLUSIVE_LOCK|windows.LOCKFILE_FAIL_IMMEDIATELY,
		0,
		lockRegion, 0,
		&windows.Overlapped{},
	)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, windows.ERROR_LOCK_VIOLATION), errors.Is(err, windows.ERROR_IO_PENDING):
		return false, nil
	default:
		return false, fmt.Errorf("LockFileEx %s: %w", f.Name(), err)
	}
}

func unlockFile(f *os.File) error {
	if err := windows.UnlockFileEx(windows.Handle(f.Fd()), 0, lockRegion, 0, &windows.Overlapped{}); err != nil {
		return fmt.Errorf("release %s: %w", f.Name(), err)
	}
	return nil
}
