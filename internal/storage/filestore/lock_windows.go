//go:build windows

package filestore

import (
	"os"

	"golang.org/x/sys/windows"
)

const lockRange = ^uint32(0)

func lockFile(f *os.File) error {
	ol := new(windows.Overlapped)
	return windows.LockFileEx(windows.Handle(f.Fd()), windows.LOCKFILE_EXCLUSIVE_LOCK, 0, lockRange, lockRange, ol)
}

func unlockFile(f *os.File) error {
	ol := new(windows.Overlapped)
	return windows.UnlockFileEx(windows.Handle(f.Fd()), 0, lockRange, lockRange, ol)
}

// syncDir is a no-op: directory handles cannot be flushed on windows and MoveFileEx
// already replaces the target atomically.
func syncDir(string) error {
	return nil
}
