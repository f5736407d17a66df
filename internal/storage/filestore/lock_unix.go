//go:build unix

package filestore

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// lockFile blocks until f holds an exclusive advisory lock.
// flock locks belong to the open file description, so two opens in one process exclude
// each other just like two processes do.
func lockFile(f *os.File) error {
	for {
		err := unix.Flock(int(f.Fd()), unix.LOCK_EX)
		if err != unix.EINTR {
			return err
		}
	}
}

func unlockFile(f *os.File) error {
	return unix.Flock(int(f.Fd()), unix.LOCK_UN)
}

// syncDir flushes directory entries so a completed rename survives a crash.
func syncDir(dir string) error {
	d, err := os.Open(dir)
	if err != nil {
		return fmt.Errorf("%w: opening %s: %w", ErrStorageFailure, dir, err)
	}
	defer d.Close()
	if err := d.Sync(); err != nil {
		return fmt.Errorf("%w: syncing %s: %w", ErrStorageFailure, dir, err)
	}
	return nil
}
