//go:build windows

package state

import (
	"os"

	"golang.org/x/sys/windows"
)

// lockExclusive blocks until f holds an exclusive lock on its first byte.
func lockExclusive(f *os.File) (unlock func(), err error) {
	h := windows.Handle(f.Fd())
	var ol windows.Overlapped
	if err := windows.LockFileEx(h, windows.LOCKFILE_EXCLUSIVE_LOCK, 0, 1, 0, &ol); err != nil {
		return nil, err
	}
	return func() {
		var ol windows.Overlapped
		_ = windows.UnlockFileEx(h, 0, 1, 0, &ol)
	}, nil
}
