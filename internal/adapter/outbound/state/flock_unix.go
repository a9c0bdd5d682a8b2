//go:build !windows

package state

import (
	"os"
	"syscall"
)

// lockExclusive blocks until f holds an exclusive advisory lock.
func lockExclusive(f *os.File) (unlock func(), err error) {
	fd := int(f.Fd())
	if err := syscall.Flock(fd, syscall.LOCK_EX); err != nil {
		return nil, err
	}
	return func() { _ = syscall.Flock(fd, syscall.LOCK_UN) }, nil
}
