//go:build !windows

package cmd

import (
	"os"
	"syscall"
)

// shutdownSignals are the signals that stop the server gracefully.
func shutdownSignals() []os.Signal {
	return []os.Signal{syscall.SIGINT, syscall.SIGTERM}
}

// alive probes the process with signal 0.
func alive(proc *os.Process) bool {
	return proc.Signal(syscall.Signal(0)) == nil
}

// requestStop asks the server to drain and exit.
func requestStop(proc *os.Process) error {
	return proc.Signal(syscall.SIGTERM)
}
