//go:build !windows

package app

import (
	"os"
	"syscall"
)

// ShutdownSignals returns the signals that abort the session.
func ShutdownSignals() []os.Signal {
	return []os.Signal{syscall.SIGINT, syscall.SIGTERM}
}

// stopProcess asks a child process to exit.
func stopProcess(p *os.Process) error {
	return p.Signal(syscall.SIGTERM)
}
