//go:build windows

package app

import "os"

// ShutdownSignals returns the signals that abort the session.
func ShutdownSignals() []os.Signal {
	return []os.Signal{os.Interrupt}
}

// stopProcess terminates a child process. Windows has no SIGTERM.
func stopProcess(p *os.Process) error {
	return p.Kill()
}
