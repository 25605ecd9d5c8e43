//go:build linux || darwin || freebsd || netbsd || openbsd

package hotkey

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"

	"golang.org/x/sys/unix"
	"golang.org/x/term"
)

// Listen reads the confirm and abort keys from the controlling terminal,
// which is switched to cbreak mode (no line buffering, no echo) until the
// returned stop function is called. Ctrl+C still raises SIGINT. The hook
// flag only applies on Windows.
//
// A blocked read on stdin cannot be interrupted, so the reader goroutine
// lives until the next keypress or the end of input after stop. Keys read
// after stop are discarded.
func Listen(keys Keys, _ bool, handler func(Action), logger *slog.Logger, debug bool) (func(), error) {
	if logger == nil {
		logger = slog.Default()
	}

	matchers, err := terminalMatchers(keys)
	if err != nil {
		return nil, err
	}

	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return nil, ErrNoTerminal
	}
	saved, err := term.GetState(fd)
	if err != nil {
		return nil, fmt.Errorf("get terminal state: %w", err)
	}
	if err := cbreak(fd); err != nil {
		return nil, fmt.Errorf("set cbreak mode: %w", err)
	}

	var stopped atomic.Bool
	var once sync.Once
	stop := func() {
		once.Do(func() {
			stopped.Store(true)
			if err := term.Restore(fd, saved); err != nil {
				logger.Warn("terminal restore failed", "error", err)
			}
		})
	}

	go readKeys(os.Stdin, matchers, &stopped, handler, logger, debug)

	logger.Info("listening for keys on terminal", "confirm", keys.Confirm, "abort", keys.Abort)
	return stop, nil
}

type keyMatcher struct {
	action Action
	spec   Spec
}

func terminalMatchers(keys Keys) ([]keyMatcher, error) {
	var matchers []keyMatcher
	for _, b := range keys.bindings() {
		spec, err := ParseSpec(b.spec)
		if err != nil {
			return nil, fmt.Errorf("invalid key '%s': %w", b.spec, err)
		}
		if !spec.MatchesTerminal(terminalProbe(spec)) {
			return nil, fmt.Errorf("key '%s' cannot be read from a terminal", b.spec)
		}
		matchers = append(matchers, keyMatcher{action: b.action, spec: spec})
	}
	return matchers, nil
}

// readKeys dispatches key chunks read from r until a read fails or stopped
// is set.
func readKeys(r io.Reader, matchers []keyMatcher, stopped *atomic.Bool, handler func(Action), logger *slog.Logger, debug bool) {
	buf := make([]byte, 16)
	for {
		n, err := r.Read(buf)
		if stopped.Load() {
			if debug {
				logger.Debug("terminal key reader stopped")
			}
			return
		}
		if err != nil {
			if debug {
				logger.Debug("terminal key reader exiting", "error", err)
			}
			return
		}
		chunk := buf[:n]
		for _, m := range matchers {
			if m.spec.MatchesTerminal(chunk) {
				if debug {
					logger.Debug("terminal key", "action", m.action)
				}
				handler(m.action)
				break
			}
		}
	}
}

// terminalProbe returns the bytes a terminal sends for spec, or nil when it
// has no single-read encoding.
func terminalProbe(spec Spec) []byte {
	switch {
	case spec.Mods == ModCtrl && len(spec.Token) == 1:
		return []byte{spec.Token[0] & 0x1f}
	case spec.Mods != 0:
		return nil
	}
	switch spec.VK {
	case VK_ESCAPE:
		return []byte{0x1b}
	case VK_SPACE:
		return []byte{' '}
	case VK_RETURN:
		return []byte{'\r'}
	case VK_TAB:
		return []byte{'\t'}
	case VK_BACK:
		return []byte{0x7f}
	}
	if len(spec.Token) == 1 {
		return []byte(spec.Token)
	}
	return nil
}

func cbreak(fd int) error {
	t, err := unix.IoctlGetTermios(fd, ioctlReadTermios)
	if err != nil {
		return err
	}
	t.Lflag &^= unix.ICANON | unix.ECHO
	t.Cc[unix.VMIN] = 1
	t.Cc[unix.VTIME] = 0
	return unix.IoctlSetTermios(fd, ioctlWriteTermios, t)
}
