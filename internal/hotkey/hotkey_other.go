//go:build !windows && !linux && !darwin && !freebsd && !netbsd && !openbsd

package hotkey

import "log/slog"

// Listen is not supported on this platform.
func Listen(Keys, bool, func(Action), *slog.Logger, bool) (func(), error) {
	return nil, ErrNoTerminal
}
