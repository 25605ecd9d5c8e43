//go:build !windows

package actuate

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strconv"
	"strings"
)

// x11Window drives X11 through xwininfo, wmctrl and xdotool.
type x11Window struct {
	logger *slog.Logger
	debug  bool
}

func newPlatformWindow(logger *slog.Logger, debug bool) Window {
	return &x11Window{logger: logger, debug: debug}
}

func (w *x11Window) run(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if w.debug {
		w.logger.Debug("exec", "cmd", name, "args", args, "error", err)
	}
	if err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s: %w", ErrAutomationUnavailable, name, err)
		}
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return nil, fmt.Errorf("%s: %w: %s", name, err, msg)
		}
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return out, nil
}

func (w *x11Window) Focus(ctx context.Context, match string) error {
	out, err := w.run(ctx, "xwininfo", "-tree", "-root")
	if err != nil {
		return err
	}
	id, ok := findWindowID(out, match)
	if !ok {
		return fmt.Errorf("%w: %q", ErrWindowNotFound, match)
	}
	_, err = w.run(ctx, "wmctrl", "-i", "-a", id)
	return err
}

// findWindowID returns the id column of the first xwininfo tree line that
// contains match.
func findWindowID(tree []byte, match string) (string, bool) {
	for _, line := range strings.Split(string(tree), "\n") {
		if !strings.Contains(line, match) {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) > 0 && strings.HasPrefix(fields[0], "0x") {
			return fields[0], true
		}
	}
	return "", false
}

func (w *x11Window) Click(ctx context.Context, x, y int) error {
	_, err := w.run(ctx, "xdotool", "mousemove", strconv.Itoa(x), strconv.Itoa(y), "click", "1")
	return err
}

var xdotoolKeys = map[string]string{
	"enter":     "Return",
	"return":    "Return",
	"space":     "space",
	"tab":       "Tab",
	"esc":       "Escape",
	"escape":    "Escape",
	"backspace": "BackSpace",
}

func (w *x11Window) PressKey(ctx context.Context, key string) error {
	_, err := w.run(ctx, "xdotool", "key", xdotoolKeyName(key))
	return err
}

// xdotoolKeyName converts "ctrl+enter" into "ctrl+Return".
func xdotoolKeyName(key string) string {
	parts := strings.Split(strings.ToLower(key), "+")
	for i, p := range parts {
		p = strings.TrimSpace(p)
		if name, ok := xdotoolKeys[p]; ok {
			p = name
		}
		parts[i] = p
	}
	return strings.Join(parts, "+")
}
