// Package actuate performs the external effects of policy commands: it
// focuses the target window, clicks the record control and presses the
// submit key.
package actuate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v5"

	"warpvoice/internal/clock"
	"warpvoice/internal/config"
	"warpvoice/internal/policy"
)

var (
	// ErrWindowNotFound is returned when no window matches the configured text.
	ErrWindowNotFound = errors.New("target window not found")
	// ErrAutomationUnavailable is returned when the platform automation tools
	// are missing. It is not retried.
	ErrAutomationUnavailable = errors.New("window automation unavailable")
)

// Window is the OS automation behind a Desktop.
type Window interface {
	// Focus raises the first window whose description contains match.
	Focus(ctx context.Context, match string) error
	// Click presses the left mouse button at a screen point.
	Click(ctx context.Context, x, y int) error
	// PressKey types a key by name. Used when no virtual keyboard exists.
	PressKey(ctx context.Context, key string) error
}

// KeyPresser synthesizes one key press.
type KeyPresser interface {
	Press() error
}

// Desktop implements policy.Actuator against a real window.
type Desktop struct {
	cfg    config.Config
	pos    config.ButtonPosition
	win    Window
	keys   KeyPresser
	clk    clock.Clock
	logger *slog.Logger
}

// NewDesktop wires the platform window automation and virtual keyboard.
// When the virtual keyboard cannot be created the submit key is typed
// through the window automation instead.
func NewDesktop(cfg config.Config, pos config.ButtonPosition, logger *slog.Logger) *Desktop {
	if logger == nil {
		logger = slog.Default()
	}
	win := newPlatformWindow(logger, cfg.ACTUATE_DEBUG)
	kb, err := NewVirtualKey(cfg.SubmitKey)
	if err != nil {
		logger.Warn("virtual keyboard unavailable; falling back to window automation", "key", cfg.SubmitKey, "error", err)
	}
	d := NewDesktopWith(cfg, pos, win, nil, clock.Real{}, logger)
	if kb != nil {
		d.keys = kb
	}
	return d
}

// NewDesktopWith builds a Desktop from explicit collaborators. A nil keys
// makes Submit go through win.PressKey.
func NewDesktopWith(cfg config.Config, pos config.ButtonPosition, win Window, keys KeyPresser, clk clock.Clock, logger *slog.Logger) *Desktop {
	if logger == nil {
		logger = slog.Default()
	}
	if clk == nil {
		clk = clock.Real{}
	}
	return &Desktop{cfg: cfg, pos: pos, win: win, keys: keys, clk: clk, logger: logger}
}

// Execute performs cmd. It returns an error when focus, click or key press
// failed, in which case the policy keeps its phase.
func (d *Desktop) Execute(ctx context.Context, cmd policy.Command) error {
	switch cmd {
	case policy.CommandNone:
		return nil
	case policy.CommandStartCapture, policy.CommandStopCapture:
		d.logger.Info("actuating", "command", cmd, "button", d.pos)
		if err := d.FocusTarget(ctx); err != nil {
			return err
		}
		return d.click(ctx)
	case policy.CommandSubmit:
		d.logger.Info("actuating", "command", cmd, "key", d.cfg.SubmitKey)
		if err := d.FocusTarget(ctx); err != nil {
			return err
		}
		if d.cfg.SubmitClick {
			if err := d.click(ctx); err != nil {
				return err
			}
		}
		return d.pressSubmit(ctx)
	default:
		return fmt.Errorf("unknown command %d", cmd)
	}
}

// FocusTarget focuses the target window, retrying with a constant backoff,
// then waits for the window manager to settle.
func (d *Desktop) FocusTarget(ctx context.Context) error {
	attempt := 0
	op := func() (struct{}, error) {
		attempt++
		err := d.win.Focus(ctx, d.cfg.WindowMatch)
		if errors.Is(err, ErrAutomationUnavailable) {
			return struct{}{}, backoff.Permanent(err)
		}
		return struct{}{}, err
	}
	_, err := backoff.Retry(ctx, op,
		backoff.WithBackOff(backoff.NewConstantBackOff(d.cfg.FocusBackoffDuration())),
		backoff.WithMaxTries(uint(max(d.cfg.FocusRetries, 1))),
		backoff.WithNotify(func(err error, next time.Duration) {
			if d.cfg.ACTUATE_DEBUG {
				d.logger.Debug("focus failed; retrying", "attempt", attempt, "next", next, "error", err)
			}
		}),
	)
	if err != nil {
		d.logger.Warn("failed to focus target window", "match", d.cfg.WindowMatch, "attempts", attempt, "error", err)
		return fmt.Errorf("focus %q: %w", d.cfg.WindowMatch, err)
	}
	if d.cfg.ACTUATE_DEBUG {
		d.logger.Debug("target focused", "match", d.cfg.WindowMatch, "attempts", attempt)
	}
	return d.clk.Sleep(ctx, d.cfg.FocusSettleDuration())
}

func (d *Desktop) click(ctx context.Context) error {
	if err := d.win.Click(ctx, d.pos.X, d.pos.Y); err != nil {
		d.logger.Warn("click failed", "button", d.pos, "error", err)
		return fmt.Errorf("click %s: %w", d.pos, err)
	}
	return d.clk.Sleep(ctx, d.cfg.ClickDelayDuration())
}

func (d *Desktop) pressSubmit(ctx context.Context) error {
	var err error
	if d.keys != nil {
		err = d.keys.Press()
	} else {
		err = d.win.PressKey(ctx, d.cfg.SubmitKey)
	}
	if err != nil {
		d.logger.Warn("submit key failed", "key", d.cfg.SubmitKey, "error", err)
		return fmt.Errorf("press %s: %w", d.cfg.SubmitKey, err)
	}
	return nil
}
