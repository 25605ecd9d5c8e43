package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"warpvoice/internal/actuate"
	"warpvoice/internal/audio"
	"warpvoice/internal/clock"
	"warpvoice/internal/config"
	"warpvoice/internal/controller"
	"warpvoice/internal/overlay"
	"warpvoice/internal/override"
	"warpvoice/internal/policy"
)

// overlayStartup is how long launch mode waits for the overlay to bind.
const overlayStartup = 2 * time.Second

// RunOverlayMode shows the status overlay until the user quits it.
func RunOverlayMode(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	return overlay.Run(ctx, overlay.Options{
		Addr:       cfg.StatusAddr,
		ConfirmKey: cfg.ConfirmKey,
		AbortKey:   cfg.AbortKey,
		Logger:     logger,
		Debug:      cfg.STATUS_DEBUG,
	})
}

// OverlayCommand builds the command that starts this program in overlay
// mode, prefixed by cfg.OverlayTerminal so it opens in its own window.
func OverlayCommand(cfg config.Config, self, configPath string) (string, []string) {
	args := strings.Fields(cfg.OverlayTerminal)
	args = append(args, self, "-overlay", "-status-addr", cfg.StatusAddr)
	if configPath != "" {
		args = append(args, "-config", configPath)
	}
	return args[0], args[1:]
}

// RunLaunchMode starts the overlay in a separate process, then runs the
// controller. The overlay is stopped when the controller returns.
func RunLaunchMode(ctx context.Context, cfg config.Config, configPath string, logger *slog.Logger) error {
	self, err := os.Executable()
	if err != nil {
		return fmt.Errorf("locate executable: %w", err)
	}
	name, args := OverlayCommand(cfg, self, configPath)
	cmd := exec.CommandContext(ctx, name, args...)
	if err := cmd.Start(); err != nil {
		logger.Warn("overlay not started; continuing without it", "command", name, "error", err)
		return RunControlMode(ctx, cfg, logger)
	}
	logger.Info("overlay started", "pid", cmd.Process.Pid)

	done := make(chan struct{})
	go func() {
		_ = cmd.Wait()
		close(done)
	}()
	defer func() {
		select {
		case <-done:
			return
		default:
		}
		if err := stopProcess(cmd.Process); err != nil && !errors.Is(err, os.ErrProcessDone) {
			logger.Debug("overlay stop failed", "error", err)
		}
		select {
		case <-done:
		case <-time.After(time.Second):
			_ = cmd.Process.Kill()
		}
	}()

	if err := (clock.Real{}).Sleep(ctx, overlayStartup); err != nil {
		return nil
	}
	return RunControlMode(ctx, cfg, logger)
}

// RunReplayMode runs the policy over a recorded WAV file with a logical
// clock and dry-run actuation, writing the transition log and the final
// cycle count to w.
func RunReplayMode(ctx context.Context, cfg config.Config, path string, w io.Writer, logger *slog.Logger) (controller.Result, error) {
	clk := clock.NewManual(time.Unix(0, 0).UTC())
	sampler, err := audio.OpenWAV(path, cfg.Tick(), clk)
	if err != nil {
		return controller.Result{}, err
	}

	session := policy.NewSession("replay", clk.Now())
	start := clk.Now()
	loop := controller.New(controller.Options{
		Sampler:       sampler,
		Latch:         override.NewLatch(),
		Policy:        policy.New(cfg.Params(), actuate.DryRun{Logger: logger}),
		Clock:         clk,
		Tick:          cfg.Tick(),
		ConfirmKey:    cfg.ConfirmKey,
		DegradedAfter: cfg.DegradedAfter,
		Logger:        logger,
		Debug:         cfg.RECORD_DEBUG,
		OnTransition: func(ev controller.Event) {
			fmt.Fprintf(w, "tick %5d  %7.2fs  %s\n", ev.Tick, ev.At.Sub(start).Seconds(), ev.Transition)
		},
	})

	res, err := loop.Run(ctx, session)
	if err != nil {
		return res, err
	}
	fmt.Fprintf(w, "cycles: %d\n", res.Cycles)
	return res, nil
}

// ParseButtonPosition parses "X,Y".
func ParseButtonPosition(s string) (config.ButtonPosition, error) {
	xs, ys, ok := strings.Cut(s, ",")
	if !ok {
		return config.ButtonPosition{}, fmt.Errorf("button position %q: want X,Y", s)
	}
	x, err := strconv.Atoi(strings.TrimSpace(xs))
	if err != nil || x < 0 {
		return config.ButtonPosition{}, fmt.Errorf("button position %q: invalid x", s)
	}
	y, err := strconv.Atoi(strings.TrimSpace(ys))
	if err != nil || y < 0 {
		return config.ButtonPosition{}, fmt.Errorf("button position %q: invalid y", s)
	}
	return config.ButtonPosition{X: x, Y: y}, nil
}

// RunSetButton stores the record button position given as "X,Y".
func RunSetButton(cfg config.Config, spec string, w io.Writer) error {
	pos, err := ParseButtonPosition(spec)
	if err != nil {
		return err
	}
	path, err := config.ButtonConfigPath(&cfg)
	if err != nil {
		return err
	}
	if err := config.SaveButtonPosition(path, cfg.ButtonPath, pos); err != nil {
		return err
	}
	fmt.Fprintf(w, "record button %s saved to %s (%s)\n", pos, path, cfg.ButtonPath)
	return nil
}

// ListDevices prints the audio input devices.
func ListDevices(w io.Writer) error {
	devices, err := audio.ListDevices()
	if err != nil {
		return err
	}
	for _, d := range devices {
		mark := " "
		if d.Default {
			mark = "*"
		}
		fmt.Fprintf(w, "%s %-40s  channels=%d  rate=%.0f\n", mark, d.Name, d.MaxInputChannels, d.DefaultSampleRate)
	}
	return nil
}
