// Package app wires configuration into the run modes: control, overlay,
// launch, replay and the setup helpers.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	"github.com/google/uuid"

	"warpvoice/internal/actuate"
	"warpvoice/internal/audio"
	"warpvoice/internal/clock"
	"warpvoice/internal/config"
	"warpvoice/internal/controller"
	"warpvoice/internal/hotkey"
	"warpvoice/internal/notify"
	"warpvoice/internal/override"
	"warpvoice/internal/policy"
	"warpvoice/internal/status"
)

// NewLogger returns a text logger on w at cfg.LogLevel. Any per-area debug
// switch lowers the level to debug.
func NewLogger(cfg config.Config, w io.Writer) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(cfg.LogLevel) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	if cfg.RECORD_DEBUG || cfg.HOTKEY_DEBUG || cfg.ACTUATE_DEBUG || cfg.STATUS_DEBUG {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// RunControlMode listens to the microphone and drives the target window
// until the session is aborted. Errors are startup failures.
func RunControlMode(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	alert := notify.Notifier(cfg.Notification, logger)

	var act policy.Actuator
	if cfg.DryRun {
		act = actuate.DryRun{Logger: logger}
	} else {
		path, err := config.ButtonConfigPath(&cfg)
		if err != nil {
			return err
		}
		pos, err := config.LoadButtonPosition(path, cfg.ButtonPath)
		if err != nil {
			return fmt.Errorf("%w (run with -set-button X,Y first)", err)
		}
		logger.Info("record button loaded", "file", path, "button", pos)

		desktop := actuate.NewDesktop(cfg, pos, logger)
		if err := desktop.FocusTarget(ctx); err != nil {
			return fmt.Errorf("cannot focus %q at start; ensure the terminal is visible: %w", cfg.WindowMatch, err)
		}
		act = desktop
	}

	sampler, err := audio.OpenDevice(audio.DeviceOptions{
		Device:     cfg.Device,
		SampleRate: cfg.SAMPLING_RATE,
		Channels:   cfg.Channels,
		FrameSize:  cfg.FrameSize,
		Debug:      cfg.RECORD_DEBUG,
		Logger:     logger,
	})
	if err != nil {
		return err
	}

	latch := override.NewLatch()
	stopKeys := listenKeys(cfg, latch, logger)
	defer stopKeys()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, ShutdownSignals()...)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case sig := <-sigCh:
			logger.Info("shutdown signal received", "signal", sig)
			latch.RequestAbort()
		case <-latch.Done():
		case <-ctx.Done():
		}
	}()

	var pub status.Publisher = status.Nop{}
	if cfg.StatusEnabled {
		client := status.NewClient(status.ClientOptions{
			Addr:    cfg.StatusAddr,
			Timeout: cfg.StatusTimeoutDuration(),
			Debug:   cfg.STATUS_DEBUG,
			Logger:  logger,
		})
		defer client.Close()
		pub = client
	}

	session := policy.NewSession(uuid.NewString(), clock.Real{}.Now())
	loop := controller.New(controller.Options{
		Sampler:       sampler,
		Latch:         latch,
		Policy:        policy.New(cfg.Params(), act),
		Publisher:     pub,
		Clock:         clock.Real{},
		Tick:          cfg.Tick(),
		ConfirmKey:    cfg.ConfirmKey,
		DegradedAfter: cfg.DegradedAfter,
		Notify:        alert,
		Logger:        logger,
		Debug:         cfg.RECORD_DEBUG,
	})

	logger.Info("ready; speak to start recording",
		"session", session.ID, "confirm", cfg.ConfirmKey, "abort", cfg.AbortKey, "dry_run", cfg.DryRun)
	alert(notify.AppName, "Voice control started")

	res, err := loop.Run(ctx, session)
	alert(notify.AppName, fmt.Sprintf("Voice control stopped after %d submissions", res.Cycles))
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// listenKeys starts the confirm/abort key listener. A missing listener is
// not fatal: signals still abort the session.
func listenKeys(cfg config.Config, latch *override.Latch, logger *slog.Logger) func() {
	handler := func(a hotkey.Action) {
		if cfg.HOTKEY_DEBUG {
			logger.Debug("key pressed", "action", a)
		}
		switch a {
		case hotkey.ActionConfirm:
			latch.RequestConfirm()
		case hotkey.ActionAbort:
			latch.RequestAbort()
		}
	}
	stop, err := hotkey.Listen(cfg.Keys(), cfg.HotKeyHook, handler, logger, cfg.HOTKEY_DEBUG)
	if err != nil {
		if errors.Is(err, hotkey.ErrNoTerminal) {
			logger.Warn("no key listener; use Ctrl+C or SIGTERM to stop", "error", err)
		} else {
			logger.Warn("key listener failed; use Ctrl+C or SIGTERM to stop", "error", err)
		}
		return func() {}
	}
	return stop
}
