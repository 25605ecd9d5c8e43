package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"warpvoice/internal/app"
	"warpvoice/internal/config"
)

const defaultConfigPath = "config.json"

func usage() {
	programName := filepath.Base(os.Args[0])
	fmt.Fprintf(os.Stderr, `Usage: %s [options]

Hands-free voice control for a terminal application: speaking starts its
recording, silence stops it, and the recording is submitted after a
confirmation window unless you keep talking.

Modes:
  (default)             run the controller
  -launch               open the status overlay in a new terminal, then run the controller
  -overlay              run only the status overlay
  -file <path.wav>      replay a recording through the controller (dry run, logical clock)
  -set-button <X,Y>     save the screen position of the record button
  -devices              list audio input devices

[Configuration file]
  -config <string>
        config JSON; when omitted ./config.json is read, and created with
        defaults (then exit) if it does not exist and no flags are given.
        Every key can also be set through the environment as %sKEY.

[Voice activity]
  -silence-threshold <float>     RMS level counted as sound. Default: 0.012
  -silence-duration <float>      seconds of silence that stop recording. Default: 3
  -confirmation-timeout <float>  seconds before the recording is submitted. Default: 10
  -start-ticks <int>             loud ticks needed to start recording. Default: 2
  -resume-ticks <int>            loud ticks needed to resume during confirmation. Default: 2
  -tick-interval <float>         seconds between ticks. Default: 0.05
  -degraded-after <int>          frame failures before audio is reported degraded. Default: 3

[Audio input]
  -sampling-rate <int>   Default: 44100
  -channels <int>        Default: 1
  -frame-size <int>      Default: 512
  -device <string>       input device name substring (see -devices)

[Target window]
  -window-match <string>   text identifying the window. Default: dev.warp.Warp
  -focus-retries <int>     Default: 3
  -focus-backoff <float>   Default: 0.2
  -focus-settle <float>    Default: 0.5
  -click-delay <float>     Default: 0.2
  -submit-key <string>     Default: enter
  -submit-click            click the record button before the submit key
  -button-config <string>  Default: ~/%s
  -button-path <string>    JSON path of the {x,y} object. Default: record_button

[Keys]
  -confirm-key <string>  submit the confirmation now. Default: space
  -abort-key <string>    end the session. Default: esc
  -hotkeyhook            use the low-level keyboard hook on Windows. Default: true

[Status overlay]
  -status                 publish status. Default: true
  -status-addr <string>   Default: 127.0.0.1:12345
  -status-timeout <float> Default: 0.1
  -overlay-terminal <string>

[Misc]
  -notification  -dry-run  -log-level <debug|info|warn|error>
  -record-debug  -hotkey-debug  -actuate-debug  -status-debug

  -h, -help, -?  show help
`, programName, config.EnvPrefix, config.ButtonFileName)
}

func main() {
	os.Exit(run())
}

func run() int {
	fs := flag.NewFlagSet(os.Args[0], flag.ContinueOnError)
	fs.Usage = usage

	var (
		configPath string
		replayPath string
		setButton  string
	)
	fs.StringVar(&configPath, "config", "", "path to config JSON")
	overlayMode := fs.Bool("overlay", false, "run the status overlay")
	launchMode := fs.Bool("launch", false, "run the overlay and the controller")
	fs.StringVar(&replayPath, "file", "", "replay a WAV file")
	listDevices := fs.Bool("devices", false, "list audio input devices")
	fs.StringVar(&setButton, "set-button", "", "save the record button position X,Y")
	help := fs.Bool("h", false, "show help")
	help2 := fs.Bool("help", false, "show help")
	help3 := fs.Bool("?", false, "show help")
	fv := config.BindFlags(fs)

	if err := fs.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 1
	}
	if *help || *help2 || *help3 {
		usage()
		return 0
	}

	if *listDevices {
		if err := app.ListDevices(os.Stdout); err != nil {
			fmt.Fprintf(os.Stderr, "[main] list devices failed: %v\n", err)
			return 1
		}
		return 0
	}

	modeGiven := *overlayMode || *launchMode || replayPath != "" || setButton != ""
	cfg, created, err := loadConfig(configPath, fv.AnySet() || modeGiven)
	if err != nil {
		fmt.Fprintf(os.Stderr, "[main] %v\n", err)
		return 1
	}
	if created {
		fmt.Printf("[main] default config created at %s. Please edit it and re-run.\n", defaultConfigPath)
		return 0
	}

	if err := config.ApplyEnv(&cfg); err != nil {
		fmt.Fprintf(os.Stderr, "[main] %v\n", err)
		return 1
	}
	config.ApplyFlags(&cfg, fv)
	if err := config.Validate(&cfg); err != nil {
		fmt.Fprintf(os.Stderr, "[main] %v\n", err)
		return 1
	}

	logger := app.NewLogger(cfg, os.Stderr)
	slog.SetDefault(logger)
	ctx := context.Background()

	switch {
	case setButton != "":
		err = app.RunSetButton(cfg, setButton, os.Stdout)
	case replayPath != "":
		_, err = app.RunReplayMode(ctx, cfg, replayPath, os.Stdout, logger)
	case *overlayMode:
		err = app.RunOverlayMode(ctx, cfg, logger)
	case *launchMode:
		err = app.RunLaunchMode(ctx, cfg, configPath, logger)
	default:
		err = app.RunControlMode(ctx, cfg, logger)
	}
	if err != nil {
		logger.Error("exiting", "error", err)
		return 1
	}
	return 0
}

// loadConfig reads -config, else ./config.json. When neither exists and
// nothing was given on the command line, a default config.json is written
// and created is true.
func loadConfig(path string, anyFlag bool) (cfg config.Config, created bool, err error) {
	if path != "" {
		cfg, err = config.Load(path)
		if err != nil {
			return cfg, false, fmt.Errorf("failed to load config '%s': %w", path, err)
		}
		return cfg, false, nil
	}

	_, statErr := os.Stat(defaultConfigPath)
	switch {
	case statErr == nil:
		cfg, err = config.Load(defaultConfigPath)
		if err != nil {
			return cfg, false, fmt.Errorf("failed to load existing %s: %w", defaultConfigPath, err)
		}
		return cfg, false, nil
	case !os.IsNotExist(statErr):
		return cfg, false, fmt.Errorf("failed to stat %s: %w", defaultConfigPath, statErr)
	case anyFlag:
		return config.DefaultConfig(), false, nil
	default:
		if err := config.SaveDefault(defaultConfigPath); err != nil {
			return cfg, false, fmt.Errorf("failed to write default config: %w", err)
		}
		return cfg, true, nil
	}
}
