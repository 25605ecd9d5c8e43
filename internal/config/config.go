package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"os"
	"reflect"
	"runtime"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"

	"warpvoice/internal/hotkey"
	"warpvoice/internal/policy"
)

// EnvPrefix prefixes every environment override, e.g. WARPVOICE_SILENCE_THRESHOLD.
const EnvPrefix = "WARPVOICE_"

// Config holds configurable parameters. Durations are seconds.
type Config struct {
	SilenceThreshold    float64 `json:"SILENCE_THRESHOLD" env:"SILENCE_THRESHOLD" validate:"gt=0,lt=1"`
	SilenceDuration     float64 `json:"SILENCE_DURATION" env:"SILENCE_DURATION" validate:"gt=0"`
	ConfirmationTimeout float64 `json:"CONFIRMATION_TIMEOUT" env:"CONFIRMATION_TIMEOUT" validate:"gtfield=SilenceDuration"`
	StartTicks          int     `json:"START_TICKS" env:"START_TICKS" validate:"min=1,max=100"`
	ResumeTicks         int     `json:"RESUME_TICKS" env:"RESUME_TICKS" validate:"min=1,max=100"`
	TickInterval        float64 `json:"TICK_INTERVAL" env:"TICK_INTERVAL" validate:"gt=0,lte=1"`
	DegradedAfter       int     `json:"DEGRADED_AFTER" env:"DEGRADED_AFTER" validate:"min=1"`

	SAMPLING_RATE int    `json:"SAMPLING_RATE" env:"SAMPLING_RATE" validate:"min=8000,max=192000"`
	Channels      int    `json:"CHANNELS" env:"CHANNELS" validate:"min=1,max=8"`
	FrameSize     int    `json:"FRAME_SIZE" env:"FRAME_SIZE" validate:"min=64,max=16384"`
	Device        string `json:"DEVICE" env:"DEVICE"`

	WindowMatch  string  `json:"WINDOW_MATCH" env:"WINDOW_MATCH" validate:"required"`
	FocusRetries int     `json:"FOCUS_RETRIES" env:"FOCUS_RETRIES" validate:"min=1,max=20"`
	FocusBackoff float64 `json:"FOCUS_BACKOFF" env:"FOCUS_BACKOFF" validate:"gte=0,lte=5"`
	FocusSettle  float64 `json:"FOCUS_SETTLE" env:"FOCUS_SETTLE" validate:"gte=0,lte=5"`
	ClickDelay   float64 `json:"CLICK_DELAY" env:"CLICK_DELAY" validate:"gte=0,lte=5"`
	SubmitKey    string  `json:"SUBMIT_KEY" env:"SUBMIT_KEY" validate:"required"`
	SubmitClick  bool    `json:"SUBMIT_CLICK" env:"SUBMIT_CLICK"`

	ConfirmKey string `json:"CONFIRM_KEY" env:"CONFIRM_KEY" validate:"required"`
	AbortKey   string `json:"ABORT_KEY" env:"ABORT_KEY" validate:"required,nefield=ConfirmKey"`
	HotKeyHook bool   `json:"HOTKEY_HOOK" env:"HOTKEY_HOOK"`

	ButtonConfig string `json:"BUTTON_CONFIG" env:"BUTTON_CONFIG"`
	ButtonPath   string `json:"BUTTON_PATH" env:"BUTTON_PATH" validate:"required"`

	StatusEnabled   bool    `json:"STATUS_ENABLED" env:"STATUS_ENABLED"`
	StatusAddr      string  `json:"STATUS_ADDR" env:"STATUS_ADDR" validate:"required,hostname_port"`
	StatusTimeout   float64 `json:"STATUS_TIMEOUT" env:"STATUS_TIMEOUT" validate:"gt=0,lte=5"`
	OverlayTerminal string  `json:"OVERLAY_TERMINAL" env:"OVERLAY_TERMINAL"`

	Notification bool   `json:"NOTIFICATION" env:"NOTIFICATION"`
	DryRun       bool   `json:"DRY_RUN" env:"DRY_RUN"`
	LogLevel     string `json:"LOG_LEVEL" env:"LOG_LEVEL" validate:"oneof=debug info warn error"`

	RECORD_DEBUG  bool `json:"RECORD_DEBUG" env:"RECORD_DEBUG"`
	HOTKEY_DEBUG  bool `json:"HOTKEY_DEBUG" env:"HOTKEY_DEBUG"`
	ACTUATE_DEBUG bool `json:"ACTUATE_DEBUG" env:"ACTUATE_DEBUG"`
	STATUS_DEBUG  bool `json:"STATUS_DEBUG" env:"STATUS_DEBUG"`
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	p := policy.DefaultParams()
	return Config{
		SilenceThreshold:    p.SilenceThreshold,
		SilenceDuration:     p.SilenceDuration.Seconds(),
		ConfirmationTimeout: p.ConfirmationTimeout.Seconds(),
		StartTicks:          p.StartTicks,
		ResumeTicks:         p.ResumeTicks,
		TickInterval:        0.05,
		DegradedAfter:       3,
		SAMPLING_RATE:       44100,
		Channels:            1,
		FrameSize:           512,
		Device:              "",
		WindowMatch:         "dev.warp.Warp",
		FocusRetries:        3,
		FocusBackoff:        0.2,
		FocusSettle:         0.5,
		ClickDelay:          0.2,
		SubmitKey:           "enter",
		SubmitClick:         false,
		ConfirmKey:          "space",
		AbortKey:            "esc",
		// the hook observes keys; RegisterHotKey would take space from every application
		HotKeyHook:      true,
		ButtonConfig:    "",
		ButtonPath:      "record_button",
		StatusEnabled:   true,
		StatusAddr:      "127.0.0.1:12345",
		StatusTimeout:   0.1,
		OverlayTerminal: defaultOverlayTerminal(),
		Notification:    false,
		DryRun:          false,
		LogLevel:        "info",
		RECORD_DEBUG:    false,
		HOTKEY_DEBUG:    false,
		ACTUATE_DEBUG:   false,
		STATUS_DEBUG:    false,
	}
}

func defaultOverlayTerminal() string {
	if runtime.GOOS == "windows" {
		return "cmd /c start"
	}
	return "x-terminal-emulator -e"
}

// Load loads config from JSON file if provided.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return cfg, err
	}
	defer f.Close()
	dec := json.NewDecoder(f)
	if err := dec.Decode(&cfg); err != nil {
		return cfg, fmt.Errorf("decode %s: %w", path, err)
	}
	return cfg, nil
}

// SaveDefault writes a default config JSON to the provided path.
func SaveDefault(path string) error {
	cfg := DefaultConfig()
	b, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0644)
}

// ApplyEnv overrides cfg with any WARPVOICE_* variables that are set.
func ApplyEnv(cfg *Config) error {
	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		return strings.Split(f.Tag.Get("json"), ",")[0]
	})
	return v
}

// Validate verifies config fields and returns an error if any value is invalid.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s %s", fe.Field(), formatValidationMessage(fe)))
			}
			return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid config: %w", err)
	}

	if err := cfg.Keys().Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if _, err := hotkey.ParseSpec(cfg.SubmitKey); err != nil {
		return fmt.Errorf("invalid config: SUBMIT_KEY: %w", err)
	}
	if host, _, _ := net.SplitHostPort(cfg.StatusAddr); !isLoopback(host) {
		return fmt.Errorf("invalid config: STATUS_ADDR %s must be a loopback address", cfg.StatusAddr)
	}
	if err := cfg.Params().Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

func isLoopback(host string) bool {
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

// formatValidationMessage creates a human-readable message from a validator error.
func formatValidationMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "is required"
	case "min":
		return fmt.Sprintf("must be at least %s", e.Param())
	case "max":
		return fmt.Sprintf("must be at most %s", e.Param())
	case "gt":
		return fmt.Sprintf("must be greater than %s", e.Param())
	case "gte":
		return fmt.Sprintf("must be greater than or equal to %s", e.Param())
	case "lt":
		return fmt.Sprintf("must be less than %s", e.Param())
	case "lte":
		return fmt.Sprintf("must be less than or equal to %s", e.Param())
	case "gtfield":
		return fmt.Sprintf("must be greater than %s", jsonName(e.Param()))
	case "nefield":
		return fmt.Sprintf("must differ from %s", jsonName(e.Param()))
	case "oneof":
		return fmt.Sprintf("must be one of: %s", e.Param())
	case "hostname_port":
		return "must be host:port"
	default:
		return fmt.Sprintf("failed validation '%s'", e.Tag())
	}
}

// jsonName maps a Config field name to its JSON key.
func jsonName(field string) string {
	if f, ok := reflect.TypeOf(Config{}).FieldByName(field); ok {
		return strings.Split(f.Tag.Get("json"), ",")[0]
	}
	return field
}

func seconds(f float64) time.Duration {
	return time.Duration(f * float64(time.Second))
}

// Params returns the policy tuning.
func (c Config) Params() policy.Params {
	return policy.Params{
		SilenceThreshold:    c.SilenceThreshold,
		SilenceDuration:     seconds(c.SilenceDuration),
		ConfirmationTimeout: seconds(c.ConfirmationTimeout),
		StartTicks:          c.StartTicks,
		ResumeTicks:         c.ResumeTicks,
	}
}

// Tick returns the loop interval.
func (c Config) Tick() time.Duration { return seconds(c.TickInterval) }

// FocusBackoffDuration returns the delay between focus attempts.
func (c Config) FocusBackoffDuration() time.Duration { return seconds(c.FocusBackoff) }

// FocusSettleDuration returns the wait after a successful focus.
func (c Config) FocusSettleDuration() time.Duration { return seconds(c.FocusSettle) }

// ClickDelayDuration returns the wait after a click.
func (c Config) ClickDelayDuration() time.Duration { return seconds(c.ClickDelay) }

// StatusTimeoutDuration returns the status connect timeout.
func (c Config) StatusTimeoutDuration() time.Duration { return seconds(c.StatusTimeout) }

// Keys returns the override key bindings.
func (c Config) Keys() hotkey.Keys {
	return hotkey.Keys{Confirm: c.ConfirmKey, Abort: c.AbortKey}
}
