package config

import (
	"flag"
	"fmt"
	"strconv"
	"strings"
)

// FlagValues holds parsed flags with explicit set tracking.
type FlagValues struct {
	SilenceThreshold       float64
	SilenceThresholdSet    bool
	SilenceDuration        float64
	SilenceDurationSet     bool
	ConfirmationTimeout    float64
	ConfirmationTimeoutSet bool
	StartTicks             int
	StartTicksSet          bool
	ResumeTicks            int
	ResumeTicksSet         bool
	TickInterval           float64
	TickIntervalSet        bool
	DegradedAfter          int
	DegradedAfterSet       bool
	SAMPLING_RATE          int
	SAMPLING_RATESet       bool
	Channels               int
	ChannelsSet            bool
	FrameSize              int
	FrameSizeSet           bool
	Device                 string
	DeviceSet              bool
	WindowMatch            string
	WindowMatchSet         bool
	FocusRetries           int
	FocusRetriesSet        bool
	FocusBackoff           float64
	FocusBackoffSet        bool
	FocusSettle            float64
	FocusSettleSet         bool
	ClickDelay             float64
	ClickDelaySet          bool
	SubmitKey              string
	SubmitKeySet           bool
	SubmitClick            bool
	SubmitClickSet         bool
	ConfirmKey             string
	ConfirmKeySet          bool
	AbortKey               string
	AbortKeySet            bool
	HotKeyHook             bool
	HotKeyHookSet          bool
	ButtonConfig           string
	ButtonConfigSet        bool
	ButtonPath             string
	ButtonPathSet          bool
	StatusEnabled          bool
	StatusEnabledSet       bool
	StatusAddr             string
	StatusAddrSet          bool
	StatusTimeout          float64
	StatusTimeoutSet       bool
	OverlayTerminal        string
	OverlayTerminalSet     bool
	Notification           bool
	NotificationSet        bool
	DryRun                 bool
	DryRunSet              bool
	LogLevel               string
	LogLevelSet            bool
	RECORD_DEBUG           bool
	RECORD_DEBUGSet        bool
	HOTKEY_DEBUG           bool
	HOTKEY_DEBUGSet        bool
	ACTUATE_DEBUG          bool
	ACTUATE_DEBUGSet       bool
	STATUS_DEBUG           bool
	STATUS_DEBUGSet        bool
}

type stringFlag struct {
	target *string
	set    *bool
}

func (s *stringFlag) String() string {
	if s == nil || s.target == nil {
		return ""
	}
	return *s.target
}

func (s *stringFlag) Set(v string) error {
	if s.target != nil {
		*s.target = v
	}
	if s.set != nil {
		*s.set = true
	}
	return nil
}

type intFlag struct {
	target *int
	set    *bool
}

func (i *intFlag) String() string {
	if i == nil || i.target == nil {
		return ""
	}
	return fmt.Sprintf("%d", *i.target)
}

func (i *intFlag) Set(v string) error {
	n, err := strconv.Atoi(v)
	if err != nil {
		return err
	}
	if i.target != nil {
		*i.target = n
	}
	if i.set != nil {
		*i.set = true
	}
	return nil
}

type floatFlag struct {
	target *float64
	set    *bool
}

func (f *floatFlag) String() string {
	if f == nil || f.target == nil {
		return ""
	}
	return fmt.Sprintf("%v", *f.target)
}

func (f *floatFlag) Set(v string) error {
	n, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return err
	}
	if f.target != nil {
		*f.target = n
	}
	if f.set != nil {
		*f.set = true
	}
	return nil
}

type boolFlag struct {
	target *bool
	set    *bool
}

func (b *boolFlag) String() string {
	if b == nil || b.target == nil {
		return ""
	}
	return fmt.Sprintf("%v", *b.target)
}

// IsBoolFlag lets "-dry-run" stand for "-dry-run=true".
func (b *boolFlag) IsBoolFlag() bool { return true }

func parseBoolExt(v string) (bool, error) {
	v = strings.ToLower(strings.TrimSpace(v))
	switch v {
	case "1", "true", "yes", "y":
		return true, nil
	case "0", "false", "no", "n":
		return false, nil
	}
	return false, fmt.Errorf("invalid boolean: %s", v)
}

func (b *boolFlag) Set(v string) error {
	n, err := parseBoolExt(v)
	if err != nil {
		return err
	}
	if b.target != nil {
		*b.target = n
	}
	if b.set != nil {
		*b.set = true
	}
	return nil
}

// BindFlags registers all flags and returns the populated FlagValues.
func BindFlags(fs *flag.FlagSet) *FlagValues {
	fv := &FlagValues{}

	fs.Var(&floatFlag{&fv.SilenceThreshold, &fv.SilenceThresholdSet}, "silence-threshold", "RMS level a frame must exceed to count as sound (0..1)")
	fs.Var(&floatFlag{&fv.SilenceDuration, &fv.SilenceDurationSet}, "silence-duration", "seconds of silence that stop recording")
	fs.Var(&floatFlag{&fv.ConfirmationTimeout, &fv.ConfirmationTimeoutSet}, "confirmation-timeout", "seconds before an open confirmation auto-submits")
	fs.Var(&intFlag{&fv.StartTicks, &fv.StartTicksSet}, "start-ticks", "consecutive loud ticks that start recording")
	fs.Var(&intFlag{&fv.ResumeTicks, &fv.ResumeTicksSet}, "resume-ticks", "consecutive loud ticks that resume recording during confirmation")
	fs.Var(&floatFlag{&fv.TickInterval, &fv.TickIntervalSet}, "tick-interval", "seconds between ticks")
	fs.Var(&intFlag{&fv.DegradedAfter, &fv.DegradedAfterSet}, "degraded-after", "consecutive frame failures before audio is reported degraded")

	fs.Var(&intFlag{&fv.SAMPLING_RATE, &fv.SAMPLING_RATESet}, "sampling-rate", "sampling rate (Hz)")
	fs.Var(&intFlag{&fv.Channels, &fv.ChannelsSet}, "channels", "channels (int)")
	fs.Var(&intFlag{&fv.FrameSize, &fv.FrameSizeSet}, "frame-size", "frames per read")
	fs.Var(&stringFlag{&fv.Device, &fv.DeviceSet}, "device", "input device name substring (empty for default)")

	fs.Var(&stringFlag{&fv.WindowMatch, &fv.WindowMatchSet}, "window-match", "text identifying the target window")
	fs.Var(&intFlag{&fv.FocusRetries, &fv.FocusRetriesSet}, "focus-retries", "focus attempts per actuation")
	fs.Var(&floatFlag{&fv.FocusBackoff, &fv.FocusBackoffSet}, "focus-backoff", "seconds between focus attempts")
	fs.Var(&floatFlag{&fv.FocusSettle, &fv.FocusSettleSet}, "focus-settle", "seconds to wait after focusing")
	fs.Var(&floatFlag{&fv.ClickDelay, &fv.ClickDelaySet}, "click-delay", "seconds to wait after a click")
	fs.Var(&stringFlag{&fv.SubmitKey, &fv.SubmitKeySet}, "submit-key", "key pressed to submit")
	fs.Var(&boolFlag{&fv.SubmitClick, &fv.SubmitClickSet}, "submit-click", "click the record control before the submit key (true/false)")

	fs.Var(&stringFlag{&fv.ConfirmKey, &fv.ConfirmKeySet}, "confirm-key", "confirm-now key")
	fs.Var(&stringFlag{&fv.AbortKey, &fv.AbortKeySet}, "abort-key", "abort key")
	fs.Var(&boolFlag{&fv.HotKeyHook, &fv.HotKeyHookSet}, "hotkeyhook", "use low-level keyboard hook (true/false)")

	fs.Var(&stringFlag{&fv.ButtonConfig, &fv.ButtonConfigSet}, "button-config", "button position JSON file (default ~/.warp_controller_config.json)")
	fs.Var(&stringFlag{&fv.ButtonPath, &fv.ButtonPathSet}, "button-path", "path of the {x,y} object inside the button file")

	fs.Var(&boolFlag{&fv.StatusEnabled, &fv.StatusEnabledSet}, "status", "publish status to the overlay (true/false)")
	fs.Var(&stringFlag{&fv.StatusAddr, &fv.StatusAddrSet}, "status-addr", "overlay status address (host:port)")
	fs.Var(&floatFlag{&fv.StatusTimeout, &fv.StatusTimeoutSet}, "status-timeout", "status connect timeout seconds")
	fs.Var(&stringFlag{&fv.OverlayTerminal, &fv.OverlayTerminalSet}, "overlay-terminal", "command prefix that opens the overlay in a new terminal")

	fs.Var(&boolFlag{&fv.Notification, &fv.NotificationSet}, "notification", "enable notifications (true/false)")
	fs.Var(&boolFlag{&fv.DryRun, &fv.DryRunSet}, "dry-run", "log actuation instead of clicking and typing (true/false)")
	fs.Var(&stringFlag{&fv.LogLevel, &fv.LogLevelSet}, "log-level", "log level (debug, info, warn, error)")
	fs.Var(&boolFlag{&fv.RECORD_DEBUG, &fv.RECORD_DEBUGSet}, "record-debug", "enable record debug output (true/false)")
	fs.Var(&boolFlag{&fv.HOTKEY_DEBUG, &fv.HOTKEY_DEBUGSet}, "hotkey-debug", "enable hotkey debug output (true/false)")
	fs.Var(&boolFlag{&fv.ACTUATE_DEBUG, &fv.ACTUATE_DEBUGSet}, "actuate-debug", "enable actuation debug output (true/false)")
	fs.Var(&boolFlag{&fv.STATUS_DEBUG, &fv.STATUS_DEBUGSet}, "status-debug", "enable status debug output (true/false)")

	return fv
}

// ApplyFlags applies present flags to the config.
func ApplyFlags(cfg *Config, fv *FlagValues) {
	if fv.SilenceThresholdSet {
		cfg.SilenceThreshold = fv.SilenceThreshold
	}
	if fv.SilenceDurationSet {
		cfg.SilenceDuration = fv.SilenceDuration
	}
	if fv.ConfirmationTimeoutSet {
		cfg.ConfirmationTimeout = fv.ConfirmationTimeout
	}
	if fv.StartTicksSet {
		cfg.StartTicks = fv.StartTicks
	}
	if fv.ResumeTicksSet {
		cfg.ResumeTicks = fv.ResumeTicks
	}
	if fv.TickIntervalSet {
		cfg.TickInterval = fv.TickInterval
	}
	if fv.DegradedAfterSet {
		cfg.DegradedAfter = fv.DegradedAfter
	}

	if fv.SAMPLING_RATESet {
		cfg.SAMPLING_RATE = fv.SAMPLING_RATE
	}
	if fv.ChannelsSet {
		cfg.Channels = fv.Channels
	}
	if fv.FrameSizeSet {
		cfg.FrameSize = fv.FrameSize
	}
	if fv.DeviceSet {
		cfg.Device = fv.Device
	}

	if fv.WindowMatchSet {
		cfg.WindowMatch = fv.WindowMatch
	}
	if fv.FocusRetriesSet {
		cfg.FocusRetries = fv.FocusRetries
	}
	if fv.FocusBackoffSet {
		cfg.FocusBackoff = fv.FocusBackoff
	}
	if fv.FocusSettleSet {
		cfg.FocusSettle = fv.FocusSettle
	}
	if fv.ClickDelaySet {
		cfg.ClickDelay = fv.ClickDelay
	}
	if fv.SubmitKeySet {
		cfg.SubmitKey = fv.SubmitKey
	}
	if fv.SubmitClickSet {
		cfg.SubmitClick = fv.SubmitClick
	}

	if fv.ConfirmKeySet {
		cfg.ConfirmKey = fv.ConfirmKey
	}
	if fv.AbortKeySet {
		cfg.AbortKey = fv.AbortKey
	}
	if fv.HotKeyHookSet {
		cfg.HotKeyHook = fv.HotKeyHook
	}

	if fv.ButtonConfigSet {
		cfg.ButtonConfig = fv.ButtonConfig
	}
	if fv.ButtonPathSet {
		cfg.ButtonPath = fv.ButtonPath
	}

	if fv.StatusEnabledSet {
		cfg.StatusEnabled = fv.StatusEnabled
	}
	if fv.StatusAddrSet {
		cfg.StatusAddr = fv.StatusAddr
	}
	if fv.StatusTimeoutSet {
		cfg.StatusTimeout = fv.StatusTimeout
	}
	if fv.OverlayTerminalSet {
		cfg.OverlayTerminal = fv.OverlayTerminal
	}

	if fv.NotificationSet {
		cfg.Notification = fv.Notification
	}
	if fv.DryRunSet {
		cfg.DryRun = fv.DryRun
	}
	if fv.LogLevelSet {
		cfg.LogLevel = fv.LogLevel
	}
	if fv.RECORD_DEBUGSet {
		cfg.RECORD_DEBUG = fv.RECORD_DEBUG
	}
	if fv.HOTKEY_DEBUGSet {
		cfg.HOTKEY_DEBUG = fv.HOTKEY_DEBUG
	}
	if fv.ACTUATE_DEBUGSet {
		cfg.ACTUATE_DEBUG = fv.ACTUATE_DEBUG
	}
	if fv.STATUS_DEBUGSet {
		cfg.STATUS_DEBUG = fv.STATUS_DEBUG
	}
}

// AnySet reports whether any flag was explicitly set by the user.
func (fv *FlagValues) AnySet() bool {
	return fv.SilenceThresholdSet ||
		fv.SilenceDurationSet ||
		fv.ConfirmationTimeoutSet ||
		fv.StartTicksSet ||
		fv.ResumeTicksSet ||
		fv.TickIntervalSet ||
		fv.DegradedAfterSet ||
		fv.SAMPLING_RATESet ||
		fv.ChannelsSet ||
		fv.FrameSizeSet ||
		fv.DeviceSet ||
		fv.WindowMatchSet ||
		fv.FocusRetriesSet ||
		fv.FocusBackoffSet ||
		fv.FocusSettleSet ||
		fv.ClickDelaySet ||
		fv.SubmitKeySet ||
		fv.SubmitClickSet ||
		fv.ConfirmKeySet ||
		fv.AbortKeySet ||
		fv.HotKeyHookSet ||
		fv.ButtonConfigSet ||
		fv.ButtonPathSet ||
		fv.StatusEnabledSet ||
		fv.StatusAddrSet ||
		fv.StatusTimeoutSet ||
		fv.OverlayTerminalSet ||
		fv.NotificationSet ||
		fv.DryRunSet ||
		fv.LogLevelSet ||
		fv.RECORD_DEBUGSet ||
		fv.HOTKEY_DEBUGSet ||
		fv.ACTUATE_DEBUGSet ||
		fv.STATUS_DEBUGSet
}
