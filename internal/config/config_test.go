package config

import (
	"errors"
	"flag"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	if err := Validate(&cfg); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	p := cfg.Params()
	if p.SilenceThreshold != 0.012 || p.SilenceDuration != 3*time.Second || p.ConfirmationTimeout != 10*time.Second {
		t.Fatalf("unexpected params: %+v", p)
	}
	if cfg.Tick() != 50*time.Millisecond {
		t.Fatalf("unexpected tick: %v", cfg.Tick())
	}
}

func TestSaveDefaultAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := SaveDefault(path); err != nil {
		t.Fatalf("SaveDefault: %v", err)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !strings.Contains(string(b), `"SILENCE_THRESHOLD"`) || !strings.Contains(string(b), `"CONFIRM_KEY": "space"`) {
		t.Fatalf("unexpected default file:\n%s", b)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg != DefaultConfig() {
		t.Fatalf("round trip mismatch: %+v", cfg)
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(`{"SILENCE_DURATION": 2.5, "WINDOW_MATCH": "kitty"}`), 0644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.SilenceDuration != 2.5 || cfg.WindowMatch != "kitty" {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
	if cfg.ConfirmationTimeout != 10 {
		t.Fatalf("default lost: %v", cfg.ConfirmationTimeout)
	}

	if err := os.WriteFile(path, []byte(`{not json`), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatalf("expected decode error")
	}
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"threshold", func(c *Config) { c.SilenceThreshold = 1.5 }, "SILENCE_THRESHOLD"},
		{"timeout not after silence", func(c *Config) { c.ConfirmationTimeout = 3 }, "CONFIRMATION_TIMEOUT must be greater than SILENCE_DURATION"},
		{"start ticks", func(c *Config) { c.StartTicks = 0 }, "START_TICKS must be at least 1"},
		{"channels", func(c *Config) { c.Channels = 9 }, "CHANNELS"},
		{"log level", func(c *Config) { c.LogLevel = "loud" }, "LOG_LEVEL must be one of"},
		{"same keys", func(c *Config) { c.AbortKey = "space" }, "ABORT_KEY must differ from CONFIRM_KEY"},
		{"bad confirm key", func(c *Config) { c.ConfirmKey = "hyper+x" }, "confirm key"},
		{"bad submit key", func(c *Config) { c.SubmitKey = "nope" }, "SUBMIT_KEY"},
		{"status addr", func(c *Config) { c.StatusAddr = "nohostport" }, "STATUS_ADDR"},
		{"status addr not loopback", func(c *Config) { c.StatusAddr = "10.0.0.1:12345" }, "loopback"},
		{"empty button path", func(c *Config) { c.ButtonPath = "" }, "BUTTON_PATH is required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := Validate(&cfg)
			if err == nil {
				t.Fatalf("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("error %q does not mention %q", err, tt.want)
			}
		})
	}
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("WARPVOICE_SILENCE_THRESHOLD", "0.02")
	t.Setenv("WARPVOICE_DRY_RUN", "true")
	t.Setenv("WARPVOICE_WINDOW_MATCH", "Alacritty")

	cfg := DefaultConfig()
	if err := ApplyEnv(&cfg); err != nil {
		t.Fatalf("ApplyEnv: %v", err)
	}
	if cfg.SilenceThreshold != 0.02 || !cfg.DryRun || cfg.WindowMatch != "Alacritty" {
		t.Fatalf("env not applied: %+v", cfg)
	}
	if cfg.ConfirmKey != "space" {
		t.Fatalf("unset env changed a field: %q", cfg.ConfirmKey)
	}

	t.Setenv("WARPVOICE_START_TICKS", "many")
	if err := ApplyEnv(&cfg); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestFlagsOverrideAndTrackSet(t *testing.T) {
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	fv := BindFlags(fs)
	if fv.AnySet() {
		t.Fatalf("nothing parsed yet")
	}

	err := fs.Parse([]string{"-silence-duration", "4", "-dry-run", "-confirm-key", "enter", "-start-ticks=3", "-status=no"})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !fv.AnySet() {
		t.Fatalf("AnySet should be true")
	}

	cfg := DefaultConfig()
	ApplyFlags(&cfg, fv)
	if cfg.SilenceDuration != 4 || !cfg.DryRun || cfg.ConfirmKey != "enter" || cfg.StartTicks != 3 || cfg.StatusEnabled {
		t.Fatalf("flags not applied: %+v", cfg)
	}
	if cfg.ConfirmationTimeout != 10 {
		t.Fatalf("unset flag changed a field")
	}
}

func TestButtonPositionRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), ButtonFileName)

	if _, err := LoadButtonPosition(path, "record_button"); !errors.Is(err, ErrButtonPositionMissing) {
		t.Fatalf("expected ErrButtonPositionMissing, got %v", err)
	}

	if err := SaveButtonPosition(path, "record_button", ButtonPosition{X: 812, Y: 640}); err != nil {
		t.Fatalf("save: %v", err)
	}
	pos, err := LoadButtonPosition(path, "record_button")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if pos != (ButtonPosition{X: 812, Y: 640}) {
		t.Fatalf("unexpected position %v", pos)
	}
}

func TestButtonPositionNestedPathKeepsOtherContent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "buttons.json")
	content := `{"theme":"dark","profiles":[{"name":"laptop","record_button":{"x":1,"y":2}}]}`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	pos, err := LoadButtonPosition(path, "profiles[0].record_button")
	if err != nil || pos != (ButtonPosition{X: 1, Y: 2}) {
		t.Fatalf("load nested: %v %v", pos, err)
	}

	if err := SaveButtonPosition(path, "profiles[0].record_button", ButtonPosition{X: 30, Y: 40}); err != nil {
		t.Fatalf("save nested: %v", err)
	}
	b, _ := os.ReadFile(path)
	if !strings.Contains(string(b), `"theme": "dark"`) || !strings.Contains(string(b), `"laptop"`) {
		t.Fatalf("other content lost:\n%s", b)
	}
	pos, err = LoadButtonPosition(path, "profiles[0].record_button")
	if err != nil || pos != (ButtonPosition{X: 30, Y: 40}) {
		t.Fatalf("reload nested: %v %v", pos, err)
	}
}

func TestButtonPositionRejectsBadContent(t *testing.T) {
	dir := t.TempDir()
	cases := map[string]string{
		"not-json.json":   `{`,
		"no-object.json":  `{"other":{}}`,
		"scalar.json":     `{"record_button":5}`,
		"missing-y.json":  `{"record_button":{"x":5}}`,
		"negative-x.json": `{"record_button":{"x":-1,"y":5}}`,
	}
	for name, content := range cases {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
		if _, err := LoadButtonPosition(path, "record_button"); !errors.Is(err, ErrButtonPositionMissing) {
			t.Fatalf("%s: expected ErrButtonPositionMissing, got %v", name, err)
		}
	}
}

func TestSaveButtonPositionOverNonObjectFile(t *testing.T) {
	dir := t.TempDir()

	nullPath := filepath.Join(dir, "null.json")
	if err := os.WriteFile(nullPath, []byte("null"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := SaveButtonPosition(nullPath, "record_button", ButtonPosition{X: 7, Y: 8}); err != nil {
		t.Fatalf("save over null: %v", err)
	}
	pos, err := LoadButtonPosition(nullPath, "record_button")
	if err != nil || pos != (ButtonPosition{X: 7, Y: 8}) {
		t.Fatalf("reload after null: %v %v", pos, err)
	}

	arrPath := filepath.Join(dir, "array.json")
	if err := os.WriteFile(arrPath, []byte("[1,2]"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := SaveButtonPosition(arrPath, "record_button", ButtonPosition{X: 1, Y: 1}); err == nil {
		t.Fatalf("expected error saving into a JSON array")
	}
}

func TestButtonConfigPath(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ButtonConfig = "/tmp/buttons.json"
	if p, err := ButtonConfigPath(&cfg); err != nil || p != "/tmp/buttons.json" {
		t.Fatalf("explicit path: %q %v", p, err)
	}
	cfg.ButtonConfig = ""
	p, err := ButtonConfigPath(&cfg)
	if err != nil {
		t.Skipf("no home directory: %v", err)
	}
	if filepath.Base(p) != ButtonFileName {
		t.Fatalf("unexpected default path %q", p)
	}
}
