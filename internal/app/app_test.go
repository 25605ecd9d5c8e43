package app

import (
	"bytes"
	"context"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"warpvoice/internal/config"
	"warpvoice/internal/controller"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
}

// writeSpeech writes a mono 16-bit 8 kHz WAV: lead silence, a 440 Hz tone,
// then trailing silence.
func writeSpeech(t *testing.T, lead, tone, trail time.Duration) string {
	t.Helper()
	const rate = 8000
	n := func(d time.Duration) int { return int(time.Duration(rate) * d / time.Second) }

	data := make([]int, n(lead), n(lead)+n(tone)+n(trail))
	for i := 0; i < n(tone); i++ {
		data = append(data, int(0.3*32767*math.Sin(2*math.Pi*440*float64(i)/rate)))
	}
	data = append(data, make([]int, n(trail))...)

	path := filepath.Join(t.TempDir(), "speech.wav")
	f, err := os.Create(path)
	require.NoError(t, err)
	enc := wav.NewEncoder(f, rate, 16, 1, 1)
	require.NoError(t, enc.Write(&goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: 1, SampleRate: rate},
		Data:           data,
		SourceBitDepth: 16,
	}))
	require.NoError(t, enc.Close())
	require.NoError(t, f.Close())
	return path
}

func TestReplaySubmitsOnce(t *testing.T) {
	path := writeSpeech(t, 100*time.Millisecond, 500*time.Millisecond, 14*time.Second)
	var out bytes.Buffer

	res, err := RunReplayMode(context.Background(), config.DefaultConfig(), path, &out, quietLogger())
	require.NoError(t, err)

	assert.Equal(t, controller.StopEndOfInput, res.Reason)
	assert.Equal(t, 1, res.Cycles)
	require.Len(t, res.Events, 3)
	assert.Equal(t, 4, res.Events[0].Tick)
	assert.Equal(t, res.Events[1].Tick+200, res.Events[2].Tick)

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 4)
	assert.Contains(t, lines[0], "waiting -> recording")
	assert.Contains(t, lines[1], "recording -> confirming")
	assert.Contains(t, lines[2], "confirming -> submitted -> waiting")
	assert.Equal(t, "cycles: 1", lines[3])
}

func TestReplayShortClipNeverSubmits(t *testing.T) {
	path := writeSpeech(t, 0, 500*time.Millisecond, 5*time.Second)
	var out bytes.Buffer

	res, err := RunReplayMode(context.Background(), config.DefaultConfig(), path, &out, quietLogger())
	require.NoError(t, err)
	assert.Equal(t, 0, res.Cycles)
	assert.Contains(t, out.String(), "cycles: 0")
}

func TestReplayMissingFile(t *testing.T) {
	_, err := RunReplayMode(context.Background(), config.DefaultConfig(),
		filepath.Join(t.TempDir(), "nope.wav"), &bytes.Buffer{}, quietLogger())
	assert.Error(t, err)
}

func TestParseButtonPosition(t *testing.T) {
	pos, err := ParseButtonPosition(" 120, 45")
	require.NoError(t, err)
	assert.Equal(t, config.ButtonPosition{X: 120, Y: 45}, pos)

	for _, bad := range []string{"", "12", "a,1", "1,b", "-1,5", "5,-1"} {
		_, err := ParseButtonPosition(bad)
		assert.Error(t, err, bad)
	}
}

func TestRunSetButtonPersists(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.ButtonConfig = filepath.Join(t.TempDir(), "buttons.json")
	var out bytes.Buffer

	require.NoError(t, RunSetButton(cfg, "300,40", &out))
	assert.Contains(t, out.String(), "(300,40)")

	pos, err := config.LoadButtonPosition(cfg.ButtonConfig, cfg.ButtonPath)
	require.NoError(t, err)
	assert.Equal(t, config.ButtonPosition{X: 300, Y: 40}, pos)

	assert.Error(t, RunSetButton(cfg, "x", &out))
}

func TestControlModeFailsWithoutButton(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.ButtonConfig = filepath.Join(t.TempDir(), "missing.json")

	err := RunControlMode(context.Background(), cfg, quietLogger())
	assert.ErrorIs(t, err, config.ErrButtonPositionMissing)
}

func TestOverlayCommand(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.OverlayTerminal = "x-terminal-emulator -e"
	cfg.StatusAddr = "127.0.0.1:4000"

	name, args := OverlayCommand(cfg, "/usr/bin/warpvoice", "conf.json")
	assert.Equal(t, "x-terminal-emulator", name)
	assert.Equal(t, []string{"-e", "/usr/bin/warpvoice", "-overlay", "-status-addr", "127.0.0.1:4000", "-config", "conf.json"}, args)

	cfg.OverlayTerminal = ""
	name, args = OverlayCommand(cfg, "/usr/bin/warpvoice", "")
	assert.Equal(t, "/usr/bin/warpvoice", name)
	assert.Equal(t, []string{"-overlay", "-status-addr", "127.0.0.1:4000"}, args)
}

func TestNewLoggerLevels(t *testing.T) {
	ctx := context.Background()
	cfg := config.DefaultConfig()

	logger := NewLogger(cfg, &bytes.Buffer{})
	assert.True(t, logger.Enabled(ctx, slog.LevelInfo))
	assert.False(t, logger.Enabled(ctx, slog.LevelDebug))

	cfg.LogLevel = "error"
	assert.False(t, NewLogger(cfg, &bytes.Buffer{}).Enabled(ctx, slog.LevelWarn))

	cfg.ACTUATE_DEBUG = true
	assert.True(t, NewLogger(cfg, &bytes.Buffer{}).Enabled(ctx, slog.LevelDebug))
}
