package audio

import (
	"context"
	"errors"
	"io"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"warpvoice/internal/clock"
)

const fixtureRate = 8000

type segment struct {
	amp float64
	dur time.Duration
}

func seg(amp float64, dur time.Duration) segment {
	return segment{amp: amp, dur: dur}
}

// writeFixture writes a mono 16-bit WAV where each segment is a 440 Hz sine of
// the given amplitude lasting the given duration.
func writeFixture(t *testing.T, segments ...segment) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fixture.wav")
	f, err := os.Create(path)
	require.NoError(t, err)

	var data []int
	for _, sg := range segments {
		n := int(time.Duration(fixtureRate) * sg.dur / time.Second)
		for i := 0; i < n; i++ {
			v := sg.amp * math.Sin(2*math.Pi*440*float64(i)/fixtureRate)
			data = append(data, int(v*32767))
		}
	}

	enc := wav.NewEncoder(f, fixtureRate, 16, 1, 1)
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: 1, SampleRate: fixtureRate},
		Data:           data,
		SourceBitDepth: 16,
	}
	require.NoError(t, enc.Write(buf))
	require.NoError(t, enc.Close())
	require.NoError(t, f.Close())
	return path
}

func TestWAVSamplerLevelsAndEOF(t *testing.T) {
	path := writeFixture(t,
		seg(0, 500*time.Millisecond),
		seg(0.1, 500*time.Millisecond),
		seg(0, 500*time.Millisecond),
	)
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	clk := clock.NewManual(start)

	s, err := OpenWAV(path, 50*time.Millisecond, clk)
	require.NoError(t, err)
	defer s.Close()
	assert.Equal(t, fixtureRate, s.SampleRate())

	ctx := context.Background()
	var levels []float64
	for {
		sample, err := s.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)
		assert.Equal(t, start, sample.At)
		levels = append(levels, sample.Level)
	}

	require.Len(t, levels, 30)
	for i, l := range levels {
		switch {
		case i < 10 || i >= 20:
			assert.Less(t, l, 0.001, "frame %d", i)
		default:
			assert.InDelta(t, 0.1/math.Sqrt2, l, 0.005, "frame %d", i)
		}
	}

	_, err = s.Next(ctx)
	assert.ErrorIs(t, err, io.EOF)
}

func TestWAVSamplerCloseIsIdempotent(t *testing.T) {
	path := writeFixture(t, seg(0, 100*time.Millisecond))
	s, err := OpenWAV(path, 50*time.Millisecond, nil)
	require.NoError(t, err)

	assert.NoError(t, s.Close())
	assert.NoError(t, s.Close())
}

func TestOpenWAVRejectsMissingAndInvalidFiles(t *testing.T) {
	_, err := OpenWAV(filepath.Join(t.TempDir(), "missing.wav"), 50*time.Millisecond, nil)
	assert.ErrorIs(t, err, ErrAudioUnavailable)

	junk := filepath.Join(t.TempDir(), "junk.wav")
	require.NoError(t, os.WriteFile(junk, []byte("not a wav file at all"), 0o644))
	_, err = OpenWAV(junk, 50*time.Millisecond, nil)
	assert.ErrorIs(t, err, ErrAudioUnavailable)
}

func TestWAVSamplerHonorsContext(t *testing.T) {
	path := writeFixture(t, seg(0, 100*time.Millisecond))
	s, err := OpenWAV(path, 50*time.Millisecond, nil)
	require.NoError(t, err)
	defer s.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = s.Next(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFrameReadErrorUnwraps(t *testing.T) {
	inner := errors.New("glitch")
	var err error = &FrameReadError{Err: inner}
	assert.ErrorIs(t, err, inner)
	assert.Contains(t, err.Error(), "glitch")
}
