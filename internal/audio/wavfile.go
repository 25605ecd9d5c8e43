package audio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"warpvoice/internal/clock"
)

// WAVSampler replays a PCM WAV file one frame at a time.
// It returns io.EOF once the file is exhausted.
type WAVSampler struct {
	file     *os.File
	dec      *wav.Decoder
	buf      *goaudio.IntBuffer
	bitDepth int
	clk      clock.Clock

	closeOnce sync.Once
	closeErr  error
}

// OpenWAV opens path for replay. Each frame covers frameDuration of audio,
// and samples are stamped with clk.
func OpenWAV(path string, frameDuration time.Duration, clk clock.Clock) (*WAVSampler, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrAudioUnavailable, err)
	}

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		_ = f.Close()
		return nil, fmt.Errorf("%w: %s is not a valid wav file", ErrAudioUnavailable, path)
	}
	format := dec.Format()
	if format == nil || format.SampleRate <= 0 || format.NumChannels <= 0 || dec.BitDepth == 0 {
		_ = f.Close()
		return nil, fmt.Errorf("%w: %s has no usable pcm format", ErrAudioUnavailable, path)
	}

	frames := int(time.Duration(format.SampleRate) * frameDuration / time.Second)
	if frames <= 0 {
		frames = DefaultFrameSize
	}

	if clk == nil {
		clk = clock.Real{}
	}
	return &WAVSampler{
		file:     f,
		dec:      dec,
		buf:      &goaudio.IntBuffer{Format: format, Data: make([]int, frames*format.NumChannels)},
		bitDepth: int(dec.BitDepth),
		clk:      clk,
	}, nil
}

// Next decodes the next frame.
func (s *WAVSampler) Next(ctx context.Context) (LevelSample, error) {
	if err := ctx.Err(); err != nil {
		return LevelSample{}, err
	}
	n, err := s.dec.PCMBuffer(s.buf)
	at := s.clk.Now()
	if n == 0 && (errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF)) {
		return LevelSample{At: at}, io.EOF
	}
	if err != nil {
		return LevelSample{At: at}, &FrameReadError{Err: err}
	}
	if n == 0 {
		return LevelSample{At: at}, io.EOF
	}
	return LevelSample{Level: RMSInt(s.buf.Data[:n], s.bitDepth), At: at}, nil
}

// SampleRate returns the file's sample rate.
func (s *WAVSampler) SampleRate() int {
	return s.buf.Format.SampleRate
}

// Close closes the file once.
func (s *WAVSampler) Close() error {
	s.closeOnce.Do(func() {
		s.closeErr = s.file.Close()
	})
	return s.closeErr
}
