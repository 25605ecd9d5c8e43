// Package audio turns fixed-size frames from an input device or a recorded
// file into one RMS level per frame.
package audio

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Default capture format.
const (
	DefaultSampleRate = 44100
	DefaultChannels   = 1
	DefaultFrameSize  = 512
)

// ErrAudioUnavailable is returned when the input cannot be opened at start.
var ErrAudioUnavailable = errors.New("audio input unavailable")

// FrameReadError reports a single missed frame. The source stays usable.
type FrameReadError struct {
	Err error
}

func (e *FrameReadError) Error() string {
	return fmt.Sprintf("frame read failed: %v", e.Err)
}

func (e *FrameReadError) Unwrap() error {
	return e.Err
}

// LevelSample is the level of one frame and when it was observed.
type LevelSample struct {
	Level float64
	At    time.Time
}

// Sampler produces one LevelSample per call.
type Sampler interface {
	// Next blocks until one frame is available.
	Next(ctx context.Context) (LevelSample, error)
	// Close releases the underlying input. It is safe to call more than once.
	Close() error
}
