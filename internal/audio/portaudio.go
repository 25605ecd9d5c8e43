package audio

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/gordonklaus/portaudio"
)

// DeviceOptions selects and shapes the input stream.
type DeviceOptions struct {
	// Device is a case-insensitive substring of the input device name.
	// Empty selects the default input device.
	Device     string
	SampleRate int
	Channels   int
	FrameSize  int
	Debug      bool
	Logger     *slog.Logger
}

func (o *DeviceOptions) defaults() {
	if o.SampleRate <= 0 {
		o.SampleRate = DefaultSampleRate
	}
	if o.Channels <= 0 {
		o.Channels = DefaultChannels
	}
	if o.FrameSize <= 0 {
		o.FrameSize = DefaultFrameSize
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
}

// PortAudioSampler reads float32 frames from a PortAudio input stream.
type PortAudioSampler struct {
	opts   DeviceOptions
	stream *portaudio.Stream
	buf    []float32
	reads  uint64

	closeOnce sync.Once
	closeErr  error
}

// OpenDevice initializes PortAudio and starts the input stream.
// Every failure wraps ErrAudioUnavailable.
func OpenDevice(opts DeviceOptions) (*PortAudioSampler, error) {
	opts.defaults()

	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("%w: portaudio init: %w", ErrAudioUnavailable, err)
	}

	dev, err := findInputDevice(opts.Device)
	if err != nil {
		portaudio.Terminate()
		return nil, fmt.Errorf("%w: %w", ErrAudioUnavailable, err)
	}

	buf := make([]float32, opts.FrameSize*opts.Channels)
	params := portaudio.LowLatencyParameters(dev, nil)
	params.Input.Channels = opts.Channels
	params.SampleRate = float64(opts.SampleRate)
	params.FramesPerBuffer = opts.FrameSize

	stream, err := portaudio.OpenStream(params, buf)
	if err != nil {
		portaudio.Terminate()
		return nil, fmt.Errorf("%w: open stream on %q: %w", ErrAudioUnavailable, dev.Name, err)
	}
	if err := stream.Start(); err != nil {
		_ = stream.Close()
		portaudio.Terminate()
		return nil, fmt.Errorf("%w: start stream on %q: %w", ErrAudioUnavailable, dev.Name, err)
	}

	if opts.Debug {
		opts.Logger.Debug("input stream started",
			"device", dev.Name,
			"sample_rate", opts.SampleRate,
			"channels", opts.Channels,
			"frame_size", opts.FrameSize)
	}

	return &PortAudioSampler{opts: opts, stream: stream, buf: buf}, nil
}

// Next reads one frame. An input overflow still delivers the frame.
func (s *PortAudioSampler) Next(ctx context.Context) (LevelSample, error) {
	if err := ctx.Err(); err != nil {
		return LevelSample{}, err
	}

	err := s.stream.Read()
	at := time.Now()
	if err != nil && !errors.Is(err, portaudio.InputOverflowed) {
		if s.opts.Debug {
			s.opts.Logger.Debug("stream read failed", "error", err)
		}
		return LevelSample{At: at}, &FrameReadError{Err: err}
	}

	s.reads++
	level := RMSFloat32(s.buf)
	if s.opts.Debug && s.reads%100 == 0 {
		s.opts.Logger.Debug("frame", "reads", s.reads, "level", level)
	}
	return LevelSample{Level: level, At: at}, nil
}

// Close stops the stream and terminates PortAudio exactly once.
func (s *PortAudioSampler) Close() error {
	s.closeOnce.Do(func() {
		stopErr := s.stream.Stop()
		closeErr := s.stream.Close()
		termErr := portaudio.Terminate()
		s.closeErr = errors.Join(stopErr, closeErr, termErr)
		if s.opts.Debug {
			s.opts.Logger.Debug("input stream closed", "reads", s.reads)
		}
	})
	return s.closeErr
}

func findInputDevice(name string) (*portaudio.DeviceInfo, error) {
	if name == "" {
		dev, err := portaudio.DefaultInputDevice()
		if err != nil {
			return nil, fmt.Errorf("default input device: %w", err)
		}
		return dev, nil
	}

	devices, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("list devices: %w", err)
	}
	want := strings.ToLower(name)
	for _, d := range devices {
		if d.MaxInputChannels > 0 && strings.Contains(strings.ToLower(d.Name), want) {
			return d, nil
		}
	}
	return nil, fmt.Errorf("no input device matches %q", name)
}

// Device describes one input-capable device.
type Device struct {
	Index             int
	Name              string
	HostAPI           string
	MaxInputChannels  int
	DefaultSampleRate float64
	Default           bool
}

// ListDevices returns all devices with at least one input channel.
func ListDevices() ([]Device, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("%w: portaudio init: %w", ErrAudioUnavailable, err)
	}
	defer portaudio.Terminate()

	devices, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("list devices: %w", err)
	}
	var defName string
	if def, err := portaudio.DefaultInputDevice(); err == nil {
		defName = def.Name
	}

	var out []Device
	for _, d := range devices {
		if d.MaxInputChannels <= 0 {
			continue
		}
		host := ""
		if d.HostApi != nil {
			host = d.HostApi.Name
		}
		out = append(out, Device{
			Index:             d.Index,
			Name:              d.Name,
			HostAPI:           host,
			MaxInputChannels:  d.MaxInputChannels,
			DefaultSampleRate: d.DefaultSampleRate,
			Default:           d.Name == defName,
		})
	}
	return out, nil
}
