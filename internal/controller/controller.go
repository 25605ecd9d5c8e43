// Package controller runs the tick loop that connects the audio sampler,
// the override latch, the activity policy and the status publisher.
package controller

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"warpvoice/internal/audio"
	"warpvoice/internal/clock"
	"warpvoice/internal/override"
	"warpvoice/internal/policy"
	"warpvoice/internal/status"
)

// DefaultDegradedAfter is the number of consecutive frame failures after
// which the session is marked degraded.
const DefaultDegradedAfter = 3

// StopReason says why Run returned.
type StopReason int

const (
	StopAborted StopReason = iota
	StopEndOfInput
	StopCanceled
)

func (r StopReason) String() string {
	switch r {
	case StopAborted:
		return "aborted"
	case StopEndOfInput:
		return "end of input"
	case StopCanceled:
		return "canceled"
	default:
		return "unknown"
	}
}

// Options configures a Loop. Sampler, Latch and Policy are required.
type Options struct {
	Sampler   audio.Sampler
	Latch     *override.Latch
	Policy    *policy.Policy
	Publisher status.Publisher
	Clock     clock.Clock
	Tick      time.Duration
	// ConfirmKey is shown in the confirmation status text.
	ConfirmKey    string
	DegradedAfter int
	// Notify shows a desktop notification; nil disables notifications.
	Notify func(title, message string)
	// OnTransition is called for every tick whose transition changed the
	// phase, stopped the session or failed to actuate.
	OnTransition func(Event)
	Logger       *slog.Logger
	// Debug logs the per-tick status line.
	Debug bool
}

// Event is a noteworthy transition and the tick it happened on.
type Event struct {
	Tick       int
	At         time.Time
	Transition policy.Transition
}

// Result summarizes a finished run.
type Result struct {
	Reason StopReason
	Ticks  int
	Cycles int
	Events []Event
}

// Loop owns the sampler for the duration of Run.
type Loop struct {
	opts Options
	proj status.Projection

	failures int
}

// New fills defaults into opts and returns a Loop.
func New(opts Options) *Loop {
	if opts.Publisher == nil {
		opts.Publisher = status.Nop{}
	}
	if opts.Clock == nil {
		opts.Clock = clock.Real{}
	}
	if opts.Tick <= 0 {
		opts.Tick = 50 * time.Millisecond
	}
	if opts.ConfirmKey == "" {
		opts.ConfirmKey = "space"
	}
	if opts.DegradedAfter <= 0 {
		opts.DegradedAfter = DefaultDegradedAfter
	}
	if opts.Notify == nil {
		opts.Notify = func(string, string) {}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Loop{
		opts: opts,
		proj: status.Projection{Params: opts.Policy.Params(), ConfirmKey: opts.ConfirmKey},
	}
}

// Run ticks until the session is aborted, the sampler reports io.EOF or ctx
// is done. The sampler is closed before Run returns. A canceled context is
// reported as StopCanceled with ctx.Err().
func (l *Loop) Run(ctx context.Context, s *policy.Session) (Result, error) {
	defer func() {
		if err := l.opts.Sampler.Close(); err != nil {
			l.opts.Logger.Warn("closing audio input", "session", s.ID, "error", err)
		}
	}()

	log := l.opts.Logger.With("session", s.ID)
	log.Info("session started", "phase", s.Phase, "tick", l.opts.Tick)

	var res Result
	for {
		if err := ctx.Err(); err != nil {
			return l.finish(log, s, res, StopCanceled), err
		}
		res.Ticks++

		sample, err := l.opts.Sampler.Next(ctx)
		if errors.Is(err, io.EOF) {
			return l.finish(log, s, res, StopEndOfInput), nil
		}
		if err != nil && ctx.Err() != nil {
			return l.finish(log, s, res, StopCanceled), ctx.Err()
		}
		now := sample.At
		if now.IsZero() {
			now = l.opts.Clock.Now()
		}
		level := sample.Level
		if err != nil {
			level = 0
			l.frameFailed(log, s, err)
		} else {
			l.frameRead(log, s)
		}

		tr := l.opts.Policy.Step(ctx, s, policy.Input{
			Level:         level,
			At:            now,
			ManualConfirm: l.opts.Latch.TakeConfirm(),
			Abort:         l.opts.Latch.Aborted(),
		})
		if tr.Changed() || tr.Stopped || tr.Err != nil {
			ev := Event{Tick: res.Ticks, At: now, Transition: tr}
			res.Events = append(res.Events, ev)
			l.logTransition(log, s, tr)
			if l.opts.OnTransition != nil {
				l.opts.OnTransition(ev)
			}
		}

		snap := status.FromSession(s, level, now, l.proj)
		l.opts.Publisher.Publish(snap)
		if l.opts.Debug {
			log.Debug(snap.StatusText, "phase", s.Phase, "level", level)
		}

		if tr.Stopped {
			return l.finish(log, s, res, StopAborted), nil
		}
		if err := l.opts.Clock.Sleep(ctx, l.opts.Tick); err != nil {
			return l.finish(log, s, res, StopCanceled), err
		}
	}
}

func (l *Loop) finish(log *slog.Logger, s *policy.Session, res Result, reason StopReason) Result {
	res.Reason = reason
	res.Cycles = s.Cycle
	log.Info("session ended", "reason", reason, "cycle", s.Cycle, "ticks", res.Ticks)
	return res
}

func (l *Loop) frameFailed(log *slog.Logger, s *policy.Session, err error) {
	l.failures++
	log.Debug("frame read failed", "failures", l.failures, "error", err)
	if s.Degraded || l.failures < l.opts.DegradedAfter {
		return
	}
	s.Degraded = true
	log.Warn("audio input degraded", "failures", l.failures, "error", err)
	l.opts.Notify("Audio degraded", "Microphone frames are failing; treating input as silence.")
}

func (l *Loop) frameRead(log *slog.Logger, s *policy.Session) {
	l.failures = 0
	if s.Degraded {
		s.Degraded = false
		log.Info("audio input recovered")
	}
}

func (l *Loop) logTransition(log *slog.Logger, s *policy.Session, tr policy.Transition) {
	switch {
	case tr.Stopped:
		log.Info("stopped by user", "phase", tr.From, "cycle", s.Cycle)
	case tr.Err != nil:
		log.Warn("actuation failed; phase held", "phase", tr.From, "command", tr.Command, "error", tr.Err)
	case tr.Submitted:
		log.Info("submitted", "phase", tr.To, "cycle", s.Cycle)
	default:
		log.Info("phase changed", "from", tr.From, "to", tr.To, "command", tr.Command, "cycle", s.Cycle)
	}
}
