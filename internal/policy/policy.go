package policy

import (
	"context"
	"fmt"
	"time"
)

// Default policy parameters.
const (
	DefaultSilenceThreshold    = 0.012
	DefaultSilenceDuration     = 3 * time.Second
	DefaultConfirmationTimeout = 10 * time.Second
	DefaultStartTicks          = 2
	DefaultResumeTicks         = 2
)

// Params configures the state machine.
type Params struct {
	// SilenceThreshold is the RMS level a sample must strictly exceed to count as sound.
	SilenceThreshold float64
	// SilenceDuration is how long recording may stay silent before it is stopped.
	SilenceDuration time.Duration
	// ConfirmationTimeout is how long the confirmation window stays open before auto-submit.
	ConfirmationTimeout time.Duration
	// StartTicks is the number of consecutive loud ticks that start recording from Waiting.
	StartTicks int
	// ResumeTicks is the number of consecutive loud ticks that resume recording from Confirming.
	ResumeTicks int
}

// DefaultParams returns the reference tuning.
func DefaultParams() Params {
	return Params{
		SilenceThreshold:    DefaultSilenceThreshold,
		SilenceDuration:     DefaultSilenceDuration,
		ConfirmationTimeout: DefaultConfirmationTimeout,
		StartTicks:          DefaultStartTicks,
		ResumeTicks:         DefaultResumeTicks,
	}
}

// Validate checks that the parameters describe a usable policy.
func (p Params) Validate() error {
	if p.SilenceThreshold <= 0 || p.SilenceThreshold >= 1 {
		return &ValidationError{Field: "SilenceThreshold", Message: "must be between 0.0 and 1.0 (exclusive)"}
	}
	if p.SilenceDuration <= 0 {
		return &ValidationError{Field: "SilenceDuration", Message: "must be positive"}
	}
	if p.ConfirmationTimeout <= p.SilenceDuration {
		return &ValidationError{Field: "ConfirmationTimeout", Message: "must be greater than SilenceDuration"}
	}
	if p.StartTicks < 1 {
		return &ValidationError{Field: "StartTicks", Message: "must be at least 1"}
	}
	if p.ResumeTicks < 1 {
		return &ValidationError{Field: "ResumeTicks", Message: "must be at least 1"}
	}
	return nil
}

// ValidationError represents a parameter validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return "invalid " + e.Field + ": " + e.Message
}

// Actuator performs the external effect of a command.
// A nil error means the effect was confirmed and the phase may advance.
type Actuator interface {
	Execute(ctx context.Context, cmd Command) error
}

// Input is everything the policy observes on one tick.
type Input struct {
	Level         float64
	At            time.Time
	ManualConfirm bool
	Abort         bool
}

// Transition describes the outcome of one tick.
type Transition struct {
	From    Phase
	To      Phase
	Command Command
	// Submitted is set on the Confirming -> Waiting transition that increments the cycle.
	Submitted bool
	// Stopped is set once the session has been aborted.
	Stopped bool
	// Err is the actuation failure that kept the phase from advancing.
	Err error
}

// Changed reports whether the phase moved on this tick.
func (t Transition) Changed() bool {
	return t.From != t.To || t.Submitted
}

// String formats the transition for logs.
func (t Transition) String() string {
	switch {
	case t.Stopped:
		return fmt.Sprintf("%s -> stopped", t.From)
	case t.Err != nil:
		return fmt.Sprintf("%s -x %s (%s failed: %v)", t.From, t.To, t.Command, t.Err)
	case t.Submitted:
		return fmt.Sprintf("%s -> submitted -> %s", t.From, t.To)
	case t.Changed():
		return fmt.Sprintf("%s -> %s", t.From, t.To)
	default:
		return t.From.String()
	}
}

// Policy evaluates one tick at a time against a Session.
type Policy struct {
	params Params
	act    Actuator

	// consecutive above-threshold ticks; reset on every phase entry
	loudTicks int
}

// New returns a Policy that performs transitions through act.
func New(params Params, act Actuator) *Policy {
	return &Policy{params: params, act: act}
}

// Params returns the tuning the policy was created with.
func (p *Policy) Params() Params {
	return p.params
}

// Step evaluates one tick. Precedence is abort, voice resuming recording,
// manual confirm, then confirmation timeout; at most one transition happens.
func (p *Policy) Step(ctx context.Context, s *Session, in Input) Transition {
	idle := Transition{From: s.Phase, To: s.Phase}

	if !s.Running {
		idle.Stopped = true
		return idle
	}
	if in.Abort {
		s.Running = false
		idle.Stopped = true
		return idle
	}

	loud := in.Level > p.params.SilenceThreshold
	if loud {
		p.loudTicks++
	} else {
		p.loudTicks = 0
	}

	switch s.Phase {
	case PhaseWaiting:
		if p.loudTicks >= p.params.StartTicks {
			return p.transition(ctx, s, PhaseRecording, CommandStartCapture, in.At)
		}

	case PhaseRecording:
		if loud {
			if in.At.After(s.LastSoundAt) {
				s.LastSoundAt = in.At
			}
			return idle
		}
		if in.At.Sub(s.LastSoundAt) >= p.params.SilenceDuration {
			return p.transition(ctx, s, PhaseConfirming, CommandStopCapture, in.At)
		}

	case PhaseConfirming:
		if in.ManualConfirm {
			s.ManualConfirmRequested = true
		}
		if p.loudTicks >= p.params.ResumeTicks {
			return p.transition(ctx, s, PhaseRecording, CommandStartCapture, in.At)
		}
		if s.ManualConfirmRequested || in.At.Sub(s.PhaseEnteredAt) >= p.params.ConfirmationTimeout {
			return p.transition(ctx, s, PhaseWaiting, CommandSubmit, in.At)
		}
	}

	return idle
}

// transition performs cmd and, only if it succeeded, moves s into phase.
func (p *Policy) transition(ctx context.Context, s *Session, phase Phase, cmd Command, now time.Time) Transition {
	t := Transition{From: s.Phase, To: s.Phase, Command: cmd}
	if err := p.act.Execute(ctx, cmd); err != nil {
		t.Err = err
		return t
	}

	s.enter(phase, now)
	p.loudTicks = 0
	t.To = phase
	if cmd == CommandSubmit {
		s.Cycle++
		t.Submitted = true
	}
	return t
}
