package policy

import "time"

// Session is the single long-lived state of one controller run.
// It is mutated only by Policy.Step and is not safe for concurrent use.
type Session struct {
	ID    string
	Phase Phase
	// Cycle counts completed submissions.
	Cycle int
	// LastSoundAt is the time of the last above-threshold sample while recording.
	LastSoundAt time.Time
	// PhaseEnteredAt is the time the current phase was entered.
	PhaseEnteredAt time.Time
	// ManualConfirmRequested latches a confirm key press during Confirming.
	ManualConfirmRequested bool
	// Running is cleared on abort.
	Running bool
	// Degraded reports repeated consecutive frame read failures.
	Degraded bool
}

// NewSession returns a running session in PhaseWaiting.
func NewSession(id string, now time.Time) *Session {
	return &Session{
		ID:             id,
		Phase:          PhaseWaiting,
		LastSoundAt:    now,
		PhaseEnteredAt: now,
		Running:        true,
	}
}

// InPhase returns how long the session has been in its current phase.
func (s *Session) InPhase(now time.Time) time.Duration {
	return nonNegative(now.Sub(s.PhaseEnteredAt))
}

// SilentFor returns how long it has been since the last sound while recording.
func (s *Session) SilentFor(now time.Time) time.Duration {
	return nonNegative(now.Sub(s.LastSoundAt))
}

func (s *Session) enter(phase Phase, now time.Time) {
	s.Phase = phase
	s.PhaseEnteredAt = now
	s.ManualConfirmRequested = false
	if phase == PhaseRecording {
		s.LastSoundAt = now
	}
}

func nonNegative(d time.Duration) time.Duration {
	if d < 0 {
		return 0
	}
	return d
}
