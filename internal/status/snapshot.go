// Package status carries a projection of the session state from the
// controller to the overlay over short-lived loopback TCP connections.
package status

import (
	"fmt"
	"strings"
	"time"

	"warpvoice/internal/policy"
)

// BarWidth is the number of cells in the confirmation progress bar.
const BarWidth = 20

// Snapshot is the full status sent after every tick.
type Snapshot struct {
	Recording  bool    `json:"recording"`
	Confirming bool    `json:"confirming"`
	AudioLevel float64 `json:"audio_level"`
	Timer      float64 `json:"timer"`
	Cycle      int     `json:"cycle"`
	StatusText string  `json:"status_text"`
}

// Update is a partial snapshot as received. Absent fields leave the
// receiver's state unchanged.
type Update struct {
	Recording  *bool    `json:"recording,omitempty"`
	Confirming *bool    `json:"confirming,omitempty"`
	AudioLevel *float64 `json:"audio_level,omitempty"`
	Timer      *float64 `json:"timer,omitempty"`
	Cycle      *int     `json:"cycle,omitempty"`
	StatusText *string  `json:"status_text,omitempty"`
}

// Merge applies the fields present in u.
func (s *Snapshot) Merge(u Update) {
	if u.Recording != nil {
		s.Recording = *u.Recording
	}
	if u.Confirming != nil {
		s.Confirming = *u.Confirming
	}
	if u.AudioLevel != nil {
		s.AudioLevel = *u.AudioLevel
	}
	if u.Timer != nil {
		s.Timer = *u.Timer
	}
	if u.Cycle != nil {
		s.Cycle = *u.Cycle
	}
	if u.StatusText != nil {
		s.StatusText = *u.StatusText
	}
}

// Projection holds what FromSession needs besides the session itself.
type Projection struct {
	Params policy.Params
	// ConfirmKey is shown in the confirmation hint, e.g. "space".
	ConfirmKey string
}

// FromSession projects s at time now with the level of the current tick.
// The timer is the silence time while recording and the elapsed
// confirmation time while confirming.
func FromSession(s *policy.Session, level float64, now time.Time, p Projection) Snapshot {
	snap := Snapshot{
		Recording:  s.Phase == policy.PhaseRecording,
		Confirming: s.Phase == policy.PhaseConfirming,
		AudioLevel: level,
		Cycle:      s.Cycle,
	}

	var text string
	switch {
	case !s.Running:
		text = "Stopped by user"
	case s.Phase == policy.PhaseRecording:
		silent := s.SilentFor(now)
		snap.Timer = silent.Seconds()
		if level > p.Params.SilenceThreshold {
			text = fmt.Sprintf("Recording - Audio: %.4f", level)
		} else {
			text = fmt.Sprintf("Recording - Silence: %.1fs", silent.Seconds())
		}
	case s.Phase == policy.PhaseConfirming:
		elapsed := s.InPhase(now)
		snap.Timer = elapsed.Seconds()
		hint := fmt.Sprintf("[%s] to confirm now", strings.ToUpper(p.ConfirmKey))
		if s.ManualConfirmRequested {
			hint = "Confirmed!"
		}
		text = fmt.Sprintf("Confirming: [%s] %.1fs | %s",
			ProgressBar(elapsed, p.Params.ConfirmationTimeout, BarWidth), elapsed.Seconds(), hint)
	default:
		text = fmt.Sprintf("Ready for voice input (cycle %d)", s.Cycle)
	}
	if s.Degraded {
		text += " | audio degraded"
	}
	snap.StatusText = text
	return snap
}

// ProgressBar renders elapsed/total as width cells, filled cells first.
func ProgressBar(elapsed, total time.Duration, width int) string {
	if width <= 0 {
		return ""
	}
	filled := 0
	if total > 0 {
		filled = int(float64(elapsed) / float64(total) * float64(width))
	}
	filled = max(0, min(filled, width))
	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}
